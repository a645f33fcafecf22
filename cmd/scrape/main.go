package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/bbernstein/surftrack/backend-go/internal/archive"
	"github.com/bbernstein/surftrack/backend-go/internal/config"
	"github.com/bbernstein/surftrack/backend-go/internal/forecast"
	"github.com/bbernstein/surftrack/backend-go/internal/scraper"
	"github.com/rs/zerolog/log"
)

var errUsage = errors.New("exactly one of -name, -file or -archive-key is required")

type options struct {
	name       string
	file       string
	archiveKey string
}

func parseFlags(args []string) (options, error) {
	var opts options
	fs := flag.NewFlagSet("scrape", flag.ContinueOnError)
	fs.StringVar(&opts.name, "name", "", "scrape the live forecast page for this break")
	fs.StringVar(&opts.file, "file", "", "parse a saved forecast page")
	fs.StringVar(&opts.archiveKey, "archive-key", "", "parse a page from the S3 page archive")
	if err := fs.Parse(args); err != nil {
		return opts, err
	}

	set := 0
	for _, v := range []string{opts.name, opts.file, opts.archiveKey} {
		if v != "" {
			set++
		}
	}
	if set != 1 {
		return opts, errUsage
	}
	return opts, nil
}

func writePage(out io.Writer, page forecast.Page) error {
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(page)
}

func loadHTML(ctx context.Context, cfg *config.Config, opts options) (string, error) {
	switch {
	case opts.file != "":
		data, err := os.ReadFile(opts.file)
		if err != nil {
			return "", fmt.Errorf("reading page: %w", err)
		}
		return string(data), nil

	case opts.archiveKey != "":
		if cfg.PageArchiveBucket == "" {
			return "", errors.New("PAGE_ARCHIVE_BUCKET is not set")
		}
		client, err := archive.NewS3Client(ctx)
		if err != nil {
			return "", err
		}
		html, err := archive.NewS3PageArchive(client, cfg.PageArchiveBucket).Load(ctx, opts.archiveKey)
		if err != nil {
			return "", err
		}
		if html == "" {
			return "", fmt.Errorf("no archived page at %q", opts.archiveKey)
		}
		return html, nil
	}
	return "", errUsage
}

func run(ctx context.Context, cfg *config.Config, args []string, out io.Writer) error {
	opts, err := parseFlags(args)
	if err != nil {
		return err
	}

	if opts.name != "" {
		sc, closeSource := scraper.NewFromConfig(cfg)
		defer closeSource()

		result := sc.ScrapeSpot(ctx, opts.name)
		if result.Err != nil {
			return result.Err
		}
		log.Info().Str("url", result.URL).Str("status", result.Status.String()).Msg("Scraped page")
		return writePage(out, result.Page)
	}

	html, err := loadHTML(ctx, cfg, opts)
	if err != nil {
		return err
	}
	return writePage(out, forecast.ParsePage(html, forecast.NewResolver()))
}

func main() {
	cfg := config.LoadFromEnv()
	cfg.InitializeLogging()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, os.Args[1:], os.Stdout); err != nil {
		log.Error().Err(err).Msg("Scrape failed")
		stop()
		os.Exit(1)
	}
}
