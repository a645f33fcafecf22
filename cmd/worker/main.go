package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/bbernstein/surftrack/backend-go/internal/archive"
	"github.com/bbernstein/surftrack/backend-go/internal/config"
	"github.com/bbernstein/surftrack/backend-go/internal/ingest"
	"github.com/bbernstein/surftrack/backend-go/internal/scraper"
	"github.com/bbernstein/surftrack/backend-go/internal/spot"
	"github.com/bbernstein/surftrack/backend-go/internal/store"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"
)

func main() {
	cfg := config.LoadFromEnv()
	cfg.InitializeLogging()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg); err != nil && !errors.Is(err, context.Canceled) {
		log.Fatal().Err(err).Msg("Worker stopped")
	}
}

func run(ctx context.Context, cfg *config.Config) error {
	backends, err := store.OpenBackends(ctx, cfg)
	if err != nil {
		return err
	}

	if cfg.SpotSeedFile != "" {
		if _, err := spot.SeedFromYAML(ctx, cfg.SpotSeedFile, backends.Relational); err != nil {
			return err
		}
	}

	s, closeSource := scraper.NewFromConfig(cfg)
	defer closeSource()

	metrics := ingest.NewMetrics()
	opts := []ingest.RunnerOption{ingest.WithMetrics(metrics)}
	if cfg.PageArchiveBucket != "" {
		s3Client, err := archive.NewS3Client(ctx)
		if err != nil {
			return err
		}
		opts = append(opts, ingest.WithArchive(archive.NewS3PageArchive(s3Client, cfg.PageArchiveBucket)))
	}

	runner := ingest.NewRunner(spot.NewRegistry(backends.Relational), s, backends.Forecasts, opts...)

	server := newMetricsServer(cfg.MetricsAddr, metrics)
	go func() {
		log.Info().Str("addr", server.Addr).Msg("Serving metrics")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error().Err(err).Msg("Metrics server failed")
		}
	}()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			log.Warn().Err(err).Msg("Metrics server shutdown")
		}
	}()

	return ingest.NewScheduler(runner, cfg.Schedule, cfg.RunOnStart).Run(ctx)
}

func newMetricsServer(addr string, metrics *ingest.Metrics) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(metrics.Registry(), promhttp.HandlerOpts{}))
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	return &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
}
