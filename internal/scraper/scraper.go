package scraper

import (
	"context"
	"net/url"
	"strings"
	"time"

	"github.com/bbernstein/surftrack/backend-go/internal/forecast"
	"github.com/rs/zerolog/log"
)

const defaultTimeout = 45 * time.Second

// Status separates "the site answered but had nothing" from "we never got
// the page".
type Status int

const (
	StatusOK Status = iota
	StatusEmpty
	StatusFailed
)

func (s Status) String() string {
	switch s {
	case StatusOK:
		return "ok"
	case StatusEmpty:
		return "empty"
	case StatusFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Result is the outcome of scraping one spot
type Result struct {
	Status Status
	URL    string
	Page   forecast.Page
	// HTML is the raw page, kept for archiving
	HTML string
	Err  error
}

type Scraper struct {
	source   PageSource
	resolver *forecast.Resolver
	baseURL  string
	timeout  time.Duration
}

type Option func(*Scraper)

// WithBaseURL overrides the forecast site root
func WithBaseURL(base string) Option {
	return func(s *Scraper) {
		s.baseURL = strings.TrimRight(base, "/")
	}
}

// WithTimeout bounds each page fetch
func WithTimeout(timeout time.Duration) Option {
	return func(s *Scraper) {
		if timeout > 0 {
			s.timeout = timeout
		}
	}
}

// WithResolver sets the clock used to resolve table dates
func WithResolver(resolver *forecast.Resolver) Option {
	return func(s *Scraper) {
		s.resolver = resolver
	}
}

func New(source PageSource, opts ...Option) *Scraper {
	s := &Scraper{
		source:   source,
		resolver: forecast.NewResolver(),
		baseURL:  "https://www.surf-forecast.com",
		timeout:  defaultTimeout,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// PageURL is the latest-forecast page for a spot's forecast name
func (s *Scraper) PageURL(forecastName string) string {
	return s.baseURL + "/breaks/" + url.PathEscape(forecastName) + "/forecasts/latest"
}

// ScrapeSpot fetches and parses one spot's forecast page
func (s *Scraper) ScrapeSpot(ctx context.Context, forecastName string) Result {
	pageURL := s.PageURL(forecastName)

	fetchCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	html, err := s.source.Fetch(fetchCtx, pageURL)
	if err != nil {
		return Result{Status: StatusFailed, URL: pageURL, Err: NewFetchError(pageURL, err)}
	}

	page := forecast.ParsePage(html, s.resolver)
	status := StatusOK
	if page.Empty() {
		status = StatusEmpty
	}

	log.Debug().
		Str("url", pageURL).
		Str("status", status.String()).
		Int("forecasts", len(page.Forecasts)).
		Int("tides", len(page.Tides)).
		Msg("Scraped forecast page")

	return Result{Status: status, URL: pageURL, Page: page, HTML: html}
}
