package ingest

import (
	"context"
	"fmt"
	"time"

	"github.com/bbernstein/surftrack/backend-go/internal/models"
	"github.com/bbernstein/surftrack/backend-go/internal/scraper"
	"github.com/google/uuid"
	"github.com/hashicorp/go-multierror"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const (
	OutcomeSaved   = "saved"
	OutcomeEmpty   = "empty"
	OutcomeSkipped = "skipped"
	OutcomeFailed  = "failed"
)

type SpotLister interface {
	ListSpots(ctx context.Context) ([]models.Spot, error)
}

type PageScraper interface {
	ScrapeSpot(ctx context.Context, forecastName string) scraper.Result
}

// PageScraperFunc adapts a function to PageScraper
type PageScraperFunc func(ctx context.Context, forecastName string) scraper.Result

func (f PageScraperFunc) ScrapeSpot(ctx context.Context, forecastName string) scraper.Result {
	return f(ctx, forecastName)
}

type ForecastWriter interface {
	SaveSpotData(ctx context.Context, spotID uint, forecasts []models.ForecastRecord, tides []models.TideEvent) error
}

type PageArchiver interface {
	Save(ctx context.Context, forecastName, html string) (string, error)
}

// SpotOutcome is what happened to one spot during a pass
type SpotOutcome struct {
	SpotID    uint
	Spot      string
	Status    string
	Forecasts int
	Tides     int
	Err       error
}

// RunReport summarises one ingestion pass
type RunReport struct {
	JobID    string
	Started  time.Time
	Finished time.Time
	Spots    []SpotOutcome
	errs     *multierror.Error
}

// Err joins every per-spot failure, or returns nil when all spots went through
func (r *RunReport) Err() error {
	return r.errs.ErrorOrNil()
}

// Count returns how many spots ended with the given outcome
func (r *RunReport) Count(status string) int {
	n := 0
	for _, s := range r.Spots {
		if s.Status == status {
			n++
		}
	}
	return n
}

func (r *RunReport) record(outcome SpotOutcome) {
	r.Spots = append(r.Spots, outcome)
	if outcome.Err != nil {
		r.errs = multierror.Append(r.errs, outcome.Err)
	}
}

// Runner performs ingestion passes over every tracked spot
type Runner struct {
	spots    SpotLister
	scraper  PageScraper
	store    ForecastWriter
	archive  PageArchiver
	metrics  *Metrics
	now      func() time.Time
	newJobID func() string
}

type RunnerOption func(*Runner)

// WithArchive stores each fetched page before it is saved
func WithArchive(archive PageArchiver) RunnerOption {
	return func(r *Runner) {
		r.archive = archive
	}
}

func WithMetrics(m *Metrics) RunnerOption {
	return func(r *Runner) {
		r.metrics = m
	}
}

func WithClock(now func() time.Time) RunnerOption {
	return func(r *Runner) {
		r.now = now
	}
}

func NewRunner(spots SpotLister, s PageScraper, store ForecastWriter, opts ...RunnerOption) *Runner {
	r := &Runner{
		spots:    spots,
		scraper:  s,
		store:    store,
		now:      time.Now,
		newJobID: func() string { return uuid.New().String() },
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// RunOnce scrapes and stores every spot in turn. A failing spot is logged and
// recorded in the report; it never stops the pass. Only a failure to list the
// spots, or cancellation, ends the pass early.
func (r *Runner) RunOnce(ctx context.Context) *RunReport {
	report := &RunReport{JobID: r.newJobID(), Started: r.now()}
	logger := log.With().Str("job_id", report.JobID).Logger()
	logger.Info().Msg("Starting forecast ingestion")

	defer func() {
		report.Finished = r.now()
		r.metrics.observeRun(report)
		logger.Info().
			Int("saved", report.Count(OutcomeSaved)).
			Int("empty", report.Count(OutcomeEmpty)).
			Int("skipped", report.Count(OutcomeSkipped)).
			Int("failed", report.Count(OutcomeFailed)).
			Dur("duration", report.Finished.Sub(report.Started)).
			Msg("Forecast ingestion finished")
	}()

	spots, err := r.spots.ListSpots(ctx)
	if err != nil {
		logger.Error().Err(err).Msg("Could not list spots")
		report.errs = multierror.Append(report.errs, fmt.Errorf("listing spots: %w", err))
		return report
	}

	for _, spot := range spots {
		if err := ctx.Err(); err != nil {
			logger.Warn().Err(err).Msg("Ingestion cancelled")
			report.errs = multierror.Append(report.errs, err)
			return report
		}

		outcome := r.ingestSpot(ctx, logger, spot)
		r.metrics.observeSpot(outcome)
		report.record(outcome)
	}
	return report
}

func (r *Runner) ingestSpot(ctx context.Context, logger zerolog.Logger, spot models.Spot) SpotOutcome {
	outcome := SpotOutcome{SpotID: spot.ID, Spot: spot.Name}
	spotLog := logger.With().Str("spot", spot.Name).Uint("spot_id", spot.ID).Logger()

	name := spot.ForecastName()
	if name == "" {
		spotLog.Info().Msg("Skipping spot without a forecast name")
		outcome.Status = OutcomeSkipped
		return outcome
	}

	result := r.scraper.ScrapeSpot(ctx, name)
	switch result.Status {
	case scraper.StatusFailed:
		spotLog.Error().Err(result.Err).Str("url", result.URL).Msg("Failed to fetch forecast page")
		outcome.Status = OutcomeFailed
		outcome.Err = fmt.Errorf("spot %q: %w", spot.Name, result.Err)
		return outcome
	case scraper.StatusEmpty:
		spotLog.Warn().Str("url", result.URL).Msg("No forecast data found")
		outcome.Status = OutcomeEmpty
		return outcome
	}

	if r.archive != nil {
		if _, err := r.archive.Save(ctx, name, result.HTML); err != nil {
			spotLog.Warn().Err(err).Msg("Could not archive forecast page")
		}
	}

	updatedAt := r.now().UTC()
	forecasts := make([]models.ForecastRecord, 0, len(result.Page.Forecasts))
	for _, row := range result.Page.Forecasts {
		forecasts = append(forecasts, row.Record(spot.ID, updatedAt))
	}
	tides := make([]models.TideEvent, 0, len(result.Page.Tides))
	for _, row := range result.Page.Tides {
		tides = append(tides, row.Event(spot.ID))
	}

	if err := r.store.SaveSpotData(ctx, spot.ID, forecasts, tides); err != nil {
		spotLog.Error().Err(err).Msg("Failed to save forecast data")
		outcome.Status = OutcomeFailed
		outcome.Err = fmt.Errorf("spot %q: %w", spot.Name, err)
		return outcome
	}

	spotLog.Info().
		Int("forecasts", len(forecasts)).
		Int("tides", len(tides)).
		Msg("Saved forecast data")

	outcome.Status = OutcomeSaved
	outcome.Forecasts = len(forecasts)
	outcome.Tides = len(tides)
	return outcome
}
