package main

import (
	"context"
	"fmt"
	"sync"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"
	"github.com/bbernstein/surftrack/backend-go/internal/archive"
	"github.com/bbernstein/surftrack/backend-go/internal/config"
	"github.com/bbernstein/surftrack/backend-go/internal/ingest"
	"github.com/bbernstein/surftrack/backend-go/internal/scraper"
	"github.com/bbernstein/surftrack/backend-go/internal/spot"
	"github.com/bbernstein/surftrack/backend-go/internal/store"
	"github.com/rs/zerolog/log"
)

var (
	runner      ingest.Pass
	setupOnce   sync.Once
	lambdaStart = lambda.Start
)

// Summary is returned to the scheduler that invoked the function
type Summary struct {
	JobID   string `json:"jobId"`
	Saved   int    `json:"saved"`
	Empty   int    `json:"empty"`
	Skipped int    `json:"skipped"`
	Failed  int    `json:"failed"`
}

func setup(ctx context.Context) {
	setupOnce.Do(func() {
		cfg := config.LoadFromEnv()
		cfg.InitializeLogging()

		backends, err := store.OpenBackends(ctx, cfg)
		if err != nil {
			log.Fatal().Err(err).Msg("Opening storage")
		}

		// the page source lives as long as the container
		s, _ := scraper.NewFromConfig(cfg)

		var opts []ingest.RunnerOption
		if cfg.PageArchiveBucket != "" {
			s3Client, err := archive.NewS3Client(ctx)
			if err != nil {
				log.Fatal().Err(err).Msg("Creating S3 client")
			}
			opts = append(opts, ingest.WithArchive(archive.NewS3PageArchive(s3Client, cfg.PageArchiveBucket)))
		}

		runner = ingest.NewRunner(spot.NewRegistry(backends.Relational), s, backends.Forecasts, opts...)
	})
}

func handleEvent(ctx context.Context, event events.CloudWatchEvent) (Summary, error) {
	setup(ctx)
	log.Info().Str("source", event.Source).Str("event_id", event.ID).Msg("Handling scheduled ingestion")
	return summarize(runner.RunOnce(ctx))
}

// summarize fails the invocation only when nothing was saved and something
// went wrong, so a single bad spot does not trigger a retry of the whole pass
func summarize(report *ingest.RunReport) (Summary, error) {
	summary := Summary{
		JobID:   report.JobID,
		Saved:   report.Count(ingest.OutcomeSaved),
		Empty:   report.Count(ingest.OutcomeEmpty),
		Skipped: report.Count(ingest.OutcomeSkipped),
		Failed:  report.Count(ingest.OutcomeFailed),
	}
	if err := report.Err(); err != nil && summary.Saved == 0 {
		return summary, fmt.Errorf("ingestion %s saved nothing: %w", report.JobID, err)
	}
	return summary, nil
}

func main() {
	lambdaStart(handleEvent)
}
