package ingest

import (
	"context"
	"time"

	"github.com/bbernstein/surftrack/backend-go/internal/config"
	"github.com/rs/zerolog/log"
)

// Pass runs one ingestion over all spots
type Pass interface {
	RunOnce(ctx context.Context) *RunReport
}

// Scheduler runs a pass at every hour of its schedule until cancelled
type Scheduler struct {
	pass       Pass
	schedule   config.Schedule
	runOnStart bool
	now        func() time.Time
	sleep      func(ctx context.Context, d time.Duration) error
}

func NewScheduler(pass Pass, schedule config.Schedule, runOnStart bool) *Scheduler {
	return &Scheduler{
		pass:       pass,
		schedule:   schedule,
		runOnStart: runOnStart,
		now:        time.Now,
		sleep:      sleepContext,
	}
}

// Run blocks until ctx is done and returns its error
func (s *Scheduler) Run(ctx context.Context) error {
	log.Info().
		Str("hours", s.schedule.String()).
		Bool("run_on_start", s.runOnStart).
		Msg("Ingestion scheduler started")

	if s.runOnStart {
		s.runPass(ctx)
	}

	for {
		now := s.now()
		next := s.schedule.Next(now)
		log.Debug().Time("next_run", next).Msg("Waiting for next ingestion")

		if err := s.sleep(ctx, next.Sub(now)); err != nil {
			log.Info().Msg("Ingestion scheduler stopped")
			return err
		}
		s.runPass(ctx)
	}
}

func (s *Scheduler) runPass(ctx context.Context) {
	report := s.pass.RunOnce(ctx)
	if err := report.Err(); err != nil {
		log.Warn().Err(err).Str("job_id", report.JobID).Msg("Ingestion finished with errors")
	}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
