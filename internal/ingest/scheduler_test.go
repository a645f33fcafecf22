package ingest

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/bbernstein/surftrack/backend-go/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingPass struct {
	runs int
	err  error
}

func (p *countingPass) RunOnce(ctx context.Context) *RunReport {
	p.runs++
	report := &RunReport{JobID: "job"}
	if p.err != nil {
		report.record(SpotOutcome{Status: OutcomeFailed, Err: p.err})
	}
	return report
}

// fakeTimeline advances a fake clock on every sleep and cancels after a
// fixed number of wake-ups
type fakeTimeline struct {
	now    time.Time
	sleeps []time.Duration
	wakes  int
	cancel context.CancelFunc
}

func (f *fakeTimeline) Now() time.Time { return f.now }

func (f *fakeTimeline) Sleep(ctx context.Context, d time.Duration) error {
	f.sleeps = append(f.sleeps, d)
	if len(f.sleeps) > f.wakes {
		f.cancel()
		return ctx.Err()
	}
	f.now = f.now.Add(d)
	return nil
}

func TestSchedulerRunsAtScheduledHours(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	timeline := &fakeTimeline{
		now:    time.Date(2026, time.October, 15, 20, 30, 0, 0, time.UTC),
		wakes:  3,
		cancel: cancel,
	}
	pass := &countingPass{}

	s := NewScheduler(pass, config.DefaultSchedule(), false)
	s.now = timeline.Now
	s.sleep = timeline.Sleep

	err := s.Run(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 3, pass.runs)
	assert.Equal(t, []time.Duration{
		30 * time.Minute, // 21:00
		2 * time.Hour,    // 23:00
		6 * time.Hour,    // 05:00 next day
		4 * time.Hour,
	}, timeline.sleeps)
}

func TestSchedulerRunOnStart(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	timeline := &fakeTimeline{now: time.Date(2026, time.October, 15, 6, 0, 0, 0, time.UTC), cancel: cancel}
	pass := &countingPass{err: errors.New("spot failed")}

	s := NewScheduler(pass, config.NewSchedule(6, 18), true)
	s.now = timeline.Now
	s.sleep = timeline.Sleep

	err := s.Run(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, pass.runs)
	require.Len(t, timeline.sleeps, 1)
	assert.Equal(t, 4*time.Hour, timeline.sleeps[0])
}

func TestSleepContext(t *testing.T) {
	assert.NoError(t, sleepContext(context.Background(), time.Millisecond))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, sleepContext(ctx, time.Hour), context.Canceled)
}
