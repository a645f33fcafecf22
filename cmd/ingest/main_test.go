package main

import (
	"context"
	"errors"
	"testing"

	"github.com/aws/aws-lambda-go/events"
	"github.com/bbernstein/surftrack/backend-go/internal/ingest"
	"github.com/bbernstein/surftrack/backend-go/internal/models"
	"github.com/bbernstein/surftrack/backend-go/internal/scraper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubSpots []models.Spot

func (s stubSpots) ListSpots(ctx context.Context) ([]models.Spot, error) { return s, nil }

type stubWriter struct{ err error }

func (w stubWriter) SaveSpotData(ctx context.Context, spotID uint, forecasts []models.ForecastRecord, tides []models.TideEvent) error {
	return w.err
}

func name(v string) *string { return &v }

func reportFor(t *testing.T, writerErr error, results map[string]scraper.Status) *ingest.RunReport {
	t.Helper()
	var spots stubSpots
	id := uint(1)
	for n := range results {
		spots = append(spots, models.Spot{ID: id, Name: n, SurfForecastName: name(n)})
		id++
	}
	s := ingest.PageScraperFunc(func(ctx context.Context, forecastName string) scraper.Result {
		status := results[forecastName]
		r := scraper.Result{Status: status}
		if status == scraper.StatusFailed {
			r.Err = errors.New("timeout")
		}
		return r
	})
	return ingest.NewRunner(spots, s, stubWriter{err: writerErr}).RunOnce(context.Background())
}

func TestSummarize(t *testing.T) {
	summary, err := summarize(reportFor(t, nil, map[string]scraper.Status{"A": scraper.StatusOK, "B": scraper.StatusFailed}))
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Saved)
	assert.Equal(t, 1, summary.Failed)
	assert.NotEmpty(t, summary.JobID)

	summary, err = summarize(reportFor(t, nil, map[string]scraper.Status{"A": scraper.StatusEmpty}))
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Empty)

	summary, err = summarize(reportFor(t, errors.New("locked"), map[string]scraper.Status{"A": scraper.StatusOK}))
	assert.ErrorContains(t, err, "saved nothing")
	assert.Equal(t, 1, summary.Failed)
}

func TestHandleEventUsesRunner(t *testing.T) {
	setupOnce.Do(func() {})
	runner = ingest.NewRunner(stubSpots{{ID: 1, Name: "Reef"}}, ingest.PageScraperFunc(func(ctx context.Context, forecastName string) scraper.Result {
		t.Fatal("spot without a forecast name must not be scraped")
		return scraper.Result{}
	}), stubWriter{})

	summary, err := handleEvent(context.Background(), events.CloudWatchEvent{Source: "aws.events", ID: "evt-1"})
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Skipped)
}
