package store

import (
	"context"
	"errors"
	"time"

	"github.com/bbernstein/surftrack/backend-go/internal/models"
)

var (
	ErrSpotNotFound    = errors.New("spot not found")
	ErrSessionNotFound = errors.New("surf session not found")
)

// ForecastStore persists scraped rows and answers the time-window queries the
// session weather matcher needs. Timestamps are naive wall times carried in UTC.
type ForecastStore interface {
	// SaveSpotData upserts every forecast and tide of one spot atomically
	SaveSpotData(ctx context.Context, spotID uint, forecasts []models.ForecastRecord, tides []models.TideEvent) error
	// ForecastsBetween returns rows with start <= timestamp <= end, oldest first
	ForecastsBetween(ctx context.Context, spotID uint, start, end time.Time) ([]models.ForecastRecord, error)
	// ClosestForecasts returns at most two rows: the latest at or before start
	// and the earliest at or after end
	ClosestForecasts(ctx context.Context, spotID uint, start, end time.Time) ([]models.ForecastRecord, error)
	// TidesBetween returns events with start <= timestamp <= end, oldest first
	TidesBetween(ctx context.Context, spotID uint, start, end time.Time) ([]models.TideEvent, error)
}

type SpotStore interface {
	ListSpots(ctx context.Context) ([]models.Spot, error)
	GetSpot(ctx context.Context, id uint) (*models.Spot, error)
	UpsertSpot(ctx context.Context, spot *models.Spot) error
}

type SessionStore interface {
	CreateSession(ctx context.Context, session *models.SurfSession) error
	GetSession(ctx context.Context, id uint) (*models.SurfSession, error)
	SaveSession(ctx context.Context, session *models.SurfSession) error
}

func validate(forecasts []models.ForecastRecord, tides []models.TideEvent) error {
	for i := range forecasts {
		if err := forecasts[i].Validate(); err != nil {
			return err
		}
	}
	for i := range tides {
		if err := tides[i].Validate(); err != nil {
			return err
		}
	}
	return nil
}

// stamp returns copies of the records carrying spotID and a fresh update
// time. Rows repeating a storage key collapse into the last one, since a single
// upsert statement may not touch the same row twice.
func stamp(spotID uint, now time.Time, forecasts []models.ForecastRecord, tides []models.TideEvent) ([]models.ForecastRecord, []models.TideEvent) {
	fc := make([]models.ForecastRecord, 0, len(forecasts))
	seenForecast := make(map[time.Time]int, len(forecasts))
	for _, f := range forecasts {
		f.ID = 0
		f.SpotID = spotID
		f.Timestamp = f.Timestamp.UTC()
		f.UpdatedAt = now
		if i, ok := seenForecast[f.Timestamp]; ok {
			fc[i] = f
			continue
		}
		seenForecast[f.Timestamp] = len(fc)
		fc = append(fc, f)
	}

	type tideKey struct {
		ts       time.Time
		tideType models.TideType
	}
	td := make([]models.TideEvent, 0, len(tides))
	seenTide := make(map[tideKey]int, len(tides))
	for _, t := range tides {
		t.ID = 0
		t.SpotID = spotID
		t.Timestamp = t.Timestamp.UTC()
		key := tideKey{ts: t.Timestamp, tideType: t.Type}
		if i, ok := seenTide[key]; ok {
			td[i] = t
			continue
		}
		seenTide[key] = len(td)
		td = append(td, t)
	}
	return fc, td
}
