package weather

import (
	"context"
	"fmt"
	"time"

	"github.com/bbernstein/surftrack/backend-go/internal/models"
	"github.com/rs/zerolog/log"
)

const DefaultMaxOffsetHours = 6

type ForecastReader interface {
	ForecastsBetween(ctx context.Context, spotID uint, start, end time.Time) ([]models.ForecastRecord, error)
	ClosestForecasts(ctx context.Context, spotID uint, start, end time.Time) ([]models.ForecastRecord, error)
}

// Reader is everything the matcher reads from storage
type Reader interface {
	ForecastReader
	TideReader
}

// Matcher builds the weather snapshot for a session window
type Matcher struct {
	forecasts        ForecastReader
	tides            *TideInterpolator
	defaultMaxOffset int
}

// NewMatcher returns a matcher reading forecasts and tides from store.
// A non-positive defaultMaxOffsetHours falls back to DefaultMaxOffsetHours.
func NewMatcher(store Reader, defaultMaxOffsetHours int) *Matcher {
	if defaultMaxOffsetHours <= 0 {
		defaultMaxOffsetHours = DefaultMaxOffsetHours
	}
	return &Matcher{
		forecasts:        store,
		tides:            NewTideInterpolator(store),
		defaultMaxOffset: defaultMaxOffsetHours,
	}
}

// Match averages the forecasts inside [start, start+duration]. With none in
// the window it uses the single closest row if it is within maxOffsetHours,
// and otherwise returns nil. The tide at start is merged in whenever forecast
// data was found. Errors are reserved for storage failures.
func (m *Matcher) Match(ctx context.Context, spotID uint, start time.Time, duration time.Duration, maxOffsetHours int) (*models.SessionWeather, error) {
	if maxOffsetHours <= 0 {
		maxOffsetHours = m.defaultMaxOffset
	}
	end := start.Add(duration)

	rows, err := m.forecasts.ForecastsBetween(ctx, spotID, start, end)
	if err != nil {
		return nil, fmt.Errorf("loading forecasts for spot %d: %w", spotID, err)
	}

	if len(rows) == 0 {
		candidates, err := m.forecasts.ClosestForecasts(ctx, spotID, start, end)
		if err != nil {
			return nil, fmt.Errorf("loading nearest forecasts for spot %d: %w", spotID, err)
		}
		closest, distance, ok := nearest(candidates, start, end)
		if !ok {
			log.Debug().Uint("spot_id", spotID).Msg("No forecasts stored for spot")
			return nil, nil
		}
		if distance > float64(maxOffsetHours) {
			log.Debug().
				Uint("spot_id", spotID).
				Float64("distance_hours", distance).
				Int("max_offset_hours", maxOffsetHours).
				Msg("Closest forecast too far from session")
			return nil, nil
		}
		rows = []models.ForecastRecord{closest}
	}

	weather := aggregate(rows)

	tide, err := m.tides.Interpolate(ctx, spotID, start)
	if err != nil {
		return nil, err
	}
	if tide != nil {
		height, low, high := tide.Height, tide.Low, tide.High
		weather.TideHeightM = &height
		weather.TideLowM = &low
		weather.TideHighM = &high
	}

	if weather.IsEmpty() {
		return nil, nil
	}
	return &weather, nil
}

// nearest picks the row closest to the window. Distance is zero inside the
// window, otherwise hours to the nearer edge. Ties keep the earlier candidate.
func nearest(candidates []models.ForecastRecord, start, end time.Time) (models.ForecastRecord, float64, bool) {
	if len(candidates) == 0 {
		return models.ForecastRecord{}, 0, false
	}

	best := candidates[0]
	bestDistance := distanceToWindow(best.Timestamp, start, end)
	for _, c := range candidates[1:] {
		if d := distanceToWindow(c.Timestamp, start, end); d < bestDistance {
			best, bestDistance = c, d
		}
	}
	return best, bestDistance, true
}

func distanceToWindow(ts, start, end time.Time) float64 {
	if !ts.Before(start) && !ts.After(end) {
		return 0
	}
	toStart := ts.Sub(start).Abs()
	toEnd := ts.Sub(end).Abs()
	return min(toStart, toEnd).Hours()
}
