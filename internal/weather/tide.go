package weather

import (
	"context"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/bbernstein/surftrack/backend-go/internal/models"
)

// TideSearchWindow is how far either side of a session the interpolator looks
// for bracketing events. Highs and lows alternate roughly every six hours.
const TideSearchWindow = 12 * time.Hour

type TideReader interface {
	TidesBetween(ctx context.Context, spotID uint, start, end time.Time) ([]models.TideEvent, error)
}

// TideLevel is the estimated water level at an instant together with the
// heights of the two events around it
type TideLevel struct {
	Height float64
	Low    float64
	High   float64
}

type TideInterpolator struct {
	tides TideReader
}

func NewTideInterpolator(tides TideReader) *TideInterpolator {
	return &TideInterpolator{tides: tides}
}

// Interpolate estimates the tide height at the given instant with a cosine
// curve between the surrounding events. It returns nil when the instant is not
// bracketed by stored events.
func (ti *TideInterpolator) Interpolate(ctx context.Context, spotID uint, at time.Time) (*TideLevel, error) {
	events, err := ti.tides.TidesBetween(ctx, spotID, at.Add(-TideSearchWindow), at.Add(TideSearchWindow))
	if err != nil {
		return nil, fmt.Errorf("loading tides: %w", err)
	}
	if len(events) < 2 {
		return nil, nil
	}

	sort.SliceStable(events, func(i, j int) bool {
		return events[i].Timestamp.Before(events[j].Timestamp)
	})

	prev, next, ok := bracket(events, at)
	if !ok {
		return nil, nil
	}

	return &TideLevel{
		Height: roundTo(cosineInterpolate(prev, next, at), 2),
		Low:    math.Min(prev.Height, next.Height),
		High:   math.Max(prev.Height, next.Height),
	}, nil
}

// bracket finds the first adjacent pair with prev <= at <= next in events
// sorted by time
func bracket(events []models.TideEvent, at time.Time) (models.TideEvent, models.TideEvent, bool) {
	n := len(events)
	// first event at or after the instant
	idx := sort.Search(n, func(i int) bool {
		return !events[i].Timestamp.Before(at)
	})

	switch {
	case idx == n:
		return models.TideEvent{}, models.TideEvent{}, false
	case idx == 0:
		if !events[0].Timestamp.Equal(at) {
			return models.TideEvent{}, models.TideEvent{}, false
		}
		return events[0], events[1], true
	default:
		return events[idx-1], events[idx], true
	}
}

func cosineInterpolate(prev, next models.TideEvent, at time.Time) float64 {
	span := next.Timestamp.Sub(prev.Timestamp)
	if span == 0 {
		return prev.Height
	}
	fraction := float64(at.Sub(prev.Timestamp)) / float64(span)
	eased := (1 - math.Cos(math.Pi*fraction)) / 2
	return prev.Height + (next.Height-prev.Height)*eased
}

func roundTo(value float64, places int) float64 {
	scale := math.Pow(10, float64(places))
	return math.Round(value*scale) / scale
}
