package spot

import (
	"context"
	"fmt"

	"github.com/bbernstein/surftrack/backend-go/internal/models"
)

// Source is where spots live: the relational store, or the cache in front of it
type Source interface {
	ListSpots(ctx context.Context) ([]models.Spot, error)
	GetSpot(ctx context.Context, id uint) (*models.Spot, error)
}

// Registry answers which spots are tracked
type Registry struct {
	source Source
}

func NewRegistry(source Source) *Registry {
	return &Registry{source: source}
}

func (r *Registry) ListSpots(ctx context.Context) ([]models.Spot, error) {
	spots, err := r.source.ListSpots(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing spots: %w", err)
	}
	return spots, nil
}

// GetSpot wraps lookup errors; store.ErrSpotNotFound stays matchable with errors.Is
func (r *Registry) GetSpot(ctx context.Context, id uint) (*models.Spot, error) {
	spot, err := r.source.GetSpot(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("spot %d: %w", id, err)
	}
	return spot, nil
}
