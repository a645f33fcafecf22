package store

import (
	"context"
	"fmt"

	"github.com/bbernstein/surftrack/backend-go/internal/config"
	"github.com/rs/zerolog/log"
)

const (
	BackendGorm   = "gorm"
	BackendDynamo = "dynamo"
)

// Backends is the storage a binary works against. Spots and sessions always
// live in the relational database; forecasts and tides live there too unless
// the DynamoDB backend is selected.
type Backends struct {
	Relational *GormStore
	Forecasts  ForecastStore
}

// OpenBackends connects the stores selected by cfg. Local and development
// environments get their relational tables created on start.
func OpenBackends(ctx context.Context, cfg *config.Config) (*Backends, error) {
	db, err := Open(cfg.DatabaseDriver, cfg.DatabaseURL)
	if err != nil {
		return nil, err
	}
	relational := NewGormStore(db)

	if cfg.Environment == "local" || cfg.Environment == "development" {
		if err := relational.AutoMigrate(ctx); err != nil {
			return nil, fmt.Errorf("migrating local database: %w", err)
		}
	}

	backends := &Backends{Relational: relational, Forecasts: relational}

	switch cfg.StoreBackend {
	case "", BackendGorm:
	case BackendDynamo:
		client, err := NewDynamoClient(ctx)
		if err != nil {
			return nil, fmt.Errorf("creating DynamoDB client: %w", err)
		}
		backends.Forecasts = NewDynamoStore(client, config.GetStoreConfig())
	default:
		return nil, fmt.Errorf("unsupported store backend %q", cfg.StoreBackend)
	}

	log.Info().
		Str("database", cfg.DatabaseDriver).
		Str("forecast_backend", cfg.StoreBackend).
		Msg("Storage ready")
	return backends, nil
}
