package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bbernstein/surftrack/backend-go/internal/models"
	"github.com/rs/zerolog/log"
	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"
)

const insertBatchSize = 100

var (
	forecastConflictColumns = []clause.Column{{Name: "spot_id"}, {Name: "timestamp"}}
	forecastUpdateColumns   = []string{
		"wave_height", "wave_direction", "period", "energy",
		"wind_speed", "wind_direction", "rating", "updated_at",
	}
	tideConflictColumns = []clause.Column{{Name: "spot_id"}, {Name: "timestamp"}, {Name: "tide_type"}}
)

// Open connects to a relational database. driver is one of sqlite, postgres or mysql.
func Open(driver, dsn string) (*gorm.DB, error) {
	var dialector gorm.Dialector
	switch driver {
	case "sqlite", "sqlite3":
		dialector = sqlite.Open(dsn)
	case "postgres", "postgresql":
		dialector = postgres.Open(dsn)
	case "mysql":
		dialector = mysql.Open(dsn)
	default:
		return nil, fmt.Errorf("unsupported database driver %q", driver)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
		NowFunc: func() time.Time {
			return time.Now().UTC()
		},
	})
	if err != nil {
		return nil, fmt.Errorf("opening %s database: %w", driver, err)
	}

	log.Debug().Str("driver", driver).Msg("Opened database")
	return db, nil
}

// GormStore implements ForecastStore, SpotStore and SessionStore on any
// database GORM supports. Upserts use the dialect's native conflict clause.
type GormStore struct {
	db  *gorm.DB
	now func() time.Time
}

func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{
		db: db,
		now: func() time.Time {
			return time.Now().UTC()
		},
	}
}

// AutoMigrate creates the tables for local runs and tests. Deployed schemas
// are owned by the application's migration tooling.
func (s *GormStore) AutoMigrate(ctx context.Context) error {
	return s.db.WithContext(ctx).AutoMigrate(
		&models.Spot{},
		&models.ForecastRecord{},
		&models.TideEvent{},
		&models.SurfSession{},
	)
}

func (s *GormStore) SaveSpotData(ctx context.Context, spotID uint, forecasts []models.ForecastRecord, tides []models.TideEvent) error {
	forecasts, tides = stamp(spotID, s.now(), forecasts, tides)
	if err := validate(forecasts, tides); err != nil {
		return fmt.Errorf("invalid row for spot %d: %w", spotID, err)
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if len(forecasts) > 0 {
			result := tx.Clauses(clause.OnConflict{
				Columns:   forecastConflictColumns,
				DoUpdates: clause.AssignmentColumns(forecastUpdateColumns),
			}).CreateInBatches(&forecasts, insertBatchSize)
			if result.Error != nil {
				return fmt.Errorf("upserting forecasts: %w", result.Error)
			}
		}

		if len(tides) > 0 {
			result := tx.Clauses(clause.OnConflict{
				Columns:   tideConflictColumns,
				DoUpdates: clause.AssignmentColumns([]string{"height"}),
			}).CreateInBatches(&tides, insertBatchSize)
			if result.Error != nil {
				return fmt.Errorf("upserting tides: %w", result.Error)
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("saving data for spot %d: %w", spotID, err)
	}

	log.Debug().
		Uint("spot_id", spotID).
		Int("forecasts", len(forecasts)).
		Int("tides", len(tides)).
		Msg("Upserted spot data")
	return nil
}

func (s *GormStore) ForecastsBetween(ctx context.Context, spotID uint, start, end time.Time) ([]models.ForecastRecord, error) {
	var rows []models.ForecastRecord
	err := s.db.WithContext(ctx).
		Where("spot_id = ? AND timestamp >= ? AND timestamp <= ?", spotID, start.UTC(), end.UTC()).
		Order("timestamp").
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("querying forecasts: %w", err)
	}
	return rows, nil
}

func (s *GormStore) ClosestForecasts(ctx context.Context, spotID uint, start, end time.Time) ([]models.ForecastRecord, error) {
	var before, after []models.ForecastRecord

	err := s.db.WithContext(ctx).
		Where("spot_id = ? AND timestamp <= ?", spotID, start.UTC()).
		Order("timestamp DESC").
		Limit(1).
		Find(&before).Error
	if err != nil {
		return nil, fmt.Errorf("querying forecast before window: %w", err)
	}

	err = s.db.WithContext(ctx).
		Where("spot_id = ? AND timestamp >= ?", spotID, end.UTC()).
		Order("timestamp").
		Limit(1).
		Find(&after).Error
	if err != nil {
		return nil, fmt.Errorf("querying forecast after window: %w", err)
	}

	return append(before, after...), nil
}

func (s *GormStore) TidesBetween(ctx context.Context, spotID uint, start, end time.Time) ([]models.TideEvent, error) {
	var rows []models.TideEvent
	err := s.db.WithContext(ctx).
		Where("spot_id = ? AND timestamp >= ? AND timestamp <= ?", spotID, start.UTC(), end.UTC()).
		Order("timestamp").
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("querying tides: %w", err)
	}
	return rows, nil
}

func (s *GormStore) ListSpots(ctx context.Context) ([]models.Spot, error) {
	var spots []models.Spot
	if err := s.db.WithContext(ctx).Order("id").Find(&spots).Error; err != nil {
		return nil, fmt.Errorf("listing spots: %w", err)
	}
	return spots, nil
}

func (s *GormStore) GetSpot(ctx context.Context, id uint) (*models.Spot, error) {
	var spot models.Spot
	err := s.db.WithContext(ctx).First(&spot, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrSpotNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("getting spot %d: %w", id, err)
	}
	return &spot, nil
}

// UpsertSpot inserts the spot or updates the existing one with the same name
func (s *GormStore) UpsertSpot(ctx context.Context, spot *models.Spot) error {
	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "name"}},
		DoUpdates: clause.AssignmentColumns([]string{"latitude", "longitude", "surf_forecast_name"}),
	}).Create(spot).Error
	if err != nil {
		return fmt.Errorf("upserting spot %q: %w", spot.Name, err)
	}
	return nil
}

func (s *GormStore) CreateSession(ctx context.Context, session *models.SurfSession) error {
	if err := s.db.WithContext(ctx).Create(session).Error; err != nil {
		return fmt.Errorf("creating session: %w", err)
	}
	return nil
}

func (s *GormStore) GetSession(ctx context.Context, id uint) (*models.SurfSession, error) {
	var session models.SurfSession
	err := s.db.WithContext(ctx).First(&session, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrSessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("getting session %d: %w", id, err)
	}
	return &session, nil
}

// SaveSession writes every column, including nil snapshot fields
func (s *GormStore) SaveSession(ctx context.Context, session *models.SurfSession) error {
	if err := s.db.WithContext(ctx).Save(session).Error; err != nil {
		return fmt.Errorf("saving session %d: %w", session.ID, err)
	}
	return nil
}
