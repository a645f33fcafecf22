package models

import (
	"fmt"
	"time"
)

// ForecastRecord is one hourly wave/wind observation for a spot.
// (SpotID, Timestamp) is unique; re-ingesting a page overwrites the measured fields.
type ForecastRecord struct {
	ID            uint      `gorm:"primaryKey" json:"-"`
	SpotID        uint      `gorm:"column:spot_id;not null;uniqueIndex:uq_surf_forecast_spot_timestamp,priority:1" json:"spotId"`
	Timestamp     time.Time `gorm:"column:timestamp;not null;uniqueIndex:uq_surf_forecast_spot_timestamp,priority:2;index" json:"timestamp"`
	WaveHeight    *float64  `gorm:"column:wave_height" json:"waveHeight"`
	WaveDirection *string   `gorm:"column:wave_direction" json:"waveDirection"`
	Period        *float64  `gorm:"column:period" json:"period"`
	Energy        *float64  `gorm:"column:energy" json:"energy"`
	WindSpeed     *float64  `gorm:"column:wind_speed" json:"windSpeed"`
	WindDirection *string   `gorm:"column:wind_direction" json:"windDirection"`
	Rating        *int      `gorm:"column:rating" json:"rating"`
	UpdatedAt     time.Time `gorm:"column:updated_at" json:"updatedAt"`
}

func (ForecastRecord) TableName() string {
	return "surf_forecasts"
}

// Validate checks the fields the storage key depends on
func (r *ForecastRecord) Validate() error {
	if r.SpotID == 0 {
		return fmt.Errorf("spot ID is required")
	}
	if r.Timestamp.IsZero() {
		return fmt.Errorf("timestamp is required")
	}
	if r.Rating != nil && *r.Rating < 0 {
		return fmt.Errorf("invalid rating: %d", *r.Rating)
	}
	return nil
}
