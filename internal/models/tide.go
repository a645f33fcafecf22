package models

import (
	"fmt"
	"time"
)

type TideType string

const (
	TideTypeHigh TideType = "HIGH"
	TideTypeLow  TideType = "LOW"
)

// TideEvent represents a scraped high or low tide
type TideEvent struct {
	ID        uint      `gorm:"primaryKey" json:"-"`
	SpotID    uint      `gorm:"column:spot_id;not null;uniqueIndex:uq_tide_spot_timestamp_type,priority:1" json:"spotId"`
	Timestamp time.Time `gorm:"column:timestamp;not null;uniqueIndex:uq_tide_spot_timestamp_type,priority:2;index" json:"timestamp"`
	Height    float64   `gorm:"column:height;not null" json:"height"`
	Type      TideType  `gorm:"column:tide_type;not null;uniqueIndex:uq_tide_spot_timestamp_type,priority:3" json:"type"`
}

func (TideEvent) TableName() string {
	return "tides"
}

// Validate checks if a TideEvent's fields are valid
func (e *TideEvent) Validate() error {
	if e.SpotID == 0 {
		return fmt.Errorf("spot ID is required")
	}
	if e.Timestamp.IsZero() {
		return fmt.Errorf("timestamp is required")
	}
	switch e.Type {
	case TideTypeHigh, TideTypeLow:
	default:
		return fmt.Errorf("invalid tide type: %s", e.Type)
	}
	return nil
}
