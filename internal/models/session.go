package models

import "time"

// SessionWeather is the point-in-time weather snapshot attached to a surf session.
// Every field is optional: a session logged before any scrape simply has none.
type SessionWeather struct {
	WaveHeightM  *float64 `gorm:"column:wave_height_m" json:"waveHeightM,omitempty"`
	WavePeriod   *float64 `gorm:"column:wave_period" json:"wavePeriod,omitempty"`
	WaveDir      *string  `gorm:"column:wave_dir" json:"waveDir,omitempty"`
	WindSpeedKmh *float64 `gorm:"column:wind_speed_kmh" json:"windSpeedKmh,omitempty"`
	WindDir      *string  `gorm:"column:wind_dir" json:"windDir,omitempty"`
	Energy       *float64 `gorm:"column:energy" json:"energy,omitempty"`
	Rating       *int     `gorm:"column:rating" json:"rating,omitempty"`
	TideHeightM  *float64 `gorm:"column:tide_height_m" json:"tideHeightM,omitempty"`
	TideLowM     *float64 `gorm:"column:tide_low_m" json:"tideLowM,omitempty"`
	TideHighM    *float64 `gorm:"column:tide_high_m" json:"tideHighM,omitempty"`
}

// IsEmpty reports whether no weather or tide field is set
func (w SessionWeather) IsEmpty() bool {
	return w.WaveHeightM == nil && w.WavePeriod == nil && w.WaveDir == nil &&
		w.WindSpeedKmh == nil && w.WindDir == nil && w.Energy == nil && w.Rating == nil &&
		w.TideHeightM == nil && w.TideLowM == nil && w.TideHighM == nil
}

// SurfSession is the CRUD-owned session record; only the fields the weather
// snapshot depends on are modelled here.
type SurfSession struct {
	ID              uint           `gorm:"primaryKey" json:"id"`
	SpotID          *uint          `gorm:"column:spot_id;index" json:"spotId,omitempty"`
	Start           time.Time      `gorm:"column:datetime;not null" json:"datetime"`
	DurationMinutes int            `gorm:"column:duration_minutes" json:"durationMinutes"`
	Notes           string         `gorm:"column:notes" json:"notes,omitempty"`
	Weather         SessionWeather `gorm:"embedded" json:"weather"`
	CreatedAt       time.Time      `json:"createdAt"`
	UpdatedAt       time.Time      `json:"updatedAt"`
}

func (SurfSession) TableName() string {
	return "surf_sessions"
}

// Duration returns the session length
func (s SurfSession) Duration() time.Duration {
	return time.Duration(s.DurationMinutes) * time.Minute
}
