package models

// Spot is a named surf location. SurfForecastName is the page identifier on the
// forecast site; spots without one are not scraped.
type Spot struct {
	ID               uint     `gorm:"primaryKey" json:"id" yaml:"-"`
	Name             string   `gorm:"column:name;not null;uniqueIndex" json:"name" yaml:"name"`
	Latitude         *float64 `gorm:"column:latitude" json:"latitude,omitempty" yaml:"latitude"`
	Longitude        *float64 `gorm:"column:longitude" json:"longitude,omitempty" yaml:"longitude"`
	SurfForecastName *string  `gorm:"column:surf_forecast_name" json:"surfForecastName,omitempty" yaml:"surf_forecast_name"`
}

func (Spot) TableName() string {
	return "spots"
}

// ForecastName returns the forecast page identifier, or "" when none is configured
func (s Spot) ForecastName() string {
	if s.SurfForecastName == nil {
		return ""
	}
	return *s.SurfForecastName
}
