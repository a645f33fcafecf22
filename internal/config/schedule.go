package config

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
)

const (
	DefaultScheduleStartHour = 5
	DefaultScheduleEndHour   = 23

	// ScheduleStepHours is the fixed gap between ingestion runs
	ScheduleStepHours = 4
)

// Schedule holds the hours of day (0-23, ascending) at which ingestion runs.
// It is built once at start-up and handed to the scheduler.
type Schedule struct {
	StartHour int
	EndHour   int
	Hours     []int
}

// DefaultSchedule runs every 4 hours from 05:00 through 23:00
func DefaultSchedule() Schedule {
	return NewSchedule(DefaultScheduleStartHour, DefaultScheduleEndHour)
}

// NewSchedule builds the run hours between start and end inclusive. The end hour
// is always included even when it is off-step, and an end before the start wraps
// past midnight. Out of range bounds fall back to the defaults.
func NewSchedule(start, end int) Schedule {
	if start < 0 || start > 23 || end < 0 || end > 23 {
		log.Warn().
			Int("start_hour", start).
			Int("end_hour", end).
			Msg("Schedule hours must be between 0 and 23, using defaults")
		start, end = DefaultScheduleStartHour, DefaultScheduleEndHour
	}

	limit := end
	if start > end {
		limit = end + 24
	}

	seen := make(map[int]bool)
	var hours []int
	for current := start; current <= limit; current += ScheduleStepHours {
		hour := current % 24
		if !seen[hour] {
			seen[hour] = true
			hours = append(hours, hour)
		}
	}
	if !seen[end] {
		hours = append(hours, end)
	}
	sort.Ints(hours)

	return Schedule{StartHour: start, EndHour: end, Hours: hours}
}

// Next returns the first scheduled run strictly after t, on the hour, in t's location
func (s Schedule) Next(t time.Time) time.Time {
	if len(s.Hours) == 0 {
		return t.Add(ScheduleStepHours * time.Hour)
	}

	day := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
	for _, hour := range s.Hours {
		candidate := day.Add(time.Duration(hour) * time.Hour)
		if candidate.After(t) {
			return candidate
		}
	}
	return day.AddDate(0, 0, 1).Add(time.Duration(s.Hours[0]) * time.Hour)
}

// String formats the run hours as "05:00, 09:00, ..."
func (s Schedule) String() string {
	parts := make([]string, len(s.Hours))
	for i, hour := range s.Hours {
		parts[i] = fmt.Sprintf("%02d:00", hour)
	}
	return strings.Join(parts, ", ")
}
