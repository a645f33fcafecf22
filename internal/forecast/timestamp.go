package forecast

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
)

// MonthRolloverThresholdDays is how far a scraped day-of-month may sit below
// today's before it is read as belonging to next month. The forecast window is
// about six days, so anything this far "behind" must have wrapped.
const MonthRolloverThresholdDays = 15

// Resolver turns the table's "<DayName> <DayNumber> <HH:MM>" fragments into
// absolute times. The page never shows month or year, so both are inferred
// from Now.
type Resolver struct {
	Now func() time.Time
}

// NewResolver returns a Resolver backed by the wall clock
func NewResolver() *Resolver {
	return &Resolver{Now: time.Now}
}

// Resolve parses text such as "Sun 1 08:00". The result is naive local time
// carried in UTC. It returns false instead of an error for anything unparsable.
func (r *Resolver) Resolve(text string) (time.Time, bool) {
	ts, err := r.resolve(text)
	if err != nil {
		log.Info().
			Str("time_str", text).
			Err(err).
			Msg("Timestamp parse failed, row will be skipped")
		return time.Time{}, false
	}
	return ts, true
}

func (r *Resolver) resolve(text string) (time.Time, error) {
	parts := strings.Fields(text)
	if len(parts) < 3 {
		return time.Time{}, fmt.Errorf("expected \"<day> <date> <HH:MM>\", got %d fields", len(parts))
	}

	day, err := strconv.Atoi(parts[1])
	if err != nil {
		return time.Time{}, fmt.Errorf("parsing day number %q: %w", parts[1], err)
	}

	clock := strings.Split(parts[2], ":")
	if len(clock) < 2 {
		return time.Time{}, fmt.Errorf("malformed time %q", parts[2])
	}
	hour, err := strconv.Atoi(clock[0])
	if err != nil {
		return time.Time{}, fmt.Errorf("parsing hour %q: %w", clock[0], err)
	}
	minute, err := strconv.Atoi(clock[1])
	if err != nil {
		return time.Time{}, fmt.Errorf("parsing minute %q: %w", clock[1], err)
	}
	if hour < 0 || hour > 23 || minute < 0 || minute > 59 {
		return time.Time{}, fmt.Errorf("time out of range: %02d:%02d", hour, minute)
	}

	now := r.now()
	year, month := now.Year(), now.Month()
	if day < now.Day() && now.Day()-day > MonthRolloverThresholdDays {
		month++
		if month > time.December {
			month = time.January
			year++
		}
	}

	if day < 1 || day > daysIn(year, month) {
		return time.Time{}, fmt.Errorf("day %d out of range for %s %d", day, month, year)
	}

	return time.Date(year, month, day, hour, minute, 0, 0, time.UTC), nil
}

func (r *Resolver) now() time.Time {
	if r == nil || r.Now == nil {
		return time.Now()
	}
	return r.Now()
}

func daysIn(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

// To24Hour converts "6PM" or "6:00PM" to "18:00". Text matching neither
// layout is returned unchanged so the later Resolve call rejects it.
func To24Hour(text string) string {
	if text == "" {
		return ""
	}
	cleaned := strings.ToUpper(strings.TrimSpace(text))
	for _, layout := range []string{"3:04PM", "3PM"} {
		if t, err := time.Parse(layout, cleaned); err == nil {
			return t.Format("15:04")
		}
	}
	return text
}
