package weather

import (
	"math"
	"strings"

	"github.com/bbernstein/surftrack/backend-go/internal/models"
)

// aggregate averages the measured fields of rows. Null values are ignored,
// and a field stays nil when no row carries it.
func aggregate(rows []models.ForecastRecord) models.SessionWeather {
	var waveHeights, periods, windSpeeds, energies, ratings []float64
	var waveDirs, windDirs []*string

	for _, r := range rows {
		waveHeights = appendPresent(waveHeights, r.WaveHeight)
		periods = appendPresent(periods, r.Period)
		windSpeeds = appendPresent(windSpeeds, r.WindSpeed)
		energies = appendPresent(energies, r.Energy)
		if r.Rating != nil {
			ratings = append(ratings, float64(*r.Rating))
		}
		waveDirs = append(waveDirs, r.WaveDirection)
		windDirs = append(windDirs, r.WindDirection)
	}

	w := models.SessionWeather{
		WaveHeightM:  mean(waveHeights),
		WavePeriod:   mean(periods),
		WindSpeedKmh: mean(windSpeeds),
		Energy:       mean(energies),
		WaveDir:      dominantDirection(waveDirs),
		WindDir:      dominantDirection(windDirs),
	}
	if avg := mean(ratings); avg != nil {
		// half to even: 2.5 rates 2, 3.5 rates 4
		rating := int(math.RoundToEven(*avg))
		w.Rating = &rating
	}
	return w
}

func appendPresent(values []float64, v *float64) []float64 {
	if v == nil {
		return values
	}
	return append(values, *v)
}

func mean(values []float64) *float64 {
	if len(values) == 0 {
		return nil
	}
	var sum float64
	for _, v := range values {
		sum += v
	}
	avg := sum / float64(len(values))
	return &avg
}

// dominantDirection returns the most frequent direction token after trimming
// and upper-casing. Ties go to the token seen first.
func dominantDirection(values []*string) *string {
	counts := make(map[string]int)
	var order []string
	for _, v := range values {
		token := normalizeDirection(v)
		if token == "" {
			continue
		}
		if counts[token] == 0 {
			order = append(order, token)
		}
		counts[token]++
	}

	if len(order) == 0 {
		return nil
	}
	best := order[0]
	for _, token := range order[1:] {
		if counts[token] > counts[best] {
			best = token
		}
	}
	return &best
}

func normalizeDirection(v *string) string {
	if v == nil {
		return ""
	}
	return strings.ToUpper(strings.TrimSpace(*v))
}
