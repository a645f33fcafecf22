package spot

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/bbernstein/surftrack/backend-go/internal/models"
	"github.com/rs/zerolog/log"
	"gopkg.in/yaml.v3"
)

type Upserter interface {
	UpsertSpot(ctx context.Context, spot *models.Spot) error
}

type seedFile struct {
	Spots []models.Spot `yaml:"spots"`
}

// ParseSeed decodes a seed document of the form
//
//	spots:
//	  - name: Pipeline
//	    latitude: 21.66
//	    longitude: -158.05
//	    surf_forecast_name: Pipeline_1
func ParseSeed(data []byte) ([]models.Spot, error) {
	var file seedFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parsing spot seed: %w", err)
	}

	seen := make(map[string]bool, len(file.Spots))
	for i := range file.Spots {
		s := &file.Spots[i]
		s.Name = strings.TrimSpace(s.Name)
		if s.Name == "" {
			return nil, fmt.Errorf("spot seed entry %d has no name", i+1)
		}
		if seen[s.Name] {
			return nil, fmt.Errorf("spot %q is listed twice", s.Name)
		}
		seen[s.Name] = true

		if s.SurfForecastName != nil && strings.TrimSpace(*s.SurfForecastName) == "" {
			s.SurfForecastName = nil
		}
	}
	return file.Spots, nil
}

// SeedFromYAML upserts every spot in the file by name and returns how many
// were written.
func SeedFromYAML(ctx context.Context, path string, store Upserter) (int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, fmt.Errorf("reading spot seed %s: %w", path, err)
	}

	spots, err := ParseSeed(data)
	if err != nil {
		return 0, err
	}

	for i := range spots {
		if err := store.UpsertSpot(ctx, &spots[i]); err != nil {
			return i, err
		}
	}

	log.Info().Str("path", path).Int("spots", len(spots)).Msg("Seeded spots")
	return len(spots), nil
}
