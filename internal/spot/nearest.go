package spot

import (
	"context"
	"math"
	"sort"

	"github.com/bbernstein/surftrack/backend-go/internal/models"
)

// NearbySpot is a spot with its great-circle distance from a query point
type NearbySpot struct {
	models.Spot
	DistanceKm float64 `json:"distanceKm"`
}

// Nearest returns up to limit spots ordered by distance from lat/lon.
// Spots without coordinates are left out.
func (r *Registry) Nearest(ctx context.Context, lat, lon float64, limit int) ([]NearbySpot, error) {
	spots, err := r.ListSpots(ctx)
	if err != nil {
		return nil, err
	}

	nearby := make([]NearbySpot, 0, len(spots))
	for _, s := range spots {
		if s.Latitude == nil || s.Longitude == nil {
			continue
		}
		nearby = append(nearby, NearbySpot{
			Spot:       s,
			DistanceKm: calculateDistance(lat, lon, *s.Latitude, *s.Longitude),
		})
	}

	sort.SliceStable(nearby, func(i, j int) bool {
		return nearby[i].DistanceKm < nearby[j].DistanceKm
	})

	if limit > 0 && len(nearby) > limit {
		nearby = nearby[:limit]
	}
	return nearby, nil
}

func calculateDistance(lat1, lon1, lat2, lon2 float64) float64 {
	const earthRadius = 6371.0 // km

	dLat := toRadians(lat2 - lat1)
	dLon := toRadians(lon2 - lon1)
	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(toRadians(lat1))*math.Cos(toRadians(lat2))*
			math.Sin(dLon/2)*math.Sin(dLon/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
	return earthRadius * c
}

func toRadians(deg float64) float64 {
	return deg * math.Pi / 180
}
