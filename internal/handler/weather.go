package handler

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/aws/aws-lambda-go/events"
	"github.com/bbernstein/surftrack/backend-go/internal/api"
	"github.com/bbernstein/surftrack/backend-go/internal/models"
	"github.com/bbernstein/surftrack/backend-go/internal/store"
	"github.com/rs/zerolog/log"
)

type SpotGetter interface {
	GetSpot(ctx context.Context, id uint) (*models.Spot, error)
}

type WeatherMatcher interface {
	Match(ctx context.Context, spotID uint, start time.Time, duration time.Duration, maxOffsetHours int) (*models.SessionWeather, error)
}

// WeatherHandler answers "what were the conditions for this session window"
type WeatherHandler struct {
	spots   SpotGetter
	matcher WeatherMatcher
}

func NewWeatherHandler(spots SpotGetter, matcher WeatherMatcher) *WeatherHandler {
	return &WeatherHandler{spots: spots, matcher: matcher}
}

func (h *WeatherHandler) HandleRequest(ctx context.Context, request events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	q, err := api.ParseWeatherQuery(request.QueryStringParameters)
	if err != nil {
		return api.Error(err.Error(), http.StatusBadRequest)
	}

	if _, err := h.spots.GetSpot(ctx, q.SpotID); err != nil {
		if errors.Is(err, store.ErrSpotNotFound) {
			return api.Error("Spot not found", http.StatusNotFound)
		}
		log.Error().Err(err).Uint("spot_id", q.SpotID).Msg("Error finding spot")
		return api.Error("Error finding spot", http.StatusInternalServerError)
	}

	weather, err := h.matcher.Match(ctx, q.SpotID, q.Start, q.Duration(), q.MaxOffsetHours)
	if err != nil {
		log.Error().Err(err).Uint("spot_id", q.SpotID).Time("start", q.Start).Msg("Error matching session weather")
		return api.Error("Error getting weather data", http.StatusInternalServerError)
	}

	return api.Success(api.NewWeatherResponse(q, weather))
}
