package handler

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/aws/aws-lambda-go/events"
	"github.com/bbernstein/surftrack/backend-go/internal/api"
	"github.com/bbernstein/surftrack/backend-go/internal/models"
	"github.com/bbernstein/surftrack/backend-go/internal/spot"
	"github.com/bbernstein/surftrack/backend-go/internal/store"
	"github.com/rs/zerolog/log"
)

type SpotFinder interface {
	ListSpots(ctx context.Context) ([]models.Spot, error)
	GetSpot(ctx context.Context, id uint) (*models.Spot, error)
	Nearest(ctx context.Context, lat, lon float64, limit int) ([]spot.NearbySpot, error)
}

type SpotsHandler struct {
	spots SpotFinder
}

func NewSpotsHandler(finder SpotFinder) *SpotsHandler {
	return &SpotsHandler{
		spots: finder,
	}
}

// HandleRequest looks a spot up by spotId, lists the spots nearest to lat/lon,
// or lists every spot when neither is given
func (h *SpotsHandler) HandleRequest(ctx context.Context, request events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	params := request.QueryStringParameters

	if idStr, ok := params["spotId"]; ok {
		id, err := strconv.ParseUint(idStr, 10, 32)
		if err != nil || id == 0 {
			return api.Error(api.InvalidParameterError{Param: "spotId"}.Error(), http.StatusBadRequest)
		}
		found, err := h.spots.GetSpot(ctx, uint(id))
		if errors.Is(err, store.ErrSpotNotFound) {
			return api.Error("Spot not found", http.StatusNotFound)
		}
		if err != nil {
			log.Error().Err(err).Uint64("spot_id", id).Msg("Error finding spot")
			return api.Error("Error finding spot", http.StatusInternalServerError)
		}
		return api.Success(api.NewSpotsResponse([]models.Spot{*found}))
	}

	_, hasLat := params["lat"]
	_, hasLon := params["lon"]
	if !hasLat && !hasLon {
		spots, err := h.spots.ListSpots(ctx)
		if err != nil {
			log.Error().Err(err).Msg("Error listing spots")
			return api.Error("Error listing spots", http.StatusInternalServerError)
		}
		return api.Success(api.NewSpotsResponse(spots))
	}

	lat, lon, err := api.ParseCoordinates(params)
	if err != nil {
		var invalidCoordErr api.InvalidCoordinatesError
		if errors.As(err, &invalidCoordErr) {
			return api.Error(err.Error(), http.StatusBadRequest)
		}
		return api.Error("Invalid parameters", http.StatusBadRequest)
	}

	// Default limit to 5 if not specified
	limit := 5
	if limitStr, ok := params["limit"]; ok {
		if parsedLimit, err := strconv.Atoi(limitStr); err == nil {
			limit = parsedLimit
		}
	}

	nearby, err := h.spots.Nearest(ctx, lat, lon, limit)
	if err != nil {
		log.Error().Err(err).Msg("Error finding nearby spots")
		return api.Error("Error finding spots", http.StatusInternalServerError)
	}
	return api.Success(api.NewSpotsResponse(nearby))
}
