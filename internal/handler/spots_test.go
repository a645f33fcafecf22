package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"testing"

	"github.com/aws/aws-lambda-go/events"
	"github.com/bbernstein/surftrack/backend-go/internal/models"
	"github.com/bbernstein/surftrack/backend-go/internal/spot"
	"github.com/bbernstein/surftrack/backend-go/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mockSpotFinder implements SpotFinder for testing
type mockSpotFinder struct {
	listSpotsFn func(ctx context.Context) ([]models.Spot, error)
	getSpotFn   func(ctx context.Context, id uint) (*models.Spot, error)
	nearestFn   func(ctx context.Context, lat, lon float64, limit int) ([]spot.NearbySpot, error)
}

func (m *mockSpotFinder) ListSpots(ctx context.Context) ([]models.Spot, error) {
	if m.listSpotsFn != nil {
		return m.listSpotsFn(ctx)
	}
	return nil, nil
}

func (m *mockSpotFinder) GetSpot(ctx context.Context, id uint) (*models.Spot, error) {
	if m.getSpotFn != nil {
		return m.getSpotFn(ctx, id)
	}
	return nil, store.ErrSpotNotFound
}

func (m *mockSpotFinder) Nearest(ctx context.Context, lat, lon float64, limit int) ([]spot.NearbySpot, error) {
	if m.nearestFn != nil {
		return m.nearestFn(ctx, lat, lon, limit)
	}
	return nil, nil
}

func createTestSpot(id uint) models.Spot {
	lat, lon := 21.665, -158.053
	name := "Pipeline_1"
	return models.Spot{ID: id, Name: "Pipeline", Latitude: &lat, Longitude: &lon, SurfForecastName: &name}
}

func TestSpotsHandler_HandleRequest(t *testing.T) {
	tests := []struct {
		name           string
		request        events.APIGatewayProxyRequest
		finder         *mockSpotFinder
		expectedStatus int
		expectedSpots  int
	}{
		{
			name:    "spot by ID",
			request: events.APIGatewayProxyRequest{QueryStringParameters: map[string]string{"spotId": "7"}},
			finder: &mockSpotFinder{getSpotFn: func(ctx context.Context, id uint) (*models.Spot, error) {
				s := createTestSpot(id)
				return &s, nil
			}},
			expectedStatus: http.StatusOK,
			expectedSpots:  1,
		},
		{
			name:    "nearest spots",
			request: events.APIGatewayProxyRequest{QueryStringParameters: map[string]string{"lat": "21.6", "lon": "-158.0", "limit": "2"}},
			finder: &mockSpotFinder{nearestFn: func(ctx context.Context, lat, lon float64, limit int) ([]spot.NearbySpot, error) {
				assert.Equal(t, 2, limit)
				return []spot.NearbySpot{{Spot: createTestSpot(1), DistanceKm: 8.2}, {Spot: createTestSpot(2), DistanceKm: 12}}, nil
			}},
			expectedStatus: http.StatusOK,
			expectedSpots:  2,
		},
		{
			name:    "all spots",
			request: events.APIGatewayProxyRequest{},
			finder: &mockSpotFinder{listSpotsFn: func(ctx context.Context) ([]models.Spot, error) {
				return []models.Spot{createTestSpot(1), createTestSpot(2), createTestSpot(3)}, nil
			}},
			expectedStatus: http.StatusOK,
			expectedSpots:  3,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			response, err := NewSpotsHandler(tt.finder).HandleRequest(context.Background(), tt.request)
			require.NoError(t, err)
			assert.Equal(t, tt.expectedStatus, response.StatusCode)

			var body struct {
				ResponseType string            `json:"responseType"`
				Spots        []json.RawMessage `json:"spots"`
			}
			require.NoError(t, json.Unmarshal([]byte(response.Body), &body))
			assert.Equal(t, "spots", body.ResponseType)
			assert.Len(t, body.Spots, tt.expectedSpots)
		})
	}
}

func TestSpotsHandler_Errors(t *testing.T) {
	failing := &mockSpotFinder{
		listSpotsFn: func(ctx context.Context) ([]models.Spot, error) { return nil, errors.New("db down") },
		getSpotFn:   func(ctx context.Context, id uint) (*models.Spot, error) { return nil, errors.New("db down") },
		nearestFn: func(ctx context.Context, lat, lon float64, limit int) ([]spot.NearbySpot, error) {
			return nil, errors.New("db down")
		},
	}

	tests := []struct {
		name           string
		finder         *mockSpotFinder
		params         map[string]string
		expectedStatus int
		expectedError  string
	}{
		{name: "unknown spot", finder: &mockSpotFinder{}, params: map[string]string{"spotId": "9"}, expectedStatus: http.StatusNotFound, expectedError: "Spot not found"},
		{name: "bad spot id", finder: &mockSpotFinder{}, params: map[string]string{"spotId": "x"}, expectedStatus: http.StatusBadRequest, expectedError: "Invalid parameter: spotId"},
		{name: "invalid latitude", finder: &mockSpotFinder{}, params: map[string]string{"lat": "91", "lon": "0"}, expectedStatus: http.StatusBadRequest, expectedError: "Invalid coordinates"},
		{name: "only longitude", finder: &mockSpotFinder{}, params: map[string]string{"lon": "0"}, expectedStatus: http.StatusBadRequest, expectedError: "Invalid parameters"},
		{name: "non-numeric coordinates", finder: &mockSpotFinder{}, params: map[string]string{"lat": "invalid", "lon": "1"}, expectedStatus: http.StatusBadRequest, expectedError: "Invalid parameters"},
		{name: "lookup failure", finder: failing, params: map[string]string{"spotId": "1"}, expectedStatus: http.StatusInternalServerError, expectedError: "Error finding spot"},
		{name: "list failure", finder: failing, params: nil, expectedStatus: http.StatusInternalServerError, expectedError: "Error listing spots"},
		{name: "nearest failure", finder: failing, params: map[string]string{"lat": "1", "lon": "1"}, expectedStatus: http.StatusInternalServerError, expectedError: "Error finding spots"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			response, err := NewSpotsHandler(tt.finder).HandleRequest(context.Background(), events.APIGatewayProxyRequest{QueryStringParameters: tt.params})
			require.NoError(t, err)
			assert.Equal(t, tt.expectedStatus, response.StatusCode)

			var responseBody map[string]interface{}
			require.NoError(t, json.Unmarshal([]byte(response.Body), &responseBody))
			assert.Equal(t, "error", responseBody["responseType"])
			assert.Equal(t, tt.expectedError, responseBody["error"])
		})
	}
}
