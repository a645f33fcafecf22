package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/aws/aws-lambda-go/events"
	"github.com/bbernstein/surftrack/backend-go/internal/models"
	"github.com/bbernstein/surftrack/backend-go/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockMatcher struct {
	matchFn func(ctx context.Context, spotID uint, start time.Time, duration time.Duration, maxOffsetHours int) (*models.SessionWeather, error)
}

func (m *mockMatcher) Match(ctx context.Context, spotID uint, start time.Time, duration time.Duration, maxOffsetHours int) (*models.SessionWeather, error) {
	if m.matchFn != nil {
		return m.matchFn(ctx, spotID, start, duration, maxOffsetHours)
	}
	return nil, nil
}

func knownSpot() *mockSpotFinder {
	return &mockSpotFinder{getSpotFn: func(ctx context.Context, id uint) (*models.Spot, error) {
		s := createTestSpot(id)
		return &s, nil
	}}
}

func TestWeatherHandler_ReturnsSnapshot(t *testing.T) {
	height, tide := 1.3, 1.52
	matcher := &mockMatcher{matchFn: func(ctx context.Context, spotID uint, start time.Time, duration time.Duration, maxOffsetHours int) (*models.SessionWeather, error) {
		assert.Equal(t, uint(3), spotID)
		assert.Equal(t, time.Date(2026, time.October, 15, 8, 0, 0, 0, time.UTC), start)
		assert.Equal(t, 2*time.Hour, duration)
		assert.Equal(t, 4, maxOffsetHours)
		return &models.SessionWeather{WaveHeightM: &height, TideHeightM: &tide}, nil
	}}

	response, err := NewWeatherHandler(knownSpot(), matcher).HandleRequest(context.Background(), events.APIGatewayProxyRequest{
		QueryStringParameters: map[string]string{"spotId": "3", "start": "2026-10-15T08:00", "durationMinutes": "120", "maxOffsetHours": "4"},
	})
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, response.StatusCode)
	assert.JSONEq(t, `{
		"responseType": "weather",
		"spotId": 3,
		"start": "2026-10-15T08:00:00",
		"durationMinutes": 120,
		"weather": {"waveHeightM": 1.3, "tideHeightM": 1.52}
	}`, response.Body)
}

func TestWeatherHandler_NoWeatherIsNotAnError(t *testing.T) {
	response, err := NewWeatherHandler(knownSpot(), &mockMatcher{}).HandleRequest(context.Background(), events.APIGatewayProxyRequest{
		QueryStringParameters: map[string]string{"spotId": "3", "start": "2026-10-15T08:00"},
	})
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, response.StatusCode)

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(response.Body), &body))
	assert.Equal(t, "weather", body["responseType"])
	assert.Contains(t, body, "weather")
	assert.Nil(t, body["weather"])
}

func TestWeatherHandler_Errors(t *testing.T) {
	failingMatcher := &mockMatcher{matchFn: func(ctx context.Context, spotID uint, start time.Time, duration time.Duration, maxOffsetHours int) (*models.SessionWeather, error) {
		return nil, errors.New("connection refused")
	}}
	failingSpots := &mockSpotFinder{getSpotFn: func(ctx context.Context, id uint) (*models.Spot, error) {
		return nil, errors.New("timeout")
	}}
	valid := map[string]string{"spotId": "3", "start": "2026-10-15T08:00"}

	tests := []struct {
		name           string
		spots          SpotGetter
		matcher        WeatherMatcher
		params         map[string]string
		expectedStatus int
		expectedError  string
	}{
		{name: "missing spot id", spots: knownSpot(), matcher: &mockMatcher{}, params: map[string]string{"start": "2026-10-15T08:00"}, expectedStatus: http.StatusBadRequest, expectedError: "Missing parameter: spotId"},
		{name: "bad start", spots: knownSpot(), matcher: &mockMatcher{}, params: map[string]string{"spotId": "3", "start": "yesterday"}, expectedStatus: http.StatusBadRequest, expectedError: "Invalid parameter: start"},
		{name: "unknown spot", spots: &mockSpotFinder{}, matcher: &mockMatcher{}, params: valid, expectedStatus: http.StatusNotFound, expectedError: "Spot not found"},
		{name: "spot lookup failure", spots: failingSpots, matcher: &mockMatcher{}, params: valid, expectedStatus: http.StatusInternalServerError, expectedError: "Error finding spot"},
		{name: "matcher failure", spots: knownSpot(), matcher: failingMatcher, params: valid, expectedStatus: http.StatusInternalServerError, expectedError: "Error getting weather data"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			response, err := NewWeatherHandler(tt.spots, tt.matcher).HandleRequest(context.Background(), events.APIGatewayProxyRequest{QueryStringParameters: tt.params})
			require.NoError(t, err)
			assert.Equal(t, tt.expectedStatus, response.StatusCode)

			var body map[string]interface{}
			require.NoError(t, json.Unmarshal([]byte(response.Body), &body))
			assert.Equal(t, "error", body["responseType"])
			assert.Equal(t, tt.expectedError, body["error"])
		})
	}
}

func TestWeatherHandler_WrappedNotFound(t *testing.T) {
	spots := &mockSpotFinder{getSpotFn: func(ctx context.Context, id uint) (*models.Spot, error) {
		return nil, errors.Join(errors.New("spot 3"), store.ErrSpotNotFound)
	}}
	response, err := NewWeatherHandler(spots, &mockMatcher{}).HandleRequest(context.Background(), events.APIGatewayProxyRequest{
		QueryStringParameters: map[string]string{"spotId": "3", "start": "2026-10-15T08:00"},
	})
	require.NoError(t, err)
	assert.Equal(t, http.StatusNotFound, response.StatusCode)
}
