package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/aws/aws-lambda-go/events"
	"github.com/bbernstein/surftrack/backend-go/internal/models"
)

type APIResponse struct {
	ResponseType string `json:"responseType"`
}

func (r APIResponse) GetResponseType() string {
	return r.ResponseType
}

type SpotsResponse struct {
	APIResponse
	Spots interface{} `json:"spots"`
}

// WeatherResponse carries the snapshot for a session window; Weather is null
// when no forecast was close enough
type WeatherResponse struct {
	APIResponse
	SpotID          uint                   `json:"spotId"`
	Start           string                 `json:"start"`
	DurationMinutes int                    `json:"durationMinutes"`
	Weather         *models.SessionWeather `json:"weather"`
}

type ErrorResponse struct {
	APIResponse
	Error string `json:"error"`
}

// NewSpotsResponse wraps a list of spots, with or without distances
func NewSpotsResponse(spots interface{}) *SpotsResponse {
	return &SpotsResponse{
		APIResponse: APIResponse{ResponseType: "spots"},
		Spots:       spots,
	}
}

func NewWeatherResponse(q WeatherQuery, weather *models.SessionWeather) *WeatherResponse {
	return &WeatherResponse{
		APIResponse:     APIResponse{ResponseType: "weather"},
		SpotID:          q.SpotID,
		Start:           q.Start.Format(LocalTimeLayout),
		DurationMinutes: q.DurationMinutes,
		Weather:         weather,
	}
}

func NewErrorResponse(message string) *ErrorResponse {
	return &ErrorResponse{
		APIResponse: APIResponse{ResponseType: "error"},
		Error:       message,
	}
}

// Response helpers
func Success(body interface{}) (events.APIGatewayProxyResponse, error) {
	jsonBody, err := json.Marshal(body)
	if err != nil {
		return Error("Internal Server Error", http.StatusInternalServerError)
	}

	return events.APIGatewayProxyResponse{
		StatusCode: http.StatusOK,
		Headers: map[string]string{
			"Content-Type":                "application/json",
			"Access-Control-Allow-Origin": "*",
		},
		Body: string(jsonBody),
	}, nil
}

func Error(message string, statusCode int) (events.APIGatewayProxyResponse, error) {
	body, _ := json.Marshal(NewErrorResponse(message))

	return events.APIGatewayProxyResponse{
		StatusCode: statusCode,
		Headers: map[string]string{
			"Content-Type":                "application/json",
			"Access-Control-Allow-Origin": "*",
		},
		Body: string(body),
	}, nil
}

// Parameter parsing helpers
func ParseCoordinates(params map[string]string) (float64, float64, error) {
	latStr, hasLat := params["lat"]
	lonStr, hasLon := params["lon"]

	if !hasLat || !hasLon {
		return 0, 0, MissingParameterError{Param: "lat/lon"}
	}

	lat, err := strconv.ParseFloat(latStr, 64)
	if err != nil {
		return 0, 0, err
	}

	lon, err := strconv.ParseFloat(lonStr, 64)
	if err != nil {
		return 0, 0, err
	}

	if lat < -90 || lat > 90 || lon < -180 || lon > 180 {
		return 0, 0, InvalidCoordinatesError{}
	}

	return lat, lon, nil
}

type InvalidCoordinatesError struct{}

func (e InvalidCoordinatesError) Error() string {
	return "Invalid coordinates"
}

type MissingParameterError struct {
	Param string
}

func (e MissingParameterError) Error() string {
	return "Missing parameter: " + e.Param
}

type InvalidParameterError struct {
	Param string
}

func (e InvalidParameterError) Error() string {
	return "Invalid parameter: " + e.Param
}

// LocalTimeLayout is the wall-clock format used for session times. Forecast
// rows carry the spot's local time without a zone.
const LocalTimeLayout = "2006-01-02T15:04:05"

var startLayouts = []string{time.RFC3339, LocalTimeLayout, "2006-01-02T15:04"}

// WeatherQuery is the parsed input of a session weather lookup
type WeatherQuery struct {
	SpotID          uint
	Start           time.Time
	DurationMinutes int
	// MaxOffsetHours of zero means the configured default
	MaxOffsetHours int
}

func (q WeatherQuery) Duration() time.Duration {
	return time.Duration(q.DurationMinutes) * time.Minute
}

// ParseWeatherQuery reads spotId, start, durationMinutes and maxOffsetHours.
// A zone offset on start is dropped: the wall clock is what gets matched.
func ParseWeatherQuery(params map[string]string) (WeatherQuery, error) {
	var q WeatherQuery

	spotStr, ok := params["spotId"]
	if !ok || spotStr == "" {
		return q, MissingParameterError{Param: "spotId"}
	}
	spotID, err := strconv.ParseUint(spotStr, 10, 32)
	if err != nil || spotID == 0 {
		return q, InvalidParameterError{Param: "spotId"}
	}
	q.SpotID = uint(spotID)

	startStr, ok := params["start"]
	if !ok || startStr == "" {
		return q, MissingParameterError{Param: "start"}
	}
	start, err := parseStart(startStr)
	if err != nil {
		return q, InvalidParameterError{Param: "start"}
	}
	q.Start = start

	if s, ok := params["durationMinutes"]; ok {
		minutes, err := strconv.Atoi(s)
		if err != nil || minutes < 0 {
			return q, InvalidParameterError{Param: "durationMinutes"}
		}
		q.DurationMinutes = minutes
	}

	if s, ok := params["maxOffsetHours"]; ok {
		hours, err := strconv.Atoi(s)
		if err != nil {
			return q, InvalidParameterError{Param: "maxOffsetHours"}
		}
		q.MaxOffsetHours = hours
	}

	return q, nil
}

func parseStart(s string) (time.Time, error) {
	for _, layout := range startLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), t.Second(), 0, time.UTC), nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognised time %q", s)
}
