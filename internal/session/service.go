package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bbernstein/surftrack/backend-go/internal/models"
	"github.com/bbernstein/surftrack/backend-go/internal/store"
	"github.com/rs/zerolog/log"
)

var (
	ErrNotFound        = errors.New("session not found")
	ErrInvalidDuration = errors.New("duration must not be negative")
)

type WeatherMatcher interface {
	Match(ctx context.Context, spotID uint, start time.Time, duration time.Duration, maxOffsetHours int) (*models.SessionWeather, error)
}

// Patch lists the fields an update changes. Nil fields are left alone.
type Patch struct {
	SpotID *uint
	// ClearSpot detaches the session from its spot
	ClearSpot       bool
	Start           *time.Time
	DurationMinutes *int
	Notes           *string
}

func (p Patch) touchesWeather() bool {
	return p.SpotID != nil || p.ClearSpot || p.Start != nil || p.DurationMinutes != nil
}

// Service is the session write path. It attaches the weather snapshot on
// create and refreshes it when an update moves the session in space or time.
type Service struct {
	sessions store.SessionStore
	matcher  WeatherMatcher
}

func NewService(sessions store.SessionStore, matcher WeatherMatcher) *Service {
	return &Service{sessions: sessions, matcher: matcher}
}

func (s *Service) Create(ctx context.Context, session models.SurfSession) (*models.SurfSession, error) {
	if session.DurationMinutes < 0 {
		return nil, ErrInvalidDuration
	}

	session.ID = 0
	session.Weather = models.SessionWeather{}
	if err := s.attachWeather(ctx, &session); err != nil {
		return nil, err
	}

	if err := s.sessions.CreateSession(ctx, &session); err != nil {
		return nil, err
	}
	return &session, nil
}

func (s *Service) Get(ctx context.Context, id uint) (*models.SurfSession, error) {
	session, err := s.sessions.GetSession(ctx, id)
	if errors.Is(err, store.ErrSessionNotFound) {
		return nil, fmt.Errorf("session %d: %w", id, ErrNotFound)
	}
	return session, err
}

// Update applies the patch. The snapshot is recomputed only when the spot,
// start or duration is part of the patch; otherwise it is kept as stored.
func (s *Service) Update(ctx context.Context, id uint, patch Patch) (*models.SurfSession, error) {
	if patch.DurationMinutes != nil && *patch.DurationMinutes < 0 {
		return nil, ErrInvalidDuration
	}

	session, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if patch.ClearSpot {
		session.SpotID = nil
	} else if patch.SpotID != nil {
		spotID := *patch.SpotID
		session.SpotID = &spotID
	}
	if patch.Start != nil {
		session.Start = *patch.Start
	}
	if patch.DurationMinutes != nil {
		session.DurationMinutes = *patch.DurationMinutes
	}
	if patch.Notes != nil {
		session.Notes = *patch.Notes
	}

	if patch.touchesWeather() {
		session.Weather = models.SessionWeather{}
		if err := s.attachWeather(ctx, session); err != nil {
			return nil, err
		}
	}

	if err := s.sessions.SaveSession(ctx, session); err != nil {
		return nil, err
	}
	return session, nil
}

func (s *Service) attachWeather(ctx context.Context, session *models.SurfSession) error {
	if session.SpotID == nil {
		return nil
	}

	weather, err := s.matcher.Match(ctx, *session.SpotID, session.Start, session.Duration(), 0)
	if err != nil {
		return fmt.Errorf("matching weather: %w", err)
	}
	if weather == nil {
		log.Debug().
			Uint("spot_id", *session.SpotID).
			Time("start", session.Start).
			Msg("No weather available for session")
		return nil
	}

	session.Weather = *weather
	return nil
}
