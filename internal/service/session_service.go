package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"careerhub/api/internal/config"
	"careerhub/api/internal/geo"
	"careerhub/api/internal/models"
	"careerhub/api/internal/repository"
	"careerhub/api/internal/security"
)

// SessionStore is the persistence boundary for session rows. The
// store is the single source of truth; no validity is cached in
// process.
type SessionStore interface {
	Create(ctx context.Context, session models.Session) error
	GetByID(ctx context.Context, id string) (models.Session, error)
	ListByUser(ctx context.Context, userID int64) ([]models.Session, error)
	UpdateExpiry(ctx context.Context, id string, expiresAt time.Time) error
	DeleteByID(ctx context.Context, id string) error
	DeleteByUser(ctx context.Context, userID int64) error
	DeleteExpired(ctx context.Context) (int64, error)
}

// SessionService manages the session lifecycle: issuance on login,
// validation with sliding renewal on every authenticated request, and
// explicit or lazy invalidation. Unauthenticated is a value (nil
// session), never an error; store failures always propagate.
type SessionService struct {
	sessions SessionStore
	cfg      *config.AppConfig
	log      zerolog.Logger
}

func NewSessionService(sessions SessionStore, cfg *config.AppConfig, log zerolog.Logger) *SessionService {
	return &SessionService{
		sessions: sessions,
		cfg:      cfg,
		log:      log,
	}
}

// Create mints a token, persists the session under the token's hash
// and returns the raw token. This is the only moment the raw token
// exists server-side.
func (s *SessionService) Create(ctx context.Context, userID int64, userAgent, ip string, loc geo.Location) (string, models.Session, error) {
	token, err := security.GenerateSessionToken()
	if err != nil {
		return "", models.Session{}, err
	}

	if ip == "" {
		ip = geo.UnknownIP
	}
	country := loc.Country
	if country == "" {
		country = models.UnknownCountry
	}

	now := time.Now()
	session := models.Session{
		ID:        security.HashSessionToken(token),
		UserID:    userID,
		UserAgent: userAgent,
		IP:        ip,
		Country:   country,
		Region:    loc.Region,
		City:      loc.City,
		ExpiresAt: now.Add(s.cfg.Session.Lifetime),
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := s.sessions.Create(ctx, session); err != nil {
		return "", models.Session{}, fmt.Errorf("persist session: %w", err)
	}

	s.log.Debug().
		Int64("user_id", userID).
		Str("country", country).
		Msg("session created")

	return token, session, nil
}

// Validate checks the raw token from the cookie. Returns (nil, false,
// nil) when there is no usable session — never existed, revoked, or
// expired look identical to the caller. Expired rows are deleted
// lazily here. When the session is past its refresh midpoint the
// expiry slides forward and renewed is true so the transport can
// re-sync the cookie.
func (s *SessionService) Validate(ctx context.Context, token string) (*models.Session, bool, error) {
	if token == "" {
		return nil, false, nil
	}

	id := security.HashSessionToken(token)
	session, err := s.sessions.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrSessionNotFound) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("fetch session: %w", err)
	}

	now := time.Now()
	if session.Expired(now) {
		if err := s.sessions.DeleteByID(ctx, id); err != nil && !errors.Is(err, repository.ErrSessionNotFound) {
			return nil, false, fmt.Errorf("delete expired session: %w", err)
		}
		return nil, false, nil
	}

	if !now.Before(session.ExpiresAt.Add(-s.cfg.Session.RefreshWindow)) {
		expiresAt := now.Add(s.cfg.Session.Lifetime)
		if err := s.sessions.UpdateExpiry(ctx, id, expiresAt); err != nil {
			if errors.Is(err, repository.ErrSessionNotFound) {
				// Revoked between fetch and renewal; treat as signed out.
				return nil, false, nil
			}
			return nil, false, fmt.Errorf("extend session: %w", err)
		}
		session.ExpiresAt = expiresAt
		session.UpdatedAt = now
		return &session, true, nil
	}

	return &session, false, nil
}

// Invalidate terminates a single session ("sign out this device").
// Unknown IDs are a no-op.
func (s *SessionService) Invalidate(ctx context.Context, sessionID string) error {
	if err := s.sessions.DeleteByID(ctx, sessionID); err != nil && !errors.Is(err, repository.ErrSessionNotFound) {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}

// InvalidateAll terminates every session the user owns.
func (s *SessionService) InvalidateAll(ctx context.Context, userID int64) error {
	if err := s.sessions.DeleteByUser(ctx, userID); err != nil {
		return fmt.Errorf("delete user sessions: %w", err)
	}
	return nil
}

// InvalidateOthers terminates every session except keepID. Used on
// password change so the device that changed the password stays
// signed in.
func (s *SessionService) InvalidateOthers(ctx context.Context, userID int64, keepID string) error {
	sessions, err := s.sessions.ListByUser(ctx, userID)
	if err != nil {
		return fmt.Errorf("list user sessions: %w", err)
	}

	for _, session := range sessions {
		if session.ID == keepID {
			continue
		}
		if err := s.Invalidate(ctx, session.ID); err != nil {
			return err
		}
	}
	return nil
}

// ListForUser enumerates the user's sessions, newest first.
func (s *SessionService) ListForUser(ctx context.Context, userID int64) ([]models.Session, error) {
	return s.sessions.ListByUser(ctx, userID)
}

// PurgeExpired removes expired rows in bulk. Lazy deletion during
// Validate keeps correctness; this keeps the table small.
func (s *SessionService) PurgeExpired(ctx context.Context) (int64, error) {
	return s.sessions.DeleteExpired(ctx)
}
