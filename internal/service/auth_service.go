package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"careerhub/api/internal/geo"
	"careerhub/api/internal/models"
	"careerhub/api/internal/repository"
	"careerhub/api/internal/security"
)

var (
	// ErrInvalidCredentials covers both unknown email and wrong
	// password so the API cannot be used for account enumeration.
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrUserSuspended      = errors.New("user suspended")
	ErrEmailTaken         = errors.New("email already registered")
	ErrTooManyAttempts    = errors.New("too many login attempts")
)

type UserStore interface {
	Create(ctx context.Context, user models.User) (models.User, error)
	FindByEmail(ctx context.Context, email string) (models.User, error)
	GetByID(ctx context.Context, id int64) (models.User, error)
	UpdatePassword(ctx context.Context, id int64, passwordHash string) error
}

type AuthService struct {
	users    UserStore
	sessions *SessionService
	throttle *LoginThrottle
	log      zerolog.Logger
}

func NewAuthService(users UserStore, sessions *SessionService, throttle *LoginThrottle, log zerolog.Logger) *AuthService {
	return &AuthService{
		users:    users,
		sessions: sessions,
		throttle: throttle,
		log:      log,
	}
}

type LoginInput struct {
	Email     string
	Password  string
	UserAgent string
	IP        string
	Location  geo.Location
}

type AuthResult struct {
	Token   string
	Session models.Session
	User    models.User
}

func (s *AuthService) Login(ctx context.Context, input LoginInput) (AuthResult, error) {
	if blocked := s.throttle.Blocked(ctx, input.IP); blocked {
		return AuthResult{}, ErrTooManyAttempts
	}

	input.Email = strings.TrimSpace(strings.ToLower(input.Email))
	user, err := s.users.FindByEmail(ctx, input.Email)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			s.throttle.RecordFailure(ctx, input.IP)
			return AuthResult{}, ErrInvalidCredentials
		}
		return AuthResult{}, err
	}

	if !security.VerifyPassword(input.Password, user.PasswordHash) {
		s.throttle.RecordFailure(ctx, input.IP)
		return AuthResult{}, ErrInvalidCredentials
	}

	if user.Status != models.UserStatusActive {
		return AuthResult{}, ErrUserSuspended
	}

	s.throttle.Reset(ctx, input.IP)

	token, session, err := s.sessions.Create(ctx, user.ID, input.UserAgent, input.IP, input.Location)
	if err != nil {
		return AuthResult{}, err
	}

	s.log.Info().
		Int64("user_id", user.ID).
		Str("ip", session.IP).
		Msg("user logged in")

	return AuthResult{Token: token, Session: session, User: user}, nil
}

type RegisterInput struct {
	Email       string
	Password    string
	DisplayName string
	UserAgent   string
	IP          string
	Location    geo.Location
}

// Register creates the account and signs the new user in on the
// current device.
func (s *AuthService) Register(ctx context.Context, input RegisterInput) (AuthResult, error) {
	input.Email = strings.TrimSpace(strings.ToLower(input.Email))
	if input.Email == "" || input.Password == "" {
		return AuthResult{}, fmt.Errorf("email and password required")
	}

	if _, err := s.users.FindByEmail(ctx, input.Email); err == nil {
		return AuthResult{}, ErrEmailTaken
	} else if !errors.Is(err, repository.ErrUserNotFound) {
		return AuthResult{}, err
	}

	passwordHash, err := security.HashPassword(input.Password)
	if err != nil {
		return AuthResult{}, err
	}

	user, err := s.users.Create(ctx, models.User{
		Email:        input.Email,
		PasswordHash: passwordHash,
		DisplayName:  input.DisplayName,
		Status:       models.UserStatusActive,
	})
	if err != nil {
		return AuthResult{}, err
	}

	token, session, err := s.sessions.Create(ctx, user.ID, input.UserAgent, input.IP, input.Location)
	if err != nil {
		return AuthResult{}, err
	}

	return AuthResult{Token: token, Session: session, User: user}, nil
}

// Logout invalidates the session the raw token maps to. An unknown or
// already-revoked token is a successful logout.
func (s *AuthService) Logout(ctx context.Context, token string) error {
	if token == "" {
		return nil
	}
	return s.sessions.Invalidate(ctx, security.HashSessionToken(token))
}

type ChangePasswordInput struct {
	UserID           int64
	CurrentSessionID string
	CurrentPassword  string
	NewPassword      string
}

// ChangePassword rehashes the credential and revokes every other
// session for the user, keeping only the device that made the change.
func (s *AuthService) ChangePassword(ctx context.Context, input ChangePasswordInput) error {
	user, err := s.users.GetByID(ctx, input.UserID)
	if err != nil {
		return err
	}

	if !security.VerifyPassword(input.CurrentPassword, user.PasswordHash) {
		return ErrInvalidCredentials
	}

	passwordHash, err := security.HashPassword(input.NewPassword)
	if err != nil {
		return err
	}

	if err := s.users.UpdatePassword(ctx, user.ID, passwordHash); err != nil {
		return fmt.Errorf("update password: %w", err)
	}

	if err := s.sessions.InvalidateOthers(ctx, user.ID, input.CurrentSessionID); err != nil {
		return err
	}

	s.log.Info().Int64("user_id", user.ID).Msg("password changed, other sessions revoked")
	return nil
}
