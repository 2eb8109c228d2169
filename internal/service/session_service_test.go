package service_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"careerhub/api/internal/config"
	"careerhub/api/internal/geo"
	"careerhub/api/internal/models"
	"careerhub/api/internal/repository"
	"careerhub/api/internal/security"
	"careerhub/api/internal/service"
)

// fakeSessionStore is an in-memory SessionStore sharing the
// repository's not-found semantics.
type fakeSessionStore struct {
	mu       sync.Mutex
	rows     map[string]models.Session
	failWith error
}

func newFakeSessionStore() *fakeSessionStore {
	return &fakeSessionStore{rows: make(map[string]models.Session)}
}

func (f *fakeSessionStore) Create(_ context.Context, session models.Session) error {
	if f.failWith != nil {
		return f.failWith
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.rows[session.ID] = session
	return nil
}

func (f *fakeSessionStore) GetByID(_ context.Context, id string) (models.Session, error) {
	if f.failWith != nil {
		return models.Session{}, f.failWith
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	session, ok := f.rows[id]
	if !ok {
		return models.Session{}, repository.ErrSessionNotFound
	}
	return session, nil
}

func (f *fakeSessionStore) ListByUser(_ context.Context, userID int64) ([]models.Session, error) {
	if f.failWith != nil {
		return nil, f.failWith
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	var sessions []models.Session
	for _, session := range f.rows {
		if session.UserID == userID {
			sessions = append(sessions, session)
		}
	}
	return sessions, nil
}

func (f *fakeSessionStore) UpdateExpiry(_ context.Context, id string, expiresAt time.Time) error {
	if f.failWith != nil {
		return f.failWith
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	session, ok := f.rows[id]
	if !ok {
		return repository.ErrSessionNotFound
	}
	session.ExpiresAt = expiresAt
	session.UpdatedAt = time.Now()
	f.rows[id] = session
	return nil
}

func (f *fakeSessionStore) DeleteByID(_ context.Context, id string) error {
	if f.failWith != nil {
		return f.failWith
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.rows[id]; !ok {
		return repository.ErrSessionNotFound
	}
	delete(f.rows, id)
	return nil
}

func (f *fakeSessionStore) DeleteByUser(_ context.Context, userID int64) error {
	if f.failWith != nil {
		return f.failWith
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	for id, session := range f.rows {
		if session.UserID == userID {
			delete(f.rows, id)
		}
	}
	return nil
}

func (f *fakeSessionStore) DeleteExpired(_ context.Context) (int64, error) {
	if f.failWith != nil {
		return 0, f.failWith
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	now := time.Now()
	var deleted int64
	for id, session := range f.rows {
		if session.Expired(now) {
			delete(f.rows, id)
			deleted++
		}
	}
	return deleted, nil
}

func (f *fakeSessionStore) has(id string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.rows[id]
	return ok
}

func (f *fakeSessionStore) put(session models.Session) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.rows[session.ID] = session
}

func testConfig() *config.AppConfig {
	return &config.AppConfig{
		Session: config.SessionConfig{
			Lifetime:      720 * time.Hour,
			RefreshWindow: 360 * time.Hour,
			CookieName:    "session",
		},
	}
}

func newSessionService(store *fakeSessionStore) *service.SessionService {
	return service.NewSessionService(store, testConfig(), zerolog.Nop())
}

func TestSessionService_CreateValidateRoundTrip(t *testing.T) {
	store := newFakeSessionStore()
	svc := newSessionService(store)
	ctx := context.Background()

	token, created, err := svc.Create(ctx, 42, "Mozilla/5.0 Chrome", "203.0.113.5", geo.Location{
		Country: "Nepal",
		City:    "Kathmandu",
	})
	require.NoError(t, err)
	assert.Len(t, token, 64)
	assert.Equal(t, security.HashSessionToken(token), created.ID)
	assert.Equal(t, "Nepal", created.Country)
	assert.Equal(t, "Kathmandu", created.City)
	assert.Empty(t, created.Region)

	session, renewed, err := svc.Validate(ctx, token)
	require.NoError(t, err)
	require.NotNil(t, session)
	assert.False(t, renewed)
	assert.Equal(t, int64(42), session.UserID)
	assert.Equal(t, created.ID, session.ID)
}

func TestSessionService_CreateDefaultsSentinels(t *testing.T) {
	store := newFakeSessionStore()
	svc := newSessionService(store)

	_, created, err := svc.Create(context.Background(), 1, "agent", "", geo.Location{})
	require.NoError(t, err)

	assert.Equal(t, models.UnknownCountry, created.Country)
	assert.Equal(t, geo.UnknownIP, created.IP)
}

func TestSessionService_ValidateUnknownToken(t *testing.T) {
	svc := newSessionService(newFakeSessionStore())

	session, renewed, err := svc.Validate(context.Background(), "deadbeef")
	require.NoError(t, err)
	assert.Nil(t, session)
	assert.False(t, renewed)
}

func TestSessionService_ValidateEmptyToken(t *testing.T) {
	svc := newSessionService(newFakeSessionStore())

	session, _, err := svc.Validate(context.Background(), "")
	require.NoError(t, err)
	assert.Nil(t, session)
}

func TestSessionService_ExpiredSessionDeletedLazily(t *testing.T) {
	store := newFakeSessionStore()
	svc := newSessionService(store)
	ctx := context.Background()

	token, created, err := svc.Create(ctx, 7, "agent", "203.0.113.5", geo.Location{})
	require.NoError(t, err)

	expired := created
	expired.ExpiresAt = time.Now().Add(-time.Minute)
	store.put(expired)

	session, renewed, err := svc.Validate(ctx, token)
	require.NoError(t, err)
	assert.Nil(t, session)
	assert.False(t, renewed)
	assert.False(t, store.has(created.ID), "expired row must be deleted on validation")
}

func TestSessionService_RenewalInsideWindow(t *testing.T) {
	store := newFakeSessionStore()
	svc := newSessionService(store)
	cfg := testConfig()
	ctx := context.Background()

	token, created, err := svc.Create(ctx, 7, "agent", "203.0.113.5", geo.Location{})
	require.NoError(t, err)

	// Just inside the renewal zone: expiry is one second short of the
	// refresh-window distance from now.
	inside := created
	inside.ExpiresAt = time.Now().Add(cfg.Session.RefreshWindow - time.Second)
	store.put(inside)

	session, renewed, err := svc.Validate(ctx, token)
	require.NoError(t, err)
	require.NotNil(t, session)
	assert.True(t, renewed)
	assert.WithinDuration(t, time.Now().Add(cfg.Session.Lifetime), session.ExpiresAt, 5*time.Second)
}

func TestSessionService_NoRenewalOutsideWindow(t *testing.T) {
	store := newFakeSessionStore()
	svc := newSessionService(store)
	cfg := testConfig()
	ctx := context.Background()

	token, created, err := svc.Create(ctx, 7, "agent", "203.0.113.5", geo.Location{})
	require.NoError(t, err)

	// Just outside the renewal zone.
	farExpiry := time.Now().Add(cfg.Session.RefreshWindow + time.Minute)
	outside := created
	outside.ExpiresAt = farExpiry
	store.put(outside)

	session, renewed, err := svc.Validate(ctx, token)
	require.NoError(t, err)
	require.NotNil(t, session)
	assert.False(t, renewed)
	assert.Equal(t, farExpiry, session.ExpiresAt)

	// Repeat validation leaves expiry untouched.
	again, renewed, err := svc.Validate(ctx, token)
	require.NoError(t, err)
	require.NotNil(t, again)
	assert.False(t, renewed)
	assert.Equal(t, farExpiry, again.ExpiresAt)
}

func TestSessionService_StoreFailurePropagates(t *testing.T) {
	store := newFakeSessionStore()
	svc := newSessionService(store)
	ctx := context.Background()

	token, _, err := svc.Create(ctx, 7, "agent", "203.0.113.5", geo.Location{})
	require.NoError(t, err)

	store.failWith = errors.New("connection refused")

	session, _, err := svc.Validate(ctx, token)
	require.Error(t, err, "datastore outage must not look like a logged-out user")
	assert.Nil(t, session)
}

func TestSessionService_InvalidateAll(t *testing.T) {
	store := newFakeSessionStore()
	svc := newSessionService(store)
	ctx := context.Background()

	tokenA1, _, err := svc.Create(ctx, 1, "agent", "203.0.113.5", geo.Location{})
	require.NoError(t, err)
	tokenA2, _, err := svc.Create(ctx, 1, "agent", "203.0.113.6", geo.Location{})
	require.NoError(t, err)
	tokenB, _, err := svc.Create(ctx, 2, "agent", "203.0.113.7", geo.Location{})
	require.NoError(t, err)

	require.NoError(t, svc.InvalidateAll(ctx, 1))

	for _, token := range []string{tokenA1, tokenA2} {
		session, _, err := svc.Validate(ctx, token)
		require.NoError(t, err)
		assert.Nil(t, session, "all sessions of user 1 must be gone")
	}

	session, _, err := svc.Validate(ctx, tokenB)
	require.NoError(t, err)
	assert.NotNil(t, session, "other users' sessions are unaffected")
}

func TestSessionService_InvalidateOthersKeepsCurrent(t *testing.T) {
	store := newFakeSessionStore()
	svc := newSessionService(store)
	ctx := context.Background()

	tokenKeep, kept, err := svc.Create(ctx, 1, "agent", "203.0.113.5", geo.Location{})
	require.NoError(t, err)
	tokenDrop, _, err := svc.Create(ctx, 1, "agent", "203.0.113.6", geo.Location{})
	require.NoError(t, err)

	require.NoError(t, svc.InvalidateOthers(ctx, 1, kept.ID))

	session, _, err := svc.Validate(ctx, tokenKeep)
	require.NoError(t, err)
	assert.NotNil(t, session)

	session, _, err = svc.Validate(ctx, tokenDrop)
	require.NoError(t, err)
	assert.Nil(t, session)
}

func TestSessionService_PurgeExpired(t *testing.T) {
	store := newFakeSessionStore()
	svc := newSessionService(store)
	ctx := context.Background()

	_, live, err := svc.Create(ctx, 1, "agent", "203.0.113.5", geo.Location{})
	require.NoError(t, err)

	_, dead, err := svc.Create(ctx, 1, "agent", "203.0.113.6", geo.Location{})
	require.NoError(t, err)
	expired := dead
	expired.ExpiresAt = time.Now().Add(-time.Hour)
	store.put(expired)

	deleted, err := svc.PurgeExpired(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), deleted)
	assert.True(t, store.has(live.ID))
	assert.False(t, store.has(dead.ID))
}
