package middleware_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"careerhub/api/internal/config"
	"careerhub/api/internal/middleware"
	"careerhub/api/internal/models"
	"careerhub/api/internal/repository"
)

type stubValidator struct {
	session *models.Session
	renewed bool
	err     error
}

func (s *stubValidator) Validate(_ context.Context, _ string) (*models.Session, bool, error) {
	return s.session, s.renewed, s.err
}

type stubUsers struct {
	user models.User
	err  error
}

func (s *stubUsers) GetByID(_ context.Context, _ int64) (models.User, error) {
	return s.user, s.err
}

func testCfg() *config.AppConfig {
	return &config.AppConfig{
		Session: config.SessionConfig{
			Lifetime:      720 * time.Hour,
			RefreshWindow: 360 * time.Hour,
			CookieName:    "session",
		},
	}
}

func setupRouter(cfg *config.AppConfig, users middleware.UserSource, sessions middleware.SessionValidator) *gin.Engine {
	gin.SetMode(gin.TestMode)
	engine := gin.New()
	engine.GET("/protected", middleware.Auth(cfg, users, sessions), func(c *gin.Context) {
		user := c.MustGet(middleware.ContextUser).(models.User)
		c.JSON(http.StatusOK, gin.H{"userId": user.ID})
	})
	return engine
}

func doRequest(engine *gin.Engine, cookie string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	if cookie != "" {
		req.AddCookie(&http.Cookie{Name: "session", Value: cookie})
	}
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, req)
	return w
}

func activeSession() *models.Session {
	return &models.Session{
		ID:        "abc123",
		UserID:    42,
		ExpiresAt: time.Now().Add(time.Hour),
	}
}

func TestAuth_NoCookie(t *testing.T) {
	engine := setupRouter(testCfg(), &stubUsers{}, &stubValidator{})

	w := doRequest(engine, "")

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestAuth_ValidSession(t *testing.T) {
	users := &stubUsers{user: models.User{ID: 42, Status: models.UserStatusActive}}
	sessions := &stubValidator{session: activeSession()}
	engine := setupRouter(testCfg(), users, sessions)

	w := doRequest(engine, "sometoken")

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "42")
}

func TestAuth_NoSessionClearsCookie(t *testing.T) {
	engine := setupRouter(testCfg(), &stubUsers{}, &stubValidator{session: nil})

	w := doRequest(engine, "staletoken")

	assert.Equal(t, http.StatusUnauthorized, w.Code)

	cookies := w.Result().Cookies()
	require.NotEmpty(t, cookies, "failed validation must clear the cookie")
	assert.Equal(t, "session", cookies[0].Name)
	assert.Empty(t, cookies[0].Value)
	assert.Negative(t, cookies[0].MaxAge)
}

func TestAuth_RenewalResetsCookie(t *testing.T) {
	users := &stubUsers{user: models.User{ID: 42, Status: models.UserStatusActive}}
	sessions := &stubValidator{session: activeSession(), renewed: true}
	cfg := testCfg()
	engine := setupRouter(cfg, users, sessions)

	w := doRequest(engine, "sometoken")

	assert.Equal(t, http.StatusOK, w.Code)

	cookies := w.Result().Cookies()
	require.NotEmpty(t, cookies, "renewal must re-sync the cookie")
	assert.Equal(t, "session", cookies[0].Name)
	assert.Equal(t, "sometoken", cookies[0].Value)
	assert.Equal(t, int(cfg.Session.Lifetime.Seconds()), cookies[0].MaxAge)
	assert.True(t, cookies[0].HttpOnly)
}

func TestAuth_StoreFailureIs500(t *testing.T) {
	sessions := &stubValidator{err: errors.New("connection refused")}
	engine := setupRouter(testCfg(), &stubUsers{}, sessions)

	w := doRequest(engine, "sometoken")

	assert.Equal(t, http.StatusInternalServerError, w.Code,
		"datastore outage must not be reported as unauthorized")

	for _, cookie := range w.Result().Cookies() {
		assert.NotEqual(t, "", cookie.Value, "cookie must survive an outage")
	}
}

func TestAuth_SuspendedUser(t *testing.T) {
	users := &stubUsers{user: models.User{ID: 42, Status: models.UserStatusSuspended}}
	engine := setupRouter(testCfg(), users, &stubValidator{session: activeSession()})

	w := doRequest(engine, "sometoken")

	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestAuth_UserGone(t *testing.T) {
	users := &stubUsers{err: repository.ErrUserNotFound}
	engine := setupRouter(testCfg(), users, &stubValidator{session: activeSession()})

	w := doRequest(engine, "sometoken")

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}
