package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"careerhub/api/internal/config"
)

// SetSessionCookie binds the raw session token to the transport
// cookie. MaxAge mirrors the server-side lifetime so the client
// expiry stays in sync with expires_at; callers re-set the cookie
// whenever a renewal moved expires_at forward.
func SetSessionCookie(c *gin.Context, cfg *config.AppConfig, token string) {
	c.SetSameSite(http.SameSiteStrictMode)
	c.SetCookie(
		cfg.Session.CookieName,
		token,
		int(cfg.Session.Lifetime.Seconds()),
		"/",
		"",
		cfg.Session.CookieSecure,
		true,
	)
}

// ClearSessionCookie removes the session cookie, on logout and on any
// failed validation.
func ClearSessionCookie(c *gin.Context, cfg *config.AppConfig) {
	c.SetSameSite(http.SameSiteStrictMode)
	c.SetCookie(cfg.Session.CookieName, "", -1, "/", "", cfg.Session.CookieSecure, true)
}
