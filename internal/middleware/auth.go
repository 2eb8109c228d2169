package middleware

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"careerhub/api/internal/config"
	"careerhub/api/internal/models"
	"careerhub/api/internal/repository"
)

// Context keys set by Auth for downstream handlers.
const (
	ContextUser    = "current_user"
	ContextSession = "current_session"
)

type SessionValidator interface {
	Validate(ctx context.Context, token string) (*models.Session, bool, error)
}

type UserSource interface {
	GetByID(ctx context.Context, id int64) (models.User, error)
}

// Auth authenticates requests from the session cookie. An invalid,
// expired or missing session gets a uniform 401 with the cookie
// cleared; a store failure is a 500, never downgraded to 401. When
// validation renewed the session, the cookie is re-set so the client
// MaxAge follows the new expiry.
func Auth(cfg *config.AppConfig, users UserSource, sessions SessionValidator) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, err := c.Cookie(cfg.Session.CookieName)
		if err != nil || token == "" {
			abortUnauthorized(c, cfg)
			return
		}

		session, renewed, err := sessions.Validate(c.Request.Context(), token)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "internal_server_error"})
			return
		}
		if session == nil {
			abortUnauthorized(c, cfg)
			return
		}

		if renewed {
			SetSessionCookie(c, cfg, token)
		}

		user, err := users.GetByID(c.Request.Context(), session.UserID)
		if err != nil {
			if errors.Is(err, repository.ErrUserNotFound) {
				abortUnauthorized(c, cfg)
				return
			}
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "internal_server_error"})
			return
		}

		if user.Status != models.UserStatusActive {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "user_suspended"})
			return
		}

		c.Set(ContextSession, *session)
		c.Set(ContextUser, user)

		c.Next()
	}
}

func abortUnauthorized(c *gin.Context, cfg *config.AppConfig) {
	ClearSessionCookie(c, cfg)
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
}
