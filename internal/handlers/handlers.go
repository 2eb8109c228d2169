package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"careerhub/api/internal/config"
	"careerhub/api/internal/geo"
	"careerhub/api/internal/middleware"
	"careerhub/api/internal/repository"
	"careerhub/api/internal/service"
)

type HandlerSet struct {
	log         zerolog.Logger
	cfg         *config.AppConfig
	authService *service.AuthService
	sessions    *service.SessionService
	location    *geo.Resolver
	users       *repository.UserRepository
	db          *pgxpool.Pool
	cache       *redis.Client
}

func NewHandlerSet(log zerolog.Logger, db *pgxpool.Pool, cache *redis.Client, geoDB geo.GeoDB, cfg *config.AppConfig) HandlerSet {
	userRepo := repository.NewUserRepository(db)
	sessionRepo := repository.NewSessionRepository(db)

	sessions := service.NewSessionService(sessionRepo, cfg, log)
	throttle := service.NewLoginThrottle(cache, cfg.Security.LoginMaxAttempts, cfg.Security.LoginWindow, log)
	auth := service.NewAuthService(userRepo, sessions, throttle, log)
	location := geo.NewResolver(geoDB, cfg.Geo.LookupTimeout)

	return HandlerSet{
		log:         log,
		cfg:         cfg,
		authService: auth,
		sessions:    sessions,
		location:    location,
		users:       userRepo,
		db:          db,
		cache:       cache,
	}
}

// SessionService exposes the lifecycle service for background jobs.
func (h HandlerSet) SessionService() *service.SessionService {
	return h.sessions
}

func (h HandlerSet) Register(router *gin.RouterGroup) {
	router.GET("/healthz", h.Health)

	v1 := router.Group("/v1")
	{
		auth := v1.Group("/auth")
		auth.POST("/register", h.RegisterUser)
		auth.POST("/login", h.Login)
		auth.POST("/logout", h.Logout)

		protected := v1.Group("/auth")
		protected.Use(middleware.Auth(h.cfg, h.users, h.sessions))
		protected.GET("/me", h.Me)
		protected.GET("/location", h.CurrentLocation)
		protected.PUT("/password", h.ChangePassword)
		protected.GET("/sessions", h.ListSessions)
		protected.DELETE("/sessions", h.RevokeOtherSessions)
		protected.DELETE("/sessions/:id", h.RevokeSession)
	}
}
