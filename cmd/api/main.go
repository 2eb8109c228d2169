package main

import (
	"context"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"careerhub/api/internal/cache"
	"careerhub/api/internal/config"
	"careerhub/api/internal/database"
	"careerhub/api/internal/geo"
	"careerhub/api/internal/handlers"
	"careerhub/api/internal/jobs"
	"careerhub/api/internal/log"
	"careerhub/api/internal/server"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	logger := log.New(cfg.Environment)

	ctx := context.Background()

	dbPool, err := database.NewPostgresPool(ctx, cfg.Postgres)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect postgres")
	}

	redisClient, err := cache.NewRedisClient(ctx, cfg.Redis)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect redis")
	}

	// Location enrichment is best-effort; a missing database file only
	// disables the final resolution stage.
	var geoDB geo.GeoDB
	maxmind, err := geo.OpenMaxMindDB(cfg.Geo.DBPath)
	if err != nil {
		logger.Warn().Err(err).Str("path", cfg.Geo.DBPath).Msg("geolocation database unavailable")
	} else {
		geoDB = maxmind
	}

	handlerSet := handlers.NewHandlerSet(logger, dbPool, redisClient, geoDB, cfg)
	httpServer := server.NewHTTPServer(cfg, logger, handlerSet)

	scheduler := jobs.NewScheduler(handlerSet.SessionService(), logger)
	if err := scheduler.Start(); err != nil {
		logger.Error().Err(err).Msg("scheduler start failed")
	}

	go func() {
		if err := httpServer.Start(); err != nil {
			logger.Fatal().Err(err).Msg("http server failed")
		}
	}()

	waitForShutdown(logger, httpServer, scheduler, dbPool, redisClient, maxmind)
}

func waitForShutdown(
	logger zerolog.Logger,
	srv *server.HTTPServer,
	scheduler *jobs.Scheduler,
	db *pgxpool.Pool,
	redisClient *redis.Client,
	geoDB *geo.MaxMindDB,
) {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	<-ctx.Done()
	logger.Info().Msg("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("graceful shutdown failed")
	}

	scheduler.Stop()

	db.Close()
	if err := redisClient.Close(); err != nil {
		logger.Error().Err(err).Msg("redis close error")
	}
	if geoDB != nil {
		if err := geoDB.Close(); err != nil {
			logger.Error().Err(err).Msg("geolocation database close error")
		}
	}

	logger.Info().Msg("server exited cleanly")
}
