package main

import (
	"context"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"timetrack/api/internal/cache"
	"timetrack/api/internal/config"
	"timetrack/api/internal/database"
	"timetrack/api/internal/handlers"
	"timetrack/api/internal/jobs"
	"timetrack/api/internal/log"
	"timetrack/api/internal/metrics"
	"timetrack/api/internal/repository"
	"timetrack/api/internal/security"
	"timetrack/api/internal/server"
	"timetrack/api/internal/service"
	"timetrack/api/internal/storage"
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
	if cfg.Postgres.MigrateOnStart {
		if err := database.Migrate(ctx, dbPool, logger); err != nil {
			logger.Fatal().Err(err).Msg("failed to migrate database")
		}
	}

	redisClient, err := cache.NewRedisClient(ctx, cfg.Redis)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect redis")
	}

	objectStore, err := storage.NewObjectStore(cfg.Storage)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to init object store")
	}
	if err := objectStore.EnsureBucket(ctx); err != nil {
		logger.Warn().Err(err).Msg("ensure report bucket failed")
	}

	loc, err := cfg.Tracking.Location()
	if err != nil {
		logger.Fatal().Err(err).Msg("invalid tracking timezone")
	}

	m := metrics.New()
	svc := buildServices(cfg, logger, m, dbPool, objectStore, loc)

	limiter := cache.NewFixedWindowLimiter(redisClient, "throttle", cfg.Security.LoginRateLimit, cfg.Security.LoginRateWindow)
	checks := map[string]handlers.HealthCheck{
		"database": dbPool.Ping,
		"cache":    cache.Ping(redisClient),
		"storage":  objectStore.Ping,
	}

	handlerSet := handlers.NewHandlerSet(logger, cfg, svc, limiter, checks)
	httpServer := server.NewHTTPServer(cfg, logger, m, handlerSet)

	scheduler := jobs.NewScheduler(svc.Auth, logger)
	if err := scheduler.Start(); err != nil {
		logger.Error().Err(err).Msg("scheduler start failed")
	}

	go func() {
		if err := httpServer.Start(); err != nil {
			logger.Fatal().Err(err).Msg("http server failed")
		}
	}()

	waitForShutdown(logger, httpServer, scheduler, dbPool, redisClient)
}

func buildServices(cfg *config.AppConfig, logger zerolog.Logger, m *metrics.Metrics, pool *pgxpool.Pool, reports service.ReportStore, loc *time.Location) handlers.Services {
	users := repository.NewUserRepository(pool)
	sessions := repository.NewSessionRepository(pool)
	orgs := repository.NewOrganizationRepository(pool)
	customers := repository.NewCustomerRepository(pool)
	processes := repository.NewProcessRepository(pool)
	entries := repository.NewTimeEntryRepository(pool)
	trackers := repository.NewDailyLoginRepository(pool)

	hasher := security.NewPasswordHasher(security.Argon2Params{
		Time:    cfg.Security.Password.Time,
		Memory:  cfg.Security.Password.Memory,
		Threads: cfg.Security.Password.Threads,
	})
	tokens := security.NewTokenManager(security.TokenConfig{
		AccessSecret:  cfg.Security.JWTAccessSecret,
		RefreshSecret: cfg.Security.JWTRefreshSecret,
		AccessTTL:     cfg.Security.JWTAccessTTL,
		RefreshTTL:    cfg.Security.JWTRefreshTTL,
		Issuer:        cfg.Security.JWTIssuer,
		Audience:      cfg.Security.JWTAudience,
	})

	daily := service.NewDailyLoginService(trackers, loc, m, logger)
	return handlers.Services{
		Auth:    service.NewAuthService(users, sessions, orgs, daily, hasher, tokens, cfg.Security, m, logger),
		Timer:   service.NewTimerService(entries, orgs, customers, processes, m, logger),
		Daily:   daily,
		Catalog: service.NewCatalogService(orgs, customers, processes, users, logger),
		Admin:   service.NewAdminService(users, sessions, hasher, logger),
		Reports: service.NewReportService(entries, reports, loc, m, logger),
	}
}

func waitForShutdown(logger zerolog.Logger, srv *server.HTTPServer, scheduler *jobs.Scheduler, db *pgxpool.Pool, redisClient *redis.Client) {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	<-ctx.Done()
	logger.Info().Msg("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("graceful shutdown failed")
		if err := srv.Shutdown(context.Background()); err != nil {
			logger.Error().Err(err).Msg("forced shutdown failed")
		}
	}

	select {
	case <-scheduler.Stop().Done():
	case <-shutdownCtx.Done():
		logger.Warn().Msg("scheduled jobs still running at shutdown")
	}

	db.Close()
	if err := redisClient.Close(); err != nil {
		logger.Error().Err(err).Msg("redis close error")
	}

	logger.Info().Msg("server exited cleanly")
}
