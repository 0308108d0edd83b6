// AngelaMos | 2026
// main.go

package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/carterperez-dev/templates/tutor-backend/internal/activity"
	"github.com/carterperez-dev/templates/tutor-backend/internal/admin"
	"github.com/carterperez-dev/templates/tutor-backend/internal/auth"
	"github.com/carterperez-dev/templates/tutor-backend/internal/badge"
	"github.com/carterperez-dev/templates/tutor-backend/internal/config"
	"github.com/carterperez-dev/templates/tutor-backend/internal/core"
	"github.com/carterperez-dev/templates/tutor-backend/internal/health"
	"github.com/carterperez-dev/templates/tutor-backend/internal/learner"
	"github.com/carterperez-dev/templates/tutor-backend/internal/middleware"
	"github.com/carterperez-dev/templates/tutor-backend/internal/payment"
	"github.com/carterperez-dev/templates/tutor-backend/internal/quota"
	"github.com/carterperez-dev/templates/tutor-backend/internal/server"
	"github.com/carterperez-dev/templates/tutor-backend/internal/streak"
	"github.com/carterperez-dev/templates/tutor-backend/internal/tutor"
)

const drainDelay = 5 * time.Second

func main() {
	configPath := flag.String("config", "config.yaml", "path to config file")
	migrateOnly := flag.Bool("migrate", false, "apply database migrations and exit")
	generateKeys := flag.Bool("generate-keys", false, "write a new ES256 key pair to the configured paths and exit")
	flag.Parse()

	if err := run(*configPath, *migrateOnly, *generateKeys); err != nil {
		slog.Error("application error", "error", err)
		os.Exit(1)
	}
}

//nolint:funlen // bootstrap code is inherently verbose
func run(configPath string, migrateOnly, generateKeys bool) error {
	ctx, stop := signal.NotifyContext(
		context.Background(),
		syscall.SIGINT,
		syscall.SIGTERM,
	)
	defer stop()

	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	logger := setupLogger(cfg.Log)
	slog.SetDefault(logger)

	if generateKeys {
		if err := auth.GenerateKeyPair(cfg.JWT.PrivateKeyPath, cfg.JWT.PublicKeyPath); err != nil {
			return err
		}
		logger.Info("key pair written",
			"private", cfg.JWT.PrivateKeyPath,
			"public", cfg.JWT.PublicKeyPath,
		)
		return nil
	}

	version, err := core.Migrate(cfg.Database.URL)
	if err != nil {
		return err
	}
	logger.Info("database schema up to date", "version", version)

	if migrateOnly {
		return nil
	}

	logger.Info("starting application",
		"name", cfg.App.Name,
		"version", cfg.App.Version,
		"environment", cfg.App.Environment,
	)

	var telemetry *core.Telemetry
	if cfg.Otel.Enabled {
		tel, telErr := core.NewTelemetry(ctx, cfg.Otel, cfg.App)
		if telErr != nil {
			logger.Warn("failed to initialize telemetry", "error", telErr)
		} else {
			telemetry = tel
			logger.Info("OpenTelemetry tracer initialized",
				"endpoint", cfg.Otel.Endpoint,
			)
		}
	}

	db, err := core.NewDatabase(ctx, cfg.Database)
	if err != nil {
		return err
	}
	logger.Info("database connected",
		"max_open_conns", cfg.Database.MaxOpenConns,
		"max_idle_conns", cfg.Database.MaxIdleConns,
	)

	redis, err := core.NewRedis(ctx, cfg.Redis)
	if err != nil {
		return err
	}
	logger.Info("redis connected",
		"pool_size", cfg.Redis.PoolSize,
		"key_prefix", cfg.Redis.KeyPrefix,
	)

	clock := core.SystemClock{}

	jwtManager, err := auth.NewJWTManager(cfg.JWT, clock)
	if err != nil {
		return err
	}
	logger.Info("JWT manager initialized",
		"algorithm", "ES256",
		"key_id", jwtManager.GetKeyID(),
	)

	provider, err := tutor.NewProvider(ctx, cfg.AI)
	if err != nil {
		return err
	}
	logger.Info("answer provider ready",
		"provider", provider.Name(),
		"model", cfg.AI.Model,
	)

	policy := quota.NewPolicy(quota.Limits{
		QuestionsPerDay: cfg.Quota.QuestionsPerDay,
		UploadsPerDay:   cfg.Quota.UploadsPerDay,
	})

	learnerRepo := learner.NewRepository(db.DB)
	learnerSvc := learner.NewService(learnerRepo, clock)

	streaks := streak.NewEngine(learnerRepo, clock)
	awarder := badge.NewAwarder(learnerRepo, badge.Thresholds{
		PDFExplorerUploads: cfg.Badges.PDFExplorerUploads,
		PolyglotLanguages:  cfg.Badges.PolyglotLanguages,
	}, clock)

	activityRepo := activity.NewRepository(db.DB)
	tracker := activity.NewTracker(learnerSvc, streaks, awarder, activityRepo)
	activitySvc := activity.NewService(activityRepo, learnerSvc, policy, tracker, clock)
	activityHandler := activity.NewHandler(activitySvc, cfg.Quota.MaxUploadBytes)

	learnerHandler := learner.NewHandler(learnerSvc, activitySvc, policy, clock)

	tutorSvc := tutor.NewService(tutor.ServiceConfig{
		Learners: learnerSvc,
		Chats:    activityRepo,
		Tracker:  tracker,
		Provider: provider,
		Policy:   policy,
		Clock:    clock,
		Timeout:  cfg.AI.Timeout,
	})
	tutorHandler := tutor.NewHandler(tutorSvc)

	paymentRepo := payment.NewRepository(db.DB)
	activator := payment.NewActivator(paymentRepo, learnerSvc, cfg.Premium.Period, clock)
	paymentSvc := payment.NewService(paymentRepo, activator, cfg.Premium, cfg.Payments, clock)
	paymentHandler := payment.NewHandler(paymentSvc, cfg.Payments)

	authRepo := auth.NewRepository(db.DB)
	authSvc := auth.NewService(authRepo, jwtManager, learnerSvc, redis, clock)
	authHandler := auth.NewHandler(authSvc)

	healthHandler := health.NewHandler(cfg.App.Version,
		health.Dependency{Name: "database", Checker: db},
		health.Dependency{Name: "redis", Checker: redis},
	)

	adminHandler := admin.NewHandler(admin.HandlerConfig{
		DBStats:    db.Stats,
		RedisStats: redis.PoolStats,
		DBPing:     db.Ping,
		RedisPing:  redis.Ping,
		Learners:   learnerSvc,
		Payments:   paymentSvc,
		Sessions:   authSvc,
		Clock:      clock,
	})

	srv := server.New(server.Config{
		ServerConfig:  cfg.Server,
		HealthHandler: healthHandler,
		Logger:        logger,
	})

	router := srv.Router()

	router.Use(middleware.RequestID)
	router.Use(middleware.Logger(logger))
	router.Use(
		middleware.NewRateLimiter(redis.Client, middleware.RateLimitConfig{
			Limit: middleware.PerMinute(
				cfg.RateLimit.Requests,
				cfg.RateLimit.Burst,
			),
			FailOpen: true,
		}).Handler,
	)
	router.Use(middleware.SecurityHeaders(cfg.IsProduction()))
	router.Use(middleware.CORS(cfg.CORS))

	healthHandler.RegisterRoutes(router)

	router.Get("/.well-known/jwks.json", jwtManager.GetJWKSHandler())

	authenticator := middleware.Authenticator(authSvc)
	adminKey := middleware.RequireAdminKey(cfg.Admin.APIKey)
	askLimit := middleware.NewRateLimiter(redis.Client, middleware.RateLimitConfig{
		Limit:    middleware.PerMinute(cfg.RateLimit.AskRequests, cfg.RateLimit.AskBurst),
		KeyFunc:  middleware.KeyByLearnerAndEndpoint,
		FailOpen: true,
	}).Handler

	router.Route("/v1", func(r chi.Router) {
		authHandler.RegisterRoutes(r, authenticator)
		learnerHandler.RegisterRoutes(r, authenticator)
		tutorHandler.RegisterRoutes(r, authenticator, askLimit)
		activityHandler.RegisterRoutes(r, authenticator)
		paymentHandler.RegisterRoutes(r, authenticator)
		badge.NewHandler().RegisterRoutes(r)
		adminHandler.RegisterRoutes(r, adminKey)
	})

	errChan := make(chan error, 1)
	go func() {
		errChan <- srv.Start()
	}()

	select {
	case err := <-errChan:
		return err
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	}

	shutdownCtx, cancel := context.WithTimeout(
		context.Background(),
		cfg.Server.ShutdownTimeout+drainDelay+5*time.Second,
	)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx, drainDelay); err != nil {
		logger.Error("server shutdown error", "error", err)
	}

	if telemetry != nil {
		if err := telemetry.Shutdown(shutdownCtx); err != nil {
			logger.Error("telemetry shutdown error", "error", err)
		}
	}

	if err := redis.Close(); err != nil {
		logger.Error("redis close error", "error", err)
	}

	if err := db.Close(); err != nil {
		logger.Error("database close error", "error", err)
	}

	logger.Info("application stopped")
	return nil
}

func setupLogger(cfg config.LogConfig) *slog.Logger {
	var handler slog.Handler

	level := slog.LevelInfo
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}

	opts := &slog.HandlerOptions{Level: level}

	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}

	return slog.New(handler)
}
