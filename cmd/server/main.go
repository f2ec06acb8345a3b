package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	api "github.com/quizdesk/quizdesk/api/echo"
	"github.com/quizdesk/quizdesk/cache"
	"github.com/quizdesk/quizdesk/config"
	"github.com/quizdesk/quizdesk/internal/audit"
	"github.com/quizdesk/quizdesk/internal/auth"
	"github.com/quizdesk/quizdesk/internal/metrics"
	"github.com/quizdesk/quizdesk/internal/telemetry"
	"github.com/quizdesk/quizdesk/log"
	"github.com/quizdesk/quizdesk/middleware"
	"github.com/quizdesk/quizdesk/mongodb"
	"github.com/quizdesk/quizdesk/realtime"
	"github.com/quizdesk/quizdesk/services"
	"github.com/quizdesk/quizdesk/token"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fallbackLogger := zerolog.New(os.Stderr).With().Timestamp().Logger()
		fallbackLogger.Fatal().Err(err).Msg("failed to load configuration")
	}

	logLevel, parseErr := zerolog.ParseLevel(cfg.LogLevel)
	if parseErr != nil {
		logLevel = zerolog.InfoLevel
	}
	logger := log.NewZerolog(logLevel, cfg.LogPretty)
	ctx := context.Background()

	logger.Info(ctx, "starting quizdesk server", map[string]interface{}{
		"http_port": cfg.HTTPPort,
		"dev_mode":  cfg.DevMode,
	})

	metrics.Register(prometheus.DefaultRegisterer)

	shutdownTracing, err := telemetry.Init(ctx, "quizdesk", cfg.DevMode)
	if err != nil {
		logger.Fatal(ctx, "failed to initialize tracing", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = shutdownTracing(shutdownCtx)
	}()

	// Persistence.
	db, closeMongo, err := mongodb.Connect(ctx, cfg.MongoURI, cfg.MongoDBName)
	if err != nil {
		logger.Fatal(ctx, "failed to connect to MongoDB", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = closeMongo(shutdownCtx)
	}()

	userRepo, err := mongodb.NewUserRepository(ctx, db)
	if err != nil {
		logger.Fatal(ctx, "failed to initialize user repository", err)
	}
	questionRepo, err := mongodb.NewQuestionRepository(ctx, db)
	if err != nil {
		logger.Fatal(ctx, "failed to initialize question repository", err)
	}
	submissionRepo, err := mongodb.NewSubmissionRepository(ctx, db)
	if err != nil {
		logger.Fatal(ctx, "failed to initialize submission repository", err)
	}

	// Ephemeral cache: Redis when configured, in-process otherwise.
	var remote *cache.RedisCache
	var redisClient *redis.Client
	if cfg.RedisAddr != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		remote = cache.NewRedisCache(redisClient, "quizdesk")
	}
	cacheSupervisor := cache.NewSupervisor(remote, logger)
	defer cacheSupervisor.Close()
	if redisClient != nil {
		defer redisClient.Close()
	}

	// Token service: the secret was validated by config.Load, but the
	// constructor enforces it again as the authoritative check.
	tokenService, err := token.NewService(
		cfg.TokenSecret, "quizdesk",
		cfg.AccessTokenTTL(), cfg.RefreshTokenTTL(),
		cfg.DevMode,
	)
	if err != nil {
		logger.Fatal(ctx, "failed to initialize token service", err)
	}

	hasher := auth.NewBcryptPasswordHasher(0)
	auditRecorder := audit.NewRecorder(os.Stdout)

	authService := services.NewAuthService(userRepo, hasher, tokenService, cacheSupervisor, logger)
	quizService := services.NewQuizService(userRepo, questionRepo, submissionRepo, logger)

	hub := realtime.NewHub(realtime.Config{
		Store:          submissionRepo,
		Logger:         logger,
		StaleThreshold: cfg.IdleThreshold(),
		SweepInterval:  cfg.SweepInterval(),
		PingInterval:   cfg.PingInterval(),
		PingTimeout:    cfg.PingTimeout(),
		AllowedOrigins: cfg.CORSOriginList(),
	})
	defer hub.Close()

	authChain := middleware.Authenticate(middleware.AuthConfig{
		Tokens: tokenService,
		Cache:  cacheSupervisor,
		Users:  userRepo,
		Logger: logger,
	})
	adminGate := middleware.RequireAdmin(middleware.AdminConfig{
		Cache:  cacheSupervisor,
		Users:  userRepo,
		Audit:  auditRecorder,
		Logger: logger,
	})

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	apiServer := api.New(api.Config{
		Auth:    authService,
		Quiz:    quizService,
		Cache:   cacheSupervisor,
		Hub:     hub,
		Logger:  logger,
		DevMode: cfg.DevMode,
	})
	apiServer.RegisterRoutes(e, cfg.CORSOriginList(), authChain, adminGate)

	go func() {
		addr := ":" + cfg.HTTPPort
		logger.Info(ctx, "HTTP server listening", map[string]interface{}{"addr": addr})
		if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
			logger.Fatal(ctx, "HTTP server failed", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info(ctx, "shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Error(ctx, "HTTP shutdown failed", err)
	}
}
