package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/rs/cors"
	httpSwagger "github.com/swaggo/http-swagger/v2"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	_ "github.com/olenev/userhub/docs"
	"github.com/olenev/userhub/internal/config"
	"github.com/olenev/userhub/internal/mailer"
	httpDelivery "github.com/olenev/userhub/internal/user/delivery/http"
	"github.com/olenev/userhub/internal/user/domain"
	"github.com/olenev/userhub/internal/user/repository"
	"github.com/olenev/userhub/internal/user/storage"
	"github.com/olenev/userhub/kafka"
	"github.com/olenev/userhub/pkg/auth"
	"github.com/olenev/userhub/pkg/database"
	"github.com/olenev/userhub/pkg/logger"
	"github.com/olenev/userhub/pkg/tracing"
)

const avatarURLPrefix = "/static/avatars"

func main() {
	// Load configuration and initialize logger
	cfg := config.Load("userhub-api")
	logger.Init(cfg.ServiceName, cfg.Environment, cfg.LogLevel)

	logger.Logger.Info().
		Str("service", cfg.ServiceName).
		Str("environment", cfg.Environment).
		Str("log_level", cfg.LogLevel).
		Msg("Starting userhub API")

	// Initialize tracer
	tp, err := tracing.InitTracer(cfg.ServiceName, cfg.Version, cfg.JaegerURL)
	if err != nil {
		logger.Logger.Error().Err(err).Msg("Failed to initialize tracer")
	} else {
		defer func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := tracing.Shutdown(ctx, tp); err != nil {
				logger.Logger.Error().Err(err).Msg("Failed to shutdown tracer")
			}
		}()
	}

	// Connect to database
	db, err := database.NewGormConnection(cfg.Database)
	if err != nil {
		logger.Logger.Fatal().Err(err).Msg("Failed to connect to database")
	}

	sqlDB, err := db.DB()
	if err != nil {
		logger.Logger.Fatal().Err(err).Msg("Failed to get database instance")
	}
	defer sqlDB.Close()

	// Run migrations
	gormRepo := repository.NewGormUserRepository(db)
	if err := gormRepo.AutoMigrate(); err != nil {
		logger.Logger.Fatal().Err(err).Msg("Failed to run migrations")
	}

	logger.Logger.Info().Msg("Database initialized successfully")

	// Connect to Redis. The cache and the rate limiters both degrade
	// gracefully, so an unreachable Redis is a warning, not a fatal.
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	defer rdb.Close()

	pingCtx, pingCancel := context.WithTimeout(context.Background(), 2*time.Second)
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		logger.Logger.Warn().
			Err(err).
			Str("addr", cfg.Redis.Addr).
			Msg("Redis unreachable, running without cache and rate limiting")
	}
	pingCancel()

	// Repository chain: GORM at the bottom, tracing, then the Redis cache
	var repo domain.UserRepository = gormRepo
	repo = repository.NewTracingUserRepository(repo)
	repo = repository.NewCachedUserRepository(repo, rdb, repository.DefaultCacheTTL)

	avatars, err := storage.NewLocalAvatarStorage(cfg.UploadDir, avatarURLPrefix)
	if err != nil {
		logger.Logger.Fatal().Err(err).Msg("Failed to prepare avatar storage")
	}

	tokens := auth.NewTokenManager(cfg.Auth.Secret, cfg.Auth.AccessTTL, cfg.Auth.RefreshTTL, cfg.Auth.EmailTTL)

	// Email dispatch: through Kafka when brokers are configured,
	// in-process over SMTP otherwise.
	var publisher *kafka.Publisher
	var dispatcher mailer.Dispatcher
	if len(cfg.Kafka.Brokers) > 0 {
		publisher, err = kafka.NewPublisher(cfg.Kafka.Brokers)
		if err != nil {
			logger.Logger.Fatal().Err(err).Msg("Failed to create Kafka publisher")
		}
		defer publisher.Close()
		dispatcher = mailer.NewKafkaDispatcher(publisher)
	} else {
		logger.Logger.Info().Msg("No Kafka brokers configured, sending email in-process")
		sender := mailer.NewSMTPSender(mailer.SMTPConfig{
			Host:     cfg.SMTP.Host,
			Port:     cfg.SMTP.Port,
			Username: cfg.SMTP.Username,
			Password: cfg.SMTP.Password,
			FromAddr: cfg.SMTP.FromAddr,
			FromName: cfg.SMTP.FromName,
		}, tokens)
		dispatcher = mailer.NewDirectDispatcher(sender)
	}

	// Initialize HTTP handler
	handler := httpDelivery.NewUserHandler(repo, avatars, tokens, dispatcher, publisher)

	// Setup router
	router := mux.NewRouter()

	// Rate limits: a wide budget for the whole API and a tight one for
	// the credential endpoints. Both fail open when Redis is down.
	globalLimiter := httpDelivery.NewRateLimiter(rdb, "global", cfg.RateLimit.Requests, cfg.RateLimit.Window)
	authLimiter := httpDelivery.NewRateLimiter(rdb, "auth", cfg.RateLimit.AuthRequests, cfg.RateLimit.Window)
	router.Use(globalLimiter.Middleware)
	router.Use(authLimiter.Scoped("/api/auth"))

	// Register routes
	handler.RegisterRoutes(router)

	// Health check endpoint
	handler.RegisterHealthCheck(router, sqlDB)

	// Prometheus metrics endpoint
	router.Handle("/metrics", promhttp.Handler())

	// Swagger UI
	httpDelivery.RegisterSwaggerDocs(router, httpSwagger.Handler())

	// Uploaded avatars
	router.PathPrefix(avatarURLPrefix + "/").Handler(
		http.StripPrefix(avatarURLPrefix+"/", http.FileServer(http.Dir(cfg.UploadDir))),
	)

	// CORS middleware
	c := cors.New(cors.Options{
		AllowedOrigins:   cfg.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"*"},
		AllowCredentials: true,
	})

	srv := &http.Server{
		Addr:    ":" + cfg.HTTPPort,
		Handler: otelhttp.NewHandler(c.Handler(router), "userhub-http"),
	}

	go func() {
		logger.Logger.Info().
			Str("port", cfg.HTTPPort).
			Str("metrics_endpoint", "/metrics").
			Str("swagger_endpoint", "/swagger/index.html").
			Msg("HTTP server started")

		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Logger.Fatal().Err(err).Msg("Failed to start HTTP server")
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Logger.Info().Msg("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Logger.Error().Err(err).Msg("Server forced to shutdown")
	}

	logger.Logger.Info().Msg("Server exited")
}
