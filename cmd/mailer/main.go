package main

import (
	"context"
	"encoding/json"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/olenev/userhub/internal/config"
	"github.com/olenev/userhub/internal/mailer"
	"github.com/olenev/userhub/kafka"
	"github.com/olenev/userhub/pkg/auth"
	"github.com/olenev/userhub/pkg/breaker"
	"github.com/olenev/userhub/pkg/logger"
	"github.com/olenev/userhub/pkg/tracing"
)

func main() {
	// Load configuration and initialize logger
	cfg := config.Load("userhub-mailer")
	if os.Getenv("HTTP_PORT") == "" {
		// Default differs from the API so both run on one host
		cfg.HTTPPort = "8081"
	}
	logger.Init(cfg.ServiceName, cfg.Environment, cfg.LogLevel)

	logger.Logger.Info().
		Str("service", cfg.ServiceName).
		Str("environment", cfg.Environment).
		Str("log_level", cfg.LogLevel).
		Msg("Starting mailer worker")

	// The worker only exists to drain the email topic
	if len(cfg.Kafka.Brokers) == 0 {
		logger.Logger.Fatal().Msg("KAFKA_BROKERS must be set for the mailer worker")
	}

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

	// The sender mints verification tokens itself, so it needs the same
	// signing secret as the API.
	tokens := auth.NewTokenManager(cfg.Auth.Secret, cfg.Auth.AccessTTL, cfg.Auth.RefreshTTL, cfg.Auth.EmailTTL)
	sender := mailer.NewSMTPSender(mailer.SMTPConfig{
		Host:     cfg.SMTP.Host,
		Port:     cfg.SMTP.Port,
		Username: cfg.SMTP.Username,
		Password: cfg.SMTP.Password,
		FromAddr: cfg.SMTP.FromAddr,
		FromName: cfg.SMTP.FromName,
	}, tokens)

	// Initialize Kafka consumer
	consumer, err := kafka.NewConsumer(cfg.Kafka.Brokers, cfg.Kafka.GroupID, []string{kafka.TopicEmailRequests})
	if err != nil {
		logger.Logger.Fatal().Err(err).Msg("Failed to create Kafka consumer")
	}

	consumer.RegisterHandler(kafka.EventTypeEmailRequested, func(ctx context.Context, event kafka.EmailRequestedEvent) error {
		switch event.Kind {
		case kafka.EmailKindVerification:
			return sender.SendVerification(ctx, event.Email, event.Username, event.BaseURL)
		default:
			logger.Warn(ctx).
				Str("kind", event.Kind).
				Str("event_id", event.EventID).
				Msg("Unknown email kind, dropping event")
			return nil
		}
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := consumer.Start(ctx); err != nil {
		logger.Logger.Fatal().Err(err).Msg("Failed to start Kafka consumer")
	}

	// Health and metrics endpoints
	router := mux.NewRouter()
	router.HandleFunc("/health", healthHandler(sender)).Methods("GET")
	router.Handle("/metrics", promhttp.Handler())

	srv := &http.Server{
		Addr:    ":" + cfg.HTTPPort,
		Handler: router,
	}

	go func() {
		logger.Logger.Info().
			Str("port", cfg.HTTPPort).
			Str("metrics_endpoint", "/metrics").
			Msg("Mailer health server started")

		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Logger.Fatal().Err(err).Msg("Failed to start health server")
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Logger.Info().Msg("Shutting down mailer...")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Logger.Error().Err(err).Msg("Health server forced to shutdown")
	}
	if err := consumer.Close(); err != nil {
		logger.Logger.Error().Err(err).Msg("Failed to close Kafka consumer")
	}

	logger.Logger.Info().Msg("Mailer exited")
}

// healthHandler reports worker health. The SMTP circuit state decides
// the status code so orchestrators can see a dead mail server.
func healthHandler(sender *mailer.SMTPSender) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		cb := sender.Breaker()

		status := http.StatusOK
		label := "ok"
		if cb.GetState() == breaker.StateOpen {
			status = http.StatusServiceUnavailable
			label = "degraded"
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		json.NewEncoder(w).Encode(map[string]interface{}{
			"status":       label,
			"smtp_circuit": cb.GetStats(),
		})
	}
}
