package main

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/akylbek/payment-system/payment-intents/internal/api"
	"github.com/akylbek/payment-system/payment-intents/internal/config"
	"github.com/akylbek/payment-system/payment-intents/internal/events"
	"github.com/akylbek/payment-system/payment-intents/internal/grpcserver"
	"github.com/akylbek/payment-system/payment-intents/internal/interfaces"
	"github.com/akylbek/payment-system/payment-intents/internal/repository"
	"github.com/akylbek/payment-system/payment-intents/internal/service"
	"github.com/akylbek/payment-system/payment-intents/internal/telemetry"
	"github.com/akylbek/payment-system/payment-intents/internal/webhook"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "invalid configuration: %v\n", err)
		os.Exit(1)
	}

	if err := telemetry.InitTelemetry(telemetry.DefaultServiceName, cfg.JaegerEndpoint); err != nil {
		panic(fmt.Sprintf("Failed to initialize telemetry: %v", err))
	}
	defer telemetry.Shutdown(context.Background())

	telemetry.Logger.Info("Starting payment intent service",
		zap.String("mode", string(cfg.CompletionMode)),
		zap.String("expiry_policy", string(cfg.ExpiryPolicy)),
		zap.Duration("expiry_threshold", cfg.ExpiryThreshold),
	)

	// Signing is checked here, once, so an unsigned webhook can never go out.
	var dispatcher interfaces.WebhookDispatcher
	if cfg.WebhooksEnabled() {
		signer, err := webhook.NewSigner(cfg.WebhookSecret)
		if err != nil {
			telemetry.Logger.Fatal("Failed to initialize webhook signer", zap.Error(err))
		}
		d, err := webhook.NewDispatcher(signer, webhook.Options{
			Timeout:     cfg.WebhookTimeout,
			MaxAttempts: cfg.WebhookMaxAttempts,
			RetryWait:   cfg.WebhookRetryWait,
			AuthToken:   cfg.ServiceAuthToken,
		})
		if err != nil {
			telemetry.Logger.Fatal("Failed to initialize webhook dispatcher", zap.Error(err))
		}
		dispatcher = d
	} else {
		telemetry.Logger.Warn("PAYMENT_WEBHOOK_SECRET not set, intents with a callback_url will be rejected")
	}

	publisher := buildPublisher(cfg)
	defer publisher.Close()

	ledger := repository.NewIntentLedger(repository.WithExpiryPolicy(cfg.ExpiryPolicy))
	intents := service.NewIntentService(ledger, dispatcher, publisher, service.Options{
		Mode:              cfg.CompletionMode,
		AutoCompleteDelay: cfg.AutoCompleteDelay,
	})
	sweeper := service.NewExpirySweeper(ledger, publisher, service.SweeperOptions{
		Interval:  cfg.SweepInterval,
		Threshold: cfg.ExpiryThreshold,
	})

	sweepCtx, stopSweep := context.WithCancel(context.Background())
	sweepDone := make(chan struct{})
	go func() {
		sweeper.Run(sweepCtx)
		close(sweepDone)
	}()

	var health *grpcserver.HealthServer
	if cfg.GRPCPort != "" {
		lis, err := net.Listen("tcp", ":"+cfg.GRPCPort)
		if err != nil {
			telemetry.Logger.Fatal("Failed to listen for gRPC", zap.Error(err))
		}
		health = grpcserver.NewHealthServer()
		go func() {
			if err := health.Serve(lis); err != nil {
				telemetry.Logger.Error("gRPC health server stopped", zap.Error(err))
			}
		}()
	}

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: api.NewRouter(intents),
	}

	go func() {
		telemetry.Logger.Info("Payment intent service listening", zap.String("port", cfg.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			telemetry.Logger.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	telemetry.Logger.Info("Shutting down server...")
	if health != nil {
		health.Shutdown()
	}

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		telemetry.Logger.Error("Server forced to shutdown", zap.Error(err))
	}

	stopSweep()
	<-sweepDone

	if err := intents.Close(ctx); err != nil {
		telemetry.Logger.Error("Pending webhook deliveries abandoned", zap.Error(err))
	}

	telemetry.Logger.Info("Server exited")
}

// buildPublisher connects every configured event sink. A sink that cannot be
// reached at startup is logged and left out.
func buildPublisher(cfg *config.Config) *events.FanOut {
	fan := events.NewFanOut()

	if cfg.KafkaBrokers != "" {
		fan.Add("kafka", events.NewKafkaPublisher(cfg.KafkaBrokers))
	}
	if cfg.NatsURL != "" {
		pub, err := events.NewNATSPublisher(cfg.NatsURL)
		if err != nil {
			telemetry.Logger.Error("NATS event sink disabled", zap.Error(err))
		} else {
			fan.Add("nats", pub)
		}
	}
	if cfg.RedisURL != "" {
		pub, err := events.NewRedisPublisher(cfg.RedisURL)
		if err != nil {
			telemetry.Logger.Error("Redis event sink disabled", zap.Error(err))
		} else {
			fan.Add("redis", pub)
		}
	}

	telemetry.Logger.Info("Event sinks configured", zap.Int("count", fan.Len()))
	return fan
}
