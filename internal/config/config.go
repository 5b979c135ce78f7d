package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/akylbek/payment-system/payment-intents/internal/models"
)

type Config struct {
	Port     string
	GRPCPort string

	WebhookSecret      string
	ServiceAuthToken   string
	WebhookTimeout     time.Duration
	WebhookMaxAttempts int
	WebhookRetryWait   time.Duration

	CompletionMode    models.CompletionMode
	AutoCompleteDelay time.Duration
	ExpiryThreshold   time.Duration
	SweepInterval     time.Duration
	ExpiryPolicy      models.ExpiryPolicy

	RedisURL       string
	KafkaBrokers   string
	NatsURL        string
	JaegerEndpoint string
}

// Load reads an optional .env file, then the environment, and validates the
// result. Durations are given in (possibly fractional) seconds.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("read .env: %w", err)
	}

	v := viper.New()
	v.AutomaticEnv()
	v.AllowEmptyEnv(true)
	setDefaults(v)

	cfg := &Config{
		Port:     v.GetString("PORT"),
		GRPCPort: v.GetString("GRPC_PORT"),

		WebhookSecret:      v.GetString("PAYMENT_WEBHOOK_SECRET"),
		ServiceAuthToken:   v.GetString("SERVICE_AUTH_TOKEN"),
		WebhookTimeout:     seconds(v.GetFloat64("WEBHOOK_TIMEOUT")),
		WebhookMaxAttempts: v.GetInt("WEBHOOK_MAX_ATTEMPTS"),
		WebhookRetryWait:   seconds(v.GetFloat64("WEBHOOK_RETRY_WAIT")),

		CompletionMode:    models.CompletionMode(v.GetString("PAYMENT_COMPLETION_MODE")),
		AutoCompleteDelay: seconds(v.GetFloat64("PAYMENT_CALLBACK_DELAY")),
		ExpiryThreshold:   seconds(v.GetFloat64("PAYMENT_EXPIRY_THRESHOLD")),
		SweepInterval:     seconds(v.GetFloat64("PAYMENT_SWEEP_INTERVAL")),
		ExpiryPolicy:      models.ExpiryPolicy(v.GetString("PAYMENT_EXPIRY_POLICY")),

		RedisURL:       v.GetString("REDIS_URL"),
		KafkaBrokers:   v.GetString("KAFKA_BROKERS"),
		NatsURL:        v.GetString("NATS_URL"),
		JaegerEndpoint: v.GetString("JAEGER_ENDPOINT"),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("PORT", "9001")
	v.SetDefault("GRPC_PORT", "9091")
	v.SetDefault("WEBHOOK_TIMEOUT", 10)
	v.SetDefault("WEBHOOK_MAX_ATTEMPTS", 1)
	v.SetDefault("WEBHOOK_RETRY_WAIT", 0.5)
	v.SetDefault("PAYMENT_COMPLETION_MODE", string(models.ModeManual))
	v.SetDefault("PAYMENT_CALLBACK_DELAY", 3)
	v.SetDefault("PAYMENT_EXPIRY_THRESHOLD", 20)
	v.SetDefault("PAYMENT_SWEEP_INTERVAL", 1)
	v.SetDefault("PAYMENT_EXPIRY_POLICY", string(models.ExpiryPolicyExpire))
}

func seconds(s float64) time.Duration {
	return time.Duration(s * float64(time.Second))
}

func (c *Config) Validate() error {
	var errs []error

	switch c.CompletionMode {
	case models.ModeManual, models.ModeAuto:
	default:
		errs = append(errs, fmt.Errorf("PAYMENT_COMPLETION_MODE must be %q or %q, got %q",
			models.ModeManual, models.ModeAuto, c.CompletionMode))
	}

	switch c.ExpiryPolicy {
	case models.ExpiryPolicyExpire, models.ExpiryPolicyRemove:
	default:
		errs = append(errs, fmt.Errorf("PAYMENT_EXPIRY_POLICY must be %q or %q, got %q",
			models.ExpiryPolicyExpire, models.ExpiryPolicyRemove, c.ExpiryPolicy))
	}

	for _, d := range []struct {
		key   string
		value time.Duration
	}{
		{"PAYMENT_CALLBACK_DELAY", c.AutoCompleteDelay},
		{"PAYMENT_EXPIRY_THRESHOLD", c.ExpiryThreshold},
		{"PAYMENT_SWEEP_INTERVAL", c.SweepInterval},
		{"WEBHOOK_TIMEOUT", c.WebhookTimeout},
		{"WEBHOOK_RETRY_WAIT", c.WebhookRetryWait},
	} {
		if d.value <= 0 {
			errs = append(errs, fmt.Errorf("%s must be positive, got %s", d.key, d.value))
		}
	}

	if c.WebhookMaxAttempts < 1 {
		errs = append(errs, fmt.Errorf("WEBHOOK_MAX_ATTEMPTS must be at least 1, got %d", c.WebhookMaxAttempts))
	}

	if c.CompletionMode == models.ModeAuto && c.WebhookSecret == "" {
		errs = append(errs, fmt.Errorf("%w: PAYMENT_WEBHOOK_SECRET is required in auto mode", models.ErrMisconfiguredSecret))
	}

	return errors.Join(errs...)
}

// WebhooksEnabled reports whether outbound webhooks can be signed.
func (c *Config) WebhooksEnabled() bool {
	return c.WebhookSecret != ""
}
