package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/akylbek/payment-system/payment-intents/internal/models"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "9001", cfg.Port)
	assert.Equal(t, "9091", cfg.GRPCPort)
	assert.Equal(t, models.ModeManual, cfg.CompletionMode)
	assert.Equal(t, 3*time.Second, cfg.AutoCompleteDelay)
	assert.Equal(t, 20*time.Second, cfg.ExpiryThreshold)
	assert.Equal(t, time.Second, cfg.SweepInterval)
	assert.Equal(t, models.ExpiryPolicyExpire, cfg.ExpiryPolicy)
	assert.Equal(t, 10*time.Second, cfg.WebhookTimeout)
	assert.Equal(t, 1, cfg.WebhookMaxAttempts)
	assert.Equal(t, 500*time.Millisecond, cfg.WebhookRetryWait)
	assert.False(t, cfg.WebhooksEnabled())
}

func TestLoad_FromEnvironment(t *testing.T) {
	t.Setenv("PORT", "8080")
	t.Setenv("GRPC_PORT", "")
	t.Setenv("PAYMENT_WEBHOOK_SECRET", "shh")
	t.Setenv("SERVICE_AUTH_TOKEN", "svc")
	t.Setenv("PAYMENT_COMPLETION_MODE", "auto")
	t.Setenv("PAYMENT_CALLBACK_DELAY", "1.5")
	t.Setenv("PAYMENT_EXPIRY_THRESHOLD", "60")
	t.Setenv("PAYMENT_SWEEP_INTERVAL", "0.25")
	t.Setenv("PAYMENT_EXPIRY_POLICY", "remove")
	t.Setenv("WEBHOOK_MAX_ATTEMPTS", "4")
	t.Setenv("KAFKA_BROKERS", "kafka:9092")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Port)
	assert.Empty(t, cfg.GRPCPort)
	assert.Equal(t, "shh", cfg.WebhookSecret)
	assert.Equal(t, "svc", cfg.ServiceAuthToken)
	assert.Equal(t, models.ModeAuto, cfg.CompletionMode)
	assert.Equal(t, 1500*time.Millisecond, cfg.AutoCompleteDelay)
	assert.Equal(t, time.Minute, cfg.ExpiryThreshold)
	assert.Equal(t, 250*time.Millisecond, cfg.SweepInterval)
	assert.Equal(t, models.ExpiryPolicyRemove, cfg.ExpiryPolicy)
	assert.Equal(t, 4, cfg.WebhookMaxAttempts)
	assert.Equal(t, "kafka:9092", cfg.KafkaBrokers)
	assert.True(t, cfg.WebhooksEnabled())
}

func TestLoad_AutoModeNeedsSecret(t *testing.T) {
	t.Setenv("PAYMENT_COMPLETION_MODE", "auto")

	_, err := Load()
	assert.ErrorIs(t, err, models.ErrMisconfiguredSecret)
}

func TestValidate(t *testing.T) {
	valid := func() Config {
		return Config{
			CompletionMode:     models.ModeManual,
			ExpiryPolicy:       models.ExpiryPolicyExpire,
			AutoCompleteDelay:  time.Second,
			ExpiryThreshold:    time.Second,
			SweepInterval:      time.Second,
			WebhookTimeout:     time.Second,
			WebhookRetryWait:   time.Second,
			WebhookMaxAttempts: 1,
		}
	}

	tests := []struct {
		name   string
		mutate func(*Config)
		errMsg string
	}{
		{name: "valid", mutate: func(*Config) {}},
		{name: "unknown mode", mutate: func(c *Config) { c.CompletionMode = "webhook" }, errMsg: "PAYMENT_COMPLETION_MODE"},
		{name: "unknown policy", mutate: func(c *Config) { c.ExpiryPolicy = "delete" }, errMsg: "PAYMENT_EXPIRY_POLICY"},
		{name: "zero threshold", mutate: func(c *Config) { c.ExpiryThreshold = 0 }, errMsg: "PAYMENT_EXPIRY_THRESHOLD"},
		{name: "negative interval", mutate: func(c *Config) { c.SweepInterval = -time.Second }, errMsg: "PAYMENT_SWEEP_INTERVAL"},
		{name: "no attempts", mutate: func(c *Config) { c.WebhookMaxAttempts = 0 }, errMsg: "WEBHOOK_MAX_ATTEMPTS"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.errMsg == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errMsg)
		})
	}
}
