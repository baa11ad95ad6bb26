package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, "USD", cfg.Checkout.Currency)
	assert.Equal(t, "US", cfg.Checkout.DefaultCountryCode)
	assert.Equal(t, "International Delivery", cfg.Checkout.FallbackShippingService)
	assert.Equal(t, 7, cfg.Checkout.FallbackDeliveryMin)
	assert.Equal(t, 30, cfg.Checkout.FallbackDeliveryMax)
	assert.Equal(t, 5*time.Second, cfg.Checkout.LookupTimeout)
	assert.False(t, cfg.Email.Enabled)
	assert.Equal(t, "log", cfg.Email.Provider)
	assert.True(t, cfg.IsDevelopment())
	assert.False(t, cfg.IsProduction())
}

func TestLoad_FromEnvironment(t *testing.T) {
	t.Setenv("APP_ENV", "production")
	t.Setenv("CHECKOUT_LOOKUP_TIMEOUT", "750ms")
	t.Setenv("CHECKOUT_MAX_PARALLEL_LOOKUPS", "3")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://a.example,https://b.example")
	t.Setenv("REDIS_HOST", "cache")
	t.Setenv("REDIS_PORT", "6380")

	cfg, err := Load()
	require.NoError(t, err)

	assert.True(t, cfg.IsProduction())
	assert.Equal(t, 750*time.Millisecond, cfg.Checkout.LookupTimeout)
	assert.Equal(t, 3, cfg.Checkout.MaxParallelLookups)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.Security.CORSAllowedOrigins)
	assert.Equal(t, "cache:6380", cfg.GetRedisAddr())
}

func TestLoad_IgnoresMalformedValues(t *testing.T) {
	t.Setenv("CHECKOUT_MAX_PARALLEL_LOOKUPS", "many")
	t.Setenv("PROMETHEUS_ENABLED", "maybe")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 8, cfg.Checkout.MaxParallelLookups)
	assert.True(t, cfg.Metrics.Enabled)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr string
	}{
		{"short jwt secret", func(c *Config) { c.JWT.Secret = "short" }, "JWT_SECRET"},
		{"no parallelism", func(c *Config) { c.Checkout.MaxParallelLookups = 0 }, "CHECKOUT_MAX_PARALLEL_LOOKUPS"},
		{"bad country code", func(c *Config) { c.Checkout.DefaultCountryCode = "USA" }, "2-letter"},
		{"inverted fallback window", func(c *Config) {
			c.Checkout.FallbackDeliveryMin = 10
			c.Checkout.FallbackDeliveryMax = 5
		}, "fallback delivery window"},
		{"unknown email provider", func(c *Config) {
			c.Email.Enabled = true
			c.Email.Provider = "pigeon"
		}, "EMAIL_PROVIDER"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := Load()
			require.NoError(t, err)

			tt.mutate(cfg)
			err = cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestGetDatabaseDSN(t *testing.T) {
	cfg := &Config{Database: DatabaseConfig{
		Host: "db", Port: "5432", User: "u", Password: "p", Name: "n", SSLMode: "disable",
	}}

	assert.Equal(t, "host=db port=5432 user=u password=p dbname=n sslmode=disable", cfg.GetDatabaseDSN())
}
