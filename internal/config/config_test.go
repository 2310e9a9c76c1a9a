package config_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/noah-isme/pos-register/internal/config"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := config.LoadForTests(map[string]string{
		"APP_ENV":                   "",
		"PORT":                      "",
		"REDIS_URL":                 "",
		"CORS_ALLOWED_ORIGINS":      "",
		"REGISTER_MAX_OPEN":         "",
		"REGISTER_DEFAULT_DISCOUNT": "",
		"RATE_LIMIT_WINDOW":         "",
		"RATE_LIMIT_MAX":            "",
		"OBS_ENABLE_TRACING":        "",
		"HTTP_MAX_BODY_BYTES":       "",
		"SECURITY_HEADERS_ENABLED":  "",
	})
	require.NoError(t, err)
	require.Equal(t, "development", cfg.AppEnv)
	require.Equal(t, ":8080", cfg.HTTPAddr())
	require.Empty(t, cfg.RedisURL)
	require.Equal(t, []string{"*"}, cfg.AllowedOrigins())
	require.Equal(t, 1000, cfg.RegisterMaxOpen)
	require.Zero(t, cfg.RegisterDefaultDiscount)
	require.Equal(t, time.Minute, cfg.RateLimitWindow)
	require.Equal(t, 600, cfg.RateLimitMax)
	require.False(t, cfg.TracingEnabled)
	require.Equal(t, int64(1<<20), cfg.MaxBodyBytes)
	require.True(t, cfg.SecurityHeadersEnabled)
}

func TestLoadOverrides(t *testing.T) {
	cfg, err := config.LoadForTests(map[string]string{
		"PORT":                      ":9090",
		"CORS_ALLOWED_ORIGINS":      "https://a.test, https://b.test,",
		"REGISTER_DEFAULT_DISCOUNT": "15",
		"RATE_LIMIT_WINDOW":         "30s",
		"RATE_LIMIT_MAX":            "5",
		"OBS_ENABLE_PROMETHEUS":     "off",
		"IDEMPOTENCY_TTL":           "not-a-duration",
		"HTTP_MAX_BODY_BYTES":       "4096",
		"SECURITY_HSTS_ENABLED":     "yes",
	})
	require.NoError(t, err)
	require.Equal(t, ":9090", cfg.HTTPAddr())
	require.Equal(t, []string{"https://a.test", "https://b.test"}, cfg.AllowedOrigins())
	require.Equal(t, 15, cfg.RegisterDefaultDiscount)
	require.Equal(t, 30*time.Second, cfg.RateLimitWindow)
	require.Equal(t, 5, cfg.RateLimitMax)
	require.False(t, cfg.MetricsEnabled)
	require.Equal(t, 24*time.Hour, cfg.IdempotencyTTL)
	require.Equal(t, int64(4096), cfg.MaxBodyBytes)
	require.True(t, cfg.HSTSEnabled)
}

func TestLoadRejectsDiscountOutOfRange(t *testing.T) {
	_, err := config.LoadForTests(map[string]string{"REGISTER_DEFAULT_DISCOUNT": "101"})
	require.Error(t, err)
}
