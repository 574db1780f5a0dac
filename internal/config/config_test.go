package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("JWT_SECRET", "secret")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "local", cfg.Env)
	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, "mysql", cfg.Database.Driver)
	assert.Equal(t, 3, cfg.Reservation.MaxAttempts)
	assert.Equal(t, 5*time.Second, cfg.Reservation.Timeout)
	assert.Equal(t, []string{"GET"}, cfg.Cache.Methods)
	assert.False(t, cfg.RabbitMQ.Enabled)
	assert.Equal(t, []string{"http://localhost:3000"}, cfg.CORS.Origins())
}

func TestCORSOrigins(t *testing.T) {
	t.Setenv("JWT_SECRET", "secret")
	t.Setenv("CORS_ALLOWED_ORIGINS", "http://localhost:3000, https://events.example.com/")
	t.Setenv("FRONTEND_URL", "https://app.example.com")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, []string{
		"http://localhost:3000",
		"https://events.example.com",
		"https://app.example.com",
	}, cfg.CORS.Origins())

	assert.Equal(t, []string{"https://a.io"}, CORSConfig{AllowedOrigins: []string{"https://a.io", " https://a.io/"}, FrontendURL: "https://a.io"}.Origins())
}

func TestLoadRequiresJWTSecret(t *testing.T) {
	t.Setenv("JWT_SECRET", "")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parse env:")
}

func TestLoadRejectsUnknownDriver(t *testing.T) {
	t.Setenv("JWT_SECRET", "secret")
	t.Setenv("DB_DRIVER", "postgres")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "postgres")
}

func TestLoadRejectsBcryptCost(t *testing.T) {
	t.Setenv("JWT_SECRET", "secret")
	t.Setenv("BCRYPT_COST", "2")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "BCRYPT_COST")
}

func TestLoadClampsReservationAttempts(t *testing.T) {
	t.Setenv("JWT_SECRET", "secret")
	t.Setenv("RESERVE_MAX_ATTEMPTS", "0")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 1, cfg.Reservation.MaxAttempts)
}

func TestRateLimitNormalize(t *testing.T) {
	c := RateLimitConfig{Capacity: 0, RefillTokens: 0, RefillInterval: 0, TTL: time.Second}
	c.normalize()

	assert.Equal(t, 1, c.Capacity)
	assert.Equal(t, 1, c.RefillTokens)
	assert.Equal(t, time.Second, c.RefillInterval)
	assert.Equal(t, 5*time.Second, c.TTL)
}

func TestRedisAddress(t *testing.T) {
	assert.Equal(t, "cache:6380", Redis{Host: "cache", Port: "6380", Addr: "x:1"}.Address())
	assert.Equal(t, "x:1", Redis{Port: "6379", Addr: "x:1"}.Address())
}
