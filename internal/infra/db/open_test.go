package db

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestDefaultConnectionConfig(t *testing.T) {
	cfg := DefaultConnectionConfig()

	assert.Equal(t, 25, cfg.MaxOpenConns)
	assert.Equal(t, 10, cfg.MaxIdleConns)
	assert.Equal(t, 1*time.Hour, cfg.ConnMaxLifetime)
	assert.Equal(t, 30*time.Minute, cfg.ConnMaxIdleTime)
}

func TestConnectionConfigFromEnv(t *testing.T) {
	t.Run("defaults when unset", func(t *testing.T) {
		cfg := connectionConfigFromEnv()
		assert.Equal(t, DefaultConnectionConfig(), cfg)
	})

	t.Run("overrides from environment", func(t *testing.T) {
		t.Setenv("DB_MAX_OPEN_CONNS", "50")
		t.Setenv("DB_MAX_IDLE_CONNS", "20")
		t.Setenv("DB_CONN_MAX_LIFETIME", "2h")
		t.Setenv("DB_CONN_MAX_IDLE_TIME", "15m")

		cfg := connectionConfigFromEnv()
		assert.Equal(t, 50, cfg.MaxOpenConns)
		assert.Equal(t, 20, cfg.MaxIdleConns)
		assert.Equal(t, 2*time.Hour, cfg.ConnMaxLifetime)
		assert.Equal(t, 15*time.Minute, cfg.ConnMaxIdleTime)
	})

	t.Run("invalid values fall back to defaults", func(t *testing.T) {
		t.Setenv("DB_MAX_OPEN_CONNS", "not-a-number")
		t.Setenv("DB_CONN_MAX_LIFETIME", "bogus")

		cfg := connectionConfigFromEnv()
		assert.Equal(t, 25, cfg.MaxOpenConns)
		assert.Equal(t, 1*time.Hour, cfg.ConnMaxLifetime)
	})
}
