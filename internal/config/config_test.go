package config

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad(t *testing.T) {
	keys := []string{
		"REST_ENDPOINTS", "CHAIN_ID", "REDIS_URL", "POLL_INTERVAL", "HTTP_TIMEOUT",
		"MIN_WORKERS", "MAX_WORKERS", "LOG_LEVEL", "METRICS_PORT", "DB_HOST",
		"DB_NAME", "GAS_LIMIT", "WATCH_ADDRESSES", "RATE_LIMIT", "PAIR_ID",
	}

	// Save original env vars
	originalVars := make(map[string]string, len(keys))
	for _, key := range keys {
		originalVars[key] = os.Getenv(key)
	}

	// Restore env vars after test
	defer func() {
		for key, value := range originalVars {
			if value == "" {
				os.Unsetenv(key)
			} else {
				os.Setenv(key, value)
			}
		}
	}()

	clear := func() {
		for _, key := range keys {
			os.Unsetenv(key)
		}
	}

	t.Run("successful load with explicit vars", func(t *testing.T) {
		clear()
		os.Setenv("REST_ENDPOINTS", "http://localhost:1317, http://18.226.214.89:1317")
		os.Setenv("CHAIN_ID", "mychain-test")
		os.Setenv("POLL_INTERVAL", "5s")
		os.Setenv("MIN_WORKERS", "1")
		os.Setenv("MAX_WORKERS", "3")
		os.Setenv("LOG_LEVEL", "debug")
		os.Setenv("WATCH_ADDRESSES", "mychain1abc,,mychain1def")

		cfg, err := Load()
		require.NoError(t, err)

		assert.Equal(t, []string{"http://localhost:1317", "http://18.226.214.89:1317"}, cfg.RESTEndpoints)
		assert.Equal(t, "mychain-test", cfg.ChainID)
		assert.Equal(t, 5*time.Second, cfg.PollInterval)
		assert.Equal(t, 1, cfg.MinWorkers)
		assert.Equal(t, 3, cfg.MaxWorkers)
		assert.Equal(t, "debug", cfg.LogLevel)
		assert.Equal(t, []string{"mychain1abc", "mychain1def"}, cfg.WatchAddresses)
	})

	t.Run("defaults are applied", func(t *testing.T) {
		clear()

		cfg, err := Load()
		require.NoError(t, err)

		assert.Equal(t, []string{"http://localhost:1317"}, cfg.RESTEndpoints)
		assert.Equal(t, "mychain", cfg.ChainID)
		assert.Equal(t, "redis://localhost:6379", cfg.RedisURL)
		assert.Equal(t, 10*time.Second, cfg.PollInterval)
		assert.Equal(t, 10*time.Second, cfg.HTTPTimeout)
		assert.Equal(t, 2, cfg.MinWorkers)
		assert.Equal(t, 10, cfg.MaxWorkers)
		assert.Equal(t, "info", cfg.LogLevel)
		assert.Equal(t, "9100", cfg.MetricsPort)
		assert.Equal(t, "1", cfg.PairID)
		assert.False(t, cfg.DatabaseEnabled())
	})

	t.Run("invalid endpoint", func(t *testing.T) {
		clear()
		os.Setenv("REST_ENDPOINTS", "localhost:1317")

		_, err := Load()
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "invalid REST endpoint")
	})

	t.Run("invalid worker configuration", func(t *testing.T) {
		clear()
		os.Setenv("MIN_WORKERS", "10")
		os.Setenv("MAX_WORKERS", "5")

		_, err := Load()
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "MAX_WORKERS must be greater than or equal to MIN_WORKERS")
	})

	t.Run("invalid log level", func(t *testing.T) {
		clear()
		os.Setenv("LOG_LEVEL", "invalid")

		_, err := Load()
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "invalid LOG_LEVEL")
	})

	t.Run("unparseable poll interval", func(t *testing.T) {
		clear()
		os.Setenv("POLL_INTERVAL", "often")

		_, err := Load()
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "invalid POLL_INTERVAL")
	})

	t.Run("database host requires a name", func(t *testing.T) {
		clear()
		os.Setenv("DB_HOST", "localhost")

		_, err := Load()
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "DB_NAME is required")
	})
}

func TestDSN(t *testing.T) {
	cfg := Config{
		DBHost:     "db",
		DBUser:     "dash",
		DBPassword: "secret",
		DBName:     "journal",
		DBPort:     "5432",
		DBSSLMode:  "disable",
	}
	assert.Equal(t, "host=db user=dash password=secret dbname=journal port=5432 sslmode=disable TimeZone=UTC", cfg.DSN())
}
