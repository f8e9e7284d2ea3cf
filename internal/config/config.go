package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all configuration for the dashboard backend and its tools
type Config struct {
	// Chain configuration
	RESTEndpoints []string
	ChainID       string
	Bech32Prefix  string
	HTTPTimeout   time.Duration
	RateLimit     float64

	// Watcher configuration
	PollInterval   time.Duration
	MinWorkers     int
	MaxWorkers     int
	WatchAddresses []string
	PairID         string

	// Redis configuration
	RedisURL string

	// Database configuration, the purchase journal is disabled when DBHost is empty
	DBHost     string
	DBUser     string
	DBPassword string
	DBName     string
	DBPort     string
	DBSSLMode  string

	// Kafka configuration, purchase events are not emitted when KafkaBroker is empty
	KafkaBroker string
	KafkaTopic  string

	// Servers
	APIPort         string
	MetricsPort     string
	ProxyPort       string
	ProxyTarget     string
	MockPort        string
	MockFixtures    string
	CORSAllowOrigin string

	// Signing and fees
	SignerKeyHex string
	FeeDenom     string
	FeeAmount    string
	GasLimit     string

	// Logging configuration
	LogLevel string
}

// Load reads configuration from environment variables and validates it
func Load() (Config, error) {
	cfg := Config{
		ChainID:         getEnv("CHAIN_ID", "mychain"),
		Bech32Prefix:    getEnv("BECH32_PREFIX", "mychain"),
		PairID:          getEnv("PAIR_ID", "1"),
		RedisURL:        getEnv("REDIS_URL", "redis://localhost:6379"),
		DBHost:          getEnv("DB_HOST", ""),
		DBUser:          getEnv("DB_USER", ""),
		DBPassword:      getEnv("DB_PASSWORD", ""),
		DBName:          getEnv("DB_NAME", ""),
		DBPort:          getEnv("DB_PORT", "5432"),
		DBSSLMode:       getEnv("DB_SSL_MODE", "disable"),
		KafkaBroker:     getEnv("KAFKA_BROKER", ""),
		KafkaTopic:      getEnv("KAFKA_TOPIC", "maincoin-purchases"),
		APIPort:         getEnv("API_PORT", "3001"),
		MetricsPort:     getEnv("METRICS_PORT", "9100"),
		ProxyPort:       getEnv("PROXY_PORT", "8081"),
		ProxyTarget:     getEnv("PROXY_TARGET", "http://localhost:1317"),
		MockPort:        getEnv("MOCK_PORT", "1317"),
		MockFixtures:    getEnv("MOCK_FIXTURES", ""),
		CORSAllowOrigin: getEnv("CORS_ALLOW_ORIGIN", "*"),
		SignerKeyHex:    getEnv("SIGNER_KEY_HEX", ""),
		FeeDenom:        getEnv("FEE_DENOM", "ulc"),
		FeeAmount:       getEnv("FEE_AMOUNT", "5000"),
		GasLimit:        getEnv("GAS_LIMIT", "200000"),
		LogLevel:        getEnv("LOG_LEVEL", "info"),
	}

	cfg.RESTEndpoints = splitList(getEnv("REST_ENDPOINTS", "http://localhost:1317"))
	cfg.WatchAddresses = splitList(getEnv("WATCH_ADDRESSES", ""))

	var err error
	cfg.HTTPTimeout, err = parseDurationEnv("HTTP_TIMEOUT", 10*time.Second)
	if err != nil {
		return cfg, fmt.Errorf("invalid HTTP_TIMEOUT: %w", err)
	}

	cfg.PollInterval, err = parseDurationEnv("POLL_INTERVAL", 10*time.Second)
	if err != nil {
		return cfg, fmt.Errorf("invalid POLL_INTERVAL: %w", err)
	}

	cfg.RateLimit, err = parseFloatEnv("RATE_LIMIT", 5)
	if err != nil {
		return cfg, fmt.Errorf("invalid RATE_LIMIT: %w", err)
	}

	cfg.MinWorkers, err = parseIntEnv("MIN_WORKERS", 2)
	if err != nil {
		return cfg, fmt.Errorf("invalid MIN_WORKERS: %w", err)
	}

	cfg.MaxWorkers, err = parseIntEnv("MAX_WORKERS", 10)
	if err != nil {
		return cfg, fmt.Errorf("invalid MAX_WORKERS: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return cfg, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// DatabaseEnabled reports whether the purchase journal should be opened
func (c Config) DatabaseEnabled() bool {
	return c.DBHost != ""
}

// DSN returns the postgres connection string for the purchase journal
func (c Config) DSN() string {
	return fmt.Sprintf(
		"host=%s user=%s password=%s dbname=%s port=%s sslmode=%s TimeZone=UTC",
		c.DBHost, c.DBUser, c.DBPassword, c.DBName, c.DBPort, c.DBSSLMode,
	)
}

// validate checks that the configuration is valid
func (c Config) validate() error {
	if len(c.RESTEndpoints) == 0 {
		return fmt.Errorf("at least one REST endpoint is required")
	}

	for _, endpoint := range c.RESTEndpoints {
		u, err := url.Parse(endpoint)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return fmt.Errorf("invalid REST endpoint: %s", endpoint)
		}
	}

	if c.ChainID == "" {
		return fmt.Errorf("CHAIN_ID is required")
	}

	if c.HTTPTimeout <= 0 {
		return fmt.Errorf("HTTP_TIMEOUT must be positive")
	}

	if c.PollInterval < time.Second {
		return fmt.Errorf("POLL_INTERVAL must be at least 1s")
	}

	if c.RateLimit <= 0 {
		return fmt.Errorf("RATE_LIMIT must be positive")
	}

	if c.MinWorkers < 1 {
		return fmt.Errorf("MIN_WORKERS must be at least 1")
	}

	if c.MaxWorkers < c.MinWorkers {
		return fmt.Errorf("MAX_WORKERS must be greater than or equal to MIN_WORKERS")
	}

	if c.DatabaseEnabled() && c.DBName == "" {
		return fmt.Errorf("DB_NAME is required when DB_HOST is set")
	}

	if _, err := strconv.ParseUint(c.GasLimit, 10, 64); err != nil {
		return fmt.Errorf("invalid GAS_LIMIT: %s", c.GasLimit)
	}

	validLogLevels := map[string]bool{
		"trace": true,
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
		"fatal": true,
		"panic": true,
	}

	if !validLogLevels[strings.ToLower(c.LogLevel)] {
		return fmt.Errorf("invalid LOG_LEVEL: %s (must be one of: trace, debug, info, warn, error, fatal, panic)", c.LogLevel)
	}

	return nil
}

// getEnv retrieves an environment variable with a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// parseIntEnv parses an integer environment variable with a default value
func parseIntEnv(key string, defaultValue int) (int, error) {
	str := os.Getenv(key)
	if str == "" {
		return defaultValue, nil
	}
	return strconv.Atoi(str)
}

func parseFloatEnv(key string, defaultValue float64) (float64, error) {
	str := os.Getenv(key)
	if str == "" {
		return defaultValue, nil
	}
	return strconv.ParseFloat(str, 64)
}

func parseDurationEnv(key string, defaultValue time.Duration) (time.Duration, error) {
	str := os.Getenv(key)
	if str == "" {
		return defaultValue, nil
	}
	return time.ParseDuration(str)
}

// splitList splits a comma separated list, dropping empty entries
func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
