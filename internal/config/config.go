// Package config provides configuration loading and management for the application.
package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all application configuration
type Config struct {
	// HTTP server port
	Port string

	// Base URL of the upstream pricing source
	SkinportURL string

	// Catalog (app) id queried upstream
	AppID int

	// Default currency code when the request does not set one
	DefaultCurrency string

	// OpenTelemetry endpoint for observability
	OtelEndpoint string

	// Outbound request timeout
	RequestTimeout time.Duration

	// Rate limiter: admissions per rolling window
	RateLimitMax    int
	RateLimitWindow time.Duration

	// Cache time-to-live for snapshot and sales responses
	CacheTTL time.Duration

	// Backoff before the single retry of a gateway-class sales failure
	SalesRetryBackoff time.Duration

	// Pause between consecutive sales batches
	InterBatchDelay time.Duration

	// Batch planner caps
	BatchMaxEncodedLen int
	BatchMaxItems      int

	// Inbound analyze endpoint throttle
	InboundRPS   float64
	InboundBurst int
}

// Load creates a new Config from environment variables
func Load() Config {
	return Config{
		Port:               GetEnvOrDefault("PORT", "8080"),
		SkinportURL:        strings.TrimRight(GetEnvOrDefault("SKINPORT_URL", "https://api.skinport.com"), "/"),
		AppID:              GetEnvAsInt("SKINPORT_APP_ID", 730),
		DefaultCurrency:    GetEnvOrDefault("DEFAULT_CURRENCY", "EUR"),
		OtelEndpoint:       GetEnvOrDefault("OTEL_EXPORTER_OTLP_ENDPOINT", ""),
		RequestTimeout:     GetEnvAsDuration("REQUEST_TIMEOUT", 15*time.Second),
		RateLimitMax:       GetEnvAsInt("RATE_LIMIT_MAX", 7),
		RateLimitWindow:    GetEnvAsDuration("RATE_LIMIT_WINDOW", 5*time.Minute),
		CacheTTL:           GetEnvAsDuration("CACHE_TTL", 300*time.Second),
		SalesRetryBackoff:  GetEnvAsDuration("SALES_RETRY_BACKOFF", 5*time.Second),
		InterBatchDelay:    GetEnvAsDuration("INTER_BATCH_DELAY", 1*time.Second),
		BatchMaxEncodedLen: GetEnvAsInt("BATCH_MAX_ENCODED_LEN", 7000),
		BatchMaxItems:      GetEnvAsInt("BATCH_MAX_ITEMS", 100),
		InboundRPS:         GetEnvAsFloat("INBOUND_RPS", 10.0),
		InboundBurst:       GetEnvAsInt("INBOUND_BURST", 20),
	}
}

// GetEnv retrieves an environment variable and whether it exists
func GetEnv(key string) (string, bool) {
	value, exists := os.LookupEnv(key)
	return value, exists
}

// GetEnvOrDefault retrieves an environment variable or returns the default value if not set
func GetEnvOrDefault(key, defaultValue string) string {
	if value, exists := GetEnv(key); exists {
		return value
	}
	return defaultValue
}

// GetEnvAsInt retrieves an environment variable as an integer with a default value
func GetEnvAsInt(key string, defaultValue int) int {
	if value, exists := GetEnv(key); exists {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

// GetEnvAsFloat retrieves an environment variable as a float with a default value
func GetEnvAsFloat(key string, defaultValue float64) float64 {
	if value, exists := GetEnv(key); exists {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}

// GetEnvAsDuration retrieves an environment variable as a duration with a default value
func GetEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value, exists := GetEnv(key); exists {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}
