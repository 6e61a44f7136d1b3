// Package config provides application configuration loading.
// This is part of the platform layer and contains no business logic.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// =============================================================================
// Module-Specific Config Interfaces (Principle of Least Privilege)
// =============================================================================

// DatabaseConfig provides database connection settings.
type DatabaseConfig interface {
	GetDatabaseURL() string
	GetDatabaseMaxConns() int32
}

// JWTConfig provides JWT validation settings for middleware.
type JWTConfig interface {
	GetJWTAccessSecret() string
}

// HTTPConfig provides settings for the HTTP server.
type HTTPConfig interface {
	GetHTTPAddr() string
	GetCORSAllowAll() bool
	GetCORSOrigins() []string
	GetCORSAllowCreds() bool
}

// RateLimitConfig provides per-IP rate limiting settings.
type RateLimitConfig interface {
	GetRateLimitPerSecond() float64
	GetRateLimitBurst() int
}

// SchedulerConfig provides settings for the asynq scheduler.
type SchedulerConfig interface {
	GetRedisURL() string
	GetRedisTLSInsecure() bool
	GetAsynqQueueName() string
	GetAsynqConcurrency() int
}

// SearchConfig provides settings for the external search index.
type SearchConfig interface {
	GetElasticsearchURLs() []string
	GetElasticsearchUsername() string
	GetElasticsearchPassword() string
	GetSearchIndexPrefix() string
	GetSearchPingTimeout() time.Duration
	GetSearchBootstrapWait() time.Duration
	IsSearchEnabled() bool
}

// SearchSyncConfig provides settings for the background index synchronizer.
type SearchSyncConfig interface {
	GetSearchSyncQueueSize() int
	GetSearchSyncWorkers() int
	GetSearchSyncMaxAttempts() int
	GetSearchSyncBackoff() time.Duration
}

// DiscountConfig provides settings for the discount engine.
type DiscountConfig interface {
	GetDiscountCleanupInterval() time.Duration
	GetBusinessLocation() *time.Location
}

// PhoneConfig provides phone normalization settings.
type PhoneConfig interface {
	GetDefaultPhoneRegion() string
}

// =============================================================================
// Main Config Struct
// =============================================================================

// Config holds all application configuration values.
type Config struct {
	Env                     string
	HTTPAddr                string
	DatabaseURL             string
	DatabaseMaxConns        int32
	JWTAccessSecret         string
	CORSAllowAll            bool
	CORSOrigins             []string
	CORSAllowCreds          bool
	RateLimitPerSecond      float64
	RateLimitBurst          int
	RedisURL                string
	RedisTLSInsecure        bool
	AsynqQueueName          string
	AsynqConcurrency        int
	ElasticsearchURLs       []string
	ElasticsearchUsername   string
	ElasticsearchPassword   string
	SearchIndexPrefix       string
	SearchPingTimeout       time.Duration
	SearchBootstrapWait     time.Duration
	SearchSyncQueueSize     int
	SearchSyncWorkers       int
	SearchSyncMaxAttempts   int
	SearchSyncBackoff       time.Duration
	DiscountCleanupInterval time.Duration
	BusinessTimeZone        string
	BusinessLocation        *time.Location
	DefaultPhoneRegion      string
}

// =============================================================================
// Interface Implementations
// =============================================================================

// DatabaseConfig implementation
func (c *Config) GetDatabaseURL() string      { return c.DatabaseURL }
func (c *Config) GetDatabaseMaxConns() int32 { return c.DatabaseMaxConns }

// JWTConfig implementation
func (c *Config) GetJWTAccessSecret() string { return c.JWTAccessSecret }

// HTTPConfig implementation
func (c *Config) GetHTTPAddr() string      { return c.HTTPAddr }
func (c *Config) GetCORSAllowAll() bool    { return c.CORSAllowAll }
func (c *Config) GetCORSOrigins() []string { return c.CORSOrigins }
func (c *Config) GetCORSAllowCreds() bool  { return c.CORSAllowCreds }

// RateLimitConfig implementation
func (c *Config) GetRateLimitPerSecond() float64 { return c.RateLimitPerSecond }
func (c *Config) GetRateLimitBurst() int         { return c.RateLimitBurst }

// SchedulerConfig implementation
func (c *Config) GetRedisURL() string        { return c.RedisURL }
func (c *Config) GetRedisTLSInsecure() bool  { return c.RedisTLSInsecure }
func (c *Config) GetAsynqQueueName() string  { return c.AsynqQueueName }
func (c *Config) GetAsynqConcurrency() int   { return c.AsynqConcurrency }

// SearchConfig implementation
func (c *Config) GetElasticsearchURLs() []string        { return c.ElasticsearchURLs }
func (c *Config) GetElasticsearchUsername() string      { return c.ElasticsearchUsername }
func (c *Config) GetElasticsearchPassword() string      { return c.ElasticsearchPassword }
func (c *Config) GetSearchIndexPrefix() string          { return c.SearchIndexPrefix }
func (c *Config) GetSearchPingTimeout() time.Duration   { return c.SearchPingTimeout }
func (c *Config) GetSearchBootstrapWait() time.Duration { return c.SearchBootstrapWait }
func (c *Config) IsSearchEnabled() bool                 { return len(c.ElasticsearchURLs) > 0 }

// SearchSyncConfig implementation
func (c *Config) GetSearchSyncQueueSize() int         { return c.SearchSyncQueueSize }
func (c *Config) GetSearchSyncWorkers() int           { return c.SearchSyncWorkers }
func (c *Config) GetSearchSyncMaxAttempts() int       { return c.SearchSyncMaxAttempts }
func (c *Config) GetSearchSyncBackoff() time.Duration { return c.SearchSyncBackoff }

// DiscountConfig implementation
func (c *Config) GetDiscountCleanupInterval() time.Duration { return c.DiscountCleanupInterval }
func (c *Config) GetBusinessLocation() *time.Location {
	if c.BusinessLocation == nil {
		return time.UTC
	}
	return c.BusinessLocation
}

// PhoneConfig implementation
func (c *Config) GetDefaultPhoneRegion() string { return c.DefaultPhoneRegion }

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	_ = godotenv.Load()

	corsOrigins := splitCSV(getEnv("CORS_ORIGINS", "http://localhost:3000"))
	corsAllowAll := strings.EqualFold(getEnv("CORS_ALLOW_ALL", "false"), "true")
	if containsWildcard(corsOrigins) {
		corsAllowAll = true
	}

	cfg := &Config{
		Env:                     getEnv("APP_ENV", "development"),
		HTTPAddr:                getEnv("HTTP_ADDR", ":8080"),
		DatabaseURL:             getEnv("DATABASE_URL", ""),
		DatabaseMaxConns:        int32(mustInt(getEnv("DATABASE_MAX_CONNS", "25"))),
		JWTAccessSecret:         getEnv("JWT_ACCESS_SECRET", ""),
		CORSAllowAll:            corsAllowAll,
		CORSOrigins:             corsOrigins,
		CORSAllowCreds:          strings.EqualFold(getEnv("CORS_ALLOW_CREDENTIALS", "true"), "true"),
		RateLimitPerSecond:      mustFloat(getEnv("RATE_LIMIT_PER_SECOND", "20")),
		RateLimitBurst:          mustInt(getEnv("RATE_LIMIT_BURST", "40")),
		RedisURL:                getEnv("REDIS_URL", ""),
		RedisTLSInsecure:        strings.EqualFold(getEnv("REDIS_TLS_INSECURE", "false"), "true"),
		AsynqQueueName:          getEnv("ASYNQ_QUEUE", "default"),
		AsynqConcurrency:        mustInt(getEnv("ASYNQ_CONCURRENCY", "10")),
		ElasticsearchURLs:       splitCSV(getEnv("ELASTICSEARCH_URL", "")),
		ElasticsearchUsername:   getEnv("ELASTICSEARCH_USERNAME", ""),
		ElasticsearchPassword:   getEnv("ELASTICSEARCH_PASSWORD", ""),
		SearchIndexPrefix:       getEnv("SEARCH_INDEX_PREFIX", "leaddesk"),
		SearchPingTimeout:       mustDuration(getEnv("SEARCH_PING_TIMEOUT", "2s")),
		SearchBootstrapWait:     mustDuration(getEnv("SEARCH_BOOTSTRAP_WAIT", "5s")),
		SearchSyncQueueSize:     mustInt(getEnv("SEARCH_SYNC_QUEUE_SIZE", "1024")),
		SearchSyncWorkers:       mustInt(getEnv("SEARCH_SYNC_WORKERS", "4")),
		SearchSyncMaxAttempts:   mustInt(getEnv("SEARCH_SYNC_MAX_ATTEMPTS", "5")),
		SearchSyncBackoff:       mustDuration(getEnv("SEARCH_SYNC_BACKOFF", "500ms")),
		DiscountCleanupInterval: mustDuration(getEnv("DISCOUNT_CLEANUP_INTERVAL", "15m")),
		BusinessTimeZone:        getEnv("BUSINESS_TIMEZONE", "UTC"),
		DefaultPhoneRegion:      strings.ToUpper(getEnv("DEFAULT_PHONE_REGION", "IN")),
	}

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}
	if cfg.JWTAccessSecret == "" {
		return nil, fmt.Errorf("JWT_ACCESS_SECRET is required")
	}
	if cfg.CORSAllowAll && cfg.CORSAllowCreds {
		return nil, fmt.Errorf("CORS_ALLOW_CREDENTIALS cannot be true when CORS_ALLOW_ALL is true")
	}

	loc, err := time.LoadLocation(cfg.BusinessTimeZone)
	if err != nil {
		return nil, fmt.Errorf("invalid BUSINESS_TIMEZONE %q: %w", cfg.BusinessTimeZone, err)
	}
	cfg.BusinessLocation = loc

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if val, ok := os.LookupEnv(key); ok {
		return val
	}
	return fallback
}

func mustDuration(value string) time.Duration {
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0
	}
	return d
}

func mustInt(value string) int {
	result, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		return 0
	}
	return result
}

func mustFloat(value string) float64 {
	result, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
	if err != nil {
		return 0
	}
	return result
}

func splitCSV(value string) []string {
	parts := strings.Split(value, ",")
	results := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			results = append(results, trimmed)
		}
	}
	return results
}

func containsWildcard(values []string) bool {
	for _, value := range values {
		if value == "*" {
			return true
		}
	}
	return false
}
