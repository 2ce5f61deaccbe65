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

// SLAConfig provides settings for SLA derivation.
type SLAConfig interface {
	// GetSLADefaultCritical is the system default SLA for critical priority
	// when no contract override applies.
	GetSLADefaultCritical() time.Duration
	// GetSLALookupFailOpen controls whether a failed coverage lookup falls
	// back to the system defaults (legacy behavior) instead of propagating.
	GetSLALookupFailOpen() bool
}

// ScheduleConfig provides settings for PM schedule generation.
type ScheduleConfig interface {
	GetPMHorizonMonths() int
}

// SchedulerConfig provides settings for the background job queue.
type SchedulerConfig interface {
	GetRedisURL() string
	GetRedisTLSInsecure() bool
	GetAsynqQueueName() string
	GetAsynqConcurrency() int
}

// RealtimeConfig provides settings for the change-event subscription.
type RealtimeConfig interface {
	GetNotifyCooldown() time.Duration
}

// =============================================================================
// Main Config Struct
// =============================================================================

// Config holds all application configuration values.
type Config struct {
	Env                string
	HTTPAddr           string
	DatabaseURL        string
	JWTAccessSecret    string
	CORSAllowAll       bool
	CORSOrigins        []string
	CORSAllowCreds     bool
	RedisURL           string
	RedisTLSInsecure   bool
	AsynqQueueName     string
	AsynqConcurrency   int
	SLADefaultCritical time.Duration
	SLALookupFailOpen  bool
	PMHorizonMonths    int
	NotifyCooldown     time.Duration
}

// =============================================================================
// Interface Implementations
// =============================================================================

// DatabaseConfig implementation
func (c *Config) GetDatabaseURL() string { return c.DatabaseURL }

// JWTConfig implementation
func (c *Config) GetJWTAccessSecret() string { return c.JWTAccessSecret }

// HTTPConfig implementation
func (c *Config) GetHTTPAddr() string      { return c.HTTPAddr }
func (c *Config) GetCORSAllowAll() bool    { return c.CORSAllowAll }
func (c *Config) GetCORSOrigins() []string { return c.CORSOrigins }
func (c *Config) GetCORSAllowCreds() bool  { return c.CORSAllowCreds }

// SLAConfig implementation
func (c *Config) GetSLADefaultCritical() time.Duration { return c.SLADefaultCritical }
func (c *Config) GetSLALookupFailOpen() bool           { return c.SLALookupFailOpen }

// ScheduleConfig implementation
func (c *Config) GetPMHorizonMonths() int { return c.PMHorizonMonths }

// SchedulerConfig implementation
func (c *Config) GetRedisURL() string       { return c.RedisURL }
func (c *Config) GetRedisTLSInsecure() bool { return c.RedisTLSInsecure }
func (c *Config) GetAsynqQueueName() string { return c.AsynqQueueName }
func (c *Config) GetAsynqConcurrency() int  { return c.AsynqConcurrency }

// RealtimeConfig implementation
func (c *Config) GetNotifyCooldown() time.Duration { return c.NotifyCooldown }

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	_ = godotenv.Load()

	corsOrigins := splitCSV(getEnv("CORS_ORIGINS", "http://localhost:4200"))
	corsAllowAll := strings.EqualFold(getEnv("CORS_ALLOW_ALL", "false"), "true")
	if containsWildcard(corsOrigins) {
		corsAllowAll = true
	}

	cfg := &Config{
		Env:                getEnv("APP_ENV", "development"),
		HTTPAddr:           getEnv("HTTP_ADDR", ":8080"),
		DatabaseURL:        getEnv("DATABASE_URL", ""),
		JWTAccessSecret:    getEnv("JWT_ACCESS_SECRET", ""),
		CORSAllowAll:       corsAllowAll,
		CORSOrigins:        corsOrigins,
		CORSAllowCreds:     strings.EqualFold(getEnv("CORS_ALLOW_CREDENTIALS", "true"), "true"),
		RedisURL:           getEnv("REDIS_URL", ""),
		RedisTLSInsecure:   strings.EqualFold(getEnv("REDIS_TLS_INSECURE", "false"), "true"),
		AsynqQueueName:     getEnv("ASYNQ_QUEUE", "default"),
		AsynqConcurrency:   mustInt(getEnv("ASYNQ_CONCURRENCY", "10")),
		SLADefaultCritical: mustDuration(getEnv("SLA_DEFAULT_CRITICAL", "6h")),
		SLALookupFailOpen:  strings.EqualFold(getEnv("SLA_LOOKUP_FAIL_OPEN", "false"), "true"),
		PMHorizonMonths:    mustInt(getEnv("PM_HORIZON_MONTHS", "12")),
		NotifyCooldown:     mustDuration(getEnv("NOTIFY_COOLDOWN", "10s")),
	}

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}
	if cfg.JWTAccessSecret == "" {
		return nil, fmt.Errorf("JWT_ACCESS_SECRET is required")
	}
	if cfg.SLADefaultCritical <= 0 {
		return nil, fmt.Errorf("SLA_DEFAULT_CRITICAL must be a positive duration")
	}
	if cfg.PMHorizonMonths <= 0 {
		return nil, fmt.Errorf("PM_HORIZON_MONTHS must be a positive integer")
	}
	if cfg.CORSAllowAll && cfg.CORSAllowCreds {
		return nil, fmt.Errorf("CORS_ALLOW_CREDENTIALS cannot be true when CORS_ALLOW_ALL is true")
	}

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
	result, err := strconv.Atoi(value)
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
