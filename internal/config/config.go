// Package config loads server configuration from environment variables.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

const (
	BackendPostgres = "postgres"
	BackendMemory   = "memory"
)

type Config struct {
	AppEnv               string
	Port                 string
	StoreBackend         string
	DatabaseURL          string
	RedisURL             string
	LogLevel             string
	LogFormat            string
	SweepInterval        time.Duration
	MaxViewersPerChannel int
}

func Load() (*Config, error) {
	cfg := &Config{
		AppEnv:       getEnv("APP_ENV", "development"),
		Port:         getEnv("PORT", "8080"),
		StoreBackend: getEnv("STORE_BACKEND", BackendPostgres),
		DatabaseURL:  getEnv("DATABASE_URL", ""),
		RedisURL:     getEnv("REDIS_URL", ""),
		LogLevel:     getEnv("LOG_LEVEL", "info"),
		LogFormat:    getEnv("LOG_FORMAT", "text"),
	}

	switch cfg.StoreBackend {
	case BackendPostgres:
		if cfg.DatabaseURL == "" {
			return nil, fmt.Errorf("DATABASE_URL is required with STORE_BACKEND=postgres")
		}
	case BackendMemory:
		// demo mode, nothing to validate
	default:
		return nil, fmt.Errorf("STORE_BACKEND must be %q or %q, got %q", BackendPostgres, BackendMemory, cfg.StoreBackend)
	}

	sweepInterval, err := time.ParseDuration(getEnv("SWEEP_INTERVAL", "30s"))
	if err != nil {
		return nil, fmt.Errorf("SWEEP_INTERVAL must be a duration: %w", err)
	}
	if sweepInterval <= 0 {
		return nil, fmt.Errorf("SWEEP_INTERVAL must be positive")
	}
	cfg.SweepInterval = sweepInterval

	maxViewers, err := strconv.Atoi(getEnv("MAX_VIEWERS_PER_CHANNEL", "100"))
	if err != nil || maxViewers < 1 {
		return nil, fmt.Errorf("MAX_VIEWERS_PER_CHANNEL must be a positive integer")
	}
	cfg.MaxViewersPerChannel = maxViewers

	return cfg, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
