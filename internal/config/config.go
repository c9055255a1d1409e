package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	App struct {
		Port  string
		Debug bool
	}
	DB struct {
		Driver          string
		URL             string
		ConnectAttempts int
		ConnectDelay    time.Duration
		MaxOpenConns    int
		MaxIdleConns    int
	}
	Log struct {
		Level  string
		Format string
	}
	CORS struct {
		AllowedOrigins []string
	}
	RateLimit struct {
		Enabled           bool
		RequestsPerSecond int
		Burst             int
	}
	Cache struct {
		Enabled bool
		TTL     time.Duration
	}
	Redis struct {
		Host     string
		Port     string
		Password string
		DB       int
	}
	Workers struct {
		HealthProbeInterval time.Duration
	}
}

func Load() *Config {
	cfg := &Config{}

	// App
	cfg.App.Port = getEnv("PORT", "8080")
	cfg.App.Debug = getEnvAsBool("DEBUG", false)

	// DB
	cfg.DB.Driver = strings.ToLower(getEnv("DB_DRIVER", "postgres"))
	cfg.DB.URL = getEnv("DATABASE_URL", "")
	cfg.DB.ConnectAttempts = getEnvAsInt("DB_CONNECT_ATTEMPTS", 3)
	cfg.DB.ConnectDelay = getEnvAsDuration("DB_CONNECT_DELAY", 5*time.Second)
	cfg.DB.MaxOpenConns = getEnvAsInt("DB_MAX_OPEN_CONNS", 100)
	cfg.DB.MaxIdleConns = getEnvAsInt("DB_MAX_IDLE_CONNS", 10)

	// Log
	cfg.Log.Level = getEnv("LOG_LEVEL", "info")
	cfg.Log.Format = getEnv("LOG_FORMAT", "auto")

	// CORS
	cfg.CORS.AllowedOrigins = getEnvAsList("CORS_ALLOWED_ORIGINS", []string{"*"})

	// Rate Limit (off unless asked for)
	cfg.RateLimit.Enabled = getEnvAsBool("RATE_LIMIT_ENABLED", false)
	cfg.RateLimit.RequestsPerSecond = getEnvAsInt("RATE_LIMIT_RPS", 10)
	cfg.RateLimit.Burst = getEnvAsInt("RATE_LIMIT_BURST", 20)

	// Cache
	cfg.Cache.Enabled = getEnvAsBool("CACHE_ENABLED", false)
	cfg.Cache.TTL = getEnvAsDuration("CACHE_TTL", 5*time.Minute)

	// Redis
	cfg.Redis.Host = getEnv("REDIS_HOST", "localhost")
	cfg.Redis.Port = getEnv("REDIS_PORT", "6379")
	cfg.Redis.Password = getEnv("REDIS_PASSWORD", "")
	cfg.Redis.DB = getEnvAsInt("REDIS_DB", 0)

	// Workers
	cfg.Workers.HealthProbeInterval = getEnvAsDuration("HEALTH_PROBE_INTERVAL", 30*time.Second)

	return cfg
}

// Validate reports settings the service cannot start with.
func (c *Config) Validate() error {
	var errs []error

	if c.DB.URL == "" {
		errs = append(errs, errors.New("DATABASE_URL is required"))
	}
	switch c.DB.Driver {
	case "postgres", "sqlite":
	default:
		errs = append(errs, fmt.Errorf("DB_DRIVER %q is not supported, use postgres or sqlite", c.DB.Driver))
	}
	if c.DB.ConnectAttempts < 1 {
		errs = append(errs, errors.New("DB_CONNECT_ATTEMPTS must be at least 1"))
	}
	if c.DB.ConnectDelay < 0 {
		errs = append(errs, errors.New("DB_CONNECT_DELAY must not be negative"))
	}
	if c.RateLimit.Enabled && (c.RateLimit.RequestsPerSecond < 1 || c.RateLimit.Burst < 1) {
		errs = append(errs, errors.New("RATE_LIMIT_RPS and RATE_LIMIT_BURST must be positive"))
	}
	if c.Workers.HealthProbeInterval <= 0 {
		errs = append(errs, errors.New("HEALTH_PROBE_INTERVAL must be positive"))
	}

	return errors.Join(errs...)
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if dur, err := time.ParseDuration(value); err == nil {
			return dur
		}
	}
	return defaultValue
}

// getEnvAsList splits a comma separated value, dropping empty items.
func getEnvAsList(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	var items []string
	for _, item := range strings.Split(value, ",") {
		if item = strings.TrimSpace(item); item != "" {
			items = append(items, item)
		}
	}
	if len(items) == 0 {
		return defaultValue
	}
	return items
}
