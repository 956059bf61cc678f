// Package config provides configuration management for selfmap.
// It loads settings from environment variables with the SELFMAP_ prefix
// and provides sensible defaults for all configuration options.
package config

import (
	"fmt"
	"os"
	"strconv"
)

// Config holds all configuration settings for the selfmap application.
type Config struct {
	Server   ServerConfig
	Storage  StorageConfig
	Security SecurityConfig
	Context  ContextConfig
}

// ServerConfig contains HTTP server configuration (selfmap-web only; the
// stdio MCP server ignores it).
type ServerConfig struct {
	Port int    // Server port (default: 7373)
	Host string // Server host (default: 127.0.0.1)
}

// StorageConfig contains database and storage configuration.
type StorageConfig struct {
	StorageEngine string // Storage engine type: sqlite, postgres (default: sqlite)
	DataPath      string // Path to data directory for sqlite (default: ./data)
	PostgresDSN   string // Postgres connection string (required when engine is postgres)
}

// SecurityConfig contains security and authentication settings.
type SecurityConfig struct {
	SecurityMode string  // Security mode: development, production (default: development)
	APIToken     string  // Bearer token required by the HTTP endpoint in production mode
	RateLimitRPS float64 // Requests per second allowed per server (default: 10)
	RateBurst    int     // Burst size for the rate limiter (default: 20)
}

// ContextConfig contains context generation defaults.
type ContextConfig struct {
	DefaultPersona string // Persona used when a request names none (default: "default")
	MaxTokensHint  int    // Default output size hint in tokens (default: 4000)
}

// LoadConfig loads configuration from environment variables with sensible
// defaults. All environment variables use the SELFMAP_ prefix.
func LoadConfig() (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Port: getEnvInt("SELFMAP_PORT", 7373),
			Host: getEnv("SELFMAP_HOST", "127.0.0.1"),
		},
		Storage: StorageConfig{
			StorageEngine: getEnv("SELFMAP_STORAGE_ENGINE", "sqlite"),
			DataPath:      getEnv("SELFMAP_DATA_PATH", "./data"),
			PostgresDSN:   getEnv("SELFMAP_POSTGRES_DSN", ""),
		},
		Security: SecurityConfig{
			SecurityMode: getEnv("SELFMAP_SECURITY_MODE", "development"),
			APIToken:     getEnv("SELFMAP_API_TOKEN", ""),
			RateLimitRPS: getEnvFloat("SELFMAP_RATE_LIMIT_RPS", 10),
			RateBurst:    getEnvInt("SELFMAP_RATE_BURST", 20),
		},
		Context: ContextConfig{
			DefaultPersona: getEnv("SELFMAP_DEFAULT_PERSONA", "default"),
			MaxTokensHint:  getEnvInt("SELFMAP_MAX_TOKENS_HINT", 4000),
		},
	}
	return cfg, cfg.validate()
}

func (c *Config) validate() error {
	switch c.Storage.StorageEngine {
	case "sqlite", "postgres":
	default:
		return fmt.Errorf("config: unknown storage engine %q", c.Storage.StorageEngine)
	}
	if c.Storage.StorageEngine == "postgres" && c.Storage.PostgresDSN == "" {
		return fmt.Errorf("config: SELFMAP_POSTGRES_DSN is required when SELFMAP_STORAGE_ENGINE=postgres")
	}
	if c.Security.SecurityMode == "production" && c.Security.APIToken == "" {
		return fmt.Errorf("config: SELFMAP_API_TOKEN is required in production mode")
	}
	return nil
}

// getEnv retrieves a string environment variable or returns a default value.
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvInt retrieves an integer environment variable or returns a default value.
// If the environment variable exists but cannot be parsed as an integer,
// it returns the default value.
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

// getEnvFloat retrieves a float environment variable or returns a default value.
func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}
