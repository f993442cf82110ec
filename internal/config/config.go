// Package config loads application configuration from the environment.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config holds all application configuration
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Stripe   StripeConfig
	Secrets  SecretsConfig
	Logger   LoggerConfig
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Port        int
	Host        string
	MetricsPort int
	// ChargeTimeout bounds a background processor call spawned by an
	// accepted sale or subscription
	ChargeTimeout time.Duration
}

// DatabaseConfig holds PostgreSQL configuration
type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Database string
	SSLMode  string
	MaxConns int32
	MinConns int32
}

// StripeConfig holds payment processor configuration. The API key may be
// given directly or fetched from the secret manager via APIKeySecretPath.
type StripeConfig struct {
	APIKey           string
	APIKeySecretPath string
	WebhookSecret    string
	// WebhookSecretPath fetches the signing secret from the secret manager
	WebhookSecretPath string
}

// SecretsConfig holds secret manager configuration
type SecretsConfig struct {
	Provider string // "aws" or "local"
	Region   string
	// LocalDir is the directory local file-backed secrets are read from
	LocalDir string
}

// LoggerConfig holds logging configuration
type LoggerConfig struct {
	Level       string // debug, info, warn, error
	Development bool
}

// LoadFromEnv loads configuration from environment variables
func LoadFromEnv() (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Port:          getEnvAsInt("SERVER_PORT", 8080),
			Host:          getEnv("SERVER_HOST", "0.0.0.0"),
			MetricsPort:   getEnvAsInt("METRICS_PORT", 9090),
			ChargeTimeout: time.Duration(getEnvAsInt("CHARGE_TIMEOUT_SECONDS", 60)) * time.Second,
		},
		Database: DatabaseConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnvAsInt("DB_PORT", 5432),
			User:     getEnv("DB_USER", "postgres"),
			Password: getEnv("DB_PASSWORD", ""),
			Database: getEnv("DB_NAME", "checkout_service"),
			SSLMode:  getEnv("DB_SSL_MODE", "disable"),
			MaxConns: int32(getEnvAsInt("DB_MAX_CONNS", 25)),
			MinConns: int32(getEnvAsInt("DB_MIN_CONNS", 5)),
		},
		Stripe: StripeConfig{
			APIKey:            getEnv("STRIPE_API_KEY", ""),
			APIKeySecretPath:  getEnv("STRIPE_API_KEY_SECRET_PATH", ""),
			WebhookSecret:     getEnv("STRIPE_WEBHOOK_SECRET", ""),
			WebhookSecretPath: getEnv("STRIPE_WEBHOOK_SECRET_PATH", ""),
		},
		Secrets: SecretsConfig{
			Provider: getEnv("SECRETS_PROVIDER", "local"),
			Region:   getEnv("AWS_REGION", "us-east-1"),
			LocalDir: getEnv("SECRETS_LOCAL_DIR", "secrets"),
		},
		Logger: LoggerConfig{
			Level:       getEnv("LOG_LEVEL", "info"),
			Development: getEnvAsBool("LOG_DEVELOPMENT", false),
		},
	}

	// Validate required fields
	if cfg.Database.Password == "" {
		return nil, fmt.Errorf("DB_PASSWORD is required")
	}
	if cfg.Stripe.APIKey == "" && cfg.Stripe.APIKeySecretPath == "" {
		return nil, fmt.Errorf("STRIPE_API_KEY or STRIPE_API_KEY_SECRET_PATH is required")
	}

	return cfg, nil
}

// ConnectionString returns PostgreSQL connection string
func (c *DatabaseConfig) ConnectionString() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Database, c.SSLMode,
	)
}

// Helper functions

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseBool(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}
