package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Supported DATABASE_DRIVER values.
const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
	DriverMongo    = "mongo"
	DriverMemory   = "memory"
)

const minSecretLen = 16

// Config is the process configuration. It is loaded once and passed to each
// component explicitly.
type Config struct {
	AppPort   string
	LogLevel  string
	LogFormat string

	DatabaseDriver string
	DatabaseDSN    string
	MongoURI       string
	MongoDatabase  string

	JWTSecret string

	SessionCookieName string
	SessionExpiration time.Duration
	SessionSecure     bool
	RedisURL          string

	RabbitMQURL string

	OAuthBaseURL string
	AuthErrorURL string

	GoogleID         string
	GoogleSecret     string
	GitHubID         string
	GitHubSecret     string
	FacebookClientID string
	FacebookSecret   string
}

// SetDefaults registers the default value of every key on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("APP_PORT", ":8080")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")
	v.SetDefault("DATABASE_DRIVER", DriverSQLite)
	v.SetDefault("DATABASE_DSN", "promptshare.db")
	v.SetDefault("MONGODB_URI", "")
	v.SetDefault("MONGODB_DATABASE", "promptshare")
	v.SetDefault("JWT_SECRET", "")
	v.SetDefault("SESSION_COOKIE_NAME", "promptshare_session")
	v.SetDefault("SESSION_EXPIRATION", "720h")
	v.SetDefault("SESSION_COOKIE_SECURE", false)
	v.SetDefault("REDIS_URL", "")
	v.SetDefault("RABBITMQ_URL", "")
	v.SetDefault("OAUTH_BASE_URL", "http://localhost:8080")
	v.SetDefault("AUTH_ERROR_URL", "/auth/error")
	for _, key := range []string{
		"GOOGLE_ID", "GOOGLE_CLIENT_SECRET",
		"GITHUB_ID", "GITHUB_SECRET",
		"FACEBOOK_CLIENT_ID", "FACEBOOK_CLIENT_SECRET",
	} {
		v.SetDefault(key, "")
	}
}

// Load reads an optional config.yaml from the working directory, overlays
// the environment and validates the result.
func Load(v *viper.Viper) (*Config, error) {
	SetDefaults(v)

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}
	v.AutomaticEnv()

	cfg := &Config{
		AppPort:           v.GetString("APP_PORT"),
		LogLevel:          v.GetString("LOG_LEVEL"),
		LogFormat:         v.GetString("LOG_FORMAT"),
		DatabaseDriver:    strings.ToLower(v.GetString("DATABASE_DRIVER")),
		DatabaseDSN:       v.GetString("DATABASE_DSN"),
		MongoURI:          v.GetString("MONGODB_URI"),
		MongoDatabase:     v.GetString("MONGODB_DATABASE"),
		JWTSecret:         v.GetString("JWT_SECRET"),
		SessionCookieName: v.GetString("SESSION_COOKIE_NAME"),
		SessionExpiration: v.GetDuration("SESSION_EXPIRATION"),
		SessionSecure:     v.GetBool("SESSION_COOKIE_SECURE"),
		RedisURL:          v.GetString("REDIS_URL"),
		RabbitMQURL:       v.GetString("RABBITMQ_URL"),
		OAuthBaseURL:      v.GetString("OAUTH_BASE_URL"),
		AuthErrorURL:      v.GetString("AUTH_ERROR_URL"),
		GoogleID:          v.GetString("GOOGLE_ID"),
		GoogleSecret:      v.GetString("GOOGLE_CLIENT_SECRET"),
		GitHubID:          v.GetString("GITHUB_ID"),
		GitHubSecret:      v.GetString("GITHUB_SECRET"),
		FacebookClientID:  v.GetString("FACEBOOK_CLIENT_ID"),
		FacebookSecret:    v.GetString("FACEBOOK_CLIENT_SECRET"),
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the values no component can start without.
func (c *Config) Validate() error {
	if len(c.JWTSecret) < minSecretLen {
		return fmt.Errorf("JWT_SECRET must be at least %d bytes", minSecretLen)
	}
	switch c.DatabaseDriver {
	case DriverPostgres, DriverSQLite:
		if c.DatabaseDSN == "" {
			return fmt.Errorf("DATABASE_DSN is required for driver %q", c.DatabaseDriver)
		}
	case DriverMongo:
		if c.MongoURI == "" {
			return errors.New("MONGODB_URI is required for driver \"mongo\"")
		}
	case DriverMemory:
	default:
		return fmt.Errorf("unsupported DATABASE_DRIVER %q", c.DatabaseDriver)
	}
	if c.SessionExpiration <= 0 {
		return errors.New("SESSION_EXPIRATION must be positive")
	}
	return nil
}
