// Package config loads and validates app config from env and an optional .env file using Viper.
package config

import (
	"errors"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds application configuration loaded from the environment.
type Config struct {
	// HTTPAddr is the address the HTTP server listens on (e.g. :8080).
	HTTPAddr string `mapstructure:"HTTP_ADDR"`
	// DatabaseURL is the Postgres DSN.
	DatabaseURL string `mapstructure:"DATABASE_URL"`
	// JWTPrivateKey is the PEM-encoded private key (RSA or ECDSA) or path to file.
	JWTPrivateKey string `mapstructure:"JWT_PRIVATE_KEY"`
	// JWTPublicKey is the PEM-encoded public key or path to file.
	JWTPublicKey string `mapstructure:"JWT_PUBLIC_KEY"`
	// JWTIssuer is the iss claim on access tokens.
	JWTIssuer string `mapstructure:"JWT_ISSUER"`
	// JWTAudience is the aud claim on access tokens.
	JWTAudience string `mapstructure:"JWT_AUDIENCE"`
	// AccessTokenTTL is the access token lifetime (e.g. "1h").
	AccessTokenTTL string `mapstructure:"ACCESS_TOKEN_TTL"`
	// SessionTTL is the refresh token / session lifetime (e.g. "8760h" for a year).
	SessionTTL string `mapstructure:"SESSION_TTL"`
	// SignInCodeTTL is the lifetime of sign-in, reset, and verification codes (e.g. "168h").
	SignInCodeTTL string `mapstructure:"SIGN_IN_CODE_TTL"`
	// MFAAttemptTTL is the lifetime of an MFA attempt code (e.g. "5m").
	MFAAttemptTTL string `mapstructure:"MFA_ATTEMPT_TTL"`
	// BcryptCost is the bcrypt cost factor (4–31); default 12.
	BcryptCost int `mapstructure:"BCRYPT_COST"`
	// BaseURL is the public base URL of this service, used in delivered links
	// when a ceremony has no callback URL of its own.
	BaseURL string `mapstructure:"BASE_URL"`
	// KafkaBrokers is a comma-separated list of Kafka broker addresses for the
	// auth event stream. Empty disables event emission.
	KafkaBrokers string `mapstructure:"KAFKA_BROKERS"`
	// KafkaTopic is the Kafka topic for auth events.
	KafkaTopic string `mapstructure:"AUTH_EVENTS_TOPIC"`
	// KafkaGroupID is the consumer group used by the events worker.
	KafkaGroupID string `mapstructure:"KAFKA_GROUP_ID"`
	// LokiURL is the Grafana Loki base URL the events worker pushes to
	// (e.g. http://localhost:3100). Empty disables the worker.
	LokiURL string `mapstructure:"LOKI_URL"`
	// ServerAPIKey guards the server-credential session issuance route.
	// Empty disables the route.
	ServerAPIKey string `mapstructure:"SERVER_API_KEY"`
	// Env is the application environment (e.g. "development", "production").
	Env string `mapstructure:"APP_ENV"`
	// DevCodeEndpoint, when true, exposes GET /dev/last-code to read the most
	// recently delivered code per email. Must not be true in production.
	DevCodeEndpoint bool `mapstructure:"DEV_CODE_ENDPOINT"`
}

// Load reads .env (if present), then builds and validates Config from the
// environment via Viper. Missing .env is ignored (e.g. in CI). Env vars
// override .env. Returns an error if required fields are invalid.
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigFile(".env")
	v.SetConfigType("env")
	_ = v.ReadInConfig() // ignore ErrConfigFileNotFound

	v.AutomaticEnv()

	v.SetDefault("HTTP_ADDR", ":8080")
	v.SetDefault("DATABASE_URL", "")
	v.SetDefault("JWT_ISSUER", "tenantauth")
	v.SetDefault("JWT_AUDIENCE", "tenantauth-api")
	v.SetDefault("ACCESS_TOKEN_TTL", "1h")
	v.SetDefault("SESSION_TTL", "8760h") // 1 year
	v.SetDefault("SIGN_IN_CODE_TTL", "168h")
	v.SetDefault("MFA_ATTEMPT_TTL", "5m")
	v.SetDefault("BCRYPT_COST", 12)
	v.SetDefault("BASE_URL", "http://localhost:8080")
	v.SetDefault("KAFKA_BROKERS", "")
	v.SetDefault("AUTH_EVENTS_TOPIC", "tenantauth-events")
	v.SetDefault("KAFKA_GROUP_ID", "tenantauth-events-worker")
	v.SetDefault("LOKI_URL", "")
	v.SetDefault("SERVER_API_KEY", "")
	v.SetDefault("APP_ENV", "")
	v.SetDefault("DEV_CODE_ENDPOINT", false)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	if cfg.HTTPAddr == "" {
		return nil, errors.New("config: HTTP_ADDR must be set")
	}
	if cfg.DevCodeEndpoint && cfg.Env == "production" {
		return nil, errors.New("config: DEV_CODE_ENDPOINT must not be true when APP_ENV=production")
	}
	if cfg.BcryptCost == 0 {
		cfg.BcryptCost = 12
	}
	if cfg.BcryptCost < 4 || cfg.BcryptCost > 31 {
		return nil, errors.New("config: BCRYPT_COST must be between 4 and 31")
	}

	return &cfg, nil
}

func parseTTL(s string, fallback time.Duration) time.Duration {
	d, err := time.ParseDuration(s)
	if err != nil || d <= 0 {
		return fallback
	}
	return d
}

// AccessTTL parses AccessTokenTTL as a time.Duration. Returns 1h if unset or invalid.
func (c *Config) AccessTTL() time.Duration {
	return parseTTL(c.AccessTokenTTL, time.Hour)
}

// RefreshTTL parses SessionTTL as a time.Duration. Returns 8760h if unset or invalid.
func (c *Config) RefreshTTL() time.Duration {
	return parseTTL(c.SessionTTL, 8760*time.Hour)
}

// CodeTTL parses SignInCodeTTL as a time.Duration. Returns 168h if unset or invalid.
func (c *Config) CodeTTL() time.Duration {
	return parseTTL(c.SignInCodeTTL, 168*time.Hour)
}

// AttemptTTL parses MFAAttemptTTL as a time.Duration. Returns 5m if unset or invalid.
func (c *Config) AttemptTTL() time.Duration {
	return parseTTL(c.MFAAttemptTTL, 5*time.Minute)
}

// KafkaBrokersList returns broker addresses from the comma-separated config.
// An empty list means event emission is disabled.
func (c *Config) KafkaBrokersList() []string {
	if c == nil || c.KafkaBrokers == "" {
		return nil
	}
	parts := strings.Split(c.KafkaBrokers, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if s := strings.TrimSpace(p); s != "" {
			out = append(out, s)
		}
	}
	return out
}
