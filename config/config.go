package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// ClientConfig holds all configuration for the eduflow client.
// Tags use mapstructure for Viper unmarshalling and env variable binding.
type ClientConfig struct {
	BaseURL        string `mapstructure:"BASE_URL"`         // Backend API root, e.g. https://cms.example.com/api
	PublicAPIToken string `mapstructure:"PUBLIC_API_TOKEN"` // Read-only content token for unauthenticated fetches

	StorageBackend string `mapstructure:"STORAGE_BACKEND"` // "file", "redis" or "memory"
	StoragePath    string `mapstructure:"STORAGE_PATH"`    // bbolt file path for the file backend
	RedisAddr      string `mapstructure:"REDIS_ADDR"`
	RedisPassword  string `mapstructure:"REDIS_PASSWORD"`
	RedisDB        int    `mapstructure:"REDIS_DB"`

	TokenValidityHours  int `mapstructure:"TOKEN_VALIDITY_HOURS"`  // Fallback when the token carries no exp claim
	RefreshThresholdMin int `mapstructure:"REFRESH_THRESHOLD_MIN"` // Lead time before expiry for proactive refresh

	AuthMaxAttempts   int `mapstructure:"AUTH_MAX_ATTEMPTS"`   // Client-side attempt limit per identifier
	AuthWindowMin     int `mapstructure:"AUTH_WINDOW_MIN"`     // Fixed window for the attempt limit
	RequestTimeoutSec int `mapstructure:"REQUEST_TIMEOUT_SEC"` // Per-request HTTP timeout
	RequestsPerSec    int `mapstructure:"REQUESTS_PER_SEC"`    // Outbound throttle towards the backend

	ContentCacheTTLSec int `mapstructure:"CONTENT_CACHE_TTL_SEC"` // TTL for cached course/lesson reads

	LogLevel  string `mapstructure:"LOG_LEVEL"`
	LogPretty bool   `mapstructure:"LOG_PRETTY"`
}

// TokenValidity returns the configured fallback validity window.
func (c *ClientConfig) TokenValidity() time.Duration {
	return time.Duration(c.TokenValidityHours) * time.Hour
}

// RefreshThreshold returns the configured proactive refresh lead time.
func (c *ClientConfig) RefreshThreshold() time.Duration {
	return time.Duration(c.RefreshThresholdMin) * time.Minute
}

// AuthWindow returns the fixed window of the client-side attempt limiter.
func (c *ClientConfig) AuthWindow() time.Duration {
	return time.Duration(c.AuthWindowMin) * time.Minute
}

// RequestTimeout returns the per-request HTTP timeout.
func (c *ClientConfig) RequestTimeout() time.Duration {
	return time.Duration(c.RequestTimeoutSec) * time.Second
}

// ContentCacheTTL returns the TTL for cached content reads.
func (c *ClientConfig) ContentCacheTTL() time.Duration {
	return time.Duration(c.ContentCacheTTLSec) * time.Second
}

// LoadConfig reads configuration from file, environment variables, and defaults.
func LoadConfig() (*ClientConfig, error) {
	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("yaml")

	v.AddConfigPath("/etc/eduflow/")
	v.AddConfigPath("$HOME/.eduflow")
	v.AddConfigPath(".")

	v.SetEnvPrefix("EDUFLOW")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	v.SetDefault("BASE_URL", "http://localhost:1337/api")
	v.SetDefault("PUBLIC_API_TOKEN", "")
	v.SetDefault("STORAGE_BACKEND", "file")
	v.SetDefault("STORAGE_PATH", "$HOME/.eduflow/credentials.db")
	v.SetDefault("REDIS_ADDR", "localhost:6379")
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)
	v.SetDefault("TOKEN_VALIDITY_HOURS", 24)
	v.SetDefault("REFRESH_THRESHOLD_MIN", 5)
	v.SetDefault("AUTH_MAX_ATTEMPTS", 5)
	v.SetDefault("AUTH_WINDOW_MIN", 15)
	v.SetDefault("REQUEST_TIMEOUT_SEC", 30)
	v.SetDefault("REQUESTS_PER_SEC", 10)
	v.SetDefault("CONTENT_CACHE_TTL_SEC", 60)
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_PRETTY", true)

	if err := v.ReadInConfig(); err != nil {
		// A missing config file is fine, defaults and env vars apply.
		// Any other read error (permissions, malformed file) is fatal.
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var cfg ClientConfig
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unable to decode config into struct: %w", err)
	}

	return &cfg, nil
}
