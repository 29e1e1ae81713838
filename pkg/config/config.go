// Package config loads application configuration from environment
// variables.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/sjlangley/social-golf-spa/pkg/observability"
)

// Config holds all application configuration
type Config struct {
	Server        ServerConfig
	Auth          AuthConfig
	Store         StoreConfig
	RBAC          RBACConfig
	Users         UsersConfig
	Observability ObservabilityConfig
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host            string
	Port            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration

	// Health/metrics server (separate port for k8s probes)
	HealthPort string

	// CORSOrigins are the origins allowed to call the API.
	CORSOrigins []string
}

// AuthConfig holds token verification configuration
type AuthConfig struct {
	// Issuer is the OIDC issuer URL used for discovery.
	Issuer string
	// ClientID is the expected token audience.
	ClientID string

	// Disabled skips token verification entirely. Only honored in the
	// local environment; Validate rejects it anywhere else.
	Disabled    bool
	Environment string
}

// StoreConfig holds document store configuration
type StoreConfig struct {
	// Type is "memory" or "postgres".
	Type        string
	PostgresURL string

	// RedisURL, when set, adds a Redis probe to the readiness check.
	RedisURL      string
	RedisPassword string
	RedisDB       int
}

// RBACConfig holds role policy configuration
type RBACConfig struct {
	// PolicyFile is an optional YAML role policy. Empty means the
	// built-in default policy.
	PolicyFile string
	// WatchPolicy reloads the policy file on change.
	WatchPolicy bool
}

// UsersConfig holds stored-user cache configuration
type UsersConfig struct {
	CacheSize int
	CacheTTL  time.Duration
}

// ObservabilityConfig holds observability settings
type ObservabilityConfig struct {
	LogLevel observability.LogLevel

	MetricsEnabled bool

	OTelEnabled        bool
	OTelEndpoint       string
	OTelServiceName    string
	OTelServiceVersion string
	OTelInsecure       bool
}

// LoadConfig loads configuration from environment variables
func LoadConfig() (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Host:            getEnv("GOLFAPI_HOST", "0.0.0.0"),
			Port:            getEnv("GOLFAPI_PORT", "8080"),
			ReadTimeout:     getEnvDuration("GOLFAPI_READ_TIMEOUT", 15*time.Second),
			WriteTimeout:    getEnvDuration("GOLFAPI_WRITE_TIMEOUT", 15*time.Second),
			IdleTimeout:     getEnvDuration("GOLFAPI_IDLE_TIMEOUT", 60*time.Second),
			ShutdownTimeout: getEnvDuration("GOLFAPI_SHUTDOWN_TIMEOUT", 30*time.Second),
			HealthPort:      getEnv("GOLFAPI_HEALTH_PORT", "9090"),
			CORSOrigins:     getEnvList("GOLFAPI_CORS_ORIGINS", []string{"http://localhost:3000"}),
		},
		Auth: AuthConfig{
			Issuer:      getEnv("GOLFAPI_OIDC_ISSUER", "https://accounts.google.com"),
			ClientID:    getEnv("GOLFAPI_OIDC_CLIENT_ID", ""),
			Disabled:    getEnvBool("GOLFAPI_AUTH_DISABLED", false),
			Environment: getEnv("GOLFAPI_ENVIRONMENT", "local"),
		},
		Store: StoreConfig{
			Type:          getEnv("GOLFAPI_STORE_TYPE", "memory"),
			PostgresURL:   getEnv("GOLFAPI_POSTGRES_URL", ""),
			RedisURL:      getEnv("GOLFAPI_REDIS_URL", ""),
			RedisPassword: getEnv("GOLFAPI_REDIS_PASSWORD", ""),
			RedisDB:       getEnvInt("GOLFAPI_REDIS_DB", 0),
		},
		RBAC: RBACConfig{
			PolicyFile:  getEnv("GOLFAPI_RBAC_POLICY_FILE", ""),
			WatchPolicy: getEnvBool("GOLFAPI_RBAC_WATCH_POLICY", true),
		},
		Users: UsersConfig{
			CacheSize: getEnvInt("GOLFAPI_USER_CACHE_SIZE", 1024),
			CacheTTL:  getEnvDuration("GOLFAPI_USER_CACHE_TTL", 30*time.Second),
		},
		Observability: ObservabilityConfig{
			LogLevel:           observability.ParseLogLevel(getEnv("GOLFAPI_LOG_LEVEL", "info")),
			MetricsEnabled:     getEnvBool("GOLFAPI_METRICS_ENABLED", true),
			OTelEnabled:        getEnvBool("GOLFAPI_OTEL_ENABLED", false),
			OTelEndpoint:       getEnv("GOLFAPI_OTEL_ENDPOINT", "localhost:4317"),
			OTelServiceName:    getEnv("GOLFAPI_OTEL_SERVICE_NAME", "golf-api"),
			OTelServiceVersion: getEnv("GOLFAPI_OTEL_SERVICE_VERSION", "1.0.0"),
			OTelInsecure:       getEnvBool("GOLFAPI_OTEL_INSECURE", true),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Server.Port == "" {
		return fmt.Errorf("server port is required")
	}
	if c.Server.HealthPort == "" {
		return fmt.Errorf("health port is required")
	}
	if c.Server.Port == c.Server.HealthPort {
		return fmt.Errorf("server port and health port must be different")
	}

	switch c.Store.Type {
	case "memory":
	case "postgres":
		if c.Store.PostgresURL == "" {
			return fmt.Errorf("postgres URL is required for postgres store")
		}
	default:
		return fmt.Errorf("invalid store type: %s (must be memory or postgres)", c.Store.Type)
	}

	if c.Auth.Disabled {
		if c.Auth.Environment != "local" {
			return fmt.Errorf("auth can only be disabled in the local environment (got %q)", c.Auth.Environment)
		}
	} else {
		if c.Auth.Issuer == "" {
			return fmt.Errorf("OIDC issuer is required")
		}
		if c.Auth.ClientID == "" {
			return fmt.Errorf("OIDC client ID is required")
		}
	}

	if c.Observability.OTelEnabled {
		if c.Observability.OTelEndpoint == "" {
			return fmt.Errorf("OpenTelemetry endpoint is required when OTel is enabled")
		}
		if c.Observability.OTelServiceName == "" {
			return fmt.Errorf("OpenTelemetry service name is required when OTel is enabled")
		}
	}

	return nil
}

// AuthBypassed reports whether token verification is skipped.
func (c *Config) AuthBypassed() bool {
	return c.Auth.Disabled && c.Auth.Environment == "local"
}

// getEnv returns an environment variable value or a default
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvBool returns a boolean environment variable or a default
func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		return strings.ToLower(value) == "true" || value == "1"
	}
	return defaultValue
}

// getEnvInt returns an integer environment variable or a default
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

// getEnvDuration returns a duration environment variable or a default
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if parsed, err := time.ParseDuration(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

// getEnvList returns a comma-separated environment variable or a default
func getEnvList(key string, defaultValue []string) []string {
	if value := os.Getenv(key); value != "" {
		parts := strings.Split(value, ",")
		out := make([]string, 0, len(parts))
		for _, p := range parts {
			if trimmed := strings.TrimSpace(p); trimmed != "" {
				out = append(out, trimmed)
			}
		}
		if len(out) > 0 {
			return out
		}
	}
	return defaultValue
}
