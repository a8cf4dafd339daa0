// Package config provides configuration loading and validation for the API server.
// It uses koanf to merge environment variables with optional file overrides.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// Config holds all configuration values for the API server.
type Config struct {
	// Server settings
	Port int    `koanf:"port"`
	Env  string `koanf:"env"`

	// Database
	DatabaseURL string `koanf:"database_url"`

	// JWT verification secret shared with the platform identity service.
	JWTSecret         string `koanf:"jwt_secret"`
	JWTPreviousSecret string `koanf:"jwt_previous_secret"`

	// Redis (optional, distributed rate limiting)
	RedisAddr string `koanf:"redis_addr"`

	// Rate limiting
	GlobalRateLimit int           `koanf:"global_rate_limit"`
	SearchRateLimit int           `koanf:"search_rate_limit"`
	RateLimitWindow time.Duration `koanf:"rate_limit_window"`

	// CORS allowed origins. Empty disables CORS handling entirely.
	CORSAllowedOrigins []string `koanf:"cors_allowed_origins"`

	// Tracing (optional, OTLP export)
	TracingEnabled    bool    `koanf:"tracing_enabled"`
	OTLPEndpoint      string  `koanf:"otlp_endpoint"`
	TracingSampleRate float64 `koanf:"tracing_sample_rate"`
}

// Configuration validation errors.
var (
	ErrMissingDatabaseURL = errors.New("DATABASE_URL is required")
	ErrMissingJWTSecret   = errors.New("JWT_SECRET is required")
	ErrInvalidPort        = errors.New("PORT must be a valid integer")
)

// Default values for non-secret configuration.
const (
	DefaultPort            = 8080
	DefaultEnv             = "development"
	DefaultGlobalRateLimit = 100
	DefaultSearchRateLimit = 30
	DefaultRateLimitWindow = time.Minute
)

// DefaultTracingSampleRate keeps every sampled trace once tracing is enabled.
const DefaultTracingSampleRate = 1.0

// Load reads configuration from environment variables and an optional config file.
// Environment variables take precedence over file values.
// Returns the loaded config and a slice of validation errors (empty if valid).
// If a config file path is provided and the file cannot be loaded, an error is returned.
func Load(configFilePath string) (*Config, []error) {
	k := koanf.New(".")
	var loadErrs []error

	// Load from YAML file first if provided (lower precedence)
	if configFilePath != "" {
		if err := k.Load(file.Provider(configFilePath), yaml.Parser()); err != nil {
			return nil, []error{fmt.Errorf("failed to load config file %s: %w", configFilePath, err)}
		}
	}

	port, portErr := getEnvIntOrDefault("PORT", k.Int("port"), DefaultPort)
	if portErr != nil {
		loadErrs = append(loadErrs, portErr)
	}

	globalLimit, globalErr := getEnvIntOrDefault("GLOBAL_RATE_LIMIT", k.Int("global_rate_limit"), DefaultGlobalRateLimit)
	if globalErr != nil {
		loadErrs = append(loadErrs, globalErr)
	}

	searchLimit, searchErr := getEnvIntOrDefault("SEARCH_RATE_LIMIT", k.Int("search_rate_limit"), DefaultSearchRateLimit)
	if searchErr != nil {
		loadErrs = append(loadErrs, searchErr)
	}

	window := DefaultRateLimitWindow
	if k.Exists("rate_limit_window") {
		window = k.Duration("rate_limit_window")
	}
	if val := os.Getenv("RATE_LIMIT_WINDOW"); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			window = d
		} else {
			loadErrs = append(loadErrs, fmt.Errorf("RATE_LIMIT_WINDOW must be a valid duration: %w", err))
		}
	}

	// Build config struct, with env vars taking precedence over file values
	cfg := &Config{
		Port:              port,
		Env:               getEnvOrDefaultMulti([]string{"ENV", "GO_ENV"}, k.String("env"), DefaultEnv),
		DatabaseURL:       getEnvOrKoanf("DATABASE_URL", k, "database_url"),
		JWTSecret:         getEnvOrKoanf("JWT_SECRET", k, "jwt_secret"),
		JWTPreviousSecret: getEnvOrKoanf("JWT_PREVIOUS_SECRET", k, "jwt_previous_secret"),
		RedisAddr:         getEnvOrKoanf("REDIS_ADDR", k, "redis_addr"),
		GlobalRateLimit:   globalLimit,
		SearchRateLimit:   searchLimit,
		RateLimitWindow:   window,
		CORSAllowedOrigins: splitCommaList(
			getEnvOrDefaultMulti([]string{"CORS_ALLOWED_ORIGINS"}, strings.Join(k.Strings("cors_allowed_origins"), ","), "")),
		TracingEnabled:    getEnvBoolOrDefault("TRACING_ENABLED", k.Bool("tracing_enabled")),
		OTLPEndpoint:      getEnvOrKoanf("OTLP_ENDPOINT", k, "otlp_endpoint"),
		TracingSampleRate: DefaultTracingSampleRate,
	}
	if k.Exists("tracing_sample_rate") {
		cfg.TracingSampleRate = k.Float64("tracing_sample_rate")
	}
	if val := os.Getenv("TRACING_SAMPLE_RATE"); val != "" {
		if rate, err := strconv.ParseFloat(val, 64); err == nil {
			cfg.TracingSampleRate = rate
		} else {
			loadErrs = append(loadErrs, fmt.Errorf("TRACING_SAMPLE_RATE must be a valid number: %w", err))
		}
	}

	// Validate and collect errors
	errs := cfg.Validate()
	errs = append(loadErrs, errs...)

	return cfg, errs
}

// splitCommaList splits a comma-separated list, trimming whitespace and
// dropping empty entries.
func splitCommaList(s string) []string {
	if s == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// getEnvBoolOrDefault returns the environment variable as a bool if set,
// otherwise the koanf value. Anything other than "true"/"1" reads as false.
func getEnvBoolOrDefault(envKey string, koanfVal bool) bool {
	if val := os.Getenv(envKey); val != "" {
		return val == "true" || val == "1"
	}
	return koanfVal
}

// getEnvOrKoanf returns the environment variable value if set, otherwise the koanf value.
func getEnvOrKoanf(envKey string, k *koanf.Koanf, koanfKey string) string {
	if val := os.Getenv(envKey); val != "" {
		return val
	}
	return k.String(koanfKey)
}

// getEnvOrDefaultMulti tries multiple environment variable keys in order.
// Returns the first non-empty value found, otherwise the koanf value, or default.
func getEnvOrDefaultMulti(envKeys []string, koanfVal string, defaultVal string) string {
	for _, key := range envKeys {
		if val := os.Getenv(key); val != "" {
			return val
		}
	}
	if koanfVal != "" {
		return koanfVal
	}
	return defaultVal
}

// getEnvIntOrDefault returns the environment variable as int if set, otherwise the koanf value, or default.
// Returns an error if the environment variable is set but cannot be parsed as an integer.
// Note: A value of 0 from a YAML file falls back to the default.
func getEnvIntOrDefault(envKey string, koanfVal int, defaultVal int) (int, error) {
	if val := os.Getenv(envKey); val != "" {
		i, err := strconv.Atoi(val)
		if err != nil {
			return 0, fmt.Errorf("%s must be a valid integer: %w", envKey, ErrInvalidPort)
		}
		return i, nil
	}
	if koanfVal != 0 {
		return koanfVal, nil
	}
	return defaultVal, nil
}

// Validate checks that all required configuration values are present.
// Returns a slice of validation errors (empty if valid).
func (c *Config) Validate() []error {
	var errs []error

	if c.DatabaseURL == "" {
		errs = append(errs, ErrMissingDatabaseURL)
	}
	if c.JWTSecret == "" {
		errs = append(errs, ErrMissingJWTSecret)
	}

	return errs
}

// LogSummary returns a summary of the configuration suitable for logging.
// All secrets are masked to prevent accidental exposure.
func (c *Config) LogSummary() map[string]string {
	redis := c.RedisAddr
	if redis == "" {
		redis = "<not set>"
	}
	return map[string]string{
		"port":                 fmt.Sprintf("%d", c.Port),
		"env":                  c.Env,
		"database_url":         maskDatabaseURL(c.DatabaseURL),
		"jwt_secret":           maskSecret(c.JWTSecret),
		"redis_addr":           redis,
		"global_rate_limit":    fmt.Sprintf("%d", c.GlobalRateLimit),
		"search_rate_limit":    fmt.Sprintf("%d", c.SearchRateLimit),
		"rate_limit_window":    c.RateLimitWindow.String(),
		"cors_allowed_origins": strings.Join(c.CORSAllowedOrigins, ","),
		"tracing_enabled":      strconv.FormatBool(c.TracingEnabled),
		"otlp_endpoint":        c.OTLPEndpoint,
	}
}

// maskSecret masks a secret value, showing only the first 4 characters followed by ****
// If the secret is shorter than 8 characters, it's fully masked.
func maskSecret(s string) string {
	if s == "" {
		return "<not set>"
	}
	if len(s) < 8 {
		return "****"
	}
	return s[:4] + "****"
}

// maskDatabaseURL masks the password in a database URL.
// Supports both postgres:// and postgresql:// schemes.
func maskDatabaseURL(s string) string {
	if s == "" {
		return "<not set>"
	}

	schemeEnd := strings.Index(s, "://")
	if schemeEnd == -1 {
		return maskSecret(s)
	}

	rest := s[schemeEnd+3:]
	atIndex := strings.Index(rest, "@")
	if atIndex == -1 {
		return s // No credentials in URL
	}

	colonIndex := strings.Index(rest[:atIndex], ":")
	if colonIndex == -1 {
		return s // No password (only username)
	}

	scheme := s[:schemeEnd+3]
	user := rest[:colonIndex]
	hostAndPath := rest[atIndex:]

	return scheme + user + ":****" + hostAndPath
}
