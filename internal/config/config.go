// Package config provides configuration management for the vault server.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Default configuration values.
const (
	DefaultServerPort      = 8080
	DefaultLogLevel        = "info"
	DefaultShutdownTimeout = 30 * time.Second
	DefaultMetricsEnabled  = true
	DefaultAuthMode        = "none"
	DefaultWSInterval      = time.Second
	DefaultCORSOrigins     = "*"
)

// Environment variable names.
const (
	EnvServerPort      = "APP_SERVER_PORT"
	EnvLogLevel        = "APP_LOG_LEVEL"
	EnvShutdownTimeout = "APP_SHUTDOWN_TIMEOUT"
	EnvMetricsEnabled  = "APP_METRICS_ENABLED"
	EnvAuthMode        = "APP_AUTH_MODE"
	EnvBasicAuthUsers  = "APP_BASIC_AUTH_USERS"
	EnvAPIKeys         = "APP_API_KEYS" //nolint:gosec // env var name, not a credential
	EnvSeedFile        = "APP_SEED_FILE"
	EnvWSInterval      = "APP_WS_INTERVAL"
	EnvCORSOrigins     = "APP_CORS_ALLOWED_ORIGINS"
)

// Auth modes.
const (
	AuthModeNone   = "none"
	AuthModeBasic  = "basic"
	AuthModeAPIKey = "apikey"
	AuthModeMulti  = "multi"
)

// Config holds the application configuration.
type Config struct {
	// Server settings.
	ServerPort      int
	LogLevel        string
	ShutdownTimeout time.Duration
	MetricsEnabled  bool
	CORSOrigins     []string

	// Authentication mode: none, basic, apikey, multi.
	AuthMode string

	// Basic auth settings (format: "user1:bcrypt_hash[:role],user2:bcrypt_hash").
	BasicAuthUsers string

	// API key settings (format: "key1:name1[:role],key2:name2").
	APIKeys string

	// Vault settings.
	SeedFile   string        // Optional YAML inventory loaded at startup.
	WSInterval time.Duration // Period of WebSocket vault snapshots.
}

// Validation errors.
var (
	ErrInvalidServerPort      = errors.New("server port must be between 1 and 65535")
	ErrInvalidLogLevel        = errors.New("log level must be one of: debug, info, warn, error")
	ErrInvalidShutdownTimeout = errors.New("shutdown timeout must be positive")
	ErrInvalidAuthMode        = errors.New(
		"auth mode must be one of: none, basic, apikey, multi",
	)
	ErrInvalidBasicAuthConfig = errors.New(
		"basic auth users must be set when auth mode is basic",
	)
	ErrInvalidAPIKeyConfig = errors.New(
		"API keys must be set when auth mode is apikey",
	)
	ErrInvalidMultiAuthConfig = errors.New(
		"at least one auth config must be provided when auth mode is multi",
	)
	ErrInvalidWSInterval = errors.New("websocket snapshot interval must be positive")
	ErrNoCORSOrigins     = errors.New("at least one CORS origin must be allowed")
)

// Load builds a Config from defaults overridden by APP_* environment
// variables, then validates it.
func Load() (*Config, error) {
	cfg := &Config{
		ServerPort:      DefaultServerPort,
		LogLevel:        DefaultLogLevel,
		ShutdownTimeout: DefaultShutdownTimeout,
		MetricsEnabled:  DefaultMetricsEnabled,
		CORSOrigins:     splitList(DefaultCORSOrigins),
		AuthMode:        DefaultAuthMode,
		WSInterval:      DefaultWSInterval,
	}

	for _, b := range cfg.envBindings() {
		val, ok := os.LookupEnv(b.name)
		if !ok || val == "" {
			continue
		}
		if err := b.set(val); err != nil {
			return nil, fmt.Errorf("parsing %s=%q: %w", b.name, val, err)
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// envBinding routes one environment variable into a Config field.
type envBinding struct {
	name string
	set  func(val string) error
}

func (c *Config) envBindings() []envBinding {
	return []envBinding{
		{EnvServerPort, intVar(&c.ServerPort)},
		{EnvLogLevel, stringVar(&c.LogLevel)},
		{EnvShutdownTimeout, durationVar(&c.ShutdownTimeout)},
		{EnvMetricsEnabled, boolVar(&c.MetricsEnabled)},
		{EnvCORSOrigins, func(val string) error { c.CORSOrigins = splitList(val); return nil }},
		{EnvAuthMode, stringVar(&c.AuthMode)},
		{EnvBasicAuthUsers, stringVar(&c.BasicAuthUsers)},
		{EnvAPIKeys, stringVar(&c.APIKeys)},
		{EnvSeedFile, stringVar(&c.SeedFile)},
		{EnvWSInterval, durationVar(&c.WSInterval)},
	}
}

func stringVar(dst *string) func(string) error {
	return func(val string) error {
		*dst = val
		return nil
	}
}

func intVar(dst *int) func(string) error {
	return func(val string) (err error) {
		*dst, err = strconv.Atoi(val)
		return err
	}
}

func boolVar(dst *bool) func(string) error {
	return func(val string) (err error) {
		*dst, err = strconv.ParseBool(val)
		return err
	}
}

func durationVar(dst *time.Duration) func(string) error {
	return func(val string) (err error) {
		*dst, err = time.ParseDuration(val)
		return err
	}
}

var logLevels = map[string]bool{"debug": true, "info": true, "warn": true, "error": true}

// Validate checks if the configuration values are valid.
func (c *Config) Validate() error {
	if err := c.validateServer(); err != nil {
		return err
	}

	if err := c.validateAuth(); err != nil {
		return err
	}

	if c.WSInterval <= 0 {
		return ErrInvalidWSInterval
	}

	return nil
}

// validateServer validates server-related configuration.
func (c *Config) validateServer() error {
	if c.ServerPort < 1 || c.ServerPort > 65535 {
		return ErrInvalidServerPort
	}

	if !logLevels[c.LogLevel] {
		return ErrInvalidLogLevel
	}

	if c.ShutdownTimeout <= 0 {
		return ErrInvalidShutdownTimeout
	}

	if len(c.CORSOrigins) == 0 {
		return ErrNoCORSOrigins
	}

	return nil
}

// validateAuth validates the auth mode and its mode-specific requirements.
func (c *Config) validateAuth() error {
	switch c.AuthModeOrDefault() {
	case AuthModeNone:
	case AuthModeBasic:
		if c.BasicAuthUsers == "" {
			return ErrInvalidBasicAuthConfig
		}
	case AuthModeAPIKey:
		if c.APIKeys == "" {
			return ErrInvalidAPIKeyConfig
		}
	case AuthModeMulti:
		if c.BasicAuthUsers == "" && c.APIKeys == "" {
			return ErrInvalidMultiAuthConfig
		}
	default:
		return ErrInvalidAuthMode
	}

	return nil
}

// AuthModeOrDefault returns the auth mode, defaulting to "none" if empty.
func (c *Config) AuthModeOrDefault() string {
	if c.AuthMode == "" {
		return DefaultAuthMode
	}
	return c.AuthMode
}

// Address returns the server address in host:port format.
func (c *Config) Address() string {
	return fmt.Sprintf(":%d", c.ServerPort)
}

// splitList splits a comma separated list, dropping empty entries.
func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
