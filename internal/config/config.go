// Package config provides configuration management for the recipe catalog server.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"
)

// Storage backends.
const (
	BackendMemory = "memory"
	BackendFile   = "file"
	BackendRedis  = "redis"
	BackendSQLite = "sqlite"
)

// Default configuration values.
const (
	DefaultServerPort      = 8080
	DefaultProbePort       = 9090
	DefaultLogLevel        = "info"
	DefaultShutdownTimeout = 30 * time.Second
	DefaultMetricsEnabled  = true
	DefaultStorageBackend  = BackendFile
	DefaultStorageKey      = "recipes"
	DefaultStorageDir      = "data"
	DefaultSQLitePath      = "data/recipes.db"
	DefaultRedisAddr       = "localhost:6379"
	DefaultRedisPrefix     = "recipe-catalog:"
)

// Environment variable names.
const (
	EnvServerPort      = "APP_SERVER_PORT"
	EnvProbePort       = "APP_PROBE_PORT"
	EnvLogLevel        = "APP_LOG_LEVEL"
	EnvShutdownTimeout = "APP_SHUTDOWN_TIMEOUT"
	EnvMetricsEnabled  = "APP_METRICS_ENABLED"
	EnvStorageBackend  = "APP_STORAGE_BACKEND"
	EnvStorageKey      = "APP_STORAGE_KEY"
	EnvStorageDir      = "APP_STORAGE_DIR"
	EnvSQLitePath      = "APP_SQLITE_PATH"
	EnvRedisAddr       = "APP_REDIS_ADDR"
	EnvRedisURL        = "APP_REDIS_URL"
	EnvRedisPassword   = "APP_REDIS_PASSWORD" //nolint:gosec // env var name, not a credential
	EnvRedisDB         = "APP_REDIS_DB"
	EnvRedisPrefix     = "APP_REDIS_PREFIX"
	EnvResetOnCorrupt  = "APP_STORAGE_RESET_ON_CORRUPT"
)

// Config holds the application configuration.
type Config struct {
	// Server settings.
	ServerPort      int
	ProbePort       int // Probe server port (0 = disabled).
	LogLevel        string
	ShutdownTimeout time.Duration
	MetricsEnabled  bool

	// Storage settings. StorageKey names the slot holding the catalog.
	StorageBackend string
	StorageKey     string
	StorageDir     string
	SQLitePath     string

	// Redis settings. RedisURL overrides the other fields when set.
	RedisAddr     string
	RedisURL      string
	RedisPassword string
	RedisDB       int
	RedisPrefix   string

	// ResetOnCorrupt replaces an unreadable catalog with the seed recipes
	// instead of refusing to start.
	ResetOnCorrupt bool
}

// Validation errors.
var (
	ErrInvalidServerPort      = errors.New("server port must be between 1 and 65535")
	ErrInvalidLogLevel        = errors.New("log level must be one of: debug, info, warn, error")
	ErrInvalidShutdownTimeout = errors.New("shutdown timeout must be positive")
	ErrInvalidProbePort       = errors.New(
		"probe port must be between 0 and 65535",
	)
	ErrProbePortConflict = errors.New(
		"probe port must differ from server port when probe port is not 0",
	)
	ErrInvalidStorageBackend = errors.New(
		"storage backend must be one of: memory, file, redis, sqlite",
	)
	ErrInvalidStorageKey = errors.New(
		"storage key must be set",
	)
	ErrInvalidStorageDir = errors.New(
		"storage dir must be set when storage backend is file",
	)
	ErrInvalidSQLitePath = errors.New(
		"sqlite path must be set when storage backend is sqlite",
	)
	ErrInvalidRedisConfig = errors.New(
		"redis addr or URL must be set when storage backend is redis",
	)
	ErrInvalidRedisDB = errors.New(
		"redis db must not be negative",
	)
)

// Load reads configuration from environment variables with defaults.
// Environment variables have priority over default values.
func Load() (*Config, error) {
	cfg := &Config{
		ServerPort:      DefaultServerPort,
		ProbePort:       DefaultProbePort,
		LogLevel:        DefaultLogLevel,
		ShutdownTimeout: DefaultShutdownTimeout,
		MetricsEnabled:  DefaultMetricsEnabled,
		StorageBackend:  DefaultStorageBackend,
		StorageKey:      DefaultStorageKey,
		StorageDir:      DefaultStorageDir,
		SQLitePath:      DefaultSQLitePath,
		RedisAddr:       DefaultRedisAddr,
		RedisPrefix:     DefaultRedisPrefix,
	}

	if err := cfg.loadFromEnv(); err != nil {
		return nil, fmt.Errorf("loading config from environment: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// loadFromEnv loads configuration values from environment variables.
func (c *Config) loadFromEnv() error {
	if err := c.loadServerEnv(); err != nil {
		return err
	}

	if err := c.loadStorageEnv(); err != nil {
		return err
	}

	return nil
}

// loadServerEnv loads server-related environment variables.
func (c *Config) loadServerEnv() error {
	if err := envInt(EnvServerPort, &c.ServerPort); err != nil {
		return err
	}

	if err := envInt(EnvProbePort, &c.ProbePort); err != nil {
		return err
	}

	if val := os.Getenv(EnvLogLevel); val != "" {
		c.LogLevel = val
	}

	if val := os.Getenv(EnvShutdownTimeout); val != "" {
		timeout, err := time.ParseDuration(val)
		if err != nil {
			return fmt.Errorf("parsing %s: %w", EnvShutdownTimeout, err)
		}
		c.ShutdownTimeout = timeout
	}

	return envBool(EnvMetricsEnabled, &c.MetricsEnabled)
}

// loadStorageEnv loads persistence-related environment variables.
func (c *Config) loadStorageEnv() error {
	envString(EnvStorageBackend, &c.StorageBackend)
	envString(EnvStorageKey, &c.StorageKey)
	envString(EnvStorageDir, &c.StorageDir)
	envString(EnvSQLitePath, &c.SQLitePath)
	envString(EnvRedisAddr, &c.RedisAddr)
	envString(EnvRedisURL, &c.RedisURL)
	envString(EnvRedisPassword, &c.RedisPassword)
	envString(EnvRedisPrefix, &c.RedisPrefix)

	if err := envInt(EnvRedisDB, &c.RedisDB); err != nil {
		return err
	}

	return envBool(EnvResetOnCorrupt, &c.ResetOnCorrupt)
}

func envString(name string, dst *string) {
	if val := os.Getenv(name); val != "" {
		*dst = val
	}
}

func envInt(name string, dst *int) error {
	val := os.Getenv(name)
	if val == "" {
		return nil
	}

	n, err := strconv.Atoi(val)
	if err != nil {
		return fmt.Errorf("parsing %s: %w", name, err)
	}
	*dst = n

	return nil
}

func envBool(name string, dst *bool) error {
	val := os.Getenv(name)
	if val == "" {
		return nil
	}

	b, err := strconv.ParseBool(val)
	if err != nil {
		return fmt.Errorf("parsing %s: %w", name, err)
	}
	*dst = b

	return nil
}

// Validate checks if the configuration values are valid.
func (c *Config) Validate() error {
	if err := c.validateServer(); err != nil {
		return err
	}

	if err := c.validateStorage(); err != nil {
		return err
	}

	return nil
}

// validateServer validates server-related configuration.
func (c *Config) validateServer() error {
	if c.ServerPort < 1 || c.ServerPort > 65535 {
		return ErrInvalidServerPort
	}

	if c.ProbePort < 0 || c.ProbePort > 65535 {
		return ErrInvalidProbePort
	}

	if c.ProbePort != 0 && c.ProbePort == c.ServerPort {
		return ErrProbePortConflict
	}

	validLogLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	if !validLogLevels[c.LogLevel] {
		return ErrInvalidLogLevel
	}

	if c.ShutdownTimeout <= 0 {
		return ErrInvalidShutdownTimeout
	}

	return nil
}

// validateStorage validates the selected storage backend's settings.
func (c *Config) validateStorage() error {
	if c.StorageKey == "" {
		return ErrInvalidStorageKey
	}

	switch c.StorageBackend {
	case BackendMemory:
	case BackendFile:
		if c.StorageDir == "" {
			return ErrInvalidStorageDir
		}
	case BackendSQLite:
		if c.SQLitePath == "" {
			return ErrInvalidSQLitePath
		}
	case BackendRedis:
		if c.RedisAddr == "" && c.RedisURL == "" {
			return ErrInvalidRedisConfig
		}
		if c.RedisDB < 0 {
			return ErrInvalidRedisDB
		}
	default:
		return ErrInvalidStorageBackend
	}

	return nil
}

// Address returns the server address in host:port format.
func (c *Config) Address() string {
	return fmt.Sprintf(":%d", c.ServerPort)
}

// ProbeAddress returns the probe server address in host:port format.
func (c *Config) ProbeAddress() string {
	return fmt.Sprintf(":%d", c.ProbePort)
}
