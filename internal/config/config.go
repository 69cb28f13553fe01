package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// FileName is the config file looked up at the workspace root.
const FileName = "dealready.yml"

// Store backends.
const (
	BackendMemory = "memory"
	BackendSQLite = "sqlite"
	BackendRedis  = "redis"
	BackendMongo  = "mongo"
)

// StoreConfig selects and configures the run store.
type StoreConfig struct {
	// Backend is one of memory, sqlite, redis, mongo.
	Backend string `yaml:"backend"`

	// SQLitePath is relative to the workspace root unless absolute.
	SQLitePath string `yaml:"sqlite_path"`

	RedisAddr     string `yaml:"redis_addr"`
	RedisPassword string `yaml:"redis_password"`
	RedisDB       int    `yaml:"redis_db"`

	MongoURI      string `yaml:"mongo_uri"`
	MongoDatabase string `yaml:"mongo_database"`

	// KeyPrefix namespaces keys in shared backends.
	KeyPrefix string `yaml:"key_prefix"`
}

// RetryConfig paces re-sends of writes that failed to reach the store.
type RetryConfig struct {
	MaxAttempts int           `yaml:"max_attempts"`
	Interval    time.Duration `yaml:"interval"`
	Burst       int           `yaml:"burst"`
}

// Config is the workspace configuration.
type Config struct {
	// LogLevel sets the logging verbosity (debug, info, warn, error)
	LogLevel string `yaml:"log_level"`

	// CatalogDir holds workspace catalogs that override the built-ins.
	CatalogDir string `yaml:"catalog_dir"`

	// DimensionsFile overrides the embedded category to dimension map.
	DimensionsFile string `yaml:"dimensions_file"`

	Store StoreConfig `yaml:"store"`
	Retry RetryConfig `yaml:"retry"`
}

// DefaultConfig returns a Config with sensible default values
func DefaultConfig() *Config {
	return &Config{
		LogLevel:   "info",
		CatalogDir: "catalogs",
		Store: StoreConfig{
			Backend:       BackendSQLite,
			SQLitePath:    "state/runs.sqlite",
			RedisAddr:     "localhost:6379",
			MongoURI:      "mongodb://localhost:27017",
			MongoDatabase: "dealready",
			KeyPrefix:     "dealready:",
		},
		Retry: RetryConfig{
			MaxAttempts: 3,
			Interval:    200 * time.Millisecond,
			Burst:       1,
		},
	}
}

// LoadConfig reads path over the defaults. A missing file yields the defaults.
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return cfg, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config file: %w", err)
	}
	return cfg, nil
}

// ApplyEnv overrides fields from DEALREADY_* environment variables.
func (c *Config) ApplyEnv() error {
	strs := map[string]*string{
		"DEALREADY_LOG_LEVEL":       &c.LogLevel,
		"DEALREADY_CATALOG_DIR":     &c.CatalogDir,
		"DEALREADY_DIMENSIONS_FILE": &c.DimensionsFile,
		"DEALREADY_STORE_BACKEND":   &c.Store.Backend,
		"DEALREADY_SQLITE_PATH":     &c.Store.SQLitePath,
		"DEALREADY_REDIS_ADDR":      &c.Store.RedisAddr,
		"DEALREADY_REDIS_PASSWORD":  &c.Store.RedisPassword,
		"DEALREADY_MONGO_URI":       &c.Store.MongoURI,
		"DEALREADY_MONGO_DATABASE":  &c.Store.MongoDatabase,
		"DEALREADY_KEY_PREFIX":      &c.Store.KeyPrefix,
	}
	for name, field := range strs {
		if v, ok := os.LookupEnv(name); ok {
			*field = strings.TrimSpace(v)
		}
	}
	if v, ok := os.LookupEnv("DEALREADY_REDIS_DB"); ok {
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return fmt.Errorf("DEALREADY_REDIS_DB: %w", err)
		}
		c.Store.RedisDB = n
	}
	if v, ok := os.LookupEnv("DEALREADY_RETRY_MAX_ATTEMPTS"); ok {
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return fmt.Errorf("DEALREADY_RETRY_MAX_ATTEMPTS: %w", err)
		}
		c.Retry.MaxAttempts = n
	}
	if v, ok := os.LookupEnv("DEALREADY_RETRY_INTERVAL"); ok {
		d, err := time.ParseDuration(strings.TrimSpace(v))
		if err != nil {
			return fmt.Errorf("DEALREADY_RETRY_INTERVAL: %w", err)
		}
		c.Retry.Interval = d
	}
	return nil
}

// Validate validates the configuration values
func (c *Config) Validate() error {
	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[c.LogLevel] {
		return fmt.Errorf("invalid log_level %q, must be one of: debug, info, warn, error", c.LogLevel)
	}

	switch c.Store.Backend {
	case BackendMemory:
	case BackendSQLite:
		if c.Store.SQLitePath == "" {
			return fmt.Errorf("store.sqlite_path cannot be empty for the sqlite backend")
		}
	case BackendRedis:
		if c.Store.RedisAddr == "" {
			return fmt.Errorf("store.redis_addr cannot be empty for the redis backend")
		}
		if c.Store.RedisDB < 0 {
			return fmt.Errorf("store.redis_db must be >= 0, got %d", c.Store.RedisDB)
		}
	case BackendMongo:
		if c.Store.MongoURI == "" || c.Store.MongoDatabase == "" {
			return fmt.Errorf("store.mongo_uri and store.mongo_database are required for the mongo backend")
		}
	default:
		return fmt.Errorf("invalid store.backend %q, must be one of: memory, sqlite, redis, mongo", c.Store.Backend)
	}

	if c.Retry.MaxAttempts <= 0 {
		return fmt.Errorf("retry.max_attempts must be > 0, got %d", c.Retry.MaxAttempts)
	}
	if c.Retry.Interval < 0 {
		return fmt.Errorf("retry.interval must be >= 0, got %v", c.Retry.Interval)
	}
	if c.Retry.Burst <= 0 {
		return fmt.Errorf("retry.burst must be > 0, got %d", c.Retry.Burst)
	}
	return nil
}

// Marshal renders the config as YAML.
func (c *Config) Marshal() ([]byte, error) {
	data, err := yaml.Marshal(c)
	if err != nil {
		return nil, fmt.Errorf("marshal config: %w", err)
	}
	return data, nil
}
