// ABOUTME: drivewatch configuration with backend selection and environment overrides.
// ABOUTME: Handles the config file, .env loading, validation, and the storage factory.

package config

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/harperreed/drivewatch/internal/storage"
	"github.com/joho/godotenv"
)

// Backend names.
const (
	BackendSQLite   = "sqlite"
	BackendBadger   = "badger"
	BackendPostgres = "postgres"
)

// Defaults applied by the getters.
const (
	DefaultHTTPAddr     = ":8080"
	DefaultRedisChannel = "drivewatch:alerts"
	DefaultLogLevel     = "info"
	DefaultLogFormat    = "console"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "DRIVEWATCH_"

// Config stores drivewatch configuration.
type Config struct {
	// Backend selects the storage backend: "sqlite" (default), "badger", or "postgres".
	Backend string `json:"backend,omitempty"`

	// DataDir is the root directory for data storage.
	// SQLite puts drivewatch.db here. Badger puts its badger/ directory here.
	// Supports ~ expansion for home directory. Defaults to ~/.local/share/drivewatch.
	DataDir string `json:"data_dir,omitempty"`

	// PostgresURL is required when Backend is "postgres".
	PostgresURL string `json:"postgres_url,omitempty"`

	HTTPAddr string `json:"http_addr,omitempty"`

	// RedisAddr enables alert publishing over Redis when set.
	RedisAddr    string `json:"redis_addr,omitempty"`
	RedisChannel string `json:"redis_channel,omitempty"`

	LogLevel  string `json:"log_level,omitempty"`
	LogFormat string `json:"log_format,omitempty"`
}

// GetBackend returns the configured backend, defaulting to "sqlite".
func (c *Config) GetBackend() string {
	if c.Backend == "" {
		return BackendSQLite
	}
	return strings.ToLower(c.Backend)
}

// GetDataDir returns the configured data directory with ~ expanded,
// defaulting to the standard XDG data directory.
func (c *Config) GetDataDir() string {
	if c.DataDir == "" {
		return storage.DataDir()
	}
	return ExpandPath(c.DataDir)
}

// GetHTTPAddr returns the listen address for the HTTP API.
func (c *Config) GetHTTPAddr() string {
	return valueOr(c.HTTPAddr, DefaultHTTPAddr)
}

// GetRedisChannel returns the alert channel name.
func (c *Config) GetRedisChannel() string {
	return valueOr(c.RedisChannel, DefaultRedisChannel)
}

// GetLogLevel returns the log level name.
func (c *Config) GetLogLevel() string {
	return valueOr(c.LogLevel, DefaultLogLevel)
}

// GetLogFormat returns "console" or "json".
func (c *Config) GetLogFormat() string {
	return valueOr(strings.ToLower(c.LogFormat), DefaultLogFormat)
}

func valueOr(v, def string) string {
	if v == "" {
		return def
	}
	return v
}

// Validate rejects settings that cannot work together.
func (c *Config) Validate() error {
	switch c.GetBackend() {
	case BackendSQLite, BackendBadger:
	case BackendPostgres:
		if c.PostgresURL == "" {
			return fmt.Errorf("backend %q requires postgres_url", BackendPostgres)
		}
	default:
		return fmt.Errorf("unknown backend: %q", c.Backend)
	}

	switch c.GetLogFormat() {
	case "console", "json":
	default:
		return fmt.Errorf("unknown log format: %q", c.LogFormat)
	}
	return nil
}

// ExpandPath expands a leading ~ to the user's home directory.
func ExpandPath(path string) string {
	if path == "" {
		return ""
	}
	if path == "~" {
		home, _ := os.UserHomeDir()
		return home
	}
	if strings.HasPrefix(path, "~/") {
		home, _ := os.UserHomeDir()
		return filepath.Join(home, path[2:])
	}
	return path
}

// OpenStorage creates a Repository implementation based on the configured backend.
func (c *Config) OpenStorage(ctx context.Context) (storage.Repository, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}
	dataDir := c.GetDataDir()

	switch c.GetBackend() {
	case BackendBadger:
		return storage.OpenBadger(filepath.Join(dataDir, "badger"))
	case BackendPostgres:
		return storage.OpenPostgres(ctx, c.PostgresURL)
	default:
		return storage.Open(filepath.Join(dataDir, "drivewatch.db"))
	}
}

// ApplyEnv overrides fields from DRIVEWATCH_* environment variables.
func (c *Config) ApplyEnv() {
	overrides := map[string]*string{
		"BACKEND":       &c.Backend,
		"DATA_DIR":      &c.DataDir,
		"POSTGRES_URL":  &c.PostgresURL,
		"HTTP_ADDR":     &c.HTTPAddr,
		"REDIS_ADDR":    &c.RedisAddr,
		"REDIS_CHANNEL": &c.RedisChannel,
		"LOG_LEVEL":     &c.LogLevel,
		"LOG_FORMAT":    &c.LogFormat,
	}
	for name, field := range overrides {
		if v, ok := os.LookupEnv(EnvPrefix + name); ok && v != "" {
			*field = v
		}
	}
}

// GetConfigPath returns the config file path.
func GetConfigPath() string {
	configDir := os.Getenv("XDG_CONFIG_HOME")
	if configDir == "" {
		homeDir, _ := os.UserHomeDir()
		configDir = filepath.Join(homeDir, ".config")
	}
	return filepath.Join(configDir, "drivewatch", "config.json")
}

// Load reads config from disk, then a .env file in the working directory, then the environment.
func Load() (*Config, error) {
	cfg, err := LoadFile()
	if err != nil {
		return nil, err
	}

	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("load .env: %w", err)
	}
	cfg.ApplyEnv()
	return cfg, nil
}

// LoadFile reads only the config file. A missing file yields an empty config.
func LoadFile() (*Config, error) {
	path := GetConfigPath()
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return &Config{}, nil
		}
		return nil, err
	}

	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Save writes config to disk.
func (c *Config) Save() error {
	path := GetConfigPath()
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0750); err != nil {
		return err
	}

	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0600)
}
