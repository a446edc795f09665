package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config represents the complete stashd configuration.
//
// This structure captures all configurable aspects of the server:
//   - Logging configuration
//   - HTTP server settings
//   - Storage root and archive scratch location
//   - Access control (shared password, privilege mode)
//   - Session store selection and configuration (store-specific)
//   - Metrics exposure
//
// Configuration sources (in order of precedence):
//  1. Environment variables (STASHD_*)
//  2. Configuration file (YAML or TOML)
//  3. Default values (lowest priority)
//
// Store Configuration Pattern:
// The session store defines its own configuration per type. The Config
// struct contains type-specific sections (sessions.memory, sessions.badger)
// and only the section matching the selected type is used.
type Config struct {
	// Logging controls log output behavior
	Logging LoggingConfig `mapstructure:"logging"`

	// Server contains HTTP server settings
	Server ServerConfig `mapstructure:"server"`

	// Storage locates the storage root and archive scratch directory
	Storage StorageConfig `mapstructure:"storage"`

	// Access holds the shared password and the privilege mode
	Access AccessConfig `mapstructure:"access"`

	// Sessions specifies the session store type and type-specific options
	Sessions SessionsConfig `mapstructure:"sessions"`

	// Metrics controls the Prometheus metrics server
	Metrics MetricsConfig `mapstructure:"metrics"`
}

// LoggingConfig controls logging behavior.
type LoggingConfig struct {
	// Level is the minimum log level to output
	// Valid values: DEBUG, INFO, WARN, ERROR (case-insensitive)
	Level string `mapstructure:"level" validate:"required,oneof=DEBUG INFO WARN ERROR debug info warn error"`

	// Output specifies where logs are written
	// Valid values: stdout, stderr, or a file path
	Output string `mapstructure:"output" validate:"required"`
}

// ServerConfig contains HTTP server settings.
type ServerConfig struct {
	// ListenAddr is the address the HTTP server binds to (e.g. ":9870")
	ListenAddr string `mapstructure:"listen_addr" validate:"required"`

	// ReadTimeout bounds reading an entire request, including the body
	ReadTimeout time.Duration `mapstructure:"read_timeout" validate:"gt=0"`

	// WriteTimeout bounds writing a response. Must accommodate large
	// downloads; zero disables it.
	WriteTimeout time.Duration `mapstructure:"write_timeout"`

	// IdleTimeout bounds keep-alive waits between requests
	IdleTimeout time.Duration `mapstructure:"idle_timeout" validate:"gt=0"`

	// ShutdownTimeout is the maximum time to wait for graceful shutdown
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout" validate:"required,gt=0"`

	// MaxUploadBytes caps the size of a single uploaded file
	MaxUploadBytes int64 `mapstructure:"max_upload_bytes" validate:"gt=0"`
}

// StorageConfig locates the storage tree on disk.
type StorageConfig struct {
	// Root is the directory all file operations are confined to.
	// Created at startup if absent; never changed afterwards.
	Root string `mapstructure:"root" validate:"required"`

	// ScratchDir is where folder archives are staged before streaming.
	// Defaults to the OS temp directory.
	ScratchDir string `mapstructure:"scratch_dir"`
}

// AccessConfig holds the access gate settings.
type AccessConfig struct {
	// Password is the shared secret gating session establishment.
	// Typically supplied via STASHD_ACCESS_PASSWORD.
	Password string `mapstructure:"password" validate:"required"`

	// Privilege restricts which operations the server permits
	// Valid values: upload_only, download_only, upload_download
	Privilege string `mapstructure:"privilege" validate:"required,oneof=upload_only download_only upload_download"`
}

// SessionsConfig specifies session store configuration.
//
// The Type field determines which store implementation is used.
// Only the corresponding type-specific configuration section is used.
type SessionsConfig struct {
	// Type specifies which session store implementation to use
	// Valid values: memory, badger
	Type string `mapstructure:"type" validate:"required,oneof=memory badger"`

	// TTL is the session lifetime
	TTL time.Duration `mapstructure:"ttl" validate:"required,gt=0"`

	// Memory contains memory-specific configuration
	// Only used when Type = "memory"
	Memory map[string]any `mapstructure:"memory"`

	// Badger contains BadgerDB-specific configuration
	// Only used when Type = "badger"
	Badger map[string]any `mapstructure:"badger"`
}

// MetricsConfig controls the Prometheus metrics server.
type MetricsConfig struct {
	// Enabled turns metrics collection and the /metrics server on
	Enabled bool `mapstructure:"enabled"`

	// Port is the metrics server listen port
	Port int `mapstructure:"port" validate:"gte=0,lte=65535"`
}

// Load loads configuration from file, environment, and defaults.
//
// Configuration precedence (highest to lowest):
//  1. Environment variables (STASHD_*)
//  2. Configuration file
//  3. Default values
//
// Parameters:
//   - configPath: Path to config file (empty string uses default location)
//
// Returns:
//   - *Config: Loaded and validated configuration
//   - error: Configuration loading or validation error
func Load(configPath string) (*Config, error) {
	v := viper.New()

	setupViper(v, configPath)

	if err := readConfigFile(v); err != nil {
		return nil, err
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	ApplyDefaults(&cfg)

	if err := Validate(&cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return &cfg, nil
}

// setupViper configures viper with environment variables and config file
// settings.
func setupViper(v *viper.Viper, configPath string) {
	// Environment variables use the STASHD_ prefix with underscores.
	// Example: STASHD_ACCESS_PASSWORD=hunter2, STASHD_ACCESS_PRIVILEGE=download_only
	v.SetEnvPrefix("STASHD")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Viper only consults the environment for keys it knows about, so the
	// env-only deployment path (no config file at all) needs the lookup keys
	// registered up front.
	for _, key := range []string{
		"logging.level", "logging.output",
		"server.listen_addr", "server.read_timeout", "server.write_timeout",
		"server.idle_timeout", "server.shutdown_timeout", "server.max_upload_bytes",
		"storage.root", "storage.scratch_dir",
		"access.password", "access.privilege",
		"sessions.type", "sessions.ttl",
		"sessions.badger.db_path", "sessions.badger.in_memory",
		"metrics.enabled", "metrics.port",
	} {
		if err := v.BindEnv(key); err != nil {
			// BindEnv only fails on an empty key; unreachable here.
			panic(err)
		}
	}

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.AddConfigPath(getConfigDir())
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}
}

// readConfigFile reads the configuration file if it exists.
func readConfigFile(v *viper.Viper) error {
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok || os.IsNotExist(err) {
			// Config file not found is acceptable - use env and defaults
			return nil
		}
		return fmt.Errorf("failed to read config file: %w", err)
	}
	return nil
}

// getConfigDir returns the configuration directory path.
//
// Uses XDG_CONFIG_HOME if set, otherwise ~/.config, or falls back to the
// current directory if the home directory cannot be determined.
func getConfigDir() string {
	if xdgConfig := os.Getenv("XDG_CONFIG_HOME"); xdgConfig != "" {
		return filepath.Join(xdgConfig, "stashd")
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}

	return filepath.Join(home, ".config", "stashd")
}

// GetDefaultConfigPath returns the default configuration file path.
func GetDefaultConfigPath() string {
	return filepath.Join(getConfigDir(), "config.yaml")
}
