// Package config loads and validates configuration for the chunk cache and
// the predictable-replay scheduler.
//
// Configuration sources (in order of precedence):
//  1. Environment variables (CHUNKCACHE_*)
//  2. Configuration file (YAML or TOML)
//  3. Default values (lowest priority)
//
// Environment variables override only keys that the configuration file
// sets; when no configuration file is found, Load returns the defaults
// without reading the environment.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"time"

	"github.com/marmos91/chunkcache/internal/bytesize"
	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// Config is the top-level configuration for a chunkcache process: the
// ambient stack (logging, metrics, shutdown) plus the two domain
// subsystems (chunk cache, replay scheduler).
type Config struct {
	// Logging controls log output behavior.
	Logging LoggingConfig `mapstructure:"logging" yaml:"logging"`

	// Metrics contains Prometheus metrics server configuration.
	Metrics MetricsConfig `mapstructure:"metrics" yaml:"metrics"`

	// ShutdownTimeout is the maximum time to wait for graceful shutdown.
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout" validate:"required,gt=0" yaml:"shutdown_timeout"`

	// ChunkCache configures the sharded chunk cache's Configure() call and
	// its configuration keys.
	ChunkCache ChunkCacheConfig `mapstructure:"chunk_cache" yaml:"chunk_cache"`

	// Replay configures the predictable-replay timestamp scheduler.
	Replay ReplayConfig `mapstructure:"replay" yaml:"replay"`
}

// LoggingConfig controls logging behavior.
type LoggingConfig struct {
	// Level is the minimum log level to output.
	// Valid values: DEBUG, INFO, WARN, ERROR (case-insensitive).
	Level string `mapstructure:"level" validate:"required,oneof=DEBUG INFO WARN ERROR debug info warn error" yaml:"level"`

	// Format specifies the log output format: text or json.
	Format string `mapstructure:"format" validate:"required,oneof=text json" yaml:"format"`

	// Output specifies where logs are written: stdout, stderr, or a file path.
	Output string `mapstructure:"output" validate:"required" yaml:"output"`
}

// MetricsConfig configures the Prometheus metrics HTTP server.
// When Enabled is false, no metrics are collected (zero overhead).
type MetricsConfig struct {
	// Enabled controls whether metrics collection and the HTTP server are enabled.
	Enabled bool `mapstructure:"enabled" yaml:"enabled"`

	// Port is the HTTP port for the metrics endpoint.
	Port int `mapstructure:"port" validate:"omitempty,min=1,max=65535" yaml:"port"`
}

// ChunkCacheConfig mirrors the chunk cache's configuration keys
// (chunk_cache.enabled, chunk_cache.size, chunk_cache.type,
// chunk_cache.directory_path, chunk_cache.hashsize).
type ChunkCacheConfig struct {
	// Enabled controls whether the chunk cache is configured at all.
	Enabled bool `mapstructure:"enabled" yaml:"enabled"`

	// Size is the cache's total capacity in bytes. Required when Enabled.
	Size bytesize.ByteSize `mapstructure:"size" validate:"required_if=Enabled true" yaml:"size,omitempty"`

	// Type selects the backing: "dram" or "file" (persistent-memory).
	Type string `mapstructure:"type" validate:"omitempty,oneof=dram file" yaml:"type"`

	// DirectoryPath is the absolute persistent-memory arena directory,
	// required when Type == "file".
	DirectoryPath string `mapstructure:"directory_path" validate:"required_if=Type file" yaml:"directory_path,omitempty"`

	// HashSize is the bucket count, in [chunkcache.MinHash, chunkcache.MaxHash].
	HashSize uint32 `mapstructure:"hashsize" yaml:"hashsize,omitempty"`

	// DefaultChunkSize is the chunk size used for new admissions.
	DefaultChunkSize bytesize.ByteSize `mapstructure:"default_chunk_size" yaml:"default_chunk_size,omitempty"`
}

// ReplayConfig configures the predictable-replay timestamp scheduler.
type ReplayConfig struct {
	// LaneCount is L, the number of lanes. Must be a power of two.
	LaneCount uint32 `mapstructure:"lane_count" validate:"omitempty" yaml:"lane_count,omitempty"`

	// DataSeed is XORed with a worker's replay timestamp to seed its data RNG.
	DataSeed uint64 `mapstructure:"data_seed" yaml:"data_seed,omitempty"`

	// ExtraSeed is XORed with a worker's replay timestamp to seed its
	// non-data-choice RNG.
	ExtraSeed uint64 `mapstructure:"extra_seed" yaml:"extra_seed,omitempty"`

	// StopTimestamp ends the run once stable_timestamp reaches it and no
	// worker holds a pending replay timestamp above it. Zero sets no stop
	// condition in the scheduler; chunkbench replay then uses its
	// --stop-timestamp flag value instead.
	StopTimestamp uint64 `mapstructure:"stop_timestamp" yaml:"stop_timestamp,omitempty"`

	// StableAdvanceInterval is the advancer's cadence.
	StableAdvanceInterval time.Duration `mapstructure:"stable_advance_interval" yaml:"stable_advance_interval,omitempty"`

	// WorkerCount is the number of concurrent replay workers.
	WorkerCount int `mapstructure:"worker_count" validate:"min=1" yaml:"worker_count,omitempty"`

	// MaxRows bounds the key space workers pick from.
	MaxRows uint64 `mapstructure:"max_rows" yaml:"max_rows,omitempty"`

	// PauseAfterRollback enables the post-rollback backoff before a worker retries.
	PauseAfterRollback bool `mapstructure:"pause_after_rollback" yaml:"pause_after_rollback"`
}

// Load loads configuration from file, environment, and defaults.
func Load(configPath string) (*Config, error) {
	v := viper.New()
	setupViper(v, configPath)

	configFileFound, err := readConfigFile(v)
	if err != nil {
		return nil, err
	}

	if !configFileFound {
		return GetDefaultConfig(), nil
	}

	var cfg Config
	if err := v.Unmarshal(&cfg, viper.DecodeHook(configDecodeHooks())); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	ApplyDefaults(&cfg)

	if err := Validate(&cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return &cfg, nil
}

// MustLoad loads configuration, returning a user-friendly error if the
// config file is missing rather than silently falling back to defaults.
func MustLoad(configPath string) (*Config, error) {
	if configPath == "" {
		if !DefaultConfigExists() {
			return nil, fmt.Errorf("no configuration file found at default location: %s\n\n"+
				"Please create one, or run chunkbench with an explicit --config path",
				GetDefaultConfigPath())
		}
		configPath = GetDefaultConfigPath()
	} else if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return nil, fmt.Errorf("configuration file not found: %s", configPath)
	}

	cfg, err := Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	return cfg, nil
}

// SaveConfig writes cfg to path in YAML format.
func SaveConfig(cfg *Config, path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// setupViper configures viper with environment variable and config file settings.
func setupViper(v *viper.Viper, configPath string) {
	v.SetEnvPrefix("CHUNKCACHE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		configDir := getConfigDir()
		v.AddConfigPath(configDir)
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}
}

// readConfigFile reads the configuration file if it exists.
// Returns (fileFound, error).
func readConfigFile(v *viper.Viper) (bool, error) {
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return false, nil
		}
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, fmt.Errorf("failed to read config file: %w", err)
	}
	return true, nil
}

// configDecodeHooks returns the combined decode hook for custom types.
func configDecodeHooks() mapstructure.DecodeHookFunc {
	return mapstructure.ComposeDecodeHookFunc(
		byteSizeDecodeHook(),
		durationDecodeHook(),
	)
}

// byteSizeDecodeHook converts strings and numbers to bytesize.ByteSize,
// so config files can use human-readable sizes like "1Gi", "500Mi", "100MB".
func byteSizeDecodeHook() mapstructure.DecodeHookFunc {
	return func(from reflect.Type, to reflect.Type, data interface{}) (interface{}, error) {
		if to != reflect.TypeOf(bytesize.ByteSize(0)) {
			return data, nil
		}
		switch v := data.(type) {
		case string:
			return bytesize.ParseByteSize(v)
		case int:
			return bytesize.ByteSize(v), nil
		case int64:
			return bytesize.ByteSize(v), nil
		case uint64:
			return bytesize.ByteSize(v), nil
		case float64:
			return bytesize.ByteSize(v), nil
		default:
			return data, nil
		}
	}
}

// durationDecodeHook converts strings to time.Duration, so config files can
// use human-readable durations like "30s", "5m", "1h".
func durationDecodeHook() mapstructure.DecodeHookFunc {
	return func(from reflect.Type, to reflect.Type, data interface{}) (interface{}, error) {
		if to != reflect.TypeOf(time.Duration(0)) {
			return data, nil
		}
		switch v := data.(type) {
		case string:
			return time.ParseDuration(v)
		case int:
			return time.Duration(v), nil
		case int64:
			return time.Duration(v), nil
		case float64:
			return time.Duration(v), nil
		default:
			return data, nil
		}
	}
}

// getConfigDir returns the configuration directory path, using
// XDG_CONFIG_HOME if set, otherwise ~/.config, falling back to "." if the
// home directory cannot be determined.
func getConfigDir() string {
	if xdgConfig := os.Getenv("XDG_CONFIG_HOME"); xdgConfig != "" {
		return filepath.Join(xdgConfig, "chunkcache")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return filepath.Join(home, ".config", "chunkcache")
}

// GetDefaultConfigPath returns the default configuration file path.
func GetDefaultConfigPath() string {
	return filepath.Join(getConfigDir(), "config.yaml")
}

// DefaultConfigExists reports whether a config file exists at the default location.
func DefaultConfigExists() bool {
	_, err := os.Stat(GetDefaultConfigPath())
	return err == nil
}

// GetConfigDir returns the configuration directory path.
func GetConfigDir() string {
	return getConfigDir()
}
