// Package config loads and validates the stickerd configuration.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"time"

	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/marmos91/stickerd/internal/bytesize"
	"github.com/marmos91/stickerd/internal/logger"
	"github.com/marmos91/stickerd/pkg/api"
	"github.com/marmos91/stickerd/pkg/blob"
	"github.com/marmos91/stickerd/pkg/catalog/store"
	"github.com/marmos91/stickerd/pkg/enrich"
	"github.com/marmos91/stickerd/pkg/vision"
)

// Config is the stickerd server configuration.
//
// Configuration sources (in order of precedence):
//  1. Environment variables (STICKERD_*)
//  2. Configuration file (YAML)
//  3. Default values (lowest priority)
type Config struct {
	// Logging controls log output behavior
	Logging logger.Config `mapstructure:"logging" yaml:"logging"`

	// Telemetry controls OpenTelemetry tracing and Pyroscope profiling
	Telemetry TelemetryConfig `mapstructure:"telemetry" yaml:"telemetry"`

	// ShutdownTimeout is the maximum time to wait for graceful shutdown
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout" validate:"required,gt=0" yaml:"shutdown_timeout"`

	// Database configures the metadata store (SQLite or PostgreSQL)
	Database store.Config `mapstructure:"database" yaml:"database"`

	// Storage configures the blob store holding the image files
	Storage StorageConfig `mapstructure:"storage" yaml:"storage"`

	// Vision configures the AI model client
	Vision VisionConfig `mapstructure:"vision" yaml:"vision"`

	// Catalog configures ingest and enrichment behavior
	Catalog CatalogConfig `mapstructure:"catalog" yaml:"catalog"`

	// Worker configures the enrichment worker loop
	Worker enrich.Config `mapstructure:"worker" yaml:"worker"`

	// API configures the HTTP server
	API api.Config `mapstructure:"api" yaml:"api"`

	// Metrics controls Prometheus metrics collection.
	// Metrics are served on the API server's /metrics route.
	Metrics MetricsConfig `mapstructure:"metrics" yaml:"metrics"`
}

// StorageConfig configures the blob store backend.
type StorageConfig struct {
	// Type selects the backend: "local" or "s3".
	// Default: local
	Type blob.Type `mapstructure:"type" validate:"omitempty,oneof=local s3" yaml:"type"`

	// Path is the local storage directory. Used when Type is "local".
	// Default: $XDG_DATA_HOME/stickerd/images
	Path string `mapstructure:"path" yaml:"path"`

	// S3 configures the S3 backend. Used when Type is "s3".
	S3 blob.S3Config `mapstructure:"s3" yaml:"s3"`
}

// VisionConfig configures the AI model client.
type VisionConfig struct {
	// Enabled controls whether any model calls happen at all.
	// Default: true when an API key is configured
	Enabled *bool `mapstructure:"enabled" yaml:"enabled"`

	// OpenAI configures the OpenAI-compatible chat-completions endpoint.
	OpenAI vision.OpenAIConfig `mapstructure:"openai" yaml:"openai"`
}

// IsEnabled reports whether model calls are allowed.
// Defaults to true iff an API key is set.
func (c *VisionConfig) IsEnabled() bool {
	if c.Enabled == nil {
		return c.OpenAI.APIKey != ""
	}
	return *c.Enabled
}

// CatalogConfig configures ingest and enrichment behavior.
type CatalogConfig struct {
	// Categories are seed category names created if absent at startup.
	Categories []string `mapstructure:"categories" yaml:"categories"`

	// AutoAnalyze gates enrichment of new images. Default: true
	AutoAnalyze *bool `mapstructure:"auto_analyze" yaml:"auto_analyze"`

	// AutoCategorize lets applied results change an image's category and
	// create model-proposed categories. When false, enrichment only
	// contributes names and tags. Default: true
	AutoCategorize *bool `mapstructure:"auto_categorize" yaml:"auto_categorize"`

	// PersistTasks selects the durable queue pipeline. When false,
	// enrichment runs inline and blocks the ingest call. Default: true
	PersistTasks *bool `mapstructure:"persist_tasks" yaml:"persist_tasks"`

	// AcceptedImageTypes and EnableTypeFilter gate uploads on a model
	// classification of the image content.
	AcceptedImageTypes []string `mapstructure:"accepted_image_types" yaml:"accepted_image_types"`
	EnableTypeFilter   bool     `mapstructure:"enable_type_filter" yaml:"enable_type_filter"`

	// WatchFolder, when set, is a directory whose dropped files are
	// auto-imported.
	WatchFolder string `mapstructure:"watch_folder" yaml:"watch_folder"`
}

// AutoAnalyzeEnabled defaults to true.
func (c *CatalogConfig) AutoAnalyzeEnabled() bool {
	if c.AutoAnalyze == nil {
		return true
	}
	return *c.AutoAnalyze
}

// AutoCategorizeEnabled defaults to true.
func (c *CatalogConfig) AutoCategorizeEnabled() bool {
	if c.AutoCategorize == nil {
		return true
	}
	return *c.AutoCategorize
}

// PersistTasksEnabled defaults to true.
func (c *CatalogConfig) PersistTasksEnabled() bool {
	if c.PersistTasks == nil {
		return true
	}
	return *c.PersistTasks
}

// TelemetryConfig controls OpenTelemetry distributed tracing.
// When enabled, trace data is exported to an OTLP-compatible collector.
type TelemetryConfig struct {
	// Enabled controls whether distributed tracing is enabled
	// Default: false (opt-in for telemetry)
	Enabled bool `mapstructure:"enabled" yaml:"enabled"`

	// Endpoint is the OTLP collector endpoint (host:port)
	// Default: "localhost:4317" (standard OTLP gRPC port)
	Endpoint string `mapstructure:"endpoint" yaml:"endpoint"`

	// Insecure controls whether to use insecure (non-TLS) connection
	// Default: true (for local development)
	Insecure bool `mapstructure:"insecure" yaml:"insecure"`

	// SampleRate controls the trace sampling rate (0.0 to 1.0)
	// Default: 1.0 (sample all)
	SampleRate float64 `mapstructure:"sample_rate" validate:"omitempty,gte=0,lte=1" yaml:"sample_rate"`

	// Profiling contains Pyroscope continuous profiling configuration
	Profiling ProfilingConfig `mapstructure:"profiling" yaml:"profiling"`
}

// ProfilingConfig controls Pyroscope continuous profiling.
type ProfilingConfig struct {
	// Enabled controls whether continuous profiling is enabled
	// Default: false (opt-in for profiling)
	Enabled bool `mapstructure:"enabled" yaml:"enabled"`

	// Endpoint is the Pyroscope server endpoint (URL)
	// Default: "http://localhost:4040"
	Endpoint string `mapstructure:"endpoint" yaml:"endpoint"`

	// ProfileTypes specifies which profile types to collect
	ProfileTypes []string `mapstructure:"profile_types" yaml:"profile_types"`
}

// MetricsConfig controls Prometheus metrics collection.
// When Enabled is false, no metrics are collected (zero overhead).
type MetricsConfig struct {
	Enabled bool `mapstructure:"enabled" yaml:"enabled"`
}

// Load loads configuration from file, environment, and defaults.
//
// Parameters:
//   - configPath: Path to config file (empty string uses default location)
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

// MustLoad loads configuration with helpful error messages when the config
// file is missing.
func MustLoad(configPath string) (*Config, error) {
	if configPath == "" {
		if !DefaultConfigExists() {
			return nil, fmt.Errorf("no configuration file found at default location: %s\n\n"+
				"Please initialize a configuration file first:\n"+
				"  stickerd init\n\n"+
				"Or specify a custom config file:\n"+
				"  stickerd <command> --config /path/to/config.yaml",
				GetDefaultConfigPath())
		}
		configPath = GetDefaultConfigPath()
	} else {
		if _, err := os.Stat(configPath); os.IsNotExist(err) {
			return nil, fmt.Errorf("configuration file not found: %s\n\n"+
				"Please create the configuration file:\n"+
				"  stickerd init --config %s",
				configPath, configPath)
		}
	}

	cfg, err := Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	return cfg, nil
}

// SaveConfig saves the configuration to the specified file path in YAML.
func SaveConfig(cfg *Config, path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	// 0600: the file may hold the upload token and model API key.
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// setupViper configures environment variable and config file handling.
func setupViper(v *viper.Viper, configPath string) {
	// Example: STICKERD_LOGGING_LEVEL=DEBUG
	v.SetEnvPrefix("STICKERD")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.AddConfigPath(getConfigDir())
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
		mapstructure.StringToSliceHookFunc(","),
	)
}

// byteSizeDecodeHook converts human-readable strings like "32Mi" and raw
// numbers to bytesize.ByteSize.
func byteSizeDecodeHook() mapstructure.DecodeHookFunc {
	return func(from reflect.Type, to reflect.Type, data interface{}) (interface{}, error) {
		if to != reflect.TypeOf(bytesize.ByteSize(0)) {
			return data, nil
		}

		switch v := data.(type) {
		case string:
			return bytesize.Parse(v)
		case int:
			return bytesize.ByteSize(v), nil
		case int64:
			return bytesize.ByteSize(v), nil
		case uint64:
			return bytesize.ByteSize(v), nil
		case float64:
			// YAML often deserializes numbers as float64
			return bytesize.ByteSize(v), nil
		default:
			return data, nil
		}
	}
}

// durationDecodeHook converts strings like "30s" and raw numbers (taken as
// nanoseconds) to time.Duration.
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
			// YAML often deserializes numbers as float64
			return time.Duration(v), nil
		default:
			return data, nil
		}
	}
}

// getConfigDir returns the configuration directory path.
//
// Uses XDG_CONFIG_HOME if set, otherwise ~/.config, or falls back to the
// current directory if the home directory cannot be determined.
func getConfigDir() string {
	if xdgConfig := os.Getenv("XDG_CONFIG_HOME"); xdgConfig != "" {
		return filepath.Join(xdgConfig, "stickerd")
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return filepath.Join(home, ".config", "stickerd")
}

// GetDefaultConfigPath returns the default configuration file path.
func GetDefaultConfigPath() string {
	return filepath.Join(getConfigDir(), "config.yaml")
}

// DefaultConfigExists checks if a config file exists at the default location.
func DefaultConfigExists() bool {
	_, err := os.Stat(GetDefaultConfigPath())
	return err == nil
}

// GetConfigDir returns the configuration directory path (exposed for the
// init command).
func GetConfigDir() string {
	return getConfigDir()
}
