package config

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/marmos91/stickerd/internal/logger"
	"github.com/marmos91/stickerd/pkg/blob"
	"github.com/marmos91/stickerd/pkg/catalog/store"
)

// ApplyDefaults sets default values for any unspecified configuration fields.
//
// Zero values (0, "", false, nil) are replaced with defaults; explicit
// values are preserved.
func ApplyDefaults(cfg *Config) {
	applyLoggingDefaults(&cfg.Logging)
	applyTelemetryDefaults(&cfg.Telemetry)
	if cfg.ShutdownTimeout == 0 {
		cfg.ShutdownTimeout = 30 * time.Second
	}
	cfg.Database.ApplyDefaults()
	applyStorageDefaults(&cfg.Storage)
	cfg.Vision.OpenAI.ApplyDefaults()
	cfg.Worker.ApplyDefaults()
	cfg.API.ApplyDefaults()
}

// applyLoggingDefaults sets logging defaults and normalizes values.
func applyLoggingDefaults(cfg *logger.Config) {
	if cfg.Level == "" {
		cfg.Level = "INFO"
	}
	cfg.Level = strings.ToUpper(cfg.Level)

	if cfg.Format == "" {
		cfg.Format = "text"
	}
	if cfg.Output == "" {
		cfg.Output = "stdout"
	}
}

// applyTelemetryDefaults sets OpenTelemetry defaults.
func applyTelemetryDefaults(cfg *TelemetryConfig) {
	if cfg.Endpoint == "" {
		cfg.Endpoint = "localhost:4317"
	}
	if cfg.SampleRate == 0 {
		cfg.SampleRate = 1.0
	}
	applyProfilingDefaults(&cfg.Profiling)
}

// applyProfilingDefaults sets Pyroscope profiling defaults.
func applyProfilingDefaults(cfg *ProfilingConfig) {
	if cfg.Endpoint == "" {
		cfg.Endpoint = "http://localhost:4040"
	}
	if len(cfg.ProfileTypes) == 0 {
		cfg.ProfileTypes = []string{
			"cpu",
			"alloc_objects",
			"alloc_space",
			"inuse_objects",
			"inuse_space",
			"goroutines",
		}
	}
}

// applyStorageDefaults sets blob store defaults.
func applyStorageDefaults(cfg *StorageConfig) {
	if cfg.Type == "" {
		cfg.Type = blob.TypeLocal
	}
	if cfg.Type == blob.TypeLocal && cfg.Path == "" {
		cfg.Path = defaultStoragePath()
	}
}

// defaultStoragePath returns $XDG_DATA_HOME/stickerd/images with the usual
// fallbacks.
func defaultStoragePath() string {
	if xdgData := os.Getenv("XDG_DATA_HOME"); xdgData != "" {
		return filepath.Join(xdgData, "stickerd", "images")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", "stickerd-images")
	}
	return filepath.Join(home, ".local", "share", "stickerd", "images")
}

// GetDefaultConfig returns a Config struct with all default values applied.
//
// Useful for generating sample configuration files and for tests.
func GetDefaultConfig() *Config {
	cfg := &Config{
		Database: store.Config{
			Type: store.DatabaseTypeSQLite,
		},
	}
	ApplyDefaults(cfg)
	return cfg
}
