package api

import (
	"time"

	"github.com/marmos91/stickerd/internal/bytesize"
)

// Config configures the catalog HTTP server.
//
// When Enabled is false, no API server is started (zero overhead).
type Config struct {
	// Enabled controls whether the API server is started.
	// Default: true
	// Use a pointer to distinguish "not set" from "explicitly false"
	Enabled *bool `mapstructure:"enabled" yaml:"enabled"`

	// Host is the listen address. Empty means all interfaces.
	Host string `mapstructure:"host" yaml:"host"`

	// Port is the HTTP port for the API endpoints.
	// Default: 8080
	Port int `mapstructure:"port" validate:"omitempty,min=1,max=65535" yaml:"port"`

	// BaseURL is the externally reachable URL prefix, used when building
	// image links in responses. Default: http://localhost:<port>
	BaseURL string `mapstructure:"base_url" yaml:"base_url"`

	// UploadToken guards POST /upload. Empty disables the check.
	UploadToken string `mapstructure:"upload_token" yaml:"upload_token"`

	// MaxUploadSize caps multipart upload bodies. Accepts human-readable
	// sizes like "32Mi" or plain byte counts. Default: 32Mi
	MaxUploadSize bytesize.ByteSize `mapstructure:"max_upload_size" yaml:"max_upload_size"`

	// ReadTimeout is the maximum duration for reading the entire request,
	// including the body. Default: 30s, uploads can be slow.
	ReadTimeout time.Duration `mapstructure:"read_timeout" yaml:"read_timeout"`

	// WriteTimeout is the maximum duration before timing out writes of the
	// response. Default: 30s
	WriteTimeout time.Duration `mapstructure:"write_timeout" yaml:"write_timeout"`

	// IdleTimeout is the maximum amount of time to wait for the next request
	// when keep-alives are enabled. Default: 60s
	IdleTimeout time.Duration `mapstructure:"idle_timeout" yaml:"idle_timeout"`
}

// IsEnabled returns whether the API server is enabled.
// Defaults to true if not explicitly set.
func (c *Config) IsEnabled() bool {
	if c.Enabled == nil {
		return true
	}
	return *c.Enabled
}

// ApplyDefaults fills in zero values with sensible defaults.
func (c *Config) ApplyDefaults() {
	if c.Port <= 0 {
		c.Port = 8080
	}
	if c.MaxUploadSize == 0 {
		c.MaxUploadSize = 32 * bytesize.MiB
	}
	if c.ReadTimeout == 0 {
		c.ReadTimeout = 30 * time.Second
	}
	if c.WriteTimeout == 0 {
		c.WriteTimeout = 30 * time.Second
	}
	if c.IdleTimeout == 0 {
		c.IdleTimeout = 60 * time.Second
	}
}
