package config

import (
	"fmt"

	"github.com/go-playground/validator/v10"

	"github.com/marmos91/stickerd/pkg/blob"
)

// Validate checks the configuration for errors.
//
// Struct tags cover field-level constraints; the cross-field rules that tags
// cannot express are checked explicitly afterwards.
func Validate(cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("configuration is nil")
	}

	validate := validator.New()
	if err := validate.Struct(cfg); err != nil {
		return err
	}

	if err := cfg.Database.Validate(); err != nil {
		return fmt.Errorf("database: %w", err)
	}

	if cfg.Storage.Type == blob.TypeS3 && cfg.Storage.S3.Bucket == "" {
		return fmt.Errorf("storage: s3 backend requires a bucket")
	}
	if cfg.Storage.Type == blob.TypeLocal && cfg.Storage.Path == "" {
		return fmt.Errorf("storage: local backend requires a path")
	}

	if cfg.Catalog.EnableTypeFilter {
		if !cfg.Vision.IsEnabled() {
			return fmt.Errorf("catalog: enable_type_filter requires the vision client")
		}
		if len(cfg.Catalog.AcceptedImageTypes) == 0 {
			return fmt.Errorf("catalog: enable_type_filter requires accepted_image_types")
		}
	}

	return nil
}
