package config

import (
	"context"
	"fmt"

	"github.com/marmos91/stickerd/pkg/blob"
	"github.com/marmos91/stickerd/pkg/catalog"
	"github.com/marmos91/stickerd/pkg/vision"
)

// BuildBlobStore constructs the configured blob store backend.
func BuildBlobStore(ctx context.Context, cfg *Config) (blob.Store, error) {
	switch cfg.Storage.Type {
	case blob.TypeLocal, "":
		return blob.NewLocalStore(cfg.Storage.Path)
	case blob.TypeS3:
		return blob.NewS3Store(ctx, cfg.Storage.S3)
	default:
		return nil, fmt.Errorf("unknown storage type: %s", cfg.Storage.Type)
	}
}

// BuildVisionClient constructs the model client, or returns nil when model
// use is disabled.
func BuildVisionClient(cfg *Config) vision.Client {
	if !cfg.Vision.IsEnabled() {
		return nil
	}
	return vision.NewOpenAIClient(cfg.Vision.OpenAI)
}

// CatalogOptions maps the configuration onto catalog behavior switches.
func CatalogOptions(cfg *Config) catalog.Options {
	return catalog.Options{
		SeedCategories:     cfg.Catalog.Categories,
		AutoAnalyze:        cfg.Catalog.AutoAnalyzeEnabled() && cfg.Vision.IsEnabled(),
		AutoCategorize:     cfg.Catalog.AutoCategorizeEnabled(),
		PersistTasks:       cfg.Catalog.PersistTasksEnabled(),
		EnableTypeFilter:   cfg.Catalog.EnableTypeFilter,
		AcceptedImageTypes: cfg.Catalog.AcceptedImageTypes,
	}
}
