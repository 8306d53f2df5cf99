package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marmos91/stickerd/internal/bytesize"
	"github.com/marmos91/stickerd/pkg/blob"
	"github.com/marmos91/stickerd/pkg/catalog/store"
)

func writeConfigFile(t *testing.T, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))
	return path
}

func TestGetDefaultConfig(t *testing.T) {
	cfg := GetDefaultConfig()

	assert.Equal(t, "INFO", cfg.Logging.Level)
	assert.Equal(t, "text", cfg.Logging.Format)
	assert.Equal(t, 30*time.Second, cfg.ShutdownTimeout)
	assert.Equal(t, store.DatabaseTypeSQLite, cfg.Database.Type)
	assert.NotEmpty(t, cfg.Database.SQLite.Path)
	assert.Equal(t, blob.TypeLocal, cfg.Storage.Type)
	assert.NotEmpty(t, cfg.Storage.Path)
	assert.True(t, cfg.Catalog.AutoCategorizeEnabled())
	assert.Equal(t, 3, cfg.Worker.Concurrency)
	assert.Equal(t, 8080, cfg.API.Port)
	assert.Equal(t, 32*bytesize.MiB, cfg.API.MaxUploadSize)
	assert.False(t, cfg.Metrics.Enabled)
	assert.False(t, cfg.Telemetry.Enabled)

	require.NoError(t, Validate(cfg))
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)
	assert.Equal(t, 8080, cfg.API.Port)
}

func TestLoadFromFile(t *testing.T) {
	path := writeConfigFile(t, `
logging:
  level: debug
  format: json
shutdown_timeout: 10s
database:
  type: sqlite
  sqlite:
    path: /tmp/stickerd-test/catalog.db
storage:
  type: local
  path: /tmp/stickerd-test/images
catalog:
  categories:
    - 开心
    - 伤心
  auto_analyze: false
  auto_categorize: false
worker:
  concurrency: 5
  batch_delay: 250ms
  max_attempts: 4
  backoff_base: 3s
api:
  port: 9090
  upload_token: secret
  max_upload_size: 16Mi
  read_timeout: 45s
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "DEBUG", cfg.Logging.Level)
	assert.Equal(t, "json", cfg.Logging.Format)
	assert.Equal(t, 10*time.Second, cfg.ShutdownTimeout)
	assert.Equal(t, "/tmp/stickerd-test/catalog.db", cfg.Database.SQLite.Path)
	assert.Equal(t, []string{"开心", "伤心"}, cfg.Catalog.Categories)
	assert.False(t, cfg.Catalog.AutoAnalyzeEnabled())
	assert.False(t, cfg.Catalog.AutoCategorizeEnabled())
	assert.True(t, cfg.Catalog.PersistTasksEnabled())
	assert.Equal(t, 5, cfg.Worker.Concurrency)
	assert.Equal(t, 250*time.Millisecond, cfg.Worker.BatchDelay)
	assert.Equal(t, 4, cfg.Worker.MaxAttempts)
	assert.Equal(t, 3*time.Second, cfg.Worker.BackoffBase)
	assert.Equal(t, 9090, cfg.API.Port)
	assert.Equal(t, "secret", cfg.API.UploadToken)
	assert.Equal(t, 16*bytesize.MiB, cfg.API.MaxUploadSize)
	assert.Equal(t, 45*time.Second, cfg.API.ReadTimeout)
	// Unset fields still get defaults.
	assert.Equal(t, 30*time.Second, cfg.API.WriteTimeout)
}

func TestLoadRejectsInvalidConfig(t *testing.T) {
	t.Run("bad port", func(t *testing.T) {
		path := writeConfigFile(t, `
api:
  port: 99999
`)
		_, err := Load(path)
		assert.Error(t, err)
	})

	t.Run("s3 without bucket", func(t *testing.T) {
		path := writeConfigFile(t, `
storage:
  type: s3
`)
		_, err := Load(path)
		assert.Error(t, err)
	})

	t.Run("type filter without vision", func(t *testing.T) {
		path := writeConfigFile(t, `
catalog:
  enable_type_filter: true
  accepted_image_types:
    - meme
`)
		_, err := Load(path)
		assert.Error(t, err)
	})
}

func TestVisionConfigIsEnabled(t *testing.T) {
	cfg := VisionConfig{}
	assert.False(t, cfg.IsEnabled())

	cfg.OpenAI.APIKey = "sk-test"
	assert.True(t, cfg.IsEnabled())

	disabled := false
	cfg.Enabled = &disabled
	assert.False(t, cfg.IsEnabled())
}

func TestSaveAndReloadConfig(t *testing.T) {
	cfg := GetDefaultConfig()
	cfg.API.Port = 9999
	cfg.Catalog.Categories = []string{"开心"}

	path := filepath.Join(t.TempDir(), "saved", "config.yaml")
	require.NoError(t, SaveConfig(cfg, path))

	// Token and key material stays private to the owner.
	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 9999, loaded.API.Port)
	assert.Equal(t, []string{"开心"}, loaded.Catalog.Categories)
}
