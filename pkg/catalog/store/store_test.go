package store

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/marmos91/stickerd/pkg/catalog/models"
)

// newTestStore opens an in-memory SQLite store with the schema migrated.
func newTestStore(t *testing.T) *GORMStore {
	t.Helper()

	s, err := New(&Config{
		Type:   DatabaseTypeSQLite,
		SQLite: SQLiteConfig{Path: ":memory:"},
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

// testHash builds a syntactically valid sha256 hex digest that differs per seed.
func testHash(seed string) string {
	padded := seed + strings.Repeat("0", 64)
	return padded[:64]
}

func testImage(name, hash string) *models.Image {
	return &models.Image{
		Name:      name,
		Category:  models.DefaultCategory,
		Path:      "/data/" + name + ".png",
		Size:      128,
		MimeType:  "image/png",
		ImageHash: hash,
	}
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		config  Config
		wantErr bool
	}{
		{
			name:   "sqlite with path",
			config: Config{Type: DatabaseTypeSQLite, SQLite: SQLiteConfig{Path: "/tmp/x.db"}},
		},
		{
			name:    "sqlite without path",
			config:  Config{Type: DatabaseTypeSQLite},
			wantErr: true,
		},
		{
			name: "postgres complete",
			config: Config{Type: DatabaseTypePostgres, Postgres: PostgresConfig{
				Host: "localhost", Database: "stickerd", User: "stickerd",
			}},
		},
		{
			name:    "postgres missing host",
			config:  Config{Type: DatabaseTypePostgres, Postgres: PostgresConfig{Database: "stickerd", User: "stickerd"}},
			wantErr: true,
		},
		{
			name:    "unknown type",
			config:  Config{Type: "mysql"},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.config.Validate()
			if tt.wantErr {
				require.Error(t, err)
			} else {
				require.NoError(t, err)
			}
		})
	}
}

func TestConfigApplyDefaults(t *testing.T) {
	cfg := &Config{Type: DatabaseTypePostgres}
	cfg.ApplyDefaults()

	require.Equal(t, 5432, cfg.Postgres.Port)
	require.Equal(t, "disable", cfg.Postgres.SSLMode)
	require.Equal(t, 25, cfg.Postgres.MaxOpenConns)
	require.Equal(t, 5, cfg.Postgres.MaxIdleConns)

	cfg = &Config{}
	cfg.ApplyDefaults()
	require.Equal(t, DatabaseTypeSQLite, cfg.Type)
	require.NotEmpty(t, cfg.SQLite.Path)
}
