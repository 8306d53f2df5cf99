package config

import (
	"fmt"
	"os"
)

// InitConfig writes a sample configuration file to the default location.
// Returns the path written.
func InitConfig(force bool) (string, error) {
	path := GetDefaultConfigPath()
	return path, InitConfigToPath(path, force)
}

// InitConfigToPath writes a sample configuration file to the given path.
// Refuses to overwrite an existing file unless force is set.
func InitConfigToPath(path string, force bool) error {
	if _, err := os.Stat(path); err == nil && !force {
		return fmt.Errorf("config file already exists: %s (use --force to overwrite)", path)
	}

	cfg := GetDefaultConfig()
	// A starter category set so a fresh install is browsable immediately.
	cfg.Catalog.Categories = []string{"开心", "伤心", "愤怒", "疑惑", "庆祝"}

	return SaveConfig(cfg, path)
}
