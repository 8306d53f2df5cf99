// Package credentials provides connection storage and context management for stickerctl.
package credentials

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

const (
	// DefaultConfigDir is the default directory for stickerctl configuration.
	DefaultConfigDir = "stickerctl"
	// ConfigFileName is the name of the configuration file.
	ConfigFileName = "config.json"
	// FilePermissions for config files (read/write for owner only).
	FilePermissions = 0600
	// DirPermissions for config directories.
	DirPermissions = 0700
)

var (
	// ErrNoCurrentContext indicates no context is currently set.
	ErrNoCurrentContext = errors.New("no current context set")
	// ErrContextNotFound indicates the requested context doesn't exist.
	ErrContextNotFound = errors.New("context not found")
)

// Context represents a connection to a stickerd server.
type Context struct {
	ServerURL string `json:"server_url"`
	// Token is the upload token, used for the write endpoints.
	Token string `json:"token,omitempty"`
}

// Preferences represents user preferences.
type Preferences struct {
	DefaultOutput string `json:"default_output,omitempty"` // table, json, yaml
	Color         string `json:"color,omitempty"`          // auto, always, never
}

// Config represents the complete stickerctl configuration.
type Config struct {
	CurrentContext string              `json:"current_context"`
	Contexts       map[string]*Context `json:"contexts"`
	Preferences    Preferences         `json:"preferences,omitempty"`
}

// Store manages connection storage and retrieval.
type Store struct {
	configPath string
	config     *Config
}

// NewStore creates a new connection store.
func NewStore() (*Store, error) {
	configPath, err := getConfigPath()
	if err != nil {
		return nil, err
	}

	store := &Store{
		configPath: configPath,
	}

	if err := store.load(); err != nil {
		if os.IsNotExist(err) {
			store.config = &Config{
				Contexts: make(map[string]*Context),
			}
		} else {
			return nil, err
		}
	}

	return store, nil
}

// getConfigPath returns the path to the config file, honoring XDG_CONFIG_HOME.
func getConfigPath() (string, error) {
	configHome := os.Getenv("XDG_CONFIG_HOME")
	if configHome == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("cannot determine home directory: %w", err)
		}
		configHome = filepath.Join(home, ".config")
	}

	return filepath.Join(configHome, DefaultConfigDir, ConfigFileName), nil
}

// load reads the config from disk.
func (s *Store) load() error {
	data, err := os.ReadFile(s.configPath)
	if err != nil {
		return err
	}

	s.config = &Config{}
	return json.Unmarshal(data, s.config)
}

// save writes the config to disk.
func (s *Store) save() error {
	dir := filepath.Dir(s.configPath)
	if err := os.MkdirAll(dir, DirPermissions); err != nil {
		return fmt.Errorf("cannot create config directory: %w", err)
	}

	data, err := json.MarshalIndent(s.config, "", "  ")
	if err != nil {
		return err
	}

	return os.WriteFile(s.configPath, data, FilePermissions)
}

// GetCurrentContext returns the current context.
func (s *Store) GetCurrentContext() (*Context, error) {
	if s.config.CurrentContext == "" {
		return nil, ErrNoCurrentContext
	}

	ctx, ok := s.config.Contexts[s.config.CurrentContext]
	if !ok {
		return nil, ErrContextNotFound
	}

	return ctx, nil
}

// GetCurrentContextName returns the name of the current context.
func (s *Store) GetCurrentContextName() string {
	return s.config.CurrentContext
}

// GetContext returns a specific context by name.
func (s *Store) GetContext(name string) (*Context, error) {
	ctx, ok := s.config.Contexts[name]
	if !ok {
		return nil, ErrContextNotFound
	}
	return ctx, nil
}

// ListContexts returns all context names.
func (s *Store) ListContexts() []string {
	names := make([]string, 0, len(s.config.Contexts))
	for name := range s.config.Contexts {
		names = append(names, name)
	}
	return names
}

// SetContext creates or updates a context.
func (s *Store) SetContext(name string, ctx *Context) error {
	if s.config.Contexts == nil {
		s.config.Contexts = make(map[string]*Context)
	}
	s.config.Contexts[name] = ctx
	return s.save()
}

// UseContext switches to a different context.
func (s *Store) UseContext(name string) error {
	if _, ok := s.config.Contexts[name]; !ok {
		return ErrContextNotFound
	}
	s.config.CurrentContext = name
	return s.save()
}

// DeleteContext removes a context.
func (s *Store) DeleteContext(name string) error {
	if _, ok := s.config.Contexts[name]; !ok {
		return ErrContextNotFound
	}

	delete(s.config.Contexts, name)

	if s.config.CurrentContext == name {
		s.config.CurrentContext = ""
	}

	return s.save()
}

// ClearCurrentToken removes the upload token from the current context (logout).
func (s *Store) ClearCurrentToken() error {
	ctx, err := s.GetCurrentContext()
	if err != nil {
		return err
	}

	ctx.Token = ""
	return s.save()
}

// GetPreferences returns the user preferences.
func (s *Store) GetPreferences() Preferences {
	return s.config.Preferences
}

// SetPreferences updates the user preferences.
func (s *Store) SetPreferences(prefs Preferences) error {
	s.config.Preferences = prefs
	return s.save()
}

// ConfigPath returns the path to the config file.
func (s *Store) ConfigPath() string {
	return s.configPath
}

// GenerateContextName generates a context name for a server URL.
func GenerateContextName(serverURL string) string {
	return "default"
}
