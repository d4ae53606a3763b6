package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"sync"

	"gopkg.in/yaml.v3"
)

// Settings keys and install-time defaults.
const (
	// SettingsID is the namespaced name of the settings object.
	SettingsID = ModuleName + ".settings"

	// KeyAPIURL is the upstream endpoint every unit of work requests.
	KeyAPIURL = "api_url"

	// KeyNodeType is the content type imported jokes are stored under.
	KeyNodeType = "node_type"

	// KeyPageSize is the number of jokes one import requests.
	KeyPageSize = "page_size"

	// DefaultAPIURL returns one random joke per GET.
	DefaultAPIURL = "https://api.chucknorris.io/jokes/random"

	// DefaultNodeType is the content type written at install time.
	DefaultNodeType = "jokes"

	// DefaultPageSize is the batch size written at install time.
	DefaultPageSize = 5

	// MaxPageSize bounds page_size and the size of one import batch.
	MaxPageSize = 1000
)

// Settings is the module's settings object.
type Settings struct {
	APIURL   string `yaml:"api_url"   json:"api_url"`
	NodeType string `yaml:"node_type" json:"node_type"`
	PageSize int    `yaml:"page_size" json:"page_size"`
}

// DefaultSettings returns the settings written by Install.
func DefaultSettings() Settings {
	return Settings{
		APIURL:   DefaultAPIURL,
		NodeType: DefaultNodeType,
		PageSize: DefaultPageSize,
	}
}

// Validate checks every field of the settings object.
func (s Settings) Validate() error {
	if err := ValidateAPIURL(s.APIURL); err != nil {
		return err
	}
	if s.NodeType == "" {
		return ErrInvalidNodeType
	}
	if s.PageSize < 0 || s.PageSize > MaxPageSize {
		return ErrInvalidPageSize
	}
	return nil
}

// ValidateAPIURL reports whether raw is usable as an upstream target:
// non-empty, parseable, http or https, with a host.
func ValidateAPIURL(raw string) error {
	if raw == "" {
		return fmt.Errorf("%w: empty", ErrInvalidAPIURL)
	}

	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidAPIURL, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("%w: scheme must be http or https, got %q", ErrInvalidAPIURL, u.Scheme)
	}
	if u.Host == "" {
		return fmt.Errorf("%w: missing host", ErrInvalidAPIURL)
	}
	return nil
}

// settingsDocument is the on-disk YAML layout.
// The settings object sits under its namespaced id (SettingsID).
type settingsDocument struct {
	Settings Settings `yaml:"norris_import.settings"`
}

// SettingsStore reads and writes the settings object on disk.
// It is safe for concurrent use; the admin server reads it from request
// goroutines while the settings handler writes it.
type SettingsStore struct {
	path string

	mu      sync.RWMutex
	current Settings
}

// NewSettingsStore returns a store for path holding default settings in memory.
// Nothing is read or written until Load, Save or Install is called.
func NewSettingsStore(path string) *SettingsStore {
	return &SettingsStore{
		path:    path,
		current: DefaultSettings(),
	}
}

// OpenSettingsStore returns a store for path with the file already loaded.
// It returns ErrSettingsNotFound when the module has not been installed.
func OpenSettingsStore(path string) (*SettingsStore, error) {
	s := NewSettingsStore(path)
	if err := s.Load(); err != nil {
		return nil, err
	}
	return s, nil
}

// Path returns the settings file path.
func (s *SettingsStore) Path() string {
	return s.path
}

// Exists reports whether the settings file is present.
func (s *SettingsStore) Exists() bool {
	_, err := os.Stat(s.path)
	return err == nil
}

// Load reads the settings file, replacing the in-memory settings.
// Keys missing from the file keep their defaults.
func (s *SettingsStore) Load() error {
	data, err := os.ReadFile(s.path) //nolint:gosec // User-provided settings path is intentional
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return ErrSettingsNotFound
		}
		return fmt.Errorf("failed to read settings: %w", err)
	}

	doc := settingsDocument{Settings: DefaultSettings()}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return fmt.Errorf("failed to parse settings %s: %w", s.path, err)
	}
	if err := doc.Settings.Validate(); err != nil {
		return fmt.Errorf("invalid settings in %s: %w", s.path, err)
	}

	s.mu.Lock()
	s.current = doc.Settings
	s.mu.Unlock()

	return nil
}

// Settings returns a copy of the current settings.
func (s *SettingsStore) Settings() Settings {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current
}

// APIURL returns the configured upstream URL.
func (s *SettingsStore) APIURL() string {
	return s.Settings().APIURL
}

// NodeType returns the configured content type.
func (s *SettingsStore) NodeType() string {
	return s.Settings().NodeType
}

// PageSize returns the configured batch size.
func (s *SettingsStore) PageSize() int {
	return s.Settings().PageSize
}

// Get returns one setting by key, formatted as a string.
func (s *SettingsStore) Get(key string) (string, error) {
	cur := s.Settings()
	switch key {
	case KeyAPIURL:
		return cur.APIURL, nil
	case KeyNodeType:
		return cur.NodeType, nil
	case KeyPageSize:
		return strconv.Itoa(cur.PageSize), nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownSetting, key)
	}
}

// Set changes one setting in memory. Call Save to persist it.
func (s *SettingsStore) Set(key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch key {
	case KeyAPIURL:
		s.current.APIURL = value
	case KeyNodeType:
		s.current.NodeType = value
	case KeyPageSize:
		n, err := strconv.Atoi(value)
		if err != nil || n < 0 || n > MaxPageSize {
			return fmt.Errorf("%w: %q", ErrInvalidPageSize, value)
		}
		s.current.PageSize = n
	default:
		return fmt.Errorf("%w: %q", ErrUnknownSetting, key)
	}
	return nil
}

// Update validates and writes settings, then makes them current.
// On error the current settings are unchanged.
func (s *SettingsStore) Update(settings Settings) error {
	_, err := s.Patch(func(cur *Settings) {
		*cur = settings
	})
	return err
}

// Patch applies fn to a copy of the current settings, validates and writes
// the result, then makes it current. The lock is held from read to swap, so
// concurrent patches never drop each other's fields. On error the current
// settings are unchanged and returned.
func (s *SettingsStore) Patch(fn func(*Settings)) (Settings, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := s.current
	fn(&next)
	if err := s.write(next); err != nil {
		return s.current, err
	}
	s.current = next
	return next, nil
}

// Save validates the in-memory settings and writes them to disk.
// Parent directories are created as needed.
func (s *SettingsStore) Save() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.write(s.current)
}

// write validates settings and writes them to s.path. Callers hold s.mu.
func (s *SettingsStore) write(settings Settings) error {
	if err := settings.Validate(); err != nil {
		return err
	}

	data, err := yaml.Marshal(settingsDocument{Settings: settings})
	if err != nil {
		return fmt.Errorf("failed to encode settings: %w", err)
	}

	if dir := filepath.Dir(s.path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0750); err != nil {
			return fmt.Errorf("failed to create settings directory: %w", err)
		}
	}

	if err := os.WriteFile(s.path, data, 0600); err != nil {
		return fmt.Errorf("failed to write settings: %w", err)
	}
	return nil
}

// Install writes the default settings.
// Existing settings are kept and ErrSettingsExist is returned unless force is set.
func (s *SettingsStore) Install(force bool) error {
	if !force && s.Exists() {
		return ErrSettingsExist
	}
	return s.Update(DefaultSettings())
}

// Delete removes the settings file. A missing file is not an error.
func (s *SettingsStore) Delete() error {
	if err := os.Remove(s.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to delete settings: %w", err)
	}

	s.mu.Lock()
	s.current = DefaultSettings()
	s.mu.Unlock()

	return nil
}
