package config

import (
	"os"
	"path/filepath"
)

// DefaultSettingsFile is the settings file name inside the XDG config directory.
const DefaultSettingsFile = "settings.yaml"

// LocalSettingsFile is a project-local settings file that wins over the XDG one.
const LocalSettingsFile = ".jokeimport.yaml"

// DefaultSettingsPath returns the settings path inside the XDG config directory.
func DefaultSettingsPath() string {
	return filepath.Join(XDGConfigDir(), DefaultSettingsFile)
}

// ResolveSettingsPath picks the settings file in the following order:
// 1. explicit, when non-empty (it need not exist yet)
// 2. .jokeimport.yaml in the current directory, when present
// 3. settings.yaml in the XDG config directory
func ResolveSettingsPath(explicit string) string {
	if explicit != "" {
		return explicit
	}

	if cwd, err := os.Getwd(); err == nil {
		local := filepath.Join(cwd, LocalSettingsFile)
		if _, err := os.Stat(local); err == nil {
			return local
		}
	}

	return DefaultSettingsPath()
}
