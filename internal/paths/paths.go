package paths

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

const (
	// HomeEnvVar overrides the devjourney home directory
	HomeEnvVar = "DEVJOURNEY_HOME"

	// DefaultHome is the directory name under the user's home
	DefaultHome = ".devjourney"
)

// GetHome returns the devjourney home directory.
// $DEVJOURNEY_HOME wins; otherwise ~/.devjourney.
func GetHome() (string, error) {
	if env := os.Getenv(HomeEnvVar); env != "" {
		return env, nil
	}

	userHome, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(userHome, DefaultHome), nil
}

// EnsureDir creates dir (and parents) if it does not exist and returns it.
func EnsureDir(dir string) (string, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create directory %s: %w", dir, err)
	}
	return dir, nil
}

// ConfigPath returns <home>/config.json
func ConfigPath(home string) string {
	return filepath.Join(home, "config.json")
}

// DefaultJourneyDir returns <home>/journeys
func DefaultJourneyDir(home string) string {
	return filepath.Join(home, "journeys")
}

// DefaultCatalogDir returns <home>/catalogs
func DefaultCatalogDir(home string) string {
	return filepath.Join(home, "catalogs")
}

// DefaultArchivePath returns <home>/journey.db
func DefaultArchivePath(home string) string {
	return filepath.Join(home, "journey.db")
}

// ReposPath returns <home>/repos.toml
func ReposPath(home string) string {
	return filepath.Join(home, "repos.toml")
}

// LogsDir returns <home>/logs
func LogsDir(home string) string {
	return filepath.Join(home, "logs")
}

// LanguageSlug converts a language display name into a file-safe key.
// "React Native" -> "react-native", "Flutter/Dart" -> "flutter-dart".
func LanguageSlug(language string) string {
	s := strings.ToLower(strings.TrimSpace(language))
	s = strings.NewReplacer(" ", "-", "/", "-", "\\", "-", "_", "-").Replace(s)
	for strings.Contains(s, "--") {
		s = strings.ReplaceAll(s, "--", "-")
	}
	return strings.Trim(s, "-")
}

// JourneyFileName returns the ledger file name for a language.
func JourneyFileName(language string) string {
	return "journey-" + LanguageSlug(language) + ".json"
}

// NormalizePath normalizes a path by converting backslashes to forward slashes
func NormalizePath(path string) string {
	return filepath.ToSlash(path)
}

// ExpandHome replaces a leading ~ with the user's home directory.
func ExpandHome(path string) (string, error) {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path, nil
	}
	userHome, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	if path == "~" {
		return userHome, nil
	}
	return filepath.Join(userHome, path[2:]), nil
}
