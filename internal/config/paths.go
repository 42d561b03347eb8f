package config

import (
	"os"
	"path/filepath"
)

const (
	appConfigFile      = "mangaba.yaml"
	providerConfigFile = "config.json"
)

// DefaultHome returns MANGABA_HOME, or ~/.mangaba.
func DefaultHome() string {
	if home := os.Getenv("MANGABA_HOME"); home != "" {
		return home
	}
	userHome, err := os.UserHomeDir()
	if err != nil {
		return ".mangaba"
	}
	return filepath.Join(userHome, ".mangaba")
}

// AppConfigPath returns the path to mangaba.yaml under home.
func AppConfigPath(home string) string {
	return filepath.Join(home, appConfigFile)
}

// ProviderConfigPath returns the path to the provider document under home.
func ProviderConfigPath(home string) string {
	return filepath.Join(home, providerConfigFile)
}

// LogsDir returns the log directory under home.
func LogsDir(home string) string {
	return filepath.Join(home, "logs")
}
