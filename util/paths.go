package util

import (
	"fmt"
	"os"
	"path/filepath"
)

const (
	AppConfigDir = ".config/kinship"
)

// GetConfigDir returns ~/.config/kinship/, creating it when missing.
func GetConfigDir() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user home directory: %w", err)
	}

	configDir := filepath.Join(homeDir, AppConfigDir)
	if err := os.MkdirAll(configDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create config directory: %w", err)
	}

	return configDir, nil
}

// ResolveFilePath resolves a relative file name with the following priority:
// 1. Local working directory (e.g., ./events.json)
// 2. User config directory (e.g., ~/.config/kinship/events.json)
// 3. The user config directory path if neither exists, with parent dirs created
//
// Absolute paths are returned untouched.
func ResolveFilePath(name string) string {
	if filepath.IsAbs(name) {
		return name
	}

	if _, err := os.Stat(name); err == nil {
		return name
	}

	configDir, err := GetConfigDir()
	if err != nil {
		return name
	}

	userPath := filepath.Join(configDir, name)
	if _, err := os.Stat(userPath); err == nil {
		return userPath
	}

	os.MkdirAll(filepath.Dir(userPath), 0755)
	return userPath
}
