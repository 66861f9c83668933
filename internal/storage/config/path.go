// Package config provides configuration file parsing and validation.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"acsync/internal/domain"
)

// GameExecutable marks the root of an Assetto Corsa installation
const GameExecutable = "acs.exe"

// ValidateInstallPath checks that path is an Assetto Corsa installation root and
// returns it cleaned and absolute. It returns an error if:
//   - The path is empty
//   - The path does not exist or is not a directory
//   - The directory does not contain acs.exe
func ValidateInstallPath(path string) (string, error) {
	if path == "" {
		return "", fmt.Errorf("%w: no installation path configured", domain.ErrInvalidInstallPath)
	}

	abs, err := filepath.Abs(ExpandPath(path))
	if err != nil {
		return "", fmt.Errorf("%w: %v", domain.ErrInvalidInstallPath, err)
	}

	info, err := os.Stat(abs)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", fmt.Errorf("%w: %s does not exist", domain.ErrInvalidInstallPath, abs)
		}
		return "", fmt.Errorf("%w: %v", domain.ErrInvalidInstallPath, err)
	}
	if !info.IsDir() {
		return "", fmt.Errorf("%w: %s is not a directory", domain.ErrInvalidInstallPath, abs)
	}

	if _, err := os.Stat(filepath.Join(abs, GameExecutable)); err != nil {
		return "", fmt.Errorf("%w: path %s does not contain %s", domain.ErrInvalidInstallPath, abs, GameExecutable)
	}

	return abs, nil
}

// ExpandPath replaces a leading ~ with the home directory
func ExpandPath(path string) string {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~"))
}
