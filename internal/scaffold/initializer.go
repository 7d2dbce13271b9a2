// Package scaffold writes a starter koorda.yml.
package scaffold

import (
	"embed"
	"fmt"
	"os"
	"path/filepath"

	"github.com/dyluth/koorda/internal/config"
	"github.com/dyluth/koorda/internal/printer"
)

//go:embed templates/*
var templatesFS embed.FS

// ConfigFile is the name of the generated configuration file.
const ConfigFile = "koorda.yml"

// Initialize writes koorda.yml into dir. An existing file is an error unless
// force is set, in which case it is replaced.
func Initialize(dir string, force bool) (string, error) {
	path := filepath.Join(dir, ConfigFile)

	if err := CheckExisting(dir); err != nil {
		if !force {
			return "", err
		}
		printer.Warning("Replacing existing %s\n", ConfigFile)
	}

	content, err := templatesFS.ReadFile("templates/koorda.yml.tmpl")
	if err != nil {
		return "", fmt.Errorf("failed to read %s template: %w", ConfigFile, err)
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create directory %s: %w", dir, err)
	}
	if err := os.WriteFile(path, content, 0o644); err != nil {
		return "", fmt.Errorf("failed to write %s: %w", path, err)
	}

	// the template must load as-is so serve works before any edit
	if _, err := config.Load(path); err != nil {
		return "", fmt.Errorf("generated %s is invalid: %w", ConfigFile, err)
	}
	return path, nil
}

// CheckExisting returns an error if dir already holds a koorda.yml.
func CheckExisting(dir string) error {
	path := filepath.Join(dir, ConfigFile)
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("%s already exists\n\nUse 'koorda init --force' to overwrite it", path)
	}
	return nil
}

// PrintSuccess prints what was created and how to continue.
func PrintSuccess(path string) {
	printer.Success("Created %s\n", path)
	printer.Info("\nNext steps:\n")
	printer.Info("  1. Set koordinator.base_url, workspace and namespace\n")
	printer.Info("  2. Point store.redis_url at your Redis, or use backend: file\n")
	printer.Info("  3. Run 'koorda serve'\n")
}
