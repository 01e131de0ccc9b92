package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

// Settings are per-user defaults read from ~/.config/hecmeta/config.toml.
type Settings struct {
	OutputDir   string `toml:"output_dir"`
	TemplateDir string `toml:"template_dir"`
	LogLevel    string `toml:"log_level"`
	LogFormat   string `toml:"log_format"`
}

// SettingsPath returns the location of the user settings file.
func SettingsPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "hecmeta", "config.toml"), nil
}

// LoadSettings reads the user settings file. A missing file yields defaults.
func LoadSettings() (*Settings, error) {
	path, err := SettingsPath()
	if err != nil {
		return nil, err
	}
	return LoadSettingsFile(path)
}

// LoadSettingsFile reads settings from path, falling back to defaults when
// the file does not exist.
func LoadSettingsFile(path string) (*Settings, error) {
	s := &Settings{
		OutputDir: DefaultOutputDir,
		LogLevel:  "info",
		LogFormat: "text",
	}

	if _, err := os.Stat(path); err == nil {
		if _, err := toml.DecodeFile(path, s); err != nil {
			return nil, fmt.Errorf("parse settings %s: %w", path, err)
		}
	}

	home, err := os.UserHomeDir()
	if err == nil {
		s.OutputDir = expandHome(s.OutputDir, home)
		s.TemplateDir = expandHome(s.TemplateDir, home)
	}
	return s, nil
}

func expandHome(path, home string) string {
	if len(path) > 1 && path[0] == '~' && path[1] == '/' {
		return filepath.Join(home, path[2:])
	}
	return path
}
