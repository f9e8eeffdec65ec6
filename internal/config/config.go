package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config represents the crossbind.json (or crossbind.yaml) project file
type Config struct {
	Name      string         `json:"name" yaml:"name"`
	Version   string         `json:"version" yaml:"version"`
	Schema    string         `json:"schema" yaml:"schema"`
	Languages []string       `json:"languages" yaml:"languages"`
	Generate  GenerateConfig `json:"generate" yaml:"generate"`
	Watch     WatchConfig    `json:"watch" yaml:"watch"`
}

// GenerateConfig contains output settings for the binding generators
type GenerateConfig struct {
	OutDir string `json:"outDir" yaml:"outDir"`
	Header bool   `json:"header" yaml:"header"`
}

// WatchConfig contains watch-mode configuration
type WatchConfig struct {
	Include []string `json:"include" yaml:"include"`
	Exclude []string `json:"exclude" yaml:"exclude"`
}

// LoadConfig loads the project file from the current directory or a parent
// directory
func LoadConfig() (*Config, string, error) {
	dir, err := os.Getwd()
	if err != nil {
		return nil, "", fmt.Errorf("failed to get current directory: %w", err)
	}

	return loadConfigFromDir(dir)
}

// LoadConfigFromPath loads the project file from a specific path. The format
// is chosen by extension: .yaml/.yml parse as YAML, everything else as JSON.
func LoadConfigFromPath(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config Config
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &config); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	default:
		if err := json.Unmarshal(data, &config); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	applyDefaults(&config)
	return &config, nil
}

func applyDefaults(config *Config) {
	if config.Schema == "" {
		config.Schema = "./component.udl"
	}
	if len(config.Languages) == 0 {
		config.Languages = []string{"python", "typescript"}
	}
	if config.Generate.OutDir == "" {
		config.Generate.OutDir = "./bindings"
	}
	if len(config.Watch.Include) == 0 {
		config.Watch.Include = []string{"*.udl", "**/*.udl"}
	}
	if len(config.Watch.Exclude) == 0 {
		config.Watch.Exclude = []string{"bindings/", ".git/"}
	}
}

// configNames lists the file names looked up in each directory, in
// priority order.
var configNames = []string{"crossbind.json", "crossbind.yaml", "crossbind.yml"}

// loadConfigFromDir searches for a project file in the given directory and
// its parents
func loadConfigFromDir(startDir string) (*Config, string, error) {
	dir := startDir
	for {
		for _, name := range configNames {
			configPath := filepath.Join(dir, name)
			if _, err := os.Stat(configPath); err == nil {
				config, err := LoadConfigFromPath(configPath)
				if err != nil {
					return nil, "", err
				}
				return config, dir, nil
			}
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			// Reached root directory
			break
		}
		dir = parent
	}

	return nil, "", fmt.Errorf("no crossbind.json found in %s or any parent directory", startDir)
}
