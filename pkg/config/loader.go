package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// configHeader is written at the top of every saved config file.
const configHeader = "# obot unified configuration\n# shared by the CLI and IDE front-ends\n\n"

// Load reads the config file, layering it over defaults. A missing file
// yields the defaults; a malformed file is an error. Environment overrides
// (OLLAMA_URL, OLLAMA_TIMEOUT_SECONDS) are applied last.
func Load() (*Config, error) {
	return LoadFile(Path())
}

// LoadFile loads configuration from an explicit path.
func LoadFile(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			applyEnvOverrides(cfg)
			return cfg, nil
		}
		return nil, fmt.Errorf("read config: %w", err)
	}

	expanded := expandEnvVars(string(data))
	if err := yaml.Unmarshal([]byte(expanded), cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// Save writes the config to the canonical path, creating the directory if
// needed.
func Save(cfg *Config) error {
	return SaveFile(cfg, Path())
}

// SaveFile writes the config to an explicit path.
func SaveFile(cfg *Config, path string) error {
	if err := os.MkdirAll(Dir(), 0755); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}

	return os.WriteFile(path, append([]byte(configHeader), data...), 0644)
}
