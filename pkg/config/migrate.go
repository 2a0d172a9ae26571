package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/mitchellh/mapstructure"
)

// legacyConfig is the flat JSON config shipped by pre-2.0 releases.
type legacyConfig struct {
	Model          string  `mapstructure:"model"`
	CoderModel     string  `mapstructure:"coder_model"`
	OllamaURL      string  `mapstructure:"ollama_url"`
	MaxTokens      int     `mapstructure:"max_tokens"`
	Quality        string  `mapstructure:"quality"`
	Temperature    float64 `mapstructure:"temperature"`
	TimeoutSeconds int     `mapstructure:"timeout_seconds"`
}

// MigrateLegacy converts a pre-2.0 config.json in the config directory to
// the unified YAML format. The legacy file is preserved with a .backup
// suffix. Returns the migrated config, or (nil, nil) when there is nothing
// to migrate.
func MigrateLegacy() (*Config, error) {
	legacyPath := filepath.Join(Dir(), "config.json")
	data, err := os.ReadFile(legacyPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read legacy config: %w", err)
	}

	var raw map[string]interface{}
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parse legacy config: %w", err)
	}

	var legacy legacyConfig
	if err := mapstructure.WeakDecode(raw, &legacy); err != nil {
		return nil, fmt.Errorf("decode legacy config: %w", err)
	}

	cfg := Default()
	if legacy.Model != "" {
		cfg.Models.Orchestrator.Default = legacy.Model
	}
	if legacy.CoderModel != "" {
		cfg.Models.Coder.Default = legacy.CoderModel
	}
	if legacy.OllamaURL != "" {
		cfg.Ollama.URL = legacy.OllamaURL
	}
	if legacy.MaxTokens > 0 {
		cfg.Context.MaxTokens = legacy.MaxTokens
	}
	if legacy.TimeoutSeconds > 0 {
		cfg.Ollama.TimeoutSeconds = legacy.TimeoutSeconds
	}

	if err := Save(cfg); err != nil {
		return nil, fmt.Errorf("write migrated config: %w", err)
	}

	if err := os.Rename(legacyPath, legacyPath+".backup"); err != nil {
		return nil, fmt.Errorf("back up legacy config: %w", err)
	}

	ensureCompatSymlink()

	return cfg, nil
}

// ensureCompatSymlink points ~/.config/obot at the canonical directory so
// older front-ends keep working. Best effort; symlink failures (Windows,
// permissions) are ignored.
func ensureCompatSymlink() {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return
	}
	legacyDir := filepath.Join(homeDir, ".config", "obot")
	if _, err := os.Lstat(legacyDir); err == nil {
		return // something already there, leave it alone
	}
	_ = os.Symlink(Dir(), legacyDir)
}
