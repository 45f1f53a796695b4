package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// ConfigFileEnv names the environment variable pointing at an optional YAML overlay.
const ConfigFileEnv = "BOTDASH_CONFIG_FILE"

// LoadDotEnv loads variables from the given .env files without overriding
// variables already present in the environment. Missing files are skipped.
func LoadDotEnv(paths ...string) error {
	var existing []string
	for _, p := range paths {
		if info, err := os.Stat(p); err == nil && !info.IsDir() {
			existing = append(existing, p)
		}
	}
	if len(existing) == 0 {
		return nil
	}
	if err := godotenv.Load(existing...); err != nil {
		return fmt.Errorf("load dotenv: %w", err)
	}
	return nil
}

// LoadFile overlays the YAML file at path on top of base.
// Fields absent from the file keep their base values.
func LoadFile(path string, base *Config) (*Config, error) {
	if base == nil {
		base = Defaults()
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}

	cfg := base.Clone()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	cfg.BotAPI.BaseURL = strings.TrimRight(cfg.BotAPI.BaseURL, "/")
	cfg.Logs.ServerMarker = strings.ToLower(cfg.Logs.ServerMarker)
	return cfg, nil
}

// Bootstrap loads .env, then the environment, then the optional YAML overlay,
// and validates the result.
func Bootstrap(configPath string) (*Config, error) {
	if err := LoadDotEnv(".env"); err != nil {
		return nil, err
	}

	cfg := Load()

	if configPath == "" {
		configPath = strings.TrimSpace(os.Getenv(ConfigFileEnv))
	}
	if configPath != "" {
		fileCfg, err := LoadFile(configPath, cfg)
		if err != nil {
			return nil, err
		}
		cfg = fileCfg
	}

	if result := cfg.Validate(); !result.Valid {
		return nil, &ConfigValidationError{Errors: result.Errors}
	}
	return cfg, nil
}
