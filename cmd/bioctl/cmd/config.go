package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Config holds persistent CLI configuration.
type Config struct {
	Server string `yaml:"server,omitempty"`
}

// DefaultServer is used when no server is configured anywhere.
const DefaultServer = "http://localhost:8000"

// ConfigPath returns the path to the bioctl config file.
// Returns empty string if the home directory cannot be determined.
func ConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".config", "bioctl", "config.yaml")
}

// LoadConfig reads the config file. A missing file yields an empty
// config, not an error.
func LoadConfig() (*Config, error) {
	cfg := &Config{}
	path := ConfigPath()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	return cfg, nil
}

// SaveConfig writes the config file, creating the directory if needed.
func SaveConfig(cfg *Config) error {
	path := ConfigPath()
	if path == "" {
		return fmt.Errorf("cannot determine config path")
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	return os.WriteFile(path, data, 0600)
}

// GetServer resolves the verifier URL. Precedence: --server flag,
// BIOCTL_SERVER environment variable, config file, built-in default.
func GetServer() string {
	if serverFlag != "" {
		return serverFlag
	}
	if env := os.Getenv("BIOCTL_SERVER"); env != "" {
		return env
	}
	if cfg, err := LoadConfig(); err == nil && cfg.Server != "" {
		return cfg.Server
	}
	return DefaultServer
}
