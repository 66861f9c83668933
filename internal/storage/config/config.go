package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"acsync/internal/domain"

	"gopkg.in/yaml.v3"
)

// FileName is the config file inside the config directory
const FileName = "config.yaml"

// Environment overrides
const (
	EnvLogin    = "ACSYNC_LOGIN"
	EnvPassword = "ACSYNC_PASSWORD"
	EnvServer   = "ACSYNC_SERVER"
)

// Config holds global application settings
type Config struct {
	InstallPath        string                 `yaml:"install_path"`
	ServerURL          string                 `yaml:"server_url,omitempty"`
	Login              string                 `yaml:"login,omitempty"`
	ScratchDir         string                 `yaml:"scratch_dir,omitempty"`
	PlacementMethod    domain.PlacementMethod `yaml:"-"`
	PlacementMethodStr string                 `yaml:"placement_method"`
	Keybindings        string                 `yaml:"keybindings"`

	// Password only ever comes from the environment; saved credentials live in the database.
	Password string `yaml:"-"`
}

// Load reads configuration from the given directory
func Load(configDir string) (*Config, error) {
	cfg := &Config{
		PlacementMethod: domain.PlaceMove,
		Keybindings:     "vim",
	}

	configPath := filepath.Join(configDir, FileName)
	data, err := os.ReadFile(configPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cfg, nil // Return defaults
		}
		return nil, fmt.Errorf("reading config: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("%w: parsing %s: %v", domain.ErrInvalidConfig, configPath, err)
	}

	if cfg.PlacementMethodStr != "" {
		cfg.PlacementMethod = domain.ParsePlacementMethod(cfg.PlacementMethodStr)
	}
	cfg.InstallPath = ExpandPath(cfg.InstallPath)
	cfg.ScratchDir = ExpandPath(cfg.ScratchDir)

	return cfg, nil
}

// ApplyEnv overrides settings from the environment. getenv is usually os.Getenv.
func (c *Config) ApplyEnv(getenv func(string) string) {
	if v := getenv(EnvLogin); v != "" {
		c.Login = v
	}
	if v := getenv(EnvPassword); v != "" {
		c.Password = v
	}
	if v := getenv(EnvServer); v != "" {
		c.ServerURL = v
	}
}

// Save writes configuration to the given directory
func (c *Config) Save(configDir string) error {
	c.PlacementMethodStr = c.PlacementMethod.String()

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}

	if err := os.MkdirAll(configDir, 0755); err != nil {
		return fmt.Errorf("creating config dir: %w", err)
	}

	configPath := filepath.Join(configDir, FileName)
	if err := os.WriteFile(configPath, data, 0644); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}

	return nil
}
