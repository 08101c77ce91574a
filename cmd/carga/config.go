package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/cargaslack/carga/client"
)

// cliConfig is $XDG_CONFIG_HOME/carga/config.yaml. Every key is optional.
type cliConfig struct {
	ServerURL       string `yaml:"server_url"`
	Language        string `yaml:"language"`
	CredentialsPath string `yaml:"credentials_path"`
}

func configDir() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		dir = os.TempDir()
	}
	return filepath.Join(dir, "carga")
}

func defaultConfigPath() string {
	return filepath.Join(configDir(), "config.yaml")
}

// loadCLIConfig reads path and fills the defaults. A missing file is not
// an error.
func loadCLIConfig(path string) (*cliConfig, error) {
	cfg := &cliConfig{}

	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
	case err != nil:
		return nil, fmt.Errorf("failed to read config %s: %w", path, err)
	default:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
		}
	}

	if cfg.ServerURL == "" {
		cfg.ServerURL = client.DefaultBaseURL
	}
	if cfg.Language == "" {
		cfg.Language = "pt"
	}
	if cfg.CredentialsPath == "" {
		cfg.CredentialsPath = filepath.Join(configDir(), "credentials.json")
	}
	return cfg, nil
}
