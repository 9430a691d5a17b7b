package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/suse/upscout/pkg/logging"

	"gopkg.in/yaml.v3"
)

const (
	userConfigDir  = ".config/upscout"
	configFileName = "config.yaml"

	// ConfigEnvVar overrides the configuration file location.
	ConfigEnvVar = "UPSCOUT_CONFIG"
	// RancherURLEnvVar overrides rancher.url.
	RancherURLEnvVar = "UPSCOUT_RANCHER_URL"
	// RancherTokenEnvVar overrides rancher.token.
	RancherTokenEnvVar = "UPSCOUT_RANCHER_TOKEN"
)

// osUserHomeDir is a variable so tests can point the default path elsewhere.
var osUserHomeDir = os.UserHomeDir

// DefaultConfigPath returns ~/.config/upscout/config.yaml, or the value of
// UPSCOUT_CONFIG when set.
func DefaultConfigPath() (string, error) {
	if p := os.Getenv(ConfigEnvVar); p != "" {
		return p, nil
	}
	homeDir, err := osUserHomeDir()
	if err != nil {
		return "", fmt.Errorf("could not determine user config directory: %w", err)
	}
	return filepath.Join(homeDir, userConfigDir, configFileName), nil
}

// LoadConfig loads the configuration file at path. An empty path resolves to
// DefaultConfigPath. A missing file is not an error: defaults are returned.
// Environment overrides are applied last.
func LoadConfig(path string) (UpscoutConfig, error) {
	if path == "" {
		p, err := DefaultConfigPath()
		if err != nil {
			return UpscoutConfig{}, err
		}
		path = p
	}

	cfg := GetDefaultConfig()

	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
		logging.Debug("Config", "No config file found at %s, using defaults", path)
	case err != nil:
		return UpscoutConfig{}, NewConfigurationError(path, "io", fmt.Sprintf("cannot read file: %v", err))
	default:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			cerr := NewConfigurationError(path, "parse", err.Error())
			var typeErr *yaml.TypeError
			if errors.As(err, &typeErr) {
				cerr.Suggestions = append(cerr.Suggestions, "check field types; durations are written like 5s or 2m")
			}
			return UpscoutConfig{}, cerr
		}
		logging.Info("Config", "Loaded configuration from %s", path)
	}

	applyDefaults(&cfg)
	applyEnvOverrides(&cfg)

	if errs := Validate(cfg); errs.HasErrors() {
		cerr := NewConfigurationError(path, "validation", errs.Error())
		return UpscoutConfig{}, cerr
	}

	return cfg, nil
}

func applyEnvOverrides(cfg *UpscoutConfig) {
	if v := os.Getenv(RancherURLEnvVar); v != "" {
		cfg.Rancher.URL = v
	}
	if v := os.Getenv(RancherTokenEnvVar); v != "" {
		cfg.Rancher.Token = v
	}
}

// SaveConfig writes cfg to path, creating the parent directory.
func SaveConfig(path string, cfg UpscoutConfig) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	data, err := yaml.Marshal(&cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("failed to write config %s: %w", path, err)
	}
	return nil
}
