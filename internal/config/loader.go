// Package config loads the xrpl-probe configuration: defaults, then the YAML
// file, then environment overrides. Command-line flags are applied last by
// the CLI.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/seelabs/xrpl-probe/internal/constants"
	"github.com/seelabs/xrpl-probe/internal/privilege"
)

// Loader reads and writes the config file.
type Loader struct {
	path string
}

// NewLoader returns a loader for path. An empty path resolves to
// $XRPL_PROBE_CONFIG, then ~/.xrpl-probe/config.yaml of the invoking user
// (the sudo caller when run through sudo). Without a home
// directory the loader points at a file that never exists, so Load returns
// defaults with environment overrides.
func NewLoader(path string) *Loader {
	if path != "" {
		return &Loader{path: path}
	}
	if p := os.Getenv(constants.EnvConfigPath); p != "" {
		return &Loader{path: p}
	}
	home, err := privilege.HomeDir()
	if err != nil {
		home = filepath.Join(os.TempDir(), "xrpl-probe-fallback")
	}
	return &Loader{path: filepath.Join(home, constants.DefaultDir, constants.ConfigFile)}
}

// Path returns the config file path.
func (l *Loader) Path() string {
	return l.path
}

// Load returns the configuration. A missing file yields DefaultConfig. Keys
// absent from the file keep their default values.
func (l *Loader) Load() (*Config, error) {
	cfg := DefaultConfig()

	//nolint:gosec // G304: path is chosen by the operator.
	data, err := os.ReadFile(l.path)
	switch {
	case errors.Is(err, os.ErrNotExist):
	case err != nil:
		return nil, fmt.Errorf("failed to read config %s: %w", l.path, err)
	default:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config %s: %w", l.path, err)
		}
	}

	if err := LoadFromEnv(cfg); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}
	return cfg, nil
}

// Save writes cfg to the loader's path, creating the directory. Under sudo
// the file, and the directory when Save created it, are owned by the caller.
func (l *Loader) Save(cfg *Config) error {
	dir := filepath.Dir(l.path)
	owned := []string{l.path}
	if _, err := os.Stat(dir); errors.Is(err, os.ErrNotExist) {
		owned = append(owned, dir)
	}

	//nolint:gosec // G301: directory needs standard permissions for traversal.
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := Marshal(cfg)
	if err != nil {
		return err
	}

	//nolint:gosec // G306: the config holds no secrets.
	if err := os.WriteFile(l.path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return privilege.ChownToInvoker(owned...)
}

// Marshal renders cfg as YAML.
func Marshal(cfg *Config) ([]byte, error) {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal config: %w", err)
	}
	return data, nil
}
