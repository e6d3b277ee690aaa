package weakmap

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

const defaultObserver = "slog"

// Config holds weak map initialization parameters.
type Config struct {
	// Observer names a registered observability.Observer ("noop", "slog",
	// "metrics", or any name added with observability.RegisterObserver).
	Observer string `json:"observer,omitempty" yaml:"observer,omitempty"`
}

// DefaultConfig returns the default configuration, which logs through slog.
func DefaultConfig() Config {
	return Config{
		Observer: defaultObserver,
	}
}

// Merge applies non-zero values from source into c.
func (c *Config) Merge(source *Config) {
	if source.Observer != "" {
		c.Observer = source.Observer
	}
}

// LoadConfig reads a JSON or YAML config file, merges it with defaults, and
// returns the resulting Config. Files ending in .yaml or .yml are parsed as
// YAML; everything else as JSON.
func LoadConfig(filename string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var loaded Config
	switch filepath.Ext(filename) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &loaded)
	default:
		err = json.Unmarshal(data, &loaded)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	cfg.Merge(&loaded)
	return &cfg, nil
}
