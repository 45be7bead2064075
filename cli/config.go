package cli

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/xraph/shelf"
)

// StorageConfig selects and configures the persistence backend.
type StorageConfig struct {
	// Backend is one of "memory", "postgres", "sqlite".
	Backend string `yaml:"backend"`

	// DSN is the driver connection string (ignored for memory).
	DSN string `yaml:"dsn"`
}

// FileConfig is the YAML configuration file layout.
type FileConfig struct {
	Storage StorageConfig `yaml:"storage"`
	Shelf   shelf.Config  `yaml:"shelf"`
}

// LoadConfig reads and parses a YAML configuration file. A missing path
// yields defaults (memory backend).
func LoadConfig(path string) (FileConfig, error) {
	cfg := FileConfig{
		Storage: StorageConfig{Backend: "memory"},
		Shelf:   shelf.DefaultConfig(),
	}
	raw, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return cfg, nil
	}
	if err != nil {
		return cfg, fmt.Errorf("shelfadm: read config: %w", err)
	}
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return cfg, fmt.Errorf("shelfadm: parse config: %w", err)
	}
	if cfg.Storage.Backend == "" {
		cfg.Storage.Backend = "memory"
	}
	return cfg, nil
}
