package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	toml "github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

// Config holds runtime parameters for the service.
// Zero values mean "unspecified" and will be replaced by defaults in main.
type Config struct {
	Addr            string   `json:"addr" yaml:"addr" toml:"addr"`
	ModelStoreDir   string   `json:"model_store_dir" yaml:"model_store_dir" toml:"model_store_dir"`
	CatalogPath     string   `json:"catalog_path" yaml:"catalog_path" toml:"catalog_path"`
	WorkerBin       string   `json:"worker_bin" yaml:"worker_bin" toml:"worker_bin"`
	WorkerHost      string   `json:"worker_host" yaml:"worker_host" toml:"worker_host"`
	WorkerPortStart int      `json:"worker_port_start" yaml:"worker_port_start" toml:"worker_port_start"`
	WorkerPortEnd   int      `json:"worker_port_end" yaml:"worker_port_end" toml:"worker_port_end"`
	Runtime         string   `json:"runtime" yaml:"runtime" toml:"runtime"`
	MaxLines        int      `json:"max_lines" yaml:"max_lines" toml:"max_lines"`
	MaxLineChars    int      `json:"max_line_chars" yaml:"max_line_chars" toml:"max_line_chars"`
	LogLevel        string   `json:"log_level" yaml:"log_level" toml:"log_level"`
	CORSEnabled     bool     `json:"cors_enabled" yaml:"cors_enabled" toml:"cors_enabled"`
	CORSOrigins     []string `json:"cors_origins" yaml:"cors_origins" toml:"cors_origins"`
}

// Load reads a configuration file based on its extension.
// Supports: .yaml/.yml, .json, .toml
func Load(path string) (Config, error) {
	var cfg Config
	if path == "" {
		return cfg, fmt.Errorf("empty config path")
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(b, &cfg); err != nil {
			return cfg, err
		}
	case ".json":
		if err := json.Unmarshal(b, &cfg); err != nil {
			return cfg, err
		}
	case ".toml":
		if err := toml.Unmarshal(b, &cfg); err != nil {
			return cfg, err
		}
	default:
		return cfg, fmt.Errorf("unsupported config extension: %s", ext)
	}
	return cfg, nil
}
