// Package config loads the YAML or JSON configuration shared by the sheet
// command and its server mode.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/vogtb/go-spreadsheet/packages/logging"
	"gopkg.in/yaml.v3"
)

// Config represents the application configuration
type Config struct {
	Sheet   SheetConfig   `json:"sheet" yaml:"sheet"`
	REPL    REPLConfig    `json:"repl" yaml:"repl"`
	Server  ServerConfig  `json:"server" yaml:"server"`
	Storage StorageConfig `json:"storage" yaml:"storage"`
	Logging LoggingConfig `json:"logging" yaml:"logging"`
}

// SheetConfig controls the naming policy and version tag of new sheets
type SheetConfig struct {
	Version   string `json:"version" yaml:"version"`
	Normalize string `json:"normalize" yaml:"normalize"` // upper, lower or none
}

// REPLConfig contains interactive shell configuration
type REPLConfig struct {
	Prompt      string `json:"prompt" yaml:"prompt"`
	HistoryFile string `json:"history_file" yaml:"history_file"`
	HistorySize int    `json:"history_size" yaml:"history_size"`
}

// ServerConfig contains websocket server configuration
type ServerConfig struct {
	Addr string `json:"addr" yaml:"addr"`
}

// StorageConfig contains snapshot database configuration
type StorageConfig struct {
	SnapshotDB string `json:"snapshot_db" yaml:"snapshot_db"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level  string `json:"level" yaml:"level"`
	Format string `json:"format" yaml:"format"` // text or json
}

// DefaultConfig returns the default configuration
func DefaultConfig() *Config {
	return &Config{
		Sheet: SheetConfig{
			Version:   "1.0",
			Normalize: "upper",
		},
		REPL: REPLConfig{
			Prompt:      "sheet> ",
			HistoryFile: "~/.sheet_history",
			HistorySize: 1000,
		},
		Server: ServerConfig{
			Addr: ":8080",
		},
		Storage: StorageConfig{
			SnapshotDB: "spreadsheet.db",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// Load reads configuration from path over the defaults. an empty path or a
// missing file yields the defaults.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()
	if path == "" {
		return cfg, nil
	}

	path = ExpandHome(path)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		if err := json.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse JSON config: %w", err)
		}
	default:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse YAML config: %w", err)
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Save writes cfg to path, as JSON for .json and YAML otherwise
func Save(cfg *Config, path string) error {
	path = ExpandHome(path)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	var data []byte
	var err error
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		data, err = json.MarshalIndent(cfg, "", "  ")
	default:
		data, err = yaml.Marshal(cfg)
	}
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// Validate rejects values no component can work with
func (c *Config) Validate() error {
	switch strings.ToLower(c.Sheet.Normalize) {
	case "upper", "lower", "none", "":
	default:
		return fmt.Errorf("invalid sheet.normalize %q: want upper, lower or none", c.Sheet.Normalize)
	}
	if c.Sheet.Version == "" {
		return fmt.Errorf("sheet.version must not be empty")
	}
	switch strings.ToLower(c.Logging.Format) {
	case "text", "json", "":
	default:
		return fmt.Errorf("invalid logging.format %q: want text or json", c.Logging.Format)
	}
	return nil
}

// Normalizer returns the name normalization selected by sheet.normalize
func (c *Config) Normalizer() func(string) string {
	switch strings.ToLower(c.Sheet.Normalize) {
	case "lower":
		return strings.ToLower
	case "none":
		return func(s string) string { return s }
	default:
		return strings.ToUpper
	}
}

var cellNamePattern = regexp.MustCompile(`^[A-Za-z]+[0-9]+$`)

// Validator returns the validity policy for normalized names: one or more
// letters followed by one or more digits
func (c *Config) Validator() func(string) bool {
	return cellNamePattern.MatchString
}

// NewLogger builds the logger described by the logging section
func (c *Config) NewLogger() logging.Logger {
	return logging.New(os.Stderr, logging.ParseLevel(c.Logging.Level), c.Logging.Format)
}

// ExpandHome replaces a leading ~ with the user's home directory
func ExpandHome(path string) string {
	if path == "~" || strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return path
		}
		return filepath.Join(home, strings.TrimPrefix(path, "~"))
	}
	return path
}
