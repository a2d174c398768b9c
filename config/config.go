// Package config loads pwvault settings from an optional YAML file and
// PWVAULT_* environment variables.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"time"

	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"
)

// Config holds every tunable of the vault and its terminal front end.
type Config struct {
	// DataDir is where the vault's blobs live. Empty means the per-user
	// default chosen by the CLI.
	DataDir string `yaml:"data_dir"`

	Storage   StorageConfig   `yaml:"storage"`
	Generator GeneratorConfig `yaml:"generator"`
	Hash      HashConfig      `yaml:"hash"`
	Log       LogConfig       `yaml:"log"`
	UI        UIConfig        `yaml:"ui"`
}

type StorageConfig struct {
	Backend string `yaml:"backend"`
}

type GeneratorConfig struct {
	Length         int  `yaml:"length"`
	IncludeSpecial bool `yaml:"include_special"`
}

// HashConfig sets the argon2id cost of the master-password hash. It only
// applies at setup; verification uses the parameters stored in the record.
type HashConfig struct {
	Time      uint32 `yaml:"time"`
	MemoryKiB uint32 `yaml:"memory_kib"`
	Threads   uint8  `yaml:"threads"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

type UIConfig struct {
	Mode                  string `yaml:"mode"`
	ClipboardClearSeconds int    `yaml:"clipboard_clear_seconds"`
}

func (u UIConfig) ClipboardClear() time.Duration {
	return time.Duration(u.ClipboardClearSeconds) * time.Second
}

func DefaultConfig() *Config {
	return &Config{
		Storage:   StorageConfig{Backend: "file"},
		Generator: GeneratorConfig{Length: 16, IncludeSpecial: true},
		Hash:      HashConfig{Time: 3, MemoryKiB: 64 * 1024, Threads: 1},
		Log:       LogConfig{Level: "warn", Format: "console"},
		UI:        UIConfig{Mode: "repl", ClipboardClearSeconds: 30},
	}
}

// LoadConfig starts from DefaultConfig, applies the YAML file at path if it
// exists, then environment overrides, and validates the result.
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, fs.ErrNotExist):
		case err != nil:
			return nil, fmt.Errorf("failed to read config file: %w", err)
		default:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("failed to parse config file: %w", err)
			}
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() error {
	if v, ok := os.LookupEnv("PWVAULT_DATA_DIR"); ok {
		c.DataDir = v
	}
	if v, ok := os.LookupEnv("PWVAULT_STORAGE_BACKEND"); ok {
		c.Storage.Backend = v
	}
	if v, ok := os.LookupEnv("PWVAULT_LOG_LEVEL"); ok {
		c.Log.Level = v
	}
	if v, ok := os.LookupEnv("PWVAULT_LOG_FORMAT"); ok {
		c.Log.Format = v
	}
	if v, ok := os.LookupEnv("PWVAULT_UI_MODE"); ok {
		c.UI.Mode = v
	}
	if v, ok := os.LookupEnv("PWVAULT_SECRET_LENGTH"); ok {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("PWVAULT_SECRET_LENGTH has invalid value %q: %w", v, err)
		}
		c.Generator.Length = n
	}
	return nil
}

func (c *Config) Validate() error {
	switch c.Storage.Backend {
	case "file", "sqlite", "bolt":
	default:
		return fmt.Errorf("storage.backend must be file, sqlite or bolt, got %q", c.Storage.Backend)
	}
	if c.Generator.Length < 12 {
		return fmt.Errorf("generator.length must be at least 12, got %d", c.Generator.Length)
	}
	if c.Hash.Time == 0 || c.Hash.MemoryKiB == 0 || c.Hash.Threads == 0 {
		return errors.New("hash.time, hash.memory_kib and hash.threads must be positive")
	}
	if _, err := zerolog.ParseLevel(c.Log.Level); err != nil {
		return fmt.Errorf("log.level: %w", err)
	}
	switch c.Log.Format {
	case "console", "json":
	default:
		return fmt.Errorf("log.format must be console or json, got %q", c.Log.Format)
	}
	switch c.UI.Mode {
	case "repl", "tui":
	default:
		return fmt.Errorf("ui.mode must be repl or tui, got %q", c.UI.Mode)
	}
	if c.UI.ClipboardClearSeconds < 0 {
		return fmt.Errorf("ui.clipboard_clear_seconds must not be negative")
	}
	return nil
}
