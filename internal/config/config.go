// Package config loads the YAML settings file the organize CLI reads
// before building an engine.Services, following the teacher's
// Load/LoadWithEnv split so tests never touch the real environment
// (jra3-linear-fuse internal/config/config.go).
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// OnConflict mirrors execctx.OnConflict's string values so the config
// file shares the engine's vocabulary without importing internal/execctx
// here.
type OnConflict string

const (
	OnConflictSkip      OnConflict = "skip"
	OnConflictOverwrite OnConflict = "overwrite"
	OnConflictRename    OnConflict = "rename"
)

type Config struct {
	DatabaseURL string      `yaml:"database_url"`
	DryRun      bool        `yaml:"dry_run"`
	Interactive bool        `yaml:"interactive"`
	OnConflict  OnConflict  `yaml:"on_conflict"`
	Cache       CacheConfig `yaml:"cache"`
	Log         LogConfig   `yaml:"log"`
}

type CacheConfig struct {
	TTL        time.Duration `yaml:"ttl"`
	MaxEntries int           `yaml:"max_entries"`
}

type LogConfig struct {
	Level string `yaml:"level"`
	File  string `yaml:"file"`
}

func DefaultConfig() *Config {
	return &Config{
		DatabaseURL: "organize.db",
		OnConflict:  OnConflictRename,
		Cache: CacheConfig{
			TTL:        30 * time.Second,
			MaxEntries: 10000,
		},
		Log: LogConfig{Level: "info"},
	}
}

// Load loads configuration using the real environment.
func Load() (*Config, error) {
	return LoadWithEnv(os.Getenv)
}

// LoadWithEnv loads configuration using the provided environment lookup
// function, so tests can supply isolated values (the DATABASE_URL and
// ORGANIZE_CONFIG overrides; EDITOR is not read).
func LoadWithEnv(getenv func(string) string) (*Config, error) {
	cfg := DefaultConfig()

	configPath := getConfigPathWithEnv(getenv)
	if data, err := os.ReadFile(configPath); err == nil {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	if dbURL := getenv("DATABASE_URL"); dbURL != "" {
		cfg.DatabaseURL = dbURL
	}

	return cfg, nil
}

func getConfigPathWithEnv(getenv func(string) string) string {
	if explicit := getenv("ORGANIZE_CONFIG"); explicit != "" {
		return explicit
	}
	if xdgConfig := getenv("XDG_CONFIG_HOME"); xdgConfig != "" {
		return filepath.Join(xdgConfig, "organize", "config.yaml")
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".config", "organize", "config.yaml")
}
