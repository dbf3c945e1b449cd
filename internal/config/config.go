// Package config loads CLI settings from an optional YAML file and PATHFS_*
// environment variables.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"strings"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"

	"github.com/leafo/pathfs/internal/catalog"
)

// EnvPrefix is prepended to every environment override, e.g. PATHFS_DB_PATH.
const EnvPrefix = "pathfs"

// Config captures settings for the catalog and the CLI.
type Config struct {
	Root        string            `yaml:"root" split_words:"true"`
	DBPath      string            `yaml:"db" split_words:"true"`
	IgnoreDirs  []string          `yaml:"ignore_directories" split_words:"true"`
	IgnoreGlobs []string          `yaml:"ignore_globs" split_words:"true"`
	Strict      bool              `yaml:"strict" split_words:"true"`
	Workers     int               `yaml:"workers" split_words:"true"`
	LogLevel    string            `yaml:"log_level" split_words:"true"`
	Meilisearch MeilisearchConfig `yaml:"meilisearch" split_words:"true"`
	Shell       ShellConfig       `yaml:"shell" split_words:"true"`
}

// MeilisearchConfig captures connection settings for optional search synchronization.
type MeilisearchConfig struct {
	Host   string `yaml:"host" split_words:"true"`
	APIKey string `yaml:"api_key" split_words:"true"`
	Index  string `yaml:"index" split_words:"true"`
}

// ShellConfig names a command that receives change sets on stdin.
type ShellConfig struct {
	Command string `yaml:"command" split_words:"true"`
}

// Default returns the configuration used when nothing is set.
func Default() *Config {
	return &Config{
		Root:       ".",
		DBPath:     "pathfs.db",
		IgnoreDirs: []string{".git"},
		LogLevel:   "info",
	}
}

// Load reads path, when it exists, over the defaults and then applies
// environment overrides. An empty path skips the file.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, fs.ErrNotExist):
		case err != nil:
			return nil, fmt.Errorf("read config %s: %w", path, err)
		default:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("parse config %s: %w", path, err)
			}
		}
	}

	if err := envconfig.Process(EnvPrefix, cfg); err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return cfg, nil
}

// Level parses LogLevel, falling back to info.
func (c Config) Level() slog.Level {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.TrimSpace(c.LogLevel))); err != nil {
		return slog.LevelInfo
	}
	return level
}

// Options converts the configuration into the catalog options.
func (c Config) Options() catalog.Options {
	return catalog.Options{
		IgnoreDirs:  append([]string(nil), c.IgnoreDirs...),
		IgnoreGlobs: append([]string(nil), c.IgnoreGlobs...),
		Strict:      c.Strict,
		Workers:     c.Workers,
		Meilisearch: catalog.MeilisearchConfig{
			Host:   c.Meilisearch.Host,
			APIKey: c.Meilisearch.APIKey,
			Index:  c.Meilisearch.Index,
		},
		Shell: catalog.ShellTargetConfig{Command: c.Shell.Command},
	}
}
