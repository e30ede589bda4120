// Package config implements Kestrel configuration discovery and loading.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/kestrel-lang/kestrel/pkg/diagnostics"
)

// ProjectFile is the config file name looked up in the working directory.
const ProjectFile = ".kestrel.yaml"

// Config holds the settings shared by the CLI and the REPL.
type Config struct {
	LogLevel    string `yaml:"log_level"`
	Output      string `yaml:"output"`
	HistoryFile string `yaml:"history_file"`
	Prompt      string `yaml:"prompt"`
	Escapes     bool   `yaml:"escapes"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		LogLevel:    "warn",
		Output:      "text",
		HistoryFile: "~/.kestrel_history",
		Prompt:      "kestrel> ",
		Escapes:     true,
	}
}

// Load reads configuration with the precedence
// project (.kestrel.yaml) → user (~/.kestrel/config.yaml) → defaults.
// It returns the path the configuration came from, or "" for defaults.
// A file that exists but does not decode is an error.
func Load(projectDir string) (*Config, string, error) {
	candidates := []string{filepath.Join(projectDir, ProjectFile)}
	if home, err := os.UserHomeDir(); err == nil {
		candidates = append(candidates, filepath.Join(home, ".kestrel", "config.yaml"))
	}

	for _, path := range candidates {
		cfg, err := LoadFile(path)
		if errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err != nil {
			return nil, path, err
		}
		return cfg, path, nil
	}
	return Default(), "", nil
}

// LoadFile decodes one YAML file over the defaults. Unknown keys are rejected.
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg := Default()
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// Validate checks that enumerated settings hold known values.
func (c *Config) Validate() error {
	if _, err := ParseLevel(c.LogLevel); err != nil {
		return err
	}
	if _, err := diagnostics.ParseFormat(c.Output); err != nil {
		return err
	}
	return nil
}

// Level returns the configured slog level.
func (c *Config) Level() slog.Level {
	lvl, _ := ParseLevel(c.LogLevel)
	return lvl
}

// Format returns the configured diagnostic format.
func (c *Config) Format() diagnostics.Format {
	f, _ := diagnostics.ParseFormat(c.Output)
	return f
}

// History returns the REPL history path with a leading ~ expanded.
func (c *Config) History() string {
	return ExpandHome(c.HistoryFile)
}

// Marshal renders the configuration as YAML.
func (c *Config) Marshal() ([]byte, error) {
	return yaml.Marshal(c)
}

// ParseLevel maps a log level name to a slog.Level.
func ParseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug, nil
	case "info":
		return slog.LevelInfo, nil
	case "", "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	}
	return slog.LevelWarn, fmt.Errorf("unknown log level %q", s)
}

// ExpandHome replaces a leading "~/" with the user's home directory.
func ExpandHome(path string) string {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~"))
}
