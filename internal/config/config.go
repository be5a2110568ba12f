// Copyright 2026 Marcelo Cantos
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/marcelocantos/sultan/internal/echo"
)

// Environment variables consulted by Load.
const (
	EnvConfig        = "SULTAN_CONFIG"
	EnvHaltOnNonzero = "SULTAN_HALT_ON_NONZERO"
	EnvLogFormat     = "SULTAN_LOG_FORMAT"
	EnvLogLevel      = "SULTAN_LOG_LEVEL"
	EnvAuditPath     = "SULTAN_AUDIT_PATH"
)

// Config holds the global sultan settings.
type Config struct {
	HaltOnNonzero bool        `yaml:"halt_on_nonzero"`
	Log           LogConfig   `yaml:"log"`
	Audit         AuditConfig `yaml:"audit"`
}

// LogConfig controls the echo sink.
type LogConfig struct {
	Format  string            `yaml:"format"`
	Level   string            `yaml:"level"`
	Colors  map[string]string `yaml:"colors"`
	NoColor bool              `yaml:"no_color"`
}

// AuditConfig controls audit log settings.
type AuditConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	home, _ := os.UserHomeDir()
	colors := make(map[string]string, len(echo.DefaultColors))
	for k, v := range echo.DefaultColors {
		colors[k] = v
	}
	return &Config{
		HaltOnNonzero: true,
		Log: LogConfig{
			Format: echo.DefaultFormat,
			Level:  echo.LevelDebug,
			Colors: colors,
		},
		Audit: AuditConfig{
			Enabled: false,
			Path:    filepath.Join(home, ".local", "share", "sultan", "audit.jsonl"),
		},
	}
}

// Load reads the config from $SULTAN_CONFIG or the standard location
// (~/.config/sultan/config.yaml), then applies environment overrides.
// A missing file yields the defaults.
func Load() (*Config, error) {
	path := os.Getenv(EnvConfig)
	if path == "" {
		path = ConfigPath()
	}
	cfg, err := LoadFrom(path)
	if err != nil {
		return nil, err
	}
	if err := cfg.ApplyEnv(os.LookupEnv); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadFrom reads the config from the given path.
func LoadFrom(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return DefaultConfig(), nil
		}
		return nil, errors.Wrap(err, "read config")
	}

	cfg, err := Parse(data)
	if err != nil {
		return nil, errors.Wrapf(err, "parse config %s", path)
	}
	return cfg, nil
}

// Parse decodes YAML over the defaults. Unknown keys are rejected.
func Parse(data []byte) (*Config, error) {
	cfg := DefaultConfig()
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && err != io.EOF {
		return nil, err
	}
	cfg.Audit.Path = expandHome(cfg.Audit.Path)
	return cfg, nil
}

// ApplyEnv overlays the SULTAN_* environment overrides.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) error {
	if v, ok := lookup(EnvHaltOnNonzero); ok {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return errors.Errorf("%s: %q is not a boolean", EnvHaltOnNonzero, v)
		}
		c.HaltOnNonzero = b
	}
	if v, ok := lookup(EnvLogFormat); ok {
		c.Log.Format = v
	}
	if v, ok := lookup(EnvLogLevel); ok {
		c.Log.Level = v
	}
	if v, ok := lookup(EnvAuditPath); ok && v != "" {
		c.Audit.Path = expandHome(v)
		c.Audit.Enabled = true
	}
	return nil
}

// Validate checks the settings against the fixed schema.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Log.Format) == "" {
		return errors.New("log.format must not be empty")
	}
	if !echo.ValidLevel(c.Log.Level) {
		return errors.Errorf("log.level: unknown level %q", c.Log.Level)
	}
	for level, name := range c.Log.Colors {
		if !echo.ValidLevel(level) {
			return errors.Errorf("log.colors: unknown level %q", level)
		}
		if _, err := echo.ParseColor(name); err != nil {
			return errors.Wrapf(err, "log.colors.%s", level)
		}
	}
	if c.Audit.Enabled && c.Audit.Path == "" {
		return errors.New("audit.path is required when audit is enabled")
	}
	return nil
}

// EchoOptions converts the log settings for echo.New.
func (c *Config) EchoOptions(out io.Writer) echo.Options {
	return echo.Options{
		Format:  c.Log.Format,
		Level:   c.Log.Level,
		Colors:  c.Log.Colors,
		NoColor: c.Log.NoColor,
		Out:     out,
	}
}

// ConfigPath returns the standard config file path.
func ConfigPath() string {
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".config", "sultan", "config.yaml")
}

func expandHome(path string) string {
	if path != "" && path[0] == '~' {
		home, _ := os.UserHomeDir()
		return filepath.Join(home, path[1:])
	}
	return path
}
