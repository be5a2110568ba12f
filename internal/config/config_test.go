// Copyright 2026 Marcelo Cantos
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestDefaults(t *testing.T) {
	cfg := DefaultConfig()
	if !cfg.HaltOnNonzero {
		t.Error("halt_on_nonzero should default to true")
	}
	if cfg.Log.Format != "[{name}]: {message}" {
		t.Errorf("unexpected default format %q", cfg.Log.Format)
	}
	if cfg.Log.Colors["critical"] != "bold_red" {
		t.Errorf("unexpected critical color %q", cfg.Log.Colors["critical"])
	}
	if cfg.Audit.Enabled {
		t.Error("audit should default to disabled")
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("defaults invalid: %v", err)
	}
}

func TestLoadFromMissing(t *testing.T) {
	cfg, err := LoadFrom(filepath.Join(t.TempDir(), "nope.yaml"))
	if err != nil {
		t.Fatal(err)
	}
	if !cfg.HaltOnNonzero {
		t.Error("expected defaults for missing file")
	}
}

func TestLoadFrom(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	data := `
halt_on_nonzero: false
log:
  format: "{level} {message}"
  level: info
  colors:
    info: bold_blue
audit:
  enabled: true
  path: /var/tmp/sultan.jsonl
`
	if err := os.WriteFile(path, []byte(data), 0644); err != nil {
		t.Fatal(err)
	}
	cfg, err := LoadFrom(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.HaltOnNonzero {
		t.Error("halt_on_nonzero not applied")
	}
	if cfg.Log.Format != "{level} {message}" || cfg.Log.Level != "info" {
		t.Errorf("log settings not applied: %+v", cfg.Log)
	}
	if cfg.Log.Colors["info"] != "bold_blue" {
		t.Errorf("info color = %q", cfg.Log.Colors["info"])
	}
	// Unset colors keep their defaults.
	if cfg.Log.Colors["debug"] != "cyan" {
		t.Errorf("debug color = %q", cfg.Log.Colors["debug"])
	}
	if !cfg.Audit.Enabled || cfg.Audit.Path != "/var/tmp/sultan.jsonl" {
		t.Errorf("audit settings not applied: %+v", cfg.Audit)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatal(err)
	}
}

func TestParseRejectsUnknownKeys(t *testing.T) {
	_, err := Parse([]byte("halt_on_error: true\n"))
	if err == nil {
		t.Fatal("expected error for unknown key")
	}
}

func TestParseEmpty(t *testing.T) {
	cfg, err := Parse(nil)
	if err != nil {
		t.Fatal(err)
	}
	if !cfg.HaltOnNonzero {
		t.Error("expected defaults")
	}
}

func TestParseExpandsHome(t *testing.T) {
	home, err := os.UserHomeDir()
	if err != nil {
		t.Skip("no home directory")
	}
	cfg, err := Parse([]byte("audit:\n  path: ~/audit.jsonl\n"))
	if err != nil {
		t.Fatal(err)
	}
	if want := filepath.Join(home, "audit.jsonl"); cfg.Audit.Path != want {
		t.Errorf("got %q, want %q", cfg.Audit.Path, want)
	}
}

func TestApplyEnv(t *testing.T) {
	env := map[string]string{
		EnvHaltOnNonzero: "false",
		EnvLogFormat:     "{message}",
		EnvLogLevel:      "warn",
		EnvAuditPath:     "/tmp/a.jsonl",
	}
	lookup := func(k string) (string, bool) {
		v, ok := env[k]
		return v, ok
	}
	cfg := DefaultConfig()
	if err := cfg.ApplyEnv(lookup); err != nil {
		t.Fatal(err)
	}
	if cfg.HaltOnNonzero {
		t.Error("halt override not applied")
	}
	if cfg.Log.Format != "{message}" || cfg.Log.Level != "warn" {
		t.Errorf("log overrides not applied: %+v", cfg.Log)
	}
	if !cfg.Audit.Enabled || cfg.Audit.Path != "/tmp/a.jsonl" {
		t.Errorf("audit override not applied: %+v", cfg.Audit)
	}
}

func TestApplyEnvBadBool(t *testing.T) {
	lookup := func(k string) (string, bool) {
		if k == EnvHaltOnNonzero {
			return "sometimes", true
		}
		return "", false
	}
	if err := DefaultConfig().ApplyEnv(lookup); err == nil {
		t.Fatal("expected error")
	}
}

func TestLoadUsesEnvPath(t *testing.T) {
	path := filepath.Join(t.TempDir(), "custom.yaml")
	if err := os.WriteFile(path, []byte("log:\n  level: error\n"), 0644); err != nil {
		t.Fatal(err)
	}
	t.Setenv(EnvConfig, path)
	t.Setenv(EnvLogFormat, "<{message}>")
	cfg, err := Load()
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Log.Level != "error" {
		t.Errorf("level = %q", cfg.Log.Level)
	}
	if cfg.Log.Format != "<{message}>" {
		t.Errorf("format = %q", cfg.Log.Format)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		errSub string
	}{
		{"empty format", func(c *Config) { c.Log.Format = "  " }, "log.format"},
		{"bad level", func(c *Config) { c.Log.Level = "loud" }, "log.level"},
		{"bad color level", func(c *Config) { c.Log.Colors["fatal"] = "red" }, "log.colors"},
		{"bad color", func(c *Config) { c.Log.Colors["info"] = "orange" }, "log.colors.info"},
		{"audit without path", func(c *Config) { c.Audit.Enabled = true; c.Audit.Path = "" }, "audit.path"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(err.Error(), tt.errSub) {
				t.Errorf("error %q does not mention %q", err, tt.errSub)
			}
		})
	}
}

func TestEchoOptions(t *testing.T) {
	var buf bytes.Buffer
	cfg := DefaultConfig()
	cfg.Log.NoColor = true
	opts := cfg.EchoOptions(&buf)
	if opts.Format != cfg.Log.Format || opts.Level != cfg.Log.Level || !opts.NoColor || opts.Out != &buf {
		t.Errorf("unexpected options: %+v", opts)
	}
}
