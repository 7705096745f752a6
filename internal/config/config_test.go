// ABOUTME: Tests for configuration loading
// ABOUTME: Defaults, env expansion and validation rules
package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestDefault(t *testing.T) {
	cfg := Default()

	if cfg.ServerPort != 5901 {
		t.Errorf("expected port 5901, got %d", cfg.ServerPort)
	}
	if !cfg.UseWaveFormat {
		t.Error("expected WAV format by default")
	}
	if cfg.BitsPerSample != 16 {
		t.Errorf("expected 16 bits, got %d", cfg.BitsPerSample)
	}
	if cfg.SSDPInterval() != 10*time.Minute {
		t.Errorf("expected 10m interval, got %v", cfg.SSDPInterval())
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("default config invalid: %v", err)
	}
}

func TestLoadKeepsDefaultsForMissingKeys(t *testing.T) {
	path := writeConfig(t, "auto_resume: true\nbits_per_sample: 24\n")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !cfg.AutoResume || cfg.BitsPerSample != 24 {
		t.Errorf("file values not applied: %+v", cfg)
	}
	if !cfg.UseWaveFormat || cfg.ServerPort != 5901 {
		t.Errorf("defaults lost: %+v", cfg)
	}
}

func TestLoadExplicitFalse(t *testing.T) {
	cfg, err := Load(writeConfig(t, "use_wave_format: false\n"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.UseWaveFormat {
		t.Error("expected use_wave_format false")
	}
}

func TestLoadExpandsEnv(t *testing.T) {
	t.Setenv("SWYH_TEST_FILE", "/music/loop.flac")
	cfg, err := Load(writeConfig(t, "backend: file\naudio_file: ${SWYH_TEST_FILE}\nssdp_interval_mins: 0.5\n"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.AudioFile != "/music/loop.flac" {
		t.Errorf("expected expanded path, got %q", cfg.AudioFile)
	}
	if cfg.SSDPInterval() != 30*time.Second {
		t.Errorf("expected 30s interval, got %v", cfg.SSDPInterval())
	}
}

func TestLoadErrors(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("expected error for missing file")
	}
	if _, err := Load(writeConfig(t, "server_port: [1, 2\n")); err == nil {
		t.Error("expected error for malformed yaml")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"port too large", func(c *Config) { c.ServerPort = 70000 }},
		{"negative port", func(c *Config) { c.ServerPort = -1 }},
		{"bit depth", func(c *Config) { c.BitsPerSample = 32 }},
		{"interval", func(c *Config) { c.SSDPIntervalMins = -1 }},
		{"window", func(c *Config) { c.DiscoveryWindowSecs = 500 }},
		{"backend", func(c *Config) { c.Backend = "jack" }},
		{"file without path", func(c *Config) { c.Backend = "file" }},
		{"log level", func(c *Config) { c.Log.Level = "verbose" }},
		{"log format", func(c *Config) { c.Log.Format = "xml" }},
		{"drop policy", func(c *Config) { c.DropPolicy = "random" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(&cfg)
			if err := cfg.Validate(); err == nil {
				t.Error("expected validation error")
			}
		})
	}
}

// every name the logger understands must pass validation
func TestValidateAcceptsLoggerLevels(t *testing.T) {
	for _, level := range []string{"debug", "info", "warn", "warning", "error", "WARNING"} {
		cfg := Default()
		cfg.Log.Level = level
		if err := cfg.Validate(); err != nil {
			t.Errorf("level %q: %v", level, err)
		}
	}
}
