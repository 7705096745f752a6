// ABOUTME: Application configuration loaded from YAML
// ABOUTME: Defaults, environment expansion and validation
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	SoundSource         string    `yaml:"sound_source"`
	Backend             string    `yaml:"backend"`
	AudioFile           string    `yaml:"audio_file"`
	ServerPort          int       `yaml:"server_port"`
	LocalAddress        string    `yaml:"local_address"`
	SSDPIntervalMins    float64   `yaml:"ssdp_interval_mins"`
	DiscoveryWindowSecs int       `yaml:"discovery_window_secs"`
	AutoResume          bool      `yaml:"auto_resume"`
	UseWaveFormat       bool      `yaml:"use_wave_format"`
	BitsPerSample       int       `yaml:"bits_per_sample"`
	BufferChunks        int       `yaml:"buffer_chunks"`
	DropPolicy          string    `yaml:"drop_policy"`
	InjectSilence       bool      `yaml:"inject_silence"`
	EnableMDNS          bool      `yaml:"enable_mdns"`
	LogFile             string    `yaml:"log_file"`
	Log                 LogConfig `yaml:"log"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Default returns the configuration used when no file is given
func Default() Config {
	cfg := Config{UseWaveFormat: true}
	cfg.setDefaults()
	return cfg
}

// Load reads a YAML file. Keys missing from the file keep their defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	expanded := os.ExpandEnv(string(data))

	cfg := Default()
	if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	cfg.setDefaults()

	return &cfg, nil
}

func (c *Config) setDefaults() {
	if c.Backend == "" {
		c.Backend = "malgo"
	}
	if c.ServerPort == 0 {
		c.ServerPort = 5901
	}
	if c.SSDPIntervalMins == 0 {
		c.SSDPIntervalMins = 10
	}
	if c.DiscoveryWindowSecs == 0 {
		c.DiscoveryWindowSecs = 4
	}
	if c.BitsPerSample == 0 {
		c.BitsPerSample = 16
	}
	if c.BufferChunks == 0 {
		c.BufferChunks = 64
	}
	if c.DropPolicy == "" {
		c.DropPolicy = "oldest"
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "text"
	}
}

// Validate reports the first invalid setting
func (c *Config) Validate() error {
	if c.ServerPort < 1 || c.ServerPort > 65535 {
		return fmt.Errorf("server_port %d out of range", c.ServerPort)
	}
	if c.BitsPerSample != 16 && c.BitsPerSample != 24 {
		return fmt.Errorf("bits_per_sample must be 16 or 24, got %d", c.BitsPerSample)
	}
	if c.SSDPIntervalMins <= 0 {
		return fmt.Errorf("ssdp_interval_mins must be positive, got %v", c.SSDPIntervalMins)
	}
	if c.DiscoveryWindowSecs < 1 || c.DiscoveryWindowSecs > 120 {
		return fmt.Errorf("discovery_window_secs must be between 1 and 120, got %d", c.DiscoveryWindowSecs)
	}
	if c.BufferChunks < 1 {
		return fmt.Errorf("buffer_chunks must be positive, got %d", c.BufferChunks)
	}

	if c.DropPolicy != "oldest" && c.DropPolicy != "newest" {
		return fmt.Errorf("drop_policy must be oldest or newest, got %q", c.DropPolicy)
	}

	switch c.Backend {
	case "malgo", "portaudio", "tone":
	case "file":
		if c.AudioFile == "" {
			return fmt.Errorf("backend file requires audio_file")
		}
	default:
		return fmt.Errorf("unknown backend %q", c.Backend)
	}

	switch strings.ToLower(c.Log.Level) {
	case "debug", "info", "warn", "warning", "error":
	default:
		return fmt.Errorf("unknown log level %q", c.Log.Level)
	}
	switch c.Log.Format {
	case "text", "json":
	default:
		return fmt.Errorf("unknown log format %q", c.Log.Format)
	}
	return nil
}

// SSDPInterval returns the discovery interval
func (c *Config) SSDPInterval() time.Duration {
	return time.Duration(c.SSDPIntervalMins * float64(time.Minute))
}

// DiscoveryWindow returns how long each search collects responses
func (c *Config) DiscoveryWindow() time.Duration {
	return time.Duration(c.DiscoveryWindowSecs) * time.Second
}
