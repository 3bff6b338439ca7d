package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/emmett/voxrec/internal/audio"
	"github.com/emmett/voxrec/internal/wave"
)

// Audio holds the recording format and device buffering
type Audio struct {
	Format           wave.Config `yaml:",inline"`
	BufferFrames     uint32      `yaml:"buffer_frames" validate:"gt=0"`
	RingChunks       int         `yaml:"ring_chunks" validate:"gte=2"`
	NoiseSuppression bool        `yaml:"noise_suppression"`
}

// Capture returns the device buffering settings
func (a Audio) Capture() audio.CaptureConfig {
	capture := audio.DefaultCaptureConfig()
	capture.BufferFrames = a.BufferFrames
	capture.RingChunks = a.RingChunks
	return capture
}

// Log configures structured logging
type Log struct {
	Level      string `yaml:"level" validate:"oneof=debug info warn error"`
	File       string `yaml:"file"`
	MaxSizeMB  int    `yaml:"max_size_mb" validate:"gte=0"`
	MaxBackups int    `yaml:"max_backups" validate:"gte=0"`
	Dev        bool   `yaml:"dev"`
}

// Config represents the application configuration
type Config struct {
	// Audio settings
	Audio Audio `yaml:"audio"`

	// Storage settings
	Storage struct {
		SandboxDir string `yaml:"sandbox_dir" validate:"required"`
	} `yaml:"storage"`

	// Logging settings
	Log Log `yaml:"log"`

	// Output settings
	Output struct {
		Format string `yaml:"format" validate:"oneof=console json text"`
	} `yaml:"output"`

	// Input settings
	Input struct {
		Hotkey string `yaml:"hotkey"`
	} `yaml:"input"`

	// Server settings
	Server struct {
		Host string `yaml:"host"`
		Port int    `yaml:"port" validate:"gte=0,lte=65535"`
	} `yaml:"server"`
}

// DefaultConfig returns a configuration with default values
func DefaultConfig() *Config {
	cfg := &Config{}

	// Audio defaults
	capture := audio.DefaultCaptureConfig()
	cfg.Audio.Format = wave.DefaultConfig()
	cfg.Audio.BufferFrames = capture.BufferFrames
	cfg.Audio.RingChunks = capture.RingChunks
	cfg.Audio.NoiseSuppression = false

	// Storage defaults
	cfg.Storage.SandboxDir = defaultSandboxDir()

	// Log defaults
	cfg.Log.Level = "info"
	cfg.Log.MaxSizeMB = 10
	cfg.Log.MaxBackups = 3

	// Output defaults
	cfg.Output.Format = "console"

	// Input defaults
	cfg.Input.Hotkey = ""

	// Server defaults
	cfg.Server.Host = "localhost"
	cfg.Server.Port = 50051

	return cfg
}

func defaultSandboxDir() string {
	if dir, err := os.UserCacheDir(); err == nil {
		return filepath.Join(dir, "voxrec", "recordings")
	}
	return filepath.Join(os.TempDir(), "voxrec", "recordings")
}

var validate = validator.New()

// Validate checks every section of the configuration
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return nil
}

// Load loads configuration from file
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// LoadWithFallback attempts to load configuration from multiple locations
// Priority: explicit path > ~/.voxrecrc > /etc/voxrec/config.yaml
func LoadWithFallback(explicitPath string) (*Config, error) {
	if explicitPath != "" {
		return Load(explicitPath)
	}

	homeDir, err := os.UserHomeDir()
	if err == nil {
		userConfigPath := filepath.Join(homeDir, ".voxrecrc")
		if _, err := os.Stat(userConfigPath); err == nil {
			cfg, err := Load(userConfigPath)
			if err == nil {
				return cfg, nil
			}
		}
	}

	systemConfigPath := "/etc/voxrec/config.yaml"
	if _, err := os.Stat(systemConfigPath); err == nil {
		cfg, err := Load(systemConfigPath)
		if err == nil {
			return cfg, nil
		}
	}

	// No config file found, return defaults
	return DefaultConfig(), nil
}

// Save saves the configuration to a file
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}
