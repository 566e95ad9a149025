// Package config loads the startup configuration of the clip recorder.
//
// The file is YAML. A missing file is not an error: every field has a
// default and command-line flags can override the common ones. ${HOME}
// and ${VAR:-default} patterns are expanded in path fields.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"clip-recorder-app/pkg/logger"
)

// Capture backends.
const (
	BackendSimulated = "simulated"
	BackendFFmpeg    = "ffmpeg"
)

// Config holds application configuration
type Config struct {
	// StorageDir is the flat directory clips are recorded into and listed from.
	StorageDir string `yaml:"storage_dir"`

	// ClipPrefix and ClipExtension form clip names: <prefix><unixMillis><extension>.
	ClipPrefix    string `yaml:"clip_prefix"`
	ClipExtension string `yaml:"clip_extension"`

	// SettingsPath is the JSON file holding user preferences.
	SettingsPath string `yaml:"settings_path"`

	Capture CaptureConfig `yaml:"capture"`
	Logging LoggingConfig `yaml:"logging"`
	Backup  BackupConfig  `yaml:"backup"`
	Window  WindowConfig  `yaml:"window"`
}

// CaptureConfig selects and configures the capture device.
type CaptureConfig struct {
	// Backend is "simulated" or "ffmpeg".
	Backend string `yaml:"backend"`

	FFmpegPath  string `yaml:"ffmpeg_path"`
	InputFormat string `yaml:"input_format"`
	BackDevice  string `yaml:"back_device"`
	FrontDevice string `yaml:"front_device"`

	// StopTimeout bounds how long ffmpeg gets to finish a clip, e.g. "10s".
	StopTimeout string `yaml:"stop_timeout"`

	// PermissionGranted is the initial permission of the simulated device.
	PermissionGranted bool `yaml:"permission_granted"`
}

// LoggingConfig configures pkg/logger.
type LoggingConfig struct {
	Level string `yaml:"level"`
	// File receives log output instead of stderr when set.
	File string `yaml:"file"`
}

// BackupConfig holds the parts of the S3 setup that are not user settings.
type BackupConfig struct {
	// Endpoint points at an S3 compatible store; empty means AWS.
	Endpoint string `yaml:"endpoint"`
	// KeyringDir enables the encrypted file keyring backend.
	KeyringDir string `yaml:"keyring_dir"`
	KeyPrefix  string `yaml:"key_prefix"`
}

// WindowConfig is the initial main window size.
type WindowConfig struct {
	Width  float32 `yaml:"width"`
	Height float32 `yaml:"height"`
}

// DefaultConfig returns default application configuration
func DefaultConfig() *Config {
	homeDir, _ := os.UserHomeDir()
	configDir, err := os.UserConfigDir()
	if err != nil {
		configDir = filepath.Join(homeDir, ".config")
	}
	appDir := filepath.Join(configDir, "clip-recorder-app")

	return &Config{
		StorageDir:    filepath.Join(homeDir, "ClipRecorder", "clips"),
		ClipPrefix:    "clip_",
		ClipExtension: ".mp4",
		SettingsPath:  filepath.Join(appDir, "settings.json"),
		Capture: CaptureConfig{
			Backend:           BackendSimulated,
			FFmpegPath:        "ffmpeg",
			InputFormat:       "v4l2",
			BackDevice:        "/dev/video0",
			FrontDevice:       "/dev/video1",
			StopTimeout:       "10s",
			PermissionGranted: true,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
		Backup: BackupConfig{
			KeyPrefix: "clips/",
		},
		Window: WindowConfig{
			Width:  800,
			Height: 600,
		},
	}
}

// Load reads the YAML file at path over the defaults. An empty path or a
// missing file yields the defaults.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, os.ErrNotExist):
		case err != nil:
			return nil, fmt.Errorf("failed to read config %s: %w", path, err)
		default:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
			}
		}
	}

	cfg.expandVariables()
	return cfg, nil
}

// StopTimeout returns the parsed capture stop timeout
func (c *Config) StopTimeout() time.Duration {
	d, err := time.ParseDuration(c.Capture.StopTimeout)
	if err != nil || d <= 0 {
		return 10 * time.Second
	}
	return d
}

func (c *Config) expandVariables() {
	vars := map[string]string{
		"HOME": os.Getenv("HOME"),
	}

	c.StorageDir = expandVars(c.StorageDir, vars)
	c.SettingsPath = expandVars(c.SettingsPath, vars)
	c.Logging.File = expandVars(c.Logging.File, vars)
	c.Backup.KeyringDir = expandVars(c.Backup.KeyringDir, vars)
	c.Capture.FFmpegPath = expandVars(c.Capture.FFmpegPath, vars)
}

var varPattern = regexp.MustCompile(`\$\{([^}:]+)(?::-([^}]*))?\}`)

// expandVars expands ${VAR} and ${VAR:-default} patterns.
func expandVars(s string, vars map[string]string) string {
	return varPattern.ReplaceAllStringFunc(s, func(match string) string {
		parts := varPattern.FindStringSubmatch(match)
		if len(parts) < 2 {
			return match
		}

		name := parts[1]
		defaultValue := ""
		if len(parts) >= 3 {
			defaultValue = parts[2]
		}

		if value, ok := vars[name]; ok && value != "" {
			return value
		}
		if value := os.Getenv(name); value != "" {
			return value
		}
		return defaultValue
	})
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	var errs []error

	if c.StorageDir == "" {
		errs = append(errs, fmt.Errorf("storage_dir is required"))
	}
	if c.ClipPrefix == "" || strings.ContainsAny(c.ClipPrefix, `/\`) {
		errs = append(errs, fmt.Errorf("clip_prefix must be a non-empty file name prefix: %q", c.ClipPrefix))
	}
	if !strings.HasPrefix(c.ClipExtension, ".") || len(c.ClipExtension) < 2 {
		errs = append(errs, fmt.Errorf("clip_extension must start with a dot: %q", c.ClipExtension))
	}
	if c.SettingsPath == "" {
		errs = append(errs, fmt.Errorf("settings_path is required"))
	}

	switch c.Capture.Backend {
	case BackendSimulated:
	case BackendFFmpeg:
		if c.Capture.BackDevice == "" {
			errs = append(errs, fmt.Errorf("capture.back_device is required for the ffmpeg backend"))
		}
	default:
		errs = append(errs, fmt.Errorf("invalid capture.backend: %q", c.Capture.Backend))
	}
	if c.Capture.StopTimeout != "" {
		if d, err := time.ParseDuration(c.Capture.StopTimeout); err != nil || d <= 0 {
			errs = append(errs, fmt.Errorf("invalid capture.stop_timeout: %q", c.Capture.StopTimeout))
		}
	}

	if _, err := logger.ParseLevel(c.Logging.Level); err != nil {
		errs = append(errs, fmt.Errorf("invalid logging.level: %w", err))
	}

	if c.Window.Width <= 0 || c.Window.Height <= 0 {
		errs = append(errs, fmt.Errorf("window size must be positive"))
	}

	return errors.Join(errs...)
}
