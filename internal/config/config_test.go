package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.Equal(t, "clip_", cfg.ClipPrefix)
	assert.Equal(t, ".mp4", cfg.ClipExtension)
	assert.Equal(t, BackendSimulated, cfg.Capture.Backend)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, "clips/", cfg.Backup.KeyPrefix)
	assert.NotEmpty(t, cfg.StorageDir)
	assert.Equal(t, "settings.json", filepath.Base(cfg.SettingsPath))
	assert.Equal(t, 10*time.Second, cfg.StopTimeout())
	assert.NoError(t, cfg.Validate())
}

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig().ClipPrefix, cfg.ClipPrefix)

	cfg, err = Load("")
	require.NoError(t, err)
	assert.Equal(t, BackendSimulated, cfg.Capture.Backend)
}

func TestLoad_FileOverridesDefaults(t *testing.T) {
	t.Setenv("CLIP_ROOT", "/srv/media")
	path := filepath.Join(t.TempDir(), "recorder.yaml")
	content := `
storage_dir: ${CLIP_ROOT}/clips
clip_prefix: take_
capture:
  backend: ffmpeg
  back_device: /dev/video2
  stop_timeout: 3s
logging:
  level: debug
window:
  width: 1024
  height: 768
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "/srv/media/clips", cfg.StorageDir)
	assert.Equal(t, "take_", cfg.ClipPrefix)
	assert.Equal(t, ".mp4", cfg.ClipExtension)
	assert.Equal(t, BackendFFmpeg, cfg.Capture.Backend)
	assert.Equal(t, "/dev/video2", cfg.Capture.BackDevice)
	assert.Equal(t, "/dev/video1", cfg.Capture.FrontDevice)
	assert.Equal(t, 3*time.Second, cfg.StopTimeout())
	assert.Equal(t, float32(1024), cfg.Window.Width)
	assert.NoError(t, cfg.Validate())
}

func TestLoad_InvalidYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "broken.yaml")
	require.NoError(t, os.WriteFile(path, []byte("capture: [unclosed"), 0644))

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse config")
}

func TestExpandVars(t *testing.T) {
	t.Setenv("CLIP_UNSET_FOR_TEST", "")

	vars := map[string]string{"HOME": "/home/tester"}
	assert.Equal(t, "/home/tester/clips", expandVars("${HOME}/clips", vars))
	assert.Equal(t, "/tmp/clips", expandVars("${CLIP_UNSET_FOR_TEST:-/tmp}/clips", vars))
	assert.Equal(t, "plain", expandVars("plain", vars))
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		modify  func(*Config)
		message string
	}{
		{"empty storage dir", func(c *Config) { c.StorageDir = "" }, "storage_dir"},
		{"prefix with separator", func(c *Config) { c.ClipPrefix = "a/b" }, "clip_prefix"},
		{"extension without dot", func(c *Config) { c.ClipExtension = "mp4" }, "clip_extension"},
		{"unknown backend", func(c *Config) { c.Capture.Backend = "gstreamer" }, "capture.backend"},
		{"ffmpeg without device", func(c *Config) {
			c.Capture.Backend = BackendFFmpeg
			c.Capture.BackDevice = ""
		}, "capture.back_device"},
		{"bad stop timeout", func(c *Config) { c.Capture.StopTimeout = "soon" }, "capture.stop_timeout"},
		{"bad log level", func(c *Config) { c.Logging.Level = "loud" }, "logging.level"},
		{"zero window", func(c *Config) { c.Window.Width = 0 }, "window size"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.modify(cfg)

			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.message)
		})
	}
}

func TestValidate_ReportsAllErrors(t *testing.T) {
	cfg := DefaultConfig()
	cfg.StorageDir = ""
	cfg.Capture.Backend = "none"

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "storage_dir")
	assert.Contains(t, err.Error(), "capture.backend")
}
