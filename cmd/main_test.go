package main

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"clip-recorder-app/internal/capture"
	"clip-recorder-app/internal/config"
	"clip-recorder-app/internal/models"
	"clip-recorder-app/pkg/logger"
)

func TestParseFlags(t *testing.T) {
	opts, err := parseFlags([]string{
		"--config", "/tmp/clip.yaml",
		"--storage-dir", "/tmp/clips",
		"--capture", "ffmpeg",
		"--log-level", "debug",
	})
	require.NoError(t, err)

	assert.Equal(t, "/tmp/clip.yaml", opts.configPath)
	assert.Equal(t, "/tmp/clips", opts.storageDir)
	assert.Equal(t, "ffmpeg", opts.capture)
	assert.Equal(t, "debug", opts.logLevel)

	_, err = parseFlags([]string{"--unknown"})
	assert.Error(t, err)
}

func TestLoadConfig_FlagOverrides(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("storage_dir: /from/file\nlogging:\n  level: warn\n"), 0644))

	cfg, err := loadConfig(&options{configPath: path})
	require.NoError(t, err)
	assert.Equal(t, "/from/file", cfg.StorageDir)
	assert.Equal(t, "warn", cfg.Logging.Level)

	cfg, err = loadConfig(&options{configPath: path, storageDir: dir, logLevel: "debug"})
	require.NoError(t, err)
	assert.Equal(t, dir, cfg.StorageDir)
	assert.Equal(t, "debug", cfg.Logging.Level)

	_, err = loadConfig(&options{configPath: path, capture: "webcam"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid capture.backend")
}

func TestSetupLogging_File(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Logging.File = filepath.Join(t.TempDir(), "logs", "app.log")

	closer, err := setupLogging(cfg)
	require.NoError(t, err)
	require.NotNil(t, closer)
	t.Cleanup(func() {
		logger.Configure(os.Stdout, logger.LevelInfo)
		closer.Close()
	})

	logger.NewWithComponent("test").Info("hello")

	data, err := os.ReadFile(cfg.Logging.File)
	require.NoError(t, err)
	assert.Contains(t, string(data), "hello")
}

func TestBuildDevice(t *testing.T) {
	cfg := config.DefaultConfig()

	device := buildDevice(cfg, t.TempDir())
	assert.IsType(t, &capture.SimulatedDevice{}, device)
	assert.True(t, device.HasPermission(context.Background()))

	cfg.Capture.Backend = config.BackendFFmpeg
	assert.IsType(t, &capture.FFmpegDevice{}, buildDevice(cfg, t.TempDir()))
}

func TestBuildBackup_NotConfigured(t *testing.T) {
	settings := models.DefaultApplicationSettings()

	backup := buildBackup(context.Background(), config.DefaultConfig(), settings, logger.NewWithComponent("test"))
	assert.Nil(t, backup)
}
