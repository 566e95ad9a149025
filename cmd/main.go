package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"fyne.io/fyne/v2"
	fyneapp "fyne.io/fyne/v2/app"
	"github.com/spf13/pflag"

	"clip-recorder-app/internal/app"
	"clip-recorder-app/internal/aws"
	"clip-recorder-app/internal/capture"
	"clip-recorder-app/internal/config"
	"clip-recorder-app/internal/manager"
	"clip-recorder-app/internal/models"
	"clip-recorder-app/internal/storage"
	"clip-recorder-app/internal/ui"
	"clip-recorder-app/pkg/logger"
)

const appID = "com.cliprecorder.app"

// options are the command-line overrides applied on top of the config file
type options struct {
	configPath string
	storageDir string
	capture    string
	logLevel   string
}

func parseFlags(args []string) (*options, error) {
	opts := &options{}

	flags := pflag.NewFlagSet("clip-recorder", pflag.ContinueOnError)
	flags.StringVarP(&opts.configPath, "config", "c", defaultConfigPath(), "path to the YAML config file")
	flags.StringVar(&opts.storageDir, "storage-dir", "", "directory clips are recorded into")
	flags.StringVar(&opts.capture, "capture", "", "capture backend: simulated or ffmpeg")
	flags.StringVar(&opts.logLevel, "log-level", "", "log level: debug, info, warn or error")

	if err := flags.Parse(args); err != nil {
		return nil, err
	}
	return opts, nil
}

func defaultConfigPath() string {
	configDir, err := os.UserConfigDir()
	if err != nil {
		return ""
	}
	return filepath.Join(configDir, "clip-recorder-app", "config.yaml")
}

// loadConfig reads the config file and applies flag overrides
func loadConfig(opts *options) (*config.Config, error) {
	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return nil, err
	}

	if opts.storageDir != "" {
		cfg.StorageDir = opts.storageDir
	}
	if opts.capture != "" {
		cfg.Capture.Backend = opts.capture
	}
	if opts.logLevel != "" {
		cfg.Logging.Level = opts.logLevel
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// setupLogging points pkg/logger at the configured file or stdout; the returned closer may be nil
func setupLogging(cfg *config.Config) (io.Closer, error) {
	level, err := logger.ParseLevel(cfg.Logging.Level)
	if err != nil {
		return nil, err
	}

	if cfg.Logging.File == "" {
		logger.Configure(os.Stdout, level)
		return nil, nil
	}

	if err := os.MkdirAll(filepath.Dir(cfg.Logging.File), 0755); err != nil {
		return nil, fmt.Errorf("failed to create log directory: %w", err)
	}
	file, err := os.OpenFile(cfg.Logging.File, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to open log file: %w", err)
	}
	logger.Configure(file, level)
	return file, nil
}

func buildDevice(cfg *config.Config, storageDir string) capture.Device {
	if cfg.Capture.Backend == config.BackendFFmpeg {
		return capture.NewFFmpegDevice(capture.FFmpegConfig{
			FFmpegPath:  cfg.Capture.FFmpegPath,
			InputFormat: cfg.Capture.InputFormat,
			BackDevice:  cfg.Capture.BackDevice,
			FrontDevice: cfg.Capture.FrontDevice,
			WorkDir:     storageDir,
			StopTimeout: cfg.StopTimeout(),
		})
	}
	return capture.NewSimulatedDevice(cfg.Capture.PermissionGranted, true)
}

// buildBackup connects to S3 when the user enabled backup; nil means backup is unavailable this run
func buildBackup(ctx context.Context, cfg *config.Config, settings *models.ApplicationSettings, log *logger.Logger) manager.BackupManager {
	if !settings.BackupConfigured() {
		return nil
	}

	credProvider, err := aws.NewSecureCredentialProvider(aws.KeyringOptions{
		FileDir:      cfg.Backup.KeyringDir,
		FilePassword: os.Getenv("CLIP_RECORDER_KEYRING_PASSWORD"),
	})
	if err != nil {
		log.WarnWithError("Backup disabled: keyring unavailable", err)
		return nil
	}

	if region, err := credProvider.GetRegion(); err != nil || region != settings.AWSRegion {
		if err := credProvider.SetRegion(settings.AWSRegion); err != nil {
			log.WarnWithError("Failed to store AWS region", err)
		}
	}

	connectCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	s3Service, err := aws.NewS3Service(connectCtx, credProvider, aws.S3Options{
		Bucket:   settings.S3Bucket,
		Endpoint: cfg.Backup.Endpoint,
		Tags:     map[string]string{"app": "clip-recorder"},
	})
	if err != nil {
		log.WarnWithFields("Backup disabled: S3 client unavailable", map[string]interface{}{
			"error":    err.Error(),
			"guidance": aws.GetSetupGuidance(),
		})
		return nil
	}

	return manager.NewBackupManager(s3Service, manager.BackupOptions{KeyPrefix: cfg.Backup.KeyPrefix})
}

func run(args []string) error {
	opts, err := parseFlags(args)
	if err != nil {
		return err
	}

	cfg, err := loadConfig(opts)
	if err != nil {
		return err
	}

	logFile, err := setupLogging(cfg)
	if err != nil {
		return err
	}
	if logFile != nil {
		defer logFile.Close()
	}

	log := logger.NewWithComponent("main")
	log.InfoWithFields("Clip Recorder starting", map[string]interface{}{
		"config":  opts.configPath,
		"capture": cfg.Capture.Backend,
	})

	fs, err := storage.NewLocalFilesystem(cfg.StorageDir)
	if err != nil {
		return fmt.Errorf("failed to open clip directory: %w", err)
	}

	settingsManager := manager.NewSettingsManager(cfg.SettingsPath)
	settings, err := settingsManager.LoadSettings()
	if err != nil {
		log.WarnWithError("Failed to load settings, using defaults", err)
		settings = settingsManager.GetDefaultSettings()
	}

	ctx := context.Background()

	recording := manager.NewRecordingManager(buildDevice(cfg, fs.BaseDir()), fs, manager.RecordingOptions{
		Prefix:        cfg.ClipPrefix,
		Extension:     cfg.ClipExtension,
		InitialFacing: settings.Facing(),
	})
	catalog := manager.NewCatalogManager(fs, manager.CatalogOptions{
		Prefix:    cfg.ClipPrefix,
		Extension: cfg.ClipExtension,
	})

	fyneApp := fyneapp.NewWithID(appID)
	window := ui.NewMainWindow(fyneApp, fyne.NewSize(cfg.Window.Width, cfg.Window.Height))

	opt := app.Options{
		Recording:  recording,
		Catalog:    catalog,
		Settings:   settingsManager,
		Window:     window,
		Confirmer:  window.Confirmer(),
		StorageDir: fs.BaseDir(),
		Backup:     buildBackup(ctx, cfg, settings, log),
	}

	controller := app.NewController(opt)
	if err := controller.Start(); err != nil {
		return fmt.Errorf("failed to start controller: %w", err)
	}

	log.Info("Application UI initialized")
	window.Show()

	controller.Stop()
	log.Info("Clip Recorder stopped")
	return nil
}

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "clip-recorder: %v\n", err)
		os.Exit(1)
	}
}
