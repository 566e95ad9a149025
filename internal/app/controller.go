package app

import (
	"context"
	"fmt"
	"sync"
	"time"

	"fyne.io/fyne/v2"

	"clip-recorder-app/internal/aws"
	"clip-recorder-app/internal/clock"
	"clip-recorder-app/internal/manager"
	"clip-recorder-app/internal/models"
	"clip-recorder-app/internal/watch"
	"clip-recorder-app/pkg/errors"
	"clip-recorder-app/pkg/logger"
)

// MainWindowInterface defines the interface for main window operations
type MainWindowInterface interface {
	SetStatus(status string)
	ShowError(err error)
	ShowCatalog()
	UpdateRecording(snapshot models.RecordingSnapshot)
	SetPermission(granted bool)
	UpdateCatalog(state models.CatalogState, clips []models.ClipView)
	SetBackupAvailable(available bool)
	SetBackupProgress(clip models.ClipRecord, value float64)
	BackupFailed(clip models.ClipRecord)
	ShowShareLink(clip models.ClipRecord, url string, expiresIn time.Duration)
	ApplyTheme(name string)
	Notify(title, content string)

	// Callback setters
	SetOnStartRecording(callback func())
	SetOnStopRecording(callback func())
	SetOnFlipFacing(callback func())
	SetOnRequestPermission(callback func())
	SetOnRefreshClips(callback func())
	SetOnDeleteClip(callback func(clip models.ClipRecord))
	SetOnBackupClip(callback func(clip models.ClipRecord))
	SetOnShareClip(callback func(clip models.ClipRecord))
	SetOnRemoveBackup(callback func(clip models.ClipRecord))
	SetOnSaveSettings(callback func(settings *models.ApplicationSettings) error)
	SetOnLoadSettings(callback func() (*models.ApplicationSettings, error))
	SetOnResetSettings(callback func() (*models.ApplicationSettings, error))
}

// Options holds the collaborators of a Controller
type Options struct {
	Recording manager.RecordingManager
	Catalog   manager.CatalogManager
	Settings  manager.SettingsManager
	// Backup is nil when clip backup is not configured
	Backup    manager.BackupManager
	Window    MainWindowInterface
	Confirmer manager.DeleteConfirmer

	// StorageDir is watched for changes when auto refresh is on
	StorageDir string
	Clock      clock.Clock

	// Dispatch runs view updates on the UI goroutine; defaults to fyne.Do
	Dispatch func(func())
}

// Controller coordinates between UI and business logic layers
type Controller struct {
	recording manager.RecordingManager
	catalog   manager.CatalogManager
	settings  manager.SettingsManager
	backup    manager.BackupManager

	mainWindow MainWindowInterface
	confirmer  manager.DeleteConfirmer

	storageDir string
	clock      clock.Clock
	dispatch   func(func())
	logger     *logger.Logger

	mu      sync.Mutex
	watcher *watch.DirWatcher

	// recording operations run one at a time in click order
	recMu      sync.Mutex
	recQueue   []func()
	recRunning bool

	// Background context for operations
	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	asyncMu sync.Mutex
	stopped bool
}

// NewController creates a new application controller
func NewController(opts Options) *Controller {
	ctx, cancel := context.WithCancel(context.Background())

	if opts.Clock == nil {
		opts.Clock = clock.Real()
	}
	if opts.Dispatch == nil {
		opts.Dispatch = fyne.Do
	}

	controller := &Controller{
		recording:  opts.Recording,
		catalog:    opts.Catalog,
		settings:   opts.Settings,
		backup:     opts.Backup,
		mainWindow: opts.Window,
		confirmer:  opts.Confirmer,
		storageDir: opts.StorageDir,
		clock:      opts.Clock,
		dispatch:   opts.Dispatch,
		logger:     logger.NewWithComponent("controller"),
		ctx:        ctx,
		cancel:     cancel,
	}

	controller.setupUICallbacks()
	controller.subscribe()

	return controller
}

// Start renders the initial state and loads the library in the background
func (c *Controller) Start() error {
	c.logger.Info("Starting application controller")

	settings := c.loadSettings()

	c.mainWindow.ApplyTheme(settings.UITheme)
	c.mainWindow.SetPermission(c.recording.HasPermission(c.ctx))
	c.mainWindow.UpdateRecording(c.recording.Snapshot())
	c.mainWindow.UpdateCatalog(models.CatalogNotLoaded, nil)
	c.mainWindow.SetBackupAvailable(c.backupConfigured())

	if settings.AutoRefresh {
		if err := c.startWatcher(); err != nil {
			c.logger.WarnWithError("Auto refresh disabled", err)
		}
	}

	c.mainWindow.SetStatus("Loading clips...")
	c.goAsync("initial_load", c.performInitialLoad)

	return nil
}

// Stop gracefully shuts down the controller
func (c *Controller) Stop() {
	c.logger.Info("Stopping application controller")

	c.stopWatcher()

	c.asyncMu.Lock()
	c.stopped = true
	c.cancel()
	c.asyncMu.Unlock()

	c.recording.Close()
	c.wg.Wait()
}

// Wait blocks until every background operation has finished
func (c *Controller) Wait() {
	c.wg.Wait()
}

// setupUICallbacks connects UI callbacks to controller methods
func (c *Controller) setupUICallbacks() {
	c.mainWindow.SetOnStartRecording(c.handleStartRecording)
	c.mainWindow.SetOnStopRecording(c.handleStopRecording)
	c.mainWindow.SetOnFlipFacing(c.handleFlipFacing)
	c.mainWindow.SetOnRequestPermission(c.handleRequestPermission)
	c.mainWindow.SetOnRefreshClips(c.handleRefreshClips)
	c.mainWindow.SetOnDeleteClip(c.handleDeleteClip)
	c.mainWindow.SetOnBackupClip(c.handleBackupClip)
	c.mainWindow.SetOnShareClip(c.handleShareClip)
	c.mainWindow.SetOnRemoveBackup(c.handleRemoveBackup)
	c.mainWindow.SetOnSaveSettings(c.handleSaveSettings)
	c.mainWindow.SetOnLoadSettings(c.handleLoadSettings)
	c.mainWindow.SetOnResetSettings(c.handleResetSettings)
}

// subscribe connects manager events to the window
func (c *Controller) subscribe() {
	c.recording.OnTick(func(snapshot models.RecordingSnapshot) {
		c.dispatch(func() { c.mainWindow.UpdateRecording(snapshot) })
	})

	c.recording.OnSessionCompleted(c.handleSessionCompleted)

	c.catalog.OnChange(func(snapshot models.CatalogSnapshot) {
		if c.backup != nil {
			c.backup.Forget(snapshot.Clips)
		}
		c.publishCatalog(snapshot)
	})
}

func (c *Controller) publishCatalog(snapshot models.CatalogSnapshot) {
	views := c.clipViews(snapshot)
	c.dispatch(func() { c.mainWindow.UpdateCatalog(snapshot.State, views) })
}

func (c *Controller) clipViews(snapshot models.CatalogSnapshot) []models.ClipView {
	views := make([]models.ClipView, len(snapshot.Clips))
	for i, clip := range snapshot.Clips {
		views[i] = models.ClipView{ClipRecord: clip, SizeBytes: -1, Backup: models.BackupUnknown}

		if size, err := c.catalog.SizeOf(c.ctx, clip); err == nil {
			views[i].SizeBytes = size
		}
		if c.backup != nil {
			views[i].Backup = c.backup.Status(clip.ID)
		}
	}
	return views
}

// handleSessionCompleted refreshes the library and shows it; called once per saved clip
func (c *Controller) handleSessionCompleted(event models.SessionCompleted) {
	c.logger.InfoWithFields("Clip recorded", map[string]interface{}{
		"session_id": event.SessionID,
		"clip_id":    event.ClipID,
		"elapsed":    event.ElapsedSeconds,
	})

	if _, err := c.catalog.Refresh(c.ctx); err != nil {
		c.handleError("refresh_after_recording", err)
	}

	c.dispatch(func() {
		c.mainWindow.ShowCatalog()
		c.mainWindow.SetStatus(fmt.Sprintf("Saved %s (%s)", event.ClipID, manager.FormatElapsed(event.ElapsedSeconds)))
	})

	settings := c.loadSettings()
	if settings.ShowNotifications {
		c.dispatch(func() {
			c.mainWindow.Notify("Clip saved", fmt.Sprintf("%s (%s)", event.ClipID, manager.FormatElapsed(event.ElapsedSeconds)))
		})
	}
	if !settings.AutoBackup || !c.backupConfigured() {
		return
	}
	for _, clip := range c.catalog.Snapshot().Clips {
		if clip.ID == event.ClipID {
			c.backupClip(clip)
			return
		}
	}
}

func (c *Controller) handleStartRecording() {
	c.runRecordingOp("start_recording", func() {
		err := c.recording.StartRecording(c.ctx)
		snapshot := c.recording.Snapshot()

		c.dispatch(func() { c.mainWindow.UpdateRecording(snapshot) })
		if err != nil {
			if errors.HasCode(err, errors.ErrPermissionDenied) {
				c.dispatch(func() { c.mainWindow.SetPermission(false) })
			}
			c.handleError("start_recording", err)
			return
		}
		c.setStatus("Recording...")
	})
}

func (c *Controller) handleStopRecording() {
	c.runRecordingOp("stop_recording", func() {
		_, err := c.recording.StopRecording(c.ctx)
		snapshot := c.recording.Snapshot()

		c.dispatch(func() { c.mainWindow.UpdateRecording(snapshot) })
		if err != nil {
			c.handleError("stop_recording", err)
		}
	})
}

func (c *Controller) handleFlipFacing() {
	c.runRecordingOp("flip_facing", func() {
		facing := c.recording.FlipFacing(c.ctx)
		snapshot := c.recording.Snapshot()

		c.dispatch(func() { c.mainWindow.UpdateRecording(snapshot) })
		c.setStatus(fmt.Sprintf("Camera: %s", facing))
	})
}

// runRecordingOp queues fn behind earlier start, stop and flip requests
func (c *Controller) runRecordingOp(operation string, fn func()) {
	c.recMu.Lock()
	c.recQueue = append(c.recQueue, fn)
	if c.recRunning {
		c.recMu.Unlock()
		return
	}
	c.recRunning = true
	c.recMu.Unlock()

	if !c.goAsync(operation, c.drainRecordingOps) {
		c.recMu.Lock()
		c.recQueue = nil
		c.recRunning = false
		c.recMu.Unlock()
	}
}

func (c *Controller) drainRecordingOps() {
	for {
		c.recMu.Lock()
		if len(c.recQueue) == 0 || c.ctx.Err() != nil {
			c.recQueue = nil
			c.recRunning = false
			c.recMu.Unlock()
			return
		}
		fn := c.recQueue[0]
		c.recQueue = c.recQueue[1:]
		c.recMu.Unlock()

		fn()
	}
}

func (c *Controller) handleRequestPermission() {
	c.goAsync("request_permission", func() {
		granted, err := c.recording.RequestPermission(c.ctx)
		c.dispatch(func() { c.mainWindow.SetPermission(granted) })

		switch {
		case err != nil:
			c.handleError("request_permission", err)
		case !granted:
			c.setStatus("Camera access was not granted")
		default:
			c.setStatus("Camera ready")
		}
	})
}

func (c *Controller) handleRefreshClips() {
	c.goAsync("refresh_clips", func() {
		if err := c.refreshClips(); err != nil {
			c.handleError("refresh_clips", err)
			return
		}
		c.setStatus("Library refreshed")
	})
}

func (c *Controller) refreshClips() error {
	clips, err := c.catalog.Refresh(c.ctx)
	if err != nil {
		return err
	}
	c.logger.DebugWithFields("Library refreshed", map[string]interface{}{
		"clips": len(clips),
	})
	return nil
}

func (c *Controller) handleDeleteClip(clip models.ClipRecord) {
	c.goAsync("delete_clip", func() {
		deleted, err := c.catalog.Delete(c.ctx, clip, c.confirmer)
		if err != nil {
			c.handleError("delete_clip", err)
			return
		}
		if deleted {
			c.setStatus(fmt.Sprintf("Deleted %s", clip.DisplayName))
		}
	})
}

func (c *Controller) handleBackupClip(clip models.ClipRecord) {
	c.goAsync("backup_clip", func() {
		c.backupClip(clip)
	})
}

// backupClip uploads one clip, forwarding progress to the window
func (c *Controller) backupClip(clip models.ClipRecord) {
	if !c.backupConfigured() {
		c.handleError("backup_clip", errors.NewAppError(errors.ErrBackupNotConfigured, "backup is not configured", nil))
		return
	}

	progressCh := make(chan aws.UploadProgress, 8)
	forwarded := make(chan struct{})
	go func() {
		defer close(forwarded)
		for progress := range progressCh {
			value := progress.Percentage / 100.0
			c.dispatch(func() { c.mainWindow.SetBackupProgress(clip, value) })
		}
	}()

	c.setStatus(fmt.Sprintf("Backing up %s...", clip.DisplayName))
	c.publishCatalog(c.catalog.Snapshot())

	_, err := c.backup.BackupClip(c.ctx, clip, progressCh)
	close(progressCh)
	<-forwarded

	c.publishCatalog(c.catalog.Snapshot())
	if err != nil {
		c.dispatch(func() { c.mainWindow.BackupFailed(clip) })
		c.handleError("backup_clip", err)
		return
	}

	c.dispatch(func() { c.mainWindow.SetBackupProgress(clip, 1.0) })
	c.setStatus(fmt.Sprintf("Backed up %s", clip.DisplayName))
}

func (c *Controller) handleShareClip(clip models.ClipRecord) {
	c.goAsync("share_clip", func() {
		if !c.backupConfigured() {
			c.handleError("share_clip", errors.NewAppError(errors.ErrBackupNotConfigured, "backup is not configured", nil))
			return
		}

		expiresIn := c.loadSettings().GetLinkExpiration()
		url, err := c.backup.ShareLink(c.ctx, clip, expiresIn)
		if err != nil {
			c.handleError("share_clip", err)
			return
		}

		c.dispatch(func() { c.mainWindow.ShowShareLink(clip, url, expiresIn) })
		c.publishCatalog(c.catalog.Snapshot())
	})
}

func (c *Controller) handleRemoveBackup(clip models.ClipRecord) {
	c.goAsync("remove_backup", func() {
		if !c.backupConfigured() {
			c.handleError("remove_backup", errors.NewAppError(errors.ErrBackupNotConfigured, "backup is not configured", nil))
			return
		}

		err := c.backup.RemoveBackup(c.ctx, clip)
		c.publishCatalog(c.catalog.Snapshot())
		if err != nil {
			c.handleError("remove_backup", err)
			return
		}
		c.setStatus(fmt.Sprintf("Removed backup of %s", clip.DisplayName))
	})
}

// handleSaveSettings persists settings and applies the auto refresh choice
func (c *Controller) handleSaveSettings(settings *models.ApplicationSettings) error {
	if err := c.settings.SaveSettings(settings); err != nil {
		c.logger.ErrorWithError("Failed to save settings", err)
		return errors.WrapError(err, errors.ErrConfigurationError, "failed to save settings")
	}

	c.applySettings(settings)
	c.logger.Info("Settings saved")
	return nil
}

// handleResetSettings stores the defaults and returns them for the settings form
func (c *Controller) handleResetSettings() (*models.ApplicationSettings, error) {
	if err := c.settings.ResetToDefaults(); err != nil {
		c.logger.ErrorWithError("Failed to reset settings", err)
		return nil, errors.WrapError(err, errors.ErrConfigurationError, "failed to reset settings")
	}

	settings := c.loadSettings()
	c.applySettings(settings)
	c.logger.Info("Settings reset to defaults")
	return settings, nil
}

// applySettings applies the parts of settings that take effect without a restart
func (c *Controller) applySettings(settings *models.ApplicationSettings) {
	if settings.AutoRefresh {
		if err := c.startWatcher(); err != nil {
			c.logger.WarnWithError("Auto refresh disabled", err)
		}
	} else {
		c.stopWatcher()
	}
	c.mainWindow.ApplyTheme(settings.UITheme)
}

func (c *Controller) handleLoadSettings() (*models.ApplicationSettings, error) {
	return c.settings.LoadSettings()
}

// performInitialLoad lists the library and, when backup is configured, checks which clips are stored
func (c *Controller) performInitialLoad() {
	if err := c.refreshClips(); err != nil {
		c.handleError("initial_load", err)
		return
	}

	if !c.backupConfigured() {
		c.setStatus("Ready")
		return
	}

	c.setStatus("Checking backups...")
	result, err := c.backup.VerifyBackups(c.ctx, c.catalog.Snapshot().Clips)
	c.publishCatalog(c.catalog.Snapshot())
	if err != nil {
		c.logger.WarnWithError("Backup verification failed", err)
	}

	switch {
	case c.backup.IsOfflineMode():
		c.setStatus("Ready (Offline Mode)")
	case result != nil && len(result.Missing) > 0:
		c.setStatus(fmt.Sprintf("Ready - %d clip(s) not backed up", len(result.Missing)))
	default:
		c.setStatus("Ready")
	}
}

// IsOfflineMode returns true when the backup service is unreachable
func (c *Controller) IsOfflineMode() bool {
	return c.backupConfigured() && c.backup.IsOfflineMode()
}

func (c *Controller) backupConfigured() bool {
	return c.backup != nil && c.backup.Configured()
}

func (c *Controller) loadSettings() *models.ApplicationSettings {
	settings, err := c.settings.LoadSettings()
	if err != nil {
		c.logger.WarnWithError("Failed to load settings, using defaults", err)
		return c.settings.GetDefaultSettings()
	}
	return settings
}

func (c *Controller) startWatcher() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.watcher != nil || c.storageDir == "" {
		return nil
	}

	watcher, err := watch.NewDirWatcher(c.storageDir, watch.DefaultDebounce, c.clock, func() {
		c.goAsync("auto_refresh", func() {
			if err := c.refreshClips(); err != nil {
				c.logger.WarnWithError("Auto refresh failed", err)
			}
		})
	})
	if err != nil {
		return err
	}
	if err := watcher.Start(); err != nil {
		_ = watcher.Close()
		return err
	}

	c.watcher = watcher
	return nil
}

func (c *Controller) stopWatcher() {
	c.mu.Lock()
	watcher := c.watcher
	c.watcher = nil
	c.mu.Unlock()

	if watcher != nil {
		if err := watcher.Close(); err != nil {
			c.logger.WarnWithError("Failed to close directory watcher", err)
		}
	}
}

// goAsync runs fn off the UI goroutine; it reports false once Stop has begun
func (c *Controller) goAsync(operation string, fn func()) bool {
	c.asyncMu.Lock()
	defer c.asyncMu.Unlock()

	if c.stopped {
		c.logger.DebugWithFields("Ignoring operation after shutdown", map[string]interface{}{
			"operation": operation,
		})
		return false
	}

	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		fn()
	}()
	return true
}

func (c *Controller) setStatus(status string) {
	c.dispatch(func() { c.mainWindow.SetStatus(status) })
}

// handleError logs err and surfaces it in the status line and an error dialog
func (c *Controller) handleError(operation string, err error) {
	if err == nil {
		return
	}

	appErr := errors.ClassifyError(err)

	c.logger.ErrorWithFields("Operation failed", map[string]interface{}{
		"operation":        operation,
		"error_code":       string(appErr.Code),
		"user_message":     appErr.GetUserMessage(),
		"suggested_action": appErr.GetSuggestedAction(),
		"recoverable":      appErr.IsRecoverable(),
	})

	if errors.IsCanceled(err) && c.ctx.Err() != nil {
		return
	}

	status := fmt.Sprintf("Error: %s", appErr.GetUserMessage())
	if action := appErr.GetSuggestedAction(); action != "" {
		status += " " + action + "."
	}

	c.dispatch(func() {
		c.mainWindow.SetStatus(status)
		c.mainWindow.ShowError(appErr)
	})
}
