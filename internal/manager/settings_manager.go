package manager

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"sync"
	"time"

	"clip-recorder-app/internal/models"
	"clip-recorder-app/internal/storage"
	"clip-recorder-app/pkg/logger"
)

// SettingsManager interface defines the contract for settings management
type SettingsManager interface {
	LoadSettings() (*models.ApplicationSettings, error)
	SaveSettings(settings *models.ApplicationSettings) error
	GetDefaultSettings() *models.ApplicationSettings
	ValidateSettings(settings *models.ApplicationSettings) error
	ResetToDefaults() error
}

// SettingsManagerImpl implements the SettingsManager interface on a JSON file
type SettingsManagerImpl struct {
	path   string
	mu     sync.Mutex
	logger *logger.Logger
}

// NewSettingsManager creates a new settings manager backed by the file at path
func NewSettingsManager(path string) *SettingsManagerImpl {
	return &SettingsManagerImpl{
		path:   path,
		logger: logger.NewWithComponent("settings_manager"),
	}
}

// Path returns the settings file location
func (sm *SettingsManagerImpl) Path() string {
	return sm.path
}

// LoadSettings loads application settings from disk
func (sm *SettingsManagerImpl) LoadSettings() (*models.ApplicationSettings, error) {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	data, err := os.ReadFile(sm.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			// Defaults are not written until the user saves them
			return models.DefaultApplicationSettings(), nil
		}
		return nil, fmt.Errorf("failed to read settings file: %w", err)
	}

	settings := models.DefaultApplicationSettings()
	if err := settings.FromJSON(string(data)); err != nil {
		return nil, fmt.Errorf("failed to parse settings file: %w", err)
	}

	if err := settings.Validate(); err != nil {
		sm.logger.WarnWithFields("Stored settings are invalid, using defaults", map[string]interface{}{
			"path":  sm.path,
			"error": err.Error(),
		})
		return models.DefaultApplicationSettings(), nil
	}

	return settings, nil
}

// SaveSettings saves application settings to disk
func (sm *SettingsManagerImpl) SaveSettings(settings *models.ApplicationSettings) error {
	if err := settings.ValidateForSave(); err != nil {
		return fmt.Errorf("settings validation failed: %w", err)
	}

	settings.LastUpdated = time.Now()

	settingsJSON, err := settings.ToJSON()
	if err != nil {
		return fmt.Errorf("failed to serialize settings: %w", err)
	}

	sm.mu.Lock()
	defer sm.mu.Unlock()

	if err := storage.WriteFileAtomic(sm.path, []byte(settingsJSON)); err != nil {
		return fmt.Errorf("failed to save settings file: %w", err)
	}

	sm.logger.InfoWithFields("Settings saved", map[string]interface{}{
		"path":           sm.path,
		"backup_enabled": settings.BackupEnabled,
		"auto_refresh":   settings.AutoRefresh,
	})
	return nil
}

// GetDefaultSettings returns the default application settings
func (sm *SettingsManagerImpl) GetDefaultSettings() *models.ApplicationSettings {
	return models.DefaultApplicationSettings()
}

// ValidateSettings validates the provided settings (basic validation)
func (sm *SettingsManagerImpl) ValidateSettings(settings *models.ApplicationSettings) error {
	if settings == nil {
		return fmt.Errorf("settings cannot be nil")
	}

	return settings.Validate()
}

// ResetToDefaults overwrites the settings file with the default values
func (sm *SettingsManagerImpl) ResetToDefaults() error {
	return sm.SaveSettings(models.DefaultApplicationSettings())
}
