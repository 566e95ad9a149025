package models

import (
	"encoding/json"
	"time"
)

// ApplicationSettings represents user preferences stored locally
type ApplicationSettings struct {
	// Recording
	DefaultFacing string `json:"default_facing"` // "back", "front"

	// Library
	AutoRefresh       bool `json:"auto_refresh"`       // watch the clip folder for changes
	ShowNotifications bool `json:"show_notifications"` // show system notifications

	// UI Settings
	UITheme string `json:"ui_theme"` // "light", "dark", "auto"

	// Backup
	BackupEnabled  bool   `json:"backup_enabled"`
	AutoBackup     bool   `json:"auto_backup"` // upload every new clip after recording
	AWSRegion      string `json:"aws_region"`
	S3Bucket       string `json:"s3_bucket"`
	LinkExpiration string `json:"link_expiration"` // "1h", "1d", "1w"

	// Internal tracking
	LastUpdated time.Time `json:"last_updated"`
}

// DefaultApplicationSettings returns the default application settings
func DefaultApplicationSettings() *ApplicationSettings {
	return &ApplicationSettings{
		DefaultFacing:     string(FacingBack),
		AutoRefresh:       true,
		ShowNotifications: true,
		UITheme:           "auto",
		BackupEnabled:     false,
		AutoBackup:        false,
		AWSRegion:         "us-west-2",
		S3Bucket:          "",
		LinkExpiration:    "1d",
		LastUpdated:       time.Now(),
	}
}

// ToJSON converts settings to a JSON string for the settings file
func (s *ApplicationSettings) ToJSON() (string, error) {
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// FromJSON loads settings from JSON string
func (s *ApplicationSettings) FromJSON(jsonStr string) error {
	return json.Unmarshal([]byte(jsonStr), s)
}

// Facing returns the configured initial camera
func (s *ApplicationSettings) Facing() Facing {
	facing, err := ParseFacing(s.DefaultFacing)
	if err != nil {
		return FacingBack
	}
	return facing
}

// GetLinkExpiration converts the string link expiration to time.Duration
func (s *ApplicationSettings) GetLinkExpiration() time.Duration {
	switch s.LinkExpiration {
	case "1h":
		return time.Hour
	case "1d":
		return 24 * time.Hour
	case "1w":
		return 7 * 24 * time.Hour
	default:
		return 24 * time.Hour
	}
}

// BackupConfigured reports whether clips can be uploaded
func (s *ApplicationSettings) BackupConfigured() bool {
	return s.BackupEnabled && s.S3Bucket != "" && s.AWSRegion != ""
}

// Validate checks if the settings are valid
func (s *ApplicationSettings) Validate() error {
	if _, err := ParseFacing(s.DefaultFacing); err != nil {
		return &ValidationError{Field: "default_facing", Message: "Invalid default camera"}
	}

	validThemes := map[string]bool{
		"light": true, "dark": true, "auto": true,
	}
	if !validThemes[s.UITheme] {
		return &ValidationError{Field: "ui_theme", Message: "Invalid UI theme"}
	}

	validExpirations := map[string]bool{
		"1h": true, "1d": true, "1w": true,
	}
	if !validExpirations[s.LinkExpiration] {
		return &ValidationError{Field: "link_expiration", Message: "Invalid link expiration"}
	}

	return nil
}

// ValidateForSave checks if the settings are valid for saving (stricter validation)
func (s *ApplicationSettings) ValidateForSave() error {
	if s == nil {
		return &ValidationError{Field: "settings", Message: "settings cannot be nil"}
	}

	if err := s.Validate(); err != nil {
		return err
	}

	if s.BackupEnabled {
		if s.AWSRegion == "" {
			return &ValidationError{Field: "aws_region", Message: "AWS region cannot be empty when backup is enabled"}
		}
		if s.S3Bucket == "" {
			return &ValidationError{Field: "s3_bucket", Message: "S3 bucket name cannot be empty when backup is enabled"}
		}
	}

	if s.AutoBackup && !s.BackupEnabled {
		return &ValidationError{Field: "auto_backup", Message: "Automatic backup requires backup to be enabled"}
	}

	return nil
}

// ValidationError represents a settings validation error
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func (e *ValidationError) Error() string {
	return e.Message
}
