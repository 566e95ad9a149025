package ui

import (
	"fmt"

	"clip-recorder-app/internal/models"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/theme"
	"fyne.io/fyne/v2/widget"
)

// SettingsDialog represents the settings configuration dialog
type SettingsDialog struct {
	parent   fyne.Window
	dialog   *dialog.CustomDialog
	settings *models.ApplicationSettings

	// Form widgets
	defaultFacingSelect    *widget.Select
	autoRefreshCheck       *widget.Check
	showNotificationsCheck *widget.Check
	uiThemeSelect          *widget.Select
	backupEnabledCheck     *widget.Check
	autoBackupCheck        *widget.Check
	awsRegionEntry         *widget.Entry
	s3BucketEntry          *widget.Entry
	linkExpirationSelect   *widget.Select

	// Callbacks
	OnSaveSettings func(settings *models.ApplicationSettings) error
	OnLoadSettings func() (*models.ApplicationSettings, error)
	// OnResetSettings persists the defaults and returns what is now stored
	OnResetSettings func() (*models.ApplicationSettings, error)
}

// NewSettingsDialog creates a new settings dialog
func NewSettingsDialog(parent fyne.Window) *SettingsDialog {
	sd := &SettingsDialog{
		parent: parent,
	}

	sd.createDialog()
	return sd
}

// SetCallbacks sets the callback functions for settings operations
func (sd *SettingsDialog) SetCallbacks(
	onSave func(settings *models.ApplicationSettings) error,
	onLoad func() (*models.ApplicationSettings, error),
) {
	sd.OnSaveSettings = onSave
	sd.OnLoadSettings = onLoad
}

// SetOnReset sets the callback run when the user confirms a reset
func (sd *SettingsDialog) SetOnReset(onReset func() (*models.ApplicationSettings, error)) {
	sd.OnResetSettings = onReset
}

// Show displays the settings dialog
func (sd *SettingsDialog) Show() {
	if sd.OnLoadSettings != nil {
		if settings, err := sd.OnLoadSettings(); err == nil {
			sd.settings = settings
		} else {
			sd.settings = models.DefaultApplicationSettings()
			dialog.ShowError(fmt.Errorf("failed to load settings, using defaults: %w", err), sd.parent)
		}
	} else {
		sd.settings = models.DefaultApplicationSettings()
	}
	sd.populateForm()

	sd.dialog.Show()
}

// Hide closes the settings dialog
func (sd *SettingsDialog) Hide() {
	sd.dialog.Hide()
}

func (sd *SettingsDialog) createDialog() {
	sd.createFormWidgets()

	form := sd.createFormLayout()
	buttons := sd.createActionButtons()

	content := container.NewVBox(
		form,
		widget.NewSeparator(),
		buttons,
	)

	sd.dialog = dialog.NewCustom("Application Settings", "Close", container.NewVScroll(content), sd.parent)
	sd.dialog.Resize(fyne.NewSize(500, 600))
}

func (sd *SettingsDialog) createFormWidgets() {
	// Recording
	sd.defaultFacingSelect = widget.NewSelect(
		[]string{string(models.FacingBack), string(models.FacingFront)},
		nil,
	)

	// Library
	sd.autoRefreshCheck = widget.NewCheck("Refresh the library when the clip folder changes", nil)
	sd.showNotificationsCheck = widget.NewCheck("Show system notifications", nil)

	// UI Theme
	sd.uiThemeSelect = widget.NewSelect(
		[]string{"light", "dark", "auto"},
		nil,
	)

	// Backup
	sd.backupEnabledCheck = widget.NewCheck("Enable clip backup to S3", func(enabled bool) {
		if enabled {
			sd.autoBackupCheck.Enable()
		} else {
			sd.autoBackupCheck.SetChecked(false)
			sd.autoBackupCheck.Disable()
		}
	})
	sd.autoBackupCheck = widget.NewCheck("Back up every new clip after recording", nil)

	sd.awsRegionEntry = widget.NewEntry()
	sd.awsRegionEntry.SetPlaceHolder("e.g., us-west-2")

	sd.s3BucketEntry = widget.NewEntry()
	sd.s3BucketEntry.SetPlaceHolder("e.g., my-clip-backups")

	sd.linkExpirationSelect = widget.NewSelect(
		[]string{"1h", "1d", "1w"},
		nil,
	)
}

func (sd *SettingsDialog) createFormLayout() *fyne.Container {
	recordingSection := widget.NewCard("Recording", "",
		container.NewVBox(
			widget.NewForm(widget.NewFormItem("Default Camera", sd.defaultFacingSelect)),
		),
	)

	uiSection := widget.NewCard("User Interface", "",
		container.NewVBox(
			widget.NewForm(widget.NewFormItem("Theme", sd.uiThemeSelect)),
			sd.autoRefreshCheck,
			sd.showNotificationsCheck,
		),
	)

	backupSection := widget.NewCard("Backup", "",
		container.NewVBox(
			sd.backupEnabledCheck,
			sd.autoBackupCheck,
			widget.NewForm(
				widget.NewFormItem("AWS Region", sd.awsRegionEntry),
				widget.NewFormItem("S3 Bucket", sd.s3BucketEntry),
				widget.NewFormItem("Share Links Expire", sd.linkExpirationSelect),
			),
		),
	)

	helpText := widget.NewRichTextFromMarkdown(`
**Backup Help:**
- Clips are copied to the S3 bucket; local clips are never removed by a backup
- Share links are presigned S3 URLs and stop working when they expire

**Note:** Backup changes require application restart to take full effect.
	`)
	helpText.Wrapping = fyne.TextWrapWord

	helpSection := widget.NewCard("Help", "", helpText)

	return container.NewVBox(
		recordingSection,
		uiSection,
		backupSection,
		helpSection,
	)
}

func (sd *SettingsDialog) createActionButtons() *fyne.Container {
	saveBtn := widget.NewButton("Save Settings", sd.saveSettings)
	saveBtn.Importance = widget.HighImportance
	saveBtn.Icon = theme.DocumentSaveIcon()

	resetBtn := widget.NewButton("Reset to Defaults", sd.resetToDefaults)
	resetBtn.Icon = theme.ViewRefreshIcon()

	cancelBtn := widget.NewButton("Cancel", func() {
		sd.Hide()
	})

	return container.NewHBox(
		resetBtn,
		widget.NewSeparator(),
		cancelBtn,
		saveBtn,
	)
}

func (sd *SettingsDialog) populateForm() {
	if sd.settings == nil {
		return
	}

	sd.defaultFacingSelect.SetSelected(string(sd.settings.Facing()))

	sd.uiThemeSelect.SetSelected(sd.settings.UITheme)
	sd.autoRefreshCheck.SetChecked(sd.settings.AutoRefresh)
	sd.showNotificationsCheck.SetChecked(sd.settings.ShowNotifications)

	sd.backupEnabledCheck.SetChecked(sd.settings.BackupEnabled)
	sd.autoBackupCheck.SetChecked(sd.settings.AutoBackup)
	if sd.settings.BackupEnabled {
		sd.autoBackupCheck.Enable()
	} else {
		sd.autoBackupCheck.Disable()
	}
	sd.awsRegionEntry.SetText(sd.settings.AWSRegion)
	sd.s3BucketEntry.SetText(sd.settings.S3Bucket)
	sd.linkExpirationSelect.SetSelected(sd.settings.LinkExpiration)
}

func (sd *SettingsDialog) saveSettings() {
	if err := sd.validateForm(); err != nil {
		dialog.ShowError(err, sd.parent)
		return
	}

	sd.updateSettingsFromForm()

	if err := sd.settings.ValidateForSave(); err != nil {
		dialog.ShowError(err, sd.parent)
		return
	}

	if sd.OnSaveSettings != nil {
		if err := sd.OnSaveSettings(sd.settings); err != nil {
			dialog.ShowError(fmt.Errorf("failed to save settings: %w", err), sd.parent)
			return
		}
	}

	dialog.ShowInformation("Settings Saved",
		"Settings have been saved successfully. Backup changes take effect after a restart.",
		sd.parent)
	sd.Hide()
}

func (sd *SettingsDialog) resetToDefaults() {
	dialog.ShowConfirm("Reset Settings",
		"Are you sure you want to reset all settings to their default values?",
		func(confirmed bool) {
			if confirmed {
				sd.settings = models.DefaultApplicationSettings()
				sd.populateForm()
			}
		}, sd.parent)
}

func (sd *SettingsDialog) validateForm() error {
	if sd.defaultFacingSelect.Selected == "" {
		return fmt.Errorf("please select a default camera")
	}

	if sd.uiThemeSelect.Selected == "" {
		return fmt.Errorf("please select a UI theme")
	}

	if sd.linkExpirationSelect.Selected == "" {
		return fmt.Errorf("please select how long share links stay valid")
	}

	return nil
}

func (sd *SettingsDialog) updateSettingsFromForm() {
	if sd.settings == nil {
		sd.settings = models.DefaultApplicationSettings()
	}

	sd.settings.DefaultFacing = sd.defaultFacingSelect.Selected

	sd.settings.UITheme = sd.uiThemeSelect.Selected
	sd.settings.AutoRefresh = sd.autoRefreshCheck.Checked
	sd.settings.ShowNotifications = sd.showNotificationsCheck.Checked

	sd.settings.BackupEnabled = sd.backupEnabledCheck.Checked
	sd.settings.AutoBackup = sd.autoBackupCheck.Checked
	sd.settings.AWSRegion = sd.awsRegionEntry.Text
	sd.settings.S3Bucket = sd.s3BucketEntry.Text
	sd.settings.LinkExpiration = sd.linkExpirationSelect.Selected
}
