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

// BackupDialog shows the upload progress of one clip backup
type BackupDialog struct {
	window fyne.Window
	dialog *dialog.CustomDialog
	clipID string

	// UI components
	clipLabel   *widget.Label
	stateLabel  *widget.Label
	progressBar *widget.ProgressBar
	closeBtn    *widget.Button
}

// NewBackupDialog creates a backup progress dialog for clip
func NewBackupDialog(parent fyne.Window, clip models.ClipRecord) *BackupDialog {
	d := &BackupDialog{
		window: parent,
		clipID: clip.ID,
	}

	d.setupDialog(clip)
	return d
}

// Show displays the backup dialog
func (d *BackupDialog) Show() {
	d.dialog.Show()
}

// Hide closes the backup dialog
func (d *BackupDialog) Hide() {
	d.dialog.Hide()
}

// SetProgress updates the upload progress; 1.0 marks the backup complete
func (d *BackupDialog) SetProgress(value float64) {
	d.progressBar.SetValue(value)
	if value >= 1.0 {
		d.stateLabel.SetText("Backup complete")
		d.closeBtn.SetText("Done")
		d.closeBtn.Importance = widget.HighImportance
		d.closeBtn.Refresh()
	}
}

func (d *BackupDialog) setupDialog(clip models.ClipRecord) {
	d.clipLabel = widget.NewLabel(fmt.Sprintf("Backing up: %s", clip.DisplayName))
	d.clipLabel.TextStyle = fyne.TextStyle{Bold: true}

	d.stateLabel = widget.NewLabel("Uploading to S3...")
	d.stateLabel.TextStyle = fyne.TextStyle{Italic: true}

	d.progressBar = widget.NewProgressBar()

	d.closeBtn = widget.NewButton("Hide", func() {
		d.Hide()
	})
	d.closeBtn.Icon = theme.CancelIcon()

	content := container.NewVBox(
		d.clipLabel,
		widget.NewSeparator(),
		d.stateLabel,
		d.progressBar,
		widget.NewLabel("The local clip is never modified by a backup."),
		widget.NewSeparator(),
		container.NewHBox(d.closeBtn),
	)

	d.dialog = dialog.NewCustomWithoutButtons("Backup Clip", content, d.window)
	d.dialog.Resize(fyne.NewSize(450, 250))
}
