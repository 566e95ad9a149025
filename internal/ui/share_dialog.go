package ui

import (
	"fmt"
	"time"

	"clip-recorder-app/internal/models"

	"github.com/dustin/go-humanize"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/theme"
	"fyne.io/fyne/v2/widget"
)

// ShareDialog shows a presigned download link for a backed up clip
type ShareDialog struct {
	window    fyne.Window
	dialog    *dialog.CustomDialog
	clipboard fyne.Clipboard

	// UI components
	clipLabel   *widget.Label
	expiryLabel *widget.Label
	linkEntry   *widget.Entry
	copyBtn     *widget.Button
	closeBtn    *widget.Button

	url string
}

// NewShareDialog creates a share dialog for clip
func NewShareDialog(parent fyne.Window, clipboard fyne.Clipboard, clip models.ClipRecord, url string, expiresIn time.Duration) *ShareDialog {
	d := &ShareDialog{
		window:    parent,
		clipboard: clipboard,
		url:       url,
	}

	d.setupDialog(clip, expiresIn)
	return d
}

// Show displays the share dialog
func (d *ShareDialog) Show() {
	d.dialog.Show()
}

// Hide closes the share dialog
func (d *ShareDialog) Hide() {
	d.dialog.Hide()
}

func (d *ShareDialog) setupDialog(clip models.ClipRecord, expiresIn time.Duration) {
	d.clipLabel = widget.NewLabel(fmt.Sprintf("Sharing: %s", clip.DisplayName))
	d.clipLabel.TextStyle = fyne.TextStyle{Bold: true}

	d.expiryLabel = widget.NewLabel(formatLinkExpiry(expiresIn))
	d.expiryLabel.TextStyle = fyne.TextStyle{Italic: true}

	d.linkEntry = widget.NewEntry()
	d.linkEntry.SetText(d.url)

	d.copyBtn = widget.NewButton("Copy Link", d.copyLink)
	d.copyBtn.Icon = theme.ContentCopyIcon()
	d.copyBtn.Importance = widget.HighImportance

	d.closeBtn = widget.NewButton("Close", func() {
		d.Hide()
	})

	content := container.NewVBox(
		d.clipLabel,
		d.expiryLabel,
		widget.NewSeparator(),
		d.linkEntry,
		widget.NewSeparator(),
		container.NewHBox(d.closeBtn, widget.NewSeparator(), d.copyBtn),
	)

	d.dialog = dialog.NewCustomWithoutButtons("Share Clip", content, d.window)
	d.dialog.Resize(fyne.NewSize(550, 250))
}

func (d *ShareDialog) copyLink() {
	if d.clipboard == nil {
		return
	}
	d.clipboard.SetContent(d.url)
	d.copyBtn.SetText("Copied")
}

func formatLinkExpiry(expiresIn time.Duration) string {
	if expiresIn <= 0 {
		return "Link expiry unknown"
	}
	now := time.Now()
	return "Link expires " + humanize.RelTime(now.Add(expiresIn), now, "ago", "from now")
}
