package ui

import (
	"clip-recorder-app/internal/models"

	"github.com/dustin/go-humanize"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/theme"
	"fyne.io/fyne/v2/widget"
)

// libraryView is the Library tab listing recorded clips
type libraryView struct {
	mw      *MainWindow
	content *fyne.Container

	clipList     *widget.List
	loadingLabel *widget.Label
	emptyLabel   *widget.Label
	refreshBtn   *widget.Button

	state           models.CatalogState
	clips           []models.ClipView
	backupAvailable bool
}

func newLibraryView(mw *MainWindow) *libraryView {
	lv := &libraryView{mw: mw, state: models.CatalogNotLoaded}

	lv.refreshBtn = widget.NewButton("Refresh", func() { call(mw.OnRefreshClips) })
	lv.refreshBtn.Icon = theme.ViewRefreshIcon()

	lv.clipList = widget.NewList(
		func() int { return len(lv.clips) },
		func() fyne.CanvasObject { return lv.createClipListItem() },
		func(id widget.ListItemID, obj fyne.CanvasObject) { lv.updateClipListItem(id, obj) },
	)

	lv.loadingLabel = widget.NewLabel("Loading clips...")
	lv.loadingLabel.Alignment = fyne.TextAlignCenter
	lv.loadingLabel.TextStyle = fyne.TextStyle{Italic: true}

	lv.emptyLabel = widget.NewLabel("No clips recorded yet")
	lv.emptyLabel.Alignment = fyne.TextAlignCenter
	lv.emptyLabel.TextStyle = fyne.TextStyle{Italic: true}

	header := widget.NewLabel("Your Clips")
	header.TextStyle = fyne.TextStyle{Bold: true}

	lv.content = container.NewBorder(
		container.NewBorder(nil, nil, header, lv.refreshBtn),
		nil, nil, nil,
		container.NewStack(
			lv.clipList,
			container.NewCenter(lv.loadingLabel),
			container.NewCenter(lv.emptyLabel),
		),
	)

	lv.applyState()
	return lv
}

func (lv *libraryView) update(state models.CatalogState, clips []models.ClipView) {
	lv.state = state
	lv.clips = clips
	lv.applyState()
	lv.clipList.Refresh()
}

func (lv *libraryView) setBackupAvailable(available bool) {
	lv.backupAvailable = available
	lv.clipList.Refresh()
}

func (lv *libraryView) applyState() {
	lv.loadingLabel.Hide()
	lv.emptyLabel.Hide()
	lv.clipList.Hide()

	switch lv.state {
	case models.CatalogNotLoaded:
		lv.loadingLabel.Show()
	case models.CatalogEmpty:
		lv.emptyLabel.Show()
	default:
		lv.clipList.Show()
	}
}

func (lv *libraryView) createClipListItem() fyne.CanvasObject {
	icon := widget.NewIcon(theme.MediaVideoIcon())

	nameLabel := widget.NewLabel("clip.mp4")
	nameLabel.TextStyle = fyne.TextStyle{Bold: true}

	sizeLabel := widget.NewLabel("Size")
	dateLabel := widget.NewLabel("Recorded")
	backupLabel := widget.NewLabel("Backup")

	backupBtn := widget.NewButton("Backup", nil)
	backupBtn.Icon = theme.UploadIcon()

	shareBtn := widget.NewButton("Share", nil)
	shareBtn.Icon = theme.MailSendIcon()

	removeBackupBtn := widget.NewButton("Remove backup", nil)
	removeBackupBtn.Icon = theme.ContentRemoveIcon()

	deleteBtn := widget.NewButton("Delete", nil)
	deleteBtn.Icon = theme.DeleteIcon()
	deleteBtn.Importance = widget.DangerImportance

	infoContainer := container.NewVBox(
		nameLabel,
		container.NewHBox(sizeLabel, widget.NewLabel("•"), dateLabel, widget.NewLabel("•"), backupLabel),
	)

	return container.NewBorder(
		nil, nil,
		container.NewHBox(icon, infoContainer),
		container.NewHBox(backupBtn, shareBtn, removeBackupBtn, deleteBtn),
		nil,
	)
}

func (lv *libraryView) updateClipListItem(id widget.ListItemID, obj fyne.CanvasObject) {
	if id >= len(lv.clips) {
		return
	}

	clip := lv.clips[id]
	border := obj.(*fyne.Container)

	leftContainer := border.Objects[0].(*fyne.Container)
	infoContainer := leftContainer.Objects[1].(*fyne.Container)
	actionContainer := border.Objects[1].(*fyne.Container)

	infoContainer.Objects[0].(*widget.Label).SetText(clip.DisplayName)

	detailContainer := infoContainer.Objects[1].(*fyne.Container)
	detailContainer.Objects[0].(*widget.Label).SetText(formatClipSize(clip.SizeBytes))
	detailContainer.Objects[2].(*widget.Label).SetText(lv.formatRecorded(clip.ClipRecord))
	detailContainer.Objects[4].(*widget.Label).SetText(formatBackupStatus(clip.Backup))

	backupBtn := actionContainer.Objects[0].(*widget.Button)
	shareBtn := actionContainer.Objects[1].(*widget.Button)
	removeBackupBtn := actionContainer.Objects[2].(*widget.Button)
	deleteBtn := actionContainer.Objects[3].(*widget.Button)

	record := clip.ClipRecord
	backupBtn.OnTapped = func() { callWithClip(lv.mw.OnBackupClip, record) }
	shareBtn.OnTapped = func() { callWithClip(lv.mw.OnShareClip, record) }
	removeBackupBtn.OnTapped = func() { callWithClip(lv.mw.OnRemoveBackup, record) }
	deleteBtn.OnTapped = func() { callWithClip(lv.mw.OnDeleteClip, record) }

	if lv.backupAvailable && clip.Backup != models.BackupUploading {
		backupBtn.Enable()
	} else {
		backupBtn.Disable()
	}
	if lv.backupAvailable {
		shareBtn.Enable()
	} else {
		shareBtn.Disable()
	}
	if lv.backupAvailable && clip.Backup == models.BackupStored {
		removeBackupBtn.Enable()
	} else {
		removeBackupBtn.Disable()
	}
	deleteBtn.Enable()
}

func (lv *libraryView) formatRecorded(clip models.ClipRecord) string {
	if clip.CreatedAt.IsZero() {
		return clip.CreatedLabel
	}
	return humanize.RelTime(clip.CreatedAt, lv.mw.now(), "ago", "from now")
}

func formatClipSize(bytes int64) string {
	if bytes < 0 {
		return "unknown size"
	}
	return humanize.Bytes(uint64(bytes))
}

func formatBackupStatus(status models.BackupStatus) string {
	switch status {
	case models.BackupStored:
		return "Backed up"
	case models.BackupUploading:
		return "Uploading..."
	case models.BackupMissing:
		return "Not backed up"
	case models.BackupError:
		return "Backup error"
	default:
		return "Local only"
	}
}
