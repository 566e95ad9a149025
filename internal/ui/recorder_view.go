package ui

import (
	"fmt"

	"clip-recorder-app/internal/manager"
	"clip-recorder-app/internal/models"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/theme"
	"fyne.io/fyne/v2/widget"
)

// recorderView is the Record tab: timer, record/stop, facing toggle and
// the blocked state shown while camera access is missing
type recorderView struct {
	content *fyne.Container

	recording *fyne.Container
	blocked   *fyne.Container

	timerLabel  *widget.Label
	facingLabel *widget.Label
	recordBtn   *widget.Button
	flipBtn     *widget.Button
	grantBtn    *widget.Button

	isRecording bool
}

func newRecorderView(mw *MainWindow) *recorderView {
	rv := &recorderView{}

	rv.timerLabel = widget.NewLabel(manager.FormatElapsed(0))
	rv.timerLabel.Alignment = fyne.TextAlignCenter
	rv.timerLabel.TextStyle = fyne.TextStyle{Bold: true, Monospace: true}
	rv.timerLabel.SizeName = theme.SizeNameHeadingText

	rv.facingLabel = widget.NewLabel("")
	rv.facingLabel.Alignment = fyne.TextAlignCenter

	rv.recordBtn = widget.NewButton("Record", func() {
		if rv.isRecording {
			call(mw.OnStopRecording)
		} else {
			call(mw.OnStartRecording)
		}
	})
	rv.recordBtn.Icon = theme.MediaRecordIcon()
	rv.recordBtn.Importance = widget.DangerImportance

	rv.flipBtn = widget.NewButton("Flip Camera", func() { call(mw.OnFlipFacing) })
	rv.flipBtn.Icon = theme.MediaReplayIcon()

	rv.recording = container.NewVBox(
		rv.timerLabel,
		rv.facingLabel,
		container.NewCenter(container.NewHBox(rv.recordBtn, rv.flipBtn)),
	)

	blockedLabel := widget.NewLabel("No access to camera")
	blockedLabel.Alignment = fyne.TextAlignCenter
	blockedLabel.TextStyle = fyne.TextStyle{Bold: true}

	rv.grantBtn = widget.NewButton("Grant Permission", func() { call(mw.OnRequestPermission) })
	rv.grantBtn.Importance = widget.HighImportance

	rv.blocked = container.NewVBox(
		widget.NewIcon(theme.VisibilityOffIcon()),
		blockedLabel,
		container.NewCenter(rv.grantBtn),
	)
	rv.blocked.Hide()

	rv.content = container.NewCenter(container.NewStack(rv.recording, rv.blocked))
	rv.update(models.RecordingSnapshot{Facing: models.FacingBack})
	return rv
}

func (rv *recorderView) update(snapshot models.RecordingSnapshot) {
	rv.isRecording = snapshot.IsRecording
	rv.timerLabel.SetText(manager.FormatElapsed(snapshot.ElapsedSeconds))
	rv.facingLabel.SetText(fmt.Sprintf("Camera: %s", snapshot.Facing))

	if snapshot.IsRecording {
		rv.recordBtn.SetText("Stop")
		rv.recordBtn.SetIcon(theme.MediaStopIcon())
	} else {
		rv.recordBtn.SetText("Record")
		rv.recordBtn.SetIcon(theme.MediaRecordIcon())
	}
}

func (rv *recorderView) setPermission(granted bool) {
	if granted {
		rv.blocked.Hide()
		rv.recording.Show()
	} else {
		rv.recording.Hide()
		rv.blocked.Show()
	}
}
