package ui

import (
	"time"

	"clip-recorder-app/internal/models"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/theme"
	"fyne.io/fyne/v2/widget"
)

// MainWindow represents the main application window
type MainWindow struct {
	app    fyne.App
	window fyne.Window

	tabs       *container.AppTabs
	recordTab  *container.TabItem
	libraryTab *container.TabItem

	// UI components
	statusLabel *widget.Label
	settingsBtn *widget.Button
	recorder    *recorderView
	library     *libraryView

	backupDialog *BackupDialog
	settings     *SettingsDialog
	confirmer    *DialogConfirmer

	// now is used for relative clip ages
	now func() time.Time

	// Callbacks for business logic integration (set by the controller)
	OnStartRecording    func()
	OnStopRecording     func()
	OnFlipFacing        func()
	OnRequestPermission func()
	OnRefreshClips      func()
	OnDeleteClip        func(clip models.ClipRecord)
	OnBackupClip        func(clip models.ClipRecord)
	OnShareClip         func(clip models.ClipRecord)
	OnRemoveBackup      func(clip models.ClipRecord)
	OnSaveSettings      func(settings *models.ApplicationSettings) error
	OnLoadSettings      func() (*models.ApplicationSettings, error)
	OnResetSettings     func() (*models.ApplicationSettings, error)
}

// NewMainWindow creates a new main window
func NewMainWindow(app fyne.App, size fyne.Size) *MainWindow {
	window := app.NewWindow("Clip Recorder")
	if size.Width <= 0 || size.Height <= 0 {
		size = fyne.NewSize(800, 600)
	}
	window.Resize(size)
	window.SetIcon(theme.MediaVideoIcon())

	mw := &MainWindow{
		app:    app,
		window: window,
		now:    time.Now,
	}
	mw.confirmer = NewDialogConfirmer(window)

	mw.setupUI()
	return mw
}

// Window returns the underlying fyne window
func (mw *MainWindow) Window() fyne.Window {
	return mw.window
}

// Show displays the main window and runs the event loop
func (mw *MainWindow) Show() {
	mw.window.ShowAndRun()
}

// Confirmer returns the dialog-backed delete confirmer
func (mw *MainWindow) Confirmer() *DialogConfirmer {
	return mw.confirmer
}

// SetStatus updates the status label
func (mw *MainWindow) SetStatus(status string) {
	mw.statusLabel.SetText(status)
}

// ShowError shows err in an error dialog
func (mw *MainWindow) ShowError(err error) {
	if err == nil {
		return
	}
	dialog.ShowError(err, mw.window)
}

// ApplyTheme switches between the light, dark and system ("auto") themes
func (mw *MainWindow) ApplyTheme(name string) {
	mw.app.Settings().SetTheme(themeFor(name))
}

// Notify sends a desktop notification
func (mw *MainWindow) Notify(title, content string) {
	mw.app.SendNotification(fyne.NewNotification(title, content))
}

// ShowCatalog switches to the Library tab
func (mw *MainWindow) ShowCatalog() {
	mw.tabs.Select(mw.libraryTab)
}

// ShowRecorder switches to the Record tab
func (mw *MainWindow) ShowRecorder() {
	mw.tabs.Select(mw.recordTab)
}

// ActiveTab returns the title of the selected tab
func (mw *MainWindow) ActiveTab() string {
	if selected := mw.tabs.Selected(); selected != nil {
		return selected.Text
	}
	return ""
}

// UpdateRecording renders a recording snapshot
func (mw *MainWindow) UpdateRecording(snapshot models.RecordingSnapshot) {
	mw.recorder.update(snapshot)
}

// SetPermission switches the Record tab between the recorder and the blocked view
func (mw *MainWindow) SetPermission(granted bool) {
	mw.recorder.setPermission(granted)
}

// UpdateCatalog renders the library list
func (mw *MainWindow) UpdateCatalog(state models.CatalogState, clips []models.ClipView) {
	mw.library.update(state, clips)
}

// SetBackupAvailable enables or disables the per-clip backup actions
func (mw *MainWindow) SetBackupAvailable(available bool) {
	mw.library.setBackupAvailable(available)
}

// SetBackupProgress shows upload progress for a clip; 1.0 completes it
func (mw *MainWindow) SetBackupProgress(clip models.ClipRecord, value float64) {
	if mw.backupDialog == nil || mw.backupDialog.clipID != clip.ID {
		mw.backupDialog = NewBackupDialog(mw.window, clip)
		mw.backupDialog.Show()
	}
	mw.backupDialog.SetProgress(value)
}

// BackupFailed closes the progress dialog of a failed backup
func (mw *MainWindow) BackupFailed(clip models.ClipRecord) {
	if mw.backupDialog != nil && mw.backupDialog.clipID == clip.ID {
		mw.backupDialog.Hide()
		mw.backupDialog = nil
	}
}

// ShowShareLink shows a presigned link for a clip
func (mw *MainWindow) ShowShareLink(clip models.ClipRecord, url string, expiresIn time.Duration) {
	NewShareDialog(mw.window, mw.app.Clipboard(), clip, url, expiresIn).Show()
}

// Callback setters used by the application controller

func (mw *MainWindow) SetOnStartRecording(callback func())    { mw.OnStartRecording = callback }
func (mw *MainWindow) SetOnStopRecording(callback func())     { mw.OnStopRecording = callback }
func (mw *MainWindow) SetOnFlipFacing(callback func())        { mw.OnFlipFacing = callback }
func (mw *MainWindow) SetOnRequestPermission(callback func()) { mw.OnRequestPermission = callback }
func (mw *MainWindow) SetOnRefreshClips(callback func())      { mw.OnRefreshClips = callback }

func (mw *MainWindow) SetOnDeleteClip(callback func(models.ClipRecord)) { mw.OnDeleteClip = callback }
func (mw *MainWindow) SetOnBackupClip(callback func(models.ClipRecord)) { mw.OnBackupClip = callback }
func (mw *MainWindow) SetOnShareClip(callback func(models.ClipRecord))  { mw.OnShareClip = callback }

func (mw *MainWindow) SetOnRemoveBackup(callback func(models.ClipRecord)) {
	mw.OnRemoveBackup = callback
}

func (mw *MainWindow) SetOnSaveSettings(callback func(*models.ApplicationSettings) error) {
	mw.OnSaveSettings = callback
}

func (mw *MainWindow) SetOnLoadSettings(callback func() (*models.ApplicationSettings, error)) {
	mw.OnLoadSettings = callback
}

func (mw *MainWindow) SetOnResetSettings(callback func() (*models.ApplicationSettings, error)) {
	mw.OnResetSettings = callback
}

func (mw *MainWindow) setupUI() {
	mw.statusLabel = widget.NewLabel("Ready")
	mw.statusLabel.TextStyle = fyne.TextStyle{Italic: true}

	mw.settingsBtn = widget.NewButton("Settings", mw.showSettingsDialog)
	mw.settingsBtn.Icon = theme.SettingsIcon()

	mw.recorder = newRecorderView(mw)
	mw.library = newLibraryView(mw)

	mw.recordTab = container.NewTabItemWithIcon("Record", theme.MediaRecordIcon(), mw.recorder.content)
	mw.libraryTab = container.NewTabItemWithIcon("Library", theme.ListIcon(), mw.library.content)
	mw.tabs = container.NewAppTabs(mw.recordTab, mw.libraryTab)

	title := widget.NewLabel("Clip Recorder")
	title.TextStyle = fyne.TextStyle{Bold: true}

	content := container.NewBorder(
		// Top
		container.NewVBox(
			container.NewBorder(nil, nil, title, mw.settingsBtn),
			widget.NewSeparator(),
		),
		// Bottom
		mw.statusLabel,
		// Left, Right
		nil, nil,
		// Center
		mw.tabs,
	)
	mw.window.SetContent(content)
}

func (mw *MainWindow) showSettingsDialog() {
	settingsDialog := NewSettingsDialog(mw.window)
	settingsDialog.SetCallbacks(mw.OnSaveSettings, mw.OnLoadSettings)
	settingsDialog.SetOnReset(mw.OnResetSettings)
	settingsDialog.Show()
	mw.settings = settingsDialog
}

func call(callback func()) {
	if callback != nil {
		callback()
	}
}

func callWithClip(callback func(models.ClipRecord), clip models.ClipRecord) {
	if callback != nil {
		callback(clip)
	}
}
