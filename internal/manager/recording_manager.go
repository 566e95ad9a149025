package manager

import (
	"context"
	"fmt"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"

	"clip-recorder-app/internal/capture"
	"clip-recorder-app/internal/clock"
	"clip-recorder-app/internal/models"
	"clip-recorder-app/internal/storage"
	"clip-recorder-app/pkg/errors"
	"clip-recorder-app/pkg/logger"
)

const (
	DefaultClipPrefix    = "clip_"
	DefaultClipExtension = ".mp4"
)

// RecordingManager interface defines the contract for the recording session state machine
type RecordingManager interface {
	// StartRecording moves Idle to Recording; a no-op while already recording
	StartRecording(ctx context.Context) error

	// StopRecording moves Recording to Idle and finalizes the clip; a no-op while idle
	StopRecording(ctx context.Context) (*models.SessionCompleted, error)

	// FlipFacing toggles between the front and back camera
	FlipFacing(ctx context.Context) models.Facing

	// HasPermission reports whether the camera may be used
	HasPermission(ctx context.Context) bool

	// RequestPermission asks the device for camera access
	RequestPermission(ctx context.Context) (bool, error)

	// Snapshot returns a copy of the session state
	Snapshot() models.RecordingSnapshot

	// OnSessionCompleted registers a hand-off listener
	OnSessionCompleted(listener func(models.SessionCompleted))

	// OnTick registers a listener called after every elapsed second
	OnTick(listener func(models.RecordingSnapshot))

	// ActiveTimers returns the number of live tick timers (0 or 1)
	ActiveTimers() int

	// Close cancels the timer and abandons an in-flight capture
	Close()
}

// RecordingOptions configures a RecordingManager
type RecordingOptions struct {
	Prefix        string
	Extension     string
	InitialFacing models.Facing
	Clock         clock.Clock
}

type recordingState int

const (
	stateIdle recordingState = iota
	stateStarting
	stateRecording
	stateStopping
)

func (s recordingState) String() string {
	switch s {
	case stateStarting:
		return "starting"
	case stateRecording:
		return "recording"
	case stateStopping:
		return "stopping"
	default:
		return "idle"
	}
}

// RecordingManagerImpl implements the RecordingManager interface
type RecordingManagerImpl struct {
	device    capture.Device
	fs        storage.Filesystem
	clock     clock.Clock
	prefix    string
	extension string
	logger    *logger.Logger

	mu         sync.Mutex
	state      recordingState
	closed     bool
	sessionID  string
	elapsed    int
	facing     models.Facing
	startedAt  time.Time
	clipPath   string
	handle     *capture.Handle
	ticker     *clock.Ticker
	generation uint64

	completedListeners []func(models.SessionCompleted)
	tickListeners      []func(models.RecordingSnapshot)
}

// NewRecordingManager creates an idle recording manager writing clips into fs.BaseDir()
func NewRecordingManager(device capture.Device, fs storage.Filesystem, opts RecordingOptions) *RecordingManagerImpl {
	if opts.Prefix == "" {
		opts.Prefix = DefaultClipPrefix
	}
	if opts.Extension == "" {
		opts.Extension = DefaultClipExtension
	}
	if opts.InitialFacing == "" {
		opts.InitialFacing = models.FacingBack
	}
	if opts.Clock == nil {
		opts.Clock = clock.Real()
	}

	return &RecordingManagerImpl{
		device:    device,
		fs:        fs,
		clock:     opts.Clock,
		prefix:    opts.Prefix,
		extension: opts.Extension,
		facing:    opts.InitialFacing,
		logger:    logger.NewWithComponent("recording_manager"),
	}
}

// StartRecording begins a capture and the per-second timer
func (rm *RecordingManagerImpl) StartRecording(ctx context.Context) error {
	rm.mu.Lock()
	if rm.closed {
		rm.mu.Unlock()
		return errors.NewAppError(errors.ErrInvalidState, "recording manager is closed", nil)
	}
	if rm.state != stateIdle {
		state := rm.state
		rm.mu.Unlock()
		rm.logger.DebugWithFields("Ignoring start request", map[string]interface{}{
			"state": state.String(),
		})
		return nil
	}
	rm.state = stateStarting
	facing := rm.facing
	rm.mu.Unlock()

	if !rm.device.HasPermission(ctx) {
		rm.setState(stateIdle)
		rm.logger.Warn("Recording blocked: camera permission not granted")
		return errors.NewAppError(errors.ErrPermissionDenied, "camera permission not granted", nil)
	}

	startedAt := rm.clock.Now()
	clipPath := rm.destinationPath(ctx, startedAt)

	handle, err := rm.device.BeginCapture(ctx, facing)
	if err != nil {
		rm.setState(stateIdle)
		rm.logger.ErrorWithOperation("start_recording", "Capture device failed to start", err)
		return errors.NewAppErrorWithContext(errors.ErrCaptureStart, "failed to start capture", err, map[string]interface{}{
			"facing": string(facing),
		})
	}

	rm.mu.Lock()
	if rm.closed {
		rm.state = stateIdle
		rm.mu.Unlock()
		rm.abort(handle)
		return errors.NewAppError(errors.ErrInvalidState, "recording manager is closed", nil)
	}
	rm.state = stateRecording
	rm.sessionID = uuid.New().String()
	rm.elapsed = 0
	rm.startedAt = startedAt
	rm.clipPath = clipPath
	rm.handle = handle
	rm.generation++
	generation := rm.generation
	rm.ticker = rm.clock.TickFunc(time.Second, func() { rm.tick(generation) })
	sessionID := rm.sessionID
	// a flip during BeginCapture only changed rm.facing
	current := rm.facing
	rm.mu.Unlock()

	if current != facing {
		rm.applyFacing(ctx, handle, current)
	}

	rm.logger.InfoWithFields("Recording started", map[string]interface{}{
		"session_id": sessionID,
		"facing":     string(facing),
		"clip_path":  clipPath,
	})
	return nil
}

// StopRecording stops the timer, finalizes the clip and emits the hand-off event once the file exists
func (rm *RecordingManagerImpl) StopRecording(ctx context.Context) (*models.SessionCompleted, error) {
	rm.mu.Lock()
	if rm.state != stateRecording {
		state := rm.state
		rm.mu.Unlock()
		rm.logger.DebugWithFields("Ignoring stop request", map[string]interface{}{
			"state": state.String(),
		})
		return nil, nil
	}
	rm.state = stateStopping
	rm.cancelTickerLocked()
	handle := rm.handle
	rm.handle = nil
	event := models.SessionCompleted{
		SessionID:      rm.sessionID,
		ClipPath:       rm.clipPath,
		ClipID:         filepath.Base(rm.clipPath),
		StartedAt:      rm.startedAt,
		ElapsedSeconds: rm.elapsed,
	}
	rm.mu.Unlock()

	err := rm.device.EndCapture(ctx, handle, event.ClipPath)
	rm.setState(stateIdle)

	if err != nil {
		rm.logger.ErrorWithOperation("stop_recording", "Capture finalization failed", err)
		return nil, errors.NewAppErrorWithContext(errors.ErrCaptureFinalize, "failed to finalize clip", err, map[string]interface{}{
			"session_id": event.SessionID,
			"clip_path":  event.ClipPath,
		})
	}

	rm.logger.InfoWithFields("Recording finalized", map[string]interface{}{
		"session_id":      event.SessionID,
		"clip_id":         event.ClipID,
		"elapsed_seconds": event.ElapsedSeconds,
	})

	for _, listener := range rm.completedListenersSnapshot() {
		listener(event)
	}
	return &event, nil
}

// FlipFacing toggles the camera, applying it live when the device supports switching
func (rm *RecordingManagerImpl) FlipFacing(ctx context.Context) models.Facing {
	rm.mu.Lock()
	rm.facing = rm.facing.Opposite()
	facing := rm.facing
	var handle *capture.Handle
	if rm.state == stateRecording {
		handle = rm.handle
	}
	rm.mu.Unlock()

	if handle != nil {
		rm.applyFacing(ctx, handle, facing)
	}

	return facing
}

// applyFacing asks the device to switch the live capture; failures never stop the session
func (rm *RecordingManagerImpl) applyFacing(ctx context.Context, handle *capture.Handle, facing models.Facing) {
	switcher, ok := rm.device.(capture.FacingSwitcher)
	if !ok {
		rm.logger.DebugWithFields("Device cannot switch camera mid-capture; applies to next recording", map[string]interface{}{
			"facing": string(facing),
		})
		return
	}
	if err := switcher.SwitchFacing(ctx, handle, facing); err != nil {
		rm.logger.WarnWithFields("Camera switch failed during recording", map[string]interface{}{
			"facing": string(facing),
			"error":  err.Error(),
		})
	}
}

// HasPermission reports whether the camera may be used
func (rm *RecordingManagerImpl) HasPermission(ctx context.Context) bool {
	return rm.device.HasPermission(ctx)
}

// RequestPermission asks the device for camera access
func (rm *RecordingManagerImpl) RequestPermission(ctx context.Context) (bool, error) {
	granted, err := rm.device.RequestPermission(ctx)
	if err != nil {
		return false, errors.WrapError(err, errors.ErrPermissionDenied, "camera permission request failed")
	}
	return granted, nil
}

// Snapshot returns a copy of the session state
func (rm *RecordingManagerImpl) Snapshot() models.RecordingSnapshot {
	rm.mu.Lock()
	defer rm.mu.Unlock()
	return rm.snapshotLocked()
}

// OnSessionCompleted registers a hand-off listener
func (rm *RecordingManagerImpl) OnSessionCompleted(listener func(models.SessionCompleted)) {
	rm.mu.Lock()
	defer rm.mu.Unlock()
	rm.completedListeners = append(rm.completedListeners, listener)
}

// OnTick registers a listener called after every elapsed second
func (rm *RecordingManagerImpl) OnTick(listener func(models.RecordingSnapshot)) {
	rm.mu.Lock()
	defer rm.mu.Unlock()
	rm.tickListeners = append(rm.tickListeners, listener)
}

// ActiveTimers returns the number of live tick timers
func (rm *RecordingManagerImpl) ActiveTimers() int {
	rm.mu.Lock()
	defer rm.mu.Unlock()
	if rm.ticker != nil {
		return 1
	}
	return 0
}

// Close tears the session down; a capture in flight is abandoned without a hand-off
func (rm *RecordingManagerImpl) Close() {
	rm.mu.Lock()
	if rm.closed {
		rm.mu.Unlock()
		return
	}
	rm.closed = true
	rm.cancelTickerLocked()
	var handle *capture.Handle
	if rm.state == stateRecording {
		handle = rm.handle
		rm.handle = nil
		rm.state = stateIdle
	}
	rm.mu.Unlock()

	if handle != nil {
		rm.logger.Warn("Recording abandoned on close")
		rm.abort(handle)
	}
}

// FormatElapsed renders seconds as mm:ss; minutes grow past two digits
func FormatElapsed(seconds int) string {
	if seconds < 0 {
		seconds = 0
	}
	return fmt.Sprintf("%02d:%02d", seconds/60, seconds%60)
}

func (rm *RecordingManagerImpl) tick(generation uint64) {
	rm.mu.Lock()
	if rm.state != stateRecording || rm.generation != generation {
		rm.mu.Unlock()
		return
	}
	rm.elapsed++
	snapshot := rm.snapshotLocked()
	listeners := append([]func(models.RecordingSnapshot){}, rm.tickListeners...)
	rm.mu.Unlock()

	for _, listener := range listeners {
		listener(snapshot)
	}
}

func (rm *RecordingManagerImpl) cancelTickerLocked() {
	rm.generation++
	if rm.ticker != nil {
		rm.ticker.Stop()
		rm.ticker = nil
	}
}

func (rm *RecordingManagerImpl) setState(state recordingState) {
	rm.mu.Lock()
	rm.state = state
	rm.mu.Unlock()
}

func (rm *RecordingManagerImpl) snapshotLocked() models.RecordingSnapshot {
	return models.RecordingSnapshot{
		SessionID:      rm.sessionID,
		IsRecording:    rm.state == stateRecording,
		ElapsedSeconds: rm.elapsed,
		Facing:         rm.facing,
		StartedAt:      rm.startedAt,
		ClipPath:       rm.clipPath,
	}
}

func (rm *RecordingManagerImpl) completedListenersSnapshot() []func(models.SessionCompleted) {
	rm.mu.Lock()
	defer rm.mu.Unlock()
	return append([]func(models.SessionCompleted){}, rm.completedListeners...)
}

// destinationPath names the clip after its start instant, bumping the timestamp if the name is taken
func (rm *RecordingManagerImpl) destinationPath(ctx context.Context, startedAt time.Time) string {
	ms := startedAt.UnixMilli()
	for {
		path := filepath.Join(rm.fs.BaseDir(), rm.prefix+strconv.FormatInt(ms, 10)+rm.extension)
		if _, err := rm.fs.Stat(ctx, path); err != nil {
			return path
		}
		ms++
	}
}

func (rm *RecordingManagerImpl) abort(handle *capture.Handle) {
	aborter, ok := rm.device.(capture.Aborter)
	if !ok {
		return
	}
	if err := aborter.AbortCapture(handle); err != nil {
		rm.logger.WarnWithError("Failed to abort capture", err)
	}
}
