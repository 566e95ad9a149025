package capture

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"clip-recorder-app/internal/models"
	"clip-recorder-app/internal/storage"
	"clip-recorder-app/pkg/logger"
)

// SimulatedDevice records placeholder clips without camera hardware
type SimulatedDevice struct {
	mu             sync.Mutex
	permission     bool
	grantOnRequest bool
	active         map[string]*simulatedCapture
	failBegin      error
	failEnd        error
	failSwitch     error
	now            func() time.Time
	logger         *logger.Logger
}

type simulatedCapture struct {
	handle   *Handle
	switches []models.Facing
}

// NewSimulatedDevice creates a device; grantOnRequest controls whether RequestPermission succeeds
func NewSimulatedDevice(permissionGranted, grantOnRequest bool) *SimulatedDevice {
	return &SimulatedDevice{
		permission:     permissionGranted,
		grantOnRequest: grantOnRequest,
		active:         make(map[string]*simulatedCapture),
		now:            time.Now,
		logger:         logger.NewWithComponent("simulated_camera"),
	}
}

// SetFailures injects errors returned by BeginCapture, EndCapture and SwitchFacing
func (d *SimulatedDevice) SetFailures(begin, end, switchFacing error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.failBegin = begin
	d.failEnd = end
	d.failSwitch = switchFacing
}

// ActiveCaptures returns the number of unfinished captures
func (d *SimulatedDevice) ActiveCaptures() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.active)
}

// HasPermission reports the simulated permission state
func (d *SimulatedDevice) HasPermission(ctx context.Context) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.permission
}

// RequestPermission grants access when the device was created with grantOnRequest
func (d *SimulatedDevice) RequestPermission(ctx context.Context) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	if d.grantOnRequest {
		d.permission = true
	}
	d.logger.InfoWithFields("Camera permission requested", map[string]interface{}{
		"granted": d.permission,
	})
	return d.permission, nil
}

// BeginCapture registers a new in-flight capture
func (d *SimulatedDevice) BeginCapture(ctx context.Context, facing models.Facing) (*Handle, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	if !d.permission {
		return nil, ErrNoPermission
	}
	if d.failBegin != nil {
		return nil, d.failBegin
	}

	handle := &Handle{
		ID:        uuid.New().String(),
		Facing:    facing,
		StartedAt: d.now(),
	}
	d.active[handle.ID] = &simulatedCapture{handle: handle}

	d.logger.DebugWithFields("Simulated capture started", map[string]interface{}{
		"capture_id": handle.ID,
		"facing":     string(facing),
	})
	return handle, nil
}

// SwitchFacing records a camera change for the capture
func (d *SimulatedDevice) SwitchFacing(ctx context.Context, handle *Handle, facing models.Facing) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.failSwitch != nil {
		return d.failSwitch
	}
	capture, ok := d.active[handleID(handle)]
	if !ok {
		return ErrUnknownHandle
	}
	capture.switches = append(capture.switches, facing)
	return nil
}

// EndCapture writes a placeholder clip to destPath atomically
func (d *SimulatedDevice) EndCapture(ctx context.Context, handle *Handle, destPath string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	d.mu.Lock()
	capture, ok := d.active[handleID(handle)]
	if ok {
		delete(d.active, handle.ID)
	}
	failEnd := d.failEnd
	ended := d.now()
	d.mu.Unlock()

	if !ok {
		return ErrUnknownHandle
	}
	if failEnd != nil {
		return failEnd
	}

	current := capture.handle.Facing
	if n := len(capture.switches); n > 0 {
		current = capture.switches[n-1]
	}

	content := fmt.Sprintf("simulated clip\ncapture_id=%s\nfacing=%s\ncurrent=%s\nswitches=%d\nstarted=%s\nended=%s\n",
		capture.handle.ID,
		capture.handle.Facing,
		current,
		len(capture.switches),
		capture.handle.StartedAt.UTC().Format(time.RFC3339Nano),
		ended.UTC().Format(time.RFC3339Nano),
	)
	if err := storage.WriteFileAtomic(destPath, []byte(content)); err != nil {
		return fmt.Errorf("failed to write clip: %w", err)
	}

	d.logger.DebugWithFields("Simulated capture finalized", map[string]interface{}{
		"capture_id": capture.handle.ID,
		"path":       destPath,
	})
	return nil
}

// AbortCapture discards the capture without writing anything
func (d *SimulatedDevice) AbortCapture(handle *Handle) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if _, ok := d.active[handleID(handle)]; !ok {
		return ErrUnknownHandle
	}
	delete(d.active, handle.ID)
	return nil
}

func handleID(handle *Handle) string {
	if handle == nil {
		return ""
	}
	return handle.ID
}
