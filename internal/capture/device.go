// Package capture defines the camera collaborator the recorder drives and
// provides a simulated device and an ffmpeg-backed device.
package capture

import (
	"context"
	"errors"
	"time"

	"clip-recorder-app/internal/models"
)

var (
	// ErrNoPermission is returned when capture is attempted without camera access
	ErrNoPermission = errors.New("camera permission not granted")
	// ErrUnknownHandle is returned when a handle does not belong to an in-flight capture
	ErrUnknownHandle = errors.New("unknown capture handle")
)

// Handle identifies one in-flight capture
type Handle struct {
	ID        string
	Facing    models.Facing
	StartedAt time.Time
}

// Device interface defines the contract for the camera and encoder
type Device interface {
	// HasPermission reports whether the app may use the camera
	HasPermission(ctx context.Context) bool

	// RequestPermission asks for camera access and reports the outcome
	RequestPermission(ctx context.Context) (bool, error)

	// BeginCapture starts recording from the given camera
	BeginCapture(ctx context.Context, facing models.Facing) (*Handle, error)

	// EndCapture stops recording and writes the finished clip to destPath.
	// The file exists at destPath once EndCapture returns nil.
	EndCapture(ctx context.Context, handle *Handle, destPath string) error
}

// FacingSwitcher is implemented by devices that can change camera mid-capture
type FacingSwitcher interface {
	SwitchFacing(ctx context.Context, handle *Handle, facing models.Facing) error
}

// Aborter is implemented by devices that can discard an in-flight capture
type Aborter interface {
	AbortCapture(handle *Handle) error
}
