package capture

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"clip-recorder-app/internal/models"
)

func TestSimulatedDevice_Permission(t *testing.T) {
	ctx := context.Background()

	denied := NewSimulatedDevice(false, false)
	assert.False(t, denied.HasPermission(ctx))
	granted, err := denied.RequestPermission(ctx)
	require.NoError(t, err)
	assert.False(t, granted)

	_, err = denied.BeginCapture(ctx, models.FacingBack)
	assert.ErrorIs(t, err, ErrNoPermission)

	prompt := NewSimulatedDevice(false, true)
	granted, err = prompt.RequestPermission(ctx)
	require.NoError(t, err)
	assert.True(t, granted)
	assert.True(t, prompt.HasPermission(ctx))
}

func TestSimulatedDevice_CaptureWritesClip(t *testing.T) {
	ctx := context.Background()
	device := NewSimulatedDevice(true, true)
	dest := filepath.Join(t.TempDir(), "clip_1000.mp4")

	handle, err := device.BeginCapture(ctx, models.FacingFront)
	require.NoError(t, err)
	assert.NotEmpty(t, handle.ID)
	assert.Equal(t, models.FacingFront, handle.Facing)
	assert.Equal(t, 1, device.ActiveCaptures())

	require.NoError(t, device.SwitchFacing(ctx, handle, models.FacingBack))
	require.NoError(t, device.EndCapture(ctx, handle, dest))
	assert.Equal(t, 0, device.ActiveCaptures())

	data, err := os.ReadFile(dest)
	require.NoError(t, err)
	assert.Contains(t, string(data), "facing=front")
	assert.Contains(t, string(data), "switches=1")

	assert.ErrorIs(t, device.EndCapture(ctx, handle, dest), ErrUnknownHandle)
}

func TestSimulatedDevice_InjectedFailures(t *testing.T) {
	ctx := context.Background()
	device := NewSimulatedDevice(true, true)
	dest := filepath.Join(t.TempDir(), "clip_1000.mp4")

	device.SetFailures(errors.New("camera busy"), nil, nil)
	_, err := device.BeginCapture(ctx, models.FacingBack)
	assert.EqualError(t, err, "camera busy")

	device.SetFailures(nil, errors.New("encoder failed"), errors.New("no front camera"))
	handle, err := device.BeginCapture(ctx, models.FacingBack)
	require.NoError(t, err)
	assert.EqualError(t, device.SwitchFacing(ctx, handle, models.FacingFront), "no front camera")
	assert.EqualError(t, device.EndCapture(ctx, handle, dest), "encoder failed")

	_, err = os.Stat(dest)
	assert.True(t, os.IsNotExist(err))
	assert.Equal(t, 0, device.ActiveCaptures())
}

func TestSimulatedDevice_AbortCapture(t *testing.T) {
	ctx := context.Background()
	device := NewSimulatedDevice(true, true)

	handle, err := device.BeginCapture(ctx, models.FacingBack)
	require.NoError(t, err)
	require.NoError(t, device.AbortCapture(handle))
	assert.Equal(t, 0, device.ActiveCaptures())
	assert.ErrorIs(t, device.AbortCapture(handle), ErrUnknownHandle)
	assert.ErrorIs(t, device.AbortCapture(nil), ErrUnknownHandle)
}

func TestSimulatedDevice_Interfaces(t *testing.T) {
	var device Device = NewSimulatedDevice(true, true)
	_, ok := device.(FacingSwitcher)
	assert.True(t, ok)
	_, ok = device.(Aborter)
	assert.True(t, ok)
}
