package capture

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"

	"clip-recorder-app/internal/models"
	"clip-recorder-app/internal/storage"
	"clip-recorder-app/pkg/logger"
)

// FFmpegConfig describes how the ffmpeg backend reaches the cameras
type FFmpegConfig struct {
	FFmpegPath  string        // ffmpeg binary, resolved through PATH when not absolute
	InputFormat string        // ffmpeg input format, e.g. "v4l2"
	BackDevice  string        // device node for the back camera
	FrontDevice string        // device node for the front camera
	WorkDir     string        // directory for in-progress files; must share a filesystem with the clip directory
	StopTimeout time.Duration // how long to wait for ffmpeg to flush after "q"
}

// FFmpegDevice records clips by running ffmpeg against a video device
type FFmpegDevice struct {
	cfg     FFmpegConfig
	mu      sync.Mutex
	active  map[string]*ffmpegCapture
	command func(name string, args ...string) *exec.Cmd
	logger  *logger.Logger
}

type ffmpegCapture struct {
	handle  *Handle
	cmd     *exec.Cmd
	stdin   io.WriteCloser
	stderr  *bytes.Buffer
	tmpPath string
	done    chan error
}

// NewFFmpegDevice creates an ffmpeg-backed device
func NewFFmpegDevice(cfg FFmpegConfig) *FFmpegDevice {
	if cfg.FFmpegPath == "" {
		cfg.FFmpegPath = "ffmpeg"
	}
	if cfg.InputFormat == "" {
		cfg.InputFormat = "v4l2"
	}
	if cfg.StopTimeout <= 0 {
		cfg.StopTimeout = 10 * time.Second
	}

	return &FFmpegDevice{
		cfg:     cfg,
		active:  make(map[string]*ffmpegCapture),
		command: exec.Command,
		logger:  logger.NewWithComponent("ffmpeg_camera"),
	}
}

func (d *FFmpegDevice) devicePath(facing models.Facing) string {
	if facing == models.FacingFront && d.cfg.FrontDevice != "" {
		return d.cfg.FrontDevice
	}
	return d.cfg.BackDevice
}

// HasPermission reports whether the back camera device node can be opened
func (d *FFmpegDevice) HasPermission(ctx context.Context) bool {
	f, err := os.Open(d.devicePath(models.FacingBack))
	if err != nil {
		return false
	}
	_ = f.Close()
	return true
}

// RequestPermission cannot elevate access; it re-checks the device node and explains a failure
func (d *FFmpegDevice) RequestPermission(ctx context.Context) (bool, error) {
	path := d.devicePath(models.FacingBack)
	f, err := os.Open(path)
	if err != nil {
		return false, fmt.Errorf("cannot open camera %s: %w", path, err)
	}
	_ = f.Close()
	return true, nil
}

// BeginCapture spawns ffmpeg writing into a hidden file in WorkDir
func (d *FFmpegDevice) BeginCapture(ctx context.Context, facing models.Facing) (*Handle, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	handle := &Handle{
		ID:        uuid.New().String(),
		Facing:    facing,
		StartedAt: time.Now(),
	}
	// hidden from the catalog until CommitFile renames it into place
	tmpPath := storage.TempPath(filepath.Join(d.cfg.WorkDir, "capture-"+handle.ID+".mp4"))

	// ffmpeg -f v4l2 -i <device> -c:v libx264 -preset veryfast -pix_fmt yuv420p -f mp4 <tmp>
	cmd := d.command(d.cfg.FFmpegPath,
		"-hide_banner",
		"-loglevel", "error",
		"-y",
		"-f", d.cfg.InputFormat,
		"-i", d.devicePath(facing),
		"-c:v", "libx264",
		"-preset", "veryfast",
		"-pix_fmt", "yuv420p",
		"-movflags", "+faststart",
		"-f", "mp4",
		tmpPath,
	)

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, fmt.Errorf("ffmpeg stdin: %w", err)
	}
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("ffmpeg start failed: %w", err)
	}

	capture := &ffmpegCapture{
		handle:  handle,
		cmd:     cmd,
		stdin:   stdin,
		stderr:  &stderr,
		tmpPath: tmpPath,
		done:    make(chan error, 1),
	}
	go func() {
		capture.done <- cmd.Wait()
	}()

	d.mu.Lock()
	d.active[handle.ID] = capture
	d.mu.Unlock()

	d.logger.InfoWithFields("ffmpeg capture started", map[string]interface{}{
		"capture_id": handle.ID,
		"device":     d.devicePath(facing),
		"pid":        cmd.Process.Pid,
	})
	return handle, nil
}

// EndCapture asks ffmpeg to finish, waits for it and moves the file to destPath
func (d *FFmpegDevice) EndCapture(ctx context.Context, handle *Handle, destPath string) error {
	capture, err := d.take(handle)
	if err != nil {
		return err
	}

	if err := d.stop(ctx, capture); err != nil {
		_ = os.Remove(capture.tmpPath)
		return err
	}

	if err := storage.CommitFile(capture.tmpPath, destPath); err != nil {
		_ = os.Remove(capture.tmpPath)
		return fmt.Errorf("failed to move clip into place: %w", err)
	}

	d.logger.InfoWithFields("ffmpeg capture finalized", map[string]interface{}{
		"capture_id": handle.ID,
		"path":       destPath,
	})
	return nil
}

// AbortCapture kills ffmpeg and removes the partial file
func (d *FFmpegDevice) AbortCapture(handle *Handle) error {
	capture, err := d.take(handle)
	if err != nil {
		return err
	}

	_ = capture.stdin.Close()
	if capture.cmd.Process != nil {
		_ = capture.cmd.Process.Kill()
	}
	<-capture.done
	_ = os.Remove(capture.tmpPath)

	d.logger.WarnWithFields("ffmpeg capture aborted", map[string]interface{}{
		"capture_id": handle.ID,
	})
	return nil
}

func (d *FFmpegDevice) take(handle *Handle) (*ffmpegCapture, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	capture, ok := d.active[handleID(handle)]
	if !ok {
		return nil, ErrUnknownHandle
	}
	delete(d.active, handle.ID)
	return capture, nil
}

// stop sends "q" so ffmpeg writes the trailer; it is killed if it does not exit in time
func (d *FFmpegDevice) stop(ctx context.Context, capture *ffmpegCapture) error {
	_, writeErr := io.WriteString(capture.stdin, "q\n")
	_ = capture.stdin.Close()
	if writeErr != nil {
		d.logger.WarnWithError("Failed to send quit to ffmpeg", writeErr)
	}

	timer := time.NewTimer(d.cfg.StopTimeout)
	defer timer.Stop()

	select {
	case err := <-capture.done:
		if err != nil {
			return fmt.Errorf("ffmpeg exited with error: %w\nStderr: %s", err, capture.stderr.String())
		}
		return nil
	case <-timer.C:
		_ = capture.cmd.Process.Kill()
		<-capture.done
		return fmt.Errorf("ffmpeg did not stop within %s", d.cfg.StopTimeout)
	case <-ctx.Done():
		_ = capture.cmd.Process.Kill()
		<-capture.done
		return ctx.Err()
	}
}
