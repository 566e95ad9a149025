package models

import (
	"fmt"
	"time"
)

// Facing is the camera the capture device records from
type Facing string

const (
	FacingBack  Facing = "back"
	FacingFront Facing = "front"
)

// Opposite returns the other camera
func (f Facing) Opposite() Facing {
	if f == FacingFront {
		return FacingBack
	}
	return FacingFront
}

// ParseFacing converts a settings or config value into a Facing
func ParseFacing(value string) (Facing, error) {
	switch Facing(value) {
	case FacingBack, "":
		return FacingBack, nil
	case FacingFront:
		return FacingFront, nil
	default:
		return FacingBack, fmt.Errorf("invalid facing %q", value)
	}
}

// RecordingSnapshot is a read-only copy of the recording session state
type RecordingSnapshot struct {
	SessionID      string    `json:"session_id,omitempty"`
	IsRecording    bool      `json:"is_recording"`
	ElapsedSeconds int       `json:"elapsed_seconds"`
	Facing         Facing    `json:"facing"`
	StartedAt      time.Time `json:"started_at,omitempty"`
	ClipPath       string    `json:"clip_path,omitempty"`
}

// SessionCompleted is the hand-off event emitted once a clip has been finalized on disk
type SessionCompleted struct {
	SessionID      string    `json:"session_id"`
	ClipID         string    `json:"clip_id"`
	ClipPath       string    `json:"clip_path"`
	StartedAt      time.Time `json:"started_at"`
	ElapsedSeconds int       `json:"elapsed_seconds"`
}
