package types

import (
	"time"

	"github.com/charlie0129/handbrake/pkg/calibration"
)

// Phase is the top-level state of the daemon.
type Phase string

const (
	PhaseBoot        Phase = "Boot"
	PhaseCalibrating Phase = "Calibrating"
	PhaseRunning     Phase = "Running"
)

// Status is the daemon snapshot served on /status.
// This struct is shared between the daemon and client packages.
type Status struct {
	Phase     Phase     `json:"phase"`
	StartedAt time.Time `json:"startedAt"`

	// Calibration is the record the control loop scales with. Loaded is
	// false when it is the built-in default.
	Calibration calibration.Record `json:"calibration"`
	Loaded      bool               `json:"loaded"`

	// Session is only set while calibrating, or after a session ran this
	// boot.
	Session *SessionStatus `json:"session,omitempty"`

	Raw     int    `json:"raw"`
	Axis    uint8  `json:"axis"`
	Pressed bool   `json:"pressed"`
	Ticks   uint64 `json:"ticks"`
	// Overruns counts ticks that took longer than the loop interval.
	Overruns uint64 `json:"overruns"`
}

// SessionStatus describes the calibration session of this boot.
type SessionStatus struct {
	Phase     calibration.Phase    `json:"phase"`
	Progress  calibration.Progress `json:"progress"`
	LastError string               `json:"lastError,omitempty"`
}

// CalibrationInfo is served on /calibration.
type CalibrationInfo struct {
	Active calibration.Record `json:"active"`
	Loaded bool               `json:"loaded"`
	// Path is the file the record is persisted to.
	Path string `json:"path"`
}
