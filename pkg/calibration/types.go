package calibration

import (
	"fmt"

	"github.com/sirupsen/logrus"
)

// OutputMax is the largest axis value reported to the host.
const OutputMax = 255

// DefaultRecord is used when no calibration has been persisted yet.
var DefaultRecord = Record{Min: 20000, Max: 30000}

// Record is the raw sample range that is mapped onto [0, OutputMax].
//
// Min <= Max is not guaranteed: the record may come from a file edited by
// hand, and Scale tolerates inverted or zero-width ranges.
type Record struct {
	Min int `json:"min"`
	Max int `json:"max"`
}

// Bounds returns the record ordered as lo <= hi.
func (r Record) Bounds() (lo, hi int) {
	if r.Min > r.Max {
		return r.Max, r.Min
	}
	return r.Min, r.Max
}

// Degenerate reports whether the record has no usable dynamic range.
func (r Record) Degenerate() bool {
	return r.Min == r.Max
}

func (r Record) String() string {
	return fmt.Sprintf("%d - %d", r.Min, r.Max)
}

func (r Record) LogrusFields() logrus.Fields {
	return logrus.Fields{
		"min": r.Min,
		"max": r.Max,
	}
}

// Phase defines phases of a calibration session.
type Phase string

const (
	PhaseIdle        Phase = "Idle"
	PhaseTracking    Phase = "Tracking"
	PhaseSaveAndExit Phase = "SaveAndExit"
	PhaseDone        Phase = "Done"
	PhaseError       Phase = "Error"
)

// Progress is reported once per session iteration. It is informational only
// and never drives a transition.
type Progress struct {
	Raw int `json:"raw"`
	Min int `json:"min"`
	Max int `json:"max"`
}
