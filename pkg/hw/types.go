// Package hw talks to the handbrake hardware: the analog position sensor, the
// trigger button and the optional calibration indicator.
package hw

// SampleMax is the top of the raw sample domain every AnalogIn reports in.
const SampleMax = 65535

// AnalogIn reads the position sensor.
type AnalogIn interface {
	// Read returns a raw sample in [0, SampleMax].
	Read() (int, error)
}

// Button is the trigger input.
type Button interface {
	// Pressed reports the logical state. Active-low wiring is already
	// accounted for.
	Pressed() bool
}

// Indicator is the optional "calibration in progress" output.
type Indicator interface {
	Set(on bool) error
}

// NopIndicator is used when no indicator is wired.
type NopIndicator struct{}

func (NopIndicator) Set(bool) error { return nil }
