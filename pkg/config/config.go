package config

import (
	"time"

	"github.com/sirupsen/logrus"

	"github.com/charlie0129/handbrake/pkg/calibration"
)

// Config is the deployment configuration of a handbrake device. It is read
// once at startup; nothing here changes while the daemon runs.
type Config interface {
	// Pins.
	ButtonPin() string
	IndicatorPin() string
	I2CBus() string
	ADCAddress() uint16
	ADCChannel() int

	// Calibration.
	CalibrationFile() string
	DefaultCalibration() calibration.Record
	SampleMax() int

	// Timing.
	Debounce() time.Duration
	TrackInterval() time.Duration
	LoopInterval() time.Duration

	// Output.
	HIDDevice() string
	MQTTBroker() string
	MQTTTopic() string
	MQTTClientID() string

	LogrusFields() logrus.Fields

	// Load reads the configuration from the source.
	Load() error
	// Save saves the configuration to the source.
	Save() error
}
