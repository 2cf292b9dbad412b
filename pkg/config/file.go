package config

import (
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	pkgerrors "github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/charlie0129/handbrake/pkg/calibration"
	"github.com/charlie0129/handbrake/pkg/utils/ptr"
)

var (
	defaultFileConfig = &RawFileConfig{
		// Raspberry Pi header pin 10. Wire the switch to ground; the pin is
		// pulled up internally.
		ButtonPin:       ptr.To("GPIO15"),
		IndicatorPin:    ptr.To(""),
		I2CBus:          ptr.To(""),
		ADCAddress:      ptr.To(uint16(0x48)),
		ADCChannel:      ptr.To(0),
		CalibrationFile: ptr.To("/var/lib/handbrake/calibration.txt"),
		DefaultMin:      ptr.To(calibration.DefaultRecord.Min),
		DefaultMax:      ptr.To(calibration.DefaultRecord.Max),
		SampleMax:       ptr.To(65535),
		DebounceMs:      ptr.To(500),
		TrackIntervalMs: ptr.To(50),
		LoopIntervalMs:  ptr.To(10),
		HIDDevice:       ptr.To("/dev/hidg0"),
		MQTTBroker:      ptr.To(""),
		MQTTTopic:       ptr.To("handbrake/state"),
		MQTTClientID:    ptr.To("handbrake"),
	}
)

var _ Config = &File{}

type File struct {
	c        *RawFileConfig
	mu       *sync.RWMutex
	filepath string
}

func NewFile(configPath string) (*File, error) {
	f := &File{
		filepath: configPath,
		mu:       &sync.RWMutex{},
	}
	err := f.Load()
	if err != nil {
		return nil, err
	}

	return f, nil
}

func NewFileFromConfig(c *RawFileConfig, configPath string) *File {
	if c == nil {
		c = &RawFileConfig{}
	}

	f := &File{
		c:        c,
		mu:       &sync.RWMutex{},
		filepath: configPath,
	}

	return f
}

// DefaultRawFileConfig returns a fully populated copy of the built-in
// defaults.
func DefaultRawFileConfig() *RawFileConfig {
	c := *defaultFileConfig
	return &c
}

// NewRawFileConfigFromConfig spells out every effective value of c.
func NewRawFileConfigFromConfig(c Config) (*RawFileConfig, error) {
	if c == nil {
		return nil, pkgerrors.New("config is nil")
	}

	def := c.DefaultCalibration()
	rawConfig := &RawFileConfig{
		ButtonPin:       ptr.To(c.ButtonPin()),
		IndicatorPin:    ptr.To(c.IndicatorPin()),
		I2CBus:          ptr.To(c.I2CBus()),
		ADCAddress:      ptr.To(c.ADCAddress()),
		ADCChannel:      ptr.To(c.ADCChannel()),
		CalibrationFile: ptr.To(c.CalibrationFile()),
		DefaultMin:      ptr.To(def.Min),
		DefaultMax:      ptr.To(def.Max),
		SampleMax:       ptr.To(c.SampleMax()),
		DebounceMs:      ptr.To(int(c.Debounce().Milliseconds())),
		TrackIntervalMs: ptr.To(int(c.TrackInterval().Milliseconds())),
		LoopIntervalMs:  ptr.To(int(c.LoopInterval().Milliseconds())),
		HIDDevice:       ptr.To(c.HIDDevice()),
		MQTTBroker:      ptr.To(c.MQTTBroker()),
		MQTTTopic:       ptr.To(c.MQTTTopic()),
		MQTTClientID:    ptr.To(c.MQTTClientID()),
	}

	return rawConfig, nil
}

type RawFileConfig struct {
	ButtonPin       *string `json:"buttonPin,omitempty"`
	IndicatorPin    *string `json:"indicatorPin,omitempty"`
	I2CBus          *string `json:"i2cBus,omitempty"`
	ADCAddress      *uint16 `json:"adcAddress,omitempty"`
	ADCChannel      *int    `json:"adcChannel,omitempty"`
	CalibrationFile *string `json:"calibrationFile,omitempty"`
	DefaultMin      *int    `json:"defaultMin,omitempty"`
	DefaultMax      *int    `json:"defaultMax,omitempty"`
	SampleMax       *int    `json:"sampleMax,omitempty"`
	DebounceMs      *int    `json:"debounceMs,omitempty"`
	TrackIntervalMs *int    `json:"trackIntervalMs,omitempty"`
	LoopIntervalMs  *int    `json:"loopIntervalMs,omitempty"`
	HIDDevice       *string `json:"hidDevice,omitempty"`
	MQTTBroker      *string `json:"mqttBroker,omitempty"`
	MQTTTopic       *string `json:"mqttTopic,omitempty"`
	MQTTClientID    *string `json:"mqttClientId,omitempty"`
}

// get returns the configured value or the built-in default.
func get[T any](f *File, pick func(*RawFileConfig) *T) T {
	if f.c == nil {
		panic("config is nil")
	}

	f.mu.RLock()
	defer f.mu.RUnlock()

	if v := pick(f.c); v != nil {
		return *v
	}
	return *pick(defaultFileConfig)
}

func (f *File) ButtonPin() string {
	return get(f, func(c *RawFileConfig) *string { return c.ButtonPin })
}

func (f *File) IndicatorPin() string {
	return get(f, func(c *RawFileConfig) *string { return c.IndicatorPin })
}

func (f *File) I2CBus() string {
	return get(f, func(c *RawFileConfig) *string { return c.I2CBus })
}

func (f *File) ADCAddress() uint16 {
	return get(f, func(c *RawFileConfig) *uint16 { return c.ADCAddress })
}

func (f *File) ADCChannel() int {
	return get(f, func(c *RawFileConfig) *int { return c.ADCChannel })
}

func (f *File) CalibrationFile() string {
	return get(f, func(c *RawFileConfig) *string { return c.CalibrationFile })
}

func (f *File) DefaultCalibration() calibration.Record {
	return calibration.Record{
		Min: get(f, func(c *RawFileConfig) *int { return c.DefaultMin }),
		Max: get(f, func(c *RawFileConfig) *int { return c.DefaultMax }),
	}
}

func (f *File) SampleMax() int {
	return get(f, func(c *RawFileConfig) *int { return c.SampleMax })
}

func (f *File) Debounce() time.Duration {
	return millis(get(f, func(c *RawFileConfig) *int { return c.DebounceMs }))
}

func (f *File) TrackInterval() time.Duration {
	return millis(get(f, func(c *RawFileConfig) *int { return c.TrackIntervalMs }))
}

func (f *File) LoopInterval() time.Duration {
	return millis(get(f, func(c *RawFileConfig) *int { return c.LoopIntervalMs }))
}

func (f *File) HIDDevice() string {
	return get(f, func(c *RawFileConfig) *string { return c.HIDDevice })
}

func (f *File) MQTTBroker() string {
	return get(f, func(c *RawFileConfig) *string { return c.MQTTBroker })
}

func (f *File) MQTTTopic() string {
	return get(f, func(c *RawFileConfig) *string { return c.MQTTTopic })
}

func (f *File) MQTTClientID() string {
	return get(f, func(c *RawFileConfig) *string { return c.MQTTClientID })
}

func millis(ms int) time.Duration {
	if ms < 0 {
		ms = 0
	}
	return time.Duration(ms) * time.Millisecond
}

func (f *File) Load() error {
	f.mu.Lock()
	defer f.mu.Unlock()

	fp, err := os.Open(f.filepath)
	if err != nil {
		if os.IsNotExist(err) {
			// If the file does not exist, return the empty config.
			// Do not make f.c a nil.
			f.c = &RawFileConfig{}
			return nil
		}
		return pkgerrors.Wrapf(err, "failed to open file %s", f.filepath)
	}
	defer func(fp *os.File) {
		err := fp.Close()
		if err != nil {
			logrus.Warnf("failed to close file %s", f.filepath)
		}
	}(fp)

	// Since we want to tell if the file is empty, using json.Decoder will
	// not work.
	b, err := io.ReadAll(fp)
	if err != nil {
		return pkgerrors.Wrapf(err, "failed to read file %s", f.filepath)
	}

	if strings.TrimSpace(string(b)) == "" {
		f.c = &RawFileConfig{}
		return nil
	}

	conf := RawFileConfig{}
	err = json.Unmarshal(b, &conf)
	if err != nil {
		return pkgerrors.Wrapf(err, "failed to unmarshal config from file %s", f.filepath)
	}
	f.c = &conf

	return nil
}

func (f *File) Save() error {
	f.mu.RLock()
	defer f.mu.RUnlock()

	if f.c == nil {
		return pkgerrors.New("config is nil")
	}

	if err := os.MkdirAll(filepath.Dir(f.filepath), 0755); err != nil {
		return pkgerrors.Wrapf(err, "failed to create directory for %s", f.filepath)
	}

	fp, err := os.OpenFile(f.filepath, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0644)
	if err != nil {
		return pkgerrors.Wrapf(err, "failed to open file %s", f.filepath)
	}
	defer func(fp *os.File) {
		err := fp.Close()
		if err != nil {
			logrus.Warnf("failed to close file %s", f.filepath)
		}
	}(fp)

	enc := json.NewEncoder(fp)
	enc.SetIndent("", "  ")
	err = enc.Encode(f.c)
	if err != nil {
		return pkgerrors.Wrapf(err, "failed to encode config to file %s", f.filepath)
	}

	return nil
}

func (f *File) LogrusFields() logrus.Fields {
	if f.c == nil {
		panic("config is nil")
	}

	return logrus.Fields{
		"buttonPin":       f.ButtonPin(),
		"indicatorPin":    f.IndicatorPin(),
		"i2cBus":          f.I2CBus(),
		"adcAddress":      f.ADCAddress(),
		"adcChannel":      f.ADCChannel(),
		"calibrationFile": f.CalibrationFile(),
		"defaultMin":      f.DefaultCalibration().Min,
		"defaultMax":      f.DefaultCalibration().Max,
		"debounce":        f.Debounce(),
		"loopInterval":    f.LoopInterval(),
		"hidDevice":       f.HIDDevice(),
		"mqttBroker":      f.MQTTBroker(),
	}
}
