package hw

import (
	"fmt"

	pkgerrors "github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/devices/v3/ads1x15"
	"periph.io/x/host/v3"
)

// Options selects the pins and converter a Board is built from.
type Options struct {
	// I2CBus is the bus the ADS1115 is on. Empty selects the first bus.
	I2CBus     string
	ADCAddress uint16
	ADCChannel int
	// ButtonPin is a gpioreg name, e.g. "GPIO15".
	ButtonPin string
	// IndicatorPin is optional.
	IndicatorPin string
	// SampleMax is the top of the raw domain reads are clamped to. Zero
	// selects the package SampleMax.
	SampleMax int
}

// Board is the set of collaborators the daemon runs against.
type Board struct {
	Analog    AnalogIn
	Button    Button
	Indicator Indicator

	closers []func() error
}

// Close releases the underlying devices in reverse order of acquisition.
func (b *Board) Close() error {
	var firstErr error
	for i := len(b.closers) - 1; i >= 0; i-- {
		if err := b.closers[i](); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	b.closers = nil
	return firstErr
}

var adcChannels = []ads1x15.Channel{
	ads1x15.Channel0,
	ads1x15.Channel1,
	ads1x15.Channel2,
	ads1x15.Channel3,
}

// Open initializes periph and acquires the ADC channel and GPIO pins
// described by opts.
func Open(opts Options) (*Board, error) {
	if _, err := host.Init(); err != nil {
		return nil, pkgerrors.Wrap(err, "failed to initialize periph host")
	}

	if opts.ADCChannel < 0 || opts.ADCChannel >= len(adcChannels) {
		return nil, pkgerrors.Errorf("adc channel %d out of range", opts.ADCChannel)
	}

	b := &Board{}

	bus, err := i2creg.Open(opts.I2CBus)
	if err != nil {
		return nil, pkgerrors.Wrapf(err, "failed to open I2C bus %q", opts.I2CBus)
	}
	b.closers = append(b.closers, bus.Close)

	analogIn, err := openADS1115(bus, opts.ADCAddress, adcChannels[opts.ADCChannel], opts.SampleMax)
	if err != nil {
		_ = b.Close()
		return nil, err
	}
	b.Analog = analogIn
	b.closers = append(b.closers, analogIn.pin.Halt)

	btnPin := gpioreg.ByName(opts.ButtonPin)
	if btnPin == nil {
		_ = b.Close()
		return nil, pkgerrors.Errorf("button pin %q not found", opts.ButtonPin)
	}
	if err := btnPin.In(gpio.PullUp, gpio.NoEdge); err != nil {
		_ = b.Close()
		return nil, pkgerrors.Wrapf(err, "failed to configure button pin %s", opts.ButtonPin)
	}
	b.Button = &gpioButton{pin: btnPin}

	b.Indicator = NopIndicator{}
	if opts.IndicatorPin != "" {
		ledPin := gpioreg.ByName(opts.IndicatorPin)
		if ledPin == nil {
			_ = b.Close()
			return nil, pkgerrors.Errorf("indicator pin %q not found", opts.IndicatorPin)
		}
		if err := ledPin.Out(gpio.Low); err != nil {
			_ = b.Close()
			return nil, pkgerrors.Wrapf(err, "failed to configure indicator pin %s", opts.IndicatorPin)
		}
		b.Indicator = &gpioIndicator{pin: ledPin}
		b.closers = append(b.closers, func() error { return ledPin.Out(gpio.Low) })
	}

	logrus.WithFields(logrus.Fields{
		"i2cBus":       bus.String(),
		"adcAddress":   fmt.Sprintf("0x%02X", opts.ADCAddress),
		"adcChannel":   opts.ADCChannel,
		"sampleMax":    analogIn.top,
		"buttonPin":    btnPin.Name(),
		"indicatorPin": opts.IndicatorPin,
	}).Info("hardware initialized")

	return b, nil
}

// ads1115In reads one single-ended channel of an ADS1115.
type ads1115In struct {
	pin ads1x15.PinADC
	top int
}

func openADS1115(bus i2c.Bus, addr uint16, ch ads1x15.Channel, top int) (*ads1115In, error) {
	if top <= 0 || top > SampleMax {
		top = SampleMax
	}

	adc, err := ads1x15.NewADS1115(bus, &ads1x15.Opts{I2cAddress: addr})
	if err != nil {
		return nil, pkgerrors.Wrapf(err, "failed to open ads1115 at 0x%02X", addr)
	}

	// The pot is fed from the 3.3V rail. 860 SPS keeps a single conversion
	// around 1ms, well inside the control loop period.
	pin, err := adc.PinForChannel(ch, 3300*physic.MilliVolt, 860*physic.Hertz, ads1x15.BestQuality)
	if err != nil {
		return nil, pkgerrors.Wrapf(err, "failed to open ads1115 channel %v", ch)
	}

	return &ads1115In{pin: pin, top: top}, nil
}

// Read returns the conversion result rescaled from the 15-bit single-ended
// range of the ADS1115 and clamped to [0, top].
func (a *ads1115In) Read() (int, error) {
	s, err := a.pin.Read()
	if err != nil {
		return 0, pkgerrors.Wrap(err, "failed to read ads1115")
	}
	return rescale(s.Raw, a.top), nil
}

func rescale(raw int32, top int) int {
	return max(0, min(int(raw)<<1, top))
}

type gpioButton struct {
	pin gpio.PinIn
}

// Pressed is true when the pin is pulled low by the switch.
func (b *gpioButton) Pressed() bool {
	return b.pin.Read() == gpio.Low
}

type gpioIndicator struct {
	pin gpio.PinOut
}

func (i *gpioIndicator) Set(on bool) error {
	return i.pin.Out(gpio.Level(on))
}
