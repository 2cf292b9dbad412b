package daemon

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/charlie0129/handbrake/pkg/calibration"
	"github.com/charlie0129/handbrake/pkg/hid"
	"github.com/charlie0129/handbrake/pkg/hw"
)

const (
	defaultLoopInterval = 10 * time.Millisecond
	// triggerButton is the joystick button mirroring the trigger.
	triggerButton = 1
	// statusLogInterval bounds how long an unchanged state goes unlogged at
	// debug level.
	statusLogInterval = 10 * time.Second
)

// ControlLoop is the steady state of the device: it samples the sensor,
// scales it with a fixed calibration and reports axis and trigger to the
// host.
type ControlLoop struct {
	Analog    hw.AnalogIn
	Button    hw.Button
	Transport hid.Transport
	// Calibration is fixed for the lifetime of the loop.
	Calibration calibration.Record
	Interval    time.Duration

	status *statusBoard

	lastRaw      int
	readErrors   *throttledLogger
	flushErrors  *throttledLogger
	lastState    hid.State
	lastLogTime  time.Time
	lastOverruns int
}

func (l *ControlLoop) init() {
	if l.readErrors == nil {
		l.readErrors = newThrottledLogger(5 * time.Second)
	}
	if l.flushErrors == nil {
		l.flushErrors = newThrottledLogger(5 * time.Second)
	}
}

// Tick runs one iteration and returns what was sent to the transport.
//
// A failed read repeats the last good sample, so the axis holds its position
// instead of jumping. Transport errors are logged and otherwise ignored.
func (l *ControlLoop) Tick() hid.State {
	l.init()

	raw, err := l.Analog.Read()
	if err != nil {
		l.readErrors.log(logrus.WithError(err), "failed to read analog input")
		raw = l.lastRaw
	} else {
		l.lastRaw = raw
	}

	axis := calibration.Scale(raw, l.Calibration)
	l.Transport.SetAxis(hid.AxisZ, axis)

	pressed := l.Button.Pressed()
	l.Transport.SetButton(triggerButton, pressed)

	if err := l.Transport.Flush(); err != nil {
		l.flushErrors.log(logrus.WithError(err), "failed to send report to host")
	}

	l.status.setTick(raw, axis, pressed)

	var st hid.State
	st.Z = axis
	if pressed {
		st.Buttons = 1 << (triggerButton - 1)
	}
	l.printStatus(raw, st)

	return st
}

// Run ticks at the configured interval until ctx is done. Nothing else stops
// it: the loop is the terminal state of the device.
func (l *ControlLoop) Run(ctx context.Context) {
	interval := l.Interval
	if interval <= 0 {
		interval = defaultLoopInterval
	}

	logrus.WithFields(l.Calibration.LogrusFields()).WithField("interval", interval).Info("control loop started")

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		start := time.Now()
		l.Tick()
		if elapsed := time.Since(start); elapsed > interval {
			l.status.addOverrun()
			l.lastOverruns++
			logrus.WithField("elapsed", elapsed).Trace("control loop tick overran its interval")
		}

		select {
		case <-ctx.Done():
			logrus.Info("control loop stopped")
			return
		case <-ticker.C:
		}
	}
}

// printStatus logs state changes of the trigger at debug level, axis moves at
// trace level, and a debug heartbeat every statusLogInterval.
func (l *ControlLoop) printStatus(raw int, st hid.State) {
	fields := logrus.Fields{
		"raw":      raw,
		"axis":     st.Z,
		"pressed":  st.Pressed(triggerButton),
		"overruns": l.lastOverruns,
	}

	changedButtons := st.Buttons != l.lastState.Buttons
	heartbeat := time.Since(l.lastLogTime) >= statusLogInterval
	l.lastState = st

	if !changedButtons && !heartbeat {
		if logrus.IsLevelEnabled(logrus.TraceLevel) {
			logrus.WithFields(fields).Trace("control loop status")
		}
		return
	}

	logrus.WithFields(fields).Debug("control loop status")
	l.lastLogTime = time.Now()
}
