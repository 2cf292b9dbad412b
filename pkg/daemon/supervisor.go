package daemon

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/charlie0129/handbrake/pkg/calibration"
	"github.com/charlie0129/handbrake/pkg/events"
	"github.com/charlie0129/handbrake/pkg/hid"
	"github.com/charlie0129/handbrake/pkg/hw"
	"github.com/charlie0129/handbrake/pkg/types"
)

// Supervisor decides at boot whether to calibrate, settles the active
// calibration and hands over to the control loop.
type Supervisor struct {
	Analog    hw.AnalogIn
	Button    hw.Button
	Indicator hw.Indicator
	Transport hid.Transport
	Store     calibration.Store

	// Defaults is the record used when the store has none.
	Defaults      calibration.Record
	Debounce      time.Duration
	TrackInterval time.Duration
	LoopInterval  time.Duration
	SampleMax     int

	Hub *events.EventHub

	status *statusBoard
	sleep  func(time.Duration)
}

// BootResult is the outcome of the boot-time decision.
type BootResult struct {
	Calibration calibration.Record
	// Loaded is false when Calibration is Defaults.
	Loaded bool
	// Calibrated is true if a calibration session ran.
	Calibrated bool
	// SessionErr is the save error of the session, if any. It does not stop
	// the boot.
	SessionErr error
}

func (s *Supervisor) setPhase(p types.Phase) {
	prev := s.status.setPhase(p)
	logrus.WithField("phase", p).Debug("supervisor phase")
	s.Hub.Publish(events.SupervisorPhase, events.SupervisorPhaseEvent{
		From: string(prev),
		To:   string(p),
		Ts:   time.Now().Unix(),
	})
}

// Boot runs once at power-up. If the trigger is held, a calibration session
// runs to completion first. The active calibration is then always read back
// from the store, falling back to Defaults.
func (s *Supervisor) Boot() BootResult {
	sleep := s.sleep
	if sleep == nil {
		sleep = time.Sleep
	}

	var res BootResult

	if s.Button.Pressed() {
		sleep(s.Debounce)
		s.setPhase(types.PhaseCalibrating)

		session := &CalibrationSession{
			Analog:    s.Analog,
			Button:    s.Button,
			Indicator: s.Indicator,
			Store:     s.Store,
			Debounce:  s.Debounce,
			Interval:  s.TrackInterval,
			SampleMax: s.SampleMax,
			Hub:       s.Hub,
			status:    s.status,
			sleep:     sleep,
		}
		rec, err := session.Run()
		res.Calibrated = true
		res.SessionErr = err
		if err != nil {
			logrus.WithError(err).WithFields(rec.LogrusFields()).
				Error("calibration was not saved and will be lost; hold the trigger at power-up to calibrate again")
		}
	}

	res.Calibration, res.Loaded = calibration.LoadOrDefault(s.Store, s.Defaults)
	s.status.setCalibration(res.Calibration, res.Loaded)

	if res.Calibration.Degenerate() {
		logrus.WithFields(res.Calibration.LogrusFields()).Warn("calibration has no range, the axis will stay at 0")
	}

	return res
}

// Run boots and then runs the control loop until ctx is done.
func (s *Supervisor) Run(ctx context.Context) {
	res := s.Boot()

	loop := &ControlLoop{
		Analog:      s.Analog,
		Button:      s.Button,
		Transport:   s.Transport,
		Calibration: res.Calibration,
		Interval:    s.LoopInterval,
		status:      s.status,
	}

	s.setPhase(types.PhaseRunning)
	loop.Run(ctx)
}
