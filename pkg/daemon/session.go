package daemon

import (
	"time"

	"github.com/sirupsen/logrus"

	"github.com/charlie0129/handbrake/pkg/calibration"
	"github.com/charlie0129/handbrake/pkg/events"
	"github.com/charlie0129/handbrake/pkg/hw"
)

const defaultTrackInterval = 50 * time.Millisecond

// CalibrationSession records the raw range swept by the operator until the
// trigger is pressed, then persists it.
//
// The session has a single active phase, Tracking. It blocks until the
// trigger is pressed: there is no timeout and no cancellation.
type CalibrationSession struct {
	Analog    hw.AnalogIn
	Button    hw.Button
	Indicator hw.Indicator
	Store     calibration.Store

	// Debounce is waited out after the trigger reads pressed.
	Debounce time.Duration
	// Interval is the pause between two samples.
	Interval time.Duration
	// SampleMin and SampleMax bound the raw domain. Tracking starts from
	// the inverted bracket {SampleMax, SampleMin}.
	SampleMin int
	SampleMax int

	Hub *events.EventHub

	status *statusBoard
	sleep  func(time.Duration)
	phase  calibration.Phase
}

// Phase returns the current phase.
func (s *CalibrationSession) Phase() calibration.Phase {
	if s.phase == "" {
		return calibration.PhaseIdle
	}
	return s.phase
}

func (s *CalibrationSession) setPhase(p calibration.Phase, progress calibration.Progress, lastError string) {
	s.phase = p
	s.status.setSession(p, progress, lastError)
}

// Run tracks until the trigger is pressed and saves the result. The returned
// record is the one tracked, even if saving it failed; in that case err wraps
// calibration.ErrWrite.
func (s *CalibrationSession) Run() (calibration.Record, error) {
	sleep := s.sleep
	if sleep == nil {
		sleep = time.Sleep
	}
	indicator := s.Indicator
	if indicator == nil {
		indicator = hw.NopIndicator{}
	}
	interval := s.Interval
	if interval <= 0 {
		interval = defaultTrackInterval
	}
	sampleMax := s.SampleMax
	if sampleMax <= s.SampleMin {
		sampleMax = hw.SampleMax
	}

	logrus.Info("entering calibration mode")

	if err := indicator.Set(true); err != nil {
		logrus.WithError(err).Warn("failed to turn on calibration indicator")
	}
	defer func() {
		if err := indicator.Set(false); err != nil {
			logrus.WithError(err).Warn("failed to turn off calibration indicator")
		}
	}()

	progress := calibration.Progress{Min: sampleMax, Max: s.SampleMin}
	s.setPhase(calibration.PhaseTracking, progress, "")

	for {
		raw, err := s.Analog.Read()
		if err != nil {
			logrus.WithError(err).Warn("failed to read analog input during calibration")
		} else {
			prev := progress
			progress.Raw = raw
			progress.Min = min(progress.Min, raw)
			progress.Max = max(progress.Max, raw)
			s.report(progress, progress.Min != prev.Min || progress.Max != prev.Max)
		}

		if s.Button.Pressed() {
			sleep(s.Debounce)
			break
		}

		sleep(interval)
	}

	rec := calibration.Record{Min: progress.Min, Max: progress.Max}
	if rec.Min > rec.Max {
		logrus.Warn("no sample was read during calibration, saving an empty range")
	}
	s.setPhase(calibration.PhaseSaveAndExit, progress, "")
	logrus.WithFields(rec.LogrusFields()).Info("saving calibration")

	if err := s.Store.Save(rec); err != nil {
		s.setPhase(calibration.PhaseError, progress, err.Error())
		s.Hub.Publish(events.CalibrationFailed, events.CalibrationResultEvent{
			Min:     rec.Min,
			Max:     rec.Max,
			Message: err.Error(),
			Ts:      time.Now().Unix(),
		})
		return rec, err
	}

	s.setPhase(calibration.PhaseDone, progress, "")
	s.Hub.Publish(events.CalibrationSaved, events.CalibrationResultEvent{
		Min: rec.Min,
		Max: rec.Max,
		Ts:  time.Now().Unix(),
	})

	return rec, nil
}

// report publishes a sample. Samples that widen the tracked range are logged
// at info level so the sweep shows up in the daemon log.
func (s *CalibrationSession) report(p calibration.Progress, widened bool) {
	entry := logrus.WithFields(logrus.Fields{
		"raw": p.Raw,
		"min": p.Min,
		"max": p.Max,
	})
	if widened {
		entry.Info("calibrating")
	} else {
		entry.Debug("calibrating")
	}

	s.status.setSession(calibration.PhaseTracking, p, "")
	s.Hub.Publish(events.CalibrationProgress, events.CalibrationProgressEvent{
		Raw: p.Raw,
		Min: p.Min,
		Max: p.Max,
		Ts:  time.Now().UnixMilli(),
	})
}
