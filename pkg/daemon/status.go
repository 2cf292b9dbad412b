package daemon

import (
	"sync"
	"time"

	"github.com/charlie0129/handbrake/pkg/calibration"
	"github.com/charlie0129/handbrake/pkg/types"
)

// statusBoard is written by the supervisor goroutine and read by HTTP
// handlers. It is the only state shared between the two.
type statusBoard struct {
	mu sync.RWMutex
	s  types.Status
}

func newStatusBoard() *statusBoard {
	return &statusBoard{s: types.Status{
		Phase:     types.PhaseBoot,
		StartedAt: time.Now(),
	}}
}

// Snapshot returns a copy safe to hand out.
func (b *statusBoard) Snapshot() types.Status {
	if b == nil {
		return types.Status{}
	}

	b.mu.RLock()
	defer b.mu.RUnlock()

	s := b.s
	if s.Session != nil {
		sess := *s.Session
		s.Session = &sess
	}
	return s
}

func (b *statusBoard) setPhase(p types.Phase) types.Phase {
	if b == nil {
		return ""
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	prev := b.s.Phase
	b.s.Phase = p
	return prev
}

func (b *statusBoard) setCalibration(r calibration.Record, loaded bool) {
	if b == nil {
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	b.s.Calibration = r
	b.s.Loaded = loaded
}

func (b *statusBoard) setSession(phase calibration.Phase, p calibration.Progress, lastError string) {
	if b == nil {
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	b.s.Session = &types.SessionStatus{
		Phase:     phase,
		Progress:  p,
		LastError: lastError,
	}
}

func (b *statusBoard) setTick(raw int, axis uint8, pressed bool) {
	if b == nil {
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	b.s.Raw = raw
	b.s.Axis = axis
	b.s.Pressed = pressed
	b.s.Ticks++
}

func (b *statusBoard) addOverrun() {
	if b == nil {
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	b.s.Overruns++
}
