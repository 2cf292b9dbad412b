package hw

import (
	"sync"
)

// Mock is an in-memory board. Samples are replayed in order and the last one
// repeats once the script is exhausted.
type Mock struct {
	mu        sync.Mutex
	samples   []int
	next      int
	readErr   error
	pressed   bool
	script    func(reads int) bool
	indicator []bool
	reads     int
}

var (
	_ AnalogIn  = &Mock{}
	_ Button    = &Mock{}
	_ Indicator = &Mock{}
)

// NewMock returns a Mock replaying samples.
func NewMock(samples ...int) *Mock {
	return &Mock{samples: samples}
}

// Board wraps the mock as a Board.
func (m *Mock) Board() *Board {
	return &Board{Analog: m, Button: m, Indicator: m}
}

func (m *Mock) Read() (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.reads++
	if m.readErr != nil {
		return 0, m.readErr
	}
	if len(m.samples) == 0 {
		return 0, nil
	}

	v := m.samples[m.next]
	if m.next < len(m.samples)-1 {
		m.next++
	}
	return v, nil
}

// SetSamples replaces the remaining script.
func (m *Mock) SetSamples(samples ...int) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.samples = samples
	m.next = 0
}

// SetReadError makes every following Read fail with err. nil clears it.
func (m *Mock) SetReadError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.readErr = err
}

// Reads returns the number of Read calls so far.
func (m *Mock) Reads() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.reads
}

func (m *Mock) Pressed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.script != nil {
		return m.script(m.reads)
	}
	return m.pressed
}

// SetPressed holds the button at p and drops any script.
func (m *Mock) SetPressed(p bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.pressed = p
	m.script = nil
}

// SetButtonScript derives the button state from the number of samples read
// so far.
func (m *Mock) SetButtonScript(fn func(reads int) bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.script = fn
}

// PressAfterReads presses the button as soon as n samples have been read.
func (m *Mock) PressAfterReads(n int) {
	m.SetButtonScript(func(reads int) bool { return reads >= n })
}

func (m *Mock) Set(on bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.indicator = append(m.indicator, on)
	return nil
}

// IndicatorHistory returns every level written to the indicator.
func (m *Mock) IndicatorHistory() []bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	return append([]bool(nil), m.indicator...)
}
