package hid

import (
	"sync"
)

// Memory keeps flushed reports in memory. It backs the simulated daemon and
// tests.
type Memory struct {
	batch

	mu      sync.Mutex
	last    State
	flushes int
	reports []State
}

var _ Transport = &Memory{}

func NewMemory() *Memory {
	return &Memory{}
}

func (m *Memory) Flush() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.flushes++
	if !m.dirty() {
		return nil
	}
	m.last = m.pending
	m.reports = append(m.reports, m.pending)
	m.markSent()
	return nil
}

func (m *Memory) Close() error {
	return nil
}

// Last returns the most recently flushed state.
func (m *Memory) Last() State {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.last
}

// Reports returns every state that was actually sent, in order.
func (m *Memory) Reports() []State {
	m.mu.Lock()
	defer m.mu.Unlock()

	return append([]State(nil), m.reports...)
}

// Flushes returns the number of Flush calls, including those with nothing to
// send.
func (m *Memory) Flushes() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.flushes
}
