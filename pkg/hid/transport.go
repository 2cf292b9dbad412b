// Package hid reports the handbrake to the host as a joystick.
//
// A Transport batches axis and button updates in memory; nothing is sent
// until Flush. Implementations only send when the state changed since the
// last successful flush.
package hid

import (
	"errors"
	"fmt"
)

// Axis identifies a joystick axis. Only Z is used by the handbrake.
type Axis int

const (
	AxisZ Axis = iota
)

func (a Axis) String() string {
	switch a {
	case AxisZ:
		return "z"
	default:
		return fmt.Sprintf("axis%d", int(a))
	}
}

// MaxButtons is the width of the button bitmap in a report.
const MaxButtons = 8

// Transport is the host-facing output.
type Transport interface {
	SetAxis(axis Axis, value uint8)
	// SetButton sets a 1-based button.
	SetButton(index int, pressed bool)
	// Flush sends the batched state if it changed.
	Flush() error
	Close() error
}

// State is one joystick report.
type State struct {
	Z       uint8 `json:"z"`
	Buttons uint8 `json:"buttons"`
}

// Pressed reports whether the 1-based button index is set.
func (s State) Pressed(index int) bool {
	if index < 1 || index > MaxButtons {
		return false
	}
	return s.Buttons&(1<<(index-1)) != 0
}

// Unknown axes and out-of-range buttons are ignored.
func (s *State) setAxis(axis Axis, value uint8) {
	if axis == AxisZ {
		s.Z = value
	}
}

func (s *State) setButton(index int, pressed bool) {
	if index < 1 || index > MaxButtons {
		return
	}
	bit := uint8(1) << (index - 1)
	if pressed {
		s.Buttons |= bit
	} else {
		s.Buttons &^= bit
	}
}

// batch tracks pending and last-sent state for Transport implementations.
type batch struct {
	pending State
	sent    State
	hasSent bool
}

func (b *batch) SetAxis(axis Axis, value uint8) {
	b.pending.setAxis(axis, value)
}

func (b *batch) SetButton(index int, pressed bool) {
	b.pending.setButton(index, pressed)
}

// dirty reports whether pending differs from what the host last received.
func (b *batch) dirty() bool {
	return !b.hasSent || b.pending != b.sent
}

func (b *batch) markSent() {
	b.sent = b.pending
	b.hasSent = true
}

type multi []Transport

// Multi fans every call out to all transports.
func Multi(ts ...Transport) Transport {
	return multi(ts)
}

func (m multi) SetAxis(axis Axis, value uint8) {
	for _, t := range m {
		t.SetAxis(axis, value)
	}
}

func (m multi) SetButton(index int, pressed bool) {
	for _, t := range m {
		t.SetButton(index, pressed)
	}
}

func (m multi) Flush() error {
	var errs []error
	for _, t := range m {
		if err := t.Flush(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (m multi) Close() error {
	var errs []error
	for _, t := range m {
		if err := t.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
