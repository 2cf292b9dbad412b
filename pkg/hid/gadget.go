package hid

import (
	"errors"
	"io"
	"os"
	"syscall"
	"time"

	pkgerrors "github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// ReportDescriptor describes the report written by Gadget: one 8-bit Z axis
// followed by an 8-button bitmap. Write it to the report_desc attribute of
// the configfs HID function before binding the gadget.
var ReportDescriptor = []byte{
	0x05, 0x01,       // Usage Page (Generic Desktop)
	0x09, 0x04,       // Usage (Joystick)
	0xA1, 0x01,       // Collection (Application)
	0x09, 0x32,       //   Usage (Z)
	0x15, 0x00,       //   Logical Minimum (0)
	0x26, 0xFF, 0x00, //   Logical Maximum (255)
	0x75, 0x08,       //   Report Size (8)
	0x95, 0x01,       //   Report Count (1)
	0x81, 0x02,       //   Input (Data, Variable, Absolute)
	0x05, 0x09,       //   Usage Page (Button)
	0x19, 0x01,       //   Usage Minimum (1)
	0x29, MaxButtons, //   Usage Maximum (8)
	0x15, 0x00,       //   Logical Minimum (0)
	0x25, 0x01,       //   Logical Maximum (1)
	0x75, 0x01,       //   Report Size (1)
	0x95, MaxButtons, //   Report Count (8)
	0x81, 0x02,       //   Input (Data, Variable, Absolute)
	0xC0,             // End Collection
}

// ReportLength is the size of a Gadget report in bytes.
const ReportLength = 2

// Gadget writes reports to a Linux USB gadget HID function (/dev/hidgN).
type Gadget struct {
	batch

	w       io.Writer
	closer  io.Closer
	path    string
	timeout time.Duration
}

var _ Transport = &Gadget{}

// deadliner is implemented by *os.File.
type deadliner interface {
	SetWriteDeadline(t time.Time) error
}

// OpenGadget opens the gadget device. Writes give up after timeout so an
// absent or stalled host never blocks the control loop.
func OpenGadget(path string, timeout time.Duration) (*Gadget, error) {
	f, err := os.OpenFile(path, os.O_WRONLY|syscall.O_NONBLOCK, 0)
	if err != nil {
		return nil, pkgerrors.Wrapf(err, "failed to open HID gadget %s", path)
	}

	logrus.WithField("device", path).Info("HID gadget opened")

	g := NewGadget(f, timeout)
	g.path = path
	g.closer = f
	return g, nil
}

// NewGadget writes reports to w.
func NewGadget(w io.Writer, timeout time.Duration) *Gadget {
	return &Gadget{w: w, timeout: timeout}
}

// Report encodes s as written to the device.
func Report(s State) []byte {
	return []byte{s.Z, s.Buttons}
}

func (g *Gadget) Flush() error {
	if !g.dirty() {
		return nil
	}

	if d, ok := g.w.(deadliner); ok && g.timeout > 0 {
		// Not every file supports deadlines; those just block.
		if err := d.SetWriteDeadline(time.Now().Add(g.timeout)); err != nil && !errors.Is(err, os.ErrNoDeadline) {
			return pkgerrors.Wrap(err, "failed to set write deadline")
		}
	}

	_, err := g.w.Write(Report(g.pending))
	if err != nil {
		return pkgerrors.Wrapf(err, "failed to write HID report to %s", g.path)
	}

	g.markSent()
	return nil
}

func (g *Gadget) Close() error {
	if g.closer == nil {
		return nil
	}
	err := g.closer.Close()
	g.closer = nil
	return err
}
