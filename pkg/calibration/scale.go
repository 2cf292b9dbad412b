package calibration

import "math/bits"

// Scale maps a raw sample onto [0, OutputMax] using cal.
//
// The sample is clamped into the calibrated range first, so the result is
// always in bounds. An inverted record is treated as its ordered form and a
// zero-width record yields 0. The quotient is truncated toward zero.
func Scale(raw int, cal Record) uint8 {
	lo, hi := cal.Bounds()
	if hi == lo {
		return 0
	}

	raw = max(lo, min(raw, hi))

	// Unsigned differences stay exact for any pair of ints, and the 128-bit
	// product keeps (raw-lo)*OutputMax from overflowing.
	span := uint64(hi) - uint64(lo)
	offset := uint64(raw) - uint64(lo)
	prodHi, prodLo := bits.Mul64(offset, OutputMax)
	q, _ := bits.Div64(prodHi, prodLo, span)

	return uint8(q)
}
