package calibration

import "errors"

var (
	// ErrNotFound is returned by Load when no usable record is persisted:
	// the file is missing, unreadable or malformed.
	ErrNotFound = errors.New("calibration not found")

	// ErrWrite is returned by Save when the record could not be persisted.
	// The new calibration will be lost on the next boot.
	ErrWrite = errors.New("failed to write calibration")

	// ErrMalformed is returned by Unmarshal for content that is not exactly
	// two integer lines.
	ErrMalformed = errors.New("malformed calibration record")
)
