package calibration

import (
	"strconv"
	"strings"

	pkgerrors "github.com/pkg/errors"
)

// Marshal encodes r as "<min>\n<max>\n".
func Marshal(r Record) []byte {
	b := make([]byte, 0, 24)
	b = strconv.AppendInt(b, int64(r.Min), 10)
	b = append(b, '\n')
	b = strconv.AppendInt(b, int64(r.Max), 10)
	b = append(b, '\n')
	return b
}

// Unmarshal decodes a record written by Marshal.
//
// Whitespace around a number and a missing final newline are accepted.
// Anything other than exactly two integer lines is ErrMalformed.
func Unmarshal(b []byte) (Record, error) {
	s := strings.TrimRight(string(b), "\r\n")
	lines := strings.Split(s, "\n")
	if len(lines) != 2 {
		return Record{}, pkgerrors.Wrapf(ErrMalformed, "expected 2 lines, got %d", len(lines))
	}

	minVal, err := strconv.Atoi(strings.TrimSpace(lines[0]))
	if err != nil {
		return Record{}, pkgerrors.Wrapf(ErrMalformed, "min: %v", err)
	}
	maxVal, err := strconv.Atoi(strings.TrimSpace(lines[1]))
	if err != nil {
		return Record{}, pkgerrors.Wrapf(ErrMalformed, "max: %v", err)
	}

	return Record{Min: minVal, Max: maxVal}, nil
}
