package events

import "encoding/json"

// Event name constants
const (
	CalibrationProgress = "calibration.progress"
	CalibrationSaved    = "calibration.saved"
	CalibrationFailed   = "calibration.failed"
	SupervisorPhase     = "supervisor.phase"
)

// Event is a generic SSE event from daemon.
type Event struct {
	Name string          // SSE event name
	Data json.RawMessage // Raw JSON payload
}

// CalibrationProgressEvent is the typed payload for calibration.progress.
type CalibrationProgressEvent struct {
	Raw int   `json:"raw"`
	Min int   `json:"min"`
	Max int   `json:"max"`
	Ts  int64 `json:"ts"`
}

// CalibrationResultEvent is the typed payload for calibration.saved and
// calibration.failed.
type CalibrationResultEvent struct {
	Min     int    `json:"min"`
	Max     int    `json:"max"`
	Message string `json:"message,omitempty"`
	Ts      int64  `json:"ts"`
}

// SupervisorPhaseEvent is the typed payload for supervisor.phase.
type SupervisorPhaseEvent struct {
	From string `json:"from"`
	To   string `json:"to"`
	Ts   int64  `json:"ts"`
}

// DecodeAs decodes the event payload into the caller-specified generic type T.
// It ignores the event name and simply unmarshals Data into T. If Data is empty,
// it returns the zero value of T with a nil error.
//
// Example:
//
//	payload, err := events.DecodeAs[events.SupervisorPhaseEvent](ev)
//	if err != nil { /* handle */ }
//	fmt.Println(payload.From, payload.To)
func DecodeAs[T any](e Event) (T, error) {
	var zero T
	if len(e.Data) == 0 {
		return zero, nil
	}
	var v T
	if err := json.Unmarshal(e.Data, &v); err != nil {
		return zero, err
	}
	return v, nil
}
