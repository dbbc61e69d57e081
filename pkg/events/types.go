package events

import "encoding/json"

// Event name constants
const (
	ServoState         = "servo.state"
	CalibrationChanged = "calibration.changed"
	ScheduleFired      = "schedule.fired"
)

// Event is a generic SSE event from daemon.
type Event struct {
	Name string          // SSE event name
	Data json.RawMessage // Raw JSON payload
}

// ServoStateEvent is the payload of servo.state, sent after every command
// that reached the actuator.
type ServoStateEvent struct {
	Servo   string  `json:"servo"`
	Enabled bool    `json:"enabled"`
	Value   float64 `json:"value"`
	Pulse   float64 `json:"pulse"`
	Level   uint32  `json:"level"`
	Source  string  `json:"source"` // api, idle, schedule, startup
	Ts      int64   `json:"ts"`
}

// CalibrationChangedEvent is the payload of calibration.changed.
type CalibrationChangedEvent struct {
	Servo  string `json:"servo"`
	Points int    `json:"points"`
	Ts     int64  `json:"ts"`
}

// ScheduleFiredEvent is the payload of schedule.fired.
type ScheduleFiredEvent struct {
	Servo  string  `json:"servo"`
	Action string  `json:"action"`
	Arg    float64 `json:"arg,omitempty"`
	Error  string  `json:"error,omitempty"`
	Ts     int64   `json:"ts"`
}

// DecodeAs decodes the event payload into the caller-specified generic type T.
// If Data is empty, it returns the zero value of T with a nil error.
//
// Example:
//
//	payload, err := events.DecodeAs[events.ServoStateEvent](ev)
//	if err != nil { /* handle */ }
//	fmt.Println(payload.Servo, payload.Pulse)
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
