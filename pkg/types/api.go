package types

import "time"

// PercentRequest is the body of PUT /servos/:name/percent. InMin and InMax
// default to 0 and 1. When both ValueMin and ValueMax are set the input is
// mapped onto them instead of the calibrated range.
type PercentRequest struct {
	In       float64  `json:"in"`
	InMin    *float64 `json:"inMin,omitempty"`
	InMax    *float64 `json:"inMax,omitempty"`
	ValueMin *float64 `json:"valueMin,omitempty"`
	ValueMax *float64 `json:"valueMax,omitempty"`
}

// UniformRequest is the body of POST /servos/:name/calibration/uniform.
type UniformRequest struct {
	Points   int     `json:"points"`
	MinPulse float64 `json:"minPulse"`
	MinValue float64 `json:"minValue"`
	MaxPulse float64 `json:"maxPulse"`
	MaxValue float64 `json:"maxValue"`
}

// LimitsRequest is the body of PUT /servos/:name/limits.
type LimitsRequest struct {
	Lower bool `json:"lower"`
	Upper bool `json:"upper"`
}

// ScheduleStatus is one entry of GET /schedules.
type ScheduleStatus struct {
	Index   int       `json:"index"`
	Cron    string    `json:"cron"`
	Servo   string    `json:"servo"`
	Action  string    `json:"action"`
	Arg     float64   `json:"arg,omitempty"`
	NextRun time.Time `json:"nextRun"`
	Running bool      `json:"running"`
}
