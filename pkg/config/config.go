package config

import (
	"time"

	"github.com/sirupsen/logrus"
)

// Driver kinds.
const (
	DriverMemory  = "memory"
	DriverMaestro = "maestro"
	DriverSysfs   = "sysfs"
)

// Maestro serial protocols.
const (
	ProtocolCompact = "compact"
	ProtocolPololu  = "pololu"
)

// Scheduled actions.
const (
	ActionValue   = "value"
	ActionPulse   = "pulse"
	ActionPercent = "percent"
	ActionMin     = "min"
	ActionMid     = "mid"
	ActionMax     = "max"
	ActionEnable  = "enable"
	ActionDisable = "disable"
)

type Config interface {
	Driver() DriverConfig
	IdleTimeout() time.Duration
	AllowNonRootAccess() bool
	Servos() []ServoConfig
	Schedules() []ScheduleConfig

	SetIdleTimeout(time.Duration)
	SetAllowNonRootAccess(bool)
	// SetServoCalibration replaces the stored calibration of the named
	// servo.
	SetServoCalibration(name string, c CalibrationConfig) error

	// LogrusFields summarizes the configuration for logging.
	LogrusFields() logrus.Fields

	// Load reads the configuration from the source.
	Load() error
	// Save saves the configuration to the source.
	Save() error
}
