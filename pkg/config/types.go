package config

import (
	pkgerrors "github.com/pkg/errors"

	"github.com/servokit/servod/pkg/calibration"
	"github.com/servokit/servod/pkg/pwm"
	"github.com/servokit/servod/pkg/utils/ptr"
)

// DriverConfig selects and configures the PWM backend.
type DriverConfig struct {
	Kind string `json:"kind,omitempty"`

	// maestro
	Device       string `json:"device,omitempty"`
	BaudRate     int    `json:"baudRate,omitempty"`
	DeviceNumber uint8  `json:"deviceNumber,omitempty"`
	Protocol     string `json:"protocol,omitempty"`

	// sysfs
	SysfsRoot string `json:"sysfsRoot,omitempty"`
	Chip      int    `json:"chip,omitempty"`

	// memory
	ClockHz uint32 `json:"clockHz,omitempty"`
}

// CalibrationConfig is the stored form of a calibration table. Nil limits
// keep the table's current policy.
type CalibrationConfig struct {
	Points     []calibration.Point `json:"points,omitempty"`
	LimitLower *bool               `json:"limitLower,omitempty"`
	LimitUpper *bool               `json:"limitUpper,omitempty"`
}

// CalibrationFromTable snapshots t.
func CalibrationFromTable(t *calibration.Table) CalibrationConfig {
	return CalibrationConfig{
		Points:     t.Points(),
		LimitLower: ptr.To(t.LimitLower()),
		LimitUpper: ptr.To(t.LimitUpper()),
	}
}

// Validate checks that the points, if any, form a usable table.
func (c CalibrationConfig) Validate() error {
	if len(c.Points) == 0 {
		return nil
	}
	var t calibration.Table
	if err := t.SetPoints(c.Points); err != nil {
		return err
	}
	return t.Validate()
}

// ApplyTo installs c into t. t is left unchanged if c is invalid.
func (c CalibrationConfig) ApplyTo(t *calibration.Table) error {
	if err := c.Validate(); err != nil {
		return err
	}
	if len(c.Points) > 0 {
		if err := t.SetPoints(c.Points); err != nil {
			return err
		}
	}
	t.LimitTo(ptr.Deref(c.LimitLower, t.LimitLower()), ptr.Deref(c.LimitUpper, t.LimitUpper()))
	return nil
}

type ServoConfig struct {
	Name          string             `json:"name"`
	Pin           pwm.Pin            `json:"pin"`
	Type          calibration.Type   `json:"type"`
	EnableOnStart bool               `json:"enableOnStart,omitempty"`
	InitialValue  *float64           `json:"initialValue,omitempty"`
	Calibration   *CalibrationConfig `json:"calibration,omitempty"`
}

// ScheduleConfig runs Action on Servo whenever Cron fires. Arg is used by the
// value, pulse and percent actions.
type ScheduleConfig struct {
	Cron   string  `json:"cron"`
	Servo  string  `json:"servo"`
	Action string  `json:"action"`
	Arg    float64 `json:"arg,omitempty"`
}

func validDriverKind(kind string) bool {
	switch kind {
	case "", DriverMemory, DriverMaestro, DriverSysfs:
		return true
	}
	return false
}

// ValidAction reports whether a is a known scheduled action.
func ValidAction(a string) bool {
	switch a {
	case ActionValue, ActionPulse, ActionPercent, ActionMin, ActionMid, ActionMax, ActionEnable, ActionDisable:
		return true
	}
	return false
}

// Validate checks the parts of the config the daemon cannot start without.
func (r *RawFileConfig) Validate() error {
	if r.Driver != nil {
		if !validDriverKind(r.Driver.Kind) {
			return pkgerrors.Errorf("unknown driver kind %q", r.Driver.Kind)
		}
		if p := r.Driver.Protocol; p != "" && p != ProtocolCompact && p != ProtocolPololu {
			return pkgerrors.Errorf("unknown maestro protocol %q", p)
		}
	}

	names := map[string]bool{}
	for i, s := range r.Servos {
		if s.Name == "" {
			return pkgerrors.Errorf("servo #%d has no name", i)
		}
		if names[s.Name] {
			return pkgerrors.Errorf("duplicate servo name %q", s.Name)
		}
		names[s.Name] = true

		if s.Calibration != nil {
			if err := s.Calibration.Validate(); err != nil {
				return pkgerrors.Wrapf(err, "invalid calibration of servo %s", s.Name)
			}
		}
	}

	for i, s := range r.Schedules {
		if !names[s.Servo] {
			return pkgerrors.Errorf("schedule #%d refers to unknown servo %q", i, s.Servo)
		}
		if !ValidAction(s.Action) {
			return pkgerrors.Errorf("schedule #%d has unknown action %q", i, s.Action)
		}
	}

	return nil
}
