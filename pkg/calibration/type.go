package calibration

import (
	"strings"

	pkgerrors "github.com/pkg/errors"
)

// Type selects the default calibration of a servo.
type Type uint8

const (
	// Angular servos span -90..+90 degrees.
	Angular Type = iota
	// Linear servos span 0..1.
	Linear
	// Continuous rotation servos span -1..+1 speed.
	Continuous
)

const (
	DefaultMinPulse    = 500.0  // in microseconds
	DefaultMidPulse    = 1500.0 // in microseconds
	DefaultMaxPulse    = 2500.0 // in microseconds
	DefaultValueExtent = 90.0   // a range of -90 to +90
)

func (t Type) String() string {
	switch t {
	case Angular:
		return "angular"
	case Linear:
		return "linear"
	case Continuous:
		return "continuous"
	}
	return "unsupported"
}

// ParseType converts a type name into a Type. An empty name is Angular.
func ParseType(s string) (Type, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "angular":
		return Angular, nil
	case "linear":
		return Linear, nil
	case "continuous":
		return Continuous, nil
	}
	return Angular, pkgerrors.Errorf("unknown servo type %q", s)
}

func (t Type) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

func (t *Type) UnmarshalText(b []byte) error {
	parsed, err := ParseType(string(b))
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}
