package servo

import (
	pkgerrors "github.com/pkg/errors"
)

// State is whether a servo is currently being driven.
type State uint8

const (
	Disabled State = iota
	Enabled
)

func (s State) String() string {
	switch s {
	case Disabled:
		return "disabled"
	case Enabled:
		return "enabled"
	}
	return "unknown"
}

// MarshalText implements encoding.TextMarshaler so State shows up as a word
// in JSON.
func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

func (s *State) UnmarshalText(b []byte) error {
	switch string(b) {
	case "disabled":
		*s = Disabled
	case "enabled":
		*s = Enabled
	default:
		return pkgerrors.Errorf("unknown servo state %q", string(b))
	}
	return nil
}
