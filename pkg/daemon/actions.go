package daemon

import (
	pkgerrors "github.com/pkg/errors"

	"github.com/servokit/servod/pkg/config"
	"github.com/servokit/servod/pkg/servo"
)

// applyAction runs a named action on s. arg is the value, the pulse or the
// input of the percent action on its default 0..1 range.
func applyAction(s *servo.Servo, action string, arg float64) error {
	switch action {
	case config.ActionValue:
		s.SetValue(arg)
	case config.ActionPulse:
		s.SetPulse(arg)
	case config.ActionPercent:
		s.ToPercent(arg, 0, 1)
	case config.ActionMin:
		s.ToMin()
	case config.ActionMid:
		s.ToMid()
	case config.ActionMax:
		s.ToMax()
	case config.ActionEnable:
		s.Enable()
	case config.ActionDisable:
		s.Disable()
	default:
		return pkgerrors.Errorf("unknown action %q", action)
	}
	return nil
}
