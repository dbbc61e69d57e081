package daemon

import (
	pkgerrors "github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/servokit/servod/pkg/config"
	"github.com/servokit/servod/pkg/pwm"
)

// openActuator opens the PWM backend selected by d. The returned close
// function is never nil.
func openActuator(d config.DriverConfig) (pwm.Actuator, func() error, error) {
	noop := func() error { return nil }

	switch d.Kind {
	case "", config.DriverMemory:
		logrus.Warn("using the memory driver, no pulses will be generated")
		return pwm.NewMemory(d.ClockHz), noop, nil
	case config.DriverMaestro:
		if d.Device == "" {
			return nil, noop, pkgerrors.New("maestro driver needs a device")
		}
		m, err := pwm.OpenMaestro(d.Device, d.BaudRate, d.DeviceNumber, d.Protocol != config.ProtocolPololu)
		if err != nil {
			return nil, noop, err
		}
		return m, m.Close, nil
	case config.DriverSysfs:
		return pwm.NewSysfs(d.SysfsRoot, d.Chip), noop, nil
	}

	return nil, noop, pkgerrors.Errorf("unknown driver kind %q", d.Kind)
}
