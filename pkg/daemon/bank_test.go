package daemon

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/servokit/servod/pkg/calibration"
	"github.com/servokit/servod/pkg/config"
	"github.com/servokit/servod/pkg/pwm"
	"github.com/servokit/servod/pkg/servo"
	"github.com/servokit/servod/pkg/utils/ptr"
)

type change struct {
	name   string
	source string
}

func TestBankDo(t *testing.T) {
	var changes []change
	b := NewBank(func(st servo.Status, source string) {
		changes = append(changes, change{st.Name, source})
	})

	mem := pwm.NewMemory(0)
	s := servo.New(mem, 1, calibration.Angular)
	s.Initialize()
	require.NoError(t, b.Add("tilt", s))
	require.Error(t, b.Add("tilt", s))

	st, err := b.Do("tilt", sourceAPI, func(s *servo.Servo) error {
		s.ToMax()
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, "tilt", st.Name)
	assert.Equal(t, 2500.0, st.Pulse)
	assert.Equal(t, []change{{"tilt", sourceAPI}}, changes)

	// failed commands report nothing
	_, err = b.Do("tilt", sourceAPI, func(s *servo.Servo) error {
		return errors.New("nope")
	})
	require.Error(t, err)
	assert.Len(t, changes, 1)

	_, err = b.Do("pan", sourceAPI, func(s *servo.Servo) error { return nil })
	assert.ErrorIs(t, err, ErrServoNotFound)
	assert.ErrorIs(t, b.View("pan", func(s *servo.Servo) error { return nil }), ErrServoNotFound)

	// View does not count as a command
	require.NoError(t, b.View("tilt", func(s *servo.Servo) error { return nil }))
	assert.Len(t, changes, 1)
}

func TestBankDisableIdle(t *testing.T) {
	b := NewBank(nil)
	mem := pwm.NewMemory(0)
	for i, n := range []string{"a", "b"} {
		s := servo.New(mem, pwm.Pin(i), calibration.Linear)
		s.Initialize()
		require.NoError(t, b.Add(n, s))
	}

	_, err := b.Do("a", sourceAPI, func(s *servo.Servo) error {
		s.Enable()
		return nil
	})
	require.NoError(t, err)

	assert.Empty(t, b.DisableIdle(time.Minute, time.Now()))
	assert.Equal(t, []string{"a"}, b.DisableIdle(time.Minute, time.Now().Add(2*time.Minute)))

	pin, ok := mem.Pin(0)
	require.True(t, ok)
	assert.Equal(t, uint32(0), pin.Level)
}

func TestBuildBank(t *testing.T) {
	mem := pwm.NewMemory(0)
	b, err := buildBank(mem, []config.ServoConfig{
		{Name: "a", Pin: 0, Type: calibration.Angular, EnableOnStart: true},
		{Name: "b", Pin: 1, Type: calibration.Angular, EnableOnStart: true, InitialValue: ptr.To(-45.0)},
		{Name: "c", Pin: 2, Type: calibration.Continuous},
		{
			Name: "d", Pin: 3, Type: calibration.Linear,
			Calibration: &config.CalibrationConfig{
				Points: []calibration.Point{{Pulse: 1000, Value: 0}, {Pulse: 2000, Value: 10}},
			},
		},
	}, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b", "c", "d"}, b.Names())

	list := b.List()
	assert.Equal(t, servo.Enabled, list[0].State)
	assert.Equal(t, 1500.0, list[0].Pulse)
	assert.Equal(t, servo.Enabled, list[1].State)
	assert.Equal(t, 1000.0, list[1].Pulse)
	assert.Equal(t, servo.Disabled, list[2].State)
	assert.Equal(t, 10.0, list[3].MaxValue)

	b.Close()
	for p := pwm.Pin(0); p < 4; p++ {
		pin, ok := mem.Pin(p)
		require.True(t, ok)
		assert.Equal(t, pwm.FunctionInert, pin.Function)
	}
}

func TestBuildBankErrors(t *testing.T) {
	mem := pwm.NewMemory(0)

	_, err := buildBank(mem, []config.ServoConfig{
		{Name: "a", Pin: 0},
		{Name: "a", Pin: 1},
	}, nil)
	assert.Error(t, err)

	_, err = buildBank(mem, []config.ServoConfig{{
		Name: "a", Pin: 0,
		Calibration: &config.CalibrationConfig{
			Points: []calibration.Point{{Pulse: 2000, Value: 0}, {Pulse: 1000, Value: 10}},
		},
	}}, nil)
	assert.ErrorIs(t, err, calibration.ErrNotAscending)
}

func TestApplyAction(t *testing.T) {
	s := servo.New(pwm.NewMemory(0), 0, calibration.Angular)
	s.Initialize()

	for _, tc := range []struct {
		action  string
		arg     float64
		enabled bool
		pulse   float64
	}{
		{config.ActionValue, 45, true, 2000},
		{config.ActionPulse, 1200, true, 1200},
		{config.ActionPercent, 0.25, true, 1000},
		{config.ActionMin, 0, true, 500},
		{config.ActionMax, 0, true, 2500},
		{config.ActionDisable, 0, false, 2500},
		{config.ActionMid, 0, true, 1500},
		{config.ActionEnable, 0, true, 1500},
	} {
		require.NoError(t, applyAction(s, tc.action, tc.arg), tc.action)
		assert.Equal(t, tc.enabled, s.IsEnabled(), tc.action)
		assert.Equal(t, tc.pulse, s.Pulse(), tc.action)
	}

	assert.Error(t, applyAction(s, "wiggle", 0))
}

func TestOpenActuator(t *testing.T) {
	a, closeFn, err := openActuator(config.DriverConfig{Kind: config.DriverMemory})
	require.NoError(t, err)
	assert.IsType(t, &pwm.Memory{}, a)
	assert.NoError(t, closeFn())

	a, _, err = openActuator(config.DriverConfig{Kind: config.DriverSysfs, SysfsRoot: t.TempDir()})
	require.NoError(t, err)
	assert.IsType(t, &pwm.Sysfs{}, a)

	_, closeFn, err = openActuator(config.DriverConfig{Kind: config.DriverMaestro})
	assert.Error(t, err)
	assert.NotNil(t, closeFn)

	_, _, err = openActuator(config.DriverConfig{Kind: "parallel-port"})
	assert.Error(t, err)
}

func TestBankClosedRefusesCommands(t *testing.T) {
	mem := pwm.NewMemory(0)
	b, err := buildBank(mem, []config.ServoConfig{
		{Name: "pan", Pin: 0, Type: calibration.Angular, EnableOnStart: true},
	}, nil)
	require.NoError(t, err)

	b.Close()
	b.Close()

	_, err = b.Do("pan", sourceSchedule, func(s *servo.Servo) error {
		s.SetValue(45)
		return nil
	})
	assert.ErrorIs(t, err, ErrBankClosed)
	assert.ErrorIs(t, b.View("pan", func(s *servo.Servo) error { return nil }), ErrBankClosed)
	assert.Empty(t, b.DisableIdle(0, time.Now().Add(time.Hour)))

	pin, ok := mem.Pin(0)
	require.True(t, ok)
	assert.Equal(t, pwm.FunctionInert, pin.Function)
	hist := mem.History()
	assert.Equal(t, "inert", hist[len(hist)-1].Op)

	st, err := b.Status("pan")
	require.NoError(t, err)
	assert.Equal(t, servo.Disabled, st.State)
}

func TestBuildBankReleasesOnError(t *testing.T) {
	mem := pwm.NewMemory(0)
	_, err := buildBank(mem, []config.ServoConfig{
		{Name: "a", Pin: 0, Type: calibration.Angular, EnableOnStart: true},
		{Name: "a", Pin: 1, Type: calibration.Angular},
	}, nil)
	require.Error(t, err)

	for p := pwm.Pin(0); p < 2; p++ {
		pin, ok := mem.Pin(p)
		require.True(t, ok)
		assert.Equal(t, pwm.FunctionInert, pin.Function, "pin %d", p)
	}
}
