package servo

import (
	"github.com/sirupsen/logrus"

	"github.com/servokit/servod/pkg/calibration"
	"github.com/servokit/servod/pkg/pwm"
)

const (
	DefaultPWMFrequency = 50
	// PeriodTicks is the counter wrap of one 20ms frame at a 1MHz tick, so
	// one tick is one microsecond.
	PeriodTicks = 20000
	// MinValidPulse is the smallest pulse that still counts as driving the
	// servo. Anything below disables it.
	MinValidPulse = 1.0

	tickRateHz = 1000000
)

// Servo drives one hobby servo on one PWM pin. It is not safe for concurrent
// use; callers sharing a Servo must synchronize.
type Servo struct {
	pin       pwm.Pin
	actuator  pwm.Actuator
	converter calibration.Converter
	typ       calibration.Type

	value            float64
	lastEnabledPulse float64
	enabled          bool
	level            uint32
}

// Status is a snapshot of a servo.
type Status struct {
	Name     string           `json:"name,omitempty"`
	Pin      pwm.Pin          `json:"pin"`
	Type     calibration.Type `json:"type"`
	State    State            `json:"state"`
	Value    float64          `json:"value"`
	Pulse    float64          `json:"pulse"`
	Level    uint32           `json:"level"`
	MinValue float64          `json:"minValue"`
	MidValue float64          `json:"midValue"`
	MaxValue float64          `json:"maxValue"`
	// Fault is the last write failure reported by the backend.
	Fault string `json:"fault,omitempty"`
}

// New returns a disabled servo on pin with the default calibration for typ.
// Call Initialize before driving it.
func New(actuator pwm.Actuator, pin pwm.Pin, typ calibration.Type) *Servo {
	return &Servo{
		pin:       pin,
		actuator:  actuator,
		converter: calibration.NewConverter(typ),
		typ:       typ,
	}
}

// Initialize sets up the pin for 50Hz PWM with a 1MHz tick and holds the
// output low. The servo stays disabled.
func (s *Servo) Initialize() {
	div := float64(s.actuator.SystemClockHz()) / tickRateHz

	logrus.WithFields(logrus.Fields{
		"pin":     s.pin,
		"divider": div,
	}).Debug("initializing servo pin")

	s.actuator.ConfigurePeriodAndClock(s.pin, PeriodTicks, div)
	s.actuator.SetFunctionPWM(s.pin)
	s.write(0)
}

func (s *Servo) write(level uint32) {
	s.actuator.SetLevel(s.pin, level)
	s.level = level
}

func (s *Servo) drive(pulse float64) {
	s.lastEnabledPulse = pulse
	s.write(calibration.PulseToLevel(pulse, PeriodTicks))
	s.enabled = true
}

// Enable resumes driving the last pulse. A servo that never had a valid pulse
// goes to its mid value.
func (s *Servo) Enable() {
	if s.lastEnabledPulse < MinValidPulse {
		s.value = s.converter.MidValue()
		s.lastEnabledPulse = s.converter.ValueToPulse(s.value)
	}
	s.write(calibration.PulseToLevel(s.lastEnabledPulse, PeriodTicks))
	s.enabled = true
}

// Disable stops the pulses. The last value and pulse are kept for Enable.
func (s *Servo) Disable() {
	s.write(0)
	s.enabled = false
}

func (s *Servo) IsEnabled() bool {
	return s.enabled
}

func (s *Servo) State() State {
	if s.enabled {
		return Enabled
	}
	return Disabled
}

func (s *Servo) Value() float64 {
	return s.value
}

// SetValue moves to value through the calibration. A value that maps below
// MinValidPulse disables the servo.
func (s *Servo) SetValue(value float64) {
	s.value = value
	pulse := s.converter.ValueToPulse(value)
	if pulse < MinValidPulse {
		s.Disable()
		return
	}
	s.drive(pulse)
}

// Pulse returns the last pulse the servo was driven with, in microseconds.
func (s *Servo) Pulse() float64 {
	return s.lastEnabledPulse
}

// SetPulse drives pulse directly and updates the value from the calibration.
// A pulse below MinValidPulse disables the servo.
func (s *Servo) SetPulse(pulse float64) {
	if pulse < MinValidPulse {
		s.Disable()
		return
	}
	s.value = s.converter.ValueFromPulse(pulse)
	s.drive(pulse)
}

func (s *Servo) ToMin() {
	s.SetValue(s.converter.MinValue())
}

func (s *Servo) ToMid() {
	s.SetValue(s.converter.MidValue())
}

func (s *Servo) ToMax() {
	s.SetValue(s.converter.MaxValue())
}

// ToPercent maps in from [inMin, inMax] onto the calibrated value range.
func (s *Servo) ToPercent(in, inMin, inMax float64) {
	s.SetValue(calibration.MapFloat(in, inMin, inMax, s.converter.MinValue(), s.converter.MaxValue()))
}

// ToPercentRange maps in from [inMin, inMax] onto [valueMin, valueMax].
func (s *Servo) ToPercentRange(in, inMin, inMax, valueMin, valueMax float64) {
	s.SetValue(calibration.MapFloat(in, inMin, inMax, valueMin, valueMax))
}

// Level is the last duty count written to the pin.
func (s *Servo) Level() uint32 {
	return s.level
}

func (s *Servo) Pin() pwm.Pin {
	return s.pin
}

func (s *Servo) Type() calibration.Type {
	return s.typ
}

// Calibration returns the servo's own table. Changes take effect on the next
// command.
func (s *Servo) Calibration() *calibration.Table {
	return s.converter.Calibration()
}

func (s *Servo) Converter() *calibration.Converter {
	return &s.converter
}

func (s *Servo) Status() Status {
	st := Status{
		Pin:      s.pin,
		Type:     s.typ,
		State:    s.State(),
		Value:    s.value,
		Pulse:    s.lastEnabledPulse,
		Level:    s.level,
		MinValue: s.converter.MinValue(),
		MidValue: s.converter.MidValue(),
		MaxValue: s.converter.MaxValue(),
	}
	if f, ok := s.actuator.(pwm.Faulter); ok {
		if err := f.Err(); err != nil {
			st.Fault = err.Error()
		}
	}
	return st
}

// Close releases the pin whatever the state.
func (s *Servo) Close() {
	s.actuator.SetFunctionInert(s.pin)
	s.enabled = false
}
