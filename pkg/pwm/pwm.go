package pwm

// Pin identifies a PWM output. Its meaning is up to the Actuator: a GPIO
// number, a controller channel or a sysfs pwm index.
type Pin uint

// Actuator is the hardware PWM peripheral servos are driven through. Calls are
// synchronous and never fail from the caller's point of view; backends that can
// fail log the failure and keep it for later inspection.
type Actuator interface {
	// ConfigurePeriodAndClock sets the counter wrap (periodTicks) and the
	// divider applied to SystemClockHz for pin.
	ConfigurePeriodAndClock(pin Pin, periodTicks uint32, clockDivider float64)
	// SetFunctionPWM claims pin for PWM output.
	SetFunctionPWM(pin Pin)
	// SetFunctionInert releases pin so it no longer drives anything.
	SetFunctionInert(pin Pin)
	// SetLevel writes a duty count in 0..periodTicks-1.
	SetLevel(pin Pin, level uint32)
	// SystemClockHz is the clock the divider applies to.
	SystemClockHz() uint32
}

// Faulter is implemented by backends that can fail. Err returns the last
// write failure, or nil once a later write succeeded.
type Faulter interface {
	Err() error
}

// Function is what a pin is currently used for.
type Function uint8

const (
	FunctionInert Function = iota
	FunctionPWM
)

func (f Function) String() string {
	switch f {
	case FunctionInert:
		return "inert"
	case FunctionPWM:
		return "pwm"
	}
	return "unsupported"
}

// PinConfig is the timing set up on a pin by ConfigurePeriodAndClock.
type PinConfig struct {
	PeriodTicks  uint32
	ClockDivider float64
}

// TickHz returns the counter rate for a pin given the system clock.
func (c PinConfig) TickHz(systemClockHz uint32) float64 {
	if c.ClockDivider <= 0 {
		return float64(systemClockHz)
	}
	return float64(systemClockHz) / c.ClockDivider
}

// LevelToMicroseconds converts a duty count into a pulse width.
func (c PinConfig) LevelToMicroseconds(level uint32, systemClockHz uint32) float64 {
	hz := c.TickHz(systemClockHz)
	if hz <= 0 {
		return 0
	}
	return float64(level) * 1e6 / hz
}
