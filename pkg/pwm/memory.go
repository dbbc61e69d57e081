package pwm

import (
	"sync"

	"github.com/sirupsen/logrus"
)

// DefaultMemoryClockHz matches a 125MHz microcontroller system clock.
const DefaultMemoryClockHz = 125000000

var _ Actuator = &Memory{}

// PinState is the recorded state of a single pin.
type PinState struct {
	Config   PinConfig
	Function Function
	Level    uint32
}

// Write is one recorded call on a Memory actuator.
type Write struct {
	Op    string
	Pin   Pin
	Level uint32
}

// Memory is an Actuator that only records what it is told. It backs the
// "memory" driver for dry runs and is what tests inspect.
type Memory struct {
	mu      sync.Mutex
	clockHz uint32
	pins    map[Pin]*PinState
	history []Write
}

// NewMemory returns a Memory actuator. A zero clockHz uses DefaultMemoryClockHz.
func NewMemory(clockHz uint32) *Memory {
	if clockHz == 0 {
		clockHz = DefaultMemoryClockHz
	}
	return &Memory{
		clockHz: clockHz,
		pins:    map[Pin]*PinState{},
	}
}

func (m *Memory) pin(p Pin) *PinState {
	st, ok := m.pins[p]
	if !ok {
		st = &PinState{}
		m.pins[p] = st
	}
	return st
}

func (m *Memory) ConfigurePeriodAndClock(pin Pin, periodTicks uint32, clockDivider float64) {
	m.mu.Lock()
	defer m.mu.Unlock()

	logrus.WithFields(logrus.Fields{
		"pin":     pin,
		"period":  periodTicks,
		"divider": clockDivider,
	}).Trace("memory pwm configure")

	m.pin(pin).Config = PinConfig{PeriodTicks: periodTicks, ClockDivider: clockDivider}
	m.history = append(m.history, Write{Op: "configure", Pin: pin})
}

func (m *Memory) SetFunctionPWM(pin Pin) {
	m.mu.Lock()
	defer m.mu.Unlock()

	logrus.WithField("pin", pin).Trace("memory pwm claim")

	m.pin(pin).Function = FunctionPWM
	m.history = append(m.history, Write{Op: "pwm", Pin: pin})
}

func (m *Memory) SetFunctionInert(pin Pin) {
	m.mu.Lock()
	defer m.mu.Unlock()

	logrus.WithField("pin", pin).Trace("memory pwm release")

	m.pin(pin).Function = FunctionInert
	m.history = append(m.history, Write{Op: "inert", Pin: pin})
}

func (m *Memory) SetLevel(pin Pin, level uint32) {
	m.mu.Lock()
	defer m.mu.Unlock()

	logrus.WithFields(logrus.Fields{
		"pin":   pin,
		"level": level,
	}).Trace("memory pwm level")

	m.pin(pin).Level = level
	m.history = append(m.history, Write{Op: "level", Pin: pin, Level: level})
}

func (m *Memory) SystemClockHz() uint32 {
	return m.clockHz
}

// Pin returns a copy of the state of p and whether p was ever touched.
func (m *Memory) Pin(p Pin) (PinState, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	st, ok := m.pins[p]
	if !ok {
		return PinState{}, false
	}
	return *st, true
}

// History returns every recorded call in order.
func (m *Memory) History() []Write {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]Write, len(m.history))
	copy(out, m.history)
	return out
}

// Reset forgets the recorded history but keeps pin state.
func (m *Memory) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.history = nil
}
