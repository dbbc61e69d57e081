package pwm

import (
	"io"
	"sync"

	pkgerrors "github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"go.bug.st/serial"
)

// Pololu Maestro servo controller over its USB/TTL serial command port.
// See https://www.pololu.com/docs/pdf/0J40/maestro.pdf

const (
	maestroCmdSetTarget = 0x84
	maestroPololuStart  = 0xaa

	// MaestroClockHz is the clock reported to servos. The Maestro takes
	// targets in quarter-microseconds, so a 1MHz tick maps levels 1:1 to
	// microseconds.
	MaestroClockHz = 1000000

	DefaultMaestroBaudRate = 9600
)

var _ Actuator = &Maestro{}

// Maestro drives the channels of a Pololu Maestro. Pins are channel numbers.
type Maestro struct {
	mu      sync.Mutex
	port    io.WriteCloser
	device  uint8 // device number, only used by the Pololu protocol
	compact bool  // use the compact protocol (single device on the serial line)
	configs map[Pin]PinConfig
	lastErr error
}

// OpenMaestro opens the serial device and returns a Maestro speaking the
// compact protocol when compact is true, the Pololu protocol otherwise.
func OpenMaestro(device string, baudRate int, deviceNumber uint8, compact bool) (*Maestro, error) {
	if baudRate <= 0 {
		baudRate = DefaultMaestroBaudRate
	}
	port, err := serial.Open(device, &serial.Mode{BaudRate: baudRate})
	if err != nil {
		return nil, pkgerrors.Wrapf(err, "failed to open maestro serial port %s", device)
	}

	logrus.WithFields(logrus.Fields{
		"device":   device,
		"baudRate": baudRate,
		"compact":  compact,
	}).Info("maestro serial port opened")

	return NewMaestro(port, deviceNumber, compact), nil
}

// NewMaestro wraps an already open port.
func NewMaestro(port io.WriteCloser, deviceNumber uint8, compact bool) *Maestro {
	return &Maestro{
		port:    port,
		device:  deviceNumber,
		compact: compact,
		configs: map[Pin]PinConfig{},
	}
}

func (m *Maestro) preamble(command uint8) []byte {
	if m.compact {
		return []byte{command}
	}
	return []byte{maestroPololuStart, m.device, command & 0x7f}
}

// setTarget sends a target in quarter-microseconds. Zero stops the pulses.
func (m *Maestro) setTarget(pin Pin, target uint16) {
	cmd := append(m.preamble(maestroCmdSetTarget), byte(pin), byte(target&0x7f), byte((target>>7)&0x7f))

	logrus.WithFields(logrus.Fields{
		"channel": pin,
		"target":  target,
	}).Trace("Trying to write maestro target")

	if _, err := m.port.Write(cmd); err != nil {
		m.lastErr = pkgerrors.Wrapf(err, "failed to set target of channel %d", pin)
		logrus.Errorf("maestro write failed: %v", m.lastErr)
		return
	}
	m.lastErr = nil

	logrus.WithFields(logrus.Fields{
		"channel": pin,
		"target":  target,
	}).Trace("Write maestro target succeed")
}

// ConfigurePeriodAndClock only records the timing. The Maestro period is a
// board setting and cannot be changed over the command port.
func (m *Maestro) ConfigurePeriodAndClock(pin Pin, periodTicks uint32, clockDivider float64) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.configs[pin] = PinConfig{PeriodTicks: periodTicks, ClockDivider: clockDivider}
}

func (m *Maestro) SetFunctionPWM(Pin) {}

func (m *Maestro) SetFunctionInert(pin Pin) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.setTarget(pin, 0)
}

func (m *Maestro) SetLevel(pin Pin, level uint32) {
	m.mu.Lock()
	defer m.mu.Unlock()

	us := m.configs[pin].LevelToMicroseconds(level, MaestroClockHz)
	quarter := us * 4
	if quarter > 0x3fff {
		quarter = 0x3fff
	}
	m.setTarget(pin, uint16(quarter))
}

func (m *Maestro) SystemClockHz() uint32 {
	return MaestroClockHz
}

// Err returns the last write failure, if any.
func (m *Maestro) Err() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.lastErr
}

// Close closes the serial port.
func (m *Maestro) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.port.Close()
}
