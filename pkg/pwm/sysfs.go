package pwm

import (
	"os"
	"path/filepath"
	"strconv"
	"sync"

	pkgerrors "github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

const (
	DefaultSysfsRoot = "/sys/class/pwm"

	// SysfsClockHz is reported so that sysfs, which works in nanoseconds,
	// looks like a 1GHz counter.
	SysfsClockHz = 1000000000
)

var _ Actuator = &Sysfs{}

// Sysfs drives the channels of a Linux pwmchip through /sys/class/pwm. Pins
// are channel numbers on the chip.
type Sysfs struct {
	mu       sync.Mutex
	chipDir  string
	configs  map[Pin]PinConfig
	exported map[Pin]bool
	lastErr  error
}

// NewSysfs returns a Sysfs actuator for pwmchip<chip> under root. An empty
// root uses DefaultSysfsRoot.
func NewSysfs(root string, chip int) *Sysfs {
	if root == "" {
		root = DefaultSysfsRoot
	}
	return &Sysfs{
		chipDir:  filepath.Join(root, "pwmchip"+strconv.Itoa(chip)),
		configs:  map[Pin]PinConfig{},
		exported: map[Pin]bool{},
	}
}

func (s *Sysfs) channelDir(pin Pin) string {
	return filepath.Join(s.chipDir, "pwm"+strconv.Itoa(int(pin)))
}

func (s *Sysfs) write(path string, v string) {
	logrus.WithFields(logrus.Fields{
		"path": path,
		"val":  v,
	}).Trace("Trying to write to sysfs")

	if err := os.WriteFile(path, []byte(v), 0o644); err != nil {
		s.lastErr = pkgerrors.Wrapf(err, "failed to write %s", path)
		logrus.Errorf("sysfs pwm write failed: %v", s.lastErr)
		return
	}
	s.lastErr = nil

	logrus.WithFields(logrus.Fields{
		"path": path,
		"val":  v,
	}).Trace("Write to sysfs succeed")
}

func (s *Sysfs) export(pin Pin) {
	if s.exported[pin] {
		return
	}
	if _, err := os.Stat(s.channelDir(pin)); err != nil {
		s.write(filepath.Join(s.chipDir, "export"), strconv.Itoa(int(pin)))
	}
	s.exported[pin] = true
}

func (s *Sysfs) ticksToNs(pin Pin, ticks uint32) int64 {
	hz := s.configs[pin].TickHz(SysfsClockHz)
	if hz <= 0 {
		return 0
	}
	return int64(float64(ticks) * 1e9 / hz)
}

func (s *Sysfs) ConfigurePeriodAndClock(pin Pin, periodTicks uint32, clockDivider float64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.export(pin)
	s.configs[pin] = PinConfig{PeriodTicks: periodTicks, ClockDivider: clockDivider}
	s.write(filepath.Join(s.channelDir(pin), "period"), strconv.FormatInt(s.ticksToNs(pin, periodTicks), 10))
}

func (s *Sysfs) SetFunctionPWM(pin Pin) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.export(pin)
	s.write(filepath.Join(s.channelDir(pin), "enable"), "1")
}

func (s *Sysfs) SetFunctionInert(pin Pin) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.exported[pin] {
		return
	}
	s.write(filepath.Join(s.channelDir(pin), "duty_cycle"), "0")
	s.write(filepath.Join(s.channelDir(pin), "enable"), "0")
}

func (s *Sysfs) SetLevel(pin Pin, level uint32) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.export(pin)
	s.write(filepath.Join(s.channelDir(pin), "duty_cycle"), strconv.FormatInt(s.ticksToNs(pin, level), 10))
}

func (s *Sysfs) SystemClockHz() uint32 {
	return SysfsClockHz
}

// Err returns the last write failure, if any.
func (s *Sysfs) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.lastErr
}
