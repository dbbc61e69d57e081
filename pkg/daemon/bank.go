package daemon

import (
	"errors"
	"sync"
	"time"

	pkgerrors "github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/servokit/servod/pkg/config"
	"github.com/servokit/servod/pkg/pwm"
	"github.com/servokit/servod/pkg/servo"
)

// Sources of servo commands, reported in events and metrics.
const (
	sourceAPI      = "api"
	sourceIdle     = "idle"
	sourceSchedule = "schedule"
	sourceStartup  = "startup"
)

var (
	// ErrServoNotFound is returned for names that are not in the bank.
	ErrServoNotFound = errors.New("servo not found")
	// ErrBankClosed is returned for commands after the pins were released.
	ErrBankClosed = errors.New("servo pins released")
)

// ChangeFunc is called, with the servo unlocked, after a command changed it.
type ChangeFunc func(st servo.Status, source string)

type bankEntry struct {
	mu          sync.Mutex
	name        string
	servo       *servo.Servo
	lastCommand time.Time
	closed      bool
}

// Bank is the set of named servos the daemon drives. Every servo is guarded
// by its own lock.
type Bank struct {
	mu       sync.RWMutex
	entries  map[string]*bankEntry
	order    []string
	onChange ChangeFunc
}

func NewBank(onChange ChangeFunc) *Bank {
	return &Bank{
		entries:  map[string]*bankEntry{},
		onChange: onChange,
	}
}

// Add puts s under name. Names must be unique.
func (b *Bank) Add(name string, s *servo.Servo) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if _, ok := b.entries[name]; ok {
		return pkgerrors.Errorf("servo %s already exists", name)
	}
	b.entries[name] = &bankEntry{name: name, servo: s, lastCommand: time.Now()}
	b.order = append(b.order, name)
	return nil
}

func (b *Bank) get(name string) (*bankEntry, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	e, ok := b.entries[name]
	if !ok {
		return nil, pkgerrors.Wrapf(ErrServoNotFound, "%s", name)
	}
	return e, nil
}

// Names returns servo names in the order they were added.
func (b *Bank) Names() []string {
	b.mu.RLock()
	defer b.mu.RUnlock()

	out := make([]string, len(b.order))
	copy(out, b.order)
	return out
}

func (e *bankEntry) status() servo.Status {
	st := e.servo.Status()
	st.Name = e.name
	return st
}

// Do runs fn on the named servo while holding its lock and reports the
// resulting state. Any error from fn is returned as is and no change is
// reported.
func (b *Bank) Do(name string, source string, fn func(s *servo.Servo) error) (servo.Status, error) {
	e, err := b.get(name)
	if err != nil {
		return servo.Status{}, err
	}

	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return servo.Status{}, pkgerrors.Wrapf(ErrBankClosed, "%s", name)
	}
	if err := fn(e.servo); err != nil {
		e.mu.Unlock()
		return servo.Status{}, err
	}
	e.lastCommand = time.Now()
	st := e.status()
	e.mu.Unlock()

	if b.onChange != nil {
		b.onChange(st, source)
	}

	return st, nil
}

// View runs fn on the named servo while holding its lock. Unlike Do it does
// not count as a command and reports no change.
func (b *Bank) View(name string, fn func(s *servo.Servo) error) error {
	e, err := b.get(name)
	if err != nil {
		return err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed {
		return pkgerrors.Wrapf(ErrBankClosed, "%s", name)
	}
	return fn(e.servo)
}

func (b *Bank) Status(name string) (servo.Status, error) {
	var st servo.Status
	e, err := b.get(name)
	if err != nil {
		return st, err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	return e.status(), nil
}

func (b *Bank) List() []servo.Status {
	names := b.Names()
	out := make([]servo.Status, 0, len(names))
	for _, n := range names {
		st, err := b.Status(n)
		if err != nil {
			continue
		}
		out = append(out, st)
	}
	return out
}

// DisableIdle disables every enabled servo that has not been commanded for
// timeout and returns their names.
func (b *Bank) DisableIdle(timeout time.Duration, now time.Time) []string {
	var disabled []string

	for _, n := range b.Names() {
		e, err := b.get(n)
		if err != nil {
			continue
		}

		e.mu.Lock()
		if e.closed || !e.servo.IsEnabled() || now.Sub(e.lastCommand) < timeout {
			e.mu.Unlock()
			continue
		}
		e.servo.Disable()
		st := e.status()
		e.mu.Unlock()

		disabled = append(disabled, n)
		if b.onChange != nil {
			b.onChange(st, sourceIdle)
		}
	}

	return disabled
}

// Close releases every pin. Later commands fail with ErrBankClosed.
func (b *Bank) Close() {
	for _, n := range b.Names() {
		e, err := b.get(n)
		if err != nil {
			continue
		}

		e.mu.Lock()
		if !e.closed {
			e.servo.Close()
			e.closed = true
		}
		e.mu.Unlock()

		logrus.WithField("servo", n).Debug("servo pin released")
	}
}

// newServo builds and initializes one configured servo.
func newServo(a pwm.Actuator, sc config.ServoConfig) (*servo.Servo, error) {
	s := servo.New(a, sc.Pin, sc.Type)
	if sc.Calibration != nil {
		if err := sc.Calibration.ApplyTo(s.Calibration()); err != nil {
			return nil, pkgerrors.Wrapf(err, "invalid calibration of servo %s", sc.Name)
		}
	}
	s.Initialize()
	return s, nil
}

// buildBank creates and initializes the configured servos on a. Servos with
// an initial value are moved there, others with enableOnStart go to mid.
func buildBank(a pwm.Actuator, servos []config.ServoConfig, onChange ChangeFunc) (*Bank, error) {
	b := NewBank(onChange)

	for _, sc := range servos {
		s, err := newServo(a, sc)
		if err != nil {
			b.Close()
			return nil, err
		}
		if err := b.Add(sc.Name, s); err != nil {
			s.Close()
			b.Close()
			return nil, err
		}

		logrus.WithFields(logrus.Fields{
			"servo": sc.Name,
			"pin":   sc.Pin,
			"type":  sc.Type,
		}).Info("servo initialized")

		switch {
		case sc.InitialValue != nil:
			v := *sc.InitialValue
			_, _ = b.Do(sc.Name, sourceStartup, func(s *servo.Servo) error {
				s.SetValue(v)
				return nil
			})
		case sc.EnableOnStart:
			_, _ = b.Do(sc.Name, sourceStartup, func(s *servo.Servo) error {
				s.Enable()
				return nil
			})
		}
	}

	return b, nil
}
