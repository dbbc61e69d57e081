package daemon

import (
	"errors"
	"sync"
	"time"

	pkgerrors "github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/servokit/servod/pkg/config"
	"github.com/servokit/servod/pkg/events"
	"github.com/servokit/servod/pkg/servo"
	"github.com/servokit/servod/pkg/types"
)

// ErrScheduleNotFound is returned for schedule indexes that are not running.
var ErrScheduleNotFound = errors.New("schedule not found")

type poseJob struct {
	cfg   config.ScheduleConfig
	sched *Scheduler
}

// PoseScheduler runs the configured schedules against a bank, one Scheduler
// per entry.
type PoseScheduler struct {
	mu   sync.Mutex
	bank *Bank
	jobs []poseJob
}

func NewPoseScheduler(b *Bank) *PoseScheduler {
	return &PoseScheduler{bank: b}
}

func (p *PoseScheduler) run(sc config.ScheduleConfig) error {
	_, err := p.bank.Do(sc.Servo, sourceSchedule, func(s *servo.Servo) error {
		return applyAction(s, sc.Action, sc.Arg)
	})

	ev := events.ScheduleFiredEvent{
		Servo:  sc.Servo,
		Action: sc.Action,
		Arg:    sc.Arg,
		Ts:     time.Now().Unix(),
	}
	if err != nil {
		ev.Error = err.Error()
	}
	sseHub.Publish(events.ScheduleFired, ev)

	logrus.WithFields(logrus.Fields{
		"servo":  sc.Servo,
		"action": sc.Action,
		"arg":    sc.Arg,
	}).Info("scheduled action fired")

	return err
}

// Load replaces the running schedules. Entries that fail to parse are
// skipped and reported in the returned error; the rest still run.
func (p *PoseScheduler) Load(schedules []config.ScheduleConfig) error {
	p.Stop()

	p.mu.Lock()
	defer p.mu.Unlock()

	var errs []error
	for i, sc := range schedules {
		sc := sc
		sched := NewScheduler(func() error {
			return p.run(sc)
		}, func(data any) {
			logrus.WithFields(logrus.Fields{
				"servo":  sc.Servo,
				"action": sc.Action,
			}).Errorf("scheduled action failed: %v", data)
		})

		if err := sched.Schedule(sc.Cron); err != nil {
			errs = append(errs, pkgerrors.Wrapf(err, "schedule #%d %q", i, sc.Cron))
			continue
		}
		sched.Start()
		p.jobs = append(p.jobs, poseJob{cfg: sc, sched: sched})
	}

	logrus.WithField("count", len(p.jobs)).Info("pose schedules loaded")

	return errors.Join(errs...)
}

func (p *PoseScheduler) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()

	for _, j := range p.jobs {
		j.sched.Stop()
	}
	p.jobs = nil
}

// Status lists the running schedules. Index is the position among running
// schedules, as used by Skip.
func (p *PoseScheduler) Status() []types.ScheduleStatus {
	p.mu.Lock()
	defer p.mu.Unlock()

	out := make([]types.ScheduleStatus, 0, len(p.jobs))
	for i, j := range p.jobs {
		next, running := j.sched.Status()
		out = append(out, types.ScheduleStatus{
			Index:   i,
			Cron:    j.cfg.Cron,
			Servo:   j.cfg.Servo,
			Action:  j.cfg.Action,
			Arg:     j.cfg.Arg,
			NextRun: next,
			Running: running,
		})
	}
	return out
}

// Skip skips the next run of schedule i.
func (p *PoseScheduler) Skip(i int) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if i < 0 || i >= len(p.jobs) {
		return pkgerrors.Wrapf(ErrScheduleNotFound, "#%d", i)
	}
	return p.jobs[i].sched.Skip()
}
