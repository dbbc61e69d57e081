package daemon

import (
	"context"
	"reflect"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/servokit/servod/pkg/servo"
)

var (
	idleLoopLock = &sync.Mutex{}
	loopInterval = time.Duration(1) * time.Second
)

// idleLoop disables idle servos until ctx is done.
func idleLoop(ctx context.Context) {
	ticker := time.NewTicker(loopInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			maintainIdle(now)
		}
	}
}

// maintainIdle disables every servo that has not been commanded within the
// configured idle timeout. A zero timeout keeps servos driven forever.
func maintainIdle(now time.Time) []string {
	idleLoopLock.Lock()
	defer idleLoopLock.Unlock()

	timeout := conf.IdleTimeout()
	if timeout <= 0 {
		return nil
	}

	disabled := bank.DisableIdle(timeout, now)
	for _, name := range disabled {
		logrus.WithFields(logrus.Fields{
			"servo":   name,
			"timeout": timeout,
		}).Info("servo idle, disabled")
	}

	printStatus(len(bank.Names()), countEnabled(), timeout)

	return disabled
}

func countEnabled() int {
	n := 0
	for _, st := range bank.List() {
		if st.State == servo.Enabled {
			n++
		}
	}
	return n
}

var lastPrintTime time.Time

type loopStatus struct {
	servos  int
	enabled int
	timeout time.Duration
}

var lastStatus loopStatus

func printStatus(servos, enabled int, timeout time.Duration) {
	currentStatus := loopStatus{
		servos:  servos,
		enabled: enabled,
		timeout: timeout,
	}

	fields := logrus.Fields{
		"servos":      servos,
		"enabled":     enabled,
		"idleTimeout": timeout,
	}

	defer func() { lastPrintTime = time.Now() }()

	// Skip printing if nothing changed since the last loop.
	if time.Since(lastPrintTime) < loopInterval+time.Second && reflect.DeepEqual(lastStatus, currentStatus) {
		logrus.WithFields(fields).Trace("idle loop status")
		return
	}

	logrus.WithFields(fields).Debug("idle loop status")

	lastStatus = currentStatus
}
