package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/servokit/servod/pkg/events"
)

func NewWatchCommand() *cobra.Command {
	return &cobra.Command{
		Use:     "watch",
		Short:   "Print daemon events as they happen",
		GroupID: gAdvanced,
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			for ev := range apiClient.SubscribeEvents(ctx) {
				printEvent(cmd, ev)
			}
			return nil
		},
	}
}

func printEvent(cmd *cobra.Command, ev events.Event) {
	ts := time.Now().Format(time.TimeOnly)

	switch ev.Name {
	case events.ServoState:
		p, err := events.DecodeAs[events.ServoStateEvent](ev)
		if err != nil {
			logrus.WithError(err).Error("failed to decode servo.state event")
			return
		}
		cmd.Printf("%s %s %s  value %g  pulse %gµs  (%s)\n", ts, bold("%s", p.Servo),
			bool2Text(p.Enabled), p.Value, p.Pulse, p.Source)
	case events.CalibrationChanged:
		p, err := events.DecodeAs[events.CalibrationChangedEvent](ev)
		if err != nil {
			logrus.WithError(err).Error("failed to decode calibration.changed event")
			return
		}
		cmd.Printf("%s %s calibration changed, %d points\n", ts, bold("%s", p.Servo), p.Points)
	case events.ScheduleFired:
		p, err := events.DecodeAs[events.ScheduleFiredEvent](ev)
		if err != nil {
			logrus.WithError(err).Error("failed to decode schedule.fired event")
			return
		}
		if p.Error != "" {
			cmd.Printf("%s %s schedule %s %g failed: %s\n", ts, bold("%s", p.Servo), p.Action, p.Arg, p.Error)
			return
		}
		cmd.Printf("%s %s schedule %s %g\n", ts, bold("%s", p.Servo), p.Action, p.Arg)
	default:
		cmd.Printf("%s %s %s\n", ts, ev.Name, string(ev.Data))
	}
}
