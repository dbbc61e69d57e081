package daemon

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/servokit/servod/pkg/config"
	"github.com/servokit/servod/pkg/events"
	"github.com/servokit/servod/pkg/servo"
)

func TestPoseRun(t *testing.T) {
	setupTestDaemon(t, testConfig())
	ch := sseHub.Subscribe()
	defer sseHub.Unsubscribe(ch)

	require.NoError(t, schedules.run(config.ScheduleConfig{Servo: "pan", Action: config.ActionValue, Arg: -45}))

	st, err := bank.Status("pan")
	require.NoError(t, err)
	assert.Equal(t, 1000.0, st.Pulse)

	// the command is reported before the schedule itself
	assert.Equal(t, events.ServoState, (<-ch).Name)
	fired, err := events.DecodeAs[events.ScheduleFiredEvent](<-ch)
	require.NoError(t, err)
	assert.Equal(t, "pan", fired.Servo)
	assert.Empty(t, fired.Error)

	err = schedules.run(config.ScheduleConfig{Servo: "ghost", Action: config.ActionMid})
	assert.ErrorIs(t, err, ErrServoNotFound)
	fired, err = events.DecodeAs[events.ScheduleFiredEvent](<-ch)
	require.NoError(t, err)
	assert.NotEmpty(t, fired.Error)
}

func TestPoseLoad(t *testing.T) {
	setupTestDaemon(t, testConfig())

	err := schedules.Load([]config.ScheduleConfig{
		{Cron: "@every 1h", Servo: "pan", Action: config.ActionMin},
		{Cron: "not a cron", Servo: "pan", Action: config.ActionMax},
		{Cron: "*/5 * * * *", Servo: "grip", Action: config.ActionDisable},
	})
	assert.ErrorContains(t, err, "schedule #1")

	list := schedules.Status()
	require.Len(t, list, 2)
	assert.Equal(t, config.ActionMin, list[0].Action)
	assert.Equal(t, "grip", list[1].Servo)
	assert.Equal(t, 1, list[1].Index)

	assert.ErrorIs(t, schedules.Skip(2), ErrScheduleNotFound)
	assert.ErrorIs(t, schedules.Skip(-1), ErrScheduleNotFound)
	require.NoError(t, schedules.Skip(1))

	schedules.Stop()
	assert.Empty(t, schedules.Status())
}

func TestPoseRunAfterRelease(t *testing.T) {
	setupTestDaemon(t, testConfig())
	schedules.Stop()
	bank.Close()

	err := schedules.run(config.ScheduleConfig{Servo: "pan", Action: config.ActionMax})
	assert.ErrorIs(t, err, ErrBankClosed)

	st, err := bank.Status("pan")
	require.NoError(t, err)
	assert.Equal(t, servo.Disabled, st.State)
}
