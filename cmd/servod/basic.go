package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/servokit/servod/pkg/servo"
	"github.com/servokit/servod/pkg/types"
	"github.com/servokit/servod/pkg/version"
)

func NewVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:     "version",
		Short:   "Print version",
		GroupID: gAdvanced,
		Run: func(cmd *cobra.Command, _ []string) {
			cmd.Printf("%s %s\n", version.Version, version.GitCommit)
		},
	}
}

func getVersion() (clientVersion string, daemonVersion string, err error) {
	daemonVersion, err = apiClient.GetVersion()
	if err != nil {
		return version.Version, "", err
	}
	return version.Version, daemonVersion, nil
}

// newServoCommand builds a command of the form "use <servo> [arg]" that
// sends one command and prints the resulting state.
func newServoCommand(use, short, long string, nargs int, send func(name string, args []string) (*servo.Status, error)) *cobra.Command {
	return &cobra.Command{
		Use:     use,
		Short:   short,
		Long:    long,
		GroupID: gServo,
		Args:    cobra.ExactArgs(1 + nargs),
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := send(args[0], args[1:])
			if err != nil {
				return fmt.Errorf("failed to command servo %s: %w", args[0], err)
			}
			printServo(cmd, st)
			return nil
		},
	}
}

func NewValueCommand() *cobra.Command {
	return newServoCommand("value <servo> <value>", "Move a servo to a value",
		`Move a servo to a value in its calibration units, for example degrees.

The servo is enabled unless the value maps to a pulse below 1µs, which disables it.`,
		1, func(name string, args []string) (*servo.Status, error) {
			v, err := parseFloatArg(args[0], "value")
			if err != nil {
				return nil, err
			}
			return apiClient.SetValue(name, v)
		})
}

func NewPulseCommand() *cobra.Command {
	return newServoCommand("pulse <servo> <microseconds>", "Drive a raw pulse width",
		`Drive a raw pulse width in microseconds, bypassing the calibration.

Widths are clamped to 500-2500µs. A width below 1µs disables the servo.`,
		1, func(name string, args []string) (*servo.Status, error) {
			p, err := parseFloatArg(args[0], "pulse")
			if err != nil {
				return nil, err
			}
			return apiClient.SetPulse(name, p)
		})
}

func NewPercentCommand() *cobra.Command {
	var inMin, inMax float64

	cmd := newServoCommand("percent <servo> <input>", "Move a servo to a fraction of its range",
		`Map an input on --in-min..--in-max onto the calibrated range of the servo.`,
		1, func(name string, args []string) (*servo.Status, error) {
			in, err := parseFloatArg(args[0], "input")
			if err != nil {
				return nil, err
			}
			return apiClient.SetPercent(name, types.PercentRequest{In: in, InMin: &inMin, InMax: &inMax})
		})

	cmd.Flags().Float64Var(&inMin, "in-min", 0, "input value mapped to the minimum")
	cmd.Flags().Float64Var(&inMax, "in-max", 100, "input value mapped to the maximum")

	return cmd
}

func NewEnableCommand() *cobra.Command {
	return newServoCommand("enable <servo>", "Start driving a servo",
		`Start driving a servo at its last pulse, or at its mid value if it was never driven.`,
		0, func(name string, _ []string) (*servo.Status, error) { return apiClient.Enable(name) })
}

func NewDisableCommand() *cobra.Command {
	return newServoCommand("disable <servo>", "Stop driving a servo",
		`Stop the pulses of a servo. The last pulse is kept for the next enable.`,
		0, func(name string, _ []string) (*servo.Status, error) { return apiClient.Disable(name) })
}

func NewMinCommand() *cobra.Command {
	return newServoCommand("min <servo>", "Move a servo to its minimum value", "",
		0, func(name string, _ []string) (*servo.Status, error) { return apiClient.ToMin(name) })
}

func NewMidCommand() *cobra.Command {
	return newServoCommand("mid <servo>", "Move a servo to its mid value", "",
		0, func(name string, _ []string) (*servo.Status, error) { return apiClient.ToMid(name) })
}

func NewMaxCommand() *cobra.Command {
	return newServoCommand("max <servo>", "Move a servo to its maximum value", "",
		0, func(name string, _ []string) (*servo.Status, error) { return apiClient.ToMax(name) })
}
