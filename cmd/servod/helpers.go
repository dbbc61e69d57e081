package main

import (
	"fmt"
	"strconv"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/servokit/servod/pkg/servo"
)

func parseIntArg(arg string, valueName string) (int, error) {
	value, err := strconv.Atoi(arg)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %v", valueName, err)
	}
	return value, nil
}

func parseFloatArg(arg string, valueName string) (float64, error) {
	value, err := strconv.ParseFloat(arg, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %v", valueName, err)
	}
	return value, nil
}

// printServo prints the state a command left a servo in.
func printServo(cmd *cobra.Command, st *servo.Status) {
	cmd.Printf("%s: %s  value %s  pulse %s\n",
		bold("%s", st.Name), state2Text(st.State), bold("%g", st.Value), bold("%gµs", st.Pulse))
}

func state2Text(s servo.State) string {
	if s == servo.Enabled {
		return color.New(color.Bold, color.FgGreen).Sprint(s.String())
	}
	return color.New(color.Bold, color.FgRed).Sprint(s.String())
}

func bool2Text(b bool) string {
	if b {
		return color.New(color.Bold, color.FgGreen).Sprint("✔")
	}
	return color.New(color.Bold, color.FgRed).Sprint("✘")
}

func bold(format string, a ...interface{}) string {
	return color.New(color.Bold).Sprintf(format, a...)
}
