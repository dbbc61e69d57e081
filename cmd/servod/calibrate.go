package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/olekukonko/tablewriter"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/servokit/servod/pkg/calibration"
	"github.com/servokit/servod/pkg/config"
	"github.com/servokit/servod/pkg/types"
	"github.com/servokit/servod/pkg/utils/ptr"
)

func NewCalibrationCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "calibration",
		Aliases: []string{"calibrate", "cali"},
		Short:   "Show or change servo calibrations",
		Long: `Show or change servo calibrations.

A calibration is a table of (pulse, value) points, both strictly ascending.
Values between points are interpolated. Beyond the first and last points each
side either clamps or extrapolates. Changes are saved to the daemon config.`,
		GroupID: gCalibration,
	}

	cmd.AddCommand(
		newCalibrationShowCommand(),
		newCalibrationSetPointCommand(),
		newCalibrationUniformCommand(),
		newCalibrationDefaultCommand(),
		newCalibrationLimitsCommand(),
		newCalibrationLoadCommand(),
	)

	return cmd
}

func printCalibration(cmd *cobra.Command, name string, cc *config.CalibrationConfig) {
	cmd.Println(bold("Calibration of %s:", name))
	renderCalibrationTable(cmd.OutOrStdout(), cc)
	cmd.Printf("  Clamp below first point: %s\n", bool2Text(ptr.Deref(cc.LimitLower, true)))
	cmd.Printf("  Clamp above last point: %s\n", bool2Text(ptr.Deref(cc.LimitUpper, true)))
}

func renderCalibrationTable(w io.Writer, cc *config.CalibrationConfig) {
	table := tablewriter.NewWriter(w)
	table.SetColWidth(20)
	table.SetHeader([]string{"#", "Pulse (µs)", "Value"})
	for i, p := range cc.Points {
		table.Append([]string{strconv.Itoa(i), formatFloat(p.Pulse), formatFloat(p.Value)})
	}
	table.Render()
}

func newCalibrationShowCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "show <servo>",
		Short: "Show the calibration table of a servo",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cc, err := apiClient.GetCalibration(args[0])
			if err != nil {
				return err
			}
			printCalibration(cmd, args[0], cc)
			return nil
		},
	}
}

func newCalibrationSetPointCommand() *cobra.Command {
	return &cobra.Command{
		Use:     "set-point <servo> <index> <pulse> <value>",
		Short:   "Replace one point of a calibration table",
		Example: `  servod calibration set-point pan 0 560 -90`,
		Args:    cobra.ExactArgs(4),
		RunE: func(cmd *cobra.Command, args []string) error {
			i, err := parseIntArg(args[1], "index")
			if err != nil {
				return err
			}
			pulse, err := parseFloatArg(args[2], "pulse")
			if err != nil {
				return err
			}
			value, err := parseFloatArg(args[3], "value")
			if err != nil {
				return err
			}

			cc, err := apiClient.SetCalibrationPoint(args[0], i, calibration.Point{Pulse: pulse, Value: value})
			if err != nil {
				return fmt.Errorf("failed to set point %d: %w", i, err)
			}
			printCalibration(cmd, args[0], cc)
			return nil
		},
	}
}

func newCalibrationUniformCommand() *cobra.Command {
	var req types.UniformRequest

	cmd := &cobra.Command{
		Use:     "uniform <servo>",
		Short:   "Replace a calibration with evenly spaced points",
		Example: `  servod calibration uniform pan --points 5 --min-pulse 600 --max-pulse 2400 --min-value -90 --max-value 90`,
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cc, err := apiClient.SetUniformCalibration(args[0], req)
			if err != nil {
				return fmt.Errorf("failed to set uniform calibration: %w", err)
			}
			printCalibration(cmd, args[0], cc)
			return nil
		},
	}

	f := cmd.Flags()
	f.IntVar(&req.Points, "points", 3, "number of points, at least 2")
	f.Float64Var(&req.MinPulse, "min-pulse", calibration.DefaultMinPulse, "pulse of the first point")
	f.Float64Var(&req.MaxPulse, "max-pulse", calibration.DefaultMaxPulse, "pulse of the last point")
	f.Float64Var(&req.MinValue, "min-value", -calibration.DefaultValueExtent, "value of the first point")
	f.Float64Var(&req.MaxValue, "max-value", calibration.DefaultValueExtent, "value of the last point")

	return cmd
}

func newCalibrationDefaultCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "default <servo>",
		Short: "Reset a calibration to the default of the servo type",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cc, err := apiClient.SetDefaultCalibration(args[0])
			if err != nil {
				return fmt.Errorf("failed to reset calibration: %w", err)
			}
			printCalibration(cmd, args[0], cc)
			return nil
		},
	}
}

func newCalibrationLimitsCommand() *cobra.Command {
	var lower, upper bool

	cmd := &cobra.Command{
		Use:   "limits <servo>",
		Short: "Choose whether each end of a calibration clamps or extrapolates",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cc, err := apiClient.SetLimits(args[0], lower, upper)
			if err != nil {
				return fmt.Errorf("failed to set limits: %w", err)
			}
			printCalibration(cmd, args[0], cc)
			return nil
		},
	}

	cmd.Flags().BoolVar(&lower, "lower", true, "clamp values below the first point")
	cmd.Flags().BoolVar(&upper, "upper", true, "clamp values above the last point")

	return cmd
}

func newCalibrationLoadCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "load <servo> <file>",
		Short: "Replace a calibration with one read from a JSON file",
		Long: `Replace a calibration with one read from a JSON file, "-" for stdin.

The file has the same shape as the calibration entry of a servo in the config:
{"points": [{"pulse": 500, "value": -90}, ...], "limitLower": true, "limitUpper": true}`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			var r io.Reader = cmd.InOrStdin()
			if args[1] != "-" {
				f, err := os.Open(args[1])
				if err != nil {
					return err
				}
				defer f.Close()
				r = f
			}

			var req config.CalibrationConfig
			if err := json.NewDecoder(r).Decode(&req); err != nil {
				return fmt.Errorf("failed to parse calibration: %w", err)
			}
			if err := req.Validate(); err != nil {
				return fmt.Errorf("invalid calibration: %w", err)
			}

			cc, err := apiClient.SetCalibration(args[0], req)
			if err != nil {
				return fmt.Errorf("failed to set calibration: %w", err)
			}
			logrus.WithField("servo", args[0]).Debugf("calibration loaded from %s", args[1])
			printCalibration(cmd, args[0], cc)
			return nil
		},
	}
}
