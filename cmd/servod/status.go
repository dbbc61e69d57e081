package main

import (
	"fmt"
	"io"
	"strconv"

	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/servokit/servod/pkg/config"
	"github.com/servokit/servod/pkg/servo"
)

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'g', 6, 64)
}

func renderServoTable(w io.Writer, list []servo.Status) {
	table := tablewriter.NewWriter(w)
	table.SetColWidth(20)
	table.SetHeader([]string{"Name", "Pin", "Type", "State", "Value", "Pulse (µs)", "Level", "Range"})
	for _, st := range list {
		table.Append([]string{
			st.Name,
			strconv.Itoa(int(st.Pin)),
			st.Type.String(),
			st.State.String(),
			formatFloat(st.Value),
			formatFloat(st.Pulse),
			strconv.FormatUint(uint64(st.Level), 10),
			fmt.Sprintf("%s..%s", formatFloat(st.MinValue), formatFloat(st.MaxValue)),
		})
	}
	table.Render()
}

func NewListCommand() *cobra.Command {
	return &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List servos and their state",
		GroupID: gServo,
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			list, err := apiClient.ListServos()
			if err != nil {
				return err
			}
			renderServoTable(cmd.OutOrStdout(), list)
			return nil
		},
	}
}

func NewStatusCommand() *cobra.Command {
	return &cobra.Command{
		Use:     "status [servo]",
		GroupID: gServo,
		Short:   "Get the status of the daemon or of one servo",
		Args:    cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 1 {
				st, err := apiClient.GetServo(args[0])
				if err != nil {
					return err
				}
				printServoDetail(cmd, st)
				return nil
			}

			rawConf, err := apiClient.GetConfig()
			if err != nil {
				return fmt.Errorf("failed to get config: %w", err)
			}
			list, err := apiClient.ListServos()
			if err != nil {
				return fmt.Errorf("failed to list servos: %w", err)
			}

			conf := config.NewFileFromConfig(rawConf, "")
			drv := conf.Driver()

			cmd.Println(bold("Daemon configuration:"))
			cmd.Printf("  Driver: %s\n", bold("%s", drv.Kind))
			if drv.Device != "" {
				cmd.Printf("  Device: %s\n", bold("%s", drv.Device))
			}
			if conf.IdleTimeout() > 0 {
				cmd.Printf("  Idle timeout: %s\n", bold("%s", conf.IdleTimeout()))
			} else {
				cmd.Printf("  Idle timeout: %s\n", bold("never"))
			}
			cmd.Printf("  Allow non-root users to access the daemon: %s\n", bool2Text(conf.AllowNonRootAccess()))
			cmd.Printf("  Schedules: %s\n", bold("%d", len(conf.Schedules())))
			cmd.Println()

			cmd.Println(bold("Servos:"))
			renderServoTable(cmd.OutOrStdout(), list)
			return nil
		},
	}
}

func printServoDetail(cmd *cobra.Command, st *servo.Status) {
	cmd.Println(bold("Servo %s:", st.Name))
	cmd.Printf("  Pin: %s\n", bold("%d", st.Pin))
	cmd.Printf("  Type: %s\n", bold("%s", st.Type))
	cmd.Printf("  State: %s\n", state2Text(st.State))
	cmd.Printf("  Value: %s\n", bold("%g", st.Value))
	cmd.Printf("  Pulse: %s\n", bold("%gµs", st.Pulse))
	cmd.Printf("  Level: %s\n", bold("%d", st.Level))
	cmd.Printf("  Range: %s\n", bold("%g .. %g .. %g", st.MinValue, st.MidValue, st.MaxValue))
	if st.Fault != "" {
		cmd.Printf("  Driver fault: %s\n", color.RedString(st.Fault))
	}
}
