package main

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
)

func NewScheduleCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "schedule",
		Aliases: []string{"sch", "sched"},
		Short:   "Show or skip scheduled servo actions",
		Long: `Show or skip scheduled servo actions.

Schedules are configured in the "schedules" list of the daemon config, one cron
expression, servo and action per entry. Send SIGHUP to the daemon after editing
the file to reload them.`,
		Example: `  {"cron": "0 8 * * *", "servo": "blind", "action": "max"}
  {"cron": "@every 30m", "servo": "pan", "action": "value", "arg": 45}`,
		GroupID: gAdvanced,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runScheduleShow(cmd)
		},
	}

	cmd.AddCommand(
		&cobra.Command{
			Use:   "show",
			Short: "Show the running schedules and their next run",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				return runScheduleShow(cmd)
			},
		},
		&cobra.Command{
			Use:   "skip <index>",
			Short: "Skip the next run of a schedule",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				i, err := parseIntArg(args[0], "index")
				if err != nil {
					return err
				}
				if err := apiClient.SkipSchedule(i); err != nil {
					return fmt.Errorf("failed to skip schedule %d: %w", i, err)
				}
				cmd.Printf("Next run of schedule %d skipped.\n", i)
				return nil
			},
		},
	)

	return cmd
}

func runScheduleShow(cmd *cobra.Command) error {
	list, err := apiClient.GetSchedules()
	if err != nil {
		return err
	}
	if len(list) == 0 {
		cmd.Println("No schedules are configured.")
		return nil
	}

	table := tablewriter.NewWriter(os.Stdout)
	table.SetColWidth(20)
	table.SetHeader([]string{"#", "Cron", "Servo", "Action", "Arg", "Next run"})
	for _, s := range list {
		table.Append([]string{
			strconv.Itoa(s.Index),
			s.Cron,
			s.Servo,
			s.Action,
			formatFloat(s.Arg),
			s.NextRun.Local().Format(time.DateTime),
		})
	}
	table.Render()
	return nil
}
