package main

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"qproject/internal/history"
)

func newStatusCommand(ctx *commandContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "status <directory>",
		Short: "Show workspace layout and recent runs",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			logger, err := ctx.newLogger("", "stdout")
			if err != nil {
				return err
			}
			p, closer, err := ctx.newPipeline(logger)
			if err != nil {
				return err
			}
			defer closer()

			report, err := p.Status(cmd.Context(), args[0])
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Workspace: %s\n\n", report.Root)

			dirRows := make([][]string, 0, len(report.Dirs))
			for _, dir := range report.Dirs {
				dirRows = append(dirRows, []string{dir.Name, yesNo(dir.Present)})
			}
			fmt.Fprintln(out, renderTable([]string{"Directory", "Present"}, dirRows))

			if len(report.Workflows) > 0 {
				fmt.Fprintf(out, "\nWorkflows: %s\n", strings.Join(report.Workflows, ", "))
			}

			if len(report.Recent) > 0 {
				fmt.Fprintln(out)
				fmt.Fprintln(out, renderTable(
					[]string{"Job", "Workflow", "Outcome", "Exit", "Delivered", "Started"},
					historyRows(report.Recent),
				))
			}
			return nil
		},
	}
	return cmd
}

func historyRows(entries []history.Entry) [][]string {
	rows := make([][]string, 0, len(entries))
	for _, entry := range entries {
		started := ""
		if !entry.StartedAt.IsZero() {
			started = entry.StartedAt.Local().Format(time.DateTime)
		}
		rows = append(rows, []string{
			shortJobID(entry.JobID),
			entry.Workflow,
			string(entry.Outcome),
			strconv.Itoa(entry.ExitCode),
			yesNo(entry.Delivered),
			started,
		})
	}
	return rows
}

// shortJobID trims a UUID down to its first group for display.
func shortJobID(id string) string {
	if head, _, found := strings.Cut(id, "-"); found {
		return head
	}
	return id
}

func yesNo(value bool) string {
	if value {
		return "yes"
	}
	return "no"
}
