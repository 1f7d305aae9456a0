package cmd

import (
	"errors"
	"fmt"
	"strings"

	"github.com/KaramelBytes/dataloom-cli/internal/history"
	"github.com/spf13/cobra"
)

var histLimit int

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List recent runs",
	RunE: func(cmd *cobra.Command, args []string) error {
		st, err := openHistory()
		if err != nil {
			return err
		}
		defer func() { _ = st.Close() }()
		runs, err := st.ListRuns(cmd.Context(), histLimit)
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		if len(runs) == 0 {
			fmt.Fprintln(out, "No runs recorded yet.")
			return nil
		}
		printRuns(out, runs)
		return nil
	},
}

var historyShowCmd = &cobra.Command{
	Use:   "show <run-id>",
	Short: "Show one run with its scores and charts",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		st, err := openHistory()
		if err != nil {
			return err
		}
		defer func() { _ = st.Close() }()
		r, err := st.GetRun(cmd.Context(), args[0])
		if errors.Is(err, history.ErrRunNotFound) {
			return fmt.Errorf("no run with id %s", args[0])
		}
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		heading(out, "Run "+r.ID)
		fmt.Fprintf(out, "Dataset: %s\n", r.Dataset)
		fmt.Fprintf(out, "Mode: %s\n", r.Mode)
		fmt.Fprintf(out, "Shape: %d rows x %d columns\n", r.Rows, r.Columns)
		fmt.Fprintf(out, "Started: %s\n", r.StartedAt.Local().Format("2006-01-02 15:04:05"))
		fmt.Fprintf(out, "Finished: %s\n", r.FinishedAt.Local().Format("2006-01-02 15:04:05"))
		fmt.Fprintf(out, "Output: %s\n", r.OutputDir)
		fmt.Fprintf(out, "Report: %s\n", r.ReportPath)
		if r.Target != "" {
			fmt.Fprintf(out, "Target: %s (%s)\n", r.Target, r.Task)
		}
		if len(r.Scores) > 0 {
			t := newTable(out, "Model", "Train score", "Test score")
			for _, s := range r.Scores {
				t.Append([]string{s.Model, fmtNum(s.Train), fmtNum(s.Test)})
			}
			t.Render()
		}
		if len(r.Charts) > 0 {
			fmt.Fprintf(out, "Charts (%d):\n  %s\n", len(r.Charts), strings.Join(r.Charts, "\n  "))
		}
		return nil
	},
}

func openHistory() (*history.Store, error) {
	c, err := config()
	if err != nil {
		return nil, err
	}
	if c.HistoryDB == "" {
		return nil, errors.New("history_db is not configured")
	}
	return history.Open(c.HistoryDB)
}

func init() {
	rootCmd.AddCommand(historyCmd)
	historyCmd.AddCommand(historyShowCmd)
	historyCmd.Flags().IntVar(&histLimit, "limit", 20, "maximum number of runs to list")
}
