package cli

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
)

var runsLimit int

var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "Show recent pipeline runs",
	RunE:  runRuns,
}

func init() {
	runsCmd.Flags().IntVarP(&runsLimit, "limit", "n", 10, "maximum runs to show")
	rootCmd.AddCommand(runsCmd)
}

func runRuns(cmd *cobra.Command, _ []string) error {
	if runLog == nil {
		return errors.New("run log not configured")
	}

	records, err := runLog.Recent(cmd.Context(), runsLimit)
	if err != nil {
		return fmt.Errorf("loading run records: %w", err)
	}

	if len(records) == 0 {
		cmd.Println("No runs recorded yet.")
		return nil
	}

	table := newTable(cmd.OutOrStdout(), []string{"Started", "State", "Fetched", "New", "Known", "Excluded", "Duration", "Notes"})
	for i := range records {
		r := &records[i]
		notes := r.Error
		if notes == "" && len(r.NotifyFailures) > 0 {
			notes = strconv.Itoa(len(r.NotifyFailures)) + " delivery failure(s)"
		}
		table.Append([]string{
			r.StartedAt.Local().Format("2006-01-02 15:04:05"),
			string(r.State),
			strconv.Itoa(r.FetchedCount),
			strconv.Itoa(r.NewCount),
			strconv.Itoa(r.KnownCount),
			strconv.Itoa(r.ExcludedCount),
			formatDuration(r.Duration()),
			notes,
		})
	}
	table.Render()
	return nil
}
