package cli

import (
	"errors"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/adwatch/adwatch/internal/core/domain"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the pipeline once",
	Long: `Fetches the current listing set, classifies each listing as new,
known or excluded, persists the new ones and sends a notification per
new listing. The run is recorded whether it succeeds or fails.`,
	RunE: runRun,
}

func init() {
	rootCmd.AddCommand(runCmd)
}

func runRun(cmd *cobra.Command, _ []string) error {
	if runOrchestrator == nil {
		return errors.New("run service not configured")
	}

	cmd.Println("Checking for new listings...")

	record, err := runOrchestrator.Run(cmd.Context())
	if err != nil {
		if errors.Is(err, domain.ErrRunInProgress) {
			return errors.New("a run is already in progress")
		}
		if record != nil {
			printRunRecord(cmd, record)
		}
		return err
	}

	printRunRecord(cmd, record)
	return nil
}

func printRunRecord(cmd *cobra.Command, record *domain.RunRecord) {
	if record.Failed() {
		color.New(color.FgRed).Fprintf(cmd.OutOrStdout(), "Run failed: %s\n", record.Error)
	} else {
		color.New(color.FgGreen).Fprintln(cmd.OutOrStdout(), "Run completed")
	}

	cmd.Printf("  Fetched:  %d\n", record.FetchedCount)
	cmd.Printf("  New:      %d\n", record.NewCount)
	cmd.Printf("  Known:    %d\n", record.KnownCount)
	cmd.Printf("  Excluded: %d\n", record.ExcludedCount)
	if record.RemovedCount > 0 {
		cmd.Printf("  Removed:  %d\n", record.RemovedCount)
	}
	if len(record.NotifyFailures) > 0 {
		color.New(color.FgYellow).Fprintf(cmd.OutOrStdout(),
			"  %d notification(s) failed; the listings are persisted and will not be re-sent\n",
			len(record.NotifyFailures))
	}
	cmd.Printf("  Duration: %s\n", formatDuration(record.Duration()))
}
