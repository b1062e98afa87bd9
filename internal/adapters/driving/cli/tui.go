package cli

import (
	"errors"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/adwatch/adwatch/internal/adapters/driving/tui"
)

var tuiCmd = &cobra.Command{
	Use:   "tui",
	Short: "Browse stored listings interactively",
	Long: `Launches the interactive listing browser.

Controls:
  ↑/k, ↓/j - Navigate listings
  x        - Exclude the selected listing
  u        - Remove the exclusion
  r        - Reload
  /        - Filter
  q        - Quit`,
	RunE: runTUI,
}

func init() {
	rootCmd.AddCommand(tuiCmd)
}

func runTUI(cmd *cobra.Command, _ []string) error {
	if listingStore == nil {
		return errors.New("listing store not configured")
	}

	app := tui.New(cmd.Context(), &tui.Ports{
		Listings:   listingStore,
		Exclusions: exclusionManager,
	})

	program := tea.NewProgram(app, tea.WithAltScreen())
	if _, err := program.Run(); err != nil {
		return fmt.Errorf("running browser: %w", err)
	}
	return nil
}
