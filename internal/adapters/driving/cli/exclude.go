package cli

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/adwatch/adwatch/internal/core/domain"
)

var excludeReason string

var excludeCmd = &cobra.Command{
	Use:   "exclude",
	Short: "Manage excluded listings",
	Long: `An excluded listing is silenced forever: it is never notified again,
even if it vanishes from the site and reappears later.`,
	RunE: runExcludeList,
}

var excludeListCmd = &cobra.Command{
	Use:   "list",
	Short: "List excluded listings",
	RunE:  runExcludeList,
}

var excludeAddCmd = &cobra.Command{
	Use:   "add <listing-id>",
	Short: "Exclude a listing",
	Args:  cobra.ExactArgs(1),
	RunE:  runExcludeAdd,
}

var excludeRemoveCmd = &cobra.Command{
	Use:   "remove <listing-id>",
	Short: "Remove an exclusion",
	Long: `Removes the exclusion for a listing. If the listing is still on the
site and was never persisted, it surfaces as new on the next run.`,
	Args: cobra.ExactArgs(1),
	RunE: runExcludeRemove,
}

func init() {
	excludeAddCmd.Flags().StringVarP(&excludeReason, "reason", "r", "", "why the listing is excluded")
	excludeCmd.AddCommand(excludeListCmd)
	excludeCmd.AddCommand(excludeAddCmd)
	excludeCmd.AddCommand(excludeRemoveCmd)
	rootCmd.AddCommand(excludeCmd)
}

func runExcludeList(cmd *cobra.Command, _ []string) error {
	if exclusionManager == nil {
		return errors.New("exclusion service not configured")
	}

	exclusions, err := exclusionManager.List(cmd.Context())
	if err != nil {
		return fmt.Errorf("listing exclusions: %w", err)
	}

	if len(exclusions) == 0 {
		cmd.Println("No excluded listings.")
		return nil
	}

	table := newTable(cmd.OutOrStdout(), []string{"Listing", "Reason", "Excluded At"})
	for _, e := range exclusions {
		reason := e.Reason
		if reason == "" {
			reason = "-"
		}
		table.Append([]string{e.ListingID, reason, e.CreatedAt.Local().Format("2006-01-02 15:04")})
	}
	table.Render()
	return nil
}

func runExcludeAdd(cmd *cobra.Command, args []string) error {
	if exclusionManager == nil {
		return errors.New("exclusion service not configured")
	}

	listingID := strings.TrimSpace(args[0])
	if err := exclusionManager.Add(cmd.Context(), listingID, excludeReason); err != nil {
		if errors.Is(err, domain.ErrInvalidInput) {
			return errors.New("listing id must not be empty")
		}
		return fmt.Errorf("excluding listing: %w", err)
	}

	cmd.Printf("Listing %s excluded. It will never be notified again.\n", listingID)
	return nil
}

func runExcludeRemove(cmd *cobra.Command, args []string) error {
	if exclusionManager == nil {
		return errors.New("exclusion service not configured")
	}

	listingID := strings.TrimSpace(args[0])
	if err := exclusionManager.Remove(cmd.Context(), listingID); err != nil {
		if errors.Is(err, domain.ErrInvalidInput) {
			return errors.New("listing id must not be empty")
		}
		return fmt.Errorf("removing exclusion: %w", err)
	}

	cmd.Printf("Exclusion for %s removed.\n", listingID)
	return nil
}
