package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
)

var (
	listingsLimit       int
	listingsShowRemoved bool
)

var listingsCmd = &cobra.Command{
	Use:   "listings",
	Short: "Browse stored listings",
	RunE:  runListingsList,
}

var listingsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List stored listings, newest first",
	RunE:  runListingsList,
}

var listingsExportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export all stored listings as JSON",
	RunE:  runListingsExport,
}

func init() {
	listingsListCmd.Flags().IntVarP(&listingsLimit, "limit", "n", 20, "maximum listings to show, 0 for all")
	listingsListCmd.Flags().BoolVar(&listingsShowRemoved, "removed", false, "show only listings gone from the site")
	listingsCmd.AddCommand(listingsListCmd)
	listingsCmd.AddCommand(listingsExportCmd)
	rootCmd.AddCommand(listingsCmd)
}

func runListingsList(cmd *cobra.Command, _ []string) error {
	if listingStore == nil {
		return errors.New("listing store not configured")
	}

	all, err := listingStore.All(cmd.Context())
	if err != nil {
		return fmt.Errorf("loading listings: %w", err)
	}

	table := newTable(cmd.OutOrStdout(), []string{"ID", "Title", "Price", "Address", "Rooms", "First Seen"})
	shown := 0
	for i := range all {
		l := &all[i]
		if listingsShowRemoved && l.RemovedAt == nil {
			continue
		}
		if listingsLimit > 0 && shown >= listingsLimit {
			break
		}
		title := l.Title
		if l.RemovedAt != nil {
			title += " (removed)"
		}
		table.Append([]string{
			l.ID,
			title,
			strconv.Itoa(l.Price),
			l.ShortAddress(),
			strconv.FormatFloat(l.Rooms, 'f', -1, 64),
			l.FetchedAt.Local().Format("2006-01-02"),
		})
		shown++
	}

	if shown == 0 {
		cmd.Println("No listings stored yet. Run 'adwatch run' to fetch some.")
		return nil
	}

	table.Render()
	cmd.Printf("\n%d of %d listings shown.\n", shown, len(all))
	return nil
}

func runListingsExport(cmd *cobra.Command, _ []string) error {
	if listingStore == nil {
		return errors.New("listing store not configured")
	}

	all, err := listingStore.All(cmd.Context())
	if err != nil {
		return fmt.Errorf("loading listings: %w", err)
	}

	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(all)
}
