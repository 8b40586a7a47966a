package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/pdiddy/casesync/internal/cache"
	"github.com/pdiddy/casesync/pkg/types"
)

var pendingCmd = &cobra.Command{
	Use:   "pending",
	Short: "Inspect and prune locally recorded assignments",
}

var pendingListCmd = &cobra.Command{
	Use:   "list",
	Short: "List pending assignments",
	Long: `List shows pending assignments. By default only entries that are still
active are shown, judged against the last cached assignment list; --all
shows every stored entry.`,
	RunE: runPendingList,
}

var pendingPruneCmd = &cobra.Command{
	Use:   "prune",
	Short: "Drop pending assignments that are confirmed or expired",
	Long: `Prune fetches the confirmed assignment list (falling back to the cached
copy) and removes pending entries it supersedes, along with entries older
than the retention window.`,
	RunE: runPendingPrune,
}

func init() {
	pendingListCmd.Flags().StringP("format", "f", formatTable, "output format: table, json, yaml")
	pendingListCmd.Flags().Bool("all", false, "include expired and superseded entries")

	pendingCmd.AddCommand(pendingListCmd)
	pendingCmd.AddCommand(pendingPruneCmd)
	rootCmd.AddCommand(pendingCmd)
}

func runPendingList(cmd *cobra.Command, args []string) error {
	format, _ := cmd.Flags().GetString("format")
	if err := checkFormat(format); err != nil {
		return err
	}
	all, _ := cmd.Flags().GetBool("all")
	verbose, _ := cmd.Flags().GetBool("verbose")

	a, err := setup(cmd.Context(), verbose, cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	defer a.Close()

	var entries []types.PendingAssignment
	if all {
		entries, err = a.overlay.All(cmd.Context())
	} else {
		var confirmed []types.AssignmentRecord
		if _, err := a.cache.Get(cmd.Context(), cache.SlotAssignments, &confirmed); err != nil {
			a.log.Warn("cached assignments unreadable", "error", err)
		}
		entries, err = a.overlay.ListActive(cmd.Context(), confirmed)
	}
	if err != nil {
		return err
	}
	return writePending(cmd.OutOrStdout(), format, entries)
}

func runPendingPrune(cmd *cobra.Command, args []string) error {
	verbose, _ := cmd.Flags().GetBool("verbose")

	a, err := setup(cmd.Context(), verbose, cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	defer a.Close()

	confirmed, err := a.client.ListAssignments(cmd.Context())
	if err != nil {
		a.log.Warn("fetching assignments failed, using cache", "error", err)
		if _, cerr := a.cache.Get(cmd.Context(), cache.SlotAssignments, &confirmed); cerr != nil {
			return fmt.Errorf("no assignment list to prune against: %w", cerr)
		}
	} else if err := a.cache.Set(cmd.Context(), cache.SlotAssignments, confirmed); err != nil {
		a.log.Warn("cache write failed", "slot", cache.SlotAssignments, "error", err)
	}

	removed, err := a.overlay.Prune(cmd.Context(), confirmed)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Pruned %d pending assignment(s)\n", removed)
	return nil
}
