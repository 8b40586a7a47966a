package main

import (
	"github.com/spf13/cobra"
)

var reconcileCmd = &cobra.Command{
	Use:   "reconcile",
	Short: "Fetch, reconcile and print the current case snapshot",
	Long: `Reconcile runs one refresh cycle: it fetches cases, assignments and the
investigator directory, merges records that describe the same case, recovers
cases that assignments reference but the case list lacks, and prints each
case with its investigators. Sources that fail fall back to the last cached
copy.`,
	RunE: runReconcile,
}

func init() {
	reconcileCmd.Flags().StringP("format", "f", formatTable, "output format: table, json, yaml")

	rootCmd.AddCommand(reconcileCmd)
}

func runReconcile(cmd *cobra.Command, args []string) error {
	format, _ := cmd.Flags().GetString("format")
	if err := checkFormat(format); err != nil {
		return err
	}
	verbose, _ := cmd.Flags().GetBool("verbose")

	a, err := setup(cmd.Context(), verbose, cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	defer a.Close()

	snap, _ := a.orch.Refresh(cmd.Context())
	return writeSnapshot(cmd.OutOrStdout(), format, snap)
}
