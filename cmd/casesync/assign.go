package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

var assignCmd = &cobra.Command{
	Use:   "assign <case-id> <investigator-id>",
	Short: "Assign an investigator to a case",
	Long: `Assign creates the assignment on the backend and records it in the local
pending overlay, where it stays until the backend lists it as confirmed or
the retention window passes. The case identifier may be a case id, a legacy
case code or a case number.`,
	Args: cobra.ExactArgs(2),
	RunE: runAssign,
}

func init() {
	assignCmd.Flags().String("date", "", "assignment date (YYYY-MM-DD or RFC 3339, default now)")
	assignCmd.Flags().Bool("refresh", false, "run a full reconcile first so the investigator name resolves")

	rootCmd.AddCommand(assignCmd)
}

func runAssign(cmd *cobra.Command, args []string) error {
	date := time.Now()
	if s, _ := cmd.Flags().GetString("date"); s != "" {
		parsed, err := parseDate(s)
		if err != nil {
			return err
		}
		date = parsed
	}
	verbose, _ := cmd.Flags().GetBool("verbose")

	a, err := setup(cmd.Context(), verbose, cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	defer a.Close()

	if refresh, _ := cmd.Flags().GetBool("refresh"); refresh {
		a.orch.Refresh(cmd.Context())
	}

	p, err := a.orch.Assign(cmd.Context(), args[0], args[1], date)
	if err != nil {
		return err
	}

	who := p.InvestigatorID
	if p.InvestigatorName != "" {
		who = fmt.Sprintf("%s (%s)", p.InvestigatorName, p.InvestigatorID)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Assigned %s to %s; pending until confirmed (%s)\n", p.CaseID, who, p.ID)
	return nil
}

func parseDate(s string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	t, err := time.Parse(time.DateOnly, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid --date %q: use YYYY-MM-DD or RFC 3339", s)
	}
	return t, nil
}
