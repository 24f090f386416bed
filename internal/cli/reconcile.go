package cli

import (
	"fmt"

	"github.com/school-portal/portal-backend/internal/app"
	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(reconcileCmd)
}

var reconcileCmd = &cobra.Command{
	Use:   "reconcile",
	Short: "Compare every account balance with its ledger",
	Long: `Sum each student's ledger entries and compare the total with the stored
balance. Exits non-zero when any account disagrees.`,
	Args: cobra.NoArgs,
	RunE: runReconcile,
}

func runReconcile(cmd *cobra.Command, _ []string) error {
	mismatches, err := app.Reconcile(cmd.Context(), appConfig())
	if err != nil {
		return err
	}
	if len(mismatches) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "ledger consistent")
		return nil
	}
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "%-12s %12s %12s %14s\n", "STUDENT", "BALANCE", "LEDGER SUM", "BROKEN ENTRY")
	for _, m := range mismatches {
		fmt.Fprintf(out, "%-12d %12d %12d %14d\n", m.StudentID, m.Balance, m.LedgerSum, m.BrokenEntryID)
	}
	return fmt.Errorf("%d account(s) out of balance", len(mismatches))
}
