package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"saldo/internal/importer"
	"saldo/internal/log"
)

func importCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "import",
		Short: "Import transactions from an OFX/QFX bank statement",
		Long: `Import transactions from an OFX or QFX file exported from your bank.

Debits become expenses and credits become income. Each description ends with
the bank's transaction id (FITID) so imported rows can be traced back.`,
		Example: `  saldo import --owner alice --file ~/Downloads/statement.ofx
  saldo import --owner alice --file jan.qfx --expense-category <id> --dry-run`,
		Args: cobra.NoArgs,
		RunE: runImport,
	}
	addOwnerFlag(cmd)
	cmd.Flags().String("file", "", "OFX or QFX file to import")
	cmd.Flags().String("expense-category", "", "category id for debits (default: first default expense category)")
	cmd.Flags().String("income-category", "", "category id for credits (default: first default income category)")
	cmd.Flags().BoolP("dry-run", "d", false, "preview the import without saving")
	_ = cmd.MarkFlagRequired("file")
	return cmd
}

func runImport(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	owner, _ := cmd.Flags().GetString("owner")
	path, _ := cmd.Flags().GetString("file")
	expenseCategory, _ := cmd.Flags().GetString("expense-category")
	incomeCategory, _ := cmd.Flags().GetString("income-category")
	dryRun, _ := cmd.Flags().GetBool("dry-run")

	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open statement: %w", err)
	}
	defer f.Close()
	lines, err := importer.ParseOFX(f)
	if err != nil {
		return err
	}

	a, err := setup(ctx)
	if err != nil {
		return err
	}
	defer a.Close()
	if !dryRun {
		a.connectPublisher()
	}
	logger := a.logger.WithComponent(log.ComponentImport)

	l, err := a.ledger(ctx, owner)
	if err != nil {
		return err
	}
	res := importer.ToTransactions(lines, l.Categories(), importer.Options{
		OwnerID:           owner,
		ExpenseCategoryID: expenseCategory,
		IncomeCategoryID:  incomeCategory,
	})
	for _, s := range res.Skipped {
		logger.Warn("Skipping statement line", "fitid", s.FITID, log.FieldError, s.Err)
	}

	out := cmd.OutOrStdout()
	if dryRun {
		for _, t := range res.Transactions {
			fmt.Fprintf(out, "%s  %-7s %10s  %s\n", t.OccurredOn, t.Kind, t.Amount, t.Description)
		}
		fmt.Fprintf(out, "%d transactions would be imported, %d skipped\n", len(res.Transactions), len(res.Skipped))
		return nil
	}

	imported := 0
	for _, t := range res.Transactions {
		if _, err := l.AddTransaction(ctx, t); err != nil {
			logger.Warn("Failed to import transaction", "description", t.Description, log.FieldError, err)
			continue
		}
		imported++
	}
	logger.Info("Import finished",
		log.FieldOwnerID, owner,
		log.FieldOperation, log.OpImport,
		"file", path,
		"imported", imported,
		"skipped", len(lines)-imported)
	fmt.Fprintf(out, "Imported %d of %d statement lines\n", imported, len(lines))
	return nil
}
