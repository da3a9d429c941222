package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"saldo/internal/report"
)

func summaryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "summary",
		Short: "Print the monthly balance and category breakdown",
		Example: `  saldo summary --owner alice
  saldo summary --owner alice --month 0 --year 2024`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			month, year, err := periodFlags(cmd, time.Now())
			if err != nil {
				return err
			}
			owner, _ := cmd.Flags().GetString("owner")

			a, err := setup(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			l, err := a.ledger(cmd.Context(), owner)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), report.NewMonthly(l, month, year).Render())
			return nil
		},
	}
	addOwnerFlag(cmd)
	addPeriodFlags(cmd)
	return cmd
}
