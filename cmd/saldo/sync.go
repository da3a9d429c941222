package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"saldo/internal/sheets"
	"saldo/internal/worker"
)

func syncCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Rewrite every transaction of an owner into the Google Sheet mirror",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			owner, _ := cmd.Flags().GetString("owner")

			a, err := setup(ctx)
			if err != nil {
				return err
			}
			defer a.Close()
			if !a.cfg.SheetsEnabled() {
				return errors.New("sheet mirror disabled - set GOOGLE_SPREADSHEET_ID")
			}

			exporter, err := sheets.New(ctx, sheets.Config{
				SpreadsheetID:   a.cfg.GoogleSpreadsheetID,
				SheetName:       a.cfg.GoogleSheetName,
				CredentialsJSON: a.cfg.GoogleCredentialsJSON,
				CredentialsFile: a.cfg.GoogleCredentialsFile,
			}, a.logger)
			if err != nil {
				return err
			}

			n, err := worker.NewSyncWorker(a.backend.Repository, exporter, a.logger).Resync(ctx, owner)
			if err != nil {
				return fmt.Errorf("resync after %d transactions: %w", n, err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Synced %d transactions\n", n)
			return nil
		},
	}
	addOwnerFlag(cmd)
	return cmd
}
