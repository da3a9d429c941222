package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"saldo/internal/cli"
)

var rootCmd = &cobra.Command{
	Use:   "saldo",
	Short: "Personal finance ledger",
	Long: `saldo records income and expense transactions per owner and reports
monthly balances and category breakdowns.

Configuration comes from the environment (and a local .env file); the flags
below override it.`,
	SilenceUsage: true,
	PersistentPreRun: func(*cobra.Command, []string) {
		cli.LoadEnvFile()
	},
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.String("backend", "", "data backend (memory, sqlite, postgres)")
	flags.String("sqlite-path", "", "SQLite database file")
	flags.String("postgres-url", "", "Postgres connection URL")
	flags.String("log-level", "", "log level (debug, info, warn, error)")
	flags.String("log-format", "", "log format (text, json)")

	_ = viper.BindPFlag("DATA_BACKEND", flags.Lookup("backend"))
	_ = viper.BindPFlag("SQLITE_DB_PATH", flags.Lookup("sqlite-path"))
	_ = viper.BindPFlag("POSTGRES_URL", flags.Lookup("postgres-url"))
	_ = viper.BindPFlag("LOG_LEVEL", flags.Lookup("log-level"))
	_ = viper.BindPFlag("LOG_FORMAT", flags.Lookup("log-format"))

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(migrateCmd())
	rootCmd.AddCommand(summaryCmd())
	rootCmd.AddCommand(importCmd())
	rootCmd.AddCommand(categoriesCmd())
	rootCmd.AddCommand(syncCmd())
}

func main() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
