package main

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"saldo/internal/amqp"
	"saldo/internal/backend"
	"saldo/internal/cli"
	"saldo/internal/config"
	"saldo/internal/core"
	"saldo/internal/log"
	"saldo/internal/ports"
	"saldo/internal/services"
)

// app bundles what every command needs: config, logger and an open backend.
type app struct {
	cfg       *config.Config
	logger    *log.Logger
	backend   *backend.BackendResult
	publisher *amqp.Client
	// events replaces publisher in ledgers when set.
	events ports.EventPublisher
	// origin tags the events of this process.
	origin string
}

func setup(ctx context.Context) (*app, error) {
	cfg, err := cli.LoadAndValidateConfig()
	if err != nil {
		return nil, err
	}
	logger := cli.SetupLogger(cfg)

	bcfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		return nil, err
	}
	res, err := backend.NewFactory(logger).CreateBackend(ctx, bcfg)
	if err != nil {
		return nil, err
	}
	return &app{cfg: cfg, logger: logger, backend: res, origin: uuid.NewString()}, nil
}

// connectPublisher opens the AMQP publisher when AMQP_URL is set. A broker
// that cannot be reached only disables event publication.
func (a *app) connectPublisher() {
	if a.cfg.AMQPURL == "" {
		a.logger.Info("AMQP disabled - no AMQP_URL provided")
		return
	}
	client, err := amqp.NewClient(a.cfg.AMQPURL, a.cfg.AMQPExchange, a.cfg.AMQPQueue, a.logger)
	if err != nil {
		a.logger.Warn("Failed to initialize AMQP client, continuing without events", log.FieldError, err)
		return
	}
	a.logger.Info("Initialized AMQP client", "exchange", a.cfg.AMQPExchange, "queue", a.cfg.AMQPQueue)
	a.publisher = client
}

// ledgerOptions are applied to every ledger the command opens.
func (a *app) ledgerOptions() []services.LedgerOption {
	opts := []services.LedgerOption{
		services.WithLogger(a.logger.WithComponent(log.ComponentLedger)),
		services.WithOrigin(a.origin),
	}
	switch {
	case a.events != nil:
		opts = append(opts, services.WithPublisher(a.events))
	case a.publisher != nil:
		opts = append(opts, services.WithPublisher(a.publisher))
	}
	return opts
}

// ledger opens and loads the ledger of owner.
func (a *app) ledger(ctx context.Context, owner string) (*services.Ledger, error) {
	l, err := services.NewLedger(owner, a.backend.Repository, a.ledgerOptions()...)
	if err != nil {
		return nil, err
	}
	if err := l.Load(ctx); err != nil {
		return nil, fmt.Errorf("load ledger: %w", err)
	}
	return l, nil
}

func (a *app) Close() {
	if a.publisher != nil {
		if err := a.publisher.Close(); err != nil {
			a.logger.Warn("Failed to close AMQP client", log.FieldError, err)
		}
	}
	if err := a.backend.Close(); err != nil {
		a.logger.Warn("Failed to close backend", log.FieldError, err)
	}
}

// addOwnerFlag registers the required --owner flag.
func addOwnerFlag(cmd *cobra.Command) {
	cmd.Flags().String("owner", "", "owner (user id) of the ledger")
	_ = cmd.MarkFlagRequired("owner")
}

// addPeriodFlags registers --month (0-11) and --year, both defaulting to
// the current month.
func addPeriodFlags(cmd *cobra.Command) {
	cmd.Flags().Int("month", -1, "month, 0 (January) to 11 (December); defaults to the current month")
	cmd.Flags().Int("year", 0, "year; defaults to the current year")
}

func periodFlags(cmd *cobra.Command, now time.Time) (month, year int, err error) {
	today := core.DateOf(now)
	month, _ = cmd.Flags().GetInt("month")
	year, _ = cmd.Flags().GetInt("year")
	if month == -1 {
		month = today.MonthIndex()
	}
	if year == 0 {
		year = today.Year()
	}
	if month < 0 || month > 11 {
		return 0, 0, fmt.Errorf("month must be between 0 and 11, got %d", month)
	}
	if year < 1 || year > 9999 {
		return 0, 0, fmt.Errorf("year must be between 1 and 9999, got %d", year)
	}
	return month, year, nil
}
