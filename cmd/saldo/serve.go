package main

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/sync/errgroup"

	"saldo/internal/amqp"
	"saldo/internal/cache"
	"saldo/internal/cli"
	apphttp "saldo/internal/http"
	"saldo/internal/log"
	"saldo/internal/realtime"
	"saldo/internal/services"
)

const (
	cacheSweepInterval = 5 * time.Minute
	resubscribeDelay   = 5 * time.Second
)

func serveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the JSON API server",
		Args:  cobra.NoArgs,
		RunE:  runServe,
	}
	cmd.Flags().String("port", "", "listen port")
	_ = viper.BindPFlag("PORT", cmd.Flags().Lookup("port"))
	return cmd
}

func runServe(cmd *cobra.Command, _ []string) error {
	a, err := setup(cmd.Context())
	if err != nil {
		return err
	}
	defer a.Close()

	ctx, cancel := cli.SignalContext(cmd.Context(), a.logger)
	defer cancel()
	a.connectPublisher()
	var outbox *amqp.Outbox
	if a.publisher != nil {
		outbox = amqp.NewOutbox(a.publisher, amqp.DefaultOutboxSize, a.logger)
		a.events = outbox
	}

	hub := realtime.NewHub(a.logger)
	ledgers := services.NewLedgerManager(a.backend.Repository, a.cfg.LedgerCacheSize, a.cfg.LedgerCacheTTL, a.logger,
		append(a.ledgerOptions(), services.WithNotifier(hub))...)

	caches := cache.NewManager(a.logger)
	caches.Register(ledgers.Cleaner())
	caches.StartCleanup(cacheSweepInterval)
	defer caches.Stop()

	srv := apphttp.NewServer(apphttp.Config{
		Addr:               ":" + a.cfg.Port,
		RateLimitPerMinute: a.cfg.RateLimitPerMinute,
		ReadyCheck:         a.backend.Ping,
	}, ledgers, hub, a.logger)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		hub.Run(gctx)
		return nil
	})
	if outbox != nil {
		g.Go(func() error {
			outbox.Run(gctx)
			return nil
		})
		g.Go(func() error {
			followLedgerEvents(gctx, a, ledgers)
			return nil
		})
	}
	g.Go(func() error {
		a.logger.Info("Starting saldo server",
			"port", a.cfg.Port,
			"backend", a.cfg.DataBackend,
			log.FieldOperation, log.OpStartup)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		return cli.GracefulShutdown(gctx, a.logger, cli.DefaultShutdownTimeout, func(ctx context.Context) error {
			return srv.Shutdown(ctx)
		})
	})

	if err := g.Wait(); err != nil {
		a.logger.Error("Server error", log.FieldError, err, "port", a.cfg.Port)
		return err
	}
	a.logger.Info("Server stopped gracefully")
	return nil
}

// followLedgerEvents invalidates cached ledgers changed by other processes,
// such as an import or another server on the same database. The
// subscription is renewed until ctx is done.
func followLedgerEvents(ctx context.Context, a *app, ledgers *services.LedgerManager) {
	handle := func(ctx context.Context, msg *amqp.LedgerEventMessage) error {
		ledgers.HandleLedgerEvent(ctx, msg.LedgerEvent, a.origin)
		return nil
	}
	for {
		err := a.publisher.SubscribeLedgerEvents(ctx, handle)
		if ctx.Err() != nil {
			return
		}
		a.logger.Warn("Ledger event subscription ended, retrying",
			log.FieldError, err, "delay", resubscribeDelay)
		select {
		case <-ctx.Done():
			return
		case <-time.After(resubscribeDelay):
		}
	}
}
