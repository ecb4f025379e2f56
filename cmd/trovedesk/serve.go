package main

import (
	"os"
	"os/signal"
	"syscall"

	"TroveDesk/internal/notifier"
	"TroveDesk/internal/scheduler"
	"TroveDesk/internal/server"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

func newServeCmd(load configLoader) *cobra.Command {
	var refreshOnStart bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API, scheduled probes and the optional Telegram bot",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := load()
			if err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			a, err := buildApp(ctx, cfg, modeServe)
			if err != nil {
				return err
			}
			defer a.Close()
			a.logger.Info("trovedesk starting", "subgraph", cfg.Subgraph.URL, "chain_id", cfg.Chain.ChainID)

			deps := scheduler.Deps{
				Prices:    a.prices,
				Indexer:   a.subgraph,
				Indicator: a.indicator,
				Recorder:  a.recorder,
				Metrics:   a.metrics,
				Logger:    a.logger.With("component", "scheduler"),
			}
			var tn *notifier.TelegramNotifier
			if cfg.TelegramEnabled() {
				tn = notifier.NewTelegramNotifier(cfg.Telegram.BotToken, cfg.Telegram.ChatID, cfg.Proxy, a.logger.With("component", "telegram"))
				deps.Alerter = tn
			}
			sched := scheduler.NewScheduler(ctx, deps)
			if err := sched.RegisterAll(cfg.Schedule.PriceCron, cfg.Schedule.IndexerCron); err != nil {
				return err
			}
			sched.Start()
			defer sched.Stop()

			if refreshOnStart {
				sched.RunNow()
			}

			srv, err := server.New(server.Config{
				ListenAddress:   cfg.Server.ListenAddress,
				RateLimitRPS:    cfg.Server.RateLimitRPS,
				RateLimitBurst:  cfg.Server.RateLimitBurst,
				ShutdownTimeout: cfg.Server.ShutdownTimeout,
			}, server.Deps{
				Prices:    a.prices,
				Indexer:   a.subgraph,
				Loans:     a.loans,
				Indicator: a.indicator,
				Metrics:   a.metrics,
				Gatherer:  a.registry,
				Logger:    a.logger.With("component", "server"),
			})
			if err != nil {
				return err
			}

			g, gctx := errgroup.WithContext(ctx)
			g.Go(func() error { return srv.Run(gctx) })
			if tn != nil {
				g.Go(func() error {
					tn.StartPolling(gctx, sched.HandleCommand)
					return nil
				})
				a.logger.Info("telegram polling started")
			}

			err = g.Wait()
			a.logger.Info("trovedesk stopped")
			return err
		},
	}
	cmd.Flags().BoolVar(&refreshOnStart, "refresh-on-start", os.Getenv("RUN_ON_START") == "true", "refresh prices and probe the indexer immediately")
	return cmd
}
