package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"TroveDesk/internal/chainread"
	"TroveDesk/internal/collector"
	"TroveDesk/internal/config"
	"TroveDesk/internal/health"
	"TroveDesk/internal/loanview"
	"TroveDesk/internal/logging"
	"TroveDesk/internal/metrics"
	"TroveDesk/internal/recorder"
	"TroveDesk/internal/subgraph"

	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// app holds the wired services shared by every command.
type app struct {
	cfg       *config.Config
	logger    *slog.Logger
	registry  *prometheus.Registry
	metrics   *metrics.Metrics
	recorder  recorder.Recorder
	indicator *health.Indicator
	eth       *ethclient.Client
	chain     *chainread.Reader
	subgraph  *subgraph.Client
	prices    *collector.Collector
	loans     *loanview.Service
}

type runMode int

const (
	// modeServe logs to stdout and persists history to SQLite.
	modeServe runMode = iota
	// modeQuery keeps stdout for command output and records nothing.
	modeQuery
)

// buildApp wires the services.
func buildApp(ctx context.Context, cfg *config.Config, mode runMode) (*app, error) {
	logOut := os.Stdout
	if mode == modeQuery {
		logOut = os.Stderr
	}
	a := &app{
		cfg:       cfg,
		logger:    logging.SetupWriter(logOut, cfg.Service.Name, cfg.Service.Env, cfg.Log.Level),
		registry:  prometheus.NewRegistry(),
		indicator: health.NewIndicator(),
	}
	a.registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	a.metrics = metrics.New(a.registry)
	a.recorder = a.openRecorder(mode == modeServe)

	policy, err := collector.ParsePartialPolicy(cfg.Prices.PartialPolicy)
	if err != nil {
		return nil, err
	}
	fetcher := collector.NewCoinGeckoFetcher(cfg.Prices.CoinGeckoURL, cfg.Proxy)
	a.prices = collector.NewCollector(fetcher, collector.Options{
		Policy:   policy,
		TTL:      cfg.Prices.TTL,
		Recorder: a.recorder,
		Metrics:  a.metrics,
		Logger:   a.logger.With("component", "collector"),
	})

	wl := cfg.WhiteLabel()
	opts := subgraph.Options{
		Indicator: a.indicator,
		Recorder:  a.recorder,
		Metrics:   a.metrics,
		Logger:    a.logger.With("component", "subgraph"),
	}
	var surplus loanview.SurplusSource
	if cfg.Chain.RPCURL != "" {
		a.eth, err = chainread.Dial(ctx, cfg.Chain.RPCURL)
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("dial rpc: %w", err)
		}
		a.chain, err = chainread.NewReader(a.eth, wl, chainread.Config{
			ChainID:        cfg.Chain.ChainID,
			OwnerIndexScan: cfg.Chain.OwnerIndexScan,
			PageSize:       cfg.Chain.PageSize,
		}, a.logger.With("component", "chainread"))
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("chain reader: %w", err)
		}
		opts.Chain = a.chain
		surplus = a.chain
	} else {
		a.logger.Warn("rpc_url not set, on-chain fallbacks disabled")
	}

	a.subgraph, err = subgraph.NewClient(subgraph.Config{URL: cfg.Subgraph.URL, Timeout: cfg.Subgraph.Timeout}, opts)
	if err != nil {
		a.Close()
		return nil, err
	}
	a.loans = loanview.NewService(a.subgraph, a.prices, surplus, wl, cfg.Loan.Explorers, a.logger.With("component", "loanview"))
	return a, nil
}

func (a *app) openRecorder(persist bool) recorder.Recorder {
	path := a.cfg.Database.SQLitePath
	if !persist || path == "" {
		return recorder.NewNoopRecorder()
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			a.logger.Warn("create sqlite directory failed, using noop recorder", "err", err)
			return recorder.NewNoopRecorder()
		}
	}
	sr, err := recorder.NewSQLiteRecorder(path, a.logger.With("component", "recorder"))
	if err != nil {
		a.logger.Warn("init sqlite recorder failed, using noop recorder", "err", err)
		return recorder.NewNoopRecorder()
	}
	return sr
}

// Close releases the recorder and the RPC connection.
func (a *app) Close() {
	if a.recorder != nil {
		if err := a.recorder.Close(); err != nil {
			a.logger.Warn("close recorder", "err", err)
		}
	}
	if a.eth != nil {
		a.eth.Close()
	}
}
