package scheduler

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"TroveDesk/internal/collector"
	"TroveDesk/internal/health"
	"TroveDesk/internal/logging"
	"TroveDesk/internal/metrics"
	"TroveDesk/internal/model"
	"TroveDesk/internal/notifier"
	"TroveDesk/internal/recorder"

	"github.com/robfig/cron/v3"
)

// Prices is the price cache the scheduler keeps warm.
type Prices interface {
	Refresh(ctx context.Context) (model.PriceSet, error)
	Collect(ctx context.Context) (model.PriceSet, error)
	Cached() (model.PriceSet, time.Time, bool)
}

// BlockProber reports the block the indexer has reached.
type BlockProber interface {
	IndexedBlockNumber(ctx context.Context) (int64, error)
}

// Alerter delivers operator alerts.
type Alerter interface {
	SendWithRetry(ctx context.Context, text string, maxRetries int) error
}

const sendRetries = 3

// Deps wires a Scheduler. Alerter, Recorder, Metrics and Logger may be nil.
type Deps struct {
	Prices    Prices
	Indexer   BlockProber
	Indicator *health.Indicator
	Alerter   Alerter
	Recorder  recorder.Recorder
	Metrics   *metrics.Metrics
	Logger    logging.Logger
}

// Scheduler manages all cron tasks.
type Scheduler struct {
	Cron *cron.Cron
	Ctx  context.Context

	prices    Prices
	indexer   BlockProber
	indicator *health.Indicator
	alerter   Alerter
	recorder  recorder.Recorder
	metrics   *metrics.Metrics
	logger    logging.Logger

	mu          sync.Mutex
	lastBlock   int64
	pricesOK    bool
	pricesKnown bool
	stopped     bool

	jobs  sync.WaitGroup
	sends sync.WaitGroup
}

// NewScheduler creates a new Scheduler and subscribes to indicator transitions.
func NewScheduler(ctx context.Context, deps Deps) *Scheduler {
	s := &Scheduler{
		Cron:      cron.New(cron.WithSeconds()),
		Ctx:       ctx,
		prices:    deps.Prices,
		indexer:   deps.Indexer,
		indicator: deps.Indicator,
		alerter:   deps.Alerter,
		recorder:  deps.Recorder,
		metrics:   deps.Metrics,
		logger:    logging.OrDiscard(deps.Logger),
	}
	if s.recorder == nil {
		s.recorder = recorder.NewNoopRecorder()
	}
	if s.indicator == nil {
		s.indicator = health.NewIndicator()
	}
	s.metrics.SetIndicatorHealthy(s.indicator.Snapshot().Healthy)
	s.indicator.Subscribe(s.onTransition)
	return s
}

// RegisterAll registers the price refresh and indexer probe tasks.
func (s *Scheduler) RegisterAll(priceCron, indexerCron string) error {
	if _, err := s.Cron.AddFunc(priceCron, s.RefreshPrices); err != nil {
		return fmt.Errorf("register price task: %w", err)
	}
	if _, err := s.Cron.AddFunc(indexerCron, s.ProbeIndexer); err != nil {
		return fmt.Errorf("register indexer task: %w", err)
	}
	return nil
}

// Start starts the cron scheduler.
func (s *Scheduler) Start() {
	s.Cron.Start()
	s.logger.Info("scheduler started")
}

// RunNow runs the price refresh and the indexer probe once in the
// background. Stop waits for them.
func (s *Scheduler) RunNow() {
	s.jobs.Add(2)
	go func() {
		defer s.jobs.Done()
		s.RefreshPrices()
	}()
	go func() {
		defer s.jobs.Done()
		s.ProbeIndexer()
	}()
}

// Stop stops the cron scheduler and waits for running jobs and pending
// alerts. Transitions reported after Stop are recorded but not sent.
func (s *Scheduler) Stop() {
	<-s.Cron.Stop().Done()
	s.jobs.Wait()
	s.mu.Lock()
	s.stopped = true
	s.mu.Unlock()
	s.sends.Wait()
	s.logger.Info("scheduler stopped")
}

// RefreshPrices fetches prices upstream, bypassing the cache. The collector
// records the snapshot or failure; this alerts when the upstream starts or
// stops failing.
func (s *Scheduler) RefreshPrices() {
	_, err := s.prices.Refresh(s.Ctx)

	s.mu.Lock()
	changed := !s.pricesKnown || s.pricesOK != (err == nil)
	wasKnown := s.pricesKnown
	s.pricesKnown, s.pricesOK = true, err == nil
	s.mu.Unlock()

	if err != nil {
		s.logger.Error("scheduled price refresh failed", "err", err)
		if changed {
			s.trySend(notifier.FormatPriceFailure(string(collector.Classify(err)), err))
		}
		return
	}
	s.logger.Debug("prices refreshed")
	if changed && wasKnown {
		s.trySend("✅ <b>Price upstream recovered</b>")
	}
}

// ProbeIndexer queries the indexed block. The query itself updates the indicator.
func (s *Scheduler) ProbeIndexer() {
	block, err := s.indexer.IndexedBlockNumber(s.Ctx)
	status := s.indicator.Snapshot()

	probe := &recorder.IndexerProbe{Block: block, Healthy: err == nil, Message: status.Message}
	if err != nil {
		probe.Message = err.Error()
		s.logger.Warn("indexer probe failed", "err", err)
	} else {
		s.mu.Lock()
		s.lastBlock = block
		s.mu.Unlock()
		s.metrics.SetIndexedBlock(block)
		s.logger.Debug("indexer probe", "block", block)
	}
	if recErr := s.recorder.RecordIndexerProbe(probe); recErr != nil {
		s.logger.Error("record indexer probe failed", "err", recErr)
	}
}

// LastBlock returns the block seen by the last successful probe.
func (s *Scheduler) LastBlock() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastBlock
}

func (s *Scheduler) onTransition(prev, next health.Status) {
	if prev.Healthy == next.Healthy && prev.Message == next.Message {
		return
	}
	s.metrics.SetIndicatorHealthy(next.Healthy)
	s.logger.Warn("subgraph indicator changed", "healthy", next.Healthy, "message", next.Message)
	if err := s.recorder.RecordHealthTransition(&recorder.HealthTransition{
		FromHealthy: prev.Healthy,
		ToHealthy:   next.Healthy,
		Message:     next.Message,
	}); err != nil {
		s.logger.Error("record health transition failed", "err", err)
	}
	// Listeners run on the query path, so delivery is asynchronous.
	text := notifier.FormatHealthTransition(prev, next)
	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		s.logger.Warn("scheduler stopped, dropping health alert", "healthy", next.Healthy)
		return
	}
	s.sends.Add(1)
	s.mu.Unlock()
	go func() {
		defer s.sends.Done()
		s.trySend(text)
	}()
}

// HandleCommand processes a user command and returns a reply.
func (s *Scheduler) HandleCommand(ctx context.Context, command string) string {
	cmd, _, _ := strings.Cut(strings.TrimSpace(command), " ")
	// Telegram appends the bot name in groups: /prices@trovedesk_bot
	cmd, _, _ = strings.Cut(cmd, "@")
	switch cmd {
	case "/prices":
		set, err := s.prices.Collect(ctx)
		if err != nil {
			return notifier.FormatPriceFailure(string(collector.Classify(err)), err)
		}
		_, at, _ := s.prices.Cached()
		return notifier.FormatPrices(set, at)
	case "/status":
		block, err := s.indexer.IndexedBlockNumber(ctx)
		if err == nil {
			s.mu.Lock()
			s.lastBlock = block
			s.mu.Unlock()
			s.metrics.SetIndexedBlock(block)
		}
		return notifier.FormatStatus(s.indicator.Snapshot(), block, err)
	default:
		return "Available commands:\n• /prices\n• /status"
	}
}

func (s *Scheduler) trySend(text string) {
	if s.alerter == nil {
		return
	}
	if err := s.alerter.SendWithRetry(s.Ctx, text, sendRetries); err != nil {
		s.logger.Error("send notification failed", "err", err)
	}
}
