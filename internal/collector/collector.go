package collector

import (
	"context"
	"fmt"
	"sync"
	"time"

	"TroveDesk/internal/logging"
	"TroveDesk/internal/metrics"
	"TroveDesk/internal/model"
	"TroveDesk/internal/recorder"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/singleflight"
)

// DefaultTTL is the freshness window for upstream prices.
const DefaultTTL = 5 * time.Minute

// DefaultFetchTimeout bounds one shared upstream fetch.
const DefaultFetchTimeout = 30 * time.Second

// Options configures a Collector. Zero values select defaults.
type Options struct {
	Policy       PartialPolicy
	TTL          time.Duration
	FetchTimeout time.Duration
	Recorder     recorder.Recorder
	Metrics      *metrics.Metrics
	Logger       logging.Logger
}

// Collector fetches, validates and caches the portal price set.
// Only successful fetches are cached.
type Collector struct {
	fetcher      Fetcher
	policy       PartialPolicy
	ttl          time.Duration
	fetchTimeout time.Duration
	recorder     recorder.Recorder
	metrics      *metrics.Metrics
	logger       logging.Logger
	now          func() time.Time

	group singleflight.Group

	mu       sync.Mutex
	cached   *model.PriceSet
	cachedAt time.Time
}

// NewCollector creates a new Collector.
func NewCollector(fetcher Fetcher, opts Options) *Collector {
	c := &Collector{
		fetcher:      fetcher,
		policy:       opts.Policy,
		ttl:          opts.TTL,
		fetchTimeout: opts.FetchTimeout,
		recorder:     opts.Recorder,
		metrics:      opts.Metrics,
		logger:       logging.OrDiscard(opts.Logger),
		now:          time.Now,
	}
	if c.policy == "" {
		c.policy = PolicyZeroFill
	}
	if c.ttl <= 0 {
		c.ttl = DefaultTTL
	}
	if c.fetchTimeout <= 0 {
		c.fetchTimeout = DefaultFetchTimeout
	}
	if c.recorder == nil {
		c.recorder = recorder.NewNoopRecorder()
	}
	return c
}

// Policy returns the configured partial-data policy.
func (c *Collector) Policy() PartialPolicy { return c.policy }

// Collect returns the cached price set while it is fresh, otherwise fetches upstream.
func (c *Collector) Collect(ctx context.Context) (model.PriceSet, error) {
	if p, ok := c.fresh(); ok {
		c.metrics.ObservePriceCacheHit()
		return p, nil
	}
	return c.Refresh(ctx)
}

// Refresh always goes upstream. Concurrent callers share one request,
// which is detached from any single caller's cancellation and bounded by
// fetchTimeout. A caller whose ctx ends stops waiting with ctx.Err().
func (c *Collector) Refresh(ctx context.Context) (model.PriceSet, error) {
	ch := c.group.DoChan("prices", func() (any, error) {
		fetchCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.fetchTimeout)
		defer cancel()
		return c.fetch(fetchCtx)
	})
	select {
	case <-ctx.Done():
		return model.PriceSet{}, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return model.PriceSet{}, res.Err
		}
		return res.Val.(model.PriceSet), nil
	}
}

// Cached returns the last successful price set and when it was fetched.
func (c *Collector) Cached() (model.PriceSet, time.Time, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.cached == nil {
		return model.PriceSet{}, time.Time{}, false
	}
	return *c.cached, c.cachedAt, true
}

// Price returns the USD price of one symbol as a decimal.
func (c *Collector) Price(ctx context.Context, symbol string) (decimal.Decimal, error) {
	set, err := c.Collect(ctx)
	if err != nil {
		return decimal.Zero, err
	}
	raw, ok := set.Get(symbol)
	if !ok {
		return decimal.Zero, fmt.Errorf("no price for symbol %q", symbol)
	}
	d, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero, fmt.Errorf("parse price %s=%q: %w", symbol, raw, err)
	}
	return d, nil
}

func (c *Collector) fresh() (model.PriceSet, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.cached == nil || c.now().Sub(c.cachedAt) >= c.ttl {
		return model.PriceSet{}, false
	}
	return *c.cached, true
}

func (c *Collector) fetch(ctx context.Context) (model.PriceSet, error) {
	body, err := c.fetcher.FetchSimplePrice(ctx, AssetIDs, VsCurrency)
	if err == nil {
		var set model.PriceSet
		set, err = ParseSimplePrice(body, c.policy)
		if err == nil {
			c.store(set)
			c.metrics.ObservePriceFetch("ok")
			if recErr := c.recorder.RecordPriceSnapshot(&recorder.PriceSnapshot{Prices: set, Source: c.fetcher.Name()}); recErr != nil {
				c.logger.Warn("record price snapshot failed", "err", recErr)
			}
			return set, nil
		}
	}

	errType := Classify(err)
	c.metrics.ObservePriceFetch(string(errType))
	c.logger.Error("price fetch failed", "fetcher", c.fetcher.Name(), "errorType", errType, "err", err)
	if recErr := c.recorder.RecordPriceFailure(&recorder.PriceFailure{ErrorType: string(errType), Message: err.Error()}); recErr != nil {
		c.logger.Warn("record price failure failed", "err", recErr)
	}
	return model.PriceSet{}, fmt.Errorf("fetch prices: %w", err)
}

func (c *Collector) store(set model.PriceSet) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cached = &set
	c.cachedAt = c.now()
}
