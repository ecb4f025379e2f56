package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus collectors shared by the service components.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	subgraphQueries  *prometheus.CounterVec
	subgraphDuration *prometheus.HistogramVec
	fallbacks        *prometheus.CounterVec
	priceFetches     *prometheus.CounterVec
	priceCacheHits   prometheus.Counter
	httpRequests     *prometheus.CounterVec
	httpDuration     *prometheus.HistogramVec
	rateLimited      prometheus.Counter
	indexedBlock     prometheus.Gauge
	indicatorHealthy prometheus.Gauge
}

// New creates the collectors and registers them with reg.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		subgraphQueries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "trovedesk_subgraph_queries_total",
			Help: "Subgraph queries, labeled by query name and result.",
		}, []string{"query", "result"}),
		subgraphDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "trovedesk_subgraph_query_duration_seconds",
			Help:    "Time spent waiting on the subgraph.",
			Buckets: prometheus.DefBuckets,
		}, []string{"query"}),
		fallbacks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "trovedesk_chain_fallbacks_total",
			Help: "On-chain fallback attempts, labeled by accessor and result.",
		}, []string{"accessor", "result"}),
		priceFetches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "trovedesk_price_fetches_total",
			Help: "Upstream price fetches, labeled by result category.",
		}, []string{"result"}),
		priceCacheHits: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "trovedesk_price_cache_hits_total",
			Help: "Price requests served from the in-process cache.",
		}),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "trovedesk_http_requests_total",
			Help: "HTTP requests served, labeled by route and status code.",
		}, []string{"route", "code"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "trovedesk_http_request_duration_seconds",
			Help:    "HTTP request latency by route.",
			Buckets: prometheus.DefBuckets,
		}, []string{"route"}),
		rateLimited: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "trovedesk_http_rate_limited_total",
			Help: "Requests rejected by the per-client rate limiter.",
		}),
		indexedBlock: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "trovedesk_subgraph_indexed_block",
			Help: "Last block number reported by the subgraph.",
		}),
		indicatorHealthy: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "trovedesk_subgraph_healthy",
			Help: "1 when the subgraph indicator is clear, 0 when it carries an error.",
		}),
	}
	reg.MustRegister(
		m.subgraphQueries, m.subgraphDuration, m.fallbacks,
		m.priceFetches, m.priceCacheHits,
		m.httpRequests, m.httpDuration, m.rateLimited,
		m.indexedBlock, m.indicatorHealthy,
	)
	return m
}

func (m *Metrics) ObserveSubgraphQuery(query, result string, d time.Duration) {
	if m == nil {
		return
	}
	m.subgraphQueries.WithLabelValues(query, result).Inc()
	m.subgraphDuration.WithLabelValues(query).Observe(d.Seconds())
}

func (m *Metrics) ObserveFallback(accessor, result string) {
	if m == nil {
		return
	}
	m.fallbacks.WithLabelValues(accessor, result).Inc()
}

func (m *Metrics) ObservePriceFetch(result string) {
	if m == nil {
		return
	}
	m.priceFetches.WithLabelValues(result).Inc()
}

func (m *Metrics) ObservePriceCacheHit() {
	if m == nil {
		return
	}
	m.priceCacheHits.Inc()
}

func (m *Metrics) ObserveHTTPRequest(route, code string, d time.Duration) {
	if m == nil {
		return
	}
	m.httpRequests.WithLabelValues(route, code).Inc()
	m.httpDuration.WithLabelValues(route).Observe(d.Seconds())
}

func (m *Metrics) ObserveRateLimited() {
	if m == nil {
		return
	}
	m.rateLimited.Inc()
}

func (m *Metrics) SetIndexedBlock(block int64) {
	if m == nil {
		return
	}
	m.indexedBlock.Set(float64(block))
}

func (m *Metrics) SetIndicatorHealthy(healthy bool) {
	if m == nil {
		return
	}
	v := 0.0
	if healthy {
		v = 1
	}
	m.indicatorHealthy.Set(v)
}
