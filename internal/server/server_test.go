package server

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"TroveDesk/internal/collector"
	"TroveDesk/internal/health"
	"TroveDesk/internal/loanview"
	"TroveDesk/internal/metrics"
	"TroveDesk/internal/model"

	"github.com/ethereum/go-ethereum/common"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const pricesBody = `{
	"gnosis": {"usd": 120.5},
	"savings-xdai": {"usd": 1.12},
	"wrapped-bitcoin": {"usd": 60000},
	"stakewise-staked-gno-2": {"usd": 118.25}
}`

type fakeIndexer struct {
	troves     []model.Trove
	trove      *model.Trove
	brackets   []model.InterestRateBracket
	batches    []model.InterestBatch
	block      int64
	err        error
	gotBranch  int
	gotManager []common.Address
}

func (f *fakeIndexer) IndexedBlockNumber(context.Context) (int64, error) { return f.block, f.err }

func (f *fakeIndexer) TrovesByAccount(context.Context, common.Address) []model.Trove {
	return f.troves
}

func (f *fakeIndexer) TroveByID(context.Context, model.PrefixedTroveID) *model.Trove {
	return f.trove
}

func (f *fakeIndexer) InterestBatches(_ context.Context, branch int, managers []common.Address) ([]model.InterestBatch, error) {
	f.gotBranch, f.gotManager = branch, managers
	return f.batches, f.err
}

func (f *fakeIndexer) AllInterestRateBrackets(context.Context) []model.InterestRateBracket {
	return f.brackets
}

func (f *fakeIndexer) GovernanceGlobalData(context.Context) (model.GovernanceGlobalData, error) {
	return model.GovernanceGlobalData{}, f.err
}

func (f *fakeIndexer) UserAllocationHistory(context.Context, common.Address) ([]model.Allocation, error) {
	return nil, f.err
}

func (f *fakeIndexer) TotalAllocationHistory(context.Context, common.Address) ([]model.TotalAllocation, error) {
	return nil, f.err
}

type fakeLoans struct{ view loanview.View }

func (f fakeLoans) Load(_ context.Context, prefixedID string) (loanview.View, error) {
	if _, err := model.ParsePrefixedTroveID(prefixedID); err != nil {
		return loanview.View{}, err
	}
	return f.view, nil
}

type fixture struct {
	srv     *Server
	fetcher *collector.MockFetcher
	indexer *fakeIndexer
	reg     *prometheus.Registry
}

func newFixture(t *testing.T, cfg Config) *fixture {
	t.Helper()
	reg := prometheus.NewRegistry()
	m := metrics.New(reg)
	fetcher := &collector.MockFetcher{Body: []byte(pricesBody)}
	indexer := &fakeIndexer{}
	srv, err := New(cfg, Deps{
		Prices:    collector.NewCollector(fetcher, collector.Options{Metrics: m}),
		Indexer:   indexer,
		Loans:     fakeLoans{view: loanview.View{State: loanview.StateNotFound, ID: "1:0x2a"}},
		Indicator: health.NewIndicator(),
		Metrics:   m,
		Gatherer:  reg,
	})
	require.NoError(t, err)
	return &fixture{srv: srv, fetcher: fetcher, indexer: indexer, reg: reg}
}

func (f *fixture) get(path string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	f.srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return out
}

func TestNewRequiresDeps(t *testing.T) {
	_, err := New(Config{}, Deps{})
	require.Error(t, err)
}

func TestPricesSuccess(t *testing.T) {
	f := newFixture(t, Config{})
	rec := f.get("/api/prices")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "public, s-maxage=300, max-age=300, stale-while-revalidate=60", rec.Header().Get("Cache-Control"))
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.JSONEq(t, `{"prices":{"EVRO":"1","WXDAI":"1","GNO":"120.5","SDAI":"1.12","WWBTC":"60000","OSGNO":"118.25"}}`, rec.Body.String())
}

func TestPricesFailure(t *testing.T) {
	cases := map[string]struct {
		err      error
		body     string
		wantType string
	}{
		"upstream status": {
			err:      &collector.APIError{StatusCode: 500, Status: "500 Internal Server Error"},
			wantType: "coingecko_api_error",
		},
		"transport": {
			err:      &collector.NetworkError{Op: "fetch", Err: errors.New("connection refused")},
			wantType: "network_or_internal_error",
		},
		"bad shape": {
			body:     `{"gnosis": {"usd": "120"}}`,
			wantType: "validation_error",
		},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			f := newFixture(t, Config{})
			f.fetcher.Set([]byte(tc.body), tc.err)

			rec := f.get("/api/prices")
			require.Equal(t, http.StatusBadGateway, rec.Code)
			assert.Equal(t, "no-store", rec.Header().Get("Cache-Control"))

			body := decode(t, rec)
			assert.Equal(t, "Failed to fetch prices", body["error"])
			assert.Equal(t, tc.wantType, body["errorType"])
			assert.NotEmpty(t, body["errorMessage"])
		})
	}
}

func TestPricesRecoverAfterFailure(t *testing.T) {
	f := newFixture(t, Config{})
	f.fetcher.Set(nil, &collector.APIError{StatusCode: 429, Status: "429 Too Many Requests"})
	require.Equal(t, http.StatusBadGateway, f.get("/api/prices").Code)

	f.fetcher.Set([]byte(pricesBody), nil)
	assert.Equal(t, http.StatusOK, f.get("/api/prices").Code)
}

func TestTroveRoutes(t *testing.T) {
	f := newFixture(t, Config{})

	rec := f.get("/api/troves/1:0x2a")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	f.indexer.trove = &model.Trove{ID: "1:0x2a", Status: model.TroveActive, Debt: decimal.RequireFromString("10")}
	rec = f.get("/api/troves/1:0x2a")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"1:0x2a"`)

	assert.Equal(t, http.StatusBadRequest, f.get("/api/troves/1:0X2A").Code)

	rec = f.get("/api/troves?account=0x00000000000000000000000000000000000000ab")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"troves":[]}`, rec.Body.String())

	assert.Equal(t, http.StatusBadRequest, f.get("/api/troves?account=nope").Code)
}

func TestLoanRoute(t *testing.T) {
	f := newFixture(t, Config{})

	rec := f.get("/api/loans/1:0x2a")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "not-found", decode(t, rec)["state"])

	assert.Equal(t, http.StatusBadRequest, f.get("/api/loans/x:0x2a").Code)
}

func TestInterestBatchesParsesAddresses(t *testing.T) {
	f := newFixture(t, Config{})

	rec := f.get("/api/interest-batches/2?addresses=0x00000000000000000000000000000000000000aa,%200x00000000000000000000000000000000000000bb")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 2, f.indexer.gotBranch)
	assert.Len(t, f.indexer.gotManager, 2)
	assert.JSONEq(t, `{"batches":[]}`, rec.Body.String())

	assert.Equal(t, http.StatusBadRequest, f.get("/api/interest-batches/x").Code)
	assert.Equal(t, http.StatusBadRequest, f.get("/api/interest-batches/0?addresses=0x1").Code)
}

func TestIndexerErrorsAreBadGateway(t *testing.T) {
	f := newFixture(t, Config{})
	f.indexer.err = errors.New("unavailable")

	for _, path := range []string{
		"/api/governance",
		"/api/governance/allocations/users/0x00000000000000000000000000000000000000ab",
		"/api/governance/allocations/initiatives/0x00000000000000000000000000000000000000ab",
		"/api/block-number",
	} {
		assert.Equal(t, http.StatusBadGateway, f.get(path).Code, path)
	}
}

func TestBlockNumberAndStatus(t *testing.T) {
	f := newFixture(t, Config{})
	f.indexer.block = 1234

	rec := f.get("/api/block-number")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"blockNumber":1234}`, rec.Body.String())

	rec = f.get("/api/subgraph/status")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, true, decode(t, rec)["healthy"])
}

func TestRequestID(t *testing.T) {
	f := newFixture(t, Config{})

	rec := f.get("/healthz")
	assert.NotEmpty(t, rec.Header().Get("X-Request-Id"))

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set("X-Request-Id", "abc")
	rec = httptest.NewRecorder()
	f.srv.Handler().ServeHTTP(rec, req)
	assert.Equal(t, "abc", rec.Header().Get("X-Request-Id"))
}

func TestRateLimit(t *testing.T) {
	f := newFixture(t, Config{RateLimitRPS: 0.001, RateLimitBurst: 1})

	assert.Equal(t, http.StatusOK, f.get("/api/block-number").Code)
	assert.Equal(t, http.StatusTooManyRequests, f.get("/api/block-number").Code)
	assert.Equal(t, http.StatusOK, f.get("/healthz").Code)
}

func TestClientID(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "10.0.0.1:5000"
	assert.Equal(t, "10.0.0.1", clientID(req))

	req.Header.Set("X-Forwarded-For", "203.0.113.9, 10.0.0.1")
	assert.Equal(t, "203.0.113.9", clientID(req))

	req.Header.Set("X-Real-IP", "198.51.100.7")
	assert.Equal(t, "198.51.100.7", clientID(req))
}

func TestMetricsEndpoint(t *testing.T) {
	f := newFixture(t, Config{})
	require.Equal(t, http.StatusOK, f.get("/api/prices").Code)

	rec := f.get("/metrics")
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.True(t, strings.Contains(body, `trovedesk_http_requests_total{code="200",route="/api/prices"} 1`), body)
	assert.Contains(t, body, `trovedesk_price_fetches_total{result="ok"} 1`)
}

// slowPrices holds each request until delay has passed.
type slowPrices struct {
	delay    time.Duration
	started  chan struct{}
	finished atomic.Bool
}

func (p *slowPrices) Collect(context.Context) (model.PriceSet, error) {
	close(p.started)
	time.Sleep(p.delay)
	p.finished.Store(true)
	return model.PriceSet{EVRO: "1", WXDAI: "1", GNO: "120.5", SDAI: "1.12", WWBTC: "60000", OSGNO: "118.25"}, nil
}

func TestServeDrainsInFlightRequests(t *testing.T) {
	prices := &slowPrices{delay: 500 * time.Millisecond, started: make(chan struct{})}
	srv, err := New(Config{ShutdownTimeout: 5 * time.Second}, Deps{
		Prices:    prices,
		Indexer:   &fakeIndexer{},
		Loans:     fakeLoans{},
		Indicator: health.NewIndicator(),
	})
	require.NoError(t, err)

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	served := make(chan error, 1)
	go func() { served <- srv.Serve(ctx, ln) }()

	type result struct {
		code int
		err  error
	}
	resCh := make(chan result, 1)
	go func() {
		resp, err := http.Get("http://" + ln.Addr().String() + "/api/prices")
		if err != nil {
			resCh <- result{err: err}
			return
		}
		resp.Body.Close()
		resCh <- result{code: resp.StatusCode}
	}()

	select {
	case <-prices.started:
	case <-time.After(5 * time.Second):
		t.Fatal("request never reached the handler")
	}
	cancel()

	select {
	case err := <-served:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Serve did not return")
	}
	assert.True(t, prices.finished.Load(), "Serve returned before the handler completed")

	res := <-resCh
	require.NoError(t, res.err)
	assert.Equal(t, http.StatusOK, res.code)
}

func TestRunReportsListenError(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()

	f := newFixture(t, Config{ListenAddress: ln.Addr().String()})
	err = f.srv.Run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "listen")
}

func TestRateLimitDisabled(t *testing.T) {
	f := newFixture(t, Config{RateLimitRPS: -1})
	assert.Nil(t, f.srv.limiter)
	for range 5 {
		assert.Equal(t, http.StatusOK, f.get("/api/block-number").Code)
	}
}

func TestRateLimiterSweepsIdleVisitors(t *testing.T) {
	l := NewRateLimiter(1, 1, nil)
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	l.now = func() time.Time { return now }

	l.obtain("a")
	l.obtain("b")
	now = now.Add(visitorIdle / 2)
	l.obtain("c")
	assert.Len(t, l.visitors, 3, "no sweep before the interval elapses")

	now = now.Add(visitorIdle/2 + time.Second)
	l.obtain("c")
	assert.Len(t, l.visitors, 1, "idle visitors are dropped once the interval elapses")
	assert.Contains(t, l.visitors, "c")
}
