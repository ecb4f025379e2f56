package scheduler

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"TroveDesk/internal/collector"
	"TroveDesk/internal/health"
	"TroveDesk/internal/model"
	"TroveDesk/internal/recorder"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakePrices struct {
	set model.PriceSet
	err error
	at  time.Time
}

func (f *fakePrices) Refresh(context.Context) (model.PriceSet, error) { return f.set, f.err }
func (f *fakePrices) Collect(context.Context) (model.PriceSet, error) { return f.set, f.err }
func (f *fakePrices) Cached() (model.PriceSet, time.Time, bool)       { return f.set, f.at, f.err == nil }

// fakeIndexer mimics the subgraph client by reporting into the indicator.
type fakeIndexer struct {
	indicator *health.Indicator
	block     int64
	err       error
}

func (f *fakeIndexer) IndexedBlockNumber(context.Context) (int64, error) {
	ticket := f.indicator.Begin()
	if f.err != nil {
		f.indicator.SetError(ticket, "Subgraph error: unable to fetch data.")
		return 0, f.err
	}
	f.indicator.Clear(ticket)
	return f.block, nil
}

type fakeAlerter struct {
	mu   sync.Mutex
	sent []string
}

func (f *fakeAlerter) SendWithRetry(_ context.Context, text string, _ int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, text)
	return nil
}

func (f *fakeAlerter) messages() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.sent...)
}

type fakeRecorder struct {
	recorder.NoopRecorder
	mu          sync.Mutex
	probes      []recorder.IndexerProbe
	transitions []recorder.HealthTransition
}

func (f *fakeRecorder) RecordIndexerProbe(evt *recorder.IndexerProbe) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.probes = append(f.probes, *evt)
	return nil
}

func (f *fakeRecorder) RecordHealthTransition(evt *recorder.HealthTransition) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.transitions = append(f.transitions, *evt)
	return nil
}

type fixture struct {
	s        *Scheduler
	prices   *fakePrices
	indexer  *fakeIndexer
	alerter  *fakeAlerter
	recorder *fakeRecorder
}

func newFixture() *fixture {
	ind := health.NewIndicator()
	f := &fixture{
		prices:   &fakePrices{set: model.PriceSet{EVRO: "1", WXDAI: "1", GNO: "120", SDAI: "1.1", WWBTC: "60000", OSGNO: "118"}},
		indexer:  &fakeIndexer{indicator: ind, block: 42},
		alerter:  &fakeAlerter{},
		recorder: &fakeRecorder{},
	}
	f.s = NewScheduler(context.Background(), Deps{
		Prices:    f.prices,
		Indexer:   f.indexer,
		Indicator: ind,
		Alerter:   f.alerter,
		Recorder:  f.recorder,
	})
	return f
}

func TestRegisterAll(t *testing.T) {
	f := newFixture()
	require.NoError(t, f.s.RegisterAll("0 */5 * * * *", "30 * * * * *"))
	assert.Len(t, f.s.Cron.Entries(), 2)

	assert.Error(t, newFixture().s.RegisterAll("bogus", "30 * * * * *"))
}

func TestRefreshPricesAlertsOnChange(t *testing.T) {
	f := newFixture()

	f.s.RefreshPrices()
	assert.Empty(t, f.alerter.messages())

	f.prices.err = &collector.APIError{StatusCode: 503, Status: "503 Service Unavailable"}
	f.s.RefreshPrices()
	f.s.RefreshPrices()
	msgs := f.alerter.messages()
	require.Len(t, msgs, 1)
	assert.Contains(t, msgs[0], "coingecko_api_error")

	f.prices.err = nil
	f.s.RefreshPrices()
	msgs = f.alerter.messages()
	require.Len(t, msgs, 2)
	assert.Contains(t, msgs[1], "recovered")
}

func TestProbeIndexerRecordsAndTransitions(t *testing.T) {
	f := newFixture()

	f.s.ProbeIndexer()
	assert.Equal(t, int64(42), f.s.LastBlock())

	f.indexer.err = errors.New("connection refused")
	f.s.ProbeIndexer()
	f.s.ProbeIndexer()

	f.indexer.err = nil
	f.indexer.block = 50
	f.s.ProbeIndexer()
	f.s.Stop()

	f.recorder.mu.Lock()
	defer f.recorder.mu.Unlock()
	require.Len(t, f.recorder.probes, 4)
	assert.True(t, f.recorder.probes[0].Healthy)
	assert.False(t, f.recorder.probes[1].Healthy)
	assert.Equal(t, int64(50), f.recorder.probes[3].Block)

	require.Len(t, f.recorder.transitions, 2)
	assert.Equal(t, recorder.HealthTransition{FromHealthy: true, ToHealthy: false, Message: "Subgraph error: unable to fetch data."}, f.recorder.transitions[0])
	assert.True(t, f.recorder.transitions[1].ToHealthy)

	msgs := f.alerter.messages()
	require.Len(t, msgs, 2)
	joined := strings.Join(msgs, "\n")
	assert.Contains(t, joined, "Subgraph degraded")
	assert.Contains(t, joined, "Subgraph recovered")
	assert.Equal(t, int64(50), f.s.LastBlock())
}

func TestHandleCommand(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	reply := f.s.HandleCommand(ctx, "/prices")
	assert.Contains(t, reply, "GNO")
	assert.Contains(t, reply, "60000")

	assert.Equal(t, reply, f.s.HandleCommand(ctx, "/prices@trovedesk_bot"))

	reply = f.s.HandleCommand(ctx, "/status")
	assert.Contains(t, reply, "healthy")
	assert.Contains(t, reply, "42")

	f.prices.err = errors.New("boom")
	assert.Contains(t, f.s.HandleCommand(ctx, "/prices"), "Price fetch failed")

	assert.Contains(t, f.s.HandleCommand(ctx, "hello"), "/status")
	f.s.Stop()
}

func TestRunNowCompletesBeforeStop(t *testing.T) {
	f := newFixture()
	f.s.RunNow()
	f.s.Stop()

	assert.Equal(t, int64(42), f.s.LastBlock())
	f.recorder.mu.Lock()
	defer f.recorder.mu.Unlock()
	assert.Len(t, f.recorder.probes, 1)
}

func TestTransitionAfterStopIsRecordedNotSent(t *testing.T) {
	f := newFixture()
	f.s.Stop()

	f.indexer.err = errors.New("connection refused")
	f.s.ProbeIndexer()
	f.s.Stop()

	assert.Empty(t, f.alerter.messages())
	f.recorder.mu.Lock()
	defer f.recorder.mu.Unlock()
	require.Len(t, f.recorder.transitions, 1)
	assert.False(t, f.recorder.transitions[0].ToHealthy)
}
