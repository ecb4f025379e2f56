package recorder

import "TroveDesk/internal/model"

// PriceSnapshot is one successful upstream price fetch.
type PriceSnapshot struct {
	Prices model.PriceSet
	Source string // fetcher name
}

// PriceFailure is one failed upstream price fetch.
type PriceFailure struct {
	ErrorType string
	Message   string
}

// IndexerProbe is the result of a scheduled BlockNumber query.
type IndexerProbe struct {
	Block   int64
	Healthy bool
	Message string
}

// HealthTransition records the indicator flipping between healthy and error.
type HealthTransition struct {
	FromHealthy bool
	ToHealthy   bool
	Message     string
}

// FallbackEvent records an on-chain fallback attempt by an accessor.
type FallbackEvent struct {
	Accessor string
	Result   string // "ok" or "error"
	Detail   string
}

// Recorder persists operational history for later analysis.
type Recorder interface {
	RecordPriceSnapshot(snap *PriceSnapshot) error
	RecordPriceFailure(evt *PriceFailure) error
	RecordIndexerProbe(evt *IndexerProbe) error
	RecordHealthTransition(evt *HealthTransition) error
	RecordFallback(evt *FallbackEvent) error
	Close() error
}
