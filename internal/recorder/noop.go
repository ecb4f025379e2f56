package recorder

// NoopRecorder is used when SQLite is not configured.
type NoopRecorder struct{}

func NewNoopRecorder() *NoopRecorder { return &NoopRecorder{} }

func (n *NoopRecorder) RecordPriceSnapshot(_ *PriceSnapshot) error       { return nil }
func (n *NoopRecorder) RecordPriceFailure(_ *PriceFailure) error         { return nil }
func (n *NoopRecorder) RecordIndexerProbe(_ *IndexerProbe) error         { return nil }
func (n *NoopRecorder) RecordHealthTransition(_ *HealthTransition) error { return nil }
func (n *NoopRecorder) RecordFallback(_ *FallbackEvent) error            { return nil }
func (n *NoopRecorder) Close() error                                     { return nil }
