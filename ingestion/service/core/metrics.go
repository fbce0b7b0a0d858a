package service

import "sync/atomic"

// Metrics holds process-wide request counters
type Metrics struct {
	ingested           atomic.Int64
	lookups            atomic.Int64
	notFound           atomic.Int64
	validationFailures atomic.Int64
	storageFailures    atomic.Int64
}

// MetricsSnapshot is a point-in-time copy of the counters
type MetricsSnapshot struct {
	Ingested           int64 `json:"ingested"`
	Lookups            int64 `json:"lookups"`
	NotFound           int64 `json:"not_found"`
	ValidationFailures int64 `json:"validation_failures"`
	StorageFailures    int64 `json:"storage_failures"`
}

// Snapshot reads every counter
func (m *Metrics) Snapshot() MetricsSnapshot {
	return MetricsSnapshot{
		Ingested:           m.ingested.Load(),
		Lookups:            m.lookups.Load(),
		NotFound:           m.notFound.Load(),
		ValidationFailures: m.validationFailures.Load(),
		StorageFailures:    m.storageFailures.Load(),
	}
}
