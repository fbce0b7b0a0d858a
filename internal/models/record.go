package models

import (
	"time"

	"github.com/google/uuid"
)

// ProcessedRecord is the persisted summary of one ingested series.
// Records are written once and never updated.
type ProcessedRecord struct {
	RequestID uuid.UUID
	Timestamp time.Time // Normalized to the canonical zone
	Mean      float64
	StdDev    float64 // Population standard deviation
	Count     int     // Number of samples; carried on events, not persisted
}

// RecordEvent is published to the message queue after a record is stored
type RecordEvent struct {
	RequestID  string  `json:"request_id"`
	Timestamp  string  `json:"timestamp"` // RFC3339Nano, UTC
	Mean       float64 `json:"mean"`
	StdDev     float64 `json:"std_dev"`
	Count      int     `json:"count"`
	IngestedAt string  `json:"ingested_at"`
}

// NewRecordEvent builds the event for a stored record
func NewRecordEvent(rec *ProcessedRecord, ingestedAt time.Time) *RecordEvent {
	return &RecordEvent{
		RequestID:  rec.RequestID.String(),
		Timestamp:  rec.Timestamp.UTC().Format(time.RFC3339Nano),
		Mean:       rec.Mean,
		StdDev:     rec.StdDev,
		Count:      rec.Count,
		IngestedAt: ingestedAt.UTC().Format(time.RFC3339Nano),
	}
}
