package processing

import (
	"fmt"

	"github.com/google/uuid"

	"statsvc/internal/models"
)

// IDGenerator returns a fresh record identifier
type IDGenerator func() (uuid.UUID, error)

// Processor turns a validated payload into a record ready to persist.
// It performs no I/O and does not re-validate its input.
type Processor struct {
	normalizer *Normalizer
	newID      IDGenerator
}

// NewProcessor creates a Processor that issues random (version 4) identifiers
func NewProcessor(n *Normalizer) *Processor {
	return &Processor{normalizer: n, newID: uuid.NewRandom}
}

// WithIDGenerator replaces the identifier source, used by tests
func (p *Processor) WithIDGenerator(gen IDGenerator) *Processor {
	p.newID = gen
	return p
}

// Process normalizes the time stamp, summarizes the data and assigns an id.
// Normalizer errors are returned unchanged.
func (p *Processor) Process(payload *models.DataPayload) (*models.ProcessedRecord, error) {
	ts, err := p.normalizer.Normalize(payload.TimeStamp)
	if err != nil {
		return nil, err
	}

	mean, stdDev, err := ComputeStats(payload.Data)
	if err != nil {
		return nil, err
	}

	id, err := p.newID()
	if err != nil {
		return nil, fmt.Errorf("failed to generate request id: %w", err)
	}

	return &models.ProcessedRecord{
		RequestID: id,
		Timestamp: ts,
		Mean:      mean,
		StdDev:    stdDev,
		Count:     len(payload.Data),
	}, nil
}
