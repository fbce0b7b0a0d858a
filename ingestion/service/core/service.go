package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"statsvc/config"
	"statsvc/internal/messaging/producer"
	"statsvc/internal/models"
	"statsvc/processing"
	"statsvc/storage/store"
)

// DefaultRequestIDVersion is the UUID version lookups accept
const DefaultRequestIDVersion uuid.Version = 4

// IngestResult defines the return information after a successful ingest
type IngestResult struct {
	RequestID uuid.UUID
	Record    *models.ProcessedRecord
}

// Service encapsulates the ingest and lookup logic
type Service struct {
	store          store.Store
	processor      *processing.Processor
	logger         *log.Logger
	batchProcessor *BatchProcessor
	metrics        *Metrics
	idVersion      uuid.Version
}

// NewService creates a new Service instance with configuration
func NewService(s store.Store, p producer.Producer, proc *processing.Processor, l *log.Logger, cfg config.BatchProcessorConfig) *Service {
	return &Service{
		store:          s,
		processor:      proc,
		logger:         l,
		batchProcessor: NewBatchProcessor(cfg.BatchSize, cfg.BatchTimeout, cfg.FlushChannelBuffer, p, l),
		metrics:        &Metrics{},
		idVersion:      DefaultRequestIDVersion,
	}
}

// Ingest validates the payload, computes its statistics and stores the record.
// Validation failures are returned as *processing.ValidationError.
func (s *Service) Ingest(ctx context.Context, raw *models.RawPayload) (*IngestResult, error) {
	// 1. Validate input
	payload, err := processing.ValidateRequest(raw)
	if err != nil {
		s.metrics.validationFailures.Add(1)
		return nil, err
	}

	// 2. Normalize, compute and assign an id
	rec, err := s.processor.Process(payload)
	if err != nil {
		if errors.Is(err, processing.ErrNonFiniteResult) {
			s.metrics.validationFailures.Add(1)
			return nil, err
		}
		s.logger.Printf("Service: failed to process validated payload: %v", err)
		return nil, err
	}

	// 3. Persist
	saved, err := s.store.Save(ctx, rec)
	if err != nil {
		s.metrics.storageFailures.Add(1)
		s.logger.Printf("Service: failed to store record (RequestID: %s): %v", rec.RequestID, err)
		return nil, fmt.Errorf("%w: %w", ErrStorage, err)
	}
	s.metrics.ingested.Add(1)

	// 4. Queue the record event (best effort)
	s.batchProcessor.Submit(models.NewRecordEvent(saved, time.Now()))

	return &IngestResult{RequestID: saved.RequestID, Record: saved}, nil
}

// GetStats looks up a stored record by its textual request id
func (s *Service) GetStats(ctx context.Context, requestID string) (*models.ProcessedRecord, error) {
	s.metrics.lookups.Add(1)

	id, ok := ParseRequestID(requestID, s.idVersion)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrMalformedRequestID, requestID)
	}

	rec, err := s.store.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrRecordNotFound) {
			s.metrics.notFound.Add(1)
			return nil, fmt.Errorf("%w: %s", ErrRequestNotFound, id)
		}
		s.metrics.storageFailures.Add(1)
		s.logger.Printf("Service: failed to look up record (RequestID: %s): %v", id, err)
		return nil, fmt.Errorf("%w: %w", ErrStorage, err)
	}
	return rec, nil
}

// Health reports whether the store is reachable
func (s *Service) Health(ctx context.Context) error {
	return s.store.Ping(ctx)
}

// Metrics returns the current counter values
func (s *Service) Metrics() MetricsSnapshot {
	return s.metrics.Snapshot()
}

// Close gracefully shuts down the service
func (s *Service) Close() {
	s.batchProcessor.Close()
}

// ParseRequestID parses s as an RFC 4122 UUID of the given version
func ParseRequestID(s string, version uuid.Version) (uuid.UUID, bool) {
	id, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil, false
	}
	if id.Version() != version || id.Variant() != uuid.RFC4122 {
		return uuid.Nil, false
	}
	return id, true
}

// IsValidRequestID reports whether s is a UUID of the given version
func IsValidRequestID(s string, version uuid.Version) bool {
	_, ok := ParseRequestID(s, version)
	return ok
}
