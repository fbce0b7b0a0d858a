package service

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"statsvc/internal/models"
	"statsvc/storage/store"
)

// Mock implementations for testing
type MockStore struct {
	mock.Mock
}

func (m *MockStore) EnsureSchema(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func (m *MockStore) Save(ctx context.Context, rec *models.ProcessedRecord) (*models.ProcessedRecord, error) {
	args := m.Called(ctx, rec)
	saved, _ := args.Get(0).(*models.ProcessedRecord)
	return saved, args.Error(1)
}

func (m *MockStore) FindByID(ctx context.Context, id uuid.UUID) (*models.ProcessedRecord, error) {
	args := m.Called(ctx, id)
	rec, _ := args.Get(0).(*models.ProcessedRecord)
	return rec, args.Error(1)
}

func (m *MockStore) Ping(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func (m *MockStore) Close() {
	m.Called()
}

var _ store.Store = (*MockStore)(nil)

// recordingProducer keeps every published batch
type recordingProducer struct {
	mu      sync.Mutex
	batches [][]*models.RecordEvent
	err     error
}

func (p *recordingProducer) Publish(ctx context.Context, msg *models.RecordEvent) error {
	return p.PublishBatch(ctx, []*models.RecordEvent{msg})
}

func (p *recordingProducer) PublishBatch(ctx context.Context, msgs []*models.RecordEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.batches = append(p.batches, msgs)
	return p.err
}

func (p *recordingProducer) Close() error {
	return nil
}

func (p *recordingProducer) Batches() [][]*models.RecordEvent {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([][]*models.RecordEvent, len(p.batches))
	copy(out, p.batches)
	return out
}

func (p *recordingProducer) Events() []*models.RecordEvent {
	var out []*models.RecordEvent
	for _, b := range p.Batches() {
		out = append(out, b...)
	}
	return out
}

// blockingProducer records batches but holds each write until release is closed
type blockingProducer struct {
	recordingProducer
	release chan struct{}
}

func (p *blockingProducer) PublishBatch(ctx context.Context, msgs []*models.RecordEvent) error {
	select {
	case <-p.release:
	case <-ctx.Done():
	}
	return p.recordingProducer.PublishBatch(ctx, msgs)
}

func (p *blockingProducer) Publish(ctx context.Context, msg *models.RecordEvent) error {
	return p.PublishBatch(ctx, []*models.RecordEvent{msg})
}
