package producer

import (
	"context"

	"statsvc/internal/models"
)

// Producer defines the interface for publishing record events
type Producer interface {
	// Publish sends a single record event
	Publish(ctx context.Context, msg *models.RecordEvent) error

	// PublishBatch sends record events in one write
	PublishBatch(ctx context.Context, msgs []*models.RecordEvent) error

	// Close flushes pending messages and closes the connection
	Close() error
}
