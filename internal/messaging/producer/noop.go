package producer

import (
	"context"
	"log"

	"statsvc/internal/models"
)

// NoopProducer drops every event; used when no brokers are configured
type NoopProducer struct {
	logger *log.Logger
}

// NewNoopProducer creates a producer that publishes nothing
func NewNoopProducer(logger *log.Logger) *NoopProducer {
	logger.Println("Kafka brokers not configured, record events are disabled")
	return &NoopProducer{logger: logger}
}

func (p *NoopProducer) Publish(ctx context.Context, msg *models.RecordEvent) error {
	return nil
}

func (p *NoopProducer) PublishBatch(ctx context.Context, msgs []*models.RecordEvent) error {
	return nil
}

func (p *NoopProducer) Close() error {
	return nil
}

var _ Producer = (*NoopProducer)(nil)
