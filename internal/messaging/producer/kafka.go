package producer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/segmentio/kafka-go"

	"statsvc/config"
	"statsvc/internal/models"
)

// KafkaProducer implements the Producer interface
type KafkaProducer struct {
	writer *kafka.Writer
	logger *log.Logger
	topic  string
}

// New returns a Kafka producer when brokers and topic are configured and a
// no-op producer otherwise
func New(cfg config.KafkaProducerConfig, logger *log.Logger) (Producer, error) {
	if !cfg.Enabled() {
		return NewNoopProducer(logger), nil
	}
	return NewKafkaProducer(cfg, logger)
}

// NewKafkaProducer creates a new KafkaProducer
func NewKafkaProducer(cfg config.KafkaProducerConfig, logger *log.Logger) (*KafkaProducer, error) {
	if len(cfg.Brokers) == 0 || cfg.Topic == "" {
		return nil, errors.New("kafka producer configuration incomplete: both brokers and topic are required")
	}

	w := newWriter(cfg, logger)
	logger.Printf("Kafka producer created, connected to Brokers: %v, Topic: %s", cfg.Brokers, cfg.Topic)

	return &KafkaProducer{
		writer: w,
		logger: logger,
		topic:  cfg.Topic,
	}, nil
}

// newWriter fills unset writer settings with defaults
func newWriter(cfg config.KafkaProducerConfig, logger *log.Logger) *kafka.Writer {
	batchSize := cfg.BatchSize
	if batchSize == 0 {
		batchSize = 100
	}

	batchTimeout := cfg.BatchTimeout
	if batchTimeout == 0 {
		batchTimeout = 100 * time.Millisecond
	}

	batchBytes := cfg.BatchBytes
	if batchBytes == 0 {
		batchBytes = 1024 * 1024 // 1MB
	}

	writeTimeout := cfg.WriteTimeout
	if writeTimeout == 0 {
		writeTimeout = 5 * time.Second
	}

	readTimeout := cfg.ReadTimeout
	if readTimeout == 0 {
		readTimeout = 5 * time.Second
	}

	return &kafka.Writer{
		Addr:     kafka.TCP(cfg.Brokers...),
		Topic:    cfg.Topic,
		Balancer: &kafka.Hash{}, // Same request id, same partition

		BatchSize:    batchSize,
		BatchTimeout: batchTimeout,
		BatchBytes:   int64(batchBytes),

		RequiredAcks: requiredAcks(cfg.RequiredAcks),
		Async:        cfg.Async,

		WriteTimeout: writeTimeout,
		ReadTimeout:  readTimeout,

		ErrorLogger: kafka.LoggerFunc(func(msg string, args ...interface{}) {
			logger.Printf("Kafka Writer Error: "+msg, args...)
		}),
	}
}

func requiredAcks(s string) kafka.RequiredAcks {
	switch s {
	case "none":
		return kafka.RequireNone
	case "all":
		return kafka.RequireAll
	default:
		return kafka.RequireOne // Wait for the leader
	}
}

// encodeEvent keys the message by request id
func encodeEvent(msg *models.RecordEvent) (kafka.Message, error) {
	value, err := json.Marshal(msg)
	if err != nil {
		return kafka.Message{}, fmt.Errorf("failed to serialize record event (RequestID: %s): %w", msg.RequestID, err)
	}
	return kafka.Message{
		Key:   []byte(msg.RequestID),
		Value: value,
	}, nil
}

// Publish sends a single record event
func (p *KafkaProducer) Publish(ctx context.Context, msg *models.RecordEvent) error {
	return p.PublishBatch(ctx, []*models.RecordEvent{msg})
}

// PublishBatch sends record events in one write
func (p *KafkaProducer) PublishBatch(ctx context.Context, msgs []*models.RecordEvent) error {
	if len(msgs) == 0 {
		return nil
	}

	kafkaMsgs := make([]kafka.Message, 0, len(msgs))
	for _, msg := range msgs {
		m, err := encodeEvent(msg)
		if err != nil {
			// Unencodable events are skipped, the rest are still written
			p.logger.Printf("Skipping record event: %v", err)
			continue
		}
		kafkaMsgs = append(kafkaMsgs, m)
	}
	if len(kafkaMsgs) == 0 {
		return nil
	}

	if err := p.writer.WriteMessages(ctx, kafkaMsgs...); err != nil {
		p.logger.Printf("Failed to send %d record events to Kafka: %v", len(msgs), err)
		return fmt.Errorf("failed to write record events to Kafka: %w", err)
	}

	p.logger.Printf("Published %d record events (Topic: %s)", len(kafkaMsgs), p.topic)
	return nil
}

// Close closes the producer
func (p *KafkaProducer) Close() error {
	p.logger.Println("Closing Kafka producer (and flushing buffer)...")
	return p.writer.Close() // Close will attempt to send remaining messages in buffer
}

var _ Producer = (*KafkaProducer)(nil) // Compile-time interface check
