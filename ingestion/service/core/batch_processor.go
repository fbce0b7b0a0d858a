package service

import (
	"context"
	"log"
	"sync"
	"time"

	"statsvc/internal/messaging/producer"
	"statsvc/internal/models"
)

// publishTimeout bounds a single batch write to the producer
const publishTimeout = 10 * time.Second

// BatchProcessor buffers record events and publishes them in batches
type BatchProcessor struct {
	batchSize    int
	batchTimeout time.Duration
	maxBuffered  int // Oldest events are dropped beyond this while the publisher is behind
	logger       *log.Logger
	producer     producer.Producer

	// Buffers
	buffer      []*models.RecordEvent
	bufferMutex sync.Mutex
	closed      bool
	flushChan   chan []*models.RecordEvent

	// Context for graceful shutdown
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewBatchProcessor creates a new batch processor and starts its goroutines
func NewBatchProcessor(batchSize int, batchTimeout time.Duration, flushChannelBuffer int,
	producer producer.Producer, logger *log.Logger) *BatchProcessor {

	ctx, cancel := context.WithCancel(context.Background())

	if batchSize <= 0 {
		batchSize = 1
	}
	if flushChannelBuffer < 0 {
		flushChannelBuffer = 0
	}

	bp := &BatchProcessor{
		batchSize:    batchSize,
		batchTimeout: batchTimeout,
		maxBuffered:  batchSize * (flushChannelBuffer + 1),
		logger:       logger,
		producer:     producer,
		buffer:       make([]*models.RecordEvent, 0, batchSize),
		flushChan:    make(chan []*models.RecordEvent, flushChannelBuffer),
		ctx:          ctx,
		cancel:       cancel,
	}

	bp.wg.Add(2)
	go bp.batchTimer()
	go bp.batchPublisher()

	return bp
}

// Submit queues an event; it never blocks on the producer
func (bp *BatchProcessor) Submit(event *models.RecordEvent) {
	bp.bufferMutex.Lock()
	if bp.closed {
		bp.bufferMutex.Unlock()
		bp.logger.Printf("Batch processor closed, dropping event (RequestID: %s)", event.RequestID)
		return
	}
	bp.buffer = append(bp.buffer, event)
	shouldFlush := len(bp.buffer) >= bp.batchSize
	bp.bufferMutex.Unlock()

	if shouldFlush {
		bp.flushIfNeeded()
	}
}

// batchTimer handles periodic flushing
func (bp *BatchProcessor) batchTimer() {
	defer bp.wg.Done()

	ticker := time.NewTicker(bp.batchTimeout)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			bp.flushIfNeeded()
		case <-bp.ctx.Done():
			return
		}
	}
}

// batchPublisher sends flushed batches to the producer
func (bp *BatchProcessor) batchPublisher() {
	defer bp.wg.Done()

	for {
		select {
		case batch := <-bp.flushChan:
			bp.publishBatch(batch)
		case <-bp.ctx.Done():
			return
		}
	}
}

// drain publishes queued batches and the remaining buffer
func (bp *BatchProcessor) drain() {
	for len(bp.flushChan) > 0 {
		bp.publishBatch(<-bp.flushChan)
	}

	bp.bufferMutex.Lock()
	remaining := bp.buffer
	bp.buffer = nil
	bp.bufferMutex.Unlock()

	bp.publishBatch(remaining)
}

// flushIfNeeded hands the buffer to the publisher if it has entries.
// After Close it does nothing; drain owns whatever is left.
func (bp *BatchProcessor) flushIfNeeded() {
	bp.bufferMutex.Lock()
	if bp.closed || len(bp.buffer) == 0 {
		bp.bufferMutex.Unlock()
		return
	}

	batch := make([]*models.RecordEvent, len(bp.buffer))
	copy(batch, bp.buffer)
	bp.buffer = bp.buffer[:0]
	bp.bufferMutex.Unlock()

	select {
	case bp.flushChan <- batch:
	default:
		// Flush channel is full, put it back in buffer for the next tick
		bp.bufferMutex.Lock()
		bp.buffer = append(batch, bp.buffer...)
		if over := len(bp.buffer) - bp.maxBuffered; over > 0 {
			bp.logger.Printf("Flush channel full, dropping %d oldest record events", over)
			bp.buffer = append(bp.buffer[:0], bp.buffer[over:]...)
		} else {
			bp.logger.Printf("Flush channel full, will flush on next timer")
		}
		bp.bufferMutex.Unlock()
	}
}

// publishBatch writes one batch; failures are logged and dropped
func (bp *BatchProcessor) publishBatch(batch []*models.RecordEvent) {
	if len(batch) == 0 {
		return
	}

	start := time.Now()
	ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)
	defer cancel()

	if err := bp.producer.PublishBatch(ctx, batch); err != nil {
		bp.logger.Printf("Batch publish failed, dropping %d record events: %v", len(batch), err)
		return
	}

	bp.logger.Printf("Batch published: %d record events in %v", len(batch), time.Since(start))
}

// Close stops the goroutines after publishing everything still buffered
func (bp *BatchProcessor) Close() {
	bp.bufferMutex.Lock()
	bp.closed = true
	bp.bufferMutex.Unlock()

	bp.cancel()
	bp.wg.Wait()
	bp.drain()
}
