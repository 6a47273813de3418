package callback

import (
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

const (
	defaultBatchSize     = 512
	defaultFlushInterval = 5 * time.Second
)

// BatchLogger queues log entries and hands them to flushFn periodically
// or when the queue reaches batchSize.
type BatchLogger struct {
	mu          sync.Mutex
	queue       []LogData
	batchSize   int
	flushTicker *time.Ticker
	flushFn     func(batch []LogData) error
	stopCh      chan struct{}
	stopped     bool
}

// NewBatchLogger creates a BatchLogger with the given flush function.
// Zero batchSize or interval select 512 entries and 5s.
func NewBatchLogger(flushFn func(batch []LogData) error, batchSize int, interval time.Duration) *BatchLogger {
	if batchSize <= 0 {
		batchSize = defaultBatchSize
	}
	if interval <= 0 {
		interval = defaultFlushInterval
	}
	return &BatchLogger{
		batchSize:   batchSize,
		flushFn:     flushFn,
		stopCh:      make(chan struct{}),
		flushTicker: time.NewTicker(interval),
	}
}

// Start begins the periodic flush goroutine.
func (b *BatchLogger) Start() {
	go func() {
		for {
			select {
			case <-b.flushTicker.C:
				b.flush()
			case <-b.stopCh:
				return
			}
		}
	}()
}

func (b *BatchLogger) LogSuccess(data LogData) { b.append(data) }
func (b *BatchLogger) LogFailure(data LogData) { b.append(data) }

func (b *BatchLogger) append(data LogData) {
	b.mu.Lock()
	b.queue = append(b.queue, data)
	shouldFlush := len(b.queue) >= b.batchSize
	b.mu.Unlock()

	if shouldFlush {
		b.flush()
	}
}

// flush hands the queue to flushFn. A failed batch is dropped, not
// re-queued.
func (b *BatchLogger) flush() {
	b.mu.Lock()
	if len(b.queue) == 0 {
		b.mu.Unlock()
		return
	}
	batch := b.queue
	b.queue = nil
	b.mu.Unlock()

	if err := b.flushFn(batch); err != nil {
		log.Warn().Err(err).Int("discarded", len(batch)).Msg("batch flush failed")
	}
}

// Stop flushes remaining items and stops the ticker.
func (b *BatchLogger) Stop() {
	b.mu.Lock()
	if b.stopped {
		b.mu.Unlock()
		return
	}
	b.stopped = true
	b.mu.Unlock()

	b.flushTicker.Stop()
	close(b.stopCh)
	b.flush()
}

// QueueLen returns the current queue length.
func (b *BatchLogger) QueueLen() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.queue)
}
