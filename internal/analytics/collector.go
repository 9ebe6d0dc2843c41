// Package analytics records evaluated queries: events are published to Kafka
// in the background and aggregated in process for the stats endpoint.
package analytics

import (
	"context"
	"log/slog"
	"sync"

	"github.com/Adithya-Monish-Kumar-K/Structured-Query-Engine/pkg/kafka"
)

// Publisher is satisfied by *kafka.Producer.
type Publisher interface {
	Publish(ctx context.Context, events ...kafka.Event) error
}

// Collector buffers events and publishes them from a single goroutine so
// query evaluation never waits on the broker. Either sink may be nil.
type Collector struct {
	publisher  Publisher
	aggregator *Aggregator
	eventCh    chan QueryEvent
	done       chan struct{}
	startOnce  sync.Once
	closeOnce  sync.Once
	logger     *slog.Logger

	// mu guards sends on eventCh against Close.
	mu     sync.RWMutex
	closed bool
}

func NewCollector(publisher Publisher, aggregator *Aggregator, bufferSize int) *Collector {
	if bufferSize <= 0 {
		bufferSize = 10000
	}
	return &Collector{
		publisher:  publisher,
		aggregator: aggregator,
		eventCh:    make(chan QueryEvent, bufferSize),
		done:       make(chan struct{}),
		logger:     slog.Default().With("component", "analytics-collector"),
	}
}

func (c *Collector) Start(ctx context.Context) {
	c.startOnce.Do(func() {
		go c.run(ctx)
		c.logger.Info("analytics collector started", "buffer_size", cap(c.eventCh))
	})
}

func (c *Collector) run(ctx context.Context) {
	defer close(c.done)
	for {
		select {
		case event, ok := <-c.eventCh:
			if !ok {
				return
			}
			c.publish(ctx, event)
		case <-ctx.Done():
			c.drainRemaining()
			return
		}
	}
}

// Track records event without blocking. Events are dropped when the buffer
// is full or the collector is closed.
func (c *Collector) Track(event QueryEvent) {
	if c.aggregator != nil {
		c.aggregator.Record(event)
	}
	if c.publisher == nil {
		return
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.closed {
		c.logger.Debug("analytics event dropped (collector closed)", "query_id", event.QueryID)
		return
	}
	select {
	case c.eventCh <- event:
	default:
		c.logger.Warn("analytics event dropped (buffer full)", "query_id", event.QueryID)
	}
}

// Close flushes buffered events and stops the publisher goroutine. It must
// follow Start.
func (c *Collector) Close() {
	c.closeOnce.Do(func() {
		c.mu.Lock()
		c.closed = true
		close(c.eventCh)
		c.mu.Unlock()
		<-c.done
	})
}

func (c *Collector) publish(ctx context.Context, event QueryEvent) {
	if err := c.publisher.Publish(ctx, kafka.Event{Key: event.Model, Value: event}); err != nil {
		c.logger.Error("failed to publish analytics event", "query_id", event.QueryID, "error", err)
	}
}

func (c *Collector) drainRemaining() {
	for {
		select {
		case event, ok := <-c.eventCh:
			if !ok {
				return
			}
			c.publish(context.Background(), event)
		default:
			return
		}
	}
}
