// Package analytics tracks modelling requests as events, ships them through
// Kafka, and aggregates them into servable statistics with optional
// PostgreSQL snapshot persistence.
package analytics

import (
	"context"
	"log/slog"
	"sync/atomic"

	"github.com/qmodel/query-modelling-service/pkg/kafka"
	"github.com/qmodel/query-modelling-service/pkg/logger"
)

// Collector buffers query events and publishes them to Kafka from a
// background goroutine. Track never blocks the request path; events are
// dropped when the buffer is full or the collector has been closed. The
// event channel is never closed, so in-flight handlers may call Track at any
// point during shutdown without panicking.
type Collector struct {
	producer *kafka.Producer
	eventCh  chan QueryEvent
	quit     chan struct{}
	done     chan struct{}
	closed   atomic.Bool
	logger   *slog.Logger
}

// NewCollector creates a Collector with the given buffer size.
func NewCollector(producer *kafka.Producer, bufferSize int) *Collector {
	if bufferSize <= 0 {
		bufferSize = 10000
	}
	return &Collector{
		producer: producer,
		eventCh:  make(chan QueryEvent, bufferSize),
		quit:     make(chan struct{}),
		done:     make(chan struct{}),
		logger:   logger.WithComponent("analytics-collector"),
	}
}

// Start launches the publish loop. It drains remaining buffered events when
// ctx is cancelled or Close is called.
func (c *Collector) Start(ctx context.Context) {
	go func() {
		defer close(c.done)
		for {
			select {
			case event := <-c.eventCh:
				c.publish(ctx, event)
			case <-ctx.Done():
				c.drainRemaining()
				return
			case <-c.quit:
				c.drainRemaining()
				return
			}
		}
	}()
	c.logger.Info("analytics collector started", "buffer_size", cap(c.eventCh))
}

// Track enqueues an event for publishing. After Close it is a no-op.
func (c *Collector) Track(event QueryEvent) {
	if c.closed.Load() {
		return
	}
	select {
	case c.eventCh <- event:
	default:
		c.logger.Warn("analytics event dropped (buffer full)", "type", event.Type)
	}
}

// Close stops the publish loop after draining buffered events and waits for
// it to exit. Safe to call more than once.
func (c *Collector) Close() {
	if c.closed.Swap(true) {
		return
	}
	close(c.quit)
	<-c.done
}

func (c *Collector) publish(ctx context.Context, event QueryEvent) {
	err := c.producer.Publish(ctx, kafka.Event{
		Key:   string(event.Type),
		Value: event,
	})
	if err != nil {
		c.logger.Error("failed to publish analytics event", "type", event.Type, "error", err)
	}
}

func (c *Collector) drainRemaining() {
	for {
		select {
		case event := <-c.eventCh:
			c.publish(context.Background(), event)
		default:
			return
		}
	}
}
