package analytics

import (
	"context"
	"log/slog"
	"sync"

	"github.com/Adithya-Monish-Kumar-K/novel-memory/pkg/kafka"
)

// Publisher is the write side of an event stream.
type Publisher interface {
	Publish(ctx context.Context, event kafka.Event) error
}

// Collector buffers events and publishes them from a background goroutine so
// that tracking never blocks a build or a query.
type Collector struct {
	publisher Publisher
	eventCh   chan kafka.Event
	logger    *slog.Logger
	done      chan struct{}
	closeOnce sync.Once
}

func NewCollector(publisher Publisher, bufferSize int) *Collector {
	if bufferSize <= 0 {
		bufferSize = 10000
	}
	return &Collector{
		publisher: publisher,
		eventCh:   make(chan kafka.Event, bufferSize),
		logger:    slog.Default().With("component", "analytics-collector"),
		done:      make(chan struct{}),
	}
}

func (c *Collector) Start(ctx context.Context) {
	go func() {
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
	}()
	c.logger.Info("analytics collector started", "buffer_size", cap(c.eventCh))
}

// Track queues an event keyed for partitioning. Events are dropped when the
// buffer is full.
func (c *Collector) Track(key string, event any) {
	select {
	case c.eventCh <- kafka.Event{Key: key, Value: event}:
	default:
		c.logger.Warn("analytics event dropped (buffer full)", "key", key)
	}
}

// Close stops accepting events and waits for the queue to drain.
func (c *Collector) Close() {
	c.closeOnce.Do(func() { close(c.eventCh) })
	<-c.done
}

func (c *Collector) publish(ctx context.Context, event kafka.Event) {
	if err := c.publisher.Publish(ctx, event); err != nil {
		c.logger.Error("failed to publish analytics event", "key", event.Key, "error", err)
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

// Router sends build events and every other event to separate publishers,
// one per topic.
type Router struct {
	Builds  Publisher
	Queries Publisher
}

func (r Router) Publish(ctx context.Context, event kafka.Event) error {
	if _, ok := event.Value.(BuildEvent); ok {
		return r.Builds.Publish(ctx, event)
	}
	return r.Queries.Publish(ctx, event)
}
