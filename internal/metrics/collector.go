package metrics

import (
	"context"
	"log/slog"
	"sync/atomic"

	"github.com/angeloszaimis/circuit-gate/internal/event"
)

type Collector struct {
	eventCh    chan event.Event
	metrics    *Metrics
	prometheus *Prometheus
	logger     *slog.Logger
	dropped    atomic.Int64
}

type Option func(*Collector)

// WithPrometheus mirrors every processed event into p.
func WithPrometheus(p *Prometheus) Option {
	return func(c *Collector) { c.prometheus = p }
}

func NewCollector(bufferSize int, logger *slog.Logger, opts ...Option) *Collector {
	c := &Collector{
		eventCh: make(chan event.Event, bufferSize),
		metrics: NewMetrics(),
		logger:  logger,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Log queues e for processing. It never blocks; when the buffer is full the
// event is dropped.
func (c *Collector) Log(e event.Event) {
	select {
	case c.eventCh <- e:
	default:
		c.dropped.Add(1)
		if c.prometheus != nil {
			c.prometheus.dropped.Inc()
		}
	}
}

func (c *Collector) Start(ctx context.Context) {
	go c.run(ctx)
}

func (c *Collector) run(ctx context.Context) {
	c.logger.Info("Metrics collector started")
	defer c.logger.Info("Metrics collector stopped")

	for {
		select {
		case e := <-c.eventCh:
			c.processEvent(e)
		case <-ctx.Done():
			c.drain()
			return
		}
	}
}

func (c *Collector) processEvent(e event.Event) {
	open := c.metrics.Record(e)
	if c.prometheus != nil {
		c.prometheus.observe(e, open)
	}
}

func (c *Collector) drain() {
	for {
		select {
		case e := <-c.eventCh:
			c.processEvent(e)
		default:
			return
		}
	}
}

func (c *Collector) Dropped() int64 {
	return c.dropped.Load()
}

func (c *Collector) Snapshot() Snapshot {
	snap := c.metrics.Snapshot()
	snap.Dropped = c.dropped.Load()
	return snap
}
