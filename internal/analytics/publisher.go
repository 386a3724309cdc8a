// Package analytics ships one event per turn to the configured sinks without
// ever blocking the turn that produced it.
package analytics

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"

	"blink/internal/domain"
)

type Sink interface {
	Record(ctx context.Context, ev domain.TurnEvent) error
}

// Publisher queues events on a bounded channel drained by Run. A full queue
// drops the event.
type Publisher struct {
	sink    Sink
	events  chan domain.TurnEvent
	timeout time.Duration
	logger  *slog.Logger
	dropped atomic.Int64
}

func NewPublisher(sink Sink, buffer int, timeout time.Duration, logger *slog.Logger) *Publisher {
	if buffer <= 0 {
		buffer = 256
	}
	if timeout <= 0 {
		timeout = 3 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Publisher{
		sink:    sink,
		events:  make(chan domain.TurnEvent, buffer),
		timeout: timeout,
		logger:  logger,
	}
}

func (p *Publisher) Publish(ev domain.TurnEvent) {
	select {
	case p.events <- ev:
	default:
		n := p.dropped.Add(1)
		p.logger.Warn("analytics buffer full, event dropped", "session_id", ev.SessionID, "dropped_total", n)
	}
}

func (p *Publisher) Dropped() int64 {
	return p.dropped.Load()
}

// Run delivers queued events until ctx is done, then flushes what is left.
func (p *Publisher) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			p.flush()
			return
		case ev := <-p.events:
			p.deliver(context.Background(), ev)
		}
	}
}

func (p *Publisher) flush() {
	for {
		select {
		case ev := <-p.events:
			p.deliver(context.Background(), ev)
		default:
			return
		}
	}
}

func (p *Publisher) deliver(parent context.Context, ev domain.TurnEvent) {
	ctx, cancel := context.WithTimeout(parent, p.timeout)
	defer cancel()
	if err := p.sink.Record(ctx, ev); err != nil {
		p.logger.Warn("analytics delivery failed", "session_id", ev.SessionID, "event_id", ev.EventID, "error", err)
	}
}
