package analytics

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"

	"blink/internal/domain"
	"blink/internal/gateway"
)

// Multi fans an event out to every sink and joins their errors.
type Multi []Sink

func (m Multi) Record(ctx context.Context, ev domain.TurnEvent) error {
	var errs []error
	for _, s := range m {
		if err := s.Record(ctx, ev); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

type LogSink struct {
	Logger *slog.Logger
}

func (s LogSink) Record(_ context.Context, ev domain.TurnEvent) error {
	s.Logger.Info("turn event",
		"session_id", ev.SessionID,
		"intent", ev.Intent,
		"confidence", ev.Confidence,
		"state_before", ev.StateBefore,
		"state_after", ev.StateAfter,
		"success", ev.Success,
		"failure_kind", ev.FailureKind,
	)
	return nil
}

// WebhookSink forwards events through the track_event workflow action.
type WebhookSink struct {
	gw gateway.Gateway
}

func NewWebhookSink(gw gateway.Gateway) *WebhookSink {
	return &WebhookSink{gw: gw}
}

func (s *WebhookSink) Record(ctx context.Context, ev domain.TurnEvent) error {
	_, err := s.gw.Invoke(ctx, gateway.Request{
		Action:    gateway.ActionTrackEvent,
		SessionID: ev.SessionID,
		RequestID: ev.EventID,
		Params:    map[string]any{"event": ev},
	})
	return err
}

type eventWriter interface {
	InsertTurnEvent(ctx context.Context, ev domain.TurnEvent) error
}

// PostgresSink writes events through db.Store.
type PostgresSink struct {
	store eventWriter
}

func NewPostgresSink(store eventWriter) *PostgresSink {
	return &PostgresSink{store: store}
}

func (s *PostgresSink) Record(ctx context.Context, ev domain.TurnEvent) error {
	if err := s.store.InsertTurnEvent(ctx, ev); err != nil {
		return fmt.Errorf("insert turn event: %w", err)
	}
	return nil
}

type streamAdder interface {
	XAdd(ctx context.Context, a *redis.XAddArgs) *redis.StringCmd
}

// RedisStreamSink appends events to a capped Redis stream.
type RedisStreamSink struct {
	client streamAdder
	stream string
	maxLen int64
}

func NewRedisStreamSink(client streamAdder, stream string, maxLen int64) *RedisStreamSink {
	if maxLen <= 0 {
		maxLen = 100000
	}
	return &RedisStreamSink{client: client, stream: stream, maxLen: maxLen}
}

func (s *RedisStreamSink) Record(ctx context.Context, ev domain.TurnEvent) error {
	payload, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	err = s.client.XAdd(ctx, &redis.XAddArgs{
		Stream: s.stream,
		MaxLen: s.maxLen,
		Approx: true,
		Values: map[string]any{
			"event_id":   ev.EventID,
			"session_id": ev.SessionID,
			"intent":     string(ev.Intent),
			"success":    ev.Success,
			"payload":    string(payload),
		},
	}).Err()
	if err != nil {
		return fmt.Errorf("xadd %s: %w", s.stream, err)
	}
	return nil
}
