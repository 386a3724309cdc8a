package analytics

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"blink/internal/domain"
	"blink/internal/gateway"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type recordingSink struct {
	mu     sync.Mutex
	events []domain.TurnEvent
	block  chan struct{}
	err    error
}

func (s *recordingSink) Record(_ context.Context, ev domain.TurnEvent) error {
	if s.block != nil {
		<-s.block
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, ev)
	return s.err
}

func (s *recordingSink) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.events)
}

func TestPublisherDeliversInOrder(t *testing.T) {
	sink := &recordingSink{}
	p := NewPublisher(sink, 8, time.Second, quietLogger())
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		p.Run(ctx)
		close(done)
	}()

	p.Publish(domain.TurnEvent{EventID: "e1"})
	p.Publish(domain.TurnEvent{EventID: "e2"})

	require.Eventually(t, func() bool { return sink.count() == 2 }, time.Second, 5*time.Millisecond)
	cancel()
	<-done
	assert.Equal(t, "e1", sink.events[0].EventID)
	assert.Equal(t, "e2", sink.events[1].EventID)
}

func TestPublisherDropsWhenFull(t *testing.T) {
	sink := &recordingSink{}
	p := NewPublisher(sink, 1, time.Second, quietLogger())

	p.Publish(domain.TurnEvent{EventID: "kept"})
	p.Publish(domain.TurnEvent{EventID: "dropped"})

	assert.Equal(t, int64(1), p.Dropped())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	p.Run(ctx)
	require.Equal(t, 1, sink.count())
	assert.Equal(t, "kept", sink.events[0].EventID)
}

func TestPublisherSurvivesSinkErrors(t *testing.T) {
	sink := &recordingSink{err: errors.New("down")}
	p := NewPublisher(sink, 4, time.Second, quietLogger())
	p.Publish(domain.TurnEvent{EventID: "e1"})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.NotPanics(t, func() { p.Run(ctx) })
	assert.Equal(t, 1, sink.count())
}

func TestMultiJoinsErrors(t *testing.T) {
	ok := &recordingSink{}
	bad := &recordingSink{err: errors.New("boom")}

	err := Multi{ok, bad, LogSink{Logger: quietLogger()}}.Record(context.Background(), domain.TurnEvent{EventID: "e1"})

	assert.EqualError(t, err, "boom")
	assert.Equal(t, 1, ok.count())
}

type captureGateway struct {
	req gateway.Request
}

func (g *captureGateway) Invoke(_ context.Context, req gateway.Request) (gateway.Response, error) {
	g.req = req
	return gateway.Response{}, nil
}

func TestWebhookSink(t *testing.T) {
	gw := &captureGateway{}
	err := NewWebhookSink(gw).Record(context.Background(), domain.TurnEvent{EventID: "e1", SessionID: "s1"})

	require.NoError(t, err)
	assert.Equal(t, gateway.ActionTrackEvent, gw.req.Action)
	assert.Equal(t, "e1", gw.req.RequestID)
	assert.Equal(t, "s1", gw.req.Params["event"].(domain.TurnEvent).SessionID)
}

type fakeWriter struct{ err error }

func (w fakeWriter) InsertTurnEvent(context.Context, domain.TurnEvent) error { return w.err }

func TestPostgresSinkWrapsError(t *testing.T) {
	assert.NoError(t, NewPostgresSink(fakeWriter{}).Record(context.Background(), domain.TurnEvent{}))
	err := NewPostgresSink(fakeWriter{err: errors.New("conn refused")}).Record(context.Background(), domain.TurnEvent{})
	assert.ErrorContains(t, err, "insert turn event")
}

type fakeStream struct {
	args *redis.XAddArgs
}

func (f *fakeStream) XAdd(_ context.Context, a *redis.XAddArgs) *redis.StringCmd {
	f.args = a
	return redis.NewStringResult("1-0", nil)
}

func TestRedisStreamSink(t *testing.T) {
	fs := &fakeStream{}
	sink := NewRedisStreamSink(fs, "blink:turns", 0)

	err := sink.Record(context.Background(), domain.TurnEvent{EventID: "e1", SessionID: "s1", Intent: domain.IntentGetMenu, Success: true})

	require.NoError(t, err)
	require.NotNil(t, fs.args)
	assert.Equal(t, "blink:turns", fs.args.Stream)
	assert.True(t, fs.args.Approx)
	values := fs.args.Values.(map[string]any)
	assert.Equal(t, "get_menu", values["intent"])

	var decoded domain.TurnEvent
	require.NoError(t, json.Unmarshal([]byte(values["payload"].(string)), &decoded))
	assert.Equal(t, "s1", decoded.SessionID)
}
