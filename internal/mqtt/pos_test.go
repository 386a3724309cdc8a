package mqtt

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"blink/internal/domain"
	"blink/internal/gateway"
)

type doneToken struct{ err error }

func (t doneToken) Wait() bool                     { return true }
func (t doneToken) WaitTimeout(time.Duration) bool { return true }
func (t doneToken) Done() <-chan struct{} {
	ch := make(chan struct{})
	close(ch)
	return ch
}
func (t doneToken) Error() error { return t.err }

type fakeMessage struct {
	topic   string
	payload []byte
}

func (m fakeMessage) Duplicate() bool   { return false }
func (m fakeMessage) Qos() byte         { return 1 }
func (m fakeMessage) Retained() bool    { return false }
func (m fakeMessage) Topic() string     { return m.topic }
func (m fakeMessage) MessageID() uint16 { return 1 }
func (m fakeMessage) Payload() []byte   { return m.payload }
func (m fakeMessage) Ack()              {}

// terminal answers every published order on the matching ack topic.
type terminal struct {
	g         *POSGateway
	ack       Ack
	silent    bool
	published []OrderMessage
}

func (f *terminal) Publish(topic string, _ byte, _ bool, payload interface{}) paho.Token {
	var msg OrderMessage
	_ = json.Unmarshal(payload.([]byte), &msg)
	f.published = append(f.published, msg)
	if !f.silent {
		ack := f.ack
		ack.RequestID = ""
		body, _ := json.Marshal(ack)
		go f.g.handleAck(nil, fakeMessage{topic: TopicAck("blink", "main", ParseRequestID(topic)), payload: body})
	}
	return doneToken{}
}

func newTestGateway(t *testing.T, term *terminal, timeout time.Duration) *POSGateway {
	t.Helper()
	g := NewPOSGateway(POSConfig{TopicPrefix: "blink", StoreID: "main", AckTimeout: timeout}, slog.New(slog.NewTextHandler(io.Discard, nil)))
	term.g = g
	g.pub = term
	return g
}

func TestTopics(t *testing.T) {
	assert.Equal(t, "blink/pos/main/orders/r1", TopicOrder("blink", "main", "r1"))
	assert.Equal(t, "blink/pos/main/acks/r1", TopicAck("blink", "main", "r1"))
	assert.Equal(t, "blink/pos/main/acks/+", TopicAcks("blink", "main"))

	store, err := ParseStoreID("acme/blink/pos/store-7/acks/r1", "acme/blink")
	require.NoError(t, err)
	assert.Equal(t, "store-7", store)

	_, err = ParseStoreID("other/pos/store-7/acks/r1", "blink")
	assert.Error(t, err)
	_, err = ParseStoreID("blink/terminal/x/acks", "blink")
	assert.Error(t, err)
	assert.Equal(t, "r1", ParseRequestID("blink/pos/main/acks/r1"))
}

func TestPOSGatewayAcknowledged(t *testing.T) {
	term := &terminal{ack: Ack{OK: true, Reference: "POS-42"}}
	g := newTestGateway(t, term, time.Second)

	resp, err := g.Invoke(context.Background(), gateway.Request{
		Action:    gateway.ActionSubmitOrder,
		SessionID: "s1",
		RequestID: "req-1",
		Params:    map[string]any{"reference": "A-1"},
	})

	require.NoError(t, err)
	assert.Equal(t, "POS-42", resp.String("reference"))
	assert.Equal(t, "req-1", resp.String("request_id"))
	require.Len(t, term.published, 1)
	assert.Equal(t, "s1", term.published[0].SessionID)
	assert.Equal(t, "A-1", term.published[0].Order["reference"])
}

func TestPOSGatewayRefused(t *testing.T) {
	term := &terminal{ack: Ack{OK: false, Error: "kitchen closed"}}
	g := newTestGateway(t, term, time.Second)

	_, err := g.Invoke(context.Background(), gateway.Request{Action: gateway.ActionSubmitOrder})

	assert.ErrorIs(t, err, domain.ErrProviderRejected)
}

func TestPOSGatewayAckTimeout(t *testing.T) {
	term := &terminal{silent: true}
	g := newTestGateway(t, term, 20*time.Millisecond)

	_, err := g.Invoke(context.Background(), gateway.Request{Action: gateway.ActionSubmitOrder})

	assert.ErrorIs(t, err, domain.ErrProviderTimeout)
	assert.Empty(t, g.pending)
}

func TestPOSGatewayCallDeadlineBeatsAckTimeout(t *testing.T) {
	term := &terminal{silent: true}
	g := newTestGateway(t, term, time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err := g.Invoke(ctx, gateway.Request{Action: gateway.ActionSubmitOrder})

	assert.ErrorIs(t, err, domain.ErrProviderTimeout)
	assert.True(t, gateway.IsTransient(err))

	ctx, cancel = context.WithCancel(context.Background())
	cancel()
	_, err = g.Invoke(ctx, gateway.Request{Action: gateway.ActionSubmitOrder})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestPOSGatewayOffline(t *testing.T) {
	term := &terminal{}
	g := newTestGateway(t, term, time.Second)

	g.handleOnline(nil, fakeMessage{topic: TopicOnline("blink", "main"), payload: []byte("0")})
	_, err := g.Invoke(context.Background(), gateway.Request{Action: gateway.ActionSubmitOrder})
	assert.True(t, errors.Is(err, ErrPOSOffline))
	assert.Empty(t, term.published)

	g.handleOnline(nil, fakeMessage{topic: TopicOnline("blink", "main"), payload: []byte("online")})
	_, err = g.Invoke(context.Background(), gateway.Request{Action: gateway.ActionSubmitOrder})
	assert.NoError(t, err)
}

func TestPOSGatewayRejectsOtherActions(t *testing.T) {
	g := newTestGateway(t, &terminal{}, time.Second)
	_, err := g.Invoke(context.Background(), gateway.Request{Action: gateway.ActionGetMenu})
	assert.ErrorIs(t, err, domain.ErrProviderRejected)
}
