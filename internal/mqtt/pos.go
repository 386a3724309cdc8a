// Package mqtt hands confirmed orders to a point-of-sale terminal over MQTT
// and waits for its acknowledgment.
package mqtt

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"

	"blink/internal/domain"
	"blink/internal/gateway"
)

var ErrPOSOffline = errors.New("pos terminal offline")

type POSConfig struct {
	BrokerURL   string
	ClientID    string
	Username    string
	Password    string
	TopicPrefix string
	StoreID     string
	// AckTimeout bounds the wait for an ack. A shorter caller deadline wins.
	AckTimeout time.Duration
}

type publisher interface {
	Publish(topic string, qos byte, retained bool, payload interface{}) paho.Token
}

// OrderMessage is published on the store's orders topic.
type OrderMessage struct {
	RequestID string         `json:"request_id"`
	SessionID string         `json:"session_id"`
	Order     map[string]any `json:"order"`
	SentAt    time.Time      `json:"sent_at"`
}

// Ack is the terminal's reply on the acks topic.
type Ack struct {
	RequestID string `json:"request_id"`
	OK        bool   `json:"ok"`
	Reference string `json:"reference,omitempty"`
	Error     string `json:"error,omitempty"`
}

// POSGateway implements gateway.Gateway for the submit_order action.
type POSGateway struct {
	cfg    POSConfig
	client paho.Client
	pub    publisher
	logger *slog.Logger

	// offline is set only after the terminal announces it went away.
	offline atomic.Bool

	pendingMu sync.Mutex
	pending   map[string]chan Ack
}

func NewPOSGateway(cfg POSConfig, logger *slog.Logger) *POSGateway {
	if cfg.AckTimeout <= 0 {
		cfg.AckTimeout = 3 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &POSGateway{
		cfg:     cfg,
		logger:  logger,
		pending: make(map[string]chan Ack),
	}
}

func (g *POSGateway) Start(ctx context.Context) error {
	opts := paho.NewClientOptions().
		AddBroker(g.cfg.BrokerURL).
		SetClientID(g.cfg.ClientID).
		SetAutoReconnect(true).
		SetConnectRetry(true)

	if g.cfg.Username != "" {
		opts.SetUsername(g.cfg.Username)
		opts.SetPassword(g.cfg.Password)
	}

	opts.SetConnectionLostHandler(func(_ paho.Client, err error) {
		g.logger.Error("mqtt connection lost", "error", err)
	})

	g.client = paho.NewClient(opts)
	if token := g.client.Connect(); token.Wait() && token.Error() != nil {
		return token.Error()
	}
	g.pub = g.client

	if token := g.client.Subscribe(TopicAcks(g.cfg.TopicPrefix, g.cfg.StoreID), 1, g.handleAck); token.Wait() && token.Error() != nil {
		return token.Error()
	}
	if token := g.client.Subscribe(TopicOnline(g.cfg.TopicPrefix, g.cfg.StoreID), 1, g.handleOnline); token.Wait() && token.Error() != nil {
		return token.Error()
	}

	go func() {
		<-ctx.Done()
		g.client.Disconnect(100)
	}()

	g.logger.Info("pos gateway connected", "broker", g.cfg.BrokerURL, "store_id", g.cfg.StoreID)
	return nil
}

func (g *POSGateway) handleOnline(_ paho.Client, msg paho.Message) {
	storeID, err := ParseStoreID(msg.Topic(), g.cfg.TopicPrefix)
	if err != nil {
		g.logger.Warn("skip invalid online topic", "topic", msg.Topic(), "error", err)
		return
	}
	payload := strings.TrimSpace(strings.ToLower(string(msg.Payload())))
	online := payload == "1" || payload == "true" || payload == "online"
	g.offline.Store(!online)
	g.logger.Info("pos terminal online status", "store_id", storeID, "online", online)
}

func (g *POSGateway) handleAck(_ paho.Client, msg paho.Message) {
	requestID := ParseRequestID(msg.Topic())
	if requestID == "" {
		return
	}

	var ack Ack
	if err := json.Unmarshal(msg.Payload(), &ack); err != nil {
		g.logger.Warn("invalid pos ack", "topic", msg.Topic(), "error", err)
		return
	}
	if ack.RequestID == "" {
		ack.RequestID = requestID
	}

	g.pendingMu.Lock()
	ch, ok := g.pending[ack.RequestID]
	g.pendingMu.Unlock()
	if !ok {
		return
	}

	select {
	case ch <- ack:
	default:
	}
}

func (g *POSGateway) Invoke(ctx context.Context, req gateway.Request) (gateway.Response, error) {
	if req.Action != gateway.ActionSubmitOrder {
		return gateway.Response{}, &domain.RejectedError{Provider: "pos", Reason: fmt.Sprintf("unsupported action %q", req.Action)}
	}
	if g.pub == nil {
		return gateway.Response{}, fmt.Errorf("pos gateway not started")
	}
	if g.offline.Load() {
		return gateway.Response{}, ErrPOSOffline
	}

	requestID := req.RequestID
	if requestID == "" {
		requestID = uuid.NewString()
	}
	body, err := json.Marshal(OrderMessage{
		RequestID: requestID,
		SessionID: req.SessionID,
		Order:     req.Params,
		SentAt:    time.Now().UTC(),
	})
	if err != nil {
		return gateway.Response{}, err
	}

	ackCh := make(chan Ack, 1)
	g.pendingMu.Lock()
	g.pending[requestID] = ackCh
	g.pendingMu.Unlock()
	defer func() {
		g.pendingMu.Lock()
		delete(g.pending, requestID)
		g.pendingMu.Unlock()
	}()

	topic := TopicOrder(g.cfg.TopicPrefix, g.cfg.StoreID, requestID)
	if token := g.pub.Publish(topic, 1, false, body); token.Wait() && token.Error() != nil {
		return gateway.Response{}, token.Error()
	}

	timer := time.NewTimer(g.cfg.AckTimeout)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return gateway.Response{}, fmt.Errorf("%w: no pos ack before call deadline", domain.ErrProviderTimeout)
		}
		return gateway.Response{}, ctx.Err()
	case ack := <-ackCh:
		if !ack.OK {
			if ack.Error == "" {
				ack.Error = "order refused"
			}
			return gateway.Response{}, &domain.RejectedError{Provider: "pos", Reason: ack.Error}
		}
		return gateway.Response{Data: map[string]any{
			"request_id": ack.RequestID,
			"reference":  ack.Reference,
		}}, nil
	case <-timer.C:
		return gateway.Response{}, fmt.Errorf("%w: no pos ack within %s", domain.ErrProviderTimeout, g.cfg.AckTimeout)
	}
}
