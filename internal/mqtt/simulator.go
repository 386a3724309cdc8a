package mqtt

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"math"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
)

type SimulatorConfig struct {
	BrokerURL   string
	ClientID    string
	Username    string
	Password    string
	TopicPrefix string
	StoreID     string
	// Known lists the item names the till accepts. Empty accepts anything.
	Known []string
	// MaxTotal refuses larger orders. Zero disables the check.
	MaxTotal float64
	History  int
}

// ReceivedOrder is one order the simulator has answered.
type ReceivedOrder struct {
	RequestID  string         `json:"request_id"`
	SessionID  string         `json:"session_id"`
	Order      map[string]any `json:"order"`
	Ack        Ack            `json:"ack"`
	ReceivedAt time.Time      `json:"received_at"`
}

// Simulator plays the point-of-sale terminal side of the order topics.
type Simulator struct {
	cfg    SimulatorConfig
	client paho.Client
	pub    publisher
	logger *slog.Logger
	known  map[string]struct{}
	seq    atomic.Int64

	mu     sync.Mutex
	orders []ReceivedOrder
}

func NewSimulator(cfg SimulatorConfig, logger *slog.Logger) *Simulator {
	if cfg.History <= 0 {
		cfg.History = 50
	}
	if logger == nil {
		logger = slog.Default()
	}
	known := make(map[string]struct{}, len(cfg.Known))
	for _, name := range cfg.Known {
		known[strings.ToLower(strings.TrimSpace(name))] = struct{}{}
	}
	return &Simulator{cfg: cfg, logger: logger, known: known}
}

func (s *Simulator) Start(ctx context.Context) error {
	opts := paho.NewClientOptions().
		AddBroker(s.cfg.BrokerURL).
		SetClientID(s.cfg.ClientID).
		SetAutoReconnect(true).
		SetConnectRetry(true)

	if s.cfg.Username != "" {
		opts.SetUsername(s.cfg.Username)
		opts.SetPassword(s.cfg.Password)
	}

	onlineTopic := TopicOnline(s.cfg.TopicPrefix, s.cfg.StoreID)
	opts.SetWill(onlineTopic, "offline", 1, true)

	s.client = paho.NewClient(opts)
	if token := s.client.Connect(); token.Wait() && token.Error() != nil {
		return token.Error()
	}
	s.pub = s.client

	if token := s.client.Subscribe(TopicOrders(s.cfg.TopicPrefix, s.cfg.StoreID), 1, s.handleOrder); token.Wait() && token.Error() != nil {
		return token.Error()
	}
	if err := s.SetOnline(true); err != nil {
		return err
	}

	go func() {
		<-ctx.Done()
		_ = s.SetOnline(false)
		s.client.Disconnect(100)
	}()

	s.logger.Info("pos simulator connected", "broker", s.cfg.BrokerURL, "store_id", s.cfg.StoreID)
	return nil
}

// SetOnline publishes the retained availability flag the gateway watches.
func (s *Simulator) SetOnline(online bool) error {
	if s.pub == nil {
		return fmt.Errorf("pos simulator not started")
	}
	payload := "offline"
	if online {
		payload = "online"
	}
	topic := TopicOnline(s.cfg.TopicPrefix, s.cfg.StoreID)
	if token := s.pub.Publish(topic, 1, true, payload); token.Wait() && token.Error() != nil {
		return token.Error()
	}
	s.logger.Info("pos simulator availability", "store_id", s.cfg.StoreID, "online", online)
	return nil
}

// Orders returns the most recent answered orders, oldest first.
func (s *Simulator) Orders() []ReceivedOrder {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]ReceivedOrder(nil), s.orders...)
}

func (s *Simulator) handleOrder(_ paho.Client, msg paho.Message) {
	requestID := ParseRequestID(msg.Topic())
	var order OrderMessage
	if err := json.Unmarshal(msg.Payload(), &order); err != nil {
		s.logger.Warn("invalid order payload", "topic", msg.Topic(), "error", err)
		return
	}
	if order.RequestID == "" {
		order.RequestID = requestID
	}

	ack, seen := s.previous(order.RequestID)
	if !seen {
		ack = s.Decide(order)
		s.record(order, ack)
	}

	body, _ := json.Marshal(ack)
	topic := TopicAck(s.cfg.TopicPrefix, s.cfg.StoreID, order.RequestID)
	if token := s.pub.Publish(topic, 1, false, body); token.Wait() && token.Error() != nil {
		s.logger.Error("publish ack failed", "request_id", order.RequestID, "error", token.Error())
		return
	}
	s.logger.Info("order answered", "request_id", order.RequestID, "session_id", order.SessionID, "ok", ack.OK, "reference", ack.Reference)
}

// Decide accepts an order unless it names an item the till does not sell or
// exceeds the configured total.
func (s *Simulator) Decide(order OrderMessage) Ack {
	ack := Ack{RequestID: order.RequestID}

	items, _ := order.Order["items"].([]any)
	if len(items) == 0 {
		ack.Error = "order has no items"
		return ack
	}
	total := 0.0
	for _, raw := range items {
		item, _ := raw.(map[string]any)
		name, _ := item["name"].(string)
		if len(s.known) > 0 {
			if _, ok := s.known[strings.ToLower(strings.TrimSpace(name))]; !ok {
				ack.Error = fmt.Sprintf("unknown item %q", name)
				return ack
			}
		}
		qty, _ := item["quantity"].(float64)
		price, _ := item["price"].(float64)
		total += qty * price
	}
	if s.cfg.MaxTotal > 0 && total > s.cfg.MaxTotal+1e-9 {
		ack.Error = fmt.Sprintf("order total %.2f over limit %.2f", math.Round(total*100)/100, s.cfg.MaxTotal)
		return ack
	}

	ack.OK = true
	ack.Reference = fmt.Sprintf("POS-%s-%04d", strings.ToUpper(s.cfg.StoreID), s.seq.Add(1))
	return ack
}

// previous returns the ack already sent for a redelivered or retried order.
func (s *Simulator) previous(requestID string) (Ack, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := len(s.orders) - 1; i >= 0; i-- {
		if s.orders[i].RequestID == requestID {
			return s.orders[i].Ack, true
		}
	}
	return Ack{}, false
}

func (s *Simulator) record(order OrderMessage, ack Ack) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.orders = append(s.orders, ReceivedOrder{
		RequestID:  order.RequestID,
		SessionID:  order.SessionID,
		Order:      order.Order,
		Ack:        ack,
		ReceivedAt: time.Now(),
	})
	if len(s.orders) > s.cfg.History {
		s.orders = append([]ReceivedOrder(nil), s.orders[len(s.orders)-s.cfg.History:]...)
	}
}
