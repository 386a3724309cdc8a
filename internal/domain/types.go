package domain

import (
	"strings"
	"time"
)

type State string

const (
	StateGreeting        State = "GREETING"
	StateBrowsingMenu    State = "BROWSING_MENU"
	StateAwaitingPhone   State = "AWAITING_PHONE"
	StateAwaitingAddress State = "AWAITING_ADDRESS"
	StateBuildingOrder   State = "BUILDING_ORDER"
	StateConfirmingOrder State = "CONFIRMING_ORDER"
	StateOrderPlaced     State = "ORDER_PLACED"
	// StateChitchat is only ever reported as the stage of a small-talk turn.
	// Sessions never rest in it.
	StateChitchat State = "CHITCHAT"
	StateEnded    State = "ENDED"
)

type TurnRequest struct {
	SessionID string `json:"session_id"`
	Utterance string `json:"utterance"`
	Channel   string `json:"channel,omitempty"`
	UserID    string `json:"user_id,omitempty"`
}

type TurnResult struct {
	SessionID   string         `json:"session_id"`
	Reply       string         `json:"reply"`
	State       State          `json:"state"`
	Stage       State          `json:"stage"`
	SessionDone bool           `json:"session_done"`
	Summary     SessionSummary `json:"summary"`
}

type MenuItem struct {
	Name     string   `json:"name" yaml:"name"`
	Aliases  []string `json:"aliases,omitempty" yaml:"aliases"`
	Price    float64  `json:"price" yaml:"price"`
	Category string   `json:"category" yaml:"category"`
}

type OrderLine struct {
	Item     MenuItem `json:"item"`
	Quantity int      `json:"quantity"`
}

type PlacedOrder struct {
	Reference string      `json:"reference,omitempty"`
	ETA       string      `json:"eta,omitempty"`
	Lines     []OrderLine `json:"lines"`
	Notes     string      `json:"notes,omitempty"`
	PlacedAt  time.Time   `json:"placed_at"`
}

type Exchange struct {
	Utterance string    `json:"utterance"`
	Intent    Intent    `json:"intent"`
	Reply     string    `json:"reply"`
	At        time.Time `json:"at"`
}

type Session struct {
	SessionID       string
	Channel         string
	UserID          string
	State           State
	History         []Exchange
	PendingOrder    []OrderLine
	OrderNotes      string
	CustomerPhone   string
	CustomerAddress string
	LastOrder       *PlacedOrder
	Done            bool
	TurnCount       int
	CreatedAt       time.Time
	LastActiveAt    time.Time
}

func NewSession(sessionID string, now time.Time) Session {
	return Session{
		SessionID:    sessionID,
		State:        StateGreeting,
		CreatedAt:    now,
		LastActiveAt: now,
	}
}

// Clone returns a deep copy so that callers never share slices with the store.
func (s Session) Clone() Session {
	out := s
	out.History = append([]Exchange(nil), s.History...)
	out.PendingOrder = make([]OrderLine, len(s.PendingOrder))
	for i, line := range s.PendingOrder {
		line.Item.Aliases = append([]string(nil), line.Item.Aliases...)
		out.PendingOrder[i] = line
	}
	if s.LastOrder != nil {
		order := *s.LastOrder
		order.Lines = append([]OrderLine(nil), s.LastOrder.Lines...)
		out.LastOrder = &order
	}
	return out
}

// AppendExchange records one turn and drops the oldest entries beyond limit.
func (s *Session) AppendExchange(ex Exchange, limit int) {
	s.History = append(s.History, ex)
	if limit > 0 && len(s.History) > limit {
		s.History = append([]Exchange(nil), s.History[len(s.History)-limit:]...)
	}
}

// AddToOrder merges quantity into an existing line for the same item or appends a new line.
func (s *Session) AddToOrder(item MenuItem, quantity int) {
	if quantity <= 0 {
		quantity = 1
	}
	for i := range s.PendingOrder {
		if s.PendingOrder[i].Item.Name == item.Name {
			s.PendingOrder[i].Quantity += quantity
			return
		}
	}
	s.PendingOrder = append(s.PendingOrder, OrderLine{Item: item, Quantity: quantity})
}

// AddOrderNote appends a kitchen note ("no onions") to the pending order.
func (s *Session) AddOrderNote(note string) {
	note = strings.TrimSpace(note)
	if note == "" || strings.Contains(s.OrderNotes, note) {
		return
	}
	if s.OrderNotes != "" {
		s.OrderNotes += "; "
	}
	s.OrderNotes += note
}

// ClearOrder drops the pending lines and their notes.
func (s *Session) ClearOrder() {
	s.PendingOrder = nil
	s.OrderNotes = ""
}

func (s Session) OrderTotal() float64 {
	var total float64
	for _, line := range s.PendingOrder {
		total += line.Item.Price * float64(line.Quantity)
	}
	return total
}

func (s Session) Summary() SessionSummary {
	items := make([]SummaryLine, 0, len(s.PendingOrder))
	for _, line := range s.PendingOrder {
		items = append(items, SummaryLine{Name: line.Item.Name, Quantity: line.Quantity})
	}
	out := SessionSummary{
		State:        s.State,
		PendingOrder: items,
		OrderNotes:   s.OrderNotes,
		OrderTotal:   s.OrderTotal(),
		HasPhone:     s.CustomerPhone != "",
		HasAddress:   s.CustomerAddress != "",
		TurnCount:    s.TurnCount,
		LastActiveAt: s.LastActiveAt,
	}
	if s.LastOrder != nil {
		out.LastOrderReference = s.LastOrder.Reference
	}
	return out
}

type SummaryLine struct {
	Name     string `json:"name"`
	Quantity int    `json:"quantity"`
}

type SessionSummary struct {
	State              State         `json:"state"`
	PendingOrder       []SummaryLine `json:"pending_order"`
	OrderNotes         string        `json:"order_notes,omitempty"`
	OrderTotal         float64       `json:"order_total"`
	HasPhone           bool          `json:"has_phone"`
	HasAddress         bool          `json:"has_address"`
	LastOrderReference string        `json:"last_order_reference,omitempty"`
	TurnCount          int           `json:"turn_count"`
	LastActiveAt       time.Time     `json:"last_active_at"`
}

// TurnEvent is the analytics record emitted once per turn.
type TurnEvent struct {
	EventID        string    `json:"event_id"`
	SessionID      string    `json:"session_id"`
	Channel        string    `json:"channel,omitempty"`
	UserID         string    `json:"user_id,omitempty"`
	Intent         Intent    `json:"intent"`
	Confidence     float64   `json:"confidence"`
	StateBefore    State     `json:"state_before"`
	StateAfter     State     `json:"state_after"`
	Success        bool      `json:"success"`
	FailureKind    string    `json:"failure_kind,omitempty"`
	Utterance      string    `json:"utterance"`
	Reply          string    `json:"reply"`
	Entities       Entities  `json:"entities"`
	PendingItems   int       `json:"pending_items"`
	OrderReference string    `json:"order_reference,omitempty"`
	Satisfaction   *float64  `json:"satisfaction,omitempty"`
	At             time.Time `json:"at"`
}
