// Package orchestrator runs one dialogue turn: classify the utterance, apply
// slot overrides, dispatch to the menu validator and action gateways, commit
// the session and emit an analytics event.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"blink/internal/catalog"
	"blink/internal/domain"
	"blink/internal/gateway"
	"blink/internal/menu"
)

const storeFaultReply = "Sorry, something went wrong on our end. Please try again in a moment."

type SessionStore interface {
	Update(ctx context.Context, sessionID string, fn func(*domain.Session) error) (domain.Session, error)
	Get(sessionID string) (domain.Session, bool)
}

type IntentRouter interface {
	Classify(ctx context.Context, utterance string, history []domain.Exchange) domain.IntentResult
}

type EventPublisher interface {
	Publish(ev domain.TurnEvent)
}

// SatisfactionScorer estimates caller satisfaction in [0,1] from one utterance.
type SatisfactionScorer interface {
	Score(utterance string) (float64, bool)
}

type Config struct {
	// OverrideConfidence is the router confidence below which local slot
	// extraction wins in states that expect a slot.
	OverrideConfidence float64
	TurnTimeout        time.Duration
	GatewayTimeout     time.Duration
	HistoryLimit       int
	MenuListLimit      int
}

type Service struct {
	cfg       Config
	store     SessionStore
	router    IntentRouter
	validator *menu.Validator
	catalog   *catalog.Catalog
	workflow  gateway.Gateway
	pos       gateway.Gateway
	events    EventPublisher
	mood      SatisfactionScorer
	logger    *slog.Logger
	now       func() time.Time
}

func New(cfg Config, store SessionStore, router IntentRouter, validator *menu.Validator, cat *catalog.Catalog, workflow, pos gateway.Gateway, events EventPublisher, logger *slog.Logger) *Service {
	if cfg.OverrideConfidence <= 0 {
		cfg.OverrideConfidence = 0.6
	}
	if cfg.TurnTimeout <= 0 {
		cfg.TurnTimeout = 15 * time.Second
	}
	if cfg.GatewayTimeout <= 0 {
		cfg.GatewayTimeout = 3 * time.Second
	}
	if cfg.HistoryLimit <= 0 {
		cfg.HistoryLimit = 10
	}
	if cfg.MenuListLimit <= 0 {
		cfg.MenuListLimit = 10
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		cfg:       cfg,
		store:     store,
		router:    router,
		validator: validator,
		catalog:   cat,
		workflow:  workflow,
		pos:       pos,
		events:    events,
		logger:    logger,
		now:       time.Now,
	}
}

// turn collects what one HandleTurn produced besides the session itself.
type turn struct {
	stateBefore domain.State
	stage       domain.State
	intent      domain.IntentResult
	utterance   string
	reply       string
	err         error
	orderRef    string
	routerDur   time.Duration
	gatewayDur  time.Duration
}

func (t *turn) failureKind() string {
	if t.err != nil {
		return domain.FailureKind(t.err)
	}
	if t.intent.Degraded {
		return t.intent.FailureKind
	}
	return ""
}

// HandleTurn never fails for router or gateway problems. The only error it
// returns wraps domain.ErrStoreFault, and the session is left untouched.
func (s *Service) HandleTurn(ctx context.Context, req domain.TurnRequest) (domain.TurnResult, error) {
	turnStart := time.Now()
	sessionID := strings.TrimSpace(req.SessionID)
	if sessionID == "" {
		sessionID = uuid.NewString()
	}

	ctx, cancel := context.WithTimeout(ctx, s.cfg.TurnTimeout)
	defer cancel()

	var t turn
	sess, err := s.store.Update(ctx, sessionID, func(sess *domain.Session) error {
		t = turn{}
		s.runTurn(ctx, sess, req, &t)
		return nil
	})
	if err != nil {
		if !errors.Is(err, domain.ErrStoreFault) {
			err = fmt.Errorf("%w: %v", domain.ErrStoreFault, err)
		}
		s.logger.Error("session store fault", "session_id", sessionID, "error", err)
		state := domain.State("")
		if snap, ok := s.store.Get(sessionID); ok {
			state = snap.State
		}
		s.emit(domain.TurnEvent{
			SessionID:   sessionID,
			Channel:     req.Channel,
			UserID:      req.UserID,
			Intent:      domain.IntentUnknown,
			StateBefore: state,
			StateAfter:  state,
			FailureKind: domain.FailureKind(err),
			Utterance:   req.Utterance,
			Reply:       storeFaultReply,
		})
		return domain.TurnResult{SessionID: sessionID, Reply: storeFaultReply, State: state, Stage: state}, fmt.Errorf("handle turn: %w", err)
	}

	s.emit(domain.TurnEvent{
		SessionID:      sessionID,
		Channel:        sess.Channel,
		UserID:         sess.UserID,
		Intent:         t.intent.Intent,
		Confidence:     t.intent.Confidence,
		StateBefore:    t.stateBefore,
		StateAfter:     sess.State,
		Success:        t.failureKind() == "",
		FailureKind:    t.failureKind(),
		Utterance:      t.utterance,
		Reply:          t.reply,
		Entities:       t.intent.Entities,
		PendingItems:   len(sess.PendingOrder),
		OrderReference: t.orderRef,
		Satisfaction:   t.intent.Satisfaction,
	})

	s.logger.Info("turn timing",
		"session_id", sessionID,
		"intent", t.intent.Intent,
		"state_before", t.stateBefore,
		"state_after", sess.State,
		"router_ms", t.routerDur.Milliseconds(),
		"gateway_ms", t.gatewayDur.Milliseconds(),
		"total_ms", time.Since(turnStart).Milliseconds(),
	)

	return domain.TurnResult{
		SessionID:   sessionID,
		Reply:       t.reply,
		State:       sess.State,
		Stage:       t.stage,
		SessionDone: sess.Done,
		Summary:     sess.Summary(),
	}, nil
}

// SetSatisfactionScorer fills the event satisfaction when the router leaves it
// empty.
func (s *Service) SetSatisfactionScorer(scorer SatisfactionScorer) {
	s.mood = scorer
}

// Snapshot returns the display summary of a live session.
func (s *Service) Snapshot(sessionID string) (domain.SessionSummary, bool) {
	sess, ok := s.store.Get(sessionID)
	if !ok {
		return domain.SessionSummary{}, false
	}
	return sess.Summary(), true
}

func (s *Service) runTurn(ctx context.Context, sess *domain.Session, req domain.TurnRequest, t *turn) {
	now := s.now()
	t.stateBefore = sess.State
	t.utterance = strings.TrimSpace(req.Utterance)
	if req.Channel != "" {
		sess.Channel = req.Channel
	}
	if req.UserID != "" {
		sess.UserID = req.UserID
	}
	sess.TurnCount++
	sess.LastActiveAt = now

	if t.utterance == "" {
		t.intent = domain.IntentResult{Intent: domain.IntentUnknown}
		t.err = domain.ErrMalformedInput
		t.reply = "Sorry, I didn't catch that. " + s.prompt(sess)
		t.stage = sess.State
		return
	}

	routerStart := time.Now()
	res := s.router.Classify(ctx, t.utterance, sess.History)
	t.routerDur = time.Since(routerStart)

	res, confirm := s.applySlotOverride(sess, t.utterance, res)
	if res.Satisfaction == nil && s.mood != nil {
		if score, ok := s.mood.Score(t.utterance); ok {
			res.Satisfaction = &score
		}
	}
	t.intent = res
	s.dispatch(ctx, sess, res, confirm, t)

	if t.stage == "" {
		t.stage = sess.State
	}
	if sess.State != domain.StateEnded {
		sess.AppendExchange(domain.Exchange{
			Utterance: t.utterance,
			Intent:    res.Intent,
			Reply:     t.reply,
			At:        now,
		}, s.cfg.HistoryLimit)
	}
}

func (s *Service) emit(ev domain.TurnEvent) {
	if s.events == nil {
		return
	}
	if ev.EventID == "" {
		ev.EventID = uuid.NewString()
	}
	if ev.At.IsZero() {
		ev.At = s.now().UTC()
	}
	s.events.Publish(ev)
}
