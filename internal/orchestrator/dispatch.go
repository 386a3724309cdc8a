package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
	"time"

	"github.com/google/uuid"

	"blink/internal/domain"
	"blink/internal/gateway"
	"blink/internal/intent"
)

type confirmation int

const (
	confirmNone confirmation = iota
	confirmYes
	confirmNo
	// doneAdding closes the item list of a pending order.
	doneAdding
)

// applySlotOverride lets the shape of the utterance win over a low-confidence
// classification when the current state is waiting for that shape.
func (s *Service) applySlotOverride(sess *domain.Session, utterance string, res domain.IntentResult) (domain.IntentResult, confirmation) {
	low := res.Confidence < s.cfg.OverrideConfidence

	switch sess.State {
	case domain.StateConfirmingOrder:
		if low || res.Intent == domain.IntentUnknown || res.Intent == domain.IntentChitchat {
			if intent.IsNegative(utterance) {
				return res, confirmNo
			}
			if intent.IsAffirmative(utterance) {
				return res, confirmYes
			}
		}
	case domain.StateAwaitingPhone:
		if low {
			if phone, ok := intent.ExtractPhone(utterance); ok {
				res.Intent = domain.IntentProvidePhone
				res.Entities.Phone = phone
				return res, confirmNone
			}
		}
	case domain.StateAwaitingAddress:
		if low {
			if addr, ok := intent.ExtractAddress(utterance); ok {
				res.Intent = domain.IntentProvideAddress
				res.Entities.Address = addr
				return res, confirmNone
			}
		}
	}

	if len(sess.PendingOrder) > 0 && (low || res.Intent == domain.IntentEndSession) && intent.IsOrderComplete(utterance) {
		return res, doneAdding
	}
	if low && res.Intent != domain.IntentEndSession && intent.IsGoodbye(utterance) {
		res.Intent = domain.IntentEndSession
	}
	return res, confirmNone
}

func (s *Service) dispatch(ctx context.Context, sess *domain.Session, res domain.IntentResult, confirm confirmation, t *turn) {
	switch confirm {
	case confirmYes:
		s.confirmOrder(ctx, sess, t)
		return
	case confirmNo:
		s.cancelOrder(sess, t)
		return
	case doneAdding:
		sess.State = nextContactState(sess)
		t.reply = "Okay. " + s.prompt(sess)
		return
	}

	switch res.Intent {
	case domain.IntentGetMenu:
		s.showMenu(ctx, sess, t)
	case domain.IntentProvidePhone:
		phone := res.Entities.Phone
		if phone == "" {
			phone, _ = intent.ExtractPhone(t.utterance)
		}
		s.capturePhone(ctx, sess, phone, t)
	case domain.IntentProvideAddress:
		addr := res.Entities.Address
		if addr == "" {
			addr, _ = intent.ExtractAddress(t.utterance)
		}
		s.captureAddress(ctx, sess, addr, t)
	case domain.IntentPlaceOrder:
		sess.AddOrderNote(res.Entities.Notes)
		s.addItems(sess, res.Entities.ItemMentions, t)
	case domain.IntentEndSession:
		s.endSession(sess, t)
	case domain.IntentChitchat:
		t.stage = domain.StateChitchat
		t.reply = smallTalkReply(sess) + " " + s.prompt(sess)
	default:
		t.reply = "Sorry, I didn't quite get that. " + s.prompt(sess)
	}
}

func (s *Service) showMenu(ctx context.Context, sess *domain.Session, t *turn) {
	resp, err := s.invoke(ctx, t, s.workflow, gateway.Request{Action: gateway.ActionGetMenu, SessionID: sess.SessionID})
	if err != nil {
		t.err = err
		t.reply = "Sorry, I can't pull up the menu right now. " + s.prompt(sess)
		return
	}
	sess.State = domain.StateBrowsingMenu
	t.reply = s.menuReply(resp.Items()) + " What would you like to order?"
}

func (s *Service) capturePhone(ctx context.Context, sess *domain.Session, phone string, t *turn) {
	if sess.CustomerPhone != "" {
		sess.State = nextContactState(sess)
		t.reply = "I already have your number, thanks. " + s.prompt(sess)
		return
	}
	if !intent.ValidPhone(phone) {
		t.err = fmt.Errorf("%w: phone %q", domain.ErrMalformedInput, phone)
		sess.State = domain.StateAwaitingPhone
		t.reply = "That doesn't sound like a full phone number. Could you say it again, digit by digit?"
		return
	}

	resp, err := s.invoke(ctx, t, s.workflow, gateway.Request{
		Action:    gateway.ActionLookupPhone,
		SessionID: sess.SessionID,
		Params:    map[string]any{"phone": phone, "digits": intent.PhoneDigits(phone)},
	})
	if err != nil {
		t.err = err
		if errors.Is(err, domain.ErrProviderRejected) {
			sess.State = domain.StateAwaitingPhone
			t.reply = "I couldn't verify that number. Could you give me another one?"
			return
		}
		t.reply = "Sorry, I'm having trouble checking that number right now. Could you repeat it in a moment?"
		return
	}

	stored := resp.String("normalized_phone", "phone")
	if stored == "" {
		stored = phone
	}
	sess.CustomerPhone = stored
	sess.State = nextContactState(sess)
	t.reply = fmt.Sprintf("Thanks, I've got %s. %s", stored, s.prompt(sess))
}

func (s *Service) captureAddress(ctx context.Context, sess *domain.Session, addr string, t *turn) {
	if sess.CustomerAddress != "" {
		sess.State = nextContactState(sess)
		t.reply = "I already have your address, thanks. " + s.prompt(sess)
		return
	}
	if !intent.ValidAddress(addr) {
		t.err = fmt.Errorf("%w: address %q", domain.ErrMalformedInput, addr)
		sess.State = domain.StateAwaitingAddress
		t.reply = "I need a street address with a house number. Where should we deliver?"
		return
	}

	resp, err := s.invoke(ctx, t, s.workflow, gateway.Request{
		Action:    gateway.ActionVerifyAddress,
		SessionID: sess.SessionID,
		Params:    map[string]any{"address": addr},
	})
	if err != nil {
		t.err = err
		if errors.Is(err, domain.ErrProviderRejected) {
			sess.State = domain.StateAwaitingAddress
			t.reply = "I couldn't find that address. Could you say it again, with the street name?"
			return
		}
		t.reply = "Sorry, I'm having trouble checking that address right now. Could you repeat it in a moment?"
		return
	}

	stored := resp.String("normalized_address", "address")
	if stored == "" {
		stored = addr
	}
	sess.CustomerAddress = stored
	sess.State = nextContactState(sess)
	t.reply = fmt.Sprintf("Great, delivering to %s. %s", stored, s.prompt(sess))
}

func (s *Service) addItems(sess *domain.Session, mentions []string, t *turn) {
	if len(mentions) == 0 {
		sess.State = domain.StateBuildingOrder
		t.reply = "Sure. What would you like to order?"
		return
	}

	result := s.validator.Validate(mentions)
	for _, m := range result.Matched {
		sess.AddToOrder(m.Item, m.Quantity)
	}
	if len(result.Matched) > 0 {
		sess.Done = false
	}

	if !result.Clean() {
		t.err = result.Err()
		sess.State = domain.StateBuildingOrder
		t.reply = s.clarificationReply(result)
		return
	}

	sess.State = nextContactState(sess)
	t.reply = "Got it, " + describeMatches(result.Matched) + ". " + s.prompt(sess)
}

func (s *Service) confirmOrder(ctx context.Context, sess *domain.Session, t *turn) {
	if len(sess.PendingOrder) == 0 {
		sess.State = domain.StateBuildingOrder
		t.reply = "There's nothing in your order yet. What would you like?"
		return
	}

	params := orderParams(sess)
	resp, err := s.invoke(ctx, t, s.workflow, gateway.Request{
		Action:    gateway.ActionPlaceOrder,
		SessionID: sess.SessionID,
		Params:    params,
	})
	if err != nil {
		t.err = err
		t.reply = "Sorry, I couldn't place your order just now. Would you like me to try again?"
		return
	}

	ref := resp.String("order_id", "reference", "id")
	if ref == "" {
		ref = "BL-" + strings.ToUpper(uuid.NewString()[:8])
	}
	eta := resp.String("eta", "estimated_time")

	params["reference"] = ref
	if _, posErr := s.invoke(ctx, t, s.pos, gateway.Request{
		Action:    gateway.ActionSubmitOrder,
		SessionID: sess.SessionID,
		Params:    params,
	}); posErr != nil {
		s.logger.Warn("pos handoff failed", "session_id", sess.SessionID, "reference", ref, "error", posErr)
	}

	sess.LastOrder = &domain.PlacedOrder{
		Reference: ref,
		ETA:       eta,
		Lines:     append([]domain.OrderLine(nil), sess.PendingOrder...),
		Notes:     sess.OrderNotes,
		PlacedAt:  s.now(),
	}
	sess.ClearOrder()
	sess.State = domain.StateOrderPlaced
	sess.Done = true
	t.orderRef = ref
	t.reply = placedReply(ref, eta)
}

func (s *Service) cancelOrder(sess *domain.Session, t *turn) {
	sess.ClearOrder()
	sess.State = domain.StateBuildingOrder
	t.reply = "No problem, I've cleared the order. What would you like instead?"
}

func (s *Service) endSession(sess *domain.Session, t *turn) {
	if len(sess.PendingOrder) > 0 {
		t.reply = "Okay, I won't place that order. Thanks for calling, goodbye!"
	} else {
		t.reply = "Thanks for calling, goodbye!"
	}
	sess.State = domain.StateEnded
	sess.Done = true
}

// invoke bounds a gateway call and folds transport timeouts into
// ErrProviderTimeout.
func (s *Service) invoke(ctx context.Context, t *turn, gw gateway.Gateway, req gateway.Request) (gateway.Response, error) {
	if gw == nil {
		return gateway.Response{}, nil
	}
	if req.RequestID == "" {
		req.RequestID = uuid.NewString()
	}
	start := time.Now()
	callCtx, cancel := context.WithTimeout(ctx, s.cfg.GatewayTimeout)
	defer cancel()

	resp, err := gw.Invoke(callCtx, req)
	t.gatewayDur += time.Since(start)
	if err == nil {
		return resp, nil
	}

	var netErr net.Error
	if !errors.Is(err, domain.ErrProviderTimeout) &&
		(errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout())) {
		err = fmt.Errorf("%w: %v", domain.ErrProviderTimeout, err)
	}
	s.logger.Warn("gateway call failed", "action", req.Action, "session_id", req.SessionID, "error", err)
	return gateway.Response{}, err
}

// nextContactState is the first thing still missing before an order can be
// confirmed.
func nextContactState(sess *domain.Session) domain.State {
	switch {
	case sess.CustomerPhone == "":
		return domain.StateAwaitingPhone
	case sess.CustomerAddress == "":
		return domain.StateAwaitingAddress
	case len(sess.PendingOrder) > 0:
		return domain.StateConfirmingOrder
	default:
		return domain.StateBuildingOrder
	}
}

func orderParams(sess *domain.Session) map[string]any {
	items := make([]map[string]any, 0, len(sess.PendingOrder))
	for _, line := range sess.PendingOrder {
		items = append(items, map[string]any{
			"name":     line.Item.Name,
			"quantity": line.Quantity,
			"price":    line.Item.Price,
		})
	}
	params := map[string]any{
		"phone":   sess.CustomerPhone,
		"address": sess.CustomerAddress,
		"items":   items,
		"total":   sess.OrderTotal(),
		"channel": sess.Channel,
		"user_id": sess.UserID,
	}
	if sess.OrderNotes != "" {
		params["notes"] = sess.OrderNotes
	}
	return params
}
