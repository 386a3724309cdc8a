package intent

import (
	"context"
	"regexp"
	"strings"

	"blink/internal/domain"
	"blink/internal/menu"
)

var (
	orderTrigger  = regexp.MustCompile(`\b(i'?d like|i would like|i want|i'?ll have|i will have|can i (get|have)|could i (get|have)|give me|get me|order|add)\b`)
	mentionSplit  = regexp.MustCompile(`\s*(?:,|&|\band\b|\bplus\b|\bwith\b|\balso\b)\s*`)
	menuWords     = regexp.MustCompile(`\b(menu|what do you (have|sell|serve)|what's available|what is available|options)\b`)
	addressWords  = regexp.MustCompile(`\b(street|st|avenue|ave|road|rd|lane|ln|drive|dr|boulevard|blvd|way|court|ct|place|apt|apartment|suite|address|live at|deliver to)\b`)
	orderLeadIn   = regexp.MustCompile(`^\s*(to (order|get|have)\b)?\s*(some\b)?`)
	chitchatWords = regexp.MustCompile(`\b(hi|hello|hey|thanks|thank you|how are you|good (morning|afternoon|evening))\b`)
)

// RulesClassifier is an offline keyword classifier. With a validator it also
// treats utterances that name a menu item as orders.
type RulesClassifier struct {
	validator *menu.Validator
}

func NewRulesClassifier(v *menu.Validator) *RulesClassifier {
	return &RulesClassifier{validator: v}
}

func (c *RulesClassifier) Classify(_ context.Context, utterance string, _ []domain.Exchange) (domain.IntentResult, error) {
	text := strings.ToLower(strings.TrimSpace(utterance))
	switch {
	case text == "":
		return domain.IntentResult{Intent: domain.IntentUnknown}, nil
	case IsGoodbye(text):
		return domain.IntentResult{Intent: domain.IntentEndSession, Confidence: 0.85}, nil
	}

	if addr, ok := ExtractAddress(utterance); ok && addressWords.MatchString(text) {
		return domain.IntentResult{
			Intent:     domain.IntentProvideAddress,
			Entities:   domain.Entities{Address: addr},
			Confidence: 0.85,
		}, nil
	}
	if phone, ok := ExtractPhone(utterance); ok {
		return domain.IntentResult{
			Intent:     domain.IntentProvidePhone,
			Entities:   domain.Entities{Phone: phone},
			Confidence: 0.9,
		}, nil
	}
	if menuWords.MatchString(text) {
		return domain.IntentResult{Intent: domain.IntentGetMenu, Confidence: 0.85}, nil
	}

	mentions := SplitMentions(text)
	if orderTrigger.MatchString(text) || c.namesMenuItem(mentions) {
		return domain.IntentResult{
			Intent:     domain.IntentPlaceOrder,
			Entities:   domain.Entities{ItemMentions: mentions},
			Confidence: 0.8,
		}, nil
	}
	if chitchatWords.MatchString(text) {
		return domain.IntentResult{Intent: domain.IntentChitchat, Confidence: 0.7}, nil
	}
	return domain.IntentResult{Intent: domain.IntentUnknown, Confidence: 0.3}, nil
}

func (c *RulesClassifier) namesMenuItem(mentions []string) bool {
	if c.validator == nil || len(mentions) == 0 {
		return false
	}
	return len(c.validator.Validate(mentions).Matched) > 0
}

// SplitMentions cuts an order utterance into item mentions, dropping the
// lead-in ("can I get") and politeness words.
func SplitMentions(text string) []string {
	text = strings.ToLower(text)
	if loc := orderTrigger.FindStringIndex(text); loc != nil {
		text = text[loc[1]:]
		text = orderLeadIn.ReplaceAllString(text, "")
	}
	var out []string
	for _, part := range mentionSplit.Split(text, -1) {
		part = strings.Trim(part, " .!?")
		part = strings.TrimSpace(strings.TrimPrefix(part, "please "))
		part = strings.TrimSpace(strings.TrimSuffix(part, " please"))
		if part == "" || part == "please" {
			continue
		}
		out = append(out, part)
	}
	return out
}
