package domain

import "strings"

type Intent string

const (
	IntentGetMenu        Intent = "get_menu"
	IntentProvidePhone   Intent = "provide_phone"
	IntentProvideAddress Intent = "provide_address"
	IntentPlaceOrder     Intent = "place_order"
	IntentChitchat       Intent = "chitchat"
	IntentEndSession     Intent = "end_session"
	IntentUnknown        Intent = "unknown"
)

var knownIntents = map[Intent]struct{}{
	IntentGetMenu:        {},
	IntentProvidePhone:   {},
	IntentProvideAddress: {},
	IntentPlaceOrder:     {},
	IntentChitchat:       {},
	IntentEndSession:     {},
	IntentUnknown:        {},
}

// ParseIntent maps a provider label onto the closed enum.
func ParseIntent(label string) (Intent, bool) {
	in := Intent(strings.ToLower(strings.TrimSpace(label)))
	_, ok := knownIntents[in]
	return in, ok
}

func Intents() []Intent {
	return []Intent{
		IntentGetMenu,
		IntentProvidePhone,
		IntentProvideAddress,
		IntentPlaceOrder,
		IntentChitchat,
		IntentEndSession,
		IntentUnknown,
	}
}

type Entities struct {
	Phone        string   `json:"phone,omitempty"`
	Address      string   `json:"address,omitempty"`
	ItemMentions []string `json:"item_mentions,omitempty"`
	Notes        string   `json:"notes,omitempty"`
}

type IntentResult struct {
	Intent       Intent   `json:"intent"`
	Entities     Entities `json:"entities"`
	Confidence   float64  `json:"confidence"`
	Satisfaction *float64 `json:"satisfaction,omitempty"`
	// Degraded is set when the classifier failed and the result is the fallback.
	Degraded bool `json:"degraded,omitempty"`
	// FailureKind names why a degraded result was produced.
	FailureKind string `json:"-"`
}

func DegradedIntent() IntentResult {
	return IntentResult{Intent: IntentUnknown, Confidence: 0, Degraded: true}
}

// LLM transport types shared by providers and classifiers.

type Message struct {
	Role    string
	Content string
}

type LLMRequest struct {
	Model     string
	System    string
	Messages  []Message
	MaxTokens int
	// JSON asks the provider for a single JSON object reply where supported.
	JSON bool
}

type LLMResponse struct {
	Content string
}
