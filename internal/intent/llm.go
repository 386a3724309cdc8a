package intent

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"blink/internal/domain"
	"blink/internal/llm"
)

const classifierPrompt = `You classify one utterance from a phone caller ordering food.
Reply with a single JSON object:
{"intent": one of %s,
 "confidence": number between 0 and 1,
 "entities": {"phone": string, "address": string, "item_mentions": [string], "notes": string},
 "satisfaction": number between 0 and 1 or null}
item_mentions keeps each ordered item with its spoken quantity, e.g. ["two cheeseburgers", "a coke"].
Use chitchat for greetings and small talk, end_session when the caller wants to hang up,
and unknown when nothing fits.`

type LLMClassifier struct {
	provider llm.Provider
	model    string
}

func NewLLMClassifier(provider llm.Provider, model string) *LLMClassifier {
	return &LLMClassifier{provider: provider, model: model}
}

func (c *LLMClassifier) Classify(ctx context.Context, utterance string, history []domain.Exchange) (domain.IntentResult, error) {
	labels := make([]string, 0, len(domain.Intents()))
	for _, in := range domain.Intents() {
		labels = append(labels, fmt.Sprintf("%q", in))
	}

	msgs := make([]domain.Message, 0, 2*len(history)+1)
	for _, ex := range history {
		msgs = append(msgs,
			domain.Message{Role: "user", Content: ex.Utterance},
			domain.Message{Role: "assistant", Content: ex.Reply},
		)
	}
	msgs = append(msgs, domain.Message{Role: "user", Content: utterance})

	resp, err := c.provider.Complete(ctx, domain.LLMRequest{
		Model:     c.model,
		System:    fmt.Sprintf(classifierPrompt, strings.Join(labels, ", ")),
		Messages:  msgs,
		MaxTokens: 300,
		JSON:      true,
	})
	if err != nil {
		return domain.IntentResult{}, err
	}
	return ParseClassification(resp.Content)
}

type classification struct {
	Intent       string          `json:"intent"`
	Confidence   float64         `json:"confidence"`
	Entities     domain.Entities `json:"entities"`
	Satisfaction *float64        `json:"satisfaction"`
}

// ParseClassification decodes a classifier reply, tolerating code fences and
// prose around the JSON object.
func ParseClassification(raw string) (domain.IntentResult, error) {
	start := strings.Index(raw, "{")
	end := strings.LastIndex(raw, "}")
	if start < 0 || end <= start {
		return domain.IntentResult{}, fmt.Errorf("%w: no JSON object in classifier reply", domain.ErrMalformedInput)
	}
	var c classification
	if err := json.Unmarshal([]byte(raw[start:end+1]), &c); err != nil {
		return domain.IntentResult{}, fmt.Errorf("%w: %v", domain.ErrMalformedInput, err)
	}
	in, ok := domain.ParseIntent(c.Intent)
	if !ok {
		return domain.IntentResult{}, fmt.Errorf("%w: intent %q", domain.ErrMalformedInput, c.Intent)
	}
	mentions := c.Entities.ItemMentions[:0]
	for _, m := range c.Entities.ItemMentions {
		if m = strings.TrimSpace(m); m != "" {
			mentions = append(mentions, m)
		}
	}
	c.Entities.ItemMentions = mentions
	return domain.IntentResult{
		Intent:       in,
		Entities:     c.Entities,
		Confidence:   c.Confidence,
		Satisfaction: c.Satisfaction,
	}, nil
}
