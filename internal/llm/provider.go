package llm

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"blink/internal/domain"
)

type Provider interface {
	Complete(ctx context.Context, req domain.LLMRequest) (domain.LLMResponse, error)
}

type Config struct {
	Provider         string
	Model            string
	OpenAIBaseURL    string
	OpenAIAPIKey     string
	AnthropicBaseURL string
	AnthropicAPIKey  string
	Timeout          time.Duration
	// RPS caps outbound requests per second. Zero disables limiting.
	RPS   float64
	Burst int
}

func NewProvider(cfg Config) (Provider, error) {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	client := &http.Client{Timeout: timeout}

	var p Provider
	switch cfg.Provider {
	case "openai":
		p = NewOpenAIProvider(client, cfg.OpenAIBaseURL, cfg.OpenAIAPIKey)
	case "claude":
		p = NewClaudeProvider(client, cfg.AnthropicBaseURL, cfg.AnthropicAPIKey)
	default:
		return nil, fmt.Errorf("unsupported LLM provider: %s", cfg.Provider)
	}
	if cfg.RPS > 0 {
		p = NewRateLimited(p, cfg.RPS, cfg.Burst)
	}
	return p, nil
}

// statusError maps an HTTP status from a provider onto the error taxonomy.
func statusError(provider string, status int, body string) error {
	switch {
	case status == http.StatusTooManyRequests || status >= 500:
		return fmt.Errorf("%s status %d: %s", provider, status, body)
	case status >= 400:
		return &domain.RejectedError{Provider: provider, Reason: fmt.Sprintf("status %d: %s", status, body)}
	}
	return nil
}
