package intent

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"blink/internal/domain"
)

// Client calls a remote classifier service.
type Client struct {
	baseURL string
	http    *http.Client
}

func NewClient(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 1500 * time.Millisecond
	}
	return &Client{
		baseURL: strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		http:    &http.Client{Timeout: timeout},
	}
}

func (c *Client) Enabled() bool {
	return c != nil && c.baseURL != ""
}

type classifyRequest struct {
	Utterance string            `json:"utterance"`
	History   []domain.Exchange `json:"history,omitempty"`
	Intents   []domain.Intent   `json:"intents"`
}

func (c *Client) Classify(ctx context.Context, utterance string, history []domain.Exchange) (domain.IntentResult, error) {
	if !c.Enabled() {
		return domain.IntentResult{}, fmt.Errorf("intent service is not configured")
	}
	body, _ := json.Marshal(classifyRequest{Utterance: utterance, History: history, Intents: domain.Intents()})
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/intents/classify", bytes.NewReader(body))
	if err != nil {
		return domain.IntentResult{}, err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	resp, err := c.http.Do(httpReq)
	if err != nil {
		return domain.IntentResult{}, err
	}
	defer resp.Body.Close()
	respBody, _ := io.ReadAll(resp.Body)
	switch {
	case resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests:
		return domain.IntentResult{}, fmt.Errorf("intent service status=%d body=%s", resp.StatusCode, strings.TrimSpace(string(respBody)))
	case resp.StatusCode >= 300:
		return domain.IntentResult{}, &domain.RejectedError{Provider: "intent-service", Reason: fmt.Sprintf("status=%d", resp.StatusCode)}
	}
	return ParseClassification(string(respBody))
}
