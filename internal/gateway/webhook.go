package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"blink/internal/domain"
)

// Webhook posts each action as JSON to its configured URL. Actions without a
// URL succeed with an empty response.
type Webhook struct {
	urls   map[string]string
	client *http.Client
	logger *slog.Logger
}

func NewWebhook(urls map[string]string, timeout time.Duration, logger *slog.Logger) *Webhook {
	if timeout <= 0 {
		timeout = 3 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}
	clean := make(map[string]string, len(urls))
	for action, u := range urls {
		if u = strings.TrimSpace(u); u != "" {
			clean[action] = u
		}
	}
	return &Webhook{urls: clean, client: &http.Client{Timeout: timeout}, logger: logger}
}

func (w *Webhook) Enabled(action string) bool {
	return w != nil && w.urls[action] != ""
}

func (w *Webhook) Invoke(ctx context.Context, req Request) (Response, error) {
	url := w.urls[req.Action]
	if url == "" {
		w.logger.Debug("webhook not configured", "action", req.Action)
		return Response{}, nil
	}

	body, err := json.Marshal(req)
	if err != nil {
		return Response{}, err
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return Response{}, err
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := w.client.Do(httpReq)
	if err != nil {
		return Response{}, err
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(resp.Body)
	text := strings.TrimSpace(string(respBody))
	switch {
	case resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests:
		return Response{}, &StatusError{Action: req.Action, Status: resp.StatusCode, Body: text}
	case resp.StatusCode >= 300:
		return Response{}, &domain.RejectedError{Provider: req.Action, Reason: (&StatusError{Action: req.Action, Status: resp.StatusCode, Body: text}).Error()}
	}

	if text == "" {
		return Response{}, nil
	}
	var data map[string]any
	if err := json.Unmarshal(respBody, &data); err != nil {
		// n8n "respond with text" nodes
		return Response{Data: map[string]any{"raw": text}}, nil
	}
	if reason := rejection(data); reason != "" {
		return Response{}, &domain.RejectedError{Provider: req.Action, Reason: reason}
	}
	return Response{Data: data}, nil
}

func rejection(data map[string]any) string {
	if ok, present := data["ok"].(bool); present && !ok {
		if msg, _ := data["message"].(string); msg != "" {
			return msg
		}
		return "ok=false"
	}
	switch e := data["error"].(type) {
	case string:
		if e != "" {
			return e
		}
	case map[string]any:
		if msg, _ := e["message"].(string); msg != "" {
			return msg
		}
		return "error"
	}
	return ""
}
