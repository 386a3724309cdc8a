// Package gateway invokes named actions on external workflow and point-of-sale
// backends.
package gateway

import (
	"context"
	"fmt"
	"strconv"
	"strings"
)

const (
	ActionGetMenu       = "get_menu"
	ActionLookupPhone   = "lookup_phone"
	ActionVerifyAddress = "verify_address"
	ActionPlaceOrder    = "place_order"
	ActionSubmitOrder   = "submit_order"
	ActionTrackEvent    = "track_event"
)

type Request struct {
	Action    string         `json:"action"`
	SessionID string         `json:"session_id"`
	RequestID string         `json:"request_id,omitempty"`
	Params    map[string]any `json:"params,omitempty"`
}

type Response struct {
	Data map[string]any `json:"data,omitempty"`
}

type Gateway interface {
	Invoke(ctx context.Context, req Request) (Response, error)
}

// String returns the first non-empty string value among keys.
func (r Response) String(keys ...string) string {
	for _, k := range keys {
		switch v := r.Data[k].(type) {
		case string:
			if s := strings.TrimSpace(v); s != "" {
				return s
			}
		case float64:
			return strconv.FormatFloat(v, 'f', -1, 64)
		}
	}
	return ""
}

// Items returns the menu items of a get_menu response as name/category pairs.
func (r Response) Items() []MenuItem {
	raw, ok := r.Data["items"].([]any)
	if !ok {
		return nil
	}
	out := make([]MenuItem, 0, len(raw))
	for _, v := range raw {
		switch item := v.(type) {
		case string:
			if item = strings.TrimSpace(item); item != "" {
				out = append(out, MenuItem{Name: item})
			}
		case map[string]any:
			name, _ := item["name"].(string)
			if strings.TrimSpace(name) == "" {
				continue
			}
			cat, _ := item["category"].(string)
			price, _ := item["price"].(float64)
			out = append(out, MenuItem{Name: strings.TrimSpace(name), Category: strings.TrimSpace(cat), Price: price})
		}
	}
	return out
}

type MenuItem struct {
	Name     string
	Category string
	Price    float64
}

// StatusError is a non-2xx reply from an HTTP backend.
type StatusError struct {
	Action string
	Status int
	Body   string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s status=%d body=%s", e.Action, e.Status, e.Body)
}

// Stub acknowledges every request with fixed data.
type Stub struct {
	Data map[string]any
}

func (s Stub) Invoke(_ context.Context, req Request) (Response, error) {
	data := map[string]any{"status": "accepted", "action": req.Action}
	for k, v := range s.Data {
		data[k] = v
	}
	return Response{Data: data}, nil
}
