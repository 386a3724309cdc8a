package main

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"blink/internal/config"
	"blink/internal/domain"
)

func init() {
	color.NoColor = true
}

func TestServerClientTurn(t *testing.T) {
	var got domain.TurnRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/v1/turn", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_ = json.NewEncoder(w).Encode(domain.TurnResult{
			SessionID: "s1",
			Reply:     "Got it, added 2 Cola.",
			State:     domain.StateAwaitingPhone,
			Stage:     domain.StateAwaitingPhone,
			Summary: domain.SessionSummary{
				PendingOrder: []domain.SummaryLine{{Name: "Cola", Quantity: 2}},
				OrderTotal:   4,
			},
		})
	}))
	defer srv.Close()

	res, err := newServerClient(srv.URL+"/").turn(context.Background(), domain.TurnRequest{SessionID: "s1", Utterance: "two cokes"})
	require.NoError(t, err)
	assert.Equal(t, "two cokes", got.Utterance)
	assert.Equal(t, domain.StateAwaitingPhone, res.State)

	out := renderTurn(res)
	assert.Contains(t, out, "blink: Got it, added 2 Cola.")
	assert.Contains(t, out, "[AWAITING_PHONE] session=s1 items=1 total=$4.00")
}

func TestServerClientStoreFault(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte(`{"session_id":"s1","reply":"Sorry, something went wrong on our end."}`))
	}))
	defer srv.Close()

	res, err := newServerClient(srv.URL).turn(context.Background(), domain.TurnRequest{Utterance: "hi"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "server unavailable")
	assert.Equal(t, "s1", res.SessionID)
}

func TestServerClientSessionNotFound(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	defer srv.Close()

	_, err := newServerClient(srv.URL).session(context.Background(), "missing")
	assert.ErrorIs(t, err, errSessionNotFound)
}

func TestValidateCommand(t *testing.T) {
	cfg := &config.CLIConfig{CatalogPath: "../../configs/menu.yaml"}
	cmd := validateCmd(cfg)
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"can I get two cheeseburgers and chicken"})

	require.NoError(t, cmd.Execute())
	assert.Contains(t, out.String(), "intent place_order")
	assert.Contains(t, out.String(), `"two cheeseburgers" → 2 × Cheeseburger`)
	assert.Contains(t, out.String(), `"chicken" ambiguous: Chicken`)
}

func TestMenuCommand(t *testing.T) {
	cmd := menuCmd(&config.CLIConfig{CatalogPath: "../../configs/menu.yaml"})
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetArgs(nil)

	require.NoError(t, cmd.Execute())
	assert.Contains(t, out.String(), "Burgers")
	assert.Contains(t, out.String(), "aka coke, soda")
}
