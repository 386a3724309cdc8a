package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"blink/internal/db"
	"blink/internal/domain"
)

type fakeTurns struct {
	got      domain.TurnRequest
	err      error
	sessions map[string]domain.SessionSummary
}

func (f *fakeTurns) HandleTurn(_ context.Context, req domain.TurnRequest) (domain.TurnResult, error) {
	f.got = req
	if f.err != nil {
		return domain.TurnResult{SessionID: req.SessionID, Reply: "try again later"}, f.err
	}
	return domain.TurnResult{
		SessionID: req.SessionID,
		Reply:     "Would you like to hear the menu?",
		State:     domain.StateGreeting,
		Stage:     domain.StateGreeting,
	}, nil
}

func (f *fakeTurns) Snapshot(id string) (domain.SessionSummary, bool) {
	s, ok := f.sessions[id]
	return s, ok
}

type fakeAnalytics struct {
	since time.Time
	limit int
	err   error
}

func (f *fakeAnalytics) IntentStats(_ context.Context, since time.Time) ([]db.IntentStat, error) {
	f.since = since
	if f.err != nil {
		return nil, f.err
	}
	return []db.IntentStat{{Intent: "place_order", Turns: 4, Failures: 1, AvgConfidence: 0.8}}, nil
}

func (f *fakeAnalytics) ListTurnEvents(_ context.Context, sessionID string, limit int) ([]domain.TurnEvent, error) {
	f.limit = limit
	return []domain.TurnEvent{{EventID: "e1", SessionID: sessionID}}, f.err
}

func newTestRouter(turns TurnHandler, analytics Analytics) http.Handler {
	return NewRouter(turns, analytics, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func do(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestTurnEndpoint(t *testing.T) {
	turns := &fakeTurns{}
	h := newTestRouter(turns, nil)

	rec := do(t, h, http.MethodPost, "/v1/turn", `{"session_id":"s1","utterance":"hi","channel":"voice","user_id":"u9"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var body domain.TurnResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "s1", body.SessionID)
	assert.Equal(t, domain.StateGreeting, body.State)
	assert.Equal(t, domain.TurnRequest{SessionID: "s1", Utterance: "hi", Channel: "voice", UserID: "u9"}, turns.got)
}

func TestTurnEndpointErrors(t *testing.T) {
	tests := []struct {
		name     string
		body     string
		err      error
		wantCode int
		wantKey  string
	}{
		{"bad json", `{"utterance":`, nil, http.StatusBadRequest, "error"},
		{"store fault", `{"session_id":"s1","utterance":"hi"}`, fmt.Errorf("handle turn: %w", domain.ErrStoreFault), http.StatusServiceUnavailable, "reply"},
		{"unexpected", `{"session_id":"s1","utterance":"hi"}`, errors.New("boom"), http.StatusInternalServerError, "error"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newTestRouter(&fakeTurns{err: tt.err}, nil)
			rec := do(t, h, http.MethodPost, "/v1/turn", tt.body)
			assert.Equal(t, tt.wantCode, rec.Code)

			var body map[string]any
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			assert.Contains(t, body, tt.wantKey)
		})
	}
}

func TestSessionSnapshot(t *testing.T) {
	turns := &fakeTurns{sessions: map[string]domain.SessionSummary{
		"s1": {State: domain.StateBuildingOrder, PendingOrder: []domain.SummaryLine{{Name: "Cola", Quantity: 2}}, OrderTotal: 4},
	}}
	h := newTestRouter(turns, nil)

	rec := do(t, h, http.MethodGet, "/v1/sessions/s1", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var body struct {
		SessionID string                `json:"session_id"`
		Summary   domain.SessionSummary `json:"summary"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "s1", body.SessionID)
	assert.Equal(t, domain.StateBuildingOrder, body.Summary.State)
	assert.Equal(t, 4.0, body.Summary.OrderTotal)

	rec = do(t, h, http.MethodGet, "/v1/sessions/nope", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHealthz(t *testing.T) {
	rec := do(t, newTestRouter(&fakeTurns{}, nil), http.MethodGet, "/healthz", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"ok":true}`, rec.Body.String())
}

func TestAnalyticsRoutes(t *testing.T) {
	h := newTestRouter(&fakeTurns{}, nil)
	rec := do(t, h, http.MethodGet, "/v1/analytics/intents", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	analytics := &fakeAnalytics{}
	h = newTestRouter(&fakeTurns{}, analytics)

	rec = do(t, h, http.MethodGet, "/v1/analytics/intents?since=2026-03-01T00:00:00Z", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC), analytics.since.UTC())
	assert.Contains(t, rec.Body.String(), `"place_order"`)

	rec = do(t, h, http.MethodGet, "/v1/analytics/intents?since=yesterday", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, h, http.MethodGet, "/v1/analytics/sessions/s1/events?limit=5", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 5, analytics.limit)
	assert.Contains(t, rec.Body.String(), `"e1"`)

	rec = do(t, h, http.MethodGet, "/v1/analytics/sessions/s1/events?limit=-1", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	analytics.err = errors.New("db down")
	rec = do(t, h, http.MethodGet, "/v1/analytics/intents", "")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}
