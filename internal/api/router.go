// Package api exposes the turn orchestrator over HTTP.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"blink/internal/db"
	"blink/internal/domain"
)

type TurnHandler interface {
	HandleTurn(ctx context.Context, req domain.TurnRequest) (domain.TurnResult, error)
	Snapshot(sessionID string) (domain.SessionSummary, bool)
}

// Analytics serves read-side queries over stored turn events.
type Analytics interface {
	IntentStats(ctx context.Context, since time.Time) ([]db.IntentStat, error)
	ListTurnEvents(ctx context.Context, sessionID string, limit int) ([]domain.TurnEvent, error)
}

// NewRouter builds the HTTP surface. analytics may be nil, in which case the
// analytics routes are not mounted.
func NewRouter(turns TurnHandler, analytics Analytics, logger *slog.Logger) http.Handler {
	if logger == nil {
		logger = slog.Default()
	}

	r := chi.NewRouter()
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"ok": true})
	})

	r.Post("/v1/turn", func(w http.ResponseWriter, req *http.Request) {
		var turnReq domain.TurnRequest
		if err := json.NewDecoder(req.Body).Decode(&turnReq); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]any{"error": "invalid json"})
			return
		}

		resp, err := turns.HandleTurn(req.Context(), turnReq)
		if err != nil {
			if errors.Is(err, domain.ErrStoreFault) {
				writeJSON(w, http.StatusServiceUnavailable, map[string]any{
					"session_id": resp.SessionID,
					"reply":      resp.Reply,
					"error":      "session store unavailable",
				})
				return
			}
			logger.Error("turn failed", "session_id", turnReq.SessionID, "error", err)
			writeJSON(w, http.StatusInternalServerError, map[string]any{"error": err.Error()})
			return
		}

		writeJSON(w, http.StatusOK, resp)
	})

	r.Get("/v1/sessions/{id}", func(w http.ResponseWriter, req *http.Request) {
		id := chi.URLParam(req, "id")
		summary, ok := turns.Snapshot(id)
		if !ok {
			writeJSON(w, http.StatusNotFound, map[string]any{"error": "session not found"})
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"session_id": id, "summary": summary})
	})

	if analytics != nil {
		r.Route("/v1/analytics", func(r chi.Router) {
			r.Get("/intents", func(w http.ResponseWriter, req *http.Request) {
				since := time.Now().Add(-24 * time.Hour)
				if raw := strings.TrimSpace(req.URL.Query().Get("since")); raw != "" {
					parsed, err := time.Parse(time.RFC3339, raw)
					if err != nil {
						writeJSON(w, http.StatusBadRequest, map[string]any{"error": "since must be RFC3339"})
						return
					}
					since = parsed
				}
				stats, err := analytics.IntentStats(req.Context(), since)
				if err != nil {
					logger.Error("intent stats failed", "error", err)
					writeJSON(w, http.StatusInternalServerError, map[string]any{"error": "analytics unavailable"})
					return
				}
				writeJSON(w, http.StatusOK, map[string]any{"since": since.UTC(), "intents": stats})
			})
			r.Get("/sessions/{id}/events", func(w http.ResponseWriter, req *http.Request) {
				limit := 50
				if raw := req.URL.Query().Get("limit"); raw != "" {
					n, err := strconv.Atoi(raw)
					if err != nil || n <= 0 {
						writeJSON(w, http.StatusBadRequest, map[string]any{"error": "limit must be a positive integer"})
						return
					}
					limit = n
				}
				events, err := analytics.ListTurnEvents(req.Context(), chi.URLParam(req, "id"), limit)
				if err != nil {
					logger.Error("list turn events failed", "error", err)
					writeJSON(w, http.StatusInternalServerError, map[string]any{"error": "analytics unavailable"})
					return
				}
				writeJSON(w, http.StatusOK, map[string]any{"events": events})
			})
		})
	}

	return r
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
