// Package db stores turn analytics in Postgres.
package db

import (
	"context"
	"encoding/json"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"blink/internal/domain"
)

type Store struct {
	pool *pgxpool.Pool
}

// IntentStat aggregates turn outcomes for one intent.
type IntentStat struct {
	Intent        domain.Intent `json:"intent"`
	Turns         int           `json:"turns"`
	Failures      int           `json:"failures"`
	AvgConfidence float64       `json:"avg_confidence"`
}

func New(ctx context.Context, dsn string) (*Store, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, err
	}
	return &Store{pool: pool}, nil
}

func (s *Store) Close() {
	s.pool.Close()
}

func (s *Store) Migrate(ctx context.Context) error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS turn_events (
			event_id TEXT PRIMARY KEY,
			session_id TEXT NOT NULL,
			channel TEXT,
			user_id TEXT,
			intent TEXT NOT NULL,
			confidence DOUBLE PRECISION NOT NULL DEFAULT 0,
			state_before TEXT NOT NULL,
			state_after TEXT NOT NULL,
			success BOOLEAN NOT NULL,
			failure_kind TEXT,
			utterance TEXT NOT NULL DEFAULT '',
			reply TEXT NOT NULL DEFAULT '',
			entities JSONB NOT NULL DEFAULT '{}'::jsonb,
			pending_items INT NOT NULL DEFAULT 0,
			order_reference TEXT,
			satisfaction DOUBLE PRECISION,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);`,
		`CREATE INDEX IF NOT EXISTS idx_turn_events_session_created ON turn_events(session_id, created_at DESC);`,
		`CREATE INDEX IF NOT EXISTS idx_turn_events_created ON turn_events(created_at DESC);`,
	}
	for _, q := range queries {
		if _, err := s.pool.Exec(ctx, q); err != nil {
			return err
		}
	}
	return nil
}

func (s *Store) InsertTurnEvent(ctx context.Context, ev domain.TurnEvent) error {
	entities, err := json.Marshal(ev.Entities)
	if err != nil {
		return err
	}
	at := ev.At
	if at.IsZero() {
		at = time.Now()
	}
	_, err = s.pool.Exec(ctx, `
		INSERT INTO turn_events(event_id, session_id, channel, user_id, intent, confidence, state_before, state_after,
			success, failure_kind, utterance, reply, entities, pending_items, order_reference, satisfaction, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)
		ON CONFLICT (event_id) DO NOTHING
	`, ev.EventID, ev.SessionID, nullIfEmpty(ev.Channel), nullIfEmpty(ev.UserID), string(ev.Intent), ev.Confidence,
		string(ev.StateBefore), string(ev.StateAfter), ev.Success, nullIfEmpty(ev.FailureKind), ev.Utterance, ev.Reply,
		entities, ev.PendingItems, nullIfEmpty(ev.OrderReference), ev.Satisfaction, at)
	return err
}

func (s *Store) ListTurnEvents(ctx context.Context, sessionID string, limit int) ([]domain.TurnEvent, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.pool.Query(ctx, `
		SELECT event_id, session_id, COALESCE(channel, ''), COALESCE(user_id, ''), intent, confidence,
			state_before, state_after, success, COALESCE(failure_kind, ''), utterance, reply, entities,
			pending_items, COALESCE(order_reference, ''), satisfaction, created_at
		FROM (
			SELECT * FROM turn_events
			WHERE session_id=$1
			ORDER BY created_at DESC
			LIMIT $2
		) t
		ORDER BY created_at ASC
	`, sessionID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]domain.TurnEvent, 0, limit)
	for rows.Next() {
		var (
			ev                    domain.TurnEvent
			intent, before, after string
			entities              []byte
		)
		if err := rows.Scan(&ev.EventID, &ev.SessionID, &ev.Channel, &ev.UserID, &intent, &ev.Confidence,
			&before, &after, &ev.Success, &ev.FailureKind, &ev.Utterance, &ev.Reply, &entities,
			&ev.PendingItems, &ev.OrderReference, &ev.Satisfaction, &ev.At); err != nil {
			return nil, err
		}
		ev.Intent = domain.Intent(intent)
		ev.StateBefore = domain.State(before)
		ev.StateAfter = domain.State(after)
		if len(entities) > 0 {
			if err := json.Unmarshal(entities, &ev.Entities); err != nil {
				return nil, err
			}
		}
		out = append(out, ev)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

func (s *Store) IntentStats(ctx context.Context, since time.Time) ([]IntentStat, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT intent, COUNT(*), COUNT(*) FILTER (WHERE NOT success), COALESCE(AVG(confidence), 0)
		FROM turn_events
		WHERE created_at >= $1
		GROUP BY intent
		ORDER BY COUNT(*) DESC
	`, since)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []IntentStat
	for rows.Next() {
		var (
			st     IntentStat
			intent string
		)
		if err := rows.Scan(&intent, &st.Turns, &st.Failures, &st.AvgConfidence); err != nil {
			return nil, err
		}
		st.Intent = domain.Intent(intent)
		out = append(out, st)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

func nullIfEmpty(s string) any {
	if s == "" {
		return nil
	}
	return s
}
