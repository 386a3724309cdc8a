// Package session keeps dialogue sessions in memory for the life of the
// process.
package session

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"blink/internal/domain"
)

type entry struct {
	// lock is a one-slot semaphore so waiters can give up with their context.
	lock    chan struct{}
	session domain.Session
	loaded  bool
}

type Store struct {
	mu          sync.RWMutex
	entries     map[string]*entry
	idleTimeout time.Duration
	now         func() time.Time
	logger      *slog.Logger
}

func NewStore(idleTimeout time.Duration, logger *slog.Logger) *Store {
	if idleTimeout <= 0 {
		idleTimeout = time.Hour
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{
		entries:     make(map[string]*entry),
		idleTimeout: idleTimeout,
		now:         time.Now,
		logger:      logger,
	}
}

// SetClock replaces the time source.
func (s *Store) SetClock(now func() time.Time) {
	s.now = now
}

// Update runs fn on a private copy of the session under that session's lock
// and commits the copy when fn returns nil. Absent or idle-expired sessions are
// replaced by a fresh one. A session that fn moves to ENDED is evicted.
func (s *Store) Update(ctx context.Context, sessionID string, fn func(*domain.Session) error) (domain.Session, error) {
	e, err := s.acquire(ctx, sessionID)
	if err != nil {
		return domain.Session{}, err
	}
	defer func() { <-e.lock }()

	now := s.now()
	var working domain.Session
	if e.loaded && !s.expired(e.session, now) {
		working = e.session.Clone()
	} else {
		if e.loaded {
			s.logger.Info("session expired", "session_id", sessionID, "last_active_at", e.session.LastActiveAt)
		}
		working = domain.NewSession(sessionID, now)
	}

	if err := fn(&working); err != nil {
		return domain.Session{}, err
	}

	s.mu.Lock()
	if working.State == domain.StateEnded {
		delete(s.entries, sessionID)
	} else {
		e.session = working.Clone()
		e.loaded = true
	}
	s.mu.Unlock()
	return working, nil
}

func (s *Store) acquire(ctx context.Context, sessionID string) (*entry, error) {
	for {
		s.mu.Lock()
		e, ok := s.entries[sessionID]
		if !ok {
			e = &entry{lock: make(chan struct{}, 1)}
			s.entries[sessionID] = e
		}
		s.mu.Unlock()

		select {
		case e.lock <- struct{}{}:
		case <-ctx.Done():
			return nil, fmt.Errorf("%w: waiting for session %s: %v", domain.ErrStoreFault, sessionID, ctx.Err())
		}

		s.mu.RLock()
		current := s.entries[sessionID]
		s.mu.RUnlock()
		if current == e {
			return e, nil
		}
		// evicted while we waited
		<-e.lock
	}
}

// Get returns a snapshot of a live session.
func (s *Store) Get(sessionID string) (domain.Session, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.entries[sessionID]
	if !ok || !e.loaded || s.expired(e.session, s.now()) {
		return domain.Session{}, false
	}
	return e.session.Clone(), true
}

func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

// Purge evicts idle sessions that nobody is currently working on and returns
// how many were removed.
func (s *Store) Purge() int {
	now := s.now()
	s.mu.Lock()
	defer s.mu.Unlock()

	purged := 0
	for id, e := range s.entries {
		if e.loaded && !s.expired(e.session, now) {
			continue
		}
		select {
		case e.lock <- struct{}{}:
			delete(s.entries, id)
			<-e.lock
			purged++
		default:
		}
	}
	return purged
}

func (s *Store) RunJanitor(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := s.Purge(); n > 0 {
				s.logger.Info("purged idle sessions", "count", n, "remaining", s.Len())
			}
		}
	}
}

func (s *Store) expired(sess domain.Session, now time.Time) bool {
	return now.Sub(sess.LastActiveAt) > s.idleTimeout
}
