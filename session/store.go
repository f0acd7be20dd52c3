package session

import (
	"context"
	stderrors "errors"
	"log/slog"
	"sync"
	"time"

	"github.com/sweetpotato0/convoroute/errors"
	"github.com/sweetpotato0/convoroute/pkg/logging"
)

// Store holds live sessions and hands out exclusive access to them one
// turn at a time. An optional Backend persists snapshots across restarts.
type Store struct {
	mu       sync.RWMutex
	sessions map[string]*Session
	backend  Backend
	onEvict  func(record *Record)
	logger   *slog.Logger
}

// StoreOption configures a Store
type StoreOption func(*Store)

// WithBackend attaches a persistence backend. Sessions are loaded from it
// on first access and saved after every turn.
func WithBackend(backend Backend) StoreOption {
	return func(s *Store) { s.backend = backend }
}

// WithEvictionHook registers a callback invoked with the final snapshot of
// every evicted session.
func WithEvictionHook(fn func(record *Record)) StoreOption {
	return func(s *Store) { s.onEvict = fn }
}

// NewStore creates a session store
func NewStore(opts ...StoreOption) *Store {
	s := &Store{
		sessions: make(map[string]*Session),
		logger:   logging.WithComponent("session"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// GetOrCreate returns the session for id, creating it if absent. When a
// backend is configured, a missing session is first looked up there so a
// restarted process resumes prior conversations.
func (s *Store) GetOrCreate(ctx context.Context, id string) *Session {
	s.mu.RLock()
	sess, ok := s.sessions[id]
	s.mu.RUnlock()
	if ok {
		return sess
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if sess, ok := s.sessions[id]; ok {
		return sess
	}

	if s.backend != nil {
		record, err := s.backend.Load(ctx, id)
		switch {
		case err == nil:
			sess := fromRecord(record)
			s.sessions[id] = sess
			s.logger.Info("session restored", "session_id", id, "messages", len(record.Messages))
			return sess
		case !stderrors.Is(err, errors.ErrNotFound):
			s.logger.Warn("session load failed", "session_id", id, "error", err)
		}
	}

	sess = newSession(id)
	s.sessions[id] = sess
	s.logger.Info("session created", "session_id", id)
	return sess
}

// Get returns the live session for id, if any
func (s *Store) Get(id string) (*Session, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sess, ok := s.sessions[id]
	return sess, ok
}

// Len returns the number of live sessions
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

// WithTurn runs fn with exclusive access to the session for id. Turns on
// the same session serialize; turns on different sessions proceed in
// parallel. The session is persisted after fn returns.
func (s *Store) WithTurn(ctx context.Context, id string, fn func(sess *Session) error) error {
	sess := s.GetOrCreate(ctx, id)

	sess.turnMu.Lock()
	err := func() error {
		defer sess.turnMu.Unlock()
		return fn(sess)
	}()

	if s.backend != nil {
		if saveErr := s.backend.Save(ctx, sess.Snapshot()); saveErr != nil {
			s.logger.Warn("session save failed", "session_id", id, "error", saveErr)
		}
	}
	return err
}

// Evict removes the session for id, invoking the eviction hook and
// deleting any persisted record.
func (s *Store) Evict(ctx context.Context, id string) {
	s.mu.Lock()
	sess, ok := s.sessions[id]
	delete(s.sessions, id)
	s.mu.Unlock()
	if !ok {
		return
	}

	record := sess.Snapshot()
	if s.onEvict != nil {
		s.onEvict(record)
	}
	if s.backend != nil {
		if err := s.backend.Delete(ctx, id); err != nil {
			s.logger.Warn("session delete failed", "session_id", id, "error", err)
		}
	}
	s.logger.Info("session evicted", "session_id", id)
}

// EvictIdle removes every session whose last activity is older than
// maxIdle and returns how many were removed. A non-positive maxIdle is a
// no-op.
func (s *Store) EvictIdle(ctx context.Context, maxIdle time.Duration) int {
	if maxIdle <= 0 {
		return 0
	}
	cutoff := time.Now().Add(-maxIdle)

	s.mu.RLock()
	var stale []string
	for id, sess := range s.sessions {
		if sess.UpdatedAt().Before(cutoff) {
			stale = append(stale, id)
		}
	}
	s.mu.RUnlock()

	for _, id := range stale {
		s.Evict(ctx, id)
	}
	return len(stale)
}
