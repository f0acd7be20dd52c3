package session

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/sweetpotato0/convoroute/errors"
	"github.com/sweetpotato0/convoroute/message"
)

// memBackend is a minimal in-process Backend for store tests. The real
// in-memory backend lives in session/store; a local copy here avoids an
// import cycle with the package under test.
type memBackend struct {
	mu      sync.Mutex
	records map[string]*Record
	saves   int
}

func newMemBackend() *memBackend {
	return &memBackend{records: make(map[string]*Record)}
}

func (b *memBackend) Save(ctx context.Context, record *Record) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.records[record.ID] = record.Clone()
	b.saves++
	return nil
}

func (b *memBackend) Load(ctx context.Context, id string) (*Record, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	record, ok := b.records[id]
	if !ok {
		return nil, fmt.Errorf("session %s: %w", id, errors.ErrNotFound)
	}
	return record.Clone(), nil
}

func (b *memBackend) Delete(ctx context.Context, id string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.records, id)
	return nil
}

func (b *memBackend) List(ctx context.Context) ([]string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	ids := make([]string, 0, len(b.records))
	for id := range b.records {
		ids = append(ids, id)
	}
	return ids, nil
}

func (b *memBackend) Close(ctx context.Context) error { return nil }

func TestGetOrCreateReturnsSameSession(t *testing.T) {
	store := NewStore()
	ctx := context.Background()

	first := store.GetOrCreate(ctx, "user-1")
	second := store.GetOrCreate(ctx, "user-1")
	if first != second {
		t.Error("Expected the same session instance for the same id")
	}

	other := store.GetOrCreate(ctx, "user-2")
	if other == first {
		t.Error("Expected distinct sessions for distinct ids")
	}
	if store.Len() != 2 {
		t.Errorf("Expected 2 live sessions, got %d", store.Len())
	}
}

func TestGetOrCreateRestoresFromBackend(t *testing.T) {
	backend := newMemBackend()
	ctx := context.Background()

	// Simulate a prior process persisting a session.
	prior := newSession("user-1")
	prior.Append(message.NewMessage(message.RoleUser, "remember me"))
	if err := backend.Save(ctx, prior.Snapshot()); err != nil {
		t.Fatalf("Failed to seed backend: %v", err)
	}

	store := NewStore(WithBackend(backend))
	restored := store.GetOrCreate(ctx, "user-1")
	if restored.HistoryLen() != 1 {
		t.Fatalf("Expected restored history of 1 message, got %d", restored.HistoryLen())
	}
	if restored.History()[0].Content != "remember me" {
		t.Error("Restored history content does not match")
	}
}

func TestWithTurnPersists(t *testing.T) {
	backend := newMemBackend()
	store := NewStore(WithBackend(backend))
	ctx := context.Background()

	err := store.WithTurn(ctx, "user-1", func(sess *Session) error {
		sess.Append(message.NewMessage(message.RoleUser, "hello"))
		return nil
	})
	if err != nil {
		t.Fatalf("WithTurn failed: %v", err)
	}

	record, err := backend.Load(ctx, "user-1")
	if err != nil {
		t.Fatalf("Expected persisted record: %v", err)
	}
	if len(record.Messages) != 1 {
		t.Errorf("Expected 1 persisted message, got %d", len(record.Messages))
	}
}

func TestWithTurnSerializesPerSession(t *testing.T) {
	store := NewStore()
	ctx := context.Background()

	const turns = 20
	var wg sync.WaitGroup
	for i := 0; i < turns; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = store.WithTurn(ctx, "user-1", func(sess *Session) error {
				n := sess.HistoryLen()
				sess.Append(message.NewMessage(message.RoleUser, "turn"))
				sess.Append(message.NewMessage(message.RoleAssistant, "reply"))
				if sess.HistoryLen() != n+2 {
					t.Error("Another turn interleaved inside WithTurn")
				}
				return nil
			})
		}()
	}
	wg.Wait()

	sess, _ := store.Get("user-1")
	if sess.HistoryLen() != turns*2 {
		t.Errorf("Expected %d messages, got %d", turns*2, sess.HistoryLen())
	}
}

func TestEvictInvokesHook(t *testing.T) {
	backend := newMemBackend()
	var evicted []*Record
	store := NewStore(
		WithBackend(backend),
		WithEvictionHook(func(record *Record) { evicted = append(evicted, record) }),
	)
	ctx := context.Background()

	sess := store.GetOrCreate(ctx, "user-1")
	sess.Append(message.NewMessage(message.RoleUser, "bye"))
	_ = backend.Save(ctx, sess.Snapshot())

	store.Evict(ctx, "user-1")

	if store.Len() != 0 {
		t.Errorf("Expected no live sessions, got %d", store.Len())
	}
	if len(evicted) != 1 || evicted[0].ID != "user-1" {
		t.Fatalf("Expected eviction hook with user-1 record, got %v", evicted)
	}
	if _, err := backend.Load(ctx, "user-1"); err == nil {
		t.Error("Expected persisted record to be deleted")
	}
}

func TestEvictIdle(t *testing.T) {
	store := NewStore()
	ctx := context.Background()

	stale := store.GetOrCreate(ctx, "stale")
	stale.mu.Lock()
	stale.updatedAt = time.Now().Add(-2 * time.Hour)
	stale.mu.Unlock()

	fresh := store.GetOrCreate(ctx, "fresh")
	fresh.Append(message.NewMessage(message.RoleUser, "still here"))

	if n := store.EvictIdle(ctx, time.Hour); n != 1 {
		t.Errorf("Expected 1 eviction, got %d", n)
	}
	if _, ok := store.Get("stale"); ok {
		t.Error("Expected stale session to be gone")
	}
	if _, ok := store.Get("fresh"); !ok {
		t.Error("Expected fresh session to survive")
	}

	if n := store.EvictIdle(ctx, 0); n != 0 {
		t.Errorf("Expected non-positive maxIdle to be a no-op, got %d", n)
	}
}
