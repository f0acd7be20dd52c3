package store

import (
	"context"
	"fmt"
	"sync"

	"github.com/sweetpotato0/convoroute/errors"
	"github.com/sweetpotato0/convoroute/session"
)

// InMemoryStore keeps session records in process memory. Useful for tests
// and single-process deployments that do not need persistence.
type InMemoryStore struct {
	mu      sync.RWMutex
	records map[string]*session.Record
}

// NewInMemoryStore creates an in-memory session backend
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		records: make(map[string]*session.Record),
	}
}

// Save stores or replaces a record
func (s *InMemoryStore) Save(ctx context.Context, record *session.Record) error {
	if record == nil {
		return fmt.Errorf("record cannot be nil")
	}
	if record.ID == "" {
		return fmt.Errorf("record id cannot be empty: %w", errors.ErrInvalidInput)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.records[record.ID] = record.Clone()
	return nil
}

// Load returns the record for id
func (s *InMemoryStore) Load(ctx context.Context, id string) (*session.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	record, ok := s.records[id]
	if !ok {
		return nil, fmt.Errorf("session %s: %w", id, errors.ErrNotFound)
	}
	return record.Clone(), nil
}

// Delete removes the record for id
func (s *InMemoryStore) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.records, id)
	return nil
}

// List returns all stored session ids
func (s *InMemoryStore) List(ctx context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := make([]string, 0, len(s.records))
	for id := range s.records {
		ids = append(ids, id)
	}
	return ids, nil
}

// Close is a no-op for the in-memory store
func (s *InMemoryStore) Close(ctx context.Context) error {
	return nil
}
