package store

import (
	"context"
	stderrors "errors"
	"testing"

	"github.com/sweetpotato0/convoroute/errors"
	"github.com/sweetpotato0/convoroute/message"
	"github.com/sweetpotato0/convoroute/session"
)

func testRecord(id string) *session.Record {
	return &session.Record{
		ID: id,
		Messages: []*message.Message{
			message.NewMessage(message.RoleUser, "hello"),
		},
		Context: map[string]string{"selectedTool": "none"},
	}
}

func TestInMemoryStoreSaveLoad(t *testing.T) {
	s := NewInMemoryStore()
	ctx := context.Background()

	if err := s.Save(ctx, testRecord("user-1")); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	record, err := s.Load(ctx, "user-1")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if record.ID != "user-1" {
		t.Errorf("Expected ID user-1, got %q", record.ID)
	}
	if len(record.Messages) != 1 {
		t.Errorf("Expected 1 message, got %d", len(record.Messages))
	}
}

func TestInMemoryStoreLoadMissing(t *testing.T) {
	s := NewInMemoryStore()

	_, err := s.Load(context.Background(), "missing")
	if err == nil {
		t.Fatal("Expected error for missing session")
	}
	if !stderrors.Is(err, errors.ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
}

func TestInMemoryStoreSaveClones(t *testing.T) {
	s := NewInMemoryStore()
	ctx := context.Background()

	record := testRecord("user-1")
	if err := s.Save(ctx, record); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	record.Messages[0].Content = "mutated"

	loaded, err := s.Load(ctx, "user-1")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if loaded.Messages[0].Content != "hello" {
		t.Error("Save did not isolate the stored record from the caller")
	}
}

func TestInMemoryStoreDelete(t *testing.T) {
	s := NewInMemoryStore()
	ctx := context.Background()

	if err := s.Save(ctx, testRecord("user-1")); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	if err := s.Delete(ctx, "user-1"); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if _, err := s.Load(ctx, "user-1"); err == nil {
		t.Error("Expected session to be gone after delete")
	}

	// Deleting a missing session is not an error.
	if err := s.Delete(ctx, "missing"); err != nil {
		t.Errorf("Delete of missing session failed: %v", err)
	}
}

func TestInMemoryStoreList(t *testing.T) {
	s := NewInMemoryStore()
	ctx := context.Background()

	for _, id := range []string{"a", "b", "c"} {
		if err := s.Save(ctx, testRecord(id)); err != nil {
			t.Fatalf("Save failed: %v", err)
		}
	}

	ids, err := s.List(ctx)
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(ids) != 3 {
		t.Errorf("Expected 3 ids, got %d", len(ids))
	}
}
