package session

import (
	"sync"
	"time"

	"github.com/sweetpotato0/convoroute/message"
	"github.com/sweetpotato0/convoroute/tool"
)

// ContextSelectedTool is the working-context key holding the tool resolved
// for the current turn.
const ContextSelectedTool = "selectedTool"

// SelectedNone is the sentinel stored when no tool was resolved.
const SelectedNone = "none"

// Session is the per-conversation state: an append-only message history,
// a small working context and the results of the last tool invocations.
// A Session is owned by exactly one Store and lives for the process
// lifetime unless evicted.
type Session struct {
	id string

	// turnMu serializes whole turns; mu guards the fields below.
	turnMu sync.Mutex

	mu          sync.Mutex
	history     []*message.Message
	context     map[string]string
	toolResults map[string]tool.Result
	createdAt   time.Time
	updatedAt   time.Time
}

func newSession(id string) *Session {
	now := time.Now()
	return &Session{
		id:          id,
		context:     map[string]string{ContextSelectedTool: SelectedNone},
		toolResults: make(map[string]tool.Result),
		createdAt:   now,
		updatedAt:   now,
	}
}

// ID returns the session id
func (s *Session) ID() string { return s.id }

// History returns a copy of the message history
func (s *Session) History() []*message.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	return message.CloneMessages(s.history)
}

// HistoryLen returns the number of messages in the history
func (s *Session) HistoryLen() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.history)
}

// Append adds a message to the history. Messages are never removed.
func (s *Session) Append(msg *message.Message) {
	if msg == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.history = append(s.history, msg)
	s.updatedAt = time.Now()
}

// SetSelectedTool records the tool resolved for the current turn. An empty
// name stores the SelectedNone sentinel.
func (s *Session) SetSelectedTool(name string) {
	if name == "" {
		name = SelectedNone
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.context[ContextSelectedTool] = name
	s.updatedAt = time.Now()
}

// SelectedTool returns the tool recorded for the current turn
func (s *Session) SelectedTool() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.context[ContextSelectedTool]
}

// SetToolResults replaces the last tool results
func (s *Session) SetToolResults(results map[string]tool.Result) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.toolResults = make(map[string]tool.Result, len(results))
	for key, res := range results {
		s.toolResults[key] = res
	}
	s.updatedAt = time.Now()
}

// LastToolResults returns a copy of the last tool results
func (s *Session) LastToolResults() map[string]tool.Result {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]tool.Result, len(s.toolResults))
	for key, res := range s.toolResults {
		out[key] = res
	}
	return out
}

// UpdatedAt returns the time of the last mutation
func (s *Session) UpdatedAt() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.updatedAt
}

// Snapshot returns a serializable record of the session state
func (s *Session) Snapshot() *Record {
	s.mu.Lock()
	defer s.mu.Unlock()

	ctx := make(map[string]string, len(s.context))
	for k, v := range s.context {
		ctx[k] = v
	}
	results := make(map[string]tool.Result, len(s.toolResults))
	for k, v := range s.toolResults {
		results[k] = v
	}

	return &Record{
		ID:          s.id,
		Messages:    message.CloneMessages(s.history),
		Context:     ctx,
		ToolResults: results,
		CreatedAt:   s.createdAt,
		UpdatedAt:   s.updatedAt,
	}
}

func fromRecord(record *Record) *Session {
	s := newSession(record.ID)
	s.history = message.CloneMessages(record.Messages)
	for k, v := range record.Context {
		s.context[k] = v
	}
	for k, v := range record.ToolResults {
		s.toolResults[k] = v
	}
	if !record.CreatedAt.IsZero() {
		s.createdAt = record.CreatedAt
	}
	if !record.UpdatedAt.IsZero() {
		s.updatedAt = record.UpdatedAt
	}
	return s
}
