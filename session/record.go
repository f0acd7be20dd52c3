package session

import (
	"context"
	"time"

	"github.com/sweetpotato0/convoroute/message"
	"github.com/sweetpotato0/convoroute/tool"
)

// Record is the serializable form of a session, used by persistence
// backends.
type Record struct {
	ID          string                 `json:"id" bson:"_id"`
	Messages    []*message.Message     `json:"messages" bson:"messages"`
	Context     map[string]string      `json:"context" bson:"context"`
	ToolResults map[string]tool.Result `json:"tool_results" bson:"tool_results"`
	CreatedAt   time.Time              `json:"created_at" bson:"created_at"`
	UpdatedAt   time.Time              `json:"updated_at" bson:"updated_at"`
}

// Clone returns a deep copy of the record
func (r *Record) Clone() *Record {
	if r == nil {
		return nil
	}
	out := &Record{
		ID:          r.ID,
		Messages:    message.CloneMessages(r.Messages),
		Context:     make(map[string]string, len(r.Context)),
		ToolResults: make(map[string]tool.Result, len(r.ToolResults)),
		CreatedAt:   r.CreatedAt,
		UpdatedAt:   r.UpdatedAt,
	}
	for k, v := range r.Context {
		out.Context[k] = v
	}
	for k, v := range r.ToolResults {
		out.ToolResults[k] = v
	}
	return out
}

// Backend persists session records. Implementations live under
// session/store.
type Backend interface {
	// Save stores or replaces a record
	Save(ctx context.Context, record *Record) error
	// Load returns the record for id, or errors.ErrNotFound
	Load(ctx context.Context, id string) (*Record, error)
	// Delete removes the record for id. Deleting a missing record is
	// not an error.
	Delete(ctx context.Context, id string) error
	// List returns all stored session ids
	List(ctx context.Context) ([]string, error)
	// Close releases backend resources
	Close(ctx context.Context) error
}
