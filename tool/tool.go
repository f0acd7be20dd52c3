package tool

import (
	"context"
	"fmt"
	"strings"
	"sync"
)

// Tool represents a named external capability that answers a text query with
// text output. Implementations may fail; failures are contained by the
// Executor and never abort a turn.
type Tool interface {
	// Name returns the unique tool name. Names are compared case-insensitively.
	Name() string
	// Description returns a short description used for model-assisted selection.
	Description() string
	// Run answers the query with text output.
	Run(ctx context.Context, query string) (string, error)
}

// Func adapts a plain function to the Tool interface.
type Func struct {
	ToolName        string
	ToolDescription string
	Handler         func(context.Context, string) (string, error)
}

// Name returns the tool name
func (f *Func) Name() string { return f.ToolName }

// Description returns the tool description
func (f *Func) Description() string { return f.ToolDescription }

// Run invokes the wrapped handler
func (f *Func) Run(ctx context.Context, query string) (string, error) {
	if f.Handler == nil {
		return "", fmt.Errorf("tool %s has no handler", f.ToolName)
	}
	return f.Handler(ctx, query)
}

// Result is the contained outcome of a tool invocation. It is always a
// value, never a fatal error: lookup misses and execution failures are
// reported through OK and ErrorDetail.
type Result struct {
	ToolName    string `json:"tool_name"`
	Output      string `json:"output"`
	OK          bool   `json:"ok"`
	ErrorDetail string `json:"error_detail,omitempty"`
}

// Registry manages a collection of tools. Names are unique and compared
// case-insensitively; registration order is preserved because the router's
// model-fallback parse scans names in that order.
// All operations are thread-safe using RWMutex protection.
type Registry struct {
	mu    sync.RWMutex
	tools map[string]Tool
	order []string
}

// NewRegistry creates a new tool registry
func NewRegistry() *Registry {
	return &Registry{
		tools: make(map[string]Tool),
	}
}

// Register adds a tool to the registry
func (r *Registry) Register(t Tool) error {
	if t == nil || t.Name() == "" {
		return fmt.Errorf("tool name cannot be empty")
	}

	key := strings.ToLower(t.Name())

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.tools[key]; exists {
		return fmt.Errorf("tool %s already registered", t.Name())
	}
	r.tools[key] = t
	r.order = append(r.order, key)
	return nil
}

// Get retrieves a tool by name, case-insensitively
func (r *Registry) Get(name string) (Tool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	t, ok := r.tools[strings.ToLower(name)]
	if !ok {
		return nil, fmt.Errorf("tool %s not found", name)
	}
	return t, nil
}

// Has reports whether a tool with the given name is registered
func (r *Registry) Has(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.tools[strings.ToLower(name)]
	return ok
}

// List returns all registered tools in registration order
func (r *Registry) List() []Tool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	tools := make([]Tool, 0, len(r.order))
	for _, key := range r.order {
		tools = append(tools, r.tools[key])
	}
	return tools
}

// Names returns the lower-cased tool names in registration order
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]string(nil), r.order...)
}
