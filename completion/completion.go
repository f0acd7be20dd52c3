package completion

import (
	"context"
	"time"
)

// Client is the text-completion collaborator. It is synchronous and may
// fail; callers contain failures at their own boundary.
type Client interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// Func adapts a plain function to the Client interface; mainly useful for tests.
type Func func(ctx context.Context, prompt string) (string, error)

// Complete invokes the wrapped function
func (f Func) Complete(ctx context.Context, prompt string) (string, error) {
	return f(ctx, prompt)
}

// Bounded wraps a Client with a per-call timeout. The completion service has
// unbounded latency, so every call through the engine runs under Bounded.
// There is no retry here: the router treats a failed selection call as "no
// tool" and the synthesizer has its own fallback reply, so retrying would
// only delay the defined degradation.
type Bounded struct {
	client  Client
	timeout time.Duration
}

// NewBounded wraps client with the given timeout. A non-positive timeout
// defaults to 30 seconds.
func NewBounded(client Client, timeout time.Duration) *Bounded {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Bounded{client: client, timeout: timeout}
}

// Complete calls the underlying client under the configured timeout
func (b *Bounded) Complete(ctx context.Context, prompt string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, b.timeout)
	defer cancel()
	return b.client.Complete(ctx, prompt)
}
