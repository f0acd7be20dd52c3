package middleware

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/sweetpotato0/convoroute/errors"
)

// Context represents the turn execution context threaded through the chain
type Context struct {
	// SessionID identifies the conversation
	SessionID string

	// Input is the raw user message for this turn
	Input string

	// Reply is the assistant reply, set by the final handler
	Reply string

	// Metadata for passing data between middlewares
	Metadata map[string]interface{}

	// Internal state
	context context.Context
}

// NewContext creates a new middleware context
func NewContext(ctx context.Context) *Context {
	return &Context{
		Metadata: make(map[string]interface{}),
		context:  ctx,
	}
}

// Context returns the underlying context.Context
func (c *Context) Context() context.Context {
	return c.context
}

// Middleware defines the interface for turn-processing middleware.
// Middlewares can intercept and modify a turn before and after it runs.
type Middleware interface {
	// Name returns the name of the middleware for logging and debugging
	Name() string

	// Execute runs the middleware logic. It receives the current context
	// and a next handler to continue the chain. Returning an error stops
	// the chain.
	Execute(ctx *Context, next Handler) error
}

// Handler is the function called to pass control to the next middleware
type Handler func(*Context) error

// Chain represents a sequence of middleware to be executed
type Chain struct {
	middlewares []Middleware
}

// NewChain creates a new middleware chain
func NewChain(middlewares ...Middleware) *Chain {
	return &Chain{
		middlewares: middlewares,
	}
}

// Add appends a middleware to the chain
func (c *Chain) Add(m Middleware) *Chain {
	c.middlewares = append(c.middlewares, m)
	return c
}

// Execute runs all middlewares in the chain
func (c *Chain) Execute(ctx *Context, finalHandler Handler) error {
	return c.executeMiddleware(ctx, 0, finalHandler)
}

func (c *Chain) executeMiddleware(ctx *Context, index int, finalHandler Handler) error {
	if index >= len(c.middlewares) {
		return finalHandler(ctx)
	}

	nextHandler := func(ctx *Context) error {
		return c.executeMiddleware(ctx, index+1, finalHandler)
	}

	return c.middlewares[index].Execute(ctx, nextHandler)
}

// RequestLogger logs incoming turns
type RequestLogger struct {
	logger *slog.Logger
}

// NewRequestLogger creates a request logging middleware
func NewRequestLogger(logger *slog.Logger) *RequestLogger {
	return &RequestLogger{logger: logger}
}

// Name returns the middleware name
func (m *RequestLogger) Name() string {
	return "RequestLogger"
}

// Execute logs the turn input
func (m *RequestLogger) Execute(ctx *Context, next Handler) error {
	if m.logger != nil {
		m.logger.Info("turn started", "session_id", ctx.SessionID, "input_len", len(ctx.Input))
	}
	return next(ctx)
}

// ResponseLogger logs outgoing replies
type ResponseLogger struct {
	logger *slog.Logger
}

// NewResponseLogger creates a response logging middleware
func NewResponseLogger(logger *slog.Logger) *ResponseLogger {
	return &ResponseLogger{logger: logger}
}

// Name returns the middleware name
func (m *ResponseLogger) Name() string {
	return "ResponseLogger"
}

// Execute logs the turn reply
func (m *ResponseLogger) Execute(ctx *Context, next Handler) error {
	err := next(ctx)
	if m.logger != nil {
		m.logger.Info("turn finished", "session_id", ctx.SessionID, "reply_len", len(ctx.Reply), "error", err)
	}
	return err
}

// Recovery converts panics from downstream handlers into errors so one
// bad turn cannot take down the process.
type Recovery struct {
	logger *slog.Logger
}

// NewRecovery creates a panic recovery middleware
func NewRecovery(logger *slog.Logger) *Recovery {
	return &Recovery{logger: logger}
}

// Name returns the middleware name
func (m *Recovery) Name() string {
	return "Recovery"
}

// Execute recovers from panics in the rest of the chain
func (m *Recovery) Execute(ctx *Context, next Handler) (err error) {
	defer func() {
		if r := recover(); r != nil {
			if m.logger != nil {
				m.logger.Error("turn panicked", "session_id", ctx.SessionID, "panic", r)
			}
			err = fmt.Errorf("turn panicked: %v: %w", r, errors.ErrInternal)
		}
	}()
	return next(ctx)
}

// InputValidator validates the turn input before processing
type InputValidator struct {
	validator func(string) error
}

// NewInputValidator creates an input validation middleware. A nil
// validator rejects blank input only.
func NewInputValidator(validator func(string) error) *InputValidator {
	if validator == nil {
		validator = func(input string) error {
			if strings.TrimSpace(input) == "" {
				return fmt.Errorf("input cannot be empty: %w", errors.ErrInvalidInput)
			}
			return nil
		}
	}
	return &InputValidator{validator: validator}
}

// Name returns the middleware name
func (m *InputValidator) Name() string {
	return "InputValidator"
}

// Execute validates the input
func (m *InputValidator) Execute(ctx *Context, next Handler) error {
	if err := m.validator(ctx.Input); err != nil {
		return err
	}
	return next(ctx)
}
