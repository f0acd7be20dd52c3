package tool

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/sweetpotato0/convoroute/pkg/logging"
)

// ExecutorConfig controls the containment policy applied to tool calls.
// Tools are unbounded-latency dependencies, so every call runs under a
// timeout; tools are assumed safe to retry once on failure.
type ExecutorConfig struct {
	Timeout time.Duration
	Retries int
}

// DefaultExecutorConfig returns the executor defaults: a 10s per-call
// timeout and a single retry.
func DefaultExecutorConfig() ExecutorConfig {
	return ExecutorConfig{
		Timeout: 10 * time.Second,
		Retries: 1,
	}
}

// Executor invokes registered tools safely, converting every failure mode
// (unknown tool, returned error, panic, timeout) into a Result value.
type Executor struct {
	registry *Registry
	config   ExecutorConfig
	logger   *slog.Logger
}

// NewExecutor creates an executor over the given registry
func NewExecutor(registry *Registry, config ExecutorConfig) *Executor {
	if config.Timeout <= 0 {
		config.Timeout = DefaultExecutorConfig().Timeout
	}
	if config.Retries < 0 {
		config.Retries = 0
	}
	return &Executor{
		registry: registry,
		config:   config,
		logger:   logging.WithComponent("tool_executor"),
	}
}

// Execute looks up the tool case-insensitively and runs it with the query.
// A missing tool yields OK=false with a "not found" detail; a failing tool
// yields OK=false with the failure detail. Success returns the tool's raw
// output untouched.
func (e *Executor) Execute(ctx context.Context, name, query string) Result {
	t, err := e.registry.Get(name)
	if err != nil {
		e.logger.Warn("tool not found", "tool", name)
		return Result{
			ToolName:    name,
			OK:          false,
			ErrorDetail: fmt.Sprintf("tool %s not found", name),
		}
	}

	var lastErr error
	for attempt := 0; attempt <= e.config.Retries; attempt++ {
		output, err := e.runOnce(ctx, t, query)
		if err == nil {
			e.logger.Info("tool executed", "tool", t.Name(), "attempt", attempt+1)
			return Result{ToolName: t.Name(), Output: output, OK: true}
		}
		lastErr = err
		e.logger.Warn("tool execution failed", "tool", t.Name(), "attempt", attempt+1, "error", err)
		if ctx.Err() != nil {
			break
		}
	}

	return Result{
		ToolName:    t.Name(),
		OK:          false,
		ErrorDetail: lastErr.Error(),
	}
}

func (e *Executor) runOnce(ctx context.Context, t Tool, query string) (output string, err error) {
	ctx, cancel := context.WithTimeout(ctx, e.config.Timeout)
	defer cancel()

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic in tool %s: %v", t.Name(), r)
		}
	}()

	return t.Run(ctx, query)
}
