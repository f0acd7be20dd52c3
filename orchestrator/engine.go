// Package orchestrator drives a full conversational turn: ingest the user
// message, pick a tool, run it, and synthesize the reply. Turns never fail
// outward; every degradation ends in a usable assistant reply.
package orchestrator

import (
	"context"
	"log/slog"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/sweetpotato0/convoroute/graph"
	"github.com/sweetpotato0/convoroute/intent"
	"github.com/sweetpotato0/convoroute/message"
	"github.com/sweetpotato0/convoroute/middleware"
	"github.com/sweetpotato0/convoroute/pkg/logging"
	"github.com/sweetpotato0/convoroute/pkg/telemetry"
	"github.com/sweetpotato0/convoroute/router"
	"github.com/sweetpotato0/convoroute/session"
	"github.com/sweetpotato0/convoroute/synthesis"
	"github.com/sweetpotato0/convoroute/tool"
)

// WelcomeMessage opens a fresh conversation
const WelcomeMessage = `Hello! I'm your virtual business assistant.

I can help you with:
- Rankings of top Peruvian companies
- Dates, times and time zones
- Public holidays in Peru

What can I do for you today?`

// State keys threaded through the turn flow
const (
	stateKeyInput   = "input"
	stateKeySession = "session"
	stateKeyResults = "tool_results"
	stateKeyReply   = "reply"
)

// Engine wires the registry, router, executor, synthesizer and session
// store into the turn state machine.
type Engine struct {
	registry    *tool.Registry
	executor    *tool.Executor
	router      *router.Router
	decomposer  *intent.Decomposer
	synthesizer *synthesis.Synthesizer
	sessions    *session.Store
	chain       *middleware.Chain
	flow        *graph.Flow
	logger      *slog.Logger
}

// Option configures an Engine
type Option func(*Engine)

// WithSessionStore overrides the session store
func WithSessionStore(store *session.Store) Option {
	return func(e *Engine) { e.sessions = store }
}

// WithMiddleware sets the middleware chain wrapped around every turn
func WithMiddleware(chain *middleware.Chain) Option {
	return func(e *Engine) { e.chain = chain }
}

// WithExecutorConfig overrides tool execution limits
func WithExecutorConfig(cfg tool.ExecutorConfig) Option {
	return func(e *Engine) { e.executor = tool.NewExecutor(e.registry, cfg) }
}

// New creates an Engine. The registry provides the available tools; the
// router and synthesizer share the given completion client.
func New(registry *tool.Registry, rt *router.Router, syn *synthesis.Synthesizer, opts ...Option) *Engine {
	e := &Engine{
		registry:    registry,
		executor:    tool.NewExecutor(registry, tool.DefaultExecutorConfig()),
		router:      rt,
		decomposer:  intent.NewDecomposer(),
		synthesizer: syn,
		sessions:    session.NewStore(),
		logger:      logging.WithComponent("orchestrator"),
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.chain == nil {
		e.chain = middleware.NewChain(
			middleware.NewRecovery(e.logger),
			middleware.NewRequestLogger(e.logger),
			middleware.NewResponseLogger(e.logger),
			middleware.NewInputValidator(nil),
		)
	}
	e.flow = e.buildFlow()
	return e
}

// Sessions exposes the engine's session store
func (e *Engine) Sessions() *session.Store {
	return e.sessions
}

// Process runs one conversational turn and returns the assistant reply.
// It never returns an error: routing, execution and synthesis failures all
// degrade to a reply the user can read.
func (e *Engine) Process(ctx context.Context, sessionID, text string) string {
	ctx, span := telemetry.Tracer().Start(ctx, "orchestrator.turn",
		trace.WithAttributes(attribute.String("session.id", sessionID)))

	mwCtx := middleware.NewContext(ctx)
	mwCtx.SessionID = sessionID
	mwCtx.Input = text

	err := e.chain.Execute(mwCtx, func(mc *middleware.Context) error {
		mc.Reply = e.processTurn(mc.Context(), sessionID, mc.Input)
		return nil
	})
	telemetry.End(span, err)

	if err != nil {
		e.logger.Warn("turn rejected", "session_id", sessionID, "error", err)
		return synthesis.FallbackReply
	}
	return mwCtx.Reply
}

func (e *Engine) processTurn(ctx context.Context, sessionID, text string) string {
	var reply string
	err := e.sessions.WithTurn(ctx, sessionID, func(sess *session.Session) error {
		if subs := e.decomposer.Decompose(text); len(subs) > 0 {
			e.logger.Info("multiple requests detected", "session_id", sessionID, "count", len(subs))
			reply = e.processMulti(ctx, sess, text, subs)
			return nil
		}
		reply = e.processSingle(ctx, sess, text)
		return nil
	})
	if err != nil {
		e.logger.Error("turn failed", "session_id", sessionID, "error", err)
		return synthesis.FallbackReply
	}
	return reply
}

// processSingle runs the four-phase flow for an ordinary turn
func (e *Engine) processSingle(ctx context.Context, sess *session.Session, text string) string {
	span := trace.SpanFromContext(ctx)
	span.SetAttributes(attribute.String("turn.path", "single"))

	state := graph.State{
		stateKeyInput:   text,
		stateKeySession: sess,
	}

	final, err := e.flow.Execute(ctx, state)
	if err != nil {
		// the flow only errors on a broken definition; the nodes
		// themselves always degrade in place
		e.logger.Error("flow execution failed", "session_id", sess.ID(), "error", err)
		sess.Append(message.NewMessage(message.RoleUser, text))
		sess.Append(message.NewMessage(message.RoleAssistant, synthesis.FallbackReply))
		return synthesis.FallbackReply
	}
	span.SetAttributes(attribute.String("turn.tool", sess.SelectedTool()))

	reply, _ := final[stateKeyReply].(string)
	if reply == "" {
		reply = synthesis.FallbackReply
	}
	return reply
}

// processMulti answers a turn that decomposed into several requests. Each
// sub-request is forced onto its tool with a canonical query, and all the
// results are woven into one combined reply.
func (e *Engine) processMulti(ctx context.Context, sess *session.Session, text string, subs []intent.SubRequest) string {
	sess.Append(message.NewMessage(message.RoleUser, text))

	// Section order in the combined reply follows sub-request order.
	ordered := make([]synthesis.Labeled, 0, len(subs))
	stored := make(map[string]tool.Result, len(subs))
	tools := make([]string, 0, len(subs))
	for _, sub := range subs {
		toolName := router.ToolDateTime
		if sub.Category.IsRanking() {
			toolName = router.ToolCompanyRanking
		}
		e.logger.Info("forcing tool for sub-request",
			"session_id", sess.ID(), "category", string(sub.Category), "tool", toolName)
		result := e.executor.Execute(ctx, toolName, sub.Query)
		label := categoryLabel(sub.Category)
		ordered = append(ordered, synthesis.Labeled{Label: label, Result: result})
		stored[label] = result
		tools = append(tools, toolName)
	}
	sess.SetToolResults(stored)

	span := trace.SpanFromContext(ctx)
	span.SetAttributes(
		attribute.String("turn.path", "multi"),
		attribute.Int("turn.requests", len(subs)),
		attribute.StringSlice("turn.tools", tools),
	)

	reply := e.synthesizer.Synthesize(ctx, synthesis.Input{
		UserText: text,
		History:  sess.History(),
		Results:  ordered,
		Multi:    true,
	})
	sess.Append(message.NewMessage(message.RoleAssistant, reply))
	return reply
}

// buildFlow assembles the turn flow. The phase transition table is the
// source of truth: node wiring is derived from it, and the branch after
// tool selection consults it directly.
func (e *Engine) buildFlow() *graph.Flow {
	selectNext, _ := Transition(PhaseIngest, SignalAdvance)
	executeNext, _ := Transition(PhaseExecuteTool, SignalAdvance)
	synthesizeNext, _ := Transition(PhaseSynthesize, SignalAdvance)

	b := graph.NewBuilder()
	b.AddNode(string(PhaseIngest), graph.NodeTypeStart, e.nodeIngest)
	b.AddNode(string(PhaseSelectTool), graph.NodeTypeCustom, e.nodeSelectTool)
	b.AddConditionNode("route", e.conditionAfterSelect, map[string]string{
		string(PhaseExecuteTool): string(PhaseExecuteTool),
		string(PhaseSynthesize):  string(PhaseSynthesize),
	})
	b.AddNode(string(PhaseExecuteTool), graph.NodeTypeCustom, e.nodeExecuteTool)
	b.AddNode(string(PhaseSynthesize), graph.NodeTypeCustom, e.nodeSynthesize)
	b.AddNode(string(PhaseDone), graph.NodeTypeEnd, nil)

	b.AddEdge(string(PhaseIngest), string(selectNext))
	b.AddEdge(string(PhaseSelectTool), "route")
	b.AddEdge(string(PhaseExecuteTool), string(executeNext))
	b.AddEdge(string(PhaseSynthesize), string(synthesizeNext))
	b.SetStart(string(PhaseIngest))

	return b.Build()
}

func (e *Engine) nodeIngest(ctx context.Context, state graph.State) (graph.State, error) {
	sess := state[stateKeySession].(*session.Session)
	text := state[stateKeyInput].(string)
	sess.Append(message.NewMessage(message.RoleUser, text))
	return state, nil
}

func (e *Engine) nodeSelectTool(ctx context.Context, state graph.State) (graph.State, error) {
	sess := state[stateKeySession].(*session.Session)
	text := state[stateKeyInput].(string)

	selected := e.router.Route(ctx, text)
	sess.SetSelectedTool(selected)
	e.logger.Info("tool selected", "session_id", sess.ID(), "tool", sess.SelectedTool())
	return state, nil
}

// conditionAfterSelect emits the routing signal and resolves the next
// phase from the transition table.
func (e *Engine) conditionAfterSelect(ctx context.Context, state graph.State) (string, error) {
	sess := state[stateKeySession].(*session.Session)

	signal := SignalToolResolved
	if sess.SelectedTool() == session.SelectedNone {
		signal = SignalNoTool
	}
	next, err := Transition(PhaseSelectTool, signal)
	if err != nil {
		return "", err
	}
	return string(next), nil
}

func (e *Engine) nodeExecuteTool(ctx context.Context, state graph.State) (graph.State, error) {
	sess := state[stateKeySession].(*session.Session)
	text := state[stateKeyInput].(string)
	toolName := sess.SelectedTool()

	result := e.executor.Execute(ctx, toolName, text)
	sess.SetToolResults(map[string]tool.Result{toolName: result})

	state[stateKeyResults] = []synthesis.Labeled{{Label: toolName, Result: result}}
	return state, nil
}

func (e *Engine) nodeSynthesize(ctx context.Context, state graph.State) (graph.State, error) {
	sess := state[stateKeySession].(*session.Session)
	text := state[stateKeyInput].(string)
	results, _ := state[stateKeyResults].([]synthesis.Labeled)

	reply := e.synthesizer.Synthesize(ctx, synthesis.Input{
		UserText: text,
		History:  sess.History(),
		Results:  results,
	})
	sess.Append(message.NewMessage(message.RoleAssistant, reply))

	state[stateKeyReply] = reply
	return state, nil
}

// categoryLabel names a sub-request's result block in the combined prompt
func categoryLabel(cat intent.Category) string {
	switch cat {
	case intent.CategoryInvestment:
		return "ranking by investment"
	case intent.CategoryRevenue:
		return "ranking by revenue"
	case intent.CategoryMarketValue:
		return "ranking by market value"
	case intent.CategoryEmployees:
		return "ranking by employees"
	case intent.CategoryHolidays:
		return "upcoming holidays"
	case intent.CategoryDate:
		return "current date"
	case intent.CategoryTime:
		return "current time"
	default:
		return string(cat)
	}
}
