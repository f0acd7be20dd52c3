package synthesis

import (
	"context"
	"log/slog"
	"strings"

	"github.com/sweetpotato0/convoroute/completion"
	"github.com/sweetpotato0/convoroute/message"
	"github.com/sweetpotato0/convoroute/pkg/logging"
	"github.com/sweetpotato0/convoroute/prompt"
	"github.com/sweetpotato0/convoroute/tokenizer"
	"github.com/sweetpotato0/convoroute/tool"
)

// DefaultPersona is the assistant persona used when none is configured
const DefaultPersona = "You are a friendly and helpful assistant. " +
	"You answer questions about company rankings (investment, revenue, market value, employees) " +
	"and about dates, times, time zones and upcoming holidays. " +
	"Keep answers clear and conversational."

// FallbackReply is returned whenever the completion call fails. The
// conversation always gets an answer, even a degraded one.
const FallbackReply = "I'm sorry, I wasn't able to put together a response just now. Please try again."

// DefaultHistoryBudget caps how many history tokens are rendered into the
// synthesis prompt. Older messages are dropped first; the session history
// itself is never truncated.
const DefaultHistoryBudget = 1500

// Synthesizer turns the turn's inputs (user text, history, tool results)
// into a single natural-language reply via one completion call.
type Synthesizer struct {
	client    completion.Client
	tokenizer tokenizer.Tokenizer
	persona   string
	budget    int
	logger    *slog.Logger
}

// Option configures a Synthesizer
type Option func(*Synthesizer)

// WithPersona overrides the assistant persona
func WithPersona(persona string) Option {
	return func(s *Synthesizer) { s.persona = persona }
}

// WithTokenizer sets the tokenizer used for history budgeting
func WithTokenizer(t tokenizer.Tokenizer) Option {
	return func(s *Synthesizer) { s.tokenizer = t }
}

// WithHistoryBudget sets the history token budget. Non-positive disables
// trimming.
func WithHistoryBudget(budget int) Option {
	return func(s *Synthesizer) { s.budget = budget }
}

// New creates a Synthesizer backed by the given completion client
func New(client completion.Client, opts ...Option) *Synthesizer {
	s := &Synthesizer{
		client:    client,
		tokenizer: tokenizer.Heuristic{},
		persona:   DefaultPersona,
		budget:    DefaultHistoryBudget,
		logger:    logging.WithComponent("synthesis"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Labeled pairs a tool result with the label naming its section in the
// prompt. Slice order is section order in the reply.
type Labeled struct {
	Label  string
	Result tool.Result
}

// Input is everything a single turn contributes to the reply
type Input struct {
	// UserText is the raw user message for this turn
	UserText string
	// History is the conversation so far, oldest first
	History []*message.Message
	// Results holds labeled tool outputs in the order their sections
	// should appear. Empty when the turn ran without tools.
	Results []Labeled
	// Multi is set when the turn answered several requests at once
	Multi bool
}

// Synthesize produces the assistant reply for the turn. It never returns
// an error: if the completion call fails the fixed fallback reply is
// returned instead.
func (s *Synthesizer) Synthesize(ctx context.Context, in Input) string {
	p := s.buildPrompt(in)

	reply, err := s.client.Complete(ctx, p)
	if err != nil {
		s.logger.Warn("completion failed, using fallback reply", "error", err)
		return FallbackReply
	}
	reply = strings.TrimSpace(reply)
	if reply == "" {
		s.logger.Warn("completion returned empty reply, using fallback")
		return FallbackReply
	}
	return reply
}

func (s *Synthesizer) buildPrompt(in Input) string {
	b := prompt.NewBuilder()
	b.AddLine(s.persona)

	if history := s.renderHistory(in.History); history != "" {
		b.AddSection("Conversation so far", history)
	}

	if len(in.Results) > 0 {
		for _, lr := range in.Results {
			if lr.Result.OK {
				b.AddSection("Tool result: "+lr.Label, lr.Result.Output)
			} else {
				b.AddSection("Tool result: "+lr.Label,
					"The tool could not produce data ("+lr.Result.ErrorDetail+"). Apologize for this part of the answer.")
			}
		}
		b.AddLine("Use the figures, names and values from the tool results exactly as given. Do not invent, round or reorder data.")
	}

	if in.Multi {
		b.AddLine("The user asked about several things at once. Weave every result above into one coherent reply that addresses each request in turn.")
	}

	b.AddSection("User message", in.UserText)
	b.AddLine("Assistant reply:")
	return b.Build()
}

// renderHistory formats history as alternating "User:"/"Assistant:" lines,
// dropping the oldest messages once the token budget is exceeded.
func (s *Synthesizer) renderHistory(history []*message.Message) string {
	if len(history) == 0 {
		return ""
	}

	lines := make([]string, 0, len(history))
	used := 0
	for i := len(history) - 1; i >= 0; i-- {
		msg := history[i]
		line := roleLabel(msg.Role) + ": " + msg.Content
		if s.budget > 0 {
			cost := s.tokenizer.CountTokens(line)
			if used+cost > s.budget && len(lines) > 0 {
				break
			}
			used += cost
		}
		lines = append(lines, line)
	}

	// lines were collected newest-first
	for i, j := 0, len(lines)-1; i < j; i, j = i+1, j-1 {
		lines[i], lines[j] = lines[j], lines[i]
	}
	return strings.Join(lines, "\n")
}

func roleLabel(role message.Role) string {
	if role == message.RoleAssistant {
		return "Assistant"
	}
	return "User"
}
