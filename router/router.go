package router

import (
	"context"
	"log/slog"
	"strings"

	"github.com/sweetpotato0/convoroute/completion"
	"github.com/sweetpotato0/convoroute/pkg/logging"
	"github.com/sweetpotato0/convoroute/prompt"
	"github.com/sweetpotato0/convoroute/tool"
)

// Well-known tool names the deterministic pre-check resolves to.
const (
	ToolDateTime       = "datetime"
	ToolCompanyRanking = "company_ranking"
)

// None is the sentinel returned when no tool should be invoked.
const None = ""

// datetimeKeywords force the datetime tool when present. Checked before the
// company keywords so temporal cues win on mixed vocabulary, matching the
// original precedence.
var datetimeKeywords = []string{
	"date", "day", "hour", "time", "holiday", "holidays",
	"timezone", "time zone", "calendar", "clock", "when is",
	"what day", "what time",
}

// companyKeywords force the company_ranking tool when present.
var companyKeywords = []string{
	"company", "companies", "business", "ranking", "rank",
	"classification", "top", "largest", "biggest", "investment",
	"revenue", "income", "market value", "employees", "workers", "staff",
}

// Router resolves one request to at most one tool. Tier 1 is a
// deterministic keyword pre-check that never calls the model; tier 2 asks
// the completion service to pick among the registered tools and parses the
// reply leniently. Routing never fails outward: every internal error maps
// to None and the caller proceeds straight to synthesis.
type Router struct {
	registry *tool.Registry
	client   completion.Client
	logger   *slog.Logger
}

// New creates a router over the registry. The client may be nil, in which
// case only the pre-check tier is available.
func New(registry *tool.Registry, client completion.Client) *Router {
	return &Router{
		registry: registry,
		client:   client,
		logger:   logging.WithComponent("router"),
	}
}

// Route returns the name of the tool to invoke for text, or None.
func (r *Router) Route(ctx context.Context, text string) string {
	if name := r.PreCheck(text); name != None {
		r.logger.Info("tool resolved by pre-check", "tool", name)
		return name
	}
	return r.modelFallback(ctx, text)
}

// PreCheck is the deterministic tier: it scans the text for the fixed
// keyword sets and returns the matching tool name, or None. Unambiguous
// lexical cues short-circuit here without a model call.
func (r *Router) PreCheck(text string) string {
	lower := strings.ToLower(text)

	if containsAny(lower, datetimeKeywords) {
		return ToolDateTime
	}
	if containsAny(lower, companyKeywords) {
		return ToolCompanyRanking
	}
	return None
}

// modelFallback builds a selection prompt over every registered tool and
// parses the reply by scanning for a known tool name, in registry order.
// Verbose or malformed replies degrade to None.
func (r *Router) modelFallback(ctx context.Context, text string) string {
	if r.client == nil {
		return None
	}

	reply, err := r.client.Complete(ctx, r.selectionPrompt(text))
	if err != nil {
		r.logger.Warn("tool selection call failed", "error", err)
		return None
	}

	normalized := strings.ToLower(strings.TrimSpace(reply))
	for _, name := range r.registry.Names() {
		if strings.Contains(normalized, name) {
			r.logger.Info("tool resolved by model", "tool", name)
			return name
		}
	}
	return None
}

func (r *Router) selectionPrompt(text string) string {
	b := prompt.NewBuilder()
	b.AddFormat("The user said: %q\n\n", text)
	b.AddLine("Available tools:")
	for _, t := range r.registry.List() {
		b.AddFormat("%s: %s\n", t.Name(), t.Description())
	}
	b.AddLine("")
	b.AddLine("Should a tool be used to answer? If so, which one?")
	b.AddLine(`Reply with exactly one tool name, or "none" if no tool applies.`)
	return b.Build()
}

func containsAny(text string, terms []string) bool {
	for _, term := range terms {
		if strings.Contains(text, term) {
			return true
		}
	}
	return false
}
