package orchestrator

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"go.opentelemetry.io/otel"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/sweetpotato0/convoroute/completion"
	"github.com/sweetpotato0/convoroute/contrib/tools/companyranking"
	"github.com/sweetpotato0/convoroute/contrib/tools/datetimetool"
	"github.com/sweetpotato0/convoroute/router"
	"github.com/sweetpotato0/convoroute/synthesis"
	"github.com/sweetpotato0/convoroute/tool"
)

// echoClient replies with a marker plus the prompt so tests can assert on
// what the synthesizer was given.
func echoClient() completion.Client {
	return completion.Func(func(ctx context.Context, prompt string) (string, error) {
		return "reply for: " + prompt, nil
	})
}

func newTestEngine(t *testing.T, client completion.Client) *Engine {
	t.Helper()
	registry := tool.NewRegistry()
	if err := registry.Register(datetimetool.New()); err != nil {
		t.Fatalf("Failed to register datetime tool: %v", err)
	}
	if err := registry.Register(companyranking.New()); err != nil {
		t.Fatalf("Failed to register company ranking tool: %v", err)
	}
	return New(
		registry,
		router.New(registry, client),
		synthesis.New(client),
	)
}

func TestProcessSingleToolTurn(t *testing.T) {
	engine := newTestEngine(t, echoClient())
	ctx := context.Background()

	reply := engine.Process(ctx, "user-1", "what holidays are coming up?")
	if reply == synthesis.FallbackReply {
		t.Fatal("Expected a synthesized reply, got the fallback")
	}
	if !strings.Contains(reply, "HOLIDAY") {
		t.Errorf("Expected holiday tool output in the synthesis prompt, got %q", reply)
	}

	sess, ok := engine.Sessions().Get("user-1")
	if !ok {
		t.Fatal("Expected session to exist after the turn")
	}
	if sess.SelectedTool() != router.ToolDateTime {
		t.Errorf("Expected datetime selected, got %q", sess.SelectedTool())
	}
	results := sess.LastToolResults()
	if res, ok := results[router.ToolDateTime]; !ok || !res.OK {
		t.Errorf("Expected OK datetime result stored on the session, got %+v", results)
	}
}

func TestProcessRankingTurn(t *testing.T) {
	engine := newTestEngine(t, echoClient())

	reply := engine.Process(context.Background(), "user-1", "show me the ranking by market value")
	if !strings.Contains(reply, "MARKET VALUE") {
		t.Errorf("Expected market value ranking in the prompt, got %q", reply)
	}
}

func TestProcessPlainTurnSkipsTools(t *testing.T) {
	// "none" from the model means no tool; the turn goes straight to
	// synthesis.
	client := completion.Func(func(ctx context.Context, prompt string) (string, error) {
		if strings.Contains(prompt, "Reply with exactly one tool name") {
			return "none", nil
		}
		return "just chatting", nil
	})
	engine := newTestEngine(t, client)

	reply := engine.Process(context.Background(), "user-1", "tell me a joke")
	if reply != "just chatting" {
		t.Errorf("Expected plain synthesized reply, got %q", reply)
	}

	sess, _ := engine.Sessions().Get("user-1")
	if len(sess.LastToolResults()) != 0 {
		t.Error("Expected no tool results on a tool-less turn")
	}
}

func TestProcessMultiRequestTurn(t *testing.T) {
	engine := newTestEngine(t, echoClient())

	reply := engine.Process(context.Background(), "user-1",
		"I want to know about investment and also about holidays")
	if !strings.Contains(reply, "ranking by investment") {
		t.Errorf("Expected investment result section, got %q", reply)
	}
	if !strings.Contains(reply, "upcoming holidays") {
		t.Errorf("Expected holidays result section, got %q", reply)
	}
	if !strings.Contains(reply, "several things at once") {
		t.Error("Expected the combined-reply instruction for a multi-request turn")
	}

	// Ranking sections come before temporal ones, in extraction order.
	investmentAt := strings.Index(reply, "Tool result: ranking by investment")
	holidaysAt := strings.Index(reply, "Tool result: upcoming holidays")
	if investmentAt < 0 || holidaysAt < 0 || investmentAt > holidaysAt {
		t.Errorf("Expected investment section before holidays section (investment at %d, holidays at %d)",
			investmentAt, holidaysAt)
	}

	sess, _ := engine.Sessions().Get("user-1")
	results := sess.LastToolResults()
	if len(results) != 2 {
		t.Fatalf("Expected 2 stored results, got %d", len(results))
	}
	if res := results["ranking by investment"]; !res.OK || !strings.Contains(res.Output, "INVESTMENT") {
		t.Errorf("Unexpected investment result: %+v", res)
	}
	if res := results["upcoming holidays"]; !res.OK || !strings.Contains(res.Output, "HOLIDAY") {
		t.Errorf("Unexpected holidays result: %+v", res)
	}
}

func TestProcessMissingToolStillReplies(t *testing.T) {
	// The pre-check selects datetime by keyword even when no such tool is
	// registered. The failed execution must reach synthesis as an apology
	// section rather than aborting the turn.
	registry := tool.NewRegistry()
	if err := registry.Register(companyranking.New()); err != nil {
		t.Fatalf("Failed to register company ranking tool: %v", err)
	}
	client := echoClient()
	engine := New(registry, router.New(registry, client), synthesis.New(client))

	reply := engine.Process(context.Background(), "user-1", "what time is it?")
	if reply == "" || reply == synthesis.FallbackReply {
		t.Fatalf("Expected a synthesized reply despite the missing tool, got %q", reply)
	}
	if !strings.Contains(reply, "not found") {
		t.Errorf("Expected the missing-tool detail in the prompt, got %q", reply)
	}
	if !strings.Contains(reply, "Apologize") {
		t.Errorf("Expected the apology instruction in the prompt, got %q", reply)
	}

	sess, ok := engine.Sessions().Get("user-1")
	if !ok {
		t.Fatal("Expected session to exist after the turn")
	}
	if sess.HistoryLen() != 2 {
		t.Errorf("Expected 2 history messages, got %d", sess.HistoryLen())
	}
	if res := sess.LastToolResults()[router.ToolDateTime]; res.OK {
		t.Errorf("Expected failed result stored on the session, got %+v", res)
	}
}

func TestProcessSynthesisFailureDegrades(t *testing.T) {
	client := completion.Func(func(ctx context.Context, prompt string) (string, error) {
		return "", fmt.Errorf("service down")
	})
	engine := newTestEngine(t, client)

	reply := engine.Process(context.Background(), "user-1", "what time is it?")
	if reply != synthesis.FallbackReply {
		t.Errorf("Expected fallback reply, got %q", reply)
	}

	// The degraded turn is still recorded.
	sess, _ := engine.Sessions().Get("user-1")
	if sess.HistoryLen() != 2 {
		t.Errorf("Expected 2 history messages, got %d", sess.HistoryLen())
	}
}

func TestProcessRejectsBlankInput(t *testing.T) {
	engine := newTestEngine(t, echoClient())

	reply := engine.Process(context.Background(), "user-1", "   ")
	if reply != synthesis.FallbackReply {
		t.Errorf("Expected fallback for blank input, got %q", reply)
	}
	if _, ok := engine.Sessions().Get("user-1"); ok {
		t.Error("Expected no session for a rejected turn")
	}
}

func TestProcessHistoryGrowsPerTurn(t *testing.T) {
	engine := newTestEngine(t, echoClient())
	ctx := context.Background()

	engine.Process(ctx, "user-1", "what time is it?")
	engine.Process(ctx, "user-1", "and what holidays are coming up?")

	sess, _ := engine.Sessions().Get("user-1")
	if sess.HistoryLen() != 4 {
		t.Errorf("Expected 4 history messages after 2 turns, got %d", sess.HistoryLen())
	}
}

// spanAttrs flattens a recorded span's attributes for assertion.
func spanAttrs(span sdktrace.ReadOnlySpan) map[string]string {
	attrs := make(map[string]string)
	for _, kv := range span.Attributes() {
		attrs[string(kv.Key)] = kv.Value.Emit()
	}
	return attrs
}

func TestProcessSpanCarriesPathAndTools(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	prev := otel.GetTracerProvider()
	otel.SetTracerProvider(tp)
	defer otel.SetTracerProvider(prev)

	engine := newTestEngine(t, echoClient())
	ctx := context.Background()

	engine.Process(ctx, "user-1", "what time is it?")
	engine.Process(ctx, "user-1", "I want to know about investment and also about holidays")

	spans := recorder.Ended()
	if len(spans) != 2 {
		t.Fatalf("Expected 2 turn spans, got %d", len(spans))
	}

	single := spanAttrs(spans[0])
	if single["turn.path"] != "single" {
		t.Errorf("Expected single path on the first span, got %q", single["turn.path"])
	}
	if single["turn.tool"] != router.ToolDateTime {
		t.Errorf("Expected resolved tool %q on the first span, got %q",
			router.ToolDateTime, single["turn.tool"])
	}

	multi := spanAttrs(spans[1])
	if multi["turn.path"] != "multi" {
		t.Errorf("Expected multi path on the second span, got %q", multi["turn.path"])
	}
	if multi["turn.requests"] != "2" {
		t.Errorf("Expected 2 sub-requests on the second span, got %q", multi["turn.requests"])
	}
	if !strings.Contains(multi["turn.tools"], router.ToolCompanyRanking) ||
		!strings.Contains(multi["turn.tools"], router.ToolDateTime) {
		t.Errorf("Expected both forced tools on the second span, got %q", multi["turn.tools"])
	}
}

func TestProcessSessionsAreIndependent(t *testing.T) {
	engine := newTestEngine(t, echoClient())
	ctx := context.Background()

	engine.Process(ctx, "user-1", "what time is it?")
	engine.Process(ctx, "user-2", "show me the company ranking")

	first, _ := engine.Sessions().Get("user-1")
	second, _ := engine.Sessions().Get("user-2")
	if first.HistoryLen() != 2 || second.HistoryLen() != 2 {
		t.Errorf("Expected independent histories, got %d and %d",
			first.HistoryLen(), second.HistoryLen())
	}
	if first.SelectedTool() == second.SelectedTool() {
		t.Error("Expected different tool selections across sessions")
	}
}
