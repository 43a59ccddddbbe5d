package booking

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"testing"

	"go.opentelemetry.io/otel"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/linnemanlabs/go-core/log"
	"github.com/linnemanlabs/remedy/internal/clinic"
	"github.com/linnemanlabs/remedy/internal/llm"
	"github.com/linnemanlabs/remedy/internal/tools"
)

// mockProvider returns preconfigured responses in sequence.
type mockProvider struct {
	mu        sync.Mutex
	responses []*llm.Response
	errs      []error
	callIdx   int
}

const claudeTestModel = "claude-sonnet-4-20250514"

func (m *mockProvider) Send(_ context.Context, _ *llm.Request) (*llm.Response, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	idx := m.callIdx
	m.callIdx++

	if idx < len(m.errs) && m.errs[idx] != nil {
		return nil, m.errs[idx]
	}
	if idx < len(m.responses) {
		return m.responses[idx], nil
	}
	// fallback: end turn
	return &llm.Response{
		Content:    []llm.ContentBlock{{Type: "text", Text: "fallback"}},
		StopReason: llm.StopEnd,
		Usage:      llm.Usage{InputTokens: 10, OutputTokens: 5},
	}, nil
}

// mockTool returns preconfigured Execute results.
type mockTool struct {
	name   string
	output json.RawMessage
	err    error
	calls  int
}

func (m *mockTool) Name() string                { return m.name }
func (m *mockTool) Description() string         { return "mock tool" }
func (m *mockTool) Parameters() json.RawMessage { return json.RawMessage(`{"type":"object"}`) }
func (m *mockTool) Execute(_ context.Context, _ json.RawMessage) (json.RawMessage, error) {
	m.calls++
	return m.output, m.err
}

func testDoctors() []clinic.Doctor {
	return []clinic.Doctor{
		{Name: "Dr. Sarah Patel", Speciality: "Cardiologist", Location: "Heart Institute", Experience: 15},
		{Name: "Dr. Timothy White", Speciality: "Cardiologist", Location: "Riverside Medical Center", Experience: 7},
	}
}

func TestRun_SingleTurn(t *testing.T) {
	t.Parallel()

	registry := tools.NewRegistry()
	provider := &mockProvider{
		responses: []*llm.Response{{
			Content:    []llm.ContentBlock{{Type: "text", Text: "booked with Dr. Sarah Patel"}},
			StopReason: llm.StopEnd,
			Usage:      llm.Usage{InputTokens: 100, OutputTokens: 50},
			Model:      claudeTestModel,
		}},
	}
	engine := NewEngine(provider, log.Nop(), EngineHooks{})

	rr := engine.Run(context.Background(), "chest pain", testDoctors(), registry)

	if rr.Status != StatusComplete {
		t.Errorf("status = %q, want %q", rr.Status, StatusComplete)
	}
	if rr.Analysis != "booked with Dr. Sarah Patel" {
		t.Errorf("analysis = %q, want %q", rr.Analysis, "booked with Dr. Sarah Patel")
	}
	if rr.InputTokensUsed != 100 {
		t.Errorf("InputTokensUsed = %d, want 100", rr.InputTokensUsed)
	}
	if rr.OutputTokensUsed != 50 {
		t.Errorf("OutputTokensUsed = %d, want 50", rr.OutputTokensUsed)
	}
	if rr.Duration <= 0 {
		t.Error("expected positive duration")
	}
	if rr.Model != claudeTestModel {
		t.Errorf("model = %q, want %q", rr.Model, claudeTestModel)
	}
	if rr.ToolCalls != 0 {
		t.Errorf("tool_calls = %d, want 0", rr.ToolCalls)
	}
	if rr.LLMTime <= 0 {
		t.Error("expected positive LLMTime")
	}
}

func TestRun_ToolUseLoop(t *testing.T) {
	t.Parallel()

	tool := &mockTool{
		name:   "book_appointment",
		output: json.RawMessage(`{"appointment_id":"01X"}`),
	}
	registry := tools.NewRegistry()
	registry.Register(tool)

	provider := &mockProvider{
		responses: []*llm.Response{
			{
				Content: []llm.ContentBlock{
					{Type: "tool_use", ID: "call-1", Name: "book_appointment", Input: json.RawMessage(`{"doctor_name":"Dr. Sarah Patel"}`)},
				},
				StopReason: llm.StopToolUse,
				Usage:      llm.Usage{InputTokens: 100, OutputTokens: 50},
			},
			{
				Content:    []llm.ContentBlock{{Type: "text", Text: "appointment confirmed"}},
				StopReason: llm.StopEnd,
				Usage:      llm.Usage{InputTokens: 200, OutputTokens: 100},
			},
		},
	}
	engine := NewEngine(provider, log.Nop(), EngineHooks{})

	rr := engine.Run(context.Background(), "chest pain", testDoctors(), registry)

	if rr.Status != StatusComplete {
		t.Errorf("status = %q, want %q", rr.Status, StatusComplete)
	}
	if rr.Analysis != "appointment confirmed" {
		t.Errorf("analysis = %q, want %q", rr.Analysis, "appointment confirmed")
	}
	if rr.ToolCalls != 1 {
		t.Errorf("tool_calls = %d, want 1", rr.ToolCalls)
	}
	if tool.calls != 1 {
		t.Errorf("tool executions = %d, want 1", tool.calls)
	}
	if rr.InputTokensUsed != 300 {
		t.Errorf("InputTokensUsed = %d, want 300", rr.InputTokensUsed)
	}
	if rr.OutputTokensUsed != 150 {
		t.Errorf("OutputTokensUsed = %d, want 150", rr.OutputTokensUsed)
	}
	if rr.ToolTime < 0 {
		t.Error("expected non-negative ToolTime")
	}
}

func TestRun_UnknownTool(t *testing.T) {
	t.Parallel()

	registry := tools.NewRegistry() // empty registry

	provider := &mockProvider{
		responses: []*llm.Response{
			{
				Content: []llm.ContentBlock{
					{Type: "tool_use", ID: "call-1", Name: "nonexistent_tool", Input: json.RawMessage(`{}`)},
				},
				StopReason: llm.StopToolUse,
				Usage:      llm.Usage{InputTokens: 50, OutputTokens: 30},
			},
			{
				Content:    []llm.ContentBlock{{Type: "text", Text: "recovered from unknown tool"}},
				StopReason: llm.StopEnd,
				Usage:      llm.Usage{InputTokens: 100, OutputTokens: 60},
			},
		},
	}
	engine := NewEngine(provider, log.Nop(), EngineHooks{})

	rr := engine.Run(context.Background(), "chest pain", testDoctors(), registry)

	if rr.Status != StatusComplete {
		t.Errorf("status = %q, want %q", rr.Status, StatusComplete)
	}
	if rr.Analysis != "recovered from unknown tool" {
		t.Errorf("analysis = %q, want %q", rr.Analysis, "recovered from unknown tool")
	}
	if rr.ToolCalls != 1 {
		t.Errorf("tool_calls = %d, want 1", rr.ToolCalls)
	}
}

func TestRun_ToolExecutionError(t *testing.T) {
	t.Parallel()

	registry := tools.NewRegistry()
	registry.Register(&mockTool{
		name: "failing_tool",
		err:  errors.New("connection refused"),
	})

	provider := &mockProvider{
		responses: []*llm.Response{
			{
				Content: []llm.ContentBlock{
					{Type: "tool_use", ID: "call-1", Name: "failing_tool", Input: json.RawMessage(`{}`)},
				},
				StopReason: llm.StopToolUse,
				Usage:      llm.Usage{InputTokens: 50, OutputTokens: 30},
			},
			{
				Content:    []llm.ContentBlock{{Type: "text", Text: "tool failed, explaining to user"}},
				StopReason: llm.StopEnd,
				Usage:      llm.Usage{InputTokens: 100, OutputTokens: 60},
			},
		},
	}
	engine := NewEngine(provider, log.Nop(), EngineHooks{})

	rr := engine.Run(context.Background(), "chest pain", testDoctors(), registry)

	if rr.Status != StatusComplete {
		t.Errorf("status = %q, want %q", rr.Status, StatusComplete)
	}
	if rr.ToolCalls != 1 {
		t.Errorf("tool_calls = %d, want 1", rr.ToolCalls)
	}
}

func TestRun_LLMError(t *testing.T) {
	t.Parallel()

	registry := tools.NewRegistry()
	provider := &mockProvider{
		errs: []error{errors.New("api key expired")},
	}
	engine := NewEngine(provider, log.Nop(), EngineHooks{})

	rr := engine.Run(context.Background(), "chest pain", testDoctors(), registry)

	if rr.Status != StatusFailed {
		t.Errorf("status = %q, want %q", rr.Status, StatusFailed)
	}
	if !strings.Contains(rr.Analysis, "api key expired") {
		t.Errorf("analysis = %q, want it to contain the error", rr.Analysis)
	}
}

func TestRun_MaxToolRoundsLimit(t *testing.T) {
	t.Parallel()

	registry := tools.NewRegistry()
	registry.Register(&mockTool{
		name:   "loop_tool",
		output: json.RawMessage(`"ok"`),
	})

	// Build MaxToolRounds responses, each triggering one tool call
	responses := make([]*llm.Response, MaxToolRounds)
	for i := range MaxToolRounds {
		responses[i] = &llm.Response{
			Content: []llm.ContentBlock{
				{Type: "tool_use", ID: "call-" + strings.Repeat("x", i+1), Name: "loop_tool", Input: json.RawMessage(`{}`)},
			},
			StopReason: llm.StopToolUse,
			Usage:      llm.Usage{InputTokens: 10, OutputTokens: 5},
		}
	}

	provider := &mockProvider{responses: responses}
	engine := NewEngine(provider, log.Nop(), EngineHooks{})

	rr := engine.Run(context.Background(), "chest pain", testDoctors(), registry)

	if rr.ToolCalls != MaxToolRounds {
		t.Errorf("tool_calls = %d, want %d", rr.ToolCalls, MaxToolRounds)
	}
	if !strings.Contains(rr.Analysis, "tool call budget") {
		t.Errorf("analysis = %q, want budget exhaustion marker", rr.Analysis)
	}
}

func TestRun_TokenBudgetLimit(t *testing.T) {
	t.Parallel()

	registry := tools.NewRegistry()
	registry.Register(&mockTool{
		name:   "loop_tool",
		output: json.RawMessage(`"ok"`),
	})

	provider := &mockProvider{
		responses: []*llm.Response{{
			Content: []llm.ContentBlock{
				{Type: "tool_use", ID: "call-1", Name: "loop_tool", Input: json.RawMessage(`{}`)},
			},
			StopReason: llm.StopToolUse,
			Usage:      llm.Usage{InputTokens: MaxTokens, OutputTokens: 1},
		}},
	}
	engine := NewEngine(provider, log.Nop(), EngineHooks{})

	rr := engine.Run(context.Background(), "chest pain", testDoctors(), registry)

	if !strings.Contains(rr.Analysis, "token budget") {
		t.Errorf("analysis = %q, want token budget marker", rr.Analysis)
	}
}

func TestRun_CanceledContext(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	registry := tools.NewRegistry()
	engine := NewEngine(&mockProvider{}, log.Nop(), EngineHooks{})

	rr := engine.Run(ctx, "chest pain", testDoctors(), registry)

	if rr.Status != StatusFailed {
		t.Errorf("status = %q, want %q", rr.Status, StatusFailed)
	}
}

func TestRun_Hooks(t *testing.T) {
	t.Parallel()

	registry := tools.NewRegistry()
	registry.Register(&mockTool{
		name:   "book_appointment",
		output: json.RawMessage(`"ok"`),
	})

	var (
		mu        sync.Mutex
		llmCalls  int
		toolCalls []string
		completed *CompleteEvent
	)
	hooks := EngineHooks{
		OnLLMCall: func(_, _ int, _ float64) {
			mu.Lock()
			llmCalls++
			mu.Unlock()
		},
		OnToolCall: func(name string, _ float64, isError bool) {
			mu.Lock()
			toolCalls = append(toolCalls, name)
			mu.Unlock()
			if isError {
				t.Errorf("unexpected tool error for %s", name)
			}
		},
		OnComplete: func(e *CompleteEvent) {
			mu.Lock()
			completed = e
			mu.Unlock()
		},
	}

	provider := &mockProvider{
		responses: []*llm.Response{
			{
				Content: []llm.ContentBlock{
					{Type: "tool_use", ID: "call-1", Name: "book_appointment", Input: json.RawMessage(`{}`)},
				},
				StopReason: llm.StopToolUse,
				Usage:      llm.Usage{InputTokens: 100, OutputTokens: 50},
			},
			{
				Content:    []llm.ContentBlock{{Type: "text", Text: "done"}},
				StopReason: llm.StopEnd,
				Usage:      llm.Usage{InputTokens: 200, OutputTokens: 100},
				Model:      claudeTestModel,
			},
		},
	}
	engine := NewEngine(provider, log.Nop(), hooks)

	engine.Run(context.Background(), "chest pain", testDoctors(), registry)

	mu.Lock()
	defer mu.Unlock()
	if llmCalls != 2 {
		t.Errorf("OnLLMCall count = %d, want 2", llmCalls)
	}
	if len(toolCalls) != 1 || toolCalls[0] != "book_appointment" {
		t.Errorf("OnToolCall names = %v, want [book_appointment]", toolCalls)
	}
	if completed == nil {
		t.Fatal("OnComplete not called")
	}
	if completed.Status != StatusComplete {
		t.Errorf("complete status = %q, want %q", completed.Status, StatusComplete)
	}
	if completed.TokensIn != 300 {
		t.Errorf("complete TokensIn = %d, want 300", completed.TokensIn)
	}
}

func TestRun_Spans(t *testing.T) {
	exporter := tracetest.NewInMemoryExporter()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSyncer(exporter))
	prev := otel.GetTracerProvider()
	otel.SetTracerProvider(tp)
	t.Cleanup(func() { otel.SetTracerProvider(prev) })

	registry := tools.NewRegistry()
	registry.Register(&mockTool{
		name:   "book_appointment",
		output: json.RawMessage(`"ok"`),
	})

	provider := &mockProvider{
		responses: []*llm.Response{
			{
				Content: []llm.ContentBlock{
					{Type: "tool_use", ID: "call-1", Name: "book_appointment", Input: json.RawMessage(`{}`)},
				},
				StopReason: llm.StopToolUse,
				Usage:      llm.Usage{InputTokens: 10, OutputTokens: 5},
			},
			{
				Content:    []llm.ContentBlock{{Type: "text", Text: "done"}},
				StopReason: llm.StopEnd,
				Usage:      llm.Usage{InputTokens: 10, OutputTokens: 5},
			},
		},
	}
	engine := NewEngine(provider, log.Nop(), EngineHooks{})

	engine.Run(context.Background(), "chest pain", testDoctors(), registry)

	spans := exporter.GetSpans()
	var llmSpans, toolSpans int
	for _, s := range spans {
		switch s.Name {
		case "llm.call":
			llmSpans++
		case "tool.execute":
			toolSpans++
		}
	}
	if llmSpans != 2 {
		t.Errorf("llm.call spans = %d, want 2", llmSpans)
	}
	if toolSpans != 1 {
		t.Errorf("tool.execute spans = %d, want 1", toolSpans)
	}
}

func TestBuildInitialPrompt(t *testing.T) {
	t.Parallel()

	p := buildInitialPrompt("chest pain", testDoctors())

	if !strings.Contains(p, "chest pain") {
		t.Error("prompt missing symptoms")
	}
	if !strings.Contains(p, "Dr. Sarah Patel") {
		t.Error("prompt missing doctor name")
	}
	if !strings.Contains(p, "Book an appointment with the best suitable doctor.") {
		t.Error("prompt missing instruction")
	}
}
