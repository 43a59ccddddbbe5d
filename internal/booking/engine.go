// Package booking runs the bounded reasoning loop that selects a doctor and
// performs the single booking side effect of a triage turn.
package booking

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/linnemanlabs/go-core/log"
	"github.com/linnemanlabs/remedy/internal/clinic"
	"github.com/linnemanlabs/remedy/internal/llm"
	"github.com/linnemanlabs/remedy/internal/tools"
)

const (
	// MaxToolRounds bounds the reasoning loop; the agent has two tools and a
	// short candidate list, so a handful of rounds is plenty.
	MaxToolRounds = 8

	// MaxTokens caps total token spend per run.
	MaxTokens = 20000

	// ResponseTokens caps a single reply.
	ResponseTokens = 1024
)

var tracer = otel.Tracer("github.com/linnemanlabs/remedy/internal/booking")

// Status is the terminal state of an agent run.
type Status string

const (
	StatusComplete Status = "complete"
	StatusFailed   Status = "failed"
)

// Result is the outcome of one agent run. Whether a booking actually
// happened is owned by the booking tool, not the loop; callers must check
// the tool, not the status.
type Result struct {
	Status           Status    `json:"status"`
	Analysis         string    `json:"analysis,omitempty"`
	ToolCalls        int       `json:"tool_calls"`
	InputTokensUsed  int       `json:"input_tokens,omitempty"`
	OutputTokensUsed int       `json:"output_tokens,omitempty"`
	Duration         float64   `json:"duration_seconds,omitempty"`
	LLMTime          float64   `json:"-"`
	ToolTime         float64   `json:"-"`
	Model            string    `json:"model,omitempty"`
	CompletedAt      time.Time `json:"-"`
}

// CompleteEvent summarizes a finished run for the OnComplete hook.
type CompleteEvent struct {
	Status    Status
	Model     string
	Duration  float64
	LLMTime   float64
	ToolTime  float64
	TokensIn  int
	TokensOut int
	ToolCalls int
}

// EngineHooks receives engine events; used to wire Prometheus metrics
// without the engine depending on a registry.
type EngineHooks struct {
	OnLLMCall  func(inputTokens, outputTokens int, duration float64)
	OnToolCall func(name string, duration float64, isError bool)
	OnComplete func(e *CompleteEvent)
}

// Engine drives the booking agent loop against an LLM provider. It holds no
// per-request state; the tool registry is supplied per run.
type Engine struct {
	provider llm.Provider
	logger   log.Logger
	hooks    EngineHooks
}

// NewEngine creates a new booking engine with the given dependencies.
func NewEngine(provider llm.Provider, logger log.Logger, hooks EngineHooks) *Engine {
	return &Engine{
		provider: provider,
		logger:   logger,
		hooks:    hooks,
	}
}

// Run executes the agent loop for one triage turn. The registry carries the
// per-request tools, including the single-use booking tool.
func (e *Engine) Run(ctx context.Context, symptoms string, doctors []clinic.Doctor, registry *tools.Registry) *Result {
	start := time.Now()
	result := &Result{Status: StatusComplete}

	L := e.logger.With("component", "booking_agent")

	messages := []llm.Message{
		{Role: "user", Content: []llm.ContentBlock{
			{Type: "text", Text: buildInitialPrompt(symptoms, doctors)},
		}},
	}

	var totalTokens int
	seq := 0

	for {
		if ctx.Err() != nil {
			L.Warn(ctx, "booking run canceled", "reason", ctx.Err())
			result.Status = StatusFailed
			result.Analysis = fmt.Sprintf("canceled: %v", ctx.Err())
			break
		}
		if result.ToolCalls >= MaxToolRounds {
			L.Warn(ctx, "booking agent hit tool call limit", "limit", MaxToolRounds)
			result.Analysis = "Booking run terminated: tool call budget exhausted"
			break
		}
		if totalTokens >= MaxTokens {
			L.Warn(ctx, "booking agent hit token limit", "limit", MaxTokens)
			result.Analysis = "Booking run terminated: token budget exhausted"
			break
		}

		// call LLM provider with current conversation
		llmStart := time.Now()
		lctx, span := tracer.Start(ctx, "llm.call", trace.WithAttributes(
			attribute.String("gen_ai.operation.name", "llm.call"),
			attribute.Int("remedy.chat.seq", seq),
		))
		resp, err := e.provider.Send(lctx, &llm.Request{
			MaxTokens: ResponseTokens,
			System:    systemPrompt,
			Messages:  messages,
			Tools:     registry.ToToolDefs(),
		})
		llmDur := time.Since(llmStart).Seconds()
		result.LLMTime += llmDur
		if err != nil {
			span.RecordError(err)
			span.End()
			L.Error(ctx, err, "llm call failed")
			result.Status = StatusFailed
			result.Analysis = fmt.Sprintf("LLM error: %v", err)
			break
		}
		span.SetAttributes(attribute.String("gen_ai.response.model", resp.Model))
		span.End()
		seq++

		totalTokens += resp.Usage.InputTokens + resp.Usage.OutputTokens
		result.InputTokensUsed += resp.Usage.InputTokens
		result.OutputTokensUsed += resp.Usage.OutputTokens
		result.Model = resp.Model

		if e.hooks.OnLLMCall != nil {
			e.hooks.OnLLMCall(resp.Usage.InputTokens, resp.Usage.OutputTokens, llmDur)
		}

		L.Info(ctx, "llm response",
			"stop_reason", resp.StopReason,
			"input_tokens", resp.Usage.InputTokens,
			"output_tokens", resp.Usage.OutputTokens,
			"total_tokens", totalTokens,
		)

		// append assistant response
		messages = append(messages, llm.Message{
			Role:    "assistant",
			Content: resp.Content,
		})

		// done - extract final summary
		if resp.StopReason == llm.StopEnd {
			for _, block := range resp.Content {
				if block.Type == "text" {
					result.Analysis = block.Text
				}
			}
			break
		}

		if resp.StopReason != llm.StopToolUse {
			// anything else (max_tokens etc) ends the run
			L.Warn(ctx, "unexpected stop reason", "stop_reason", resp.StopReason)
			break
		}

		// handle tool calls
		var toolResults []llm.ContentBlock
		for _, block := range resp.Content {
			if block.Type != "tool_use" {
				continue
			}

			result.ToolCalls++
			toolResults = append(toolResults, e.executeTool(ctx, L, registry, &block, result))
		}

		// append tool results to conversation for next LLM turn
		messages = append(messages, llm.Message{
			Role:    "user",
			Content: toolResults,
		})
	}

	result.CompletedAt = time.Now()
	result.Duration = time.Since(start).Seconds()

	if e.hooks.OnComplete != nil {
		e.hooks.OnComplete(&CompleteEvent{
			Status:    result.Status,
			Model:     result.Model,
			Duration:  result.Duration,
			LLMTime:   result.LLMTime,
			ToolTime:  result.ToolTime,
			TokensIn:  result.InputTokensUsed,
			TokensOut: result.OutputTokensUsed,
			ToolCalls: result.ToolCalls,
		})
	}

	L.Info(ctx, "booking run finished",
		"status", result.Status,
		"duration", result.Duration,
		"tokens", totalTokens,
		"tool_calls", result.ToolCalls,
	)

	return result
}

func (e *Engine) executeTool(ctx context.Context, L log.Logger, registry *tools.Registry, block *llm.ContentBlock, result *Result) llm.ContentBlock {
	tctx, span := tracer.Start(ctx, "tool.execute", trace.WithAttributes(
		attribute.String("gen_ai.operation.name", "tool.execute"),
		attribute.String("gen_ai.tool.name", block.Name),
	))
	defer span.End()

	L.Info(ctx, "executing tool", "tool", block.Name, "call_number", result.ToolCalls)

	tool, ok := registry.Get(block.Name)
	if !ok {
		span.SetAttributes(attribute.Bool("remedy.tool.is_error", true))
		if e.hooks.OnToolCall != nil {
			e.hooks.OnToolCall(block.Name, 0, true)
		}
		return llm.ContentBlock{
			Type:      "tool_result",
			ToolUseID: block.ID,
			Content:   fmt.Sprintf("unknown tool: %s", block.Name),
			IsError:   true,
		}
	}

	toolStart := time.Now()
	output, err := tool.Execute(tctx, block.Input)
	toolDur := time.Since(toolStart).Seconds()
	result.ToolTime += toolDur

	if e.hooks.OnToolCall != nil {
		e.hooks.OnToolCall(block.Name, toolDur, err != nil)
	}

	if err != nil {
		span.RecordError(err)
		span.SetAttributes(attribute.Bool("remedy.tool.is_error", true))
		L.Error(ctx, err, "tool execution failed", "tool", block.Name)
		return llm.ContentBlock{
			Type:      "tool_result",
			ToolUseID: block.ID,
			Content:   fmt.Sprintf("tool error: %v", err),
			IsError:   true,
		}
	}

	span.SetAttributes(attribute.Bool("remedy.tool.is_error", false))
	return llm.ContentBlock{
		Type:      "tool_result",
		ToolUseID: block.ID,
		Content:   string(output),
	}
}

const systemPrompt = `You are a healthcare assistant that books doctor appointments.

You are given the patient's symptoms and a short list of candidate doctors.
Use the find_doctors tool if you need to widen the search, then choose the
single most suitable doctor and call book_appointment exactly once. After
booking, reply with a one-sentence confirmation naming the doctor.`

// buildInitialPrompt constructs the user message carrying the symptoms and
// the candidate doctor list.
func buildInitialPrompt(symptoms string, doctors []clinic.Doctor) string {
	list, _ := json.MarshalIndent(doctors, "", "  ")
	return fmt.Sprintf(`Patient symptoms: %s

Available doctors:
%s

Book an appointment with the best suitable doctor.`, symptoms, string(list))
}
