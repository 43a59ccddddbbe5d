package triage

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/linnemanlabs/go-core/log"
	"github.com/linnemanlabs/remedy/internal/llm"
)

// classifyResponseTokens bounds the classifier reply; the verdict is a small
// JSON object.
const classifyResponseTokens = 1024

// ClassificationError means the reasoning backend did not produce a valid
// severity verdict: the call failed, the payload was not JSON, or the JSON
// failed schema validation. Terminal for the turn, never retried, and never
// coerced to a default severity.
type ClassificationError struct {
	Reason string
	Err    error
}

func (e *ClassificationError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("classification failed: %s: %v", e.Reason, e.Err)
	}
	return fmt.Sprintf("classification failed: %s", e.Reason)
}

func (e *ClassificationError) Unwrap() error { return e.Err }

// Classifier turns free-text symptoms into a validated severity verdict via
// a single LLM call. The backend is treated as untrusted text generation.
type Classifier struct {
	provider llm.Provider
	logger   log.Logger
}

// NewClassifier creates a severity classifier on the given provider.
func NewClassifier(provider llm.Provider, logger log.Logger) *Classifier {
	return &Classifier{
		provider: provider,
		logger:   logger,
	}
}

// Classify sends the triage instruction plus the raw symptom text to the
// backend and parses the response. One call per invocation, no retries.
func (c *Classifier) Classify(ctx context.Context, symptoms string) (*Verdict, error) {
	resp, err := c.provider.Send(ctx, &llm.Request{
		MaxTokens: classifyResponseTokens,
		System:    classifySystemPrompt,
		Messages: []llm.Message{
			{Role: "user", Content: []llm.ContentBlock{
				{Type: "text", Text: buildClassifyPrompt(symptoms)},
			}},
		},
	})
	if err != nil {
		return nil, &ClassificationError{Reason: "llm call failed", Err: err}
	}

	c.logger.Info(ctx, "classifier response",
		"stop_reason", resp.StopReason,
		"input_tokens", resp.Usage.InputTokens,
		"output_tokens", resp.Usage.OutputTokens,
	)

	var text string
	for _, block := range resp.Content {
		if block.Type == "text" {
			text = block.Text
		}
	}
	if strings.TrimSpace(text) == "" {
		return nil, &ClassificationError{Reason: "empty response"}
	}

	return parseVerdict(text)
}

// parseVerdict strictly validates the backend payload against the verdict
// schema. Models like to wrap JSON in markdown fences; that is the only
// leniency granted.
func parseVerdict(text string) (*Verdict, error) {
	payload := stripFences(text)

	var v Verdict
	if err := json.Unmarshal([]byte(payload), &v); err != nil {
		return nil, &ClassificationError{Reason: "payload is not valid verdict JSON", Err: err}
	}

	switch v.Severity {
	case SeverityMild, SeverityModerate, SeveritySevere:
	default:
		return nil, &ClassificationError{Reason: fmt.Sprintf("invalid severity %q", v.Severity)}
	}
	if strings.TrimSpace(v.RiskReason) == "" {
		return nil, &ClassificationError{Reason: "missing risk_reason"}
	}
	if strings.TrimSpace(v.RecommendedSpecialist) == "" {
		return nil, &ClassificationError{Reason: "missing recommended_specialist"}
	}

	return &v, nil
}

// stripFences removes a surrounding markdown code fence, if present.
func stripFences(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}

const classifySystemPrompt = `You are a medical triage assistant.

Classify the patient's condition severity strictly as Mild, Moderate, or Severe.

Respond ONLY in valid JSON, with no surrounding prose:

{
  "severity": "Mild | Moderate | Severe",
  "risk_reason": "short explanation",
  "recommended_specialist": "specialist name"
}`

// buildClassifyPrompt constructs the user message carrying the raw symptom text.
func buildClassifyPrompt(symptoms string) string {
	return fmt.Sprintf("Symptoms:\n%s", symptoms)
}
