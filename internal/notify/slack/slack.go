// Package slack sends booking confirmations to Slack via incoming webhooks.
package slack

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/linnemanlabs/remedy/internal/clinic"
	"github.com/linnemanlabs/remedy/internal/triage"
)

const (
	maxSymptomsLen = 500
	httpTimeout    = 10 * time.Second
)

// Notifier sends booking confirmations to a Slack webhook.
type Notifier struct {
	webhookURL string
	client     *http.Client
}

// New creates a new Slack notifier. If webhookURL is empty, Send is a no-op.
func New(webhookURL string) *Notifier {
	return &Notifier{
		webhookURL: webhookURL,
		client:     &http.Client{Timeout: httpTimeout},
	}
}

// Send posts a booking confirmation to the configured Slack webhook.
// If no webhook URL is configured, it returns nil immediately.
func (n *Notifier) Send(ctx context.Context, appt *clinic.Appointment, verdict *triage.Verdict) error {
	if n.webhookURL == "" {
		return nil
	}

	msg := buildMessage(appt, verdict)

	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("slack: marshal message: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.webhookURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("slack: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.client.Do(req) //nolint:gosec // G704: webhookURL is from trusted config, not user input
	if err != nil {
		return fmt.Errorf("slack: post webhook: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("slack: webhook returned %d: %s", resp.StatusCode, string(respBody))
	}
	return nil
}

func buildMessage(appt *clinic.Appointment, verdict *triage.Verdict) map[string]any {
	return map[string]any{
		"blocks": []map[string]any{
			headerBlock(appt),
			{"type": "divider"},
			fieldsBlock(appt, verdict),
			{"type": "divider"},
			contextBlock(appt),
		},
	}
}

func headerBlock(appt *clinic.Appointment) map[string]any {
	return map[string]any{
		"type": "header",
		"text": map[string]any{
			"type": "plain_text",
			"text": fmt.Sprintf("\U0001f4c5 Appointment Booked: %s", appt.DoctorName),
		},
	}
}

func fieldsBlock(appt *clinic.Appointment, verdict *triage.Verdict) map[string]any {
	fields := []map[string]any{
		{
			"type": "mrkdwn",
			"text": fmt.Sprintf("*Doctor:* %s", appt.DoctorName),
		},
		{
			"type": "mrkdwn",
			"text": fmt.Sprintf("*Severity:* %s", verdict.Severity),
		},
		{
			"type": "mrkdwn",
			"text": fmt.Sprintf("*Specialist:* %s", verdict.RecommendedSpecialist),
		},
		{
			"type": "mrkdwn",
			"text": fmt.Sprintf("*Symptoms:* %s", truncate(appt.Symptoms, maxSymptomsLen)),
		},
	}

	return map[string]any{
		"type":   "section",
		"fields": fields,
	}
}

func contextBlock(appt *clinic.Appointment) map[string]any {
	elements := []map[string]any{
		{
			"type": "mrkdwn",
			"text": fmt.Sprintf("remedy • appointment %s • %s", appt.ID, appt.CreatedAt.UTC().Format("2006-01-02 15:04 UTC")),
		},
	}

	return map[string]any{
		"type":     "context",
		"elements": elements,
	}
}

func truncate(s string, limit int) string {
	if len(s) <= limit {
		return s
	}
	return s[:limit-3] + "..."
}
