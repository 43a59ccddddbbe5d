package chatapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/linnemanlabs/remedy/internal/triage"
)

// chatRequest is one conversational turn. Book is tri-state: nil means the
// user has not been asked about booking yet.
type chatRequest struct {
	Symptoms string `json:"symptoms"`
	Book     *bool  `json:"book"`
}

func (a *API) handleChat(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, `{"error":"invalid payload"}`, http.StatusBadRequest)
		return
	}
	if strings.TrimSpace(req.Symptoms) == "" {
		http.Error(w, `{"error":"symptoms required"}`, http.StatusBadRequest)
		return
	}

	turn := triage.ChatTurn{
		Symptoms: req.Symptoms,
		Consent:  triage.ConsentFromBool(req.Book),
	}

	span := trace.SpanFromContext(ctx)
	span.SetAttributes(attribute.String("remedy.chat.consent", turn.Consent.String()))

	out, err := a.svc.Triage(ctx, turn)
	if err != nil {
		var cerr *triage.ClassificationError
		if errors.As(err, &cerr) {
			a.logger.Warn(ctx, "classification rejected", "reason", cerr.Reason)
			writeJSON(w, http.StatusUnprocessableEntity, map[string]any{
				"error": cerr.Error(),
			})
			return
		}
		a.logger.Error(ctx, err, "triage turn failed")
		http.Error(w, `{"error":"internal error"}`, http.StatusInternalServerError)
		return
	}

	span.SetAttributes(attribute.String("remedy.chat.outcome", string(out.Kind)))

	writeJSON(w, http.StatusOK, buildChatResponse(out))
}

// buildChatResponse flattens an outcome into the wire shape. Fields are
// additive per outcome kind; resolved and declined turns carry only the
// base verdict fields.
func buildChatResponse(out *triage.Outcome) map[string]any {
	resp := map[string]any{
		"severity": map[string]any{
			"severity":               string(out.Verdict.Severity),
			"risk_reason":            out.Verdict.RiskReason,
			"recommended_specialist": out.Verdict.RecommendedSpecialist,
		},
		"recommended_specialists": []string{out.Specialist},
	}

	// a failed lookup omits the list rather than reporting an empty one
	if !out.LookupFailed {
		resp["recommended_doctors"] = out.Doctors
	}

	switch out.Kind {
	case triage.OutcomeAwaitingConsent:
		resp["next_step"] = out.Prompt
		resp["expected_input"] = map[string]any{"book": []string{"Yes", "No"}}

	case triage.OutcomeBooked:
		resp["booking_status"] = "Appointment booked"
		resp["agent_action"] = out.Agent.Analysis
		resp["appointment"] = out.Appointment

	case triage.OutcomeBookingFailed:
		resp["booking_status"] = "Booking failed"
		resp["agent_action"] = out.Reason

	case triage.OutcomeBookingUnavailable:
		resp["booking_status"] = "No doctors available"
	}

	return resp
}

func writeJSON(w http.ResponseWriter, status int, body map[string]any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
