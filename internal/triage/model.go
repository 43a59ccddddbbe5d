package triage

import (
	"github.com/linnemanlabs/remedy/internal/booking"
	"github.com/linnemanlabs/remedy/internal/clinic"
)

// Severity is the classified risk level of a patient's condition.
type Severity string

const (
	SeverityMild     Severity = "Mild"
	SeverityModerate Severity = "Moderate"
	SeveritySevere   Severity = "Severe"
)

// GeneralPhysician is the fallback specialist category for mild conditions.
const GeneralPhysician = "General Physician"

// Verdict is the structured output of the severity classifier. Immutable
// after creation; a verdict only exists if it passed schema validation.
type Verdict struct {
	Severity              Severity `json:"severity"`
	RiskReason            string   `json:"risk_reason"`
	RecommendedSpecialist string   `json:"recommended_specialist"`
}

// Consent is the caller-supplied answer to the booking question. Unset means
// the user has not been asked yet; it is distinct from an explicit no.
type Consent int

const (
	ConsentUnset Consent = iota
	ConsentYes
	ConsentNo
)

// ConsentFromBool maps the wire representation (nullable boolean) onto the
// three-valued type.
func ConsentFromBool(b *bool) Consent {
	switch {
	case b == nil:
		return ConsentUnset
	case *b:
		return ConsentYes
	default:
		return ConsentNo
	}
}

func (c Consent) String() string {
	switch c {
	case ConsentYes:
		return "yes"
	case ConsentNo:
		return "no"
	default:
		return "unset"
	}
}

// ChatTurn is one stateless request into the orchestrator. The caller is
// responsible for echoing consent on the follow-up turn; no session state is
// kept server-side.
type ChatTurn struct {
	Symptoms string
	Consent  Consent
}

// OutcomeKind names the terminal state a chat turn ended in.
type OutcomeKind string

const (
	// OutcomeResolved means the condition was not severe; no booking is possible.
	OutcomeResolved OutcomeKind = "resolved"

	// OutcomeAwaitingConsent means the condition is severe and the user has
	// not answered the booking question yet.
	OutcomeAwaitingConsent OutcomeKind = "awaiting_consent"

	// OutcomeDeclined means the user answered no to booking.
	OutcomeDeclined OutcomeKind = "declined"

	// OutcomeBooked means the agent persisted exactly one appointment.
	OutcomeBooked OutcomeKind = "booked"

	// OutcomeBookingFailed means the agent loop or the persistence write failed.
	OutcomeBookingFailed OutcomeKind = "booking_failed"

	// OutcomeBookingUnavailable means there were no candidate doctors to book.
	OutcomeBookingUnavailable OutcomeKind = "booking_unavailable"
)

// ConsentPrompt is the question rendered to the user on an awaiting-consent turn.
const ConsentPrompt = "Your condition seems severe. Do you want to book an appointment now?"

// Outcome is the single result object of one chat turn. Every failure mode
// past classification is data here, not an error.
type Outcome struct {
	Kind       OutcomeKind
	Verdict    Verdict
	Specialist string

	// Doctors is the ranked candidate list. Nil with LookupFailed set means
	// the directory was unavailable and the list must be omitted, not
	// fabricated.
	Doctors      []clinic.Doctor
	LookupFailed bool

	// Prompt is set on awaiting-consent outcomes.
	Prompt string

	// Appointment and Agent are set on booked outcomes; Agent is also set
	// when a failed run produced one.
	Appointment *clinic.Appointment
	Agent       *booking.Result

	// Reason carries human-readable detail for booking_failed.
	Reason string
}
