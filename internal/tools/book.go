package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/linnemanlabs/remedy/internal/clinic"
)

// BookAppointment exposes the appointment recorder as a write capability.
// Each instance allows exactly one successful booking: the tool is built
// fresh per triage turn and refuses a second write regardless of what the
// reasoning loop asks for.
type BookAppointment struct {
	recorder clinic.Appointments

	mu     sync.Mutex
	booked *clinic.Appointment
}

// NewBookAppointment creates a single-use booking tool for one triage turn.
func NewBookAppointment(recorder clinic.Appointments) *BookAppointment {
	return &BookAppointment{recorder: recorder}
}

func (b *BookAppointment) Name() string { return "book_appointment" }

func (b *BookAppointment) Description() string {
	return `Book an appointment with a named doctor for the patient's symptoms.
Call this at most once, after choosing the best doctor from the candidate
list. Returns the stored appointment record including its confirmation ID.`
}

func (b *BookAppointment) Parameters() json.RawMessage {
	return json.RawMessage(`{
        "type": "object",
        "properties": {
            "doctor_name": {
                "type": "string",
                "description": "Exact name of the doctor to book, as listed in the directory"
            },
            "symptoms": {
                "type": "string",
                "description": "The patient's symptom description"
            }
        },
        "required": ["doctor_name", "symptoms"]
    }`)
}

func (b *BookAppointment) Execute(ctx context.Context, params json.RawMessage) (json.RawMessage, error) {
	var input struct {
		DoctorName string `json:"doctor_name"`
		Symptoms   string `json:"symptoms"`
	}
	if err := json.Unmarshal(params, &input); err != nil {
		return nil, fmt.Errorf("invalid params: %w", err)
	}

	if strings.TrimSpace(input.DoctorName) == "" {
		return nil, fmt.Errorf("doctor_name is required")
	}
	if strings.TrimSpace(input.Symptoms) == "" {
		return nil, fmt.Errorf("symptoms is required")
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if b.booked != nil {
		return nil, fmt.Errorf("an appointment was already booked for this request (with %s)", b.booked.DoctorName)
	}

	appt, err := b.recorder.Book(ctx, input.DoctorName, input.Symptoms)
	if err != nil {
		return nil, fmt.Errorf("booking failed: %w", err)
	}
	b.booked = appt

	return json.Marshal(appt)
}

// Booked returns the appointment created by this tool, or nil if the
// reasoning loop never invoked it successfully.
func (b *BookAppointment) Booked() *clinic.Appointment {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.booked
}
