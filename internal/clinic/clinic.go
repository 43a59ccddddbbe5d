// Package clinic defines the doctor directory and appointment domain models
// and the persistence interfaces backing them.
package clinic

import (
	"context"
	"time"
)

// MaxDoctors caps how many doctors a directory query returns.
const MaxDoctors = 3

// Doctor is a single entry in the doctor directory. Records are read-only to
// the triage flow; experience is the ranking key.
type Doctor struct {
	Name       string `json:"name"`
	Speciality string `json:"speciality"`
	Location   string `json:"location"`
	Experience int    `json:"experience"`
}

// AppointmentStatus tracks the outcome of a booking write.
type AppointmentStatus string

const (
	// StatusBooked means the appointment record was persisted.
	StatusBooked AppointmentStatus = "Booked"

	// StatusFailed means the booking write did not complete.
	StatusFailed AppointmentStatus = "Failed"
)

// Appointment is an insert-only booking record. The ID is assigned by the
// store and opaque to callers; records are never mutated after creation.
type Appointment struct {
	ID         string            `json:"id"`
	DoctorName string            `json:"doctor_name"`
	Symptoms   string            `json:"symptoms"`
	Status     AppointmentStatus `json:"status"`
	CreatedAt  time.Time         `json:"created_at"`
}

// Directory is the read interface over the doctor directory.
//
// FindBySpeciality matches any of the given categories case-insensitively
// (substring match on the speciality field), returns at most limit records
// ranked by experience descending with stable ties, and returns an empty
// slice - not an error - when nothing matches.
type Directory interface {
	FindBySpeciality(ctx context.Context, specialities []string, limit int) ([]Doctor, error)
}

// Appointments is the write interface for booking records. Book assigns the
// ID and CreatedAt and returns the stored record. Every call creates a new
// record; there is no dedup.
type Appointments interface {
	Book(ctx context.Context, doctorName, symptoms string) (*Appointment, error)
}
