// Package memstore provides an in-memory implementation of the clinic
// directory and appointment recorder. Suitable for dev/testing.
package memstore

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/linnemanlabs/remedy/internal/clinic"
)

// Store holds doctors and appointments in memory.
type Store struct {
	mu           sync.RWMutex
	doctors      []clinic.Doctor
	appointments map[string]*clinic.Appointment // appointment ID -> record
}

// New initializes a new in-memory Store seeded with the given doctors.
func New(doctors ...clinic.Doctor) *Store {
	return &Store{
		doctors:      append([]clinic.Doctor(nil), doctors...),
		appointments: make(map[string]*clinic.Appointment),
	}
}

// FindBySpeciality returns up to limit doctors whose speciality contains any
// of the given categories, case-insensitively, ranked by experience
// descending. Ties keep directory order.
func (s *Store) FindBySpeciality(_ context.Context, specialities []string, limit int) ([]clinic.Doctor, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	matched := make([]clinic.Doctor, 0, limit)
	for _, d := range s.doctors {
		if matchesAny(d.Speciality, specialities) {
			matched = append(matched, d)
		}
	}

	sort.SliceStable(matched, func(i, j int) bool {
		return matched[i].Experience > matched[j].Experience
	})

	if limit > 0 && len(matched) > limit {
		matched = matched[:limit]
	}
	return matched, nil
}

// Book stores a new appointment record and returns a copy with its assigned ID.
func (s *Store) Book(_ context.Context, doctorName, symptoms string) (*clinic.Appointment, error) {
	appt := &clinic.Appointment{
		ID:         ulid.Make().String(),
		DoctorName: doctorName,
		Symptoms:   symptoms,
		Status:     clinic.StatusBooked,
		CreatedAt:  time.Now(),
	}

	s.mu.Lock()
	s.appointments[appt.ID] = appt
	s.mu.Unlock()

	cp := *appt
	return &cp, nil
}

// Appointments returns a snapshot of all stored appointment records.
func (s *Store) Appointments() []clinic.Appointment {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]clinic.Appointment, 0, len(s.appointments))
	for _, a := range s.appointments {
		out = append(out, *a)
	}
	return out
}

func matchesAny(speciality string, wanted []string) bool {
	have := strings.ToLower(speciality)
	for _, w := range wanted {
		w = strings.ToLower(strings.TrimSpace(w))
		if w == "" {
			continue
		}
		if strings.Contains(have, w) {
			return true
		}
	}
	return false
}
