// Package pgstore provides a PostgreSQL implementation of the clinic
// directory and appointment recorder.
package pgstore

import (
	"context"
	_ "embed"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/oklog/ulid/v2"

	"github.com/linnemanlabs/remedy/internal/clinic"
)

var tracer = otel.Tracer("github.com/linnemanlabs/remedy/internal/clinic/pgstore")

//go:embed schema.sql
var schema string

// Store persists the doctor directory and appointments in PostgreSQL.
type Store struct {
	pool *pgxpool.Pool
}

// New applies the schema on the given pool and returns a ready Store.
func New(ctx context.Context, pool *pgxpool.Pool) (*Store, error) {
	if _, err := pool.Exec(ctx, schema); err != nil {
		return nil, fmt.Errorf("apply schema: %w", err)
	}
	return &Store{pool: pool}, nil
}

// FindBySpeciality returns up to limit doctors matching any of the given
// categories, case-insensitive substring match, experience descending.
func (s *Store) FindBySpeciality(ctx context.Context, specialities []string, limit int) ([]clinic.Doctor, error) {
	ctx, span := tracer.Start(ctx, "pgstore.FindBySpeciality", trace.WithAttributes(
		attribute.String("db.system", "postgresql"),
		attribute.String("db.operation.name", "SELECT"),
	))
	defer span.End()

	patterns := make([]string, 0, len(specialities))
	for _, sp := range specialities {
		sp = strings.TrimSpace(sp)
		if sp != "" {
			patterns = append(patterns, "%"+sp+"%")
		}
	}
	if len(patterns) == 0 {
		return []clinic.Doctor{}, nil
	}

	// id stays internal; callers only ever see the public fields.
	query := `SELECT name, speciality, location, experience
		FROM doctors
		WHERE speciality ILIKE ANY($1)
		ORDER BY experience DESC, id
		LIMIT $2`

	rows, err := s.pool.Query(ctx, query, patterns, limit)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("query doctors: %w", err)
	}
	defer rows.Close()

	doctors := []clinic.Doctor{}
	for rows.Next() {
		var d clinic.Doctor
		if err := rows.Scan(&d.Name, &d.Speciality, &d.Location, &d.Experience); err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			return nil, fmt.Errorf("scan doctor: %w", err)
		}
		doctors = append(doctors, d)
	}
	if err := rows.Err(); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("iterate doctors: %w", err)
	}

	return doctors, nil
}

// Book inserts a new appointment record and returns it.
func (s *Store) Book(ctx context.Context, doctorName, symptoms string) (*clinic.Appointment, error) {
	ctx, span := tracer.Start(ctx, "pgstore.Book", trace.WithAttributes(
		attribute.String("db.system", "postgresql"),
		attribute.String("db.operation.name", "INSERT"),
	))
	defer span.End()

	appt := &clinic.Appointment{
		ID:         ulid.Make().String(),
		DoctorName: doctorName,
		Symptoms:   symptoms,
		Status:     clinic.StatusBooked,
		CreatedAt:  time.Now(),
	}

	_, err := s.pool.Exec(ctx,
		`INSERT INTO appointments (id, doctor_name, symptoms, status, created_at)
		 VALUES ($1, $2, $3, $4, $5)`,
		appt.ID, appt.DoctorName, appt.Symptoms, string(appt.Status), appt.CreatedAt,
	)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("insert appointment: %w", err)
	}

	return appt, nil
}

// InsertDoctor adds or refreshes a directory entry. Used for operator
// seeding; the triage flow never writes the directory.
func (s *Store) InsertDoctor(ctx context.Context, d clinic.Doctor) error {
	ctx, span := tracer.Start(ctx, "pgstore.InsertDoctor", trace.WithAttributes(
		attribute.String("db.system", "postgresql"),
		attribute.String("db.operation.name", "UPSERT"),
	))
	defer span.End()

	_, err := s.pool.Exec(ctx,
		`INSERT INTO doctors (name, speciality, location, experience)
		 VALUES ($1, $2, $3, $4)
		 ON CONFLICT (name, speciality) DO UPDATE SET
			location   = EXCLUDED.location,
			experience = EXCLUDED.experience`,
		d.Name, d.Speciality, d.Location, d.Experience,
	)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return fmt.Errorf("upsert doctor: %w", err)
	}
	return nil
}
