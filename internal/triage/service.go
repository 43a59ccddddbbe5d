package triage

import (
	"context"
	"time"

	"github.com/linnemanlabs/go-core/log"
	"github.com/linnemanlabs/remedy/internal/booking"
	"github.com/linnemanlabs/remedy/internal/clinic"
	"github.com/linnemanlabs/remedy/internal/tools"
)

// Notifier delivers a booking confirmation out of band. Implementations must
// treat delivery as best effort; a failed send never fails the turn.
type Notifier interface {
	Send(ctx context.Context, appt *clinic.Appointment, verdict *Verdict) error
}

// Service is the business boundary for triage turns. It owns the
// classify, map, lookup, and consent-gated booking sequence; transports
// stay out of the decision logic.
type Service struct {
	classifier *Classifier
	engine     *booking.Engine
	directory  clinic.Directory
	recorder   clinic.Appointments
	logger     log.Logger
	metrics    *Metrics
	notifier   Notifier
}

// NewService creates a new triage service. notifier may be nil.
func NewService(classifier *Classifier, engine *booking.Engine, directory clinic.Directory, recorder clinic.Appointments, logger log.Logger, metrics *Metrics, notifier Notifier) *Service {
	return &Service{
		classifier: classifier,
		engine:     engine,
		directory:  directory,
		recorder:   recorder,
		logger:     logger,
		metrics:    metrics,
		notifier:   notifier,
	}
}

// Triage runs one stateless chat turn. The only error return is
// classification failure; every downstream condition is an Outcome.
func (s *Service) Triage(ctx context.Context, turn ChatTurn) (*Outcome, error) {
	start := time.Now()

	out, err := s.triage(ctx, turn)
	if err != nil {
		s.metrics.ClassifyFailures.Inc()
		return nil, err
	}

	s.metrics.TriagesTotal.WithLabelValues(string(out.Kind)).Inc()
	s.metrics.TriageDuration.WithLabelValues(string(out.Kind)).Observe(time.Since(start).Seconds())
	return out, nil
}

func (s *Service) triage(ctx context.Context, turn ChatTurn) (*Outcome, error) {
	L := s.logger.With("component", "triage")

	classifyStart := time.Now()
	verdict, err := s.classifier.Classify(ctx, turn.Symptoms)
	if err != nil {
		L.Error(ctx, err, "classification failed")
		return nil, err
	}
	s.metrics.ClassifyDuration.Observe(time.Since(classifyStart).Seconds())

	specialist := MapSpecialist(verdict)
	L = L.With("severity", string(verdict.Severity), "specialist", specialist)
	L.Info(ctx, "classified", "consent", turn.Consent.String())

	out := &Outcome{
		Verdict:    *verdict,
		Specialist: specialist,
	}

	doctors, lookupErr := s.directory.FindBySpeciality(ctx, []string{specialist}, clinic.MaxDoctors)
	if lookupErr != nil {
		// degrade: the turn still resolves, the doctor list is just absent
		L.Error(ctx, lookupErr, "doctor lookup failed")
		out.LookupFailed = true
	} else {
		out.Doctors = doctors
	}

	if verdict.Severity != SeveritySevere {
		out.Kind = OutcomeResolved
		return out, nil
	}

	switch turn.Consent {
	case ConsentUnset:
		out.Kind = OutcomeAwaitingConsent
		out.Prompt = ConsentPrompt
		return out, nil

	case ConsentNo:
		L.Info(ctx, "booking declined")
		out.Kind = OutcomeDeclined
		return out, nil
	}

	// consent given. refuse to start the agent without candidates.
	if out.LookupFailed || len(out.Doctors) == 0 {
		L.Warn(ctx, "no doctors available for booking", "lookup_failed", out.LookupFailed)
		out.Kind = OutcomeBookingUnavailable
		s.metrics.BookingsTotal.WithLabelValues("unavailable").Inc()
		return out, nil
	}

	s.book(ctx, L, turn.Symptoms, out)
	return out, nil
}

// book runs the agent with a fresh per-turn registry so the single-use guard
// on the booking tool is scoped to this turn.
func (s *Service) book(ctx context.Context, L log.Logger, symptoms string, out *Outcome) {
	bookTool := tools.NewBookAppointment(s.recorder)

	registry := tools.NewRegistry()
	registry.Register(tools.NewFindDoctors(s.directory))
	registry.Register(bookTool)

	out.Agent = s.engine.Run(ctx, symptoms, out.Doctors, registry)

	// the booking tool, not the agent transcript, is the source of truth
	appt := bookTool.Booked()
	if appt == nil {
		L.Warn(ctx, "agent run ended without a booking", "agent_status", string(out.Agent.Status))
		out.Kind = OutcomeBookingFailed
		out.Reason = out.Agent.Analysis
		s.metrics.BookingsTotal.WithLabelValues("failed").Inc()
		return
	}

	out.Kind = OutcomeBooked
	out.Appointment = appt
	s.metrics.BookingsTotal.WithLabelValues("booked").Inc()
	L.Info(ctx, "appointment booked",
		"appointment_id", appt.ID,
		"doctor", appt.DoctorName,
		"tool_calls", out.Agent.ToolCalls,
	)

	if s.notifier != nil {
		verdict := out.Verdict
		go func(ctx context.Context) {
			if err := s.notifier.Send(ctx, appt, &verdict); err != nil {
				L.Warn(ctx, "booking notification failed", "error", err)
			}
		}(context.WithoutCancel(ctx))
	}
}
