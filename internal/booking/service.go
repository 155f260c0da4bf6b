package booking

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/medflow/clinic-scheduling/internal/availability"
	"github.com/medflow/clinic-scheduling/internal/config"
	"github.com/medflow/clinic-scheduling/internal/interval"
	"github.com/medflow/clinic-scheduling/internal/observability/metrics"
	redisclient "github.com/medflow/clinic-scheduling/internal/redis"
	"github.com/medflow/clinic-scheduling/pkg/logging"
)

const (
	EventBookingCreated     = "BOOKING_CREATED"
	EventBookingConfirmed   = "BOOKING_CONFIRMED"
	EventBookingRescheduled = "BOOKING_RESCHEDULED"
	EventBookingCancelled   = "BOOKING_CANCELLED"
	EventBookingExpired     = "BOOKING_EXPIRED"
)

// AvailabilityChecker is the slice of the availability service the scheduler
// needs: one overlap probe against the expanded block set.
type AvailabilityChecker interface {
	CheckConflict(ctx context.Context, clinicID uuid.UUID, ivl interval.Interval, therapistID *uuid.UUID) (*availability.Block, error)
}

// Proposal is a booking request. TherapistID nil means a room-only booking
// checked against the clinic-wide calendar; therapist load is then the
// caller's concern.
type Proposal struct {
	ClinicID    uuid.UUID
	PatientID   uuid.UUID
	TherapistID *uuid.UUID
	ServiceID   *uuid.UUID
	Span        interval.Interval
}

// ConfirmationResult is the outcome of redeeming a confirmation token.
type ConfirmationResult struct {
	Appointment      *Appointment
	AlreadyConfirmed bool
}

// Service orchestrates availability checks and the appointment store. It
// holds no booking state of its own: every call re-reads both stores so the
// latest committed bookings always decide.
type Service struct {
	repo    Repository
	avail   AvailabilityChecker
	locker  redisclient.Locker
	cfg     config.Config
	log     *logging.Logger
	metrics *metrics.SchedulingMetrics
}

func NewService(repo Repository, avail AvailabilityChecker, locker redisclient.Locker, cfg config.Config, log *logging.Logger, m *metrics.SchedulingMetrics) *Service {
	return &Service{
		repo:    repo,
		avail:   avail,
		locker:  locker,
		cfg:     cfg,
		log:     log.Named("scheduler"),
		metrics: m,
	}
}

// ProposeBooking checks the proposed span against availability blocks and
// existing appointments, then creates a pending appointment with a fresh
// confirmation token. A schedule-scope lock serializes concurrent proposals;
// the database exclusion constraint backstops anything that slips through.
func (s *Service) ProposeBooking(ctx context.Context, p Proposal) (*Appointment, error) {
	if err := p.Span.Validate(); err != nil {
		return nil, err
	}
	if p.ClinicID == uuid.Nil || p.PatientID == uuid.Nil {
		return nil, ErrMissingParticipant
	}

	var created *Appointment

	err := s.locker.WithScheduleLock(ctx, p.ClinicID, p.TherapistID, func(lockCtx context.Context) error {
		if err := s.checkConflicts(lockCtx, p.ClinicID, p.TherapistID, p.Span, uuid.Nil); err != nil {
			return err
		}

		token, err := NewConfirmationToken()
		if err != nil {
			return err
		}

		confirmBy := time.Now().UTC().Add(s.cfg.ConfirmationTTL)
		appt := &Appointment{
			ClinicID:          p.ClinicID,
			PatientID:         p.PatientID,
			TherapistID:       p.TherapistID,
			ServiceID:         p.ServiceID,
			Span:              p.Span,
			Status:            StatusPending,
			ConfirmationToken: token,
			ConfirmBy:         &confirmBy,
		}

		stored, err := s.repo.Create(lockCtx, appt)
		if err != nil {
			if errors.Is(err, ErrOverlapConstraint) {
				// A racing insert won; report it as the double-booking it is.
				return s.doubleBooked(lockCtx, p.ClinicID, p.TherapistID, p.Span, uuid.Nil)
			}
			return fmt.Errorf("create appointment: %w", err)
		}

		created = stored
		s.logEvent(lockCtx, stored.ID, EventBookingCreated, map[string]any{
			"clinic_id":  p.ClinicID.String(),
			"patient_id": p.PatientID.String(),
			"start":      stored.Span.Start,
			"end":        stored.Span.End,
		})
		return nil
	})

	if err != nil {
		if errors.Is(err, redisclient.ErrLockNotAcquired) {
			s.metrics.ObserveBooking("propose", "contended")
			return nil, ErrBookingContended
		}
		s.metrics.ObserveBooking("propose", outcomeLabel(err))
		return nil, err
	}

	s.metrics.ObserveBooking("propose", "created")
	s.log.Info("booking created",
		"appointment_id", created.ID,
		"clinic_id", created.ClinicID,
		"start", created.Span.Start,
	)
	return created, nil
}

// RescheduleBooking re-runs the conflict checks for the new span, excluding
// the appointment's own current row from the overlap scan, then rewrites the
// interval. On conflict the prior interval is untouched, which is what makes
// calendar drag-and-drop revert cleanly.
func (s *Service) RescheduleBooking(ctx context.Context, id uuid.UUID, newSpan interval.Interval) (*Appointment, error) {
	if err := newSpan.Validate(); err != nil {
		return nil, err
	}

	appt, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if appt.Status == StatusCancelled {
		return nil, fmt.Errorf("%w: cannot reschedule a cancelled appointment", ErrInvalidStatusTransition)
	}

	var updated *Appointment

	err = s.locker.WithScheduleLock(ctx, appt.ClinicID, appt.TherapistID, func(lockCtx context.Context) error {
		if err := s.checkConflicts(lockCtx, appt.ClinicID, appt.TherapistID, newSpan, appt.ID); err != nil {
			return err
		}

		moved, err := s.repo.UpdateSpan(lockCtx, appt.ID, newSpan)
		if err != nil {
			if errors.Is(err, ErrOverlapConstraint) {
				return s.doubleBooked(lockCtx, appt.ClinicID, appt.TherapistID, newSpan, appt.ID)
			}
			return fmt.Errorf("update appointment span: %w", err)
		}

		updated = moved
		s.logEvent(lockCtx, appt.ID, EventBookingRescheduled, map[string]any{
			"from_start": appt.Span.Start,
			"from_end":   appt.Span.End,
			"to_start":   newSpan.Start,
			"to_end":     newSpan.End,
		})
		return nil
	})

	if err != nil {
		if errors.Is(err, redisclient.ErrLockNotAcquired) {
			s.metrics.ObserveBooking("reschedule", "contended")
			return nil, ErrBookingContended
		}
		s.metrics.ObserveBooking("reschedule", outcomeLabel(err))
		return nil, err
	}

	s.metrics.ObserveBooking("reschedule", "rescheduled")
	return updated, nil
}

// checkConflicts runs the availability probe and the double-booking scan for
// a span, returning a ConflictError naming the offender on failure.
func (s *Service) checkConflicts(ctx context.Context, clinicID uuid.UUID, therapistID *uuid.UUID, span interval.Interval, excludeID uuid.UUID) error {
	block, err := s.avail.CheckConflict(ctx, clinicID, span, therapistID)
	if err != nil {
		return fmt.Errorf("availability check: %w", err)
	}
	if block != nil {
		return &ConflictError{Kind: ConflictAvailabilityBlocked, Block: block}
	}

	return s.scanOverlaps(ctx, clinicID, therapistID, span, excludeID)
}

func (s *Service) scanOverlaps(ctx context.Context, clinicID uuid.UUID, therapistID *uuid.UUID, span interval.Interval, excludeID uuid.UUID) error {
	existing, err := s.repo.FindOverlapping(ctx, clinicID, therapistID, span, excludeID)
	if err != nil {
		return fmt.Errorf("overlap scan: %w", err)
	}
	if len(existing) > 0 {
		return &ConflictError{Kind: ConflictDoubleBooked, Appointment: &existing[0]}
	}
	return nil
}

// doubleBooked builds the conflict error after the exclusion constraint
// fired, re-reading the store to name the winning appointment when possible.
func (s *Service) doubleBooked(ctx context.Context, clinicID uuid.UUID, therapistID *uuid.UUID, span interval.Interval, excludeID uuid.UUID) error {
	if err := s.scanOverlaps(ctx, clinicID, therapistID, span, excludeID); err != nil {
		return err
	}
	return &ConflictError{Kind: ConflictDoubleBooked}
}

// GetAppointment retrieves an appointment by ID.
func (s *Service) GetAppointment(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	return s.repo.GetByID(ctx, id)
}

// QueryAppointments returns appointments overlapping win, narrowed by
// filters.
func (s *Service) QueryAppointments(ctx context.Context, win interval.Interval, f Filters) ([]Appointment, error) {
	if err := win.Validate(); err != nil {
		return nil, err
	}
	appts, err := s.repo.List(ctx, win, f)
	if err != nil {
		return nil, fmt.Errorf("list appointments: %w", err)
	}
	return appts, nil
}

// SetStatus transitions an appointment, enforcing the transition table.
// Setting the status it already has is an idempotent no-op success.
func (s *Service) SetStatus(ctx context.Context, id uuid.UUID, to Status) (*Appointment, error) {
	appt, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if appt.Status == to {
		return appt, nil
	}
	if !validTransition(appt.Status, to) {
		return nil, fmt.Errorf("%w: %s -> %s", ErrInvalidStatusTransition, appt.Status, to)
	}

	updated, err := s.repo.UpdateStatus(ctx, id, appt.Status, to)
	if err != nil {
		if errors.Is(err, ErrAppointmentNotFound) {
			// CAS miss: a concurrent transition got there first. Re-read and
			// accept when it landed on the same status.
			current, getErr := s.repo.GetByID(ctx, id)
			if getErr != nil {
				return nil, getErr
			}
			if current.Status == to {
				return current, nil
			}
			return nil, fmt.Errorf("%w: %s -> %s", ErrInvalidStatusTransition, current.Status, to)
		}
		return nil, fmt.Errorf("update status: %w", err)
	}

	switch to {
	case StatusCancelled:
		s.logEvent(ctx, id, EventBookingCancelled, map[string]any{"from": string(appt.Status)})
	case StatusConfirmed:
		s.logEvent(ctx, id, EventBookingConfirmed, map[string]any{})
	}

	return updated, nil
}

// Cancel marks an appointment cancelled. The row stays; cancellation is a
// status transition, never a deletion.
func (s *Service) Cancel(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	return s.SetStatus(ctx, id, StatusCancelled)
}

// RedeemConfirmationToken moves the matching appointment from pending to
// confirmed. Redeeming an already-confirmed appointment reports
// AlreadyConfirmed without touching the row. Tokens are never reissued, so
// an unknown token is terminal.
func (s *Service) RedeemConfirmationToken(ctx context.Context, token string) (*ConfirmationResult, error) {
	appt, err := s.repo.FindByToken(ctx, token)
	if err != nil {
		if errors.Is(err, ErrTokenNotFound) {
			s.metrics.ObserveRedeem("not_found")
		}
		return nil, err
	}

	switch appt.Status {
	case StatusConfirmed:
		s.metrics.ObserveRedeem("already_confirmed")
		return &ConfirmationResult{Appointment: appt, AlreadyConfirmed: true}, nil
	case StatusCancelled:
		s.metrics.ObserveRedeem("cancelled")
		return nil, fmt.Errorf("%w: appointment is cancelled", ErrInvalidStatusTransition)
	}

	updated, err := s.repo.UpdateStatus(ctx, appt.ID, StatusPending, StatusConfirmed)
	if err != nil {
		if errors.Is(err, ErrAppointmentNotFound) {
			// Raced with another redeem of the same link.
			current, getErr := s.repo.GetByID(ctx, appt.ID)
			if getErr == nil && current.Status == StatusConfirmed {
				s.metrics.ObserveRedeem("already_confirmed")
				return &ConfirmationResult{Appointment: current, AlreadyConfirmed: true}, nil
			}
			return nil, fmt.Errorf("%w: appointment left pending state", ErrInvalidStatusTransition)
		}
		return nil, fmt.Errorf("confirm appointment: %w", err)
	}

	s.logEvent(ctx, updated.ID, EventBookingConfirmed, map[string]any{})
	s.metrics.ObserveRedeem("confirmed")
	return &ConfirmationResult{Appointment: updated}, nil
}

// ExpireUnconfirmed cancels pending appointments whose confirmation deadline
// passed. Intended to be called periodically by the expiry worker.
func (s *Service) ExpireUnconfirmed(ctx context.Context) error {
	now := time.Now().UTC()
	stale, err := s.repo.FindExpiredPending(ctx, now)
	if err != nil {
		return fmt.Errorf("find expired pending appointments: %w", err)
	}

	for _, appt := range stale {
		_, err := s.repo.UpdateStatus(ctx, appt.ID, StatusPending, StatusCancelled)
		if err != nil {
			// A CAS miss means the appointment was confirmed or cancelled
			// concurrently; it did not expire, so no event is recorded.
			if !errors.Is(err, ErrAppointmentNotFound) {
				s.log.Error("failed to expire appointment", "appointment_id", appt.ID, "error", err)
			}
			continue
		}
		s.logEvent(ctx, appt.ID, EventBookingExpired, map[string]any{
			"reason":     "unconfirmed",
			"confirm_by": appt.ConfirmBy,
		})
	}

	return nil
}

func (s *Service) logEvent(ctx context.Context, appointmentID uuid.UUID, eventType string, payload map[string]any) {
	data, err := json.Marshal(payload)
	if err != nil {
		s.log.Error("failed to marshal event payload", "event_type", eventType, "error", err)
		data = nil
	}

	apptID := appointmentID
	ev := EventLog{
		EventType:     eventType,
		AppointmentID: &apptID,
		Payload:       data,
		CreatedAt:     time.Now().UTC(),
	}

	if err := s.repo.InsertEvent(ctx, ev); err != nil {
		s.log.Error("failed to insert event log",
			"event_type", eventType,
			"appointment_id", appointmentID,
			"error", err,
		)
	}
}

func outcomeLabel(err error) string {
	var conflict *ConflictError
	if errors.As(err, &conflict) {
		return string(conflict.Kind)
	}
	if errors.Is(err, interval.ErrInvalid) || errors.Is(err, ErrMissingParticipant) {
		return "invalid"
	}
	return "error"
}
