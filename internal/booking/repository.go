package booking

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/medflow/clinic-scheduling/internal/interval"
)

// Filters narrows appointment listings. Nil fields match everything.
type Filters struct {
	ClinicID    *uuid.UUID
	TherapistID *uuid.UUID
	Status      *Status
}

// Repository contains all DB interactions needed by the service.
type Repository interface {
	Create(ctx context.Context, a *Appointment) (*Appointment, error)
	GetByID(ctx context.Context, id uuid.UUID) (*Appointment, error)
	FindByToken(ctx context.Context, token string) (*Appointment, error)

	// FindOverlapping returns non-cancelled appointments on the same
	// booking scope (therapist, or clinic-wide when therapistID is nil)
	// whose span overlaps ivl. excludeID skips an appointment's own row
	// during reschedules; pass uuid.Nil to scan everything.
	FindOverlapping(ctx context.Context, clinicID uuid.UUID, therapistID *uuid.UUID, ivl interval.Interval, excludeID uuid.UUID) ([]Appointment, error)

	// List returns appointments overlapping win, narrowed by filters.
	List(ctx context.Context, win interval.Interval, f Filters) ([]Appointment, error)

	// UpdateSpan rewrites the appointment's interval and nothing else.
	// Conflict checks happen before this call.
	UpdateSpan(ctx context.Context, id uuid.UUID, ivl interval.Interval) (*Appointment, error)

	// UpdateStatus performs a compare-and-swap transition; it returns
	// ErrAppointmentNotFound when the row is gone or no longer in `from`.
	UpdateStatus(ctx context.Context, id uuid.UUID, from, to Status) (*Appointment, error)

	// FindExpiredPending returns pending appointments whose confirmation
	// deadline passed before now.
	FindExpiredPending(ctx context.Context, now time.Time) ([]Appointment, error)

	InsertEvent(ctx context.Context, ev EventLog) error
}
