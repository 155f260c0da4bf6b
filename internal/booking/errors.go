package booking

import (
	"errors"
	"fmt"

	"github.com/medflow/clinic-scheduling/internal/availability"
)

var (
	ErrAppointmentNotFound     = errors.New("appointment not found")
	ErrTokenNotFound           = errors.New("confirmation token not found")
	ErrMissingParticipant      = errors.New("clinic_id and patient_id are required")
	ErrInvalidStatusTransition = errors.New("invalid status transition")
	ErrBookingContended        = errors.New("schedule is currently being booked, please retry")

	// ErrOverlapConstraint is the storage layer's exclusion constraint
	// firing; the service translates it into a double-booked conflict.
	ErrOverlapConstraint = errors.New("overlapping appointment rejected by storage")
)

type ConflictKind string

const (
	ConflictAvailabilityBlocked ConflictKind = "availability_blocked"
	ConflictDoubleBooked        ConflictKind = "double_booked"
)

// ConflictError reports why a proposed booking cannot be honored, carrying
// the offending block or appointment so the caller can name the conflict
// instead of rendering a generic failure.
type ConflictError struct {
	Kind        ConflictKind
	Block       *availability.Block
	Appointment *Appointment
}

func (e *ConflictError) Error() string {
	switch e.Kind {
	case ConflictAvailabilityBlocked:
		if e.Block != nil {
			return fmt.Sprintf("interval overlaps availability block %s", e.Block.ID)
		}
		return "interval overlaps an availability block"
	case ConflictDoubleBooked:
		if e.Appointment != nil {
			return fmt.Sprintf("interval overlaps appointment %s", e.Appointment.ID)
		}
		return "interval overlaps an existing appointment"
	default:
		return "booking conflict"
	}
}
