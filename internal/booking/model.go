package booking

import (
	"time"

	"github.com/google/uuid"

	"github.com/medflow/clinic-scheduling/internal/interval"
)

type Status string

const (
	StatusPending   Status = "pending"
	StatusConfirmed Status = "confirmed"
	StatusCancelled Status = "cancelled"
)

// Appointment is a booked span on a clinic's calendar. A nil TherapistID
// means a room-only booking on the clinic-wide calendar. The confirmation
// token is set once at creation and never regenerated.
type Appointment struct {
	ID                uuid.UUID
	ClinicID          uuid.UUID
	PatientID         uuid.UUID
	TherapistID       *uuid.UUID
	ServiceID         *uuid.UUID
	Span              interval.Interval
	Status            Status
	ConfirmationToken string
	ConfirmBy         *time.Time
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// validTransition reports whether from -> to is an allowed status change.
// pending and confirmed may be revisited in either direction; cancelled is
// terminal. Same-state transitions are allowed and treated as no-ops.
func validTransition(from, to Status) bool {
	if from == to {
		return true
	}
	switch from {
	case StatusPending:
		return to == StatusConfirmed || to == StatusCancelled
	case StatusConfirmed:
		return to == StatusPending || to == StatusCancelled
	default:
		return false
	}
}

type EventLog struct {
	ID            int64
	EventType     string
	AppointmentID *uuid.UUID
	Payload       []byte
	CreatedAt     time.Time
}
