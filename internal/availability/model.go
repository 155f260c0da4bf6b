package availability

import (
	"time"

	"github.com/google/uuid"

	"github.com/medflow/clinic-scheduling/internal/interval"
	"github.com/medflow/clinic-scheduling/internal/recurrence"
)

// Block marks a span during which booking is disallowed. A nil TherapistID
// means the block applies clinic-wide, to every therapist and to room-only
// bookings. A therapist-specific block only constrains that therapist.
//
// For recurring blocks, Span is the anchor occurrence: its start anchors the
// series and its duration is the duration of every occurrence.
type Block struct {
	ID          uuid.UUID
	ClinicID    uuid.UUID
	TherapistID *uuid.UUID
	Span        interval.Interval
	Reason      string
	IsRecurring bool
	Recurrence  *recurrence.Rule
	CreatedBy   uuid.UUID
	CreatedAt   time.Time
}
