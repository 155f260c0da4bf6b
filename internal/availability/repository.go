package availability

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/medflow/clinic-scheduling/internal/interval"
)

var ErrBlockNotFound = errors.New("availability block not found")

// Repository contains all DB interactions needed by the service.
type Repository interface {
	Create(ctx context.Context, b *Block) (*Block, error)
	GetByID(ctx context.Context, id uuid.UUID) (*Block, error)

	// Delete removes a block permanently. Deleting a recurring block drops
	// the whole series; single-occurrence exceptions are not supported.
	Delete(ctx context.Context, id uuid.UUID) error

	// ListCandidates returns blocks whose direct span or recurring series
	// could intersect the window: clinic-wide blocks always, plus the given
	// therapist's own blocks when therapistID is set. Recurrence expansion
	// is the service's job.
	ListCandidates(ctx context.Context, clinicID uuid.UUID, win interval.Interval, therapistID *uuid.UUID) ([]Block, error)
}
