package availability

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/google/uuid"

	"github.com/medflow/clinic-scheduling/internal/interval"
	"github.com/medflow/clinic-scheduling/internal/recurrence"
	"github.com/medflow/clinic-scheduling/pkg/logging"
)

var ErrRecurrenceMismatch = errors.New("is_recurring flag and recurrence rule must agree")

type Service struct {
	repo Repository
	log  *logging.Logger
}

func NewService(repo Repository, log *logging.Logger) *Service {
	return &Service{
		repo: repo,
		log:  log.Named("availability"),
	}
}

// CreateBlock validates and persists a block. Recurring blocks must carry a
// well-formed rule; non-recurring blocks must not carry one.
func (s *Service) CreateBlock(ctx context.Context, b Block) (*Block, error) {
	if err := b.Span.Validate(); err != nil {
		return nil, err
	}
	if b.IsRecurring != (b.Recurrence != nil) {
		return nil, ErrRecurrenceMismatch
	}
	if b.Recurrence != nil {
		if err := b.Recurrence.Validate(); err != nil {
			return nil, err
		}
	}

	b.Span.Start = b.Span.Start.UTC()
	b.Span.End = b.Span.End.UTC()

	stored, err := s.repo.Create(ctx, &b)
	if err != nil {
		return nil, fmt.Errorf("create availability block: %w", err)
	}

	s.log.Info("availability block created",
		"block_id", stored.ID,
		"clinic_id", stored.ClinicID,
		"recurring", stored.IsRecurring,
	)

	return stored, nil
}

// DeleteBlock removes a block permanently. For recurring blocks the whole
// series goes; there is no per-occurrence exception.
func (s *Service) DeleteBlock(ctx context.Context, id uuid.UUID) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	s.log.Info("availability block deleted", "block_id", id)
	return nil
}

// QueryWindows returns every concrete blocked interval intersecting the
// window: direct blocks as-is, recurring blocks expanded occurrence by
// occurrence. Clinic-wide blocks always apply; the therapist's own blocks
// are added when therapistID is set.
func (s *Service) QueryWindows(ctx context.Context, clinicID uuid.UUID, win interval.Interval, therapistID *uuid.UUID) ([]interval.Interval, error) {
	if err := win.Validate(); err != nil {
		return nil, err
	}

	blocks, err := s.repo.ListCandidates(ctx, clinicID, win, therapistID)
	if err != nil {
		return nil, fmt.Errorf("list availability blocks: %w", err)
	}

	var out []interval.Interval
	for i := range blocks {
		occs, err := occurrencesWithin(&blocks[i], win)
		if err != nil {
			return nil, err
		}
		out = append(out, occs...)
	}

	sort.Slice(out, func(i, j int) bool { return out[i].Start.Before(out[j].Start) })
	return out, nil
}

// CheckConflict reports the first block whose concrete occurrences overlap
// the proposed interval, or nil when the span is clear. Which conflicting
// block is returned is unspecified; existence alone decides the rejection.
func (s *Service) CheckConflict(ctx context.Context, clinicID uuid.UUID, ivl interval.Interval, therapistID *uuid.UUID) (*Block, error) {
	if err := ivl.Validate(); err != nil {
		return nil, err
	}

	blocks, err := s.repo.ListCandidates(ctx, clinicID, ivl, therapistID)
	if err != nil {
		return nil, fmt.Errorf("list availability blocks: %w", err)
	}

	for i := range blocks {
		occs, err := occurrencesWithin(&blocks[i], ivl)
		if err != nil {
			return nil, err
		}
		for _, occ := range occs {
			if occ.Overlaps(ivl) {
				return &blocks[i], nil
			}
		}
	}

	return nil, nil
}

func occurrencesWithin(b *Block, win interval.Interval) ([]interval.Interval, error) {
	if !b.IsRecurring || b.Recurrence == nil {
		if b.Span.Overlaps(win) {
			return []interval.Interval{b.Span}, nil
		}
		return nil, nil
	}

	occs, err := recurrence.Expand(*b.Recurrence, b.Span.Start, b.Span.Duration(), win)
	if err != nil {
		return nil, fmt.Errorf("expand block %s: %w", b.ID, err)
	}
	return occs, nil
}
