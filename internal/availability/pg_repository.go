package availability

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/medflow/clinic-scheduling/internal/db"
	"github.com/medflow/clinic-scheduling/internal/interval"
	"github.com/medflow/clinic-scheduling/internal/recurrence"
)

type PgRepository struct {
	pool db.Querier
}

func NewPgRepository(pool db.Querier) *PgRepository {
	return &PgRepository{pool: pool}
}

const blockColumns = `
	id, clinic_id, therapist_id, start_time, end_time, reason, is_recurring,
	recurrence_frequency, recurrence_interval, recurrence_days_of_week,
	recurrence_end_date, created_by, created_at`

func scanBlock(row pgx.Row) (*Block, error) {
	var b Block
	var therapistID *uuid.UUID
	var freq *string
	var ruleInterval *int32
	var days []int32
	var endDate *time.Time

	err := row.Scan(
		&b.ID,
		&b.ClinicID,
		&therapistID,
		&b.Span.Start,
		&b.Span.End,
		&b.Reason,
		&b.IsRecurring,
		&freq,
		&ruleInterval,
		&days,
		&endDate,
		&b.CreatedBy,
		&b.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrBlockNotFound
		}
		return nil, err
	}

	b.TherapistID = therapistID
	b.Span.Start = b.Span.Start.UTC()
	b.Span.End = b.Span.End.UTC()

	if freq != nil && ruleInterval != nil {
		rule := recurrence.Rule{
			Frequency: recurrence.Frequency(*freq),
			Interval:  int(*ruleInterval),
			EndDate:   endDate,
		}
		for _, d := range days {
			rule.DaysOfWeek = append(rule.DaysOfWeek, time.Weekday(d))
		}
		b.Recurrence = &rule
	}

	return &b, nil
}

func recurrenceColumns(b *Block) (freq *string, ruleInterval *int32, days []int32, endDate *time.Time) {
	if b.Recurrence == nil {
		return nil, nil, nil, nil
	}
	f := string(b.Recurrence.Frequency)
	n := int32(b.Recurrence.Interval)
	for _, d := range b.Recurrence.DaysOfWeek {
		days = append(days, int32(d))
	}
	return &f, &n, days, b.Recurrence.EndDate
}

func (r *PgRepository) Create(ctx context.Context, b *Block) (*Block, error) {
	id := b.ID
	if id == uuid.Nil {
		id = uuid.New()
	}

	freq, ruleInterval, days, endDate := recurrenceColumns(b)

	row := r.pool.QueryRow(ctx, `
		INSERT INTO availability_blocks (
			id, clinic_id, therapist_id, start_time, end_time, reason, is_recurring,
			recurrence_frequency, recurrence_interval, recurrence_days_of_week,
			recurrence_end_date, created_by, created_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, now())
		RETURNING`+blockColumns,
		id, b.ClinicID, b.TherapistID, b.Span.Start, b.Span.End, b.Reason,
		b.IsRecurring, freq, ruleInterval, days, endDate, b.CreatedBy)

	return scanBlock(row)
}

func (r *PgRepository) GetByID(ctx context.Context, id uuid.UUID) (*Block, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT`+blockColumns+`
		FROM availability_blocks
		WHERE id = $1
	`, id)
	return scanBlock(row)
}

func (r *PgRepository) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `
		DELETE FROM availability_blocks
		WHERE id = $1
	`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrBlockNotFound
	}
	return nil
}

func (r *PgRepository) ListCandidates(ctx context.Context, clinicID uuid.UUID, win interval.Interval, therapistID *uuid.UUID) ([]Block, error) {
	// Direct blocks must intersect the window. Recurring blocks qualify when
	// their series starts before the window ends and the last possible
	// occurrence (starting at the end date) could still reach into the
	// window; occurrence-level filtering happens after expansion.
	rows, err := r.pool.Query(ctx, `
		SELECT`+blockColumns+`
		FROM availability_blocks
		WHERE clinic_id = $1
		  AND (therapist_id IS NULL OR therapist_id = $2)
		  AND (
			(NOT is_recurring AND start_time < $4 AND end_time > $3)
			OR (is_recurring AND start_time < $4
				AND (recurrence_end_date IS NULL
					OR recurrence_end_date + (end_time - start_time) > $3))
		  )
		ORDER BY start_time
	`, clinicID, therapistID, win.Start, win.End)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []Block
	for rows.Next() {
		b, err := scanBlock(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *b)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return result, nil
}
