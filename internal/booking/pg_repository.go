package booking

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/medflow/clinic-scheduling/internal/db"
	"github.com/medflow/clinic-scheduling/internal/interval"
)

// pgExclusionViolation is SQLSTATE 23P01, raised by the btree_gist EXCLUDE
// constraint when a non-cancelled appointment would overlap an existing one.
const pgExclusionViolation = "23P01"

type PgRepository struct {
	pool db.Querier
}

func NewPgRepository(pool db.Querier) *PgRepository {
	return &PgRepository{pool: pool}
}

const appointmentColumns = `
	id, clinic_id, patient_id, therapist_id, service_id, start_time, end_time,
	status, confirmation_token, confirm_by, created_at, updated_at`

func scanAppointment(row pgx.Row) (*Appointment, error) {
	var a Appointment
	var therapistID, serviceID *uuid.UUID
	var confirmBy *time.Time

	err := row.Scan(
		&a.ID,
		&a.ClinicID,
		&a.PatientID,
		&therapistID,
		&serviceID,
		&a.Span.Start,
		&a.Span.End,
		&a.Status,
		&a.ConfirmationToken,
		&confirmBy,
		&a.CreatedAt,
		&a.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrAppointmentNotFound
		}
		return nil, err
	}

	a.TherapistID = therapistID
	a.ServiceID = serviceID
	a.ConfirmBy = confirmBy
	a.Span.Start = a.Span.Start.UTC()
	a.Span.End = a.Span.End.UTC()
	return &a, nil
}

func mapOverlapErr(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == pgExclusionViolation {
		return fmt.Errorf("%w: %s", ErrOverlapConstraint, pgErr.ConstraintName)
	}
	return err
}

func (r *PgRepository) Create(ctx context.Context, a *Appointment) (*Appointment, error) {
	id := a.ID
	if id == uuid.Nil {
		id = uuid.New()
	}

	row := r.pool.QueryRow(ctx, `
		INSERT INTO appointments (
			id, clinic_id, patient_id, therapist_id, service_id, start_time,
			end_time, status, confirmation_token, confirm_by, created_at, updated_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, now(), now())
		RETURNING`+appointmentColumns,
		id, a.ClinicID, a.PatientID, a.TherapistID, a.ServiceID,
		a.Span.Start, a.Span.End, a.Status, a.ConfirmationToken, a.ConfirmBy)

	stored, err := scanAppointment(row)
	if err != nil {
		return nil, mapOverlapErr(err)
	}
	return stored, nil
}

func (r *PgRepository) GetByID(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT`+appointmentColumns+`
		FROM appointments
		WHERE id = $1
	`, id)
	return scanAppointment(row)
}

func (r *PgRepository) FindByToken(ctx context.Context, token string) (*Appointment, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT`+appointmentColumns+`
		FROM appointments
		WHERE confirmation_token = $1
	`, token)

	a, err := scanAppointment(row)
	if err != nil {
		if errors.Is(err, ErrAppointmentNotFound) {
			return nil, ErrTokenNotFound
		}
		return nil, err
	}
	return a, nil
}

func (r *PgRepository) FindOverlapping(ctx context.Context, clinicID uuid.UUID, therapistID *uuid.UUID, ivl interval.Interval, excludeID uuid.UUID) ([]Appointment, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT`+appointmentColumns+`
		FROM appointments
		WHERE clinic_id = $1
		  AND ((therapist_id IS NULL AND $2::uuid IS NULL) OR therapist_id = $2)
		  AND status <> 'cancelled'
		  AND start_time < $4 AND end_time > $3
		  AND id <> $5
		ORDER BY start_time
	`, clinicID, therapistID, ivl.Start, ivl.End, excludeID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return collectAppointments(rows)
}

func (r *PgRepository) List(ctx context.Context, win interval.Interval, f Filters) ([]Appointment, error) {
	var statusArg *string
	if f.Status != nil {
		s := string(*f.Status)
		statusArg = &s
	}

	rows, err := r.pool.Query(ctx, `
		SELECT`+appointmentColumns+`
		FROM appointments
		WHERE start_time < $2 AND end_time > $1
		  AND ($3::uuid IS NULL OR clinic_id = $3)
		  AND ($4::uuid IS NULL OR therapist_id = $4)
		  AND ($5::text IS NULL OR status = $5)
		ORDER BY start_time
	`, win.Start, win.End, f.ClinicID, f.TherapistID, statusArg)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return collectAppointments(rows)
}

func (r *PgRepository) UpdateSpan(ctx context.Context, id uuid.UUID, ivl interval.Interval) (*Appointment, error) {
	row := r.pool.QueryRow(ctx, `
		UPDATE appointments
		SET start_time = $2,
		    end_time = $3,
		    updated_at = now()
		WHERE id = $1
		RETURNING`+appointmentColumns,
		id, ivl.Start, ivl.End)

	stored, err := scanAppointment(row)
	if err != nil {
		return nil, mapOverlapErr(err)
	}
	return stored, nil
}

func (r *PgRepository) UpdateStatus(ctx context.Context, id uuid.UUID, from, to Status) (*Appointment, error) {
	row := r.pool.QueryRow(ctx, `
		UPDATE appointments
		SET status = $2,
		    updated_at = now()
		WHERE id = $1
		  AND status = $3
		RETURNING`+appointmentColumns,
		id, to, from)

	return scanAppointment(row)
}

func (r *PgRepository) FindExpiredPending(ctx context.Context, now time.Time) ([]Appointment, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT`+appointmentColumns+`
		FROM appointments
		WHERE status = 'pending'
		  AND confirm_by IS NOT NULL
		  AND confirm_by < $1
	`, now)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return collectAppointments(rows)
}

func (r *PgRepository) InsertEvent(ctx context.Context, ev EventLog) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO event_logs (event_type, appointment_id, payload, created_at)
		VALUES ($1, $2, $3, COALESCE($4, now()))
	`, ev.EventType, ev.AppointmentID, ev.Payload, nullableTime(ev.CreatedAt))
	if err != nil {
		return fmt.Errorf("insert event log: %w", err)
	}

	return nil
}

func collectAppointments(rows pgx.Rows) ([]Appointment, error) {
	var result []Appointment
	for rows.Next() {
		a, err := scanAppointment(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *a)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return result, nil
}

func nullableTime(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}
