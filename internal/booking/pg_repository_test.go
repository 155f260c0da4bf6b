package booking

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/medflow/clinic-scheduling/internal/interval"
)

func mustSpan(t *testing.T, start, end time.Time) interval.Interval {
	t.Helper()
	iv, err := interval.New(start, end)
	require.NoError(t, err)
	return iv
}

var appointmentRowColumns = []string{
	"id", "clinic_id", "patient_id", "therapist_id", "service_id",
	"start_time", "end_time", "status", "confirmation_token", "confirm_by",
	"created_at", "updated_at",
}

func newMockRepo(t *testing.T) (*PgRepository, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mock.Close)
	return NewPgRepository(mock), mock
}

func appointmentRow(id uuid.UUID, status Status) *pgxmock.Rows {
	now := time.Now().UTC()
	start := time.Date(2024, 6, 1, 10, 0, 0, 0, time.UTC)
	return pgxmock.NewRows(appointmentRowColumns).AddRow(
		id, uuid.New(), uuid.New(), (*uuid.UUID)(nil), (*uuid.UUID)(nil),
		start, start.Add(30*time.Minute), status, "tok-abc", (*time.Time)(nil),
		now, now,
	)
}

func TestCreateMapsExclusionViolation(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectQuery("INSERT INTO appointments").
		WithArgs(
			pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(),
			pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(),
			pgxmock.AnyArg(), pgxmock.AnyArg(),
		).
		WillReturnError(&pgconn.PgError{
			Code:           "23P01",
			ConstraintName: "appointments_no_overlap",
		})

	start := time.Date(2024, 6, 1, 10, 0, 0, 0, time.UTC)
	_, err := repo.Create(context.Background(), &Appointment{
		ClinicID:  uuid.New(),
		PatientID: uuid.New(),
		Span:      mustSpan(t, start, start.Add(30*time.Minute)),
		Status:    StatusPending,
	})

	assert.ErrorIs(t, err, ErrOverlapConstraint)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFindByTokenTranslatesNoRows(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectQuery("SELECT(.+)FROM appointments").
		WithArgs("missing-token").
		WillReturnError(pgx.ErrNoRows)

	_, err := repo.FindByToken(context.Background(), "missing-token")
	assert.ErrorIs(t, err, ErrTokenNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFindByTokenReturnsAppointment(t *testing.T) {
	repo, mock := newMockRepo(t)
	id := uuid.New()

	mock.ExpectQuery("SELECT(.+)FROM appointments").
		WithArgs("tok-abc").
		WillReturnRows(appointmentRow(id, StatusPending))

	got, err := repo.FindByToken(context.Background(), "tok-abc")
	require.NoError(t, err)
	assert.Equal(t, id, got.ID)
	assert.Equal(t, StatusPending, got.Status)
	assert.Equal(t, "tok-abc", got.ConfirmationToken)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateStatusCASMissIsNotFound(t *testing.T) {
	repo, mock := newMockRepo(t)
	id := uuid.New()

	mock.ExpectQuery("UPDATE appointments").
		WithArgs(id, StatusConfirmed, StatusPending).
		WillReturnError(pgx.ErrNoRows)

	_, err := repo.UpdateStatus(context.Background(), id, StatusPending, StatusConfirmed)
	assert.ErrorIs(t, err, ErrAppointmentNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateSpanMapsExclusionViolation(t *testing.T) {
	repo, mock := newMockRepo(t)
	id := uuid.New()

	mock.ExpectQuery("UPDATE appointments").
		WithArgs(pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnError(&pgconn.PgError{Code: "23P01"})

	start := time.Date(2024, 6, 1, 11, 0, 0, 0, time.UTC)
	_, err := repo.UpdateSpan(context.Background(), id, mustSpan(t, start, start.Add(time.Hour)))
	assert.ErrorIs(t, err, ErrOverlapConstraint)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestInsertEventWritesRow(t *testing.T) {
	repo, mock := newMockRepo(t)
	apptID := uuid.New()

	mock.ExpectExec("INSERT INTO event_logs").
		WithArgs(pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	err := repo.InsertEvent(context.Background(), EventLog{
		EventType:     EventBookingCreated,
		AppointmentID: &apptID,
		Payload:       []byte(`{}`),
		CreatedAt:     time.Now().UTC(),
	})
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}
