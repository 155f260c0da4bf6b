package availability

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/medflow/clinic-scheduling/internal/interval"
	"github.com/medflow/clinic-scheduling/internal/recurrence"
)

var blockRowColumns = []string{
	"id", "clinic_id", "therapist_id", "start_time", "end_time", "reason",
	"is_recurring", "recurrence_frequency", "recurrence_interval",
	"recurrence_days_of_week", "recurrence_end_date", "created_by", "created_at",
}

func newMockRepo(t *testing.T) (*PgRepository, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mock.Close)
	return NewPgRepository(mock), mock
}

func TestGetByIDTranslatesNoRows(t *testing.T) {
	repo, mock := newMockRepo(t)
	id := uuid.New()

	mock.ExpectQuery("SELECT(.+)FROM availability_blocks").
		WithArgs(id).
		WillReturnError(pgx.ErrNoRows)

	_, err := repo.GetByID(context.Background(), id)
	assert.ErrorIs(t, err, ErrBlockNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetByIDHydratesRecurrenceRule(t *testing.T) {
	repo, mock := newMockRepo(t)
	id := uuid.New()
	clinicID := uuid.New()
	createdBy := uuid.New()
	start := time.Date(2024, 6, 3, 12, 0, 0, 0, time.UTC)
	now := time.Now().UTC()
	freq := "weekly"
	var n int32 = 2

	mock.ExpectQuery("SELECT(.+)FROM availability_blocks").
		WithArgs(id).
		WillReturnRows(pgxmock.NewRows(blockRowColumns).AddRow(
			id, clinicID, (*uuid.UUID)(nil), start, start.Add(time.Hour), "weekly meeting",
			true, &freq, &n, []int32{1, 3}, (*time.Time)(nil), createdBy, now,
		))

	got, err := repo.GetByID(context.Background(), id)
	require.NoError(t, err)

	assert.True(t, got.IsRecurring)
	require.NotNil(t, got.Recurrence)
	assert.Equal(t, recurrence.Weekly, got.Recurrence.Frequency)
	assert.Equal(t, 2, got.Recurrence.Interval)
	assert.Equal(t, []time.Weekday{time.Monday, time.Wednesday}, got.Recurrence.DaysOfWeek)
	assert.Nil(t, got.Recurrence.EndDate)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDeleteMissingBlockIsNotFound(t *testing.T) {
	repo, mock := newMockRepo(t)
	id := uuid.New()

	mock.ExpectExec("DELETE FROM availability_blocks").
		WithArgs(id).
		WillReturnResult(pgxmock.NewResult("DELETE", 0))

	err := repo.Delete(context.Background(), id)
	assert.ErrorIs(t, err, ErrBlockNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDeleteRemovesBlock(t *testing.T) {
	repo, mock := newMockRepo(t)
	id := uuid.New()

	mock.ExpectExec("DELETE FROM availability_blocks").
		WithArgs(id).
		WillReturnResult(pgxmock.NewResult("DELETE", 1))

	assert.NoError(t, repo.Delete(context.Background(), id))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestListCandidatesScansRows(t *testing.T) {
	repo, mock := newMockRepo(t)
	clinicID := uuid.New()
	blockID := uuid.New()
	createdBy := uuid.New()
	start := time.Date(2024, 6, 14, 0, 0, 0, 0, time.UTC)
	now := time.Now().UTC()

	win, err := interval.New(
		time.Date(2024, 6, 10, 0, 0, 0, 0, time.UTC),
		time.Date(2024, 6, 17, 0, 0, 0, 0, time.UTC),
	)
	require.NoError(t, err)

	mock.ExpectQuery("SELECT(.+)FROM availability_blocks").
		WithArgs(clinicID, (*uuid.UUID)(nil), win.Start, win.End).
		WillReturnRows(pgxmock.NewRows(blockRowColumns).AddRow(
			blockID, clinicID, (*uuid.UUID)(nil), start, start.AddDate(0, 0, 1), "clinic holiday",
			false, (*string)(nil), (*int32)(nil), []int32(nil), (*time.Time)(nil), createdBy, now,
		))

	got, err := repo.ListCandidates(context.Background(), clinicID, win, nil)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, blockID, got[0].ID)
	assert.False(t, got[0].IsRecurring)
	assert.Nil(t, got[0].Recurrence)
	assert.NoError(t, mock.ExpectationsWereMet())
}
