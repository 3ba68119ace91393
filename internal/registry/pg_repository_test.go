package registry

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/carebook/appointment-booking/internal/model"
)

var appointmentCols = []string{
	"id", "slot_id", "provider_id", "patient_id", "provider_name", "patient_name",
	"patient_age", "patient_gender", "specialty", "slot_date", "slot_time", "status",
	"idempotency_key", "created_at", "updated_at",
}

func newMockRepo(t *testing.T) (*PgRepository, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mock.Close)
	return NewPgRepository(mock), mock
}

func sampleRow(a *model.Appointment) *pgxmock.Rows {
	var idemKey *string
	if a.IdempotencyKey != "" {
		idemKey = &a.IdempotencyKey
	}
	return pgxmock.NewRows(appointmentCols).AddRow(
		a.ID, a.SlotID, a.ProviderID, a.PatientID, a.ProviderName, a.PatientName,
		a.PatientAge, a.PatientGender, a.Specialty, a.Date, a.TimeOfDay, a.Status,
		idemKey, a.CreatedAt, a.UpdatedAt,
	)
}

func sample() *model.Appointment {
	now := time.Now().UTC()
	return &model.Appointment{
		ID:            uuid.New(),
		SlotID:        uuid.New(),
		ProviderID:    uuid.New(),
		PatientID:     uuid.New(),
		ProviderName:  "Dr. Grey",
		PatientName:   "Pat One",
		PatientAge:    34,
		PatientGender: model.GenderFemale,
		Specialty:     "Cardiology",
		Date:          model.Date(2024, time.June, 1),
		TimeOfDay:     "09:00",
		Status:        model.StatusPending,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
}

func TestPgGetScansNullableIdempotencyKey(t *testing.T) {
	repo, mock := newMockRepo(t)
	a := sample()

	mock.ExpectQuery("SELECT").WithArgs(a.ID).WillReturnRows(sampleRow(a))

	got, err := repo.Get(context.Background(), a.ID)
	require.NoError(t, err)
	assert.Equal(t, a.ID, got.ID)
	assert.Empty(t, got.IdempotencyKey)
}

func TestPgGetNotFound(t *testing.T) {
	repo, mock := newMockRepo(t)
	id := uuid.New()

	mock.ExpectQuery("SELECT").WithArgs(id).WillReturnRows(pgxmock.NewRows(appointmentCols))

	_, err := repo.Get(context.Background(), id)
	assert.ErrorIs(t, err, ErrAppointmentNotFound)
}

func TestPgUpdateStatusWins(t *testing.T) {
	repo, mock := newMockRepo(t)
	a := sample()
	a.Status = model.StatusConfirmed

	mock.ExpectQuery("UPDATE appointments").
		WithArgs(a.ID, model.StatusConfirmed, model.StatusPending).
		WillReturnRows(sampleRow(a))

	got, err := repo.UpdateStatus(context.Background(), a.ID, model.StatusPending, model.StatusConfirmed)
	require.NoError(t, err)
	assert.Equal(t, model.StatusConfirmed, got.Status)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPgUpdateStatusStale(t *testing.T) {
	repo, mock := newMockRepo(t)
	a := sample()
	a.Status = model.StatusDeclined

	// The conditional UPDATE matches nothing, but the row exists with a
	// different status: that is a lost race, not a missing appointment.
	mock.ExpectQuery("UPDATE appointments").
		WithArgs(a.ID, model.StatusConfirmed, model.StatusPending).
		WillReturnRows(pgxmock.NewRows(appointmentCols))
	mock.ExpectQuery("SELECT").
		WithArgs(a.ID).
		WillReturnRows(sampleRow(a))

	_, err := repo.UpdateStatus(context.Background(), a.ID, model.StatusPending, model.StatusConfirmed)
	assert.ErrorIs(t, err, ErrStaleStatus)
}

func TestPgUpdateStatusMissing(t *testing.T) {
	repo, mock := newMockRepo(t)
	id := uuid.New()

	mock.ExpectQuery("UPDATE appointments").
		WithArgs(id, model.StatusConfirmed, model.StatusPending).
		WillReturnRows(pgxmock.NewRows(appointmentCols))
	mock.ExpectQuery("SELECT").
		WithArgs(id).
		WillReturnRows(pgxmock.NewRows(appointmentCols))

	_, err := repo.UpdateStatus(context.Background(), id, model.StatusPending, model.StatusConfirmed)
	assert.ErrorIs(t, err, ErrAppointmentNotFound)
}

func TestPgInsertPersistsIdempotencyKey(t *testing.T) {
	repo, mock := newMockRepo(t)
	a := sample()
	a.IdempotencyKey = "attempt-1"

	mock.ExpectExec("INSERT INTO appointments").
		WithArgs(a.ID, a.SlotID, a.ProviderID, a.PatientID, a.ProviderName,
			a.PatientName, a.PatientAge, a.PatientGender, a.Specialty, a.Date, a.TimeOfDay,
			a.Status, &a.IdempotencyKey, a.CreatedAt, a.UpdatedAt).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	require.NoError(t, repo.Insert(context.Background(), a))
	assert.NoError(t, mock.ExpectationsWereMet())
}
