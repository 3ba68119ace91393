package registry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/carebook/appointment-booking/internal/model"
	"github.com/carebook/appointment-booking/internal/notify"
)

type chanSink struct {
	events chan notify.Event
	err    error
}

func newChanSink() *chanSink {
	return &chanSink{events: make(chan notify.Event, 16)}
}

func (s *chanSink) Notify(_ context.Context, ev notify.Event) error {
	s.events <- ev
	return s.err
}

func (s *chanSink) wait(t *testing.T) notify.Event {
	t.Helper()
	select {
	case ev := <-s.events:
		return ev
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for event")
		return notify.Event{}
	}
}

func newAppointment(patientID, providerID uuid.UUID, date time.Time, tod string) *model.Appointment {
	now := time.Now().UTC()
	return &model.Appointment{
		ID:         uuid.New(),
		SlotID:     uuid.New(),
		ProviderID: providerID,
		PatientID:  patientID,
		Date:       date,
		TimeOfDay:  tod,
		Status:     model.StatusPending,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
}

func TestCreateEmitsEvent(t *testing.T) {
	sink := newChanSink()
	reg := New(NewMemRepository(), sink, zerolog.Nop())

	appt := newAppointment(uuid.New(), uuid.New(), model.Date(2024, time.June, 1), "09:00")
	require.NoError(t, reg.Create(context.Background(), appt))

	ev := sink.wait(t)
	assert.Equal(t, notify.EventAppointmentCreated, ev.Kind)
	assert.Equal(t, appt.ID, ev.Appointment.ID)
	assert.False(t, ev.OccurredAt.IsZero())
}

func TestUpdateStatusEmitsEvent(t *testing.T) {
	sink := newChanSink()
	reg := New(NewMemRepository(), sink, zerolog.Nop())

	appt := newAppointment(uuid.New(), uuid.New(), model.Date(2024, time.June, 1), "09:00")
	require.NoError(t, reg.Create(context.Background(), appt))
	sink.wait(t) // drain the create event

	updated, err := reg.UpdateStatus(context.Background(), appt.ID, model.StatusPending, model.StatusConfirmed)
	require.NoError(t, err)
	assert.Equal(t, model.StatusConfirmed, updated.Status)

	ev := sink.wait(t)
	assert.Equal(t, notify.EventStatusChanged, ev.Kind)
	assert.Equal(t, model.StatusConfirmed, ev.Appointment.Status)
}

func TestSinkFailureDoesNotPropagate(t *testing.T) {
	sink := newChanSink()
	sink.err = errors.New("broker down")
	reg := New(NewMemRepository(), sink, zerolog.Nop())

	appt := newAppointment(uuid.New(), uuid.New(), model.Date(2024, time.June, 1), "09:00")
	assert.NoError(t, reg.Create(context.Background(), appt))
	sink.wait(t)

	// The appointment is durable regardless of the sink.
	got, err := reg.Get(context.Background(), appt.ID)
	require.NoError(t, err)
	assert.Equal(t, appt.ID, got.ID)
}

func TestUpdateStatusStale(t *testing.T) {
	reg := New(NewMemRepository(), newChanSink(), zerolog.Nop())

	appt := newAppointment(uuid.New(), uuid.New(), model.Date(2024, time.June, 1), "09:00")
	require.NoError(t, reg.Create(context.Background(), appt))

	_, err := reg.UpdateStatus(context.Background(), appt.ID, model.StatusPending, model.StatusConfirmed)
	require.NoError(t, err)

	// The second caller read pending but the row moved on.
	_, err = reg.UpdateStatus(context.Background(), appt.ID, model.StatusPending, model.StatusDeclined)
	assert.ErrorIs(t, err, ErrStaleStatus)
}

func TestListOrderingNewestFirst(t *testing.T) {
	reg := New(NewMemRepository(), newChanSink(), zerolog.Nop())
	patientID := uuid.New()

	for _, s := range []struct {
		date time.Time
		tod  string
	}{
		{model.Date(2024, time.June, 1), "09:00"},
		{model.Date(2024, time.June, 3), "08:00"},
		{model.Date(2024, time.June, 1), "14:00"},
		{model.Date(2024, time.June, 2), "10:00"},
	} {
		appt := newAppointment(patientID, uuid.New(), s.date, s.tod)
		require.NoError(t, reg.Create(context.Background(), appt))
	}

	list, err := reg.ListByPatient(context.Background(), patientID)
	require.NoError(t, err)
	require.Len(t, list, 4)

	assert.Equal(t, model.Date(2024, time.June, 3), list[0].Date)
	assert.Equal(t, model.Date(2024, time.June, 2), list[1].Date)
	assert.Equal(t, "14:00", list[2].TimeOfDay)
	assert.Equal(t, "09:00", list[3].TimeOfDay)
}

func TestListByProviderFilters(t *testing.T) {
	reg := New(NewMemRepository(), newChanSink(), zerolog.Nop())
	providerID := uuid.New()

	mine := newAppointment(uuid.New(), providerID, model.Date(2024, time.June, 1), "09:00")
	other := newAppointment(uuid.New(), uuid.New(), model.Date(2024, time.June, 1), "10:00")
	require.NoError(t, reg.Create(context.Background(), mine))
	require.NoError(t, reg.Create(context.Background(), other))

	list, err := reg.ListByProvider(context.Background(), providerID)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, mine.ID, list[0].ID)
}

func TestFindActiveBySlot(t *testing.T) {
	reg := New(NewMemRepository(), newChanSink(), zerolog.Nop())

	appt := newAppointment(uuid.New(), uuid.New(), model.Date(2024, time.June, 1), "09:00")
	require.NoError(t, reg.Create(context.Background(), appt))

	got, err := reg.FindActiveBySlot(context.Background(), appt.SlotID)
	require.NoError(t, err)
	assert.Equal(t, appt.ID, got.ID)

	// Declined appointments are not active.
	_, err = reg.UpdateStatus(context.Background(), appt.ID, model.StatusPending, model.StatusDeclined)
	require.NoError(t, err)

	_, err = reg.FindActiveBySlot(context.Background(), appt.SlotID)
	assert.ErrorIs(t, err, ErrAppointmentNotFound)
}

func TestSlotRetained(t *testing.T) {
	reg := New(NewMemRepository(), newChanSink(), zerolog.Nop())

	appt := newAppointment(uuid.New(), uuid.New(), model.Date(2024, time.June, 1), "09:00")
	require.NoError(t, reg.Create(context.Background(), appt))

	retained, err := reg.SlotRetained(context.Background(), appt.SlotID)
	require.NoError(t, err)
	assert.True(t, retained)

	// Completed appointments keep their slot spent, unlike declined ones.
	_, err = reg.UpdateStatus(context.Background(), appt.ID, model.StatusPending, model.StatusConfirmed)
	require.NoError(t, err)
	_, err = reg.UpdateStatus(context.Background(), appt.ID, model.StatusConfirmed, model.StatusCompleted)
	require.NoError(t, err)

	retained, err = reg.SlotRetained(context.Background(), appt.SlotID)
	require.NoError(t, err)
	assert.True(t, retained)

	declined := newAppointment(uuid.New(), uuid.New(), model.Date(2024, time.June, 1), "10:00")
	require.NoError(t, reg.Create(context.Background(), declined))
	_, err = reg.UpdateStatus(context.Background(), declined.ID, model.StatusPending, model.StatusDeclined)
	require.NoError(t, err)

	retained, err = reg.SlotRetained(context.Background(), declined.SlotID)
	require.NoError(t, err)
	assert.False(t, retained)

	// Slots nothing ever referenced are not retained either.
	retained, err = reg.SlotRetained(context.Background(), uuid.New())
	require.NoError(t, err)
	assert.False(t, retained)
}

func TestFindConfirmedDue(t *testing.T) {
	reg := New(NewMemRepository(), newChanSink(), zerolog.Nop())
	cutoff := time.Date(2024, time.May, 20, 11, 0, 0, 0, time.UTC)

	due := newAppointment(uuid.New(), uuid.New(), model.Date(2024, time.May, 19), "09:00")
	notDue := newAppointment(uuid.New(), uuid.New(), model.Date(2024, time.June, 1), "09:00")
	stillPending := newAppointment(uuid.New(), uuid.New(), model.Date(2024, time.May, 19), "10:00")

	for _, a := range []*model.Appointment{due, notDue, stillPending} {
		require.NoError(t, reg.Create(context.Background(), a))
	}
	for _, a := range []*model.Appointment{due, notDue} {
		_, err := reg.UpdateStatus(context.Background(), a.ID, model.StatusPending, model.StatusConfirmed)
		require.NoError(t, err)
	}

	found, err := reg.FindConfirmedDue(context.Background(), cutoff)
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, due.ID, found[0].ID)
}
