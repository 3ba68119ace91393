package availability

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/carebook/appointment-booking/internal/model"
)

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

var testNow = time.Date(2024, time.May, 20, 12, 0, 0, 0, time.UTC)

func newTestStore(t *testing.T, opts ...StoreOption) (*Store, *MemRepository) {
	t.Helper()
	repo := NewMemRepository()
	opts = append([]StoreOption{WithClock(fixedClock(testNow))}, opts...)
	return NewStore(repo, opts...), repo
}

func TestPublishSlotRoundTrip(t *testing.T) {
	store, _ := newTestStore(t)
	providerID := uuid.New()

	slot, err := store.PublishSlot(context.Background(), providerID, model.Date(2024, time.June, 1), "09:00")
	require.NoError(t, err)
	assert.False(t, slot.Booked)
	assert.Equal(t, "09:00", slot.TimeOfDay)

	open, err := store.ListOpenSlots(context.Background(), &providerID)
	require.NoError(t, err)
	require.Len(t, open, 1)
	assert.Equal(t, slot.ID, open[0].ID)
}

func TestPublishSlotDuplicate(t *testing.T) {
	store, _ := newTestStore(t)
	providerID := uuid.New()

	_, err := store.PublishSlot(context.Background(), providerID, model.Date(2024, time.June, 1), "09:00")
	require.NoError(t, err)

	_, err = store.PublishSlot(context.Background(), providerID, model.Date(2024, time.June, 1), "09:00")
	assert.ErrorIs(t, err, ErrDuplicateSlot)

	// A different provider may hold the same tuple.
	_, err = store.PublishSlot(context.Background(), uuid.New(), model.Date(2024, time.June, 1), "09:00")
	assert.NoError(t, err)
}

func TestPublishSlotPastDate(t *testing.T) {
	store, _ := newTestStore(t)

	_, err := store.PublishSlot(context.Background(), uuid.New(), model.Date(2024, time.May, 19), "09:00")
	assert.ErrorIs(t, err, ErrInvalidDate)

	// Same-day publishing is allowed.
	_, err = store.PublishSlot(context.Background(), uuid.New(), model.Date(2024, time.May, 20), "09:00")
	assert.NoError(t, err)
}

func TestPublishSlotBadTime(t *testing.T) {
	store, _ := newTestStore(t)

	for _, bad := range []string{"", "9am", "25:00", "12:61"} {
		_, err := store.PublishSlot(context.Background(), uuid.New(), model.Date(2024, time.June, 1), bad)
		assert.Error(t, err, "time %q should be rejected", bad)
	}
}

func TestWithdrawSlot(t *testing.T) {
	store, _ := newTestStore(t)
	providerID := uuid.New()

	slot, err := store.PublishSlot(context.Background(), providerID, model.Date(2024, time.June, 1), "09:00")
	require.NoError(t, err)

	err = store.WithdrawSlot(context.Background(), slot.ID, uuid.New())
	assert.ErrorIs(t, err, ErrNotOwner)

	require.NoError(t, store.WithdrawSlot(context.Background(), slot.ID, providerID))

	_, err = store.GetSlot(context.Background(), slot.ID)
	assert.ErrorIs(t, err, ErrSlotNotFound)
}

func TestWithdrawBookedSlot(t *testing.T) {
	store, _ := newTestStore(t)
	providerID := uuid.New()

	slot, err := store.PublishSlot(context.Background(), providerID, model.Date(2024, time.June, 1), "09:00")
	require.NoError(t, err)
	require.NoError(t, store.MarkBooked(context.Background(), slot.ID))

	err = store.WithdrawSlot(context.Background(), slot.ID, providerID)
	assert.ErrorIs(t, err, ErrSlotBooked)
}

func TestWithdrawMinNotice(t *testing.T) {
	store, _ := newTestStore(t, WithMinNotice(48*time.Hour))
	providerID := uuid.New()

	soon, err := store.PublishSlot(context.Background(), providerID, model.Date(2024, time.May, 21), "09:00")
	require.NoError(t, err)
	later, err := store.PublishSlot(context.Background(), providerID, model.Date(2024, time.May, 25), "09:00")
	require.NoError(t, err)

	assert.ErrorIs(t, store.WithdrawSlot(context.Background(), soon.ID, providerID), ErrNoticeTooShort)
	assert.NoError(t, store.WithdrawSlot(context.Background(), later.ID, providerID))
}

func TestListOpenSlotsOrdering(t *testing.T) {
	store, _ := newTestStore(t)
	providerID := uuid.New()

	for _, s := range []struct {
		date time.Time
		tod  string
	}{
		{model.Date(2024, time.June, 2), "10:00"},
		{model.Date(2024, time.June, 1), "14:00"},
		{model.Date(2024, time.June, 1), "09:00"},
		{model.Date(2024, time.June, 3), "08:00"},
	} {
		_, err := store.PublishSlot(context.Background(), providerID, s.date, s.tod)
		require.NoError(t, err)
	}

	open, err := store.ListOpenSlots(context.Background(), nil)
	require.NoError(t, err)
	require.Len(t, open, 4)

	assert.Equal(t, "09:00", open[0].TimeOfDay)
	assert.Equal(t, "14:00", open[1].TimeOfDay)
	assert.Equal(t, model.Date(2024, time.June, 2), open[2].Date)
	assert.Equal(t, model.Date(2024, time.June, 3), open[3].Date)
}

func TestListOpenSlotsExcludesBooked(t *testing.T) {
	store, _ := newTestStore(t)
	providerID := uuid.New()

	slot, err := store.PublishSlot(context.Background(), providerID, model.Date(2024, time.June, 1), "09:00")
	require.NoError(t, err)
	require.NoError(t, store.MarkBooked(context.Background(), slot.ID))

	open, err := store.ListOpenSlots(context.Background(), &providerID)
	require.NoError(t, err)
	assert.Empty(t, open)

	// Releasing brings it back.
	require.NoError(t, store.MarkReleased(context.Background(), slot.ID))
	open, err = store.ListOpenSlots(context.Background(), &providerID)
	require.NoError(t, err)
	assert.Len(t, open, 1)
}

func TestReleaseAfterRepublishKeepsSlotBooked(t *testing.T) {
	store, _ := newTestStore(t)
	providerID := uuid.New()

	original, err := store.PublishSlot(context.Background(), providerID, model.Date(2024, time.June, 1), "09:00")
	require.NoError(t, err)
	require.NoError(t, store.MarkBooked(context.Background(), original.ID))

	// Booking the original frees the tuple for a replacement.
	replacement, err := store.PublishSlot(context.Background(), providerID, model.Date(2024, time.June, 1), "09:00")
	require.NoError(t, err)

	// Releasing the original must not produce two open slots on the
	// same tuple; the spent slot stays booked.
	require.NoError(t, store.MarkReleased(context.Background(), original.ID))

	open, err := store.ListOpenSlots(context.Background(), &providerID)
	require.NoError(t, err)
	require.Len(t, open, 1)
	assert.Equal(t, replacement.ID, open[0].ID)

	got, err := store.GetSlot(context.Background(), original.ID)
	require.NoError(t, err)
	assert.True(t, got.Booked)
}

func TestListBookedSlots(t *testing.T) {
	store, _ := newTestStore(t)
	providerID := uuid.New()

	open, err := store.PublishSlot(context.Background(), providerID, model.Date(2024, time.June, 1), "09:00")
	require.NoError(t, err)
	booked, err := store.PublishSlot(context.Background(), providerID, model.Date(2024, time.June, 1), "10:00")
	require.NoError(t, err)
	require.NoError(t, store.MarkBooked(context.Background(), booked.ID))

	got, err := store.ListBookedSlots(context.Background())
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, booked.ID, got[0].ID)
	assert.NotEqual(t, open.ID, got[0].ID)
}

func TestMarkBookedIsCompareAndSwap(t *testing.T) {
	store, _ := newTestStore(t)

	slot, err := store.PublishSlot(context.Background(), uuid.New(), model.Date(2024, time.June, 1), "09:00")
	require.NoError(t, err)

	const callers = 16
	var wg sync.WaitGroup
	results := make(chan error, callers)

	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results <- store.MarkBooked(context.Background(), slot.ID)
		}()
	}
	wg.Wait()
	close(results)

	wins, losses := 0, 0
	for err := range results {
		if err == nil {
			wins++
		} else if errors.Is(err, ErrAlreadyBooked) {
			losses++
		} else {
			t.Fatalf("unexpected error: %v", err)
		}
	}

	assert.Equal(t, 1, wins, "exactly one caller may flip booked")
	assert.Equal(t, callers-1, losses)
}
