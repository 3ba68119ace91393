package availability

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/carebook/appointment-booking/internal/apperr"
	"github.com/carebook/appointment-booking/internal/model"
)

// Store owns the set of bookable slots per provider.
type Store struct {
	repo      Repository
	minNotice time.Duration
	now       func() time.Time
}

type StoreOption func(*Store)

// WithMinNotice rejects withdrawal of slots starting sooner than d from
// now. Zero keeps withdrawal unrestricted.
func WithMinNotice(d time.Duration) StoreOption {
	return func(s *Store) { s.minNotice = d }
}

// WithClock overrides the time source, for tests.
func WithClock(now func() time.Time) StoreOption {
	return func(s *Store) { s.now = now }
}

func NewStore(repo Repository, opts ...StoreOption) *Store {
	s := &Store{
		repo: repo,
		now:  time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// PublishSlot creates an open slot owned by providerID.
func (s *Store) PublishSlot(ctx context.Context, providerID uuid.UUID, date time.Time, timeOfDay string) (*model.Slot, error) {
	tod, ok := model.ParseTimeOfDay(timeOfDay)
	if !ok {
		return nil, apperr.Validation("time must be HH:MM")
	}

	day := model.DateOf(date)
	if day.Before(model.DateOf(s.now())) {
		return nil, ErrInvalidDate
	}

	now := s.now().UTC()
	slot := model.Slot{
		ID:         uuid.New(),
		ProviderID: providerID,
		Date:       day,
		TimeOfDay:  tod,
		Booked:     false,
		CreatedAt:  now,
		UpdatedAt:  now,
	}

	if err := s.repo.InsertSlot(ctx, &slot); err != nil {
		return nil, err
	}
	return &slot, nil
}

// WithdrawSlot deletes an open slot on behalf of its owning provider.
func (s *Store) WithdrawSlot(ctx context.Context, slotID, requesterID uuid.UUID) error {
	slot, err := s.repo.GetSlot(ctx, slotID)
	if err != nil {
		return err
	}

	if slot.ProviderID != requesterID {
		return ErrNotOwner
	}
	if slot.Booked {
		return ErrSlotBooked
	}
	if s.minNotice > 0 && slot.StartsAt().Before(s.now().Add(s.minNotice)) {
		return ErrNoticeTooShort
	}

	// The delete is itself conditional on booked=false, so a booking
	// racing this withdrawal cannot lose its slot.
	if err := s.repo.DeleteOpenSlot(ctx, slotID); err != nil {
		return fmt.Errorf("withdraw slot %s: %w", slotID, err)
	}
	return nil
}

// ListOpenSlots returns open slots ordered by (date, time), optionally
// filtered by provider.
func (s *Store) ListOpenSlots(ctx context.Context, providerID *uuid.UUID) ([]model.Slot, error) {
	return s.repo.ListOpen(ctx, providerID)
}

// GetSlot is used by the booking engine before attempting a booking.
func (s *Store) GetSlot(ctx context.Context, id uuid.UUID) (*model.Slot, error) {
	return s.repo.GetSlot(ctx, id)
}

// MarkBooked transitions booked false->true atomically at the storage
// layer. Booking-engine internal.
func (s *Store) MarkBooked(ctx context.Context, id uuid.UUID) error {
	return s.repo.MarkBooked(ctx, id)
}

// MarkReleased reopens a slot after a declined appointment or a failed
// booking. Booking-engine internal.
func (s *Store) MarkReleased(ctx context.Context, id uuid.UUID) error {
	return s.repo.MarkReleased(ctx, id)
}

// ListBookedSlots feeds the reconciliation sweep that reopens slots
// whose release was lost to a transient failure.
func (s *Store) ListBookedSlots(ctx context.Context) ([]model.Slot, error) {
	return s.repo.ListBooked(ctx)
}
