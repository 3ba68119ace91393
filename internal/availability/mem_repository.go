package availability

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/carebook/appointment-booking/internal/model"
)

// MemRepository is the local fallback tier. One mutex serializes every
// mutation, which makes MarkBooked a true compare-and-swap here too.
type MemRepository struct {
	mu    sync.Mutex
	slots map[uuid.UUID]*model.Slot
}

func NewMemRepository() *MemRepository {
	return &MemRepository{slots: make(map[uuid.UUID]*model.Slot)}
}

func (r *MemRepository) InsertSlot(_ context.Context, s *model.Slot) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, existing := range r.slots {
		if !existing.Booked &&
			existing.ProviderID == s.ProviderID &&
			existing.Date.Equal(s.Date) &&
			existing.TimeOfDay == s.TimeOfDay {
			return ErrDuplicateSlot
		}
	}

	cp := *s
	r.slots[s.ID] = &cp
	return nil
}

func (r *MemRepository) GetSlot(_ context.Context, id uuid.UUID) (*model.Slot, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.slots[id]
	if !ok {
		return nil, ErrSlotNotFound
	}
	cp := *s
	return &cp, nil
}

func (r *MemRepository) DeleteOpenSlot(_ context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.slots[id]
	if !ok {
		return ErrSlotNotFound
	}
	if s.Booked {
		return ErrSlotBooked
	}
	delete(r.slots, id)
	return nil
}

func (r *MemRepository) ListOpen(_ context.Context, providerID *uuid.UUID) ([]model.Slot, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var result []model.Slot
	for _, s := range r.slots {
		if s.Booked {
			continue
		}
		if providerID != nil && s.ProviderID != *providerID {
			continue
		}
		result = append(result, *s)
	}

	sort.Slice(result, func(i, j int) bool {
		if !result[i].Date.Equal(result[j].Date) {
			return result[i].Date.Before(result[j].Date)
		}
		return result[i].TimeOfDay < result[j].TimeOfDay
	})

	return result, nil
}

func (r *MemRepository) MarkBooked(_ context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.slots[id]
	if !ok {
		return ErrSlotNotFound
	}
	if s.Booked {
		return ErrAlreadyBooked
	}
	s.Booked = true
	s.UpdatedAt = time.Now().UTC()
	return nil
}

func (r *MemRepository) MarkReleased(_ context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.slots[id]
	if !ok {
		return ErrSlotNotFound
	}
	if !s.Booked {
		return nil
	}

	// The provider may have re-published the tuple while this slot was
	// booked; reopening would then collide. The spent slot stays booked,
	// the tuple is already open through the replacement.
	for _, o := range r.slots {
		if o.ID != s.ID && !o.Booked &&
			o.ProviderID == s.ProviderID &&
			o.Date.Equal(s.Date) &&
			o.TimeOfDay == s.TimeOfDay {
			return nil
		}
	}

	s.Booked = false
	s.UpdatedAt = time.Now().UTC()
	return nil
}

func (r *MemRepository) ListBooked(_ context.Context) ([]model.Slot, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var result []model.Slot
	for _, s := range r.slots {
		if s.Booked {
			result = append(result, *s)
		}
	}
	return result, nil
}
