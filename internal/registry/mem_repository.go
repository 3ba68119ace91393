package registry

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/carebook/appointment-booking/internal/model"
)

// MemRepository is the local fallback tier for appointments.
type MemRepository struct {
	mu           sync.Mutex
	appointments map[uuid.UUID]*model.Appointment
}

func NewMemRepository() *MemRepository {
	return &MemRepository{appointments: make(map[uuid.UUID]*model.Appointment)}
}

func (r *MemRepository) Insert(_ context.Context, a *model.Appointment) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	cp := *a
	r.appointments[a.ID] = &cp
	return nil
}

func (r *MemRepository) Get(_ context.Context, id uuid.UUID) (*model.Appointment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	a, ok := r.appointments[id]
	if !ok {
		return nil, ErrAppointmentNotFound
	}
	cp := *a
	return &cp, nil
}

func (r *MemRepository) FindActiveBySlot(_ context.Context, slotID uuid.UUID) (*model.Appointment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, a := range r.appointments {
		if a.SlotID == slotID && (a.Status == model.StatusPending || a.Status == model.StatusConfirmed) {
			cp := *a
			return &cp, nil
		}
	}
	return nil, ErrAppointmentNotFound
}

func (r *MemRepository) SlotRetained(_ context.Context, slotID uuid.UUID) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, a := range r.appointments {
		if a.SlotID == slotID && a.Status != model.StatusDeclined {
			return true, nil
		}
	}
	return false, nil
}

func (r *MemRepository) ListByPatient(_ context.Context, patientID uuid.UUID) ([]model.Appointment, error) {
	return r.list(func(a *model.Appointment) bool { return a.PatientID == patientID })
}

func (r *MemRepository) ListByProvider(_ context.Context, providerID uuid.UUID) ([]model.Appointment, error) {
	return r.list(func(a *model.Appointment) bool { return a.ProviderID == providerID })
}

func (r *MemRepository) list(keep func(*model.Appointment) bool) ([]model.Appointment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var result []model.Appointment
	for _, a := range r.appointments {
		if keep(a) {
			result = append(result, *a)
		}
	}

	sort.Slice(result, func(i, j int) bool {
		if !result[i].Date.Equal(result[j].Date) {
			return result[i].Date.After(result[j].Date)
		}
		return result[i].TimeOfDay > result[j].TimeOfDay
	})

	return result, nil
}

func (r *MemRepository) UpdateStatus(_ context.Context, id uuid.UUID, from, to model.AppointmentStatus) (*model.Appointment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	a, ok := r.appointments[id]
	if !ok {
		return nil, ErrAppointmentNotFound
	}
	if a.Status != from {
		return nil, ErrStaleStatus
	}

	a.Status = to
	a.UpdatedAt = time.Now().UTC()
	cp := *a
	return &cp, nil
}

func (r *MemRepository) FindConfirmedDue(_ context.Context, cutoff time.Time) ([]model.Appointment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var result []model.Appointment
	for _, a := range r.appointments {
		if a.Status == model.StatusConfirmed && a.StartsAt().Before(cutoff) {
			result = append(result, *a)
		}
	}
	return result, nil
}
