package registry

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/carebook/appointment-booking/internal/model"
	"github.com/carebook/appointment-booking/internal/notify"
)

// Registry owns appointment lifecycle and queries, and emits a change
// event on every successful create or status update. Emission is
// fire-and-forget: a sink failure is logged, never propagated.
type Registry struct {
	repo Repository
	sink notify.Sink
	log  zerolog.Logger
	now  func() time.Time
}

func New(repo Repository, sink notify.Sink, log zerolog.Logger) *Registry {
	return &Registry{
		repo: repo,
		sink: sink,
		log:  log,
		now:  time.Now,
	}
}

func (r *Registry) Create(ctx context.Context, a *model.Appointment) error {
	if err := r.repo.Insert(ctx, a); err != nil {
		return err
	}
	r.emit(notify.EventAppointmentCreated, *a)
	return nil
}

func (r *Registry) Get(ctx context.Context, id uuid.UUID) (*model.Appointment, error) {
	return r.repo.Get(ctx, id)
}

func (r *Registry) FindActiveBySlot(ctx context.Context, slotID uuid.UUID) (*model.Appointment, error) {
	return r.repo.FindActiveBySlot(ctx, slotID)
}

// SlotRetained reports whether any non-declined appointment references
// the slot. The reconciliation sweep uses it to tell a legitimately
// spent slot from one whose release was lost.
func (r *Registry) SlotRetained(ctx context.Context, slotID uuid.UUID) (bool, error) {
	return r.repo.SlotRetained(ctx, slotID)
}

// ListByPatient returns the patient's appointments, newest first.
func (r *Registry) ListByPatient(ctx context.Context, patientID uuid.UUID) ([]model.Appointment, error) {
	return r.repo.ListByPatient(ctx, patientID)
}

// ListByProvider returns the provider's appointments, newest first.
func (r *Registry) ListByProvider(ctx context.Context, providerID uuid.UUID) ([]model.Appointment, error) {
	return r.repo.ListByProvider(ctx, providerID)
}

// UpdateStatus applies the from->to transition conditionally and emits
// the change event on success.
func (r *Registry) UpdateStatus(ctx context.Context, id uuid.UUID, from, to model.AppointmentStatus) (*model.Appointment, error) {
	updated, err := r.repo.UpdateStatus(ctx, id, from, to)
	if err != nil {
		return nil, err
	}
	r.emit(notify.EventStatusChanged, *updated)
	return updated, nil
}

func (r *Registry) FindConfirmedDue(ctx context.Context, cutoff time.Time) ([]model.Appointment, error) {
	return r.repo.FindConfirmedDue(ctx, cutoff)
}

func (r *Registry) emit(kind notify.EventKind, a model.Appointment) {
	ev := notify.Event{
		Kind:        kind,
		Appointment: a,
		OccurredAt:  r.now().UTC(),
	}

	// Detached from the request context so an abandoned caller does not
	// cancel delivery mid-publish.
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := r.sink.Notify(ctx, ev); err != nil {
			r.log.Warn().Err(err).
				Str("kind", string(kind)).
				Str("appointment_id", a.ID.String()).
				Msg("notification delivery failed")
		}
	}()
}
