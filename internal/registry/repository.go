package registry

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/carebook/appointment-booking/internal/apperr"
	"github.com/carebook/appointment-booking/internal/model"
)

var (
	ErrAppointmentNotFound = apperr.NotFound("appointment not found")
	ErrStaleStatus         = apperr.Conflict("appointment status changed concurrently")
)

// Repository contains all appointment-store interactions. UpdateStatus
// is conditional on the expected current status so concurrent transitions
// cannot clobber each other.
type Repository interface {
	Insert(ctx context.Context, a *model.Appointment) error
	Get(ctx context.Context, id uuid.UUID) (*model.Appointment, error)

	// FindActiveBySlot returns the pending or confirmed appointment
	// holding the slot, if any.
	FindActiveBySlot(ctx context.Context, slotID uuid.UUID) (*model.Appointment, error)

	// SlotRetained reports whether any non-declined appointment references
	// the slot. Completed appointments keep their slot spent, so this is
	// wider than FindActiveBySlot.
	SlotRetained(ctx context.Context, slotID uuid.UUID) (bool, error)

	ListByPatient(ctx context.Context, patientID uuid.UUID) ([]model.Appointment, error)
	ListByProvider(ctx context.Context, providerID uuid.UUID) ([]model.Appointment, error)

	UpdateStatus(ctx context.Context, id uuid.UUID, from, to model.AppointmentStatus) (*model.Appointment, error)

	// FindConfirmedDue returns confirmed appointments whose start time is
	// before the cutoff. Used by the completion worker.
	FindConfirmedDue(ctx context.Context, cutoff time.Time) ([]model.Appointment, error)
}
