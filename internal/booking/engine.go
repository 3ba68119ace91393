// Package booking is the single choke point through which a slot becomes
// an appointment and through which an appointment changes status.
package booking

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/carebook/appointment-booking/internal/apperr"
	"github.com/carebook/appointment-booking/internal/availability"
	"github.com/carebook/appointment-booking/internal/identity"
	"github.com/carebook/appointment-booking/internal/metrics"
	"github.com/carebook/appointment-booking/internal/model"
	redisclient "github.com/carebook/appointment-booking/internal/redis"
	"github.com/carebook/appointment-booking/internal/registry"
)

var (
	ErrInvalidTransition = apperr.Conflict("invalid status transition")
	ErrForbidden         = apperr.Forbidden("requester may not perform this transition")
	ErrSlotContended     = apperr.Conflict("slot is currently being booked, please retry")
)

// Principal is the identity a call acts under. System marks the
// scheduler/automation principal used by the completion worker.
type Principal struct {
	UserID uuid.UUID
	Role   model.Role
	System bool
}

// SchedulerPrincipal is the automated policy collaborator that completes
// past-due confirmed appointments.
var SchedulerPrincipal = Principal{System: true}

// Appointments is the registry surface the engine mutates through.
type Appointments interface {
	Create(ctx context.Context, a *model.Appointment) error
	Get(ctx context.Context, id uuid.UUID) (*model.Appointment, error)
	FindActiveBySlot(ctx context.Context, slotID uuid.UUID) (*model.Appointment, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, from, to model.AppointmentStatus) (*model.Appointment, error)
	FindConfirmedDue(ctx context.Context, cutoff time.Time) ([]model.Appointment, error)
	SlotRetained(ctx context.Context, slotID uuid.UUID) (bool, error)
}

// Slots is the availability surface the engine mutates through.
type Slots interface {
	GetSlot(ctx context.Context, id uuid.UUID) (*model.Slot, error)
	MarkBooked(ctx context.Context, id uuid.UUID) error
	MarkReleased(ctx context.Context, id uuid.UUID) error
	ListBookedSlots(ctx context.Context) ([]model.Slot, error)
}

type Engine struct {
	slots        Slots
	appointments Appointments
	directory    identity.Directory
	locker       redisclient.Locker
	metrics      *metrics.Metrics
	log          zerolog.Logger
	grace        time.Duration
	now          func() time.Time
}

type EngineOption func(*Engine)

// WithCompletionGrace sets how long after its start time a confirmed
// appointment becomes due for auto-completion.
func WithCompletionGrace(d time.Duration) EngineOption {
	return func(e *Engine) { e.grace = d }
}

// WithClock overrides the time source, for tests.
func WithClock(now func() time.Time) EngineOption {
	return func(e *Engine) { e.now = now }
}

func WithMetrics(m *metrics.Metrics) EngineOption {
	return func(e *Engine) { e.metrics = m }
}

func NewEngine(slots Slots, appointments Appointments, directory identity.Directory, locker redisclient.Locker, log zerolog.Logger, opts ...EngineOption) *Engine {
	e := &Engine{
		slots:        slots,
		appointments: appointments,
		directory:    directory,
		locker:       locker,
		log:          log,
		grace:        time.Hour,
		now:          time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Book converts an open slot into a pending appointment. The slot's
// booked flag is flipped by a storage-level compare-and-swap, and a
// failure after the flip rolls the slot back so no slot is permanently
// lost. idemKey is optional: a retry carrying the same key after a win
// returns the already-created appointment instead of a conflict.
func (e *Engine) Book(ctx context.Context, slotID, patientID uuid.UUID, idemKey string) (*model.Appointment, error) {
	appt, err := e.book(ctx, slotID, patientID, idemKey)
	e.observeBook(err)
	return appt, err
}

func (e *Engine) book(ctx context.Context, slotID, patientID uuid.UUID, idemKey string) (*model.Appointment, error) {
	patient, err := e.directory.GetPatient(ctx, patientID)
	if err != nil {
		return nil, fmt.Errorf("load patient: %w", err)
	}

	slot, err := e.slots.GetSlot(ctx, slotID)
	if err != nil {
		return nil, err
	}
	if slot.Booked {
		if existing := e.idempotentHit(ctx, slotID, patientID, idemKey); existing != nil {
			return existing, nil
		}
		return nil, availability.ErrSlotBooked
	}

	provider, err := e.directory.GetProvider(ctx, slot.ProviderID)
	if err != nil {
		return nil, fmt.Errorf("load provider: %w", err)
	}

	var created *model.Appointment

	lockErr := e.locker.WithLock(ctx, redisclient.SlotLockKey(slotID), func(lockCtx context.Context) error {
		if err := e.slots.MarkBooked(lockCtx, slotID); err != nil {
			return err
		}

		now := e.now().UTC()
		appt := model.Appointment{
			ID:             uuid.New(),
			SlotID:         slot.ID,
			ProviderID:     provider.ID,
			PatientID:      patient.ID,
			ProviderName:   provider.DisplayName,
			PatientName:    patient.DisplayName,
			PatientAge:     patient.Age,
			PatientGender:  patient.Gender,
			Specialty:      provider.Specialty,
			Date:           slot.Date,
			TimeOfDay:      slot.TimeOfDay,
			Status:         model.StatusPending,
			IdempotencyKey: idemKey,
			CreatedAt:      now,
			UpdatedAt:      now,
		}

		if err := e.appointments.Create(lockCtx, &appt); err != nil {
			// Compensating action: the slot was marked booked but the
			// appointment never became durable.
			e.release(slotID)
			return fmt.Errorf("create appointment: %w", err)
		}

		created = &appt
		return nil
	})

	if lockErr != nil {
		if errors.Is(lockErr, redisclient.ErrLockNotAcquired) {
			return nil, ErrSlotContended
		}
		if errors.Is(lockErr, availability.ErrAlreadyBooked) {
			if existing := e.idempotentHit(ctx, slotID, patientID, idemKey); existing != nil {
				return existing, nil
			}
			return nil, availability.ErrSlotBooked
		}
		return nil, lockErr
	}

	return created, nil
}

// idempotentHit returns the live appointment on the slot when it was
// created by the same patient with the same idempotency key.
func (e *Engine) idempotentHit(ctx context.Context, slotID, patientID uuid.UUID, idemKey string) *model.Appointment {
	if idemKey == "" {
		return nil
	}
	existing, err := e.appointments.FindActiveBySlot(ctx, slotID)
	if err != nil {
		return nil
	}
	if existing.PatientID == patientID && existing.IdempotencyKey == idemKey {
		return existing
	}
	return nil
}

// release reopens a slot after a decline or a failed booking. It runs on
// a fresh context so an already-finished request cannot cancel it.
func (e *Engine) release(slotID uuid.UUID) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := e.slots.MarkReleased(ctx, slotID); err != nil {
		e.log.Error().Err(err).Str("slot_id", slotID.String()).Msg("compensating slot release failed")
	}
}

// SetStatus applies one transition of the appointment status machine on
// behalf of a principal. Declining releases the slot back to open.
func (e *Engine) SetStatus(ctx context.Context, appointmentID uuid.UUID, to model.AppointmentStatus, by Principal) (*model.Appointment, error) {
	appt, err := e.setStatus(ctx, appointmentID, to, by)
	e.observeTransition(to, err)
	return appt, err
}

func (e *Engine) setStatus(ctx context.Context, appointmentID uuid.UUID, to model.AppointmentStatus, by Principal) (*model.Appointment, error) {
	appt, err := e.appointments.Get(ctx, appointmentID)
	if err != nil {
		return nil, err
	}

	from := appt.Status
	if !model.ValidTransition(from, to) {
		return nil, ErrInvalidTransition
	}

	if err := authorize(appt, to, by); err != nil {
		return nil, err
	}

	updated, err := e.appointments.UpdateStatus(ctx, appointmentID, from, to)
	if err != nil {
		if errors.Is(err, registry.ErrStaleStatus) {
			// Lost a race with another transition; the observed sequence
			// stays monotonic either way.
			return nil, ErrInvalidTransition
		}
		return nil, err
	}

	if to == model.StatusDeclined {
		// The status change is already durable, so the transition is
		// reported as applied even if the release fails here; the
		// reconciliation sweep picks up any slot left behind.
		e.release(appt.SlotID)
	}

	return updated, nil
}

// ReleaseStranded reopens booked slots no non-declined appointment holds.
// A slot ends up stranded when the release after a decline, or the
// compensating rollback of a failed booking, is lost to a transient
// failure; the completion worker runs this sweep to retry those releases.
func (e *Engine) ReleaseStranded(ctx context.Context) (int, error) {
	booked, err := e.slots.ListBookedSlots(ctx)
	if err != nil {
		return 0, fmt.Errorf("list booked slots: %w", err)
	}

	released := 0
	for _, slot := range booked {
		retained, err := e.appointments.SlotRetained(ctx, slot.ID)
		if err != nil {
			e.log.Error().Err(err).Str("slot_id", slot.ID.String()).Msg("stranded-slot check failed")
			continue
		}
		if retained {
			continue
		}
		if err := e.slots.MarkReleased(ctx, slot.ID); err != nil {
			e.log.Error().Err(err).Str("slot_id", slot.ID.String()).Msg("stranded-slot release failed")
			continue
		}
		released++
	}

	return released, nil
}

func authorize(appt *model.Appointment, to model.AppointmentStatus, by Principal) error {
	switch to {
	case model.StatusConfirmed, model.StatusDeclined:
		if by.Role == model.RoleProvider && by.UserID == appt.ProviderID {
			return nil
		}
	case model.StatusCompleted:
		if by.System {
			return nil
		}
		if by.Role == model.RoleProvider && by.UserID == appt.ProviderID {
			return nil
		}
	}
	return ErrForbidden
}

// CompleteDue moves confirmed appointments whose start time plus the
// grace period has passed to completed. Called periodically by the
// completion worker under the scheduler principal.
func (e *Engine) CompleteDue(ctx context.Context) (int, error) {
	cutoff := e.now().Add(-e.grace)
	due, err := e.appointments.FindConfirmedDue(ctx, cutoff)
	if err != nil {
		return 0, fmt.Errorf("find due appointments: %w", err)
	}

	completed := 0
	for _, appt := range due {
		if _, err := e.SetStatus(ctx, appt.ID, model.StatusCompleted, SchedulerPrincipal); err != nil {
			if errors.Is(err, ErrInvalidTransition) {
				continue // someone else transitioned it first
			}
			e.log.Error().Err(err).Str("appointment_id", appt.ID.String()).Msg("auto-complete failed")
			continue
		}
		completed++
	}

	return completed, nil
}

func (e *Engine) observeBook(err error) {
	switch {
	case err == nil:
		e.metrics.ObserveBook("success")
	case apperr.KindOf(err) == apperr.KindConflict:
		e.metrics.ObserveBook("conflict")
	default:
		e.metrics.ObserveBook("error")
	}
}

func (e *Engine) observeTransition(to model.AppointmentStatus, err error) {
	result := "success"
	if err != nil {
		result = "error"
		if apperr.KindOf(err) == apperr.KindConflict {
			result = "conflict"
		}
	}
	e.metrics.ObserveTransition(string(to), result)
}
