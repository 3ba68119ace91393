package availability

import (
	"context"

	"github.com/google/uuid"

	"github.com/carebook/appointment-booking/internal/apperr"
	"github.com/carebook/appointment-booking/internal/model"
)

var (
	ErrSlotNotFound   = apperr.NotFound("slot not found")
	ErrDuplicateSlot  = apperr.Conflict("an open slot already exists for this provider, date and time")
	ErrInvalidDate    = apperr.Validation("slot date is in the past")
	ErrNotOwner       = apperr.Forbidden("slot belongs to another provider")
	ErrSlotBooked     = apperr.Conflict("slot is booked")
	ErrAlreadyBooked  = apperr.Conflict("slot is already booked")
	ErrNoticeTooShort = apperr.Conflict("slot starts too soon to withdraw")
)

// Repository contains all slot-store interactions. MarkBooked must be a
// storage-level compare-and-swap of booked false->true, linearizable per
// slot id; callers never do the read-then-write themselves.
type Repository interface {
	InsertSlot(ctx context.Context, s *model.Slot) error
	GetSlot(ctx context.Context, id uuid.UUID) (*model.Slot, error)

	// DeleteOpenSlot removes the slot only while it is unbooked.
	DeleteOpenSlot(ctx context.Context, id uuid.UUID) error

	// ListOpen returns unbooked slots ordered by (date, time) ascending,
	// optionally filtered by provider.
	ListOpen(ctx context.Context, providerID *uuid.UUID) ([]model.Slot, error)

	// ListBooked returns booked slots; the reconciliation sweep scans
	// these for strays.
	ListBooked(ctx context.Context) ([]model.Slot, error)

	MarkBooked(ctx context.Context, id uuid.UUID) error

	// MarkReleased reopens a booked slot. When the provider re-published
	// the same tuple while this slot was booked, the slot stays booked
	// instead: reopening it would collide with the replacement, and the
	// tuple is already bookable through that replacement.
	MarkReleased(ctx context.Context, id uuid.UUID) error
}
