package identity

import (
	"context"

	"github.com/google/uuid"

	"github.com/carebook/appointment-booking/internal/apperr"
	"github.com/carebook/appointment-booking/internal/model"
)

var (
	ErrEmailTaken        = apperr.Conflict("email already registered")
	ErrWeakCredential    = apperr.Validation("password does not meet minimum strength")
	ErrInvalidCredential = apperr.Forbidden("invalid email or password")
	ErrUserNotFound      = apperr.NotFound("user not found")
)

// Credentials is what authentication needs to verify a login attempt.
type Credentials struct {
	UserID       uuid.UUID
	Role         model.Role
	PasswordHash string
}

// Repository contains all user-store interactions the gateway needs.
type Repository interface {
	CreatePatient(ctx context.Context, p *model.PatientProfile, passwordHash string) error
	CreateProvider(ctx context.Context, p *model.ProviderProfile, passwordHash string) error

	GetCredentials(ctx context.Context, email string) (*Credentials, error)

	GetPatient(ctx context.Context, id uuid.UUID) (*model.PatientProfile, error)
	GetProvider(ctx context.Context, id uuid.UUID) (*model.ProviderProfile, error)

	UpdateDisplayName(ctx context.Context, id uuid.UUID, displayName string) error
	UpdateProviderSpecialty(ctx context.Context, id uuid.UUID, specialty string) error
}

// Directory is the read-only subset the booking engine uses to snapshot
// participant details onto an appointment.
type Directory interface {
	GetPatient(ctx context.Context, id uuid.UUID) (*model.PatientProfile, error)
	GetProvider(ctx context.Context, id uuid.UUID) (*model.ProviderProfile, error)
}
