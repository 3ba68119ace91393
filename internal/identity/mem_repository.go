package identity

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/carebook/appointment-booking/internal/model"
)

// MemRepository is the local fallback tier of the persistence provider.
// It mirrors the postgres repository's semantics behind one mutex.
type MemRepository struct {
	mu        sync.Mutex
	patients  map[uuid.UUID]*model.PatientProfile
	providers map[uuid.UUID]*model.ProviderProfile
	creds     map[string]*Credentials // keyed by lowercase email
}

func NewMemRepository() *MemRepository {
	return &MemRepository{
		patients:  make(map[uuid.UUID]*model.PatientProfile),
		providers: make(map[uuid.UUID]*model.ProviderProfile),
		creds:     make(map[string]*Credentials),
	}
}

func (r *MemRepository) CreatePatient(_ context.Context, p *model.PatientProfile, passwordHash string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := strings.ToLower(p.Email)
	if _, ok := r.creds[key]; ok {
		return ErrEmailTaken
	}

	cp := *p
	r.patients[p.ID] = &cp
	r.creds[key] = &Credentials{UserID: p.ID, Role: model.RolePatient, PasswordHash: passwordHash}
	return nil
}

func (r *MemRepository) CreateProvider(_ context.Context, p *model.ProviderProfile, passwordHash string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := strings.ToLower(p.Email)
	if _, ok := r.creds[key]; ok {
		return ErrEmailTaken
	}

	cp := *p
	r.providers[p.ID] = &cp
	r.creds[key] = &Credentials{UserID: p.ID, Role: model.RoleProvider, PasswordHash: passwordHash}
	return nil
}

func (r *MemRepository) GetCredentials(_ context.Context, email string) (*Credentials, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	c, ok := r.creds[strings.ToLower(email)]
	if !ok {
		return nil, ErrUserNotFound
	}
	cp := *c
	return &cp, nil
}

func (r *MemRepository) GetPatient(_ context.Context, id uuid.UUID) (*model.PatientProfile, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	p, ok := r.patients[id]
	if !ok {
		return nil, ErrUserNotFound
	}
	cp := *p
	return &cp, nil
}

func (r *MemRepository) GetProvider(_ context.Context, id uuid.UUID) (*model.ProviderProfile, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	p, ok := r.providers[id]
	if !ok {
		return nil, ErrUserNotFound
	}
	cp := *p
	return &cp, nil
}

func (r *MemRepository) UpdateDisplayName(_ context.Context, id uuid.UUID, displayName string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if p, ok := r.patients[id]; ok {
		p.DisplayName = displayName
		p.UpdatedAt = time.Now().UTC()
		return nil
	}
	if p, ok := r.providers[id]; ok {
		p.DisplayName = displayName
		p.UpdatedAt = time.Now().UTC()
		return nil
	}
	return ErrUserNotFound
}

func (r *MemRepository) UpdateProviderSpecialty(_ context.Context, id uuid.UUID, specialty string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	p, ok := r.providers[id]
	if !ok {
		return ErrUserNotFound
	}
	p.Specialty = specialty
	p.UpdatedAt = time.Now().UTC()
	return nil
}
