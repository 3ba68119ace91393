package identity

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/carebook/appointment-booking/internal/db"
	"github.com/carebook/appointment-booking/internal/model"
)

type PgRepository struct {
	pool db.Querier
}

func NewPgRepository(pool db.Querier) *PgRepository {
	return &PgRepository{pool: pool}
}

func (r *PgRepository) CreatePatient(ctx context.Context, p *model.PatientProfile, passwordHash string) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return db.Classify(err)
	}
	defer tx.Rollback(ctx)

	if err := insertUser(ctx, tx, &p.User, passwordHash); err != nil {
		return err
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO patient_profiles (user_id, age, gender)
		VALUES ($1, $2, $3)
	`, p.ID, p.Age, p.Gender)
	if err != nil {
		return db.Classify(err)
	}

	if err := tx.Commit(ctx); err != nil {
		return db.Classify(err)
	}
	return nil
}

func (r *PgRepository) CreateProvider(ctx context.Context, p *model.ProviderProfile, passwordHash string) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return db.Classify(err)
	}
	defer tx.Rollback(ctx)

	if err := insertUser(ctx, tx, &p.User, passwordHash); err != nil {
		return err
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO provider_profiles (user_id, specialty)
		VALUES ($1, $2)
	`, p.ID, p.Specialty)
	if err != nil {
		return db.Classify(err)
	}

	if err := tx.Commit(ctx); err != nil {
		return db.Classify(err)
	}
	return nil
}

func insertUser(ctx context.Context, tx pgx.Tx, u *model.User, passwordHash string) error {
	_, err := tx.Exec(ctx, `
		INSERT INTO users (id, email, display_name, role, password_hash, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, u.ID, u.Email, u.DisplayName, u.Role, passwordHash, u.CreatedAt, u.UpdatedAt)
	if err != nil {
		if db.IsUniqueViolation(err, "users_email_key") {
			return ErrEmailTaken
		}
		return db.Classify(err)
	}
	return nil
}

func (r *PgRepository) GetCredentials(ctx context.Context, email string) (*Credentials, error) {
	var c Credentials
	err := r.pool.QueryRow(ctx, `
		SELECT id, role, password_hash
		FROM users
		WHERE lower(email) = lower($1)
	`, email).Scan(&c.UserID, &c.Role, &c.PasswordHash)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, db.Classify(err)
	}
	return &c, nil
}

func (r *PgRepository) GetPatient(ctx context.Context, id uuid.UUID) (*model.PatientProfile, error) {
	var p model.PatientProfile
	err := r.pool.QueryRow(ctx, `
		SELECT u.id, u.email, u.display_name, u.role, u.created_at, u.updated_at, pp.age, pp.gender
		FROM users u
		JOIN patient_profiles pp ON pp.user_id = u.id
		WHERE u.id = $1
	`, id).Scan(
		&p.ID,
		&p.Email,
		&p.DisplayName,
		&p.Role,
		&p.CreatedAt,
		&p.UpdatedAt,
		&p.Age,
		&p.Gender,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, db.Classify(err)
	}
	return &p, nil
}

func (r *PgRepository) GetProvider(ctx context.Context, id uuid.UUID) (*model.ProviderProfile, error) {
	var p model.ProviderProfile
	err := r.pool.QueryRow(ctx, `
		SELECT u.id, u.email, u.display_name, u.role, u.created_at, u.updated_at, pp.specialty
		FROM users u
		JOIN provider_profiles pp ON pp.user_id = u.id
		WHERE u.id = $1
	`, id).Scan(
		&p.ID,
		&p.Email,
		&p.DisplayName,
		&p.Role,
		&p.CreatedAt,
		&p.UpdatedAt,
		&p.Specialty,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, db.Classify(err)
	}
	return &p, nil
}

func (r *PgRepository) UpdateDisplayName(ctx context.Context, id uuid.UUID, displayName string) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE users
		SET display_name = $2,
		    updated_at = now()
		WHERE id = $1
	`, id, displayName)
	if err != nil {
		return db.Classify(err)
	}
	if tag.RowsAffected() == 0 {
		return ErrUserNotFound
	}
	return nil
}

func (r *PgRepository) UpdateProviderSpecialty(ctx context.Context, id uuid.UUID, specialty string) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE provider_profiles
		SET specialty = $2
		WHERE user_id = $1
	`, id, specialty)
	if err != nil {
		return db.Classify(err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("provider %s: %w", id, ErrUserNotFound)
	}
	return nil
}
