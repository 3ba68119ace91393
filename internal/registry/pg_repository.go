package registry

import (
	"context"
	"errors"
	"time"

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

const appointmentColumns = `id, slot_id, provider_id, patient_id, provider_name, patient_name,
	patient_age, patient_gender, specialty, slot_date, slot_time, status, idempotency_key,
	created_at, updated_at`

func scanAppointment(row pgx.Row) (*model.Appointment, error) {
	var a model.Appointment
	var idemKey *string

	err := row.Scan(
		&a.ID,
		&a.SlotID,
		&a.ProviderID,
		&a.PatientID,
		&a.ProviderName,
		&a.PatientName,
		&a.PatientAge,
		&a.PatientGender,
		&a.Specialty,
		&a.Date,
		&a.TimeOfDay,
		&a.Status,
		&idemKey,
		&a.CreatedAt,
		&a.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrAppointmentNotFound
		}
		return nil, db.Classify(err)
	}

	if idemKey != nil {
		a.IdempotencyKey = *idemKey
	}
	return &a, nil
}

func (r *PgRepository) Insert(ctx context.Context, a *model.Appointment) error {
	var idemKey *string
	if a.IdempotencyKey != "" {
		idemKey = &a.IdempotencyKey
	}

	_, err := r.pool.Exec(ctx, `
		INSERT INTO appointments (id, slot_id, provider_id, patient_id, provider_name,
			patient_name, patient_age, patient_gender, specialty, slot_date, slot_time,
			status, idempotency_key, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
	`, a.ID, a.SlotID, a.ProviderID, a.PatientID, a.ProviderName,
		a.PatientName, a.PatientAge, a.PatientGender, a.Specialty, a.Date, a.TimeOfDay,
		a.Status, idemKey, a.CreatedAt, a.UpdatedAt)
	if err != nil {
		return db.Classify(err)
	}
	return nil
}

func (r *PgRepository) Get(ctx context.Context, id uuid.UUID) (*model.Appointment, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+appointmentColumns+`
		FROM appointments
		WHERE id = $1
	`, id)
	return scanAppointment(row)
}

func (r *PgRepository) FindActiveBySlot(ctx context.Context, slotID uuid.UUID) (*model.Appointment, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+appointmentColumns+`
		FROM appointments
		WHERE slot_id = $1
		  AND status IN ('pending', 'confirmed')
	`, slotID)
	return scanAppointment(row)
}

func (r *PgRepository) SlotRetained(ctx context.Context, slotID uuid.UUID) (bool, error) {
	var retained bool
	err := r.pool.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM appointments
			WHERE slot_id = $1
			  AND status <> 'declined'
		)
	`, slotID).Scan(&retained)
	if err != nil {
		return false, db.Classify(err)
	}
	return retained, nil
}

func (r *PgRepository) ListByPatient(ctx context.Context, patientID uuid.UUID) ([]model.Appointment, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+appointmentColumns+`
		FROM appointments
		WHERE patient_id = $1
		ORDER BY slot_date DESC, slot_time DESC
	`, patientID)
	if err != nil {
		return nil, db.Classify(err)
	}
	return collect(rows)
}

func (r *PgRepository) ListByProvider(ctx context.Context, providerID uuid.UUID) ([]model.Appointment, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+appointmentColumns+`
		FROM appointments
		WHERE provider_id = $1
		ORDER BY slot_date DESC, slot_time DESC
	`, providerID)
	if err != nil {
		return nil, db.Classify(err)
	}
	return collect(rows)
}

func (r *PgRepository) UpdateStatus(ctx context.Context, id uuid.UUID, from, to model.AppointmentStatus) (*model.Appointment, error) {
	row := r.pool.QueryRow(ctx, `
		UPDATE appointments
		SET status = $2,
		    updated_at = now()
		WHERE id = $1
		  AND status = $3
		RETURNING `+appointmentColumns+`
	`, id, to, from)

	a, err := scanAppointment(row)
	if err != nil {
		if errors.Is(err, ErrAppointmentNotFound) {
			// Distinguish a missing row from a lost status race.
			if _, getErr := r.Get(ctx, id); getErr != nil {
				return nil, getErr
			}
			return nil, ErrStaleStatus
		}
		return nil, err
	}
	return a, nil
}

func (r *PgRepository) FindConfirmedDue(ctx context.Context, cutoff time.Time) ([]model.Appointment, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+appointmentColumns+`
		FROM appointments
		WHERE status = 'confirmed'
		  AND (slot_date + slot_time::time) < $1
	`, cutoff.UTC())
	if err != nil {
		return nil, db.Classify(err)
	}
	return collect(rows)
}

func collect(rows pgx.Rows) ([]model.Appointment, error) {
	defer rows.Close()

	var result []model.Appointment
	for rows.Next() {
		a, err := scanAppointment(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *a)
	}

	if err := rows.Err(); err != nil {
		return nil, db.Classify(err)
	}

	return result, nil
}
