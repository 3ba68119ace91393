package availability

import (
	"context"
	"errors"

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

func scanSlot(row pgx.Row) (*model.Slot, error) {
	var s model.Slot

	err := row.Scan(
		&s.ID,
		&s.ProviderID,
		&s.Date,
		&s.TimeOfDay,
		&s.Booked,
		&s.CreatedAt,
		&s.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrSlotNotFound
		}
		return nil, db.Classify(err)
	}

	return &s, nil
}

func (r *PgRepository) InsertSlot(ctx context.Context, s *model.Slot) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO slots (id, provider_id, slot_date, slot_time, booked, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, s.ID, s.ProviderID, s.Date, s.TimeOfDay, s.Booked, s.CreatedAt, s.UpdatedAt)
	if err != nil {
		if db.IsUniqueViolation(err, "slots_open_tuple_key") {
			return ErrDuplicateSlot
		}
		return db.Classify(err)
	}
	return nil
}

func (r *PgRepository) GetSlot(ctx context.Context, id uuid.UUID) (*model.Slot, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT id, provider_id, slot_date, slot_time, booked, created_at, updated_at
		FROM slots
		WHERE id = $1
	`, id)
	return scanSlot(row)
}

func (r *PgRepository) DeleteOpenSlot(ctx context.Context, id uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `
		DELETE FROM slots
		WHERE id = $1
		  AND NOT booked
	`, id)
	if err != nil {
		return db.Classify(err)
	}
	if tag.RowsAffected() == 0 {
		// Either gone or booked in the meantime; re-read to tell apart.
		slot, getErr := r.GetSlot(ctx, id)
		if getErr != nil {
			return getErr
		}
		if slot.Booked {
			return ErrSlotBooked
		}
		return ErrSlotNotFound
	}
	return nil
}

func (r *PgRepository) ListOpen(ctx context.Context, providerID *uuid.UUID) ([]model.Slot, error) {
	var (
		rows pgx.Rows
		err  error
	)

	if providerID != nil {
		rows, err = r.pool.Query(ctx, `
			SELECT id, provider_id, slot_date, slot_time, booked, created_at, updated_at
			FROM slots
			WHERE NOT booked
			  AND provider_id = $1
			ORDER BY slot_date, slot_time
		`, *providerID)
	} else {
		rows, err = r.pool.Query(ctx, `
			SELECT id, provider_id, slot_date, slot_time, booked, created_at, updated_at
			FROM slots
			WHERE NOT booked
			ORDER BY slot_date, slot_time
		`)
	}
	if err != nil {
		return nil, db.Classify(err)
	}
	defer rows.Close()

	var result []model.Slot
	for rows.Next() {
		s, err := scanSlot(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *s)
	}

	if err := rows.Err(); err != nil {
		return nil, db.Classify(err)
	}

	return result, nil
}

// MarkBooked is the conditional write the no-double-booking guarantee
// rests on: the false->true flip happens in one UPDATE predicated on the
// current value.
func (r *PgRepository) MarkBooked(ctx context.Context, id uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE slots
		SET booked = true,
		    updated_at = now()
		WHERE id = $1
		  AND NOT booked
	`, id)
	if err != nil {
		return db.Classify(err)
	}
	if tag.RowsAffected() == 0 {
		slot, getErr := r.GetSlot(ctx, id)
		if getErr != nil {
			return getErr
		}
		if slot.Booked {
			return ErrAlreadyBooked
		}
		return ErrSlotNotFound
	}
	return nil
}

// MarkReleased flips booked back to false, unless the provider has
// re-published the same (provider, date, time) tuple in the meantime:
// reopening would then collide with the replacement slot, so the spent
// slot stays booked. The NOT EXISTS guard handles the common case and a
// slots_open_tuple_key violation catches a republish racing the update.
func (r *PgRepository) MarkReleased(ctx context.Context, id uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE slots s
		SET booked = false,
		    updated_at = now()
		WHERE s.id = $1
		  AND s.booked
		  AND NOT EXISTS (
		      SELECT 1 FROM slots o
		      WHERE o.provider_id = s.provider_id
		        AND o.slot_date = s.slot_date
		        AND o.slot_time = s.slot_time
		        AND NOT o.booked
		  )
	`, id)
	if err != nil {
		if db.IsUniqueViolation(err, "slots_open_tuple_key") {
			return nil
		}
		return db.Classify(err)
	}
	if tag.RowsAffected() == 0 {
		// Already open, superseded by a republished tuple, or missing.
		// Only the last one is an error.
		if _, getErr := r.GetSlot(ctx, id); getErr != nil {
			return getErr
		}
	}
	return nil
}

func (r *PgRepository) ListBooked(ctx context.Context) ([]model.Slot, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, provider_id, slot_date, slot_time, booked, created_at, updated_at
		FROM slots
		WHERE booked
		ORDER BY slot_date, slot_time
	`)
	if err != nil {
		return nil, db.Classify(err)
	}
	defer rows.Close()

	var result []model.Slot
	for rows.Next() {
		s, err := scanSlot(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *s)
	}

	if err := rows.Err(); err != nil {
		return nil, db.Classify(err)
	}

	return result, nil
}
