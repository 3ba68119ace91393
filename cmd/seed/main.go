package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"golang.org/x/crypto/bcrypt"

	"github.com/carebook/appointment-booking/internal/db"
)

const seedPassword = "password123" // dev-only fixture credential

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)
	log.Println("seed starting")

	dsn := os.Getenv("POSTGRES_DSN")
	if dsn == "" {
		log.Fatal("POSTGRES_DSN is required")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	// The seeder is a single batch writer, a small pool is plenty.
	pool, err := db.ConnectPostgres(ctx, dsn, db.PoolSettings{MaxConns: 4})
	if err != nil {
		log.Fatalf("connect postgres: %v", err)
	}
	defer pool.Close()

	gofakeit.Seed(time.Now().UnixNano())

	// One hash shared by every seeded account keeps the seeder fast.
	hash, err := bcrypt.GenerateFromPassword([]byte(seedPassword), bcrypt.MinCost)
	if err != nil {
		log.Fatalf("hash seed password: %v", err)
	}

	providerIDs, err := seedProviders(context.Background(), pool, 25, string(hash))
	if err != nil {
		log.Fatalf("seed providers: %v", err)
	}
	if err := seedPatients(context.Background(), pool, 500, string(hash)); err != nil {
		log.Fatalf("seed patients: %v", err)
	}
	if err := seedSlots(context.Background(), pool, providerIDs); err != nil {
		log.Fatalf("seed slots: %v", err)
	}

	log.Println("seed complete")
}

var specialties = []string{
	"Dermatology",
	"Cardiology",
	"General Practice",
	"Orthopedics",
	"Endocrinology",
	"Neurology",
	"Pediatrics",
	"Psychiatry",
	"Ophthalmology",
	"ENT",
}

func seedProviders(ctx context.Context, pool *pgxpool.Pool, count int, hash string) ([]uuid.UUID, error) {
	log.Printf("seeding %d providers", count)

	tx, err := pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	ids := make([]uuid.UUID, 0, count)
	for i := 0; i < count; i++ {
		id := uuid.New()
		name := "Dr. " + gofakeit.Name()
		email := fmt.Sprintf("provider%d@%s", i, gofakeit.DomainName())
		spec := specialties[gofakeit.Number(0, len(specialties)-1)]

		_, err := tx.Exec(ctx, `
			INSERT INTO users (id, email, display_name, role, password_hash, created_at, updated_at)
			VALUES ($1, $2, $3, 'provider', $4, now(), now())
		`, id, email, name, hash)
		if err != nil {
			return nil, err
		}

		_, err = tx.Exec(ctx, `
			INSERT INTO provider_profiles (user_id, specialty)
			VALUES ($1, $2)
		`, id, spec)
		if err != nil {
			return nil, err
		}

		ids = append(ids, id)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}

	log.Println("providers seeded")
	return ids, nil
}

func seedPatients(ctx context.Context, pool *pgxpool.Pool, count int, hash string) error {
	log.Printf("seeding %d patients", count)

	const batchSize = 100

	genders := []string{"male", "female", "other"}

	for offset := 0; offset < count; offset += batchSize {
		end := offset + batchSize
		if end > count {
			end = count
		}

		tx, err := pool.Begin(ctx)
		if err != nil {
			return err
		}

		for i := offset; i < end; i++ {
			id := uuid.New()
			name := gofakeit.Name()
			email := fmt.Sprintf("patient%d@%s", i, gofakeit.DomainName())

			_, err := tx.Exec(ctx, `
				INSERT INTO users (id, email, display_name, role, password_hash, created_at, updated_at)
				VALUES ($1, $2, $3, 'patient', $4, now(), now())
			`, id, email, name, hash)
			if err != nil {
				_ = tx.Rollback(ctx)
				return err
			}

			_, err = tx.Exec(ctx, `
				INSERT INTO patient_profiles (user_id, age, gender)
				VALUES ($1, $2, $3)
			`, id, gofakeit.Number(1, 120), genders[gofakeit.Number(0, 2)])
			if err != nil {
				_ = tx.Rollback(ctx)
				return err
			}
		}

		if err := tx.Commit(ctx); err != nil {
			return err
		}

		log.Printf("patients seeded: %d/%d", end, count)
	}

	log.Println("patients seeded")
	return nil
}

// seedSlots gives every provider a two-week run of weekday morning and
// afternoon slots.
func seedSlots(ctx context.Context, pool *pgxpool.Pool, providerIDs []uuid.UUID) error {
	log.Printf("seeding slots for %d providers", len(providerIDs))

	times := []string{"09:00", "09:30", "10:00", "10:30", "14:00", "14:30", "15:00"}
	start := time.Now().UTC().AddDate(0, 0, 1)

	tx, err := pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	total := 0
	for _, providerID := range providerIDs {
		for day := 0; day < 14; day++ {
			date := start.AddDate(0, 0, day)
			if date.Weekday() == time.Saturday || date.Weekday() == time.Sunday {
				continue
			}
			for _, tod := range times {
				_, err := tx.Exec(ctx, `
					INSERT INTO slots (id, provider_id, slot_date, slot_time, booked, created_at, updated_at)
					VALUES ($1, $2, $3, $4, false, now(), now())
				`, uuid.New(), providerID, date.Format("2006-01-02"), tod)
				if err != nil {
					return err
				}
				total++
			}
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return err
	}

	log.Printf("slots seeded: %d", total)
	return nil
}
