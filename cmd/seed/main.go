package main

import (
	"context"
	"log"
	"os"
	"time"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/medflow/clinic-scheduling/internal/db"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)
	log.Println("seed starting")

	dsn := os.Getenv("POSTGRES_DSN")
	if dsn == "" {
		log.Fatal("POSTGRES_DSN is required")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := db.ConnectPostgres(ctx, dsn)
	if err != nil {
		log.Fatalf("connect postgres: %v", err)
	}
	defer pool.Close()

	gofakeit.Seed(time.Now().UnixNano())

	clinics, err := seedClinics(context.Background(), pool, 5)
	if err != nil {
		log.Fatalf("seed clinics: %v", err)
	}
	therapists, err := seedTherapists(context.Background(), pool, clinics, 20)
	if err != nil {
		log.Fatalf("seed therapists: %v", err)
	}
	if err := seedPatients(context.Background(), pool, 5000); err != nil {
		log.Fatalf("seed patients: %v", err)
	}
	if err := seedLunchBlocks(context.Background(), pool, therapists); err != nil {
		log.Fatalf("seed availability blocks: %v", err)
	}

	log.Println("seed complete")
}

func seedClinics(ctx context.Context, pool *pgxpool.Pool, count int) ([]uuid.UUID, error) {
	log.Printf("seeding %d clinics", count)

	ids := make([]uuid.UUID, 0, count)
	tx, err := pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	for i := 0; i < count; i++ {
		id := uuid.New()
		name := gofakeit.Company() + " Clinic"

		_, err := tx.Exec(ctx, `
			INSERT INTO clinics (id, name, timezone, created_at)
			VALUES ($1, $2, 'UTC', now())
		`, id, name)
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}

	log.Println("clinics seeded")
	return ids, nil
}

type seededTherapist struct {
	ID       uuid.UUID
	ClinicID uuid.UUID
}

func seedTherapists(ctx context.Context, pool *pgxpool.Pool, clinics []uuid.UUID, perClinic int) ([]seededTherapist, error) {
	log.Printf("seeding %d therapists per clinic", perClinic)

	var out []seededTherapist
	tx, err := pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	for _, clinicID := range clinics {
		for i := 0; i < perClinic; i++ {
			id := uuid.New()
			name := gofakeit.Name()
			email := gofakeit.Email()

			_, err := tx.Exec(ctx, `
				INSERT INTO therapists (id, clinic_id, name, email, active, created_at)
				VALUES ($1, $2, $3, $4, TRUE, now())
			`, id, clinicID, name, email)
			if err != nil {
				return nil, err
			}
			out = append(out, seededTherapist{ID: id, ClinicID: clinicID})
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}

	log.Println("therapists seeded")
	return out, nil
}

func seedPatients(ctx context.Context, pool *pgxpool.Pool, count int) error {
	log.Printf("seeding %d patients", count)

	const batchSize = 500

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
			email := gofakeit.Email()
			phone := gofakeit.Phone()

			_, err := tx.Exec(ctx, `
				INSERT INTO patients (id, name, email, phone, created_at)
				VALUES ($1, $2, $3, $4, now())
			`, id, name, email, phone)
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

// seedLunchBlocks gives every therapist a weekly recurring lunch hour so the
// availability path has realistic recurring data to expand.
func seedLunchBlocks(ctx context.Context, pool *pgxpool.Pool, therapists []seededTherapist) error {
	log.Printf("seeding recurring lunch blocks for %d therapists", len(therapists))

	anchor := time.Now().UTC().Truncate(24 * time.Hour).Add(12 * time.Hour)

	tx, err := pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	for _, th := range therapists {
		_, err := tx.Exec(ctx, `
			INSERT INTO availability_blocks
				(id, clinic_id, therapist_id, start_time, end_time, reason,
				 is_recurring, recurrence_frequency, recurrence_interval,
				 recurrence_days_of_week, created_by, created_at)
			VALUES ($1, $2, $3, $4, $5, 'lunch', TRUE, 'weekly', 1, $6, $7, now())
		`, uuid.New(), th.ClinicID, th.ID, anchor, anchor.Add(time.Hour),
			[]int32{1, 2, 3, 4, 5}, uuid.New())
		if err != nil {
			return err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return err
	}

	log.Println("availability blocks seeded")
	return nil
}
