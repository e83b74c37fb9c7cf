package repository

import (
	"context"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/voyago/booking-core/internal/domain"
	"github.com/voyago/booking-core/pkg/database"
	"github.com/voyago/booking-core/pkg/retry"
)

func skipIfNoIntegration(t *testing.T) {
	if os.Getenv("INTEGRATION_TEST") != "true" {
		t.Skip("Skipping integration test. Set INTEGRATION_TEST=true to run.")
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func setupTestDB(t *testing.T) *database.PostgresDB {
	ctx := context.Background()

	db, err := database.NewPostgres(ctx, &database.PostgresConfig{
		Host:            getEnv("DATABASE_HOST", "localhost"),
		Port:            5432,
		User:            getEnv("DATABASE_USER", "postgres"),
		Password:        getEnv("DATABASE_PASSWORD", "postgres"),
		Database:        getEnv("DATABASE_DBNAME", "booking_core_test"),
		SSLMode:         "disable",
		MaxConns:        20,
		MinConns:        1,
		MaxConnLifetime: 5 * time.Minute,
		MaxConnIdleTime: time.Minute,
		ConnectTimeout:  5 * time.Second,
		MaxRetries:      3,
		RetryInterval:   time.Second,
	})
	if err != nil {
		t.Fatalf("Failed to connect to database: %v", err)
	}

	ddl := []string{
		`CREATE TABLE IF NOT EXISTS packages (
			id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
			title VARCHAR(255) NOT NULL,
			price NUMERIC(12, 2) NOT NULL CHECK (price >= 0),
			max_participants INT NOT NULL CHECK (max_participants > 0),
			cancellation_policy_id UUID,
			is_active BOOLEAN NOT NULL DEFAULT TRUE,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
		`CREATE TABLE IF NOT EXISTS package_availabilities (
			id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
			package_id UUID NOT NULL REFERENCES packages(id),
			date DATE NOT NULL,
			available_slots INT NOT NULL CHECK (available_slots >= 0),
			booked_slots INT NOT NULL DEFAULT 0 CHECK (booked_slots >= 0),
			price_override NUMERIC(12, 2),
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			CONSTRAINT uq_package_availability UNIQUE (package_id, date)
		)`,
		`CREATE TABLE IF NOT EXISTS inventory_holds (
			id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
			package_id UUID NOT NULL REFERENCES packages(id),
			user_id UUID NOT NULL,
			travel_date DATE NOT NULL,
			slots_held INT NOT NULL CHECK (slots_held > 0),
			hold_token VARCHAR(64) NOT NULL,
			expires_at TIMESTAMPTZ NOT NULL,
			status VARCHAR(20) NOT NULL DEFAULT 'active',
			booking_id UUID,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			CONSTRAINT uq_hold_token UNIQUE (hold_token)
		)`,
		`CREATE TABLE IF NOT EXISTS bookings (
			id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
			booking_number VARCHAR(20) NOT NULL,
			package_id UUID NOT NULL REFERENCES packages(id),
			user_id UUID NOT NULL,
			agent_id UUID,
			travel_date DATE NOT NULL,
			adults INT NOT NULL CHECK (adults >= 1),
			children INT NOT NULL DEFAULT 0,
			infants INT NOT NULL DEFAULT 0,
			package_price NUMERIC(12, 2) NOT NULL,
			discount NUMERIC(12, 2) NOT NULL DEFAULT 0,
			promo_code_id UUID,
			promo_discount NUMERIC(12, 2) NOT NULL DEFAULT 0,
			tax NUMERIC(12, 2) NOT NULL DEFAULT 0,
			total_amount NUMERIC(12, 2) NOT NULL,
			paid_amount NUMERIC(12, 2) NOT NULL DEFAULT 0,
			status VARCHAR(20) NOT NULL DEFAULT 'pending',
			payment_status VARCHAR(20) NOT NULL DEFAULT 'pending',
			cancellation_reason TEXT,
			cancellation_fee NUMERIC(12, 2) NOT NULL DEFAULT 0,
			refund_amount NUMERIC(12, 2) NOT NULL DEFAULT 0,
			hold_token VARCHAR(64),
			confirmed_at TIMESTAMPTZ,
			cancelled_at TIMESTAMPTZ,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			CONSTRAINT uq_booking_number UNIQUE (booking_number)
		)`,
	}
	for _, stmt := range ddl {
		if _, err := db.Pool().Exec(ctx, stmt); err != nil {
			t.Fatalf("Failed to create schema: %v", err)
		}
	}

	return db
}

func seedPackage(t *testing.T, db *database.PostgresDB, capacity int, travelDate time.Time) string {
	ctx := context.Background()
	packageID := uuid.NewString()

	_, err := db.Pool().Exec(ctx,
		`INSERT INTO packages (id, title, price, max_participants, is_active) VALUES ($1, $2, $3, $4, TRUE)`,
		packageID, "Island Hopper", 100.00, capacity,
	)
	if err != nil {
		t.Fatalf("Failed to seed package: %v", err)
	}

	_, err = db.Pool().Exec(ctx,
		`INSERT INTO package_availabilities (package_id, date, available_slots, booked_slots) VALUES ($1, $2, $3, 0)`,
		packageID, travelDate, capacity,
	)
	if err != nil {
		t.Fatalf("Failed to seed availability: %v", err)
	}

	return packageID
}

func cleanupPackage(t *testing.T, db *database.PostgresDB, packageID string) {
	ctx := context.Background()
	for _, stmt := range []string{
		"DELETE FROM bookings WHERE package_id = $1",
		"DELETE FROM inventory_holds WHERE package_id = $1",
		"DELETE FROM package_availabilities WHERE package_id = $1",
		"DELETE FROM packages WHERE id = $1",
	} {
		if _, err := db.Pool().Exec(ctx, stmt, packageID); err != nil {
			t.Logf("Warning: failed to cleanup test data: %v", err)
		}
	}
}

func bookedSlots(t *testing.T, db *database.PostgresDB, packageID string, travelDate time.Time) int {
	var booked int
	err := db.Pool().QueryRow(context.Background(),
		"SELECT booked_slots FROM package_availabilities WHERE package_id = $1 AND date = $2",
		packageID, travelDate,
	).Scan(&booked)
	if err != nil {
		t.Fatalf("Failed to read booked_slots: %v", err)
	}
	return booked
}

func testBooking(packageID, userID string, travelDate time.Time, slots int) *domain.Booking {
	now := time.Now()
	return &domain.Booking{
		ID:            uuid.NewString(),
		BookingNumber: domain.NewBookingNumber(),
		PackageID:     packageID,
		UserID:        userID,
		TravelDate:    travelDate,
		Adults:        slots,
		PackagePrice:  100.00,
		TotalAmount:   float64(slots) * 110.00,
		Status:        domain.BookingStatusPending,
		PaymentStatus: domain.PaymentStatusPending,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
}

// Lock the package row, check capacity against one snapshot, insert the
// booking, and bump the ledger. Serialization failures are retried the way
// the booking service retries them.
func bookOnce(ctx context.Context, tr *PgxTransactor, pkgRepo *PostgresPackageRepository, holdRepo *PostgresHoldRepository, bookingRepo *PostgresBookingRepository, packageID string, travelDate time.Time, slots int) error {
	result := retry.Do(ctx, &retry.Config{
		MaxRetries:      10,
		InitialInterval: 2 * time.Millisecond,
		MaxInterval:     20 * time.Millisecond,
		Multiplier:      2.0,
		JitterFactor:    0.2,
	}, func(ctx context.Context) error {
		err := tr.WithTx(ctx, func(ctx context.Context) error {
			pkg, err := pkgRepo.GetForUpdate(ctx, packageID)
			if err != nil {
				return err
			}
			av, err := pkgRepo.GetAvailability(ctx, packageID, travelDate)
			if err != nil {
				return err
			}
			held, err := holdRepo.SumActiveSlots(ctx, packageID, travelDate, time.Now())
			if err != nil {
				return err
			}
			if slots > pkg.FreeSlots(av, held) {
				return domain.ErrCapacityExceeded
			}
			if err := bookingRepo.Create(ctx, testBooking(packageID, uuid.NewString(), travelDate, slots)); err != nil {
				return err
			}
			return pkgRepo.IncrementBooked(ctx, packageID, travelDate, slots)
		})
		if err != nil && !IsSerializationFailure(err) {
			return retry.Permanent(err)
		}
		return err
	})
	return result.Err
}

func TestPostgresBookingRepository_ConcurrentBookings_NoOversell(t *testing.T) {
	skipIfNoIntegration(t)

	db := setupTestDB(t)
	defer db.Close()

	const capacity = 4
	const racers = 12
	travelDate := time.Date(2026, 12, 20, 0, 0, 0, 0, time.UTC)

	packageID := seedPackage(t, db, capacity, travelDate)
	defer cleanupPackage(t, db, packageID)

	pool := db.Pool()
	tr := NewPgxTransactor(pool)
	pkgRepo := NewPostgresPackageRepository(pool)
	holdRepo := NewPostgresHoldRepository(pool)
	bookingRepo := NewPostgresBookingRepository(pool)

	errs := make([]error, racers)
	var wg sync.WaitGroup
	for i := 0; i < racers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			errs[i] = bookOnce(context.Background(), tr, pkgRepo, holdRepo, bookingRepo, packageID, travelDate, 1)
		}(i)
	}
	wg.Wait()

	succeeded := 0
	for i, err := range errs {
		switch err {
		case nil:
			succeeded++
		case domain.ErrCapacityExceeded:
		default:
			t.Errorf("racer %d: unexpected error: %v", i, err)
		}
	}

	if succeeded != capacity {
		t.Errorf("Expected exactly %d bookings to succeed, got %d", capacity, succeeded)
	}
	if booked := bookedSlots(t, db, packageID, travelDate); booked != capacity {
		t.Errorf("Expected booked_slots %d, got %d (oversell)", capacity, booked)
	}
}

// A hold covering the whole date is converted while a lock-holding checker is
// mid-check. The checker's snapshot must still count the hold, so its own
// booking is rejected instead of doubling the sold slots.
func TestPostgresBookingRepository_HoldConversionDoesNotOversell(t *testing.T) {
	skipIfNoIntegration(t)

	db := setupTestDB(t)
	defer db.Close()

	const capacity = 4
	travelDate := time.Date(2026, 12, 21, 0, 0, 0, 0, time.UTC)

	packageID := seedPackage(t, db, capacity, travelDate)
	defer cleanupPackage(t, db, packageID)

	pool := db.Pool()
	tr := NewPgxTransactor(pool)
	pkgRepo := NewPostgresPackageRepository(pool)
	holdRepo := NewPostgresHoldRepository(pool)
	bookingRepo := NewPostgresBookingRepository(pool)

	holdUser := uuid.NewString()
	hold := &domain.InventoryHold{
		ID:         uuid.NewString(),
		PackageID:  packageID,
		UserID:     holdUser,
		TravelDate: travelDate,
		SlotsHeld:  capacity,
		HoldToken:  domain.NewHoldToken(),
		ExpiresAt:  time.Now().Add(15 * time.Minute),
		Status:     domain.HoldStatusActive,
		CreatedAt:  time.Now(),
		UpdatedAt:  time.Now(),
	}
	if err := holdRepo.Create(context.Background(), hold); err != nil {
		t.Fatalf("Failed to create hold: %v", err)
	}

	checkerReady := make(chan struct{})
	conversionDone := make(chan struct{})

	// The hold path skips the package row lock, so this transaction can
	// commit while the checker is between its reads.
	go func() {
		defer close(conversionDone)
		<-checkerReady
		err := tr.WithTx(context.Background(), func(ctx context.Context) error {
			booking := testBooking(packageID, holdUser, travelDate, capacity)
			booking.HoldToken = &hold.HoldToken
			if err := bookingRepo.Create(ctx, booking); err != nil {
				return err
			}
			if err := holdRepo.MarkConverted(ctx, hold.ID, booking.ID); err != nil {
				return err
			}
			return pkgRepo.IncrementBooked(ctx, packageID, travelDate, capacity)
		})
		if err != nil {
			t.Errorf("hold conversion failed: %v", err)
		}
	}()

	checkerErr := tr.WithTx(context.Background(), func(ctx context.Context) error {
		pkg, err := pkgRepo.GetForUpdate(ctx, packageID)
		if err != nil {
			return err
		}
		av, err := pkgRepo.GetAvailability(ctx, packageID, travelDate)
		if err != nil {
			return err
		}

		// Let the conversion commit between this transaction's reads.
		close(checkerReady)
		<-conversionDone

		held, err := holdRepo.SumActiveSlots(ctx, packageID, travelDate, time.Now())
		if err != nil {
			return err
		}
		if capacity > pkg.FreeSlots(av, held) {
			return domain.ErrCapacityExceeded
		}
		if err := bookingRepo.Create(ctx, testBooking(packageID, uuid.NewString(), travelDate, capacity)); err != nil {
			return err
		}
		return pkgRepo.IncrementBooked(ctx, packageID, travelDate, capacity)
	})

	// Either outcome is safe: the pinned snapshot still counts the hold and
	// rejects, or the ledger update conflicts and surfaces as retryable.
	if checkerErr == nil {
		t.Fatal("checker committed a second full-capacity booking")
	}
	if checkerErr != domain.ErrCapacityExceeded && !IsSerializationFailure(checkerErr) {
		t.Errorf("Expected capacity rejection or serialization failure, got %v", checkerErr)
	}

	if booked := bookedSlots(t, db, packageID, travelDate); booked != capacity {
		t.Errorf("Expected booked_slots %d, got %d (oversell)", capacity, booked)
	}
}
