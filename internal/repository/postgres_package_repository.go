package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/voyago/booking-core/internal/domain"
	"github.com/voyago/booking-core/pkg/telemetry"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

// PostgresPackageRepository implements PackageRepository using PostgreSQL with pgxpool
type PostgresPackageRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresPackageRepository creates a new PostgresPackageRepository
func NewPostgresPackageRepository(pool *pgxpool.Pool) *PostgresPackageRepository {
	return &PostgresPackageRepository{pool: pool}
}

// GetByID retrieves a package by its ID
func (r *PostgresPackageRepository) GetByID(ctx context.Context, id string) (*domain.Package, error) {
	ctx, span := telemetry.StartSpan(ctx, "repo.postgres.package.get_by_id")
	defer span.End()

	span.SetAttributes(attribute.String("package_id", id))

	query := `
		SELECT id, title, price, max_participants, cancellation_policy_id, is_active
		FROM packages
		WHERE id = $1
	`

	pkg, err := r.scanPackage(querier(ctx, r.pool).QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			span.SetStatus(codes.Error, "not found")
			return nil, domain.ErrPackageNotFound
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("failed to get package: %w", err)
	}

	span.SetStatus(codes.Ok, "")
	return pkg, nil
}

// GetForUpdate retrieves a package and takes a FOR UPDATE row lock on it.
// Every capacity-consuming transaction locks the package row first, so
// concurrent capacity checks for the same package serialize here.
func (r *PostgresPackageRepository) GetForUpdate(ctx context.Context, id string) (*domain.Package, error) {
	ctx, span := telemetry.StartSpan(ctx, "repo.postgres.package.get_for_update")
	defer span.End()

	span.SetAttributes(attribute.String("package_id", id))

	query := `
		SELECT id, title, price, max_participants, cancellation_policy_id, is_active
		FROM packages
		WHERE id = $1
		FOR UPDATE
	`

	pkg, err := r.scanPackage(querier(ctx, r.pool).QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			span.SetStatus(codes.Error, "not found")
			return nil, domain.ErrPackageNotFound
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("failed to lock package: %w", err)
	}

	span.SetStatus(codes.Ok, "")
	return pkg, nil
}

// GetAvailability retrieves the availability row for a travel date. Returns
// nil without error when the catalog has not created one; capacity then falls
// back to the package-wide participant limit.
func (r *PostgresPackageRepository) GetAvailability(ctx context.Context, packageID string, date time.Time) (*domain.PackageAvailability, error) {
	ctx, span := telemetry.StartSpan(ctx, "repo.postgres.package.get_availability")
	defer span.End()

	span.SetAttributes(
		attribute.String("package_id", packageID),
		attribute.String("date", date.Format("2006-01-02")),
	)

	query := `
		SELECT id, package_id, date, available_slots, booked_slots, price_override
		FROM package_availabilities
		WHERE package_id = $1 AND date = $2
	`

	av := &domain.PackageAvailability{}
	err := querier(ctx, r.pool).QueryRow(ctx, query, packageID, date).Scan(
		&av.ID,
		&av.PackageID,
		&av.Date,
		&av.AvailableSlots,
		&av.BookedSlots,
		&av.PriceOverride,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			span.SetStatus(codes.Ok, "no availability row")
			return nil, nil
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("failed to get availability: %w", err)
	}

	span.SetStatus(codes.Ok, "")
	return av, nil
}

// IncrementBooked adds n to booked_slots for a travel date, creating the
// availability row from the package defaults if the catalog has not yet.
func (r *PostgresPackageRepository) IncrementBooked(ctx context.Context, packageID string, date time.Time, n int) error {
	ctx, span := telemetry.StartSpan(ctx, "repo.postgres.package.increment_booked")
	defer span.End()

	span.SetAttributes(
		attribute.String("package_id", packageID),
		attribute.Int("slots", n),
	)

	query := `
		INSERT INTO package_availabilities (id, package_id, date, available_slots, booked_slots, created_at, updated_at)
		SELECT gen_random_uuid(), p.id, $2, p.max_participants, $3, $4, $4
		FROM packages p WHERE p.id = $1
		ON CONFLICT (package_id, date) DO UPDATE
		SET booked_slots = package_availabilities.booked_slots + $3,
		    updated_at = $4
	`

	result, err := querier(ctx, r.pool).Exec(ctx, query, packageID, date, n, time.Now())
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return fmt.Errorf("failed to increment booked slots: %w", err)
	}

	if result.RowsAffected() == 0 {
		span.SetStatus(codes.Error, "not found")
		return domain.ErrPackageNotFound
	}

	span.SetStatus(codes.Ok, "")
	return nil
}

// DecrementBooked subtracts n from booked_slots for a travel date, floored
// at zero.
func (r *PostgresPackageRepository) DecrementBooked(ctx context.Context, packageID string, date time.Time, n int) error {
	ctx, span := telemetry.StartSpan(ctx, "repo.postgres.package.decrement_booked")
	defer span.End()

	span.SetAttributes(
		attribute.String("package_id", packageID),
		attribute.Int("slots", n),
	)

	query := `
		UPDATE package_availabilities
		SET booked_slots = GREATEST(booked_slots - $3, 0),
		    updated_at = $4
		WHERE package_id = $1 AND date = $2
	`

	_, err := querier(ctx, r.pool).Exec(ctx, query, packageID, date, n, time.Now())
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return fmt.Errorf("failed to decrement booked slots: %w", err)
	}

	span.SetStatus(codes.Ok, "")
	return nil
}

func (r *PostgresPackageRepository) scanPackage(row pgx.Row) (*domain.Package, error) {
	pkg := &domain.Package{}
	err := row.Scan(
		&pkg.ID,
		&pkg.Title,
		&pkg.Price,
		&pkg.MaxParticipants,
		&pkg.CancellationPolicyID,
		&pkg.IsActive,
	)
	if err != nil {
		return nil, err
	}
	return pkg, nil
}

// Ensure PostgresPackageRepository implements PackageRepository
var _ PackageRepository = (*PostgresPackageRepository)(nil)
