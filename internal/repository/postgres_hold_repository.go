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

// PostgresHoldRepository implements HoldRepository using PostgreSQL with pgxpool
type PostgresHoldRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresHoldRepository creates a new PostgresHoldRepository
func NewPostgresHoldRepository(pool *pgxpool.Pool) *PostgresHoldRepository {
	return &PostgresHoldRepository{pool: pool}
}

// Create inserts a new hold record
func (r *PostgresHoldRepository) Create(ctx context.Context, hold *domain.InventoryHold) error {
	ctx, span := telemetry.StartSpan(ctx, "repo.postgres.hold.create")
	defer span.End()

	span.SetAttributes(
		attribute.String("hold_id", hold.ID),
		attribute.String("package_id", hold.PackageID),
		attribute.Int("slots", hold.SlotsHeld),
	)

	query := `
		INSERT INTO inventory_holds (
			id, package_id, user_id, travel_date, slots_held,
			hold_token, expires_at, status, created_at, updated_at
		) VALUES (
			$1, $2, $3, $4, $5,
			$6, $7, $8, $9, $10
		)
	`

	_, err := querier(ctx, r.pool).Exec(ctx, query,
		hold.ID,
		hold.PackageID,
		hold.UserID,
		hold.TravelDate,
		hold.SlotsHeld,
		hold.HoldToken,
		hold.ExpiresAt,
		hold.Status.String(),
		hold.CreatedAt,
		hold.UpdatedAt,
	)

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return fmt.Errorf("failed to create hold: %w", err)
	}

	span.SetStatus(codes.Ok, "")
	return nil
}

// GetActiveByToken retrieves the user's active hold with the given token
func (r *PostgresHoldRepository) GetActiveByToken(ctx context.Context, token, userID string) (*domain.InventoryHold, error) {
	ctx, span := telemetry.StartSpan(ctx, "repo.postgres.hold.get_active_by_token")
	defer span.End()

	span.SetAttributes(attribute.String("user_id", userID))

	query := `
		SELECT id, package_id, user_id, travel_date, slots_held,
		       hold_token, expires_at, status, booking_id, created_at, updated_at
		FROM inventory_holds
		WHERE hold_token = $1 AND user_id = $2 AND status = 'active'
	`

	hold, err := scanHold(querier(ctx, r.pool).QueryRow(ctx, query, token, userID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			span.SetStatus(codes.Error, "not found")
			return nil, domain.ErrHoldNotFound
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("failed to get hold: %w", err)
	}

	span.SetStatus(codes.Ok, "")
	return hold, nil
}

// SumActiveSlots sums slots_held over live holds for a (package, date). A
// hold past its expiry no longer counts even if the sweeper has not flipped
// its status yet.
func (r *PostgresHoldRepository) SumActiveSlots(ctx context.Context, packageID string, date time.Time, now time.Time) (int, error) {
	ctx, span := telemetry.StartSpan(ctx, "repo.postgres.hold.sum_active_slots")
	defer span.End()

	span.SetAttributes(
		attribute.String("package_id", packageID),
		attribute.String("date", date.Format("2006-01-02")),
	)

	query := `
		SELECT COALESCE(SUM(slots_held), 0)
		FROM inventory_holds
		WHERE package_id = $1
			AND travel_date = $2
			AND status = 'active'
			AND expires_at > $3
	`

	var total int
	err := querier(ctx, r.pool).QueryRow(ctx, query, packageID, date, now).Scan(&total)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return 0, fmt.Errorf("failed to sum active holds: %w", err)
	}

	span.SetAttributes(attribute.Int("held_slots", total))
	span.SetStatus(codes.Ok, "")
	return total, nil
}

// ReleaseActiveForUser releases any active hold the user already has for the
// same (package, date). A new hold supersedes the old one rather than
// stacking on top of it.
func (r *PostgresHoldRepository) ReleaseActiveForUser(ctx context.Context, userID, packageID string, date time.Time) (int64, error) {
	ctx, span := telemetry.StartSpan(ctx, "repo.postgres.hold.release_active_for_user")
	defer span.End()

	span.SetAttributes(
		attribute.String("user_id", userID),
		attribute.String("package_id", packageID),
	)

	query := `
		UPDATE inventory_holds
		SET status = 'released', updated_at = $4
		WHERE user_id = $1 AND package_id = $2 AND travel_date = $3 AND status = 'active'
	`

	result, err := querier(ctx, r.pool).Exec(ctx, query, userID, packageID, date, time.Now())
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return 0, fmt.Errorf("failed to release prior holds: %w", err)
	}

	span.SetAttributes(attribute.Int64("released", result.RowsAffected()))
	span.SetStatus(codes.Ok, "")
	return result.RowsAffected(), nil
}

// Release flips the user's active hold with the given token to released
func (r *PostgresHoldRepository) Release(ctx context.Context, token, userID string) error {
	ctx, span := telemetry.StartSpan(ctx, "repo.postgres.hold.release")
	defer span.End()

	span.SetAttributes(attribute.String("user_id", userID))

	query := `
		UPDATE inventory_holds
		SET status = 'released', updated_at = $3
		WHERE hold_token = $1 AND user_id = $2 AND status = 'active'
	`

	result, err := querier(ctx, r.pool).Exec(ctx, query, token, userID, time.Now())
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return fmt.Errorf("failed to release hold: %w", err)
	}

	if result.RowsAffected() == 0 {
		span.SetStatus(codes.Error, "not found")
		return domain.ErrHoldNotFound
	}

	span.SetStatus(codes.Ok, "")
	return nil
}

// MarkConverted transitions an active hold to converted and links the booking
// that consumed it. Conditioned on the current status so a hold can only be
// converted once.
func (r *PostgresHoldRepository) MarkConverted(ctx context.Context, holdID, bookingID string) error {
	ctx, span := telemetry.StartSpan(ctx, "repo.postgres.hold.mark_converted")
	defer span.End()

	span.SetAttributes(
		attribute.String("hold_id", holdID),
		attribute.String("booking_id", bookingID),
	)

	query := `
		UPDATE inventory_holds
		SET status = 'converted', booking_id = $2, updated_at = $3
		WHERE id = $1 AND status = 'active'
	`

	result, err := querier(ctx, r.pool).Exec(ctx, query, holdID, bookingID, time.Now())
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return fmt.Errorf("failed to convert hold: %w", err)
	}

	if result.RowsAffected() == 0 {
		span.SetStatus(codes.Error, "not found")
		return domain.ErrHoldNotFound
	}

	span.SetStatus(codes.Ok, "")
	return nil
}

// SweepExpired transitions stale active holds to expired, up to limit. The
// inner SELECT takes SKIP LOCKED row locks so concurrent sweepers divide the
// work instead of blocking on each other.
func (r *PostgresHoldRepository) SweepExpired(ctx context.Context, now time.Time, limit int) (int64, error) {
	ctx, span := telemetry.StartSpan(ctx, "repo.postgres.hold.sweep_expired")
	defer span.End()

	span.SetAttributes(attribute.Int("limit", limit))

	query := `
		UPDATE inventory_holds
		SET status = 'expired', updated_at = $1
		WHERE id IN (
			SELECT id FROM inventory_holds
			WHERE status = 'active' AND expires_at <= $1
			ORDER BY expires_at
			LIMIT $2
			FOR UPDATE SKIP LOCKED
		)
	`

	result, err := querier(ctx, r.pool).Exec(ctx, query, now, limit)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return 0, fmt.Errorf("failed to sweep expired holds: %w", err)
	}

	span.SetAttributes(attribute.Int64("expired", result.RowsAffected()))
	span.SetStatus(codes.Ok, "")
	return result.RowsAffected(), nil
}

// scanHold scans a row into an InventoryHold struct
func scanHold(row pgx.Row) (*domain.InventoryHold, error) {
	hold := &domain.InventoryHold{}
	var status string

	err := row.Scan(
		&hold.ID,
		&hold.PackageID,
		&hold.UserID,
		&hold.TravelDate,
		&hold.SlotsHeld,
		&hold.HoldToken,
		&hold.ExpiresAt,
		&status,
		&hold.BookingID,
		&hold.CreatedAt,
		&hold.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	hold.Status = domain.HoldStatus(status)
	return hold, nil
}

// Ensure PostgresHoldRepository implements HoldRepository
var _ HoldRepository = (*PostgresHoldRepository)(nil)
