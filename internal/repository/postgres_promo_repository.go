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

// PostgresPromoRepository implements PromoRepository using PostgreSQL with pgxpool
type PostgresPromoRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresPromoRepository creates a new PostgresPromoRepository
func NewPostgresPromoRepository(pool *pgxpool.Pool) *PostgresPromoRepository {
	return &PostgresPromoRepository{pool: pool}
}

// GetByCode retrieves a promo code by its code, case-insensitively
func (r *PostgresPromoRepository) GetByCode(ctx context.Context, code string) (*domain.PromoCode, error) {
	ctx, span := telemetry.StartSpan(ctx, "repo.postgres.promo.get_by_code")
	defer span.End()

	span.SetAttributes(attribute.String("code", code))

	query := `
		SELECT id, code, name, discount_type, discount_value,
		       min_order_amount, max_discount_amount,
		       usage_limit, usage_count, per_user_limit,
		       applicable_packages, excluded_packages,
		       valid_from, valid_until, is_active
		FROM promo_codes
		WHERE UPPER(code) = UPPER($1)
	`

	promo := &domain.PromoCode{}
	var discountType string

	err := querier(ctx, r.pool).QueryRow(ctx, query, code).Scan(
		&promo.ID,
		&promo.Code,
		&promo.Name,
		&discountType,
		&promo.DiscountValue,
		&promo.MinOrderAmount,
		&promo.MaxDiscountAmount,
		&promo.UsageLimit,
		&promo.UsageCount,
		&promo.PerUserLimit,
		&promo.ApplicablePackages,
		&promo.ExcludedPackages,
		&promo.ValidFrom,
		&promo.ValidUntil,
		&promo.IsActive,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			span.SetStatus(codes.Error, "not found")
			return nil, domain.ErrPromoNotFound
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("failed to get promo code: %w", err)
	}

	promo.DiscountType = domain.DiscountType(discountType)
	span.SetStatus(codes.Ok, "")
	return promo, nil
}

// CountUsagesByUser counts prior usages of a promo code by one user
func (r *PostgresPromoRepository) CountUsagesByUser(ctx context.Context, promoCodeID, userID string) (int, error) {
	ctx, span := telemetry.StartSpan(ctx, "repo.postgres.promo.count_usages_by_user")
	defer span.End()

	span.SetAttributes(
		attribute.String("promo_code_id", promoCodeID),
		attribute.String("user_id", userID),
	)

	query := `
		SELECT COUNT(*) FROM promo_code_usages
		WHERE promo_code_id = $1 AND user_id = $2
	`

	var count int
	err := querier(ctx, r.pool).QueryRow(ctx, query, promoCodeID, userID).Scan(&count)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return 0, fmt.Errorf("failed to count promo usages: %w", err)
	}

	span.SetAttributes(attribute.Int("count", count))
	span.SetStatus(codes.Ok, "")
	return count, nil
}

// RecordUsage appends a usage audit row
func (r *PostgresPromoRepository) RecordUsage(ctx context.Context, usage *domain.PromoCodeUsage) error {
	ctx, span := telemetry.StartSpan(ctx, "repo.postgres.promo.record_usage")
	defer span.End()

	span.SetAttributes(
		attribute.String("promo_code_id", usage.PromoCodeID),
		attribute.String("booking_id", usage.BookingID),
	)

	query := `
		INSERT INTO promo_code_usages (id, promo_code_id, user_id, booking_id, discount_applied, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`

	_, err := querier(ctx, r.pool).Exec(ctx, query,
		usage.ID,
		usage.PromoCodeID,
		usage.UserID,
		usage.BookingID,
		usage.DiscountApplied,
		usage.CreatedAt,
	)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return fmt.Errorf("failed to record promo usage: %w", err)
	}

	span.SetStatus(codes.Ok, "")
	return nil
}

// IncrementUsageCount bumps the denormalized usage counter, guarded by the
// usage limit so a concurrent booking cannot push the code past it.
func (r *PostgresPromoRepository) IncrementUsageCount(ctx context.Context, promoCodeID string) error {
	ctx, span := telemetry.StartSpan(ctx, "repo.postgres.promo.increment_usage_count")
	defer span.End()

	span.SetAttributes(attribute.String("promo_code_id", promoCodeID))

	query := `
		UPDATE promo_codes
		SET usage_count = usage_count + 1, updated_at = $2
		WHERE id = $1 AND (usage_limit <= 0 OR usage_count < usage_limit)
	`

	result, err := querier(ctx, r.pool).Exec(ctx, query, promoCodeID, time.Now())
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return fmt.Errorf("failed to increment promo usage count: %w", err)
	}

	if result.RowsAffected() == 0 {
		span.SetStatus(codes.Error, "usage limit reached")
		return domain.ErrPromoUsageLimit
	}

	span.SetStatus(codes.Ok, "")
	return nil
}

// Ensure PostgresPromoRepository implements PromoRepository
var _ PromoRepository = (*PostgresPromoRepository)(nil)
