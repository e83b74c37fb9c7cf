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

// PostgresIdempotencyRepository implements IdempotencyRepository using
// PostgreSQL with pgxpool. The unique index on key makes Claim an atomic
// insert-or-lose race: exactly one concurrent request wins the claim.
type PostgresIdempotencyRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresIdempotencyRepository creates a new PostgresIdempotencyRepository
func NewPostgresIdempotencyRepository(pool *pgxpool.Pool) *PostgresIdempotencyRepository {
	return &PostgresIdempotencyRepository{pool: pool}
}

// Claim atomically inserts a processing record for the key. When the key
// already exists the existing record is returned with created=false so the
// caller can replay or reject.
func (r *PostgresIdempotencyRepository) Claim(ctx context.Context, record *domain.IdempotencyKey) (bool, *domain.IdempotencyKey, error) {
	ctx, span := telemetry.StartSpan(ctx, "repo.postgres.idempotency.claim")
	defer span.End()

	span.SetAttributes(
		attribute.String("user_id", record.UserID),
		attribute.String("endpoint", record.Endpoint),
	)

	query := `
		INSERT INTO idempotency_keys (
			id, key, user_id, endpoint, method, request_hash,
			is_processing, expires_at, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, TRUE, $7, $8)
	`

	_, err := querier(ctx, r.pool).Exec(ctx, query,
		record.ID,
		record.Key,
		record.UserID,
		record.Endpoint,
		record.Method,
		record.RequestHash,
		record.ExpiresAt,
		record.CreatedAt,
	)
	if err == nil {
		span.SetAttributes(attribute.Bool("created", true))
		span.SetStatus(codes.Ok, "")
		return true, nil, nil
	}

	if !isUniqueViolation(err) {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return false, nil, fmt.Errorf("failed to claim idempotency key: %w", err)
	}

	existing, err := r.getByKey(ctx, record.Key)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return false, nil, err
	}

	span.SetAttributes(attribute.Bool("created", false))
	span.SetStatus(codes.Ok, "")
	return false, existing, nil
}

// StoreResponse stores the completed response and clears the processing flag
func (r *PostgresIdempotencyRepository) StoreResponse(ctx context.Context, key string, status int, body []byte, now time.Time) error {
	ctx, span := telemetry.StartSpan(ctx, "repo.postgres.idempotency.store_response")
	defer span.End()

	span.SetAttributes(attribute.Int("response_status", status))

	query := `
		UPDATE idempotency_keys
		SET is_processing = FALSE,
		    response_status = $2,
		    response_body = $3,
		    processed_at = $4
		WHERE key = $1
	`

	result, err := querier(ctx, r.pool).Exec(ctx, query, key, status, body, now)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return fmt.Errorf("failed to store idempotency response: %w", err)
	}

	if result.RowsAffected() == 0 {
		span.SetStatus(codes.Error, "not found")
		return domain.ErrIdempotencyConflict
	}

	span.SetStatus(codes.Ok, "")
	return nil
}

// ClearProcessing deletes the claim without storing a response. A failed
// operation must not be cached; the client's retry gets a fresh run.
func (r *PostgresIdempotencyRepository) ClearProcessing(ctx context.Context, key string) error {
	ctx, span := telemetry.StartSpan(ctx, "repo.postgres.idempotency.clear_processing")
	defer span.End()

	query := `DELETE FROM idempotency_keys WHERE key = $1 AND is_processing = TRUE`

	_, err := querier(ctx, r.pool).Exec(ctx, query, key)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return fmt.Errorf("failed to clear idempotency claim: %w", err)
	}

	span.SetStatus(codes.Ok, "")
	return nil
}

// DeleteIfExpired removes a single record past its TTL. The expiry condition
// is re-checked in SQL so a concurrent refresh of the key is never deleted.
func (r *PostgresIdempotencyRepository) DeleteIfExpired(ctx context.Context, key string, now time.Time) error {
	ctx, span := telemetry.StartSpan(ctx, "repo.postgres.idempotency.delete_if_expired")
	defer span.End()

	query := `DELETE FROM idempotency_keys WHERE key = $1 AND expires_at <= $2`

	_, err := querier(ctx, r.pool).Exec(ctx, query, key, now)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return fmt.Errorf("failed to delete expired idempotency key: %w", err)
	}

	span.SetStatus(codes.Ok, "")
	return nil
}

// DeleteExpired garbage-collects records past their TTL, up to limit
func (r *PostgresIdempotencyRepository) DeleteExpired(ctx context.Context, now time.Time, limit int) (int64, error) {
	ctx, span := telemetry.StartSpan(ctx, "repo.postgres.idempotency.delete_expired")
	defer span.End()

	span.SetAttributes(attribute.Int("limit", limit))

	query := `
		DELETE FROM idempotency_keys
		WHERE id IN (
			SELECT id FROM idempotency_keys
			WHERE expires_at <= $1
			LIMIT $2
		)
	`

	result, err := querier(ctx, r.pool).Exec(ctx, query, now, limit)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return 0, fmt.Errorf("failed to delete expired idempotency keys: %w", err)
	}

	span.SetAttributes(attribute.Int64("deleted", result.RowsAffected()))
	span.SetStatus(codes.Ok, "")
	return result.RowsAffected(), nil
}

func (r *PostgresIdempotencyRepository) getByKey(ctx context.Context, key string) (*domain.IdempotencyKey, error) {
	query := `
		SELECT id, key, user_id, endpoint, method, request_hash,
		       is_processing, response_status, response_body, processed_at,
		       expires_at, created_at
		FROM idempotency_keys
		WHERE key = $1
	`

	record := &domain.IdempotencyKey{}
	err := querier(ctx, r.pool).QueryRow(ctx, query, key).Scan(
		&record.ID,
		&record.Key,
		&record.UserID,
		&record.Endpoint,
		&record.Method,
		&record.RequestHash,
		&record.IsProcessing,
		&record.ResponseStatus,
		&record.ResponseBody,
		&record.ProcessedAt,
		&record.ExpiresAt,
		&record.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			// The record was claimed and cleared between our insert attempt
			// and this read. Treat it as a conflict; the client can retry.
			return nil, domain.ErrIdempotencyConflict
		}
		return nil, fmt.Errorf("failed to get idempotency key: %w", err)
	}

	return record, nil
}

// Ensure PostgresIdempotencyRepository implements IdempotencyRepository
var _ IdempotencyRepository = (*PostgresIdempotencyRepository)(nil)
