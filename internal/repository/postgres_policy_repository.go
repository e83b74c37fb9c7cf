package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/voyago/booking-core/internal/domain"
	"github.com/voyago/booking-core/pkg/telemetry"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

// PostgresPolicyRepository implements PolicyRepository using PostgreSQL with pgxpool
type PostgresPolicyRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresPolicyRepository creates a new PostgresPolicyRepository
func NewPostgresPolicyRepository(pool *pgxpool.Pool) *PostgresPolicyRepository {
	return &PostgresPolicyRepository{pool: pool}
}

// GetByID retrieves a cancellation policy and its rules
func (r *PostgresPolicyRepository) GetByID(ctx context.Context, id string) (*domain.CancellationPolicy, error) {
	ctx, span := telemetry.StartSpan(ctx, "repo.postgres.policy.get_by_id")
	defer span.End()

	span.SetAttributes(attribute.String("policy_id", id))

	query := `
		SELECT id, name, is_default, is_active
		FROM cancellation_policies
		WHERE id = $1
	`

	policy := &domain.CancellationPolicy{}
	err := querier(ctx, r.pool).QueryRow(ctx, query, id).Scan(
		&policy.ID,
		&policy.Name,
		&policy.IsDefault,
		&policy.IsActive,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			span.SetStatus(codes.Ok, "not found")
			return nil, nil
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("failed to get cancellation policy: %w", err)
	}

	if err := r.loadRules(ctx, policy); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	span.SetStatus(codes.Ok, "")
	return policy, nil
}

// GetDefault retrieves the active default policy, or nil if none exists.
// A missing default is not an error: cancellation then falls back to the
// no-refund outcome.
func (r *PostgresPolicyRepository) GetDefault(ctx context.Context) (*domain.CancellationPolicy, error) {
	ctx, span := telemetry.StartSpan(ctx, "repo.postgres.policy.get_default")
	defer span.End()

	query := `
		SELECT id, name, is_default, is_active
		FROM cancellation_policies
		WHERE is_default = TRUE AND is_active = TRUE
		LIMIT 1
	`

	policy := &domain.CancellationPolicy{}
	err := querier(ctx, r.pool).QueryRow(ctx, query).Scan(
		&policy.ID,
		&policy.Name,
		&policy.IsDefault,
		&policy.IsActive,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			span.SetStatus(codes.Ok, "no default policy")
			return nil, nil
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("failed to get default policy: %w", err)
	}

	if err := r.loadRules(ctx, policy); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	span.SetStatus(codes.Ok, "")
	return policy, nil
}

func (r *PostgresPolicyRepository) loadRules(ctx context.Context, policy *domain.CancellationPolicy) error {
	query := `
		SELECT id, cancellation_policy_id, days_before_travel, refund_percentage, fee_amount
		FROM cancellation_policy_rules
		WHERE cancellation_policy_id = $1
		ORDER BY days_before_travel DESC
	`

	rows, err := querier(ctx, r.pool).Query(ctx, query, policy.ID)
	if err != nil {
		return fmt.Errorf("failed to get policy rules: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var rule domain.CancellationPolicyRule
		if err := rows.Scan(
			&rule.ID,
			&rule.PolicyID,
			&rule.DaysBeforeTravel,
			&rule.RefundPercentage,
			&rule.FeeAmount,
		); err != nil {
			return fmt.Errorf("failed to scan policy rule: %w", err)
		}
		policy.Rules = append(policy.Rules, rule)
	}

	if err := rows.Err(); err != nil {
		return fmt.Errorf("error iterating policy rules: %w", err)
	}
	return nil
}

// Ensure PostgresPolicyRepository implements PolicyRepository
var _ PolicyRepository = (*PostgresPolicyRepository)(nil)
