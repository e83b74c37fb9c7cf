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

// PostgresAgentRepository implements AgentRepository using PostgreSQL with pgxpool
type PostgresAgentRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresAgentRepository creates a new PostgresAgentRepository
func NewPostgresAgentRepository(pool *pgxpool.Pool) *PostgresAgentRepository {
	return &PostgresAgentRepository{pool: pool}
}

// GetByID retrieves an agent by user id. Returns nil without error when the
// user is not an agent; the booking then simply earns no commission.
func (r *PostgresAgentRepository) GetByID(ctx context.Context, id string) (*domain.Agent, error) {
	ctx, span := telemetry.StartSpan(ctx, "repo.postgres.agent.get_by_id")
	defer span.End()

	span.SetAttributes(attribute.String("agent_id", id))

	query := `
		SELECT id, commission_rate
		FROM agents
		WHERE id = $1
	`

	agent := &domain.Agent{}
	err := querier(ctx, r.pool).QueryRow(ctx, query, id).Scan(
		&agent.ID,
		&agent.CommissionRate,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			span.SetStatus(codes.Ok, "not an agent")
			return nil, nil
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("failed to get agent: %w", err)
	}

	span.SetStatus(codes.Ok, "")
	return agent, nil
}

// Ensure PostgresAgentRepository implements AgentRepository
var _ AgentRepository = (*PostgresAgentRepository)(nil)

// PostgresCommissionRepository implements CommissionRepository using PostgreSQL with pgxpool
type PostgresCommissionRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresCommissionRepository creates a new PostgresCommissionRepository
func NewPostgresCommissionRepository(pool *pgxpool.Pool) *PostgresCommissionRepository {
	return &PostgresCommissionRepository{pool: pool}
}

// Create inserts a commission row
func (r *PostgresCommissionRepository) Create(ctx context.Context, commission *domain.AgentCommission) error {
	ctx, span := telemetry.StartSpan(ctx, "repo.postgres.commission.create")
	defer span.End()

	span.SetAttributes(
		attribute.String("agent_id", commission.AgentID),
		attribute.String("booking_id", commission.BookingID),
		attribute.Float64("commission_amount", commission.CommissionAmount),
	)

	query := `
		INSERT INTO agent_commissions (
			id, agent_id, booking_id, booking_amount,
			commission_rate, commission_amount, status, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`

	_, err := querier(ctx, r.pool).Exec(ctx, query,
		commission.ID,
		commission.AgentID,
		commission.BookingID,
		commission.BookingAmount,
		commission.CommissionRate,
		commission.CommissionAmount,
		commission.Status.String(),
		commission.CreatedAt,
		commission.UpdatedAt,
	)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return fmt.Errorf("failed to create commission: %w", err)
	}

	span.SetStatus(codes.Ok, "")
	return nil
}

// CancelByBookingID cancels the pending commission attached to a booking, if
// any. Paid commissions are left for the payout reconciliation process.
func (r *PostgresCommissionRepository) CancelByBookingID(ctx context.Context, bookingID string) error {
	ctx, span := telemetry.StartSpan(ctx, "repo.postgres.commission.cancel_by_booking")
	defer span.End()

	span.SetAttributes(attribute.String("booking_id", bookingID))

	query := `
		UPDATE agent_commissions
		SET status = 'cancelled', updated_at = $2
		WHERE booking_id = $1 AND status = 'pending'
	`

	_, err := querier(ctx, r.pool).Exec(ctx, query, bookingID, time.Now())
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return fmt.Errorf("failed to cancel commission: %w", err)
	}

	span.SetStatus(codes.Ok, "")
	return nil
}

// Ensure PostgresCommissionRepository implements CommissionRepository
var _ CommissionRepository = (*PostgresCommissionRepository)(nil)
