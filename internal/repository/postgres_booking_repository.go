package repository

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/voyago/booking-core/internal/domain"
	"github.com/voyago/booking-core/pkg/telemetry"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

const bookingColumns = `
	id, booking_number, package_id, user_id, agent_id, travel_date,
	adults, children, infants,
	package_price, discount, promo_code_id, promo_discount, tax, total_amount, paid_amount,
	status, payment_status, cancellation_reason, cancellation_fee, refund_amount,
	hold_token, confirmed_at, cancelled_at, created_at, updated_at`

// PostgresBookingRepository implements BookingRepository using PostgreSQL with pgxpool
type PostgresBookingRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresBookingRepository creates a new PostgresBookingRepository
func NewPostgresBookingRepository(pool *pgxpool.Pool) *PostgresBookingRepository {
	return &PostgresBookingRepository{pool: pool}
}

// Create inserts a new booking record
func (r *PostgresBookingRepository) Create(ctx context.Context, booking *domain.Booking) error {
	ctx, span := telemetry.StartSpan(ctx, "repo.postgres.booking.create")
	defer span.End()

	span.SetAttributes(
		attribute.String("booking_id", booking.ID),
		attribute.String("booking_number", booking.BookingNumber),
		attribute.String("package_id", booking.PackageID),
		attribute.String("user_id", booking.UserID),
	)

	query := `
		INSERT INTO bookings (
			id, booking_number, package_id, user_id, agent_id, travel_date,
			adults, children, infants,
			package_price, discount, promo_code_id, promo_discount, tax, total_amount, paid_amount,
			status, payment_status, hold_token, created_at, updated_at
		) VALUES (
			$1, $2, $3, $4, $5, $6,
			$7, $8, $9,
			$10, $11, $12, $13, $14, $15, $16,
			$17, $18, $19, $20, $21
		)
	`

	_, err := querier(ctx, r.pool).Exec(ctx, query,
		booking.ID,
		booking.BookingNumber,
		booking.PackageID,
		booking.UserID,
		booking.AgentID,
		booking.TravelDate,
		booking.Adults,
		booking.Children,
		booking.Infants,
		booking.PackagePrice,
		booking.Discount,
		booking.PromoCodeID,
		booking.PromoDiscount,
		booking.Tax,
		booking.TotalAmount,
		booking.PaidAmount,
		booking.Status.String(),
		booking.PaymentStatus.String(),
		booking.HoldToken,
		booking.CreatedAt,
		booking.UpdatedAt,
	)

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return fmt.Errorf("failed to create booking: %w", err)
	}

	span.SetStatus(codes.Ok, "")
	return nil
}

// GetByID retrieves a booking by its ID
func (r *PostgresBookingRepository) GetByID(ctx context.Context, id string) (*domain.Booking, error) {
	ctx, span := telemetry.StartSpan(ctx, "repo.postgres.booking.get_by_id")
	defer span.End()

	span.SetAttributes(attribute.String("booking_id", id))

	query := `SELECT ` + bookingColumns + ` FROM bookings WHERE id = $1`

	booking, err := scanBooking(querier(ctx, r.pool).QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			span.SetStatus(codes.Error, "not found")
			return nil, domain.ErrBookingNotFound
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("failed to get booking: %w", err)
	}

	span.SetStatus(codes.Ok, "")
	return booking, nil
}

// List retrieves bookings matching the filter, newest first
func (r *PostgresBookingRepository) List(ctx context.Context, filter BookingListFilter) ([]*domain.Booking, error) {
	ctx, span := telemetry.StartSpan(ctx, "repo.postgres.booking.list")
	defer span.End()

	var (
		conds []string
		args  []any
	)
	add := func(cond string, arg any) {
		args = append(args, arg)
		conds = append(conds, cond+"$"+strconv.Itoa(len(args)))
	}

	if filter.UserID != "" {
		add("user_id = ", filter.UserID)
	}
	if filter.AgentID != "" {
		add("agent_id = ", filter.AgentID)
	}
	if filter.Status != "" {
		add("status = ", filter.Status)
	}
	if filter.PaymentStatus != "" {
		add("payment_status = ", filter.PaymentStatus)
	}
	if filter.DateFrom != nil {
		add("travel_date >= ", *filter.DateFrom)
	}
	if filter.DateTo != nil {
		add("travel_date <= ", *filter.DateTo)
	}

	query := `SELECT ` + bookingColumns + ` FROM bookings`
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	query += " ORDER BY created_at DESC"

	limit := filter.Limit
	if limit <= 0 {
		limit = 20
	}
	args = append(args, limit)
	query += " LIMIT $" + strconv.Itoa(len(args))
	args = append(args, filter.Offset)
	query += " OFFSET $" + strconv.Itoa(len(args))

	rows, err := querier(ctx, r.pool).Query(ctx, query, args...)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("failed to list bookings: %w", err)
	}
	defer rows.Close()

	var bookings []*domain.Booking
	for rows.Next() {
		booking, err := scanBooking(rows)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			return nil, fmt.Errorf("failed to scan booking: %w", err)
		}
		bookings = append(bookings, booking)
	}

	if err := rows.Err(); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("error iterating bookings: %w", err)
	}

	span.SetAttributes(attribute.Int("count", len(bookings)))
	span.SetStatus(codes.Ok, "")
	return bookings, nil
}

// Confirm transitions a pending booking to confirmed
func (r *PostgresBookingRepository) Confirm(ctx context.Context, id string, now time.Time) error {
	ctx, span := telemetry.StartSpan(ctx, "repo.postgres.booking.confirm")
	defer span.End()

	span.SetAttributes(attribute.String("booking_id", id))

	query := `
		UPDATE bookings SET
			status = $2,
			confirmed_at = $3,
			updated_at = $3
		WHERE id = $1 AND status = 'pending'
	`

	result, err := querier(ctx, r.pool).Exec(ctx, query, id, domain.BookingStatusConfirmed.String(), now)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return fmt.Errorf("failed to confirm booking: %w", err)
	}

	if result.RowsAffected() == 0 {
		var status string
		err := querier(ctx, r.pool).QueryRow(ctx, "SELECT status FROM bookings WHERE id = $1", id).Scan(&status)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				span.SetStatus(codes.Error, "not found")
				return domain.ErrBookingNotFound
			}
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			return fmt.Errorf("failed to check booking status: %w", err)
		}
		if status == domain.BookingStatusCancelled.String() {
			span.SetStatus(codes.Error, "already cancelled")
			return domain.ErrBookingAlreadyCancelled
		}
		// Already confirmed. The transition is idempotent.
		span.SetStatus(codes.Ok, "already confirmed")
		return nil
	}

	span.SetStatus(codes.Ok, "")
	return nil
}

// Cancel persists a cancellation: status, reason, refund and fee amounts.
// Conditioned on the booking still being cancellable so a concurrent cancel
// cannot apply twice.
func (r *PostgresBookingRepository) Cancel(ctx context.Context, booking *domain.Booking) error {
	ctx, span := telemetry.StartSpan(ctx, "repo.postgres.booking.cancel")
	defer span.End()

	span.SetAttributes(
		attribute.String("booking_id", booking.ID),
		attribute.Float64("refund_amount", booking.RefundAmount),
	)

	query := `
		UPDATE bookings SET
			status = $2,
			cancellation_reason = $3,
			cancellation_fee = $4,
			refund_amount = $5,
			cancelled_at = $6,
			updated_at = $6
		WHERE id = $1 AND status IN ('pending', 'confirmed')
	`

	result, err := querier(ctx, r.pool).Exec(ctx, query,
		booking.ID,
		domain.BookingStatusCancelled.String(),
		booking.CancellationReason,
		booking.CancellationFee,
		booking.RefundAmount,
		booking.CancelledAt,
	)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return fmt.Errorf("failed to cancel booking: %w", err)
	}

	if result.RowsAffected() == 0 {
		var status string
		err := querier(ctx, r.pool).QueryRow(ctx, "SELECT status FROM bookings WHERE id = $1", booking.ID).Scan(&status)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				span.SetStatus(codes.Error, "not found")
				return domain.ErrBookingNotFound
			}
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			return fmt.Errorf("failed to check booking status: %w", err)
		}
		if status == domain.BookingStatusCancelled.String() {
			span.SetStatus(codes.Error, "already cancelled")
			return domain.ErrBookingAlreadyCancelled
		}
		span.SetStatus(codes.Error, "not cancellable")
		return domain.ErrBookingNotCancellable
	}

	span.SetStatus(codes.Ok, "")
	return nil
}

// scanBooking scans a row into a Booking struct
func scanBooking(row pgx.Row) (*domain.Booking, error) {
	booking := &domain.Booking{}
	var (
		status             string
		paymentStatus      string
		cancellationReason *string
	)

	err := row.Scan(
		&booking.ID,
		&booking.BookingNumber,
		&booking.PackageID,
		&booking.UserID,
		&booking.AgentID,
		&booking.TravelDate,
		&booking.Adults,
		&booking.Children,
		&booking.Infants,
		&booking.PackagePrice,
		&booking.Discount,
		&booking.PromoCodeID,
		&booking.PromoDiscount,
		&booking.Tax,
		&booking.TotalAmount,
		&booking.PaidAmount,
		&status,
		&paymentStatus,
		&cancellationReason,
		&booking.CancellationFee,
		&booking.RefundAmount,
		&booking.HoldToken,
		&booking.ConfirmedAt,
		&booking.CancelledAt,
		&booking.CreatedAt,
		&booking.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	booking.Status = domain.BookingStatus(status)
	booking.PaymentStatus = domain.PaymentStatus(paymentStatus)
	if cancellationReason != nil {
		booking.CancellationReason = *cancellationReason
	}

	return booking, nil
}

// Ensure PostgresBookingRepository implements BookingRepository
var _ BookingRepository = (*PostgresBookingRepository)(nil)
