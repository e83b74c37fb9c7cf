package service

import (
	"context"
	"time"

	"github.com/voyago/booking-core/internal/domain"
	"github.com/voyago/booking-core/internal/metrics"
	"github.com/voyago/booking-core/internal/repository"
	"github.com/voyago/booking-core/pkg/telemetry"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

// CancellationPreview describes what cancelling a booking now would refund.
type CancellationPreview struct {
	Booking         *domain.Booking
	DaysUntilTravel int
	Quote           domain.RefundQuote
	PolicyName      string
}

// CancellationService defines the interface for booking cancellation logic
type CancellationService interface {
	// PreviewCancellation computes the refund a cancellation would grant
	// right now, without changing anything
	PreviewCancellation(ctx context.Context, bookingID, userID string) (*CancellationPreview, error)

	// CancelBooking cancels a booking, computes the tiered refund, returns
	// the slots to inventory and cancels the agent commission, atomically
	CancelBooking(ctx context.Context, bookingID, userID, reason string) (*domain.Booking, error)
}

// cancellationService implements CancellationService
type cancellationService struct {
	bookingRepo    repository.BookingRepository
	packageRepo    repository.PackageRepository
	policyRepo     repository.PolicyRepository
	commissionRepo repository.CommissionRepository
	transactor     repository.Transactor
	publisher      EventPublisher
	cache          repository.AvailabilityCache
	now            func() time.Time
}

// NewCancellationService creates a new cancellation service
func NewCancellationService(
	bookingRepo repository.BookingRepository,
	packageRepo repository.PackageRepository,
	policyRepo repository.PolicyRepository,
	commissionRepo repository.CommissionRepository,
	transactor repository.Transactor,
	publisher EventPublisher,
	cache repository.AvailabilityCache,
) CancellationService {
	if publisher == nil {
		publisher = NewNoOpEventPublisher()
	}
	if cache == nil {
		cache = repository.NoOpAvailabilityCache{}
	}
	return &cancellationService{
		bookingRepo:    bookingRepo,
		packageRepo:    packageRepo,
		policyRepo:     policyRepo,
		commissionRepo: commissionRepo,
		transactor:     transactor,
		publisher:      publisher,
		cache:          cache,
		now:            time.Now,
	}
}

// PreviewCancellation computes the refund a cancellation would grant right now
func (s *cancellationService) PreviewCancellation(ctx context.Context, bookingID, userID string) (*CancellationPreview, error) {
	ctx, span := telemetry.StartSpan(ctx, "service.cancellation.preview")
	defer span.End()

	span.SetAttributes(attribute.String("booking_id", bookingID))

	booking, err := s.getOwnedBooking(ctx, bookingID, userID)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	if booking.IsCancelled() {
		span.SetStatus(codes.Error, "already cancelled")
		return nil, domain.ErrBookingAlreadyCancelled
	}

	preview, err := s.computeRefund(ctx, booking)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	span.SetAttributes(attribute.Float64("refund_amount", preview.Quote.RefundAmount))
	span.SetStatus(codes.Ok, "")
	return preview, nil
}

// CancelBooking cancels a booking. The status flip, refund figures, slot
// return and commission cancellation commit together; a failure in any step
// leaves the booking untouched.
func (s *cancellationService) CancelBooking(ctx context.Context, bookingID, userID, reason string) (*domain.Booking, error) {
	ctx, span := telemetry.StartSpan(ctx, "service.cancellation.cancel")
	defer span.End()

	span.SetAttributes(attribute.String("booking_id", bookingID))

	booking, err := s.getOwnedBooking(ctx, bookingID, userID)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	if booking.IsCancelled() {
		span.SetStatus(codes.Error, "already cancelled")
		return nil, domain.ErrBookingAlreadyCancelled
	}
	if !booking.IsCancellable() {
		span.SetStatus(codes.Error, "not cancellable")
		return nil, domain.ErrBookingNotCancellable
	}

	preview, err := s.computeRefund(ctx, booking)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	now := s.now()
	booking.Status = domain.BookingStatusCancelled
	booking.CancellationReason = reason
	booking.CancellationFee = preview.Quote.CancellationFee
	booking.RefundAmount = preview.Quote.RefundAmount
	booking.CancelledAt = &now
	booking.UpdatedAt = now

	err = s.transactor.WithTx(ctx, func(ctx context.Context) error {
		if err := s.bookingRepo.Cancel(ctx, booking); err != nil {
			return err
		}
		if err := s.packageRepo.DecrementBooked(ctx, booking.PackageID, booking.TravelDate, booking.ParticipantCount()); err != nil {
			return err
		}
		return s.commissionRepo.CancelByBookingID(ctx, booking.ID)
	})
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	_ = s.cache.Invalidate(ctx, booking.PackageID, booking.TravelDate)

	if err := s.publisher.PublishBookingCancelled(ctx, booking); err != nil {
		telemetry.SetSpanError(ctx, err)
	}

	metrics.RecordBookingCancelled(ctx, booking.PackageID, booking.RefundAmount)
	span.SetAttributes(
		attribute.Float64("refund_amount", booking.RefundAmount),
		attribute.Float64("cancellation_fee", booking.CancellationFee),
	)
	span.SetStatus(codes.Ok, "")
	return booking, nil
}

func (s *cancellationService) getOwnedBooking(ctx context.Context, bookingID, userID string) (*domain.Booking, error) {
	if bookingID == "" {
		return nil, domain.ErrInvalidBookingID
	}
	booking, err := s.bookingRepo.GetByID(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if userID != "" && !booking.BelongsToUser(userID) {
		return nil, domain.ErrBookingNotFound
	}
	return booking, nil
}

// computeRefund resolves the booking's policy and applies it. The package's
// policy wins; otherwise the system default; no resolvable policy means zero
// refund and the full paid amount retained.
func (s *cancellationService) computeRefund(ctx context.Context, booking *domain.Booking) (*CancellationPreview, error) {
	days := booking.DaysUntilTravel(s.now())

	policy, err := s.resolvePolicy(ctx, booking.PackageID)
	if err != nil {
		return nil, err
	}

	preview := &CancellationPreview{
		Booking:         booking,
		DaysUntilTravel: days,
	}
	if policy == nil {
		preview.Quote = domain.NoRefundQuote(booking.PaidAmount)
		return preview, nil
	}

	preview.Quote = policy.CalculateRefund(booking.PaidAmount, days)
	preview.PolicyName = policy.Name
	return preview, nil
}

func (s *cancellationService) resolvePolicy(ctx context.Context, packageID string) (*domain.CancellationPolicy, error) {
	pkg, err := s.packageRepo.GetByID(ctx, packageID)
	if err != nil {
		return nil, err
	}

	if pkg.CancellationPolicyID != nil {
		policy, err := s.policyRepo.GetByID(ctx, *pkg.CancellationPolicyID)
		if err != nil {
			return nil, err
		}
		if policy != nil && policy.IsActive {
			return policy, nil
		}
	}

	return s.policyRepo.GetDefault(ctx)
}

var _ CancellationService = (*cancellationService)(nil)
