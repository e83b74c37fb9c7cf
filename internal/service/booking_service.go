package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/voyago/booking-core/internal/domain"
	"github.com/voyago/booking-core/internal/dto"
	"github.com/voyago/booking-core/internal/metrics"
	"github.com/voyago/booking-core/internal/repository"
	"github.com/voyago/booking-core/pkg/retry"
	"github.com/voyago/booking-core/pkg/telemetry"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

// BookingService defines the interface for booking business logic
type BookingService interface {
	// CreateBooking creates a priced booking in a single transaction,
	// consuming a hold when a token is supplied
	CreateBooking(ctx context.Context, userID string, req *dto.CreateBookingRequest) (*domain.Booking, error)

	// ConfirmBooking transitions a pending booking to confirmed
	ConfirmBooking(ctx context.Context, bookingID, userID string) (*domain.Booking, error)

	// GetBooking retrieves a booking owned by the user
	GetBooking(ctx context.Context, bookingID, userID string) (*domain.Booking, error)

	// ListBookings retrieves the user's bookings, newest first
	ListBookings(ctx context.Context, userID string, req *dto.ListBookingsRequest) ([]*domain.Booking, error)
}

// bookingService implements BookingService
type bookingService struct {
	packageRepo    repository.PackageRepository
	holdRepo       repository.HoldRepository
	bookingRepo    repository.BookingRepository
	promoRepo      repository.PromoRepository
	agentRepo      repository.AgentRepository
	commissionRepo repository.CommissionRepository
	transactor     repository.Transactor
	pricing        PricingService
	publisher      EventPublisher
	cache          repository.AvailabilityCache
	retryCfg       *retry.Config
	now            func() time.Time
}

// BookingServiceConfig contains configuration for the booking service
type BookingServiceConfig struct {
	// TxMaxRetries bounds retries of transactions that fail with a
	// serialization or deadlock error
	TxMaxRetries int
}

// NewBookingService creates a new booking service
func NewBookingService(
	packageRepo repository.PackageRepository,
	holdRepo repository.HoldRepository,
	bookingRepo repository.BookingRepository,
	promoRepo repository.PromoRepository,
	agentRepo repository.AgentRepository,
	commissionRepo repository.CommissionRepository,
	transactor repository.Transactor,
	pricing PricingService,
	publisher EventPublisher,
	cache repository.AvailabilityCache,
	cfg *BookingServiceConfig,
) BookingService {
	maxRetries := 3
	if cfg != nil && cfg.TxMaxRetries > 0 {
		maxRetries = cfg.TxMaxRetries
	}
	if publisher == nil {
		publisher = NewNoOpEventPublisher()
	}
	if cache == nil {
		cache = repository.NoOpAvailabilityCache{}
	}
	return &bookingService{
		packageRepo:    packageRepo,
		holdRepo:       holdRepo,
		bookingRepo:    bookingRepo,
		promoRepo:      promoRepo,
		agentRepo:      agentRepo,
		commissionRepo: commissionRepo,
		transactor:     transactor,
		pricing:        pricing,
		publisher:      publisher,
		cache:          cache,
		retryCfg: &retry.Config{
			MaxRetries:      maxRetries,
			InitialInterval: 20 * time.Millisecond,
			MaxInterval:     500 * time.Millisecond,
			Multiplier:      2.0,
			JitterFactor:    0.2,
		},
		now: time.Now,
	}
}

// CreateBooking creates a priced booking. Everything from the capacity check
// to the commission row commits or rolls back as one unit. Transient
// serialization and deadlock failures rerun the whole transaction.
func (s *bookingService) CreateBooking(ctx context.Context, userID string, req *dto.CreateBookingRequest) (*domain.Booking, error) {
	ctx, span := telemetry.StartSpan(ctx, "service.booking.create")
	defer span.End()

	start := s.now()

	if userID == "" {
		span.SetStatus(codes.Error, "invalid user_id")
		return nil, domain.ErrInvalidUserID
	}
	if req == nil || req.PackageID == "" {
		span.SetStatus(codes.Error, "invalid package_id")
		return nil, domain.ErrInvalidPackageID
	}
	if req.Adults < 1 || req.Children < 0 || req.Infants < 0 {
		span.SetStatus(codes.Error, "invalid participants")
		return nil, domain.ErrInvalidParticipants
	}

	travelDate, err := time.Parse(dto.DateFormat, req.TravelDate)
	if err != nil || !travelDate.After(start) {
		span.SetStatus(codes.Error, "invalid travel date")
		return nil, domain.ErrInvalidTravelDate
	}

	span.SetAttributes(
		attribute.String("user_id", userID),
		attribute.String("package_id", req.PackageID),
		attribute.Int("adults", req.Adults),
		attribute.Int("children", req.Children),
	)

	var booking *domain.Booking

	result := retry.Do(ctx, s.retryCfg, func(ctx context.Context) error {
		booking = nil
		err := s.transactor.WithTx(ctx, func(ctx context.Context) error {
			b, err := s.createBookingTx(ctx, userID, req, travelDate, start)
			if err != nil {
				return err
			}
			booking = b
			return nil
		})
		if err != nil && !repository.IsSerializationFailure(err) {
			return retry.Permanent(err)
		}
		return err
	})
	if result.Err != nil {
		metrics.RecordBookingFailed(ctx, req.PackageID, result.Err.Error())
		span.SetStatus(codes.Error, result.Err.Error())
		return nil, result.Err
	}

	_ = s.cache.Invalidate(ctx, booking.PackageID, booking.TravelDate)

	// Event publication is after commit and best-effort. Consumers reconcile
	// from the bookings table if a message is lost.
	if err := s.publisher.PublishBookingCreated(ctx, booking); err != nil {
		telemetry.SetSpanError(ctx, err)
	}

	metrics.RecordBookingCreated(ctx, booking.PackageID, s.now().Sub(start).Seconds())
	span.SetAttributes(attribute.String("booking_id", booking.ID))
	span.SetStatus(codes.Ok, "")
	return booking, nil
}

// createBookingTx runs the booking steps inside the caller's transaction.
func (s *bookingService) createBookingTx(ctx context.Context, userID string, req *dto.CreateBookingRequest, travelDate, now time.Time) (*domain.Booking, error) {
	slots := req.Adults + req.Children

	// A valid hold already accounts for the slots, so the hold path skips
	// the row lock and capacity check entirely. A hold too small for the
	// request falls back to the locked path for a fresh check.
	var hold *domain.InventoryHold
	if req.HoldToken != "" {
		h, err := s.holdRepo.GetActiveByToken(ctx, req.HoldToken, userID)
		if err != nil {
			return nil, err
		}
		if h.IsExpired(now) {
			return nil, domain.ErrHoldExpired
		}
		if h.PackageID != req.PackageID || !h.TravelDate.Equal(travelDate) {
			return nil, domain.ErrHoldNotFound
		}
		if h.SlotsHeld >= slots {
			hold = h
		}
	}

	if hold == nil {
		pkg, err := s.packageRepo.GetForUpdate(ctx, req.PackageID)
		if err != nil {
			return nil, err
		}
		if !pkg.IsActive {
			return nil, domain.ErrPackageNotFound
		}

		av, err := s.packageRepo.GetAvailability(ctx, req.PackageID, travelDate)
		if err != nil {
			return nil, err
		}
		held, err := s.holdRepo.SumActiveSlots(ctx, req.PackageID, travelDate, now)
		if err != nil {
			return nil, err
		}
		if slots > pkg.FreeSlots(av, held) {
			return nil, domain.ErrCapacityExceeded
		}
	}

	quote, err := s.pricing.Quote(ctx, userID, req.PackageID, travelDate, slots, req.PromoCode)
	if err != nil {
		return nil, err
	}

	// Resolved before the insert so the stored row carries the attribution.
	agent, err := s.agentRepo.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	booking := &domain.Booking{
		ID:            uuid.New().String(),
		BookingNumber: domain.NewBookingNumber(),
		PackageID:     req.PackageID,
		UserID:        userID,
		TravelDate:    travelDate,
		Adults:        req.Adults,
		Children:      req.Children,
		Infants:       req.Infants,
		PackagePrice:  quote.UnitPrice,
		Discount:      quote.PromoDiscount,
		PromoDiscount: quote.PromoDiscount,
		Tax:           quote.Tax,
		TotalAmount:   quote.TotalAmount,
		Status:        domain.BookingStatusPending,
		PaymentStatus: domain.PaymentStatusPending,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if quote.Promo != nil {
		booking.PromoCodeID = &quote.Promo.ID
	}
	if hold != nil {
		booking.HoldToken = &hold.HoldToken
	}
	if agent != nil {
		booking.AgentID = &agent.ID
	}

	if err := s.bookingRepo.Create(ctx, booking); err != nil {
		return nil, err
	}

	if hold != nil {
		if err := s.holdRepo.MarkConverted(ctx, hold.ID, booking.ID); err != nil {
			return nil, err
		}
	}

	if err := s.packageRepo.IncrementBooked(ctx, req.PackageID, travelDate, slots); err != nil {
		return nil, err
	}

	if quote.Promo != nil {
		usage := &domain.PromoCodeUsage{
			ID:              uuid.New().String(),
			PromoCodeID:     quote.Promo.ID,
			UserID:          userID,
			BookingID:       booking.ID,
			DiscountApplied: quote.PromoDiscount,
			CreatedAt:       now,
		}
		if err := s.promoRepo.RecordUsage(ctx, usage); err != nil {
			return nil, err
		}
		if err := s.promoRepo.IncrementUsageCount(ctx, quote.Promo.ID); err != nil {
			return nil, err
		}
		metrics.RecordPromoApplied(ctx, quote.Promo.Code)
	}

	if agent != nil {
		commission := domain.NewAgentCommission(agent, booking.ID, booking.TotalAmount, now)
		commission.ID = uuid.New().String()
		if err := s.commissionRepo.Create(ctx, commission); err != nil {
			return nil, err
		}
	}

	return booking, nil
}

// ConfirmBooking transitions a pending booking to confirmed
func (s *bookingService) ConfirmBooking(ctx context.Context, bookingID, userID string) (*domain.Booking, error) {
	ctx, span := telemetry.StartSpan(ctx, "service.booking.confirm")
	defer span.End()

	span.SetAttributes(attribute.String("booking_id", bookingID))

	booking, err := s.GetBooking(ctx, bookingID, userID)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	now := s.now()
	if err := s.bookingRepo.Confirm(ctx, bookingID, now); err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	booking.Status = domain.BookingStatusConfirmed
	if booking.ConfirmedAt == nil {
		booking.ConfirmedAt = &now
	}

	if err := s.publisher.PublishBookingConfirmed(ctx, booking); err != nil {
		telemetry.SetSpanError(ctx, err)
	}

	metrics.RecordBookingConfirmed(ctx, booking.PackageID)
	span.SetStatus(codes.Ok, "")
	return booking, nil
}

// GetBooking retrieves a booking owned by the user. A booking belonging to
// another user is reported as not found rather than forbidden.
func (s *bookingService) GetBooking(ctx context.Context, bookingID, userID string) (*domain.Booking, error) {
	ctx, span := telemetry.StartSpan(ctx, "service.booking.get")
	defer span.End()

	span.SetAttributes(attribute.String("booking_id", bookingID))

	if bookingID == "" {
		span.SetStatus(codes.Error, "invalid booking_id")
		return nil, domain.ErrInvalidBookingID
	}

	booking, err := s.bookingRepo.GetByID(ctx, bookingID)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	if userID != "" && !booking.BelongsToUser(userID) {
		span.SetStatus(codes.Error, "not owner")
		return nil, domain.ErrBookingNotFound
	}

	span.SetStatus(codes.Ok, "")
	return booking, nil
}

// ListBookings retrieves the user's bookings, newest first
func (s *bookingService) ListBookings(ctx context.Context, userID string, req *dto.ListBookingsRequest) ([]*domain.Booking, error) {
	ctx, span := telemetry.StartSpan(ctx, "service.booking.list")
	defer span.End()

	span.SetAttributes(attribute.String("user_id", userID))

	if userID == "" {
		span.SetStatus(codes.Error, "invalid user_id")
		return nil, domain.ErrInvalidUserID
	}

	filter := repository.BookingListFilter{UserID: userID}
	if req != nil {
		filter.Status = req.Status
		filter.PaymentStatus = req.PaymentStatus
		if req.DateFrom != "" {
			if from, err := time.Parse(dto.DateFormat, req.DateFrom); err == nil {
				filter.DateFrom = &from
			}
		}
		if req.DateTo != "" {
			if to, err := time.Parse(dto.DateFormat, req.DateTo); err == nil {
				filter.DateTo = &to
			}
		}
		pageSize := req.PageSize
		if pageSize <= 0 || pageSize > 100 {
			pageSize = 20
		}
		page := req.Page
		if page < 1 {
			page = 1
		}
		filter.Limit = pageSize
		filter.Offset = (page - 1) * pageSize
	}

	bookings, err := s.bookingRepo.List(ctx, filter)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	span.SetAttributes(attribute.Int("count", len(bookings)))
	span.SetStatus(codes.Ok, "")
	return bookings, nil
}

var _ BookingService = (*bookingService)(nil)
