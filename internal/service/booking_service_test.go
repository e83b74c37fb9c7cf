package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/voyago/booking-core/internal/domain"
	"github.com/voyago/booking-core/internal/dto"
	"github.com/voyago/booking-core/internal/repository"
)

type bookingServiceDeps struct {
	packageRepo    *MockPackageRepository
	holdRepo       *MockHoldRepository
	bookingRepo    *MockBookingRepository
	promoRepo      *MockPromoRepository
	agentRepo      *MockAgentRepository
	commissionRepo *MockCommissionRepository
	transactor     *MockTransactor
	publisher      *MockEventPublisher
	cache          *MockAvailabilityCache
}

func defaultBookingDeps() *bookingServiceDeps {
	pkg := activePackage()
	return &bookingServiceDeps{
		packageRepo: &MockPackageRepository{
			GetByIDFunc: func(ctx context.Context, id string) (*domain.Package, error) {
				return pkg, nil
			},
			GetForUpdateFunc: func(ctx context.Context, id string) (*domain.Package, error) {
				return pkg, nil
			},
			GetAvailabilityFunc: func(ctx context.Context, packageID string, date time.Time) (*domain.PackageAvailability, error) {
				return &domain.PackageAvailability{PackageID: packageID, AvailableSlots: 10, BookedSlots: 0}, nil
			},
		},
		holdRepo:       &MockHoldRepository{},
		bookingRepo:    &MockBookingRepository{},
		promoRepo:      &MockPromoRepository{},
		agentRepo:      &MockAgentRepository{},
		commissionRepo: &MockCommissionRepository{},
		transactor:     &MockTransactor{},
		publisher:      &MockEventPublisher{},
		cache:          &MockAvailabilityCache{},
	}
}

func (d *bookingServiceDeps) build() BookingService {
	pricing := NewPricingService(d.packageRepo, d.promoRepo, nil)
	return NewBookingService(
		d.packageRepo,
		d.holdRepo,
		d.bookingRepo,
		d.promoRepo,
		d.agentRepo,
		d.commissionRepo,
		d.transactor,
		pricing,
		d.publisher,
		d.cache,
		nil,
	)
}

func futureDate() string {
	return time.Now().AddDate(0, 0, 30).Format(dto.DateFormat)
}

func TestBookingService_CreateBooking_Success(t *testing.T) {
	deps := defaultBookingDeps()

	var created *domain.Booking
	deps.bookingRepo.CreateFunc = func(ctx context.Context, booking *domain.Booking) error {
		created = booking
		return nil
	}
	var incremented int
	deps.packageRepo.IncrementBookedFunc = func(ctx context.Context, packageID string, date time.Time, n int) error {
		incremented = n
		return nil
	}

	svc := deps.build()
	booking, err := svc.CreateBooking(context.Background(), "user-1", &dto.CreateBookingRequest{
		PackageID:  "pkg-1",
		TravelDate: futureDate(),
		Adults:     2,
		Children:   1,
		Infants:    1,
	})
	require.NoError(t, err)

	require.NotNil(t, created)
	assert.Equal(t, created.ID, booking.ID)
	assert.NotEmpty(t, booking.BookingNumber)
	assert.Equal(t, domain.BookingStatusPending, booking.Status)
	assert.Equal(t, domain.PaymentStatusPending, booking.PaymentStatus)

	// 3 participants at 100 each, 10% tax.
	assert.Equal(t, 100.0, booking.PackagePrice)
	assert.Equal(t, 30.0, booking.Tax)
	assert.Equal(t, 330.0, booking.TotalAmount)

	// Infants ride free and do not consume slots.
	assert.Equal(t, 3, incremented)

	require.Len(t, deps.publisher.Created, 1)
	assert.Equal(t, booking.ID, deps.publisher.Created[0].ID)
	assert.Equal(t, []string{"pkg-1"}, deps.cache.Invalidations)
}

func TestBookingService_CreateBooking_Validation(t *testing.T) {
	svc := defaultBookingDeps().build()

	tests := []struct {
		name    string
		userID  string
		req     *dto.CreateBookingRequest
		wantErr error
	}{
		{
			name:    "missing user",
			req:     &dto.CreateBookingRequest{PackageID: "pkg-1", TravelDate: futureDate(), Adults: 1},
			wantErr: domain.ErrInvalidUserID,
		},
		{
			name:    "nil request",
			userID:  "user-1",
			wantErr: domain.ErrInvalidPackageID,
		},
		{
			name:    "no adults",
			userID:  "user-1",
			req:     &dto.CreateBookingRequest{PackageID: "pkg-1", TravelDate: futureDate(), Adults: 0, Children: 2},
			wantErr: domain.ErrInvalidParticipants,
		},
		{
			name:    "negative children",
			userID:  "user-1",
			req:     &dto.CreateBookingRequest{PackageID: "pkg-1", TravelDate: futureDate(), Adults: 1, Children: -1},
			wantErr: domain.ErrInvalidParticipants,
		},
		{
			name:    "unparseable travel date",
			userID:  "user-1",
			req:     &dto.CreateBookingRequest{PackageID: "pkg-1", TravelDate: "30/12/2026", Adults: 1},
			wantErr: domain.ErrInvalidTravelDate,
		},
		{
			name:    "past travel date",
			userID:  "user-1",
			req:     &dto.CreateBookingRequest{PackageID: "pkg-1", TravelDate: "2020-01-01", Adults: 1},
			wantErr: domain.ErrInvalidTravelDate,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.CreateBooking(context.Background(), tt.userID, tt.req)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestBookingService_CreateBooking_CapacityExceeded(t *testing.T) {
	deps := defaultBookingDeps()
	deps.packageRepo.GetAvailabilityFunc = func(ctx context.Context, packageID string, date time.Time) (*domain.PackageAvailability, error) {
		return &domain.PackageAvailability{AvailableSlots: 2, BookedSlots: 1}, nil
	}
	deps.bookingRepo.CreateFunc = func(ctx context.Context, booking *domain.Booking) error {
		t.Fatal("no booking should be created when capacity is exceeded")
		return nil
	}

	svc := deps.build()
	_, err := svc.CreateBooking(context.Background(), "user-1", &dto.CreateBookingRequest{
		PackageID:  "pkg-1",
		TravelDate: futureDate(),
		Adults:     2,
	})
	assert.ErrorIs(t, err, domain.ErrCapacityExceeded)
	assert.Empty(t, deps.publisher.Created)
}

func TestBookingService_CreateBooking_WithHold(t *testing.T) {
	deps := defaultBookingDeps()
	travelDate, _ := time.Parse(dto.DateFormat, futureDate())

	hold := &domain.InventoryHold{
		ID:         "hold-1",
		PackageID:  "pkg-1",
		UserID:     "user-1",
		TravelDate: travelDate,
		SlotsHeld:  3,
		HoldToken:  "tok-1",
		ExpiresAt:  time.Now().Add(10 * time.Minute),
		Status:     domain.HoldStatusActive,
	}
	deps.holdRepo.GetActiveByTokenFunc = func(ctx context.Context, token, userID string) (*domain.InventoryHold, error) {
		return hold, nil
	}
	var convertedBookingID string
	deps.holdRepo.MarkConvertedFunc = func(ctx context.Context, holdID, bookingID string) error {
		assert.Equal(t, "hold-1", holdID)
		convertedBookingID = bookingID
		return nil
	}
	deps.packageRepo.GetForUpdateFunc = func(ctx context.Context, id string) (*domain.Package, error) {
		t.Fatal("a covering hold must skip the locked capacity check")
		return nil, nil
	}

	svc := deps.build()
	booking, err := svc.CreateBooking(context.Background(), "user-1", &dto.CreateBookingRequest{
		PackageID:  "pkg-1",
		TravelDate: futureDate(),
		Adults:     2,
		Children:   1,
		HoldToken:  "tok-1",
	})
	require.NoError(t, err)

	assert.Equal(t, booking.ID, convertedBookingID)
	require.NotNil(t, booking.HoldToken)
	assert.Equal(t, "tok-1", *booking.HoldToken)
}

func TestBookingService_CreateBooking_ExpiredHold(t *testing.T) {
	deps := defaultBookingDeps()
	travelDate, _ := time.Parse(dto.DateFormat, futureDate())

	deps.holdRepo.GetActiveByTokenFunc = func(ctx context.Context, token, userID string) (*domain.InventoryHold, error) {
		return &domain.InventoryHold{
			PackageID:  "pkg-1",
			TravelDate: travelDate,
			SlotsHeld:  2,
			ExpiresAt:  time.Now().Add(-time.Minute),
			Status:     domain.HoldStatusActive,
		}, nil
	}

	svc := deps.build()
	_, err := svc.CreateBooking(context.Background(), "user-1", &dto.CreateBookingRequest{
		PackageID:  "pkg-1",
		TravelDate: futureDate(),
		Adults:     2,
		HoldToken:  "tok-1",
	})
	assert.ErrorIs(t, err, domain.ErrHoldExpired)
}

func TestBookingService_CreateBooking_HoldPackageMismatch(t *testing.T) {
	deps := defaultBookingDeps()
	travelDate, _ := time.Parse(dto.DateFormat, futureDate())

	deps.holdRepo.GetActiveByTokenFunc = func(ctx context.Context, token, userID string) (*domain.InventoryHold, error) {
		return &domain.InventoryHold{
			PackageID:  "pkg-other",
			TravelDate: travelDate,
			SlotsHeld:  2,
			ExpiresAt:  time.Now().Add(10 * time.Minute),
			Status:     domain.HoldStatusActive,
		}, nil
	}

	svc := deps.build()
	_, err := svc.CreateBooking(context.Background(), "user-1", &dto.CreateBookingRequest{
		PackageID:  "pkg-1",
		TravelDate: futureDate(),
		Adults:     2,
		HoldToken:  "tok-1",
	})
	assert.ErrorIs(t, err, domain.ErrHoldNotFound)
}

func TestBookingService_CreateBooking_HoldTooSmallFallsBack(t *testing.T) {
	deps := defaultBookingDeps()
	travelDate, _ := time.Parse(dto.DateFormat, futureDate())

	deps.holdRepo.GetActiveByTokenFunc = func(ctx context.Context, token, userID string) (*domain.InventoryHold, error) {
		return &domain.InventoryHold{
			ID:         "hold-1",
			PackageID:  "pkg-1",
			TravelDate: travelDate,
			SlotsHeld:  1,
			ExpiresAt:  time.Now().Add(10 * time.Minute),
			Status:     domain.HoldStatusActive,
		}, nil
	}
	var locked bool
	pkg := activePackage()
	deps.packageRepo.GetForUpdateFunc = func(ctx context.Context, id string) (*domain.Package, error) {
		locked = true
		return pkg, nil
	}
	deps.holdRepo.MarkConvertedFunc = func(ctx context.Context, holdID, bookingID string) error {
		t.Fatal("an undersized hold must not be converted")
		return nil
	}

	svc := deps.build()
	booking, err := svc.CreateBooking(context.Background(), "user-1", &dto.CreateBookingRequest{
		PackageID:  "pkg-1",
		TravelDate: futureDate(),
		Adults:     3,
		HoldToken:  "tok-1",
	})
	require.NoError(t, err)
	assert.True(t, locked, "an undersized hold falls back to the locked capacity check")
	assert.Nil(t, booking.HoldToken)
}

func TestBookingService_CreateBooking_RecordsPromoUsage(t *testing.T) {
	deps := defaultBookingDeps()
	deps.promoRepo.GetByCodeFunc = func(ctx context.Context, code string) (*domain.PromoCode, error) {
		return &domain.PromoCode{
			ID:            "promo-1",
			Code:          "TEN",
			DiscountType:  domain.DiscountTypePercentage,
			DiscountValue: 10,
			IsActive:      true,
		}, nil
	}
	var usage *domain.PromoCodeUsage
	deps.promoRepo.RecordUsageFunc = func(ctx context.Context, u *domain.PromoCodeUsage) error {
		usage = u
		return nil
	}
	var bumpedID string
	deps.promoRepo.IncrementUsageCountFunc = func(ctx context.Context, promoCodeID string) error {
		bumpedID = promoCodeID
		return nil
	}

	svc := deps.build()
	booking, err := svc.CreateBooking(context.Background(), "user-1", &dto.CreateBookingRequest{
		PackageID:  "pkg-1",
		TravelDate: futureDate(),
		Adults:     2,
		PromoCode:  "TEN",
	})
	require.NoError(t, err)

	require.NotNil(t, booking.PromoCodeID)
	assert.Equal(t, "promo-1", *booking.PromoCodeID)
	assert.Equal(t, 20.0, booking.PromoDiscount)
	assert.Equal(t, 198.0, booking.TotalAmount)

	require.NotNil(t, usage)
	assert.Equal(t, booking.ID, usage.BookingID)
	assert.Equal(t, 20.0, usage.DiscountApplied)
	assert.Equal(t, "promo-1", bumpedID)
}

func TestBookingService_CreateBooking_AgentCommission(t *testing.T) {
	deps := defaultBookingDeps()
	deps.agentRepo.GetByIDFunc = func(ctx context.Context, id string) (*domain.Agent, error) {
		return &domain.Agent{ID: id, CommissionRate: 10}, nil
	}
	var commission *domain.AgentCommission
	deps.commissionRepo.CreateFunc = func(ctx context.Context, c *domain.AgentCommission) error {
		commission = c
		return nil
	}
	var inserted *domain.Booking
	deps.bookingRepo.CreateFunc = func(ctx context.Context, booking *domain.Booking) error {
		inserted = booking
		return nil
	}

	svc := deps.build()
	booking, err := svc.CreateBooking(context.Background(), "agent-user", &dto.CreateBookingRequest{
		PackageID:  "pkg-1",
		TravelDate: futureDate(),
		Adults:     2,
	})
	require.NoError(t, err)

	require.NotNil(t, booking.AgentID)
	assert.Equal(t, "agent-user", *booking.AgentID)

	// The attribution must be on the row at INSERT time, not patched onto the
	// returned struct afterwards.
	require.NotNil(t, inserted)
	require.NotNil(t, inserted.AgentID)
	assert.Equal(t, "agent-user", *inserted.AgentID)

	require.NotNil(t, commission)
	assert.Equal(t, booking.ID, commission.BookingID)
	assert.Equal(t, 10.0, commission.CommissionRate)
	assert.Equal(t, 22.0, commission.CommissionAmount)
	assert.Equal(t, domain.CommissionStatusPending, commission.Status)
}

func TestBookingService_CreateBooking_PermanentFailureNotRetried(t *testing.T) {
	deps := defaultBookingDeps()
	deps.bookingRepo.CreateFunc = func(ctx context.Context, booking *domain.Booking) error {
		return errors.New("insert failed")
	}

	svc := deps.build()
	_, err := svc.CreateBooking(context.Background(), "user-1", &dto.CreateBookingRequest{
		PackageID:  "pkg-1",
		TravelDate: futureDate(),
		Adults:     1,
	})
	require.Error(t, err)
	assert.Equal(t, 1, deps.transactor.Calls, "non-transient failures must not rerun the transaction")
	assert.Empty(t, deps.publisher.Created)
}

func TestBookingService_CreateBooking_SerializationFailureRetried(t *testing.T) {
	deps := defaultBookingDeps()
	attempts := 0
	deps.bookingRepo.CreateFunc = func(ctx context.Context, booking *domain.Booking) error {
		attempts++
		if attempts == 1 {
			return &pgconn.PgError{Code: "40001"}
		}
		return nil
	}

	svc := deps.build()
	booking, err := svc.CreateBooking(context.Background(), "user-1", &dto.CreateBookingRequest{
		PackageID:  "pkg-1",
		TravelDate: futureDate(),
		Adults:     1,
	})
	require.NoError(t, err)
	assert.Equal(t, 2, attempts)
	assert.NotNil(t, booking)
}

func TestBookingService_ConfirmBooking(t *testing.T) {
	deps := defaultBookingDeps()
	deps.bookingRepo.GetByIDFunc = func(ctx context.Context, id string) (*domain.Booking, error) {
		return &domain.Booking{ID: id, UserID: "user-1", PackageID: "pkg-1", Status: domain.BookingStatusPending}, nil
	}
	var confirmedID string
	deps.bookingRepo.ConfirmFunc = func(ctx context.Context, id string, now time.Time) error {
		confirmedID = id
		return nil
	}

	svc := deps.build()
	booking, err := svc.ConfirmBooking(context.Background(), "booking-1", "user-1")
	require.NoError(t, err)

	assert.Equal(t, "booking-1", confirmedID)
	assert.Equal(t, domain.BookingStatusConfirmed, booking.Status)
	assert.NotNil(t, booking.ConfirmedAt)
	require.Len(t, deps.publisher.Confirmed, 1)
}

func TestBookingService_GetBooking_OwnershipHidesExistence(t *testing.T) {
	deps := defaultBookingDeps()
	deps.bookingRepo.GetByIDFunc = func(ctx context.Context, id string) (*domain.Booking, error) {
		return &domain.Booking{ID: id, UserID: "owner"}, nil
	}

	svc := deps.build()

	_, err := svc.GetBooking(context.Background(), "booking-1", "someone-else")
	assert.ErrorIs(t, err, domain.ErrBookingNotFound)

	booking, err := svc.GetBooking(context.Background(), "booking-1", "owner")
	require.NoError(t, err)
	assert.Equal(t, "booking-1", booking.ID)
}

func TestBookingService_ListBookings(t *testing.T) {
	deps := defaultBookingDeps()
	var gotFilter repository.BookingListFilter
	deps.bookingRepo.ListFunc = func(ctx context.Context, filter repository.BookingListFilter) ([]*domain.Booking, error) {
		gotFilter = filter
		return []*domain.Booking{{ID: "b-1"}}, nil
	}

	svc := deps.build()
	bookings, err := svc.ListBookings(context.Background(), "user-1", &dto.ListBookingsRequest{
		Status:   "confirmed",
		Page:     3,
		PageSize: 10,
	})
	require.NoError(t, err)
	assert.Len(t, bookings, 1)

	assert.Equal(t, "user-1", gotFilter.UserID)
	assert.Equal(t, "confirmed", gotFilter.Status)
	assert.Equal(t, 10, gotFilter.Limit)
	assert.Equal(t, 20, gotFilter.Offset)
}

func TestBookingService_ListBookings_PaginationDefaults(t *testing.T) {
	deps := defaultBookingDeps()
	var gotFilter repository.BookingListFilter
	deps.bookingRepo.ListFunc = func(ctx context.Context, filter repository.BookingListFilter) ([]*domain.Booking, error) {
		gotFilter = filter
		return nil, nil
	}

	svc := deps.build()
	_, err := svc.ListBookings(context.Background(), "user-1", &dto.ListBookingsRequest{Page: 0, PageSize: 1000})
	require.NoError(t, err)

	assert.Equal(t, 20, gotFilter.Limit, "oversized page size clamps to the default")
	assert.Equal(t, 0, gotFilter.Offset)
}
