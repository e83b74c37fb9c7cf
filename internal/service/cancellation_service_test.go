package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/voyago/booking-core/internal/domain"
)

type cancellationDeps struct {
	bookingRepo    *MockBookingRepository
	packageRepo    *MockPackageRepository
	policyRepo     *MockPolicyRepository
	commissionRepo *MockCommissionRepository
	transactor     *MockTransactor
	publisher      *MockEventPublisher
	cache          *MockAvailabilityCache
}

func defaultCancellationDeps(booking *domain.Booking, policy *domain.CancellationPolicy) *cancellationDeps {
	pkg := activePackage()
	if policy != nil {
		pkg.CancellationPolicyID = &policy.ID
	}
	return &cancellationDeps{
		bookingRepo: &MockBookingRepository{
			GetByIDFunc: func(ctx context.Context, id string) (*domain.Booking, error) {
				if booking != nil && id == booking.ID {
					return booking, nil
				}
				return nil, domain.ErrBookingNotFound
			},
		},
		packageRepo: &MockPackageRepository{
			GetByIDFunc: func(ctx context.Context, id string) (*domain.Package, error) {
				return pkg, nil
			},
		},
		policyRepo: &MockPolicyRepository{
			GetByIDFunc: func(ctx context.Context, id string) (*domain.CancellationPolicy, error) {
				if policy != nil && id == policy.ID {
					return policy, nil
				}
				return nil, nil
			},
		},
		commissionRepo: &MockCommissionRepository{},
		transactor:     &MockTransactor{},
		publisher:      &MockEventPublisher{},
		cache:          &MockAvailabilityCache{},
	}
}

func (d *cancellationDeps) build() CancellationService {
	return NewCancellationService(
		d.bookingRepo,
		d.packageRepo,
		d.policyRepo,
		d.commissionRepo,
		d.transactor,
		d.publisher,
		d.cache,
	)
}

func confirmedBooking(daysOut int) *domain.Booking {
	return &domain.Booking{
		ID:         "booking-1",
		PackageID:  "pkg-1",
		UserID:     "user-1",
		TravelDate: time.Now().AddDate(0, 0, daysOut).Add(time.Hour),
		Adults:     2,
		Children:   1,
		PaidAmount: 200,
		Status:     domain.BookingStatusConfirmed,
	}
}

func TestCancellationService_PreviewCancellation(t *testing.T) {
	policy := standardTestPolicy()

	tests := []struct {
		name       string
		daysOut    int
		wantRefund float64
		wantFee    float64
	}{
		{name: "full refund tier", daysOut: 35, wantRefund: 200, wantFee: 0},
		{name: "partial refund tier", daysOut: 10, wantRefund: 80, wantFee: 120},
		{name: "no refund tier", daysOut: 3, wantRefund: 0, wantFee: 200},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			deps := defaultCancellationDeps(confirmedBooking(tt.daysOut), policy)
			svc := deps.build()

			preview, err := svc.PreviewCancellation(context.Background(), "booking-1", "user-1")
			require.NoError(t, err)

			assert.Equal(t, tt.wantRefund, preview.Quote.RefundAmount)
			assert.Equal(t, tt.wantFee, preview.Quote.CancellationFee)
			assert.Equal(t, "Standard", preview.PolicyName)
		})
	}
}

func TestCancellationService_PreviewCancellation_FallsBackToDefaultPolicy(t *testing.T) {
	// The package has no policy of its own.
	deps := defaultCancellationDeps(confirmedBooking(40), nil)
	deps.policyRepo.GetDefaultFunc = func(ctx context.Context) (*domain.CancellationPolicy, error) {
		return standardTestPolicy(), nil
	}
	svc := deps.build()

	preview, err := svc.PreviewCancellation(context.Background(), "booking-1", "user-1")
	require.NoError(t, err)
	assert.Equal(t, 200.0, preview.Quote.RefundAmount)
	assert.Equal(t, "Standard", preview.PolicyName)
}

func TestCancellationService_PreviewCancellation_InactivePolicyFallsBack(t *testing.T) {
	inactive := standardTestPolicy()
	inactive.IsActive = false
	deps := defaultCancellationDeps(confirmedBooking(40), inactive)

	fallback := &domain.CancellationPolicy{
		ID:       "policy-default",
		Name:     "Default",
		IsActive: true,
		Rules: []domain.CancellationPolicyRule{
			{DaysBeforeTravel: 0, RefundPercentage: 25},
		},
	}
	deps.policyRepo.GetDefaultFunc = func(ctx context.Context) (*domain.CancellationPolicy, error) {
		return fallback, nil
	}
	svc := deps.build()

	preview, err := svc.PreviewCancellation(context.Background(), "booking-1", "user-1")
	require.NoError(t, err)
	assert.Equal(t, "Default", preview.PolicyName)
	assert.Equal(t, 50.0, preview.Quote.RefundAmount)
}

func TestCancellationService_PreviewCancellation_NoPolicyMeansNoRefund(t *testing.T) {
	deps := defaultCancellationDeps(confirmedBooking(40), nil)
	svc := deps.build()

	preview, err := svc.PreviewCancellation(context.Background(), "booking-1", "user-1")
	require.NoError(t, err)

	assert.Equal(t, 0.0, preview.Quote.RefundAmount)
	assert.Equal(t, 200.0, preview.Quote.CancellationFee)
	assert.Empty(t, preview.PolicyName)
}

func TestCancellationService_CancelBooking_Success(t *testing.T) {
	booking := confirmedBooking(35)
	deps := defaultCancellationDeps(booking, standardTestPolicy())

	var persisted *domain.Booking
	deps.bookingRepo.CancelFunc = func(ctx context.Context, b *domain.Booking) error {
		persisted = b
		return nil
	}
	var returnedSlots int
	deps.packageRepo.DecrementBookedFunc = func(ctx context.Context, packageID string, date time.Time, n int) error {
		returnedSlots = n
		return nil
	}
	var cancelledCommission string
	deps.commissionRepo.CancelByBookingIDFunc = func(ctx context.Context, bookingID string) error {
		cancelledCommission = bookingID
		return nil
	}

	svc := deps.build()
	result, err := svc.CancelBooking(context.Background(), "booking-1", "user-1", "change of plans")
	require.NoError(t, err)

	assert.Equal(t, domain.BookingStatusCancelled, result.Status)
	assert.Equal(t, "change of plans", result.CancellationReason)
	assert.Equal(t, 200.0, result.RefundAmount)
	assert.Equal(t, 0.0, result.CancellationFee)
	assert.NotNil(t, result.CancelledAt)

	require.NotNil(t, persisted)
	assert.Equal(t, 3, returnedSlots, "adults and children return to inventory, infants never held one")
	assert.Equal(t, "booking-1", cancelledCommission)

	require.Len(t, deps.publisher.Cancelled, 1)
	assert.Equal(t, []string{"pkg-1"}, deps.cache.Invalidations)
}

func TestCancellationService_CancelBooking_AlreadyCancelled(t *testing.T) {
	booking := confirmedBooking(35)
	booking.Status = domain.BookingStatusCancelled
	deps := defaultCancellationDeps(booking, standardTestPolicy())
	svc := deps.build()

	_, err := svc.CancelBooking(context.Background(), "booking-1", "user-1", "")
	assert.ErrorIs(t, err, domain.ErrBookingAlreadyCancelled)

	_, err = svc.PreviewCancellation(context.Background(), "booking-1", "user-1")
	assert.ErrorIs(t, err, domain.ErrBookingAlreadyCancelled)
}

func TestCancellationService_CancelBooking_CompletedNotCancellable(t *testing.T) {
	booking := confirmedBooking(35)
	booking.Status = domain.BookingStatusCompleted
	deps := defaultCancellationDeps(booking, standardTestPolicy())
	svc := deps.build()

	_, err := svc.CancelBooking(context.Background(), "booking-1", "user-1", "")
	assert.ErrorIs(t, err, domain.ErrBookingNotCancellable)
}

func TestCancellationService_CancelBooking_WrongOwner(t *testing.T) {
	deps := defaultCancellationDeps(confirmedBooking(35), standardTestPolicy())
	svc := deps.build()

	_, err := svc.CancelBooking(context.Background(), "booking-1", "intruder", "")
	assert.ErrorIs(t, err, domain.ErrBookingNotFound)
}

func TestCancellationService_CancelBooking_TxFailureLeavesBookingUntouched(t *testing.T) {
	booking := confirmedBooking(35)
	deps := defaultCancellationDeps(booking, standardTestPolicy())
	deps.packageRepo.DecrementBookedFunc = func(ctx context.Context, packageID string, date time.Time, n int) error {
		return assert.AnError
	}
	svc := deps.build()

	_, err := svc.CancelBooking(context.Background(), "booking-1", "user-1", "")
	require.Error(t, err)
	assert.Empty(t, deps.publisher.Cancelled, "no event when the transaction fails")
}

// standardTestPolicy mirrors a typical three tier refund schedule.
func standardTestPolicy() *domain.CancellationPolicy {
	return &domain.CancellationPolicy{
		ID:       "policy-1",
		Name:     "Standard",
		IsActive: true,
		Rules: []domain.CancellationPolicyRule{
			{DaysBeforeTravel: 30, RefundPercentage: 100, FeeAmount: 0},
			{DaysBeforeTravel: 7, RefundPercentage: 50, FeeAmount: 20},
			{DaysBeforeTravel: 0, RefundPercentage: 0, FeeAmount: 0},
		},
	}
}
