package handler

import (
	"context"
	"time"

	"github.com/voyago/booking-core/internal/domain"
	"github.com/voyago/booking-core/internal/dto"
	"github.com/voyago/booking-core/internal/service"
)

// MockHoldService is a mock implementation of service.HoldService
type MockHoldService struct {
	CreateHoldFunc      func(ctx context.Context, userID, packageID string, travelDate time.Time, participants int) (*domain.InventoryHold, int, error)
	ReleaseHoldFunc     func(ctx context.Context, userID, token string) error
	GetAvailabilityFunc func(ctx context.Context, packageID string, travelDate time.Time) (int, float64, error)
	SweepExpiredFunc    func(ctx context.Context, limit int) (int64, error)
}

func (m *MockHoldService) CreateHold(ctx context.Context, userID, packageID string, travelDate time.Time, participants int) (*domain.InventoryHold, int, error) {
	if m.CreateHoldFunc != nil {
		return m.CreateHoldFunc(ctx, userID, packageID, travelDate, participants)
	}
	return nil, 0, domain.ErrPackageNotFound
}

func (m *MockHoldService) ReleaseHold(ctx context.Context, userID, token string) error {
	if m.ReleaseHoldFunc != nil {
		return m.ReleaseHoldFunc(ctx, userID, token)
	}
	return nil
}

func (m *MockHoldService) GetAvailability(ctx context.Context, packageID string, travelDate time.Time) (int, float64, error) {
	if m.GetAvailabilityFunc != nil {
		return m.GetAvailabilityFunc(ctx, packageID, travelDate)
	}
	return 0, 0, domain.ErrPackageNotFound
}

func (m *MockHoldService) SweepExpired(ctx context.Context, limit int) (int64, error) {
	if m.SweepExpiredFunc != nil {
		return m.SweepExpiredFunc(ctx, limit)
	}
	return 0, nil
}

// MockBookingService is a mock implementation of service.BookingService
type MockBookingService struct {
	CreateBookingFunc  func(ctx context.Context, userID string, req *dto.CreateBookingRequest) (*domain.Booking, error)
	ConfirmBookingFunc func(ctx context.Context, bookingID, userID string) (*domain.Booking, error)
	GetBookingFunc     func(ctx context.Context, bookingID, userID string) (*domain.Booking, error)
	ListBookingsFunc   func(ctx context.Context, userID string, req *dto.ListBookingsRequest) ([]*domain.Booking, error)
}

func (m *MockBookingService) CreateBooking(ctx context.Context, userID string, req *dto.CreateBookingRequest) (*domain.Booking, error) {
	if m.CreateBookingFunc != nil {
		return m.CreateBookingFunc(ctx, userID, req)
	}
	return nil, domain.ErrBookingNotFound
}

func (m *MockBookingService) ConfirmBooking(ctx context.Context, bookingID, userID string) (*domain.Booking, error) {
	if m.ConfirmBookingFunc != nil {
		return m.ConfirmBookingFunc(ctx, bookingID, userID)
	}
	return nil, domain.ErrBookingNotFound
}

func (m *MockBookingService) GetBooking(ctx context.Context, bookingID, userID string) (*domain.Booking, error) {
	if m.GetBookingFunc != nil {
		return m.GetBookingFunc(ctx, bookingID, userID)
	}
	return nil, domain.ErrBookingNotFound
}

func (m *MockBookingService) ListBookings(ctx context.Context, userID string, req *dto.ListBookingsRequest) ([]*domain.Booking, error) {
	if m.ListBookingsFunc != nil {
		return m.ListBookingsFunc(ctx, userID, req)
	}
	return []*domain.Booking{}, nil
}

// MockCancellationService is a mock implementation of service.CancellationService
type MockCancellationService struct {
	PreviewCancellationFunc func(ctx context.Context, bookingID, userID string) (*service.CancellationPreview, error)
	CancelBookingFunc       func(ctx context.Context, bookingID, userID, reason string) (*domain.Booking, error)
}

func (m *MockCancellationService) PreviewCancellation(ctx context.Context, bookingID, userID string) (*service.CancellationPreview, error) {
	if m.PreviewCancellationFunc != nil {
		return m.PreviewCancellationFunc(ctx, bookingID, userID)
	}
	return nil, domain.ErrBookingNotFound
}

func (m *MockCancellationService) CancelBooking(ctx context.Context, bookingID, userID, reason string) (*domain.Booking, error) {
	if m.CancelBookingFunc != nil {
		return m.CancelBookingFunc(ctx, bookingID, userID, reason)
	}
	return nil, domain.ErrBookingNotFound
}

// MockPricingService is a mock implementation of service.PricingService
type MockPricingService struct {
	QuoteFunc         func(ctx context.Context, userID, packageID string, travelDate time.Time, participants int, promoCode string) (*service.PriceQuote, error)
	ValidatePromoFunc func(ctx context.Context, userID, code, packageID string, travelDate time.Time, participants int) (*service.PriceQuote, error)
}

func (m *MockPricingService) Quote(ctx context.Context, userID, packageID string, travelDate time.Time, participants int, promoCode string) (*service.PriceQuote, error) {
	if m.QuoteFunc != nil {
		return m.QuoteFunc(ctx, userID, packageID, travelDate, participants, promoCode)
	}
	return nil, domain.ErrPackageNotFound
}

func (m *MockPricingService) ValidatePromo(ctx context.Context, userID, code, packageID string, travelDate time.Time, participants int) (*service.PriceQuote, error) {
	if m.ValidatePromoFunc != nil {
		return m.ValidatePromoFunc(ctx, userID, code, packageID, travelDate, participants)
	}
	return nil, domain.ErrPromoNotFound
}

// MockIdempotencyService is a mock implementation of service.IdempotencyService
type MockIdempotencyService struct {
	ExecuteFunc       func(ctx context.Context, key, userID, endpoint, method string, requestBody []byte, fn service.IdempotentFn) (*service.IdempotentResult, error)
	DeleteExpiredFunc func(ctx context.Context, limit int) (int64, error)
	ExecuteCalls      int
}

func (m *MockIdempotencyService) Execute(ctx context.Context, key, userID, endpoint, method string, requestBody []byte, fn service.IdempotentFn) (*service.IdempotentResult, error) {
	m.ExecuteCalls++
	if m.ExecuteFunc != nil {
		return m.ExecuteFunc(ctx, key, userID, endpoint, method, requestBody, fn)
	}
	status, body, err := fn(ctx)
	if err != nil {
		return nil, err
	}
	return &service.IdempotentResult{Status: status, Body: body}, nil
}

func (m *MockIdempotencyService) DeleteExpired(ctx context.Context, limit int) (int64, error) {
	if m.DeleteExpiredFunc != nil {
		return m.DeleteExpiredFunc(ctx, limit)
	}
	return 0, nil
}
