package service

import (
	"context"
	"time"

	"github.com/voyago/booking-core/internal/domain"
	"github.com/voyago/booking-core/internal/repository"
)

// MockTransactor runs the function directly. Set WithTxFunc to inject
// transaction failures.
type MockTransactor struct {
	WithTxFunc func(ctx context.Context, fn func(ctx context.Context) error) error
	Calls      int
}

func (m *MockTransactor) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	m.Calls++
	if m.WithTxFunc != nil {
		return m.WithTxFunc(ctx, fn)
	}
	return fn(ctx)
}

// MockPackageRepository is a mock implementation of PackageRepository
type MockPackageRepository struct {
	GetByIDFunc         func(ctx context.Context, id string) (*domain.Package, error)
	GetForUpdateFunc    func(ctx context.Context, id string) (*domain.Package, error)
	GetAvailabilityFunc func(ctx context.Context, packageID string, date time.Time) (*domain.PackageAvailability, error)
	IncrementBookedFunc func(ctx context.Context, packageID string, date time.Time, n int) error
	DecrementBookedFunc func(ctx context.Context, packageID string, date time.Time, n int) error
}

func (m *MockPackageRepository) GetByID(ctx context.Context, id string) (*domain.Package, error) {
	if m.GetByIDFunc != nil {
		return m.GetByIDFunc(ctx, id)
	}
	return nil, domain.ErrPackageNotFound
}

func (m *MockPackageRepository) GetForUpdate(ctx context.Context, id string) (*domain.Package, error) {
	if m.GetForUpdateFunc != nil {
		return m.GetForUpdateFunc(ctx, id)
	}
	return nil, domain.ErrPackageNotFound
}

func (m *MockPackageRepository) GetAvailability(ctx context.Context, packageID string, date time.Time) (*domain.PackageAvailability, error) {
	if m.GetAvailabilityFunc != nil {
		return m.GetAvailabilityFunc(ctx, packageID, date)
	}
	return nil, nil
}

func (m *MockPackageRepository) IncrementBooked(ctx context.Context, packageID string, date time.Time, n int) error {
	if m.IncrementBookedFunc != nil {
		return m.IncrementBookedFunc(ctx, packageID, date, n)
	}
	return nil
}

func (m *MockPackageRepository) DecrementBooked(ctx context.Context, packageID string, date time.Time, n int) error {
	if m.DecrementBookedFunc != nil {
		return m.DecrementBookedFunc(ctx, packageID, date, n)
	}
	return nil
}

// MockHoldRepository is a mock implementation of HoldRepository
type MockHoldRepository struct {
	CreateFunc               func(ctx context.Context, hold *domain.InventoryHold) error
	GetActiveByTokenFunc     func(ctx context.Context, token, userID string) (*domain.InventoryHold, error)
	SumActiveSlotsFunc       func(ctx context.Context, packageID string, date, now time.Time) (int, error)
	ReleaseActiveForUserFunc func(ctx context.Context, userID, packageID string, date time.Time) (int64, error)
	ReleaseFunc              func(ctx context.Context, token, userID string) error
	MarkConvertedFunc        func(ctx context.Context, holdID, bookingID string) error
	SweepExpiredFunc         func(ctx context.Context, now time.Time, limit int) (int64, error)
}

func (m *MockHoldRepository) Create(ctx context.Context, hold *domain.InventoryHold) error {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, hold)
	}
	return nil
}

func (m *MockHoldRepository) GetActiveByToken(ctx context.Context, token, userID string) (*domain.InventoryHold, error) {
	if m.GetActiveByTokenFunc != nil {
		return m.GetActiveByTokenFunc(ctx, token, userID)
	}
	return nil, domain.ErrHoldNotFound
}

func (m *MockHoldRepository) SumActiveSlots(ctx context.Context, packageID string, date, now time.Time) (int, error) {
	if m.SumActiveSlotsFunc != nil {
		return m.SumActiveSlotsFunc(ctx, packageID, date, now)
	}
	return 0, nil
}

func (m *MockHoldRepository) ReleaseActiveForUser(ctx context.Context, userID, packageID string, date time.Time) (int64, error) {
	if m.ReleaseActiveForUserFunc != nil {
		return m.ReleaseActiveForUserFunc(ctx, userID, packageID, date)
	}
	return 0, nil
}

func (m *MockHoldRepository) Release(ctx context.Context, token, userID string) error {
	if m.ReleaseFunc != nil {
		return m.ReleaseFunc(ctx, token, userID)
	}
	return nil
}

func (m *MockHoldRepository) MarkConverted(ctx context.Context, holdID, bookingID string) error {
	if m.MarkConvertedFunc != nil {
		return m.MarkConvertedFunc(ctx, holdID, bookingID)
	}
	return nil
}

func (m *MockHoldRepository) SweepExpired(ctx context.Context, now time.Time, limit int) (int64, error) {
	if m.SweepExpiredFunc != nil {
		return m.SweepExpiredFunc(ctx, now, limit)
	}
	return 0, nil
}

// MockBookingRepository is a mock implementation of BookingRepository
type MockBookingRepository struct {
	CreateFunc  func(ctx context.Context, booking *domain.Booking) error
	GetByIDFunc func(ctx context.Context, id string) (*domain.Booking, error)
	ListFunc    func(ctx context.Context, filter repository.BookingListFilter) ([]*domain.Booking, error)
	ConfirmFunc func(ctx context.Context, id string, now time.Time) error
	CancelFunc  func(ctx context.Context, booking *domain.Booking) error
}

func (m *MockBookingRepository) Create(ctx context.Context, booking *domain.Booking) error {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, booking)
	}
	return nil
}

func (m *MockBookingRepository) GetByID(ctx context.Context, id string) (*domain.Booking, error) {
	if m.GetByIDFunc != nil {
		return m.GetByIDFunc(ctx, id)
	}
	return nil, domain.ErrBookingNotFound
}

func (m *MockBookingRepository) List(ctx context.Context, filter repository.BookingListFilter) ([]*domain.Booking, error) {
	if m.ListFunc != nil {
		return m.ListFunc(ctx, filter)
	}
	return []*domain.Booking{}, nil
}

func (m *MockBookingRepository) Confirm(ctx context.Context, id string, now time.Time) error {
	if m.ConfirmFunc != nil {
		return m.ConfirmFunc(ctx, id, now)
	}
	return nil
}

func (m *MockBookingRepository) Cancel(ctx context.Context, booking *domain.Booking) error {
	if m.CancelFunc != nil {
		return m.CancelFunc(ctx, booking)
	}
	return nil
}

// MockPromoRepository is a mock implementation of PromoRepository
type MockPromoRepository struct {
	GetByCodeFunc           func(ctx context.Context, code string) (*domain.PromoCode, error)
	CountUsagesByUserFunc   func(ctx context.Context, promoCodeID, userID string) (int, error)
	RecordUsageFunc         func(ctx context.Context, usage *domain.PromoCodeUsage) error
	IncrementUsageCountFunc func(ctx context.Context, promoCodeID string) error
}

func (m *MockPromoRepository) GetByCode(ctx context.Context, code string) (*domain.PromoCode, error) {
	if m.GetByCodeFunc != nil {
		return m.GetByCodeFunc(ctx, code)
	}
	return nil, domain.ErrPromoNotFound
}

func (m *MockPromoRepository) CountUsagesByUser(ctx context.Context, promoCodeID, userID string) (int, error) {
	if m.CountUsagesByUserFunc != nil {
		return m.CountUsagesByUserFunc(ctx, promoCodeID, userID)
	}
	return 0, nil
}

func (m *MockPromoRepository) RecordUsage(ctx context.Context, usage *domain.PromoCodeUsage) error {
	if m.RecordUsageFunc != nil {
		return m.RecordUsageFunc(ctx, usage)
	}
	return nil
}

func (m *MockPromoRepository) IncrementUsageCount(ctx context.Context, promoCodeID string) error {
	if m.IncrementUsageCountFunc != nil {
		return m.IncrementUsageCountFunc(ctx, promoCodeID)
	}
	return nil
}

// MockPolicyRepository is a mock implementation of PolicyRepository
type MockPolicyRepository struct {
	GetByIDFunc    func(ctx context.Context, id string) (*domain.CancellationPolicy, error)
	GetDefaultFunc func(ctx context.Context) (*domain.CancellationPolicy, error)
}

func (m *MockPolicyRepository) GetByID(ctx context.Context, id string) (*domain.CancellationPolicy, error) {
	if m.GetByIDFunc != nil {
		return m.GetByIDFunc(ctx, id)
	}
	return nil, nil
}

func (m *MockPolicyRepository) GetDefault(ctx context.Context) (*domain.CancellationPolicy, error) {
	if m.GetDefaultFunc != nil {
		return m.GetDefaultFunc(ctx)
	}
	return nil, nil
}

// MockAgentRepository is a mock implementation of AgentRepository
type MockAgentRepository struct {
	GetByIDFunc func(ctx context.Context, id string) (*domain.Agent, error)
}

func (m *MockAgentRepository) GetByID(ctx context.Context, id string) (*domain.Agent, error) {
	if m.GetByIDFunc != nil {
		return m.GetByIDFunc(ctx, id)
	}
	return nil, nil
}

// MockCommissionRepository is a mock implementation of CommissionRepository
type MockCommissionRepository struct {
	CreateFunc            func(ctx context.Context, commission *domain.AgentCommission) error
	CancelByBookingIDFunc func(ctx context.Context, bookingID string) error
}

func (m *MockCommissionRepository) Create(ctx context.Context, commission *domain.AgentCommission) error {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, commission)
	}
	return nil
}

func (m *MockCommissionRepository) CancelByBookingID(ctx context.Context, bookingID string) error {
	if m.CancelByBookingIDFunc != nil {
		return m.CancelByBookingIDFunc(ctx, bookingID)
	}
	return nil
}

// MockIdempotencyRepository is a mock implementation of IdempotencyRepository
type MockIdempotencyRepository struct {
	ClaimFunc           func(ctx context.Context, record *domain.IdempotencyKey) (bool, *domain.IdempotencyKey, error)
	StoreResponseFunc   func(ctx context.Context, key string, status int, body []byte, now time.Time) error
	ClearProcessingFunc func(ctx context.Context, key string) error
	DeleteIfExpiredFunc func(ctx context.Context, key string, now time.Time) error
	DeleteExpiredFunc   func(ctx context.Context, now time.Time, limit int) (int64, error)
}

func (m *MockIdempotencyRepository) Claim(ctx context.Context, record *domain.IdempotencyKey) (bool, *domain.IdempotencyKey, error) {
	if m.ClaimFunc != nil {
		return m.ClaimFunc(ctx, record)
	}
	return true, nil, nil
}

func (m *MockIdempotencyRepository) StoreResponse(ctx context.Context, key string, status int, body []byte, now time.Time) error {
	if m.StoreResponseFunc != nil {
		return m.StoreResponseFunc(ctx, key, status, body, now)
	}
	return nil
}

func (m *MockIdempotencyRepository) ClearProcessing(ctx context.Context, key string) error {
	if m.ClearProcessingFunc != nil {
		return m.ClearProcessingFunc(ctx, key)
	}
	return nil
}

func (m *MockIdempotencyRepository) DeleteIfExpired(ctx context.Context, key string, now time.Time) error {
	if m.DeleteIfExpiredFunc != nil {
		return m.DeleteIfExpiredFunc(ctx, key, now)
	}
	return nil
}

func (m *MockIdempotencyRepository) DeleteExpired(ctx context.Context, now time.Time, limit int) (int64, error) {
	if m.DeleteExpiredFunc != nil {
		return m.DeleteExpiredFunc(ctx, now, limit)
	}
	return 0, nil
}

// MockAvailabilityCache records invalidations so tests can assert on them.
type MockAvailabilityCache struct {
	GetFunc       func(ctx context.Context, packageID string, date time.Time) (*repository.AvailabilitySnapshot, error)
	SetFunc       func(ctx context.Context, snapshot *repository.AvailabilitySnapshot) error
	Invalidations []string
}

func (m *MockAvailabilityCache) Get(ctx context.Context, packageID string, date time.Time) (*repository.AvailabilitySnapshot, error) {
	if m.GetFunc != nil {
		return m.GetFunc(ctx, packageID, date)
	}
	return nil, nil
}

func (m *MockAvailabilityCache) Set(ctx context.Context, snapshot *repository.AvailabilitySnapshot) error {
	if m.SetFunc != nil {
		return m.SetFunc(ctx, snapshot)
	}
	return nil
}

func (m *MockAvailabilityCache) Invalidate(ctx context.Context, packageID string, date time.Time) error {
	m.Invalidations = append(m.Invalidations, packageID)
	return nil
}

// MockEventPublisher records published events by type.
type MockEventPublisher struct {
	Created   []*domain.Booking
	Confirmed []*domain.Booking
	Cancelled []*domain.Booking
	Err       error
}

func (m *MockEventPublisher) PublishBookingCreated(ctx context.Context, booking *domain.Booking) error {
	m.Created = append(m.Created, booking)
	return m.Err
}

func (m *MockEventPublisher) PublishBookingConfirmed(ctx context.Context, booking *domain.Booking) error {
	m.Confirmed = append(m.Confirmed, booking)
	return m.Err
}

func (m *MockEventPublisher) PublishBookingCancelled(ctx context.Context, booking *domain.Booking) error {
	m.Cancelled = append(m.Cancelled, booking)
	return m.Err
}

func (m *MockEventPublisher) Close() error {
	return nil
}
