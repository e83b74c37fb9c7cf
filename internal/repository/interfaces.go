package repository

import (
	"context"
	"time"

	"github.com/voyago/booking-core/internal/domain"
)

// Transactor runs a function inside a single database transaction.
type Transactor interface {
	WithTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// PackageRepository reads catalog data and mutates per-date consumption.
// booked_slots is the only column this service writes.
type PackageRepository interface {
	// GetByID retrieves a package by id
	GetByID(ctx context.Context, id string) (*domain.Package, error)

	// GetForUpdate retrieves a package and takes a row lock on it, serializing
	// concurrent capacity checks for the package
	GetForUpdate(ctx context.Context, id string) (*domain.Package, error)

	// GetAvailability retrieves the availability row for a date, or nil if the
	// catalog has not created one
	GetAvailability(ctx context.Context, packageID string, date time.Time) (*domain.PackageAvailability, error)

	// IncrementBooked adds n to booked_slots for a date
	IncrementBooked(ctx context.Context, packageID string, date time.Time, n int) error

	// DecrementBooked subtracts n from booked_slots for a date
	DecrementBooked(ctx context.Context, packageID string, date time.Time, n int) error
}

// HoldRepository persists inventory holds.
type HoldRepository interface {
	// Create inserts a new hold
	Create(ctx context.Context, hold *domain.InventoryHold) error

	// GetActiveByToken retrieves the user's active hold with the given token
	GetActiveByToken(ctx context.Context, token, userID string) (*domain.InventoryHold, error)

	// SumActiveSlots sums slots_held over live holds for a (package, date):
	// status active and expiry still in the future
	SumActiveSlots(ctx context.Context, packageID string, date time.Time, now time.Time) (int, error)

	// ReleaseActiveForUser supersedes any active hold the user has for the
	// same (package, date), returning how many were released
	ReleaseActiveForUser(ctx context.Context, userID, packageID string, date time.Time) (int64, error)

	// Release flips the user's active hold with the given token to released
	Release(ctx context.Context, token, userID string) error

	// MarkConverted transitions a hold to converted and links the booking
	MarkConverted(ctx context.Context, holdID, bookingID string) error

	// SweepExpired transitions stale active holds to expired, up to limit.
	// The update is conditioned on the current state so concurrent sweepers
	// cannot double-expire a hold.
	SweepExpired(ctx context.Context, now time.Time, limit int) (int64, error)
}

// BookingListFilter narrows a booking listing.
type BookingListFilter struct {
	UserID        string
	AgentID       string
	Status        string
	PaymentStatus string
	DateFrom      *time.Time
	DateTo        *time.Time
	Limit         int
	Offset        int
}

// BookingRepository persists bookings.
type BookingRepository interface {
	// Create inserts a new booking
	Create(ctx context.Context, booking *domain.Booking) error

	// GetByID retrieves a booking by id
	GetByID(ctx context.Context, id string) (*domain.Booking, error)

	// List retrieves bookings matching the filter, newest first
	List(ctx context.Context, filter BookingListFilter) ([]*domain.Booking, error)

	// Confirm transitions a pending booking to confirmed
	Confirm(ctx context.Context, id string, now time.Time) error

	// Cancel persists a cancellation: status, reason, refund and fee amounts
	Cancel(ctx context.Context, booking *domain.Booking) error
}

// PromoRepository reads promo codes and records their usage.
type PromoRepository interface {
	// GetByCode retrieves a promo code by its (case-insensitive) code
	GetByCode(ctx context.Context, code string) (*domain.PromoCode, error)

	// CountUsagesByUser counts prior usages of a code by one user
	CountUsagesByUser(ctx context.Context, promoCodeID, userID string) (int, error)

	// RecordUsage appends a usage audit row
	RecordUsage(ctx context.Context, usage *domain.PromoCodeUsage) error

	// IncrementUsageCount bumps the denormalized usage counter
	IncrementUsageCount(ctx context.Context, promoCodeID string) error
}

// PolicyRepository reads cancellation policies with their rules.
type PolicyRepository interface {
	// GetByID retrieves a policy and its rules
	GetByID(ctx context.Context, id string) (*domain.CancellationPolicy, error)

	// GetDefault retrieves the active default policy, or nil if none exists
	GetDefault(ctx context.Context) (*domain.CancellationPolicy, error)
}

// AgentRepository reads agent identity data.
type AgentRepository interface {
	// GetByID retrieves an agent, or nil if the user is not an agent
	GetByID(ctx context.Context, id string) (*domain.Agent, error)
}

// CommissionRepository persists agent commissions.
type CommissionRepository interface {
	// Create inserts a commission row
	Create(ctx context.Context, commission *domain.AgentCommission) error

	// CancelByBookingID cancels the commission attached to a booking, if any
	CancelByBookingID(ctx context.Context, bookingID string) error
}

// IdempotencyRepository persists idempotency key records. The unique
// constraint on key is the mutex preventing duplicate side effects.
type IdempotencyRepository interface {
	// Claim atomically inserts a processing record for the key. When the key
	// already exists the existing record is returned with created=false.
	Claim(ctx context.Context, record *domain.IdempotencyKey) (created bool, existing *domain.IdempotencyKey, err error)

	// StoreResponse stores the completed response and clears the processing flag
	StoreResponse(ctx context.Context, key string, status int, body []byte, now time.Time) error

	// ClearProcessing releases the claim without storing a response, allowing
	// a legitimate retry to re-run the operation
	ClearProcessing(ctx context.Context, key string) error

	// DeleteIfExpired removes a record past its TTL so the key becomes
	// claimable again ahead of the garbage collector
	DeleteIfExpired(ctx context.Context, key string, now time.Time) error

	// DeleteExpired garbage-collects records past their TTL, up to limit
	DeleteExpired(ctx context.Context, now time.Time, limit int) (int64, error)
}
