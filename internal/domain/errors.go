package domain

import "errors"

// Domain errors
var (
	// Capacity / hold errors
	ErrCapacityExceeded = errors.New("not enough slots available")
	ErrHoldNotFound     = errors.New("hold not found or already released")
	ErrHoldExpired      = errors.New("inventory hold expired")

	// Booking errors
	ErrBookingNotFound         = errors.New("booking not found")
	ErrBookingAlreadyCancelled = errors.New("booking is already cancelled")
	ErrBookingNotCancellable   = errors.New("booking cannot be cancelled in its current status")

	// Catalog errors
	ErrPackageNotFound = errors.New("package not found")

	// Promo errors
	ErrPromoNotFound      = errors.New("invalid promo code")
	ErrPromoInactive      = errors.New("promo code is expired or inactive")
	ErrPromoNotApplicable = errors.New("promo code not applicable to this package")
	ErrPromoUsageLimit    = errors.New("promo code usage limit reached")
	ErrPromoMinOrder      = errors.New("minimum order amount not met")

	// Idempotency errors
	ErrIdempotencyConflict     = errors.New("request is still being processed")
	ErrIdempotencyKeyMalformed = errors.New("invalid idempotency key format")

	// Validation errors
	ErrInvalidParticipants = errors.New("at least one adult participant is required")
	ErrInvalidTravelDate   = errors.New("travel date must be in the future")
	ErrInvalidUserID       = errors.New("invalid user id")
	ErrInvalidPackageID    = errors.New("invalid package id")
	ErrInvalidBookingID    = errors.New("invalid booking id")
)

// IsNotFoundError checks if the error is a not found error
func IsNotFoundError(err error) bool {
	return errors.Is(err, ErrBookingNotFound) ||
		errors.Is(err, ErrHoldNotFound) ||
		errors.Is(err, ErrPackageNotFound) ||
		errors.Is(err, ErrPromoNotFound)
}

// IsValidationError checks if the error is a validation error
func IsValidationError(err error) bool {
	return errors.Is(err, ErrInvalidParticipants) ||
		errors.Is(err, ErrInvalidTravelDate) ||
		errors.Is(err, ErrInvalidUserID) ||
		errors.Is(err, ErrInvalidPackageID) ||
		errors.Is(err, ErrInvalidBookingID) ||
		errors.Is(err, ErrIdempotencyKeyMalformed)
}

// IsConflictError checks if the error is a conflict error
func IsConflictError(err error) bool {
	return errors.Is(err, ErrCapacityExceeded) ||
		errors.Is(err, ErrBookingAlreadyCancelled) ||
		errors.Is(err, ErrIdempotencyConflict)
}

// IsPromoError checks if the error relates to promo code validation
func IsPromoError(err error) bool {
	return errors.Is(err, ErrPromoNotFound) ||
		errors.Is(err, ErrPromoInactive) ||
		errors.Is(err, ErrPromoNotApplicable) ||
		errors.Is(err, ErrPromoUsageLimit) ||
		errors.Is(err, ErrPromoMinOrder)
}
