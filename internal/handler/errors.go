package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/voyago/booking-core/internal/domain"
	"github.com/voyago/booking-core/internal/dto"
)

// handleError maps domain errors to HTTP responses.
func handleError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, domain.ErrPackageNotFound):
		c.JSON(http.StatusNotFound, dto.ErrorResponse{
			Error: err.Error(),
			Code:  "PACKAGE_NOT_FOUND",
		})
	case errors.Is(err, domain.ErrBookingNotFound):
		c.JSON(http.StatusNotFound, dto.ErrorResponse{
			Error: err.Error(),
			Code:  "BOOKING_NOT_FOUND",
		})
	case errors.Is(err, domain.ErrHoldNotFound):
		c.JSON(http.StatusNotFound, dto.ErrorResponse{
			Error: err.Error(),
			Code:  "HOLD_NOT_FOUND",
		})
	case errors.Is(err, domain.ErrPromoNotFound):
		c.JSON(http.StatusNotFound, dto.ErrorResponse{
			Error: err.Error(),
			Code:  "PROMO_NOT_FOUND",
		})
	case errors.Is(err, domain.ErrCapacityExceeded):
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{
			Error:   err.Error(),
			Code:    "CAPACITY_EXCEEDED",
			Message: "Not enough available slots for the requested travel date",
		})
	case errors.Is(err, domain.ErrHoldExpired):
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{
			Error:   err.Error(),
			Code:    "HOLD_EXPIRED",
			Message: "The hold has expired. Please create a new hold.",
		})
	case errors.Is(err, domain.ErrPromoInactive):
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{
			Error: err.Error(),
			Code:  "PROMO_INACTIVE",
		})
	case errors.Is(err, domain.ErrPromoNotApplicable):
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{
			Error: err.Error(),
			Code:  "PROMO_NOT_APPLICABLE",
		})
	case errors.Is(err, domain.ErrPromoUsageLimit):
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{
			Error: err.Error(),
			Code:  "PROMO_USAGE_LIMIT",
		})
	case errors.Is(err, domain.ErrPromoMinOrder):
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{
			Error: err.Error(),
			Code:  "PROMO_MIN_ORDER",
		})
	case errors.Is(err, domain.ErrBookingAlreadyCancelled):
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{
			Error: err.Error(),
			Code:  "ALREADY_CANCELLED",
		})
	case errors.Is(err, domain.ErrBookingNotCancellable):
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{
			Error: err.Error(),
			Code:  "NOT_CANCELLABLE",
		})
	case errors.Is(err, domain.ErrIdempotencyConflict):
		c.JSON(http.StatusConflict, dto.ErrorResponse{
			Error:   err.Error(),
			Code:    "IDEMPOTENCY_CONFLICT",
			Message: "A request with this idempotency key is already in progress",
		})
	case errors.Is(err, domain.ErrIdempotencyKeyMalformed):
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{
			Error:   err.Error(),
			Code:    "IDEMPOTENCY_KEY_MALFORMED",
			Message: "Idempotency keys must be a 64-character hex digest or a UUID",
		})
	case domain.IsValidationError(err):
		c.JSON(http.StatusUnprocessableEntity, dto.ErrorResponse{
			Error: err.Error(),
			Code:  "VALIDATION_FAILED",
		})
	default:
		c.JSON(http.StatusInternalServerError, dto.ErrorResponse{
			Error: "internal server error",
			Code:  "INTERNAL_ERROR",
		})
	}
}
