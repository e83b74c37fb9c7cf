package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/voyago/booking-core/internal/domain"
	"github.com/voyago/booking-core/internal/dto"
	"github.com/voyago/booking-core/internal/service"
	"github.com/voyago/booking-core/pkg/telemetry"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

// HoldHandler handles inventory hold and availability HTTP requests
type HoldHandler struct {
	holdService service.HoldService
}

// NewHoldHandler creates a new hold handler
func NewHoldHandler(holdService service.HoldService) *HoldHandler {
	return &HoldHandler{holdService: holdService}
}

// CreateHold handles POST /bookings/hold
func (h *HoldHandler) CreateHold(c *gin.Context) {
	ctx, span := telemetry.StartSpan(c.Request.Context(), "handler.hold.create")
	defer span.End()
	c.Request = c.Request.WithContext(ctx)

	userID := c.GetString("user_id")
	if userID == "" {
		span.SetStatus(codes.Error, "unauthorized")
		c.JSON(http.StatusUnauthorized, dto.ErrorResponse{
			Error: "unauthorized",
			Code:  "UNAUTHORIZED",
		})
		return
	}

	var req dto.CreateHoldRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "invalid request")
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{
			Error:   "invalid request",
			Code:    "INVALID_REQUEST",
			Message: err.Error(),
		})
		return
	}

	travelDate, err := time.Parse(dto.DateFormat, req.TravelDate)
	if err != nil {
		span.SetStatus(codes.Error, "invalid travel date")
		handleError(c, domain.ErrInvalidTravelDate)
		return
	}

	span.SetAttributes(
		attribute.String("user_id", userID),
		attribute.String("package_id", req.PackageID),
		attribute.Int("participants", req.Participants),
	)

	hold, remaining, err := h.holdService.CreateHold(ctx, userID, req.PackageID, travelDate, req.Participants)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		handleError(c, err)
		return
	}

	span.SetStatus(codes.Ok, "")
	c.JSON(http.StatusCreated, dto.CreateHoldResponse{
		HoldToken:      hold.HoldToken,
		PackageID:      hold.PackageID,
		TravelDate:     hold.TravelDate.Format(dto.DateFormat),
		SlotsHeld:      hold.SlotsHeld,
		ExpiresAt:      hold.ExpiresAt,
		AvailableSlots: remaining,
	})
}

// ReleaseHold handles POST /bookings/hold/release
func (h *HoldHandler) ReleaseHold(c *gin.Context) {
	ctx, span := telemetry.StartSpan(c.Request.Context(), "handler.hold.release")
	defer span.End()
	c.Request = c.Request.WithContext(ctx)

	userID := c.GetString("user_id")
	if userID == "" {
		span.SetStatus(codes.Error, "unauthorized")
		c.JSON(http.StatusUnauthorized, dto.ErrorResponse{
			Error: "unauthorized",
			Code:  "UNAUTHORIZED",
		})
		return
	}

	var req dto.ReleaseHoldRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "invalid request")
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{
			Error:   "invalid request",
			Code:    "INVALID_REQUEST",
			Message: err.Error(),
		})
		return
	}

	if err := h.holdService.ReleaseHold(ctx, userID, req.HoldToken); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		handleError(c, err)
		return
	}

	span.SetStatus(codes.Ok, "")
	c.JSON(http.StatusOK, gin.H{"released": true})
}

// GetAvailability handles GET /packages/:id/availability?date=
func (h *HoldHandler) GetAvailability(c *gin.Context) {
	ctx, span := telemetry.StartSpan(c.Request.Context(), "handler.hold.availability")
	defer span.End()
	c.Request = c.Request.WithContext(ctx)

	packageID := c.Param("id")
	dateParam := c.Query("date")

	travelDate, err := time.Parse(dto.DateFormat, dateParam)
	if err != nil {
		span.SetStatus(codes.Error, "invalid date")
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{
			Error:   "invalid date",
			Code:    "INVALID_REQUEST",
			Message: "date must be provided in YYYY-MM-DD format",
		})
		return
	}

	span.SetAttributes(
		attribute.String("package_id", packageID),
		attribute.String("date", dateParam),
	)

	free, unitPrice, err := h.holdService.GetAvailability(ctx, packageID, travelDate)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		handleError(c, err)
		return
	}

	span.SetStatus(codes.Ok, "")
	c.JSON(http.StatusOK, dto.AvailabilityResponse{
		PackageID:      packageID,
		TravelDate:     dateParam,
		AvailableSlots: free,
		UnitPrice:      unitPrice,
	})
}
