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

// BookingHandler handles booking HTTP requests
type BookingHandler struct {
	bookingService      service.BookingService
	cancellationService service.CancellationService
	pricingService      service.PricingService
}

// NewBookingHandler creates a new booking handler
func NewBookingHandler(
	bookingService service.BookingService,
	cancellationService service.CancellationService,
	pricingService service.PricingService,
) *BookingHandler {
	return &BookingHandler{
		bookingService:      bookingService,
		cancellationService: cancellationService,
		pricingService:      pricingService,
	}
}

// CreateBooking handles POST /bookings
func (h *BookingHandler) CreateBooking(c *gin.Context) {
	ctx, span := telemetry.StartSpan(c.Request.Context(), "handler.booking.create")
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

	var req dto.CreateBookingRequest
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

	span.SetAttributes(
		attribute.String("user_id", userID),
		attribute.String("package_id", req.PackageID),
		attribute.Int("adults", req.Adults),
		attribute.Int("children", req.Children),
	)

	booking, err := h.bookingService.CreateBooking(ctx, userID, &req)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		handleError(c, err)
		return
	}

	span.SetAttributes(attribute.String("booking_id", booking.ID))
	span.SetStatus(codes.Ok, "")
	c.JSON(http.StatusCreated, dto.FromDomain(booking))
}

// GetBooking handles GET /bookings/:id
func (h *BookingHandler) GetBooking(c *gin.Context) {
	ctx, span := telemetry.StartSpan(c.Request.Context(), "handler.booking.get")
	defer span.End()
	c.Request = c.Request.WithContext(ctx)

	userID := c.GetString("user_id")
	bookingID := c.Param("id")

	span.SetAttributes(attribute.String("booking_id", bookingID))

	booking, err := h.bookingService.GetBooking(ctx, bookingID, userID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		handleError(c, err)
		return
	}

	span.SetStatus(codes.Ok, "")
	c.JSON(http.StatusOK, dto.FromDomain(booking))
}

// ListBookings handles GET /bookings
func (h *BookingHandler) ListBookings(c *gin.Context) {
	ctx, span := telemetry.StartSpan(c.Request.Context(), "handler.booking.list")
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

	var req dto.ListBookingsRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "invalid request")
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{
			Error:   "invalid request",
			Code:    "INVALID_REQUEST",
			Message: err.Error(),
		})
		return
	}

	bookings, err := h.bookingService.ListBookings(ctx, userID, &req)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		handleError(c, err)
		return
	}

	responses := make([]*dto.BookingResponse, 0, len(bookings))
	for _, b := range bookings {
		responses = append(responses, dto.FromDomain(b))
	}

	page := req.Page
	if page < 1 {
		page = 1
	}
	pageSize := req.PageSize
	if pageSize <= 0 || pageSize > 100 {
		pageSize = 20
	}

	span.SetAttributes(attribute.Int("count", len(responses)))
	span.SetStatus(codes.Ok, "")
	c.JSON(http.StatusOK, dto.PaginatedResponse{
		Data:     responses,
		Page:     page,
		PageSize: pageSize,
	})
}

// ConfirmBooking handles POST /bookings/:id/confirm
func (h *BookingHandler) ConfirmBooking(c *gin.Context) {
	ctx, span := telemetry.StartSpan(c.Request.Context(), "handler.booking.confirm")
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

	bookingID := c.Param("id")
	span.SetAttributes(attribute.String("booking_id", bookingID))

	booking, err := h.bookingService.ConfirmBooking(ctx, bookingID, userID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		handleError(c, err)
		return
	}

	confirmedAt := time.Now()
	if booking.ConfirmedAt != nil {
		confirmedAt = *booking.ConfirmedAt
	}

	span.SetStatus(codes.Ok, "")
	c.JSON(http.StatusOK, dto.ConfirmBookingResponse{
		BookingID:   booking.ID,
		Status:      string(booking.Status),
		ConfirmedAt: confirmedAt,
	})
}

// PreviewCancellation handles GET /bookings/:id/cancellation-preview
func (h *BookingHandler) PreviewCancellation(c *gin.Context) {
	ctx, span := telemetry.StartSpan(c.Request.Context(), "handler.booking.cancellation_preview")
	defer span.End()
	c.Request = c.Request.WithContext(ctx)

	userID := c.GetString("user_id")
	bookingID := c.Param("id")
	span.SetAttributes(attribute.String("booking_id", bookingID))

	preview, err := h.cancellationService.PreviewCancellation(ctx, bookingID, userID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		handleError(c, err)
		return
	}

	span.SetStatus(codes.Ok, "")
	c.JSON(http.StatusOK, dto.CancellationPreviewResponse{
		BookingID:        bookingID,
		DaysUntilTravel:  preview.DaysUntilTravel,
		RefundPercentage: preview.Quote.RefundPercentage,
		RefundAmount:     preview.Quote.RefundAmount,
		CancellationFee:  preview.Quote.CancellationFee,
		PolicyName:       preview.PolicyName,
	})
}

// CancelBooking handles POST /bookings/:id/cancel
func (h *BookingHandler) CancelBooking(c *gin.Context) {
	ctx, span := telemetry.StartSpan(c.Request.Context(), "handler.booking.cancel")
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

	bookingID := c.Param("id")
	span.SetAttributes(attribute.String("booking_id", bookingID))

	var req dto.CancelBookingRequest
	// Reason is optional; an empty body is fine.
	_ = c.ShouldBindJSON(&req)

	booking, err := h.cancellationService.CancelBooking(ctx, bookingID, userID, req.Reason)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		handleError(c, err)
		return
	}

	span.SetAttributes(attribute.Float64("refund_amount", booking.RefundAmount))
	span.SetStatus(codes.Ok, "")
	c.JSON(http.StatusOK, dto.CancelBookingResponse{
		BookingID:       booking.ID,
		Status:          string(booking.Status),
		RefundAmount:    booking.RefundAmount,
		CancellationFee: booking.CancellationFee,
	})
}

// ValidatePromo handles POST /bookings/validate-promo
func (h *BookingHandler) ValidatePromo(c *gin.Context) {
	ctx, span := telemetry.StartSpan(c.Request.Context(), "handler.booking.validate_promo")
	defer span.End()
	c.Request = c.Request.WithContext(ctx)

	userID := c.GetString("user_id")

	var req dto.ValidatePromoRequest
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

	span.SetAttributes(attribute.String("code", req.Code))

	quote, err := h.pricingService.ValidatePromo(ctx, userID, req.Code, req.PackageID, travelDate, req.Participants)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		handleError(c, err)
		return
	}

	span.SetStatus(codes.Ok, "")
	c.JSON(http.StatusOK, dto.ValidatePromoResponse{
		Code:           req.Code,
		Valid:          true,
		DiscountAmount: quote.PromoDiscount,
		Subtotal:       quote.Subtotal,
		FinalAmount:    quote.TotalAmount,
	})
}
