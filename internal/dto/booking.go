package dto

import (
	"time"

	"github.com/voyago/booking-core/internal/domain"
)

// CreateHoldRequest represents a request to hold capacity for a travel date
type CreateHoldRequest struct {
	PackageID    string `json:"package_id" binding:"required"`
	TravelDate   string `json:"travel_date" binding:"required"`
	Participants int    `json:"participants" binding:"required,min=1"`
}

// CreateHoldResponse represents the response after creating a hold
type CreateHoldResponse struct {
	HoldToken      string    `json:"hold_token"`
	PackageID      string    `json:"package_id"`
	TravelDate     string    `json:"travel_date"`
	SlotsHeld      int       `json:"slots_held"`
	ExpiresAt      time.Time `json:"expires_at"`
	AvailableSlots int       `json:"available_slots"`
}

// ReleaseHoldRequest represents a request to release a hold by token
type ReleaseHoldRequest struct {
	HoldToken string `json:"hold_token" binding:"required"`
}

// ValidatePromoRequest represents a request to preview a promo discount
type ValidatePromoRequest struct {
	Code         string `json:"code" binding:"required"`
	PackageID    string `json:"package_id" binding:"required"`
	TravelDate   string `json:"travel_date" binding:"required"`
	Participants int    `json:"participants" binding:"required,min=1"`
}

// ValidatePromoResponse represents a promo discount preview
type ValidatePromoResponse struct {
	Code           string  `json:"code"`
	Valid          bool    `json:"valid"`
	DiscountAmount float64 `json:"discount_amount"`
	Subtotal       float64 `json:"subtotal"`
	FinalAmount    float64 `json:"final_amount"`
}

// CreateBookingRequest represents a request to create a booking
type CreateBookingRequest struct {
	PackageID  string `json:"package_id" binding:"required"`
	TravelDate string `json:"travel_date" binding:"required"`
	Adults     int    `json:"adults" binding:"required,min=1"`
	Children   int    `json:"children" binding:"min=0"`
	Infants    int    `json:"infants" binding:"min=0"`
	HoldToken  string `json:"hold_token,omitempty"`
	PromoCode  string `json:"promo_code,omitempty"`
}

// QuoteResponse represents the priced breakdown of a booking
type QuoteResponse struct {
	UnitPrice     float64 `json:"unit_price"`
	Participants  int     `json:"participants"`
	Subtotal      float64 `json:"subtotal"`
	PromoDiscount float64 `json:"promo_discount"`
	Tax           float64 `json:"tax"`
	TotalAmount   float64 `json:"total_amount"`
}

// BookingResponse represents a booking in API responses
type BookingResponse struct {
	ID                 string     `json:"id"`
	BookingNumber      string     `json:"booking_number"`
	PackageID          string     `json:"package_id"`
	UserID             string     `json:"user_id"`
	AgentID            *string    `json:"agent_id,omitempty"`
	TravelDate         string     `json:"travel_date"`
	Adults             int        `json:"adults"`
	Children           int        `json:"children"`
	Infants            int        `json:"infants"`
	PackagePrice       float64    `json:"package_price"`
	Discount           float64    `json:"discount"`
	PromoDiscount      float64    `json:"promo_discount"`
	Tax                float64    `json:"tax"`
	TotalAmount        float64    `json:"total_amount"`
	PaidAmount         float64    `json:"paid_amount"`
	Status             string     `json:"status"`
	PaymentStatus      string     `json:"payment_status"`
	CancellationReason string     `json:"cancellation_reason,omitempty"`
	CancellationFee    float64    `json:"cancellation_fee,omitempty"`
	RefundAmount       float64    `json:"refund_amount,omitempty"`
	ConfirmedAt        *time.Time `json:"confirmed_at,omitempty"`
	CancelledAt        *time.Time `json:"cancelled_at,omitempty"`
	CreatedAt          time.Time  `json:"created_at"`
}

// ListBookingsRequest represents booking list filters, bound from query params
type ListBookingsRequest struct {
	Status        string `form:"status"`
	PaymentStatus string `form:"payment_status"`
	DateFrom      string `form:"date_from"`
	DateTo        string `form:"date_to"`
	Page          int    `form:"page"`
	PageSize      int    `form:"page_size"`
}

// ConfirmBookingResponse represents the response after confirming a booking
type ConfirmBookingResponse struct {
	BookingID   string    `json:"booking_id"`
	Status      string    `json:"status"`
	ConfirmedAt time.Time `json:"confirmed_at"`
}

// CancelBookingRequest represents a request to cancel a booking
type CancelBookingRequest struct {
	Reason string `json:"reason,omitempty"`
}

// CancellationPreviewResponse represents what a cancellation would refund
type CancellationPreviewResponse struct {
	BookingID        string  `json:"booking_id"`
	DaysUntilTravel  int     `json:"days_until_travel"`
	RefundPercentage float64 `json:"refund_percentage"`
	RefundAmount     float64 `json:"refund_amount"`
	CancellationFee  float64 `json:"cancellation_fee"`
	PolicyName       string  `json:"policy_name,omitempty"`
}

// CancelBookingResponse represents the outcome of a cancellation
type CancelBookingResponse struct {
	BookingID       string  `json:"booking_id"`
	Status          string  `json:"status"`
	RefundAmount    float64 `json:"refund_amount"`
	CancellationFee float64 `json:"cancellation_fee"`
}

// AvailabilityResponse represents free capacity for a package on a date
type AvailabilityResponse struct {
	PackageID      string  `json:"package_id"`
	TravelDate     string  `json:"travel_date"`
	AvailableSlots int     `json:"available_slots"`
	UnitPrice      float64 `json:"unit_price"`
}

// PaginatedResponse wraps a page of results
type PaginatedResponse struct {
	Data     interface{} `json:"data"`
	Page     int         `json:"page"`
	PageSize int         `json:"page_size"`
}

// DateFormat is the wire format for travel dates
const DateFormat = "2006-01-02"

// FromDomain converts a domain Booking to a BookingResponse
func FromDomain(b *domain.Booking) *BookingResponse {
	return &BookingResponse{
		ID:                 b.ID,
		BookingNumber:      b.BookingNumber,
		PackageID:          b.PackageID,
		UserID:             b.UserID,
		AgentID:            b.AgentID,
		TravelDate:         b.TravelDate.Format(DateFormat),
		Adults:             b.Adults,
		Children:           b.Children,
		Infants:            b.Infants,
		PackagePrice:       b.PackagePrice,
		Discount:           b.Discount,
		PromoDiscount:      b.PromoDiscount,
		Tax:                b.Tax,
		TotalAmount:        b.TotalAmount,
		PaidAmount:         b.PaidAmount,
		Status:             string(b.Status),
		PaymentStatus:      string(b.PaymentStatus),
		CancellationReason: b.CancellationReason,
		CancellationFee:    b.CancellationFee,
		RefundAmount:       b.RefundAmount,
		ConfirmedAt:        b.ConfirmedAt,
		CancelledAt:        b.CancelledAt,
		CreatedAt:          b.CreatedAt,
	}
}
