package domain

import (
	"crypto/rand"
	"encoding/hex"
	"strings"
	"time"

	"github.com/google/uuid"
)

// BookingStatus represents the lifecycle state of a booking
type BookingStatus string

const (
	BookingStatusPending   BookingStatus = "pending"
	BookingStatusConfirmed BookingStatus = "confirmed"
	BookingStatusCancelled BookingStatus = "cancelled"
	BookingStatusCompleted BookingStatus = "completed"
)

func (s BookingStatus) String() string {
	return string(s)
}

// PaymentStatus tracks how much of the booking has been paid. Payments are
// owned by the payment subsystem; this service only reads the status.
type PaymentStatus string

const (
	PaymentStatusPending  PaymentStatus = "pending"
	PaymentStatusPartial  PaymentStatus = "partial"
	PaymentStatusPaid     PaymentStatus = "paid"
	PaymentStatusRefunded PaymentStatus = "refunded"
)

func (s PaymentStatus) String() string {
	return string(s)
}

// Booking is a confirmed, priced reservation of package capacity. Bookings are
// never deleted; cancelled rows are retained for audit.
type Booking struct {
	ID                 string        `json:"id"`
	BookingNumber      string        `json:"booking_number"`
	PackageID          string        `json:"package_id"`
	UserID             string        `json:"user_id"`
	AgentID            *string       `json:"agent_id,omitempty"`
	TravelDate         time.Time     `json:"travel_date"`
	Adults             int           `json:"adults"`
	Children           int           `json:"children"`
	Infants            int           `json:"infants"`
	PackagePrice       float64       `json:"package_price"`
	Discount           float64       `json:"discount"`
	PromoCodeID        *string       `json:"promo_code_id,omitempty"`
	PromoDiscount      float64       `json:"promo_discount"`
	Tax                float64       `json:"tax"`
	TotalAmount        float64       `json:"total_amount"`
	PaidAmount         float64       `json:"paid_amount"`
	Status             BookingStatus `json:"status"`
	PaymentStatus      PaymentStatus `json:"payment_status"`
	CancellationReason string        `json:"cancellation_reason,omitempty"`
	CancellationFee    float64       `json:"cancellation_fee"`
	RefundAmount       float64       `json:"refund_amount"`
	HoldToken          *string       `json:"hold_token,omitempty"`
	ConfirmedAt        *time.Time    `json:"confirmed_at,omitempty"`
	CancelledAt        *time.Time    `json:"cancelled_at,omitempty"`
	CreatedAt          time.Time     `json:"created_at"`
	UpdatedAt          time.Time     `json:"updated_at"`
}

// ParticipantCount returns how many capacity slots the booking consumes.
// Infants do not occupy a slot.
func (b *Booking) ParticipantCount() int {
	return b.Adults + b.Children
}

// BelongsToUser reports whether the booking was made by the given user.
func (b *Booking) BelongsToUser(userID string) bool {
	return b.UserID == userID
}

// IsCancelled reports whether the booking has been cancelled.
func (b *Booking) IsCancelled() bool {
	return b.Status == BookingStatusCancelled
}

// IsCancellable reports whether the booking may still be cancelled.
func (b *Booking) IsCancellable() bool {
	return b.Status == BookingStatusPending || b.Status == BookingStatusConfirmed
}

// DaysUntilTravel returns the number of whole days between now and the travel
// date, floored at 0 for same-day or past travel.
func (b *Booking) DaysUntilTravel(now time.Time) int {
	days := int(b.TravelDate.Sub(now).Hours() / 24)
	if days < 0 {
		return 0
	}
	return days
}

// NewBookingNumber generates an opaque display identifier for a booking.
func NewBookingNumber() string {
	b := make([]byte, 6)
	if _, err := rand.Read(b); err != nil {
		return "BK" + strings.ToUpper(strings.ReplaceAll(uuid.New().String(), "-", "")[:12])
	}
	return "BK" + strings.ToUpper(hex.EncodeToString(b))
}
