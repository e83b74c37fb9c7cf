package domain

import "time"

// BookingEventType identifies the kind of booking lifecycle event
type BookingEventType string

const (
	BookingEventCreated   BookingEventType = "booking.created"
	BookingEventConfirmed BookingEventType = "booking.confirmed"
	BookingEventCancelled BookingEventType = "booking.cancelled"
)

// BookingEvent is the message published to the booking events topic for
// downstream consumers (payments, notifications, reporting).
type BookingEvent struct {
	EventID       string           `json:"event_id"`
	EventType     BookingEventType `json:"event_type"`
	BookingID     string           `json:"booking_id"`
	BookingNumber string           `json:"booking_number,omitempty"`
	PackageID     string           `json:"package_id"`
	UserID        string           `json:"user_id"`
	TravelDate    time.Time        `json:"travel_date"`
	Participants  int              `json:"participants"`
	TotalAmount   float64          `json:"total_amount"`
	RefundAmount  float64          `json:"refund_amount,omitempty"`
	OccurredAt    time.Time        `json:"occurred_at"`
}

// NewBookingEvent builds an event payload from a booking.
func NewBookingEvent(eventType BookingEventType, b *Booking, eventID string) *BookingEvent {
	return &BookingEvent{
		EventID:       eventID,
		EventType:     eventType,
		BookingID:     b.ID,
		BookingNumber: b.BookingNumber,
		PackageID:     b.PackageID,
		UserID:        b.UserID,
		TravelDate:    b.TravelDate,
		Participants:  b.ParticipantCount(),
		TotalAmount:   b.TotalAmount,
		RefundAmount:  b.RefundAmount,
		OccurredAt:    time.Now(),
	}
}

// Key returns the partition key for the event. Events for the same booking
// stay ordered.
func (e *BookingEvent) Key() string {
	return e.BookingID
}
