package domain

import (
	"crypto/rand"
	"encoding/hex"
	"time"

	"github.com/google/uuid"
)

// HoldStatus represents the lifecycle state of an inventory hold
type HoldStatus string

const (
	HoldStatusActive    HoldStatus = "active"
	HoldStatusConverted HoldStatus = "converted"
	HoldStatusReleased  HoldStatus = "released"
	HoldStatusExpired   HoldStatus = "expired"
)

func (s HoldStatus) String() string {
	return string(s)
}

// DefaultHoldTTL is how long a hold reserves capacity before expiring.
const DefaultHoldTTL = 15 * time.Minute

// InventoryHold is a time-boxed claim on package capacity for a travel date.
// Converted, released and expired are terminal states.
type InventoryHold struct {
	ID         string     `json:"id"`
	PackageID  string     `json:"package_id"`
	UserID     string     `json:"user_id"`
	TravelDate time.Time  `json:"travel_date"`
	SlotsHeld  int        `json:"slots_held"`
	HoldToken  string     `json:"hold_token"`
	ExpiresAt  time.Time  `json:"expires_at"`
	Status     HoldStatus `json:"status"`
	BookingID  *string    `json:"booking_id,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at"`
}

// IsActive reports whether the hold still reserves capacity at the given time.
// Both the status and the expiry timestamp are checked; an unswept hold past
// its expiry no longer counts.
func (h *InventoryHold) IsActive(now time.Time) bool {
	return h.Status == HoldStatusActive && now.Before(h.ExpiresAt)
}

// IsExpired reports whether the hold's expiry timestamp has passed.
func (h *InventoryHold) IsExpired(now time.Time) bool {
	return !now.Before(h.ExpiresAt)
}

// NewHoldToken generates an unguessable 256-bit hold token, hex encoded.
func NewHoldToken() string {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return uuid.New().String()
	}
	return hex.EncodeToString(b)
}
