package domain

import (
	"math"
	"time"
)

// DiscountType is how a promo code's value is interpreted
type DiscountType string

const (
	DiscountTypePercentage DiscountType = "percentage"
	DiscountTypeFixed      DiscountType = "fixed"
)

// PromoCode is a discount code with usage limits and a validity window.
type PromoCode struct {
	ID                 string       `json:"id"`
	Code               string       `json:"code"`
	Name               string       `json:"name"`
	DiscountType       DiscountType `json:"discount_type"`
	DiscountValue      float64      `json:"discount_value"`
	MinOrderAmount     float64      `json:"min_order_amount"`
	MaxDiscountAmount  float64      `json:"max_discount_amount"`
	UsageLimit         int          `json:"usage_limit"`
	UsageCount         int          `json:"usage_count"`
	PerUserLimit       int          `json:"per_user_limit"`
	ApplicablePackages []string     `json:"applicable_packages,omitempty"`
	ExcludedPackages   []string     `json:"excluded_packages,omitempty"`
	ValidFrom          *time.Time   `json:"valid_from,omitempty"`
	ValidUntil         *time.Time   `json:"valid_until,omitempty"`
	IsActive           bool         `json:"is_active"`
}

// PromoCodeUsage is an append-only audit row recording one application of a
// promo code to a booking.
type PromoCodeUsage struct {
	ID              string    `json:"id"`
	PromoCodeID     string    `json:"promo_code_id"`
	UserID          string    `json:"user_id"`
	BookingID       string    `json:"booking_id"`
	DiscountApplied float64   `json:"discount_applied"`
	CreatedAt       time.Time `json:"created_at"`
}

// IsValidAt reports whether the code is active, inside its validity window,
// and under its global usage limit at the given time.
func (p *PromoCode) IsValidAt(now time.Time) bool {
	if !p.IsActive {
		return false
	}
	if p.ValidFrom != nil && now.Before(*p.ValidFrom) {
		return false
	}
	if p.ValidUntil != nil && now.After(*p.ValidUntil) {
		return false
	}
	if p.UsageLimit > 0 && p.UsageCount >= p.UsageLimit {
		return false
	}
	return true
}

// IsApplicableTo reports whether the code applies to a package. An empty
// applicable list means the code applies to every package not explicitly
// excluded.
func (p *PromoCode) IsApplicableTo(packageID string) bool {
	for _, id := range p.ExcludedPackages {
		if id == packageID {
			return false
		}
	}
	if len(p.ApplicablePackages) == 0 {
		return true
	}
	for _, id := range p.ApplicablePackages {
		if id == packageID {
			return true
		}
	}
	return false
}

// CanBeUsedBy reports whether a user with the given prior usage count may
// apply the code again.
func (p *PromoCode) CanBeUsedBy(priorUsages int) bool {
	if p.PerUserLimit <= 0 {
		return true
	}
	return priorUsages < p.PerUserLimit
}

// CalculateDiscount computes the discount for an order amount. Returns 0 when
// the amount is below the minimum order threshold. Percentage discounts are
// capped at MaxDiscountAmount when one is set.
func (p *PromoCode) CalculateDiscount(amount float64) float64 {
	if p.MinOrderAmount > 0 && amount < p.MinOrderAmount {
		return 0
	}

	var discount float64
	if p.DiscountType == DiscountTypePercentage {
		discount = amount * p.DiscountValue / 100
	} else {
		discount = p.DiscountValue
	}

	if p.MaxDiscountAmount > 0 && discount > p.MaxDiscountAmount {
		discount = p.MaxDiscountAmount
	}

	return Round2(discount)
}

// Round2 rounds a monetary amount to two decimal places.
func Round2(v float64) float64 {
	return math.Round(v*100) / 100
}
