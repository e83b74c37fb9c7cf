package domain

import "time"

// Package is the catalog entity bookings are made against. It is owned by the
// catalog subsystem and read-only to this service.
type Package struct {
	ID                   string   `json:"id"`
	Title                string   `json:"title"`
	Price                float64  `json:"price"`
	MaxParticipants      int      `json:"max_participants"`
	CancellationPolicyID *string  `json:"cancellation_policy_id,omitempty"`
	IsActive             bool     `json:"is_active"`
}

// PackageAvailability is the per-date capacity row for a package. The catalog
// creates it; this service only increments and decrements booked_slots.
type PackageAvailability struct {
	ID             string     `json:"id"`
	PackageID      string     `json:"package_id"`
	Date           time.Time  `json:"date"`
	AvailableSlots int        `json:"available_slots"`
	BookedSlots    int        `json:"booked_slots"`
	PriceOverride  *float64   `json:"price_override,omitempty"`
}

// UnitPrice returns the per-participant price for a travel date, preferring
// the date's price override when one exists.
func (p *Package) UnitPrice(av *PackageAvailability) float64 {
	if av != nil && av.PriceOverride != nil {
		return *av.PriceOverride
	}
	return p.Price
}

// BaseCapacity returns the date's capacity, falling back to the package-wide
// participant limit when no availability row exists.
func (p *Package) BaseCapacity(av *PackageAvailability) int {
	if av != nil {
		return av.AvailableSlots
	}
	return p.MaxParticipants
}

// FreeSlots computes the derived-on-read available capacity: base capacity
// minus confirmed consumption minus slots claimed by live holds, floored at 0.
func (p *Package) FreeSlots(av *PackageAvailability, heldSlots int) int {
	booked := 0
	if av != nil {
		booked = av.BookedSlots
	}
	free := p.BaseCapacity(av) - booked - heldSlots
	if free < 0 {
		return 0
	}
	return free
}
