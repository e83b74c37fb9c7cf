package service

import (
	"context"
	"time"

	"github.com/voyago/booking-core/internal/domain"
	"github.com/voyago/booking-core/internal/repository"
	"github.com/voyago/booking-core/pkg/telemetry"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

// DefaultTaxRate is applied to the discounted subtotal.
const DefaultTaxRate = 0.10

// PriceQuote is the full priced breakdown of a prospective booking.
type PriceQuote struct {
	UnitPrice     float64
	Participants  int
	Subtotal      float64
	Promo         *domain.PromoCode
	PromoDiscount float64
	Tax           float64
	TotalAmount   float64
}

// PricingService defines the interface for pricing and promo validation
type PricingService interface {
	// Quote prices a prospective booking: unit price (date override aware),
	// promo discount, tax, total. promoCode may be empty.
	Quote(ctx context.Context, userID, packageID string, travelDate time.Time, participants int, promoCode string) (*PriceQuote, error)

	// ValidatePromo validates a promo code against an order and returns the
	// discount it would grant
	ValidatePromo(ctx context.Context, userID, code, packageID string, travelDate time.Time, participants int) (*PriceQuote, error)
}

// pricingService implements PricingService
type pricingService struct {
	packageRepo repository.PackageRepository
	promoRepo   repository.PromoRepository
	taxRate     float64
	now         func() time.Time
}

// PricingServiceConfig contains configuration for the pricing service
type PricingServiceConfig struct {
	TaxRate float64
}

// NewPricingService creates a new pricing service
func NewPricingService(
	packageRepo repository.PackageRepository,
	promoRepo repository.PromoRepository,
	cfg *PricingServiceConfig,
) PricingService {
	taxRate := DefaultTaxRate
	if cfg != nil && cfg.TaxRate > 0 {
		taxRate = cfg.TaxRate
	}
	return &pricingService{
		packageRepo: packageRepo,
		promoRepo:   promoRepo,
		taxRate:     taxRate,
		now:         time.Now,
	}
}

// Quote prices a prospective booking
func (s *pricingService) Quote(ctx context.Context, userID, packageID string, travelDate time.Time, participants int, promoCode string) (*PriceQuote, error) {
	ctx, span := telemetry.StartSpan(ctx, "service.pricing.quote")
	defer span.End()

	span.SetAttributes(
		attribute.String("package_id", packageID),
		attribute.Int("participants", participants),
	)

	if participants <= 0 {
		span.SetStatus(codes.Error, "invalid participants")
		return nil, domain.ErrInvalidParticipants
	}

	pkg, err := s.packageRepo.GetByID(ctx, packageID)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	if !pkg.IsActive {
		span.SetStatus(codes.Error, "package inactive")
		return nil, domain.ErrPackageNotFound
	}

	av, err := s.packageRepo.GetAvailability(ctx, packageID, travelDate)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	unitPrice := pkg.UnitPrice(av)
	subtotal := domain.Round2(unitPrice * float64(participants))

	quote := &PriceQuote{
		UnitPrice:    unitPrice,
		Participants: participants,
		Subtotal:     subtotal,
	}

	if promoCode != "" {
		promo, discount, err := s.resolvePromo(ctx, userID, promoCode, packageID, subtotal)
		if err != nil {
			span.SetStatus(codes.Error, err.Error())
			return nil, err
		}
		quote.Promo = promo
		quote.PromoDiscount = discount
	}

	quote.Tax = domain.Round2((quote.Subtotal - quote.PromoDiscount) * s.taxRate)
	quote.TotalAmount = domain.Round2(quote.Subtotal - quote.PromoDiscount + quote.Tax)

	span.SetAttributes(attribute.Float64("total_amount", quote.TotalAmount))
	span.SetStatus(codes.Ok, "")
	return quote, nil
}

// ValidatePromo validates a promo code against an order
func (s *pricingService) ValidatePromo(ctx context.Context, userID, code, packageID string, travelDate time.Time, participants int) (*PriceQuote, error) {
	ctx, span := telemetry.StartSpan(ctx, "service.pricing.validate_promo")
	defer span.End()

	span.SetAttributes(attribute.String("code", code))

	quote, err := s.Quote(ctx, userID, packageID, travelDate, participants, code)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	span.SetStatus(codes.Ok, "")
	return quote, nil
}

// resolvePromo validates a code and computes its discount. The distinct
// failure modes matter to the API: an unknown code is a 404, an invalid or
// inapplicable one a 400.
func (s *pricingService) resolvePromo(ctx context.Context, userID, code, packageID string, subtotal float64) (*domain.PromoCode, float64, error) {
	promo, err := s.promoRepo.GetByCode(ctx, code)
	if err != nil {
		return nil, 0, err
	}

	now := s.now()
	if !promo.IsValidAt(now) {
		return nil, 0, domain.ErrPromoInactive
	}
	if !promo.IsApplicableTo(packageID) {
		return nil, 0, domain.ErrPromoNotApplicable
	}

	if promo.PerUserLimit > 0 && userID != "" {
		used, err := s.promoRepo.CountUsagesByUser(ctx, promo.ID, userID)
		if err != nil {
			return nil, 0, err
		}
		if !promo.CanBeUsedBy(used) {
			return nil, 0, domain.ErrPromoUsageLimit
		}
	}

	if promo.MinOrderAmount > 0 && subtotal < promo.MinOrderAmount {
		return nil, 0, domain.ErrPromoMinOrder
	}

	return promo, promo.CalculateDiscount(subtotal), nil
}

var _ PricingService = (*pricingService)(nil)
