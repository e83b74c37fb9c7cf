package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/voyago/booking-core/internal/domain"
	"github.com/voyago/booking-core/internal/metrics"
	"github.com/voyago/booking-core/internal/repository"
	"github.com/voyago/booking-core/pkg/telemetry"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

// HoldService defines the interface for inventory hold business logic
type HoldService interface {
	// CreateHold reserves capacity for a user for the hold TTL. A new hold
	// supersedes the user's prior active hold for the same package and date.
	CreateHold(ctx context.Context, userID, packageID string, travelDate time.Time, participants int) (*domain.InventoryHold, int, error)

	// ReleaseHold releases the user's active hold by token
	ReleaseHold(ctx context.Context, userID, token string) error

	// GetAvailability returns the free slots and unit price for a package on
	// a date, serving from cache when possible
	GetAvailability(ctx context.Context, packageID string, travelDate time.Time) (int, float64, error)

	// SweepExpired transitions stale active holds to expired, up to limit
	SweepExpired(ctx context.Context, limit int) (int64, error)
}

// holdService implements HoldService
type holdService struct {
	packageRepo repository.PackageRepository
	holdRepo    repository.HoldRepository
	transactor  repository.Transactor
	cache       repository.AvailabilityCache
	holdTTL     time.Duration
	now         func() time.Time
}

// HoldServiceConfig contains configuration for the hold service
type HoldServiceConfig struct {
	HoldTTL time.Duration
}

// NewHoldService creates a new hold service
func NewHoldService(
	packageRepo repository.PackageRepository,
	holdRepo repository.HoldRepository,
	transactor repository.Transactor,
	cache repository.AvailabilityCache,
	cfg *HoldServiceConfig,
) HoldService {
	ttl := domain.DefaultHoldTTL
	if cfg != nil && cfg.HoldTTL > 0 {
		ttl = cfg.HoldTTL
	}
	if cache == nil {
		cache = repository.NoOpAvailabilityCache{}
	}
	return &holdService{
		packageRepo: packageRepo,
		holdRepo:    holdRepo,
		transactor:  transactor,
		cache:       cache,
		holdTTL:     ttl,
		now:         time.Now,
	}
}

// CreateHold reserves capacity for a user. The whole check-and-insert runs
// inside one transaction under the package row lock, so two concurrent holds
// cannot both pass the capacity check. Returns the hold and the slots still
// free after it.
func (s *holdService) CreateHold(ctx context.Context, userID, packageID string, travelDate time.Time, participants int) (*domain.InventoryHold, int, error) {
	ctx, span := telemetry.StartSpan(ctx, "service.hold.create")
	defer span.End()

	span.SetAttributes(
		attribute.String("user_id", userID),
		attribute.String("package_id", packageID),
		attribute.Int("participants", participants),
	)

	if userID == "" {
		span.SetStatus(codes.Error, "invalid user_id")
		return nil, 0, domain.ErrInvalidUserID
	}
	if packageID == "" {
		span.SetStatus(codes.Error, "invalid package_id")
		return nil, 0, domain.ErrInvalidPackageID
	}
	if participants <= 0 {
		span.SetStatus(codes.Error, "invalid participants")
		return nil, 0, domain.ErrInvalidParticipants
	}

	now := s.now()
	if !travelDate.After(now) {
		span.SetStatus(codes.Error, "travel date not in the future")
		return nil, 0, domain.ErrInvalidTravelDate
	}

	var (
		hold      *domain.InventoryHold
		remaining int
	)

	err := s.transactor.WithTx(ctx, func(ctx context.Context) error {
		pkg, err := s.packageRepo.GetForUpdate(ctx, packageID)
		if err != nil {
			return err
		}
		if !pkg.IsActive {
			return domain.ErrPackageNotFound
		}

		// Supersede the user's prior hold before counting, so it does not
		// consume capacity against their own request.
		if _, err := s.holdRepo.ReleaseActiveForUser(ctx, userID, packageID, travelDate); err != nil {
			return err
		}

		av, err := s.packageRepo.GetAvailability(ctx, packageID, travelDate)
		if err != nil {
			return err
		}
		held, err := s.holdRepo.SumActiveSlots(ctx, packageID, travelDate, now)
		if err != nil {
			return err
		}

		free := pkg.FreeSlots(av, held)
		if participants > free {
			return domain.ErrCapacityExceeded
		}

		hold = &domain.InventoryHold{
			ID:         uuid.New().String(),
			PackageID:  packageID,
			UserID:     userID,
			TravelDate: travelDate,
			SlotsHeld:  participants,
			HoldToken:  domain.NewHoldToken(),
			ExpiresAt:  now.Add(s.holdTTL),
			Status:     domain.HoldStatusActive,
			CreatedAt:  now,
			UpdatedAt:  now,
		}
		if err := s.holdRepo.Create(ctx, hold); err != nil {
			return err
		}

		remaining = free - participants
		return nil
	})
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, 0, err
	}

	// The cache is best-effort; a stale entry only affects the public
	// availability read, never a booking decision.
	_ = s.cache.Invalidate(ctx, packageID, travelDate)

	metrics.RecordHoldCreated(ctx, packageID, participants)
	span.SetAttributes(attribute.Int("remaining_slots", remaining))
	span.SetStatus(codes.Ok, "")
	return hold, remaining, nil
}

// ReleaseHold releases the user's active hold by token
func (s *holdService) ReleaseHold(ctx context.Context, userID, token string) error {
	ctx, span := telemetry.StartSpan(ctx, "service.hold.release")
	defer span.End()

	span.SetAttributes(attribute.String("user_id", userID))

	if token == "" {
		span.SetStatus(codes.Error, "not found")
		return domain.ErrHoldNotFound
	}

	hold, err := s.holdRepo.GetActiveByToken(ctx, token, userID)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return err
	}

	if err := s.holdRepo.Release(ctx, token, userID); err != nil {
		span.SetStatus(codes.Error, err.Error())
		return err
	}

	_ = s.cache.Invalidate(ctx, hold.PackageID, hold.TravelDate)

	metrics.RecordHoldReleased(ctx, hold.PackageID)
	span.SetStatus(codes.Ok, "")
	return nil
}

// GetAvailability returns the free slots and unit price for a package on a
// date. Served from the Redis cache when fresh; recomputed from Postgres on a
// miss.
func (s *holdService) GetAvailability(ctx context.Context, packageID string, travelDate time.Time) (int, float64, error) {
	ctx, span := telemetry.StartSpan(ctx, "service.hold.get_availability")
	defer span.End()

	span.SetAttributes(attribute.String("package_id", packageID))

	if snapshot, err := s.cache.Get(ctx, packageID, travelDate); err == nil && snapshot != nil {
		span.SetAttributes(attribute.Bool("cache_hit", true))
		span.SetStatus(codes.Ok, "")
		return snapshot.FreeSlots, snapshot.UnitPrice, nil
	}

	pkg, err := s.packageRepo.GetByID(ctx, packageID)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return 0, 0, err
	}
	if !pkg.IsActive {
		span.SetStatus(codes.Error, "package inactive")
		return 0, 0, domain.ErrPackageNotFound
	}

	now := s.now()
	av, err := s.packageRepo.GetAvailability(ctx, packageID, travelDate)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return 0, 0, err
	}
	held, err := s.holdRepo.SumActiveSlots(ctx, packageID, travelDate, now)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return 0, 0, err
	}

	free := pkg.FreeSlots(av, held)
	unitPrice := pkg.UnitPrice(av)

	_ = s.cache.Set(ctx, &repository.AvailabilitySnapshot{
		PackageID:  packageID,
		TravelDate: travelDate,
		FreeSlots:  free,
		UnitPrice:  unitPrice,
		CachedAt:   now,
	})

	span.SetAttributes(attribute.Int("free_slots", free))
	span.SetStatus(codes.Ok, "")
	return free, unitPrice, nil
}

// SweepExpired transitions stale active holds to expired, up to limit. Safe
// to run concurrently; the conditional update makes each hold expire once.
func (s *holdService) SweepExpired(ctx context.Context, limit int) (int64, error) {
	ctx, span := telemetry.StartSpan(ctx, "service.hold.sweep_expired")
	defer span.End()

	if limit <= 0 {
		limit = 100
	}

	count, err := s.holdRepo.SweepExpired(ctx, s.now(), limit)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return 0, err
	}

	if count > 0 {
		metrics.RecordHoldsExpired(ctx, count)
	}
	span.SetAttributes(attribute.Int64("expired", count))
	span.SetStatus(codes.Ok, "")
	return count, nil
}

var _ HoldService = (*holdService)(nil)
