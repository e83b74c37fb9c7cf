package di

import (
	"github.com/voyago/booking-core/internal/handler"
	"github.com/voyago/booking-core/internal/repository"
	"github.com/voyago/booking-core/internal/service"
	"github.com/voyago/booking-core/pkg/config"
	"github.com/voyago/booking-core/pkg/database"
	"github.com/voyago/booking-core/pkg/redis"
)

// Container holds all dependencies for the booking core
type Container struct {
	// Infrastructure
	DB    *database.PostgresDB
	Redis *redis.Client

	// Repositories
	PackageRepo     repository.PackageRepository
	HoldRepo        repository.HoldRepository
	BookingRepo     repository.BookingRepository
	PromoRepo       repository.PromoRepository
	PolicyRepo      repository.PolicyRepository
	AgentRepo       repository.AgentRepository
	CommissionRepo  repository.CommissionRepository
	IdempotencyRepo repository.IdempotencyRepository
	Transactor      repository.Transactor
	Cache           repository.AvailabilityCache

	// Publishers
	EventPublisher service.EventPublisher

	// Services
	PricingService      service.PricingService
	HoldService         service.HoldService
	BookingService      service.BookingService
	CancellationService service.CancellationService
	IdempotencyService  service.IdempotencyService

	// Handlers
	HealthHandler  *handler.HealthHandler
	HoldHandler    *handler.HoldHandler
	BookingHandler *handler.BookingHandler
}

// ContainerConfig contains configuration for building the container
type ContainerConfig struct {
	Config         *config.Config
	DB             *database.PostgresDB
	Redis          *redis.Client
	EventPublisher service.EventPublisher
}

// NewContainer creates a new dependency injection container
func NewContainer(cfg *ContainerConfig) *Container {
	c := &Container{
		DB:             cfg.DB,
		Redis:          cfg.Redis,
		EventPublisher: cfg.EventPublisher,
	}

	pool := cfg.DB.Pool()

	// Repositories
	c.PackageRepo = repository.NewPostgresPackageRepository(pool)
	c.HoldRepo = repository.NewPostgresHoldRepository(pool)
	c.BookingRepo = repository.NewPostgresBookingRepository(pool)
	c.PromoRepo = repository.NewPostgresPromoRepository(pool)
	c.PolicyRepo = repository.NewPostgresPolicyRepository(pool)
	c.AgentRepo = repository.NewPostgresAgentRepository(pool)
	c.CommissionRepo = repository.NewPostgresCommissionRepository(pool)
	c.IdempotencyRepo = repository.NewPostgresIdempotencyRepository(pool)
	c.Transactor = repository.NewPgxTransactor(pool)

	if cfg.Redis != nil {
		c.Cache = repository.NewRedisAvailabilityCache(cfg.Redis, cfg.Config.Redis.CacheTTL)
	} else {
		c.Cache = repository.NoOpAvailabilityCache{}
	}

	// Services
	c.PricingService = service.NewPricingService(
		c.PackageRepo,
		c.PromoRepo,
		&service.PricingServiceConfig{TaxRate: cfg.Config.Booking.TaxRate},
	)
	c.HoldService = service.NewHoldService(
		c.PackageRepo,
		c.HoldRepo,
		c.Transactor,
		c.Cache,
		&service.HoldServiceConfig{HoldTTL: cfg.Config.Booking.HoldTTL},
	)
	c.BookingService = service.NewBookingService(
		c.PackageRepo,
		c.HoldRepo,
		c.BookingRepo,
		c.PromoRepo,
		c.AgentRepo,
		c.CommissionRepo,
		c.Transactor,
		c.PricingService,
		c.EventPublisher,
		c.Cache,
		&service.BookingServiceConfig{TxMaxRetries: cfg.Config.Booking.TxMaxRetries},
	)
	c.CancellationService = service.NewCancellationService(
		c.BookingRepo,
		c.PackageRepo,
		c.PolicyRepo,
		c.CommissionRepo,
		c.Transactor,
		c.EventPublisher,
		c.Cache,
	)
	c.IdempotencyService = service.NewIdempotencyService(
		c.IdempotencyRepo,
		&service.IdempotencyServiceConfig{TTL: cfg.Config.Booking.IdempotencyTTL},
	)

	// Handlers
	c.HealthHandler = handler.NewHealthHandler(c.DB, c.Redis)
	c.HoldHandler = handler.NewHoldHandler(c.HoldService)
	c.BookingHandler = handler.NewBookingHandler(
		c.BookingService,
		c.CancellationService,
		c.PricingService,
	)

	return c
}
