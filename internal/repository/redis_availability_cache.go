package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"github.com/voyago/booking-core/pkg/redis"
	"github.com/voyago/booking-core/pkg/telemetry"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

// AvailabilitySnapshot is the cached answer to "how many slots are free for
// this package on this date". Served to the public availability endpoint;
// booking transactions always recompute against Postgres.
type AvailabilitySnapshot struct {
	PackageID  string    `json:"package_id"`
	TravelDate time.Time `json:"travel_date"`
	FreeSlots  int       `json:"free_slots"`
	UnitPrice  float64   `json:"unit_price"`
	CachedAt   time.Time `json:"cached_at"`
}

// AvailabilityCache is a read-through cache for availability snapshots.
type AvailabilityCache interface {
	Get(ctx context.Context, packageID string, date time.Time) (*AvailabilitySnapshot, error)
	Set(ctx context.Context, snapshot *AvailabilitySnapshot) error
	Invalidate(ctx context.Context, packageID string, date time.Time) error
}

// RedisAvailabilityCache implements AvailabilityCache on Redis with a short
// TTL. Cache misses and Redis failures both fall through to Postgres, so the
// cache is never load-bearing for correctness.
type RedisAvailabilityCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisAvailabilityCache creates a new RedisAvailabilityCache
func NewRedisAvailabilityCache(client *redis.Client, ttl time.Duration) *RedisAvailabilityCache {
	if ttl <= 0 {
		ttl = 10 * time.Second
	}
	return &RedisAvailabilityCache{client: client, ttl: ttl}
}

func availabilityKey(packageID string, date time.Time) string {
	return fmt.Sprintf("availability:%s:%s", packageID, date.Format("2006-01-02"))
}

// Get retrieves a cached snapshot, or nil on a miss
func (c *RedisAvailabilityCache) Get(ctx context.Context, packageID string, date time.Time) (*AvailabilitySnapshot, error) {
	ctx, span := telemetry.StartSpan(ctx, "repo.redis.availability.get")
	defer span.End()

	span.SetAttributes(attribute.String("package_id", packageID))

	data, err := c.client.Get(ctx, availabilityKey(packageID, date)).Bytes()
	if err != nil {
		if err == goredis.Nil {
			span.SetAttributes(attribute.Bool("cache_hit", false))
			span.SetStatus(codes.Ok, "miss")
			return nil, nil
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("failed to get availability from cache: %w", err)
	}

	snapshot := &AvailabilitySnapshot{}
	if err := json.Unmarshal(data, snapshot); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("failed to decode availability snapshot: %w", err)
	}

	span.SetAttributes(attribute.Bool("cache_hit", true))
	span.SetStatus(codes.Ok, "")
	return snapshot, nil
}

// Set stores a snapshot with the cache TTL
func (c *RedisAvailabilityCache) Set(ctx context.Context, snapshot *AvailabilitySnapshot) error {
	ctx, span := telemetry.StartSpan(ctx, "repo.redis.availability.set")
	defer span.End()

	span.SetAttributes(attribute.String("package_id", snapshot.PackageID))

	data, err := json.Marshal(snapshot)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return fmt.Errorf("failed to encode availability snapshot: %w", err)
	}

	key := availabilityKey(snapshot.PackageID, snapshot.TravelDate)
	if err := c.client.Set(ctx, key, data, c.ttl).Err(); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return fmt.Errorf("failed to cache availability snapshot: %w", err)
	}

	span.SetStatus(codes.Ok, "")
	return nil
}

// Invalidate drops the cached snapshot after a capacity-changing write
func (c *RedisAvailabilityCache) Invalidate(ctx context.Context, packageID string, date time.Time) error {
	ctx, span := telemetry.StartSpan(ctx, "repo.redis.availability.invalidate")
	defer span.End()

	span.SetAttributes(attribute.String("package_id", packageID))

	if err := c.client.Del(ctx, availabilityKey(packageID, date)).Err(); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return fmt.Errorf("failed to invalidate availability cache: %w", err)
	}

	span.SetStatus(codes.Ok, "")
	return nil
}

// NoOpAvailabilityCache is used when Redis is not configured. Every read is
// a miss.
type NoOpAvailabilityCache struct{}

func (NoOpAvailabilityCache) Get(ctx context.Context, packageID string, date time.Time) (*AvailabilitySnapshot, error) {
	return nil, nil
}

func (NoOpAvailabilityCache) Set(ctx context.Context, snapshot *AvailabilitySnapshot) error {
	return nil
}

func (NoOpAvailabilityCache) Invalidate(ctx context.Context, packageID string, date time.Time) error {
	return nil
}

var (
	_ AvailabilityCache = (*RedisAvailabilityCache)(nil)
	_ AvailabilityCache = NoOpAvailabilityCache{}
)
