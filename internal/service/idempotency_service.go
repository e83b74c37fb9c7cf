package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"time"

	"github.com/google/uuid"
	"github.com/voyago/booking-core/internal/domain"
	"github.com/voyago/booking-core/internal/metrics"
	"github.com/voyago/booking-core/internal/repository"
	"github.com/voyago/booking-core/pkg/telemetry"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

// IdempotentResult is the outcome of an idempotent execution.
type IdempotentResult struct {
	Status   int
	Body     []byte
	Replayed bool
}

// IdempotentFn produces the response to guard. It runs at most once per key.
type IdempotentFn func(ctx context.Context) (int, []byte, error)

// IdempotencyService defines the interface for at-most-once request execution
type IdempotencyService interface {
	// Execute runs fn under the idempotency key. A repeated key replays the
	// stored response; a key still processing returns
	// domain.ErrIdempotencyConflict; a failed fn leaves no record so a retry
	// re-runs it.
	Execute(ctx context.Context, key, userID, endpoint, method string, requestBody []byte, fn IdempotentFn) (*IdempotentResult, error)

	// DeleteExpired garbage-collects records past their TTL, up to limit
	DeleteExpired(ctx context.Context, limit int) (int64, error)
}

// idempotencyService implements IdempotencyService
type idempotencyService struct {
	repo repository.IdempotencyRepository
	ttl  time.Duration
	now  func() time.Time
}

// IdempotencyServiceConfig contains configuration for the idempotency service
type IdempotencyServiceConfig struct {
	TTL time.Duration
}

// NewIdempotencyService creates a new idempotency service
func NewIdempotencyService(repo repository.IdempotencyRepository, cfg *IdempotencyServiceConfig) IdempotencyService {
	ttl := domain.DefaultIdempotencyTTL
	if cfg != nil && cfg.TTL > 0 {
		ttl = cfg.TTL
	}
	return &idempotencyService{
		repo: repo,
		ttl:  ttl,
		now:  time.Now,
	}
}

// Execute runs fn at most once per key
func (s *idempotencyService) Execute(ctx context.Context, key, userID, endpoint, method string, requestBody []byte, fn IdempotentFn) (*IdempotentResult, error) {
	ctx, span := telemetry.StartSpan(ctx, "service.idempotency.execute")
	defer span.End()

	span.SetAttributes(
		attribute.String("endpoint", endpoint),
		attribute.String("method", method),
	)

	if !domain.ValidIdempotencyKey(key) {
		span.SetStatus(codes.Error, "malformed key")
		return nil, domain.ErrIdempotencyKeyMalformed
	}

	now := s.now()
	requestHash := HashRequest(requestBody)
	record := &domain.IdempotencyKey{
		ID:          uuid.New().String(),
		Key:         key,
		UserID:      userID,
		Endpoint:    endpoint,
		Method:      method,
		RequestHash: requestHash,
		ExpiresAt:   now.Add(s.ttl),
		CreatedAt:   now,
	}

	created, existing, err := s.repo.Claim(ctx, record)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	if !created && existing.IsExpired(now) {
		// TTL elapsed but the garbage collector has not reached the row yet.
		// The stored response is no longer replayable; reclaim the key for a
		// fresh run.
		if err := s.repo.DeleteIfExpired(ctx, key, now); err != nil {
			span.SetStatus(codes.Error, err.Error())
			return nil, err
		}
		created, existing, err = s.repo.Claim(ctx, record)
		if err != nil {
			span.SetStatus(codes.Error, err.Error())
			return nil, err
		}
	}

	if !created {
		// Reusing a key for a different request body is a client bug, not a
		// replay.
		if existing.RequestHash != requestHash {
			metrics.RecordIdempotentConflict(ctx, endpoint)
			span.SetStatus(codes.Error, "request hash mismatch")
			return nil, domain.ErrIdempotencyConflict
		}
		if existing.IsProcessing {
			metrics.RecordIdempotentConflict(ctx, endpoint)
			span.SetStatus(codes.Error, "still processing")
			return nil, domain.ErrIdempotencyConflict
		}
		if existing.HasResponse() {
			metrics.RecordIdempotentReplay(ctx, endpoint)
			span.SetAttributes(attribute.Bool("replayed", true))
			span.SetStatus(codes.Ok, "")
			return &IdempotentResult{
				Status:   *existing.ResponseStatus,
				Body:     existing.ResponseBody,
				Replayed: true,
			}, nil
		}
		// Record exists but carries neither claim nor response. Treat it as
		// a conflict rather than risking a second execution.
		span.SetStatus(codes.Error, "inconsistent record")
		return nil, domain.ErrIdempotencyConflict
	}

	status, body, err := fn(ctx)
	if err != nil {
		// A failed operation must not be cached. Release the claim so the
		// client's retry gets a fresh run.
		if clearErr := s.repo.ClearProcessing(ctx, key); clearErr != nil {
			telemetry.SetSpanError(ctx, clearErr)
		}
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	if err := s.repo.StoreResponse(ctx, key, status, body, s.now()); err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	span.SetStatus(codes.Ok, "")
	return &IdempotentResult{Status: status, Body: body}, nil
}

// DeleteExpired garbage-collects records past their TTL, up to limit
func (s *idempotencyService) DeleteExpired(ctx context.Context, limit int) (int64, error) {
	ctx, span := telemetry.StartSpan(ctx, "service.idempotency.delete_expired")
	defer span.End()

	if limit <= 0 {
		limit = 500
	}

	count, err := s.repo.DeleteExpired(ctx, s.now(), limit)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return 0, err
	}

	span.SetAttributes(attribute.Int64("deleted", count))
	span.SetStatus(codes.Ok, "")
	return count, nil
}

// HashRequest fingerprints a request body for idempotency comparison.
func HashRequest(body []byte) string {
	sum := sha256.Sum256(body)
	return hex.EncodeToString(sum[:])
}

var _ IdempotencyService = (*idempotencyService)(nil)
