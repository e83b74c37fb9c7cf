package retry

import (
	"context"
	"errors"
	"math"
	"math/rand"
	"time"
)

var (
	ErrMaxRetriesExceeded = errors.New("max retries exceeded")
	ErrContextCanceled    = errors.New("context canceled during retry")
)

// Config controls the backoff schedule.
type Config struct {
	// MaxRetries is the retry count after the initial attempt. Zero means
	// a single attempt.
	MaxRetries int
	// InitialInterval is the wait before the first retry.
	InitialInterval time.Duration
	// MaxInterval caps the backoff growth.
	MaxInterval time.Duration
	// Multiplier scales the interval after each retry.
	Multiplier float64
	// JitterFactor (0..1) randomizes each interval to avoid lockstep
	// retries across callers.
	JitterFactor float64
}

// DefaultConfig backs off 1s, 2s, 4s, 8s, 16s, capped at 30s.
func DefaultConfig() *Config {
	return &Config{
		MaxRetries:      5,
		InitialInterval: time.Second,
		MaxInterval:     30 * time.Second,
		Multiplier:      2.0,
		JitterFactor:    0.1,
	}
}

// Operation is the unit of work being retried.
type Operation func(ctx context.Context) error

// PermanentError stops retrying immediately; the wrapped error is returned
// to the caller as-is.
type PermanentError struct {
	Err error
}

func (e *PermanentError) Error() string { return e.Err.Error() }
func (e *PermanentError) Unwrap() error { return e.Err }

// Permanent marks err as not retryable. Permanent(nil) is nil.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &PermanentError{Err: err}
}

// Result reports how a retried operation ended.
type Result struct {
	// Err is nil on success, the unwrapped cause on a permanent error,
	// ErrMaxRetriesExceeded on exhaustion, or ErrContextCanceled.
	Err error
	// Attempts counts every call of the operation, the first included.
	Attempts int
	// TotalDuration includes time spent waiting between attempts.
	TotalDuration time.Duration
	// LastError is what the final attempt returned.
	LastError error
}

// Retrier runs operations under an exponential backoff schedule.
type Retrier struct {
	config *Config
}

// New normalizes the config; nil and zero fields fall back to defaults.
func New(config *Config) *Retrier {
	if config == nil {
		config = DefaultConfig()
	}
	if config.InitialInterval <= 0 {
		config.InitialInterval = time.Second
	}
	if config.MaxInterval <= 0 {
		config.MaxInterval = 30 * time.Second
	}
	if config.Multiplier <= 0 {
		config.Multiplier = 2.0
	}
	config.JitterFactor = math.Max(0, math.Min(1, config.JitterFactor))
	return &Retrier{config: config}
}

// Do runs op until it succeeds, returns a permanent error, exhausts the
// budget, or the context ends.
func (r *Retrier) Do(ctx context.Context, op Operation) *Result {
	start := time.Now()
	res := &Result{}

	finish := func(err error) *Result {
		res.Err = err
		res.TotalDuration = time.Since(start)
		return res
	}

	for attempt := 0; ; attempt++ {
		res.Attempts = attempt + 1

		if ctx.Err() != nil {
			return finish(ErrContextCanceled)
		}

		err := op(ctx)
		if err == nil {
			return finish(nil)
		}
		res.LastError = err

		var perm *PermanentError
		if errors.As(err, &perm) {
			res.LastError = perm.Err
			return finish(perm.Err)
		}

		if attempt == r.config.MaxRetries {
			return finish(ErrMaxRetriesExceeded)
		}

		select {
		case <-ctx.Done():
			return finish(ErrContextCanceled)
		case <-time.After(r.calculateInterval(attempt)):
		}
	}
}

func (r *Retrier) calculateInterval(attempt int) time.Duration {
	interval := float64(r.config.InitialInterval) * math.Pow(r.config.Multiplier, float64(attempt))

	if r.config.JitterFactor > 0 {
		spread := interval * r.config.JitterFactor
		interval += (rand.Float64()*2 - 1) * spread
	}

	if interval > float64(r.config.MaxInterval) {
		interval = float64(r.config.MaxInterval)
	}
	if interval < 0 {
		interval = float64(r.config.InitialInterval)
	}
	return time.Duration(interval)
}

// Do runs op with a one-off retrier built from config.
func Do(ctx context.Context, config *Config, op Operation) *Result {
	return New(config).Do(ctx, op)
}
