package worker

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/voyago/booking-core/internal/service"
	"github.com/voyago/booking-core/pkg/logger"
	"go.uber.org/zap"
)

// IdempotencyGCConfig contains configuration for the idempotency garbage
// collector
type IdempotencyGCConfig struct {
	// ScanInterval is the interval between collection passes
	ScanInterval time.Duration
	// BatchSize is the maximum number of keys deleted per pass
	BatchSize int
}

// DefaultIdempotencyGCConfig returns default configuration
func DefaultIdempotencyGCConfig() *IdempotencyGCConfig {
	return &IdempotencyGCConfig{
		ScanInterval: time.Hour,
		BatchSize:    500,
	}
}

// IdempotencyGC periodically deletes idempotency records past their TTL.
type IdempotencyGC struct {
	idempotencyService service.IdempotencyService
	config             *IdempotencyGCConfig
	log                *logger.Logger
	stopCh             chan struct{}
	wg                 sync.WaitGroup
	mu                 sync.Mutex
	running            bool

	// Stats
	totalDeleted int64
	lastRunTime  time.Time
}

// NewIdempotencyGC creates a new idempotency garbage collector
func NewIdempotencyGC(idempotencyService service.IdempotencyService, config *IdempotencyGCConfig) *IdempotencyGC {
	if config == nil {
		config = DefaultIdempotencyGCConfig()
	}
	return &IdempotencyGC{
		idempotencyService: idempotencyService,
		config:             config,
		log:                logger.Get(),
		stopCh:             make(chan struct{}),
	}
}

// Start starts the garbage collector
func (w *IdempotencyGC) Start(ctx context.Context) error {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return fmt.Errorf("idempotency gc already running")
	}
	w.running = true
	w.mu.Unlock()

	w.log.Info("Starting idempotency gc",
		zap.Duration("scan_interval", w.config.ScanInterval),
		zap.Int("batch_size", w.config.BatchSize),
	)

	w.wg.Add(1)
	go w.run(ctx)

	return nil
}

// Stop stops the garbage collector and waits for the in-flight pass
func (w *IdempotencyGC) Stop() {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return
	}
	w.running = false
	w.mu.Unlock()

	w.log.Info("Stopping idempotency gc")
	close(w.stopCh)
	w.wg.Wait()
	w.log.Info("Idempotency gc stopped")
}

func (w *IdempotencyGC) run(ctx context.Context) {
	defer w.wg.Done()

	ticker := time.NewTicker(w.config.ScanInterval)
	defer ticker.Stop()

	w.collect(ctx)

	for {
		select {
		case <-ctx.Done():
			return
		case <-w.stopCh:
			return
		case <-ticker.C:
			w.collect(ctx)
		}
	}
}

func (w *IdempotencyGC) collect(ctx context.Context) {
	w.mu.Lock()
	w.lastRunTime = time.Now()
	w.mu.Unlock()

	var total int64
	for {
		count, err := w.idempotencyService.DeleteExpired(ctx, w.config.BatchSize)
		if err != nil {
			w.log.Error("Failed to delete expired idempotency keys", zap.Error(err))
			break
		}
		total += count
		if count < int64(w.config.BatchSize) {
			break
		}
	}

	w.mu.Lock()
	w.totalDeleted += total
	w.mu.Unlock()

	if total > 0 {
		w.log.Info("Deleted expired idempotency keys", zap.Int64("count", total))
	}
}

// GetStats returns collector statistics
func (w *IdempotencyGC) GetStats() *IdempotencyGCStats {
	w.mu.Lock()
	defer w.mu.Unlock()

	return &IdempotencyGCStats{
		IsRunning:    w.running,
		TotalDeleted: w.totalDeleted,
		LastRunTime:  w.lastRunTime,
	}
}

// IdempotencyGCStats contains collector statistics
type IdempotencyGCStats struct {
	IsRunning    bool      `json:"is_running"`
	TotalDeleted int64     `json:"total_deleted"`
	LastRunTime  time.Time `json:"last_run_time"`
}
