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

// HoldSweeperConfig contains configuration for the hold sweeper
type HoldSweeperConfig struct {
	// ScanInterval is the interval between sweeps
	ScanInterval time.Duration
	// BatchSize is the maximum number of holds expired per sweep
	BatchSize int
}

// DefaultHoldSweeperConfig returns default configuration
func DefaultHoldSweeperConfig() *HoldSweeperConfig {
	return &HoldSweeperConfig{
		ScanInterval: time.Minute,
		BatchSize:    100,
	}
}

// HoldSweeper periodically expires stale inventory holds. It is advisory:
// the capacity ledger already excludes holds past their expiry, so a missed
// sweep never blocks capacity, it only delays the status flip.
type HoldSweeper struct {
	holdService service.HoldService
	config      *HoldSweeperConfig
	log         *logger.Logger
	stopCh      chan struct{}
	wg          sync.WaitGroup
	mu          sync.Mutex
	running     bool

	// Stats
	totalExpired  int64
	lastSweepTime time.Time
	lastSweepSize int64
}

// NewHoldSweeper creates a new hold sweeper
func NewHoldSweeper(holdService service.HoldService, config *HoldSweeperConfig) *HoldSweeper {
	if config == nil {
		config = DefaultHoldSweeperConfig()
	}
	return &HoldSweeper{
		holdService: holdService,
		config:      config,
		log:         logger.Get(),
		stopCh:      make(chan struct{}),
	}
}

// Start starts the hold sweeper
func (w *HoldSweeper) Start(ctx context.Context) error {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return fmt.Errorf("hold sweeper already running")
	}
	w.running = true
	w.mu.Unlock()

	w.log.Info("Starting hold sweeper",
		zap.Duration("scan_interval", w.config.ScanInterval),
		zap.Int("batch_size", w.config.BatchSize),
	)

	w.wg.Add(1)
	go w.run(ctx)

	return nil
}

// Stop stops the hold sweeper and waits for the in-flight sweep
func (w *HoldSweeper) Stop() {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return
	}
	w.running = false
	w.mu.Unlock()

	w.log.Info("Stopping hold sweeper")
	close(w.stopCh)
	w.wg.Wait()
	w.log.Info("Hold sweeper stopped")
}

func (w *HoldSweeper) run(ctx context.Context) {
	defer w.wg.Done()

	ticker := time.NewTicker(w.config.ScanInterval)
	defer ticker.Stop()

	// Sweep immediately on start
	w.sweep(ctx)

	for {
		select {
		case <-ctx.Done():
			return
		case <-w.stopCh:
			return
		case <-ticker.C:
			w.sweep(ctx)
		}
	}
}

// sweep expires one batch of stale holds, draining until a sweep comes back
// short of the batch size
func (w *HoldSweeper) sweep(ctx context.Context) {
	w.mu.Lock()
	w.lastSweepTime = time.Now()
	w.mu.Unlock()

	var total int64
	for {
		count, err := w.holdService.SweepExpired(ctx, w.config.BatchSize)
		if err != nil {
			w.log.Error("Failed to sweep expired holds", zap.Error(err))
			break
		}
		total += count
		if count < int64(w.config.BatchSize) {
			break
		}
	}

	w.mu.Lock()
	w.totalExpired += total
	w.lastSweepSize = total
	w.mu.Unlock()

	if total > 0 {
		w.log.Info("Expired stale holds", zap.Int64("count", total))
	}
}

// GetStats returns sweeper statistics
func (w *HoldSweeper) GetStats() *HoldSweeperStats {
	w.mu.Lock()
	defer w.mu.Unlock()

	return &HoldSweeperStats{
		IsRunning:     w.running,
		TotalExpired:  w.totalExpired,
		LastSweepTime: w.lastSweepTime,
		LastSweepSize: w.lastSweepSize,
	}
}

// HoldSweeperStats contains sweeper statistics
type HoldSweeperStats struct {
	IsRunning     bool      `json:"is_running"`
	TotalExpired  int64     `json:"total_expired"`
	LastSweepTime time.Time `json:"last_sweep_time"`
	LastSweepSize int64     `json:"last_sweep_size"`
}
