package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/voyago/booking-core/internal/repository"
	"github.com/voyago/booking-core/internal/service"
	"github.com/voyago/booking-core/internal/worker"
	"github.com/voyago/booking-core/pkg/config"
	"github.com/voyago/booking-core/pkg/database"
	"github.com/voyago/booking-core/pkg/logger"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Initialize logger
	if _, err := logger.Init(&logger.Config{
		Level:       "info",
		ServiceName: "hold-sweeper",
		Development: cfg.IsDevelopment(),
	}); err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer logger.Sync()

	appLog := logger.Get()
	appLog.Info("Starting hold sweeper...")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// A sweeper only needs a small pool
	db, err := database.NewPostgres(ctx, &database.PostgresConfig{
		Host:          cfg.Database.Host,
		Port:          cfg.Database.Port,
		User:          cfg.Database.User,
		Password:      cfg.Database.Password,
		Database:      cfg.Database.DBName,
		SSLMode:       cfg.Database.SSLMode,
		MaxConns:      5,
		MinConns:      1,
		MaxRetries:    3,
		RetryInterval: 2 * time.Second,
	})
	if err != nil {
		appLog.Fatal(fmt.Sprintf("Failed to connect to database: %v", err))
	}
	defer db.Close()
	appLog.Info("Database connected")

	pool := db.Pool()
	holdService := service.NewHoldService(
		repository.NewPostgresPackageRepository(pool),
		repository.NewPostgresHoldRepository(pool),
		repository.NewPgxTransactor(pool),
		repository.NoOpAvailabilityCache{},
		&service.HoldServiceConfig{HoldTTL: cfg.Booking.HoldTTL},
	)

	sweeper := worker.NewHoldSweeper(holdService, &worker.HoldSweeperConfig{
		ScanInterval: cfg.Booking.SweepInterval,
		BatchSize:    cfg.Booking.SweepBatchSize,
	})

	if err := sweeper.Start(ctx); err != nil {
		appLog.Fatal(fmt.Sprintf("Failed to start sweeper: %v", err))
	}
	appLog.Info("Hold sweeper started successfully")

	// Wait for interrupt signal for graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	appLog.Info("Shutting down sweeper...")
	sweeper.Stop()
	appLog.Info("Sweeper exited gracefully")
}
