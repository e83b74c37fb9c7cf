package metrics

import (
	"context"
	"sync"

	"github.com/voyago/booking-core/pkg/telemetry"
	"go.opentelemetry.io/otel/attribute"
)

var (
	// Hold counters
	HoldsCreated  *telemetry.Counter
	HoldsReleased *telemetry.Counter
	HoldsExpired  *telemetry.Counter

	// Booking counters
	BookingsCreated   *telemetry.Counter
	BookingsConfirmed *telemetry.Counter
	BookingsCancelled *telemetry.Counter
	BookingsFailed    *telemetry.Counter

	// Promo counters
	PromoApplied  *telemetry.Counter
	PromoRejected *telemetry.Counter

	// Idempotency counters
	IdempotentReplays   *telemetry.Counter
	IdempotentConflicts *telemetry.Counter

	// Histograms
	BookingDuration *telemetry.Histogram
	RefundAmount    *telemetry.Histogram

	// Gauges
	ActiveHolds *telemetry.UpDownCounter

	initOnce sync.Once
	initErr  error
)

// Init initializes all booking-core metrics
func Init() error {
	initOnce.Do(func() {
		initErr = initMetrics()
	})
	return initErr
}

func initMetrics() error {
	var err error

	HoldsCreated, err = telemetry.NewCounter(telemetry.MetricOpts{
		Name:        "holds_created_total",
		Description: "Total number of inventory holds created",
		Unit:        "1",
	})
	if err != nil {
		return err
	}

	HoldsReleased, err = telemetry.NewCounter(telemetry.MetricOpts{
		Name:        "holds_released_total",
		Description: "Total number of inventory holds released",
		Unit:        "1",
	})
	if err != nil {
		return err
	}

	HoldsExpired, err = telemetry.NewCounter(telemetry.MetricOpts{
		Name:        "holds_expired_total",
		Description: "Total number of inventory holds expired by the sweeper",
		Unit:        "1",
	})
	if err != nil {
		return err
	}

	BookingsCreated, err = telemetry.NewCounter(telemetry.MetricOpts{
		Name:        "bookings_created_total",
		Description: "Total number of bookings created",
		Unit:        "1",
	})
	if err != nil {
		return err
	}

	BookingsConfirmed, err = telemetry.NewCounter(telemetry.MetricOpts{
		Name:        "bookings_confirmed_total",
		Description: "Total number of bookings confirmed",
		Unit:        "1",
	})
	if err != nil {
		return err
	}

	BookingsCancelled, err = telemetry.NewCounter(telemetry.MetricOpts{
		Name:        "bookings_cancelled_total",
		Description: "Total number of bookings cancelled",
		Unit:        "1",
	})
	if err != nil {
		return err
	}

	BookingsFailed, err = telemetry.NewCounter(telemetry.MetricOpts{
		Name:        "bookings_failed_total",
		Description: "Total number of failed booking attempts",
		Unit:        "1",
	})
	if err != nil {
		return err
	}

	PromoApplied, err = telemetry.NewCounter(telemetry.MetricOpts{
		Name:        "promo_applied_total",
		Description: "Total number of promo codes applied to bookings",
		Unit:        "1",
	})
	if err != nil {
		return err
	}

	PromoRejected, err = telemetry.NewCounter(telemetry.MetricOpts{
		Name:        "promo_rejected_total",
		Description: "Total number of promo code validations rejected",
		Unit:        "1",
	})
	if err != nil {
		return err
	}

	IdempotentReplays, err = telemetry.NewCounter(telemetry.MetricOpts{
		Name:        "idempotent_replays_total",
		Description: "Total number of requests served from stored idempotent responses",
		Unit:        "1",
	})
	if err != nil {
		return err
	}

	IdempotentConflicts, err = telemetry.NewCounter(telemetry.MetricOpts{
		Name:        "idempotent_conflicts_total",
		Description: "Total number of requests rejected because the key was still processing",
		Unit:        "1",
	})
	if err != nil {
		return err
	}

	BookingDuration, err = telemetry.NewHistogram(telemetry.MetricOpts{
		Name:        "booking_duration_seconds",
		Description: "Time taken to create a booking",
		Unit:        "s",
	})
	if err != nil {
		return err
	}

	RefundAmount, err = telemetry.NewHistogram(telemetry.MetricOpts{
		Name:        "refund_amount",
		Description: "Refund amounts granted on cancellation",
		Unit:        "1",
	})
	if err != nil {
		return err
	}

	ActiveHolds, err = telemetry.NewUpDownCounter(telemetry.MetricOpts{
		Name:        "active_holds",
		Description: "Number of currently active inventory holds",
		Unit:        "1",
	})
	if err != nil {
		return err
	}

	return nil
}

// RecordHoldCreated records a hold creation metric
func RecordHoldCreated(ctx context.Context, packageID string, slots int) {
	if HoldsCreated != nil {
		HoldsCreated.Inc(ctx, attribute.String("package_id", packageID))
	}
	if ActiveHolds != nil {
		ActiveHolds.Inc(ctx)
	}
}

// RecordHoldReleased records a hold release metric
func RecordHoldReleased(ctx context.Context, packageID string) {
	if HoldsReleased != nil {
		HoldsReleased.Inc(ctx, attribute.String("package_id", packageID))
	}
	if ActiveHolds != nil {
		ActiveHolds.Dec(ctx)
	}
}

// RecordHoldsExpired records a sweeper batch metric
func RecordHoldsExpired(ctx context.Context, count int64) {
	if HoldsExpired != nil {
		HoldsExpired.Add(ctx, count)
	}
	if ActiveHolds != nil {
		ActiveHolds.Add(ctx, -count)
	}
}

// RecordBookingCreated records a booking creation metric
func RecordBookingCreated(ctx context.Context, packageID string, durationSeconds float64) {
	if BookingsCreated != nil {
		BookingsCreated.Inc(ctx, attribute.String("package_id", packageID))
	}
	if BookingDuration != nil {
		BookingDuration.Record(ctx, durationSeconds, attribute.String("package_id", packageID))
	}
}

// RecordBookingConfirmed records a booking confirmation metric
func RecordBookingConfirmed(ctx context.Context, packageID string) {
	if BookingsConfirmed != nil {
		BookingsConfirmed.Inc(ctx, attribute.String("package_id", packageID))
	}
}

// RecordBookingCancelled records a booking cancellation metric
func RecordBookingCancelled(ctx context.Context, packageID string, refund float64) {
	if BookingsCancelled != nil {
		BookingsCancelled.Inc(ctx, attribute.String("package_id", packageID))
	}
	if RefundAmount != nil {
		RefundAmount.Record(ctx, refund, attribute.String("package_id", packageID))
	}
}

// RecordBookingFailed records a failed booking attempt
func RecordBookingFailed(ctx context.Context, packageID, reason string) {
	if BookingsFailed != nil {
		BookingsFailed.Inc(ctx,
			attribute.String("package_id", packageID),
			attribute.String("reason", reason),
		)
	}
}

// RecordPromoApplied records a successful promo application
func RecordPromoApplied(ctx context.Context, code string) {
	if PromoApplied != nil {
		PromoApplied.Inc(ctx, attribute.String("code", code))
	}
}

// RecordPromoRejected records a rejected promo validation
func RecordPromoRejected(ctx context.Context, code, reason string) {
	if PromoRejected != nil {
		PromoRejected.Inc(ctx,
			attribute.String("code", code),
			attribute.String("reason", reason),
		)
	}
}

// RecordIdempotentReplay records a response served from the idempotency store
func RecordIdempotentReplay(ctx context.Context, endpoint string) {
	if IdempotentReplays != nil {
		IdempotentReplays.Inc(ctx, attribute.String("endpoint", endpoint))
	}
}

// RecordIdempotentConflict records a request rejected while its key was
// processing
func RecordIdempotentConflict(ctx context.Context, endpoint string) {
	if IdempotentConflicts != nil {
		IdempotentConflicts.Inc(ctx, attribute.String("endpoint", endpoint))
	}
}
