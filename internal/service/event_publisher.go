package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/voyago/booking-core/internal/domain"
	"github.com/voyago/booking-core/pkg/kafka"
)

// EventPublisher emits booking lifecycle events for downstream consumers.
// Publishing happens after the owning transaction commits; failures are the
// caller's to log, never to roll back on.
type EventPublisher interface {
	PublishBookingCreated(ctx context.Context, booking *domain.Booking) error
	PublishBookingConfirmed(ctx context.Context, booking *domain.Booking) error
	PublishBookingCancelled(ctx context.Context, booking *domain.Booking) error
	Close() error
}

// EventPublisherConfig contains Kafka settings for the publisher.
type EventPublisherConfig struct {
	Brokers     []string
	Topic       string
	ServiceName string
	ClientID    string
}

// KafkaEventPublisher publishes booking events to a Kafka topic, keyed by
// booking ID so per-booking ordering holds.
type KafkaEventPublisher struct {
	producer *kafka.Producer
	topic    string
	source   string
}

// NewKafkaEventPublisher connects a producer for booking events.
func NewKafkaEventPublisher(ctx context.Context, cfg *EventPublisherConfig) (*KafkaEventPublisher, error) {
	if cfg == nil || len(cfg.Brokers) == 0 {
		return nil, fmt.Errorf("kafka brokers are required")
	}

	p := &KafkaEventPublisher{
		topic:  cfg.Topic,
		source: cfg.ServiceName,
	}
	if p.topic == "" {
		p.topic = "booking-events"
	}
	if p.source == "" {
		p.source = "booking-core"
	}
	clientID := cfg.ClientID
	if clientID == "" {
		clientID = p.source + "-producer"
	}

	producer, err := kafka.NewProducer(ctx, &kafka.ProducerConfig{
		Brokers:       cfg.Brokers,
		ClientID:      clientID,
		MaxRetries:    3,
		RetryInterval: 2 * time.Second,
		BatchSize:     100,
		LingerMs:      10,
	})
	if err != nil {
		return nil, fmt.Errorf("create kafka producer: %w", err)
	}
	p.producer = producer
	return p, nil
}

func (p *KafkaEventPublisher) PublishBookingCreated(ctx context.Context, booking *domain.Booking) error {
	return p.publish(ctx, domain.BookingEventCreated, booking)
}

func (p *KafkaEventPublisher) PublishBookingConfirmed(ctx context.Context, booking *domain.Booking) error {
	return p.publish(ctx, domain.BookingEventConfirmed, booking)
}

func (p *KafkaEventPublisher) PublishBookingCancelled(ctx context.Context, booking *domain.Booking) error {
	return p.publish(ctx, domain.BookingEventCancelled, booking)
}

func (p *KafkaEventPublisher) publish(ctx context.Context, kind domain.BookingEventType, booking *domain.Booking) error {
	event := domain.NewBookingEvent(kind, booking, uuid.NewString())

	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal %s event: %w", kind, err)
	}

	err = p.producer.Produce(ctx, &kafka.Message{
		Topic: p.topic,
		Key:   []byte(event.Key()),
		Value: payload,
		Headers: map[string]string{
			"event_type":   string(kind),
			"event_id":     event.EventID,
			"source":       p.source,
			"content_type": "application/json",
		},
		Timestamp: time.Now(),
	})
	if err != nil {
		return fmt.Errorf("publish %s event: %w", kind, err)
	}
	return nil
}

func (p *KafkaEventPublisher) Close() error {
	if p.producer != nil {
		p.producer.Close()
	}
	return nil
}

// NoOpEventPublisher drops all events. Used when Kafka is disabled.
type NoOpEventPublisher struct{}

func NewNoOpEventPublisher() *NoOpEventPublisher { return &NoOpEventPublisher{} }

func (NoOpEventPublisher) PublishBookingCreated(context.Context, *domain.Booking) error   { return nil }
func (NoOpEventPublisher) PublishBookingConfirmed(context.Context, *domain.Booking) error { return nil }
func (NoOpEventPublisher) PublishBookingCancelled(context.Context, *domain.Booking) error { return nil }
func (NoOpEventPublisher) Close() error                                                   { return nil }
