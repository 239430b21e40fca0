package events

import (
	"context"
	"time"

	"roomly/pkg/kafka"
	"roomly/pkg/logger"
	"roomly/pkg/model"
)

type kafkaPublisher struct {
	producer *kafka.Producer
	source   string
	log      *logger.Logger
}

func NewKafkaPublisher(producer *kafka.Producer, source string, log *logger.Logger) Publisher {
	return &kafkaPublisher{
		producer: producer,
		source:   source,
		log:      log,
	}
}

func (p *kafkaPublisher) BookingCreated(ctx context.Context, booking *model.Booking) {
	p.publish(ctx, TypeBookingCreated, booking.ID, BookingCreated{
		Booking: *booking,
		At:      time.Now().UTC(),
	})
}

func (p *kafkaPublisher) BookingCancelled(ctx context.Context, booking *model.Booking, cancelledBy string) {
	p.publish(ctx, TypeBookingCancelled, booking.ID, BookingCancelled{
		Booking:     *booking,
		CancelledBy: cancelledBy,
		At:          time.Now().UTC(),
	})
}

func (p *kafkaPublisher) publish(ctx context.Context, eventType, key string, payload any) {
	msg, err := kafka.NewMessage().
		WithKey(key).
		WithValue(payload).
		WithEventType(eventType).
		WithSource(p.source).
		Build()
	if err != nil {
		p.log.Error("Failed to build event message", "event_type", eventType, "error", err)
		return
	}

	if err := p.producer.Publish(ctx, msg); err != nil {
		p.log.Error("Failed to publish event",
			"event_type", eventType,
			"key", key,
			"error", err,
		)
	}
}
