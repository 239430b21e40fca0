// Package notifier consumes booking lifecycle events and dispatches
// notifications. The current dispatch target is the structured log; the
// handler is where mail or chat integrations would plug in.
package notifier

import (
	"context"
	"encoding/json"
	"fmt"

	"roomly/internal/events"
	"roomly/pkg/kafka"
	"roomly/pkg/logger"
)

type Notifier struct {
	log *logger.Logger
}

func New(log *logger.Logger) *Notifier {
	return &Notifier{log: log}
}

// Handle processes one booking event. Returning nil commits the offset;
// unknown event types are committed too, so a newer producer cannot wedge
// the consumer group.
func (n *Notifier) Handle(ctx context.Context, msg kafka.Message) error {
	switch msg.EventType() {
	case events.TypeBookingCreated:
		var event events.BookingCreated
		if err := json.Unmarshal(msg.Value, &event); err != nil {
			return fmt.Errorf("failed to decode booking.created event: %w", err)
		}
		n.log.Info("Booking confirmation notification",
			"booking_id", event.Booking.ID,
			"resource_id", event.Booking.ResourceID,
			"user_id", event.Booking.UserID,
			"start_time", event.Booking.StartTime,
			"end_time", event.Booking.EndTime,
		)

	case events.TypeBookingCancelled:
		var event events.BookingCancelled
		if err := json.Unmarshal(msg.Value, &event); err != nil {
			return fmt.Errorf("failed to decode booking.cancelled event: %w", err)
		}
		n.log.Info("Booking cancellation notification",
			"booking_id", event.Booking.ID,
			"resource_id", event.Booking.ResourceID,
			"user_id", event.Booking.UserID,
			"cancelled_by", event.CancelledBy,
		)

	default:
		n.log.Warn("Skipping unknown event type", "event_type", msg.EventType())
	}

	return nil
}
