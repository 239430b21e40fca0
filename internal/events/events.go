// Package events defines the booking lifecycle events published to the
// message bus and consumed by the notifier worker.
package events

import (
	"context"
	"time"

	"roomly/pkg/model"
)

const (
	TopicBookings = "roomly.bookings"

	TypeBookingCreated   = "booking.created"
	TypeBookingCancelled = "booking.cancelled"
)

type BookingCreated struct {
	Booking model.Booking `json:"booking"`
	At      time.Time     `json:"at"`
}

type BookingCancelled struct {
	Booking     model.Booking `json:"booking"`
	CancelledBy string        `json:"cancelled_by"`
	At          time.Time     `json:"at"`
}

// Publisher is what the booking service needs from the bus. Publishing is
// best effort: a bus failure never rolls back a committed booking.
type Publisher interface {
	BookingCreated(ctx context.Context, booking *model.Booking)
	BookingCancelled(ctx context.Context, booking *model.Booking, cancelledBy string)
}

// NopPublisher is used when Kafka is not configured.
type NopPublisher struct{}

func (NopPublisher) BookingCreated(context.Context, *model.Booking) {}

func (NopPublisher) BookingCancelled(context.Context, *model.Booking, string) {}
