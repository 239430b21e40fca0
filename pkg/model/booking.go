package model

import "time"

const (
	// BookingStatusConfirmed is the only status the ledger ever writes.
	// Cancellation deletes the record; absence of a row means "not booked".
	BookingStatusConfirmed = "confirmed"
)

// Booking reserves one resource for a half-open interval [StartTime, EndTime).
// Two bookings overlap iff start1 < end2 && start2 < end1, so a booking
// ending exactly when another starts does not conflict.
type Booking struct {
	ID         string    `json:"id,omitempty" bson:"_id,omitempty" validate:"omitempty,mongodb"`
	ResourceID string    `json:"resource_id" bson:"resource_id" validate:"required,mongodb"`
	UserID     string    `json:"user_id" bson:"user_id" validate:"required,mongodb"`
	StartTime  time.Time `json:"start_time" bson:"start_time" validate:"required"`
	EndTime    time.Time `json:"end_time" bson:"end_time" validate:"required,gtfield=StartTime"`
	Status     string    `json:"status" bson:"status" validate:"required,oneof=confirmed"`
	CreatedAt  time.Time `json:"created_at" bson:"created_at" validate:"omitempty"`
}

// Overlaps reports whether [start1, end1) and [start2, end2) intersect.
// Both the ledger's conflict check and the availability search must use
// this predicate; diverging implementations would let search advertise
// slots that Book rejects.
func Overlaps(start1, end1, start2, end2 time.Time) bool {
	return start1.Before(end2) && start2.Before(end1)
}
