package service

import (
	"context"
	"io"
	"testing"
	"time"

	availability "roomly/internal/availability/service"
	"roomly/internal/bookings/validator"
	"roomly/internal/events"
	"roomly/pkg/config"
	apperrors "roomly/pkg/errors"
	"roomly/pkg/logger"
	"roomly/pkg/model"
)

type singleResourceFinder struct {
	resource *model.Resource
}

func (f *singleResourceFinder) FindAvailable(ctx context.Context, busyIDs []string, minCapacity int) ([]*model.Resource, error) {
	for _, id := range busyIDs {
		if id == f.resource.ID {
			return nil, nil
		}
	}
	if !f.resource.IsActive || f.resource.Capacity < minCapacity {
		return nil, nil
	}
	return []*model.Resource{f.resource}, nil
}

// Full booking lifecycle against one room: book, conflicting second book,
// search while busy, cancel, search again, rebook.
func TestBookingLifecycle(t *testing.T) {
	log := logger.New(logger.Config{Output: io.Discard})
	cfg := &config.Config{Log: log}
	ctx := context.Background()

	roomA := &model.Resource{ID: oid(), Name: "Room A", Type: "room", Capacity: 4, IsActive: true}
	repo := newMockBookingRepository()
	bookingSvc := NewBookingService(
		repo,
		&mockResourceChecker{active: map[string]bool{roomA.ID: true}},
		validator.NewBookingValidator(log),
		events.NopPublisher{},
		cfg,
	)
	availabilitySvc := availability.NewAvailabilityService(repo, &singleResourceFinder{resource: roomA}, cfg)

	day := time.Now().UTC().AddDate(0, 0, 7).Truncate(24 * time.Hour)
	start := day.Add(9 * time.Hour)
	end := day.Add(10 * time.Hour)
	u1, u2 := oid(), oid()

	booking := &model.Booking{ResourceID: roomA.ID, UserID: u1, StartTime: start, EndTime: end}
	if err := bookingSvc.Book(ctx, booking); err != nil {
		t.Fatalf("U1 Book failed: %v", err)
	}
	if booking.Status != model.BookingStatusConfirmed {
		t.Fatalf("expected confirmed booking, got %q", booking.Status)
	}

	rival := &model.Booking{ResourceID: roomA.ID, UserID: u2, StartTime: start, EndTime: end}
	if err := bookingSvc.Book(ctx, rival); !apperrors.IsCode(err, apperrors.CodeConflict) {
		t.Fatalf("expected conflict for U2, got %v", err)
	}

	free, err := availabilitySvc.FindAvailable(ctx, start, end, 1)
	if err != nil {
		t.Fatalf("FindAvailable failed: %v", err)
	}
	if len(free) != 0 {
		t.Fatalf("Room A must not be available while booked, got %d resources", len(free))
	}

	if _, err := bookingSvc.Cancel(ctx, booking.ID, u1, false); err != nil {
		t.Fatalf("U1 Cancel failed: %v", err)
	}

	free, err = availabilitySvc.FindAvailable(ctx, start, end, 1)
	if err != nil {
		t.Fatalf("FindAvailable after cancel failed: %v", err)
	}
	if len(free) != 1 || free[0].ID != roomA.ID {
		t.Fatalf("Room A must be available after cancel, got %v", free)
	}

	retry := &model.Booking{ResourceID: roomA.ID, UserID: u2, StartTime: start, EndTime: end}
	if err := bookingSvc.Book(ctx, retry); err != nil {
		t.Fatalf("U2 rebooking freed slot failed: %v", err)
	}
}
