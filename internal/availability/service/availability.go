package service

import (
	"context"
	"time"

	"roomly/pkg/config"
	apperrors "roomly/pkg/errors"
	"roomly/pkg/model"
)

// BusyLookup yields the resources that have a confirmed booking
// overlapping the window. Backed by the booking ledger, so search and
// booking agree on what counts as an overlap.
type BusyLookup interface {
	DistinctBusyResources(ctx context.Context, start, end time.Time) ([]string, error)
}

// ResourceFinder yields active resources with enough capacity,
// excluding the given IDs.
type ResourceFinder interface {
	FindAvailable(ctx context.Context, busyIDs []string, minCapacity int) ([]*model.Resource, error)
}

type AvailabilityService interface {
	FindAvailable(ctx context.Context, start, end time.Time, minCapacity int) ([]*model.Resource, error)
}

type availabilityService struct {
	bookings  BusyLookup
	resources ResourceFinder
	cfg       *config.Config
}

func NewAvailabilityService(bookings BusyLookup, resources ResourceFinder, cfg *config.Config) AvailabilityService {
	return &availabilityService{
		bookings:  bookings,
		resources: resources,
		cfg:       cfg,
	}
}

// FindAvailable returns every active resource with capacity of at least
// minCapacity and no confirmed booking overlapping [start, end). A
// booking ending exactly at start, or starting exactly at end, does not
// make the resource busy.
func (s *availabilityService) FindAvailable(ctx context.Context, start, end time.Time, minCapacity int) ([]*model.Resource, error) {
	if !end.After(start) {
		return nil, apperrors.InvalidInput("start_time must be before end_time")
	}
	if minCapacity < 0 {
		return nil, apperrors.InvalidInput("min_capacity cannot be negative")
	}

	busyIDs, err := s.bookings.DistinctBusyResources(ctx, start, end)
	if err != nil {
		s.cfg.Log.Error("Failed to resolve busy resources", "error", err)
		return nil, apperrors.Store("Failed to search availability", err)
	}

	resources, err := s.resources.FindAvailable(ctx, busyIDs, minCapacity)
	if err != nil {
		s.cfg.Log.Error("Failed to list available resources", "error", err)
		return nil, apperrors.Store("Failed to search availability", err)
	}

	return resources, nil
}
