package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	bookingserrors "roomly/internal/bookings/errors"
	"roomly/internal/bookings/repository"
	"roomly/internal/bookings/validator"
	"roomly/internal/events"
	"roomly/pkg/config"
	apperrors "roomly/pkg/errors"
	"roomly/pkg/keylock"
	"roomly/pkg/model"

	"go.mongodb.org/mongo-driver/mongo"
)

// ResourceChecker is the slice of the resource registry the ledger needs:
// existence of an active resource, nothing more.
type ResourceChecker interface {
	ExistsActive(ctx context.Context, id string) (bool, error)
}

type BookingService interface {
	Book(ctx context.Context, booking *model.Booking) error
	Cancel(ctx context.Context, id, requesterID string, privileged bool) (*model.Booking, error)
	GetByID(ctx context.Context, id string) (*model.Booking, error)
	ListForUser(ctx context.Context, userID string, limit int, offset int64) ([]*model.Booking, int64, error)
	ListAll(ctx context.Context, limit int, offset int64) ([]*model.Booking, int64, error)
}

type bookingService struct {
	repo      repository.BookingRepository
	resources ResourceChecker
	validator *validator.BookingValidator
	publisher events.Publisher
	locks     *keylock.KeyedMutex
	cfg       *config.Config
}

func NewBookingService(
	repo repository.BookingRepository,
	resources ResourceChecker,
	validator *validator.BookingValidator,
	publisher events.Publisher,
	cfg *config.Config,
) BookingService {
	return &bookingService{
		repo:      repo,
		resources: resources,
		validator: validator,
		publisher: publisher,
		locks:     keylock.New(),
		cfg:       cfg,
	}
}

// Book inserts a confirmed booking unless it overlaps an existing one.
//
// The conflict check and the insert run under a per-resource mutex and
// inside one transaction, so concurrent requests for the same resource
// are serialized: of N racing calls with mutually overlapping intervals
// exactly one commits, the rest get a conflict. Bookings on different
// resources never contend.
func (s *bookingService) Book(ctx context.Context, booking *model.Booking) error {
	booking.ID = ""
	booking.Status = model.BookingStatusConfirmed

	// The HTTP boundary already validates the interval; re-checking here
	// keeps the ledger safe against future callers that do not. A bad
	// interval is malformed input, not a validation detail, so both
	// halves of the check report the same error kind.
	if !booking.EndTime.After(booking.StartTime) {
		return apperrors.InvalidInput("start_time must be before end_time")
	}
	if booking.StartTime.Before(time.Now()) {
		return apperrors.InvalidInput("start_time cannot be in the past")
	}
	if err := s.validator.Validate(booking); err != nil {
		s.cfg.Log.Warn("Booking validation failed", "error", err)
		return apperrors.Validation("Booking validation failed", map[string]any{"error": err.Error()})
	}

	exists, err := s.resources.ExistsActive(ctx, booking.ResourceID)
	if err != nil {
		if apperrors.IsAppError(err) {
			return err
		}
		return apperrors.Store("Failed to check resource existence", err)
	}
	if !exists {
		return apperrors.NotFoundWithID("Resource", booking.ResourceID)
	}

	// Arbitration point: all booking attempts for one resource pass
	// through this mutex. The lock covers only the check-and-insert;
	// publishing happens after release so same-resource throughput is
	// not gated on bus latency.
	err = func() error {
		s.locks.Lock(booking.ResourceID)
		defer s.locks.Unlock(booking.ResourceID)

		return s.repo.ExecuteTransaction(ctx, func(sessCtx mongo.SessionContext) error {
			overlapping, err := s.repo.CountOverlapping(sessCtx, booking.ResourceID, booking.StartTime, booking.EndTime)
			if err != nil {
				return apperrors.Store("Failed to check for conflicting bookings", err)
			}
			if overlapping > 0 {
				return apperrors.Conflict(fmt.Sprintf(
					"Resource is already booked between %s and %s",
					booking.StartTime.Format(time.RFC3339),
					booking.EndTime.Format(time.RFC3339),
				))
			}

			if err := s.repo.Create(sessCtx, booking); err != nil {
				return apperrors.Store("Failed to create booking", err)
			}
			return nil
		})
	}()
	if err != nil {
		if apperrors.IsCode(err, apperrors.CodeConflict) {
			// Expected outcome, not an operational problem.
			s.cfg.Log.Debug("Booking rejected due to conflict",
				"resource_id", booking.ResourceID,
				"start_time", booking.StartTime,
				"end_time", booking.EndTime,
			)
		} else {
			s.cfg.Log.Error("Failed to create booking", "error", err)
		}
		return err
	}

	s.cfg.Log.Info("Booking created",
		"id", booking.ID,
		"resource_id", booking.ResourceID,
		"user_id", booking.UserID,
		"start_time", booking.StartTime,
		"end_time", booking.EndTime,
	)
	s.publisher.BookingCreated(ctx, booking)
	return nil
}

// Cancel deletes a booking and returns the deleted snapshot. Only the
// owner or a privileged requester may cancel; cancelling an unknown or
// already-cancelled booking reports not-found rather than succeeding
// twice.
func (s *bookingService) Cancel(ctx context.Context, id, requesterID string, privileged bool) (*model.Booking, error) {
	if id == "" {
		return nil, apperrors.InvalidInput("Booking ID cannot be empty")
	}

	booking, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, bookingserrors.ErrNotFound) {
			return nil, apperrors.NotFoundWithID("Booking", id)
		}
		if errors.Is(err, bookingserrors.ErrInvalidID) {
			return nil, apperrors.InvalidInput("Invalid booking ID format")
		}
		return nil, apperrors.Store("Failed to retrieve booking", err)
	}

	if booking.UserID != requesterID && !privileged {
		return nil, apperrors.Forbidden("Only the booking owner may cancel it")
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, bookingserrors.ErrNotFound) {
			// Lost a race with another cancel; the booking is gone.
			return nil, apperrors.NotFoundWithID("Booking", id)
		}
		s.cfg.Log.Error("Failed to delete booking", "id", id, "error", err)
		return nil, apperrors.Store("Failed to cancel booking", err)
	}

	s.cfg.Log.Info("Booking cancelled",
		"id", id,
		"resource_id", booking.ResourceID,
		"cancelled_by", requesterID,
	)
	s.publisher.BookingCancelled(ctx, booking, requesterID)
	return booking, nil
}

func (s *bookingService) GetByID(ctx context.Context, id string) (*model.Booking, error) {
	if id == "" {
		return nil, apperrors.InvalidInput("Booking ID cannot be empty")
	}

	booking, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, bookingserrors.ErrNotFound) {
			return nil, apperrors.NotFoundWithID("Booking", id)
		}
		if errors.Is(err, bookingserrors.ErrInvalidID) {
			return nil, apperrors.InvalidInput("Invalid booking ID format")
		}
		return nil, apperrors.Store("Failed to retrieve booking", err)
	}

	return booking, nil
}

func (s *bookingService) ListForUser(ctx context.Context, userID string, limit int, offset int64) ([]*model.Booking, int64, error) {
	if userID == "" {
		return nil, 0, apperrors.InvalidInput("User ID cannot be empty")
	}

	var count int64
	var bookings []*model.Booking
	var errCount, errFind error
	var wg sync.WaitGroup
	wg.Add(2)

	go func() {
		defer wg.Done()
		count, errCount = s.repo.CountByUser(ctx, userID)
		if errCount != nil {
			s.cfg.Log.Error("Failed to count bookings for user", "user_id", userID, "error", errCount)
			errCount = apperrors.Store("Failed to count bookings", errCount)
		}
	}()

	go func() {
		defer wg.Done()
		bookings, errFind = s.repo.FindByUser(ctx, userID, limit, offset)
		if errFind != nil {
			s.cfg.Log.Error("Failed to list bookings for user", "user_id", userID, "error", errFind)
			errFind = apperrors.Store("Failed to retrieve bookings", errFind)
		}
	}()

	wg.Wait()
	if errCount != nil {
		return nil, 0, errCount
	}
	if errFind != nil {
		return nil, 0, errFind
	}

	return bookings, count, nil
}

func (s *bookingService) ListAll(ctx context.Context, limit int, offset int64) ([]*model.Booking, int64, error) {
	var count int64
	var bookings []*model.Booking
	var errCount, errFind error
	var wg sync.WaitGroup
	wg.Add(2)

	go func() {
		defer wg.Done()
		count, errCount = s.repo.Count(ctx)
		if errCount != nil {
			s.cfg.Log.Error("Failed to count bookings", "error", errCount)
			errCount = apperrors.Store("Failed to count bookings", errCount)
		}
	}()

	go func() {
		defer wg.Done()
		bookings, errFind = s.repo.FindAll(ctx, limit, offset)
		if errFind != nil {
			s.cfg.Log.Error("Failed to list bookings", "error", errFind)
			errFind = apperrors.Store("Failed to retrieve bookings", errFind)
		}
	}()

	wg.Wait()
	if errCount != nil {
		return nil, 0, errCount
	}
	if errFind != nil {
		return nil, 0, errFind
	}

	return bookings, count, nil
}
