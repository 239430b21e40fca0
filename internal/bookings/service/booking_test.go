package service

import (
	"context"
	"io"
	"sync"
	"testing"
	"time"

	bookingserrors "roomly/internal/bookings/errors"
	"roomly/internal/bookings/validator"
	"roomly/internal/events"
	"roomly/pkg/config"
	mongotx "roomly/pkg/db/mongo"
	apperrors "roomly/pkg/errors"
	"roomly/pkg/logger"
	"roomly/pkg/model"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

// fakeSessionContext satisfies mongo.SessionContext for transaction
// callbacks; the session methods are never touched in tests.
type fakeSessionContext struct {
	context.Context
	mongo.Session
}

type mockBookingRepository struct {
	mu       sync.Mutex
	bookings map[string]*model.Booking
}

func newMockBookingRepository() *mockBookingRepository {
	return &mockBookingRepository{bookings: make(map[string]*model.Booking)}
}

func (m *mockBookingRepository) Create(ctx context.Context, booking *model.Booking) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	booking.ID = primitive.NewObjectID().Hex()
	booking.CreatedAt = time.Now().UTC()
	clone := *booking
	m.bookings[booking.ID] = &clone
	return nil
}

func (m *mockBookingRepository) FindByID(ctx context.Context, id string) (*model.Booking, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	booking, ok := m.bookings[id]
	if !ok {
		return nil, bookingserrors.ErrNotFound
	}
	clone := *booking
	return &clone, nil
}

func (m *mockBookingRepository) FindAll(ctx context.Context, limit int, offset int64) ([]*model.Booking, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*model.Booking
	for _, b := range m.bookings {
		clone := *b
		out = append(out, &clone)
	}
	return out, nil
}

func (m *mockBookingRepository) FindByUser(ctx context.Context, userID string, limit int, offset int64) ([]*model.Booking, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*model.Booking
	for _, b := range m.bookings {
		if b.UserID == userID {
			clone := *b
			out = append(out, &clone)
		}
	}
	return out, nil
}

func (m *mockBookingRepository) Delete(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.bookings[id]; !ok {
		return bookingserrors.ErrNotFound
	}
	delete(m.bookings, id)
	return nil
}

func (m *mockBookingRepository) Count(ctx context.Context) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return int64(len(m.bookings)), nil
}

func (m *mockBookingRepository) CountByUser(ctx context.Context, userID string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for _, b := range m.bookings {
		if b.UserID == userID {
			n++
		}
	}
	return n, nil
}

func (m *mockBookingRepository) CountOverlapping(ctx context.Context, resourceID string, start, end time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for _, b := range m.bookings {
		if b.ResourceID == resourceID && b.Status == model.BookingStatusConfirmed &&
			model.Overlaps(b.StartTime, b.EndTime, start, end) {
			n++
		}
	}
	return n, nil
}

func (m *mockBookingRepository) DistinctBusyResources(ctx context.Context, start, end time.Time) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	seen := make(map[string]bool)
	var out []string
	for _, b := range m.bookings {
		if b.Status == model.BookingStatusConfirmed && model.Overlaps(b.StartTime, b.EndTime, start, end) && !seen[b.ResourceID] {
			seen[b.ResourceID] = true
			out = append(out, b.ResourceID)
		}
	}
	return out, nil
}

func (m *mockBookingRepository) ExecuteTransaction(ctx context.Context, fn mongotx.TransactionFunc) error {
	return fn(fakeSessionContext{Context: ctx})
}

func (m *mockBookingRepository) EnsureIndexes(ctx context.Context) error { return nil }

type mockResourceChecker struct {
	active map[string]bool
}

func (m *mockResourceChecker) ExistsActive(ctx context.Context, id string) (bool, error) {
	return m.active[id], nil
}

func oid() string {
	return primitive.NewObjectID().Hex()
}

func newTestService(repo *mockBookingRepository, resourceIDs ...string) BookingService {
	log := logger.New(logger.Config{Output: io.Discard})
	cfg := &config.Config{Log: log}
	active := make(map[string]bool)
	for _, id := range resourceIDs {
		active[id] = true
	}
	return NewBookingService(repo, &mockResourceChecker{active: active}, validator.NewBookingValidator(log), events.NopPublisher{}, cfg)
}

func futureInterval(startOffset, endOffset time.Duration) (time.Time, time.Time) {
	base := time.Now().Add(24 * time.Hour).Truncate(time.Hour)
	return base.Add(startOffset), base.Add(endOffset)
}

func TestBookSuccess(t *testing.T) {
	repo := newMockBookingRepository()
	resourceID := oid()
	svc := newTestService(repo, resourceID)

	start, end := futureInterval(0, time.Hour)
	booking := &model.Booking{ResourceID: resourceID, UserID: oid(), StartTime: start, EndTime: end}

	if err := svc.Book(context.Background(), booking); err != nil {
		t.Fatalf("Book failed: %v", err)
	}
	if booking.ID == "" {
		t.Error("expected booking ID to be set")
	}
	if booking.Status != model.BookingStatusConfirmed {
		t.Errorf("expected status %q, got %q", model.BookingStatusConfirmed, booking.Status)
	}
	if n, _ := repo.Count(context.Background()); n != 1 {
		t.Errorf("expected 1 booking in store, got %d", n)
	}
}

func TestBookOverlapRejected(t *testing.T) {
	repo := newMockBookingRepository()
	resourceID := oid()
	svc := newTestService(repo, resourceID)
	ctx := context.Background()

	start, end := futureInterval(0, 2*time.Hour)
	first := &model.Booking{ResourceID: resourceID, UserID: oid(), StartTime: start, EndTime: end}
	if err := svc.Book(ctx, first); err != nil {
		t.Fatalf("first Book failed: %v", err)
	}

	// Overlaps the middle of the first interval.
	second := &model.Booking{
		ResourceID: resourceID,
		UserID:     oid(),
		StartTime:  start.Add(time.Hour),
		EndTime:    end.Add(time.Hour),
	}
	err := svc.Book(ctx, second)
	if !apperrors.IsCode(err, apperrors.CodeConflict) {
		t.Fatalf("expected conflict, got %v", err)
	}
	if n, _ := repo.Count(ctx); n != 1 {
		t.Errorf("conflicting booking must not be stored, count=%d", n)
	}
}

func TestBookAdjacentIntervalsBothSucceed(t *testing.T) {
	repo := newMockBookingRepository()
	resourceID := oid()
	svc := newTestService(repo, resourceID)
	ctx := context.Background()

	start, mid := futureInterval(0, time.Hour)
	end := mid.Add(time.Hour)

	first := &model.Booking{ResourceID: resourceID, UserID: oid(), StartTime: start, EndTime: mid}
	if err := svc.Book(ctx, first); err != nil {
		t.Fatalf("first Book failed: %v", err)
	}

	// Intervals are half-open, so end == next start does not collide.
	second := &model.Booking{ResourceID: resourceID, UserID: oid(), StartTime: mid, EndTime: end}
	if err := svc.Book(ctx, second); err != nil {
		t.Fatalf("adjacent Book failed: %v", err)
	}
	if n, _ := repo.Count(ctx); n != 2 {
		t.Errorf("expected 2 bookings, got %d", n)
	}
}

func TestBookSameIntervalDifferentResources(t *testing.T) {
	repo := newMockBookingRepository()
	resourceA, resourceB := oid(), oid()
	svc := newTestService(repo, resourceA, resourceB)
	ctx := context.Background()

	start, end := futureInterval(0, time.Hour)
	for _, resourceID := range []string{resourceA, resourceB} {
		booking := &model.Booking{ResourceID: resourceID, UserID: oid(), StartTime: start, EndTime: end}
		if err := svc.Book(ctx, booking); err != nil {
			t.Fatalf("Book on %s failed: %v", resourceID, err)
		}
	}
}

func TestBookUnknownResource(t *testing.T) {
	repo := newMockBookingRepository()
	svc := newTestService(repo, oid())

	start, end := futureInterval(0, time.Hour)
	booking := &model.Booking{ResourceID: oid(), UserID: oid(), StartTime: start, EndTime: end}

	err := svc.Book(context.Background(), booking)
	if !apperrors.IsCode(err, apperrors.CodeNotFound) {
		t.Fatalf("expected not-found, got %v", err)
	}
}

func TestBookInvalidInterval(t *testing.T) {
	repo := newMockBookingRepository()
	resourceID := oid()
	svc := newTestService(repo, resourceID)
	ctx := context.Background()

	start, end := futureInterval(0, time.Hour)

	cases := []struct {
		name       string
		start, end time.Time
	}{
		{"start equals end", start, start},
		{"start after end", end, start},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			booking := &model.Booking{ResourceID: resourceID, UserID: oid(), StartTime: tc.start, EndTime: tc.end}
			err := svc.Book(ctx, booking)
			if !apperrors.IsCode(err, apperrors.CodeInvalidInput) {
				t.Fatalf("expected invalid-input, got %v", err)
			}
			if n, _ := repo.Count(ctx); n != 0 {
				t.Errorf("invalid booking must not be stored, count=%d", n)
			}
		})
	}
}

func TestBookPastStart(t *testing.T) {
	repo := newMockBookingRepository()
	resourceID := oid()
	svc := newTestService(repo, resourceID)
	ctx := context.Background()

	start := time.Now().Add(-2 * time.Hour)
	booking := &model.Booking{ResourceID: resourceID, UserID: oid(), StartTime: start, EndTime: start.Add(time.Hour)}

	// A past start is a malformed interval, the same kind of failure as
	// start >= end.
	err := svc.Book(ctx, booking)
	if !apperrors.IsCode(err, apperrors.CodeInvalidInput) {
		t.Fatalf("expected invalid-input for past start, got %v", err)
	}
	if n, _ := repo.Count(ctx); n != 0 {
		t.Errorf("past booking must not be stored, count=%d", n)
	}
}

type funcPublisher struct {
	created func(ctx context.Context, booking *model.Booking)
}

func (p *funcPublisher) BookingCreated(ctx context.Context, booking *model.Booking) {
	if p.created != nil {
		p.created(ctx, booking)
	}
}

func (p *funcPublisher) BookingCancelled(context.Context, *model.Booking, string) {}

// The event publish must run after the per-resource mutex is released;
// a second Book on the same resource issued from inside the publish
// callback would otherwise never acquire the lock.
func TestBookPublishesOutsideCriticalSection(t *testing.T) {
	log := logger.New(logger.Config{Output: io.Discard})
	cfg := &config.Config{Log: log}
	repo := newMockBookingRepository()
	resourceID := oid()

	publisher := &funcPublisher{}
	svc := NewBookingService(
		repo,
		&mockResourceChecker{active: map[string]bool{resourceID: true}},
		validator.NewBookingValidator(log),
		publisher,
		cfg,
	)

	start, end := futureInterval(0, time.Hour)
	var chainErr error
	fired := false
	publisher.created = func(ctx context.Context, _ *model.Booking) {
		if fired {
			return
		}
		fired = true
		next := &model.Booking{ResourceID: resourceID, UserID: oid(), StartTime: end, EndTime: end.Add(time.Hour)}
		chainErr = svc.Book(ctx, next)
	}

	done := make(chan error, 1)
	go func() {
		booking := &model.Booking{ResourceID: resourceID, UserID: oid(), StartTime: start, EndTime: end}
		done <- svc.Book(context.Background(), booking)
	}()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Book failed: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Book did not return; publish appears to run while the resource lock is held")
	}

	if chainErr != nil {
		t.Fatalf("Book from publish callback failed: %v", chainErr)
	}
	if n, _ := repo.Count(context.Background()); n != 2 {
		t.Errorf("expected both bookings stored, count=%d", n)
	}
}

// Racing overlapping requests for the same resource must produce exactly
// one confirmed booking; every loser gets a conflict.
func TestBookConcurrentOverlapOneWinner(t *testing.T) {
	repo := newMockBookingRepository()
	resourceID := oid()
	svc := newTestService(repo, resourceID)
	ctx := context.Background()

	start, end := futureInterval(0, time.Hour)

	const attempts = 16
	var wg sync.WaitGroup
	results := make([]error, attempts)

	wg.Add(attempts)
	for i := 0; i < attempts; i++ {
		go func(i int) {
			defer wg.Done()
			booking := &model.Booking{
				ResourceID: resourceID,
				UserID:     oid(),
				StartTime:  start,
				EndTime:    end,
			}
			results[i] = svc.Book(ctx, booking)
		}(i)
	}
	wg.Wait()

	var wins, conflicts int
	for _, err := range results {
		switch {
		case err == nil:
			wins++
		case apperrors.IsCode(err, apperrors.CodeConflict):
			conflicts++
		default:
			t.Errorf("unexpected error: %v", err)
		}
	}
	if wins != 1 {
		t.Errorf("expected exactly 1 winner, got %d", wins)
	}
	if conflicts != attempts-1 {
		t.Errorf("expected %d conflicts, got %d", attempts-1, conflicts)
	}
	if n, _ := repo.Count(ctx); n != 1 {
		t.Errorf("expected 1 stored booking, got %d", n)
	}
}

func TestCancelByOwner(t *testing.T) {
	repo := newMockBookingRepository()
	resourceID, owner := oid(), oid()
	svc := newTestService(repo, resourceID)
	ctx := context.Background()

	start, end := futureInterval(0, time.Hour)
	booking := &model.Booking{ResourceID: resourceID, UserID: owner, StartTime: start, EndTime: end}
	if err := svc.Book(ctx, booking); err != nil {
		t.Fatalf("Book failed: %v", err)
	}

	cancelled, err := svc.Cancel(ctx, booking.ID, owner, false)
	if err != nil {
		t.Fatalf("Cancel failed: %v", err)
	}
	if cancelled.ID != booking.ID {
		t.Errorf("expected snapshot of booking %s, got %s", booking.ID, cancelled.ID)
	}
	if n, _ := repo.Count(ctx); n != 0 {
		t.Errorf("expected booking removed, count=%d", n)
	}
}

func TestCancelNonOwnerForbidden(t *testing.T) {
	repo := newMockBookingRepository()
	resourceID := oid()
	svc := newTestService(repo, resourceID)
	ctx := context.Background()

	start, end := futureInterval(0, time.Hour)
	booking := &model.Booking{ResourceID: resourceID, UserID: oid(), StartTime: start, EndTime: end}
	if err := svc.Book(ctx, booking); err != nil {
		t.Fatalf("Book failed: %v", err)
	}

	_, err := svc.Cancel(ctx, booking.ID, oid(), false)
	if !apperrors.IsCode(err, apperrors.CodeForbidden) {
		t.Fatalf("expected forbidden, got %v", err)
	}
	if n, _ := repo.Count(ctx); n != 1 {
		t.Errorf("booking must remain after rejected cancel, count=%d", n)
	}
}

func TestCancelPrivilegedRequester(t *testing.T) {
	repo := newMockBookingRepository()
	resourceID := oid()
	svc := newTestService(repo, resourceID)
	ctx := context.Background()

	start, end := futureInterval(0, time.Hour)
	booking := &model.Booking{ResourceID: resourceID, UserID: oid(), StartTime: start, EndTime: end}
	if err := svc.Book(ctx, booking); err != nil {
		t.Fatalf("Book failed: %v", err)
	}

	if _, err := svc.Cancel(ctx, booking.ID, oid(), true); err != nil {
		t.Fatalf("privileged Cancel failed: %v", err)
	}
}

func TestCancelTwice(t *testing.T) {
	repo := newMockBookingRepository()
	resourceID, owner := oid(), oid()
	svc := newTestService(repo, resourceID)
	ctx := context.Background()

	start, end := futureInterval(0, time.Hour)
	booking := &model.Booking{ResourceID: resourceID, UserID: owner, StartTime: start, EndTime: end}
	if err := svc.Book(ctx, booking); err != nil {
		t.Fatalf("Book failed: %v", err)
	}

	if _, err := svc.Cancel(ctx, booking.ID, owner, false); err != nil {
		t.Fatalf("first Cancel failed: %v", err)
	}
	_, err := svc.Cancel(ctx, booking.ID, owner, false)
	if !apperrors.IsCode(err, apperrors.CodeNotFound) {
		t.Fatalf("expected not-found on second cancel, got %v", err)
	}
}

func TestCancelFreesInterval(t *testing.T) {
	repo := newMockBookingRepository()
	resourceID, owner := oid(), oid()
	svc := newTestService(repo, resourceID)
	ctx := context.Background()

	start, end := futureInterval(0, time.Hour)
	first := &model.Booking{ResourceID: resourceID, UserID: owner, StartTime: start, EndTime: end}
	if err := svc.Book(ctx, first); err != nil {
		t.Fatalf("Book failed: %v", err)
	}
	if _, err := svc.Cancel(ctx, first.ID, owner, false); err != nil {
		t.Fatalf("Cancel failed: %v", err)
	}

	second := &model.Booking{ResourceID: resourceID, UserID: oid(), StartTime: start, EndTime: end}
	if err := svc.Book(ctx, second); err != nil {
		t.Fatalf("rebooking freed interval failed: %v", err)
	}
}

func TestListForUser(t *testing.T) {
	repo := newMockBookingRepository()
	resourceA, resourceB := oid(), oid()
	alice, bob := oid(), oid()
	svc := newTestService(repo, resourceA, resourceB)
	ctx := context.Background()

	start, end := futureInterval(0, time.Hour)
	mine := &model.Booking{ResourceID: resourceA, UserID: alice, StartTime: start, EndTime: end}
	theirs := &model.Booking{ResourceID: resourceB, UserID: bob, StartTime: start, EndTime: end}
	if err := svc.Book(ctx, mine); err != nil {
		t.Fatalf("Book failed: %v", err)
	}
	if err := svc.Book(ctx, theirs); err != nil {
		t.Fatalf("Book failed: %v", err)
	}

	bookings, count, err := svc.ListForUser(ctx, alice, 10, 0)
	if err != nil {
		t.Fatalf("ListForUser failed: %v", err)
	}
	if count != 1 || len(bookings) != 1 {
		t.Fatalf("expected 1 booking for alice, got count=%d len=%d", count, len(bookings))
	}
	if bookings[0].UserID != alice {
		t.Errorf("expected alice's booking, got %s", bookings[0].UserID)
	}

	all, total, err := svc.ListAll(ctx, 10, 0)
	if err != nil {
		t.Fatalf("ListAll failed: %v", err)
	}
	if total != 2 || len(all) != 2 {
		t.Errorf("expected 2 bookings total, got count=%d len=%d", total, len(all))
	}
}
