package booking

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"peacefulpath/backend/internal/domain"
	"peacefulpath/backend/internal/store"
)

type fakeReservations struct {
	insertFn                func(ctx context.Context, res domain.Reservation) (domain.Reservation, error)
	getFn                   func(ctx context.Context, id uuid.UUID) (domain.Reservation, error)
	listActiveOverlappingFn func(ctx context.Context, window domain.Interval) ([]domain.Reservation, error)
	cancelFn                func(ctx context.Context, id uuid.UUID) (domain.Reservation, error)
	listByUserFn            func(ctx context.Context, userID string) ([]domain.Reservation, error)
}

func (f *fakeReservations) Insert(ctx context.Context, res domain.Reservation) (domain.Reservation, error) {
	if f.insertFn == nil {
		panic("Insert not configured")
	}
	return f.insertFn(ctx, res)
}

func (f *fakeReservations) Get(ctx context.Context, id uuid.UUID) (domain.Reservation, error) {
	if f.getFn == nil {
		panic("Get not configured")
	}
	return f.getFn(ctx, id)
}

func (f *fakeReservations) ListActiveOverlapping(ctx context.Context, window domain.Interval) ([]domain.Reservation, error) {
	if f.listActiveOverlappingFn == nil {
		return nil, nil
	}
	return f.listActiveOverlappingFn(ctx, window)
}

func (f *fakeReservations) Cancel(ctx context.Context, id uuid.UUID) (domain.Reservation, error) {
	if f.cancelFn == nil {
		panic("Cancel not configured")
	}
	return f.cancelFn(ctx, id)
}

func (f *fakeReservations) ListByUser(ctx context.Context, userID string) ([]domain.Reservation, error) {
	if f.listByUserFn == nil {
		panic("ListByUser not configured")
	}
	return f.listByUserFn(ctx, userID)
}

type fakeCatalog struct {
	durations map[uuid.UUID]domain.Duration
	services  []domain.Service
}

func (f *fakeCatalog) GetDuration(ctx context.Context, id uuid.UUID) (domain.Duration, error) {
	d, ok := f.durations[id]
	if !ok {
		return domain.Duration{}, store.ErrNotFound
	}
	return d, nil
}

func (f *fakeCatalog) GetService(ctx context.Context, id uuid.UUID) (domain.Service, error) {
	for _, s := range f.services {
		if s.ID == id {
			return s, nil
		}
	}
	return domain.Service{}, store.ErrNotFound
}

func (f *fakeCatalog) ListServices(ctx context.Context) ([]domain.Service, error) {
	return f.services, nil
}

var (
	testServiceID  = uuid.MustParse("00000000-0000-0000-0000-000000000001")
	testDurationID = uuid.MustParse("00000000-0000-0000-0000-000000000002")
)

func testCatalog() *fakeCatalog {
	return &fakeCatalog{
		durations: map[uuid.UUID]domain.Duration{
			testDurationID: {
				ID:         testDurationID,
				ServiceID:  testServiceID,
				Minutes:    60,
				PriceCents: 7500,
			},
		},
	}
}

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

func defaultConfig() Config {
	return Config{
		Hours:        domain.BusinessHours{Open: 9, Close: 17},
		SlotMinutes:  30,
		CancelNotice: 24 * time.Hour,
	}
}

func TestAvailability_EmptyDay(t *testing.T) {
	day := time.Date(2025, 6, 10, 0, 0, 0, 0, time.UTC)
	now := time.Date(2025, 6, 10, 8, 0, 0, 0, time.UTC)

	svc := NewService(&fakeReservations{}, testCatalog(), defaultConfig(), WithClock(fixedClock(now)))

	slots, err := svc.Availability(context.Background(), day)
	if err != nil {
		t.Fatalf("Availability error: %v", err)
	}
	if len(slots) != 16 {
		t.Fatalf("len(slots) = %d, want 16", len(slots))
	}
	for i := 1; i < len(slots); i++ {
		if slots[i].Time.Sub(slots[i-1].Time) != 30*time.Minute {
			t.Fatalf("slots not spaced 30m at index %d", i)
		}
	}
}

func TestAvailability_BookedHourSuppressesTwoSlots(t *testing.T) {
	day := time.Date(2025, 6, 10, 0, 0, 0, 0, time.UTC)
	now := time.Date(2025, 6, 10, 8, 0, 0, 0, time.UTC)

	repo := &fakeReservations{
		listActiveOverlappingFn: func(ctx context.Context, window domain.Interval) ([]domain.Reservation, error) {
			return []domain.Reservation{
				{
					StartsAt: day.Add(10 * time.Hour),
					EndsAt:   day.Add(11 * time.Hour),
					Status:   domain.ReservationStatusConfirmed,
				},
			}, nil
		},
	}

	svc := NewService(repo, testCatalog(), defaultConfig(), WithClock(fixedClock(now)))

	slots, err := svc.Availability(context.Background(), day)
	if err != nil {
		t.Fatalf("Availability error: %v", err)
	}
	if len(slots) != 14 {
		t.Fatalf("len(slots) = %d, want 14", len(slots))
	}
	if !slots[0].Time.Equal(day.Add(9 * time.Hour)) {
		t.Fatalf("first slot = %v, want 09:00", slots[0].Time)
	}
	seen := make(map[string]bool, len(slots))
	for _, s := range slots {
		seen[s.Time.Format("15:04")] = true
	}
	if seen["10:00"] || seen["10:30"] {
		t.Fatalf("10:00 and 10:30 should be suppressed, got %v", seen)
	}
	if !seen["11:00"] {
		t.Fatalf("11:00 should be offered")
	}
}

type recordingCache struct {
	stored      map[string][]domain.Slot
	invalidated []string
}

func cacheKey(day time.Time) string {
	return day.UTC().Format("2006-01-02")
}

func (c *recordingCache) Get(ctx context.Context, day time.Time) ([]domain.Slot, bool) {
	slots, ok := c.stored[cacheKey(day)]
	return slots, ok
}

func (c *recordingCache) Set(ctx context.Context, day time.Time, slots []domain.Slot) {
	if c.stored == nil {
		c.stored = make(map[string][]domain.Slot)
	}
	c.stored[cacheKey(day)] = slots
}

func (c *recordingCache) Invalidate(ctx context.Context, day time.Time) {
	c.invalidated = append(c.invalidated, cacheKey(day))
}

func TestAvailability_CacheHitSkipsStore(t *testing.T) {
	day := time.Date(2025, 6, 10, 0, 0, 0, 0, time.UTC)
	now := time.Date(2025, 6, 10, 8, 0, 0, 0, time.UTC)

	repo := &fakeReservations{
		listActiveOverlappingFn: func(ctx context.Context, window domain.Interval) ([]domain.Reservation, error) {
			t.Fatalf("store should not be queried on cache hit")
			return nil, nil
		},
	}
	cached := []domain.Slot{{Time: day.Add(9 * time.Hour), Formatted: "9:00 AM"}}
	c := &recordingCache{stored: map[string][]domain.Slot{cacheKey(day): cached}}

	svc := NewService(repo, testCatalog(), defaultConfig(), WithClock(fixedClock(now)), WithCache(c))

	slots, err := svc.Availability(context.Background(), day)
	if err != nil {
		t.Fatalf("Availability error: %v", err)
	}
	if len(slots) != 1 || !slots[0].Time.Equal(cached[0].Time) {
		t.Fatalf("slots = %v, want cached value", slots)
	}
}

func TestCreate_UnknownDuration(t *testing.T) {
	inserted := false
	repo := &fakeReservations{
		insertFn: func(ctx context.Context, res domain.Reservation) (domain.Reservation, error) {
			inserted = true
			return res, nil
		},
	}
	svc := NewService(repo, testCatalog(), defaultConfig())

	_, err := svc.Create(context.Background(), CreateInput{
		ServiceID:  testServiceID,
		DurationID: uuid.MustParse("00000000-0000-0000-0000-0000000000ff"),
		StartsAt:   time.Date(2025, 6, 10, 9, 0, 0, 0, time.UTC),
	})
	var vErr *ValidationError
	if !errors.As(err, &vErr) {
		t.Fatalf("error type = %T, want *ValidationError", err)
	}
	if vErr.Error() != "unknown duration" {
		t.Fatalf("error = %q, want %q", vErr.Error(), "unknown duration")
	}
	if inserted {
		t.Fatalf("no reservation must be created on validation failure")
	}
}

func TestCreate_DurationServiceMismatch(t *testing.T) {
	svc := NewService(&fakeReservations{}, testCatalog(), defaultConfig())

	_, err := svc.Create(context.Background(), CreateInput{
		ServiceID:  uuid.MustParse("00000000-0000-0000-0000-0000000000ee"),
		DurationID: testDurationID,
		StartsAt:   time.Date(2025, 6, 10, 9, 0, 0, 0, time.UTC),
	})
	var vErr *ValidationError
	if !errors.As(err, &vErr) {
		t.Fatalf("error type = %T, want *ValidationError", err)
	}
}

func TestCreate_ComputesEndFromDurationAndConfirms(t *testing.T) {
	var got domain.Reservation
	repo := &fakeReservations{
		insertFn: func(ctx context.Context, res domain.Reservation) (domain.Reservation, error) {
			got = res
			return res, nil
		},
	}
	svc := NewService(repo, testCatalog(), defaultConfig())

	start := time.Date(2025, 6, 10, 9, 0, 0, 0, time.UTC)
	_, err := svc.Create(context.Background(), CreateInput{
		ServiceID:  testServiceID,
		DurationID: testDurationID,
		StartsAt:   start,
		UserID:     "u1",
	})
	if err != nil {
		t.Fatalf("Create error: %v", err)
	}
	if !got.EndsAt.Equal(start.Add(60 * time.Minute)) {
		t.Fatalf("ends_at = %v, want %v", got.EndsAt, start.Add(60*time.Minute))
	}
	if got.Status != domain.ReservationStatusConfirmed {
		t.Fatalf("status = %q, want %q", got.Status, domain.ReservationStatusConfirmed)
	}
	if got.UserID != "u1" {
		t.Fatalf("user_id = %q, want %q", got.UserID, "u1")
	}
}

func TestCreate_OverlapRejectedBeforeInsert(t *testing.T) {
	start := time.Date(2025, 6, 10, 10, 0, 0, 0, time.UTC)
	repo := &fakeReservations{
		listActiveOverlappingFn: func(ctx context.Context, window domain.Interval) ([]domain.Reservation, error) {
			return []domain.Reservation{
				{
					StartsAt: start.Add(30 * time.Minute),
					EndsAt:   start.Add(90 * time.Minute),
					Status:   domain.ReservationStatusPending,
				},
			}, nil
		},
		insertFn: func(ctx context.Context, res domain.Reservation) (domain.Reservation, error) {
			t.Fatalf("insert must not run when overlap is detected")
			return res, nil
		},
	}
	svc := NewService(repo, testCatalog(), defaultConfig())

	_, err := svc.Create(context.Background(), CreateInput{
		ServiceID:  testServiceID,
		DurationID: testDurationID,
		StartsAt:   start,
	})
	if !errors.Is(err, store.ErrConflict) {
		t.Fatalf("error = %v, want %v", err, store.ErrConflict)
	}
}

func TestCreate_BackToBackAllowed(t *testing.T) {
	start := time.Date(2025, 6, 10, 10, 0, 0, 0, time.UTC)
	repo := &fakeReservations{
		listActiveOverlappingFn: func(ctx context.Context, window domain.Interval) ([]domain.Reservation, error) {
			// Ends exactly when the request starts; half-open intervals do
			// not collide. A width-based store query would not return this
			// row at all, but the predicate must also tolerate it.
			return []domain.Reservation{
				{
					StartsAt: start.Add(-time.Hour),
					EndsAt:   start,
					Status:   domain.ReservationStatusConfirmed,
				},
			}, nil
		},
		insertFn: func(ctx context.Context, res domain.Reservation) (domain.Reservation, error) {
			return res, nil
		},
	}
	svc := NewService(repo, testCatalog(), defaultConfig())

	_, err := svc.Create(context.Background(), CreateInput{
		ServiceID:  testServiceID,
		DurationID: testDurationID,
		StartsAt:   start,
	})
	if err != nil {
		t.Fatalf("Create error: %v", err)
	}
}

func TestCreate_StoreConflictPropagates(t *testing.T) {
	repo := &fakeReservations{
		insertFn: func(ctx context.Context, res domain.Reservation) (domain.Reservation, error) {
			return domain.Reservation{}, store.ErrConflict
		},
	}
	svc := NewService(repo, testCatalog(), defaultConfig())

	_, err := svc.Create(context.Background(), CreateInput{
		ServiceID:  testServiceID,
		DurationID: testDurationID,
		StartsAt:   time.Date(2025, 6, 10, 10, 0, 0, 0, time.UTC),
	})
	if !errors.Is(err, store.ErrConflict) {
		t.Fatalf("error = %v, want %v", err, store.ErrConflict)
	}
}

type recordingEvents struct {
	booked    []domain.Reservation
	cancelled []domain.Reservation
}

func (e *recordingEvents) ReservationBooked(ctx context.Context, res domain.Reservation) {
	e.booked = append(e.booked, res)
}

func (e *recordingEvents) ReservationCancelled(ctx context.Context, res domain.Reservation) {
	e.cancelled = append(e.cancelled, res)
}

func TestCreate_InvalidatesCacheAndPublishes(t *testing.T) {
	repo := &fakeReservations{
		insertFn: func(ctx context.Context, res domain.Reservation) (domain.Reservation, error) {
			return res, nil
		},
	}
	c := &recordingCache{}
	ev := &recordingEvents{}
	svc := NewService(repo, testCatalog(), defaultConfig(), WithCache(c), WithEvents(ev))

	start := time.Date(2025, 6, 10, 10, 0, 0, 0, time.UTC)
	_, err := svc.Create(context.Background(), CreateInput{
		ServiceID:  testServiceID,
		DurationID: testDurationID,
		StartsAt:   start,
	})
	if err != nil {
		t.Fatalf("Create error: %v", err)
	}
	if len(c.invalidated) != 1 || c.invalidated[0] != "2025-06-10" {
		t.Fatalf("invalidated = %v, want [2025-06-10]", c.invalidated)
	}
	if len(ev.booked) != 1 {
		t.Fatalf("booked events = %d, want 1", len(ev.booked))
	}
}

func cancelFixture(startsAt time.Time, status domain.ReservationStatus) *fakeReservations {
	id := uuid.MustParse("00000000-0000-0000-0000-000000000042")
	res := domain.Reservation{
		ID:       id,
		StartsAt: startsAt,
		EndsAt:   startsAt.Add(time.Hour),
		Status:   status,
	}
	return &fakeReservations{
		getFn: func(ctx context.Context, got uuid.UUID) (domain.Reservation, error) {
			if got != id {
				return domain.Reservation{}, store.ErrNotFound
			}
			return res, nil
		},
		cancelFn: func(ctx context.Context, got uuid.UUID) (domain.Reservation, error) {
			out := res
			out.Status = domain.ReservationStatusCancelled
			return out, nil
		},
	}
}

func TestCancel_WindowBoundaries(t *testing.T) {
	now := time.Date(2025, 6, 10, 9, 0, 0, 0, time.UTC)
	id := uuid.MustParse("00000000-0000-0000-0000-000000000042")

	tests := []struct {
		name       string
		startsAt   time.Time
		wantWindow bool
	}{
		{name: "just inside window", startsAt: now.Add(24*time.Hour - 36*time.Second), wantWindow: true},
		{name: "exactly at boundary accepted", startsAt: now.Add(24 * time.Hour), wantWindow: false},
		{name: "just outside window accepted", startsAt: now.Add(24*time.Hour + 36*time.Second), wantWindow: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := cancelFixture(tt.startsAt, domain.ReservationStatusConfirmed)
			svc := NewService(repo, testCatalog(), defaultConfig(), WithClock(fixedClock(now)))

			out, err := svc.Cancel(context.Background(), id)
			if tt.wantWindow {
				if !errors.Is(err, ErrCancellationWindow) {
					t.Fatalf("error = %v, want %v", err, ErrCancellationWindow)
				}
				return
			}
			if err != nil {
				t.Fatalf("Cancel error: %v", err)
			}
			if out.Status != domain.ReservationStatusCancelled {
				t.Fatalf("status = %q, want CANCELLED", out.Status)
			}
		})
	}
}

func TestCancel_AlreadyCancelledTreatedAsNotFound(t *testing.T) {
	now := time.Date(2025, 6, 10, 9, 0, 0, 0, time.UTC)
	id := uuid.MustParse("00000000-0000-0000-0000-000000000042")

	repo := cancelFixture(now.Add(48*time.Hour), domain.ReservationStatusCancelled)
	svc := NewService(repo, testCatalog(), defaultConfig(), WithClock(fixedClock(now)))

	_, err := svc.Cancel(context.Background(), id)
	if !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("error = %v, want %v", err, store.ErrNotFound)
	}
}

func TestCancel_NotFoundPropagates(t *testing.T) {
	repo := &fakeReservations{
		getFn: func(ctx context.Context, id uuid.UUID) (domain.Reservation, error) {
			return domain.Reservation{}, store.ErrNotFound
		},
	}
	svc := NewService(repo, testCatalog(), defaultConfig())

	_, err := svc.Cancel(context.Background(), uuid.MustParse("00000000-0000-0000-0000-000000000042"))
	if !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("error = %v, want %v", err, store.ErrNotFound)
	}
}

func TestCancel_InvalidatesCacheAndPublishes(t *testing.T) {
	now := time.Date(2025, 6, 10, 9, 0, 0, 0, time.UTC)
	id := uuid.MustParse("00000000-0000-0000-0000-000000000042")

	repo := cancelFixture(time.Date(2025, 6, 12, 10, 0, 0, 0, time.UTC), domain.ReservationStatusConfirmed)
	c := &recordingCache{}
	ev := &recordingEvents{}
	svc := NewService(repo, testCatalog(), defaultConfig(), WithClock(fixedClock(now)), WithCache(c), WithEvents(ev))

	_, err := svc.Cancel(context.Background(), id)
	if err != nil {
		t.Fatalf("Cancel error: %v", err)
	}
	if len(c.invalidated) != 1 || c.invalidated[0] != "2025-06-12" {
		t.Fatalf("invalidated = %v, want [2025-06-12]", c.invalidated)
	}
	if len(ev.cancelled) != 1 {
		t.Fatalf("cancelled events = %d, want 1", len(ev.cancelled))
	}
}

func TestListForUser_RequiresUserID(t *testing.T) {
	svc := NewService(&fakeReservations{}, testCatalog(), defaultConfig())

	_, err := svc.ListForUser(context.Background(), "")
	var vErr *ValidationError
	if !errors.As(err, &vErr) {
		t.Fatalf("error type = %T, want *ValidationError", err)
	}
}
