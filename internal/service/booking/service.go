package booking

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"peacefulpath/backend/internal/domain"
	"peacefulpath/backend/internal/store"
)

type ValidationError struct {
	msg string
}

func (e *ValidationError) Error() string {
	return e.msg
}

func validationError(msg string) error {
	return &ValidationError{msg: msg}
}

// ErrCancellationWindow is returned when a reservation starts too soon to be
// cancelled. The boundary is inclusive of the notice period: a reservation
// starting exactly CancelNotice from now may still be cancelled.
var ErrCancellationWindow = errors.New("cancellation window expired")

// AvailabilityCache memoizes generated slots per calendar day. A nil cache
// disables caching.
type AvailabilityCache interface {
	Get(ctx context.Context, day time.Time) ([]domain.Slot, bool)
	Set(ctx context.Context, day time.Time, slots []domain.Slot)
	Invalidate(ctx context.Context, day time.Time)
}

// EventPublisher receives best-effort lifecycle notifications after a
// reservation changes state. Publish failures never fail the booking.
type EventPublisher interface {
	ReservationBooked(ctx context.Context, res domain.Reservation)
	ReservationCancelled(ctx context.Context, res domain.Reservation)
}

type Config struct {
	Hours        domain.BusinessHours
	SlotMinutes  int
	CancelNotice time.Duration
}

type Service struct {
	reservations store.ReservationRepository
	catalog      store.CatalogRepository
	cfg          Config
	cache        AvailabilityCache
	events       EventPublisher
	now          func() time.Time
}

type Option func(*Service)

func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

func WithCache(c AvailabilityCache) Option {
	return func(s *Service) { s.cache = c }
}

func WithEvents(p EventPublisher) Option {
	return func(s *Service) { s.events = p }
}

func NewService(reservations store.ReservationRepository, catalog store.CatalogRepository, cfg Config, opts ...Option) *Service {
	if cfg.SlotMinutes <= 0 {
		cfg.SlotMinutes = 30
	}
	if cfg.CancelNotice <= 0 {
		cfg.CancelNotice = 24 * time.Hour
	}
	s := &Service{
		reservations: reservations,
		catalog:      catalog,
		cfg:          cfg,
		now:          func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Availability returns the bookable slots for one calendar day: every
// granule inside business hours that is in the future and free of active
// reservations.
func (s *Service) Availability(ctx context.Context, day time.Time) ([]domain.Slot, error) {
	day = day.UTC()

	if s.cache != nil {
		if slots, ok := s.cache.Get(ctx, day); ok {
			return slots, nil
		}
	}

	window := s.cfg.Hours.Window(day)
	active, err := s.reservations.ListActiveOverlapping(ctx, window)
	if err != nil {
		return nil, err
	}

	busy := make([]domain.Interval, 0, len(active))
	for _, r := range active {
		busy = append(busy, r.Interval())
	}

	slots := domain.GenerateSlots(day, s.cfg.Hours, s.cfg.SlotMinutes, busy, s.now())
	if s.cache != nil {
		s.cache.Set(ctx, day, slots)
	}
	return slots, nil
}

type CreateInput struct {
	ServiceID  uuid.UUID
	DurationID uuid.UUID
	StartsAt   time.Time
	UserID     string
}

// Create admits a booking request: resolve the duration, derive the end time,
// reject on overlap with any active reservation, then persist a CONFIRMED
// reservation. The storage layer's exclusion constraint is the final
// authority, so a race that slips past the read below still fails with
// store.ErrConflict and no partial state.
func (s *Service) Create(ctx context.Context, in CreateInput) (domain.Reservation, error) {
	if in.ServiceID == uuid.Nil {
		return domain.Reservation{}, validationError("service_id is required")
	}
	if in.DurationID == uuid.Nil {
		return domain.Reservation{}, validationError("duration_id is required")
	}
	if in.StartsAt.IsZero() {
		return domain.Reservation{}, validationError("starts_at is required")
	}

	dur, err := s.catalog.GetDuration(ctx, in.DurationID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domain.Reservation{}, validationError("unknown duration")
		}
		return domain.Reservation{}, err
	}
	if dur.ServiceID != in.ServiceID {
		return domain.Reservation{}, validationError("duration does not belong to service")
	}

	startsAt := in.StartsAt.UTC()
	endsAt := startsAt.Add(time.Duration(dur.Minutes) * time.Minute)
	requested := domain.Interval{Start: startsAt, End: endsAt}

	active, err := s.reservations.ListActiveOverlapping(ctx, requested)
	if err != nil {
		return domain.Reservation{}, err
	}
	for _, r := range active {
		if domain.Overlaps(requested, r.Interval()) {
			return domain.Reservation{}, store.ErrConflict
		}
	}

	out, err := s.reservations.Insert(ctx, domain.Reservation{
		ServiceID:  in.ServiceID,
		DurationID: in.DurationID,
		UserID:     in.UserID,
		StartsAt:   startsAt,
		EndsAt:     endsAt,
		Status:     domain.ReservationStatusConfirmed,
	})
	if err != nil {
		return domain.Reservation{}, err
	}

	if s.cache != nil {
		s.cache.Invalidate(ctx, startsAt)
	}
	if s.events != nil {
		s.events.ReservationBooked(ctx, out)
	}
	return out, nil
}

// Cancel transitions an active reservation to CANCELLED when it starts at
// least CancelNotice in the future. Already-cancelled reservations are
// treated as absent.
func (s *Service) Cancel(ctx context.Context, id uuid.UUID) (domain.Reservation, error) {
	if id == uuid.Nil {
		return domain.Reservation{}, validationError("reservation_id is required")
	}

	res, err := s.reservations.Get(ctx, id)
	if err != nil {
		return domain.Reservation{}, err
	}
	if !res.Status.Active() {
		return domain.Reservation{}, store.ErrNotFound
	}

	if res.StartsAt.Sub(s.now()) < s.cfg.CancelNotice {
		return domain.Reservation{}, ErrCancellationWindow
	}

	out, err := s.reservations.Cancel(ctx, id)
	if err != nil {
		return domain.Reservation{}, err
	}

	if s.cache != nil {
		s.cache.Invalidate(ctx, out.StartsAt)
	}
	if s.events != nil {
		s.events.ReservationCancelled(ctx, out)
	}
	return out, nil
}

// ListForUser returns a user's reservations, newest first, with service and
// duration display fields loaded.
func (s *Service) ListForUser(ctx context.Context, userID string) ([]domain.Reservation, error) {
	if userID == "" {
		return nil, validationError("user_id is required")
	}
	return s.reservations.ListByUser(ctx, userID)
}

func (s *Service) Services(ctx context.Context) ([]domain.Service, error) {
	return s.catalog.ListServices(ctx)
}
