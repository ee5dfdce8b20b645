package store

import (
	"context"

	"github.com/google/uuid"

	"peacefulpath/backend/internal/domain"
)

// ReservationRepository is the shared-calendar collaborator. Insert must be
// atomic with respect to concurrent inserts for overlapping intervals: an
// overlap that slips past the caller's read-then-check is rejected by the
// storage layer itself and surfaces as ErrConflict.
type ReservationRepository interface {
	Insert(ctx context.Context, res domain.Reservation) (domain.Reservation, error)
	Get(ctx context.Context, id uuid.UUID) (domain.Reservation, error)
	ListActiveOverlapping(ctx context.Context, window domain.Interval) ([]domain.Reservation, error)
	// Cancel transitions an active reservation to CANCELLED. Absent or
	// already-cancelled reservations yield ErrNotFound.
	Cancel(ctx context.Context, id uuid.UUID) (domain.Reservation, error)
	ListByUser(ctx context.Context, userID string) ([]domain.Reservation, error)
}

type CatalogRepository interface {
	GetDuration(ctx context.Context, id uuid.UUID) (domain.Duration, error)
	GetService(ctx context.Context, id uuid.UUID) (domain.Service, error)
	ListServices(ctx context.Context) ([]domain.Service, error)
}
