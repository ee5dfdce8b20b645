package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

type ReservationStatus string

const (
	ReservationStatusPending   ReservationStatus = "PENDING"
	ReservationStatusConfirmed ReservationStatus = "CONFIRMED"
	ReservationStatusCancelled ReservationStatus = "CANCELLED"
)

// Active reservations hold their interval on the calendar; cancelled rows are
// kept as inert history and never block other bookings.
func (s ReservationStatus) Active() bool {
	return s == ReservationStatusPending || s == ReservationStatusConfirmed
}

type Reservation struct {
	bun.BaseModel `bun:"table:reservations"`

	ID         uuid.UUID         `bun:"id,pk,type:uuid"`
	ServiceID  uuid.UUID         `bun:"service_id,notnull,type:uuid"`
	DurationID uuid.UUID         `bun:"duration_id,notnull,type:uuid"`
	UserID     string            `bun:"user_id"`
	StartsAt   time.Time         `bun:"starts_at,notnull"`
	EndsAt     time.Time         `bun:"ends_at,notnull"`
	Status     ReservationStatus `bun:"status,notnull"`
	CreatedAt  time.Time         `bun:"created_at,notnull"`
	UpdatedAt  time.Time         `bun:"updated_at,notnull"`

	Service  *Service  `bun:"rel:belongs-to,join:service_id=id"`
	Duration *Duration `bun:"rel:belongs-to,join:duration_id=id"`
}

func (r *Reservation) BeforeAppendModel(ctx context.Context, query bun.Query) error {
	now := time.Now().UTC()
	switch query.(type) {
	case *bun.InsertQuery:
		if r.ID == uuid.Nil {
			id, err := uuid.NewV7()
			if err != nil {
				return err
			}
			r.ID = id
		}
		if r.CreatedAt.IsZero() {
			r.CreatedAt = now
		}
		if r.UpdatedAt.IsZero() {
			r.UpdatedAt = now
		}
	case *bun.UpdateQuery:
		r.UpdatedAt = now
	}
	return nil
}

func (r *Reservation) Interval() Interval {
	return Interval{Start: r.StartsAt, End: r.EndsAt}
}
