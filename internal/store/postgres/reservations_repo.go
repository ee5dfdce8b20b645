package postgres

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/uptrace/bun"

	"peacefulpath/backend/internal/domain"
	"peacefulpath/backend/internal/store"
)

// The studio runs a single shared calendar, so every admission serializes on
// one advisory lock. The reservations_no_overlap exclusion constraint is the
// backstop for anything that slips through.
const calendarLockKey = "peacefulpath:calendar"

type ReservationRepo struct {
	db *bun.DB
}

func NewReservationRepo(db *bun.DB) *ReservationRepo {
	return &ReservationRepo{db: db}
}

func (r *ReservationRepo) Insert(ctx context.Context, res domain.Reservation) (domain.Reservation, error) {
	m := res
	err := r.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if err := lockCalendar(ctx, tx); err != nil {
			return err
		}
		if _, err := tx.NewInsert().Model(&m).Exec(ctx); err != nil {
			var pgErr *pgconn.PgError
			if errors.As(err, &pgErr) && pgErr.Code == "23P01" && pgErr.ConstraintName == "reservations_no_overlap" {
				return store.ErrConflict
			}
			return err
		}
		return nil
	})
	if err != nil {
		return domain.Reservation{}, err
	}
	return m, nil
}

func (r *ReservationRepo) Get(ctx context.Context, id uuid.UUID) (domain.Reservation, error) {
	var row domain.Reservation
	err := r.db.NewSelect().
		Model(&row).
		Where("id = ?", id).
		Limit(1).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Reservation{}, store.ErrNotFound
		}
		return domain.Reservation{}, err
	}
	return row, nil
}

func (r *ReservationRepo) ListActiveOverlapping(ctx context.Context, window domain.Interval) ([]domain.Reservation, error) {
	var rows []domain.Reservation
	err := r.db.NewSelect().
		Model(&rows).
		Where("starts_at < ?", window.End).
		Where("ends_at > ?", window.Start).
		Where("status IN (?)", bun.In(activeStatuses())).
		OrderExpr("starts_at ASC").
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *ReservationRepo) Cancel(ctx context.Context, id uuid.UUID) (domain.Reservation, error) {
	var out domain.Reservation
	err := r.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		res, err := tx.NewUpdate().
			Model((*domain.Reservation)(nil)).
			Set("status = ?", domain.ReservationStatusCancelled).
			Set("updated_at = now()").
			Where("id = ?", id).
			Where("status IN (?)", bun.In(activeStatuses())).
			Exec(ctx)
		if err != nil {
			return err
		}
		affected, err := res.RowsAffected()
		if err != nil {
			return err
		}
		if affected == 0 {
			return store.ErrNotFound
		}
		return tx.NewSelect().
			Model(&out).
			Where("id = ?", id).
			Limit(1).
			Scan(ctx)
	})
	if err != nil {
		return domain.Reservation{}, err
	}
	return out, nil
}

func (r *ReservationRepo) ListByUser(ctx context.Context, userID string) ([]domain.Reservation, error) {
	var rows []domain.Reservation
	err := r.db.NewSelect().
		Model(&rows).
		Relation("Service").
		Relation("Duration").
		Where("reservation.user_id = ?", userID).
		OrderExpr("reservation.starts_at DESC").
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func lockCalendar(ctx context.Context, tx bun.Tx) error {
	_, err := tx.NewRaw("SELECT pg_advisory_xact_lock(hashtext(?))", calendarLockKey).Exec(ctx)
	return err
}

func activeStatuses() []domain.ReservationStatus {
	return []domain.ReservationStatus{
		domain.ReservationStatusPending,
		domain.ReservationStatusConfirmed,
	}
}
