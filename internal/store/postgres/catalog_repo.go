package postgres

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"
	"github.com/uptrace/bun"

	"peacefulpath/backend/internal/domain"
	"peacefulpath/backend/internal/store"
)

type CatalogRepo struct {
	db *bun.DB
}

func NewCatalogRepo(db *bun.DB) *CatalogRepo {
	return &CatalogRepo{db: db}
}

func (r *CatalogRepo) GetDuration(ctx context.Context, id uuid.UUID) (domain.Duration, error) {
	var row domain.Duration
	err := r.db.NewSelect().
		Model(&row).
		Where("id = ?", id).
		Limit(1).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Duration{}, store.ErrNotFound
		}
		return domain.Duration{}, err
	}
	return row, nil
}

func (r *CatalogRepo) GetService(ctx context.Context, id uuid.UUID) (domain.Service, error) {
	var row domain.Service
	err := r.db.NewSelect().
		Model(&row).
		Where("id = ?", id).
		Limit(1).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Service{}, store.ErrNotFound
		}
		return domain.Service{}, err
	}
	return row, nil
}

func (r *CatalogRepo) ListServices(ctx context.Context) ([]domain.Service, error) {
	var rows []domain.Service
	err := r.db.NewSelect().
		Model(&rows).
		Relation("Durations", func(q *bun.SelectQuery) *bun.SelectQuery {
			return q.OrderExpr("minutes ASC")
		}).
		OrderExpr("service.name ASC").
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return rows, nil
}
