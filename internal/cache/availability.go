package cache

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"peacefulpath/backend/internal/domain"
)

// Availability memoizes generated slot lists per calendar day in Redis.
// Entries are short-lived and invalidated whenever a reservation on that day
// changes, so a cold or unreachable Redis only costs a regeneration.
type Availability struct {
	rdb *redis.Client
	ttl time.Duration
	log *slog.Logger
}

func NewAvailability(rdb *redis.Client, ttl time.Duration, log *slog.Logger) *Availability {
	if ttl <= 0 {
		ttl = time.Minute
	}
	if log == nil {
		log = slog.Default()
	}
	return &Availability{
		rdb: rdb,
		ttl: ttl,
		log: log.With(slog.String("component", "cache.availability")),
	}
}

func (c *Availability) Get(ctx context.Context, day time.Time) ([]domain.Slot, bool) {
	raw, err := c.rdb.Get(ctx, key(day)).Bytes()
	if err != nil {
		if err != redis.Nil {
			c.log.Warn("cache read failed", slog.Any("err", err))
		}
		return nil, false
	}

	var slots []domain.Slot
	if err := json.Unmarshal(raw, &slots); err != nil {
		c.log.Warn("cache entry corrupt", slog.Any("err", err), slog.String("key", key(day)))
		return nil, false
	}
	return slots, true
}

func (c *Availability) Set(ctx context.Context, day time.Time, slots []domain.Slot) {
	raw, err := json.Marshal(slots)
	if err != nil {
		c.log.Warn("cache encode failed", slog.Any("err", err))
		return
	}
	if err := c.rdb.Set(ctx, key(day), raw, c.ttl).Err(); err != nil {
		c.log.Warn("cache write failed", slog.Any("err", err))
	}
}

func (c *Availability) Invalidate(ctx context.Context, day time.Time) {
	if err := c.rdb.Del(ctx, key(day)).Err(); err != nil {
		c.log.Warn("cache invalidate failed", slog.Any("err", err), slog.String("key", key(day)))
	}
}

func key(day time.Time) string {
	return "availability:" + day.UTC().Format("2006-01-02")
}
