package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/danphilibin/ticket-waitlist/internal/model"
)

// CachedStore wraps a primary Store (PostgreSQL) with a Redis read-through
// cache for the HTTP read path. Writes go to the primary store and
// invalidate the cache; reads check Redis first then fall back.
type CachedStore struct {
	primary Store
	rdb     *redis.Client
	ttl     time.Duration
}

// NewCachedStore creates a cached wrapper around a primary archive.
func NewCachedStore(primary Store, rdb *redis.Client, ttl time.Duration) *CachedStore {
	return &CachedStore{
		primary: primary,
		rdb:     rdb,
		ttl:     ttl,
	}
}

func (s *CachedStore) AppendTick(ctx context.Context, rec *model.TickRecord) error {
	if err := s.primary.AppendTick(ctx, rec); err != nil {
		return err
	}

	// Refresh the latest-tick key directly and invalidate the recent
	// lists; next read re-populates.
	if data, err := json.Marshal(rec); err == nil {
		s.rdb.Set(ctx, latestTickKey, data, s.ttl)
	}
	keys, err := s.rdb.Keys(ctx, recentTicksPrefix+"*").Result()
	if err == nil && len(keys) > 0 {
		s.rdb.Del(ctx, keys...)
	}
	return nil
}

func (s *CachedStore) RecentTicks(ctx context.Context, limit int) ([]model.TickRecord, error) {
	key := recentTicksKey(limit)

	data, err := s.rdb.Get(ctx, key).Bytes()
	if err == nil {
		var ticks []model.TickRecord
		if json.Unmarshal(data, &ticks) == nil {
			return ticks, nil
		}
	}

	// Cache miss.
	ticks, err := s.primary.RecentTicks(ctx, limit)
	if err != nil {
		return nil, err
	}

	if data, err := json.Marshal(ticks); err == nil {
		s.rdb.Set(ctx, key, data, s.ttl)
	}
	return ticks, nil
}

func (s *CachedStore) LatestTick(ctx context.Context) (*model.TickRecord, error) {
	data, err := s.rdb.Get(ctx, latestTickKey).Bytes()
	if err == nil {
		var rec model.TickRecord
		if json.Unmarshal(data, &rec) == nil {
			return &rec, nil
		}
	}

	rec, err := s.primary.LatestTick(ctx)
	if err != nil || rec == nil {
		return rec, err
	}

	if data, err := json.Marshal(rec); err == nil {
		s.rdb.Set(ctx, latestTickKey, data, s.ttl)
	}
	return rec, nil
}

const (
	latestTickKey     = "ticks:latest"
	recentTicksPrefix = "ticks:recent:"
)

func recentTicksKey(limit int) string {
	return fmt.Sprintf("%s%d", recentTicksPrefix, limit)
}
