// Package rediscache puts a redis read-through cache in front of a room
// directory. Only positive lookups are cached so a newly created room is
// visible immediately.
package rediscache

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"roombook/backend/internal/logging"
	"roombook/backend/internal/store"
)

const keyPrefix = "roombook:room:"

type client interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value any, expiration time.Duration) *redis.StatusCmd
}

type RoomCache struct {
	next store.RoomDirectory
	rdb  client
	ttl  time.Duration
	log  *slog.Logger
}

func New(next store.RoomDirectory, rdb client, ttl time.Duration, log *slog.Logger) *RoomCache {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	if log == nil {
		log = slog.Default()
	}
	return &RoomCache{
		next: next,
		rdb:  rdb,
		ttl:  ttl,
		log:  log.With(slog.String("component", "rediscache")),
	}
}

func Key(roomID uuid.UUID) string {
	return keyPrefix + roomID.String()
}

// RoomExists answers from redis when it can. A redis failure is logged and
// the lookup falls through to the wrapped directory.
func (c *RoomCache) RoomExists(ctx context.Context, roomID uuid.UUID) (bool, error) {
	key := Key(roomID)

	_, err := c.rdb.Get(ctx, key).Result()
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, redis.Nil):
	default:
		c.log.WarnContext(ctx, "room cache read failed", slog.String("key", key), slog.Any(logging.ErrKey, err))
	}

	ok, err := c.next.RoomExists(ctx, roomID)
	if err != nil || !ok {
		return ok, err
	}

	if err := c.rdb.Set(ctx, key, "1", c.ttl).Err(); err != nil {
		c.log.WarnContext(ctx, "room cache write failed", slog.String("key", key), slog.Any(logging.ErrKey, err))
	}
	return true, nil
}
