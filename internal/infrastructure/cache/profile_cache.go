package cache

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/oksasatya/go-auth-service/internal/domain/entity"
	"github.com/oksasatya/go-auth-service/pkg/helpers"
)

const DefaultProfileTTL = 5 * time.Minute

// generationTTL keeps invalidation counters well past any in-flight read.
const generationTTL = 24 * time.Hour

// ProfileCache stores public user projections in Redis as JSON.
type ProfileCache struct {
	rdb redis.UniversalClient
	ttl time.Duration
}

func NewProfileCache(rdb redis.UniversalClient, ttl time.Duration) *ProfileCache {
	if ttl <= 0 {
		ttl = DefaultProfileTTL
	}
	return &ProfileCache{rdb: rdb, ttl: ttl}
}

func profileKey(userID string) string {
	return "user:profile:" + userID
}

func generationKey(userID string) string {
	return "user:profile:gen:" + userID
}

func (c *ProfileCache) Get(ctx context.Context, userID string) (*entity.PublicUser, bool, error) {
	var p entity.PublicUser
	ok, err := helpers.RedisGetJSON(ctx, c.rdb, profileKey(userID), &p)
	if err != nil || !ok {
		return nil, false, err
	}
	return &p, true, nil
}

// Generation returns how many times userID has been invalidated, 0 if never.
func (c *ProfileCache) Generation(ctx context.Context, userID string) (int64, error) {
	return readGeneration(ctx, c.rdb, userID)
}

type getter interface {
	Get(ctx context.Context, key string) *redis.StringCmd
}

func readGeneration(ctx context.Context, rdb getter, userID string) (int64, error) {
	n, err := rdb.Get(ctx, generationKey(userID)).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	return n, err
}

// Set writes u unless its user was invalidated after generation was read.
// A lost race is not an error.
func (c *ProfileCache) Set(ctx context.Context, u *entity.PublicUser, generation int64) error {
	err := c.rdb.Watch(ctx, func(tx *redis.Tx) error {
		current, err := readGeneration(ctx, tx, u.ID)
		if err != nil {
			return err
		}
		if current != generation {
			return nil
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			return helpers.RedisSetJSON(ctx, pipe, profileKey(u.ID), u, c.ttl)
		})
		return err
	}, generationKey(u.ID))
	if errors.Is(err, redis.TxFailedErr) {
		return nil
	}
	return err
}

// Delete drops the cached profile and bumps its generation.
func (c *ProfileCache) Delete(ctx context.Context, userID string) error {
	_, err := c.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, profileKey(userID))
		pipe.Incr(ctx, generationKey(userID))
		pipe.Expire(ctx, generationKey(userID), generationTTL)
		return nil
	})
	return err
}
