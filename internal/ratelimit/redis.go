package ratelimit

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
)

// Redis is a sliding window limiter shared by every server instance. Each
// key is a sorted set of attempt timestamps.
type Redis struct {
	client *redis.Client
	limit  int
	window time.Duration
	prefix string
	now    func() time.Time
}

// NewRedis admits at most limit attempts per key within any window.
func NewRedis(client *redis.Client, limit int, window time.Duration) *Redis {
	return &Redis{
		client: client,
		limit:  limit,
		window: window,
		prefix: "traceit:attempts:",
		now:    time.Now,
	}
}

func (r *Redis) Allow(ctx context.Context, key string) (bool, error) {
	key = r.prefix + key
	now := r.now()
	cutoff := strconv.FormatInt(now.Add(-r.window).UnixNano(), 10)
	member := strconv.FormatInt(now.UnixNano(), 10) + "-" + uuid.NewString()

	var card *redis.IntCmd
	_, err := r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.ZRemRangeByScore(ctx, key, "-inf", cutoff)
		pipe.ZAdd(ctx, key, &redis.Z{Score: float64(now.UnixNano()), Member: member})
		card = pipe.ZCard(ctx, key)
		pipe.PExpire(ctx, key, r.window)
		return nil
	})
	if err != nil {
		return false, fmt.Errorf("counting attempts: %w", err)
	}

	if card.Val() > int64(r.limit) {
		// Refused attempts do not count.
		if err := r.client.ZRem(ctx, key, member).Err(); err != nil {
			return false, fmt.Errorf("discarding refused attempt: %w", err)
		}
		return false, nil
	}
	return true, nil
}
