package ratelimit

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// Redis is a sliding-window limiter shared by every instance pointed at the
// same Redis. Each key is a sorted set of hit timestamps in microseconds.
type Redis struct {
	client *redis.Client
	prefix string
	max    int
	window time.Duration
}

// NewRedis creates a limiter storing keys under prefix.
func NewRedis(client *redis.Client, prefix string, max int, window time.Duration) *Redis {
	return &Redis{client: client, prefix: prefix, max: max, window: window}
}

// slidingWindow trims expired hits, then records a new one only while the
// key is under the limit. It returns 1 when the hit was recorded.
var slidingWindow = redis.NewScript(`
redis.call('ZREMRANGEBYSCORE', KEYS[1], '-inf', ARGV[1])
if redis.call('ZCARD', KEYS[1]) >= tonumber(ARGV[3]) then
	return 0
end
redis.call('ZADD', KEYS[1], ARGV[2], ARGV[4])
redis.call('PEXPIRE', KEYS[1], ARGV[5])
return 1
`)

// Allow checks the limit for key and records the hit when allowed. The
// check and the record run as one script, so concurrent callers on any
// instance cannot overshoot max.
func (r *Redis) Allow(ctx context.Context, key string) (bool, error) {
	k := r.prefix + key
	now := time.Now()
	cutoff := now.Add(-r.window).UnixMicro()

	n, err := slidingWindow.Run(ctx, r.client, []string{k},
		strconv.FormatInt(cutoff, 10),
		strconv.FormatInt(now.UnixMicro(), 10),
		r.max,
		uuid.NewString(),
		r.window.Milliseconds(),
	).Int()
	if err != nil {
		return false, fmt.Errorf("ratelimit: allow %s: %w", k, err)
	}
	return n == 1, nil
}

// Ping checks that Redis is available.
func (r *Redis) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}
