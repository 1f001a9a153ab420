package redis

import (
	"context"
	_ "embed"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/alanyoungcy/cexbot/internal/domain"
)

//go:embed scripts/sliding_window.lua
var slidingWindowLua string

// maxWaitStep caps a single sleep in Wait so a shrinking limit or a cleared
// key is noticed promptly.
const maxWaitStep = time.Second

// RateLimiter is a sliding-window limiter shared by every process pointed
// at the same Redis namespace. Venue guards use it so two bots on one API
// key stay under the exchange's request weight.
type RateLimiter struct {
	c      *Client
	script *redis.Script
}

var _ domain.RateLimiter = (*RateLimiter)(nil)

func NewRateLimiter(c *Client) *RateLimiter {
	return &RateLimiter{c: c, script: redis.NewScript(slidingWindowLua)}
}

// Allow reports whether one more request for key fits in the window, and
// counts it if so.
func (rl *RateLimiter) Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error) {
	ok, _, err := rl.take(ctx, key, limit, window)
	return ok, err
}

// Wait blocks until a request for key is admitted or ctx ends. Between
// attempts it sleeps for the time the oldest request needs to leave the
// window.
func (rl *RateLimiter) Wait(ctx context.Context, key string, limit int, window time.Duration) error {
	for {
		ok, retry, err := rl.take(ctx, key, limit, window)
		if err != nil {
			return err
		}
		if ok {
			return nil
		}

		timer := time.NewTimer(min(retry, maxWaitStep))
		select {
		case <-ctx.Done():
			timer.Stop()
			return fmt.Errorf("redis: rate limit wait %s: %w", key, ctx.Err())
		case <-timer.C:
		}
	}
}

func (rl *RateLimiter) take(ctx context.Context, key string, limit int, window time.Duration) (bool, time.Duration, error) {
	if limit <= 0 {
		return false, 0, fmt.Errorf("redis: rate limit %s: limit must be positive", key)
	}
	res, err := rl.script.Run(ctx, rl.c.rdb,
		[]string{rl.c.key("ratelimit", key)},
		time.Now().UnixMicro(), window.Microseconds(), limit,
	).Int64Slice()
	if err != nil {
		return false, 0, fmt.Errorf("redis: rate limit %s: %w", key, err)
	}
	return parseWindowResult(res)
}

func parseWindowResult(res []int64) (bool, time.Duration, error) {
	if len(res) != 3 {
		return false, 0, fmt.Errorf("redis: rate limit: unexpected script result %v", res)
	}
	return res[0] == 1, time.Duration(res[2]) * time.Microsecond, nil
}
