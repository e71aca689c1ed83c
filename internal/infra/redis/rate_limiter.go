package redis

import (
	"context"
	"fmt"
	"time"
)

// Decision is the outcome of one counted hit.
type Decision struct {
	Allowed   bool
	Remaining int
	// ResetIn is the time left until the current window closes.
	ResetIn time.Duration
}

// RateLimiter counts hits per key in windows aligned to the clock, so every
// instance sharing Redis agrees on when a window resets.
type RateLimiter struct {
	client RedisClient
	now    func() time.Time
}

func NewRateLimiter(client RedisClient) *RateLimiter {
	return &RateLimiter{client: client, now: time.Now}
}

// WithClock replaces the time source.
func (r *RateLimiter) WithClock(now func() time.Time) *RateLimiter {
	r.now = now
	return r
}

func (r *RateLimiter) Hit(ctx context.Context, key string, limit int, window time.Duration) (Decision, error) {
	if window <= 0 {
		window = time.Second
	}
	now := r.now()
	bucket := now.UnixNano() / int64(window)
	resetIn := time.Duration((bucket+1)*int64(window) - now.UnixNano())

	bucketKey := fmt.Sprintf("%s:%d", key, bucket)
	count, err := r.client.Incr(ctx, bucketKey)
	if err != nil {
		return Decision{}, err
	}
	if count == 1 {
		// one extra second absorbs clock skew between instances
		if err := r.client.Expire(ctx, bucketKey, resetIn+time.Second); err != nil {
			return Decision{}, err
		}
	}

	d := Decision{Allowed: count <= int64(limit), ResetIn: resetIn}
	if d.Allowed {
		d.Remaining = limit - int(count)
	}
	return d, nil
}

// TrackingKey scopes public tracking lookups per client address.
func TrackingKey(remote string) string {
	return fmt.Sprintf("rate_limit:track:%s", remote)
}
