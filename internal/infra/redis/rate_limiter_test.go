//go:build !integration

package redis

import (
	"context"
	"strconv"
	"testing"
	"time"
)

type counterClient struct {
	RedisClient
	values  map[string]int64
	expires map[string]time.Duration
}

func (c *counterClient) Incr(_ context.Context, key string) (int64, error) {
	c.values[key]++
	return c.values[key], nil
}

func (c *counterClient) Expire(_ context.Context, key string, d time.Duration) error {
	c.expires[key] = d
	return nil
}

func TestRateLimiterHit(t *testing.T) {
	cli := &counterClient{values: map[string]int64{}, expires: map[string]time.Duration{}}
	now := time.Date(2026, 3, 1, 12, 0, 50, 0, time.UTC)
	rl := NewRateLimiter(cli).WithClock(func() time.Time { return now })
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		d, err := rl.Hit(ctx, "k", 2, time.Minute)
		if err != nil || !d.Allowed {
			t.Fatalf("hit %d: %+v %v", i, d, err)
		}
		if d.Remaining != 1-i {
			t.Fatalf("hit %d: remaining %d", i, d.Remaining)
		}
	}
	d, _ := rl.Hit(ctx, "k", 2, time.Minute)
	if d.Allowed || d.ResetIn != 10*time.Second {
		t.Fatalf("third hit: %+v", d)
	}

	bucket := "k:" + strconv.FormatInt(now.UnixNano()/int64(time.Minute), 10)
	if cli.expires[bucket] != 11*time.Second {
		t.Fatalf("expiry = %v", cli.expires[bucket])
	}

	now = now.Add(15 * time.Second)
	if d, _ := rl.Hit(ctx, "k", 2, time.Minute); !d.Allowed {
		t.Fatal("next window should start fresh")
	}
}
