package redis

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/go-redis/redis/v8"
	"github.com/rs/zerolog"

	"subscriber-payments/internal/domain/model"
	"subscriber-payments/internal/domain/ports/adapter"
)

const feedChannelPrefix = "payment_requests:"

var _ adapter.ChangeFeed = (*ChangeFeed)(nil)

// ChangeFeed shares committed snapshots between instances over Redis Pub/Sub.
// Local delivers to listeners of this process; Run forwards snapshots that
// other instances published. Subscribers drop repeats by version.
type ChangeFeed struct {
	cli   *redis.Client
	local adapter.ChangeFeed
	log   *zerolog.Logger
}

func NewChangeFeed(c *Client, local adapter.ChangeFeed, logger *zerolog.Logger) *ChangeFeed {
	l := logger.With().Str("component", "RedisChangeFeed").Logger()
	return &ChangeFeed{cli: c.cli, local: local, log: &l}
}

func (f *ChangeFeed) Publish(ctx context.Context, r *model.PaymentRequest) error {
	_ = f.local.Publish(ctx, r)
	b, err := json.Marshal(r)
	if err != nil {
		return err
	}
	return f.cli.Publish(ctx, feedChannelPrefix+r.ID, b).Err()
}

func (f *ChangeFeed) Subscribe(requestID string, fn func(*model.PaymentRequest)) func() {
	return f.local.Subscribe(requestID, fn)
}

// Run relays remote snapshots into the local feed until ctx is done.
func (f *ChangeFeed) Run(ctx context.Context) error {
	ps := f.cli.PSubscribe(ctx, feedChannelPrefix+"*")
	defer ps.Close()
	if _, err := ps.Receive(ctx); err != nil {
		return err
	}
	f.log.Info().Msg("change feed relay started")

	ch := ps.Channel()
	for {
		select {
		case <-ctx.Done():
			f.log.Info().Msg("change feed relay stopped")
			return nil
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			var r model.PaymentRequest
			if err := json.Unmarshal([]byte(msg.Payload), &r); err != nil {
				f.log.Warn().Err(err).Str("channel", msg.Channel).Msg("drop undecodable snapshot")
				continue
			}
			if r.ID == "" || strings.TrimPrefix(msg.Channel, feedChannelPrefix) != r.ID {
				continue
			}
			_ = f.local.Publish(ctx, &r)
		}
	}
}
