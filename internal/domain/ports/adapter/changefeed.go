package adapter

import (
	"context"

	"subscriber-payments/internal/domain/model"
)

// ChangeFeed distributes committed payment request snapshots to listeners.
// Listeners for one request are called in Publish order and must not block for long.
type ChangeFeed interface {
	Publish(ctx context.Context, r *model.PaymentRequest) error
	Subscribe(requestID string, fn func(*model.PaymentRequest)) (unsubscribe func())
}
