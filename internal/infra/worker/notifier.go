package worker

import (
	"context"
	"time"

	"subscriber-payments/internal/domain/model"
	"subscriber-payments/internal/domain/ports/adapter"
)

var _ adapter.AdminNotifier = (*AsyncNotifier)(nil)

// AsyncNotifier hands admin notifications to the pool so request handling never
// waits on the chat API.
type AsyncNotifier struct {
	inner   adapter.AdminNotifier
	pool    *Pool
	timeout time.Duration
}

func NewAsyncNotifier(inner adapter.AdminNotifier, pool *Pool, timeout time.Duration) *AsyncNotifier {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &AsyncNotifier{inner: inner, pool: pool, timeout: timeout}
}

func (n *AsyncNotifier) NotifyNewRequest(_ context.Context, r *model.PaymentRequest) error {
	r = r.Clone()
	return n.pool.Submit(func(ctx context.Context) error {
		ctx, cancel := context.WithTimeout(ctx, n.timeout)
		defer cancel()
		return n.inner.NotifyNewRequest(ctx, r)
	})
}

func (n *AsyncNotifier) NotifyPaymentClaimed(_ context.Context, r *model.PaymentRequest) error {
	r = r.Clone()
	return n.pool.Submit(func(ctx context.Context) error {
		ctx, cancel := context.WithTimeout(ctx, n.timeout)
		defer cancel()
		return n.inner.NotifyPaymentClaimed(ctx, r)
	})
}
