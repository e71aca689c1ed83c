package adapter

import (
	"context"

	"subscriber-payments/internal/domain/model"
)

// AdminNotifier tells the people doing manual fulfillment that a request needs them.
type AdminNotifier interface {
	NotifyNewRequest(ctx context.Context, r *model.PaymentRequest) error
	NotifyPaymentClaimed(ctx context.Context, r *model.PaymentRequest) error
}
