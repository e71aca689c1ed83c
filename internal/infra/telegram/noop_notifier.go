package telegram

import (
	"context"

	"github.com/rs/zerolog"

	"subscriber-payments/internal/domain/model"
	"subscriber-payments/internal/domain/ports/adapter"
)

var _ adapter.AdminNotifier = (*NoopNotifier)(nil)

// NoopNotifier logs instead of sending; used when no bot token is configured.
type NoopNotifier struct {
	log *zerolog.Logger
}

func NewNoopNotifier(logger *zerolog.Logger) *NoopNotifier {
	l := logger.With().Str("component", "NoopAdminNotifier").Logger()
	return &NoopNotifier{log: &l}
}

func (n *NoopNotifier) NotifyNewRequest(ctx context.Context, r *model.PaymentRequest) error {
	n.log.Debug().Str("request_id", r.ID).Str("reference_code", r.ReferenceCode).Msg("new payment request")
	return nil
}

func (n *NoopNotifier) NotifyPaymentClaimed(ctx context.Context, r *model.PaymentRequest) error {
	n.log.Debug().Str("request_id", r.ID).Str("reference_code", r.ReferenceCode).Msg("payment claimed")
	return nil
}
