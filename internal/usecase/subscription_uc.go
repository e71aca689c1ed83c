// File: internal/usecase/subscription_uc.go
package usecase

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v4"
	"github.com/rs/zerolog"

	"subscriber-payments/internal/domain"
	"subscriber-payments/internal/domain/model"
	"subscriber-payments/internal/domain/ports/repository"
	"subscriber-payments/internal/infra/logging"
	"subscriber-payments/internal/infra/metrics"
)

// Compile-time check
var (
	_ SubscriptionUseCase = (*subscriptionUC)(nil)
	_ Activator           = (*subscriptionUC)(nil)
)

// SubscriptionUseCase grants plan entitlements for completed payment requests.
type SubscriptionUseCase interface {
	// Activate grants r's plan to r's owner. It reports false, and changes nothing,
	// when r already granted a subscription before.
	Activate(ctx context.Context, tx repository.Tx, r *model.PaymentRequest) (bool, error)
	// ActivateByRequestID re-runs activation for an already completed request.
	ActivateByRequestID(ctx context.Context, requestID string) (bool, error)
	// GetForUser returns the user's subscription as seen right now.
	GetForUser(ctx context.Context, userID string) (*model.Subscription, error)
}

type subscriptionUC struct {
	users       repository.UserRepository
	activations repository.ActivationRepository
	requests    repository.PaymentRequestRepository
	tm          repository.TransactionManager
	log         *zerolog.Logger
	now         func() time.Time
}

func NewSubscriptionUseCase(
	users repository.UserRepository,
	activations repository.ActivationRepository,
	requests repository.PaymentRequestRepository,
	tm repository.TransactionManager,
	logger *zerolog.Logger,
) *subscriptionUC {
	l := logger.With().Str("component", "SubscriptionUC").Logger()
	return &subscriptionUC{
		users:       users,
		activations: activations,
		requests:    requests,
		tm:          tm,
		log:         &l,
		now:         time.Now,
	}
}

func (uc *subscriptionUC) Activate(ctx context.Context, tx repository.Tx, r *model.PaymentRequest) (bool, error) {
	defer logging.TraceDuration(uc.log, "SubscriptionUC.Activate")()
	if r == nil || r.Status != model.StatusCompleted {
		return false, domain.ErrNotCompleted
	}

	now := uc.now().UTC()
	expires := now.Add(model.SubscriptionPeriod)
	inserted, err := uc.activations.Insert(ctx, tx, &model.Activation{
		ID:          uuid.NewString(),
		RequestID:   r.ID,
		UserID:      r.UserID,
		PlanID:      r.Plan.ID,
		ActivatedAt: now,
		ExpiresAt:   expires,
	})
	if err != nil {
		return false, err
	}
	if !inserted {
		metrics.IncActivation("duplicate")
		uc.log.Info().Str("request_id", r.ID).Msg("request already activated; skipping")
		return false, nil
	}

	sub := model.Subscription{
		PlanID:    r.Plan.ID,
		Status:    model.SubscriptionStatusActive,
		ExpiresAt: &expires,
		RequestID: r.ID,
		UpdatedAt: now,
	}
	if err := uc.users.UpdateSubscription(ctx, tx, r.UserID, sub); err != nil {
		return false, err
	}
	metrics.IncActivation("activated")
	uc.log.Info().
		Str("request_id", r.ID).
		Str("user_id", r.UserID).
		Str("plan_id", r.Plan.ID).
		Time("expires_at", expires).
		Msg("subscription activated")
	return true, nil
}

func (uc *subscriptionUC) ActivateByRequestID(ctx context.Context, requestID string) (bool, error) {
	defer logging.TraceDuration(uc.log, "SubscriptionUC.ActivateByRequestID")()
	var activated bool
	err := uc.tm.WithTx(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted}, func(ctx context.Context, tx repository.Tx) error {
		r, err := uc.requests.FindByID(ctx, tx, requestID)
		if err != nil {
			return err
		}
		activated, err = uc.Activate(ctx, tx, r)
		return err
	})
	return activated, err
}

func (uc *subscriptionUC) GetForUser(ctx context.Context, userID string) (*model.Subscription, error) {
	defer logging.TraceDuration(uc.log, "SubscriptionUC.GetForUser")()
	u, err := uc.users.FindByID(ctx, repository.NoTX, userID)
	if err != nil {
		return nil, err
	}
	sub := u.Subscription
	if sub.Status == "" {
		sub.Status = model.SubscriptionStatusNone
	}
	if sub.Status == model.SubscriptionStatusActive && !sub.ActiveAt(uc.now()) {
		sub.Status = model.SubscriptionStatusExpired
	}
	return &sub, nil
}
