// File: internal/usecase/payment_request_uc.go
package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/jackc/pgx/v4"
	"github.com/oklog/ulid/v2"
	"github.com/rs/zerolog"

	"subscriber-payments/internal/domain"
	"subscriber-payments/internal/domain/model"
	"subscriber-payments/internal/domain/ports/adapter"
	"subscriber-payments/internal/domain/ports/repository"
	"subscriber-payments/internal/infra/logging"
	"subscriber-payments/internal/infra/metrics"
)

// Compile-time check
var _ PaymentRequestUseCase = (*paymentRequestUC)(nil)

// maxCodeAttempts bounds reference code re-rolls after a unique index collision.
const maxCodeAttempts = 5

type PaymentRequestUseCase interface {
	// Create records a new pending request for plan, paid through a manual channel of type t.
	Create(ctx context.Context, userID, userEmail string, plan model.PlanSnapshot, t model.PaymentType, seed *model.PaymentDetails) (*model.PaymentRequest, error)
	GetByID(ctx context.Context, id string) (*model.PaymentRequest, error)
	// GetByReferenceCode is case-insensitive.
	GetByReferenceCode(ctx context.Context, code string) (*model.PaymentRequest, error)
	ListByUser(ctx context.Context, userID string, f repository.ListFilter) ([]*model.PaymentRequest, error)
	// Transition moves a request along the status machine. Illegal edges and lost races
	// fail with domain.ErrInvalidTransition and leave the request unchanged.
	Transition(ctx context.Context, id string, c model.Change) (*model.PaymentRequest, error)
	// Claim is the owner saying the payment was sent (waiting_payment -> validating).
	Claim(ctx context.Context, userID, id string, note *string) (*model.PaymentRequest, error)
	// Subscribe calls fn with the current snapshot and then with every later one, in order.
	Subscribe(ctx context.Context, id string, fn func(*model.PaymentRequest)) (unsubscribe func(), err error)
	// ExpireStale expires pending/waiting_payment requests idle since before olderThan.
	ExpireStale(ctx context.Context, olderThan time.Time, limit int) (int, error)
}

// Activator grants the subscription bought by a completed request inside tx.
type Activator interface {
	Activate(ctx context.Context, tx repository.Tx, r *model.PaymentRequest) (bool, error)
}

type paymentRequestUC struct {
	requests  repository.PaymentRequestRepository
	activator Activator
	feed      adapter.ChangeFeed
	notifier  adapter.AdminNotifier
	tm        repository.TransactionManager
	log       *zerolog.Logger
	dev       bool
}

func NewPaymentRequestUseCase(
	requests repository.PaymentRequestRepository,
	activator Activator,
	feed adapter.ChangeFeed,
	notifier adapter.AdminNotifier,
	tm repository.TransactionManager,
	logger *zerolog.Logger,
	dev bool,
) *paymentRequestUC {
	l := logger.With().Str("component", "PaymentRequestUC").Logger()
	return &paymentRequestUC{
		requests:  requests,
		activator: activator,
		feed:      feed,
		notifier:  notifier,
		tm:        tm,
		log:       &l,
		dev:       dev,
	}
}

func (u *paymentRequestUC) Create(ctx context.Context, userID, userEmail string, plan model.PlanSnapshot, t model.PaymentType, seed *model.PaymentDetails) (*model.PaymentRequest, error) {
	defer logging.TraceDuration(u.log, "PaymentRequestUC.Create")()

	var created *model.PaymentRequest
	for attempt := 1; attempt <= maxCodeAttempts && created == nil; attempt++ {
		code, err := model.GenerateReferenceCode()
		if err != nil {
			return nil, fmt.Errorf("generate reference code: %w", err)
		}
		r, err := model.NewPaymentRequest(ulid.Make().String(), code, userID, userEmail, plan, t, seed, time.Now().UTC())
		if err != nil {
			return nil, err
		}
		err = u.requests.Create(ctx, repository.NoTX, r)
		switch {
		case err == nil:
			created = r
		case errors.Is(err, domain.ErrAlreadyExists):
			u.log.Warn().Int("attempt", attempt).Msg("reference code collision, re-rolling")
		default:
			return nil, err
		}
	}
	if created == nil {
		return nil, fmt.Errorf("allocate reference code: %w", domain.ErrAlreadyExists)
	}

	metrics.IncRequestCreated(string(created.Type))
	logging.With(logging.WithRequestID(ctx, created.ID), u.log).Info().
		Str("reference_code", created.ReferenceCode).
		Str("type", string(created.Type)).
		Str("plan_id", created.Plan.ID).
		Str("email", logging.Redact(created.UserEmail, u.dev)).
		Msg("payment request created")

	u.publish(ctx, created)
	if u.notifier != nil {
		if err := u.notifier.NotifyNewRequest(ctx, created.Clone()); err != nil {
			u.log.Warn().Err(err).Str("id", created.ID).Msg("admin notification failed")
		}
	}
	return created.Clone(), nil
}

func (u *paymentRequestUC) GetByID(ctx context.Context, id string) (*model.PaymentRequest, error) {
	defer logging.TraceDuration(u.log, "PaymentRequestUC.GetByID")()
	if strings.TrimSpace(id) == "" {
		return nil, domain.ErrNotFound
	}
	return u.requests.FindByID(ctx, repository.NoTX, id)
}

func (u *paymentRequestUC) GetByReferenceCode(ctx context.Context, code string) (*model.PaymentRequest, error) {
	defer logging.TraceDuration(u.log, "PaymentRequestUC.GetByReferenceCode")()
	code = model.NormalizeReferenceCode(code)
	if !model.IsReferenceCode(code) {
		return nil, domain.ErrNotFound
	}
	return u.requests.FindByReferenceCode(ctx, repository.NoTX, code)
}

func (u *paymentRequestUC) ListByUser(ctx context.Context, userID string, f repository.ListFilter) ([]*model.PaymentRequest, error) {
	defer logging.TraceDuration(u.log, "PaymentRequestUC.ListByUser")()
	if strings.TrimSpace(userID) == "" {
		return nil, domain.NewValidationError("userId")
	}
	if f.Type != nil && !f.Type.Valid() {
		return nil, domain.NewValidationError("type")
	}
	if f.Limit <= 0 || f.Limit > 200 {
		f.Limit = 50
	}
	if f.Offset < 0 {
		f.Offset = 0
	}
	return u.requests.ListByUser(ctx, repository.NoTX, userID, f)
}

func (u *paymentRequestUC) Transition(ctx context.Context, id string, c model.Change) (*model.PaymentRequest, error) {
	defer logging.TraceDuration(u.log, "PaymentRequestUC.Transition")()

	var (
		updated   *model.PaymentRequest
		from      model.RequestStatus
		activated bool
	)
	err := u.tm.WithTx(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted}, func(ctx context.Context, tx repository.Tx) error {
		cur, err := u.requests.FindByID(ctx, tx, id)
		if err != nil {
			return err
		}
		from = cur.Status

		next := cur.Clone()
		if err := next.Apply(c, time.Now().UTC()); err != nil {
			return err
		}
		ok, err := u.requests.UpdateIfVersion(ctx, tx, next, cur.Version)
		if err != nil {
			return err
		}
		if !ok {
			return &domain.TransitionError{From: string(from), To: string(c.To), Reason: domain.ReasonConflict}
		}
		if next.Status == model.StatusCompleted {
			if activated, err = u.activator.Activate(ctx, tx, next); err != nil {
				return fmt.Errorf("activate subscription: %w", err)
			}
		}
		updated = next
		return nil
	})

	l := logging.With(logging.WithRequestID(ctx, id), u.log)
	if err != nil {
		var te *domain.TransitionError
		if errors.As(err, &te) {
			metrics.IncTransitionRejected(rejectReason(te.Reason))
			l.Info().Str("from", te.From).Str("to", te.To).Str("reason", te.Reason).Msg("transition refused")
		}
		return nil, err
	}

	metrics.IncTransition(string(from), string(updated.Status))
	if updated.Status == model.StatusCompleted {
		metrics.AddCompletedAmount(updated.Currency, updated.Amount)
	}
	l.Info().
		Str("from", string(from)).
		Str("to", string(updated.Status)).
		Int64("version", updated.Version).
		Bool("activated", activated).
		Msg("payment request transitioned")

	u.publish(ctx, updated)
	return updated.Clone(), nil
}

func rejectReason(reason string) string {
	switch reason {
	case domain.ReasonConflict:
		return "conflict"
	case domain.ReasonIncompleteDetails:
		return "incomplete_details"
	default:
		return "illegal_edge"
	}
}

func (u *paymentRequestUC) Claim(ctx context.Context, userID, id string, note *string) (*model.PaymentRequest, error) {
	defer logging.TraceDuration(u.log, "PaymentRequestUC.Claim")()
	cur, err := u.requests.FindByID(ctx, repository.NoTX, id)
	if err != nil {
		return nil, err
	}
	if cur.UserID != userID {
		return nil, domain.ErrForbidden
	}
	updated, err := u.Transition(ctx, id, model.Change{To: model.StatusValidating, Note: note, FromClient: true})
	if err != nil {
		return nil, err
	}
	if u.notifier != nil {
		if err := u.notifier.NotifyPaymentClaimed(ctx, updated.Clone()); err != nil {
			u.log.Warn().Err(err).Str("id", id).Msg("admin notification failed")
		}
	}
	return updated, nil
}

func (u *paymentRequestUC) Subscribe(ctx context.Context, id string, fn func(*model.PaymentRequest)) (func(), error) {
	var (
		mu   sync.Mutex
		last int64
	)
	deliver := func(r *model.PaymentRequest) {
		mu.Lock()
		defer mu.Unlock()
		if r == nil || r.Version <= last {
			return
		}
		last = r.Version
		fn(r.Clone())
	}

	// register before reading so no commit can fall between the snapshot and the feed
	unsubscribe := u.feed.Subscribe(id, deliver)
	cur, err := u.requests.FindByID(ctx, repository.NoTX, id)
	if err != nil {
		unsubscribe()
		return nil, err
	}
	deliver(cur)
	return unsubscribe, nil
}

func (u *paymentRequestUC) ExpireStale(ctx context.Context, olderThan time.Time, limit int) (int, error) {
	defer logging.TraceDuration(u.log, "PaymentRequestUC.ExpireStale")()
	stale, err := u.requests.ListStale(ctx, repository.NoTX,
		[]model.RequestStatus{model.StatusPending, model.StatusWaitingPayment}, olderThan, limit)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return 0, nil
		}
		return 0, err
	}

	note := "No payment received before the deadline."
	n := 0
	for _, r := range stale {
		if ctx.Err() != nil {
			return n, ctx.Err()
		}
		_, err := u.Transition(logging.WithActor(ctx, "expiry-sweeper"), r.ID, model.Change{To: model.StatusExpired, Note: &note})
		if errors.Is(err, domain.ErrInvalidTransition) {
			// moved by an admin since it was listed
			continue
		}
		if err != nil {
			return n, err
		}
		n++
	}
	return n, nil
}

func (u *paymentRequestUC) publish(ctx context.Context, r *model.PaymentRequest) {
	if u.feed == nil {
		return
	}
	if err := u.feed.Publish(ctx, r.Clone()); err != nil {
		// subscribers re-read on reconnect; the commit itself stands
		u.log.Warn().Err(err).Str("id", r.ID).Msg("publish to change feed failed")
	}
}
