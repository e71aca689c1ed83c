//go:build integration

package postgres

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v4"

	"subscriber-payments/internal/domain"
	"subscriber-payments/internal/domain/model"
	"subscriber-payments/internal/domain/ports/repository"
)

func newStoredRequest(t *testing.T, repo *paymentRequestRepo, id, userID string, at time.Time) *model.PaymentRequest {
	t.Helper()
	code, err := model.GenerateReferenceCode()
	if err != nil {
		t.Fatal(err)
	}
	plan := model.PlanSnapshot{ID: "premium", Name: "Premium", Price: 5900, Currency: "EUR", Features: []string{"hd"}}
	r, err := model.NewPaymentRequest(id, code, userID, "u@example.com", plan, model.PaymentTypeBankTransfer, nil, at)
	if err != nil {
		t.Fatal(err)
	}
	if err := repo.Create(context.Background(), repository.NoTX, r); err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	return r
}

func TestPaymentRequestRepo_Integration(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode.")
	}
	ctx := context.Background()
	repo := NewPaymentRequestRepo(testPool)
	tm := NewTxManager(testPool)
	cleanup(t)

	now := time.Now().UTC().Truncate(time.Microsecond)
	r := newStoredRequest(t, repo, "req-1", "user-1", now)

	t.Run("should read back the document by id and code", func(t *testing.T) {
		got, err := repo.FindByID(ctx, repository.NoTX, r.ID)
		if err != nil {
			t.Fatalf("FindByID: %v", err)
		}
		if got.Plan.Name != "Premium" || got.Plan.Features[0] != "hd" || got.Status != model.StatusPending {
			t.Errorf("unexpected document %+v", got)
		}
		if len(got.Notifications.StatusUpdates) != 1 || got.Version != 1 {
			t.Errorf("unexpected audit/version: %+v v%d", got.Notifications, got.Version)
		}
		byCode, err := repo.FindByReferenceCode(ctx, repository.NoTX, r.ReferenceCode)
		if err != nil || byCode.ID != r.ID {
			t.Fatalf("FindByReferenceCode: %v", err)
		}
	})

	t.Run("should map duplicate reference codes to ErrAlreadyExists", func(t *testing.T) {
		dup := r.Clone()
		dup.ID = "req-dup"
		if err := repo.Create(ctx, repository.NoTX, dup); !errors.Is(err, domain.ErrAlreadyExists) {
			t.Fatalf("expected ErrAlreadyExists, got %v", err)
		}
	})

	t.Run("should report not found", func(t *testing.T) {
		if _, err := repo.FindByID(ctx, repository.NoTX, "missing"); !errors.Is(err, domain.ErrNotFound) {
			t.Fatalf("expected ErrNotFound, got %v", err)
		}
	})

	t.Run("should update only at the expected version", func(t *testing.T) {
		err := tm.WithTx(ctx, pgx.TxOptions{}, func(ctx context.Context, tx repository.Tx) error {
			cur, err := repo.FindByID(ctx, tx, r.ID)
			if err != nil {
				return err
			}
			next := cur.Clone()
			patch := &model.PaymentDetails{BankInfo: &model.BankInfo{IBAN: "FR76", BIC: "ABCDEFGH", Beneficiary: "Acme"}}
			if err := next.Apply(model.Change{To: model.StatusWaitingPayment, DetailsPatch: patch}, time.Now()); err != nil {
				return err
			}
			ok, err := repo.UpdateIfVersion(ctx, tx, next, cur.Version)
			if err != nil {
				return err
			}
			if !ok {
				t.Error("expected update at current version to apply")
			}
			return nil
		})
		if err != nil {
			t.Fatal(err)
		}

		stale := r.Clone()
		stale.Status = model.StatusRejected
		stale.Version = 2
		ok, err := repo.UpdateIfVersion(ctx, repository.NoTX, stale, 1)
		if err != nil || ok {
			t.Fatalf("stale update should not apply: ok=%v err=%v", ok, err)
		}

		got, _ := repo.FindByID(ctx, repository.NoTX, r.ID)
		if got.Status != model.StatusWaitingPayment || got.PaymentDetails.BankInfo.IBAN != "FR76" || got.Version != 2 {
			t.Fatalf("unexpected stored state %+v", got)
		}
	})

	t.Run("should list a user's requests newest first with type filter", func(t *testing.T) {
		newStoredRequest(t, repo, "req-2", "user-1", now.Add(time.Minute))
		newStoredRequest(t, repo, "req-3", "user-2", now)

		list, err := repo.ListByUser(ctx, repository.NoTX, "user-1", repository.ListFilter{Limit: 10})
		if err != nil {
			t.Fatal(err)
		}
		if len(list) != 2 || list[0].ID != "req-2" {
			t.Fatalf("unexpected list %v", list)
		}
		pp := model.PaymentTypePayPal
		list, _ = repo.ListByUser(ctx, repository.NoTX, "user-1", repository.ListFilter{Type: &pp})
		if len(list) != 0 {
			t.Fatalf("expected no paypal requests, got %d", len(list))
		}
	})

	t.Run("should list stale open requests", func(t *testing.T) {
		old := newStoredRequest(t, repo, "req-old", "user-3", now.Add(-72*time.Hour))
		stale, err := repo.ListStale(ctx, repository.NoTX,
			[]model.RequestStatus{model.StatusPending, model.StatusWaitingPayment}, now.Add(-24*time.Hour), 10)
		if err != nil {
			t.Fatal(err)
		}
		if len(stale) != 1 || stale[0].ID != old.ID {
			t.Fatalf("unexpected stale set %v", stale)
		}
	})
}

func TestActivationAndUserRepo_Integration(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode.")
	}
	ctx := context.Background()
	requests := NewPaymentRequestRepo(testPool)
	activations := NewActivationRepo(testPool)
	users := NewPostgresUserRepo(testPool)
	cleanup(t)

	r := newStoredRequest(t, requests, "req-1", "user-1", time.Now().UTC())
	now := time.Now().UTC().Truncate(time.Microsecond)
	a := &model.Activation{ID: "act-1", RequestID: r.ID, UserID: "user-1", PlanID: "premium", ActivatedAt: now, ExpiresAt: now.Add(model.SubscriptionPeriod)}

	ok, err := activations.Insert(ctx, repository.NoTX, a)
	if err != nil || !ok {
		t.Fatalf("first insert: ok=%v err=%v", ok, err)
	}
	a.ID = "act-2"
	ok, err = activations.Insert(ctx, repository.NoTX, a)
	if err != nil || ok {
		t.Fatalf("second insert must be a no-op: ok=%v err=%v", ok, err)
	}

	expires := a.ExpiresAt
	sub := model.Subscription{PlanID: "premium", Status: model.SubscriptionStatusActive, ExpiresAt: &expires, RequestID: r.ID, UpdatedAt: now}
	if err := users.UpdateSubscription(ctx, repository.NoTX, "user-1", sub); err != nil {
		t.Fatalf("UpdateSubscription on missing user: %v", err)
	}
	u, err := users.FindByID(ctx, repository.NoTX, "user-1")
	if err != nil {
		t.Fatal(err)
	}
	if u.Subscription.PlanID != "premium" || u.Subscription.Status != model.SubscriptionStatusActive || !u.Subscription.ExpiresAt.Equal(expires) {
		t.Fatalf("unexpected subscription %+v", u.Subscription)
	}

	u.Email = "new@example.com"
	if err := users.Save(ctx, repository.NoTX, u); err != nil {
		t.Fatal(err)
	}
	u, _ = users.FindByID(ctx, repository.NoTX, "user-1")
	if u.Email != "new@example.com" || u.Subscription.PlanID != "premium" {
		t.Fatalf("Save must keep the subscription columns: %+v", u)
	}
}

func TestPlanRepo_Integration(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode.")
	}
	ctx := context.Background()
	repo := NewPlanRepo(testPool)
	cleanup(t)

	plan, err := model.NewSubscriptionPlan("pro", "Pro Plan", 999, "eur", []string{"hd", "offline"})
	if err != nil {
		t.Fatal(err)
	}
	if err := repo.Save(ctx, repository.NoTX, plan); err != nil {
		t.Fatalf("Save: %v", err)
	}
	plan.Price = 1299
	plan.Active = false
	if err := repo.Save(ctx, repository.NoTX, plan); err != nil {
		t.Fatalf("Save update: %v", err)
	}

	got, err := repo.FindByID(ctx, repository.NoTX, "pro")
	if err != nil {
		t.Fatal(err)
	}
	if got.Price != 1299 || got.Active || got.Currency != "EUR" || len(got.Features) != 2 {
		t.Fatalf("unexpected plan %+v", got)
	}
	all, err := repo.ListAll(ctx, repository.NoTX)
	if err != nil || len(all) != 1 {
		t.Fatalf("ListAll: %v (%d)", err, len(all))
	}
}
