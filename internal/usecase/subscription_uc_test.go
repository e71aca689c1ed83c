//go:build !integration

package usecase_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"subscriber-payments/internal/domain"
	"subscriber-payments/internal/domain/model"
	"subscriber-payments/internal/usecase"
)

func completedRequest(t *testing.T, id string) *model.PaymentRequest {
	t.Helper()
	code, _ := model.GenerateReferenceCode()
	r, err := model.NewPaymentRequest(id, code, "user-1", "", testPlan(), model.PaymentTypeCoupon,
		&model.PaymentDetails{Coupon: &model.CouponInfo{Code: "FREE"}}, time.Now())
	if err != nil {
		t.Fatal(err)
	}
	for _, to := range []model.RequestStatus{model.StatusWaitingPayment, model.StatusValidating, model.StatusCompleted} {
		if err := r.Apply(model.Change{To: to}, time.Now()); err != nil {
			t.Fatal(err)
		}
	}
	return r
}

func TestSubscriptionUseCase_Activate(t *testing.T) {
	ctx := context.Background()

	t.Run("activates once per request", func(t *testing.T) {
		users := NewMockUserRepo()
		activations := NewMockActivationRepo()
		uc := usecase.NewSubscriptionUseCase(users, activations, NewMockPaymentRequestRepo(), NewMockTxManager(), newTestLogger())
		r := completedRequest(t, "req-1")

		ok, err := uc.Activate(ctx, nil, r)
		if err != nil || !ok {
			t.Fatalf("first activation: ok=%v err=%v", ok, err)
		}
		first, _ := users.FindByID(ctx, nil, "user-1")
		firstExpiry := *first.Subscription.ExpiresAt

		ok, err = uc.Activate(ctx, nil, r)
		if err != nil {
			t.Fatalf("second activation: %v", err)
		}
		if ok {
			t.Fatal("second activation must report false")
		}
		second, _ := users.FindByID(ctx, nil, "user-1")
		if !second.Subscription.ExpiresAt.Equal(firstExpiry) {
			t.Fatalf("expiry extended twice: %v -> %v", firstExpiry, *second.Subscription.ExpiresAt)
		}
		if activations.count() != 1 {
			t.Fatalf("expected one activation row, got %d", activations.count())
		}
	})

	t.Run("sets plan, status and a thirty day expiry", func(t *testing.T) {
		users := NewMockUserRepo()
		uc := usecase.NewSubscriptionUseCase(users, NewMockActivationRepo(), NewMockPaymentRequestRepo(), NewMockTxManager(), newTestLogger())
		before := time.Now()
		if _, err := uc.Activate(ctx, nil, completedRequest(t, "req-1")); err != nil {
			t.Fatal(err)
		}
		u, _ := users.FindByID(ctx, nil, "user-1")
		s := u.Subscription
		if s.PlanID != "plan-pro" || s.Status != model.SubscriptionStatusActive || s.RequestID != "req-1" {
			t.Fatalf("unexpected subscription %+v", s)
		}
		min := before.Add(model.SubscriptionPeriod - time.Second)
		if s.ExpiresAt == nil || s.ExpiresAt.Before(min) {
			t.Fatalf("expiry too early: %v", s.ExpiresAt)
		}
	})

	t.Run("refuses requests that are not completed", func(t *testing.T) {
		uc := usecase.NewSubscriptionUseCase(NewMockUserRepo(), NewMockActivationRepo(), NewMockPaymentRequestRepo(), NewMockTxManager(), newTestLogger())
		code, _ := model.GenerateReferenceCode()
		r, _ := model.NewPaymentRequest("req-2", code, "user-1", "", testPlan(), model.PaymentTypePayPal, nil, time.Now())
		if _, err := uc.Activate(ctx, nil, r); !errors.Is(err, domain.ErrNotCompleted) {
			t.Fatalf("expected ErrNotCompleted, got %v", err)
		}
	})
}

func TestSubscriptionUseCase_ActivateByRequestID(t *testing.T) {
	ctx := context.Background()
	requests := NewMockPaymentRequestRepo()
	requests.put(completedRequest(t, "req-1"))
	uc := usecase.NewSubscriptionUseCase(NewMockUserRepo(), NewMockActivationRepo(), requests, NewMockTxManager(), newTestLogger())

	ok, err := uc.ActivateByRequestID(ctx, "req-1")
	if err != nil || !ok {
		t.Fatalf("ok=%v err=%v", ok, err)
	}
	ok, err = uc.ActivateByRequestID(ctx, "req-1")
	if err != nil || ok {
		t.Fatalf("replay should be a no-op: ok=%v err=%v", ok, err)
	}
	if _, err := uc.ActivateByRequestID(ctx, "missing"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestSubscriptionUseCase_GetForUser(t *testing.T) {
	ctx := context.Background()
	users := NewMockUserRepo()
	uc := usecase.NewSubscriptionUseCase(users, NewMockActivationRepo(), NewMockPaymentRequestRepo(), NewMockTxManager(), newTestLogger())

	_ = users.Save(ctx, nil, &model.User{ID: "fresh"})
	s, err := uc.GetForUser(ctx, "fresh")
	if err != nil || s.Status != model.SubscriptionStatusNone {
		t.Fatalf("expected none, got %+v err=%v", s, err)
	}

	past := time.Now().Add(-time.Hour)
	_ = users.UpdateSubscription(ctx, nil, "lapsed", model.Subscription{PlanID: "p", Status: model.SubscriptionStatusActive, ExpiresAt: &past})
	s, _ = uc.GetForUser(ctx, "lapsed")
	if s.Status != model.SubscriptionStatusExpired {
		t.Fatalf("expected expired, got %s", s.Status)
	}
}
