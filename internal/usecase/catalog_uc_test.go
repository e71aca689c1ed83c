//go:build !integration

package usecase_test

import (
	"context"
	"errors"
	"testing"

	"subscriber-payments/internal/domain"
	"subscriber-payments/internal/domain/model"
	"subscriber-payments/internal/domain/ports/repository"
	"subscriber-payments/internal/usecase"
)

func TestPlanUseCase(t *testing.T) {
	ctx := context.Background()
	repo := NewMockPlanRepo()
	uc := usecase.NewPlanUseCase(repo, "usd", newTestLogger())

	p, err := uc.Create(ctx, "basic", "Basic", 499, "", []string{"sd"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if p.Currency != "USD" {
		t.Fatalf("expected default currency USD, got %s", p.Currency)
	}
	if _, err := uc.Create(ctx, "", "x", 0, "", nil); !errors.Is(err, domain.ErrInvalidArgument) {
		t.Fatalf("expected invalid argument, got %v", err)
	}

	retired, _ := model.NewSubscriptionPlan("old", "Old", 100, "EUR", nil)
	retired.Active = false
	_ = repo.Save(ctx, nil, retired)

	active, _ := uc.List(ctx, true)
	all, _ := uc.List(ctx, false)
	if len(active) != 1 || len(all) != 2 {
		t.Fatalf("expected 1 active of 2, got %d of %d", len(active), len(all))
	}

	snap, err := uc.Snapshot(ctx, "basic")
	if err != nil || snap.Price != 499 || snap.Name != "Basic" {
		t.Fatalf("snapshot: %+v err=%v", snap, err)
	}
	for _, id := range []string{"old", "missing"} {
		var ve *domain.ValidationError
		if _, err := uc.Snapshot(ctx, id); !errors.As(err, &ve) {
			t.Errorf("%s: expected ValidationError, got %v", id, err)
		}
	}
}

func TestUserUseCase_EnsureUser(t *testing.T) {
	ctx := context.Background()
	repo := NewMockUserRepo()
	uc := usecase.NewUserUseCase(repo, NewMockTxManager(), newTestLogger())

	u, err := uc.EnsureUser(ctx, "user-1", "a@example.com")
	if err != nil || u.Email != "a@example.com" {
		t.Fatalf("first sight: %+v err=%v", u, err)
	}
	u, err = uc.EnsureUser(ctx, "user-1", "b@example.com")
	if err != nil || u.Email != "b@example.com" {
		t.Fatalf("email refresh: %+v err=%v", u, err)
	}
	stored, _ := uc.Get(ctx, "user-1")
	if stored.Email != "b@example.com" {
		t.Fatalf("email not persisted: %s", stored.Email)
	}

	saveErr := errors.New("disk full")
	repo.SaveFunc = func(context.Context, repository.Tx, *model.User) error { return saveErr }
	if _, err := uc.EnsureUser(ctx, "user-2", ""); !errors.Is(err, saveErr) {
		t.Fatalf("expected save error, got %v", err)
	}
}
