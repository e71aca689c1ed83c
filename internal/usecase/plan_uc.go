package usecase

import (
	"context"
	"errors"

	"github.com/rs/zerolog"

	"subscriber-payments/internal/domain"
	"subscriber-payments/internal/domain/model"
	"subscriber-payments/internal/domain/ports/repository"
	"subscriber-payments/internal/infra/logging"
)

// Compile-time check
var _ PlanUseCase = (*planUC)(nil)

// PlanUseCase manages the plan catalog.
type PlanUseCase interface {
	Create(ctx context.Context, id, name string, price int64, currency string, features []string) (*model.SubscriptionPlan, error)
	Get(ctx context.Context, id string) (*model.SubscriptionPlan, error)
	List(ctx context.Context, activeOnly bool) ([]*model.SubscriptionPlan, error)
	// Snapshot resolves an active plan into the copy stored on a payment request.
	Snapshot(ctx context.Context, id string) (model.PlanSnapshot, error)
}

type planUC struct {
	repo            repository.SubscriptionPlanRepository
	defaultCurrency string
	log             *zerolog.Logger
}

func NewPlanUseCase(repo repository.SubscriptionPlanRepository, defaultCurrency string, logger *zerolog.Logger) *planUC {
	if defaultCurrency == "" {
		defaultCurrency = model.DefaultCurrency
	}
	return &planUC{repo: repo, defaultCurrency: defaultCurrency, log: logger}
}

func (uc *planUC) Create(ctx context.Context, id, name string, price int64, currency string, features []string) (*model.SubscriptionPlan, error) {
	defer logging.TraceDuration(uc.log, "PlanUC.Create")()
	if currency == "" {
		currency = uc.defaultCurrency
	}
	p, err := model.NewSubscriptionPlan(id, name, price, currency, features)
	if err != nil {
		return nil, err
	}
	if err := uc.repo.Save(ctx, repository.NoTX, p); err != nil {
		return nil, err
	}
	return p, nil
}

func (uc *planUC) Get(ctx context.Context, id string) (*model.SubscriptionPlan, error) {
	defer logging.TraceDuration(uc.log, "PlanUC.Get")()
	return uc.repo.FindByID(ctx, repository.NoTX, id)
}

func (uc *planUC) List(ctx context.Context, activeOnly bool) ([]*model.SubscriptionPlan, error) {
	defer logging.TraceDuration(uc.log, "PlanUC.List")()
	all, err := uc.repo.ListAll(ctx, repository.NoTX)
	if err != nil {
		return nil, err
	}
	if !activeOnly {
		return all, nil
	}
	out := make([]*model.SubscriptionPlan, 0, len(all))
	for _, p := range all {
		if p.Active {
			out = append(out, p)
		}
	}
	return out, nil
}

func (uc *planUC) Snapshot(ctx context.Context, id string) (model.PlanSnapshot, error) {
	p, err := uc.repo.FindByID(ctx, repository.NoTX, id)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return model.PlanSnapshot{}, domain.NewValidationError("plan_id")
		}
		return model.PlanSnapshot{}, err
	}
	if !p.Active {
		return model.PlanSnapshot{}, domain.NewValidationError("plan_id")
	}
	return p.Snapshot(), nil
}
