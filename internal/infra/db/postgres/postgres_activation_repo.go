package postgres

import (
	"context"

	"github.com/jackc/pgx/v4/pgxpool"

	"subscriber-payments/internal/domain/model"
	"subscriber-payments/internal/domain/ports/repository"
)

var _ repository.ActivationRepository = (*activationRepo)(nil)

type activationRepo struct{ pool *pgxpool.Pool }

func NewActivationRepo(pool *pgxpool.Pool) *activationRepo {
	return &activationRepo{pool: pool}
}

func (r *activationRepo) Insert(ctx context.Context, tx repository.Tx, a *model.Activation) (bool, error) {
	const q = `
INSERT INTO subscription_activations (request_id, id, user_id, plan_id, activated_at, expires_at)
VALUES ($1,$2,$3,$4,$5,$6)
ON CONFLICT (request_id) DO NOTHING;`
	tag, err := execSQL(ctx, r.pool, tx, q, a.RequestID, a.ID, a.UserID, a.PlanID, a.ActivatedAt, a.ExpiresAt)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

func (r *activationRepo) FindByRequestID(ctx context.Context, tx repository.Tx, requestID string) (*model.Activation, error) {
	const q = `
SELECT id, request_id, user_id, plan_id, activated_at, expires_at
  FROM subscription_activations WHERE request_id=$1;`
	row, err := pickRow(ctx, r.pool, tx, q, requestID)
	if err != nil {
		return nil, err
	}
	var a model.Activation
	if err := row.Scan(&a.ID, &a.RequestID, &a.UserID, &a.PlanID, &a.ActivatedAt, &a.ExpiresAt); err != nil {
		return nil, scanErr(err)
	}
	return &a, nil
}
