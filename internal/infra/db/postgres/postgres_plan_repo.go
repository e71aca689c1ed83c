package postgres

import (
	"context"
	"encoding/json"

	"github.com/jackc/pgx/v4/pgxpool"

	"subscriber-payments/internal/domain/model"
	"subscriber-payments/internal/domain/ports/repository"
)

// Ensure interface compliance
var _ repository.SubscriptionPlanRepository = (*PostgresPlanRepo)(nil)

type PostgresPlanRepo struct {
	pool *pgxpool.Pool
}

func NewPlanRepo(pool *pgxpool.Pool) *PostgresPlanRepo {
	return &PostgresPlanRepo{pool: pool}
}

func (r *PostgresPlanRepo) Save(ctx context.Context, tx repository.Tx, plan *model.SubscriptionPlan) error {
	const q = `
INSERT INTO subscription_plans (id, name, price, currency, features, active, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7)
ON CONFLICT (id) DO UPDATE
  SET name     = EXCLUDED.name,
      price    = EXCLUDED.price,
      currency = EXCLUDED.currency,
      features = EXCLUDED.features,
      active   = EXCLUDED.active;`
	features := plan.Features
	if features == nil {
		features = []string{}
	}
	raw, err := json.Marshal(features)
	if err != nil {
		return err
	}
	_, err = execSQL(ctx, r.pool, tx, q,
		plan.ID, plan.Name, plan.Price, plan.Currency, string(raw), plan.Active, plan.CreatedAt)
	return err
}

func (r *PostgresPlanRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.SubscriptionPlan, error) {
	const q = `
SELECT id, name, price, currency, features, active, created_at
  FROM subscription_plans
 WHERE id = $1;`
	row, err := pickRow(ctx, r.pool, tx, q, id)
	if err != nil {
		return nil, err
	}
	return scanPlan(row)
}

func (r *PostgresPlanRepo) ListAll(ctx context.Context, tx repository.Tx) ([]*model.SubscriptionPlan, error) {
	const q = `
SELECT id, name, price, currency, features, active, created_at
  FROM subscription_plans
 ORDER BY price ASC, id ASC;`
	rows, err := queryRows(ctx, r.pool, tx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []*model.SubscriptionPlan
	for rows.Next() {
		p, err := scanPlan(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, mapError(err)
	}
	return out, nil
}

func scanPlan(row rowScanner) (*model.SubscriptionPlan, error) {
	var (
		p        model.SubscriptionPlan
		features []byte
	)
	if err := row.Scan(&p.ID, &p.Name, &p.Price, &p.Currency, &features, &p.Active, &p.CreatedAt); err != nil {
		return nil, scanErr(err)
	}
	if err := json.Unmarshal(features, &p.Features); err != nil {
		return nil, err
	}
	return &p, nil
}
