package postgres

import (
	"context"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"

	"subscriber-payments/internal/domain/model"
	"subscriber-payments/internal/domain/ports/repository"
)

var _ repository.UserRepository = (*PostgresUserRepo)(nil)

type PostgresUserRepo struct {
	pool *pgxpool.Pool
}

func NewPostgresUserRepo(pool *pgxpool.Pool) *PostgresUserRepo {
	return &PostgresUserRepo{pool: pool}
}

// Save upserts the profile columns only; subscription columns belong to UpdateSubscription.
func (r *PostgresUserRepo) Save(ctx context.Context, tx repository.Tx, u *model.User) error {
	const q = `
INSERT INTO users (id, email, display_name, registered_at)
VALUES ($1,$2,$3,$4)
ON CONFLICT (id) DO UPDATE SET email=$2, display_name=$3;`
	_, err := execSQL(ctx, r.pool, tx, q, u.ID, u.Email, u.DisplayName, u.RegisteredAt)
	return err
}

func (r *PostgresUserRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.User, error) {
	q := forUpdate(`
SELECT id, email, display_name, registered_at,
       subscription_plan_id, subscription_status, subscription_expires, subscription_request, subscription_updated
  FROM users WHERE id=$1`, tx)
	row, err := pickRow(ctx, r.pool, tx, q, id)
	if err != nil {
		return nil, err
	}
	var (
		u       model.User
		updated *time.Time
	)
	if err := row.Scan(&u.ID, &u.Email, &u.DisplayName, &u.RegisteredAt,
		&u.Subscription.PlanID, &u.Subscription.Status, &u.Subscription.ExpiresAt,
		&u.Subscription.RequestID, &updated); err != nil {
		return nil, scanErr(err)
	}
	if updated != nil {
		u.Subscription.UpdatedAt = *updated
	}
	return &u, nil
}

// UpdateSubscription creates the user row when activation runs before the profile was synced.
func (r *PostgresUserRepo) UpdateSubscription(ctx context.Context, tx repository.Tx, userID string, s model.Subscription) error {
	const q = `
INSERT INTO users (id, subscription_plan_id, subscription_status, subscription_expires, subscription_request, subscription_updated)
VALUES ($1,$2,$3,$4,$5,$6)
ON CONFLICT (id) DO UPDATE SET
  subscription_plan_id=$2, subscription_status=$3, subscription_expires=$4,
  subscription_request=$5, subscription_updated=$6;`
	_, err := execSQL(ctx, r.pool, tx, q, userID, s.PlanID, s.Status, s.ExpiresAt, s.RequestID, s.UpdatedAt)
	return err
}
