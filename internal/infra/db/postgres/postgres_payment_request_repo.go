package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"

	"subscriber-payments/internal/domain/model"
	"subscriber-payments/internal/domain/ports/repository"
)

var _ repository.PaymentRequestRepository = (*paymentRequestRepo)(nil)

type paymentRequestRepo struct{ pool *pgxpool.Pool }

func NewPaymentRequestRepo(pool *pgxpool.Pool) *paymentRequestRepo {
	return &paymentRequestRepo{pool: pool}
}

const paymentRequestColumns = `id, reference_code, user_id, user_email, plan, type, amount, currency, status,
  payment_details, admin_note, status_updates, created_at, updated_at, version`

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanPaymentRequest(row rowScanner) (*model.PaymentRequest, error) {
	var (
		r                      model.PaymentRequest
		plan, details, updates []byte
	)
	if err := row.Scan(&r.ID, &r.ReferenceCode, &r.UserID, &r.UserEmail, &plan, &r.Type, &r.Amount, &r.Currency,
		&r.Status, &details, &r.AdminNote, &updates, &r.CreatedAt, &r.UpdatedAt, &r.Version); err != nil {
		return nil, scanErr(err)
	}
	if err := json.Unmarshal(plan, &r.Plan); err != nil {
		return nil, fmt.Errorf("decode plan of %s: %w", r.ID, err)
	}
	if err := json.Unmarshal(details, &r.PaymentDetails); err != nil {
		return nil, fmt.Errorf("decode payment_details of %s: %w", r.ID, err)
	}
	if err := json.Unmarshal(updates, &r.Notifications.StatusUpdates); err != nil {
		return nil, fmt.Errorf("decode status_updates of %s: %w", r.ID, err)
	}
	return &r, nil
}

// encodeJSONB renders the three document columns.
func encodeJSONB(r *model.PaymentRequest) (plan, details, updates string, err error) {
	p, err := json.Marshal(r.Plan)
	if err != nil {
		return "", "", "", err
	}
	d, err := json.Marshal(r.PaymentDetails)
	if err != nil {
		return "", "", "", err
	}
	su := r.Notifications.StatusUpdates
	if su == nil {
		su = []model.StatusUpdate{}
	}
	u, err := json.Marshal(su)
	if err != nil {
		return "", "", "", err
	}
	return string(p), string(d), string(u), nil
}

func (r *paymentRequestRepo) Create(ctx context.Context, tx repository.Tx, pr *model.PaymentRequest) error {
	const q = `
INSERT INTO payment_requests (` + paymentRequestColumns + `)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15);`
	plan, details, updates, err := encodeJSONB(pr)
	if err != nil {
		return fmt.Errorf("encode payment request: %w", err)
	}
	_, err = execSQL(ctx, r.pool, tx, q,
		pr.ID, pr.ReferenceCode, pr.UserID, pr.UserEmail, plan, pr.Type, pr.Amount, pr.Currency, pr.Status,
		details, pr.AdminNote, updates, pr.CreatedAt, pr.UpdatedAt, pr.Version)
	return err
}

func (r *paymentRequestRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.PaymentRequest, error) {
	q := forUpdate(`SELECT `+paymentRequestColumns+` FROM payment_requests WHERE id=$1`, tx)
	row, err := pickRow(ctx, r.pool, tx, q, id)
	if err != nil {
		return nil, err
	}
	return scanPaymentRequest(row)
}

func (r *paymentRequestRepo) FindByReferenceCode(ctx context.Context, tx repository.Tx, code string) (*model.PaymentRequest, error) {
	q := forUpdate(`SELECT `+paymentRequestColumns+` FROM payment_requests WHERE reference_code=$1`, tx)
	row, err := pickRow(ctx, r.pool, tx, q, code)
	if err != nil {
		return nil, err
	}
	return scanPaymentRequest(row)
}

func (r *paymentRequestRepo) ListByUser(ctx context.Context, tx repository.Tx, userID string, f repository.ListFilter) ([]*model.PaymentRequest, error) {
	var typ *string
	if f.Type != nil {
		s := string(*f.Type)
		typ = &s
	}
	limit := f.Limit
	if limit <= 0 {
		limit = 50
	}
	const q = `SELECT ` + paymentRequestColumns + ` FROM payment_requests
 WHERE user_id=$1 AND ($2::text IS NULL OR type=$2)
 ORDER BY created_at DESC, id DESC
 LIMIT $3 OFFSET $4;`
	rows, err := queryRows(ctx, r.pool, tx, q, userID, typ, limit, f.Offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectPaymentRequests(rows)
}

func (r *paymentRequestRepo) UpdateIfVersion(ctx context.Context, tx repository.Tx, pr *model.PaymentRequest, expected int64) (bool, error) {
	const q = `
UPDATE payment_requests SET
  amount=$2, status=$3, payment_details=$4, admin_note=$5, status_updates=$6, updated_at=$7, version=$8
WHERE id=$1 AND version=$9;`
	_, details, updates, err := encodeJSONB(pr)
	if err != nil {
		return false, fmt.Errorf("encode payment request: %w", err)
	}
	tag, err := execSQL(ctx, r.pool, tx, q,
		pr.ID, pr.Amount, pr.Status, details, pr.AdminNote, updates, pr.UpdatedAt, pr.Version, expected)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

func (r *paymentRequestRepo) ListStale(ctx context.Context, tx repository.Tx, statuses []model.RequestStatus, olderThan time.Time, limit int) ([]*model.PaymentRequest, error) {
	if limit <= 0 {
		limit = 100
	}
	ss := make([]string, len(statuses))
	for i, s := range statuses {
		ss[i] = string(s)
	}
	const q = `SELECT ` + paymentRequestColumns + ` FROM payment_requests
 WHERE status = ANY($1) AND updated_at < $2
 ORDER BY updated_at ASC
 LIMIT $3;`
	rows, err := queryRows(ctx, r.pool, tx, q, ss, olderThan, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectPaymentRequests(rows)
}

func collectPaymentRequests(rows interface {
	rowScanner
	Next() bool
	Err() error
}) ([]*model.PaymentRequest, error) {
	var out []*model.PaymentRequest
	for rows.Next() {
		pr, err := scanPaymentRequest(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, pr)
	}
	if err := rows.Err(); err != nil {
		return nil, mapError(err)
	}
	return out, nil
}
