package repository

import (
	"context"
	"time"

	"subscriber-payments/internal/domain/model"
)

// ListFilter narrows ListByUser. Zero values mean "no filter".
type ListFilter struct {
	Type   *model.PaymentType
	Limit  int
	Offset int
}

type PaymentRequestRepository interface {
	// Create inserts r. A duplicate id or reference code yields domain.ErrAlreadyExists.
	Create(ctx context.Context, tx Tx, r *model.PaymentRequest) error
	FindByID(ctx context.Context, tx Tx, id string) (*model.PaymentRequest, error)
	// FindByReferenceCode expects an already normalized (uppercase) code.
	FindByReferenceCode(ctx context.Context, tx Tx, code string) (*model.PaymentRequest, error)
	// ListByUser returns the user's requests newest first.
	ListByUser(ctx context.Context, tx Tx, userID string, f ListFilter) ([]*model.PaymentRequest, error)
	// UpdateIfVersion stores r only if the persisted version still equals expected.
	// It reports false when another writer got there first.
	UpdateIfVersion(ctx context.Context, tx Tx, r *model.PaymentRequest, expected int64) (bool, error)
	// ListStale returns requests in one of statuses last updated before olderThan, oldest first.
	ListStale(ctx context.Context, tx Tx, statuses []model.RequestStatus, olderThan time.Time, limit int) ([]*model.PaymentRequest, error)
}
