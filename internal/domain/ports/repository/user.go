package repository

import (
	"context"

	"subscriber-payments/internal/domain/model"
)

// -----------------------------
// Users
// -----------------------------

type UserRepository interface {
	Save(ctx context.Context, tx Tx, u *model.User) error
	FindByID(ctx context.Context, tx Tx, id string) (*model.User, error)
	UpdateSubscription(ctx context.Context, tx Tx, userID string, s model.Subscription) error
}

// -----------------------------
// Activations
// -----------------------------

type ActivationRepository interface {
	// Insert records a and reports false, without error, when the request was already activated.
	Insert(ctx context.Context, tx Tx, a *model.Activation) (bool, error)
	FindByRequestID(ctx context.Context, tx Tx, requestID string) (*model.Activation, error)
}
