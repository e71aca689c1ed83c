package model

import (
	"strings"
	"time"

	"subscriber-payments/internal/domain"
)

// User is an account of the client dashboard. Identity itself is managed elsewhere;
// this record only carries what the payment workflow needs.
type User struct {
	ID           string
	Email        string
	DisplayName  string
	RegisteredAt time.Time
	Subscription Subscription
}

func NewUser(id, email, displayName string) (*User, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, domain.ErrInvalidArgument
	}
	return &User{
		ID:           id,
		Email:        strings.TrimSpace(email),
		DisplayName:  displayName,
		RegisteredAt: time.Now(),
		Subscription: Subscription{Status: SubscriptionStatusNone},
	}, nil
}

func (u *User) IsZero() bool { return u == nil || u.ID == "" }
