package model

import (
	"strings"
	"time"

	"subscriber-payments/internal/domain"
)

const DefaultCurrency = "EUR"

// SubscriptionPlan is a purchasable tier of the catalog.
// Price is in minor units of Currency.
type SubscriptionPlan struct {
	ID        string
	Name      string
	Price     int64
	Currency  string
	Features  []string
	Active    bool
	CreatedAt time.Time
}

func (p *SubscriptionPlan) IsZero() bool { return p == nil || p.ID == "" }

// NewSubscriptionPlan validates and constructs a plan.
func NewSubscriptionPlan(id, name string, price int64, currency string, features []string) (*SubscriptionPlan, error) {
	id = strings.TrimSpace(id)
	name = strings.TrimSpace(name)
	if id == "" || name == "" || price <= 0 {
		return nil, domain.ErrInvalidArgument
	}
	currency = strings.ToUpper(strings.TrimSpace(currency))
	if currency == "" {
		currency = DefaultCurrency
	}
	return &SubscriptionPlan{
		ID:        id,
		Name:      name,
		Price:     price,
		Currency:  currency,
		Features:  append([]string(nil), features...),
		Active:    true,
		CreatedAt: time.Now(),
	}, nil
}

// Snapshot copies the plan for embedding in a payment request.
func (p *SubscriptionPlan) Snapshot() PlanSnapshot {
	return PlanSnapshot{
		ID:       p.ID,
		Name:     p.Name,
		Price:    p.Price,
		Currency: p.Currency,
		Features: append([]string(nil), p.Features...),
	}
}
