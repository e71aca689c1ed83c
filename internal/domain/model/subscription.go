package model

import "time"

type SubscriptionStatus string

const (
	SubscriptionStatusNone    SubscriptionStatus = "none"
	SubscriptionStatusActive  SubscriptionStatus = "active"
	SubscriptionStatusExpired SubscriptionStatus = "expired"
)

// SubscriptionPeriod is the fixed renewal period granted by one completed request.
const SubscriptionPeriod = 30 * 24 * time.Hour

// Subscription is the entitlement part of a user account.
type Subscription struct {
	PlanID    string
	Status    SubscriptionStatus
	ExpiresAt *time.Time
	// RequestID is the payment request that granted the current period.
	RequestID string
	UpdatedAt time.Time
}

func (s Subscription) ActiveAt(t time.Time) bool {
	return s.Status == SubscriptionStatusActive && s.ExpiresAt != nil && t.Before(*s.ExpiresAt)
}

// Activation records that a completed payment request granted a subscription.
// There is at most one per request.
type Activation struct {
	ID          string
	RequestID   string
	UserID      string
	PlanID      string
	ActivatedAt time.Time
	ExpiresAt   time.Time
}
