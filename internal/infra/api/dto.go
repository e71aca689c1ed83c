package api

import (
	"time"

	"subscriber-payments/internal/domain/model"
)

type createPaymentRequestBody struct {
	PlanID         string                `json:"plan_id" validate:"required,max=64"`
	Type           string                `json:"type" validate:"required,oneof=paypal bank_transfer gift_card coupon"`
	PaymentDetails *model.PaymentDetails `json:"payment_details"`
}

type claimBody struct {
	Note *string `json:"note" validate:"omitempty,max=500"`
}

type transitionBody struct {
	Status         string                `json:"status" validate:"required,oneof=pending waiting_payment validating completed rejected expired"`
	Note           *string               `json:"note" validate:"omitempty,max=1000"`
	PaymentDetails *model.PaymentDetails `json:"payment_details"`
	Amount         *int64                `json:"amount" validate:"omitempty,min=0"`
}

type createPlanBody struct {
	ID       string   `json:"id" validate:"required,max=64"`
	Name     string   `json:"name" validate:"required,max=120"`
	Price    int64    `json:"price" validate:"min=0"`
	Currency string   `json:"currency" validate:"omitempty,len=3"`
	Features []string `json:"features" validate:"omitempty,dive,required"`
}

type adminSessionBody struct {
	APIKey string `json:"api_key" validate:"required"`
}

type planView struct {
	ID       string   `json:"id"`
	Name     string   `json:"name"`
	Price    int64    `json:"price"`
	Currency string   `json:"currency"`
	Features []string `json:"features"`
	Active   bool     `json:"active"`
}

func newPlanView(p *model.SubscriptionPlan) planView {
	features := p.Features
	if features == nil {
		features = []string{}
	}
	return planView{ID: p.ID, Name: p.Name, Price: p.Price, Currency: p.Currency, Features: features, Active: p.Active}
}

type subscriptionView struct {
	PlanID    string                   `json:"plan_id,omitempty"`
	Status    model.SubscriptionStatus `json:"status"`
	ExpiresAt *time.Time               `json:"expires_at,omitempty"`
	RequestID string                   `json:"request_id,omitempty"`
}

func newSubscriptionView(s *model.Subscription) subscriptionView {
	return subscriptionView{PlanID: s.PlanID, Status: s.Status, ExpiresAt: s.ExpiresAt, RequestID: s.RequestID}
}

// adminRequestView is the full record, including fields clients never see.
type adminRequestView struct {
	ID             string                `json:"id"`
	ReferenceCode  string                `json:"reference_code"`
	UserID         string                `json:"user_id"`
	UserEmail      string                `json:"user_email,omitempty"`
	Plan           model.PlanSnapshot    `json:"plan"`
	Type           model.PaymentType     `json:"type"`
	Amount         int64                 `json:"amount"`
	Currency       string                `json:"currency"`
	Status         model.RequestStatus   `json:"status"`
	NextStatuses   []model.RequestStatus `json:"next_statuses"`
	PaymentDetails model.PaymentDetails  `json:"payment_details"`
	AdminNote      string                `json:"admin_note,omitempty"`
	StatusUpdates  []model.StatusUpdate  `json:"status_updates"`
	CreatedAt      time.Time             `json:"created_at"`
	UpdatedAt      time.Time             `json:"updated_at"`
	Version        int64                 `json:"version"`
}

func newAdminRequestView(r *model.PaymentRequest) adminRequestView {
	next := model.ValidTransitionsFrom(r.Status)
	if next == nil {
		next = []model.RequestStatus{}
	}
	return adminRequestView{
		ID:             r.ID,
		ReferenceCode:  r.ReferenceCode,
		UserID:         r.UserID,
		UserEmail:      r.UserEmail,
		Plan:           r.Plan,
		Type:           r.Type,
		Amount:         r.Amount,
		Currency:       r.Currency,
		Status:         r.Status,
		NextStatuses:   next,
		PaymentDetails: r.PaymentDetails,
		AdminNote:      r.AdminNote,
		StatusUpdates:  r.Notifications.StatusUpdates,
		CreatedAt:      r.CreatedAt,
		UpdatedAt:      r.UpdatedAt,
		Version:        r.Version,
	}
}
