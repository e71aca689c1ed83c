package usecase

import (
	"context"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"subscriber-payments/internal/domain"
	"subscriber-payments/internal/domain/model"
	"subscriber-payments/internal/infra/logging"
)

// Compile-time check
var _ TrackingUseCase = (*trackingUC)(nil)

// NotFoundMessage is shown when a tracking lookup finds nothing.
const NotFoundMessage = "No payment found with this reference."

type TimelineEntry struct {
	Status    model.RequestStatus `json:"status"`
	Label     string              `json:"label"`
	Timestamp time.Time           `json:"timestamp"`
	Note      string              `json:"note,omitempty"`
}

// TrackingView is what the client sees of one request.
type TrackingView struct {
	ID                  string                `json:"id"`
	ReferenceCode       string                `json:"reference_code"`
	Status              model.RequestStatus   `json:"status"`
	StatusLabel         string                `json:"status_label"`
	StatusDescription   string                `json:"status_description"`
	Type                model.PaymentType     `json:"type"`
	PlanID              string                `json:"plan_id"`
	PlanName            string                `json:"plan_name"`
	Amount              int64                 `json:"amount"`
	Currency            string                `json:"currency"`
	PaymentDetails      *model.PaymentDetails `json:"payment_details,omitempty"`
	InstructionsPending bool                  `json:"instructions_pending"`
	AdminNote           string                `json:"admin_note,omitempty"`
	Timeline            []TimelineEntry       `json:"timeline"`
	Terminal            bool                  `json:"terminal"`
	CreatedAt           time.Time             `json:"created_at"`
	UpdatedAt           time.Time             `json:"updated_at"`
	Version             int64                 `json:"version"`
}

// NewTrackingView renders r for the client. Partial payment details are shown
// as they are, with InstructionsPending set.
func NewTrackingView(r *model.PaymentRequest) *TrackingView {
	v := &TrackingView{
		ID:                  r.ID,
		ReferenceCode:       r.ReferenceCode,
		Status:              r.Status,
		StatusLabel:         r.Status.Label(),
		StatusDescription:   r.Status.Description(),
		Type:                r.Type,
		PlanID:              r.Plan.ID,
		PlanName:            r.Plan.Name,
		Amount:              r.Amount,
		Currency:            r.Currency,
		InstructionsPending: r.InstructionsPending() && !r.Status.IsTerminal(),
		Terminal:            r.Status.IsTerminal(),
		CreatedAt:           r.CreatedAt,
		UpdatedAt:           r.UpdatedAt,
		Version:             r.Version,
	}
	if d := r.PaymentDetails; d.BankInfo != nil || d.PayPal != nil || d.GiftCard != nil || d.Coupon != nil {
		cp := r.Clone().PaymentDetails
		v.PaymentDetails = &cp
	}
	if r.Status == model.StatusRejected {
		v.AdminNote = r.AdminNote
	}
	v.Timeline = make([]TimelineEntry, 0, len(r.Notifications.StatusUpdates))
	for _, su := range r.Notifications.StatusUpdates {
		v.Timeline = append(v.Timeline, TimelineEntry{
			Status:    su.Status,
			Label:     su.Status.Label(),
			Timestamp: su.Timestamp,
			Note:      su.Note,
		})
	}
	return v
}

// PublicTrackingView is NewTrackingView with gift card and coupon codes masked.
// It backs lookups by reference code, which need no authentication.
func PublicTrackingView(r *model.PaymentRequest) *TrackingView {
	v := NewTrackingView(r)
	if v.PaymentDetails != nil {
		masked := v.PaymentDetails.Masked()
		v.PaymentDetails = &masked
	}
	return v
}

// TrackingUseCase is the read side used by the client tracking views.
type TrackingUseCase interface {
	// Track accepts a reference code (any case) or a request id and returns the
	// public view.
	Track(ctx context.Context, codeOrID string) (*TrackingView, error)
	// Watch calls fn with a fresh view on every change of request id until unsubscribed.
	Watch(ctx context.Context, id string, fn func(*TrackingView)) (unsubscribe func(), err error)
}

type trackingUC struct {
	requests PaymentRequestUseCase
	log      *zerolog.Logger
}

func NewTrackingUseCase(requests PaymentRequestUseCase, logger *zerolog.Logger) *trackingUC {
	return &trackingUC{requests: requests, log: logger}
}

func (uc *trackingUC) Track(ctx context.Context, codeOrID string) (*TrackingView, error) {
	defer logging.TraceDuration(uc.log, "TrackingUC.Track")()
	key := strings.TrimSpace(codeOrID)
	if key == "" {
		return nil, domain.ErrNotFound
	}
	var (
		r   *model.PaymentRequest
		err error
	)
	if model.IsReferenceCode(key) {
		r, err = uc.requests.GetByReferenceCode(ctx, key)
	} else {
		r, err = uc.requests.GetByID(ctx, key)
	}
	if err != nil {
		return nil, err
	}
	return PublicTrackingView(r), nil
}

func (uc *trackingUC) Watch(ctx context.Context, id string, fn func(*TrackingView)) (func(), error) {
	return uc.requests.Subscribe(ctx, id, func(r *model.PaymentRequest) {
		fn(NewTrackingView(r))
	})
}
