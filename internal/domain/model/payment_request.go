package model

import (
	"strings"
	"time"

	"subscriber-payments/internal/domain"
)

type PaymentType string

const (
	PaymentTypePayPal       PaymentType = "paypal"
	PaymentTypeBankTransfer PaymentType = "bank_transfer"
	PaymentTypeGiftCard     PaymentType = "gift_card"
	PaymentTypeCoupon       PaymentType = "coupon"
)

func (t PaymentType) Valid() bool {
	switch t {
	case PaymentTypePayPal, PaymentTypeBankTransfer, PaymentTypeGiftCard, PaymentTypeCoupon:
		return true
	}
	return false
}

// PlanSnapshot is the plan as it was when the request was made.
// Price is in minor units (cents) to avoid float errors.
type PlanSnapshot struct {
	ID       string   `json:"id"`
	Name     string   `json:"name"`
	Price    int64    `json:"price"`
	Currency string   `json:"currency"`
	Features []string `json:"features"`
}

func (p PlanSnapshot) clone() PlanSnapshot {
	cp := p
	if p.Features != nil {
		cp.Features = append([]string(nil), p.Features...)
	}
	return cp
}

type BankInfo struct {
	IBAN        string `json:"iban,omitempty"`
	BIC         string `json:"bic,omitempty"`
	Beneficiary string `json:"beneficiary,omitempty"`
	BankName    string `json:"bankName,omitempty"`
}

type PayPalInfo struct {
	Link  string `json:"link,omitempty"`
	Email string `json:"email,omitempty"`
}

type GiftCardInfo struct {
	Type string `json:"type,omitempty"`
	Code string `json:"code,omitempty"`
}

type CouponInfo struct {
	Code string `json:"code,omitempty"`
}

// PaymentDetails holds the method specific payload. Only the member matching the
// request type is expected to be filled; it may be partial until an admin completes it.
type PaymentDetails struct {
	BankInfo *BankInfo     `json:"bankInfo,omitempty"`
	PayPal   *PayPalInfo   `json:"paypal,omitempty"`
	GiftCard *GiftCardInfo `json:"giftCard,omitempty"`
	Coupon   *CouponInfo   `json:"coupon,omitempty"`
}

func (d PaymentDetails) clone() PaymentDetails {
	var cp PaymentDetails
	if d.BankInfo != nil {
		v := *d.BankInfo
		cp.BankInfo = &v
	}
	if d.PayPal != nil {
		v := *d.PayPal
		cp.PayPal = &v
	}
	if d.GiftCard != nil {
		v := *d.GiftCard
		cp.GiftCard = &v
	}
	if d.Coupon != nil {
		v := *d.Coupon
		cp.Coupon = &v
	}
	return cp
}

func pick(cur, patch string) string {
	if p := strings.TrimSpace(patch); p != "" {
		return p
	}
	return cur
}

// Merge returns d with every non-empty field of patch applied on top.
func (d PaymentDetails) Merge(patch *PaymentDetails) PaymentDetails {
	out := d.clone()
	if patch == nil {
		return out
	}
	if p := patch.BankInfo; p != nil {
		if out.BankInfo == nil {
			out.BankInfo = &BankInfo{}
		}
		out.BankInfo.IBAN = pick(out.BankInfo.IBAN, p.IBAN)
		out.BankInfo.BIC = pick(out.BankInfo.BIC, p.BIC)
		out.BankInfo.Beneficiary = pick(out.BankInfo.Beneficiary, p.Beneficiary)
		out.BankInfo.BankName = pick(out.BankInfo.BankName, p.BankName)
	}
	if p := patch.PayPal; p != nil {
		if out.PayPal == nil {
			out.PayPal = &PayPalInfo{}
		}
		out.PayPal.Link = pick(out.PayPal.Link, p.Link)
		out.PayPal.Email = pick(out.PayPal.Email, p.Email)
	}
	if p := patch.GiftCard; p != nil {
		if out.GiftCard == nil {
			out.GiftCard = &GiftCardInfo{}
		}
		out.GiftCard.Type = pick(out.GiftCard.Type, p.Type)
		out.GiftCard.Code = pick(out.GiftCard.Code, p.Code)
	}
	if p := patch.Coupon; p != nil {
		if out.Coupon == nil {
			out.Coupon = &CouponInfo{}
		}
		out.Coupon.Code = pick(out.Coupon.Code, p.Code)
	}
	return out
}

// CompleteFor reports whether the details needed to pay with t are all present.
func (d PaymentDetails) CompleteFor(t PaymentType) bool {
	switch t {
	case PaymentTypeBankTransfer:
		b := d.BankInfo
		return b != nil && b.IBAN != "" && b.BIC != "" && b.Beneficiary != ""
	case PaymentTypePayPal:
		p := d.PayPal
		return p != nil && (p.Link != "" || p.Email != "")
	case PaymentTypeGiftCard:
		g := d.GiftCard
		return g != nil && g.Type != "" && g.Code != ""
	case PaymentTypeCoupon:
		return d.Coupon != nil && d.Coupon.Code != ""
	}
	return false
}

// Masked returns a copy with redeemable codes hidden. Bank and PayPal
// instructions are meant to be shown and stay as they are.
func (d PaymentDetails) Masked() PaymentDetails {
	cp := d.clone()
	if cp.GiftCard != nil {
		cp.GiftCard.Code = maskSecret(cp.GiftCard.Code)
	}
	if cp.Coupon != nil {
		cp.Coupon.Code = maskSecret(cp.Coupon.Code)
	}
	return cp
}

// maskSecret keeps the last four characters of codes long enough to stay unguessable.
func maskSecret(s string) string {
	rs := []rune(s)
	keep := 0
	if len(rs) > 8 {
		keep = 4
	}
	return strings.Repeat("*", len(rs)-keep) + string(rs[len(rs)-keep:])
}

type StatusUpdate struct {
	Status    RequestStatus `json:"status"`
	Timestamp time.Time     `json:"timestamp"`
	Note      string        `json:"note,omitempty"`
}

type Notifications struct {
	StatusUpdates []StatusUpdate `json:"statusUpdates"`
}

// PaymentRequest is one attempt by a user to pay for a plan through a manual channel.
type PaymentRequest struct {
	ID             string
	ReferenceCode  string
	UserID         string
	UserEmail      string
	Plan           PlanSnapshot
	Type           PaymentType
	Amount         int64
	Currency       string
	Status         RequestStatus
	PaymentDetails PaymentDetails
	AdminNote      string
	Notifications  Notifications
	CreatedAt      time.Time
	UpdatedAt      time.Time
	// Version increases by one on every committed mutation.
	Version int64
}

// NewPaymentRequest validates input and builds a request in the pending state.
func NewPaymentRequest(id, code, userID, userEmail string, plan PlanSnapshot, t PaymentType, seed *PaymentDetails, now time.Time) (*PaymentRequest, error) {
	var bad []string
	if id == "" {
		bad = append(bad, "id")
	}
	if !IsReferenceCode(code) {
		bad = append(bad, "referenceCode")
	}
	if strings.TrimSpace(userID) == "" {
		bad = append(bad, "userId")
	}
	if strings.TrimSpace(plan.ID) == "" {
		bad = append(bad, "plan.id")
	}
	if strings.TrimSpace(plan.Name) == "" {
		bad = append(bad, "plan.name")
	}
	if plan.Price <= 0 {
		bad = append(bad, "plan.price")
	}
	if !t.Valid() {
		bad = append(bad, "type")
	}
	if len(bad) > 0 {
		return nil, domain.NewValidationError(bad...)
	}

	currency := strings.ToUpper(strings.TrimSpace(plan.Currency))
	if currency == "" {
		currency = DefaultCurrency
	}
	snap := plan.clone()
	snap.Currency = currency

	r := &PaymentRequest{
		ID:             id,
		ReferenceCode:  NormalizeReferenceCode(code),
		UserID:         userID,
		UserEmail:      strings.TrimSpace(userEmail),
		Plan:           snap,
		Type:           t,
		Amount:         plan.Price,
		Currency:       currency,
		Status:         StatusPending,
		PaymentDetails: PaymentDetails{}.Merge(seed),
		CreatedAt:      now,
		UpdatedAt:      now,
		Version:        1,
	}
	r.Notifications.StatusUpdates = []StatusUpdate{{Status: StatusPending, Timestamp: now}}
	return r, nil
}

// Clone returns a deep copy so callers can never alias stored state.
func (r *PaymentRequest) Clone() *PaymentRequest {
	if r == nil {
		return nil
	}
	cp := *r
	cp.Plan = r.Plan.clone()
	cp.PaymentDetails = r.PaymentDetails.clone()
	cp.Notifications.StatusUpdates = append([]StatusUpdate(nil), r.Notifications.StatusUpdates...)
	return &cp
}

// Change describes one status transition and the data attached to it.
type Change struct {
	To             RequestStatus
	Note           *string
	DetailsPatch   *PaymentDetails
	AmountOverride *int64
	// FromClient marks a change made by the paying user. Its note is kept in the
	// history and never becomes the admin note.
	FromClient bool
}

// Apply performs c on r or returns an error leaving r untouched.
func (r *PaymentRequest) Apply(c Change, now time.Time) error {
	from := r.Status
	if !CanTransition(from, c.To) {
		return &domain.TransitionError{From: string(from), To: string(c.To), Reason: domain.ReasonIllegalEdge}
	}
	if c.AmountOverride != nil && *c.AmountOverride < 0 {
		return domain.NewValidationError("amount")
	}
	details := r.PaymentDetails.Merge(c.DetailsPatch)
	// only a payment claim needs full details; rejecting or expiring an unpaid request does not
	if from == StatusWaitingPayment && c.To == StatusValidating && !details.CompleteFor(r.Type) {
		return &domain.TransitionError{From: string(from), To: string(c.To), Reason: domain.ReasonIncompleteDetails}
	}

	// audit timestamps never go backwards even if the clock does
	if n := len(r.Notifications.StatusUpdates); n > 0 {
		if last := r.Notifications.StatusUpdates[n-1].Timestamp; now.Before(last) {
			now = last
		}
	}

	note := ""
	if c.Note != nil {
		note = strings.TrimSpace(*c.Note)
	}
	r.PaymentDetails = details
	if c.AmountOverride != nil {
		r.Amount = *c.AmountOverride
	}
	if !c.FromClient {
		r.AdminNote = note
	}
	r.Status = c.To
	r.Notifications.StatusUpdates = append(r.Notifications.StatusUpdates, StatusUpdate{Status: c.To, Timestamp: now, Note: note})
	r.UpdatedAt = now
	r.Version++
	return nil
}

// InstructionsPending is true while the client cannot act on the request yet.
func (r *PaymentRequest) InstructionsPending() bool {
	return !r.PaymentDetails.CompleteFor(r.Type)
}
