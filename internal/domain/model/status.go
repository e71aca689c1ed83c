package model

import "slices"

type RequestStatus string

const (
	StatusPending        RequestStatus = "pending"         // recorded, instructions not prepared yet
	StatusWaitingPayment RequestStatus = "waiting_payment" // instructions sent, awaiting the client
	StatusValidating     RequestStatus = "validating"      // client says it paid, awaiting manual check
	StatusCompleted      RequestStatus = "completed"
	StatusRejected       RequestStatus = "rejected"
	StatusExpired        RequestStatus = "expired"
)

type transition struct {
	From RequestStatus
	To   RequestStatus
}

var validTransitions = map[transition]bool{
	{StatusPending, StatusWaitingPayment}:    true,
	{StatusPending, StatusRejected}:          true,
	{StatusPending, StatusExpired}:           true,
	{StatusWaitingPayment, StatusValidating}: true,
	{StatusWaitingPayment, StatusRejected}:   true,
	{StatusWaitingPayment, StatusExpired}:    true,
	{StatusValidating, StatusCompleted}:      true,
	{StatusValidating, StatusRejected}:       true,
}

// CanTransition checks if a transition from one status to another is legal.
func CanTransition(from, to RequestStatus) bool {
	return validTransitions[transition{from, to}]
}

// ValidTransitionsFrom returns all legal target statuses from the given status.
func ValidTransitionsFrom(from RequestStatus) []RequestStatus {
	targets := make([]RequestStatus, 0)
	for t := range validTransitions {
		if t.From == from {
			targets = append(targets, t.To)
		}
	}
	slices.Sort(targets)
	return targets
}

var AllStatuses = []RequestStatus{
	StatusPending, StatusWaitingPayment, StatusValidating,
	StatusCompleted, StatusRejected, StatusExpired,
}

func (s RequestStatus) Valid() bool { return slices.Contains(AllStatuses, s) }

func (s RequestStatus) IsTerminal() bool {
	return s == StatusCompleted || s == StatusRejected || s == StatusExpired
}

type statusText struct {
	Label       string
	Description string
}

var statusTexts = map[RequestStatus]statusText{
	StatusPending: {
		"Pending",
		"Your request has been recorded. Payment instructions are being prepared.",
	},
	StatusWaitingPayment: {
		"Awaiting payment",
		"Payment instructions are available. Complete the payment and let us know.",
	},
	StatusValidating: {
		"Validating",
		"We are checking that your payment has been received.",
	},
	StatusCompleted: {
		"Completed",
		"Your payment has been confirmed and your subscription is active.",
	},
	StatusRejected: {
		"Rejected",
		"Your payment could not be validated.",
	},
	StatusExpired: {
		"Expired",
		"This request expired before the payment was received.",
	},
}

// Label is the human readable name of s.
func (s RequestStatus) Label() string {
	if t, ok := statusTexts[s]; ok {
		return t.Label
	}
	return string(s)
}

func (s RequestStatus) Description() string {
	return statusTexts[s].Description
}
