package orders

import "strings"

type Status string

const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusShipped    Status = "shipped"
	StatusDelivered  Status = "delivered"
	StatusCancelled  Status = "cancelled"
)

var validNext = map[Status]map[Status]bool{
	StatusPending:    {StatusProcessing: true, StatusShipped: true, StatusDelivered: true, StatusCancelled: true},
	StatusProcessing: {StatusShipped: true, StatusDelivered: true, StatusCancelled: true},
	StatusShipped:    {StatusDelivered: true},
	StatusDelivered:  {},
	StatusCancelled:  {},
}

func CanTransition(from, to Status) bool {
	return validNext[from][to]
}

// Cancellable lists the states an order may be cancelled from.
var Cancellable = []Status{StatusPending, StatusProcessing}

func ParseStatus(s string) (Status, bool) {
	st := Status(strings.ToLower(strings.TrimSpace(s)))
	_, ok := validNext[st]
	return st, ok
}

type PaymentStatus string

const (
	PaymentPending   PaymentStatus = "pending"
	PaymentCompleted PaymentStatus = "completed"
	PaymentFailed    PaymentStatus = "failed"
	PaymentRefunded  PaymentStatus = "refunded"
)

type PaymentMethod string

const (
	MethodCard   PaymentMethod = "card"
	MethodPayPal PaymentMethod = "paypal"
	MethodStripe PaymentMethod = "stripe" // gateway hosted
)

// ParsePaymentMethod accepts the canonical names plus the legacy
// credit_card / debit_card spellings.
func ParsePaymentMethod(s string) (PaymentMethod, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "card", "credit_card", "debit_card":
		return MethodCard, true
	case "paypal":
		return MethodPayPal, true
	case "stripe", "gateway":
		return MethodStripe, true
	}
	return "", false
}

func (m PaymentMethod) RequiresGateway() bool { return m == MethodStripe }
