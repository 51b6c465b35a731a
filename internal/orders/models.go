package orders

import (
	"time"

	"github.com/shopspring/decimal"
)

type Address struct {
	Street  string `json:"street,omitempty"`
	City    string `json:"city,omitempty"`
	State   string `json:"state,omitempty"`
	Country string `json:"country,omitempty"`
	ZipCode string `json:"zip_code,omitempty"`
}

func (a Address) IsZero() bool { return a == Address{} }

// LineItem captures the unit price at order time; later product price edits
// never touch it.
type LineItem struct {
	ProductID string          `json:"product_id"`
	Quantity  int             `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unit_price"`
}

type Totals struct {
	Subtotal   decimal.Decimal `json:"subtotal"`
	Discount   decimal.Decimal `json:"discount_amount"`
	Shipping   decimal.Decimal `json:"shipping_cost"`
	Tax        decimal.Decimal `json:"tax_amount"`
	GrandTotal decimal.Decimal `json:"total_amount"`
}

type Refund struct {
	Amount     decimal.Decimal `json:"amount"`
	Reason     string          `json:"reason,omitempty"`
	RefundedAt time.Time       `json:"refunded_at"`
}

type Order struct {
	ID              string        `json:"id"`
	ExternalID      string        `json:"external_id,omitempty"`
	UserID          string        `json:"user_id"`
	Items           []LineItem    `json:"items"`
	Totals          Totals        `json:"totals"`
	ShippingAddress Address       `json:"shipping_address"`
	CouponCode      string        `json:"coupon_code,omitempty"`
	PaymentMethod   PaymentMethod `json:"payment_method"`
	PaymentStatus   PaymentStatus `json:"payment_status"`
	Status          Status        `json:"order_status"`
	PaymentIntentID string        `json:"payment_intent_id,omitempty"`
	TrackingNumber  string        `json:"tracking_number,omitempty"`
	EstimatedAt     *time.Time    `json:"estimated_delivery_date,omitempty"`
	DeliveredAt     *time.Time    `json:"actual_delivery_date,omitempty"`
	Notes           string        `json:"notes,omitempty"`
	Refund          *Refund       `json:"refund_details,omitempty"`
	CreatedAt       time.Time     `json:"created_at"`
	UpdatedAt       time.Time     `json:"updated_at"`
}

// ItemInput is one requested line before reservation.
type ItemInput struct {
	ProductID string `json:"product_id"`
	Qty       int    `json:"quantity"`
}
