package orders

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// PricedLine is a reserved (unit price, quantity) pair.
type PricedLine struct {
	UnitPrice decimal.Decimal
	Qty       int
}

type (
	DiscountFunc func(subtotal decimal.Decimal) decimal.Decimal
	ShippingFunc func(to Address) decimal.Decimal
	TaxFunc      func(taxable decimal.Decimal) decimal.Decimal
)

// Pricing computes order totals. It keeps full decimal precision; rounding
// happens only when the amount is handed to a payment gateway.
type Pricing struct {
	Shipping ShippingFunc
	Tax      TaxFunc
}

// Quote is pure. discount may be nil. The discount is clamped to
// [0, subtotal].
func (p Pricing) Quote(lines []PricedLine, discount DiscountFunc, to Address) Totals {
	subtotal := decimal.Zero
	for _, l := range lines {
		subtotal = subtotal.Add(l.UnitPrice.Mul(decimal.NewFromInt(int64(l.Qty))))
	}

	off := decimal.Zero
	if discount != nil {
		off = decimal.Min(decimal.Max(discount(subtotal), decimal.Zero), subtotal)
	}

	ship := decimal.Zero
	if p.Shipping != nil {
		ship = p.Shipping(to)
	}

	tax := decimal.Zero
	if p.Tax != nil {
		tax = p.Tax(subtotal.Sub(off))
	}

	return Totals{
		Subtotal:   subtotal,
		Discount:   off,
		Shipping:   ship,
		Tax:        tax,
		GrandTotal: subtotal.Sub(off).Add(ship).Add(tax),
	}
}

func FlatShipping(amount decimal.Decimal) ShippingFunc {
	return func(Address) decimal.Decimal { return amount }
}

func FlatTax(rate decimal.Decimal) TaxFunc {
	return func(taxable decimal.Decimal) decimal.Decimal { return taxable.Mul(rate) }
}

func PercentOff(pct decimal.Decimal) DiscountFunc {
	rate := pct.Div(decimal.NewFromInt(100))
	return func(subtotal decimal.Decimal) decimal.Decimal { return subtotal.Mul(rate) }
}

func AmountOff(amount decimal.Decimal) DiscountFunc {
	return func(decimal.Decimal) decimal.Decimal { return amount }
}

// Coupons maps an upper-cased coupon code to its discount.
type Coupons map[string]DiscountFunc

// ParseCoupons reads "CODE:10%,CODE2:5.00".
func ParseCoupons(s string) (Coupons, error) {
	out := Coupons{}
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		code, val, ok := strings.Cut(part, ":")
		code = strings.ToUpper(strings.TrimSpace(code))
		val = strings.TrimSpace(val)
		if !ok || code == "" || val == "" {
			return nil, fmt.Errorf("coupon %q: want CODE:VALUE", part)
		}
		if pct, isPct := strings.CutSuffix(val, "%"); isPct {
			d, err := decimal.NewFromString(pct)
			if err != nil || d.IsNegative() || d.GreaterThan(decimal.NewFromInt(100)) {
				return nil, fmt.Errorf("coupon %s: bad percentage %q", code, val)
			}
			out[code] = PercentOff(d)
			continue
		}
		d, err := decimal.NewFromString(val)
		if err != nil || d.IsNegative() {
			return nil, fmt.Errorf("coupon %s: bad amount %q", code, val)
		}
		out[code] = AmountOff(d)
	}
	return out, nil
}

func (c Coupons) Lookup(code string) (DiscountFunc, bool) {
	d, ok := c[strings.ToUpper(strings.TrimSpace(code))]
	return d, ok
}
