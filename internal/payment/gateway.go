// Package payment adapts external payment gateways for gateway-hosted checkout.
package payment

import (
	"context"
	"errors"
	"strings"

	"github.com/shopspring/decimal"
)

// ErrGateway wraps every failure talking to the gateway, timeouts included.
var ErrGateway = errors.New("payment gateway error")

// Intent is the gateway's handle for a payment the client completes out of band.
type Intent struct {
	ID           string
	ClientSecret string
}

type Gateway interface {
	// CreateIntent asks the gateway to collect amount (major units) in currency.
	CreateIntent(ctx context.Context, amount decimal.Decimal, currency string, metadata map[string]string) (Intent, error)
}

var zeroDecimal = map[string]bool{
	"bif": true, "clp": true, "djf": true, "gnf": true, "jpy": true, "kmf": true, "krw": true, "mga": true,
	"pyg": true, "rwf": true, "ugx": true, "vnd": true, "vuv": true, "xaf": true, "xof": true, "xpf": true,
}

// ToMinorUnits converts a major-unit amount to the gateway's integer minor
// units, rounding half away from zero. This is the only rounding step applied
// to order money.
func ToMinorUnits(amount decimal.Decimal, currency string) int64 {
	if zeroDecimal[strings.ToLower(currency)] {
		return amount.Round(0).IntPart()
	}
	return amount.Shift(2).Round(0).IntPart()
}
