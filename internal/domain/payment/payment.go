// Package payment defines the synchronous payment authorization boundary
// consumed during order creation.
package payment

import (
	"context"

	"github.com/shopspring/decimal"
)

// Method enumerates the accepted payment methods.
type Method string

const (
	MethodCash   Method = "cash"
	MethodCard   Method = "card"
	MethodPix    Method = "pix"
	MethodWallet Method = "wallet"
)

// Valid reports whether m is one of the closed set of methods. The boundary
// layer validates methods before they reach the order engine; this is the
// predicate it uses.
func (m Method) Valid() bool {
	switch m {
	case MethodCash, MethodCard, MethodPix, MethodWallet:
		return true
	}
	return false
}

// Gateway authorizes a payment for the given method and amount. The call is
// synchronous and not assumed idempotent: the order engine invokes it at most
// once per order attempt. A false result with nil error means the payment was
// declined; a non-nil error means the gateway itself failed.
type Gateway interface {
	Authorize(ctx context.Context, method Method, amount decimal.Decimal) (bool, error)
}
