// Package payment provides the in-process payment authorizer used until a
// real acquirer integration lands. It honours the domain Gateway contract:
// one synchronous authorize call per order attempt.
package payment

import (
	"context"

	"github.com/go-faster/sdk/zctx"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	domain "github.com/pratodigital/delivery-api/internal/domain/payment"
)

var _ domain.Gateway = (*Authorizer)(nil)

// Authorizer approves payments by local policy: the method must be one of
// the known set, the amount must be positive, and when MaxAmount is set the
// amount must not exceed it.
type Authorizer struct {
	// MaxAmount declines any charge above this value. Zero disables the cap.
	MaxAmount decimal.Decimal
}

// NewAuthorizer creates an Authorizer with the given charge cap.
func NewAuthorizer(maxAmount decimal.Decimal) *Authorizer {
	return &Authorizer{MaxAmount: maxAmount}
}

// Authorize implements domain.Gateway.
func (a *Authorizer) Authorize(ctx context.Context, method domain.Method, amount decimal.Decimal) (bool, error) {
	lg := zctx.From(ctx)

	approved := method.Valid() &&
		amount.IsPositive() &&
		(a.MaxAmount.IsZero() || amount.LessThanOrEqual(a.MaxAmount))

	lg.Info("payment authorization",
		zap.String("method", string(method)),
		zap.String("amount", amount.StringFixed(2)),
		zap.Bool("approved", approved),
	)

	return approved, nil
}
