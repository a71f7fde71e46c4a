// Package events contains the subscribers that project order domain events
// to logs, metrics, and the message bus. All of them are best-effort: a
// failing subscriber never propagates into the order path.
package events

import (
	"context"

	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/pratodigital/delivery-api/internal/domain/order"
)

var _ order.Publisher = (*LogPublisher)(nil)

// LogPublisher writes every domain event to the request-scoped logger.
type LogPublisher struct{}

// Publish implements order.Publisher.
func (LogPublisher) Publish(ctx context.Context, e order.Event) {
	zctx.From(ctx).Info("order event",
		zap.String("type", string(e.Type)),
		zap.String("order_id", e.OrderID),
		zap.String("order_number", e.OrderNumber),
		zap.String("restaurant_id", e.RestaurantID),
		zap.String("status", string(e.Status)),
		zap.String("total", e.Total.StringFixed(2)),
		zap.String("reason", e.Reason),
	)
}
