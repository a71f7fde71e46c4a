package events

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/pratodigital/delivery-api/internal/domain/order"
)

var _ order.Publisher = (*MetricsPublisher)(nil)

// MetricsPublisher projects domain events to OpenTelemetry counters and
// annotates the active span, keeping instrumentation out of the
// transactional order path.
type MetricsPublisher struct {
	created metric.Int64Counter
	failed  metric.Int64Counter
	status  metric.Int64Counter
}

// NewMetricsPublisher registers the order counters on the given meter.
func NewMetricsPublisher(meter metric.Meter) (*MetricsPublisher, error) {
	created, err := meter.Int64Counter("orders_created_total",
		metric.WithDescription("Orders successfully created"))
	if err != nil {
		return nil, err
	}
	failed, err := meter.Int64Counter("orders_failed_total",
		metric.WithDescription("Order creation attempts rejected"))
	if err != nil {
		return nil, err
	}
	status, err := meter.Int64Counter("order_status_transitions_total",
		metric.WithDescription("Order status transitions applied"))
	if err != nil {
		return nil, err
	}
	return &MetricsPublisher{created: created, failed: failed, status: status}, nil
}

// Publish implements order.Publisher.
func (m *MetricsPublisher) Publish(ctx context.Context, e order.Event) {
	attrs := metric.WithAttributes(
		attribute.String("restaurant_id", e.RestaurantID),
		attribute.String("status", string(e.Status)),
	)

	switch e.Type {
	case order.EventOrderCreated:
		m.created.Add(ctx, 1, attrs)
	case order.EventOrderFailed:
		m.failed.Add(ctx, 1, attrs)
	case order.EventStatusChanged:
		m.status.Add(ctx, 1, attrs)
	}

	if span := trace.SpanFromContext(ctx); span.IsRecording() {
		span.AddEvent(string(e.Type), trace.WithAttributes(
			attribute.String("order_id", e.OrderID),
			attribute.String("status", string(e.Status)),
		))
	}
}
