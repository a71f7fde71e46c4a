package events

import (
	"context"
	"encoding/json"
	"time"

	"github.com/go-faster/sdk/zctx"
	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"github.com/pratodigital/delivery-api/internal/domain/order"
)

var _ order.Publisher = (*KafkaPublisher)(nil)

// kafkaEvent is the wire shape of an order event on the bus.
type kafkaEvent struct {
	Type         string    `json:"type"`
	OrderID      string    `json:"order_id"`
	OrderNumber  string    `json:"order_number"`
	RestaurantID string    `json:"restaurant_id"`
	Status       string    `json:"status"`
	Total        string    `json:"total"`
	Reason       string    `json:"reason,omitempty"`
	At           time.Time `json:"at"`
}

// KafkaPublisher publishes order events to a Kafka topic, keyed by order id
// so one order's events stay in partition order. Publish failures are logged
// and dropped; the bus is an observer, not a dependency of correctness.
type KafkaPublisher struct {
	writer *kafka.Writer
}

// NewKafkaPublisher creates a publisher writing to topic on the given brokers.
func NewKafkaPublisher(brokers []string, topic string) *KafkaPublisher {
	return &KafkaPublisher{
		writer: &kafka.Writer{
			Addr:         kafka.TCP(brokers...),
			Topic:        topic,
			Balancer:     &kafka.Hash{},
			RequiredAcks: kafka.RequireOne,
			Async:        true,
		},
	}
}

// Publish implements order.Publisher.
func (p *KafkaPublisher) Publish(ctx context.Context, e order.Event) {
	payload, err := json.Marshal(kafkaEvent{
		Type:         string(e.Type),
		OrderID:      e.OrderID,
		OrderNumber:  e.OrderNumber,
		RestaurantID: e.RestaurantID,
		Status:       string(e.Status),
		Total:        e.Total.StringFixed(2),
		Reason:       e.Reason,
		At:           e.At,
	})
	if err != nil {
		zctx.From(ctx).Warn("marshal order event", zap.Error(err))
		return
	}

	err = p.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(e.OrderID),
		Value: payload,
	})
	if err != nil {
		zctx.From(ctx).Warn("publish order event", zap.Error(err))
	}
}

// Close flushes and closes the underlying writer.
func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}
