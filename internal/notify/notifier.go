package notify

import (
	"context"
	"encoding/json"
	"time"

	"lojinha/internal/model"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/segmentio/kafka-go"
)

// Event types published on the order events topic.
const (
	EventOrderConfirmed = "order.confirmed"
	EventOrderPaid      = "order.paid"
	EventOrderShipped   = "order.shipped"
)

// Envelope wraps every published event. EventID lets downstream consumers
// deduplicate replays.
type Envelope struct {
	EventID    uuid.UUID       `json:"event_id"`
	EventType  string          `json:"event_type"`
	OccurredAt time.Time       `json:"occurred_at"`
	Payload    json.RawMessage `json:"payload"`
}

// OrderEventPayload is the order summary carried in the envelope.
type OrderEventPayload struct {
	OrderID       uuid.UUID           `json:"order_id"`
	OrderNumber   string              `json:"order_number"`
	CustomerEmail string              `json:"customer_email"`
	Total         float64             `json:"total"`
	Status        model.OrderStatus   `json:"status"`
	PaymentStatus model.PaymentStatus `json:"payment_status"`
}

// Notifier publishes order lifecycle events for the e-mail and analytics
// consumers. Publication is best effort: the order core never fails because
// a notification could not be delivered.
type Notifier interface {
	Publish(ctx context.Context, eventType string, o *model.Order) error
	Close() error
}

// KafkaNotifier publishes envelopes to a Kafka topic, keyed by order number
// so one order's events stay in partition order.
type KafkaNotifier struct {
	writer *kafka.Writer
	logger zerolog.Logger
}

// NewKafkaNotifier creates a notifier over the given brokers and topic.
func NewKafkaNotifier(brokers []string, topic string, logger zerolog.Logger) *KafkaNotifier {
	return &KafkaNotifier{
		writer: &kafka.Writer{
			Addr:         kafka.TCP(brokers...),
			Topic:        topic,
			Balancer:     &kafka.Hash{},
			RequiredAcks: kafka.RequireOne,
			BatchTimeout: 20 * time.Millisecond,
		},
		logger: logger.With().Str("component", "order-notifier").Logger(),
	}
}

func (n *KafkaNotifier) Publish(ctx context.Context, eventType string, o *model.Order) error {
	payload, err := json.Marshal(OrderEventPayload{
		OrderID:       o.ID,
		OrderNumber:   o.Number,
		CustomerEmail: o.Customer.Email,
		Total:         o.Total,
		Status:        o.Status,
		PaymentStatus: o.PaymentStatus,
	})
	if err != nil {
		return err
	}

	env := Envelope{
		EventID:    uuid.New(),
		EventType:  eventType,
		OccurredAt: time.Now(),
		Payload:    payload,
	}
	value, err := json.Marshal(env)
	if err != nil {
		return err
	}

	err = n.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(o.Number),
		Value: value,
	})
	if err != nil {
		n.logger.Error().
			Err(err).
			Str("event_type", eventType).
			Str("order_number", o.Number).
			Msg("failed to publish order event")
		return err
	}

	n.logger.Debug().
		Str("event_type", eventType).
		Str("order_number", o.Number).
		Str("event_id", env.EventID.String()).
		Msg("order event published")

	return nil
}

func (n *KafkaNotifier) Close() error {
	return n.writer.Close()
}

// NopNotifier discards events. Used when no broker is configured and in
// tests.
type NopNotifier struct{}

func (NopNotifier) Publish(context.Context, string, *model.Order) error { return nil }
func (NopNotifier) Close() error                                        { return nil }
