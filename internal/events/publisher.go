// Package events publishes order lifecycle events to RabbitMQ. The
// publisher is optional: a nil *Publisher is safe to use and drops all
// events, so the API runs without a broker in development.
package events

import (
	"encoding/json"
	"fmt"
	"time"

	"shopmall/internal/domain"

	amqp "github.com/streadway/amqp"
	"go.uber.org/zap"
)

const orderQueue = "order_events"

// Event names carried in the message envelope.
const (
	EventOrderCreated   = "order.created"
	EventOrderCancelled = "order.cancelled"
)

type envelope struct {
	Event       string    `json:"event"`
	OrderID     string    `json:"orderId"`
	OrderNumber string    `json:"orderNumber"`
	UserID      string    `json:"userId"`
	FinalAmount int64     `json:"finalAmount"`
	Status      string    `json:"status"`
	OccurredAt  time.Time `json:"occurredAt"`
}

// Publisher holds the RabbitMQ connection and channel.
type Publisher struct {
	conn    *amqp.Connection
	channel *amqp.Channel
	logger  *zap.Logger
}

// NewPublisher connects to the broker and declares the durable order
// queue. An empty URL returns a nil publisher, which drops events.
func NewPublisher(url string, logger *zap.Logger) (*Publisher, error) {
	if url == "" {
		return nil, nil
	}

	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to rabbitmq: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to open channel: %w", err)
	}

	_, err = ch.QueueDeclare(orderQueue, true, false, false, false, nil)
	if err != nil {
		ch.Close()
		conn.Close()
		return nil, fmt.Errorf("failed to declare queue: %w", err)
	}

	logger.Info("connected to rabbitmq", zap.String("queue", orderQueue))

	return &Publisher{conn: conn, channel: ch, logger: logger}, nil
}

// Close releases the channel and connection.
func (p *Publisher) Close() error {
	if p == nil {
		return nil
	}
	if p.channel != nil {
		if err := p.channel.Close(); err != nil {
			return fmt.Errorf("failed to close channel: %w", err)
		}
	}
	if p.conn != nil {
		if err := p.conn.Close(); err != nil {
			return fmt.Errorf("failed to close connection: %w", err)
		}
	}
	return nil
}

// OrderCreated publishes an order.created event.
func (p *Publisher) OrderCreated(order *domain.Order) error {
	return p.publish(EventOrderCreated, order)
}

// OrderCancelled publishes an order.cancelled event.
func (p *Publisher) OrderCancelled(order *domain.Order) error {
	return p.publish(EventOrderCancelled, order)
}

func (p *Publisher) publish(event string, order *domain.Order) error {
	if p == nil {
		return nil
	}

	body, err := json.Marshal(envelope{
		Event:       event,
		OrderID:     order.ID.String(),
		OrderNumber: order.OrderNumber,
		UserID:      order.UserID.String(),
		FinalAmount: order.Amounts.FinalAmount,
		Status:      string(order.Status),
		OccurredAt:  time.Now(),
	})
	if err != nil {
		return fmt.Errorf("failed to encode event: %w", err)
	}

	err = p.channel.Publish("", orderQueue, false, false, amqp.Publishing{
		ContentType:  "application/json",
		Body:         body,
		DeliveryMode: amqp.Persistent,
		Timestamp:    time.Now(),
	})
	if err != nil {
		return fmt.Errorf("failed to publish event: %w", err)
	}

	p.logger.Debug("published order event",
		zap.String("event", event),
		zap.String("order_number", order.OrderNumber))

	return nil
}
