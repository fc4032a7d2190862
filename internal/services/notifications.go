package services

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/IGIHOZO/E-GURA-2025-sub003/internal/logger"
	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

type OutboxConfig struct {
	URL               string
	NotificationQueue string
	PaymentCheckQueue string
	DelayExchange     string
	RestockQueue      string
}

// NotificationOutbox persists notification and follow-up intents to durable
// queues so a crash between a state transition and its side effects doesn't
// silently drop them. Publishing failures are the caller's to log, never to
// propagate: the reconciliation transaction commits independently.
type NotificationOutbox struct {
	conn    *amqp.Connection
	channel *amqp.Channel
	config  OutboxConfig
}

// NotificationIntent is an SMS or admin message waiting for a delivery
// worker.
type NotificationIntent struct {
	Channel   string `json:"channel"`
	Recipient string `json:"recipient,omitempty"`
	Message   string `json:"message"`
}

// PaymentCheckIntent asks for a verification poll of a payment attempt whose
// callback may have been lost.
type PaymentCheckIntent struct {
	TransactionID string `json:"transactionId"`
}

// RestockIntent asks for the stock of a cancelled order to be restored.
type RestockIntent struct {
	OrderID string `json:"orderId"`
}

func NewNotificationOutbox(config OutboxConfig) (*NotificationOutbox, error) {
	conn, err := amqp.Dial(config.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to the message broker: %w", err)
	}

	channel, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to open a channel: %w", err)
	}

	outbox := &NotificationOutbox{
		conn:    conn,
		channel: channel,
		config:  config,
	}

	if err := outbox.setupQueues(); err != nil {
		outbox.Close()
		return nil, err
	}

	return outbox, nil
}

func (n *NotificationOutbox) setupQueues() error {
	for _, queue := range []string{n.config.NotificationQueue, n.config.RestockQueue} {
		if _, err := n.channel.QueueDeclare(
			queue,
			true,  // durable
			false, // auto-delete
			false, // exclusive
			false, // no-wait
			nil,
		); err != nil {
			return fmt.Errorf("failed to declare queue %s: %w", queue, err)
		}
	}

	// Delayed exchange requires the broker's delayed-message plugin.
	if err := n.channel.ExchangeDeclare(
		n.config.DelayExchange,
		"x-delayed-message",
		true,  // durable
		false, // auto-delete
		false, // internal
		false, // no-wait
		amqp.Table{"x-delayed-type": "direct"},
	); err != nil {
		return fmt.Errorf("failed to declare delay exchange: %w", err)
	}

	if _, err := n.channel.QueueDeclare(
		n.config.PaymentCheckQueue,
		true,  // durable
		false, // auto-delete
		false, // exclusive
		false, // no-wait
		nil,
	); err != nil {
		return fmt.Errorf("failed to declare payment check queue: %w", err)
	}

	if err := n.channel.QueueBind(
		n.config.PaymentCheckQueue,
		n.config.PaymentCheckQueue,
		n.config.DelayExchange,
		false,
		nil,
	); err != nil {
		return fmt.Errorf("failed to bind payment check queue: %w", err)
	}

	return nil
}

func (n *NotificationOutbox) publish(ctx context.Context, exchange, key string, body interface{}, headers amqp.Table) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("failed to marshal intent: %w", err)
	}

	return n.channel.PublishWithContext(ctx,
		exchange,
		key,
		false, // mandatory
		false, // immediate
		amqp.Publishing{
			DeliveryMode: amqp.Persistent,
			Timestamp:    time.Now(),
			ContentType:  "application/json",
			Body:         payload,
			Headers:      headers,
		},
	)
}

// PublishCustomerSMS enqueues an SMS intent for the customer.
func (n *NotificationOutbox) PublishCustomerSMS(ctx context.Context, phoneNumber, message string) error {
	return n.publish(ctx, "", n.config.NotificationQueue, NotificationIntent{
		Channel:   "sms",
		Recipient: phoneNumber,
		Message:   message,
	}, nil)
}

// PublishAdminAlert enqueues a notification intent for the back office.
func (n *NotificationOutbox) PublishAdminAlert(ctx context.Context, message string) error {
	return n.publish(ctx, "", n.config.NotificationQueue, NotificationIntent{
		Channel: "admin",
		Message: message,
	}, nil)
}

// PublishPaymentCheck schedules a delayed verification poll for a payment
// attempt, compensating for a lost gateway callback.
func (n *NotificationOutbox) PublishPaymentCheck(ctx context.Context, transactionID string, delay time.Duration) error {
	return n.publish(ctx, n.config.DelayExchange, n.config.PaymentCheckQueue, PaymentCheckIntent{
		TransactionID: transactionID,
	}, amqp.Table{"x-delay": delay.Milliseconds()})
}

// PublishRestock enqueues a stock-restoration intent for a cancelled order.
func (n *NotificationOutbox) PublishRestock(ctx context.Context, orderID string) error {
	return n.publish(ctx, "", n.config.RestockQueue, RestockIntent{OrderID: orderID}, nil)
}

// ConsumePaymentChecks delivers due payment-check intents to handle until
// the context is cancelled.
func (n *NotificationOutbox) ConsumePaymentChecks(ctx context.Context, handle func(transactionID string)) error {
	deliveries, err := n.channel.Consume(
		n.config.PaymentCheckQueue,
		"",    // consumer tag
		false, // auto-ack
		false, // exclusive
		false, // no-local
		false, // no-wait
		nil,
	)
	if err != nil {
		return fmt.Errorf("failed to consume payment checks: %w", err)
	}

	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case delivery, ok := <-deliveries:
				if !ok {
					return
				}

				var intent PaymentCheckIntent
				if err := json.Unmarshal(delivery.Body, &intent); err != nil {
					logger.Log.Error("failed to unmarshal payment check intent", zap.Error(err))
					delivery.Nack(false, false)
					continue
				}

				handle(intent.TransactionID)
				delivery.Ack(false)
			}
		}
	}()

	return nil
}

// Close closes the channel and the broker connection.
func (n *NotificationOutbox) Close() {
	if n.channel != nil {
		n.channel.Close()
	}
	if n.conn != nil {
		n.conn.Close()
	}
}
