package amqp

import (
	"context"
	"errors"
	"fmt"

	"github.com/rabbitmq/amqp091-go"

	"expense-tracker/internal/log"
)

// ConsumerOptions configures a Consumer.
type ConsumerOptions struct {
	Exchange   string
	RoutingKey string
	Queue      string
}

// Consumer receives ledger change events from a durable queue bound to the
// events exchange.
type Consumer struct {
	conn         *amqp091.Connection
	channel      *amqp091.Channel
	exchangeName string
	routingKey   string
	queueName    string
}

// EventHandler processes one event. A returned error requeues the message.
type EventHandler func(ctx context.Context, ev *ExpenseEvent) error

func NewConsumer(url string, opts ConsumerOptions) (*Consumer, error) {
	conn, err := amqp091.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("dial AMQP: %w", err)
	}

	channel, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}

	c := &Consumer{
		conn:         conn,
		channel:      channel,
		exchangeName: opts.Exchange,
		routingKey:   opts.RoutingKey,
		queueName:    opts.Queue,
	}
	if err := c.setup(); err != nil {
		c.Close()
		return nil, fmt.Errorf("setup exchange and queue: %w", err)
	}
	return c, nil
}

func (c *Consumer) setup() error {
	err := c.channel.ExchangeDeclare(
		c.exchangeName, // name
		"direct",       // type
		true,           // durable
		false,          // auto-deleted
		false,          // internal
		false,          // no-wait
		nil,            // arguments
	)
	if err != nil {
		return fmt.Errorf("declare exchange: %w", err)
	}

	_, err = c.channel.QueueDeclare(
		c.queueName, // name
		true,        // durable
		false,       // delete when unused
		false,       // exclusive
		false,       // no-wait
		nil,         // arguments
	)
	if err != nil {
		return fmt.Errorf("declare queue: %w", err)
	}

	err = c.channel.QueueBind(
		c.queueName,    // queue name
		c.routingKey,   // routing key
		c.exchangeName, // exchange
		false,
		nil,
	)
	if err != nil {
		return fmt.Errorf("bind queue: %w", err)
	}

	// One unacknowledged event at a time keeps exports serialized.
	if err := c.channel.Qos(1, 0, false); err != nil {
		return fmt.Errorf("set prefetch: %w", err)
	}
	return nil
}

// Consume delivers events to handler until ctx is cancelled or the broker
// closes the channel.
func (c *Consumer) Consume(ctx context.Context, handler EventHandler) error {
	msgs, err := c.channel.Consume(
		c.queueName, // queue
		"",          // consumer
		false,       // auto-ack (we want manual ack)
		false,       // exclusive
		false,       // no-local
		false,       // no-wait
		nil,         // args
	)
	if err != nil {
		return fmt.Errorf("start consuming: %w", err)
	}

	logger().InfoContext(ctx, "Started consuming expense events", "queue", c.queueName)
	return consumeDeliveries(ctx, msgs, handler)
}

var errChannelClosed = errors.New("message channel closed")

func consumeDeliveries(ctx context.Context, msgs <-chan amqp091.Delivery, handler EventHandler) error {
	for {
		select {
		case <-ctx.Done():
			logger().InfoContext(ctx, "Stopping message consumption", "reason", ctx.Err())
			return ctx.Err()
		case delivery, ok := <-msgs:
			if !ok {
				return errChannelClosed
			}
			handleDelivery(ctx, delivery, handler)
		}
	}
}

func handleDelivery(ctx context.Context, delivery amqp091.Delivery, handler EventHandler) {
	ev, err := ExpenseEventFromJSON(delivery.Body)
	if err != nil {
		logger().ErrorContext(ctx, "Failed to unmarshal message", log.FieldError, err, "message_id", delivery.MessageId)
		if err := delivery.Nack(false, false); err != nil {
			logger().WarnContext(ctx, "Failed to reject message", log.FieldError, err)
		}
		return
	}

	if err := handler(ctx, ev); err != nil {
		logger().ErrorContext(ctx, "Failed to handle message",
			log.FieldError, err,
			"type", ev.Type,
			"id", ev.ExpenseID)
		if err := delivery.Nack(false, true); err != nil {
			logger().WarnContext(ctx, "Failed to requeue message", log.FieldError, err)
		}
		return
	}

	if err := delivery.Ack(false); err != nil {
		logger().WarnContext(ctx, "Failed to acknowledge message", log.FieldError, err)
		return
	}
	logger().DebugContext(ctx, "Processed expense event",
		"type", ev.Type,
		"id", ev.ExpenseID)
}

func (c *Consumer) Close() error {
	if c.channel != nil {
		c.channel.Close()
	}
	if c.conn != nil {
		return c.conn.Close()
	}
	return nil
}
