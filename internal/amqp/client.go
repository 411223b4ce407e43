package amqp

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rabbitmq/amqp091-go"
	"github.com/sony/gobreaker"

	"expense-tracker/internal/log"
)

func logger() *log.Logger { return log.ForComponent(log.ComponentAMQP) }

const (
	defaultPublishTimeout = 5 * time.Second
	maxFailures           = 3
	openTimeout           = 30 * time.Second
)

// Options configures a Publisher.
type Options struct {
	Exchange       string
	RoutingKey     string
	PublishTimeout time.Duration
}

// Publisher sends ledger change events to a durable direct exchange.
type Publisher struct {
	conn         *amqp091.Connection
	channel      *amqp091.Channel
	exchangeName string
	routingKey   string
	timeout      time.Duration
	breaker      *gobreaker.CircuitBreaker

	// publish is the transport; tests replace it.
	publish func(ctx context.Context, msg amqp091.Publishing) error
}

func NewPublisher(url string, opts Options) (*Publisher, error) {
	conn, err := amqp091.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("dial AMQP: %w", err)
	}

	channel, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}

	p := newPublisher(opts, nil)
	p.conn = conn
	p.channel = channel
	p.publish = p.publishToChannel

	if err := p.setup(); err != nil {
		p.Close()
		return nil, fmt.Errorf("setup exchange: %w", err)
	}

	return p, nil
}

func newPublisher(opts Options, publish func(context.Context, amqp091.Publishing) error) *Publisher {
	timeout := opts.PublishTimeout
	if timeout <= 0 {
		timeout = defaultPublishTimeout
	}
	p := &Publisher{
		exchangeName: opts.Exchange,
		routingKey:   opts.RoutingKey,
		timeout:      timeout,
		publish:      publish,
	}
	p.breaker = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:    "amqp-publisher",
		Timeout: openTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= maxFailures
		},
		// A caller giving up is not a broker failure.
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, context.Canceled)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger().Warn("AMQP circuit breaker state changed", "breaker", name, "from", from.String(), "to", to.String())
		},
	})
	return p
}

func (p *Publisher) setup() error {
	err := p.channel.ExchangeDeclare(
		p.exchangeName, // name
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
	return nil
}

func (p *Publisher) publishToChannel(ctx context.Context, msg amqp091.Publishing) error {
	return p.channel.PublishWithContext(
		ctx,
		p.exchangeName, // exchange
		p.routingKey,   // routing key
		false,          // mandatory
		false,          // immediate
		msg,
	)
}

// PublishExpenseEvent publishes ev as a persistent JSON message. It fails fast
// with gobreaker.ErrOpenState after repeated broker failures.
func (p *Publisher) PublishExpenseEvent(ctx context.Context, ev *ExpenseEvent) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	body, err := ev.ToJSON()
	if err != nil {
		return fmt.Errorf("marshal message: %w", err)
	}

	msg := amqp091.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp091.Persistent,
		MessageId:    uuid.NewString(),
		Type:         string(ev.Type),
		Timestamp:    time.Now(),
		Body:         body,
	}

	_, err = p.breaker.Execute(func() (any, error) {
		ctx, cancel := context.WithTimeout(ctx, p.timeout)
		defer cancel()
		return nil, p.publish(ctx, msg)
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return fmt.Errorf("circuit breaker is open: %w", err)
		}
		if isConnectionError(err) {
			logger().WarnContext(ctx, "AMQP connection lost", "exchange", p.exchangeName, "error", err)
		}
		return fmt.Errorf("publish message: %w", err)
	}

	logger().DebugContext(ctx, "Published expense event",
		"type", ev.Type,
		"id", ev.ExpenseID,
		"message_id", msg.MessageId,
		"exchange", p.exchangeName,
		"routing_key", p.routingKey)

	return nil
}

// isConnectionError reports whether err looks like a dropped broker connection.
func isConnectionError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, amqp091.ErrClosed) {
		return true
	}
	msg := err.Error()
	for _, s := range []string{"connection", "EOF", "broken pipe"} {
		if strings.Contains(msg, s) {
			return true
		}
	}
	return false
}

// Healthy reports whether the publisher can currently accept messages.
func (p *Publisher) Healthy() bool {
	if p.breaker.State() == gobreaker.StateOpen {
		return false
	}
	if p.conn != nil && p.conn.IsClosed() {
		return false
	}
	return true
}

func (p *Publisher) Close() error {
	if p.channel != nil {
		p.channel.Close()
	}
	if p.conn != nil {
		return p.conn.Close()
	}
	return nil
}
