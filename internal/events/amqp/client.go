// Package amqp publishes and consumes expense events over RabbitMQ.
package amqp

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dvloznov/expense-tracker/internal/events"
	"github.com/rabbitmq/amqp091-go"
	"github.com/rs/zerolog"
)

const publishTimeout = 5 * time.Second

// Client owns one connection and channel bound to a direct exchange and a
// durable queue.
type Client struct {
	conn     *amqp091.Connection
	channel  *amqp091.Channel
	exchange string
	queue    string
	log      zerolog.Logger
}

// Dial connects and declares the exchange, the queue and their binding.
func Dial(url, exchange, queue string, log zerolog.Logger) (*Client, error) {
	conn, err := amqp091.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("Dial: dial AMQP: %w", err)
	}

	channel, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("Dial: open channel: %w", err)
	}

	c := &Client{conn: conn, channel: channel, exchange: exchange, queue: queue, log: log}
	if err := c.setup(); err != nil {
		c.Close()
		return nil, fmt.Errorf("Dial: %w", err)
	}
	return c, nil
}

func (c *Client) setup() error {
	if err := c.channel.ExchangeDeclare(c.exchange, "direct", true, false, false, false, nil); err != nil {
		return fmt.Errorf("declare exchange %s: %w", c.exchange, err)
	}
	if _, err := c.channel.QueueDeclare(c.queue, true, false, false, false, nil); err != nil {
		return fmt.Errorf("declare queue %s: %w", c.queue, err)
	}
	// Direct exchange: the queue name doubles as the routing key.
	if err := c.channel.QueueBind(c.queue, c.queue, c.exchange, false, nil); err != nil {
		return fmt.Errorf("bind queue %s: %w", c.queue, err)
	}
	return nil
}

// PublishExpenseRecorded sends e as a persistent JSON message.
func (c *Client) PublishExpenseRecorded(ctx context.Context, e *events.ExpenseRecorded) error {
	body, err := e.ToJSON()
	if err != nil {
		return fmt.Errorf("PublishExpenseRecorded: marshal: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()

	err = c.channel.PublishWithContext(ctx, c.exchange, c.queue, false, false, amqp091.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp091.Persistent,
		MessageId:    e.ExpenseID,
		Timestamp:    time.Now(),
		Body:         body,
	})
	if err != nil {
		return fmt.Errorf("PublishExpenseRecorded: publish: %w", err)
	}

	c.log.Debug().
		Str("expense_id", e.ExpenseID).
		Str("exchange", c.exchange).
		Str("queue", c.queue).
		Msg("published expense recorded event")
	return nil
}

// Handler processes one event. Returning an error requeues the message.
type Handler func(ctx context.Context, e *events.ExpenseRecorded) error

// Consume delivers messages to h until ctx is done or the channel closes.
// Malformed messages are dropped; handler failures are requeued.
func (c *Client) Consume(ctx context.Context, h Handler) error {
	msgs, err := c.channel.Consume(c.queue, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("Consume: start consuming: %w", err)
	}

	c.log.Info().Str("queue", c.queue).Msg("consuming expense events")

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case d, ok := <-msgs:
			if !ok {
				return ErrChannelClosed
			}
			c.handle(ctx, d, h)
		}
	}
}

func (c *Client) handle(ctx context.Context, d amqp091.Delivery, h Handler) {
	e, err := events.ExpenseRecordedFromJSON(d.Body)
	if err != nil {
		c.log.Error().Err(err).Str("message_id", d.MessageId).Msg("dropping malformed event")
		d.Nack(false, false)
		return
	}

	log := c.log.With().Str("expense_id", e.ExpenseID).Str("user_id", e.UserID).Logger()
	if err := h(ctx, e); err != nil {
		log.Error().Err(err).Msg("event handler failed, requeueing")
		d.Nack(false, true)
		return
	}
	d.Ack(false)
	log.Info().Msg("processed expense recorded event")
}

// Close closes the channel and the connection.
func (c *Client) Close() error {
	if c.channel != nil {
		c.channel.Close()
	}
	if c.conn != nil {
		return c.conn.Close()
	}
	return nil
}

// ErrChannelClosed is returned by Consume when the broker closes the
// delivery channel.
var ErrChannelClosed = errors.New("amqp delivery channel closed")

const maxBackoff = 30 * time.Second

// exponentialBackoff doubles from one second, capped at maxBackoff.
func exponentialBackoff(attempt int) time.Duration {
	if attempt >= 5 {
		return maxBackoff
	}
	d := time.Second << attempt
	if d > maxBackoff {
		return maxBackoff
	}
	return d
}

// isConnectionError reports whether err looks like a lost broker connection.
func isConnectionError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrChannelClosed) || errors.Is(err, amqp091.ErrClosed) {
		return true
	}
	msg := strings.ToLower(err.Error())
	for _, s := range []string{"connection", "eof", "broken pipe"} {
		if strings.Contains(msg, s) {
			return true
		}
	}
	return false
}

// ConsumeForever dials, consumes and redials after connection failures
// until ctx is done.
func ConsumeForever(ctx context.Context, url, exchange, queue string, log zerolog.Logger, h Handler) error {
	for attempt := 0; ; attempt++ {
		c, err := Dial(url, exchange, queue, log)
		if err == nil {
			attempt = 0
			err = c.Consume(ctx, h)
			c.Close()
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if !isConnectionError(err) {
			return err
		}

		wait := exponentialBackoff(attempt)
		log.Warn().Err(err).Dur("retry_in", wait).Msg("broker connection lost")
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(wait):
		}
	}
}
