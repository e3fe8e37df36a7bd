package events

import (
	"context"
	"errors"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/rs/zerolog"
)

// HandlerFunc processes one message body. Returning an error NACKs the
// message; it is requeued only when the error is marked with Retryable.
type HandlerFunc func(ctx context.Context, body []byte) error

const defaultRetryDelay = time.Second

type retryableError struct {
	err error
}

func (e retryableError) Error() string { return e.err.Error() }
func (e retryableError) Unwrap() error { return e.err }

// Retryable marks err as transient. The consumer puts the message back on the
// queue instead of dropping it.
func Retryable(err error) error {
	if err == nil {
		return nil
	}
	return retryableError{err: err}
}

func IsRetryable(err error) bool {
	var r retryableError
	return errors.As(err, &r)
}

type acknowledger interface {
	Ack(multiple bool) error
	Nack(multiple, requeue bool) error
}

// Consumer feeds one durable queue bound to the events exchange into a handler.
type Consumer struct {
	ch      *amqp.Channel
	queue   string
	handler HandlerFunc
	logger  zerolog.Logger

	retryDelay time.Duration
}

func NewConsumer(conn *amqp.Connection, routingKey string, handler HandlerFunc, logger zerolog.Logger) (*Consumer, error) {
	ch, err := conn.Channel()
	if err != nil {
		return nil, fmt.Errorf("open channel: %w", err)
	}
	if err := declareEventsExchange(ch); err != nil {
		_ = ch.Close()
		return nil, fmt.Errorf("declare events exchange: %w", err)
	}

	queue := QueueName(routingKey)
	if _, err := ch.QueueDeclare(
		queue,
		true,  // durable
		false, // autoDelete
		false, // exclusive
		false, // noWait
		nil,
	); err != nil {
		_ = ch.Close()
		return nil, fmt.Errorf("queue declare: %w", err)
	}
	if err := ch.QueueBind(queue, routingKey, EventsExchange, false, nil); err != nil {
		_ = ch.Close()
		return nil, fmt.Errorf("queue bind: %w", err)
	}
	if err := ch.Qos(16, 0, false); err != nil {
		_ = ch.Close()
		return nil, fmt.Errorf("qos: %w", err)
	}

	return &Consumer{
		ch:      ch,
		queue:   queue,
		handler:    handler,
		logger:     logger.With().Str("queue", queue).Logger(),
		retryDelay: defaultRetryDelay,
	}, nil
}

// Run consumes until ctx is cancelled or the broker closes the channel.
func (c *Consumer) Run(ctx context.Context) error {
	msgs, err := c.ch.Consume(
		c.queue,
		ServiceName, // consumer tag
		false,       // autoAck
		false,
		false,
		false,
		nil,
	)
	if err != nil {
		return fmt.Errorf("consume: %w", err)
	}

	c.logger.Info().Msg("consumer started")
	for {
		select {
		case <-ctx.Done():
			c.logger.Info().Msg("stopping consumer")
			_ = c.ch.Close()
			return nil
		case msg, ok := <-msgs:
			if !ok {
				return fmt.Errorf("messages channel closed for %s", c.queue)
			}
			c.deliver(ctx, msg.Body, &msg)
		}
	}
}

func (c *Consumer) deliver(ctx context.Context, body []byte, ack acknowledger) {
	err := c.handler(ctx, body)
	if err == nil {
		_ = ack.Ack(false)
		return
	}
	if !IsRetryable(err) {
		c.logger.Error().Err(err).Msg("handle message, dropping")
		_ = ack.Nack(false, false)
		return
	}

	c.logger.Warn().Err(err).Dur("retry_in", c.retryDelay).Msg("handle message, requeueing")
	// hold the slot briefly so a failing store is not hammered
	t := time.NewTimer(c.retryDelay)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
	_ = ack.Nack(false, true)
}
