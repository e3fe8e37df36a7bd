package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/andreasstove999/ecommerce-system/services/basket-service-go/internal/middleware"
	"github.com/andreasstove999/ecommerce-system/services/basket-service-go/internal/reservation"
)

// Channel is the part of *amqp.Channel the publisher needs.
type Channel interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	Close() error
}

type Sequencer interface {
	NextSequence(ctx context.Context, partitionKey string) (int64, error)
}

// Publisher emits reservation.changed.v1 events, one sequence per user.
type Publisher struct {
	ch       Channel
	seq      Sequencer
	producer string
	timeout  time.Duration
	now      func() time.Time
}

func NewPublisher(conn *amqp.Connection, seq Sequencer) (*Publisher, error) {
	ch, err := conn.Channel()
	if err != nil {
		return nil, fmt.Errorf("open channel: %w", err)
	}
	if err := declareEventsExchange(ch); err != nil {
		_ = ch.Close()
		return nil, fmt.Errorf("declare events exchange: %w", err)
	}
	return newPublisher(ch, seq), nil
}

func newPublisher(ch Channel, seq Sequencer) *Publisher {
	return &Publisher{
		ch:       ch,
		seq:      seq,
		producer: ServiceName,
		timeout:  3 * time.Second,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

func (p *Publisher) Close() error {
	return p.ch.Close()
}

// ReservationChanged implements reservation.Notifier.
func (p *Publisher) ReservationChanged(ctx context.Context, change reservation.Change) error {
	seq, err := p.seq.NextSequence(ctx, change.UserID)
	if err != nil {
		return fmt.Errorf("reserve sequence: %w", err)
	}

	ev := newReservationChangedEvent(middleware.GetCorrelationID(ctx), seq, p.producer, change, p.now())
	body, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal ReservationChanged envelope: %w", err)
	}
	return p.publishJSON(ctx, ReservationChangedRoutingKey, body)
}

func (p *Publisher) publishJSON(ctx context.Context, routingKey string, body []byte) error {
	pubCtx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	return p.ch.PublishWithContext(
		pubCtx,
		EventsExchange,
		routingKey,
		false,
		false,
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			Body:         body,
		},
	)
}

func newReservationChangedEvent(correlationID string, seq int64, producer string, change reservation.Change, occurredAt time.Time) ReservationChangedEvent {
	if correlationID == "" {
		correlationID = uuid.NewString()
	}
	payload := ReservationChangedPayload{
		UserID:    change.UserID,
		Action:    string(change.Action),
		Lines:     make([]ReservationLine, 0, len(change.Lines)),
		Timestamp: occurredAt,
	}
	for _, ln := range change.Lines {
		payload.Lines = append(payload.Lines, ReservationLine{
			ProductID:  ln.ProductID,
			Held:       ln.Held,
			StockDelta: ln.StockDelta,
		})
	}
	return ReservationChangedEvent{
		EventEnvelope: EventEnvelope{
			EventName:     EventTypeReservationChanged,
			EventVersion:  1,
			EventID:       uuid.NewString(),
			CorrelationID: correlationID,
			Producer:      producer,
			PartitionKey:  change.UserID,
			Sequence:      seq,
			OccurredAt:    occurredAt,
			Schema:        reservationChangedSchema,
		},
		Payload: payload,
	}
}
