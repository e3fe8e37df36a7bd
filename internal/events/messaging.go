package events

import (
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

const (
	EventsExchange               = "ecommerce.events"
	ReservationChangedRoutingKey = "reservation.changed.v1"
	CatalogStockSetRoutingKey    = "catalog.stock.set.v1"
	ServiceName                  = "basket-service-go"
)

func serviceQueue(serviceName, routingKey string) string {
	return serviceName + "." + routingKey
}

// QueueName is the durable queue this service binds for a routing key.
func QueueName(routingKey string) string {
	return serviceQueue(ServiceName, routingKey)
}

func declareEventsExchange(ch *amqp.Channel) error {
	return ch.ExchangeDeclare(
		EventsExchange,
		"topic",
		true,
		false,
		false,
		false,
		nil,
	)
}

// Dial connects to RabbitMQ, retrying while the broker starts up.
func Dial(url string, attempts int, backoff time.Duration) (*amqp.Connection, error) {
	if attempts < 1 {
		attempts = 1
	}
	var lastErr error
	for i := 0; i < attempts; i++ {
		conn, err := amqp.Dial(url)
		if err == nil {
			return conn, nil
		}
		lastErr = err
		if i < attempts-1 {
			time.Sleep(backoff)
		}
	}
	return nil, fmt.Errorf("connect to RabbitMQ: %w", lastErr)
}
