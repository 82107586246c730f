// Package messaging provides event publishing over AMQP and the live
// activity websocket feed.
package messaging

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/clubifyhq/checkout-go/internal/domain/events"
	"github.com/clubifyhq/checkout-go/internal/infrastructure/observability/logging"
	"github.com/clubifyhq/checkout-go/pkg/config"
)

// EventPublisher is the outbound event contract. The no-op implementation
// backs deployments without a broker.
type EventPublisher interface {
	Publish(ctx context.Context, event events.Event) error
	Close() error
}

// AMQPPublisher publishes checkout events onto a topic exchange. Routing keys
// are the event names (cart.created, order.paid, ...), so consumers bind with
// patterns like "order.*".
type AMQPPublisher struct {
	conn   *amqp.Connection
	ch     *amqp.Channel
	logger *logging.ChanneledLogger
}

// NewAMQPPublisher connects to the broker and declares the events exchange
// so publish never fails due to missing infra.
func NewAMQPPublisher(logger *logging.ChanneledLogger) (*AMQPPublisher, error) {
	conn, err := amqp.Dial(config.AMQPURL)
	if err != nil {
		return nil, fmt.Errorf("amqp dial: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}

	if err := ch.ExchangeDeclare(
		config.AMQPExchange,
		"topic",
		true,  // durable
		false, // auto-delete
		false, // internal
		false, // no-wait
		nil,
	); err != nil {
		ch.Close()
		conn.Close()
		return nil, fmt.Errorf("declare exchange %s: %w", config.AMQPExchange, err)
	}

	logger.Events().Info("AMQP publisher connected", "exchange", config.AMQPExchange)
	return &AMQPPublisher{conn: conn, ch: ch, logger: logger}, nil
}

// Publish sends an event envelope with its name as the routing key.
func (p *AMQPPublisher) Publish(ctx context.Context, event events.Event) error {
	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal event %s: %w", event.Name, err)
	}

	pubCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	err = p.ch.PublishWithContext(
		pubCtx,
		config.AMQPExchange,
		event.Name,
		false,
		false,
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			MessageId:    event.ID,
			Timestamp:    event.OccurredAt,
			Body:         body,
		},
	)
	if err != nil {
		p.logger.Events().Error("Event publish failed", "event", event.Name, "tenantId", event.OrganizationID, "error", err.Error())
		return fmt.Errorf("publish %s: %w", event.Name, err)
	}

	p.logger.Events().Debug("Event published", "event", event.Name, "eventId", event.ID, "tenantId", event.OrganizationID)
	return nil
}

func (p *AMQPPublisher) Close() error {
	if p.ch != nil {
		p.ch.Close()
	}
	if p.conn != nil {
		return p.conn.Close()
	}
	return nil
}

// NoopPublisher drops events. Used when AMQP is disabled by configuration.
type NoopPublisher struct{}

func (NoopPublisher) Publish(ctx context.Context, event events.Event) error { return nil }
func (NoopPublisher) Close() error                                          { return nil }
