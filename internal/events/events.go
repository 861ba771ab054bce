package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"

	applog "restrodesk/internal/log"
)

const (
	// ExchangeName is the topic exchange kitchen displays subscribe to.
	ExchangeName = "restrodesk.kitchen"
	ExchangeType = "topic"
)

// Event is the envelope published for every committed mutation the
// kitchen cares about. Events are emitted only after the mutation has
// committed; publishing is best-effort and never holds a lock.
type Event struct {
	ID         string         `json:"id"`
	Kind       string         `json:"kind"`
	Reference  string         `json:"reference"`
	Detail     map[string]any `json:"detail,omitempty"`
	OccurredAt time.Time      `json:"occurred_at"`
}

// Publisher pushes events to the kitchen exchange. A nil *Publisher is
// valid and drops every event, so callers never need to branch on
// whether messaging is configured.
type Publisher struct {
	ch *amqp.Channel
}

// SetupConn dials RabbitMQ with startup retries and declares the
// kitchen topic exchange.
func SetupConn(url string) (*amqp.Connection, *amqp.Channel, error) {
	var conn *amqp.Connection
	var err error

	for attempt := 1; attempt <= 5; attempt++ {
		conn, err = amqp.Dial(url)
		if err == nil {
			break
		}
		applog.Warn(context.Background(), "rabbitmq connect failed", "attempt", attempt, "error", err)
		time.Sleep(2 * time.Second)
	}
	if err != nil {
		return nil, nil, fmt.Errorf("connect to rabbitmq: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		return nil, nil, fmt.Errorf("open channel: %w", err)
	}

	if err := ch.ExchangeDeclare(ExchangeName, ExchangeType, true, false, false, false, nil); err != nil {
		return nil, nil, fmt.Errorf("declare exchange: %w", err)
	}

	return conn, ch, nil
}

// NewPublisher wraps an open channel.
func NewPublisher(ch *amqp.Channel) *Publisher {
	return &Publisher{ch: ch}
}

func (p *Publisher) publish(ctx context.Context, routingKey string, event Event) {
	if p == nil || p.ch == nil {
		return
	}

	body, err := json.Marshal(event)
	if err != nil {
		applog.Error(ctx, "failed to marshal kitchen event", "error", err, "kind", event.Kind)
		return
	}

	err = p.ch.PublishWithContext(ctx,
		ExchangeName,
		routingKey,
		false,
		false,
		amqp.Publishing{
			ContentType: "application/json",
			Body:        body,
		},
	)
	if err != nil {
		applog.Error(ctx, "failed to publish kitchen event", "error", err, "kind", event.Kind, "reference", event.Reference)
	}
}

// OrderStatusChanged announces a committed order status transition.
func (p *Publisher) OrderStatusChanged(ctx context.Context, orderNo, from, to string) {
	p.publish(ctx, fmt.Sprintf("order.%s", to), Event{
		ID:        uuid.NewString(),
		Kind:      "order.status",
		Reference: orderNo,
		Detail: map[string]any{
			"from": from,
			"to":   to,
		},
		OccurredAt: time.Now().UTC(),
	})
}

// ProductionCompleted announces a committed production run.
func (p *Publisher) ProductionCompleted(ctx context.Context, batchCode, goodName string, quantity int) {
	p.publish(ctx, "production.completed", Event{
		ID:        uuid.NewString(),
		Kind:      "production.run",
		Reference: batchCode,
		Detail: map[string]any{
			"finished_good": goodName,
			"quantity":      quantity,
		},
		OccurredAt: time.Now().UTC(),
	})
}
