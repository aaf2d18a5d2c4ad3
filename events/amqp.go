package events

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/sirupsen/logrus"
)

// Exchange is the topic exchange all POS events are published to. Routing
// keys are the event names with underscores turned into dots, e.g.
// "order.created".
const Exchange = "pos_events"

type AMQPPublisher struct {
	conn *amqp.Connection
	ch   *amqp.Channel
	mu   sync.Mutex
	log  *logrus.Logger
}

// DialAMQP connects, opens a channel and declares the exchange.
func DialAMQP(url string, log *logrus.Logger) (*AMQPPublisher, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("dial amqp: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("open amqp channel: %w", err)
	}
	if err := ch.ExchangeDeclare(Exchange, "topic", true, false, false, false, nil); err != nil {
		ch.Close()
		conn.Close()
		return nil, fmt.Errorf("declare exchange %s: %w", Exchange, err)
	}
	return &AMQPPublisher{conn: conn, ch: ch, log: log}, nil
}

// RoutingKey derives the topic routing key for an event name.
func RoutingKey(name string) string {
	return strings.ReplaceAll(name, "_", ".")
}

// Notify publishes the event as a persistent JSON message. Failures are
// logged only.
func (p *AMQPPublisher) Notify(ctx context.Context, e Event) {
	body, err := json.Marshal(e)
	if err != nil {
		p.log.WithError(err).WithField("event", e.Name).Error("marshal event")
		return
	}

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	p.mu.Lock()
	defer p.mu.Unlock()
	err = p.ch.PublishWithContext(ctx, Exchange, RoutingKey(e.Name), false, false, amqp.Publishing{
		MessageId:    uuid.NewString(),
		DeliveryMode: amqp.Persistent,
		Timestamp:    e.OccurredAt,
		ContentType:  "application/json",
		Type:         e.Name,
		Body:         body,
	})
	if err != nil {
		p.log.WithError(err).WithField("event", e.Name).Error("publish event")
	}
}

func (p *AMQPPublisher) Close() {
	if p == nil {
		return
	}
	if p.ch != nil {
		_ = p.ch.Close()
	}
	if p.conn != nil {
		_ = p.conn.Close()
	}
}
