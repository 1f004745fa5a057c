package mq

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
)

// ExchangeEvents receives every domain event; the event type is the routing key
const ExchangeEvents = "postpilot.events"

var ErrNoChannel = errors.New("amqp channel unavailable")

// Message is the envelope every event is wrapped in
type Message struct {
	ID        string    `json:"id"`
	Type      string    `json:"type"`
	Payload   any       `json:"payload"`
	Timestamp time.Time `json:"timestamp"`
}

type publishChannel interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
}

// Publisher publishes domain events to the events exchange
type Publisher struct {
	channel func() publishChannel
	now     func() time.Time
}

// NewPublisher creates a publisher over conn
func NewPublisher(conn *Connection) *Publisher {
	return &Publisher{
		channel: func() publishChannel {
			if ch := conn.Channel(); ch != nil {
				return ch
			}
			return nil
		},
		now: time.Now,
	}
}

// Publish wraps payload in a Message and publishes it persistently
func (p *Publisher) Publish(ctx context.Context, eventType string, payload any) error {
	msg := Message{
		ID:        uuid.NewString(),
		Type:      eventType,
		Payload:   payload,
		Timestamp: p.now().UTC(),
	}

	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("encoding event %s: %w", eventType, err)
	}

	ch := p.channel()
	if ch == nil {
		return ErrNoChannel
	}

	err = ch.PublishWithContext(ctx,
		ExchangeEvents, // exchange
		eventType,      // routing key
		false,          // mandatory
		false,          // immediate
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			MessageId:    msg.ID,
			Timestamp:    msg.Timestamp,
			Type:         eventType,
			Body:         body,
		},
	)
	if err != nil {
		return fmt.Errorf("publishing event %s: %w", eventType, err)
	}

	return nil
}
