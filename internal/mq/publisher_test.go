package mq

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeChannel struct {
	exchange string
	key      string
	msg      amqp.Publishing
	err      error
}

func (f *fakeChannel) PublishWithContext(_ context.Context, exchange, key string, _, _ bool, msg amqp.Publishing) error {
	f.exchange, f.key, f.msg = exchange, key, msg
	return f.err
}

func newTestPublisher(ch publishChannel) *Publisher {
	return &Publisher{
		channel: func() publishChannel { return ch },
		now:     func() time.Time { return time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC) },
	}
}

func TestPublisher_Publish(t *testing.T) {
	ch := &fakeChannel{}
	p := newTestPublisher(ch)

	err := p.Publish(context.Background(), "scheduled_post.published", map[string]string{"scheduled_post_id": "sp-1"})
	require.NoError(t, err)

	assert.Equal(t, ExchangeEvents, ch.exchange)
	assert.Equal(t, "scheduled_post.published", ch.key)
	assert.Equal(t, amqp.Persistent, ch.msg.DeliveryMode)
	assert.Equal(t, "application/json", ch.msg.ContentType)

	var got struct {
		ID        string            `json:"id"`
		Type      string            `json:"type"`
		Payload   map[string]string `json:"payload"`
		Timestamp time.Time         `json:"timestamp"`
	}
	require.NoError(t, json.Unmarshal(ch.msg.Body, &got))
	assert.Equal(t, ch.msg.MessageId, got.ID)
	assert.NotEmpty(t, got.ID)
	assert.Equal(t, "scheduled_post.published", got.Type)
	assert.Equal(t, "sp-1", got.Payload["scheduled_post_id"])
	assert.True(t, got.Timestamp.Equal(time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC)))
}

func TestPublisher_Publish_Errors(t *testing.T) {
	err := newTestPublisher(nil).Publish(context.Background(), "post.scheduled", nil)
	assert.ErrorIs(t, err, ErrNoChannel)

	boom := errors.New("channel closed")
	err = newTestPublisher(&fakeChannel{err: boom}).Publish(context.Background(), "post.scheduled", nil)
	assert.ErrorIs(t, err, boom)
}
