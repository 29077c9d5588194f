package events

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.uber.org/zap/zaptest"

	"github.com/operationseasyfi/ai-voice-agent/internal/infrastructure/config"
)

type fakeChannel struct {
	confirms   chan amqp.Confirmation
	published  []published
	ack        bool
	publishErr error
	confirmed  bool
	closed     bool
}

type published struct {
	exchange string
	key      string
	msg      amqp.Publishing
}

func (c *fakeChannel) Confirm(noWait bool) error {
	c.confirmed = true
	return nil
}

func (c *fakeChannel) NotifyPublish(confirm chan amqp.Confirmation) chan amqp.Confirmation {
	c.confirms = confirm
	return confirm
}

func (c *fakeChannel) PublishWithContext(_ context.Context, exchange, key string, _, _ bool, msg amqp.Publishing) error {
	if c.publishErr != nil {
		return c.publishErr
	}
	c.published = append(c.published, published{exchange: exchange, key: key, msg: msg})
	c.confirms <- amqp.Confirmation{DeliveryTag: uint64(len(c.published)), Ack: c.ack}
	return nil
}

func (c *fakeChannel) Close() error {
	c.closed = true
	return nil
}

func newTestPublisher(t *testing.T, ch *fakeChannel) *AMQPPublisher {
	t.Helper()
	open := func() (Channel, error) { return ch, nil }
	return newPublisher(open, nil, "intake.events", "ai-voice-agent", zaptest.NewLogger(t))
}

func TestAMQPPublisher_Publish(t *testing.T) {
	t.Run("envelope and headers", func(t *testing.T) {
		ch := &fakeChannel{ack: true}
		p := newTestPublisher(t, ch)

		data := map[string]any{"record_id": "rec-1", "total_debt": 30000}
		require.NoError(t, p.Publish(context.Background(), "call_record.created.v1", data))

		require.Len(t, ch.published, 1)
		got := ch.published[0]
		assert.Equal(t, "intake.events", got.exchange)
		assert.Equal(t, "call_record.created.v1", got.key)
		assert.Equal(t, "application/json", got.msg.ContentType)
		assert.Equal(t, amqp.Persistent, got.msg.DeliveryMode)
		assert.Equal(t, "call_record.created.v1", got.msg.Type)
		assert.Equal(t, "ai-voice-agent", got.msg.AppId)
		assert.True(t, ch.confirmed)
		assert.True(t, ch.closed)

		var env struct {
			Meta struct {
				ID            string  `json:"id"`
				Type          string  `json:"type"`
				Producer      string  `json:"producer"`
				CorrelationID *string `json:"correlation_id"`
			} `json:"meta"`
			Data map[string]any `json:"data"`
		}
		require.NoError(t, json.Unmarshal(got.msg.Body, &env))
		assert.Equal(t, got.msg.MessageId, env.Meta.ID)
		assert.Equal(t, env.Meta.ID, got.msg.CorrelationId)
		assert.Nil(t, env.Meta.CorrelationID)
		assert.Equal(t, "ai-voice-agent", env.Meta.Producer)
		assert.Equal(t, "rec-1", env.Data["record_id"])
	})

	t.Run("trace id becomes correlation id", func(t *testing.T) {
		tp := trace.NewTracerProvider(trace.WithSpanProcessor(tracetest.NewSpanRecorder()))
		ctx, span := tp.Tracer("test").Start(context.Background(), "finalize")
		defer span.End()

		ch := &fakeChannel{ack: true}
		p := newTestPublisher(t, ch)
		require.NoError(t, p.Publish(ctx, "call_record.created.v1", struct{}{}))

		assert.Equal(t, span.SpanContext().TraceID().String(), ch.published[0].msg.CorrelationId)
	})

	t.Run("nack", func(t *testing.T) {
		ch := &fakeChannel{ack: false}
		p := newTestPublisher(t, ch)
		err := p.Publish(context.Background(), "call_record.created.v1", struct{}{})
		assert.ErrorIs(t, err, ErrNack)
	})

	t.Run("publish failure", func(t *testing.T) {
		ch := &fakeChannel{publishErr: amqp.ErrClosed}
		p := newTestPublisher(t, ch)
		err := p.Publish(context.Background(), "call_record.created.v1", struct{}{})
		assert.ErrorIs(t, err, amqp.ErrClosed)
		assert.True(t, ch.closed)
	})

	t.Run("channel unavailable", func(t *testing.T) {
		open := func() (Channel, error) { return nil, errors.New("connection closed") }
		p := newPublisher(open, nil, "intake.events", "", zaptest.NewLogger(t))
		assert.Error(t, p.Publish(context.Background(), "call_record.created.v1", struct{}{}))
		assert.NoError(t, p.Close())
	})

	t.Run("envelope without id", func(t *testing.T) {
		p := newTestPublisher(t, &fakeChannel{ack: true})
		assert.Error(t, p.PublishEnvelope(context.Background(), "k", Envelope{}))
	})
}

func TestNewAMQPPublisher_RequiresConfig(t *testing.T) {
	_, err := NewAMQPPublisher(configWith("", "x"), "p", zaptest.NewLogger(t))
	assert.Error(t, err)
	_, err = NewAMQPPublisher(configWith("amqp://localhost", ""), "p", zaptest.NewLogger(t))
	assert.Error(t, err)
}

func configWith(url, exchange string) config.AMQPConfig {
	return config.AMQPConfig{URL: url, Exchange: exchange}
}
