package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/operationseasyfi/ai-voice-agent/internal/infrastructure/config"
)

// ErrNack is returned when the broker refuses a message
var ErrNack = errors.New("message was not acknowledged by the broker")

// Channel is the part of *amqp.Channel the publisher uses
type Channel interface {
	Confirm(noWait bool) error
	NotifyPublish(confirm chan amqp.Confirmation) chan amqp.Confirmation
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	Close() error
}

// AMQPPublisher publishes JSON envelopes to a durable topic exchange. Each
// publish uses its own confirm-mode channel and waits for the broker ack.
type AMQPPublisher struct {
	open     func() (Channel, error)
	conn     io.Closer
	exchange string
	producer string
	logger   *zap.Logger
}

// NewAMQPPublisher dials the broker and declares the exchange
func NewAMQPPublisher(cfg config.AMQPConfig, producer string, logger *zap.Logger) (*AMQPPublisher, error) {
	if cfg.URL == "" {
		return nil, fmt.Errorf("amqp url is required")
	}
	if cfg.Exchange == "" {
		return nil, fmt.Errorf("amqp exchange is required")
	}

	conn, err := amqp.Dial(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("dialing amqp broker: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("opening amqp channel: %w", err)
	}
	defer ch.Close()

	if err := ch.ExchangeDeclare(cfg.Exchange, "topic", true, false, false, false, nil); err != nil {
		conn.Close()
		return nil, fmt.Errorf("declaring exchange %s: %w", cfg.Exchange, err)
	}

	open := func() (Channel, error) { return conn.Channel() }
	logger.Info("amqp publisher connected", zap.String("exchange", cfg.Exchange))
	return newPublisher(open, conn, cfg.Exchange, producer, logger), nil
}

func newPublisher(open func() (Channel, error), conn io.Closer, exchange, producer string, logger *zap.Logger) *AMQPPublisher {
	return &AMQPPublisher{
		open:     open,
		conn:     conn,
		exchange: exchange,
		producer: producer,
		logger:   logger,
	}
}

// Publish wraps data in an envelope and publishes it with eventType as the
// routing key. The active trace id, if any, becomes the correlation id.
func (p *AMQPPublisher) Publish(ctx context.Context, eventType string, data any) error {
	env := Envelope{
		Meta: Meta{
			ID:   uuid.NewString(),
			Time: time.Now().UTC(),
			Type: eventType,
		},
		Data: data,
	}
	if p.producer != "" {
		producer := p.producer
		env.Meta.Producer = &producer
	}
	if sc := trace.SpanContextFromContext(ctx); sc.HasTraceID() {
		cid := sc.TraceID().String()
		env.Meta.CorrelationID = &cid
	}
	return p.PublishEnvelope(ctx, eventType, env)
}

// PublishEnvelope publishes a prepared envelope under the routing key
func (p *AMQPPublisher) PublishEnvelope(ctx context.Context, key string, env Envelope) error {
	if env.Meta.ID == "" {
		return fmt.Errorf("envelope meta id is required")
	}
	cid := env.Meta.ID
	if env.Meta.CorrelationID != nil {
		cid = *env.Meta.CorrelationID
	}

	body, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("marshal envelope: %w", err)
	}

	ch, err := p.open()
	if err != nil {
		return fmt.Errorf("opening amqp channel: %w", err)
	}
	defer ch.Close()

	if err := ch.Confirm(false); err != nil {
		return fmt.Errorf("confirm mode: %w", err)
	}
	confirms := ch.NotifyPublish(make(chan amqp.Confirmation, 1))

	err = ch.PublishWithContext(ctx, p.exchange, key, false, false, amqp.Publishing{
		ContentType:   "application/json",
		DeliveryMode:  amqp.Persistent,
		MessageId:     env.Meta.ID,
		CorrelationId: cid,
		Type:          env.Meta.Type,
		Timestamp:     env.Meta.Time,
		AppId:         p.producer,
		Body:          body,
	})
	if err != nil {
		return fmt.Errorf("publishing %s: %w", key, err)
	}

	select {
	case confirm, ok := <-confirms:
		if !ok || !confirm.Ack {
			return fmt.Errorf("publishing %s: %w", key, ErrNack)
		}
	case <-ctx.Done():
		return fmt.Errorf("waiting for publish confirm: %w", ctx.Err())
	}

	p.logger.Debug("published",
		zap.String("key", key),
		zap.String("exchange", p.exchange),
		zap.String("message_id", env.Meta.ID))
	return nil
}

// Close closes the broker connection
func (p *AMQPPublisher) Close() error {
	if p.conn == nil {
		return nil
	}
	return p.conn.Close()
}
