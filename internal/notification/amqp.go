package notification

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

// channelPublisher is the subset of *amqp.Channel used for publishing.
type channelPublisher interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
}

// envelope is the message body published to the broker.
type envelope struct {
	RecipientID string `json:"recipient_id"`
	Event
}

// AMQPPublisher forwards events to a durable RabbitMQ queue so other
// services (mail, SMS, audit) can consume them. Notify only enqueues;
// Run owns the broker connection.
type AMQPPublisher struct {
	url    string
	queue  string
	events chan envelope
	logger *zap.Logger
}

// NewAMQPPublisher creates a publisher with a bounded in-memory buffer.
func NewAMQPPublisher(url, queue string, buffer int, logger *zap.Logger) *AMQPPublisher {
	if buffer <= 0 {
		buffer = 64
	}
	return &AMQPPublisher{
		url:    url,
		queue:  queue,
		events: make(chan envelope, buffer),
		logger: logger.Named("amqp"),
	}
}

// Notify enqueues an event without blocking. A full buffer drops the event.
func (p *AMQPPublisher) Notify(_ context.Context, recipientID string, ev Event) {
	select {
	case p.events <- envelope{RecipientID: recipientID, Event: ev}:
	default:
		p.logger.Warn("amqp buffer full, dropping event",
			zap.String("recipient", recipientID),
			zap.String("event", string(ev.Type)))
	}
}

// Run connects to the broker and publishes buffered events until ctx is
// done, reconnecting with backoff when the connection drops.
func (p *AMQPPublisher) Run(ctx context.Context) {
	backoff := time.Second
	for {
		if ctx.Err() != nil {
			return
		}
		err := p.connectAndServe(ctx)
		if err == nil || ctx.Err() != nil {
			return
		}
		p.logger.Warn("amqp connection lost, retrying", zap.Error(err), zap.Duration("backoff", backoff))
		select {
		case <-time.After(backoff):
		case <-ctx.Done():
			return
		}
		if backoff < 30*time.Second {
			backoff *= 2
		}
	}
}

func (p *AMQPPublisher) connectAndServe(ctx context.Context) error {
	conn, err := amqp.Dial(p.url)
	if err != nil {
		return fmt.Errorf("dial: %w", err)
	}
	defer func() { _ = conn.Close() }()

	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("channel open: %w", err)
	}
	defer func() { _ = ch.Close() }()

	if _, err := ch.QueueDeclare(p.queue, true, false, false, false, nil); err != nil {
		return fmt.Errorf("queue declare: %w", err)
	}

	p.logger.Info("amqp publisher connected", zap.String("queue", p.queue))
	return p.serve(ctx, ch)
}

// serve publishes events until ctx is done (nil) or a publish fails.
func (p *AMQPPublisher) serve(ctx context.Context, ch channelPublisher) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case env := <-p.events:
			if err := p.publish(ctx, ch, env); err != nil {
				return err
			}
		}
	}
}

func (p *AMQPPublisher) publish(ctx context.Context, ch channelPublisher, env envelope) error {
	body, err := json.Marshal(env)
	if err != nil {
		p.logger.Error("failed to encode event", zap.Error(err))
		return nil
	}

	msg := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    time.Now().UTC(),
		Type:         string(env.Type),
		Body:         body,
	}
	if err := ch.PublishWithContext(ctx, "", p.queue, false, false, msg); err != nil {
		return fmt.Errorf("publish %s: %w", env.Type, err)
	}
	return nil
}
