package event

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

// publisher is the subset of *amqp.Channel the sink uses.
type publisher interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
}

// RabbitMQSink publishes events to a topic exchange with the event name as
// routing key.
type RabbitMQSink struct {
	pub      publisher
	exchange string
	closers  []func() error
}

// NewRabbitMQSink wraps an already-open channel.
func NewRabbitMQSink(pub publisher, exchange string) *RabbitMQSink {
	return &RabbitMQSink{pub: pub, exchange: exchange}
}

// DialRabbitMQ connects to url, declares a durable topic exchange and
// returns a sink publishing to it. Close releases the channel and connection.
func DialRabbitMQ(url, exchange string) (*RabbitMQSink, error) {
	conn, err := amqp.DialConfig(url, amqp.Config{
		Locale: "en_US",
		Dial:   amqp.DefaultDial(10 * time.Second),
	})
	if err != nil {
		return nil, fmt.Errorf("event: connecting to RabbitMQ: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("event: opening RabbitMQ channel: %w", err)
	}

	if err := ch.ExchangeDeclare(
		exchange, // name
		"topic",  // type
		true,     // durable
		false,    // auto-deleted
		false,    // internal
		false,    // no-wait
		nil,      // arguments
	); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, fmt.Errorf("event: declaring exchange %q: %w", exchange, err)
	}

	s := NewRabbitMQSink(ch, exchange)
	s.closers = []func() error{ch.Close, conn.Close}
	return s, nil
}

// Send publishes ev as a persistent JSON message.
func (s *RabbitMQSink) Send(ctx context.Context, ev Event) error {
	body, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("event: encoding %s: %w", ev.Name, err)
	}

	headers := make(amqp.Table)
	if ev.RequestID != "" {
		headers["X-Request-ID"] = ev.RequestID
	}

	if err := s.pub.PublishWithContext(
		ctx,
		s.exchange, // exchange
		ev.Name,    // routing key
		false,      // mandatory
		false,      // immediate
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			Timestamp:    ev.OccurredAt,
			Type:         ev.Name,
			Headers:      headers,
			Body:         body,
		},
	); err != nil {
		return fmt.Errorf("event: publishing %s: %w", ev.Name, err)
	}
	return nil
}

// Close releases the channel and connection opened by DialRabbitMQ.
func (s *RabbitMQSink) Close() error {
	var firstErr error
	for _, c := range s.closers {
		if err := c(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
