package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/SubbarajuGitHub/subbaraju-qr-code/internal/domain"
)

// amqpChannel is the subset of *amqp.Channel used by the publisher.
type amqpChannel interface {
	ExchangeDeclare(name, kind string, durable, autoDelete, internal, noWait bool, args amqp.Table) error
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	Close() error
}

// AMQPOrderPublisher publishes orders to a durable RabbitMQ topic exchange.
type AMQPOrderPublisher struct {
	conn       *amqp.Connection
	ch         amqpChannel
	exchange   string
	routingKey string
	clock      func() time.Time
}

// DialAMQP connects to url, opens a channel and declares exchange.
func DialAMQP(url, exchange, routingKey string) (*AMQPOrderPublisher, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("amqp order publisher: dial: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("amqp order publisher: open channel: %w", err)
	}
	pub, err := newAMQPOrderPublisher(ch, exchange, routingKey)
	if err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, err
	}
	pub.conn = conn
	return pub, nil
}

func newAMQPOrderPublisher(ch amqpChannel, exchange, routingKey string) (*AMQPOrderPublisher, error) {
	if ch == nil {
		return nil, errors.New("amqp order publisher: channel is required")
	}
	if exchange == "" {
		return nil, errors.New("amqp order publisher: exchange is required")
	}
	if err := ch.ExchangeDeclare(exchange, "topic", true, false, false, false, nil); err != nil {
		return nil, fmt.Errorf("amqp order publisher: declare %s: %w", exchange, err)
	}
	return &AMQPOrderPublisher{
		ch:         ch,
		exchange:   exchange,
		routingKey: routingKey,
		clock:      time.Now,
	}, nil
}

// PublishOrder publishes the order as a persistent JSON message.
func (p *AMQPOrderPublisher) PublishOrder(ctx context.Context, order domain.Order) error {
	body, err := json.Marshal(order)
	if err != nil {
		return fmt.Errorf("marshal order: %w", err)
	}
	err = p.ch.PublishWithContext(ctx, p.exchange, p.routingKey, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    order.ID,
		Type:         OrderPlacedEvent,
		Timestamp:    p.clock().UTC(),
		Body:         body,
	})
	if err != nil {
		return fmt.Errorf("publish order %s: %w", order.ID, err)
	}
	return nil
}

// Close releases the channel and, when dialled here, the connection.
func (p *AMQPOrderPublisher) Close() error {
	var errs []error
	if p.ch != nil {
		if err := p.ch.Close(); err != nil && !errors.Is(err, amqp.ErrClosed) {
			errs = append(errs, err)
		}
	}
	if p.conn != nil {
		if err := p.conn.Close(); err != nil && !errors.Is(err, amqp.ErrClosed) {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Ping reports whether the broker connection is still open.
func (p *AMQPOrderPublisher) Ping(context.Context) error {
	if p.conn != nil && p.conn.IsClosed() {
		return amqp.ErrClosed
	}
	return nil
}
