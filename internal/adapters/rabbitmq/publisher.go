// Package rabbitmq publishes domain events to a RabbitMQ queue.
package rabbitmq

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/rs/zerolog/log"

	"airnest/internal/adapters/observability"
	"airnest/internal/domain"
)

const ReservationCreatedQueue = "reservation.created"

// channel is the part of *amqp.Channel the publisher uses.
type channel interface {
	QueueDeclare(name string, durable, autoDelete, exclusive, noWait bool, args amqp.Table) (amqp.Queue, error)
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	Close() error
}

type dialFunc func(url string) (channel, io.Closer, error)

// Publisher keeps one connection and channel and reopens them after a failed
// publish. Publishes are serialized because an AMQP channel is not safe for
// concurrent use.
type Publisher struct {
	url  string
	dial dialFunc

	mu   sync.Mutex
	conn io.Closer
	ch   channel
}

func New(url string) *Publisher {
	return &Publisher{url: url, dial: dialAMQP}
}

func dialAMQP(url string) (channel, io.Closer, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, nil, err
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, nil, err
	}
	return ch, conn, nil
}

func (p *Publisher) PublishReservationCreated(ctx context.Context, ev domain.ReservationCreated) error {
	body, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	err = p.publish(ctx, ReservationCreatedQueue, ev.ReservationID, body)
	observability.ObservePublish(ReservationCreatedQueue, err)
	return err
}

func (p *Publisher) publish(ctx context.Context, queue, messageID string, body []byte) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.ch == nil {
		if err := p.open(queue); err != nil {
			return err
		}
	}
	msg := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    messageID,
		Timestamp:    time.Now().UTC(),
		Body:         body,
	}
	// default exchange, routing key = queue name
	if err := p.ch.PublishWithContext(ctx, "", queue, false, false, msg); err != nil {
		log.Warn().Err(err).Str("queue", queue).Msg("rabbitmq publish failed; reconnecting on next event")
		p.reset()
		return fmt.Errorf("rabbitmq: publish: %w", err)
	}
	return nil
}

func (p *Publisher) open(queue string) error {
	ch, conn, err := p.dial(p.url)
	if err != nil {
		return fmt.Errorf("rabbitmq: dial: %w", err)
	}
	if _, err := ch.QueueDeclare(queue, true, false, false, false, nil); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return fmt.Errorf("rabbitmq: queue declare: %w", err)
	}
	p.ch, p.conn = ch, conn
	return nil
}

func (p *Publisher) reset() {
	if p.ch != nil {
		_ = p.ch.Close()
	}
	if p.conn != nil {
		_ = p.conn.Close()
	}
	p.ch, p.conn = nil, nil
}

func (p *Publisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.reset()
	return nil
}
