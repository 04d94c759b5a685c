package messaging

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sync"

	amqp "github.com/rabbitmq/amqp091-go"
)

type Broker struct {
	mu       sync.Mutex
	conn     *amqp.Connection
	channel  *amqp.Channel
	exchange string
	url      string
}

// NewBroker connects to RabbitMQ and declares a durable exchange of the given type.
func NewBroker(rabbitMQURL, exchange, exchangeType string) (*Broker, error) {
	b := &Broker{exchange: exchange, url: rabbitMQURL}
	if err := b.connect(exchangeType); err != nil {
		return nil, err
	}
	return b, nil
}

func (b *Broker) connect(exchangeType string) error {
	conn, err := amqp.Dial(b.url)
	if err != nil {
		return fmt.Errorf("cannot connect to RabbitMQ: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return fmt.Errorf("cannot open channel: %w", err)
	}

	if exchangeType != "" {
		err = ch.ExchangeDeclare(
			b.exchange,
			exchangeType,
			true,
			false,
			false,
			false,
			nil,
		)
		if err != nil {
			ch.Close()
			conn.Close()
			return fmt.Errorf("cannot declare exchange %v: %w", b.exchange, err)
		}
	}

	b.conn = conn
	b.channel = ch
	return nil
}

type repair int

const (
	repairNone repair = iota
	repairChannel
	repairConnection
)

// repairFor picks the least work that gets a usable channel back.
func repairFor(connOpen, channelOpen bool) repair {
	switch {
	case !connOpen:
		return repairConnection
	case !channelOpen:
		return repairChannel
	}
	return repairNone
}

func (b *Broker) ensureConnection() error {
	connOpen := b.conn != nil && !b.conn.IsClosed()
	channelOpen := b.channel != nil && !b.channel.IsClosed()

	switch repairFor(connOpen, channelOpen) {
	case repairChannel:
		log.Printf("reopening channel to RabbitMQ exchange %v", b.exchange)
		ch, err := b.conn.Channel()
		if err != nil {
			return fmt.Errorf("cannot open channel: %w", err)
		}
		b.channel = ch
	case repairConnection:
		log.Printf("reconnecting to RabbitMQ exchange %v", b.exchange)
		if b.conn != nil {
			if err := b.conn.Close(); err != nil && err != amqp.ErrClosed {
				log.Printf("Failed to close stale connection: %v", err)
			}
		}
		b.conn, b.channel = nil, nil
		return b.connect("")
	}
	return nil
}

// Publish sends message as JSON to the broker's exchange under key.
func (b *Broker) Publish(ctx context.Context, key string, message interface{}) error {
	body, err := json.Marshal(message)
	if err != nil {
		return fmt.Errorf("cannot marshal message: %w", err)
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if err := b.ensureConnection(); err != nil {
		return err
	}

	err = b.channel.PublishWithContext(ctx,
		b.exchange,
		key,
		false,
		false,
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			Body:         body,
		},
	)
	if err != nil {
		return fmt.Errorf("cannot publish %v: %w", key, err)
	}
	return nil
}

func (b *Broker) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.channel != nil {
		if err := b.channel.Close(); err != nil {
			log.Printf("Failed to close channel: %v", err)
		}
	}
	if b.conn != nil {
		return b.conn.Close()
	}
	return nil
}
