package amqp

import (
	"context"
	"fmt"
	"time"

	"github.com/rabbitmq/amqp091-go"

	"analizador/internal/log"
)

// DefaultPublishTimeout bounds a single publish.
const DefaultPublishTimeout = 5 * time.Second

// Publisher announces loaded datasets.
type Publisher interface {
	PublishDatasetLoaded(ctx context.Context, msg *DatasetLoadedMessage) error
	Close() error
}

// channel is the part of *amqp091.Channel the client uses.
type channel interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp091.Publishing) error
	Close() error
}

type Client struct {
	conn         *amqp091.Connection
	channel      channel
	exchangeName string
	routingKey   string
	timeout      time.Duration
	logger       *log.Logger
}

var _ Publisher = (*Client)(nil)

// NewClient dials url and declares a durable topic exchange.
func NewClient(url, exchangeName, routingKey string, logger *log.Logger) (*Client, error) {
	conn, err := amqp091.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("dial AMQP: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}

	err = ch.ExchangeDeclare(
		exchangeName, // name
		"topic",      // type
		true,         // durable
		false,        // auto-deleted
		false,        // internal
		false,        // no-wait
		nil,          // arguments
	)
	if err != nil {
		ch.Close()
		conn.Close()
		return nil, fmt.Errorf("declare exchange: %w", err)
	}

	c := newClient(ch, exchangeName, routingKey, logger)
	c.conn = conn
	return c, nil
}

func newClient(ch channel, exchangeName, routingKey string, logger *log.Logger) *Client {
	if logger == nil {
		logger = log.Discard()
	}
	return &Client{
		channel:      ch,
		exchangeName: exchangeName,
		routingKey:   routingKey,
		timeout:      DefaultPublishTimeout,
		logger:       logger.WithComponent(log.ComponentAMQP),
	}
}

// PublishDatasetLoaded publishes msg once. There is no retry.
func (c *Client) PublishDatasetLoaded(ctx context.Context, msg *DatasetLoadedMessage) error {
	body, err := msg.ToJSON()
	if err != nil {
		return fmt.Errorf("marshal message: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	err = c.channel.PublishWithContext(
		ctx,
		c.exchangeName, // exchange
		c.routingKey,   // routing key
		false,          // mandatory
		false,          // immediate
		amqp091.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp091.Persistent,
			Timestamp:    msg.Timestamp,
			Body:         body,
		},
	)
	if err != nil {
		return fmt.Errorf("publish message: %w", err)
	}

	c.logger.InfoContext(ctx, "Published dataset loaded message",
		log.FieldFile, msg.File,
		log.FieldIdentity, msg.Identity,
		"exchange", c.exchangeName,
		"routing_key", c.routingKey)

	return nil
}

func (c *Client) Close() error {
	if c.channel != nil {
		c.channel.Close()
	}
	if c.conn != nil {
		return c.conn.Close()
	}
	return nil
}

// Nop drops every message; used when AMQP_URL is unset.
type Nop struct{}

func (Nop) PublishDatasetLoaded(context.Context, *DatasetLoadedMessage) error { return nil }
func (Nop) Close() error { return nil }
