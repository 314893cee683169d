package rabbitmq

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	amqp "github.com/streadway/amqp"
	"go.uber.org/zap"

	"inventory/internal/config"
	"inventory/internal/models"
)

// Client holds the RabbitMQ connection and channel.
type Client struct {
	conn    *amqp.Connection
	channel *amqp.Channel
	queue   string
	logger  *zap.Logger
	mu      sync.Mutex
}

// NewClient creates a new RabbitMQ client.
// It connects to RabbitMQ, opens a channel and declares the product event queue.
func NewClient(cfg config.RabbitMQConfig, logger *zap.Logger) (*Client, error) {
	if cfg.Queue == "" {
		return nil, errors.New("RabbitMQ queue name is empty")
	}

	conn, err := amqp.Dial(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to open channel: %w", err)
	}

	if _, err := declareQueue(ch, cfg.Queue); err != nil {
		ch.Close()
		conn.Close()
		return nil, err
	}

	logger.Info("RabbitMQ client connected", zap.String("queue", cfg.Queue))

	return &Client{
		conn:    conn,
		channel: ch,
		queue:   cfg.Queue,
		logger:  logger,
	}, nil
}

func declareQueue(ch *amqp.Channel, name string) (amqp.Queue, error) {
	q, err := ch.QueueDeclare(
		name,
		true,  // durable
		false, // delete when unused
		false, // exclusive
		false, // no-wait
		nil,
	)
	if err != nil {
		return q, fmt.Errorf("failed to declare %s: %w", name, err)
	}
	return q, nil
}

// Close closes the RabbitMQ connection and channel.
func (c *Client) Close() error {
	var errs []error
	if c.channel != nil {
		if err := c.channel.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close channel: %w", err))
		}
	}
	if c.conn != nil {
		if err := c.conn.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close connection: %w", err))
		}
	}
	return errors.Join(errs...)
}

// NotifyClose returns a channel that receives the error that closed the
// connection.
func (c *Client) NotifyClose() <-chan *amqp.Error {
	return c.conn.NotifyClose(make(chan *amqp.Error, 1))
}

// EncodeProductEvent builds the persistent JSON message for event.
func EncodeProductEvent(event models.ProductEvent) (amqp.Publishing, error) {
	body, err := json.Marshal(event)
	if err != nil {
		return amqp.Publishing{}, fmt.Errorf("failed to marshal product event: %w", err)
	}
	return amqp.Publishing{
		ContentType:  "application/json",
		Type:         event.Type,
		Body:         body,
		DeliveryMode: amqp.Persistent,
		Timestamp:    event.OccurredAt,
	}, nil
}

// DecodeProductEvent parses a message body produced by EncodeProductEvent.
func DecodeProductEvent(body []byte) (models.ProductEvent, error) {
	var event models.ProductEvent
	if err := json.Unmarshal(body, &event); err != nil {
		return event, fmt.Errorf("failed to decode product event: %w", err)
	}
	if event.Type == "" || event.ProductID == "" {
		return event, errors.New("product event is missing type or product_id")
	}
	return event, nil
}

// PublishProductEvent publishes event to the configured queue through the
// default exchange.
func (c *Client) PublishProductEvent(ctx context.Context, event models.ProductEvent) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	msg, err := EncodeProductEvent(event)
	if err != nil {
		return err
	}
	if msg.Timestamp.IsZero() {
		msg.Timestamp = time.Now()
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.channel == nil {
		return errors.New("RabbitMQ channel is not available")
	}
	err = c.channel.Publish(
		"",      // exchange: default exchange
		c.queue, // routing key: the queue name
		false,   // mandatory
		false,   // immediate
		msg,
	)
	if err != nil {
		return fmt.Errorf("failed to publish message: %w", err)
	}

	c.logger.Debug("published product event",
		zap.String("type", event.Type),
		zap.String("product_id", event.ProductID))
	return nil
}

// ConsumeProductEvents starts a goroutine delivering decoded events from the
// queue to handler. Messages are acked on success. Undecodable messages are
// dropped; handler failures are requeued once and then dropped.
func (c *Client) ConsumeProductEvents(handler func(models.ProductEvent) error) error {
	if c.channel == nil {
		return errors.New("RabbitMQ channel is not available for consumption")
	}

	queue, err := declareQueue(c.channel, c.queue)
	if err != nil {
		return err
	}

	msgs, err := c.channel.Consume(
		queue.Name,
		"",    // consumer tag
		false, // auto-ack
		false, // exclusive
		false, // no-local
		false, // no-wait
		nil,
	)
	if err != nil {
		return fmt.Errorf("failed to register consumer: %w", err)
	}

	c.logger.Info("waiting for product events", zap.String("queue", queue.Name))

	go func() {
		for msg := range msgs {
			c.handleDelivery(msg, handler)
		}
		c.logger.Info("product event consumer stopped")
	}()

	return nil
}

func (c *Client) handleDelivery(msg amqp.Delivery, handler func(models.ProductEvent) error) {
	event, err := DecodeProductEvent(msg.Body)
	if err != nil {
		c.logger.Warn("dropping malformed message", zap.Uint64("delivery_tag", msg.DeliveryTag), zap.Error(err))
		if nackErr := msg.Nack(false, false); nackErr != nil {
			c.logger.Error("failed to nack message", zap.Uint64("delivery_tag", msg.DeliveryTag), zap.Error(nackErr))
		}
		return
	}

	if err := handler(event); err != nil {
		requeue := !msg.Redelivered
		c.logger.Warn("failed to handle product event",
			zap.Uint64("delivery_tag", msg.DeliveryTag),
			zap.Bool("requeue", requeue),
			zap.Error(err))
		if nackErr := msg.Nack(false, requeue); nackErr != nil {
			c.logger.Error("failed to nack message", zap.Uint64("delivery_tag", msg.DeliveryTag), zap.Error(nackErr))
		}
		return
	}

	if ackErr := msg.Ack(false); ackErr != nil {
		c.logger.Error("failed to ack message", zap.Uint64("delivery_tag", msg.DeliveryTag), zap.Error(ackErr))
	}
}
