package rabbitmq

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"promptshare/internal/models"

	"github.com/sirupsen/logrus"
	amqp "github.com/streadway/amqp"
)

// UserEventsQueue receives one message per newly created canonical user.
const UserEventsQueue = "user_events"

// EventUserCreated is the message type header of user creation events.
const EventUserCreated = "user.created"

// Client holds the RabbitMQ connection and channel.
type Client struct {
	conn    *amqp.Connection
	channel *amqp.Channel
	log     logrus.FieldLogger

	// amqp.Channel is not safe for concurrent publishes.
	mu sync.Mutex
}

// Config holds RabbitMQ connection details.
type Config struct {
	URL string
}

// NewClient connects to RabbitMQ, opens a channel and declares the user
// events queue.
func NewClient(cfg Config, log logrus.FieldLogger) (*Client, error) {
	conn, err := amqp.Dial(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to open channel: %w", err)
	}

	if _, err := declareUserEvents(ch); err != nil {
		ch.Close()
		conn.Close()
		return nil, err
	}

	log.WithField("queue", UserEventsQueue).Info("RabbitMQ client connected")

	return &Client{
		conn:    conn,
		channel: ch,
		log:     log,
	}, nil
}

func declareUserEvents(ch *amqp.Channel) (amqp.Queue, error) {
	q, err := ch.QueueDeclare(
		UserEventsQueue, // name
		true,            // durable
		false,           // delete when unused
		false,           // exclusive
		false,           // no-wait
		nil,             // arguments
	)
	if err != nil {
		return q, fmt.Errorf("failed to declare %s: %w", UserEventsQueue, err)
	}
	return q, nil
}

// Close closes the RabbitMQ channel and connection.
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

// NewUserCreatedMessage builds the persistent JSON message for event.
func NewUserCreatedMessage(event models.UserCreatedEvent) (amqp.Publishing, error) {
	body, err := json.Marshal(event)
	if err != nil {
		return amqp.Publishing{}, fmt.Errorf("failed to marshal user event: %w", err)
	}
	return amqp.Publishing{
		ContentType:  "application/json",
		Type:         EventUserCreated,
		MessageId:    event.UserID,
		Body:         body,
		DeliveryMode: amqp.Persistent,
		Timestamp:    time.Now(),
	}, nil
}

// PublishUserCreated publishes event to the user events queue.
func (c *Client) PublishUserCreated(event models.UserCreatedEvent) error {
	if c.channel == nil {
		return errors.New("RabbitMQ channel is not available")
	}

	msg, err := NewUserCreatedMessage(event)
	if err != nil {
		return err
	}

	c.mu.Lock()
	err = c.channel.Publish(
		"",              // default exchange
		UserEventsQueue, // routing key
		false,           // mandatory
		false,           // immediate
		msg,
	)
	c.mu.Unlock()
	if err != nil {
		return fmt.Errorf("failed to publish message: %w", err)
	}

	c.log.WithFields(logrus.Fields{"user_id": event.UserID, "source": event.Source}).Debug("published user event")
	return nil
}

// ConsumeUserEvents delivers user events to handler until ctx is cancelled
// or the channel closes. A handler error requeues the message once; a
// redelivered message that fails again is dropped.
func (c *Client) ConsumeUserEvents(ctx context.Context, handler func(models.UserCreatedEvent) error) error {
	if c.channel == nil {
		return errors.New("RabbitMQ channel is not available for consumption")
	}

	msgs, err := c.channel.Consume(
		UserEventsQueue, // queue
		"",              // consumer tag
		false,           // auto-ack
		false,           // exclusive
		false,           // no-local
		false,           // no-wait
		nil,             // args
	)
	if err != nil {
		return fmt.Errorf("failed to register consumer: %w", err)
	}

	c.log.WithField("queue", UserEventsQueue).Info("waiting for user events")

	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-msgs:
			if !ok {
				return errors.New("RabbitMQ delivery channel closed")
			}
			c.dispatch(msg, handler)
		}
	}
}

func (c *Client) dispatch(msg amqp.Delivery, handler func(models.UserCreatedEvent) error) {
	entry := c.log.WithField("delivery_tag", msg.DeliveryTag)

	err := HandleDelivery(msg.Body, handler)
	if err == nil {
		if ackErr := msg.Ack(false); ackErr != nil {
			entry.WithError(ackErr).Error("failed to ack message")
		}
		return
	}

	entry.WithError(err).Warn("failed to process user event")
	if nackErr := msg.Nack(false, !msg.Redelivered); nackErr != nil {
		entry.WithError(nackErr).Error("failed to nack message")
	}
}

// HandleDelivery decodes a message body and passes the event to handler.
func HandleDelivery(body []byte, handler func(models.UserCreatedEvent) error) error {
	var event models.UserCreatedEvent
	if err := json.Unmarshal(body, &event); err != nil {
		return fmt.Errorf("failed to decode user event: %w", err)
	}
	if event.UserID == "" {
		return errors.New("user event without user_id")
	}
	return handler(event)
}

// LogUserCreated is the default consumer: it records every new account.
func LogUserCreated(log logrus.FieldLogger) func(models.UserCreatedEvent) error {
	return func(event models.UserCreatedEvent) error {
		log.WithFields(logrus.Fields{
			"user_id":  event.UserID,
			"email":    event.Email,
			"source":   event.Source,
			"provider": event.Provider,
		}).Info("new user created")
		return nil
	}
}
