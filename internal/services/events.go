package services

import (
	"promptshare/internal/models"

	"github.com/sirupsen/logrus"
)

// EventPublisher announces new canonical users. The RabbitMQ client in
// pkg/rabbitmq satisfies it.
type EventPublisher interface {
	PublishUserCreated(event models.UserCreatedEvent) error
}

// publishUserCreated is best effort: the user already exists, so a broker
// failure is logged and never fails the request.
func publishUserCreated(events EventPublisher, log logrus.FieldLogger, event models.UserCreatedEvent) {
	if events == nil {
		return
	}
	if err := events.PublishUserCreated(event); err != nil {
		log.WithError(err).WithField("user_id", event.UserID).Warn("failed to publish user created event")
	}
}
