package rabbitmq

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"

	"user-events-service/internal/domain/user"
	"user-events-service/internal/metrics"
	apperrors "user-events-service/pkg/errors"
)

// Routing keys of the events emitted for mutating responses.
const (
	RoutingKeyCreated = "user.created"
	RoutingKeyUpdated = "user.updated"
	RoutingKeyDeleted = "user.deleted"

	contentTypeJSON = "application/json"
)

// Channel is the part of *amqp.Channel the publisher uses. A single
// *amqp.Channel is safe to share between concurrent publishers.
type Channel interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
}

// Publisher emits one event per mutating response onto a pre-declared
// topic exchange. It never declares or deletes the exchange.
type Publisher struct {
	ch       Channel
	exchange string
	log      *zap.Logger

	marshal func(v any) ([]byte, error)
	now     func() time.Time
}

// NewPublisher creates a publisher bound to the given channel and exchange.
func NewPublisher(ch Channel, exchange string, log *zap.Logger) *Publisher {
	return &Publisher{
		ch:       ch,
		exchange: exchange,
		log:      log,
		marshal:  json.Marshal,
		now:      time.Now,
	}
}

// RoutingKey derives the routing key for a response. Non-mutating responses
// have no event and yield a validation error.
func RoutingKey(resp user.Response) (string, error) {
	switch resp.(type) {
	case user.Created:
		return RoutingKeyCreated, nil
	case user.Updated:
		return RoutingKeyUpdated, nil
	case user.Deleted:
		return RoutingKeyDeleted, nil
	default:
		return "", apperrors.NewValidationError(fmt.Sprintf("response %T does not produce an event", resp))
	}
}

// payload returns the event body: the user for create and update, the bare
// id for delete.
func payload(resp user.Response) any {
	switch r := resp.(type) {
	case user.Created:
		return r.User
	case user.Updated:
		return r.User
	case user.Deleted:
		return r.ID
	default:
		return nil
	}
}

// Publish serializes resp and publishes it with its derived routing key.
func (p *Publisher) Publish(ctx context.Context, resp user.Response) error {
	key, err := RoutingKey(resp)
	if err != nil {
		p.log.Error("refusing to publish non-mutating response", zap.Error(err))
		return err
	}

	body, err := p.marshal(payload(resp))
	if err != nil {
		p.log.Error("failed to encode event", zap.String("routing_key", key), zap.Error(err))
		metrics.RecordPublish(key, err)
		return apperrors.NewSerializationError(fmt.Sprintf("failed to encode %s event", key), err)
	}

	msg := amqp.Publishing{
		ContentType:  contentTypeJSON,
		DeliveryMode: amqp.Persistent,
		MessageId:    uuid.NewString(),
		Type:         key,
		Timestamp:    p.now(),
		Body:         body,
	}

	err = p.ch.PublishWithContext(ctx, p.exchange, key, false, false, msg)
	metrics.RecordPublish(key, err)
	if err != nil {
		p.log.Error("failed to publish event",
			zap.String("exchange", p.exchange),
			zap.String("routing_key", key),
			zap.String("message_id", msg.MessageId),
			zap.Error(err),
		)
		return apperrors.NewTransportError(fmt.Sprintf("failed to publish to %s", key), err)
	}

	p.log.Debug("event published",
		zap.String("exchange", p.exchange),
		zap.String("routing_key", key),
		zap.String("message_id", msg.MessageId),
	)
	return nil
}
