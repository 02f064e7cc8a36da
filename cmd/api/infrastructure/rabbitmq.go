package infrastructure

import (
	"context"
	"errors"
	"fmt"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"

	"user-events-service/internal/config"
)

// Broker owns the AMQP connection and the single channel shared by all
// publishers.
type Broker struct {
	Conn    *amqp.Connection
	Channel *amqp.Channel
	log     *zap.Logger
}

// NewBroker dials RabbitMQ, opens a channel and declares the durable topic
// exchange that user events are published to.
func NewBroker(cfg *config.Config, l *zap.Logger) (*Broker, error) {
	conn, err := amqp.Dial(cfg.RabbitMQ.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to create channel: %w", err)
	}

	err = ch.ExchangeDeclare(
		cfg.RabbitMQ.Exchange,
		amqp.ExchangeTopic,
		true,  // durable
		false, // auto-delete
		false, // internal
		false, // no-wait
		nil,
	)
	if err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, fmt.Errorf("failed to declare exchange %s: %w", cfg.RabbitMQ.Exchange, err)
	}

	b := &Broker{Conn: conn, Channel: ch, log: l}
	go b.watch(conn.NotifyClose(make(chan *amqp.Error, 1)), "connection")
	go b.watch(ch.NotifyClose(make(chan *amqp.Error, 1)), "channel")

	l.Info("RabbitMQ connected successfully", zap.String("exchange", cfg.RabbitMQ.Exchange))
	return b, nil
}

// watch logs an unexpected closure. Publishing fails with a transport error
// from then on; reconnection is left to a restart.
func (b *Broker) watch(closed <-chan *amqp.Error, what string) {
	if err, ok := <-closed; ok && err != nil {
		b.log.Error("RabbitMQ "+what+" closed",
			zap.Int("code", err.Code),
			zap.String("reason", err.Reason),
			zap.Bool("server", err.Server),
		)
	}
}

// Check reports an error once the connection or the channel has closed.
func (b *Broker) Check(context.Context) error {
	if b.Conn.IsClosed() {
		return errors.New("rabbitmq connection closed")
	}
	if b.Channel.IsClosed() {
		return errors.New("rabbitmq channel closed")
	}
	return nil
}

// Close closes the channel, then the connection.
func (b *Broker) Close() error {
	var errs []error
	if err := b.Channel.Close(); err != nil && !errors.Is(err, amqp.ErrClosed) {
		errs = append(errs, fmt.Errorf("failed to close channel: %w", err))
	}
	if err := b.Conn.Close(); err != nil && !errors.Is(err, amqp.ErrClosed) {
		errs = append(errs, fmt.Errorf("failed to close connection: %w", err))
	}
	return errors.Join(errs...)
}
