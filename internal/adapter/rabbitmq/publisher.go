// Package rabbitmq publishes alerts to a RabbitMQ topic exchange.
package rabbitmq

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/couchcryptid/hazard-alert-service/internal/domain"
	amqp "github.com/rabbitmq/amqp091-go"
)

type publishChannel interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	Close() error
}

// Publisher implements pipeline.AlertSink over a RabbitMQ topic exchange.
// Routing keys have the form alert.<level>.<user_id>.
type Publisher struct {
	conn     *amqp.Connection
	channel  publishChannel
	exchange string
	logger   *slog.Logger
}

// Dial connects to RabbitMQ and declares the durable topic exchange.
func Dial(url, exchange string, logger *slog.Logger) (*Publisher, error) {
	conn, err := amqp.DialConfig(url, amqp.Config{
		Heartbeat: 10 * time.Second,
	})
	if err != nil {
		return nil, fmt.Errorf("connect to rabbitmq: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}

	if err := ch.ExchangeDeclare(
		exchange,
		"topic",
		true,  // durable
		false, // auto-deleted
		false, // internal
		false, // no-wait
		nil,
	); err != nil {
		conn.Close()
		return nil, fmt.Errorf("declare exchange %q: %w", exchange, err)
	}

	closed := conn.NotifyClose(make(chan *amqp.Error, 1))
	go func() {
		if err := <-closed; err != nil {
			logger.Error("rabbitmq connection closed", "error", err)
		}
	}()

	logger.Info("connected to rabbitmq", "exchange", exchange)
	return &Publisher{conn: conn, channel: ch, exchange: exchange, logger: logger}, nil
}

func (p *Publisher) Name() string { return "rabbitmq" }

// Submit publishes one alert as a persistent JSON message.
func (p *Publisher) Submit(ctx context.Context, alert domain.Alert) error {
	msg, err := newPublishing(alert, time.Now())
	if err != nil {
		return err
	}
	if err := p.channel.PublishWithContext(
		ctx,
		p.exchange,
		routingKey(alert),
		false, // mandatory
		false, // immediate
		msg,
	); err != nil {
		return fmt.Errorf("publish alert: %w", err)
	}
	return nil
}

// Close closes the channel, then the connection.
func (p *Publisher) Close() error {
	if err := p.channel.Close(); err != nil {
		p.logger.Warn("rabbitmq channel close failed", "error", err)
	}
	if p.conn == nil {
		return nil
	}
	return p.conn.Close()
}

func newPublishing(alert domain.Alert, now time.Time) (amqp.Publishing, error) {
	body, err := json.Marshal(alert)
	if err != nil {
		return amqp.Publishing{}, fmt.Errorf("serialize alert: %w", err)
	}
	return amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    alert.AlertID,
		Timestamp:    now,
		Body:         body,
	}, nil
}

// routingKey builds alert.<level>.<user_id>. Dots in the user ID would add
// topic words, so they are replaced.
func routingKey(alert domain.Alert) string {
	user := strings.ReplaceAll(alert.UserID, ".", "_")
	if user == "" {
		user = "anonymous"
	}
	return "alert." + strings.ToLower(alert.Level.String()) + "." + user
}
