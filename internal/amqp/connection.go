package amqp

import (
	"context"
	"encoding/json"
	"fmt"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"

	"github.com/pixeldeck/pixeldeck/internal/config"
	"github.com/pixeldeck/pixeldeck/pkg/models"
)

// Connection wraps the AMQP connection and channel
type Connection struct {
	conn    *amqp.Connection
	channel *amqp.Channel
	config  config.AMQPConfig
	logger  *zap.Logger
}

// NewConnection dials the broker and declares the command topology
func NewConnection(cfg config.AMQPConfig, logger *zap.Logger) (*Connection, error) {
	conn, err := amqp.Dial(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to AMQP: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to open channel: %w", err)
	}

	if err := declareTopology(ch, cfg); err != nil {
		ch.Close()
		conn.Close()
		return nil, err
	}

	return &Connection{
		conn:    conn,
		channel: ch,
		config:  cfg,
		logger:  logger,
	}, nil
}

// declareTopology sets QoS and declares the exchange plus the command queue.
// Outcome queues are declared lazily per target in PublishOutcome.
func declareTopology(ch *amqp.Channel, cfg config.AMQPConfig) error {
	// Prefetch keeps one slow device command from starving the rest
	if err := ch.Qos(cfg.PrefetchCount, 0, false); err != nil {
		return fmt.Errorf("failed to set QoS: %w", err)
	}

	durable, autoDelete, internal, noWait := true, false, false, false
	if err := ch.ExchangeDeclare(cfg.Exchange, "topic", durable, autoDelete, internal, noWait, nil); err != nil {
		return fmt.Errorf("failed to declare exchange: %w", err)
	}

	if err := declareAndBind(ch, cfg.QueueName, cfg.RoutingKey, cfg.Exchange); err != nil {
		return fmt.Errorf("failed to declare command queue: %w", err)
	}
	return nil
}

// declareAndBind declares a durable queue and binds it to the exchange.
// Both operations are idempotent on the broker side.
func declareAndBind(ch *amqp.Channel, queue, routingKey, exchange string) error {
	exclusive, autoDelete, noWait := false, false, false
	if _, err := ch.QueueDeclare(queue, true, autoDelete, exclusive, noWait, nil); err != nil {
		return fmt.Errorf("declare %s: %w", queue, err)
	}
	if err := ch.QueueBind(queue, routingKey, exchange, noWait, nil); err != nil {
		return fmt.Errorf("bind %s: %w", queue, err)
	}
	return nil
}

// Close closes the AMQP connection and channel
func (c *Connection) Close() error {
	if c.channel != nil {
		c.channel.Close()
	}
	if c.conn != nil {
		return c.conn.Close()
	}
	return nil
}

// EnsureConnection reconnects if the underlying connection or channel has
// been closed
func (c *Connection) EnsureConnection() error {
	if c.conn != nil && !c.conn.IsClosed() && c.channel != nil && !c.channel.IsClosed() {
		return nil
	}

	c.forceClose()

	fresh, err := NewConnection(c.config, c.logger)
	if err != nil {
		return err
	}
	c.conn = fresh.conn
	c.channel = fresh.channel
	c.logger.Info("AMQP connection re-established")
	return nil
}

// forceClose tears down the connection so the next EnsureConnection
// rebuilds it from scratch
func (c *Connection) forceClose() {
	if c.channel != nil {
		c.channel.Close()
		c.channel = nil
	}
	if c.conn != nil {
		c.conn.Close()
		c.conn = nil
	}
}

// outcomeQueue returns the per-target queue that command outcomes are
// published to. Untargeted commands report under "all".
func outcomeQueue(target string) string {
	if target == "" {
		target = "all"
	}
	return "pixeldeck." + target
}

// PublishOutcome publishes a command outcome to the requester's queue,
// keyed by the command target
func (c *Connection) PublishOutcome(ctx context.Context, outcome *models.Outcome) error {
	target := outcome.Target
	if target == "" {
		target = "all"
	}
	queue := outcomeQueue(outcome.Target)

	if err := declareAndBind(c.channel, queue, target, c.config.Exchange); err != nil {
		return fmt.Errorf("failed to prepare outcome queue: %w", err)
	}

	body, err := json.Marshal(outcome)
	if err != nil {
		return fmt.Errorf("failed to marshal outcome: %w", err)
	}

	mandatory, immediate := false, false
	err = c.channel.PublishWithContext(ctx, c.config.Exchange, target, mandatory, immediate, amqp.Publishing{
		ContentType:  "application/json",
		Body:         body,
		DeliveryMode: amqp.Persistent,
	})
	if err != nil {
		return fmt.Errorf("failed to publish outcome: %w", err)
	}

	c.logger.Debug("Published command outcome",
		zap.String("target", outcome.Target),
		zap.String("uuid", outcome.UUID),
		zap.String("queue", queue))
	return nil
}
