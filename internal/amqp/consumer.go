package amqp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"

	"github.com/pixeldeck/pixeldeck/pkg/models"
)

// CommandHandler defines the interface for executing bus commands
type CommandHandler interface {
	Handle(ctx context.Context, cmd *models.Command) error
}

// Consumer handles consuming command messages from AMQP
type Consumer struct {
	conn    *Connection
	handler CommandHandler
	logger  *zap.Logger
}

// NewConsumer creates a new consumer
func NewConsumer(conn *Connection, handler CommandHandler, logger *zap.Logger) *Consumer {
	return &Consumer{
		conn:    conn,
		handler: handler,
		logger:  logger,
	}
}

const (
	initialRetryDelay = time.Second
	maxRetryDelay     = 30 * time.Second
)

var errDeliveryChannelClosed = errors.New("delivery channel closed")

// Start consumes from the queue until ctx is cancelled, reconnecting with
// exponential backoff whenever a session drops
func (c *Consumer) Start(ctx context.Context, queueName string) error {
	delay := initialRetryDelay
	attempt := 0

	for ctx.Err() == nil {
		err := c.consumeSession(ctx, queueName)
		if err == nil || ctx.Err() != nil {
			break
		}

		attempt++
		c.logger.Error("Consumer session ended, retrying",
			zap.Error(err),
			zap.String("queue", queueName),
			zap.Int("attempt", attempt),
			zap.Duration("delay", delay))

		select {
		case <-ctx.Done():
		case <-time.After(delay):
			delay = time.Duration(float64(delay) * 1.5)
			if delay > maxRetryDelay {
				delay = maxRetryDelay
			}
		}
	}
	return ctx.Err()
}

// consumeSession runs one delivery loop over a live channel. Any returned
// error means the session is dead and the caller should back off and retry.
func (c *Consumer) consumeSession(ctx context.Context, queueName string) error {
	if err := c.conn.EnsureConnection(); err != nil {
		return fmt.Errorf("failed to ensure connection: %w", err)
	}

	hostname, _ := os.Hostname()
	tag := fmt.Sprintf("pixeldeck-%s-%d", hostname, time.Now().Unix())

	autoAck, exclusive, noLocal, noWait := false, false, false, false
	deliveries, err := c.conn.channel.Consume(queueName, tag, autoAck, exclusive, noLocal, noWait, nil)
	if err != nil {
		c.conn.forceClose()
		return fmt.Errorf("failed to register consumer: %w", err)
	}

	c.logger.Info("Started consuming commands",
		zap.String("queue", queueName),
		zap.String("consumer_tag", tag))

	for {
		select {
		case <-ctx.Done():
			c.logger.Info("Consumer stopping", zap.String("queue", queueName))
			return nil
		case msg, ok := <-deliveries:
			if !ok {
				return errDeliveryChannelClosed
			}
			go c.handleDelivery(ctx, msg)
		}
	}
}

// handleDelivery executes one command and reports its outcome on the bus
func (c *Consumer) handleDelivery(ctx context.Context, msg amqp.Delivery) {
	var cmd models.Command
	if err := json.Unmarshal(msg.Body, &cmd); err != nil {
		c.logger.Error("Discarding unparseable command",
			zap.Error(err),
			zap.String("correlation_id", msg.CorrelationId))
		// Malformed payloads never parse on redelivery either
		msg.Nack(false, false)
		return
	}

	cmdErr := c.handler.Handle(ctx, &cmd)
	if cmdErr != nil {
		c.logger.Error("Command failed",
			zap.Error(cmdErr),
			zap.String("type", cmd.Type),
			zap.String("target", cmd.Target))
	}

	outcome := &models.Outcome{
		Type:        "command_result",
		UUID:        cmd.UUID,
		Target:      cmd.Target,
		Success:     cmdErr == nil,
		ProcessedAt: time.Now(),
	}
	if cmdErr != nil {
		outcome.Error = cmdErr.Error()
	}

	if pubErr := c.conn.PublishOutcome(ctx, outcome); pubErr != nil {
		c.logger.Error("Failed to publish outcome",
			zap.Error(pubErr),
			zap.String("type", cmd.Type),
			zap.String("target", cmd.Target))

		// A successful command whose outcome could not be reported is
		// requeued so the requester eventually hears back. Failed commands
		// ack regardless to avoid infinite retry loops.
		if cmdErr == nil {
			msg.Nack(false, true)
			return
		}
	}

	if ackErr := msg.Ack(false); ackErr != nil {
		c.logger.Error("Failed to acknowledge command",
			zap.Error(ackErr),
			zap.String("type", cmd.Type),
			zap.String("target", cmd.Target))
	}
}
