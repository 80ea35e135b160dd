// Package messaging wraps the RabbitMQ connection used for background jobs.
package messaging

import (
	"context"
	"fmt"
	"sync"

	"github.com/streadway/amqp"
	"go.uber.org/zap"

	"storefront/internal/metrics"
)

type RabbitClient struct {
	conn    *amqp.Connection
	channel *amqp.Channel
	URL     string
	logger  *zap.Logger

	// amqp channels must not interleave publishes
	pubMu sync.Mutex
}

func NewRabbitClient(url string, logger *zap.Logger) (*RabbitClient, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to create channel: %w", err)
	}

	return &RabbitClient{
		conn:    conn,
		channel: ch,
		URL:     url,
		logger:  logger,
	}, nil
}

func (r *RabbitClient) GetChannel() *amqp.Channel {
	return r.channel
}

func (r *RabbitClient) GetConnection() *amqp.Connection {
	return r.conn
}

// DeadLetterQueue names the queue that receives rejected messages from queue.
func DeadLetterQueue(queue string) string {
	return queue + "_dlq"
}

// DeclareQueue creates a durable queue and its dead letter queue.
func (r *RabbitClient) DeclareQueue(queue string) error {
	dlqName := DeadLetterQueue(queue)

	// 1. DLQ
	_, err := r.channel.QueueDeclare(
		dlqName,
		true, false, false, false,
		nil,
	)
	if err != nil {
		return fmt.Errorf("declare DLQ: %w", err)
	}

	// 2. Main Queue with DLQ binding
	args := amqp.Table{
		"x-dead-letter-exchange":    "",
		"x-dead-letter-routing-key": dlqName,
	}
	_, err = r.channel.QueueDeclare(
		queue,
		true, false, false, false,
		args,
	)
	if err != nil {
		return fmt.Errorf("declare main queue: %w", err)
	}

	r.logger.Info("queues declared", zap.String("queue", queue), zap.String("dlq", dlqName))
	return nil
}

// Publish sends a persistent JSON message to queue through the default exchange.
func (r *RabbitClient) Publish(ctx context.Context, queue, messageID string, body []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	r.pubMu.Lock()
	defer r.pubMu.Unlock()

	err := r.channel.Publish(
		"",    // default exchange
		queue, // routing key (queue name)
		false,
		false,
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			MessageId:    messageID,
			Body:         body,
		},
	)
	if err != nil {
		return fmt.Errorf("failed to publish to queue %s: %w", queue, err)
	}
	return nil
}

// Close cleans up connection and channel
func (r *RabbitClient) Close() error {
	if err := r.channel.Close(); err != nil {
		return err
	}
	return r.conn.Close()
}

func (r *RabbitClient) UpdateQueueDepth(queue string) {
	q, err := r.channel.QueueInspect(queue)
	if err != nil {
		r.logger.Warn("failed to inspect queue", zap.String("queue", queue), zap.Error(err))
		return
	}

	metrics.QueueDepth.WithLabelValues(queue).Set(float64(q.Messages))
}
