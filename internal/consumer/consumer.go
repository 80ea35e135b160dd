// Package consumer runs a single RabbitMQ subscription on its own channel.
package consumer

import (
	"fmt"

	"github.com/streadway/amqp"
	"go.uber.org/zap"
)

type MessageHandlerFunc func(delivery amqp.Delivery)

// Consumer holds control channels and metadata for a running subscription.
type Consumer struct {
	QueueName   string
	Channel     *amqp.Channel
	StopChan    chan struct{}
	DoneChan    chan struct{}
	Handler     MessageHandlerFunc
	ConsumerTag string
	logger      *zap.Logger
}

// StartConsumer opens a channel, subscribes to queue with manual acks and
// dispatches every delivery to handler on one goroutine.
func StartConsumer(conn *amqp.Connection, queue, tag string, handler MessageHandlerFunc, logger *zap.Logger) (*Consumer, error) {
	ch, err := conn.Channel()
	if err != nil {
		return nil, fmt.Errorf("queue %s: failed to open channel: %w", queue, err)
	}

	// one unacked job per consumer
	if err := ch.Qos(1, 0, false); err != nil {
		ch.Close()
		return nil, fmt.Errorf("queue %s: failed to set qos: %w", queue, err)
	}

	msgs, err := ch.Consume(
		queue,
		tag,
		false, // autoAck: false to handle manually
		false,
		false,
		false,
		nil,
	)
	if err != nil {
		ch.Close()
		return nil, fmt.Errorf("queue %s: failed to start consuming: %w", queue, err)
	}

	if logger == nil {
		logger = zap.NewNop()
	}
	c := &Consumer{
		QueueName:   queue,
		Channel:     ch,
		StopChan:    make(chan struct{}),
		DoneChan:    make(chan struct{}),
		Handler:     handler,
		ConsumerTag: tag,
		logger:      logger.With(zap.String("queue", queue), zap.String("consumer", tag)),
	}

	go c.consumeLoop(msgs)

	c.logger.Info("consumer started")
	return c, nil
}

// consumeLoop processes messages until StopChan is closed
func (c *Consumer) consumeLoop(msgs <-chan amqp.Delivery) {
	defer close(c.DoneChan)

	for {
		select {
		case msg, ok := <-msgs:
			if !ok {
				c.logger.Warn("delivery channel closed")
				return
			}
			c.Handler(msg)

		case <-c.StopChan:
			_ = c.Channel.Cancel(c.ConsumerTag, false)
			return
		}
	}
}

// Stop signals the consumer to stop and waits for cleanup
func (c *Consumer) Stop() {
	close(c.StopChan)
	<-c.DoneChan
	_ = c.Channel.Close()
	c.logger.Info("consumer stopped")
}
