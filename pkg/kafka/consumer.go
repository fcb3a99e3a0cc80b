package kafka

import (
	"context"
	"log/slog"

	"github.com/segmentio/kafka-go"
)

// MessageHandler is a function that handles a consumed message
type MessageHandler func(ctx context.Context, key, value []byte) error

// Consumer handles consuming messages from Kafka topics
type Consumer struct {
	config   *Config
	readers  map[string]*kafka.Reader
	handlers map[string]MessageHandler
	logger   *slog.Logger
}

// NewConsumer creates a new Kafka consumer
func NewConsumer(config *Config, logger *slog.Logger) *Consumer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Consumer{
		config:   config,
		readers:  make(map[string]*kafka.Reader),
		handlers: make(map[string]MessageHandler),
		logger:   logger,
	}
}

// Subscribe registers a handler for a topic
func (c *Consumer) Subscribe(topic string, handler MessageHandler) {
	c.handlers[topic] = handler
}

// getReader returns a reader for the specified topic, creating one if necessary
func (c *Consumer) getReader(topic string) *kafka.Reader {
	if reader, exists := c.readers[topic]; exists {
		return reader
	}

	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:        c.config.Brokers,
		GroupID:        c.config.ConsumerGroup,
		Topic:          topic,
		MinBytes:       c.config.MinBytes,
		MaxBytes:       c.config.MaxBytes,
		MaxWait:        c.config.MaxWait,
		CommitInterval: c.config.CommitTimeout,
	})

	c.readers[topic] = reader
	return reader
}

// Start consumes messages from all subscribed topics until ctx is cancelled
func (c *Consumer) Start(ctx context.Context) error {
	for topic := range c.handlers {
		go c.consumeTopic(ctx, topic)
	}

	<-ctx.Done()
	return ctx.Err()
}

func (c *Consumer) consumeTopic(ctx context.Context, topic string) {
	reader := c.getReader(topic)
	handler := c.handlers[topic]

	for {
		msg, err := reader.ReadMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			c.logger.Error("Failed to read message", "topic", topic, "error", err)
			continue
		}

		if err := handler(ctx, msg.Key, msg.Value); err != nil {
			// The message is already committed; failed units are surfaced
			// through notifications, not redelivery
			c.logger.Error("Message handler failed",
				"topic", topic,
				"key", string(msg.Key),
				"error", err,
			)
		}
	}
}

// Close closes all readers
func (c *Consumer) Close() error {
	var firstErr error
	for _, reader := range c.readers {
		if err := reader.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
