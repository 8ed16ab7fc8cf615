package notify

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"github.com/sanspareilsmyn/fishlens/internal/config"
)

type kafkaZapLogger struct {
	log *zap.Logger
}

func (l kafkaZapLogger) Printf(msg string, args ...interface{}) {
	l.log.Debug(fmt.Sprintf(msg, args...))
}

type kafkaZapErrorLogger struct {
	log *zap.Logger
}

func (l kafkaZapErrorLogger) Printf(msg string, args ...interface{}) {
	l.log.Error(fmt.Sprintf(msg, args...))
}

// messageWriter is the part of *kafka.Writer the notifier uses.
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaNotifier publishes notifications as JSON to a Kafka topic so other
// services (paging, chat bridges) can pick them up. The writer is async;
// delivery failures are logged and never surface to the caller.
type KafkaNotifier struct {
	writer messageWriter
	topic  string
	logger *zap.Logger
}

// NewKafkaNotifier creates a notifier writing to cfg.Topic on cfg.Brokers.
func NewKafkaNotifier(cfg config.KafkaConfig, logger *zap.Logger) (*KafkaNotifier, error) {
	if len(cfg.Brokers) == 0 || cfg.Topic == "" {
		logger.Error("Kafka notifier configuration validation failed",
			zap.Strings("brokers", cfg.Brokers),
			zap.String("topic", cfg.Topic),
		)
		return nil, ErrInvalidKafkaConfig
	}

	w := &kafka.Writer{
		Addr:        kafka.TCP(cfg.Brokers...),
		Topic:       cfg.Topic,
		Balancer:    &kafka.LeastBytes{},
		Async:       true,
		Logger:      kafkaZapLogger{logger.Named("kafka-writer").WithOptions(zap.AddCallerSkip(1))},
		ErrorLogger: kafkaZapErrorLogger{logger.Named("kafka-writer-error").WithOptions(zap.AddCallerSkip(1))},
		Completion: func(messages []kafka.Message, err error) {
			if err != nil {
				logger.Warn("Failed to deliver notifications", zap.Int("count", len(messages)), zap.Error(err))
			}
		},
	}

	logger.Info("Kafka notifier created",
		zap.String("topic", cfg.Topic),
		zap.Strings("brokers", cfg.Brokers),
	)

	return newKafkaNotifier(w, cfg.Topic, logger), nil
}

func newKafkaNotifier(w messageWriter, topic string, logger *zap.Logger) *KafkaNotifier {
	return &KafkaNotifier{writer: w, topic: topic, logger: logger}
}

func (k *KafkaNotifier) Notify(ctx context.Context, n Notification) {
	payload, err := json.Marshal(n)
	if err != nil {
		k.logger.Error("Failed to encode notification", zap.String("title", n.Title), zap.Error(err))
		return
	}

	err = k.writer.WriteMessages(ctx, kafka.Message{Key: []byte(n.Kind), Value: payload})
	if err != nil {
		k.logger.Warn("Failed to publish notification",
			zap.String("topic", k.topic),
			zap.String("title", n.Title),
			zap.Error(err),
		)
	}
}

// Close flushes pending messages and releases the writer.
func (k *KafkaNotifier) Close() error {
	if err := k.writer.Close(); err != nil {
		return fmt.Errorf("%w: %w", ErrKafkaCloseFailed, err)
	}
	return nil
}
