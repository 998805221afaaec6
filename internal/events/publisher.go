package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"github.com/weissv/olymp-pay/internal/models"
)

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaPublisher writes payment events to a topic keyed by charge_id, so all
// events of one registration land on the same partition in order.
type KafkaPublisher struct {
	logger *zap.Logger
	writer messageWriter
	topic  string
}

func NewKafkaPublisher(logger *zap.Logger, brokers []string, topic string) *KafkaPublisher {
	writer := &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireAll,
		WriteTimeout: 5 * time.Second,
	}
	return newKafkaPublisher(logger, writer, topic)
}

func newKafkaPublisher(logger *zap.Logger, writer messageWriter, topic string) *KafkaPublisher {
	return &KafkaPublisher{
		logger: logger,
		writer: writer,
		topic:  topic,
	}
}

func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}

func (p *KafkaPublisher) Publish(ctx context.Context, event models.PaymentEvent) error {
	value, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal %s event: %w", event.EventType, err)
	}

	message := kafka.Message{
		Key:   []byte(event.ChargeID),
		Value: value,
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte(event.EventType)},
		},
	}
	if err := p.writer.WriteMessages(ctx, message); err != nil {
		return fmt.Errorf("failed to write %s event to %s: %w", event.EventType, p.topic, err)
	}

	p.logger.Info("payment event published",
		zap.String("topic", p.topic),
		zap.String("event_type", string(event.EventType)),
		zap.String("charge_id", event.ChargeID),
		zap.String("transaction_id", event.TransactionID),
	)
	return nil
}

// NoopPublisher drops events; used when no brokers are configured.
type NoopPublisher struct{}

func (NoopPublisher) Publish(ctx context.Context, event models.PaymentEvent) error {
	return nil
}
