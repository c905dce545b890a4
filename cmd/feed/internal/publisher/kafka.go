package publisher

import (
	"context"
	"encoding/json"
	"time"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"github.com/tickerhub/stock-ticker/pkg/models"
)

// KafkaWriter abstracts the output stream for deterministic tests.
type KafkaWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaPublisher mirrors every generated tick onto a Kafka topic so
// downstream consumers can be attached without touching the feed.
type KafkaPublisher struct {
	writer KafkaWriter
	logger *zap.Logger
}

func New(writer KafkaWriter, logger *zap.Logger) *KafkaPublisher {
	return &KafkaPublisher{writer: writer, logger: logger}
}

// NewWriter builds the production Kafka writer. Async with small batches:
// the export is fire-and-forget and must never stall the tick loop.
func NewWriter(brokers []string, topic string) *kafka.Writer {
	return &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.LeastBytes{},
		BatchSize:    100,
		BatchTimeout: 10 * time.Millisecond,
		Async:        true,
	}
}

func (p *KafkaPublisher) Publish(ctx context.Context, tick models.Tick) error {
	payload, err := json.Marshal(tick)
	if err != nil {
		return err
	}

	// Key by symbol so each instrument's ticks stay ordered per partition.
	return p.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(tick.Code),
		Value: payload,
	})
}

func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}
