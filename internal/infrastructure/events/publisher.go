package events

import (
	"context"
	"fmt"

	"github.com/IBM/sarama"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/shopfront/order-service/internal/config"
	"github.com/shopfront/order-service/internal/domain"
)

// Publisher delivers committed outbox events to consumers.
type Publisher interface {
	Publish(ctx context.Context, ev domain.OutboxEvent) error
	Close() error
}

// NewSyncProducer builds a producer that waits for all in-sync replicas.
func NewSyncProducer(cfg config.KafkaConfig, logger *zap.Logger) (sarama.SyncProducer, error) {
	sc := sarama.NewConfig()
	sc.Producer.Return.Successes = true
	sc.Producer.RequiredAcks = sarama.WaitForAll
	sc.Producer.Retry.Max = 5
	sc.Producer.Idempotent = true
	sc.Net.MaxOpenRequests = 1

	producer, err := sarama.NewSyncProducer(cfg.Brokers, sc)
	if err != nil {
		return nil, fmt.Errorf("failed to create Kafka producer: %w", err)
	}

	logger.Info("Kafka producer initialized", zap.Strings("brokers", cfg.Brokers))
	return producer, nil
}

type KafkaPublisher struct {
	producer sarama.SyncProducer
	topic    string
	logger   *zap.Logger
}

func NewKafkaPublisher(producer sarama.SyncProducer, topic string, logger *zap.Logger) *KafkaPublisher {
	return &KafkaPublisher{
		producer: producer,
		topic:    topic,
		logger:   logger,
	}
}

// Publish keys the message by event key so all events of one order land on
// the same partition.
func (p *KafkaPublisher) Publish(ctx context.Context, ev domain.OutboxEvent) error {
	carrier := saramaHeaderCarrier{
		{Key: []byte("event_type"), Value: []byte(ev.Type)},
		{Key: []byte("event_id"), Value: []byte(ev.ID.String())},
	}
	otel.GetTextMapPropagator().Inject(ctx, &carrier)

	msg := &sarama.ProducerMessage{
		Topic:     p.topic,
		Key:       sarama.StringEncoder(ev.Key),
		Value:     sarama.ByteEncoder(ev.Payload),
		Headers:   []sarama.RecordHeader(carrier),
		Timestamp: ev.CreatedAt,
	}

	partition, offset, err := p.producer.SendMessage(msg)
	if err != nil {
		return fmt.Errorf("failed to send message: %w", err)
	}

	p.logger.Info("Event published",
		zap.String("trace_id", traceID(ctx)),
		zap.String("event_type", string(ev.Type)),
		zap.String("key", ev.Key),
		zap.String("topic", p.topic),
		zap.Int32("partition", partition),
		zap.Int64("offset", offset),
	)
	return nil
}

func (p *KafkaPublisher) Close() error {
	return p.producer.Close()
}

// LogPublisher only logs events. It stands in for Kafka in local runs.
type LogPublisher struct {
	logger *zap.Logger
}

func NewLogPublisher(logger *zap.Logger) *LogPublisher {
	return &LogPublisher{logger: logger}
}

func (p *LogPublisher) Publish(ctx context.Context, ev domain.OutboxEvent) error {
	p.logger.Info("Event published",
		zap.String("trace_id", traceID(ctx)),
		zap.String("event_type", string(ev.Type)),
		zap.String("key", ev.Key),
		zap.ByteString("payload", ev.Payload),
	)
	return nil
}

func (p *LogPublisher) Close() error { return nil }

func traceID(ctx context.Context) string {
	span := trace.SpanFromContext(ctx)
	if span.SpanContext().IsValid() {
		return span.SpanContext().TraceID().String()
	}
	return ""
}

// saramaHeaderCarrier adapts Kafka headers to propagation.TextMapCarrier.
type saramaHeaderCarrier []sarama.RecordHeader

func (c saramaHeaderCarrier) Get(key string) string {
	for _, h := range c {
		if string(h.Key) == key {
			return string(h.Value)
		}
	}
	return ""
}

func (c *saramaHeaderCarrier) Set(key, value string) {
	*c = append(*c, sarama.RecordHeader{
		Key:   []byte(key),
		Value: []byte(value),
	})
}

func (c saramaHeaderCarrier) Keys() []string {
	keys := make([]string, len(c))
	for i, h := range c {
		keys[i] = string(h.Key)
	}
	return keys
}
