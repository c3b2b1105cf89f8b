package events

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/IBM/sarama"
	"github.com/IBM/sarama/mocks"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/shopfront/order-service/internal/domain"
)

func testEvent() domain.OutboxEvent {
	return domain.OutboxEvent{
		ID:        uuid.New(),
		Type:      domain.EventOrderCreated,
		Key:       "ORD-20250618-ABCDEF12",
		Payload:   []byte(`{"orderId":1}`),
		CreatedAt: time.Date(2025, 6, 18, 9, 0, 0, 0, time.UTC),
	}
}

func TestKafkaPublisher_Publish(t *testing.T) {
	producer := mocks.NewSyncProducer(t, nil)
	ev := testEvent()

	producer.ExpectSendMessageWithMessageCheckerFunctionAndSucceed(func(msg *sarama.ProducerMessage) error {
		if msg.Topic != "order_events" {
			return fmt.Errorf("unexpected topic %q", msg.Topic)
		}
		key, err := msg.Key.Encode()
		if err != nil {
			return err
		}
		if string(key) != ev.Key {
			return fmt.Errorf("unexpected key %q", key)
		}
		if saramaHeaderCarrier(msg.Headers).Get("event_type") != string(domain.EventOrderCreated) {
			return errors.New("missing event_type header")
		}
		return nil
	})

	p := NewKafkaPublisher(producer, "order_events", zaptest.NewLogger(t))
	require.NoError(t, p.Publish(context.Background(), ev))
	require.NoError(t, p.Close())
}

func TestKafkaPublisher_PublishFailure(t *testing.T) {
	producer := mocks.NewSyncProducer(t, nil)
	producer.ExpectSendMessageAndFail(sarama.ErrNotLeaderForPartition)

	p := NewKafkaPublisher(producer, "order_events", zaptest.NewLogger(t))
	err := p.Publish(context.Background(), testEvent())
	require.Error(t, err)
	assert.ErrorIs(t, err, sarama.ErrNotLeaderForPartition)
	require.NoError(t, p.Close())
}

func TestLogPublisher(t *testing.T) {
	p := NewLogPublisher(zaptest.NewLogger(t))
	assert.NoError(t, p.Publish(context.Background(), testEvent()))
	assert.NoError(t, p.Close())
}

func TestSaramaHeaderCarrier(t *testing.T) {
	var c saramaHeaderCarrier
	c.Set("traceparent", "00-abc-def-01")

	assert.Equal(t, "00-abc-def-01", c.Get("traceparent"))
	assert.Equal(t, "", c.Get("missing"))
	assert.Equal(t, []string{"traceparent"}, c.Keys())
}
