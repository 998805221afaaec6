package events

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/weissv/olymp-pay/internal/models"
)

type fakeWriter struct {
	messages []kafka.Message
	err      error
	closed   bool
}

func (w *fakeWriter) WriteMessages(ctx context.Context, msgs ...kafka.Message) error {
	if w.err != nil {
		return w.err
	}
	w.messages = append(w.messages, msgs...)
	return nil
}

func (w *fakeWriter) Close() error {
	w.closed = true
	return nil
}

func TestKafkaPublisher_Publish(t *testing.T) {
	writer := &fakeWriter{}
	p := newKafkaPublisher(zaptest.NewLogger(t), writer, "registration.payments")

	event := models.NewPaymentEvent(models.PaymentConfirmed, &models.Transaction{
		TransactionID: "t1",
		ChargeID:      "abc123",
		Amount:        5000000,
	}, time.UnixMilli(1_700_000_000_000))

	require.NoError(t, p.Publish(context.Background(), event))
	require.Len(t, writer.messages, 1)

	msg := writer.messages[0]
	assert.Equal(t, "abc123", string(msg.Key))
	require.Len(t, msg.Headers, 1)
	assert.Equal(t, "registration.payment.confirmed", string(msg.Headers[0].Value))

	var decoded models.PaymentEvent
	require.NoError(t, json.Unmarshal(msg.Value, &decoded))
	assert.Equal(t, event.EventID, decoded.EventID)
	assert.Equal(t, "t1", decoded.TransactionID)
	assert.Equal(t, int64(5000000), decoded.Amount)

	require.NoError(t, p.Close())
	assert.True(t, writer.closed)
}

func TestKafkaPublisher_WriteError(t *testing.T) {
	writer := &fakeWriter{err: errors.New("leader not available")}
	p := newKafkaPublisher(zaptest.NewLogger(t), writer, "registration.payments")

	err := p.Publish(context.Background(), models.PaymentEvent{EventType: models.PaymentReverted, ChargeID: "abc123"})
	require.Error(t, err)
	assert.ErrorIs(t, err, writer.err)
}
