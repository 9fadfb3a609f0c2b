package kafka

import (
	"context"
	stderrors "errors"
	"testing"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/alchemist/pkg/errors"
)

type mockWriter struct {
	written []kafka.Message
	err     error
	closed  int
}

func (m *mockWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	if m.err != nil {
		return m.err
	}
	m.written = append(m.written, msgs...)
	return nil
}

func (m *mockWriter) Close() error {
	m.closed++
	return nil
}

func newTestProducer(w WriterInterface) *Producer {
	return NewProducerWithWriter(w, ProducerConfig{Brokers: []string{"localhost:9092"}, MaxMessageBytes: 64}, nil)
}

func TestProducer_Publish(t *testing.T) {
	w := &mockWriter{}
	p := newTestProducer(w)

	err := p.Publish(context.Background(), &ProducerMessage{
		Topic:   "alchemist.prediction.requested",
		Key:     []byte("k"),
		Value:   []byte(`{"a":1}`),
		Headers: map[string]string{"event_type": "prediction.requested"},
	})
	require.NoError(t, err)
	require.Len(t, w.written, 1)
	assert.Equal(t, "alchemist.prediction.requested", w.written[0].Topic)
	assert.Equal(t, []byte("k"), w.written[0].Key)
	assert.False(t, w.written[0].Time.IsZero())
	require.Len(t, w.written[0].Headers, 1)
	assert.Equal(t, "event_type", w.written[0].Headers[0].Key)
	assert.EqualValues(t, 1, p.Sent())
}

func TestProducer_Publish_Validation(t *testing.T) {
	p := newTestProducer(&mockWriter{})
	ctx := context.Background()

	tests := []struct {
		name string
		msg  *ProducerMessage
	}{
		{"no topic", &ProducerMessage{Value: []byte("x")}},
		{"no value", &ProducerMessage{Topic: "t"}},
		{"too large", &ProducerMessage{Topic: "t", Value: make([]byte, 65)}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := p.Publish(ctx, tt.msg)
			assert.True(t, errors.IsCode(err, errors.CodeInvalidParam))
		})
	}
}

func TestProducer_Publish_WriteError(t *testing.T) {
	w := &mockWriter{err: stderrors.New("broker down")}
	p := newTestProducer(w)
	var seen error
	p.OnSent(func(topic string, err error) { seen = err })

	err := p.Publish(context.Background(), &ProducerMessage{Topic: "t", Value: []byte("x")})
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.CodeMessageQueueError))
	assert.Error(t, seen)
	assert.EqualValues(t, 1, p.Failed())
}

func TestProducer_Close(t *testing.T) {
	w := &mockWriter{}
	p := newTestProducer(w)
	require.NoError(t, p.Close())
	require.NoError(t, p.Close())
	assert.Equal(t, 1, w.closed)

	err := p.Publish(context.Background(), &ProducerMessage{Topic: "t", Value: []byte("x")})
	assert.Equal(t, ErrProducerClosed, err)
}

func TestValidateProducerConfig(t *testing.T) {
	assert.Error(t, ValidateProducerConfig(ProducerConfig{}))
	assert.Error(t, ValidateProducerConfig(ProducerConfig{Brokers: []string{"b"}, MaxRetries: -1}))
	assert.NoError(t, ValidateProducerConfig(ProducerConfig{Brokers: []string{"b"}}))

	_, err := NewProducer(ProducerConfig{}, nil)
	assert.Error(t, err)
}
