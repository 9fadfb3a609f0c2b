package kafka

import (
	"context"
	stderrors "errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockReader struct {
	msgs      chan kafka.Message
	mu        sync.Mutex
	committed []kafka.Message
	closed    bool
}

func newMockReader(msgs ...kafka.Message) *mockReader {
	ch := make(chan kafka.Message, len(msgs))
	for _, m := range msgs {
		ch <- m
	}
	return &mockReader{msgs: ch}
}

func (m *mockReader) FetchMessage(ctx context.Context) (kafka.Message, error) {
	select {
	case <-ctx.Done():
		return kafka.Message{}, ctx.Err()
	case msg := <-m.msgs:
		return msg, nil
	}
}

func (m *mockReader) CommitMessages(_ context.Context, msgs ...kafka.Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.committed = append(m.committed, msgs...)
	return nil
}

func (m *mockReader) Close() error {
	m.closed = true
	return nil
}

func (m *mockReader) commits() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.committed)
}

type recordingPublisher struct {
	mu   sync.Mutex
	msgs []*ProducerMessage
}

func (r *recordingPublisher) Publish(_ context.Context, msg *ProducerMessage) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.msgs = append(r.msgs, msg)
	return nil
}

func testConsumerConfig() ConsumerConfig {
	return ConsumerConfig{
		Brokers: []string{"localhost:9092"},
		GroupID: "workers",
		Topics:  []string{"requests"},
		RetryConfig: RetryConfig{
			MaxRetries:      2,
			RetryBackoff:    time.Millisecond,
			MaxRetryBackoff: 2 * time.Millisecond,
			DeadLetterTopic: "dlq",
		},
	}
}

func TestConsumer_DispatchesAndCommits(t *testing.T) {
	reader := newMockReader(kafka.Message{
		Topic:   "requests",
		Value:   []byte("payload"),
		Headers: []kafka.Header{{Key: "event_type", Value: []byte("x")}},
	})
	c := NewConsumerWithReader(reader, testConsumerConfig(), nil, nil)

	got := make(chan *Message, 1)
	c.Subscribe("requests", func(_ context.Context, msg *Message) error {
		got <- msg
		return nil
	})
	require.NoError(t, c.Start(context.Background()))
	assert.Equal(t, ErrAlreadyRunning, c.Start(context.Background()))

	select {
	case msg := <-got:
		assert.Equal(t, "payload", string(msg.Value))
		assert.Equal(t, "x", msg.Headers["event_type"])
	case <-time.After(2 * time.Second):
		t.Fatal("handler not called")
	}
	assert.Eventually(t, func() bool { return reader.commits() == 1 }, 2*time.Second, 5*time.Millisecond)
	assert.Eventually(t, func() bool { return c.Processed() == 1 }, 2*time.Second, 5*time.Millisecond)

	require.NoError(t, c.Close())
	assert.True(t, reader.closed)
}

func TestConsumer_RetriesThenSucceeds(t *testing.T) {
	c := NewConsumerWithReader(newMockReader(), testConsumerConfig(), nil, nil)
	var calls atomic.Int32
	err := c.processMessage(context.Background(), &Message{Topic: "requests"}, func(context.Context, *Message) error {
		if calls.Add(1) < 2 {
			return stderrors.New("transient")
		}
		return nil
	})
	assert.NoError(t, err)
	assert.EqualValues(t, 2, calls.Load())
}

func TestConsumer_DeadLettersAfterRetries(t *testing.T) {
	dlq := &recordingPublisher{}
	c := NewConsumerWithReader(newMockReader(), testConsumerConfig(), dlq, nil)
	var calls atomic.Int32

	msg := &Message{Topic: "requests", Key: []byte("id"), Value: []byte("v"), Headers: map[string]string{"a": "b"}}
	err := c.processMessage(context.Background(), msg, func(context.Context, *Message) error {
		calls.Add(1)
		return stderrors.New("boom")
	})
	require.Error(t, err)
	assert.EqualValues(t, 3, calls.Load())
	require.Len(t, dlq.msgs, 1)
	assert.Equal(t, "dlq", dlq.msgs[0].Topic)
	assert.Equal(t, "requests", dlq.msgs[0].Headers["original_topic"])
	assert.Equal(t, "boom", dlq.msgs[0].Headers["error_message"])
	assert.Equal(t, "b", dlq.msgs[0].Headers["a"])
	assert.EqualValues(t, 1, c.DeadLettered())
}

func TestConsumer_RetryStopsOnCancel(t *testing.T) {
	cfg := testConsumerConfig()
	cfg.RetryConfig.RetryBackoff = time.Hour
	c := NewConsumerWithReader(newMockReader(), cfg, nil, nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := c.processMessage(ctx, &Message{}, func(context.Context, *Message) error { return stderrors.New("x") })
	assert.ErrorIs(t, err, context.Canceled)
}

func TestValidateConsumerConfig(t *testing.T) {
	assert.NoError(t, ValidateConsumerConfig(testConsumerConfig()))

	cfg := testConsumerConfig()
	cfg.GroupID = ""
	assert.Error(t, ValidateConsumerConfig(cfg))

	cfg = testConsumerConfig()
	cfg.Topics = nil
	assert.Error(t, ValidateConsumerConfig(cfg))

	cfg = testConsumerConfig()
	cfg.AutoOffsetReset = "middle"
	assert.Error(t, ValidateConsumerConfig(cfg))
}
