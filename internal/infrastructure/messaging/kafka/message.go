package kafka

import (
	"context"
	"time"
)

// Message is a consumed record.
type Message struct {
	Topic     string
	Partition int
	Offset    int64
	Key       []byte
	Value     []byte
	Headers   map[string]string
	Timestamp time.Time
}

// ProducerMessage is a record to publish.
type ProducerMessage struct {
	Topic     string
	Key       []byte
	Value     []byte
	Headers   map[string]string
	Timestamp time.Time
}

// MessageHandler processes one message. A non-nil error triggers retries.
type MessageHandler func(ctx context.Context, msg *Message) error

// Publisher is the producer side used by services and the dead letter path.
type Publisher interface {
	Publish(ctx context.Context, msg *ProducerMessage) error
}
