package kafka

import (
	"context"
	"encoding/json"
	"net"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"

	"github.com/turtacn/alchemist/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/alchemist/pkg/errors"
)

const schemaVersion = "1"

// EventEnvelope wraps every event payload on the wire.
type EventEnvelope struct {
	EventID       string            `json:"event_id"`
	EventType     string            `json:"event_type"`
	Source        string            `json:"source"`
	Timestamp     time.Time         `json:"timestamp"`
	SchemaVersion string            `json:"schema_version"`
	Payload       json.RawMessage   `json:"payload"`
	Metadata      map[string]string `json:"metadata,omitempty"`
}

// NewEventEnvelope marshals payload into an envelope.
func NewEventEnvelope(eventType, source string, payload interface{}) (*EventEnvelope, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeSerialization, "failed to marshal event payload")
	}
	return &EventEnvelope{
		EventID:       uuid.NewString(),
		EventType:     eventType,
		Source:        source,
		Timestamp:     time.Now().UTC(),
		SchemaVersion: schemaVersion,
		Payload:       raw,
	}, nil
}

// DecodePayload unmarshals the payload into target.
func (e *EventEnvelope) DecodePayload(target interface{}) error {
	if err := json.Unmarshal(e.Payload, target); err != nil {
		return errors.Wrap(err, errors.ErrCodeSerialization, "failed to decode event payload")
	}
	return nil
}

// ToMessage encodes the envelope for topic with the given partition key.
func (e *EventEnvelope) ToMessage(topic string, key string) (*ProducerMessage, error) {
	value, err := json.Marshal(e)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeSerialization, "failed to marshal envelope")
	}
	return &ProducerMessage{
		Topic:     topic,
		Key:       []byte(key),
		Value:     value,
		Timestamp: e.Timestamp,
		Headers: map[string]string{
			"event_type":     e.EventType,
			"schema_version": e.SchemaVersion,
		},
	}, nil
}

// MessageToEventEnvelope decodes a consumed message.
func MessageToEventEnvelope(msg *Message) (*EventEnvelope, error) {
	var env EventEnvelope
	if err := json.Unmarshal(msg.Value, &env); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeSerialization, "failed to decode envelope")
	}
	if env.EventType == "" {
		return nil, errors.InvalidParam("envelope has no event type")
	}
	return &env, nil
}

// PublishEvent wraps payload and publishes it on topic.
func PublishEvent(ctx context.Context, p Publisher, topic, eventType, key string, payload interface{}) error {
	env, err := NewEventEnvelope(eventType, "alchemist", payload)
	if err != nil {
		return err
	}
	msg, err := env.ToMessage(topic, key)
	if err != nil {
		return err
	}
	return p.Publish(ctx, msg)
}

// TopicConfig describes a topic to create.
type TopicConfig struct {
	Name              string
	NumPartitions     int
	ReplicationFactor int
	RetentionMs       int64
}

// Topics holds the configured topic names.
type Topics struct {
	Requested  string
	Completed  string
	DeadLetter string
}

// Configs returns creation settings for every configured topic.
func (t Topics) Configs() []TopicConfig {
	week := int64(7 * 24 * time.Hour / time.Millisecond)
	return []TopicConfig{
		{Name: t.Requested, NumPartitions: 3, ReplicationFactor: 1, RetentionMs: week},
		{Name: t.Completed, NumPartitions: 3, ReplicationFactor: 1, RetentionMs: week},
		{Name: t.DeadLetter, NumPartitions: 1, ReplicationFactor: 1, RetentionMs: 4 * week},
	}
}

// EnsureTopics creates missing topics through the cluster controller.
func EnsureTopics(ctx context.Context, brokers []string, topics []TopicConfig, logger logging.Logger) error {
	if len(brokers) == 0 {
		return errors.InvalidParam("brokers required")
	}
	dialer := &kafka.Dialer{Timeout: 10 * time.Second}
	conn, err := dialer.DialContext(ctx, "tcp", brokers[0])
	if err != nil {
		return errors.Wrap(err, errors.CodeMessageQueueError, "failed to dial kafka")
	}
	defer conn.Close()

	controller, err := conn.Controller()
	if err != nil {
		return errors.Wrap(err, errors.CodeMessageQueueError, "failed to find controller")
	}
	cconn, err := dialer.DialContext(ctx, "tcp", net.JoinHostPort(controller.Host, strconv.Itoa(controller.Port)))
	if err != nil {
		return errors.Wrap(err, errors.CodeMessageQueueError, "failed to dial controller")
	}
	defer cconn.Close()

	cfgs := make([]kafka.TopicConfig, 0, len(topics))
	for _, t := range topics {
		if t.Name == "" {
			continue
		}
		tc := kafka.TopicConfig{
			Topic:             t.Name,
			NumPartitions:     t.NumPartitions,
			ReplicationFactor: t.ReplicationFactor,
		}
		if t.RetentionMs > 0 {
			tc.ConfigEntries = []kafka.ConfigEntry{{ConfigName: "retention.ms", ConfigValue: strconv.FormatInt(t.RetentionMs, 10)}}
		}
		cfgs = append(cfgs, tc)
	}
	if err := cconn.CreateTopics(cfgs...); err != nil {
		return errors.Wrap(err, errors.CodeMessageQueueError, "failed to create topics")
	}
	logger.Info("Kafka topics ensured", logging.Int("count", len(cfgs)))
	return nil
}
