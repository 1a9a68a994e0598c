package mq

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/segmentio/kafka-go"

	"storefront/internal/pkg/logger"
)

const HeaderEventType = "event-type"

// Event 是所有领域事件的公共信封。
type Event struct {
	ID         string          `json:"id"`
	Type       string          `json:"type"`
	OccurredAt time.Time       `json:"occurred_at"`
	Payload    json.RawMessage `json:"payload"`
}

// Publisher 发布领域事件。
type Publisher interface {
	Publish(ctx context.Context, eventType, key string, payload any) error
}

// KafkaPublisher 把事件写进单个 topic，事件类型放在消息头里。
type KafkaPublisher struct {
	writer MessageWriter
	now    func() time.Time
}

func NewKafkaPublisher(writer MessageWriter) *KafkaPublisher {
	return &KafkaPublisher{writer: writer, now: time.Now}
}

func (p *KafkaPublisher) Publish(ctx context.Context, eventType, key string, payload any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return errors.Wrapf(err, "marshal %s payload", eventType)
	}
	evt := Event{
		ID:         uuid.NewString(),
		Type:       eventType,
		OccurredAt: p.now().UTC(),
		Payload:    body,
	}
	value, err := json.Marshal(evt)
	if err != nil {
		return errors.Wrapf(err, "marshal %s envelope", eventType)
	}
	header := kafka.Header{Key: HeaderEventType, Value: []byte(eventType)}
	if err := ProduceMessage(ctx, p.writer, []byte(key), value, header); err != nil {
		return errors.Wrapf(err, "produce %s", eventType)
	}
	return nil
}

// NoopPublisher 在没有配置 kafka 时使用，只记日志。
type NoopPublisher struct{}

func (NoopPublisher) Publish(ctx context.Context, eventType, key string, _ any) error {
	logger.Ctx(ctx).Debug().Str("event_type", eventType).Str("key", key).Msg("event publishing disabled, dropping event")
	return nil
}
