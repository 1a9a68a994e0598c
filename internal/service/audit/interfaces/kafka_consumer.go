// internal/service/audit/interfaces/kafka_consumer.go
package interfaces

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/segmentio/kafka-go"

	"storefront/internal/pkg/logger"
	"storefront/internal/pkg/mq"
	"storefront/internal/service/audit/application"
)

// MessageReader 是 *kafka.Reader 的子集。
type MessageReader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// AuditConsumerAdapter 是一个驱动适配器，它监听Kafka消息并驱动审计服务。
type AuditConsumerAdapter struct {
	reader  MessageReader
	appSvc  *application.AuditService
	backoff time.Duration

	wg     sync.WaitGroup
	cancel context.CancelFunc
}

func NewAuditConsumerAdapter(reader MessageReader, appSvc *application.AuditService) *AuditConsumerAdapter {
	return &AuditConsumerAdapter{reader: reader, appSvc: appSvc, backoff: time.Second}
}

// Start 在后台开始消费，直到 ctx 结束或调用 Stop。
func (a *AuditConsumerAdapter) Start(ctx context.Context) {
	ctx, a.cancel = context.WithCancel(ctx)
	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		logger.Ctx(ctx).Info().Msg("audit consumer started")
		for {
			// 使用 FetchMessage 手动提交 offset
			msg, err := a.reader.FetchMessage(ctx)
			if err != nil {
				if ctx.Err() != nil {
					logger.Ctx(ctx).Info().Msg("audit consumer shutting down")
					return
				}
				logger.Ctx(ctx).Error().Err(err).Msg("could not read message, retrying")
				select {
				case <-time.After(a.backoff):
				case <-ctx.Done():
					return
				}
				continue
			}

			a.processMessage(ctx, msg)

			if err := a.reader.CommitMessages(ctx, msg); err != nil && ctx.Err() == nil {
				logger.Ctx(ctx).Error().Err(err).Int64("offset", msg.Offset).Msg("failed to commit message")
			}
		}
	}()
}

// Stop 停止消费并关闭 reader。
func (a *AuditConsumerAdapter) Stop(context.Context) error {
	if a.cancel != nil {
		a.cancel()
	}
	a.wg.Wait()
	return a.reader.Close()
}

// processMessage 反序列化消息并调用应用服务。无法处理的消息记录后跳过。
func (a *AuditConsumerAdapter) processMessage(parent context.Context, msg kafka.Message) {
	ctx := mq.ExtractTraceContext(parent, msg.Headers)
	log := logger.Ctx(ctx).With().Str("topic", msg.Topic).Int("partition", msg.Partition).Int64("offset", msg.Offset).Logger()

	var evt mq.Event
	if err := json.Unmarshal(msg.Value, &evt); err != nil {
		log.Error().Err(err).Msg("failed to unmarshal event, skipping")
		return
	}
	if evt.Type == "" {
		carrier := mq.KafkaHeaderCarrier(msg.Headers)
		evt.Type = carrier.Get(mq.HeaderEventType)
	}

	if err := a.appSvc.Record(ctx, &evt); err != nil {
		if errors.Is(err, application.ErrMalformedEvent) {
			log.Error().Err(err).Msg("malformed event, skipping")
			return
		}
		log.Error().Err(err).Str("event_id", evt.ID).Msg("failed to record audit event")
	}
}
