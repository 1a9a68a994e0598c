package application

import (
	"context"
	"encoding/json"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"storefront/internal/pkg/logger"
	"storefront/internal/pkg/mq"
)

const (
	eventAccountErased  = "account.erased"
	eventCouponRedeemed = "coupon.redeemed"
)

// ErrMalformedEvent 表示事件负载无法解析，消息会被跳过。
var ErrMalformedEvent = errors.New("malformed event payload")

type accountErased struct {
	UserID            string    `json:"user_id"`
	ErasedAt          time.Time `json:"erased_at"`
	FailedCollections []string  `json:"failed_collections"`
}

type couponRedeemed struct {
	Code           string  `json:"code"`
	UserID         string  `json:"user_id"`
	OrderNumber    string  `json:"order_number"`
	DiscountAmount float64 `json:"discount_amount"`
	UsedCount      int     `json:"used_count"`
}

// AuditService 把业务事件写成审计日志。
type AuditService struct {
	audit  zerolog.Logger
	tracer trace.Tracer
}

// NewAuditService audit 是审计日志的输出，与服务自身的运行日志分开。
func NewAuditService(audit zerolog.Logger, tracer trace.Tracer) *AuditService {
	return &AuditService{audit: audit, tracer: tracer}
}

func (s *AuditService) Record(ctx context.Context, evt *mq.Event) error {
	ctx, span := s.tracer.Start(ctx, "service.RecordAudit")
	defer span.End()
	span.SetAttributes(attribute.String("event.type", evt.Type), attribute.String("event.id", evt.ID))

	switch evt.Type {
	case eventAccountErased:
		var p accountErased
		if err := json.Unmarshal(evt.Payload, &p); err != nil || p.UserID == "" {
			return errors.Wrapf(ErrMalformedEvent, "%s %s", evt.Type, evt.ID)
		}
		s.entry(evt).Str("user_id", p.UserID).
			Time("erased_at", p.ErasedAt).
			Strs("failed_collections", p.FailedCollections).
			Bool("complete", len(p.FailedCollections) == 0).
			Msg("account erased")
	case eventCouponRedeemed:
		var p couponRedeemed
		if err := json.Unmarshal(evt.Payload, &p); err != nil || p.Code == "" {
			return errors.Wrapf(ErrMalformedEvent, "%s %s", evt.Type, evt.ID)
		}
		s.entry(evt).Str("coupon_code", p.Code).
			Str("user_id", p.UserID).
			Str("order_number", p.OrderNumber).
			Float64("discount_amount", p.DiscountAmount).
			Int("used_count", p.UsedCount).
			Msg("coupon redeemed")
	default:
		logger.Ctx(ctx).Debug().Str("event_type", evt.Type).Msg("ignoring event type")
	}
	return nil
}

func (s *AuditService) entry(evt *mq.Event) *zerolog.Event {
	return s.audit.Info().
		Str("event_id", evt.ID).
		Str("event_type", evt.Type).
		Time("occurred_at", evt.OccurredAt)
}
