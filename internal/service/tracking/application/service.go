package application

import (
	"context"

	"github.com/pkg/errors"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"storefront/internal/pkg/logger"
	"storefront/internal/service/tracking/domain"
)

// TrackingService 提供匿名订单查询。调用方不是订单的登录用户，凭订单号和手机号后 4 位证明身份。
type TrackingService struct {
	repo   domain.OrderRepository
	tracer trace.Tracer
}

func NewTrackingService(repo domain.OrderRepository, tracer trace.Tracer) *TrackingService {
	return &TrackingService{repo: repo, tracer: tracer}
}

// TrackOrder 校验输入、查找订单并核对手机号后 4 位。只读。
func (s *TrackingService) TrackOrder(ctx context.Context, req *TrackOrderRequest) (*TrackOrderResponse, error) {
	ctx, span := s.tracer.Start(ctx, "service.TrackOrder")
	defer span.End()

	orderNumber, err := domain.ValidateTrackingInput(req.OrderNumber, req.PhoneLast4)
	if err != nil {
		span.SetStatus(codes.Error, "invalid input")
		return nil, err
	}
	span.SetAttributes(attribute.String("order.number", orderNumber))

	order, err := s.repo.FindByOrderNumber(ctx, orderNumber)
	if err != nil {
		if errors.Is(err, domain.ErrOrderNotFound) {
			logger.Ctx(ctx).Info().Str("order_number", orderNumber).Msg("tracking lookup missed")
			return nil, domain.ErrOrderNotFound
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, "order lookup failed")
		return nil, err
	}

	if !order.PhoneMatches(req.PhoneLast4) {
		// 与订单不存在走同一个错误
		logger.Ctx(ctx).Info().Str("order_number", orderNumber).Msg("tracking verification failed")
		return nil, domain.ErrOrderNotFound
	}

	items, err := s.repo.ListItems(ctx, order.ID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "order items lookup failed")
		return nil, err
	}
	order.Items = items

	span.AddEvent("order tracked", trace.WithAttributes(attribute.Int("order.items", len(items))))
	return &TrackOrderResponse{Order: toTrackedOrder(order)}, nil
}

func toTrackedOrder(o *domain.Order) TrackedOrder {
	items := make([]TrackedItem, 0, len(o.Items))
	for _, it := range o.Items {
		items = append(items, TrackedItem{
			ID:          it.ID,
			ProductID:   it.ProductID,
			ProductName: it.ProductName,
			Price:       it.Price,
			Quantity:    it.Quantity,
		})
	}
	return TrackedOrder{
		ID:               o.ID,
		OrderNumber:      o.OrderNumber,
		Status:           o.Status,
		CreatedAt:        o.CreatedAt,
		UpdatedAt:        o.UpdatedAt,
		Subtotal:         o.Subtotal,
		DeliveryFee:      o.DeliveryFee,
		DiscountAmount:   o.DiscountAmount,
		Total:            o.Total,
		ShippingRegion:   o.ShippingRegion,
		PaymentMethod:    o.PaymentMethod,
		PaymentConfirmed: o.PaymentConfirmed,
		CustomerName:     o.CustomerName,
		Items:            items,
	}
}
