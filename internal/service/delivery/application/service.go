package application

import (
	"context"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"storefront/internal/pkg/coalesce"
	"storefront/internal/service/delivery/domain"
)

const zonesCacheKey = "active-zones"

// FeeQuote 是某个区域的运费。Default 为 true 表示区域未配置，使用了默认运费。
type FeeQuote struct {
	Region  string  `json:"region"`
	Fee     float64 `json:"fee"`
	Default bool    `json:"default,omitempty"`
}

// DeliveryService 按区域查询运费。区域表经由 coalesce.Group 加载：
// 并发请求共享同一次读取，结果在 TTL 内复用。
type DeliveryService struct {
	repo       domain.ZoneRepository
	zones      *coalesce.Group[string, domain.FeeTable]
	defaultFee float64
	tracer     trace.Tracer
}

func NewDeliveryService(repo domain.ZoneRepository, cacheTTL time.Duration, defaultFee float64, tracer trace.Tracer) *DeliveryService {
	return &DeliveryService{
		repo:       repo,
		zones:      coalesce.New[string, domain.FeeTable](cacheTTL),
		defaultFee: defaultFee,
		tracer:     tracer,
	}
}

func (s *DeliveryService) QuoteFee(ctx context.Context, region string) (*FeeQuote, error) {
	ctx, span := s.tracer.Start(ctx, "service.QuoteFee")
	defer span.End()

	region = strings.TrimSpace(region)
	if region == "" {
		return nil, domain.ErrRegionRequired
	}
	span.SetAttributes(attribute.String("delivery.region", region))

	table, err := s.zones.Do(ctx, zonesCacheKey, func(ctx context.Context) (domain.FeeTable, error) {
		span.AddEvent("loading delivery zones")
		zones, err := s.repo.ListActive(ctx)
		if err != nil {
			return nil, err
		}
		return domain.NewFeeTable(zones), nil
	})
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	if fee, ok := table.Lookup(region); ok {
		return &FeeQuote{Region: region, Fee: fee}, nil
	}
	return &FeeQuote{Region: region, Fee: s.defaultFee, Default: true}, nil
}

// ResetCache 丢弃已缓存的区域表，下一次查询重新读取。
func (s *DeliveryService) ResetCache() {
	s.zones.Reset()
}
