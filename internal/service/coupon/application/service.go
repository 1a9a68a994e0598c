package application

import (
	"context"
	"fmt"
	"time"

	"github.com/pkg/errors"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"storefront/internal/pkg/datastore"
	"storefront/internal/pkg/logger"
	"storefront/internal/pkg/mq"
	"storefront/internal/service/coupon/domain"
)

const defaultMaxAttempts = 3

// RedemptionClaims 记录已核销过的 (code, 订单号)，防止同一订单重复核销。
type RedemptionClaims interface {
	Claim(ctx context.Context, key string) (bool, error)
	Release(ctx context.Context, key string) error
}

// CouponService 提供优惠券校验和核销。校验只读，核销通过条件更新 used_count 保证不超过 max_uses。
type CouponService struct {
	repo      domain.CouponRepository
	orders    domain.OrderOwners
	identity  datastore.ScopedStore
	claims    RedemptionClaims
	publisher mq.Publisher
	tracer    trace.Tracer

	maxAttempts int
	now         func() time.Time
}

type Option func(*CouponService)

// WithClaims 开启按订单号的幂等核销。
func WithClaims(c RedemptionClaims) Option {
	return func(s *CouponService) { s.claims = c }
}

func WithPublisher(p mq.Publisher) Option {
	return func(s *CouponService) { s.publisher = p }
}

func WithMaxAttempts(n int) Option {
	return func(s *CouponService) {
		if n > 0 {
			s.maxAttempts = n
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(s *CouponService) { s.now = now }
}

func NewCouponService(repo domain.CouponRepository, orders domain.OrderOwners, identity datastore.ScopedStore, tracer trace.Tracer, opts ...Option) *CouponService {
	s := &CouponService{
		repo:        repo,
		orders:      orders,
		identity:    identity,
		publisher:   mq.NoopPublisher{},
		tracer:      tracer,
		maxAttempts: defaultMaxAttempts,
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ValidateCoupon 校验优惠券并计算折扣，不修改 used_count，也不预留使用次数。
// 业务上的无效以领域错误返回（ErrCouponNotFound、ErrCouponExpired 等）。
func (s *CouponService) ValidateCoupon(ctx context.Context, req *ValidateCouponRequest) (*CouponQuote, error) {
	ctx, span := s.tracer.Start(ctx, "service.ValidateCoupon")
	defer span.End()

	code, total, err := normalizeInput(req.Code, req.OrderTotal)
	if err != nil {
		return nil, err
	}
	span.SetAttributes(attribute.String("coupon.code", code), attribute.Float64("order.total", total))

	coupon, err := s.repo.FindActiveByCode(ctx, code)
	if err != nil {
		if !errors.Is(err, domain.ErrCouponNotFound) {
			span.RecordError(err)
			span.SetStatus(codes.Error, "coupon lookup failed")
		}
		return nil, err
	}
	if err := coupon.CheckUsable(total, s.now()); err != nil {
		span.AddEvent("coupon rejected", trace.WithAttributes(attribute.String("reason", err.Error())))
		return nil, err
	}
	return quote(coupon, total), nil
}

// RedeemCoupon 为调用方自己的订单核销一次优惠券。
func (s *CouponService) RedeemCoupon(ctx context.Context, accessToken string, req *RedeemCouponRequest) (*CouponQuote, error) {
	ctx, span := s.tracer.Start(ctx, "service.RedeemCoupon")
	defer span.End()

	identity, err := s.identity.ResolveIdentity(ctx, accessToken)
	if err != nil {
		if errors.Is(err, datastore.ErrUnauthorized) {
			return nil, domain.ErrUnauthorized
		}
		span.RecordError(err)
		return nil, errors.Wrap(err, "resolve identity")
	}

	code, total, err := normalizeInput(req.Code, req.OrderTotal)
	if err != nil {
		return nil, err
	}
	orderNumber := domain.NormalizeCode(req.OrderNumber)
	if orderNumber == "" {
		return nil, domain.ErrOrderNumberRequired
	}
	span.SetAttributes(
		attribute.String("coupon.code", code),
		attribute.String("order.number", orderNumber),
		attribute.String("user.id", identity.ID),
	)
	log := logger.Ctx(ctx).With().Str("coupon_code", code).Str("order_number", orderNumber).Str("user_id", identity.ID).Logger()

	// 订单必须存在且属于调用方，否则任意编造的订单号都能消耗次数
	owner, err := s.orders.OwnerOf(ctx, orderNumber)
	if err != nil {
		if errors.Is(err, domain.ErrOrderNotFound) {
			return nil, domain.ErrOrderNotFound
		}
		span.RecordError(err)
		return nil, errors.Wrap(err, "resolve order owner")
	}
	if owner != identity.ID {
		log.Warn().Msg("redemption attempted on an order owned by another user")
		return nil, domain.ErrOrderNotFound
	}

	claimKey := fmt.Sprintf("coupon-redeem:%s:%s", code, orderNumber)
	claimed := false
	if s.claims != nil {
		ok, err := s.claims.Claim(ctx, claimKey)
		switch {
		case err != nil:
			log.Warn().Err(err).Msg("idempotency store unavailable, redeeming without claim")
		case !ok:
			return nil, domain.ErrAlreadyRedeemed
		default:
			claimed = true
		}
	}

	coupon, err := s.redeemWithRetry(ctx, span, code, total)
	if err != nil {
		if claimed {
			if rerr := s.claims.Release(context.WithoutCancel(ctx), claimKey); rerr != nil {
				log.Warn().Err(rerr).Msg("failed to release redemption claim")
			}
		}
		return nil, err
	}

	q := quote(coupon, total)
	log.Info().Int("used_count", coupon.UsedCount).Float64("discount_amount", q.DiscountAmount).Msg("coupon redeemed")

	evt := CouponRedeemedEvent{
		Code:           q.Code,
		UserID:         identity.ID,
		OrderNumber:    orderNumber,
		DiscountAmount: q.DiscountAmount,
		UsedCount:      coupon.UsedCount,
	}
	if err := s.publisher.Publish(ctx, EventCouponRedeemed, q.Code, evt); err != nil {
		log.Error().Err(err).Msg("failed to publish coupon redeemed event")
	}
	return q, nil
}

// redeemWithRetry 每次重新读取优惠券、重新检查规则，再以读到的 used_count 做条件更新。
// 返回的 coupon.UsedCount 是更新后的值。
func (s *CouponService) redeemWithRetry(ctx context.Context, span trace.Span, code string, total float64) (*domain.Coupon, error) {
	for attempt := 1; attempt <= s.maxAttempts; attempt++ {
		coupon, err := s.repo.FindActiveByCode(ctx, code)
		if err != nil {
			if !errors.Is(err, domain.ErrCouponNotFound) {
				span.RecordError(err)
			}
			return nil, err
		}
		if err := coupon.CheckUsable(total, s.now()); err != nil {
			return nil, err
		}

		ok, err := s.repo.IncrementUsage(ctx, code, coupon.UsedCount)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "increment usage failed")
			return nil, err
		}
		if ok {
			coupon.UsedCount++
			span.SetAttributes(attribute.Int("redeem.attempts", attempt))
			return coupon, nil
		}
		span.AddEvent("used_count changed concurrently, retrying", trace.WithAttributes(attribute.Int("attempt", attempt)))
	}
	span.SetStatus(codes.Error, "redemption contention")
	return nil, domain.ErrRedemptionConflict
}

func normalizeInput(rawCode string, rawTotal *float64) (string, float64, error) {
	code := domain.NormalizeCode(rawCode)
	if code == "" {
		return "", 0, domain.ErrCodeRequired
	}
	var total float64
	if rawTotal != nil {
		total = *rawTotal
	}
	if err := domain.ValidateOrderTotal(total); err != nil {
		return "", 0, err
	}
	return code, total, nil
}

func quote(c *domain.Coupon, total float64) *CouponQuote {
	return &CouponQuote{
		Code:           c.Code,
		DiscountType:   string(c.DiscountType),
		DiscountValue:  c.DiscountValue,
		DiscountAmount: c.Discount(total),
	}
}
