// internal/service/coupon/domain/coupon.go
package domain

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"
)

// DiscountType 决定折扣的计算方式。
type DiscountType string

const (
	DiscountPercentage DiscountType = "percentage"
	DiscountFixed      DiscountType = "fixed"
)

var (
	ErrInvalidInput = errors.New("invalid coupon input")

	ErrCodeRequired        = fmt.Errorf("%w: coupon code is required", ErrInvalidInput)
	ErrInvalidOrderTotal   = fmt.Errorf("%w: order total must be a non-negative number", ErrInvalidInput)
	ErrOrderNumberRequired = fmt.Errorf("%w: order number is required", ErrInvalidInput)

	// 以下是业务上的无效，不是协议错误
	ErrCouponNotFound  = errors.New("coupon not found or inactive")
	ErrCouponExpired   = errors.New("coupon expired")
	ErrCouponExhausted = errors.New("coupon usage limit reached")
	ErrBelowMinimum    = errors.New("order total below coupon minimum")

	ErrUnauthorized       = errors.New("caller identity rejected")
	ErrAlreadyRedeemed    = errors.New("coupon already redeemed for this order")
	ErrRedemptionConflict = errors.New("coupon usage changed concurrently")

	// ErrOrderNotFound 同时表示订单不存在和订单不属于调用方，两者对外不区分
	ErrOrderNotFound = errors.New("order not found for caller")
)

// MinimumOrderError 携带优惠券要求的最低订单金额，errors.Is(err, ErrBelowMinimum) 为真。
type MinimumOrderError struct {
	Minimum float64
}

func (e *MinimumOrderError) Error() string {
	return fmt.Sprintf("%s: minimum is %v", ErrBelowMinimum.Error(), e.Minimum)
}

func (e *MinimumOrderError) Unwrap() error { return ErrBelowMinimum }

// Coupon 是一张优惠券。可选字段为 nil 时表示不限制。
type Coupon struct {
	ID             string
	Code           string
	DiscountType   DiscountType
	DiscountValue  float64
	ExpiresAt      *time.Time
	MaxUses        *int
	UsedCount      int
	MinOrderAmount *float64
	IsActive       bool
}

// CouponRepository 以服务端权限读取和核销优惠券。
type CouponRepository interface {
	// FindActiveByCode 按规范化后的 code 查找启用中的优惠券，不存在时返回 ErrCouponNotFound。
	FindActiveByCode(ctx context.Context, code string) (*Coupon, error)
	// IncrementUsage 仅当 used_count 仍等于 expected 时把它加一，返回是否成功。
	IncrementUsage(ctx context.Context, code string, expected int) (bool, error)
}

// OrderOwners 查询订单归属，核销只允许用在调用方自己的订单上。
type OrderOwners interface {
	// OwnerOf 返回订单的 user_id，订单不存在或没有归属用户时返回 ErrOrderNotFound。
	OwnerOf(ctx context.Context, orderNumber string) (string, error)
}

// NormalizeCode 去掉首尾空白并转成大写。
func NormalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// CheckUsable 按顺序检查过期、次数用尽、最低金额，遇到第一条不满足的规则即返回。
func (c *Coupon) CheckUsable(orderTotal float64, now time.Time) error {
	if c.ExpiresAt != nil && c.ExpiresAt.Before(now) {
		return ErrCouponExpired
	}
	if c.MaxUses != nil && c.UsedCount >= *c.MaxUses {
		return ErrCouponExhausted
	}
	if c.MinOrderAmount != nil && orderTotal < *c.MinOrderAmount {
		return &MinimumOrderError{Minimum: *c.MinOrderAmount}
	}
	return nil
}

// Discount 计算折扣金额，结果落在 [0, orderTotal]。
func (c *Coupon) Discount(orderTotal float64) float64 {
	var discount float64
	if c.DiscountType == DiscountPercentage {
		discount = orderTotal * c.DiscountValue / 100
	} else {
		discount = c.DiscountValue
	}
	return math.Max(0, math.Min(discount, orderTotal))
}

// ValidateOrderTotal 拒绝负数和非有限值。
func ValidateOrderTotal(total float64) error {
	if math.IsNaN(total) || math.IsInf(total, 0) || total < 0 {
		return ErrInvalidOrderTotal
	}
	return nil
}
