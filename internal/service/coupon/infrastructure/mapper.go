package infrastructure

import (
	"time"

	"github.com/pkg/errors"

	"storefront/internal/service/coupon/domain"
)

var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999Z07:00",
	"2006-01-02 15:04:05.999999999",
	time.DateOnly,
}

// ToDomainCoupon 将存储模型转换为领域模型
func ToDomainCoupon(model *CouponModel) (*domain.Coupon, error) {
	if model == nil {
		return nil, nil
	}
	c := &domain.Coupon{
		ID:             model.ID,
		Code:           model.Code,
		DiscountType:   domain.DiscountType(model.DiscountType),
		DiscountValue:  model.DiscountValue,
		MaxUses:        model.MaxUses,
		UsedCount:      model.UsedCount,
		MinOrderAmount: model.MinOrderAmount,
		IsActive:       model.IsActive,
	}
	if model.ExpiresAt != nil && *model.ExpiresAt != "" {
		t, err := parseTimestamp(*model.ExpiresAt)
		if err != nil {
			return nil, errors.Wrapf(err, "coupon %s expires_at", model.Code)
		}
		c.ExpiresAt = &t
	}
	return c, nil
}

// parseTimestamp 不带时区的时间按 UTC 处理。
func parseTimestamp(s string) (time.Time, error) {
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, errors.Errorf("unrecognized timestamp %q", s)
}
