package infrastructure

import (
	"context"

	"github.com/pkg/errors"

	"storefront/internal/pkg/datastore"
	"storefront/internal/service/coupon/domain"
)

const couponsTable = "coupons"

// CouponRepository 通过服务端凭证实现 domain.CouponRepository。
type CouponRepository struct {
	store datastore.PrivilegedStore
}

var _ domain.CouponRepository = (*CouponRepository)(nil)

func NewCouponRepository(store datastore.PrivilegedStore) *CouponRepository {
	return &CouponRepository{store: store}
}

func (r *CouponRepository) FindActiveByCode(ctx context.Context, code string) (*domain.Coupon, error) {
	var model CouponModel
	err := r.store.FindOne(ctx, couponsTable, datastore.Filter{"code": code, "is_active": true}, &model)
	if errors.Is(err, datastore.ErrNotFound) {
		return nil, domain.ErrCouponNotFound
	}
	if err != nil {
		return nil, errors.Wrap(err, "find coupon")
	}
	return ToDomainCoupon(&model)
}

func (r *CouponRepository) IncrementUsage(ctx context.Context, code string, expected int) (bool, error) {
	ok, err := r.store.CompareAndSwap(ctx, couponsTable,
		datastore.Filter{"code": code, "is_active": true},
		"used_count", expected, expected+1)
	if err != nil {
		return false, errors.Wrap(err, "increment coupon usage")
	}
	return ok, nil
}
