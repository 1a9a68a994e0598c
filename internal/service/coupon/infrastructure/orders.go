package infrastructure

import (
	"context"

	"github.com/pkg/errors"

	"storefront/internal/pkg/datastore"
	"storefront/internal/service/coupon/domain"
)

const ordersTable = "orders"

// orderOwnerModel 只读取 orders 表里判断归属需要的列。
type orderOwnerModel struct {
	OrderNumber string  `json:"order_number"`
	UserID      *string `json:"user_id"`
}

// OrderOwners 通过服务端凭证实现 domain.OrderOwners。
type OrderOwners struct {
	store datastore.PrivilegedStore
}

var _ domain.OrderOwners = (*OrderOwners)(nil)

func NewOrderOwners(store datastore.PrivilegedStore) *OrderOwners {
	return &OrderOwners{store: store}
}

func (r *OrderOwners) OwnerOf(ctx context.Context, orderNumber string) (string, error) {
	var model orderOwnerModel
	err := r.store.FindOne(ctx, ordersTable, datastore.Filter{"order_number": orderNumber}, &model)
	if errors.Is(err, datastore.ErrNotFound) {
		return "", domain.ErrOrderNotFound
	}
	if err != nil {
		return "", errors.Wrap(err, "find order owner")
	}
	// 游客订单没有归属用户，不能被任何登录用户核销
	if model.UserID == nil || *model.UserID == "" {
		return "", domain.ErrOrderNotFound
	}
	return *model.UserID, nil
}
