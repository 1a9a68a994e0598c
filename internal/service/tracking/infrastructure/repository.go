package infrastructure

import (
	"context"

	"github.com/pkg/errors"

	"storefront/internal/pkg/datastore"
	"storefront/internal/service/tracking/domain"
)

const (
	ordersTable     = "orders"
	orderItemsTable = "order_items"
)

// OrderRepository 通过服务端凭证实现 domain.OrderRepository。
type OrderRepository struct {
	store datastore.PrivilegedStore
}

var _ domain.OrderRepository = (*OrderRepository)(nil)

func NewOrderRepository(store datastore.PrivilegedStore) *OrderRepository {
	return &OrderRepository{store: store}
}

func (r *OrderRepository) FindByOrderNumber(ctx context.Context, orderNumber string) (*domain.Order, error) {
	var model OrderModel
	err := r.store.FindOne(ctx, ordersTable, datastore.Filter{"order_number": orderNumber}, &model)
	if errors.Is(err, datastore.ErrNotFound) {
		return nil, domain.ErrOrderNotFound
	}
	if err != nil {
		return nil, errors.Wrap(err, "find order")
	}
	return ToDomainOrder(&model), nil
}

func (r *OrderRepository) ListItems(ctx context.Context, orderID string) ([]domain.OrderItem, error) {
	var models []OrderItemModel
	if err := r.store.FindAll(ctx, orderItemsTable, datastore.Filter{"order_id": orderID}, "", &models); err != nil {
		return nil, errors.Wrap(err, "list order items")
	}
	return ToDomainOrderItems(models), nil
}
