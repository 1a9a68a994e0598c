package infrastructure

import "storefront/internal/service/tracking/domain"

// ToDomainOrder 将存储模型转换为领域模型
func ToDomainOrder(model *OrderModel) *domain.Order {
	if model == nil {
		return nil
	}
	return &domain.Order{
		ID:               model.ID,
		OrderNumber:      model.OrderNumber,
		Status:           model.Status,
		CreatedAt:        model.CreatedAt,
		UpdatedAt:        model.UpdatedAt,
		Subtotal:         model.Subtotal,
		DeliveryFee:      model.DeliveryFee,
		DiscountAmount:   model.DiscountAmount,
		Total:            model.Total,
		ShippingRegion:   model.ShippingRegion,
		PaymentMethod:    model.PaymentMethod,
		PaymentConfirmed: model.PaymentConfirmed,
		CustomerName:     model.CustomerName,
		CustomerPhone:    model.CustomerPhone,
	}
}

// ToDomainOrderItems 将存储模型转换为领域模型
func ToDomainOrderItems(models []OrderItemModel) []domain.OrderItem {
	items := make([]domain.OrderItem, 0, len(models))
	for _, m := range models {
		items = append(items, domain.OrderItem{
			ID:          m.ID,
			OrderID:     m.OrderID,
			ProductID:   m.ProductID,
			ProductName: m.ProductName,
			Price:       m.Price,
			Quantity:    m.Quantity,
		})
	}
	return items
}
