package infrastructure

// OrderModel 对应 orders 表的一行。json 标签用于 REST 平台，GORM 按默认命名规则映射到相同的列名。
type OrderModel struct {
	ID               string  `json:"id"`
	OrderNumber      string  `json:"order_number"`
	Status           string  `json:"status"`
	CreatedAt        string  `json:"created_at"`
	UpdatedAt        string  `json:"updated_at"`
	Subtotal         float64 `json:"subtotal"`
	DeliveryFee      float64 `json:"delivery_fee"`
	DiscountAmount   float64 `json:"discount_amount"`
	Total            float64 `json:"total"`
	ShippingRegion   string  `json:"shipping_region"`
	PaymentMethod    string  `json:"payment_method"`
	PaymentConfirmed bool    `json:"payment_confirmed"`
	CustomerName     string  `json:"customer_name"`
	CustomerPhone    string  `json:"customer_phone"`
}

// OrderItemModel 对应 order_items 表的一行。
type OrderItemModel struct {
	ID          string  `json:"id"`
	OrderID     string  `json:"order_id"`
	ProductID   string  `json:"product_id"`
	ProductName string  `json:"product_name"`
	Price       float64 `json:"price"`
	Quantity    int     `json:"quantity"`
}
