package application

// TrackOrderRequest 是订单查询的请求体
type TrackOrderRequest struct {
	OrderNumber string `json:"orderNumber"`
	PhoneLast4  string `json:"phoneLast4"`
}

// TrackedOrder 是返回给查询方的订单视图，不含客户手机号。
type TrackedOrder struct {
	ID               string        `json:"id"`
	OrderNumber      string        `json:"order_number"`
	Status           string        `json:"status"`
	CreatedAt        string        `json:"created_at,omitempty"`
	UpdatedAt        string        `json:"updated_at,omitempty"`
	Subtotal         float64       `json:"subtotal"`
	DeliveryFee      float64       `json:"delivery_fee"`
	DiscountAmount   float64       `json:"discount_amount"`
	Total            float64       `json:"total"`
	ShippingRegion   string        `json:"shipping_region,omitempty"`
	PaymentMethod    string        `json:"payment_method,omitempty"`
	PaymentConfirmed bool          `json:"payment_confirmed"`
	CustomerName     string        `json:"customer_name,omitempty"`
	Items            []TrackedItem `json:"items"`
}

type TrackedItem struct {
	ID          string  `json:"id"`
	ProductID   string  `json:"product_id,omitempty"`
	ProductName string  `json:"product_name"`
	Price       float64 `json:"price"`
	Quantity    int     `json:"quantity"`
}

// TrackOrderResponse 是订单查询的响应体
type TrackOrderResponse struct {
	Order TrackedOrder `json:"order"`
}
