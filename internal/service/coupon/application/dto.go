package application

// ValidateCouponRequest 是优惠券校验的请求体，orderTotal 缺省为 0。
type ValidateCouponRequest struct {
	Code       string   `json:"code"`
	OrderTotal *float64 `json:"orderTotal"`
}

// CouponQuote 是返回给客户端的优惠券视图，不含使用次数和过期时间等规则细节。
type CouponQuote struct {
	Code           string  `json:"code"`
	DiscountType   string  `json:"discount_type"`
	DiscountValue  float64 `json:"discount_value"`
	DiscountAmount float64 `json:"discount_amount"`
}

// RedeemCouponRequest 是优惠券核销的请求体
type RedeemCouponRequest struct {
	Code        string   `json:"code"`
	OrderTotal  *float64 `json:"orderTotal"`
	OrderNumber string   `json:"orderNumber"`
}

// CouponRedeemedEvent 在核销成功后发布。
type CouponRedeemedEvent struct {
	Code           string  `json:"code"`
	UserID         string  `json:"user_id"`
	OrderNumber    string  `json:"order_number"`
	DiscountAmount float64 `json:"discount_amount"`
	UsedCount      int     `json:"used_count"`
}

const EventCouponRedeemed = "coupon.redeemed"
