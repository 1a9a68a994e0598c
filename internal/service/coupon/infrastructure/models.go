package infrastructure

// CouponModel 对应 coupons 表的一行。时间以字符串读取，再由 mapper 解析，兼容带时区和不带时区的格式。
type CouponModel struct {
	ID             string   `json:"id"`
	Code           string   `json:"code"`
	DiscountType   string   `json:"discount_type"`
	DiscountValue  float64  `json:"discount_value"`
	ExpiresAt      *string  `json:"expires_at"`
	MaxUses        *int     `json:"max_uses"`
	UsedCount      int      `json:"used_count"`
	MinOrderAmount *float64 `json:"min_order_amount"`
	IsActive       bool     `json:"is_active"`
}
