// internal/service/tracking/domain/order.go
package domain

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"regexp"
	"strings"
)

const (
	minOrderNumberLen = 5
	maxOrderNumberLen = 50
)

var (
	ErrInvalidInput = errors.New("invalid tracking input")

	ErrOrderNumberRequired = fmt.Errorf("%w: order number is required", ErrInvalidInput)
	ErrInvalidPhoneLast4   = fmt.Errorf("%w: phone suffix must be exactly 4 digits", ErrInvalidInput)
	ErrInvalidOrderNumber  = fmt.Errorf("%w: order number length out of range", ErrInvalidInput)

	// ErrOrderNotFound 同时代表订单不存在和手机号不匹配，两种情况对调用方不可区分。
	ErrOrderNotFound = errors.New("order not found")
)

var phoneLast4Pattern = regexp.MustCompile(`^\d{4}$`)

// Order 是一个订单的完整视图，包含敏感的 CustomerPhone。
type Order struct {
	ID               string
	OrderNumber      string
	Status           string
	CreatedAt        string
	UpdatedAt        string
	Subtotal         float64
	DeliveryFee      float64
	DiscountAmount   float64
	Total            float64
	ShippingRegion   string
	PaymentMethod    string
	PaymentConfirmed bool
	CustomerName     string
	CustomerPhone    string
	Items            []OrderItem
}

// OrderItem 是下单时的商品快照，与当前商品记录无关。
type OrderItem struct {
	ID          string
	OrderID     string
	ProductID   string
	ProductName string
	Price       float64
	Quantity    int
}

// OrderRepository 以服务端权限读取订单。
type OrderRepository interface {
	// FindByOrderNumber 按规范化后的订单号精确查找，不存在时返回 ErrOrderNotFound。
	FindByOrderNumber(ctx context.Context, orderNumber string) (*Order, error)
	ListItems(ctx context.Context, orderID string) ([]OrderItem, error)
}

// NormalizeOrderNumber 去掉首尾空白并转成大写。
func NormalizeOrderNumber(orderNumber string) string {
	return strings.ToUpper(strings.TrimSpace(orderNumber))
}

// ValidateTrackingInput 在任何查询之前校验输入，返回规范化后的订单号。
func ValidateTrackingInput(orderNumber, phoneLast4 string) (string, error) {
	if orderNumber == "" {
		return "", ErrOrderNumberRequired
	}
	if len(phoneLast4) != 4 || !phoneLast4Pattern.MatchString(phoneLast4) {
		return "", ErrInvalidPhoneLast4
	}
	normalized := NormalizeOrderNumber(orderNumber)
	if n := len([]rune(normalized)); n < minOrderNumberLen || n > maxOrderNumberLen {
		return "", ErrInvalidOrderNumber
	}
	return normalized, nil
}

// PhoneMatches 比较存储的手机号原值的最后 4 个字符，比较耗时与内容无关。
func (o *Order) PhoneMatches(last4 string) bool {
	phone := []rune(o.CustomerPhone)
	if len(phone) < 4 || len(last4) != 4 {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(string(phone[len(phone)-4:])), []byte(last4)) == 1
}
