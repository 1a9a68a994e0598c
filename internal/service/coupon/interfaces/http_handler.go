package interfaces

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/pkg/errors"

	"storefront/internal/pkg/httpx"
	"storefront/internal/pkg/logger"
	"storefront/internal/service/coupon/application"
	"storefront/internal/service/coupon/domain"
)

const (
	msgInvalidBody         = "بيانات الطلب غير صالحة"
	msgCodeRequired        = "كود الخصم مطلوب"
	msgInvalidOrderTotal   = "قيمة الطلب غير صالحة"
	msgOrderNumberRequired = "رقم الطلب مطلوب"
	msgCouponNotFound      = "كود الخصم غير صالح أو غير مفعل"
	msgCouponExpired       = "كود الخصم منتهي الصلاحية"
	msgCouponExhausted     = "تم استنفاد الحد الأقصى لاستخدام كود الخصم"
	msgBelowMinimumFormat  = "الحد الأدنى للطلب لاستخدام هذا الكود هو %s ر.س"
	msgUnauthorized        = "غير مصرح، يرجى تسجيل الدخول"
	msgAlreadyRedeemed     = "تم استخدام كود الخصم لهذا الطلب مسبقاً"
	msgRedemptionConflict  = "كود الخصم قيد الاستخدام حالياً، يرجى المحاولة مرة أخرى"
	msgOrderNotFound       = "لم يتم العثور على الطلب"
	msgInternal            = "حدث خطأ أثناء التحقق من كود الخصم، يرجى المحاولة لاحقاً"
)

// ValidateCouponResponse 是校验接口的响应体，业务上的无效也以 200 返回。
type ValidateCouponResponse struct {
	Valid  bool                     `json:"valid"`
	Coupon *application.CouponQuote `json:"coupon,omitempty"`
	Error  string                   `json:"error,omitempty"`
}

// RedeemCouponResponse 是核销接口的响应体
type RedeemCouponResponse struct {
	Redeemed bool                     `json:"redeemed"`
	Coupon   *application.CouponQuote `json:"coupon,omitempty"`
	Error    string                   `json:"error,omitempty"`
}

// CouponHandler 封装了优惠券的 HTTP 处理器
type CouponHandler struct {
	service *application.CouponService
}

func NewCouponHandler(service *application.CouponService) *CouponHandler {
	return &CouponHandler{service: service}
}

// RegisterRoutes 注册路由。两个接口各自挂自己的中间件（例如按接口区分的限流）。
func (h *CouponHandler) RegisterRoutes(r chi.Router, validateMws, redeemMws []func(http.Handler) http.Handler) {
	r.With(validateMws...).Post("/validate-coupon", h.handleValidateCoupon)
	r.With(redeemMws...).Post("/redeem-coupon", h.handleRedeemCoupon)
}

func (h *CouponHandler) handleValidateCoupon(w http.ResponseWriter, r *http.Request) {
	var req application.ValidateCouponRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.WriteJSON(w, http.StatusBadRequest, ValidateCouponResponse{Error: msgInvalidBody})
		return
	}

	q, err := h.service.ValidateCoupon(r.Context(), &req)
	if err != nil {
		status, msg := h.mapError(r, err)
		httpx.WriteJSON(w, status, ValidateCouponResponse{Error: msg})
		return
	}
	httpx.WriteJSON(w, http.StatusOK, ValidateCouponResponse{Valid: true, Coupon: q})
}

func (h *CouponHandler) handleRedeemCoupon(w http.ResponseWriter, r *http.Request) {
	token := httpx.BearerToken(r)
	if token == "" {
		httpx.WriteError(w, http.StatusUnauthorized, msgUnauthorized)
		return
	}

	var req application.RedeemCouponRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.WriteJSON(w, http.StatusBadRequest, RedeemCouponResponse{Error: msgInvalidBody})
		return
	}

	q, err := h.service.RedeemCoupon(r.Context(), token, &req)
	if err != nil {
		status, msg := h.mapError(r, err)
		if status == http.StatusUnauthorized {
			httpx.WriteError(w, status, msg)
			return
		}
		httpx.WriteJSON(w, status, RedeemCouponResponse{Error: msg})
		return
	}
	httpx.WriteJSON(w, http.StatusOK, RedeemCouponResponse{Redeemed: true, Coupon: q})
}

// mapError 把领域错误映射为 HTTP 状态码和面向用户的提示。优惠券规则不满足属于业务结果，返回 200。
func (h *CouponHandler) mapError(r *http.Request, err error) (int, string) {
	var minErr *domain.MinimumOrderError
	switch {
	case errors.Is(err, domain.ErrCodeRequired):
		return http.StatusBadRequest, msgCodeRequired
	case errors.Is(err, domain.ErrInvalidOrderTotal):
		return http.StatusBadRequest, msgInvalidOrderTotal
	case errors.Is(err, domain.ErrOrderNumberRequired):
		return http.StatusBadRequest, msgOrderNumberRequired
	case errors.Is(err, domain.ErrInvalidInput):
		return http.StatusBadRequest, msgInvalidBody
	case errors.Is(err, domain.ErrCouponNotFound):
		return http.StatusOK, msgCouponNotFound
	case errors.Is(err, domain.ErrCouponExpired):
		return http.StatusOK, msgCouponExpired
	case errors.Is(err, domain.ErrCouponExhausted):
		return http.StatusOK, msgCouponExhausted
	case errors.As(err, &minErr):
		return http.StatusOK, fmt.Sprintf(msgBelowMinimumFormat, strconv.FormatFloat(minErr.Minimum, 'f', -1, 64))
	case errors.Is(err, domain.ErrUnauthorized):
		return http.StatusUnauthorized, msgUnauthorized
	case errors.Is(err, domain.ErrOrderNotFound):
		return http.StatusNotFound, msgOrderNotFound
	case errors.Is(err, domain.ErrAlreadyRedeemed):
		return http.StatusConflict, msgAlreadyRedeemed
	case errors.Is(err, domain.ErrRedemptionConflict):
		return http.StatusConflict, msgRedemptionConflict
	default:
		logger.Ctx(r.Context()).Error().Err(err).Msg("coupon request failed")
		return http.StatusInternalServerError, msgInternal
	}
}
