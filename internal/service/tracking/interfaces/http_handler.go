package interfaces

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/pkg/errors"

	"storefront/internal/pkg/httpx"
	"storefront/internal/pkg/logger"
	"storefront/internal/service/tracking/application"
	"storefront/internal/service/tracking/domain"
)

const (
	msgOrderNumberRequired = "رقم الطلب مطلوب"
	msgInvalidPhoneLast4   = "يرجى إدخال آخر 4 أرقام من رقم الجوال بشكل صحيح"
	msgInvalidOrderNumber  = "رقم الطلب غير صالح"
	msgInvalidBody         = "بيانات الطلب غير صالحة"
	msgOrderNotFound       = "لم يتم العثور على الطلب، تأكد من رقم الطلب وآخر 4 أرقام من الجوال"
	msgInternal            = "حدث خطأ أثناء البحث عن الطلب، يرجى المحاولة لاحقاً"
)

// TrackingHandler 封装了订单查询的 HTTP 处理器
type TrackingHandler struct {
	service *application.TrackingService
}

func NewTrackingHandler(service *application.TrackingService) *TrackingHandler {
	return &TrackingHandler{service: service}
}

// RegisterRoutes 注册路由，mws 只作用于本服务的路由（例如限流）。
func (h *TrackingHandler) RegisterRoutes(r chi.Router, mws ...func(http.Handler) http.Handler) {
	r.With(mws...).Post("/track-order", h.handleTrackOrder)
}

func (h *TrackingHandler) handleTrackOrder(w http.ResponseWriter, r *http.Request) {
	var req application.TrackOrderRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, msgInvalidBody)
		return
	}

	resp, err := h.service.TrackOrder(r.Context(), &req)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrOrderNumberRequired):
			httpx.WriteError(w, http.StatusBadRequest, msgOrderNumberRequired)
		case errors.Is(err, domain.ErrInvalidPhoneLast4):
			httpx.WriteError(w, http.StatusBadRequest, msgInvalidPhoneLast4)
		case errors.Is(err, domain.ErrInvalidInput):
			httpx.WriteError(w, http.StatusBadRequest, msgInvalidOrderNumber)
		case errors.Is(err, domain.ErrOrderNotFound):
			httpx.WriteError(w, http.StatusNotFound, msgOrderNotFound)
		default:
			logger.Ctx(r.Context()).Error().Err(err).Msg("track order failed")
			httpx.WriteError(w, http.StatusInternalServerError, msgInternal)
		}
		return
	}

	httpx.WriteJSON(w, http.StatusOK, resp)
}
