package interfaces

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/pkg/errors"

	"storefront/internal/pkg/httpx"
	"storefront/internal/pkg/logger"
	"storefront/internal/service/delivery/application"
	"storefront/internal/service/delivery/domain"
)

const (
	msgRegionRequired = "المنطقة مطلوبة"
	msgInternal       = "حدث خطأ أثناء حساب رسوم التوصيل، يرجى المحاولة لاحقاً"
)

// DeliveryHandler 封装了运费查询的 HTTP 处理器
type DeliveryHandler struct {
	service *application.DeliveryService
}

func NewDeliveryHandler(service *application.DeliveryService) *DeliveryHandler {
	return &DeliveryHandler{service: service}
}

func (h *DeliveryHandler) RegisterRoutes(r chi.Router) {
	r.Get("/delivery-fee", h.handleDeliveryFee)
}

func (h *DeliveryHandler) handleDeliveryFee(w http.ResponseWriter, r *http.Request) {
	q, err := h.service.QuoteFee(r.Context(), r.URL.Query().Get("region"))
	if err != nil {
		if errors.Is(err, domain.ErrRegionRequired) {
			httpx.WriteError(w, http.StatusBadRequest, msgRegionRequired)
			return
		}
		logger.Ctx(r.Context()).Error().Err(err).Msg("delivery fee lookup failed")
		httpx.WriteError(w, http.StatusInternalServerError, msgInternal)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, q)
}
