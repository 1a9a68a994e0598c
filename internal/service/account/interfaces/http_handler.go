package interfaces

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/pkg/errors"

	"storefront/internal/pkg/httpx"
	"storefront/internal/pkg/logger"
	"storefront/internal/service/account/application"
	"storefront/internal/service/account/domain"
)

const (
	msgUnauthorized = "غير مصرح، يرجى تسجيل الدخول"
	msgDeleted      = "تم حذف الحساب وجميع البيانات المرتبطة به بنجاح"
	msgInternal     = "حدث خطأ أثناء حذف الحساب، يرجى المحاولة لاحقاً"
)

// DeleteAccountResponse 是删除账号的响应体
type DeleteAccountResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// AccountHandler 封装了账号删除的 HTTP 处理器
type AccountHandler struct {
	service *application.AccountService
}

func NewAccountHandler(service *application.AccountService) *AccountHandler {
	return &AccountHandler{service: service}
}

func (h *AccountHandler) RegisterRoutes(r chi.Router) {
	r.Post("/delete-account", h.handleDeleteAccount)
}

func (h *AccountHandler) handleDeleteAccount(w http.ResponseWriter, r *http.Request) {
	token := httpx.BearerToken(r)
	if token == "" {
		httpx.WriteError(w, http.StatusUnauthorized, msgUnauthorized)
		return
	}

	if _, err := h.service.EraseAccount(r.Context(), token); err != nil {
		switch {
		case errors.Is(err, domain.ErrUnauthorized):
			httpx.WriteError(w, http.StatusUnauthorized, msgUnauthorized)
		default:
			logger.Ctx(r.Context()).Error().Err(err).Msg("delete account failed")
			httpx.WriteError(w, http.StatusInternalServerError, msgInternal)
		}
		return
	}

	httpx.WriteJSON(w, http.StatusOK, DeleteAccountResponse{Success: true, Message: msgDeleted})
}
