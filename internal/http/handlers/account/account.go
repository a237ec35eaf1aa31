// Package account отдаёт состояние доступа пользователя: пробный период,
// текущий оплаченный период и историю оплат.
package account

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/magabrotheeeer/school-admin/internal/http/middlewarectx"
	"github.com/magabrotheeeer/school-admin/internal/http/response"
	"github.com/magabrotheeeer/school-admin/internal/lib/sl"
	"github.com/magabrotheeeer/school-admin/internal/models"
)

// Service читает состояние аккаунта.
type Service interface {
	Status(ctx context.Context, userID int64) (*models.AccountStatus, error)
}

// Handler обработчик страницы аккаунта.
type Handler struct {
	log     *slog.Logger
	service Service
}

// New создаёт обработчик.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{
		log:     log,
		service: service,
	}
}

// ServeHTTP godoc
// @Summary Состояние аккаунта
// @Description Пробный период, текущий период, журнал оплат и параметры тарифа.
// @Tags Account
// @Produce  json
// @Success 200 {object} response.Response{data=models.AccountStatus}
// @Failure 401 {object} response.ErrorResponse "Пользователь не авторизован"
// @Failure 500 {object} response.ErrorResponse "Внутренняя ошибка сервера"
// @Router /account [get]
// @Security BearerAuth
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.account"
	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	userID, ok := middlewarectx.UserIDFrom(r.Context())
	if !ok {
		log.Error("user id not found in context")
		w.WriteHeader(http.StatusUnauthorized)
		render.JSON(w, r, response.Error("unauthorized"))
		return
	}

	status, err := h.service.Status(r.Context(), userID)
	if err != nil {
		log.Error("failed to load account status", sl.UserID(userID), sl.Err(err))
		w.WriteHeader(http.StatusInternalServerError)
		render.JSON(w, r, response.Error("internal error"))
		return
	}
	render.JSON(w, r, response.StatusOKWithData(status))
}
