// Package passwordreset обрабатывает установку нового пароля по одноразовой ссылке.
package passwordreset

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/magabrotheeeer/school-admin/internal/http/response"
	"github.com/magabrotheeeer/school-admin/internal/lib/sl"
	"github.com/magabrotheeeer/school-admin/internal/models"
)

// Request токен из ссылки и новый пароль с подтверждением.
type Request struct {
	Token   string `json:"token"`
	New     string `json:"new"`
	Confirm string `json:"confirm"`
}

// Service меняет пароль по токену.
type Service interface {
	ResetPassword(ctx context.Context, token, newPassword, confirm string) error
}

// Handler обработчик сброса пароля.
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
// @Summary Сброс пароля
// @Tags Auth
// @Accept  json
// @Produce  json
// @Param request body Request true "Токен и новый пароль"
// @Success 200 {object} response.Response "Пароль изменён"
// @Failure 400 {object} response.ErrorResponse "Ссылка не найдена или уже использована"
// @Failure 410 {object} response.ErrorResponse "Срок действия ссылки истёк"
// @Failure 422 {object} response.ErrorResponse "Пароли пусты или не совпадают"
// @Failure 500 {object} response.ErrorResponse "Внутренняя ошибка сервера"
// @Router /password/reset [post]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.auth.passwordreset"

	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	var req Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Error("failed to decode request body", sl.Err(err))
		w.WriteHeader(http.StatusBadRequest)
		render.JSON(w, r, response.Error("invalid request body"))
		return
	}

	err := h.service.ResetPassword(r.Context(), req.Token, req.New, req.Confirm)
	switch {
	case err == nil:
		log.Info("password reset")
		render.JSON(w, r, response.StatusOKWithData(map[string]any{"message": "password updated"}))
	case errors.Is(err, models.ErrResetTokenInvalid):
		w.WriteHeader(http.StatusBadRequest)
		render.JSON(w, r, response.Error("invalid or used link"))
	case errors.Is(err, models.ErrResetTokenExpired):
		w.WriteHeader(http.StatusGone)
		render.JSON(w, r, response.Error("link expired"))
	case errors.Is(err, models.ErrPasswordMismatch):
		w.WriteHeader(http.StatusUnprocessableEntity)
		render.JSON(w, r, response.Error("passwords are empty or do not match"))
	default:
		log.Error("failed to reset password", sl.Err(err))
		w.WriteHeader(http.StatusInternalServerError)
		render.JSON(w, r, response.Error("internal error"))
	}
}
