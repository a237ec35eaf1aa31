// Package checkout перенаправляет пользователя на страницу оплаты шлюза.
package checkout

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/magabrotheeeer/school-admin/internal/http/middlewarectx"
	"github.com/magabrotheeeer/school-admin/internal/http/response"
	"github.com/magabrotheeeer/school-admin/internal/lib/sl"
	"github.com/magabrotheeeer/school-admin/internal/models"
)

// Service создаёт платёжную сессию.
type Service interface {
	StartCheckout(ctx context.Context, userID int64) (string, error)
}

// Handler обработчик начала оплаты.
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
// @Summary Оплатить месяц
// @Description Создаёт checkout в Chargily и отвечает 303 с адресом страницы оплаты.
// @Tags Payments
// @Produce  json
// @Success 303 "Переход на страницу оплаты"
// @Failure 401 {object} response.ErrorResponse "Пользователь не авторизован"
// @Failure 502 {object} response.ErrorResponse "Шлюз недоступен"
// @Failure 503 {object} response.ErrorResponse "Шлюз не настроен"
// @Router /payments/checkout [post]
// @Security BearerAuth
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.payment.checkout"
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

	url, err := h.service.StartCheckout(r.Context(), userID)
	switch {
	case errors.Is(err, models.ErrGatewayConfiguration):
		log.Error("payment gateway is not configured")
		w.WriteHeader(http.StatusServiceUnavailable)
		render.JSON(w, r, response.Error("payment is not configured, contact the administrator"))
		return
	case errors.Is(err, models.ErrGatewayRequest), errors.Is(err, models.ErrGatewayResponse):
		log.Error("payment gateway failed", sl.UserID(userID), sl.Err(err))
		w.WriteHeader(http.StatusBadGateway)
		render.JSON(w, r, response.Error("payment gateway unavailable, try again later"))
		return
	case err != nil:
		log.Error("failed to start checkout", sl.UserID(userID), sl.Err(err))
		w.WriteHeader(http.StatusInternalServerError)
		render.JSON(w, r, response.Error("internal error"))
		return
	}

	log.Info("redirecting to checkout", sl.UserID(userID))
	http.Redirect(w, r, url, http.StatusSeeOther)
}
