// Package dashboard защищённая страница, доступная только с пробным или оплаченным периодом.
package dashboard

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

// Handler обработчик панели.
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
// @Summary Панель учителя
// @Tags Subscription
// @Produce  json
// @Success 200 {object} response.Response
// @Failure 401 {object} response.ErrorResponse "Пользователь не авторизован"
// @Failure 402 {object} response.ErrorResponse "Нужен пробный или оплаченный период"
// @Failure 500 {object} response.ErrorResponse "Внутренняя ошибка сервера"
// @Router /dashboard [get]
// @Security BearerAuth
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.subscription.dashboard"
	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	userID, ok := middlewarectx.UserIDFrom(r.Context())
	if !ok {
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

	data := map[string]any{
		"on_trial":   status.TrialActive,
		"sub_active": status.CurrentPeriod != nil,
	}
	if status.CurrentPeriod != nil {
		data["period_end"] = status.CurrentPeriod.PeriodEnd.Format("2006-01-02")
		data["cancel_at_period_end"] = status.CurrentPeriod.CancelAtPeriodEnd
	}
	render.JSON(w, r, response.StatusOKWithData(data))
}
