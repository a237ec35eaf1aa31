// Package webhook принимает уведомления платёжного шлюза.
// Запрос не требует авторизации, ответ всегда текстовый.
package webhook

import (
	"context"
	"io"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"

	"github.com/magabrotheeeer/school-admin/internal/lib/sl"
)

// MaxBodyBytes предельный размер тела уведомления.
const MaxBodyBytes = 1 << 20

// SignatureHeader заголовок с HMAC-подписью тела.
const SignatureHeader = "signature"

// Service разбирает уведомление и возвращает текст ответа со статусом.
type Service interface {
	HandleWebhook(ctx context.Context, raw []byte, signature string) (string, int)
}

// Handler обработчик вебхука.
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
// @Summary Вебхук Chargily
// @Description Успешная оплата чекаута добавляет пользователю 30-дневный период.
// @Tags Payments
// @Accept  json
// @Produce  plain
// @Success 200 {string} string "ok или ignored"
// @Failure 400 {string} string "invalid json или missing user_id"
// @Failure 401 {string} string "invalid signature"
// @Failure 500 {string} string "internal error"
// @Router /payments/webhook [post]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.payment.webhook"
	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, MaxBodyBytes))
	if err != nil {
		log.Warn("failed to read webhook body", sl.Err(err))
		writeText(w, "invalid json", http.StatusBadRequest)
		return
	}

	text, status := h.service.HandleWebhook(r.Context(), body, r.Header.Get(SignatureHeader))
	log.Info("webhook handled", slog.String("result", text), slog.Int("status", status))
	writeText(w, text, status)
}

func writeText(w http.ResponseWriter, body string, status int) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(status)
	_, _ = io.WriteString(w, body)
}
