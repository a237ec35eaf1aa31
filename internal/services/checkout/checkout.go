// Package checkout создаёт платёжные сессии для месячной подписки.
package checkout

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/magabrotheeeer/school-admin/internal/lib/sl"
	"github.com/magabrotheeeer/school-admin/internal/models"
	"github.com/magabrotheeeer/school-admin/internal/paymentprovider"
)

// Gateway платёжный шлюз.
type Gateway interface {
	CreateCheckout(ctx context.Context, req paymentprovider.CheckoutRequest) (*paymentprovider.CheckoutResponse, error)
}

// Recorder принимает события для метрик.
type Recorder interface {
	CheckoutCreated(result string)
}

// Plan параметры оплачиваемого тарифа.
type Plan struct {
	Amount     int
	Currency   string
	Name       string
	Locale     string
	SuccessURL string
}

// Service инициирует оплату.
type Service struct {
	gateway Gateway
	metrics Recorder
	log     *slog.Logger
	plan    Plan
}

// New создаёт сервис оплаты.
func New(log *slog.Logger, gateway Gateway, metrics Recorder, plan Plan) *Service {
	return &Service{
		gateway: gateway,
		metrics: metrics,
		log:     log,
		plan:    plan,
	}
}

// StartCheckout создаёт платёжную сессию с метаданными пользователя и возвращает адрес страницы оплаты.
// Локальное состояние не меняется: период добавит вебхук после оплаты.
func (s *Service) StartCheckout(ctx context.Context, userID int64) (string, error) {
	const op = "checkout.StartCheckout"
	req := paymentprovider.CheckoutRequest{
		Amount:     s.plan.Amount,
		Currency:   s.plan.Currency,
		SuccessURL: s.plan.SuccessURL,
		Metadata: paymentprovider.Metadata{
			UserID: userID,
			Plan:   s.plan.Name,
		},
		Locale: s.plan.Locale,
	}

	resp, err := s.gateway.CreateCheckout(ctx, req)
	if err != nil {
		s.metrics.CheckoutCreated(resultOf(err))
		s.log.Error("failed to create checkout", slog.String("op", op), sl.UserID(userID), sl.Err(err))
		return "", fmt.Errorf("%s: %w", op, err)
	}
	s.metrics.CheckoutCreated("ok")
	s.log.Info("checkout created", slog.String("op", op), sl.UserID(userID), slog.String("checkout_id", resp.ID))
	return resp.CheckoutURL, nil
}

func resultOf(err error) string {
	switch {
	case errors.Is(err, models.ErrGatewayConfiguration):
		return "not_configured"
	case errors.Is(err, models.ErrGatewayResponse):
		return "bad_response"
	default:
		return "request_failed"
	}
}
