// Package server собирает HTTP-маршруты и сервер приложения.
package server

import (
	"log/slog"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/prometheus/client_golang/prometheus"
	httpSwagger "github.com/swaggo/http-swagger"

	"github.com/magabrotheeeer/school-admin/internal/http/handlers/account"
	"github.com/magabrotheeeer/school-admin/internal/http/handlers/admin/usercreate"
	"github.com/magabrotheeeer/school-admin/internal/http/handlers/auth/login"
	"github.com/magabrotheeeer/school-admin/internal/http/handlers/auth/passwordchange"
	"github.com/magabrotheeeer/school-admin/internal/http/handlers/auth/passwordforgot"
	"github.com/magabrotheeeer/school-admin/internal/http/handlers/auth/passwordreset"
	"github.com/magabrotheeeer/school-admin/internal/http/handlers/auth/register"
	"github.com/magabrotheeeer/school-admin/internal/http/handlers/health"
	checkouthandler "github.com/magabrotheeeer/school-admin/internal/http/handlers/payment/checkout"
	"github.com/magabrotheeeer/school-admin/internal/http/handlers/payment/webhook"
	"github.com/magabrotheeeer/school-admin/internal/http/handlers/subscription/cancel"
	"github.com/magabrotheeeer/school-admin/internal/http/handlers/subscription/dashboard"
	"github.com/magabrotheeeer/school-admin/internal/http/handlers/subscription/trial"
	"github.com/magabrotheeeer/school-admin/internal/http/middlewarectx"
	"github.com/magabrotheeeer/school-admin/internal/metrics"
)

// Лимит на открытые эндпоинты аутентификации.
const (
	authRPS   = 5
	authBurst = 10
)

// AuthService операции учётных записей, нужные маршрутам.
type AuthService interface {
	register.Service
	login.Service
	passwordforgot.Service
	passwordreset.Service
	passwordchange.Service
	usercreate.Service
}

// BillingService операции подписки, нужные маршрутам.
type BillingService interface {
	middlewarectx.AccessChecker
	account.Service
	trial.Service
	cancel.Service
	webhook.Service
}

// Deps зависимости маршрутов.
type Deps struct {
	Log      *slog.Logger
	Auth     AuthService
	Billing  BillingService
	Checkout checkouthandler.Service
	Tokens   middlewarectx.TokenParser
	DB       health.Pinger
	Metrics  *metrics.Metrics
	Gatherer prometheus.Gatherer
}

// RegisterRoutes регистрирует все маршруты приложения.
func RegisterRoutes(r chi.Router, d Deps) {
	// Глобальные middleware
	r.Use(
		middleware.RequestID,
		middleware.RealIP,
		middleware.Logger,
		middleware.Recoverer,
		middleware.URLFormat,
	)
	if d.Metrics != nil {
		r.Use(d.Metrics.HTTPMiddleware)
	}

	r.Get("/healthz", health.New(d.Log, d.DB).ServeHTTP)
	r.Handle("/metrics", metrics.Handler(d.Gatherer))
	r.Get("/docs/*", httpSwagger.WrapHandler)

	r.Route("/api/v1", func(r chi.Router) {
		// Открытые конечные точки
		r.Group(func(r chi.Router) {
			r.Use(middlewarectx.RateLimitMiddleware(d.Log, authRPS, authBurst))
			r.Post("/register", register.New(d.Log, d.Auth).ServeHTTP)
			r.Post("/login", login.New(d.Log, d.Auth).ServeHTTP)
			r.Post("/password/forgot", passwordforgot.New(d.Log, d.Auth).ServeHTTP)
			r.Post("/password/reset", passwordreset.New(d.Log, d.Auth).ServeHTTP)
		})

		// Webhook endpoint (без аутентификации)
		r.Post("/payments/webhook", webhook.New(d.Log, d.Billing).ServeHTTP)

		// Группа с JWT аутентификацией
		r.Group(func(r chi.Router) {
			r.Use(middlewarectx.JWTMiddleware(d.Tokens, d.Log))
			r.Get("/account", account.New(d.Log, d.Billing).ServeHTTP)
			r.Post("/subscription/trial", trial.New(d.Log, d.Billing).ServeHTTP)
			r.Post("/subscription/cancel", cancel.New(d.Log, d.Billing).ServeHTTP)
			r.Post("/payments/checkout", checkouthandler.New(d.Log, d.Checkout).ServeHTTP)
			r.Post("/password/change", passwordchange.New(d.Log, d.Auth).ServeHTTP)

			r.Group(func(r chi.Router) {
				r.Use(middlewarectx.AccessMiddleware(d.Log, d.Billing))
				r.Get("/dashboard", dashboard.New(d.Log, d.Billing).ServeHTTP)
			})

			r.Group(func(r chi.Router) {
				r.Use(middlewarectx.AdminOnly(d.Log))
				r.Post("/admin/users", usercreate.New(d.Log, d.Auth).ServeHTTP)
			})
		})
	})
}
