package server

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	customjwt "github.com/magabrotheeeer/school-admin/internal/lib/jwt"
	"github.com/magabrotheeeer/school-admin/internal/metrics"
	"github.com/magabrotheeeer/school-admin/internal/models"
)

type fakeAuth struct{}

func (fakeAuth) Register(context.Context, string, string, string) (string, error) {
	return "jwt", nil
}

func (fakeAuth) Login(context.Context, string, string) (string, string, error) {
	return "jwt", models.RoleTeacher, nil
}

func (fakeAuth) ForgotPassword(context.Context, string) (string, error) {
	return "", nil
}

func (fakeAuth) ResetPassword(context.Context, string, string, string) error {
	return nil
}

func (fakeAuth) ChangePassword(context.Context, int64, string, string) error {
	return nil
}

func (fakeAuth) CreateUser(context.Context, string, string, string, string) (int64, error) {
	return 10, nil
}

type fakeBilling struct {
	access bool
}

func (f fakeBilling) HasAccess(context.Context, int64) (bool, error) {
	return f.access, nil
}

func (f fakeBilling) Status(_ context.Context, id int64) (*models.AccountStatus, error) {
	return &models.AccountStatus{User: &models.User{ID: id}, HasAccess: f.access}, nil
}

func (fakeBilling) StartTrial(context.Context, int64) (time.Time, error) {
	return time.Date(2024, 6, 8, 0, 0, 0, 0, time.UTC), nil
}

func (fakeBilling) Cancel(context.Context, int64) (int64, error) {
	return 1, nil
}

func (fakeBilling) HandleWebhook(context.Context, []byte, string) (string, int) {
	return "ok", http.StatusOK
}

type fakeCheckout struct{}

func (fakeCheckout) StartCheckout(context.Context, int64) (string, error) {
	return "https://pay.chargily.net/checkout/1", nil
}

type fakeTokens struct{}

func (fakeTokens) ParseToken(token string) (*customjwt.CustomClaims, error) {
	switch token {
	case "teacher":
		return &customjwt.CustomClaims{UserID: 7, Role: models.RoleTeacher}, nil
	case "admin":
		return &customjwt.CustomClaims{UserID: 1, Role: models.RoleAdmin}, nil
	}
	return nil, errors.New("invalid token")
}

type fakeDB struct{}

func (fakeDB) Ping(context.Context) error {
	return nil
}

func newTestRouter(access bool) http.Handler {
	registry := prometheus.NewRegistry()
	r := chi.NewRouter()
	RegisterRoutes(r, Deps{
		Log:      slog.New(slog.NewTextHandler(io.Discard, nil)),
		Auth:     fakeAuth{},
		Billing:  fakeBilling{access: access},
		Checkout: fakeCheckout{},
		Tokens:   fakeTokens{},
		DB:       fakeDB{},
		Metrics:  metrics.NewMetrics(registry),
		Gatherer: registry,
	})
	return r
}

func do(h http.Handler, method, path, token, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestRoutes(t *testing.T) {
	open := newTestRouter(true)
	denied := newTestRouter(false)

	tests := []struct {
		name       string
		router     http.Handler
		method     string
		path       string
		token      string
		body       string
		wantStatus int
	}{
		{"health", open, http.MethodGet, "/healthz", "", "", http.StatusOK},
		{"login is public", open, http.MethodPost, "/api/v1/login", "", `{"email":"a@b.dz","password":"x"}`, http.StatusOK},
		{"register is public", open, http.MethodPost, "/api/v1/register", "", `{"email":"a@b.dz","password":"secret1"}`, http.StatusCreated},
		{"webhook needs no token", open, http.MethodPost, "/api/v1/payments/webhook", "", `{}`, http.StatusOK},
		{"account needs token", open, http.MethodGet, "/api/v1/account", "", "", http.StatusUnauthorized},
		{"account with token", open, http.MethodGet, "/api/v1/account", "teacher", "", http.StatusOK},
		{"account not gated", denied, http.MethodGet, "/api/v1/account", "teacher", "", http.StatusOK},
		{"trial not gated", denied, http.MethodPost, "/api/v1/subscription/trial", "teacher", "", http.StatusOK},
		{"checkout not gated", denied, http.MethodPost, "/api/v1/payments/checkout", "teacher", "", http.StatusSeeOther},
		{"dashboard with access", open, http.MethodGet, "/api/v1/dashboard", "teacher", "", http.StatusOK},
		{"dashboard without access", denied, http.MethodGet, "/api/v1/dashboard", "teacher", "", http.StatusPaymentRequired},
		{"admin route for teacher", open, http.MethodPost, "/api/v1/admin/users", "teacher", `{"email":"n@b.dz","password":"secret1"}`, http.StatusForbidden},
		{"admin route for admin", open, http.MethodPost, "/api/v1/admin/users", "admin", `{"email":"n@b.dz","password":"secret1"}`, http.StatusCreated},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(tt.router, tt.method, tt.path, tt.token, tt.body)
			assert.Equal(t, tt.wantStatus, rec.Code)
		})
	}
}

func TestRoutes_Metrics(t *testing.T) {
	h := newTestRouter(true)
	require.Equal(t, http.StatusOK, do(h, http.MethodGet, "/healthz", "", "").Code)

	rec := do(h, http.MethodGet, "/metrics", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `school_admin_http_requests_total{method="GET",route="/healthz",status="200"} 1`)
}
