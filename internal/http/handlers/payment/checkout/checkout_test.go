package checkout

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/magabrotheeeer/school-admin/internal/http/middlewarectx"
	"github.com/magabrotheeeer/school-admin/internal/models"
)

type ServiceMock struct {
	mock.Mock
}

func (m *ServiceMock) StartCheckout(ctx context.Context, userID int64) (string, error) {
	args := m.Called(ctx, userID)
	return args.String(0), args.Error(1)
}

func newNoopLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{}))
}

func TestCheckoutHandler_ServeHTTP(t *testing.T) {
	tests := []struct {
		name           string
		userID         int64
		setupMocks     func(m *ServiceMock)
		wantStatusCode int
		wantLocation   string
		wantBody       string
	}{
		{
			name:   "redirects to gateway",
			userID: 42,
			setupMocks: func(m *ServiceMock) {
				m.On("StartCheckout", mock.Anything, int64(42)).Return("https://pay.chargily.net/checkout/abc", nil).Once()
			},
			wantStatusCode: http.StatusSeeOther,
			wantLocation:   "https://pay.chargily.net/checkout/abc",
		},
		{
			name:           "no user",
			setupMocks:     func(_ *ServiceMock) {},
			wantStatusCode: http.StatusUnauthorized,
		},
		{
			name:   "not configured",
			userID: 42,
			setupMocks: func(m *ServiceMock) {
				m.On("StartCheckout", mock.Anything, int64(42)).
					Return("", fmt.Errorf("checkout.StartCheckout: %w", models.ErrGatewayConfiguration)).Once()
			},
			wantStatusCode: http.StatusServiceUnavailable,
		},
		{
			name:   "gateway request failed",
			userID: 42,
			setupMocks: func(m *ServiceMock) {
				m.On("StartCheckout", mock.Anything, int64(42)).Return("", models.ErrGatewayRequest).Once()
			},
			wantStatusCode: http.StatusBadGateway,
			wantBody:       "payment gateway unavailable, try again later",
		},
		{
			name:   "gateway response malformed",
			userID: 42,
			setupMocks: func(m *ServiceMock) {
				m.On("StartCheckout", mock.Anything, int64(42)).Return("", models.ErrGatewayResponse).Once()
			},
			wantStatusCode: http.StatusBadGateway,
		},
		{
			name:   "unexpected error",
			userID: 42,
			setupMocks: func(m *ServiceMock) {
				m.On("StartCheckout", mock.Anything, int64(42)).Return("", errors.New("boom")).Once()
			},
			wantStatusCode: http.StatusInternalServerError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := new(ServiceMock)
			tt.setupMocks(svc)

			req := httptest.NewRequest(http.MethodPost, "/api/v1/payments/checkout", nil)
			if tt.userID != 0 {
				req = req.WithContext(context.WithValue(req.Context(), middlewarectx.UserID, tt.userID))
			}
			rec := httptest.NewRecorder()
			New(newNoopLogger(), svc).ServeHTTP(rec, req)

			assert.Equal(t, tt.wantStatusCode, rec.Code)
			if tt.wantLocation != "" {
				assert.Equal(t, tt.wantLocation, rec.Header().Get("Location"))
			}
			if tt.wantBody != "" {
				assert.Contains(t, rec.Body.String(), tt.wantBody)
			}
			svc.AssertExpectations(t)
		})
	}
}
