package webhook

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

type ServiceMock struct {
	mock.Mock
}

func (m *ServiceMock) HandleWebhook(ctx context.Context, raw []byte, signature string) (string, int) {
	args := m.Called(ctx, raw, signature)
	return args.String(0), args.Int(1)
}

func newNoopLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{}))
}

func TestWebhookHandler_ServeHTTP(t *testing.T) {
	payload := `{"entity":"checkout","status":"paid","metadata":{"user_id":"42"}}`

	tests := []struct {
		name           string
		result         string
		status         int
		wantStatusCode int
	}{
		{name: "ok", result: "ok", status: http.StatusOK, wantStatusCode: http.StatusOK},
		{name: "ignored", result: "ignored", status: http.StatusOK, wantStatusCode: http.StatusOK},
		{name: "missing user", result: "missing user_id", status: http.StatusBadRequest, wantStatusCode: http.StatusBadRequest},
		{name: "internal", result: "internal error", status: http.StatusInternalServerError, wantStatusCode: http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := new(ServiceMock)
			svc.On("HandleWebhook", mock.Anything, []byte(payload), "abc123").Return(tt.result, tt.status).Once()

			req := httptest.NewRequest(http.MethodPost, "/api/v1/payments/webhook", strings.NewReader(payload))
			req.Header.Set(SignatureHeader, "abc123")
			rec := httptest.NewRecorder()
			New(newNoopLogger(), svc).ServeHTTP(rec, req)

			assert.Equal(t, tt.wantStatusCode, rec.Code)
			assert.Equal(t, tt.result, rec.Body.String())
			assert.Equal(t, "text/plain; charset=utf-8", rec.Header().Get("Content-Type"))
			svc.AssertExpectations(t)
		})
	}
}

func TestWebhookHandler_BodyTooLarge(t *testing.T) {
	svc := new(ServiceMock)
	body := strings.Repeat("a", MaxBodyBytes+1)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/payments/webhook", strings.NewReader(body))
	rec := httptest.NewRecorder()
	New(newNoopLogger(), svc).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "invalid json", rec.Body.String())
	svc.AssertNotCalled(t, "HandleWebhook", mock.Anything, mock.Anything, mock.Anything)
}
