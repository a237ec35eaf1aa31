package passwordchange

import (
	"bytes"
	"context"
	"errors"
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

func (m *ServiceMock) ChangePassword(ctx context.Context, userID int64, current, newPassword string) error {
	return m.Called(ctx, userID, current, newPassword).Error(0)
}

func newNoopLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{}))
}

func TestChangeHandler_ServeHTTP(t *testing.T) {
	tests := []struct {
		name           string
		userID         int64
		body           string
		setupMocks     func(m *ServiceMock)
		wantStatusCode int
	}{
		{
			name:   "success",
			userID: 5,
			body:   `{"current":"old-pass","new":"new-pass"}`,
			setupMocks: func(m *ServiceMock) {
				m.On("ChangePassword", mock.Anything, int64(5), "old-pass", "new-pass").Return(nil).Once()
			},
			wantStatusCode: http.StatusOK,
		},
		{
			name:           "no user",
			body:           `{"current":"old-pass","new":"new-pass"}`,
			setupMocks:     func(_ *ServiceMock) {},
			wantStatusCode: http.StatusUnauthorized,
		},
		{
			name:           "new password too short",
			userID:         5,
			body:           `{"current":"old-pass","new":"x"}`,
			setupMocks:     func(_ *ServiceMock) {},
			wantStatusCode: http.StatusUnprocessableEntity,
		},
		{
			name:   "wrong current password",
			userID: 5,
			body:   `{"current":"guess","new":"new-pass"}`,
			setupMocks: func(m *ServiceMock) {
				m.On("ChangePassword", mock.Anything, int64(5), "guess", "new-pass").Return(models.ErrInvalidCredentials).Once()
			},
			wantStatusCode: http.StatusUnauthorized,
		},
		{
			name:   "store failure",
			userID: 5,
			body:   `{"current":"old-pass","new":"new-pass"}`,
			setupMocks: func(m *ServiceMock) {
				m.On("ChangePassword", mock.Anything, int64(5), "old-pass", "new-pass").Return(errors.New("db down")).Once()
			},
			wantStatusCode: http.StatusInternalServerError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := new(ServiceMock)
			tt.setupMocks(svc)

			req := httptest.NewRequest(http.MethodPost, "/api/v1/password/change", bytes.NewBufferString(tt.body))
			if tt.userID != 0 {
				req = req.WithContext(context.WithValue(req.Context(), middlewarectx.UserID, tt.userID))
			}
			rec := httptest.NewRecorder()
			New(newNoopLogger(), svc).ServeHTTP(rec, req)

			assert.Equal(t, tt.wantStatusCode, rec.Code)
			svc.AssertExpectations(t)
		})
	}
}
