// Package services содержит регистрацию, вход и восстановление пароля.
package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/magabrotheeeer/school-admin/internal/lib/jwt"
	"github.com/magabrotheeeer/school-admin/internal/lib/password"
	"github.com/magabrotheeeer/school-admin/internal/lib/sl"
	"github.com/magabrotheeeer/school-admin/internal/models"
)

// ResetTTL срок действия ссылки восстановления пароля.
const ResetTTL = time.Hour

// NowFunc источник текущего времени для проверки срока ссылок, подменяется в тестах.
var NowFunc = time.Now

// UserRepository описывает контракт для работы с пользователями и ссылками восстановления.
type UserRepository interface {
	CreateUser(ctx context.Context, user models.User) (int64, error)
	GetUser(ctx context.Context, userID int64) (*models.User, error)
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	UpdatePassword(ctx context.Context, userID int64, passwordHash string) error

	CreateReset(ctx context.Context, userID int64, token string, expiresAt time.Time) (int64, error)
	GetReset(ctx context.Context, token string) (*models.PasswordReset, error)
	ConsumeReset(ctx context.Context, reset *models.PasswordReset, passwordHash string) error
}

// Notifier доставляет ссылку восстановления пользователю.
type Notifier interface {
	Notify(ctx context.Context, n models.Notification) error
}

// ResetOptions настройки ссылок восстановления.
type ResetOptions struct {
	// BaseURL адрес приложения, к нему добавляется /reset/<token>.
	BaseURL string
	// ExposeLinks возвращает ссылку вызывающему коду. Включается, когда брокера нет (dev-режим).
	ExposeLinks bool
}

// AuthService отвечает за регистрацию, вход и смену пароля.
type AuthService struct {
	users    UserRepository
	jwtMaker jwt.Maker
	notifier Notifier
	log      *slog.Logger
	reset    ResetOptions
}

// NewAuthService создает новый экземпляр AuthService.
func NewAuthService(log *slog.Logger, users UserRepository, jwtMaker jwt.Maker, notifier Notifier, reset ResetOptions) *AuthService {
	return &AuthService{
		users:    users,
		jwtMaker: jwtMaker,
		notifier: notifier,
		log:      log,
		reset:    reset,
	}
}

// NormalizeEmail приводит email к виду, в котором он хранится.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Register создает учителя и возвращает JWT для него.
// Занятый email возвращает models.ErrEmailTaken.
func (s *AuthService) Register(ctx context.Context, email, username, rawPassword string) (string, error) {
	const op = "auth.Register"
	id, err := s.CreateUser(ctx, email, username, rawPassword, models.RoleTeacher)
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}
	token, err := s.jwtMaker.GenerateToken(id, models.RoleTeacher)
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}
	return token, nil
}

// CreateUser сохраняет пользователя с указанной ролью. Используется при регистрации
// и администратором в настройках.
func (s *AuthService) CreateUser(ctx context.Context, email, username, rawPassword, role string) (int64, error) {
	const op = "auth.CreateUser"
	if role != models.RoleAdmin && role != models.RoleTeacher {
		return 0, fmt.Errorf("%s: %w", op, models.ErrInvalidRole)
	}
	hashed, err := password.Hash(rawPassword)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	user := models.User{
		Email:        NormalizeEmail(email),
		Username:     strings.TrimSpace(username),
		PasswordHash: hashed,
		Role:         role,
	}
	id, err := s.users.CreateUser(ctx, user)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	s.log.Info("user created", slog.String("op", op), sl.UserID(id), slog.String("role", role))
	return id, nil
}

// Login проверяет пароль пользователя и генерирует JWT.
// Неизвестный email и неверный пароль неразличимы: оба дают models.ErrInvalidCredentials.
func (s *AuthService) Login(ctx context.Context, email, rawPassword string) (token, role string, err error) {
	const op = "auth.Login"
	user, err := s.users.GetUserByEmail(ctx, NormalizeEmail(email))
	if errors.Is(err, models.ErrUserNotFound) {
		return "", "", fmt.Errorf("%s: %w", op, models.ErrInvalidCredentials)
	}
	if err != nil {
		return "", "", fmt.Errorf("%s: %w", op, err)
	}
	if err := password.Verify(user.PasswordHash, rawPassword); err != nil {
		return "", "", fmt.Errorf("%s: %w", op, models.ErrInvalidCredentials)
	}
	token, err = s.jwtMaker.GenerateToken(user.ID, user.Role)
	if err != nil {
		return "", "", fmt.Errorf("%s: %w", op, err)
	}
	return token, user.Role, nil
}

// ForgotPassword создаёт одноразовую ссылку восстановления на час и отправляет её уведомлением.
// Ссылка возвращается только в dev-режиме, иначе результат пустой.
func (s *AuthService) ForgotPassword(ctx context.Context, email string) (string, error) {
	const op = "auth.ForgotPassword"
	user, err := s.users.GetUserByEmail(ctx, NormalizeEmail(email))
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}

	token := uuid.NewString()
	expiresAt := NowFunc().UTC().Add(ResetTTL)
	if _, err := s.users.CreateReset(ctx, user.ID, token, expiresAt); err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}

	link := strings.TrimRight(s.reset.BaseURL, "/") + "/reset/" + token
	err = s.notifier.Notify(ctx, models.Notification{
		Kind:     models.NotificationPasswordReset,
		Email:    user.Email,
		Username: user.Username,
		URL:      link,
		Date:     expiresAt.Format(time.RFC3339),
	})
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}

	if s.reset.ExposeLinks {
		return link, nil
	}
	return "", nil
}

// ResetPassword меняет пароль по ссылке восстановления.
// Проверки идут в порядке: ссылка существует и не использована, не истекла, пароли совпадают.
func (s *AuthService) ResetPassword(ctx context.Context, token, newPassword, confirm string) error {
	const op = "auth.ResetPassword"
	reset, err := s.users.GetReset(ctx, token)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if reset.Expired(NowFunc()) {
		return fmt.Errorf("%s: %w", op, models.ErrResetTokenExpired)
	}
	if newPassword == "" || newPassword != confirm {
		return fmt.Errorf("%s: %w", op, models.ErrPasswordMismatch)
	}

	hashed, err := password.Hash(newPassword)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if err := s.users.ConsumeReset(ctx, reset, hashed); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	s.log.Info("password reset", slog.String("op", op), sl.UserID(reset.UserID))
	return nil
}

// ChangePassword меняет пароль после проверки текущего.
func (s *AuthService) ChangePassword(ctx context.Context, userID int64, current, newPassword string) error {
	const op = "auth.ChangePassword"
	if newPassword == "" {
		return fmt.Errorf("%s: %w", op, models.ErrPasswordMismatch)
	}
	user, err := s.users.GetUser(ctx, userID)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if err := password.Verify(user.PasswordHash, current); err != nil {
		return fmt.Errorf("%s: %w", op, models.ErrInvalidCredentials)
	}
	hashed, err := password.Hash(newPassword)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if err := s.users.UpdatePassword(ctx, userID, hashed); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}
