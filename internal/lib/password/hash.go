// Package password хранит пароли учётных записей в виде bcrypt-хэшей.
package password

import (
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

var (
	// ErrMismatch пароль не соответствует сохранённому хэшу.
	ErrMismatch = errors.New("password does not match")
	// ErrTooLong bcrypt учитывает только первые 72 байта, более длинные пароли отклоняются.
	ErrTooLong = errors.New("password is longer than 72 bytes")
)

// Cost стоимость bcrypt. Тесты могут понизить её до bcrypt.MinCost.
var Cost = bcrypt.DefaultCost

// Hash возвращает bcrypt-хэш пароля для колонки users.password_hash.
func Hash(plain string) (string, error) {
	const op = "password.Hash"
	hashed, err := bcrypt.GenerateFromPassword([]byte(plain), Cost)
	if errors.Is(err, bcrypt.ErrPasswordTooLong) {
		return "", fmt.Errorf("%s: %w", op, ErrTooLong)
	}
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}
	return string(hashed), nil
}

// Verify проверяет пароль по хэшу. Неверный пароль даёт ErrMismatch;
// хэш не в формате bcrypt (например, sha256 из старой базы) даёт другую ошибку.
func Verify(hash, plain string) error {
	const op = "password.Verify"
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(plain))
	switch {
	case err == nil:
		return nil
	case errors.Is(err, bcrypt.ErrMismatchedHashAndPassword):
		return fmt.Errorf("%s: %w", op, ErrMismatch)
	default:
		return fmt.Errorf("%s: %w", op, err)
	}
}
