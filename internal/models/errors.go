package models

import "errors"

var (
	// ErrUserNotFound пользователь с указанным идентификатором или email не найден.
	ErrUserNotFound = errors.New("user not found")
	// ErrEmailTaken email уже зарегистрирован.
	ErrEmailTaken = errors.New("email already registered")
	// ErrInvalidCredentials неверная пара email/пароль.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrTrialAlreadyUsed пробный период уже был активирован ранее.
	ErrTrialAlreadyUsed = errors.New("trial already used")

	// ErrPasswordMismatch новый пароль пуст или не совпадает с подтверждением.
	ErrPasswordMismatch = errors.New("password is empty or does not match confirmation")
	// ErrInvalidRole роль пользователя не admin и не teacher.
	ErrInvalidRole = errors.New("invalid role")

	// ErrResetTokenInvalid ссылка восстановления не найдена или уже использована.
	ErrResetTokenInvalid = errors.New("invalid or used reset token")
	// ErrResetTokenExpired срок действия ссылки восстановления истёк.
	ErrResetTokenExpired = errors.New("reset token expired")

	// ErrGatewayConfiguration не задан ключ платёжного шлюза.
	ErrGatewayConfiguration = errors.New("payment gateway is not configured")
	// ErrGatewayRequest сетевая ошибка, таймаут или неуспешный ответ шлюза.
	ErrGatewayRequest = errors.New("payment gateway request failed")
	// ErrGatewayResponse в успешном ответе шлюза нет ссылки на оплату.
	ErrGatewayResponse = errors.New("payment gateway response is malformed")
)
