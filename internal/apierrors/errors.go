// apierrors стандартизирует ответы об ошибках HTTP-слоя.
// На вход — доменная ошибка сервисного слоя, на выход:
//   - корректный HTTP-статус;
//   - краткое безопасное message без утечки внутренних деталей.
//
// Таксономия (см. сигнальные ошибки пакета service):
//   - валидация входа -> 400;
//   - занятый идентификатор -> 409;
//   - ошибки аутентификации -> 401 с generic-сообщением: невалидные
//     креденшелы и неизвестный/просроченный/повторно предъявленный токен
//     наружу неразличимы; исключение — явно деактивированная учётная запись;
//   - недостаточная роль -> 403;
//   - прочее -> 500/internal без деталей.
package apierrors

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/dobro-platform/auth-service/internal/service"
)

// ErrForbidden — аутентифицированному субъекту не хватает роли (см. RequireRole).
var ErrForbidden = errors.New("forbidden")

// ErrMalformedRequest — тело запроса не разобрано (битый JSON/лишние поля).
var ErrMalformedRequest = errors.New("malformed request body")

// APIError — единый формат ошибки для фронта.
// Code — короткий стабильный код для машиночитаемой обработки.
// Message — безопасное человекочитаемое описание.
// RequestID — прокидывается из X-Request-Id, если есть (для трассировки).
type APIError struct {
	Code      string `json:"code"`
	Message   string `json:"message"`
	RequestID string `json:"request_id,omitempty"`
}

// ErrorResponse — корневой объект в ответе об ошибке.
type ErrorResponse struct {
	Error APIError `json:"error"`
}

// ToHTTP конвертирует доменную ошибку в HTTP-статус и унифицированный ответ.
// err == nil — программная ошибка вызова: отвечаем 500, чтобы не замаскировать баг.
func ToHTTP(err error) (int, ErrorResponse) {
	status, code, msg := http.StatusInternalServerError, "internal", "internal error"

	switch {
	case err == nil:
		// оставляем 500/internal.
	case errors.Is(err, ErrMalformedRequest):
		status, code, msg = http.StatusBadRequest, "invalid_argument", "malformed request body"
	case errors.Is(err, service.ErrMissingIdentifier),
		errors.Is(err, service.ErrInvalidEmail),
		errors.Is(err, service.ErrInvalidPhone),
		errors.Is(err, service.ErrWeakPassword):
		status, code, msg = http.StatusBadRequest, "invalid_argument", err.Error()
	case errors.Is(err, service.ErrIdentifierTaken):
		status, code, msg = http.StatusConflict, "already_exists", "identifier already in use"
	case errors.Is(err, service.ErrAccountDisabled):
		status, code, msg = http.StatusUnauthorized, "account_disabled", "account disabled"
	case errors.Is(err, service.ErrInvalidCredentials):
		status, code, msg = http.StatusUnauthorized, "unauthenticated", "invalid credentials"
	case errors.Is(err, service.ErrInvalidToken), errors.Is(err, service.ErrTokenExpired):
		status, code, msg = http.StatusUnauthorized, "unauthenticated", "invalid or expired token"
	case errors.Is(err, ErrForbidden):
		status, code, msg = http.StatusForbidden, "permission_denied", "permission denied"
	}

	return status, ErrorResponse{Error: APIError{Code: code, Message: msg}}
}

// WriteError — хелпер для HTTP-хендлеров.
// Пишет корректный статус/тело, добавляет request_id из заголовка, если он есть.
func WriteError(w http.ResponseWriter, r *http.Request, err error) {
	status, resp := ToHTTP(err)

	if rid := r.Header.Get("X-Request-Id"); rid != "" {
		resp.Error.RequestID = rid
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(resp)
}
