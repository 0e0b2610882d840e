package middleware

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/dobro-platform/auth-service/internal/apierrors"
	"github.com/dobro-platform/auth-service/internal/models"
	"github.com/dobro-platform/auth-service/internal/service"
)

// TokenVerifier — контракт, который гвард требует от сервисного слоя:
// проверить access-токен и вернуть его активного субъекта.
type TokenVerifier interface {
	ValidateAccess(ctx context.Context, accessToken string) (*models.User, error)
}

// Authenticate — гвард bearer-аутентификации.
//
// Конечный автомат на запрос: нет токена -> 401; токен есть -> проверка
// подписи/срока -> невалиден -> 401; валиден -> перечитывание субъекта из
// хранилища (внутри ValidateAccess) -> не найден/деактивирован -> 401;
// активен -> личность в контексте, запрос идёт дальше.
func Authenticate(verifier TokenVerifier) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, ok := bearerToken(r)
			if !ok {
				apierrors.WriteError(w, r, fmt.Errorf("missing bearer token: %w", service.ErrInvalidToken))
				return
			}

			user, err := verifier.ValidateAccess(r.Context(), token)
			if err != nil {
				apierrors.WriteError(w, r, err)
				return
			}

			next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), user)))
		})
	}
}

// RequireRole пропускает только субъектов с одной из перечисленных ролей.
// Подключается после Authenticate; отсутствие личности в контексте — 401.
func RequireRole(roles ...models.Role) Middleware {
	allowed := make(map[models.Role]struct{}, len(roles))
	for _, role := range roles {
		allowed[role] = struct{}{}
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user, ok := IdentityFrom(r.Context())
			if !ok {
				apierrors.WriteError(w, r, service.ErrInvalidToken)
				return
			}

			if _, ok := allowed[user.Role]; !ok {
				apierrors.WriteError(w, r, apierrors.ErrForbidden)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// bearerToken извлекает токен из Authorization: Bearer <token>.
func bearerToken(r *http.Request) (string, bool) {
	auth := r.Header.Get("Authorization")

	const prefix = "Bearer "
	if !strings.HasPrefix(auth, prefix) {
		return "", false
	}

	token := strings.TrimSpace(auth[len(prefix):])
	return token, token != ""
}
