package models

import (
	"time"

	"github.com/google/uuid"
)

// RefreshToken — серверная запись refresh-токена.
//
// Клиент получает случайный секрет в открытом виде; в БД хранится только его
// sha256-хэш. ExpiresAt — единственный источник истины о сроке жизни токена:
// сам секрет не несёт встроенного срока. Токен одноразовый: успешная ротация
// удаляет запись, повторное предъявление того же секрета отклоняется.
type RefreshToken struct {
	// TokenHash — base64url(sha256(plain)); первичный ключ в хранилище.
	TokenHash string
	// UserID — владелец; у пользователя может быть несколько активных токенов.
	UserID uuid.UUID
	// CreatedAt — момент выпуска (UTC).
	CreatedAt time.Time
	// ExpiresAt — момент истечения (UTC).
	ExpiresAt time.Time
}

// Expired сообщает, истёк ли токен к моменту now.
func (t *RefreshToken) Expired(now time.Time) bool {
	return now.After(t.ExpiresAt)
}
