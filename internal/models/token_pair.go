package models

import "time"

// TokenPair — пара токенов, выдаваемая при регистрации/входе/ротации.
//
// Описание:
//   - AccessToken — короткоживущий JWT для авторизации запросов;
//   - RefreshToken — случайный одноразовый секрет для выпуска новой пары;
//     на сервере хранится только его хэш;
//   - AccessExpiresAt — момент истечения access-токена (UTC).
type TokenPair struct {
	AccessToken     string
	RefreshToken    string
	AccessExpiresAt time.Time
}
