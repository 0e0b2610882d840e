// storage задаёт контракты работы с БД для auth-сервиса платформы.
// Реализация — в подпакете postgres; сервисный слой зависит только от
// интерфейсов и сигнальных ошибок этого пакета.
package storage

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/dobro-platform/auth-service/internal/models"
)

var (
	// ErrNotFound — запись не найдена (пользователь/токен).
	ErrNotFound = errors.New("not found")
	// ErrAlreadyExists — нарушение уникальности (email/телефон/хэш токена).
	// Уникальные индексы БД — авторитетная защита от дублей: предварительная
	// проверка в сервисе лишь оптимизация (гонку регистраций решает constraint).
	ErrAlreadyExists = errors.New("already exists")
)

// UserStorage выполняет операции над пользователями.
type UserStorage interface {
	// SaveUser создаёт нового пользователя в БД.
	SaveUser(ctx context.Context, user *models.User) error
	// UserByIdentifier находит пользователя, чей e-mail ИЛИ телефон равен identifier.
	UserByIdentifier(ctx context.Context, identifier string) (*models.User, error)
	// UserByEmailOrPhone находит пользователя по e-mail или телефону.
	// Пустые аргументы в поиске не участвуют: отсутствующий идентификатор
	// никогда не даёт совпадения.
	UserByEmailOrPhone(ctx context.Context, email, phone string) (*models.User, error)
	// UserByID находит пользователя по ID.
	UserByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	// TouchLastLogin выставляет last_login_at на момент успешного входа.
	TouchLastLogin(ctx context.Context, id uuid.UUID, at time.Time) error
}

// RefreshTokenStorage выполняет операции над refresh-токенами.
type RefreshTokenStorage interface {
	// SaveRefreshToken сохраняет новый refresh-токен в БД.
	SaveRefreshToken(ctx context.Context, token *models.RefreshToken) error
	// ConsumeRefreshToken атомарно удаляет токен по хэшу и возвращает запись.
	// Удаление — точка сериализации ротации: из конкурентных предъявлений
	// одного секрета ровно одно получит запись, остальные — ErrNotFound.
	ConsumeRefreshToken(ctx context.Context, hash string) (*models.RefreshToken, error)
	// DeleteRefreshToken удаляет токен, принадлежащий пользователю.
	// Возвращает false, если подходящей записи не было (не ошибка: logout идемпотентен).
	DeleteRefreshToken(ctx context.Context, hash string, userID uuid.UUID) (bool, error)
	// DeleteExpiredTokens удаляет все просроченные токены.
	DeleteExpiredTokens(ctx context.Context, now time.Time) error
}

// Storage задаёт контракт работы с БД.
type Storage interface {
	UserStorage
	RefreshTokenStorage
	Close()
}
