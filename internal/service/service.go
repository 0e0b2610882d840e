// service содержит бизнес-логику auth-сервиса платформы:
// регистрацию/аутентификацию пользователей, выпуск/ротацию токенов
// и работу с хранилищем через интерфейсы из пакета storage.
//
// Основные аспекты:
//   - Service не хранит состояние запроса; экземпляр безопасен для
//     конкурентного использования из разных горутин при условии, что
//     переданное хранилище (storage.Storage) потокобезопасно.
//   - Ошибки возвращаются сигнальными переменными и далее маппятся
//     транспортом на HTTP-статусы (см. комментарии к переменным ниже).
package service

import (
	"errors"

	"github.com/dobro-platform/auth-service/internal/cache"
	"github.com/dobro-platform/auth-service/internal/config"
	"github.com/dobro-platform/auth-service/internal/storage"
)

var (
	// ErrInvalidCredentials — идентификатор/пароль неверны или пользователь не найден.
	// Сообщение едино для обоих случаев, чтобы не раскрывать существование
	// идентификатора. Транспорт: HTTP 401.
	ErrInvalidCredentials = errors.New("invalid credentials")

	// ErrAccountDisabled — учётная запись деактивирована (is_active = false).
	// Транспорт: HTTP 401.
	ErrAccountDisabled = errors.New("account disabled")

	// ErrInvalidToken — токен (access/refresh) некорректен по формату/подписи,
	// отсутствует в хранилище или уже был использован (replay). Также
	// возвращается, когда субъект валидного токена не найден. Транспорт: HTTP 401.
	ErrInvalidToken = errors.New("invalid token")

	// ErrTokenExpired — срок действия токена истёк. Транспорт: HTTP 401.
	ErrTokenExpired = errors.New("token expired")

	// ErrIdentifierTaken — e-mail или телефон уже заняты другим пользователем.
	// Транспорт: HTTP 409.
	ErrIdentifierTaken = errors.New("identifier already in use")

	// ErrMissingIdentifier — при регистрации не передан ни e-mail, ни телефон.
	// Транспорт: HTTP 400.
	ErrMissingIdentifier = errors.New("email or phone is required")

	// ErrInvalidEmail — e-mail имеет некорректный формат. Транспорт: HTTP 400.
	ErrInvalidEmail = errors.New("invalid email format")

	// ErrInvalidPhone — телефон не соответствует ожидаемому формату.
	// Транспорт: HTTP 400.
	ErrInvalidPhone = errors.New("invalid phone format")

	// ErrWeakPassword — пароль короче минимальной длины. Транспорт: HTTP 400.
	ErrWeakPassword = errors.New("password is too weak")

	// ErrRefreshTokenCollision — исчерпаны попытки сгенерировать уникальный
	// refresh-токен (крайне редкие коллизии хэша в БД). Транспорт: HTTP 500.
	ErrRefreshTokenCollision = errors.New("refresh token collision")
)

// Service реализует бизнес-логику auth-сервиса.
type Service struct {
	storage storage.Storage
	cfg     config.AuthConfig
	rcache  cache.RefreshCache // может быть nil, если кэш не сконфигурирован.
}

// New создаёт новый экземпляр Service.
func New(storage storage.Storage, cfg config.AuthConfig) *Service {
	return &Service{
		storage: storage,
		cfg:     cfg,
	}
}

// SetRefreshCache устанавливает кэш refresh-токенов (опционально).
// Кэш ускоряет отказ по отозванным токенам; источником истины остаётся БД.
func (s *Service) SetRefreshCache(c cache.RefreshCache) {
	s.rcache = c
}
