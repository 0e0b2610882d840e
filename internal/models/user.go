package models

import (
	"time"

	"github.com/google/uuid"
)

// Role — роль пользователя на платформе.
type Role string

const (
	// RoleDonor — жертвователь; назначается при саморегистрации.
	RoleDonor Role = "DONOR"
	// RoleManager — менеджер проектов/контента.
	RoleManager Role = "MANAGER"
	// RoleAdmin — администратор платформы.
	RoleAdmin Role = "ADMIN"
)

// Valid сообщает, входит ли роль в допустимый набор.
func (r Role) Valid() bool {
	switch r {
	case RoleDonor, RoleManager, RoleAdmin:
		return true
	}

	return false
}

// User — модель пользователя в системе.
//
// Идентификатором входа служит e-mail ИЛИ телефон: при создании обязателен
// хотя бы один из них, каждый уникален в хранилище. Пароль хранится только
// в виде bcrypt-хэша; наружу хэш не отдаётся (см. транспортные DTO).
type User struct {
	ID           uuid.UUID
	Email        string // пустая строка — e-mail не задан.
	Phone        string // пустая строка — телефон не задан.
	Name         string
	PasswordHash string
	Role         Role
	IsActive     bool
	LastLoginAt  time.Time // нулевое значение — пользователь ещё не входил.
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// LoginIdentifier возвращает человекочитаемый идентификатор пользователя:
// e-mail, если он задан, иначе телефон. Попадает claim-ом в access-токен.
func (u *User) LoginIdentifier() string {
	if u.Email != "" {
		return u.Email
	}

	return u.Phone
}
