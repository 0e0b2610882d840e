package http

// Входные/выходные модели REST-слоя.

import (
	"github.com/dobro-platform/auth-service/internal/models"
)

type RegisterRequest struct {
	Email    string `json:"email,omitempty"`
	Phone    string `json:"phone,omitempty"`
	Name     string `json:"name,omitempty"`
	Password string `json:"password"`
}

type LoginRequest struct {
	Identifier string `json:"identifier"`
	Password   string `json:"password"`
}

type RefreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

type LogoutRequest struct {
	RefreshToken string `json:"refresh_token"`
}

type LogoutResponse struct {
	Message string `json:"message"`
}

// UserResponse — санированное представление пользователя: хэш пароля не
// имеет JSON-поля и физически не может попасть в ответ.
type UserResponse struct {
	ID          string `json:"id"`
	Email       string `json:"email,omitempty"`
	Phone       string `json:"phone,omitempty"`
	Name        string `json:"name,omitempty"`
	Role        string `json:"role"`
	IsActive    bool   `json:"is_active"`
	LastLoginAt int64  `json:"last_login_at,omitempty"` // Unix UTC; 0 — ещё не входил.
	CreatedAt   int64  `json:"created_at"`              // Unix UTC.
	UpdatedAt   int64  `json:"updated_at"`              // Unix UTC.
}

// AuthResponse — ответ register/login/refresh: пользователь и пара токенов.
type AuthResponse struct {
	User            UserResponse `json:"user"`
	AccessToken     string       `json:"access_token"`
	RefreshToken    string       `json:"refresh_token"`
	AccessExpiresAt int64        `json:"access_expires_at"` // Unix UTC.
}

// userFromModel маппит доменного пользователя в санированный DTO.
func userFromModel(u *models.User) UserResponse {
	out := UserResponse{
		ID:        u.ID.String(),
		Email:     u.Email,
		Phone:     u.Phone,
		Name:      u.Name,
		Role:      string(u.Role),
		IsActive:  u.IsActive,
		CreatedAt: u.CreatedAt.Unix(),
		UpdatedAt: u.UpdatedAt.Unix(),
	}

	if !u.LastLoginAt.IsZero() {
		out.LastLoginAt = u.LastLoginAt.Unix()
	}

	return out
}

// authResponse собирает единый конверт ответа с токенами.
func authResponse(u *models.User, pair *models.TokenPair) AuthResponse {
	return AuthResponse{
		User:            userFromModel(u),
		AccessToken:     pair.AccessToken,
		RefreshToken:    pair.RefreshToken,
		AccessExpiresAt: pair.AccessExpiresAt.Unix(),
	}
}
