package http

import (
	"net/http"

	"github.com/dobro-platform/auth-service/internal/apierrors"
	"github.com/dobro-platform/auth-service/internal/service"
	"github.com/dobro-platform/auth-service/internal/transport/http/middleware"
)

// Register — POST /auth/register.
// 201 с пользователем и парой токенов; 409 — занятый идентификатор;
// 400 — ошибка валидации.
func (h *Handlers) Register(w http.ResponseWriter, r *http.Request) {
	var in RegisterRequest
	if err := decodeStrict(r, &in); err != nil {
		apierrors.WriteError(w, r, apierrors.ErrMalformedRequest)
		return
	}

	user, pair, err := h.service.RegisterUser(r.Context(), service.RegisterInput{
		Email:    in.Email,
		Phone:    in.Phone,
		Name:     in.Name,
		Password: in.Password,
	})
	if err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, authResponse(user, pair))
}

// Login — POST /auth/login.
// 200 с новой парой токенов; 401 — неверные креденшелы или
// деактивированная учётная запись.
func (h *Handlers) Login(w http.ResponseWriter, r *http.Request) {
	var in LoginRequest
	if err := decodeStrict(r, &in); err != nil {
		apierrors.WriteError(w, r, apierrors.ErrMalformedRequest)
		return
	}

	user, pair, err := h.service.LoginUser(r.Context(), in.Identifier, in.Password)
	if err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, authResponse(user, pair))
}

// Refresh — POST /auth/refresh.
// 200 с новой парой; 401 — неизвестный/просроченный/повторно
// предъявленный refresh-токен.
func (h *Handlers) Refresh(w http.ResponseWriter, r *http.Request) {
	var in RefreshRequest
	if err := decodeStrict(r, &in); err != nil {
		apierrors.WriteError(w, r, apierrors.ErrMalformedRequest)
		return
	}

	user, pair, err := h.service.RefreshTokens(r.Context(), in.RefreshToken)
	if err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, authResponse(user, pair))
}

// Logout — POST /auth/logout (требует bearer-токен).
// Всегда 200 при корректном запросе: отсутствие токена в хранилище не
// раскрывается (операция идемпотентна).
func (h *Handlers) Logout(w http.ResponseWriter, r *http.Request) {
	identity, ok := middleware.IdentityFrom(r.Context())
	if !ok {
		apierrors.WriteError(w, r, service.ErrInvalidToken)
		return
	}

	var in LogoutRequest
	if err := decodeStrict(r, &in); err != nil {
		apierrors.WriteError(w, r, apierrors.ErrMalformedRequest)
		return
	}

	if err := h.service.Logout(r.Context(), identity.ID, in.RefreshToken); err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, LogoutResponse{Message: "logged out"})
}

// Me — GET /auth/me (требует bearer-токен).
// 200 с санированным пользователем; 401 — субъект отсутствует/деактивирован.
func (h *Handlers) Me(w http.ResponseWriter, r *http.Request) {
	identity, ok := middleware.IdentityFrom(r.Context())
	if !ok {
		apierrors.WriteError(w, r, service.ErrInvalidToken)
		return
	}

	user, err := h.service.ProfileByID(r.Context(), identity.ID)
	if err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, userFromModel(user))
}
