package service

import (
	"context"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"testing"
	"time"

	"github.com/golang/mock/gomock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/dobro-platform/auth-service/internal/config"
	"github.com/dobro-platform/auth-service/internal/models"
	"github.com/dobro-platform/auth-service/internal/storage"
	"github.com/dobro-platform/auth-service/mocks"
)

func testCfg() config.AuthConfig {
	return config.AuthConfig{
		JWTSecret:       "unit-secret",
		AccessTokenTTL:  30 * time.Second,
		RefreshTokenTTL: 24 * time.Hour,
		Issuer:          "auth-service",
		Audience:        []string{"dobro-platform"},
	}
}

func newSvc(t *testing.T) (*Service, *mocks.MockStorage, *gomock.Controller) {
	t.Helper()
	ctrl := gomock.NewController(t)
	st := mocks.NewMockStorage(ctrl)
	svc := New(st, testCfg())
	return svc, st, ctrl
}

func mustHashPW(t *testing.T, pw string) string {
	t.Helper()
	h, err := hashPassword(pw)
	require.NoError(t, err)
	return h
}

func hashPlain(plain string) string {
	sum := sha256.Sum256([]byte(plain))
	return base64.RawURLEncoding.EncodeToString(sum[:])
}

func TestRegisterUser_OK(t *testing.T) {
	t.Parallel()

	svc, st, ctrl := newSvc(t)
	defer ctrl.Finish()

	ctx := context.Background()
	norm := "user@example.com"

	// Сначала UserByEmailOrPhone → ErrNotFound, потом SaveUser, потом generateRefreshToken → SaveRefreshToken.
	st.EXPECT().UserByEmailOrPhone(gomock.Any(), norm, "").Return(nil, storage.ErrNotFound)
	st.EXPECT().SaveUser(gomock.Any(), gomock.Any()).Return(nil)
	st.EXPECT().SaveRefreshToken(gomock.Any(), gomock.Any()).Return(nil)

	user, tp, err := svc.RegisterUser(ctx, RegisterInput{
		Email:    "User@Example.com",
		Name:     "Иван",
		Password: "12345678",
	})
	require.NoError(t, err)
	require.NotEqual(t, uuid.Nil, user.ID)
	require.Equal(t, norm, user.Email)
	require.Equal(t, models.RoleDonor, user.Role)
	require.True(t, user.IsActive)
	require.NotEmpty(t, tp.AccessToken)
	require.NotEmpty(t, tp.RefreshToken)

	require.WithinDuration(t, time.Now().Add(svc.cfg.AccessTokenTTL), tp.AccessExpiresAt, 2*time.Second)
}

func TestRegisterUser_PhoneOnly_OK(t *testing.T) {
	t.Parallel()

	svc, st, ctrl := newSvc(t)
	defer ctrl.Finish()

	// Телефон нормализуется: пробелы и скобки убираются.
	st.EXPECT().UserByEmailOrPhone(gomock.Any(), "", "+79001234567").Return(nil, storage.ErrNotFound)
	st.EXPECT().SaveUser(gomock.Any(), gomock.Any()).Return(nil)
	st.EXPECT().SaveRefreshToken(gomock.Any(), gomock.Any()).Return(nil)

	user, _, err := svc.RegisterUser(context.Background(), RegisterInput{
		Phone:    "+7 (900) 123-45-67",
		Password: "12345678",
	})
	require.NoError(t, err)
	require.Equal(t, "+79001234567", user.Phone)
	require.Empty(t, user.Email)
}

func TestRegisterUser_MissingIdentifier(t *testing.T) {
	t.Parallel()

	svc, _, ctrl := newSvc(t)
	defer ctrl.Finish()

	_, _, err := svc.RegisterUser(context.Background(), RegisterInput{Password: "12345678"})
	require.Error(t, err)
	require.ErrorIs(t, err, ErrMissingIdentifier)
}

func TestRegisterUser_InvalidEmailOrPhone(t *testing.T) {
	t.Parallel()

	svc, _, ctrl := newSvc(t)
	defer ctrl.Finish()

	_, _, err := svc.RegisterUser(context.Background(), RegisterInput{Email: "not-an-email", Password: "12345678"})
	require.Error(t, err)
	require.ErrorIs(t, err, ErrInvalidEmail)

	_, _, err = svc.RegisterUser(context.Background(), RegisterInput{Phone: "12ab34", Password: "12345678"})
	require.Error(t, err)
	require.ErrorIs(t, err, ErrInvalidPhone)
}

func TestRegisterUser_WeakPassword(t *testing.T) {
	t.Parallel()

	svc, _, ctrl := newSvc(t)
	defer ctrl.Finish()

	_, _, err := svc.RegisterUser(context.Background(), RegisterInput{Email: "u@e.com", Password: ""})
	require.Error(t, err)
	require.ErrorIs(t, err, ErrWeakPassword)

	_, _, err = svc.RegisterUser(context.Background(), RegisterInput{Email: "u@e.com", Password: "1234567"})
	require.Error(t, err)
	require.ErrorIs(t, err, ErrWeakPassword)
}

func TestRegisterUser_IdentifierTaken_OnLookup(t *testing.T) {
	t.Parallel()

	svc, st, ctrl := newSvc(t)
	defer ctrl.Finish()

	// Если UserByEmailOrPhone вернул пользователя (err == nil) - идентификатор занят.
	st.EXPECT().UserByEmailOrPhone(gomock.Any(), "user@example.com", "").
		Return(&models.User{ID: uuid.New(), Email: "user@example.com"}, nil)

	_, _, err := svc.RegisterUser(context.Background(), RegisterInput{Email: "user@example.com", Password: "12345678"})
	require.Error(t, err)
	require.ErrorIs(t, err, ErrIdentifierTaken)
}

func TestRegisterUser_SaveUserAlreadyExists_MapsToIdentifierTaken(t *testing.T) {
	t.Parallel()

	svc, st, ctrl := newSvc(t)
	defer ctrl.Finish()

	// Гонка конкурентных регистраций: предварительная проверка прошла, но
	// уникальный индекс БД сработал на вставке.
	st.EXPECT().UserByEmailOrPhone(gomock.Any(), "user@example.com", "").
		Return(nil, storage.ErrNotFound)
	st.EXPECT().SaveUser(gomock.Any(), gomock.Any()).
		Return(storage.ErrAlreadyExists)

	_, _, err := svc.RegisterUser(context.Background(), RegisterInput{Email: "user@example.com", Password: "12345678"})
	require.Error(t, err)
	require.ErrorIs(t, err, ErrIdentifierTaken)
}

func TestRegisterUser_StorageErrors_Propagated(t *testing.T) {
	t.Parallel()

	svc, st, ctrl := newSvc(t)
	defer ctrl.Finish()

	st.EXPECT().UserByEmailOrPhone(gomock.Any(), "user@example.com", "").
		Return(nil, errors.New("db down"))

	_, _, err := svc.RegisterUser(context.Background(), RegisterInput{Email: "user@example.com", Password: "12345678"})
	require.Error(t, err)

	st.EXPECT().UserByEmailOrPhone(gomock.Any(), "user@example.com", "").
		Return(nil, storage.ErrNotFound)
	st.EXPECT().SaveUser(gomock.Any(), gomock.Any()).
		Return(errors.New("insert failed"))

	_, _, err = svc.RegisterUser(context.Background(), RegisterInput{Email: "user@example.com", Password: "12345678"})
	require.Error(t, err)
}

func TestLoginUser_OK(t *testing.T) {
	t.Parallel()

	svc, st, ctrl := newSvc(t)
	defer ctrl.Finish()

	ctx := context.Background()
	email := "user@example.com"
	pw := "12345678"
	user := &models.User{
		ID:           uuid.New(),
		Email:        email,
		PasswordHash: mustHashPW(t, pw),
		Role:         models.RoleDonor,
		IsActive:     true,
	}

	st.EXPECT().UserByIdentifier(gomock.Any(), email).Return(user, nil)
	st.EXPECT().TouchLastLogin(gomock.Any(), user.ID, gomock.Any()).Return(nil)
	st.EXPECT().SaveRefreshToken(gomock.Any(), gomock.Any()).Return(nil)

	got, tp, err := svc.LoginUser(ctx, "User@Example.com", pw)
	require.NoError(t, err)
	require.Equal(t, user.ID, got.ID)
	require.False(t, got.LastLoginAt.IsZero())
	require.NotEmpty(t, tp.AccessToken)
	require.NotEmpty(t, tp.RefreshToken)
}

func TestLoginUser_ByPhone_OK(t *testing.T) {
	t.Parallel()

	svc, st, ctrl := newSvc(t)
	defer ctrl.Finish()

	pw := "12345678"
	user := &models.User{
		ID:           uuid.New(),
		Phone:        "+79001234567",
		PasswordHash: mustHashPW(t, pw),
		Role:         models.RoleDonor,
		IsActive:     true,
	}

	// Телефон с разделителями нормализуется перед поиском.
	st.EXPECT().UserByIdentifier(gomock.Any(), "+79001234567").Return(user, nil)
	st.EXPECT().TouchLastLogin(gomock.Any(), user.ID, gomock.Any()).Return(nil)
	st.EXPECT().SaveRefreshToken(gomock.Any(), gomock.Any()).Return(nil)

	_, _, err := svc.LoginUser(context.Background(), "+7 900 123-45-67", pw)
	require.NoError(t, err)
}

func TestLoginUser_EmptyIdentifierOrPassword(t *testing.T) {
	t.Parallel()

	svc, _, ctrl := newSvc(t)
	defer ctrl.Finish()

	_, _, err := svc.LoginUser(context.Background(), "", "12345678")
	require.Error(t, err)
	require.ErrorIs(t, err, ErrInvalidCredentials)

	_, _, err = svc.LoginUser(context.Background(), "user@example.com", "")
	require.Error(t, err)
	require.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestLoginUser_UserNotFound_OrWrongPassword_SameError(t *testing.T) {
	t.Parallel()

	svc, st, ctrl := newSvc(t)
	defer ctrl.Finish()

	// Неизвестный идентификатор и неверный пароль неразличимы для клиента.
	st.EXPECT().UserByIdentifier(gomock.Any(), "user@example.com").
		Return(nil, storage.ErrNotFound)

	_, _, err := svc.LoginUser(context.Background(), "user@example.com", "12345678")
	require.Error(t, err)
	require.ErrorIs(t, err, ErrInvalidCredentials)

	user := &models.User{
		ID:           uuid.New(),
		Email:        "user@example.com",
		PasswordHash: mustHashPW(t, "12345678"),
		IsActive:     true,
	}
	st.EXPECT().UserByIdentifier(gomock.Any(), "user@example.com").
		Return(user, nil)

	_, _, err = svc.LoginUser(context.Background(), "user@example.com", "wrong-password")
	require.Error(t, err)
	require.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestLoginUser_DisabledAccount(t *testing.T) {
	t.Parallel()

	svc, st, ctrl := newSvc(t)
	defer ctrl.Finish()

	pw := "12345678"
	user := &models.User{
		ID:           uuid.New(),
		Email:        "user@example.com",
		PasswordHash: mustHashPW(t, pw),
		IsActive:     false,
	}

	st.EXPECT().UserByIdentifier(gomock.Any(), "user@example.com").Return(user, nil)

	_, _, err := svc.LoginUser(context.Background(), "user@example.com", pw)
	require.Error(t, err)
	require.ErrorIs(t, err, ErrAccountDisabled)
}

func TestLoginUser_StorageErrorOnLookup_Propagated(t *testing.T) {
	t.Parallel()

	svc, st, ctrl := newSvc(t)
	defer ctrl.Finish()

	st.EXPECT().UserByIdentifier(gomock.Any(), "user@example.com").
		Return(nil, errors.New("db problem"))

	_, _, err := svc.LoginUser(context.Background(), "user@example.com", "12345678")
	require.Error(t, err)
}

func TestRefreshTokens_OK_WithRotation(t *testing.T) {
	t.Parallel()

	svc, st, ctrl := newSvc(t)
	defer ctrl.Finish()

	ctx := context.Background()
	userID := uuid.New()
	user := &models.User{ID: userID, Email: "user@example.com", Role: models.RoleDonor, IsActive: true}

	plain := "some-refresh-plain"
	hash := hashPlain(plain)

	// Изъятие старого токена — потом выпуск нового.
	st.EXPECT().ConsumeRefreshToken(gomock.Any(), hash).Return(&models.RefreshToken{
		TokenHash: hash,
		UserID:    userID,
		CreatedAt: time.Now().Add(-time.Hour),
		ExpiresAt: time.Now().Add(time.Hour),
	}, nil)
	st.EXPECT().UserByID(gomock.Any(), userID).Return(user, nil)
	st.EXPECT().SaveRefreshToken(gomock.Any(), gomock.Any()).Return(nil)

	got, tp, err := svc.RefreshTokens(ctx, plain)
	require.NoError(t, err)
	require.Equal(t, userID, got.ID)
	require.NotEmpty(t, tp.AccessToken)
	require.NotEmpty(t, tp.RefreshToken)
	require.NotEqual(t, plain, tp.RefreshToken)
}

func TestRefreshTokens_Replay_MapsToInvalidToken(t *testing.T) {
	t.Parallel()

	svc, st, ctrl := newSvc(t)
	defer ctrl.Finish()

	plain := "r"
	hash := hashPlain(plain)

	// Повторное предъявление: запись уже изъята первой ротацией.
	st.EXPECT().ConsumeRefreshToken(gomock.Any(), hash).Return(nil, storage.ErrNotFound)

	_, _, err := svc.RefreshTokens(context.Background(), plain)
	require.Error(t, err)
	require.ErrorIs(t, err, ErrInvalidToken)
}

func TestRefreshTokens_Expired(t *testing.T) {
	t.Parallel()

	svc, st, ctrl := newSvc(t)
	defer ctrl.Finish()

	plain := "r"
	hash := hashPlain(plain)

	st.EXPECT().ConsumeRefreshToken(gomock.Any(), hash).Return(&models.RefreshToken{
		TokenHash: hash,
		UserID:    uuid.New(),
		CreatedAt: time.Now().Add(-2 * time.Hour),
		ExpiresAt: time.Now().Add(-time.Minute),
	}, nil)

	_, _, err := svc.RefreshTokens(context.Background(), plain)
	require.Error(t, err)
	require.ErrorIs(t, err, ErrTokenExpired)
}

func TestRefreshTokens_DisabledAccount(t *testing.T) {
	t.Parallel()

	svc, st, ctrl := newSvc(t)
	defer ctrl.Finish()

	plain := "r"
	hash := hashPlain(plain)
	userID := uuid.New()

	st.EXPECT().ConsumeRefreshToken(gomock.Any(), hash).Return(&models.RefreshToken{
		TokenHash: hash, UserID: userID,
		CreatedAt: time.Now().Add(-time.Hour), ExpiresAt: time.Now().Add(time.Hour),
	}, nil)
	st.EXPECT().UserByID(gomock.Any(), userID).
		Return(&models.User{ID: userID, Email: "u@e.com", IsActive: false}, nil)

	_, _, err := svc.RefreshTokens(context.Background(), plain)
	require.Error(t, err)
	require.ErrorIs(t, err, ErrAccountDisabled)
}

func TestRefreshTokens_StorageErrors_Propagated(t *testing.T) {
	t.Parallel()

	svc, st, ctrl := newSvc(t)
	defer ctrl.Finish()

	plain := "r"
	hash := hashPlain(plain)

	// Ошибка на изъятии токена.
	st.EXPECT().ConsumeRefreshToken(gomock.Any(), hash).Return(nil, errors.New("db get fail"))
	_, _, err := svc.RefreshTokens(context.Background(), plain)
	require.Error(t, err)

	// Токен валиден, но UserByID падает.
	userID := uuid.New()
	st.EXPECT().ConsumeRefreshToken(gomock.Any(), hash).Return(&models.RefreshToken{
		TokenHash: hash, UserID: userID,
		CreatedAt: time.Now().Add(-time.Hour), ExpiresAt: time.Now().Add(time.Hour),
	}, nil)
	st.EXPECT().UserByID(gomock.Any(), userID).Return(nil, errors.New("db user fail"))
	_, _, err = svc.RefreshTokens(context.Background(), plain)
	require.Error(t, err)

	// Пользователь токена удалён -> ErrInvalidToken.
	st.EXPECT().ConsumeRefreshToken(gomock.Any(), hash).Return(&models.RefreshToken{
		TokenHash: hash, UserID: userID,
		CreatedAt: time.Now().Add(-time.Hour), ExpiresAt: time.Now().Add(time.Hour),
	}, nil)
	st.EXPECT().UserByID(gomock.Any(), userID).Return(nil, storage.ErrNotFound)
	_, _, err = svc.RefreshTokens(context.Background(), plain)
	require.Error(t, err)
	require.ErrorIs(t, err, ErrInvalidToken)
}

func TestLogout_Idempotent(t *testing.T) {
	t.Parallel()

	svc, st, ctrl := newSvc(t)
	defer ctrl.Finish()

	userID := uuid.New()
	plain := "r"
	hash := hashPlain(plain)

	// Токен был и удалён.
	st.EXPECT().DeleteRefreshToken(gomock.Any(), hash, userID).Return(true, nil)
	require.NoError(t, svc.Logout(context.Background(), userID, plain))

	// Токена не было — всё равно успех.
	st.EXPECT().DeleteRefreshToken(gomock.Any(), hash, userID).Return(false, nil)
	require.NoError(t, svc.Logout(context.Background(), userID, plain))
}

func TestLogout_StorageError_Propagated(t *testing.T) {
	t.Parallel()

	svc, st, ctrl := newSvc(t)
	defer ctrl.Finish()

	userID := uuid.New()
	st.EXPECT().DeleteRefreshToken(gomock.Any(), gomock.Any(), userID).
		Return(false, errors.New("db down"))

	require.Error(t, svc.Logout(context.Background(), userID, "r"))
}

func TestProfileByID_OK_AndNotFound(t *testing.T) {
	t.Parallel()

	svc, st, ctrl := newSvc(t)
	defer ctrl.Finish()

	userID := uuid.New()
	user := &models.User{ID: userID, Email: "user@example.com", Role: models.RoleDonor, IsActive: true}

	st.EXPECT().UserByID(gomock.Any(), userID).Return(user, nil)
	got, err := svc.ProfileByID(context.Background(), userID)
	require.NoError(t, err)
	require.Equal(t, userID, got.ID)

	// Отсутствие субъекта — сбой авторизации, а не «не найдено».
	st.EXPECT().UserByID(gomock.Any(), userID).Return(nil, storage.ErrNotFound)
	_, err = svc.ProfileByID(context.Background(), userID)
	require.Error(t, err)
	require.ErrorIs(t, err, ErrInvalidToken)
}

func TestValidateAccess_OK(t *testing.T) {
	t.Parallel()

	svc, st, ctrl := newSvc(t)
	defer ctrl.Finish()

	ctx := context.Background()
	user := &models.User{ID: uuid.New(), Email: "user@example.com", Role: models.RoleDonor, IsActive: true}

	at, err := svc.generateAccessToken(ctx, user, time.Now().UTC())
	require.NoError(t, err)

	st.EXPECT().UserByID(gomock.Any(), user.ID).Return(user, nil)

	got, err := svc.ValidateAccess(ctx, at)
	require.NoError(t, err)
	require.Equal(t, user.ID, got.ID)
}

func TestValidateAccess_DeactivatedSubject(t *testing.T) {
	t.Parallel()

	svc, st, ctrl := newSvc(t)
	defer ctrl.Finish()

	ctx := context.Background()
	user := &models.User{ID: uuid.New(), Email: "user@example.com", Role: models.RoleDonor, IsActive: true}

	at, err := svc.generateAccessToken(ctx, user, time.Now().UTC())
	require.NoError(t, err)

	// Деактивация действует немедленно, токен ещё криптографически валиден.
	disabled := *user
	disabled.IsActive = false
	st.EXPECT().UserByID(gomock.Any(), user.ID).Return(&disabled, nil)

	_, err = svc.ValidateAccess(ctx, at)
	require.Error(t, err)
	require.ErrorIs(t, err, ErrInvalidToken)
}
