package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/mail"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/dobro-platform/auth-service/internal/models"
	"github.com/dobro-platform/auth-service/internal/pkg/log"
	"github.com/dobro-platform/auth-service/internal/pkg/redact"
	"github.com/dobro-platform/auth-service/internal/storage"
)

// minPasswordLen — минимальная длина пароля при регистрации.
const minPasswordLen = 8

// dummyPasswordHash — валидный bcrypt-хэш для выравнивания времени ответа:
// при неизвестном идентификаторе всё равно выполняется одно сравнение bcrypt,
// чтобы по задержке нельзя было отличить «нет пользователя» от «не тот пароль».
const dummyPasswordHash = "$2a$10$N9qo8uLOickgx2ZMRZoMyeIjZAgcfl7p92ldGxad68LJZdL17lhWy"

// phonePattern — телефон в международной записи: необязательный «+» и 10-15 цифр.
var phonePattern = regexp.MustCompile(`^\+?[0-9]{10,15}$`)

// RegisterInput — входные данные регистрации.
type RegisterInput struct {
	Email    string
	Phone    string
	Name     string
	Password string
}

// RegisterUser регистрирует нового пользователя и выпускает пару токенов.
// Требуется хотя бы один идентификатор (e-mail или телефон); роль нового
// пользователя всегда DONOR, учётная запись активна.
//
// Предварительный поиск дубликата — оптимизация: авторитетная защита от гонки
// конкурентных регистраций — уникальные индексы БД, нарушение которых
// хранилище возвращает как storage.ErrAlreadyExists.
func (s *Service) RegisterUser(ctx context.Context, in RegisterInput) (*models.User, *models.TokenPair, error) {
	const op = "service.auth.RegisterUser"

	email, phone, err := validateIdentifiers(in.Email, in.Phone)
	if err != nil {
		return nil, nil, fmt.Errorf("%s: %w", op, err)
	}

	if len([]rune(in.Password)) < minPasswordLen {
		return nil, nil, fmt.Errorf("%s: %w", op, ErrWeakPassword)
	}

	_, err = s.storage.UserByEmailOrPhone(ctx, email, phone)
	if err == nil {
		return nil, nil, fmt.Errorf("%s: %w", op, ErrIdentifierTaken)
	}
	if !errors.Is(err, storage.ErrNotFound) {
		return nil, nil, fmt.Errorf("%s: %w", op, err)
	}

	hashedPassword, err := hashPassword(in.Password)
	if err != nil {
		return nil, nil, fmt.Errorf("%s: %w", op, err)
	}

	now := time.Now().UTC()
	user := &models.User{
		ID:           uuid.New(),
		Email:        email,
		Phone:        phone,
		Name:         strings.TrimSpace(in.Name),
		PasswordHash: hashedPassword,
		Role:         models.RoleDonor,
		IsActive:     true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := s.storage.SaveUser(ctx, user); err != nil {
		if errors.Is(err, storage.ErrAlreadyExists) {
			return nil, nil, fmt.Errorf("%s: %w", op, ErrIdentifierTaken)
		}

		return nil, nil, fmt.Errorf("%s: %w", op, err)
	}

	log.From(ctx).Info("user_registered",
		slog.String("op", op),
		slog.String("user_id", user.ID.String()),
		slog.String("email", redact.Email(user.Email)),
	)

	pair, err := s.issueTokenPair(ctx, user)
	if err != nil {
		return nil, nil, fmt.Errorf("%s: %w", op, err)
	}

	return user, pair, nil
}

// LoginUser выполняет вход по идентификатору (e-mail или телефон) и паролю.
// Ответ при неизвестном идентификаторе и при неверном пароле одинаков —
// и по сообщению, и по стоимости (см. dummyPasswordHash).
func (s *Service) LoginUser(ctx context.Context, identifier, password string) (*models.User, *models.TokenPair, error) {
	const op = "service.auth.LoginUser"

	identifier = normalizeIdentifier(identifier)
	if identifier == "" || password == "" {
		return nil, nil, fmt.Errorf("%s: %w", op, ErrInvalidCredentials)
	}

	user, err := s.storage.UserByIdentifier(ctx, identifier)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			// Выравнивание времени: одно bcrypt-сравнение, как на успешном пути.
			_ = bcrypt.CompareHashAndPassword([]byte(dummyPasswordHash), []byte(password))
			return nil, nil, fmt.Errorf("%s: %w", op, ErrInvalidCredentials)
		}

		return nil, nil, fmt.Errorf("%s: %w", op, err)
	}

	if !checkPassword(user.PasswordHash, password) {
		return nil, nil, fmt.Errorf("%s: %w", op, ErrInvalidCredentials)
	}

	if !user.IsActive {
		return nil, nil, fmt.Errorf("%s: %w", op, ErrAccountDisabled)
	}

	now := time.Now().UTC()
	if err := s.storage.TouchLastLogin(ctx, user.ID, now); err != nil {
		return nil, nil, fmt.Errorf("%s: %w", op, err)
	}
	user.LastLoginAt = now

	pair, err := s.issueTokenPair(ctx, user)
	if err != nil {
		return nil, nil, fmt.Errorf("%s: %w", op, err)
	}

	return user, pair, nil
}

// RefreshTokens обновляет пару токенов по refresh-токену (ротация).
// Предъявленный секрет атомарно изымается из хранилища; повторное предъявление
// (replay) и предъявление просроченного токена отклоняются.
func (s *Service) RefreshTokens(ctx context.Context, refreshToken string) (*models.User, *models.TokenPair, error) {
	const op = "service.auth.RefreshTokens"

	lg := log.From(ctx)
	hash := hashRefreshSecret(refreshToken)

	// Быстрый отказ по кэшу: уже отозванный токен не ходит в БД.
	if s.rcache != nil {
		if entry, ok, err := s.rcache.Get(ctx, hash); err == nil && ok && entry.Revoked {
			lg.Warn("refresh_rejected_by_cache", slog.String("op", op))
			return nil, nil, fmt.Errorf("%s: %w", op, ErrInvalidToken)
		}
	}

	token, err := s.storage.ConsumeRefreshToken(ctx, hash)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			lg.Warn("refresh_unknown_or_replayed", slog.String("op", op))
			return nil, nil, fmt.Errorf("%s: %w", op, ErrInvalidToken)
		}

		return nil, nil, fmt.Errorf("%s: %w", op, err)
	}

	s.markRevokedInCache(ctx, hash)

	if token.Expired(time.Now().UTC()) {
		// Запись уже удалена изъятием — ленивая очистка просроченных токенов.
		lg.Warn("refresh_expired",
			slog.String("op", op),
			slog.String("user_id", token.UserID.String()),
		)
		return nil, nil, fmt.Errorf("%s: %w", op, ErrTokenExpired)
	}

	user, err := s.storage.UserByID(ctx, token.UserID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, nil, fmt.Errorf("%s: %w", op, ErrInvalidToken)
		}

		return nil, nil, fmt.Errorf("%s: %w", op, err)
	}

	if !user.IsActive {
		return nil, nil, fmt.Errorf("%s: %w", op, ErrAccountDisabled)
	}

	pair, err := s.issueTokenPair(ctx, user)
	if err != nil {
		return nil, nil, fmt.Errorf("%s: %w", op, err)
	}

	return user, pair, nil
}

// Logout удаляет refresh-токен пользователя. Операция идемпотентна:
// отсутствие записи — тоже успех, чтобы не раскрывать, существовал ли токен.
func (s *Service) Logout(ctx context.Context, userID uuid.UUID, refreshToken string) error {
	const op = "service.auth.Logout"

	hash := hashRefreshSecret(refreshToken)

	deleted, err := s.storage.DeleteRefreshToken(ctx, hash, userID)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	s.markRevokedInCache(ctx, hash)

	log.From(ctx).Info("user_logged_out",
		slog.String("op", op),
		slog.String("user_id", userID.String()),
		slog.Bool("token_deleted", deleted),
	)

	return nil
}

// ProfileByID возвращает пользователя по ID.
// Отсутствие записи трактуется как сбой авторизации (ErrInvalidToken), а не
// как «не найдено»: слой не различает «нет такого» и «не ваш».
func (s *Service) ProfileByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	const op = "service.auth.ProfileByID"

	user, err := s.storage.UserByID(ctx, id)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, fmt.Errorf("%s: %w", op, ErrInvalidToken)
		}

		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return user, nil
}

// ValidateAccess проверяет access-токен и возвращает его активного субъекта.
// Подпись/срок проверяются криптографически, затем субъект перечитывается из
// хранилища: деактивация учётной записи действует немедленно, не дожидаясь
// истечения токена.
func (s *Service) ValidateAccess(ctx context.Context, accessToken string) (*models.User, error) {
	const op = "service.auth.ValidateAccess"

	uid, err := s.validateAccessToken(accessToken)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	user, err := s.storage.UserByID(ctx, uid)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, fmt.Errorf("%s: %w", op, ErrInvalidToken)
		}

		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if !user.IsActive {
		return nil, fmt.Errorf("%s: %w", op, ErrInvalidToken)
	}

	return user, nil
}

// markRevokedInCache — best-effort пометка токена в кэше; ошибки кэша не
// влияют на исход операции.
func (s *Service) markRevokedInCache(ctx context.Context, hash string) {
	if s.rcache == nil {
		return
	}

	if err := s.rcache.MarkRevoked(ctx, hash); err != nil {
		log.From(ctx).Warn("refresh_cache_mark_revoked_failed",
			slog.String("err", err.Error()),
		)
	}
}

// hashPassword хэширует пароль с помощью bcrypt (фиксированный cost).
func hashPassword(password string) (string, error) {
	const op = "service.auth.hashPassword"

	bytes, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}

	return string(bytes), nil
}

// checkPassword сравнивает пароль с хэшем.
func checkPassword(hash, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

// validateIdentifiers нормализует и проверяет идентификаторы регистрации.
// Возвращает нормализованные e-mail и телефон; хотя бы один обязателен.
func validateIdentifiers(email, phone string) (string, string, error) {
	email = strings.TrimSpace(email)
	phone = normalizePhone(phone)

	if email == "" && phone == "" {
		return "", "", ErrMissingIdentifier
	}

	if email != "" {
		if _, err := mail.ParseAddress(email); err != nil {
			return "", "", ErrInvalidEmail
		}
		email = strings.ToLower(email)
	}

	if phone != "" && !phonePattern.MatchString(phone) {
		return "", "", ErrInvalidPhone
	}

	return email, phone, nil
}

// normalizeIdentifier приводит идентификатор входа к виду, в котором он хранится:
// e-mail — к нижнему регистру, телефон — без разделителей.
func normalizeIdentifier(identifier string) string {
	identifier = strings.TrimSpace(identifier)
	if strings.Contains(identifier, "@") {
		return strings.ToLower(identifier)
	}

	return normalizePhone(identifier)
}

// normalizePhone убирает пробелы и типографские разделители номера.
func normalizePhone(phone string) string {
	return strings.Map(func(r rune) rune {
		switch r {
		case ' ', '-', '(', ')':
			return -1
		}
		return r
	}, strings.TrimSpace(phone))
}
