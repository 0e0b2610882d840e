package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/dobro-platform/auth-service/internal/models"
	"github.com/dobro-platform/auth-service/internal/storage"
)

const userColumns = `id, email, phone, name, password_hash, role, is_active, last_login_at, created_at, updated_at`

// SaveUser создаёт нового пользователя в БД.
// Пустые e-mail/телефон записываются как NULL, чтобы не конфликтовать
// с частичными уникальными индексами.
func (s *Storage) SaveUser(ctx context.Context, user *models.User) error {
	const op = "storage.postgres.SaveUser"

	query := `
		INSERT INTO users(id, email, phone, name, password_hash, role, is_active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`

	_, err := s.db.Exec(ctx, query,
		user.ID,
		nullIfEmpty(user.Email),
		nullIfEmpty(user.Phone),
		user.Name,
		user.PasswordHash,
		string(user.Role),
		user.IsActive,
		user.CreatedAt,
		user.UpdatedAt,
	)

	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
			return fmt.Errorf("%s: %w", op, storage.ErrAlreadyExists)
		}

		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

// UserByIdentifier находит пользователя, чей e-mail ИЛИ телефон равен identifier.
func (s *Storage) UserByIdentifier(ctx context.Context, identifier string) (*models.User, error) {
	const op = "storage.postgres.UserByIdentifier"

	query := `
		SELECT ` + userColumns + `
		FROM users
		WHERE email = $1 OR phone = $1
	`

	user, err := scanUser(s.db.QueryRow(ctx, query, identifier))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%s: %w", op, storage.ErrNotFound)
		}

		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return user, nil
}

// UserByEmailOrPhone находит пользователя по e-mail или телефону.
// Пустые аргументы в поиске не участвуют (NULL не совпадает ни с чем).
func (s *Storage) UserByEmailOrPhone(ctx context.Context, email, phone string) (*models.User, error) {
	const op = "storage.postgres.UserByEmailOrPhone"

	query := `
		SELECT ` + userColumns + `
		FROM users
		WHERE ($1::citext IS NOT NULL AND email = $1)
		   OR ($2::text   IS NOT NULL AND phone = $2)
		LIMIT 1
	`

	user, err := scanUser(s.db.QueryRow(ctx, query, nullIfEmpty(email), nullIfEmpty(phone)))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%s: %w", op, storage.ErrNotFound)
		}

		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return user, nil
}

// UserByID находит пользователя по ID.
func (s *Storage) UserByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	const op = "storage.postgres.UserByID"

	query := `
		SELECT ` + userColumns + `
		FROM users
		WHERE id = $1
	`

	user, err := scanUser(s.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%s: %w", op, storage.ErrNotFound)
		}

		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return user, nil
}

// TouchLastLogin выставляет last_login_at (и updated_at) на момент входа.
func (s *Storage) TouchLastLogin(ctx context.Context, id uuid.UUID, at time.Time) error {
	const op = "storage.postgres.TouchLastLogin"

	query := `
		UPDATE users
		SET last_login_at = $2, updated_at = $2
		WHERE id = $1
	`

	cmdTag, err := s.db.Exec(ctx, query, id, at)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	if cmdTag.RowsAffected() == 0 {
		return fmt.Errorf("%s: %w", op, storage.ErrNotFound)
	}

	return nil
}

// scanUser читает строку users с учётом NULL-колонок.
func scanUser(row pgx.Row) (*models.User, error) {
	var (
		user        models.User
		email       *string
		phone       *string
		role        string
		lastLoginAt *time.Time
	)

	err := row.Scan(
		&user.ID,
		&email,
		&phone,
		&user.Name,
		&user.PasswordHash,
		&role,
		&user.IsActive,
		&lastLoginAt,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if email != nil {
		user.Email = *email
	}
	if phone != nil {
		user.Phone = *phone
	}
	if lastLoginAt != nil {
		user.LastLoginAt = *lastLoginAt
	}
	user.Role = models.Role(role)

	return &user, nil
}

// nullIfEmpty превращает пустую строку в NULL для записи/поиска.
func nullIfEmpty(s string) *string {
	if s == "" {
		return nil
	}

	return &s
}
