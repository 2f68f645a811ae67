package auth

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
)

// Store is the credential-store boundary. It is the single source of truth
// for user records; implementations must make UpdateRefreshToken and
// ClearRefreshToken atomic per record.
type Store interface {
	GetByID(ctx context.Context, id string) (User, error)
	GetByUsername(ctx context.Context, username string) (User, error)
	// FindByUsernameOrEmail returns any record matching either value.
	FindByUsernameOrEmail(ctx context.Context, username, email string) (User, error)
	Create(ctx context.Context, username, email, passwordHash string) (User, error)
	// UpdateRefreshToken overwrites the user's stored refresh token,
	// implicitly invalidating the previous one.
	UpdateRefreshToken(ctx context.Context, userID, token string) error
	// ListActiveRefreshTokens returns up to limit users that currently hold
	// a refresh token.
	ListActiveRefreshTokens(ctx context.Context, limit int) ([]StoredRefreshToken, error)
	// ClearRefreshToken nulls the user's refresh token only if it still
	// equals current, and reports whether a row was cleared.
	ClearRefreshToken(ctx context.Context, userID, current string) (bool, error)
}

// StoredRefreshToken pairs a user id with its currently stored refresh token.
type StoredRefreshToken struct {
	UserID string
	Token  string
}

const uniqueViolation = "23505"

type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

const userColumns = `id, username, email, password_hash, refresh_token, created_at, updated_at`

func (s *PostgresStore) GetByID(ctx context.Context, id string) (User, error) {
	return s.queryOne(ctx, `
		SELECT `+userColumns+`
		FROM users
		WHERE id = $1
	`, id)
}

func (s *PostgresStore) GetByUsername(ctx context.Context, username string) (User, error) {
	return s.queryOne(ctx, `
		SELECT `+userColumns+`
		FROM users
		WHERE username = $1
	`, username)
}

func (s *PostgresStore) FindByUsernameOrEmail(ctx context.Context, username, email string) (User, error) {
	return s.queryOne(ctx, `
		SELECT `+userColumns+`
		FROM users
		WHERE username = $1 OR email = $2
	`, username, email)
}

func (s *PostgresStore) queryOne(ctx context.Context, query string, args ...any) (User, error) {
	var user User
	var refreshToken sql.NullString
	err := s.db.QueryRowContext(ctx, query, args...).Scan(
		&user.ID, &user.Username, &user.Email, &user.PasswordHash,
		&refreshToken, &user.CreatedAt, &user.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return User{}, ErrNotFound
		}
		return User{}, fmt.Errorf("query user: %w", err)
	}
	if refreshToken.Valid {
		user.RefreshToken = &refreshToken.String
	}

	return user, nil
}

func (s *PostgresStore) Create(ctx context.Context, username, email, passwordHash string) (User, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return User{}, fmt.Errorf("generate user id: %w", err)
	}

	now := time.Now().UTC()
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO users (id, username, email, password_hash, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $5)
	`, id.String(), username, email, passwordHash, now)
	if err != nil {
		// A unique-index violation signals the same thing as the pre-insert
		// existence check: the identity is already taken.
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return User{}, ErrConflict
		}
		return User{}, fmt.Errorf("insert user: %w", err)
	}

	return User{
		ID:           id.String(),
		Username:     username,
		Email:        email,
		PasswordHash: passwordHash,
		CreatedAt:    now,
		UpdatedAt:    now,
	}, nil
}

func (s *PostgresStore) UpdateRefreshToken(ctx context.Context, userID, token string) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE users
		SET refresh_token = $2, updated_at = $3
		WHERE id = $1
	`, userID, token, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("update refresh token: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update refresh token rows affected: %w", err)
	}
	if affected == 0 {
		return ErrNotFound
	}

	return nil
}

func (s *PostgresStore) ListActiveRefreshTokens(ctx context.Context, limit int) ([]StoredRefreshToken, error) {
	if limit <= 0 {
		limit = 500
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, refresh_token
		FROM users
		WHERE refresh_token IS NOT NULL
		ORDER BY updated_at ASC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("list active refresh tokens: %w", err)
	}
	defer rows.Close()

	var tokens []StoredRefreshToken
	for rows.Next() {
		var entry StoredRefreshToken
		if err := rows.Scan(&entry.UserID, &entry.Token); err != nil {
			return nil, fmt.Errorf("scan refresh token row: %w", err)
		}
		tokens = append(tokens, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate refresh token rows: %w", err)
	}

	return tokens, nil
}

func (s *PostgresStore) ClearRefreshToken(ctx context.Context, userID, current string) (bool, error) {
	res, err := s.db.ExecContext(ctx, `
		UPDATE users
		SET refresh_token = NULL, updated_at = $3
		WHERE id = $1 AND refresh_token = $2
	`, userID, current, time.Now().UTC())
	if err != nil {
		return false, fmt.Errorf("clear refresh token: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("clear refresh token rows affected: %w", err)
	}

	return affected > 0, nil
}
