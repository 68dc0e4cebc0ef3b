// Package repository provides the PostgreSQL persistence layer for the
// vault services.
package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/Teerdaveni2002/password-vault/internal/models"
)

// ErrNoRows is returned by lookups that found nothing; callers translate
// it into the domain taxonomy.
var ErrNoRows = sql.ErrNoRows

// PostgresUserRepository implements user persistence against PostgreSQL.
type PostgresUserRepository struct {
	// DB is the database handle for executing queries.
	DB *sql.DB
}

// NewPostgresUserRepository creates a PostgresUserRepository with the
// given database connection.
func NewPostgresUserRepository(db *sql.DB) *PostgresUserRepository {
	return &PostgresUserRepository{DB: db}
}

// CreateUser inserts a new user row with its bcrypt password hash.
func (r *PostgresUserRepository) CreateUser(ctx context.Context, u models.User, passwordHash []byte) error {
	_, err := r.DB.ExecContext(
		ctx,
		`INSERT INTO users (id, username, email, password_hash, role, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		u.ID, u.Username, u.Email, passwordHash, u.Role, u.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("create user: %w", err)
	}
	return nil
}

// UserExists returns true if a user with the given username or email exists.
func (r *PostgresUserRepository) UserExists(ctx context.Context, username, email string) (bool, error) {
	var exists bool
	err := r.DB.QueryRowContext(
		ctx,
		`SELECT EXISTS(SELECT 1 FROM users WHERE username = $1 OR email = $2)`,
		username, email,
	).Scan(&exists)
	return exists, err
}

// GetByUsername fetches a user and its password hash for login checks.
func (r *PostgresUserRepository) GetByUsername(ctx context.Context, username string) (models.User, []byte, error) {
	var u models.User
	var hash []byte
	err := r.DB.QueryRowContext(
		ctx,
		`SELECT id, username, email, password_hash, role, created_at FROM users WHERE username = $1`,
		username,
	).Scan(&u.ID, &u.Username, &u.Email, &hash, &u.Role, &u.CreatedAt)
	if err != nil {
		return models.User{}, nil, fmt.Errorf("get user by username: %w", err)
	}
	return u, hash, nil
}

// GetByID fetches a user by its identifier.
func (r *PostgresUserRepository) GetByID(ctx context.Context, id string) (models.User, error) {
	var u models.User
	err := r.DB.QueryRowContext(
		ctx,
		`SELECT id, username, email, role, created_at FROM users WHERE id = $1`,
		id,
	).Scan(&u.ID, &u.Username, &u.Email, &u.Role, &u.CreatedAt)
	if err != nil {
		return models.User{}, fmt.Errorf("get user by id: %w", err)
	}
	return u, nil
}

// CountUsers returns the total number of registered users.
func (r *PostgresUserRepository) CountUsers(ctx context.Context) (int, error) {
	var n int
	err := r.DB.QueryRowContext(ctx, `SELECT COUNT(*) FROM users`).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count users: %w", err)
	}
	return n, nil
}

// StoreRefreshToken persists the fingerprint of an issued refresh token.
func (r *PostgresUserRepository) StoreRefreshToken(ctx context.Context, id, userID, tokenHash string, expiresAt time.Time) error {
	_, err := r.DB.ExecContext(
		ctx,
		`INSERT INTO refresh_tokens (id, user_id, token_hash, expires_at) VALUES ($1, $2, $3, $4)`,
		id, userID, tokenHash, expiresAt,
	)
	if err != nil {
		return fmt.Errorf("store refresh token: %w", err)
	}
	return nil
}

// LookupRefreshToken returns the owning user for a usable (unrevoked,
// unexpired) refresh token fingerprint.
func (r *PostgresUserRepository) LookupRefreshToken(ctx context.Context, tokenHash string) (string, error) {
	var userID string
	err := r.DB.QueryRowContext(
		ctx,
		`SELECT user_id FROM refresh_tokens
		  WHERE token_hash = $1 AND revoked = false AND expires_at > now()`,
		tokenHash,
	).Scan(&userID)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrNoRows
	}
	if err != nil {
		return "", fmt.Errorf("lookup refresh token: %w", err)
	}
	return userID, nil
}

// RevokeRefreshToken marks a refresh token unusable. Revoking a token
// that does not exist is not an error.
func (r *PostgresUserRepository) RevokeRefreshToken(ctx context.Context, tokenHash string) error {
	_, err := r.DB.ExecContext(
		ctx,
		`UPDATE refresh_tokens SET revoked = true WHERE token_hash = $1`,
		tokenHash,
	)
	if err != nil {
		return fmt.Errorf("revoke refresh token: %w", err)
	}
	return nil
}
