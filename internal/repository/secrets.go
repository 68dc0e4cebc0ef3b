package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/Teerdaveni2002/password-vault/internal/models"
)

// PostgresSecretRepository implements secret persistence against PostgreSQL.
type PostgresSecretRepository struct {
	// DB is the database handle for executing queries and transactions.
	DB *sql.DB
}

// NewPostgresSecretRepository creates a PostgresSecretRepository using
// the provided *sql.DB.
func NewPostgresSecretRepository(db *sql.DB) *PostgresSecretRepository {
	return &PostgresSecretRepository{DB: db}
}

const secretColumns = `id, owner_id, title, username, url, notes, category, is_shared, created_at, updated_at`

func scanSecret(row interface{ Scan(...any) error }) (models.Secret, error) {
	var s models.Secret
	err := row.Scan(&s.ID, &s.OwnerID, &s.Title, &s.Username, &s.URL, &s.Notes,
		&s.Category, &s.IsShared, &s.CreatedAt, &s.UpdatedAt)
	return s, err
}

// CreateSecret inserts a new secret row with its encrypted password.
func (r *PostgresSecretRepository) CreateSecret(ctx context.Context, s models.Secret, encrypted []byte) error {
	_, err := r.DB.ExecContext(ctx, `
		INSERT INTO secrets (id, owner_id, title, username, encrypted_password, url, notes, category, is_shared, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`, s.ID, s.OwnerID, s.Title, s.Username, encrypted, s.URL, s.Notes, s.Category, s.IsShared, s.CreatedAt, s.UpdatedAt)
	if err != nil {
		return fmt.Errorf("create secret: %w", err)
	}
	return nil
}

// GetSecretByID fetches a single secret's metadata.
func (r *PostgresSecretRepository) GetSecretByID(ctx context.Context, id string) (models.Secret, error) {
	row := r.DB.QueryRowContext(ctx, `
		SELECT `+secretColumns+` FROM secrets WHERE id = $1
	`, id)
	s, err := scanSecret(row)
	if err != nil {
		return models.Secret{}, fmt.Errorf("get secret by id: %w", err)
	}
	return s, nil
}

// ListSecrets returns one page of secrets visible to the given user:
// their own, shared ones, or everything for admins. search filters by
// title substring. Returns the page plus the total count for the filter.
func (r *PostgresSecretRepository) ListSecrets(ctx context.Context, viewerID string, admin bool, search string, limit, offset int) ([]models.Secret, int, error) {
	const where = `($2 OR owner_id = $1 OR is_shared = true) AND title ILIKE $3`
	args := []any{viewerID, admin, "%" + search + "%"}

	var count int
	err := r.DB.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM secrets WHERE `+where+`
	`, args...).Scan(&count)
	if err != nil {
		return nil, 0, fmt.Errorf("count secrets: %w", err)
	}

	rows, err := r.DB.QueryContext(ctx, `
		SELECT `+secretColumns+` FROM secrets
		 WHERE `+where+`
		 ORDER BY created_at DESC
		 LIMIT $4 OFFSET $5
	`, append(args, limit, offset)...)
	if err != nil {
		return nil, 0, fmt.Errorf("list secrets: %w", err)
	}
	defer rows.Close()

	var secrets []models.Secret
	for rows.Next() {
		s, err := scanSecret(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scan: %w", err)
		}
		secrets = append(secrets, s)
	}
	return secrets, count, rows.Err()
}

// UpdateSecret overwrites the metadata of a secret, and the encrypted
// password too when encrypted is non-nil.
func (r *PostgresSecretRepository) UpdateSecret(ctx context.Context, s models.Secret, encrypted []byte) error {
	var err error
	if encrypted != nil {
		_, err = r.DB.ExecContext(ctx, `
			UPDATE secrets SET title = $2, username = $3, url = $4, notes = $5,
			       category = $6, encrypted_password = $7, updated_at = $8
			 WHERE id = $1
		`, s.ID, s.Title, s.Username, s.URL, s.Notes, s.Category, encrypted, s.UpdatedAt)
	} else {
		_, err = r.DB.ExecContext(ctx, `
			UPDATE secrets SET title = $2, username = $3, url = $4, notes = $5,
			       category = $6, updated_at = $7
			 WHERE id = $1
		`, s.ID, s.Title, s.Username, s.URL, s.Notes, s.Category, s.UpdatedAt)
	}
	if err != nil {
		return fmt.Errorf("update secret: %w", err)
	}
	return nil
}

// DeleteSecret removes a secret row.
func (r *PostgresSecretRepository) DeleteSecret(ctx context.Context, id string) error {
	_, err := r.DB.ExecContext(ctx, `DELETE FROM secrets WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete secret: %w", err)
	}
	return nil
}

// MarkShared flips the shared flag of a secret.
func (r *PostgresSecretRepository) MarkShared(ctx context.Context, id string, shared bool) error {
	_, err := r.DB.ExecContext(ctx, `UPDATE secrets SET is_shared = $2, updated_at = now() WHERE id = $1`, id, shared)
	if err != nil {
		return fmt.Errorf("mark shared: %w", err)
	}
	return nil
}

// GetEncryptedPassword fetches the at-rest ciphertext of a secret.
func (r *PostgresSecretRepository) GetEncryptedPassword(ctx context.Context, id string) ([]byte, error) {
	var encrypted []byte
	err := r.DB.QueryRowContext(ctx, `SELECT encrypted_password FROM secrets WHERE id = $1`, id).Scan(&encrypted)
	if err != nil {
		return nil, fmt.Errorf("get encrypted password: %w", err)
	}
	return encrypted, nil
}
