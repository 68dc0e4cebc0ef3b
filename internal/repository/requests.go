package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/Teerdaveni2002/password-vault/internal/models"
)

// PostgresRequestRepository implements access-request persistence against
// PostgreSQL. Requests are insert-and-update only; nothing here deletes,
// the table is the audit trail.
type PostgresRequestRepository struct {
	// DB is the database handle for executing queries and transactions.
	DB *sql.DB
}

// NewPostgresRequestRepository creates a PostgresRequestRepository using
// the provided *sql.DB.
func NewPostgresRequestRepository(db *sql.DB) *PostgresRequestRepository {
	return &PostgresRequestRepository{DB: db}
}

const requestColumns = `id, secret_id, requester_id, reason, status, reviewer_id, admin_notes, created_at, reviewed_at, expires_at`

func scanRequest(row interface{ Scan(...any) error }) (models.AccessRequest, error) {
	var (
		req        models.AccessRequest
		reviewerID sql.NullString
		reviewedAt sql.NullTime
		expiresAt  sql.NullTime
	)
	err := row.Scan(&req.ID, &req.SecretID, &req.RequesterID, &req.Reason, &req.Status,
		&reviewerID, &req.AdminNotes, &req.CreatedAt, &reviewedAt, &expiresAt)
	if err != nil {
		return models.AccessRequest{}, err
	}
	req.ReviewerID = reviewerID.String
	if reviewedAt.Valid {
		t := reviewedAt.Time
		req.ReviewedAt = &t
	}
	if expiresAt.Valid {
		t := expiresAt.Time
		req.ExpiresAt = &t
	}
	return req, nil
}

// CreateRequest inserts a new pending access request.
func (r *PostgresRequestRepository) CreateRequest(ctx context.Context, req models.AccessRequest) error {
	_, err := r.DB.ExecContext(ctx, `
		INSERT INTO access_requests (id, secret_id, requester_id, reason, status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, req.ID, req.SecretID, req.RequesterID, req.Reason, req.Status, req.CreatedAt)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	return nil
}

// GetRequestByID fetches a single access request.
func (r *PostgresRequestRepository) GetRequestByID(ctx context.Context, id string) (models.AccessRequest, error) {
	row := r.DB.QueryRowContext(ctx, `
		SELECT `+requestColumns+` FROM access_requests WHERE id = $1
	`, id)
	req, err := scanRequest(row)
	if err != nil {
		return models.AccessRequest{}, fmt.Errorf("get request by id: %w", err)
	}
	return req, nil
}

// ListRequests returns one page of access requests. A non-admin viewer
// only sees their own; an empty status means all statuses.
func (r *PostgresRequestRepository) ListRequests(ctx context.Context, viewerID string, admin bool, status models.RequestStatus, limit, offset int) ([]models.AccessRequest, int, error) {
	const where = `($2 OR requester_id = $1) AND ($3 = '' OR status = $3)`
	args := []any{viewerID, admin, string(status)}

	var count int
	err := r.DB.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM access_requests WHERE `+where+`
	`, args...).Scan(&count)
	if err != nil {
		return nil, 0, fmt.Errorf("count requests: %w", err)
	}

	rows, err := r.DB.QueryContext(ctx, `
		SELECT `+requestColumns+` FROM access_requests
		 WHERE `+where+`
		 ORDER BY created_at DESC
		 LIMIT $4 OFFSET $5
	`, append(args, limit, offset)...)
	if err != nil {
		return nil, 0, fmt.Errorf("list requests: %w", err)
	}
	defer rows.Close()

	var requests []models.AccessRequest
	for rows.Next() {
		req, err := scanRequest(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scan: %w", err)
		}
		requests = append(requests, req)
	}
	return requests, count, rows.Err()
}

// DecideRequest transitions a pending request to a terminal status. The
// WHERE clause enforces the one-directional state machine: a request that
// already left pending is not touched, and false is returned so the
// service can reject the transition.
func (r *PostgresRequestRepository) DecideRequest(ctx context.Context, id string, status models.RequestStatus, reviewerID, notes string, reviewedAt time.Time, expiresAt *time.Time) (bool, error) {
	res, err := r.DB.ExecContext(ctx, `
		UPDATE access_requests
		   SET status = $2, reviewer_id = $3, admin_notes = $4, reviewed_at = $5, expires_at = $6
		 WHERE id = $1 AND status = 'pending'
	`, id, status, reviewerID, notes, reviewedAt, expiresAt)
	if err != nil {
		return false, fmt.Errorf("decide request: %w", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("decide request rows: %w", err)
	}
	return rows == 1, nil
}

// HasActiveApproval reports whether the requester holds an approved,
// unexpired request for the secret.
func (r *PostgresRequestRepository) HasActiveApproval(ctx context.Context, secretID, requesterID string, now time.Time) (bool, error) {
	var exists bool
	err := r.DB.QueryRowContext(ctx, `
		SELECT EXISTS(
			SELECT 1 FROM access_requests
			 WHERE secret_id = $1 AND requester_id = $2
			   AND status = 'approved'
			   AND (expires_at IS NULL OR expires_at > $3)
		)
	`, secretID, requesterID, now).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("has active approval: %w", err)
	}
	return exists, nil
}
