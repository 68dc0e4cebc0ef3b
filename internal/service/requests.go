package service

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/Teerdaveni2002/password-vault/internal/apperrs"
	"github.com/Teerdaveni2002/password-vault/internal/models"
)

// MinReasonLength is the shortest acceptable justification for an
// access request.
const MinReasonLength = 10

// RequestRepository defines the persistence operations required by the
// access-request service.
type RequestRepository interface {
	// CreateRequest inserts a new pending request.
	CreateRequest(ctx context.Context, req models.AccessRequest) error
	// GetRequestByID fetches a single request.
	GetRequestByID(ctx context.Context, id string) (models.AccessRequest, error)
	// ListRequests returns one page of requests visible to the viewer plus the total count.
	ListRequests(ctx context.Context, viewerID string, admin bool, status models.RequestStatus, limit, offset int) ([]models.AccessRequest, int, error)
	// DecideRequest transitions a pending request; returns false if it was not pending.
	DecideRequest(ctx context.Context, id string, status models.RequestStatus, reviewerID, notes string, reviewedAt time.Time, expiresAt *time.Time) (bool, error)
	// HasActiveApproval reports whether an unexpired approval exists.
	HasActiveApproval(ctx context.Context, secretID, requesterID string, now time.Time) (bool, error)
}

// RequestService implements the access-request approval state machine:
// create, list, and the pending → approved/rejected transitions.
type RequestService struct {
	repo           RequestRepository
	secrets        SecretRepository
	approvalWindow time.Duration
}

// NewRequestService constructs a RequestService. approvalWindow bounds
// how long an approval discloses the plaintext.
func NewRequestService(repo RequestRepository, secrets SecretRepository, approvalWindow time.Duration) *RequestService {
	return &RequestService{repo: repo, secrets: secrets, approvalWindow: approvalWindow}
}

// Create files a pending request by the given user for the given secret.
func (s *RequestService) Create(ctx context.Context, requester models.User, secretID, reason string) (models.AccessRequest, error) {
	if utf8.RuneCountInString(strings.TrimSpace(reason)) < MinReasonLength {
		return models.AccessRequest{}, apperrs.NewValidation(map[string]string{
			"reason": "must be at least 10 characters",
		})
	}
	if _, err := s.secrets.GetSecretByID(ctx, secretID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.AccessRequest{}, apperrs.ErrNotFound
		}
		return models.AccessRequest{}, err
	}

	req := models.AccessRequest{
		ID:          uuid.New().String(),
		SecretID:    secretID,
		RequesterID: requester.ID,
		Reason:      reason,
		Status:      models.StatusPending,
		CreatedAt:   nowUTC(),
	}
	if err := s.repo.CreateRequest(ctx, req); err != nil {
		return models.AccessRequest{}, err
	}
	return req, nil
}

// List returns one page of requests. Non-admins only see their own.
func (s *RequestService) List(ctx context.Context, viewer models.User, status models.RequestStatus, limit, offset int) ([]models.AccessRequest, int, error) {
	return s.repo.ListRequests(ctx, viewer.ID, viewer.IsReviewer(), status, limit, offset)
}

// Approve transitions a pending request to approved and opens its
// disclosure window. Only a reviewer may approve, and never their own
// request.
func (s *RequestService) Approve(ctx context.Context, reviewer models.User, requestID, notes string) (models.AccessRequest, error) {
	return s.decide(ctx, reviewer, requestID, notes, models.StatusApproved)
}

// Reject transitions a pending request to rejected. Same gating as Approve.
func (s *RequestService) Reject(ctx context.Context, reviewer models.User, requestID, notes string) (models.AccessRequest, error) {
	return s.decide(ctx, reviewer, requestID, notes, models.StatusRejected)
}

func (s *RequestService) decide(ctx context.Context, reviewer models.User, requestID, notes string, status models.RequestStatus) (models.AccessRequest, error) {
	if !reviewer.IsReviewer() {
		return models.AccessRequest{}, apperrs.ErrNotAuthorized
	}
	req, err := s.repo.GetRequestByID(ctx, requestID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.AccessRequest{}, apperrs.ErrNotFound
		}
		return models.AccessRequest{}, err
	}
	if req.RequesterID == reviewer.ID {
		return models.AccessRequest{}, apperrs.ErrNotAuthorized
	}

	now := nowUTC()
	var expiresAt *time.Time
	if status == models.StatusApproved {
		t := now.Add(s.approvalWindow)
		expiresAt = &t
	}
	// The repository only updates rows still pending, so a concurrent or
	// stale decision surfaces as a failed transition rather than a
	// silent overwrite of a terminal state.
	done, err := s.repo.DecideRequest(ctx, requestID, status, reviewer.ID, notes, now, expiresAt)
	if err != nil {
		return models.AccessRequest{}, err
	}
	if !done {
		return models.AccessRequest{}, apperrs.ErrInvalidTransition
	}
	return s.repo.GetRequestByID(ctx, requestID)
}
