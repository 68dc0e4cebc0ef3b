package service

import (
	"context"
	"crypto/cipher"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/Teerdaveni2002/password-vault/internal/apperrs"
	"github.com/Teerdaveni2002/password-vault/internal/models"
)

// SecretRepository defines the persistence operations required by the
// vault service.
type SecretRepository interface {
	// CreateSecret inserts a secret with its encrypted password.
	CreateSecret(ctx context.Context, s models.Secret, encrypted []byte) error
	// GetSecretByID fetches a secret's metadata.
	GetSecretByID(ctx context.Context, id string) (models.Secret, error)
	// ListSecrets returns one page of secrets visible to the viewer plus the total count.
	ListSecrets(ctx context.Context, viewerID string, admin bool, search string, limit, offset int) ([]models.Secret, int, error)
	// UpdateSecret overwrites metadata and, when encrypted is non-nil, the ciphertext.
	UpdateSecret(ctx context.Context, s models.Secret, encrypted []byte) error
	// DeleteSecret removes a secret.
	DeleteSecret(ctx context.Context, id string) error
	// MarkShared flips the shared flag.
	MarkShared(ctx context.Context, id string, shared bool) error
	// GetEncryptedPassword fetches the at-rest ciphertext.
	GetEncryptedPassword(ctx context.Context, id string) ([]byte, error)
}

// ApprovalChecker reports whether a user holds an active approval for a
// secret. Implemented by the request repository.
type ApprovalChecker interface {
	HasActiveApproval(ctx context.Context, secretID, requesterID string, now time.Time) (bool, error)
}

// VaultService implements secret CRUD, sharing and the gated plaintext view.
type VaultService struct {
	repo      SecretRepository
	approvals ApprovalChecker
	aead      cipher.AEAD
}

// NewVaultService constructs a VaultService. aead encrypts plaintexts at
// rest; approvals gates plaintext disclosure to non-owners.
func NewVaultService(repo SecretRepository, approvals ApprovalChecker, aead cipher.AEAD) *VaultService {
	return &VaultService{repo: repo, approvals: approvals, aead: aead}
}

// Create stores a new secret owned by the caller.
func (s *VaultService) Create(ctx context.Context, owner models.User, in models.SecretInput) (models.Secret, error) {
	if fields := validateSecretInput(in, true); len(fields) > 0 {
		return models.Secret{}, apperrs.NewValidation(fields)
	}
	encrypted, err := seal(s.aead, in.Password)
	if err != nil {
		return models.Secret{}, err
	}
	now := nowUTC()
	sec := models.Secret{
		ID:        uuid.New().String(),
		Title:     in.Title,
		Username:  in.Username,
		URL:       in.URL,
		Notes:     in.Notes,
		Category:  in.Category,
		OwnerID:   owner.ID,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.repo.CreateSecret(ctx, sec, encrypted); err != nil {
		return models.Secret{}, err
	}
	return sec, nil
}

// Get returns a secret's metadata if the viewer may see it.
func (s *VaultService) Get(ctx context.Context, viewer models.User, id string) (models.Secret, error) {
	sec, err := s.fetch(ctx, id)
	if err != nil {
		return models.Secret{}, err
	}
	if !canSee(viewer, sec) {
		return models.Secret{}, apperrs.ErrNotAuthorized
	}
	return sec, nil
}

// List returns one page of secrets visible to the viewer.
func (s *VaultService) List(ctx context.Context, viewer models.User, search string, limit, offset int) ([]models.Secret, int, error) {
	return s.repo.ListSecrets(ctx, viewer.ID, viewer.IsReviewer(), search, limit, offset)
}

// Update overwrites a secret's metadata, and its password when the input
// carries one. Only the owner or an admin may update.
func (s *VaultService) Update(ctx context.Context, viewer models.User, id string, in models.SecretInput) (models.Secret, error) {
	sec, err := s.fetch(ctx, id)
	if err != nil {
		return models.Secret{}, err
	}
	if !canManage(viewer, sec) {
		return models.Secret{}, apperrs.ErrNotAuthorized
	}
	if fields := validateSecretInput(in, false); len(fields) > 0 {
		return models.Secret{}, apperrs.NewValidation(fields)
	}

	var encrypted []byte
	if in.Password != "" {
		if encrypted, err = seal(s.aead, in.Password); err != nil {
			return models.Secret{}, err
		}
	}
	sec.Title = in.Title
	sec.Username = in.Username
	sec.URL = in.URL
	sec.Notes = in.Notes
	sec.Category = in.Category
	sec.UpdatedAt = nowUTC()
	if err := s.repo.UpdateSecret(ctx, sec, encrypted); err != nil {
		return models.Secret{}, err
	}
	return sec, nil
}

// Delete removes a secret. Only the owner or an admin may delete.
func (s *VaultService) Delete(ctx context.Context, viewer models.User, id string) error {
	sec, err := s.fetch(ctx, id)
	if err != nil {
		return err
	}
	if !canManage(viewer, sec) {
		return apperrs.ErrNotAuthorized
	}
	return s.repo.DeleteSecret(ctx, id)
}

// Share marks a secret visible to other vault users.
func (s *VaultService) Share(ctx context.Context, viewer models.User, id string) (models.Secret, error) {
	sec, err := s.fetch(ctx, id)
	if err != nil {
		return models.Secret{}, err
	}
	if !canManage(viewer, sec) {
		return models.Secret{}, apperrs.ErrNotAuthorized
	}
	if err := s.repo.MarkShared(ctx, id, true); err != nil {
		return models.Secret{}, err
	}
	sec.IsShared = true
	return sec, nil
}

// View discloses a secret's plaintext. Owners and admins always may;
// anyone else needs an approved, unexpired access request, otherwise
// ErrPlaintextUnavailable.
func (s *VaultService) View(ctx context.Context, viewer models.User, id string) (models.PlainSecret, error) {
	sec, err := s.fetch(ctx, id)
	if err != nil {
		return models.PlainSecret{}, err
	}
	if !canManage(viewer, sec) {
		granted, err := s.approvals.HasActiveApproval(ctx, id, viewer.ID, nowUTC())
		if err != nil {
			return models.PlainSecret{}, err
		}
		if !granted {
			return models.PlainSecret{}, apperrs.ErrPlaintextUnavailable
		}
	}
	encrypted, err := s.repo.GetEncryptedPassword(ctx, id)
	if err != nil {
		return models.PlainSecret{}, err
	}
	plain, err := open(s.aead, encrypted)
	if err != nil {
		return models.PlainSecret{}, fmt.Errorf("decrypt secret %s: %w", id, err)
	}
	return models.PlainSecret{Password: plain}, nil
}

func (s *VaultService) fetch(ctx context.Context, id string) (models.Secret, error) {
	sec, err := s.repo.GetSecretByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.Secret{}, apperrs.ErrNotFound
		}
		return models.Secret{}, err
	}
	return sec, nil
}

func canSee(viewer models.User, sec models.Secret) bool {
	return canManage(viewer, sec) || sec.IsShared
}

func canManage(viewer models.User, sec models.Secret) bool {
	return viewer.IsReviewer() || viewer.ID == sec.OwnerID
}

func validateSecretInput(in models.SecretInput, requirePassword bool) map[string]string {
	fields := map[string]string{}
	if in.Title == "" {
		fields["title"] = "must not be empty"
	}
	if in.Username == "" {
		fields["username"] = "must not be empty"
	}
	if requirePassword && in.Password == "" {
		fields["password"] = "must not be empty"
	}
	return fields
}

func nowUTC() time.Time {
	return time.Now().UTC()
}
