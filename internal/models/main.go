// Package models defines the core data structures shared between the
// vault server and the API client: users, secret records, access requests,
// and the token pair returned by the auth endpoints.
package models

import "time"

// Role identifies the privilege level of a user.
type Role string

const (
	// RoleAdmin may review access requests and see every secret.
	RoleAdmin Role = "admin"
	// RoleUser is a regular vault user.
	RoleUser Role = "user"
)

// User represents an application user as exposed over the wire.
type User struct {
	// ID is the unique identifier for the user.
	ID string `json:"id"`
	// Username is the login name chosen by the user.
	Username string `json:"username"`
	// Email is the user's email address.
	Email string `json:"email,omitempty"`
	// Role is either "admin" or "user".
	Role Role `json:"role"`
	// CreatedAt is when the account was registered.
	CreatedAt time.Time `json:"createdAt"`
}

// IsReviewer reports whether the user may approve or reject access requests.
func (u User) IsReviewer() bool {
	return u.Role == RoleAdmin
}

// TokenPair holds the bearer credentials returned by login, register
// and refresh. Both tokens are opaque strings to the client.
type TokenPair struct {
	// Access is the short-lived token attached to every authenticated call.
	Access string `json:"access"`
	// Refresh is the longer-lived token used only to mint a new access token.
	Refresh string `json:"refresh"`
}

// AuthResponse is the body returned by POST /auth/login and /auth/register.
type AuthResponse struct {
	Access  string `json:"access"`
	Refresh string `json:"refresh"`
	User    User   `json:"user"`
}

// Secret is a stored credential record. The plaintext password is never
// part of this structure; it is disclosed only through the gated
// GET /passwords/{id}/view operation.
type Secret struct {
	// ID is the unique identifier for the secret.
	ID string `json:"id"`
	// Title names the site or application the credential belongs to.
	Title string `json:"title"`
	// Username is the account name stored alongside the password.
	Username string `json:"username"`
	// URL optionally points at the login page.
	URL string `json:"url,omitempty"`
	// Notes holds free-form user notes.
	Notes string `json:"notes,omitempty"`
	// Category is an optional user-defined grouping.
	Category string `json:"category,omitempty"`
	// OwnerID identifies the user who created the secret.
	OwnerID string `json:"ownerId"`
	// IsShared marks the secret as visible to other vault users.
	IsShared bool `json:"isShared"`
	// CreatedAt and UpdatedAt are server-side timestamps.
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// SecretInput is the payload for creating or updating a secret.
// Password is the plaintext to encrypt at rest; it never round-trips back.
type SecretInput struct {
	Title    string `json:"title"`
	Username string `json:"username"`
	Password string `json:"password,omitempty"`
	URL      string `json:"url,omitempty"`
	Notes    string `json:"notes,omitempty"`
	Category string `json:"category,omitempty"`
}

// RequestStatus is the lifecycle state of an access request.
type RequestStatus string

const (
	// StatusPending means the request awaits review.
	StatusPending RequestStatus = "pending"
	// StatusApproved grants the requester a disclosure window.
	StatusApproved RequestStatus = "approved"
	// StatusRejected denies the request. Terminal.
	StatusRejected RequestStatus = "rejected"
)

// Terminal reports whether the status permits no further transition.
func (s RequestStatus) Terminal() bool {
	return s == StatusApproved || s == StatusRejected
}

// AccessRequest is an audit-tracked ask for plaintext disclosure of a
// secret, subject to reviewer approval. Requests are never deleted.
type AccessRequest struct {
	// ID is the unique identifier for the request.
	ID string `json:"id"`
	// SecretID identifies the secret whose plaintext is requested.
	SecretID string `json:"secretId"`
	// RequesterID identifies the asking user.
	RequesterID string `json:"requesterId"`
	// Reason is the requester's justification, at least ten characters.
	Reason string `json:"reason"`
	// Status is pending, approved or rejected.
	Status RequestStatus `json:"status"`
	// ReviewerID identifies the admin who decided the request, if any.
	ReviewerID string `json:"reviewerId,omitempty"`
	// AdminNotes holds the reviewer's optional remarks.
	AdminNotes string `json:"adminNotes,omitempty"`
	// CreatedAt is when the request was filed.
	CreatedAt time.Time `json:"createdAt"`
	// ReviewedAt is when the request left pending, if it has.
	ReviewedAt *time.Time `json:"reviewedAt,omitempty"`
	// ExpiresAt bounds the disclosure window of an approved request.
	ExpiresAt *time.Time `json:"expiresAt,omitempty"`
}

// PlainSecret is the body of a granted GET /passwords/{id}/view call.
type PlainSecret struct {
	Password string `json:"password"`
}

// Page is the paginated list envelope used by list endpoints.
type Page[T any] struct {
	Results  []T    `json:"results"`
	Count    int    `json:"count"`
	Next     string `json:"next,omitempty"`
	Previous string `json:"previous,omitempty"`
}
