// Package apperrs defines the error taxonomy shared by the vault client
// and server. Every failure the core can produce is one of these values
// (possibly wrapped), so callers branch with errors.Is and errors.As
// instead of matching strings or status codes.
package apperrs

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

var (
	// ErrInvalidCredentials means a login or register attempt was
	// rejected by the server.
	ErrInvalidCredentials = errors.New("invalid credentials")

	// ErrSessionExpired means the refresh-once cycle is exhausted or the
	// refresh token is absent, expired or rejected. The local session is
	// always cleared before this is returned.
	ErrSessionExpired = errors.New("session expired")

	// ErrInvalidTransition means an approve or reject was attempted on a
	// request that is no longer pending.
	ErrInvalidTransition = errors.New("request is not pending")

	// ErrNotAuthorized means the caller lacks the role or ownership
	// required for the action.
	ErrNotAuthorized = errors.New("not authorized")

	// ErrPlaintextUnavailable means no unexpired approved request exists
	// for this caller and secret. Recoverable: the caller should file an
	// access request.
	ErrPlaintextUnavailable = errors.New("plaintext not available")

	// ErrNotFound means the addressed entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrNetworkUnavailable means the transport failed before a response
	// was received.
	ErrNetworkUnavailable = errors.New("network unavailable")

	// ErrTimeout means the call exceeded its deadline.
	ErrTimeout = errors.New("request timed out")
)

// ValidationError reports client-detected field violations found before
// any network call is made.
type ValidationError struct {
	// Fields maps a field name to the violated rule.
	Fields map[string]string
}

// Error lists the violated fields in stable order.
func (e *ValidationError) Error() string {
	names := make([]string, 0, len(e.Fields))
	for f := range e.Fields {
		names = append(names, f)
	}
	sort.Strings(names)
	parts := make([]string, 0, len(names))
	for _, f := range names {
		parts = append(parts, fmt.Sprintf("%s: %s", f, e.Fields[f]))
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// NewValidation builds a ValidationError from field/rule pairs.
func NewValidation(fields map[string]string) *ValidationError {
	return &ValidationError{Fields: fields}
}

// IsValidation reports whether err is (or wraps) a ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
