// Package session owns the client's credential pair and identity: the
// durable token store and the authentication session built on top of it.
package session

import (
	"encoding/json"
	"os"
	"sync"

	"github.com/Teerdaveni2002/password-vault/internal/models"
)

// TokenStore holds the current access/refresh credential pair, guarded
// by a mutex and mirrored to a JSON file so the session survives process
// restarts. It is an opaque string container; tokens are never inspected.
type TokenStore struct {
	mu   sync.Mutex
	pair models.TokenPair
	ok   bool
	path string
}

// tokenFile is the on-disk shape: two fixed keys.
type tokenFile struct {
	Access  string `json:"access"`
	Refresh string `json:"refresh"`
}

// NewTokenStore creates a store persisting to path. An empty path keeps
// the pair in memory only.
func NewTokenStore(path string) *TokenStore {
	return &TokenStore{path: path}
}

// Load reads a previously persisted pair. A missing file is not an
// error; the store just starts empty.
func (s *TokenStore) Load() error {
	if s.path == "" {
		return nil
	}
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	var f tokenFile
	if err := json.Unmarshal(data, &f); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if f.Access != "" || f.Refresh != "" {
		s.pair = models.TokenPair{Access: f.Access, Refresh: f.Refresh}
		s.ok = true
	}
	return nil
}

// Set overwrites the stored pair. Writers always replace both tokens.
func (s *TokenStore) Set(access, refresh string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pair = models.TokenPair{Access: access, Refresh: refresh}
	s.ok = true
	s.persist()
}

// Get returns the current pair, if any.
func (s *TokenStore) Get() (models.TokenPair, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pair, s.ok
}

// Clear drops the pair. Idempotent.
func (s *TokenStore) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pair = models.TokenPair{}
	s.ok = false
	if s.path != "" {
		_ = os.Remove(s.path)
	}
}

// persist writes the pair to disk; callers hold the mutex. Persistence
// failures are ignored: the in-memory pair stays authoritative for the
// process lifetime.
func (s *TokenStore) persist() {
	if s.path == "" {
		return
	}
	data, err := json.Marshal(tokenFile{Access: s.pair.Access, Refresh: s.pair.Refresh})
	if err != nil {
		return
	}
	_ = os.WriteFile(s.path, data, 0o600)
}
