// Package credential persists the session credential between runs.
package credential

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ErrNotJWT is returned by ExpiresAt for opaque tokens.
var ErrNotJWT = errors.New("credential is not a JWT")

// Store defines the interface for credential persistence.
// Only the session store writes to it.
type Store interface {
	// Load returns the saved credential, or "" if none is saved.
	Load(ctx context.Context) (string, error)

	// Save replaces the saved credential.
	Save(ctx context.Context, token string) error

	// Clear removes the saved credential. Clearing an empty store is not an error.
	Clear(ctx context.Context) error
}

// Memory is an in-process Store.
type Memory struct {
	mu    sync.Mutex
	token string
}

// NewMemory returns a Memory store holding token.
func NewMemory(token string) *Memory {
	return &Memory{token: token}
}

// Load returns the held credential.
func (m *Memory) Load(ctx context.Context) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.token, nil
}

// Save replaces the held credential.
func (m *Memory) Save(ctx context.Context, token string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.token = token
	return nil
}

// Clear forgets the held credential.
func (m *Memory) Clear(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.token = ""
	return nil
}

// ExpiresAt reads the exp claim of a JWT credential without verifying its
// signature; the client has no key and only wants to skip restoring tokens
// the server would reject anyway. ok is false when the token has no exp.
func ExpiresAt(token string) (expiry time.Time, ok bool, err error) {
	claims := jwt.RegisteredClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, &claims); err != nil {
		return time.Time{}, false, fmt.Errorf("%w: %v", ErrNotJWT, err)
	}
	if claims.ExpiresAt == nil {
		return time.Time{}, false, nil
	}
	return claims.ExpiresAt.Time, true, nil
}

// Expired reports whether token is a JWT whose exp is at or before now.
// Opaque tokens are never considered expired.
func Expired(token string, now time.Time) bool {
	expiry, ok, err := ExpiresAt(token)
	if err != nil || !ok {
		return false
	}
	return !now.Before(expiry)
}
