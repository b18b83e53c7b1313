// Package auth implements the account checks of the development backend:
// bcrypt password verification and HS256 session tokens.
package auth

import (
	"context"

	"github.com/mmynk/spendsync/internal/models"
)

// Authenticator verifies account credentials.
type Authenticator interface {
	// Register creates an account and returns its user.
	Register(ctx context.Context, email, name, password string) (models.User, error)

	// Authenticate returns the user owning email if password matches.
	Authenticate(ctx context.Context, email, password string) (models.User, error)

	// ValidateCredential checks password strength rules.
	ValidateCredential(password string) error
}
