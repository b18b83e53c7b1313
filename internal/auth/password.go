package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/mmynk/spendsync/internal/models"
)

var (
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrWeakPassword       = errors.New("password must be at least 8 characters")
	ErrEmailExists        = errors.New("email already registered")
	ErrAccountNotFound    = errors.New("account not found")
)

// Account is a stored user with its password hash.
type Account struct {
	User         models.User
	PasswordHash string
}

// AccountStorage persists accounts.
type AccountStorage interface {
	CreateAccount(ctx context.Context, account Account) error
	AccountByEmail(ctx context.Context, email string) (Account, error)
}

// PasswordAuthenticator implements Authenticator with bcrypt hashes.
type PasswordAuthenticator struct {
	storage AccountStorage
	cost    int
}

var _ Authenticator = (*PasswordAuthenticator)(nil)

// NewPasswordAuthenticator creates an authenticator over storage. cost is
// the bcrypt cost; zero means bcrypt.DefaultCost.
func NewPasswordAuthenticator(storage AccountStorage, cost int) *PasswordAuthenticator {
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	return &PasswordAuthenticator{storage: storage, cost: cost}
}

func (a *PasswordAuthenticator) ValidateCredential(password string) error {
	if len(password) < 8 {
		return ErrWeakPassword
	}
	return nil
}

func (a *PasswordAuthenticator) Register(ctx context.Context, email, name, password string) (models.User, error) {
	if err := a.ValidateCredential(password); err != nil {
		return models.User{}, err
	}
	email = normalizeEmail(email)
	if _, err := a.storage.AccountByEmail(ctx, email); err == nil {
		return models.User{}, ErrEmailExists
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), a.cost)
	if err != nil {
		return models.User{}, fmt.Errorf("failed to hash password: %w", err)
	}

	account := Account{
		User:         models.User{ID: uuid.NewString(), Email: email, Name: name},
		PasswordHash: string(hash),
	}
	if err := a.storage.CreateAccount(ctx, account); err != nil {
		return models.User{}, fmt.Errorf("failed to create account: %w", err)
	}
	return account.User, nil
}

func (a *PasswordAuthenticator) Authenticate(ctx context.Context, email, password string) (models.User, error) {
	account, err := a.storage.AccountByEmail(ctx, normalizeEmail(email))
	if err != nil {
		return models.User{}, ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(account.PasswordHash), []byte(password)); err != nil {
		return models.User{}, ErrInvalidCredentials
	}
	return account.User, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
