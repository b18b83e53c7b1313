package store

import (
	"context"
	"strings"
	"sync"

	"github.com/mmynk/spendsync/internal/apiclient"
	"github.com/mmynk/spendsync/internal/credential"
	"github.com/mmynk/spendsync/internal/metrics"
	"github.com/mmynk/spendsync/internal/models"
	"github.com/mmynk/spendsync/internal/resource"
)

// Fallback messages used when the backend gives none.
const (
	msgLoginFailed         = "Login failed"
	msgRegistrationFailed  = "Registration failed"
	msgFetchUserFailed     = "Failed to fetch user"
	msgFetchProfileFailed  = "Failed to fetch profile"
	msgUpdateProfileFailed = "Failed to update profile"
)

// SessionState is a snapshot of the session store.
type SessionState struct {
	User    *models.User
	Profile models.Profile

	// Credential is the bearer token. Authenticated is true exactly when it is set.
	Credential    string
	Authenticated bool

	// Auth tracks login, registration and current-user checks.
	Auth resource.State
	// ProfileSync tracks profile fetches and updates.
	ProfileSync resource.State
}

// Session owns the authenticated user, profile and credential.
type Session struct {
	base
	persist credential.Store

	mu         sync.Mutex
	user       *models.User
	profile    models.Profile
	credential string
	auth       *resource.Tracker
	profileTr  *resource.Tracker

	// persistMu serializes writes to persist so the saved credential always
	// matches the last applied one.
	persistMu sync.Mutex
}

// NewSession creates an empty session. persist may be nil, in which case the
// credential lives only in memory.
func NewSession(deps Deps, persist credential.Store) *Session {
	if persist == nil {
		persist = credential.NewMemory("")
	}
	return &Session{
		base:      newBase("session", deps),
		persist:   persist,
		auth:      resource.NewTracker(deps.Policy),
		profileTr: resource.NewTracker(deps.Policy),
	}
}

// Credential returns the current bearer token. It implements
// apiclient.CredentialSource.
func (s *Session) Credential() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.credential
}

// Snapshot returns a copy of the current state.
func (s *Session) Snapshot() SessionState {
	s.mu.Lock()
	defer s.mu.Unlock()

	st := SessionState{
		Profile:       s.profile.Clone(),
		Credential:    s.credential,
		Authenticated: s.credential != "",
		Auth:          s.auth.State(),
		ProfileSync:   s.profileTr.State(),
	}
	if s.user != nil {
		u := *s.user
		st.User = &u
	}
	return st
}

// Restore loads a previously persisted credential. A JWT whose expiry has
// passed is cleared instead of restored. Restore makes no network calls; run
// FetchCurrentUser afterwards to validate the credential.
func (s *Session) Restore(ctx context.Context) error {
	token, err := s.persist.Load(ctx)
	if err != nil {
		return err
	}
	if token == "" {
		return nil
	}
	if credential.Expired(token, s.now()) {
		s.logger.Info("Discarding expired credential")
		return s.persist.Clear(ctx)
	}

	s.mu.Lock()
	if s.credential == "" {
		s.credential = token
	}
	s.mu.Unlock()
	s.changed()
	return nil
}

// Login authenticates with email and password. On success the user and
// credential are set and the credential is persisted. On failure the
// previous user and credential are left untouched.
func (s *Session) Login(ctx context.Context, email, password string) error {
	if err := validateCredentials(email, password); err != nil {
		return err
	}
	body := models.Credentials{Email: strings.TrimSpace(email), Password: password}
	return s.authenticate(ctx, "login", "/auth/login", body, msgLoginFailed)
}

// Register creates an account and signs in with it. It has the same result
// contract as Login.
func (s *Session) Register(ctx context.Context, email, password, name string) error {
	if err := validateCredentials(email, password); err != nil {
		return err
	}
	if strings.TrimSpace(name) == "" {
		return &models.ValidationError{Field: "name", Message: "name is required"}
	}
	body := models.Registration{Email: strings.TrimSpace(email), Password: password, Name: strings.TrimSpace(name)}
	return s.authenticate(ctx, "register", "/auth/register", body, msgRegistrationFailed)
}

func (s *Session) authenticate(ctx context.Context, op, path string, body any, fallback string) error {
	ticket, start := s.begin(&s.mu, s.auth, op)

	var resp models.AuthResponse
	err := s.api.Post(ctx, path, body, &resp, fallback)
	if err == nil && resp.Token == "" {
		err = &apiclient.RemoteError{Message: fallback}
	}

	applied := false
	err = s.settle(&s.mu, s.auth, ticket, op, start, err, func() {
		user := resp.User
		s.user = &user
		s.credential = resp.Token
		applied = true
	})
	if applied {
		s.syncCredential(ctx)
	}
	return err
}

// Logout clears the persisted credential and resets the session to empty.
// Responses to requests started before Logout are discarded. It never fails.
func (s *Session) Logout(ctx context.Context) {
	s.mu.Lock()
	s.user = nil
	s.profile = nil
	s.credential = ""
	s.auth.Reset()
	s.profileTr.Reset()
	s.mu.Unlock()

	s.syncCredential(ctx)
	s.logger.Info("Logged out")
	s.changed()
}

// FetchCurrentUser validates the current credential with the backend. On
// success the user is refreshed; on failure the whole session and the
// persisted credential are cleared. Without a credential it does nothing.
func (s *Session) FetchCurrentUser(ctx context.Context) error {
	if s.Credential() == "" {
		return nil
	}
	ticket, start := s.begin(&s.mu, s.auth, "me")

	var user models.User
	err := s.api.Get(ctx, "/auth/me", nil, &user, msgFetchUserFailed)
	if err == nil {
		return s.settle(&s.mu, s.auth, ticket, "me", start, nil, func() {
			s.user = &user
		})
	}

	s.mu.Lock()
	recorded := s.auth.Reject(ticket, err)
	if recorded {
		s.user = nil
		s.profile = nil
		s.credential = ""
		s.profileTr.Reset()
	}
	s.mu.Unlock()

	if recorded {
		s.record("me", metrics.OutcomeError, ticket, start, err)
		s.syncCredential(ctx)
	} else {
		s.record("me", metrics.OutcomeStale, ticket, start, err)
	}
	s.changed()
	return err
}

// FetchProfile loads the extended profile.
func (s *Session) FetchProfile(ctx context.Context) error {
	ticket, start := s.begin(&s.mu, s.profileTr, "fetch_profile")

	var profile models.Profile
	err := s.api.Get(ctx, "/user/profile", nil, &profile, msgFetchProfileFailed)
	return s.settle(&s.mu, s.profileTr, ticket, "fetch_profile", start, err, func() {
		s.profile = profile
	})
}

// UpdateProfile sends only the fields set in patch and replaces the profile
// with the server's response, so server-side defaults show up immediately.
func (s *Session) UpdateProfile(ctx context.Context, patch models.ProfilePatch) error {
	if err := patch.Validate(); err != nil {
		return err
	}
	ticket, start := s.begin(&s.mu, s.profileTr, "update_profile")

	var profile models.Profile
	err := s.api.Put(ctx, "/user/profile", patch, &profile, msgUpdateProfileFailed)
	return s.settle(&s.mu, s.profileTr, ticket, "update_profile", start, err, func() {
		s.profile = profile
	})
}

// ClearError drops recorded auth and profile failures.
func (s *Session) ClearError() {
	s.mu.Lock()
	s.auth.ClearError()
	s.profileTr.ClearError()
	s.mu.Unlock()
	s.changed()
}

// syncCredential writes the current credential to the persistent store.
// Persistence failures are logged; the in-memory session stays valid.
func (s *Session) syncCredential(ctx context.Context) {
	s.persistMu.Lock()
	defer s.persistMu.Unlock()

	token := s.Credential()
	var err error
	if token == "" {
		err = s.persist.Clear(ctx)
	} else {
		err = s.persist.Save(ctx, token)
	}
	if err != nil {
		s.logger.Warn("Failed to persist credential", "error", err)
	}
}

func validateCredentials(email, password string) error {
	if strings.TrimSpace(email) == "" {
		return &models.ValidationError{Field: "email", Message: "email is required"}
	}
	if password == "" {
		return &models.ValidationError{Field: "password", Message: "password is required"}
	}
	return nil
}
