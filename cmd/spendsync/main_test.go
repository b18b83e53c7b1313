package main

import (
	"bytes"
	"context"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/mmynk/spendsync/internal/apitest"
	"github.com/mmynk/spendsync/internal/config"
)

const (
	email    = "ada@example.com"
	password = "password123"
)

type cliEnv struct {
	srv    *apitest.Server
	url    string
	credDB string
}

// exec runs one CLI invocation, as a separate process would, and returns
// its stdout.
func (e *cliEnv) exec(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	full := append([]string{"--base-url", e.url, "--credential-db", e.credDB, "--log-level", "error"}, args...)
	err := run(context.Background(), full, &stdout, &stderr)
	return stdout.String(), err
}

func (e *cliEnv) mustExec(t *testing.T, args ...string) string {
	t.Helper()
	out, err := e.exec(t, args...)
	if err != nil {
		t.Fatalf("spendsync %s failed: %v", strings.Join(args, " "), err)
	}
	return out
}

func setupCLI(t *testing.T) (*cliEnv, func()) {
	t.Helper()
	for _, k := range []string{config.EnvConfig, config.EnvBaseURL, config.EnvCredentialDB, config.EnvOrdering, config.EnvLogLevel, envPassword} {
		t.Setenv(k, "")
		os.Unsetenv(k)
	}

	srv := apitest.New(apitest.Options{})
	server := httptest.NewServer(srv.Handler())
	if _, err := srv.CreateUser(email, password, "Ada"); err != nil {
		server.Close()
		t.Fatalf("failed to create user: %v", err)
	}
	env := &cliEnv{
		srv:    srv,
		url:    server.URL,
		credDB: filepath.Join(t.TempDir(), "session.db"),
	}
	return env, server.Close
}

func TestSessionAcrossInvocations(t *testing.T) {
	env, cleanup := setupCLI(t)
	defer cleanup()

	if _, err := env.exec(t, "whoami"); err == nil || !strings.Contains(err.Error(), "not signed in") {
		t.Fatalf("whoami before login: err = %v", err)
	}

	out := env.mustExec(t, "login", email, "--password", password)
	if !strings.Contains(out, "Signed in as Ada") {
		t.Errorf("login output = %q", out)
	}

	out = env.mustExec(t, "whoami")
	if !strings.Contains(out, email) {
		t.Errorf("whoami output = %q", out)
	}

	env.mustExec(t, "logout")
	if _, err := env.exec(t, "whoami"); err == nil {
		t.Error("whoami succeeded after logout")
	}
}

func TestLoginWrongPassword(t *testing.T) {
	env, cleanup := setupCLI(t)
	defer cleanup()

	_, err := env.exec(t, "login", email, "--password", "wrong password")
	if err == nil || !strings.Contains(err.Error(), "Invalid email or password") {
		t.Errorf("err = %v, want the backend's message", err)
	}
}

func TestExpenseCommands(t *testing.T) {
	env, cleanup := setupCLI(t)
	defer cleanup()
	t.Setenv(envPassword, password)
	env.mustExec(t, "login", email)

	out := env.mustExec(t, "add", "-d", "Coffee", "-a", "4.50", "-c", "Food & Dining")
	if !strings.Contains(out, "Added") || !strings.Contains(out, "4.50") {
		t.Errorf("add output = %q", out)
	}

	receipt := filepath.Join(t.TempDir(), "lunch.jpg")
	if err := os.WriteFile(receipt, []byte("jpeg"), 0o600); err != nil {
		t.Fatalf("failed to write receipt: %v", err)
	}
	env.mustExec(t, "add", "-d", "Lunch", "-a", "12", "--receipt", receipt)

	out = env.mustExec(t, "expenses")
	if !strings.Contains(out, "Coffee") || !strings.Contains(out, "Lunch") || !strings.Contains(out, "yes") {
		t.Errorf("expenses output = %q", out)
	}

	out = env.mustExec(t, "expenses", "--search", "coffee")
	if strings.Contains(out, "Lunch") {
		t.Errorf("search not applied: %q", out)
	}

	out = env.mustExec(t, "dashboard")
	if !strings.Contains(out, "Spent this month") || !strings.Contains(out, "16.50") {
		t.Errorf("dashboard output = %q", out)
	}

	if _, err := env.exec(t, "add", "-d", "Bad", "-a", "0"); err == nil {
		t.Error("expected invalid amount to be rejected")
	}
	if _, err := env.exec(t, "delete"); err == nil {
		t.Error("expected delete without id to fail")
	}
}

func TestAssistantCommands(t *testing.T) {
	env, cleanup := setupCLI(t)
	defer cleanup()
	env.mustExec(t, "login", email, "--password", password)

	if out := env.mustExec(t, "chat", "how", "am", "I", "doing?"); strings.TrimSpace(out) == "" {
		t.Error("chat printed no reply")
	}

	receipt := filepath.Join(t.TempDir(), "Corner Cafe.png")
	if err := os.WriteFile(receipt, []byte("png"), 0o600); err != nil {
		t.Fatalf("failed to write receipt: %v", err)
	}
	out := env.mustExec(t, "scan", receipt)
	if !strings.Contains(out, "Corner Cafe") {
		t.Errorf("scan output = %q", out)
	}

	if _, err := env.exec(t, "chat"); err == nil {
		t.Error("expected empty chat to fail")
	}
}

func TestUsage(t *testing.T) {
	var stdout, stderr bytes.Buffer
	if err := run(context.Background(), []string{"--help"}, &stdout, &stderr); err != nil {
		t.Fatalf("--help failed: %v", err)
	}
	for _, name := range []string{"login", "expenses", "dashboard", "chat"} {
		if !strings.Contains(stdout.String(), name) {
			t.Errorf("help does not list %q", name)
		}
	}

	if err := run(context.Background(), []string{"frobnicate"}, &stdout, &stderr); err == nil {
		t.Error("expected unknown command to fail")
	}
}
