package credential

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

func signed(t *testing.T, expiry time.Time) string {
	t.Helper()
	claims := jwt.RegisteredClaims{Subject: "user-1"}
	if !expiry.IsZero() {
		claims.ExpiresAt = jwt.NewNumericDate(expiry)
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("secret"))
	if err != nil {
		t.Fatalf("failed to sign token: %v", err)
	}
	return token
}

func TestExpired(t *testing.T) {
	now := time.Date(2024, 1, 10, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name  string
		token string
		want  bool
	}{
		{"expired jwt", signed(t, now.Add(-time.Minute)), true},
		{"valid jwt", signed(t, now.Add(time.Hour)), false},
		{"jwt without exp", signed(t, time.Time{}), false},
		{"opaque token", "opaque-session-token", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Expired(tt.token, now); got != tt.want {
				t.Errorf("Expired = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestExpiresAtOpaque(t *testing.T) {
	_, _, err := ExpiresAt("not-a-jwt")
	if !errors.Is(err, ErrNotJWT) {
		t.Errorf("err = %v, want ErrNotJWT", err)
	}
}

func TestMemoryStore(t *testing.T) {
	ctx := context.Background()
	store := NewMemory("")

	if tok, _ := store.Load(ctx); tok != "" {
		t.Fatalf("Load = %q, want empty", tok)
	}
	if err := store.Save(ctx, "abc"); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	if tok, _ := store.Load(ctx); tok != "abc" {
		t.Fatalf("Load = %q, want abc", tok)
	}
	for i := 0; i < 2; i++ {
		if err := store.Clear(ctx); err != nil {
			t.Fatalf("Clear failed: %v", err)
		}
	}
	if tok, _ := store.Load(ctx); tok != "" {
		t.Fatalf("Load after Clear = %q, want empty", tok)
	}
}
