package auth

import (
	"errors"
	"strings"
	"testing"
	"time"
)

func newTestIssuer(t *testing.T) *TokenIssuer {
	t.Helper()
	issuer, err := NewTokenIssuer("access-secret", "refresh-secret")
	if err != nil {
		t.Fatalf("NewTokenIssuer error: %v", err)
	}
	return issuer
}

func TestNewTokenIssuer_SecretValidation(t *testing.T) {
	t.Parallel()

	if _, err := NewTokenIssuer("", "refresh"); err == nil {
		t.Fatal("expected error for empty access secret")
	}
	if _, err := NewTokenIssuer("access", ""); err == nil {
		t.Fatal("expected error for empty refresh secret")
	}
	if _, err := NewTokenIssuer("same", "same"); err == nil {
		t.Fatal("expected error for identical secrets")
	}
}

func TestAccessToken_RoundTrip(t *testing.T) {
	t.Parallel()

	issuer := newTestIssuer(t)
	verifier := NewTokenVerifier("access-secret", "refresh-secret")

	user := User{ID: "u-1", Username: "alice", Email: "a@x.com"}
	token, err := issuer.IssueAccess(user)
	if err != nil {
		t.Fatalf("IssueAccess error: %v", err)
	}

	claims, err := verifier.VerifyAccess(token)
	if err != nil {
		t.Fatalf("VerifyAccess error: %v", err)
	}
	if claims.UserID != user.ID || claims.Username != user.Username || claims.Email != user.Email {
		t.Fatalf("claims mismatch: got %+v", claims)
	}
	if claims.ExpiresAt == nil || claims.IssuedAt == nil {
		t.Fatal("expected iat and exp to be set")
	}
	gotTTL := claims.ExpiresAt.Sub(claims.IssuedAt.Time)
	if gotTTL != defaultAccessTTL {
		t.Fatalf("access TTL mismatch: got %v want %v", gotTTL, defaultAccessTTL)
	}
}

func TestRefreshToken_RoundTrip(t *testing.T) {
	t.Parallel()

	issuer := newTestIssuer(t)
	verifier := NewTokenVerifier("access-secret", "refresh-secret")

	token, err := issuer.IssueRefresh(User{ID: "u-2"})
	if err != nil {
		t.Fatalf("IssueRefresh error: %v", err)
	}

	claims, err := verifier.VerifyRefresh(token)
	if err != nil {
		t.Fatalf("VerifyRefresh error: %v", err)
	}
	if claims.UserID != "u-2" {
		t.Fatalf("user id mismatch: got %q", claims.UserID)
	}
	gotTTL := claims.ExpiresAt.Sub(claims.IssuedAt.Time)
	if gotTTL != defaultRefreshTTL {
		t.Fatalf("refresh TTL mismatch: got %v want %v", gotTTL, defaultRefreshTTL)
	}
}

func TestVerifyAccess_Expired(t *testing.T) {
	t.Parallel()

	issuer := newTestIssuer(t).WithTTL(-time.Minute, -time.Minute)
	verifier := NewTokenVerifier("access-secret", "refresh-secret")

	token, err := issuer.IssueAccess(User{ID: "u-3"})
	if err != nil {
		t.Fatalf("IssueAccess error: %v", err)
	}

	if _, err := verifier.VerifyAccess(token); !errors.Is(err, ErrTokenExpired) {
		t.Fatalf("expected ErrTokenExpired, got %v", err)
	}
}

func TestVerifyAccess_Tampered(t *testing.T) {
	t.Parallel()

	issuer := newTestIssuer(t)
	verifier := NewTokenVerifier("access-secret", "refresh-secret")

	token, err := issuer.IssueAccess(User{ID: "u-4", Username: "bob", Email: "b@y.com"})
	if err != nil {
		t.Fatalf("IssueAccess error: %v", err)
	}

	// Flip one byte in the signature segment.
	mutated := []byte(token)
	last := len(mutated) - 1
	if mutated[last] == 'A' {
		mutated[last] = 'B'
	} else {
		mutated[last] = 'A'
	}

	if _, err := verifier.VerifyAccess(string(mutated)); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken, got %v", err)
	}
}

func TestVerifyAccess_WrongSecretFoldsIntoInvalid(t *testing.T) {
	t.Parallel()

	issuer := newTestIssuer(t)
	verifier := NewTokenVerifier("access-secret", "refresh-secret")

	// A refresh token presented on the access path must read as plain
	// invalid, not as anything that reveals which secret was attempted.
	refresh, err := issuer.IssueRefresh(User{ID: "u-5"})
	if err != nil {
		t.Fatalf("IssueRefresh error: %v", err)
	}

	if _, err := verifier.VerifyAccess(refresh); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken, got %v", err)
	}
}

func TestVerifyAccess_Malformed(t *testing.T) {
	t.Parallel()

	verifier := NewTokenVerifier("access-secret", "refresh-secret")

	for _, token := range []string{"not.a.jwt", "", strings.Repeat("x", 64)} {
		if _, err := verifier.VerifyAccess(token); !errors.Is(err, ErrInvalidToken) {
			t.Fatalf("token %q: expected ErrInvalidToken, got %v", token, err)
		}
	}
}
