package maintenance

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"auth-api/internal/auth"
	"auth-api/internal/observability"
)

type memStore struct {
	auth.Store
	tokens map[string]string
}

func (m *memStore) ListActiveRefreshTokens(_ context.Context, limit int) ([]auth.StoredRefreshToken, error) {
	var out []auth.StoredRefreshToken
	for userID, token := range m.tokens {
		if len(out) >= limit {
			break
		}
		out = append(out, auth.StoredRefreshToken{UserID: userID, Token: token})
	}
	return out, nil
}

func (m *memStore) ClearRefreshToken(_ context.Context, userID, current string) (bool, error) {
	if m.tokens[userID] != current {
		return false, nil
	}
	delete(m.tokens, userID)
	return true, nil
}

func newCleanupFixture(t *testing.T, cronSecret string) (*CleanupHandler, *memStore) {
	t.Helper()

	issuer, err := auth.NewTokenIssuer("access-secret", "refresh-secret")
	require.NoError(t, err)
	verifier := auth.NewTokenVerifier("access-secret", "refresh-secret")

	valid, err := issuer.IssueRefresh(auth.User{ID: "live"})
	require.NoError(t, err)
	expired, err := issuer.WithTTL(-time.Minute, -time.Minute).IssueRefresh(auth.User{ID: "stale"})
	require.NoError(t, err)

	store := &memStore{tokens: map[string]string{
		"live":    valid,
		"stale":   expired,
		"mangled": "not.a.jwt",
	}}

	handler := NewCleanupHandler(store, verifier, observability.NewLogger(), cronSecret, 100)
	return handler, store
}

func TestCleanup_DisabledWithoutSecret(t *testing.T) {
	t.Parallel()

	handler, _ := newCleanupFixture(t, "")

	rec := httptest.NewRecorder()
	handler.Handle(rec, httptest.NewRequest(http.MethodPost, "/internal/maintenance/cleanup", nil))
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCleanup_RejectsBadSecret(t *testing.T) {
	t.Parallel()

	handler, _ := newCleanupFixture(t, "cron-secret")

	req := httptest.NewRequest(http.MethodPost, "/internal/maintenance/cleanup", nil)
	req.Header.Set("Authorization", "Bearer wrong")
	rec := httptest.NewRecorder()
	handler.Handle(rec, req)
	require.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestCleanup_ClearsOnlyDeadTokens(t *testing.T) {
	t.Parallel()

	handler, store := newCleanupFixture(t, "cron-secret")

	req := httptest.NewRequest(http.MethodPost, "/internal/maintenance/cleanup", nil)
	req.Header.Set("Authorization", "Bearer cron-secret")
	rec := httptest.NewRecorder()
	handler.Handle(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, store.tokens, "live")
	require.NotContains(t, store.tokens, "stale")
	require.NotContains(t, store.tokens, "mangled")
}
