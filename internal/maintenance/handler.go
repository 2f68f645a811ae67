package maintenance

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"auth-api/internal/auth"
	"auth-api/internal/observability"
)

// CleanupHandler sweeps stored refresh tokens and nulls the ones that no
// longer verify (expired or undecodable). The clear is conditional on the
// stored value, so a login that lands mid-sweep keeps its fresh token.
type CleanupHandler struct {
	store      auth.Store
	verifier   *auth.TokenVerifier
	logger     *observability.Logger
	cronSecret string
	batchSize  int
}

type CleanupResult struct {
	Scanned int `json:"scanned"`
	Cleared int `json:"cleared"`
}

func NewCleanupHandler(
	store auth.Store,
	verifier *auth.TokenVerifier,
	logger *observability.Logger,
	cronSecret string,
	batchSize int,
) *CleanupHandler {
	if batchSize <= 0 {
		batchSize = 500
	}

	return &CleanupHandler{
		store:      store,
		verifier:   verifier,
		logger:     logger,
		cronSecret: strings.TrimSpace(cronSecret),
		batchSize:  batchSize,
	}
}

func (h *CleanupHandler) Handle(w http.ResponseWriter, r *http.Request) {
	if h.cronSecret == "" {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "not found"})
		return
	}

	if r.Method != http.MethodGet && r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	authHeader := strings.TrimSpace(r.Header.Get("Authorization"))
	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || strings.TrimSpace(parts[1]) != h.cronSecret {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "unauthorized"})
		return
	}

	result, err := h.sweep(r.Context())
	if err != nil {
		h.logger.Error("refresh_token_cleanup_failed", map[string]any{"error": err.Error()})
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "cleanup failed"})
		return
	}

	h.logger.Info("refresh_token_cleanup_completed", map[string]any{
		"scanned": result.Scanned,
		"cleared": result.Cleared,
	})

	writeJSON(w, http.StatusOK, map[string]any{
		"status": "ok",
		"result": result,
	})
}

func (h *CleanupHandler) sweep(ctx context.Context) (CleanupResult, error) {
	stored, err := h.store.ListActiveRefreshTokens(ctx, h.batchSize)
	if err != nil {
		return CleanupResult{}, fmt.Errorf("list stored refresh tokens: %w", err)
	}

	result := CleanupResult{Scanned: len(stored)}
	for _, entry := range stored {
		if _, err := h.verifier.VerifyRefresh(entry.Token); err == nil {
			continue
		} else if !errors.Is(err, auth.ErrTokenExpired) && !errors.Is(err, auth.ErrInvalidToken) {
			return CleanupResult{}, fmt.Errorf("verify stored refresh token: %w", err)
		}

		cleared, err := h.store.ClearRefreshToken(ctx, entry.UserID, entry.Token)
		if err != nil {
			return CleanupResult{}, fmt.Errorf("clear refresh token: %w", err)
		}
		if cleared {
			result.Cleared++
		}
	}

	return result, nil
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}
