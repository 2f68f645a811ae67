package auth

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/getsentry/sentry-go"
)

const maxJSONBodyBytes = 1 << 20

type Handler struct {
	service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

type signupRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginRequest struct {
	Username string `json:"username"`
}

type verifyPasswordRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type verifyTokenRequest struct {
	Token string `json:"token"`
}

type refreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

type authenticatedUser struct {
	ID           string `json:"id"`
	Username     string `json:"username"`
	Email        string `json:"email"`
	RefreshToken string `json:"refreshToken"`
}

func (h *Handler) Signup(w http.ResponseWriter, r *http.Request) {
	var body signupRequest
	if !decodeJSON(w, r, &body) {
		return
	}

	user, err := h.service.Signup(r.Context(), body.Username, body.Email, body.Password)
	if err != nil {
		writeServiceError(w, err, "failed to sign up")
		return
	}

	writeJSON(w, http.StatusCreated, map[string]any{
		"message": "User registered successfully.",
		"user":    user,
	})
}

// Login is a lookup-only endpoint kept for compatibility with existing
// clients: it performs no credential check. The upstream contract returned
// the raw stored record including the password hash; that leak is not
// preserved — credentials are redacted from the response. New callers should
// use VerifyPassword.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var body loginRequest
	if !decodeJSON(w, r, &body) {
		return
	}

	user, err := h.service.Login(r.Context(), body.Username)
	if err != nil {
		writeServiceError(w, err, "failed to look up user")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"id":        user.ID,
		"username":  user.Username,
		"email":     user.Email,
		"createdAt": user.CreatedAt.UTC().Format(time.RFC3339),
		"updatedAt": user.UpdatedAt.UTC().Format(time.RFC3339),
	})
}

func (h *Handler) VerifyPassword(w http.ResponseWriter, r *http.Request) {
	var body verifyPasswordRequest
	if !decodeJSON(w, r, &body) {
		return
	}

	result, err := h.service.VerifyPassword(r.Context(), body.Username, body.Password)
	if err != nil {
		writeServiceError(w, err, "failed to verify password")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"message":      "Login successful.",
		"accessToken":  result.AccessToken,
		"refreshToken": result.RefreshToken,
		"data": authenticatedUser{
			ID:           result.User.ID,
			Username:     result.User.Username,
			Email:        result.User.Email,
			RefreshToken: result.RefreshToken,
		},
	})
}

func (h *Handler) VerifyToken(w http.ResponseWriter, r *http.Request) {
	var body verifyTokenRequest
	if !decodeJSON(w, r, &body) {
		return
	}

	claims, err := h.service.VerifyAccessToken(body.Token)
	if err != nil {
		writeServiceError(w, err, "failed to verify token")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"message":  "Token is valid.",
		"userId":   claims.UserID,
		"username": claims.Username,
		"email":    claims.Email,
	})
}

func (h *Handler) Refresh(w http.ResponseWriter, r *http.Request) {
	var body refreshRequest
	if !decodeJSON(w, r, &body) {
		return
	}

	accessToken, err := h.service.RefreshAccessToken(r.Context(), body.RefreshToken)
	if err != nil {
		writeServiceError(w, err, "failed to refresh token")
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"accessToken": accessToken})
}

// Profile echoes the claims of the bearer token validated by Middleware.
func (h *Handler) Profile(w http.ResponseWriter, r *http.Request) {
	claims, ok := ClaimsFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "missing authorization token")
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"userId":   claims.UserID,
		"username": claims.Username,
		"email":    claims.Email,
	})
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxJSONBodyBytes)

	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(dst); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json body")
		return false
	}

	return true
}

func writeServiceError(w http.ResponseWriter, err error, fallback string) {
	var validation ValidationError
	switch {
	case errors.As(err, &validation):
		writeError(w, http.StatusBadRequest, validation.Message)
	case errors.Is(err, ErrConflict):
		writeError(w, http.StatusConflict, "username or email already exists")
	case errors.Is(err, ErrNotFound):
		writeError(w, http.StatusNotFound, "user not found")
	case errors.Is(err, ErrInvalidCredentials):
		writeError(w, http.StatusUnauthorized, "invalid credentials")
	case errors.Is(err, ErrTokenExpired):
		writeError(w, http.StatusUnauthorized, "token has expired")
	case errors.Is(err, ErrInvalidToken):
		writeError(w, http.StatusUnauthorized, "invalid token")
	case errors.Is(err, ErrInvalidRefreshToken):
		writeError(w, http.StatusForbidden, "invalid refresh token")
	default:
		sentry.CaptureException(err)
		writeError(w, http.StatusInternalServerError, fallback)
	}
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
