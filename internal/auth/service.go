package auth

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"strings"
)

// Service is the credential-verification state machine. All dependencies are
// injected; the service itself holds no mutable state, so one instance serves
// concurrent requests.
type Service struct {
	store    Store
	hasher   PasswordHasher
	issuer   *TokenIssuer
	verifier *TokenVerifier
}

func NewService(store Store, hasher PasswordHasher, issuer *TokenIssuer, verifier *TokenVerifier) *Service {
	return &Service{
		store:    store,
		hasher:   hasher,
		issuer:   issuer,
		verifier: verifier,
	}
}

// Signup registers a new user. The username and email must not collide with
// any existing record; the check runs as a single OR query before insertion,
// and a unique violation at insert time reports the same conflict.
func (s *Service) Signup(ctx context.Context, username, email, password string) (PublicUser, error) {
	username = strings.TrimSpace(username)
	email = strings.ToLower(strings.TrimSpace(email))
	password = strings.TrimSpace(password)

	if username == "" || email == "" || password == "" {
		return PublicUser{}, validationErr("username, email, and password are required")
	}

	_, err := s.store.FindByUsernameOrEmail(ctx, username, email)
	if err == nil {
		return PublicUser{}, ErrConflict
	}
	if !errors.Is(err, ErrNotFound) {
		return PublicUser{}, fmt.Errorf("check existing user: %w", err)
	}

	hash, err := s.hasher.Hash(password)
	if err != nil {
		return PublicUser{}, fmt.Errorf("hash password: %w", err)
	}

	user, err := s.store.Create(ctx, username, email, hash)
	if err != nil {
		if errors.Is(err, ErrConflict) {
			return PublicUser{}, ErrConflict
		}
		return PublicUser{}, fmt.Errorf("create user: %w", err)
	}

	return user.Public(), nil
}

// Login is a read-only lookup by username. It performs no credential check
// and issues no tokens; authentication happens in VerifyPassword.
func (s *Service) Login(ctx context.Context, username string) (User, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return User{}, validationErr("username is required")
	}

	user, err := s.store.GetByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return User{}, ErrNotFound
		}
		return User{}, fmt.Errorf("lookup user: %w", err)
	}

	return user, nil
}

// VerifyPassword authenticates a user and issues a fresh token pair. The new
// refresh token overwrites the stored one, so any previously issued refresh
// token stops working. Concurrent logins race on that write; last one wins.
func (s *Service) VerifyPassword(ctx context.Context, username, password string) (AuthResult, error) {
	username = strings.TrimSpace(username)
	password = strings.TrimSpace(password)

	if username == "" || password == "" {
		return AuthResult{}, validationErr("username and password are required")
	}

	user, err := s.store.GetByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return AuthResult{}, ErrNotFound
		}
		return AuthResult{}, fmt.Errorf("lookup user: %w", err)
	}

	if !s.hasher.Compare(user.PasswordHash, password) {
		return AuthResult{}, ErrInvalidCredentials
	}

	accessToken, err := s.issuer.IssueAccess(user)
	if err != nil {
		return AuthResult{}, err
	}
	refreshToken, err := s.issuer.IssueRefresh(user)
	if err != nil {
		return AuthResult{}, err
	}

	if err := s.store.UpdateRefreshToken(ctx, user.ID, refreshToken); err != nil {
		return AuthResult{}, fmt.Errorf("store refresh token: %w", err)
	}

	return AuthResult{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		User:         user.Public(),
	}, nil
}

// VerifyAccessToken validates an access token and returns its claims. Pure:
// the store is never consulted.
func (s *Service) VerifyAccessToken(token string) (AccessClaims, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return AccessClaims{}, validationErr("token is required")
	}

	return s.verifier.VerifyAccess(token)
}

// RefreshAccessToken exchanges a refresh token for a new access token. The
// presented token must verify against the refresh secret AND equal the value
// currently stored on the user record; a superseded token is rejected even
// though its signature is still valid. The refresh token is not rotated here.
func (s *Service) RefreshAccessToken(ctx context.Context, refreshToken string) (string, error) {
	refreshToken = strings.TrimSpace(refreshToken)
	if refreshToken == "" {
		return "", validationErr("refresh token is required")
	}

	claims, err := s.verifier.VerifyRefresh(refreshToken)
	if err != nil {
		return "", ErrInvalidRefreshToken
	}

	user, err := s.store.GetByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return "", ErrInvalidRefreshToken
		}
		return "", fmt.Errorf("lookup user for refresh: %w", err)
	}

	if user.RefreshToken == nil ||
		subtle.ConstantTimeCompare([]byte(*user.RefreshToken), []byte(refreshToken)) != 1 {
		return "", ErrInvalidRefreshToken
	}

	return s.issuer.IssueAccess(user)
}
