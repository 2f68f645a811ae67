package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const (
	defaultAccessTTL  = 15 * time.Minute
	defaultRefreshTTL = 7 * 24 * time.Hour
)

// AccessClaims is the payload embedded in an access token.
type AccessClaims struct {
	UserID   string `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email"`
	jwt.RegisteredClaims
}

// RefreshClaims is the payload embedded in a refresh token. Only the user id
// is carried; everything else is resolved from the store at refresh time.
type RefreshClaims struct {
	UserID string `json:"id"`
	jwt.RegisteredClaims
}

// TokenIssuer signs access and refresh tokens. The two token classes use
// separate secrets so a leaked access token cannot be replayed as a refresh
// token.
type TokenIssuer struct {
	accessSecret  []byte
	refreshSecret []byte
	accessTTL     time.Duration
	refreshTTL    time.Duration
}

func NewTokenIssuer(accessSecret, refreshSecret string) (*TokenIssuer, error) {
	if accessSecret == "" || refreshSecret == "" {
		return nil, errors.New("both token secrets are required")
	}
	if accessSecret == refreshSecret {
		return nil, errors.New("access and refresh secrets must differ")
	}

	return &TokenIssuer{
		accessSecret:  []byte(accessSecret),
		refreshSecret: []byte(refreshSecret),
		accessTTL:     defaultAccessTTL,
		refreshTTL:    defaultRefreshTTL,
	}, nil
}

func (i *TokenIssuer) WithTTL(accessTTL, refreshTTL time.Duration) *TokenIssuer {
	if accessTTL != 0 {
		i.accessTTL = accessTTL
	}
	if refreshTTL != 0 {
		i.refreshTTL = refreshTTL
	}
	return i
}

// IssueAccess signs an access token carrying the user's id, username and
// email. Pure apart from reading the clock.
func (i *TokenIssuer) IssueAccess(user User) (string, error) {
	now := time.Now().UTC()
	claims := AccessClaims{
		UserID:   user.ID,
		Username: user.Username,
		Email:    user.Email,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(i.accessTTL)),
		},
	}

	encoded, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(i.accessSecret)
	if err != nil {
		return "", fmt.Errorf("sign access token: %w", err)
	}
	return encoded, nil
}

// IssueRefresh signs a refresh token carrying only the user's id.
func (i *TokenIssuer) IssueRefresh(user User) (string, error) {
	now := time.Now().UTC()
	claims := RefreshClaims{
		UserID: user.ID,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(i.refreshTTL)),
		},
	}

	encoded, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(i.refreshSecret)
	if err != nil {
		return "", fmt.Errorf("sign refresh token: %w", err)
	}
	return encoded, nil
}

// TokenVerifier validates signed tokens. Verification is pure: no store
// access, no side effects.
type TokenVerifier struct {
	accessSecret  []byte
	refreshSecret []byte
}

func NewTokenVerifier(accessSecret, refreshSecret string) *TokenVerifier {
	return &TokenVerifier{
		accessSecret:  []byte(accessSecret),
		refreshSecret: []byte(refreshSecret),
	}
}

// VerifyAccess validates an access token and returns its claims. Returns
// ErrTokenExpired when the signature is valid but the expiry has passed, and
// ErrInvalidToken for everything else. A token signed with the wrong secret
// is reported as invalid, indistinguishable from a malformed one.
func (v *TokenVerifier) VerifyAccess(token string) (AccessClaims, error) {
	var claims AccessClaims
	if err := v.parse(token, &claims, v.accessSecret); err != nil {
		return AccessClaims{}, err
	}
	return claims, nil
}

// VerifyRefresh validates a refresh token and returns its claims. Callers
// still have to check the token against the value stored on the user record;
// a cryptographically valid token may have been superseded.
func (v *TokenVerifier) VerifyRefresh(token string) (RefreshClaims, error) {
	var claims RefreshClaims
	if err := v.parse(token, &claims, v.refreshSecret); err != nil {
		return RefreshClaims{}, err
	}
	return claims, nil
}

func (v *TokenVerifier) parse(token string, claims jwt.Claims, secret []byte) error {
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (any, error) {
		return secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return ErrTokenExpired
		}
		return ErrInvalidToken
	}
	if !parsed.Valid {
		return ErrInvalidToken
	}
	return nil
}
