package auth

import "errors"

var (
	// ErrConflict means a user with the requested username or email already exists.
	ErrConflict = errors.New("username or email already exists")
	// ErrNotFound means no user record matched the lookup.
	ErrNotFound = errors.New("user not found")
	// ErrInvalidCredentials means the presented password did not match the stored hash.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrTokenExpired means the token signature checked out but its expiry has passed.
	ErrTokenExpired = errors.New("token has expired")
	// ErrInvalidToken covers malformed tokens, bad signatures and wrong secrets alike.
	ErrInvalidToken = errors.New("invalid token")
	// ErrInvalidRefreshToken covers every refresh rejection: bad signature, expiry,
	// unknown user, or a token superseded by a newer login.
	ErrInvalidRefreshToken = errors.New("invalid refresh token")
)

// ValidationError reports missing or malformed client input. The message is
// safe to return to the caller.
type ValidationError struct {
	Message string
}

func (e ValidationError) Error() string {
	return e.Message
}

func validationErr(message string) error {
	return ValidationError{Message: message}
}
