package auth

import "time"

// User is the stored credential record. RefreshToken holds the single active
// refresh token for the user, or nil when none has been issued.
type User struct {
	ID           string
	Username     string
	Email        string
	PasswordHash string
	RefreshToken *string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// PublicUser is the subset of User safe to return to callers.
type PublicUser struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email"`
}

func (u User) Public() PublicUser {
	return PublicUser{ID: u.ID, Username: u.Username, Email: u.Email}
}

// AuthResult is returned by a successful password verification.
type AuthResult struct {
	AccessToken  string
	RefreshToken string
	User         PublicUser
}
