package auth

import "golang.org/x/crypto/bcrypt"

// PasswordHasher abstracts the one-way password hash so the service never
// depends on a concrete algorithm.
type PasswordHasher interface {
	Hash(password string) (string, error)
	// Compare reports whether password matches hash. Implementations must
	// compare in constant time.
	Compare(hash, password string) bool
}

// BcryptHasher is the production PasswordHasher.
type BcryptHasher struct {
	cost int
}

func NewBcryptHasher(cost int) BcryptHasher {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = bcrypt.DefaultCost
	}
	return BcryptHasher{cost: cost}
}

func (h BcryptHasher) Hash(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), h.cost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

func (h BcryptHasher) Compare(hash, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}
