package directory

import (
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// PasswordScheme controls how passwords are stored and checked.
type PasswordScheme interface {
	Hash(password string) (string, error)
	Matches(stored, password string) bool
}

// PlainPasswords stores passwords verbatim and compares them by direct
// equality. This is the historical behaviour of the directory and is kept as
// the default; it is not safe for production use.
type PlainPasswords struct{}

func (PlainPasswords) Hash(password string) (string, error) {
	return password, nil
}

func (PlainPasswords) Matches(stored, password string) bool {
	return stored == password
}

// BcryptPasswords stores salted bcrypt hashes.
type BcryptPasswords struct {
	Cost int
}

func (b BcryptPasswords) Hash(password string) (string, error) {
	cost := b.Cost
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), cost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(hashed), nil
}

func (BcryptPasswords) Matches(stored, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(stored), []byte(password)) == nil
}

// NewPasswordScheme maps a PASSWORD_SCHEME value to its implementation.
func NewPasswordScheme(name string) (PasswordScheme, error) {
	switch name {
	case "", "plain":
		return PlainPasswords{}, nil
	case "bcrypt":
		return BcryptPasswords{}, nil
	default:
		return nil, fmt.Errorf("unsupported password scheme: %s", name)
	}
}
