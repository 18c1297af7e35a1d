package auth

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// MaxPasswordLength is bcrypt's input limit in bytes.
const MaxPasswordLength = 72

var (
	ErrPasswordTooShort = errors.New("password is too short")
	ErrPasswordTooLong  = errors.New("password exceeds maximum length of 72 bytes")
)

// PasswordHasher hashes and checks passwords with bcrypt.
type PasswordHasher struct {
	Cost      int
	MinLength int
}

// NewPasswordHasher returns a hasher, falling back to bcrypt.DefaultCost for
// an out of range cost.
func NewPasswordHasher(cost, minLength int) PasswordHasher {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = bcrypt.DefaultCost
	}
	return PasswordHasher{Cost: cost, MinLength: minLength}
}

// Hash creates a salted bcrypt hash of the password.
func (h PasswordHasher) Hash(password string) (string, error) {
	if password == "" {
		return "", ErrPasswordRequired
	}
	if len(password) < h.MinLength {
		return "", fmt.Errorf("%w: need at least %d characters", ErrPasswordTooShort, h.MinLength)
	}
	if len(password) > MaxPasswordLength {
		return "", ErrPasswordTooLong
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), h.Cost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// CheckPassword compares a password with its hash in constant time.
// A mismatch is reported as ErrInvalidCredential.
func CheckPassword(password, hash string) error {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
	if err != nil {
		if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			return ErrInvalidCredential
		}
		return err
	}
	return nil
}

// GenerateSecret creates a random 32-byte secret, hex encoded.
func GenerateSecret() (string, error) {
	bytes := make([]byte, 32)
	if _, err := rand.Read(bytes); err != nil {
		return "", err
	}
	return hex.EncodeToString(bytes), nil
}

// DecodeSecret accepts a hex encoded secret and falls back to the raw bytes.
func DecodeSecret(s string) []byte {
	if b, err := hex.DecodeString(s); err == nil && len(b) > 0 {
		return b
	}
	return []byte(s)
}
