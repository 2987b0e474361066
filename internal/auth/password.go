package auth

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

var (
	// ErrInvalidPassword is returned by Verify when the password does not match.
	ErrInvalidPassword = errors.New("auth: invalid password")
	// ErrPasswordTooLong is returned by Hash for input over MaxPasswordBytes.
	ErrPasswordTooLong = errors.New("auth: password must be 72 bytes or fewer")
)

// MaxPasswordBytes is the most bcrypt reads; anything after it is ignored.
const MaxPasswordBytes = 72

// DefaultCost is the bcrypt work factor used in production. Each +1 doubles
// the hashing time; 12 is roughly 250ms on current hardware.
const DefaultCost = 12

// PasswordService hashes and verifies passwords with bcrypt.
//
// bcrypt generates a random salt per call and stores it inside the hash
// string ($2a$<cost>$<22-char salt><31-char hash>), so there is no separate
// salt column to keep in sync.
type PasswordService struct {
	cost int
}

// NewPasswordService creates a PasswordService. A cost outside bcrypt's
// accepted range selects DefaultCost. Tests pass bcrypt.MinCost (4).
func NewPasswordService(cost int) *PasswordService {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = DefaultCost
	}
	return &PasswordService{cost: cost}
}

// Hash returns the bcrypt hash of plaintext. bcrypt only reads the first
// 72 bytes, so longer input is rejected rather than silently truncated.
func (p *PasswordService) Hash(plaintext string) (string, error) {
	if len(plaintext) > MaxPasswordBytes {
		return "", ErrPasswordTooLong
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(plaintext), p.cost)
	if err != nil {
		return "", fmt.Errorf("auth: hashing password: %w", err)
	}
	return string(hashed), nil
}

// Verify returns nil if plaintext matches hash and ErrInvalidPassword if it
// does not. Any other error means the stored hash is malformed.
func (p *PasswordService) Verify(hash, plaintext string) error {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(plaintext))
	if err != nil {
		if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			return ErrInvalidPassword
		}
		return fmt.Errorf("auth: comparing password hash: %w", err)
	}
	return nil
}

// RandomPassword returns 64 hex characters from crypto/rand. Accounts created
// through GitHub sign-in get one so that password login is effectively closed.
func RandomPassword() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("auth: generating random password: %w", err)
	}
	return hex.EncodeToString(b), nil
}
