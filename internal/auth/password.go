// Package auth hashes passwords, issues and validates session tokens, and tracks revoked tokens.
package auth

import (
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

const defaultCost = 12

// maxPasswordBytes is bcrypt's input limit; longer input would be silently truncated.
const maxPasswordBytes = 72

// PasswordService provides bcrypt hashing and verification.
type PasswordService struct {
	cost int
}

func NewPasswordService() *PasswordService {
	return &PasswordService{cost: defaultCost}
}

// NewPasswordServiceWithCost is for tests in other packages; production uses NewPasswordService.
func NewPasswordServiceWithCost(cost int) *PasswordService {
	return &PasswordService{cost: cost}
}

func (p *PasswordService) Hash(plaintext string) (string, error) {
	if len(plaintext) > maxPasswordBytes {
		return "", fmt.Errorf("auth: password must be %d bytes or fewer", maxPasswordBytes)
	}
	hashed, err := bcrypt.GenerateFromPassword([]byte(plaintext), p.cost)
	if err != nil {
		return "", fmt.Errorf("auth: hashing password: %w", err)
	}
	return string(hashed), nil
}

// ErrPasswordMismatch is returned by Verify when the hash does not match.
var ErrPasswordMismatch = errors.New("auth: invalid password")

func (p *PasswordService) Verify(hash, plaintext string) error {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(plaintext))
	if err != nil {
		if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			return ErrPasswordMismatch
		}
		return fmt.Errorf("auth: comparing password hash: %w", err)
	}
	return nil
}
