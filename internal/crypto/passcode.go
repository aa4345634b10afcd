// Package crypto provides the hashing and token-generation primitives for
// club admission: bcrypt passcode hashing and opaque invite token generation.
package crypto

import (
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

const (
	// MinPasscodeLength is the minimum accepted passcode length
	MinPasscodeLength = 4

	// MaxPasscodeLength is the maximum accepted passcode length. Bcrypt
	// truncates at 72 bytes; we cap well below that.
	MaxPasscodeLength = 64

	// BcryptCost is the cost factor for bcrypt hashing
	BcryptCost = 12
)

// ErrPasscodeLength is returned when a passcode is outside the accepted length range
var ErrPasscodeLength = fmt.Errorf("passcode must be between %d and %d characters", MinPasscodeLength, MaxPasscodeLength)

// HashPasscode hashes a club passcode for storage. The plaintext is never
// persisted.
func HashPasscode(passcode string) (string, error) {
	if len(passcode) < MinPasscodeLength || len(passcode) > MaxPasscodeLength {
		return "", ErrPasscodeLength
	}

	hashBytes, err := bcrypt.GenerateFromPassword([]byte(passcode), BcryptCost)
	if err != nil {
		return "", fmt.Errorf("failed to hash passcode: %w", err)
	}

	return string(hashBytes), nil
}

// VerifyPasscode checks a provided passcode against the stored hash
func VerifyPasscode(provided, storedHash string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(storedHash), []byte(provided))
	return err == nil
}

// ValidateStoredHash reports whether a stored value looks like a bcrypt hash.
// Used at club creation to reject accidentally-stored plaintext.
func ValidateStoredHash(hash string) error {
	if _, err := bcrypt.Cost([]byte(hash)); err != nil {
		return errors.New("stored passcode hash is not a valid bcrypt hash")
	}
	return nil
}
