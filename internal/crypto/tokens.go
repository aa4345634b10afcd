package crypto

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"strings"
)

const (
	// InviteTokenLength is the length of the random part of an invite token in bytes
	InviteTokenLength = 32

	// DefaultInvitePrefix marks club invite tokens so they are recognizable
	// in logs and support tickets without being guessable.
	DefaultInvitePrefix = "c5i"
)

// GenerateInviteToken creates a new random invite token with the given
// prefix. The token itself is the stored identifier; there is no separate
// hash because tokens are single-purpose and revocable.
func GenerateInviteToken(prefix string) (string, error) {
	if prefix == "" {
		prefix = DefaultInvitePrefix
	}

	randomBytes := make([]byte, InviteTokenLength)
	if _, err := rand.Read(randomBytes); err != nil {
		return "", fmt.Errorf("failed to generate random bytes: %w", err)
	}

	randomPart := base64.RawURLEncoding.EncodeToString(randomBytes)

	return fmt.Sprintf("%s_%s", prefix, randomPart), nil
}

// HasInvitePrefix reports whether a token carries the given invite prefix
func HasInvitePrefix(token, prefix string) bool {
	if prefix == "" {
		prefix = DefaultInvitePrefix
	}
	return strings.HasPrefix(token, prefix+"_")
}
