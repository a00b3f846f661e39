package token

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
)

// verificationBytes gives 160 bits of entropy, 40 hex characters.
const verificationBytes = 20

// NewVerificationToken generates a cryptographically random 40-character hex token.
func NewVerificationToken() (string, error) {
	b := make([]byte, verificationBytes)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generate verification token: %w", err)
	}
	return hex.EncodeToString(b), nil
}
