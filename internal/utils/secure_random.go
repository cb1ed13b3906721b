package utils

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"strings"
	"time"
)

// GenerateSecureRandomString generates a cryptographically secure random string of the specified byte length,
// then hex encodes it. For example, lengthInBytes=32 will result in a 64-character hex string.
func GenerateSecureRandomString(lengthInBytes int) (string, error) {
	if lengthInBytes <= 0 {
		return "", fmt.Errorf("lengthInBytes must be positive")
	}
	b := make([]byte, lengthInBytes)
	_, err := rand.Read(b)
	if err != nil {
		return "", fmt.Errorf("failed to read random bytes: %w", err)
	}
	return hex.EncodeToString(b), nil
}

// GeneratePayoutReference builds a globally unique payout reference number,
// e.g. "PO-20260828-1a2b3c4d". The random suffix makes collisions across
// concurrent requests negligible; the database's unique constraint is the
// backstop.
func GeneratePayoutReference(now time.Time) (string, error) {
	suffix, err := GenerateSecureRandomString(4)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("PO-%s-%s", now.UTC().Format("20060102"), strings.ToLower(suffix)), nil
}
