package cryptox

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
)

// DefaultTokenLength is the number of hex characters in a generated token.
// 64 characters carry 256 bits of entropy; anything under 40 makes birthday
// collisions worth thinking about, so don't go lower.
const DefaultTokenLength = 64

// GenerateToken creates a cryptographically secure random token rendered as
// a lowercase-hex string of exactly length characters. Length must be a
// positive even number since each random byte encodes to two hex characters.
//
// Callers that persist tokens still enforce global uniqueness at the storage
// layer; a collision there should be answered by calling this again.
func GenerateToken(length int) (string, error) {
	if length <= 0 || length%2 != 0 {
		return "", fmt.Errorf("token length must be a positive even number, got %d", length)
	}

	buf := make([]byte, length/2)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to read random bytes: %w", err)
	}

	return hex.EncodeToString(buf), nil
}

// MustGenerateToken is like GenerateToken but panics on error. Use only
// during initialization where an entropy failure is unrecoverable anyway.
func MustGenerateToken(length int) string {
	token, err := GenerateToken(length)
	if err != nil {
		panic(fmt.Sprintf("cryptox: failed to generate token: %v", err))
	}
	return token
}
