// Package apikey generates and hashes project ingestion keys. Only the
// SHA-256 hash and a short display prefix are ever persisted; the full token
// is shown to the caller exactly once at creation time.
package apikey

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"strings"
)

const (
	// TokenPrefix marks every key this service issues.
	TokenPrefix = "tr-"

	// DisplayPrefixLength is how many leading characters of the token are
	// stored for display in key listings.
	DisplayPrefixLength = 10

	randomBytes = 32
)

// Generate returns a new opaque token: "tr-" followed by 43 URL-safe base64
// characters of entropy.
func Generate() (string, error) {
	buf := make([]byte, randomBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate api key: %w", err)
	}
	return TokenPrefix + base64.RawURLEncoding.EncodeToString(buf), nil
}

// Hash returns the lowercase hex SHA-256 of the full token.
func Hash(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

// DisplayPrefix returns the leading characters of the token stored for UI
// display. Short tokens are returned whole.
func DisplayPrefix(token string) string {
	if len(token) <= DisplayPrefixLength {
		return token
	}
	return token[:DisplayPrefixLength]
}

// HasTokenPrefix reports whether the token carries this service's prefix.
// Authentication does not require it (lookups go by hash), but it lets
// handlers reject obviously foreign tokens early.
func HasTokenPrefix(token string) bool {
	return strings.HasPrefix(token, TokenPrefix)
}

// Equal compares two hashes in constant time.
func Equal(hashA, hashB string) bool {
	return subtle.ConstantTimeCompare([]byte(hashA), []byte(hashB)) == 1
}
