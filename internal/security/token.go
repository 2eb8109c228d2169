package security

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// sessionTokenBytes is the entropy of a session token. Hex encoding
// doubles it to a 64-character cookie value.
const sessionTokenBytes = 32

// GenerateSessionToken returns a new opaque session token. A failing
// CSPRNG is not recoverable; callers should treat the error as fatal
// for the request.
func GenerateSessionToken() (string, error) {
	buf := make([]byte, sessionTokenBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate session token: %w", err)
	}
	return hex.EncodeToString(buf), nil
}

// HashSessionToken derives the session ID stored in the database.
// Deterministic and one-way: the same token always maps to the same ID
// and the ID cannot be reversed into the token.
func HashSessionToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}
