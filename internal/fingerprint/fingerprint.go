// Package fingerprint computes the content-addressed identity used for
// deduplicating evidence.
//
// A fingerprint is the lowercase hex SHA-256 of the exact UTF-8 bytes of a
// string. No normalization is applied: two strings that differ by a single
// byte (including whitespace) have different fingerprints.
package fingerprint

import (
	"crypto/sha256"
	"encoding/hex"
)

// Size is the length of a fingerprint in hex characters.
const Size = sha256.Size * 2

// Of returns the fingerprint of content.
func Of(content string) string {
	h := sha256.Sum256([]byte(content))
	return hex.EncodeToString(h[:])
}

// Valid reports whether s looks like a fingerprint produced by Of.
// Legacy records carried short non-cryptographic hashes; those are not valid.
func Valid(s string) bool {
	if len(s) != Size {
		return false
	}
	for i := 0; i < len(s); i++ {
		c := s[i]
		if (c < '0' || c > '9') && (c < 'a' || c > 'f') {
			return false
		}
	}
	return true
}
