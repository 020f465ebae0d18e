package common

import (
	"crypto/sha256"
	"fmt"
)

// Sha256Hex hashes s with SHA-256 and returns the lowercase hex digest.
// Used to derive fixed-length cache keys from caller-supplied values.
func Sha256Hex(s string) string {
	return fmt.Sprintf("%x", sha256.Sum256([]byte(s)))
}
