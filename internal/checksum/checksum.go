// Package checksum computes the content digests used for optimistic
// concurrency on sequence documents.
package checksum

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// Sum returns the hex-encoded SHA-256 digest of data.
func Sum(data []byte) string {
	h := sha256.Sum256(data)
	return hex.EncodeToString(h[:])
}

// Matches reports whether ifMatch (possibly quoted ETag-style, possibly
// empty meaning "no precondition") matches the digest of data.
func Matches(ifMatch string, data []byte) bool {
	trimmed := strings.Trim(ifMatch, `"`)
	return trimmed == "" || trimmed == Sum(data)
}
