package activity

import (
	"encoding/hex"

	"golang.org/x/crypto/blake2b"
)

// ContentETag returns a strong HTTP entity tag for a canonical encoding.
// Equal encodings always produce equal tags.
func ContentETag(canonical string) string {
	sum := blake2b.Sum256([]byte(canonical))
	return `"` + hex.EncodeToString(sum[:16]) + `"`
}
