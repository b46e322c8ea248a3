package cache

import (
	"crypto/sha256"
	"encoding/hex"
)

// Key returns prefix followed by a hash of canonical, the exact encoding of
// whatever the cached value depends on
func Key(prefix string, canonical []byte) string {
	hash := sha256.Sum256(canonical)
	return prefix + hex.EncodeToString(hash[:16])
}
