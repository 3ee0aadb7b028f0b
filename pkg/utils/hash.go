package utils

import (
	"crypto/sha256"
	"encoding/hex"
)

// Fingerprint identifies content by its sha256 digest. Cache keys
// derived from it change whenever the underlying bytes change, so a
// replaced archive never serves stale cached artifacts.
func Fingerprint(data []byte) string {
	hasher := sha256.New()
	hasher.Write(data)
	return hex.EncodeToString(hasher.Sum(nil))
}
