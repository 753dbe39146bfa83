package ingest

import (
	"crypto/sha256"
	"encoding/hex"
)

// Checksum returns the hex sha256 digest of the content. It is the dedup key:
// byte-identical uploads always map to the same document row.
func Checksum(content []byte) string {
	sum := sha256.Sum256(content)
	return hex.EncodeToString(sum[:])
}
