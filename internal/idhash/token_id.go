package idhash

import (
	"crypto/sha256"
	"fmt"

	"github.com/mr-tron/base58"
)

// ComputeTokenID computes a deterministic token id.
// Formula: base58(SHA256(creator|symbol|created_at_ms)).
func ComputeTokenID(creator, symbol string, createdAtMs int64) string {
	data := fmt.Sprintf("%s|%s|%d", creator, symbol, createdAtMs)
	hash := sha256.Sum256([]byte(data))
	return base58.Encode(hash[:])
}
