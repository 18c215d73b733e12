package idhash

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// ComputeTradeID computes a deterministic trade_id using SHA256.
// Formula: SHA256(token_id|trader|side|sequence_number)
// Returns hex-encoded hash (64 characters).
func ComputeTradeID(tokenID, trader, side string, sequenceNumber uint64) string {
	data := fmt.Sprintf("%s|%s|%s|%d", tokenID, trader, side, sequenceNumber)
	hash := sha256.Sum256([]byte(data))
	return hex.EncodeToString(hash[:])
}
