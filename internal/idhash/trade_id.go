package idhash

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// ComputeTradeID computes a deterministic trade_id using SHA256.
// Formula: SHA256(symbol|freq_label|formation_unix_nano|entry_unix_nano|direction)
// Returns hex-encoded hash (64 characters).
func ComputeTradeID(
	symbol string,
	freqLabel string,
	formationTime int64,
	entryTime int64,
	direction int,
) string {
	data := fmt.Sprintf("%s|%s|%d|%d|%d",
		symbol,
		freqLabel,
		formationTime,
		entryTime,
		direction,
	)

	hash := sha256.Sum256([]byte(data))
	return hex.EncodeToString(hash[:])
}
