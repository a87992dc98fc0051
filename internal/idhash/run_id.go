package idhash

import (
	"crypto/sha256"
	"encoding/hex"
)

// ComputeRunID computes a deterministic run_id from the config fingerprint
// and the ordered trade ids of the run.
// Formula: SHA256(fingerprint|trade_id_1|trade_id_2|...)
func ComputeRunID(fingerprint string, tradeIDs []string) string {
	h := sha256.New()
	h.Write([]byte(fingerprint))
	for _, id := range tradeIDs {
		h.Write([]byte{'|'})
		h.Write([]byte(id))
	}
	return hex.EncodeToString(h.Sum(nil))
}
