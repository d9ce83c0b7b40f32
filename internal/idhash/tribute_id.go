// Package idhash derives deterministic record identifiers.
package idhash

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// ComputeTributeID computes a deterministic tribute id using SHA256.
// Formula: SHA256(cycle_id|recipient|mint|signature|amount_units)
// Returns hex-encoded hash (64 characters). The same transfer recorded twice
// yields the same id, so stores reject the duplicate.
func ComputeTributeID(
	cycleID string,
	recipient string,
	mint string,
	signature string,
	amountUnits uint64,
) string {
	data := fmt.Sprintf("%s|%s|%s|%s|%d",
		cycleID,
		recipient,
		mint,
		signature,
		amountUnits,
	)

	hash := sha256.Sum256([]byte(data))
	return hex.EncodeToString(hash[:])
}
